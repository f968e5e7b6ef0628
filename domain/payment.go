package domain

import "time"

// PaymentStatus values recorded on the ledger.
const (
	PaymentPaid = "PAID"
)

// Payment is an immutable record of money received. Webhook-sourced rows carry
// the provider invoice id, which acts as the idempotency key: at most one row
// exists per distinct invoice id.
type Payment struct {
	ID                      string    `json:"id"`
	ProjectID               string    `json:"project_id"`
	Amount                  int64     `json:"amount"`
	Status                  string    `json:"status"`
	PaidAt                  time.Time `json:"paid_at"`
	ProviderInvoiceID       string    `json:"provider_invoice_id,omitempty"`
	ProviderPaymentIntentID string    `json:"provider_payment_intent_id,omitempty"`
	IsPayoff                bool      `json:"is_payoff"`
	CreatedAt               time.Time `json:"created_at"`
}

package domain

import "time"

// Project is the unit of billing and delivery, and the aggregate root for
// payments, activity, notifications and handoff items. Amounts are integer
// minor currency units (cents).
type Project struct {
	ID          string   `json:"id"`
	Slug        string   `json:"slug"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Notes       string   `json:"notes,omitempty"`
	Status      Status   `json:"status"`
	DealType    DealType `json:"deal_type"`

	TotalAmount    int64 `json:"total_amount"`
	AmountPaid     int64 `json:"amount_paid"`
	TermMonths     int   `json:"term_months"`
	MonthlyPayment int64 `json:"monthly_payment"`

	GracePeriodMonths    int        `json:"grace_period_months"`
	GracePeriodStartedAt *time.Time `json:"grace_period_started_at,omitempty"`
	MissedPayments       int        `json:"missed_payments"`

	ProviderCustomerID     string `json:"provider_customer_id,omitempty"`
	ProviderSubscriptionID string `json:"provider_subscription_id,omitempty"`

	ClientID             string     `json:"client_id,omitempty"`
	TargetCompletionDate *time.Time `json:"target_completion_date,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FullyPaid reports whether the ledger considers the project settled.
func (p *Project) FullyPaid() bool {
	return p != nil && p.TotalAmount > 0 && p.AmountPaid >= p.TotalAmount
}

func (p *Project) HasSubscription() bool {
	return p != nil && p.ProviderSubscriptionID != ""
}

// GraceEndsAt returns the end of the grace window using calendar-month
// arithmetic, or the zero time when no grace period is running.
func (p *Project) GraceEndsAt() time.Time {
	if p == nil || p.GracePeriodStartedAt == nil {
		return time.Time{}
	}
	return p.GracePeriodStartedAt.AddDate(0, p.GracePeriodMonths, 0)
}

// GraceExpired reports whether the grace window has fully elapsed at now.
func (p *Project) GraceExpired(now time.Time) bool {
	end := p.GraceEndsAt()
	if end.IsZero() {
		return false
	}
	return !now.Before(end)
}

// MonthlyPaymentFor derives the monthly installment for a deal. It is computed
// once at creation and deliberately not kept in sync with later edits.
func MonthlyPaymentFor(dealType DealType, totalAmount int64, termMonths int) int64 {
	if dealType != DealInstallment || totalAmount <= 0 || termMonths <= 0 {
		return 0
	}
	return (totalAmount + int64(termMonths) - 1) / int64(termMonths)
}

package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/juicebox/backoffice/domain"
	"github.com/juicebox/backoffice/repository"
)

type paymentRepository struct {
	pool *pgxpool.Pool
}

// NewPaymentRepository returns a Postgres-backed implementation of PaymentRepository.
func NewPaymentRepository(pool *pgxpool.Pool) repository.PaymentRepository {
	return &paymentRepository{pool: pool}
}

func (r *paymentRepository) UpsertByInvoiceID(ctx context.Context, payment *domain.Payment) (bool, error) {
	if payment == nil || payment.ProviderInvoiceID == "" {
		return false, domain.ErrInvalidPayload
	}
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}

	// xmax = 0 distinguishes a fresh insert from a conflict update, so a
	// replayed invoice id never produces a second row or a second increment.
	const query = `
	INSERT INTO payments (id, project_id, amount, status, paid_at, provider_invoice_id, provider_payment_intent_id, is_payoff)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (provider_invoice_id) DO UPDATE
	SET status = EXCLUDED.status,
		paid_at = EXCLUDED.paid_at
	RETURNING id, created_at, (xmax = 0) AS inserted
	`

	var inserted bool
	if err := r.pool.QueryRow(ctx, query,
		payment.ID,
		payment.ProjectID,
		payment.Amount,
		payment.Status,
		payment.PaidAt,
		payment.ProviderInvoiceID,
		nullStr(payment.ProviderPaymentIntentID),
		payment.IsPayoff,
	).Scan(&payment.ID, &payment.CreatedAt, &inserted); err != nil {
		return false, err
	}
	return inserted, nil
}

func (r *paymentRepository) Create(ctx context.Context, payment *domain.Payment) (*domain.Payment, error) {
	if payment == nil {
		return nil, domain.ErrInvalidPayload
	}
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}

	const query = `
	INSERT INTO payments (id, project_id, amount, status, paid_at, provider_invoice_id, provider_payment_intent_id, is_payoff)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	RETURNING created_at
	`

	if err := r.pool.QueryRow(ctx, query,
		payment.ID,
		payment.ProjectID,
		payment.Amount,
		payment.Status,
		payment.PaidAt,
		nullStr(payment.ProviderInvoiceID),
		nullStr(payment.ProviderPaymentIntentID),
		payment.IsPayoff,
	).Scan(&payment.CreatedAt); err != nil {
		return nil, err
	}

	return payment, nil
}

func (r *paymentRepository) ListByProject(ctx context.Context, projectID string) ([]domain.Payment, error) {
	const query = `
	SELECT id, project_id, amount, status, paid_at, provider_invoice_id, provider_payment_intent_id, is_payoff, created_at
	FROM payments
	WHERE project_id = $1
	ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, *p)
	}
	return payments, rows.Err()
}

func scanPayment(row interface {
	Scan(dest ...interface{}) error
}) (*domain.Payment, error) {
	var p domain.Payment
	var invoiceID, intentID *string

	if err := row.Scan(
		&p.ID,
		&p.ProjectID,
		&p.Amount,
		&p.Status,
		&p.PaidAt,
		&invoiceID,
		&intentID,
		&p.IsPayoff,
		&p.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewError(domain.ErrCodeNotFound, "payment not found")
		}
		return nil, err
	}

	p.ProviderInvoiceID = strOrEmpty(invoiceID)
	p.ProviderPaymentIntentID = strOrEmpty(intentID)
	return &p, nil
}

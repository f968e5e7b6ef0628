package repository

import (
	"context"

	"github.com/juicebox/backoffice/domain"
)

type PaymentRepository interface {
	// UpsertByInvoiceID writes a payment keyed by its provider invoice id and
	// reports whether a new row was inserted. A replayed invoice id updates the
	// existing row and returns inserted=false, which callers use to keep
	// amountPaid idempotent under duplicate webhook delivery.
	UpsertByInvoiceID(ctx context.Context, payment *domain.Payment) (inserted bool, err error)

	Create(ctx context.Context, payment *domain.Payment) (*domain.Payment, error)
	ListByProject(ctx context.Context, projectID string) ([]domain.Payment, error)
}

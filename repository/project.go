package repository

import (
	"context"
	"time"

	"github.com/juicebox/backoffice/domain"
)

type ProjectFilter struct {
	Status domain.Status
	Search string
	Limit  int
	Offset int
}

// ProjectUpdate carries the editable (non-lifecycle) fields of a project.
// Nil pointers leave the column untouched.
type ProjectUpdate struct {
	Title                *string
	Description          *string
	Notes                *string
	TotalAmount          *int64
	TermMonths           *int
	GracePeriodMonths    *int
	ClientID             *string
	TargetCompletionDate *time.Time
}

type ProjectRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Project, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Project, error)
	GetBySubscriptionID(ctx context.Context, subscriptionID string) (*domain.Project, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	List(ctx context.Context, filter ProjectFilter) ([]domain.Project, error)
	Create(ctx context.Context, project *domain.Project) (*domain.Project, error)
	Update(ctx context.Context, id string, update ProjectUpdate) (*domain.Project, error)

	// ApplyLifecycle writes status plus the grace/missed-payment fields that
	// transitions own, in one statement. It is the only status writer.
	ApplyLifecycle(ctx context.Context, project *domain.Project) error

	// IncrementAmountPaid atomically adds delta and returns the new total.
	IncrementAmountPaid(ctx context.Context, id string, delta int64) (int64, error)
	SetAmountPaid(ctx context.Context, id string, amount int64) error
	IncrementMissedPayments(ctx context.Context, id string) (int, error)
	ResetMissedPayments(ctx context.Context, id string) error
	SetGracePeriodMonths(ctx context.Context, id string, months int) error
	SetSubscription(ctx context.Context, id, customerID, subscriptionID string) error
	ClearSubscription(ctx context.Context, id string) error

	// Scheduler scans.
	ListPausedWithGrace(ctx context.Context) ([]domain.Project, error)
	ListActiveInstallments(ctx context.Context) ([]domain.Project, error)
}

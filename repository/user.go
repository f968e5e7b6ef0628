package repository

import (
	"context"

	"github.com/juicebox/backoffice/domain"
)

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByExternalID(ctx context.Context, externalID string) (*domain.User, error)
	// UpsertByExternalID syncs an identity-provider record. It is the sole
	// writer of role and external id.
	UpsertByExternalID(ctx context.Context, user *domain.User) error
}

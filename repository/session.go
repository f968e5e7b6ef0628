package repository

import (
	"context"

	"github.com/juicebox/backoffice/domain"
)

// SessionRepository stores operator sessions. Expiry enforcement belongs to
// the store; callers treat a missing session and an expired one the same.
type SessionRepository interface {
	Get(ctx context.Context, id string) (*domain.Session, error)
	Save(ctx context.Context, session *domain.Session) error
	Delete(ctx context.Context, id string) error
	// Extend pushes the expiry ttlSeconds into the future from now.
	Extend(ctx context.Context, id string, ttlSeconds int) error
}

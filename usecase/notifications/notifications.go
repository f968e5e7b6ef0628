// Package notifications exposes the user-facing notification feed.
package notifications

import (
	"context"

	"github.com/juicebox/backoffice/domain"
	"github.com/juicebox/backoffice/repository"
)

const (
	defaultLimit = 20
	maxLimit     = 50
)

type Service struct {
	notifs repository.NotificationRepository
}

func New(notifs repository.NotificationRepository) *Service {
	return &Service{notifs: notifs}
}

// List returns one page of the user's feed, newest first. Page numbers start
// at 1; the limit is clamped to a sane ceiling.
func (s *Service) List(ctx context.Context, userID string, page, limit int) (*repository.NotificationPage, error) {
	if userID == "" {
		return nil, domain.ErrUnauthorized
	}
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return s.notifs.ListByUser(ctx, userID, limit, (page-1)*limit)
}

// MarkRead flags the given notifications as read. Only the owner's rows are
// touched; ids belonging to other users are silently skipped.
func (s *Service) MarkRead(ctx context.Context, userID string, ids []string) (int, error) {
	if userID == "" {
		return 0, domain.ErrUnauthorized
	}
	if len(ids) == 0 {
		return 0, domain.NewError(domain.ErrCodeInvalid, "no notification ids given")
	}
	return s.notifs.MarkRead(ctx, userID, ids)
}

// MarkAllRead flags the user's entire feed as read.
func (s *Service) MarkAllRead(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, domain.ErrUnauthorized
	}
	return s.notifs.MarkAllRead(ctx, userID)
}

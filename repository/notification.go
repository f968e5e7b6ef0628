package repository

import (
	"context"

	"github.com/juicebox/backoffice/domain"
)

type NotificationPage struct {
	Items       []domain.Notification
	Total       int
	UnreadCount int
}

type NotificationRepository interface {
	Create(ctx context.Context, notification *domain.Notification) error
	ListByUser(ctx context.Context, userID string, limit, offset int) (*NotificationPage, error)

	// MarkRead flips the read flag for the given ids, scoped to userID.
	MarkRead(ctx context.Context, userID string, ids []string) (int, error)
	// MarkAllRead flips every unread notification for userID. Zero rows is a
	// valid success.
	MarkAllRead(ctx context.Context, userID string) (int, error)
}

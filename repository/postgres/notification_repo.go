package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/juicebox/backoffice/domain"
	"github.com/juicebox/backoffice/repository"
)

type notificationRepository struct {
	pool *pgxpool.Pool
}

// NewNotificationRepository returns a Postgres-backed implementation of NotificationRepository.
func NewNotificationRepository(pool *pgxpool.Pool) repository.NotificationRepository {
	return &notificationRepository{pool: pool}
}

func (r *notificationRepository) Create(ctx context.Context, notification *domain.Notification) error {
	if notification == nil {
		return domain.ErrInvalidPayload
	}
	if notification.ID == "" {
		notification.ID = uuid.NewString()
	}

	const query = `
	INSERT INTO notifications (id, user_id, project_id, type, title, message, read)
	VALUES ($1, $2, $3, $4, $5, $6, FALSE)
	RETURNING created_at
	`

	return r.pool.QueryRow(ctx, query,
		notification.ID,
		notification.UserID,
		nullStr(notification.ProjectID),
		notification.Type,
		notification.Title,
		notification.Message,
	).Scan(&notification.CreatedAt)
}

func (r *notificationRepository) ListByUser(ctx context.Context, userID string, limit, offset int) (*repository.NotificationPage, error) {
	const query = `
	SELECT id, user_id, project_id, type, title, message, read, created_at
	FROM notifications
	WHERE user_id = $1
	ORDER BY created_at DESC
	LIMIT $2 OFFSET $3
	`
	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	page := &repository.NotificationPage{}
	for rows.Next() {
		var n domain.Notification
		var projectID *string
		if err := rows.Scan(&n.ID, &n.UserID, &projectID, &n.Type, &n.Title, &n.Message, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		n.ProjectID = strOrEmpty(projectID)
		page.Items = append(page.Items, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	const countQuery = `
	SELECT COUNT(*), COUNT(*) FILTER (WHERE NOT read)
	FROM notifications
	WHERE user_id = $1
	`
	if err := r.pool.QueryRow(ctx, countQuery, userID).Scan(&page.Total, &page.UnreadCount); err != nil {
		return nil, err
	}

	return page, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, userID string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, domain.ErrInvalidPayload
	}

	const query = `
	UPDATE notifications
	SET read = TRUE
	WHERE user_id = $1 AND id = ANY($2)
	`
	tag, err := r.pool.Exec(ctx, query, userID, ids)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, userID string) (int, error) {
	const query = `
	UPDATE notifications
	SET read = TRUE
	WHERE user_id = $1 AND NOT read
	`
	tag, err := r.pool.Exec(ctx, query, userID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

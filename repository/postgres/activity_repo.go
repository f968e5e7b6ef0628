package postgres

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/juicebox/backoffice/domain"
	"github.com/juicebox/backoffice/repository"
)

type activityRepository struct {
	pool *pgxpool.Pool
}

// NewActivityRepository returns a Postgres-backed implementation of ActivityRepository.
func NewActivityRepository(pool *pgxpool.Pool) repository.ActivityRepository {
	return &activityRepository{pool: pool}
}

func (r *activityRepository) Append(ctx context.Context, entry *domain.ActivityLog) error {
	if entry == nil {
		return domain.ErrInvalidPayload
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}

	const query = `
	INSERT INTO activity_logs (id, project_id, action, actor, metadata)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING created_at
	`

	return r.pool.QueryRow(ctx, query,
		entry.ID,
		entry.ProjectID,
		entry.Action,
		entry.Actor,
		marshalMeta(entry.Metadata),
	).Scan(&entry.CreatedAt)
}

func (r *activityRepository) ListByProject(ctx context.Context, projectID string, limit int) ([]domain.ActivityLog, error) {
	const query = `
	SELECT id, project_id, action, actor, metadata, created_at
	FROM activity_logs
	WHERE project_id = $1
	ORDER BY created_at DESC
	LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, projectID, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.ActivityLog
	for rows.Next() {
		var entry domain.ActivityLog
		var metadata []byte
		if err := rows.Scan(&entry.ID, &entry.ProjectID, &entry.Action, &entry.Actor, &metadata, &entry.CreatedAt); err != nil {
			return nil, err
		}
		if len(metadata) > 0 {
			_ = json.Unmarshal(metadata, &entry.Metadata)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

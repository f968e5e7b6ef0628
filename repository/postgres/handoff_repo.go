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

type handoffRepository struct {
	pool *pgxpool.Pool
}

// NewHandoffRepository returns a Postgres-backed implementation of HandoffRepository.
func NewHandoffRepository(pool *pgxpool.Pool) repository.HandoffRepository {
	return &handoffRepository{pool: pool}
}

func (r *handoffRepository) GetItem(ctx context.Context, itemID string) (*domain.HandoffItem, error) {
	const query = `
	SELECT id, project_id, label, completed, completed_at, sort_order, created_at
	FROM handoff_items
	WHERE id = $1
	`
	return scanHandoffItem(r.pool.QueryRow(ctx, query, itemID))
}

func (r *handoffRepository) ListByProject(ctx context.Context, projectID string) ([]domain.HandoffItem, error) {
	const query = `
	SELECT id, project_id, label, completed, completed_at, sort_order, created_at
	FROM handoff_items
	WHERE project_id = $1
	ORDER BY sort_order ASC
	`
	rows, err := r.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.HandoffItem
	for rows.Next() {
		item, err := scanHandoffItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func (r *handoffRepository) HasItems(ctx context.Context, projectID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM handoff_items WHERE project_id = $1)`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, projectID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *handoffRepository) CreateItems(ctx context.Context, items []domain.HandoffItem) error {
	if len(items) == 0 {
		return domain.ErrInvalidPayload
	}

	batch := &pgx.Batch{}
	const query = `
	INSERT INTO handoff_items (id, project_id, label, completed, sort_order)
	VALUES ($1, $2, $3, FALSE, $4)
	`
	for i := range items {
		if items[i].ID == "" {
			items[i].ID = uuid.NewString()
		}
		batch.Queue(query, items[i].ID, items[i].ProjectID, items[i].Label, items[i].SortOrder)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range items {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}
	return nil
}

func (r *handoffRepository) SetCompleted(ctx context.Context, itemID string, completed bool) (*domain.HandoffItem, error) {
	const query = `
	UPDATE handoff_items
	SET completed = $2,
		completed_at = CASE WHEN $2 THEN NOW() ELSE NULL END
	WHERE id = $1
	RETURNING id, project_id, label, completed, completed_at, sort_order, created_at
	`
	item, err := scanHandoffItem(r.pool.QueryRow(ctx, query, itemID, completed))
	if err != nil {
		if domain.IsDomainError(err, domain.ErrCodeNotFound) {
			return nil, domain.ErrHandoffItemNotFound
		}
		return nil, err
	}
	return item, nil
}

func scanHandoffItem(row interface {
	Scan(dest ...interface{}) error
}) (*domain.HandoffItem, error) {
	var item domain.HandoffItem
	if err := row.Scan(
		&item.ID,
		&item.ProjectID,
		&item.Label,
		&item.Completed,
		&item.CompletedAt,
		&item.SortOrder,
		&item.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrHandoffItemNotFound
		}
		return nil, err
	}
	return &item, nil
}

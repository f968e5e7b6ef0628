package repository

import (
	"context"

	"github.com/juicebox/backoffice/domain"
)

type ActivityRepository interface {
	Append(ctx context.Context, entry *domain.ActivityLog) error
	ListByProject(ctx context.Context, projectID string, limit int) ([]domain.ActivityLog, error)
}

package repository

import (
	"context"

	"github.com/juicebox/backoffice/domain"
)

type HandoffRepository interface {
	GetItem(ctx context.Context, itemID string) (*domain.HandoffItem, error)
	ListByProject(ctx context.Context, projectID string) ([]domain.HandoffItem, error)
	HasItems(ctx context.Context, projectID string) (bool, error)
	CreateItems(ctx context.Context, items []domain.HandoffItem) error
	SetCompleted(ctx context.Context, itemID string, completed bool) (*domain.HandoffItem, error)
}

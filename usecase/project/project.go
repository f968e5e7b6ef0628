// Package project covers project creation, editing and reads. Lifecycle
// status is deliberately absent here; transitions belong to the lifecycle
// service.
package project

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/juicebox/backoffice/domain"
	"github.com/juicebox/backoffice/repository"
)

// CreateInput carries everything needed to open a project. Amounts are minor
// currency units.
type CreateInput struct {
	Title                string
	Description          string
	Notes                string
	DealType             domain.DealType
	TotalAmount          int64
	TermMonths           int
	GracePeriodMonths    int
	ClientID             string
	TargetCompletionDate *time.Time
}

type Service struct {
	projects repository.ProjectRepository
	payments repository.PaymentRepository
	activity repository.ActivityRepository
	logger   *zap.Logger
}

func New(
	projects repository.ProjectRepository,
	payments repository.PaymentRepository,
	activity repository.ActivityRepository,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{projects: projects, payments: payments, activity: activity, logger: logger}
}

// Create opens a project in PLANNING with a unique slug derived from the
// title. The monthly payment is computed once here and never recomputed.
func (s *Service) Create(ctx context.Context, in CreateInput, actor string) (*domain.Project, error) {
	if in.Title == "" {
		return nil, domain.NewError(domain.ErrCodeInvalid, "project title is required")
	}
	if !in.DealType.Valid() {
		return nil, domain.NewError(domain.ErrCodeInvalid, "unknown deal type "+string(in.DealType))
	}
	if in.TotalAmount < 0 {
		return nil, domain.NewError(domain.ErrCodeInvalid, "total amount must be non-negative")
	}
	if in.GracePeriodMonths < 0 {
		return nil, domain.NewError(domain.ErrCodeInvalid, "grace period months must be non-negative")
	}

	slug, err := s.uniqueSlug(ctx, in.Title)
	if err != nil {
		return nil, err
	}

	project := &domain.Project{
		Slug:                 slug,
		Title:                in.Title,
		Description:          in.Description,
		Notes:                in.Notes,
		Status:               domain.StatusPlanning,
		DealType:             in.DealType,
		TotalAmount:          in.TotalAmount,
		TermMonths:           in.TermMonths,
		MonthlyPayment:       domain.MonthlyPaymentFor(in.DealType, in.TotalAmount, in.TermMonths),
		GracePeriodMonths:    in.GracePeriodMonths,
		ClientID:             in.ClientID,
		TargetCompletionDate: in.TargetCompletionDate,
	}
	if _, err := s.projects.Create(ctx, project); err != nil {
		return nil, err
	}

	if err := s.activity.Append(ctx, &domain.ActivityLog{
		ProjectID: project.ID,
		Action:    domain.ActionProjectCreated,
		Actor:     actor,
		Metadata:  map[string]any{"title": project.Title, "dealType": string(project.DealType)},
	}); err != nil {
		return nil, err
	}

	s.logger.Info("project created",
		zap.String("project_id", project.ID),
		zap.String("slug", project.Slug),
		zap.String("actor", actor))
	return project, nil
}

// Update edits the non-lifecycle fields. Editing totals does not recompute
// the monthly payment.
func (s *Service) Update(ctx context.Context, projectID string, update repository.ProjectUpdate, actor string) (*domain.Project, error) {
	if update.TotalAmount != nil && *update.TotalAmount < 0 {
		return nil, domain.NewError(domain.ErrCodeInvalid, "total amount must be non-negative")
	}
	if update.GracePeriodMonths != nil && *update.GracePeriodMonths < 0 {
		return nil, domain.NewError(domain.ErrCodeInvalid, "grace period months must be non-negative")
	}

	project, err := s.projects.Update(ctx, projectID, update)
	if err != nil {
		return nil, err
	}

	if err := s.activity.Append(ctx, &domain.ActivityLog{
		ProjectID: projectID,
		Action:    domain.ActionProjectUpdated,
		Actor:     actor,
	}); err != nil {
		return nil, err
	}
	return project, nil
}

func (s *Service) Get(ctx context.Context, projectID string) (*domain.Project, error) {
	return s.projects.GetByID(ctx, projectID)
}

func (s *Service) GetBySlug(ctx context.Context, slug string) (*domain.Project, error) {
	return s.projects.GetBySlug(ctx, slug)
}

func (s *Service) List(ctx context.Context, filter repository.ProjectFilter) ([]domain.Project, error) {
	return s.projects.List(ctx, filter)
}

func (s *Service) Payments(ctx context.Context, projectID string) ([]domain.Payment, error) {
	if _, err := s.projects.GetByID(ctx, projectID); err != nil {
		return nil, err
	}
	return s.payments.ListByProject(ctx, projectID)
}

func (s *Service) Activity(ctx context.Context, projectID string, limit int) ([]domain.ActivityLog, error) {
	if _, err := s.projects.GetByID(ctx, projectID); err != nil {
		return nil, err
	}
	return s.activity.ListByProject(ctx, projectID, limit)
}

// uniqueSlug resolves collisions with a numeric suffix: base, base-2, base-3.
func (s *Service) uniqueSlug(ctx context.Context, title string) (string, error) {
	base := Slugify(title)
	candidate := base
	for n := 2; ; n++ {
		exists, err := s.projects.SlugExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = base + "-" + strconv.Itoa(n)
	}
}

// Package handoff manages the project transfer checklist and the final move
// into HANDED_OFF.
package handoff

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/juicebox/backoffice/domain"
	"github.com/juicebox/backoffice/internal/services/bus"
	"github.com/juicebox/backoffice/internal/services/email"
	"github.com/juicebox/backoffice/repository"
	"github.com/juicebox/backoffice/usecase/lifecycle"
)

type Service struct {
	handoff   repository.HandoffRepository
	projects  repository.ProjectRepository
	activity  repository.ActivityRepository
	notifs    repository.NotificationRepository
	users     repository.UserRepository
	lifecycle *lifecycle.Service
	bus       *bus.Bus
	email     email.Sender
	logger    *zap.Logger
}

func New(
	handoffRepo repository.HandoffRepository,
	projects repository.ProjectRepository,
	activity repository.ActivityRepository,
	notifs repository.NotificationRepository,
	users repository.UserRepository,
	lifecycleSvc *lifecycle.Service,
	eventBus *bus.Bus,
	sender email.Sender,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		handoff:   handoffRepo,
		projects:  projects,
		activity:  activity,
		notifs:    notifs,
		users:     users,
		lifecycle: lifecycleSvc,
		bus:       eventBus,
		email:     sender,
		logger:    logger,
	}
}

// GenerateChecklist creates the default transfer checklist for a project.
// A project gets exactly one checklist; a second generation is a conflict.
func (s *Service) GenerateChecklist(ctx context.Context, projectID, actor string) ([]domain.HandoffItem, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	exists, err := s.handoff.HasItems(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrChecklistExists
	}

	items := make([]domain.HandoffItem, len(domain.DefaultHandoffItems))
	for i, label := range domain.DefaultHandoffItems {
		items[i] = domain.HandoffItem{
			ProjectID: projectID,
			Label:     label,
			SortOrder: i,
		}
	}
	if err := s.handoff.CreateItems(ctx, items); err != nil {
		return nil, err
	}

	if err := s.activity.Append(ctx, &domain.ActivityLog{
		ProjectID: projectID,
		Action:    domain.ActionHandoffStarted,
		Actor:     actor,
		Metadata:  map[string]any{"items": len(items)},
	}); err != nil {
		return nil, err
	}

	s.bus.HandoffUpdated(bus.Broadcast, map[string]any{"projectId": projectID})
	s.logger.Info("handoff checklist generated",
		zap.String("project_id", project.ID), zap.Int("items", len(items)))
	return items, nil
}

// List returns the project's checklist in display order.
func (s *Service) List(ctx context.Context, projectID string) ([]domain.HandoffItem, error) {
	if _, err := s.projects.GetByID(ctx, projectID); err != nil {
		return nil, err
	}
	return s.handoff.ListByProject(ctx, projectID)
}

// ToggleItem flips one checklist item and reports the remaining open count.
func (s *Service) ToggleItem(ctx context.Context, itemID string, completed bool) (*domain.HandoffItem, int, error) {
	item, err := s.handoff.SetCompleted(ctx, itemID, completed)
	if err != nil {
		return nil, 0, err
	}

	items, err := s.handoff.ListByProject(ctx, item.ProjectID)
	if err != nil {
		return nil, 0, err
	}
	remaining := 0
	for _, it := range items {
		if !it.Completed {
			remaining++
		}
	}

	s.bus.HandoffUpdated(bus.Broadcast, map[string]any{
		"projectId": item.ProjectID,
		"itemId":    item.ID,
		"completed": item.Completed,
		"remaining": remaining,
	})
	return item, remaining, nil
}

// Finalize moves a COMPLETED project with a fully checked-off list into
// HANDED_OFF, notifying and emailing the client.
func (s *Service) Finalize(ctx context.Context, projectID, actor string) (*domain.Project, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.Status == domain.StatusHandedOff {
		return nil, domain.ErrAlreadyHandedOff
	}
	if project.Status != domain.StatusCompleted {
		return nil, domain.NewError(domain.ErrCodeConflict, "only a completed project can be handed off")
	}

	items, err := s.handoff.ListByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, domain.ErrChecklistIncomplete
	}
	for _, item := range items {
		if !item.Completed {
			return nil, domain.ErrChecklistIncomplete
		}
	}

	err = s.lifecycle.Apply(ctx, project, lifecycle.Transition{
		Target: domain.StatusHandedOff,
		Actor:  actor,
		Reason: "handoff_finalized",
		Notice: &lifecycle.Notice{
			Type:    domain.NotificationHandoffReady,
			Title:   "Project Handed Off",
			Message: fmt.Sprintf("Your project \"%s\" has been fully handed off. All access is now yours.", project.Title),
		},
	})
	if err != nil {
		return nil, err
	}

	if err := s.activity.Append(ctx, &domain.ActivityLog{
		ProjectID: projectID,
		Action:    domain.ActionHandoffCompleted,
		Actor:     actor,
	}); err != nil {
		return nil, err
	}

	if project.ClientID != "" {
		if client, err := s.users.GetByID(ctx, project.ClientID); err == nil && client.Email != "" {
			if err := s.email.Send(ctx, email.TemplateProjectHandoff, client.Email, email.Data{
				ProjectTitle: project.Title,
			}); err != nil {
				s.logger.Warn("handoff email failed",
					zap.String("project_id", projectID), zap.Error(err))
			}
		}
	}
	s.bus.HandoffUpdated(bus.Broadcast, map[string]any{"projectId": projectID, "finalized": true})
	return project, nil
}

// Package jobs holds the periodic batch work: grace-period enforcement and
// payment reminders. Each run is a stateless scan with no persisted
// checkpoint; re-running the same day is harmless for projects already
// transitioned.
package jobs

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/juicebox/backoffice/domain"
	"github.com/juicebox/backoffice/internal/services/email"
	"github.com/juicebox/backoffice/repository"
	"github.com/juicebox/backoffice/usecase/lifecycle"
)

// warningWindowDays is how far ahead of grace expiry the warning job speaks up.
const warningWindowDays = 30

type Service struct {
	projects  repository.ProjectRepository
	notifs    repository.NotificationRepository
	users     repository.UserRepository
	lifecycle *lifecycle.Service
	email     email.Sender
	logger    *zap.Logger
	now       func() time.Time
}

func New(
	projects repository.ProjectRepository,
	notifs repository.NotificationRepository,
	users repository.UserRepository,
	lifecycleSvc *lifecycle.Service,
	sender email.Sender,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		projects:  projects,
		notifs:    notifs,
		users:     users,
		lifecycle: lifecycleSvc,
		email:     sender,
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock overrides the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// RunGraceExpiry suspends every paused project whose grace window has fully
// elapsed. Returns the number of transitions performed. An error aborts the
// scan; projects already transitioned stay transitioned.
func (s *Service) RunGraceExpiry(ctx context.Context) (int, error) {
	projects, err := s.projects.ListPausedWithGrace(ctx)
	if err != nil {
		return 0, fmt.Errorf("list paused projects: %w", err)
	}

	count := 0
	for i := range projects {
		p := &projects[i]
		changed, err := s.lifecycle.SuspendIfGraceExpired(ctx, p)
		if err != nil {
			return count, fmt.Errorf("suspend project %s: %w", p.ID, err)
		}
		if !changed {
			continue
		}
		count++
		s.emailClient(ctx, p, email.TemplateProjectSuspended, email.Data{ProjectTitle: p.Title})
	}

	s.logger.Info("grace expiry scan finished",
		zap.Int("scanned", len(projects)), zap.Int("suspended", count))
	return count, nil
}

// RunGraceWarning notifies clients whose grace window ends within the warning
// horizon. It never changes status, and it renotifies on every run inside the
// window. Returns the number of warnings sent.
func (s *Service) RunGraceWarning(ctx context.Context) (int, error) {
	projects, err := s.projects.ListPausedWithGrace(ctx)
	if err != nil {
		return 0, fmt.Errorf("list paused projects: %w", err)
	}

	now := s.now()
	count := 0
	for i := range projects {
		p := &projects[i]
		end := p.GraceEndsAt()
		if end.IsZero() || !end.After(now) {
			continue
		}
		days := daysUntil(now, end)
		if days > warningWindowDays {
			continue
		}

		if p.ClientID == "" {
			continue
		}
		if err := s.notifs.Create(ctx, &domain.Notification{
			UserID:    p.ClientID,
			ProjectID: p.ID,
			Type:      domain.NotificationGracePeriodWarning,
			Title:     "Grace Period Ending Soon",
			Message: fmt.Sprintf("Your project \"%s\" will be suspended in %d day(s) unless payments resume.",
				p.Title, days),
		}); err != nil {
			return count, fmt.Errorf("warn project %s: %w", p.ID, err)
		}
		s.emailClient(ctx, p, email.TemplateGraceWarning, email.Data{
			ProjectTitle:  p.Title,
			DaysRemaining: days,
		})
		count++
		s.logger.Info("grace warning sent",
			zap.String("project_id", p.ID), zap.Int("days_remaining", days))
	}
	return count, nil
}

// RunPaymentReminder emails the client of every active installment project
// that still has a live subscription. Pure outreach, no state mutation.
func (s *Service) RunPaymentReminder(ctx context.Context) (int, error) {
	projects, err := s.projects.ListActiveInstallments(ctx)
	if err != nil {
		return 0, fmt.Errorf("list active installment projects: %w", err)
	}

	count := 0
	for i := range projects {
		p := &projects[i]
		if p.ClientID == "" {
			continue
		}
		s.emailClient(ctx, p, email.TemplatePaymentReminder, email.Data{
			ProjectTitle: p.Title,
			Amount:       p.MonthlyPayment,
		})
		count++
	}

	s.logger.Info("payment reminder scan finished",
		zap.Int("scanned", len(projects)), zap.Int("reminded", count))
	return count, nil
}

// daysUntil is the ceiling of the day difference between now and end.
func daysUntil(now, end time.Time) int {
	return int(math.Ceil(end.Sub(now).Hours() / 24))
}

func (s *Service) emailClient(ctx context.Context, p *domain.Project, template email.Template, data email.Data) {
	if p.ClientID == "" {
		return
	}
	client, err := s.users.GetByID(ctx, p.ClientID)
	if err != nil || client.Email == "" {
		return
	}
	if err := s.email.Send(ctx, template, client.Email, data); err != nil {
		s.logger.Warn("job email failed",
			zap.String("template", string(template)),
			zap.String("project_id", p.ID),
			zap.Error(err))
	}
}

// Package override implements the operator actions that bypass the automated
// triggers: forcing a status, adjusting the grace period, resetting the
// missed-payment counter and recording out-of-band payments. Every action
// attributes the acting operator in the audit trail, and anything that moves
// status or money routes through the same lifecycle and ledger paths the
// automated handlers use.
package override

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/juicebox/backoffice/domain"
	"github.com/juicebox/backoffice/internal/services/bus"
	"github.com/juicebox/backoffice/repository"
	"github.com/juicebox/backoffice/usecase/lifecycle"
)

type Service struct {
	projects  repository.ProjectRepository
	payments  repository.PaymentRepository
	activity  repository.ActivityRepository
	lifecycle *lifecycle.Service
	bus       *bus.Bus
	logger    *zap.Logger
	now       func() time.Time
}

func New(
	projects repository.ProjectRepository,
	payments repository.PaymentRepository,
	activity repository.ActivityRepository,
	lifecycleSvc *lifecycle.Service,
	eventBus *bus.Bus,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		projects:  projects,
		payments:  payments,
		activity:  activity,
		lifecycle: lifecycleSvc,
		bus:       eventBus,
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

// ForceStatus moves a project to any status in the fixed set. Guards that bind
// the automated triggers do not apply; the resume side effects (clearing the
// grace window, resetting missed payments) still do, because the move runs
// through the shared transition path.
func (s *Service) ForceStatus(ctx context.Context, projectID string, target domain.Status, actor string) (*domain.Project, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if err := s.lifecycle.Apply(ctx, project, lifecycle.Transition{
		Target: target,
		Actor:  actor,
		Reason: "manual_override",
	}); err != nil {
		return nil, err
	}
	return project, nil
}

// OverrideGracePeriod sets gracePeriodMonths to a non-negative value.
func (s *Service) OverrideGracePeriod(ctx context.Context, projectID string, months int, actor string) (*domain.Project, error) {
	if months < 0 {
		return nil, domain.NewError(domain.ErrCodeInvalid, "grace period months must be non-negative")
	}
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	previous := project.GracePeriodMonths
	if err := s.projects.SetGracePeriodMonths(ctx, projectID, months); err != nil {
		return nil, err
	}
	project.GracePeriodMonths = months

	if err := s.activity.Append(ctx, &domain.ActivityLog{
		ProjectID: projectID,
		Action:    domain.ActionGracePeriodOverride,
		Actor:     actor,
		Metadata: map[string]any{
			"previousMonths": previous,
			"newMonths":      months,
		},
	}); err != nil {
		return nil, err
	}

	s.logger.Info("grace period overridden",
		zap.String("project_id", projectID),
		zap.Int("previous_months", previous),
		zap.Int("new_months", months),
		zap.String("actor", actor))
	return project, nil
}

// ResetMissedPayments zeroes the missed-payment counter.
func (s *Service) ResetMissedPayments(ctx context.Context, projectID, actor string) (*domain.Project, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	previous := project.MissedPayments
	if err := s.projects.ResetMissedPayments(ctx, projectID); err != nil {
		return nil, err
	}
	project.MissedPayments = 0

	if err := s.activity.Append(ctx, &domain.ActivityLog{
		ProjectID: projectID,
		Action:    domain.ActionMissedPaymentsReset,
		Actor:     actor,
		Metadata:  map[string]any{"previousCount": previous},
	}); err != nil {
		return nil, err
	}
	return project, nil
}

// RecordManualPayment adds an out-of-band payment to the ledger. If the new
// total settles the project, it completes in the same call.
func (s *Service) RecordManualPayment(ctx context.Context, projectID string, amount int64, actor string) (*domain.Project, error) {
	if amount <= 0 {
		return nil, domain.NewError(domain.ErrCodeInvalid, "payment amount must be positive")
	}
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}

	if _, err := s.payments.Create(ctx, &domain.Payment{
		ProjectID: projectID,
		Amount:    amount,
		Status:    domain.PaymentPaid,
		PaidAt:    s.now(),
	}); err != nil {
		return nil, err
	}

	newTotal, err := s.projects.IncrementAmountPaid(ctx, projectID, amount)
	if err != nil {
		return nil, err
	}
	project.AmountPaid = newTotal

	if err := s.activity.Append(ctx, &domain.ActivityLog{
		ProjectID: projectID,
		Action:    domain.ActionManualPaymentRecorded,
		Actor:     actor,
		Metadata:  map[string]any{"amount": amount, "totalPaid": newTotal},
	}); err != nil {
		return nil, err
	}

	if _, err := s.lifecycle.CompleteIfFullyPaid(ctx, project, actor, "manual_payment"); err != nil {
		return nil, err
	}

	s.bus.PaymentReceived(bus.Broadcast, map[string]any{
		"projectId": projectID,
		"amount":    amount,
		"manual":    true,
	})
	s.logger.Info("manual payment recorded",
		zap.String("project_id", projectID),
		zap.Int64("amount", amount),
		zap.String("actor", actor))
	return project, nil
}

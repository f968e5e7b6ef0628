package lifecycle

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/juicebox/backoffice/domain"
	"github.com/juicebox/backoffice/internal/services/bus"
	"github.com/juicebox/backoffice/repository"
)

// Notice describes the client-facing notification created alongside a
// transition. A nil notice means the transition is silent for the client.
type Notice struct {
	Type    string
	Title   string
	Message string
}

// Transition describes one move through the project state machine. Guards are
// enforced by the named trigger methods; Apply itself only rejects automated
// transitions out of a terminal state.
type Transition struct {
	Target   domain.Status
	Actor    string
	Reason   string
	Metadata map[string]any
	Notice   *Notice
}

// Service is the single entry point for project status changes. Every
// transition, automated or manual, writes the status together with its
// side-effect fields, appends the audit entry, creates the client
// notification and emits bus events. No caller mutates status directly.
type Service struct {
	projects      repository.ProjectRepository
	activity      repository.ActivityRepository
	notifications repository.NotificationRepository
	bus           *bus.Bus
	logger        *zap.Logger
	now           func() time.Time
}

func New(
	projects repository.ProjectRepository,
	activity repository.ActivityRepository,
	notifications repository.NotificationRepository,
	eventBus *bus.Bus,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		projects:      projects,
		activity:      activity,
		notifications: notifications,
		bus:           eventBus,
		logger:        logger,
		now:           time.Now,
	}
}

// WithClock overrides the time source. Used by tests and the scheduler jobs.
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// Apply performs the transition on project, mutating it in place. A
// same-state transition is a no-op. Transitions out of a terminal state are
// rejected for the system actor; operators may force any state.
func (s *Service) Apply(ctx context.Context, project *domain.Project, tr Transition) error {
	if project == nil {
		return domain.ErrInvalidPayload
	}
	if !tr.Target.Valid() {
		return domain.NewError(domain.ErrCodeInvalid, "unknown project status "+string(tr.Target))
	}
	if project.Status == tr.Target {
		return nil
	}
	if project.Status.Terminal() && tr.Actor == domain.ActorSystem {
		return domain.NewError(domain.ErrCodeConflict, "project is handed off; automated transitions are closed")
	}

	from := project.Status
	prevGrace := project.GracePeriodStartedAt
	prevMissed := project.MissedPayments
	project.Status = tr.Target

	// Entering PAUSED opens the grace window; resuming to ACTIVE closes it
	// and wipes the missed-payment slate.
	switch {
	case tr.Target == domain.StatusPaused:
		started := s.now()
		project.GracePeriodStartedAt = &started
	case from == domain.StatusPaused && tr.Target == domain.StatusActive:
		project.GracePeriodStartedAt = nil
		project.MissedPayments = 0
	}

	if err := s.projects.ApplyLifecycle(ctx, project); err != nil {
		// Roll the in-memory copy back so callers do not act on a phantom state.
		project.Status = from
		project.GracePeriodStartedAt = prevGrace
		project.MissedPayments = prevMissed
		return err
	}

	meta := map[string]any{"newStatus": string(tr.Target)}
	if tr.Reason != "" {
		meta["reason"] = tr.Reason
	}
	for k, v := range tr.Metadata {
		meta[k] = v
	}

	if err := s.activity.Append(ctx, &domain.ActivityLog{
		ProjectID: project.ID,
		Action:    domain.ActionStatusChanged,
		Actor:     tr.Actor,
		Metadata:  meta,
	}); err != nil {
		return err
	}

	if tr.Notice != nil && project.ClientID != "" {
		notification := &domain.Notification{
			UserID:    project.ClientID,
			ProjectID: project.ID,
			Type:      tr.Notice.Type,
			Title:     tr.Notice.Title,
			Message:   tr.Notice.Message,
		}
		if err := s.notifications.Create(ctx, notification); err != nil {
			return err
		}
		s.bus.NotifyUser(project.ClientID, map[string]any{"projectId": project.ID})
	}

	data := map[string]any{"projectId": project.ID, "status": string(tr.Target)}
	if project.ClientID != "" {
		s.bus.StatusChanged(project.ClientID, data)
	}
	s.bus.StatusChanged(bus.Broadcast, data)

	s.logger.Info("project transitioned",
		zap.String("project_id", project.ID),
		zap.String("from", string(from)),
		zap.String("to", string(tr.Target)),
		zap.String("actor", tr.Actor),
		zap.String("reason", tr.Reason))
	return nil
}

// ActivateOnFirstPayment moves a project out of payment setup once the first
// charge lands. Projects in any other state are left unchanged.
func (s *Service) ActivateOnFirstPayment(ctx context.Context, project *domain.Project) (bool, error) {
	if project == nil || project.Status != domain.StatusPaymentSetup {
		return false, nil
	}
	err := s.Apply(ctx, project, Transition{
		Target: domain.StatusActive,
		Actor:  domain.ActorSystem,
		Reason: "first_payment",
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// SuspendIfGraceExpired transitions a paused project to SUSPENDED when its
// grace window has fully elapsed. Returns whether a transition happened.
func (s *Service) SuspendIfGraceExpired(ctx context.Context, project *domain.Project) (bool, error) {
	if project == nil || project.Status != domain.StatusPaused || !project.GraceExpired(s.now()) {
		return false, nil
	}
	err := s.Apply(ctx, project, Transition{
		Target: domain.StatusSuspended,
		Actor:  domain.ActorSystem,
		Reason: "grace_period_expired",
		Notice: &Notice{
			Type:    domain.NotificationStatusChange,
			Title:   "Project Suspended",
			Message: "Your project \"" + project.Title + "\" has been suspended due to the grace period expiring.",
		},
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// CompleteIfFullyPaid marks the project COMPLETED when the ledger shows the
// full amount has been received. Returns whether a transition happened.
func (s *Service) CompleteIfFullyPaid(ctx context.Context, project *domain.Project, actor, reason string) (bool, error) {
	if project == nil || !project.FullyPaid() || project.Status == domain.StatusCompleted {
		return false, nil
	}
	err := s.Apply(ctx, project, Transition{
		Target: domain.StatusCompleted,
		Actor:  actor,
		Reason: reason,
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

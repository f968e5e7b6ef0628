package lifecycle_test

import (
	"context"
	"testing"
	"time"

	"github.com/juicebox/backoffice/domain"
	"github.com/juicebox/backoffice/internal/services/bus"
	"github.com/juicebox/backoffice/repository/memory"
	"github.com/juicebox/backoffice/usecase/lifecycle"
)

type fixture struct {
	projects      *memory.ProjectRepo
	activity      *memory.ActivityRepo
	notifications *memory.NotificationRepo
	bus           *bus.Bus
	svc           *lifecycle.Service
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()
	f := &fixture{
		projects:      memory.NewProjectRepo(),
		activity:      memory.NewActivityRepo(),
		notifications: memory.NewNotificationRepo(),
		bus:           bus.New(10, nil),
	}
	t.Cleanup(f.bus.Close)
	f.svc = lifecycle.New(f.projects, f.activity, f.notifications, f.bus, nil).
		WithClock(func() time.Time { return now })
	return f
}

func seedProject(f *fixture, p domain.Project) *domain.Project {
	f.projects.Seed(&p)
	return &p
}

func TestApply(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	t.Run("entering paused opens the grace window", func(t *testing.T) {
		f := newFixture(t, now)
		p := seedProject(f, domain.Project{Status: domain.StatusActive, ClientID: "client-1"})

		err := f.svc.Apply(context.Background(), p, lifecycle.Transition{
			Target: domain.StatusPaused,
			Actor:  domain.ActorSystem,
			Reason: "payment_failed",
		})
		if err != nil {
			t.Fatalf("Apply: %v", err)
		}
		if p.Status != domain.StatusPaused {
			t.Fatalf("status = %s, want PAUSED", p.Status)
		}
		if p.GracePeriodStartedAt == nil || !p.GracePeriodStartedAt.Equal(now) {
			t.Fatalf("gracePeriodStartedAt = %v, want %v", p.GracePeriodStartedAt, now)
		}
		stored, _ := f.projects.GetByID(context.Background(), p.ID)
		if stored.Status != domain.StatusPaused || stored.GracePeriodStartedAt == nil {
			t.Fatalf("persisted project not paused with grace window: %+v", stored)
		}
	})

	t.Run("resuming to active clears grace and missed payments", func(t *testing.T) {
		f := newFixture(t, now)
		started := now.AddDate(0, -1, 0)
		p := seedProject(f, domain.Project{
			Status:               domain.StatusPaused,
			GracePeriodStartedAt: &started,
			GracePeriodMonths:    3,
			MissedPayments:       4,
		})

		err := f.svc.Apply(context.Background(), p, lifecycle.Transition{
			Target: domain.StatusActive,
			Actor:  "admin-1",
			Reason: "manual_resume",
		})
		if err != nil {
			t.Fatalf("Apply: %v", err)
		}
		if p.GracePeriodStartedAt != nil {
			t.Fatalf("gracePeriodStartedAt = %v, want nil", p.GracePeriodStartedAt)
		}
		if p.MissedPayments != 0 {
			t.Fatalf("missedPayments = %d, want 0", p.MissedPayments)
		}
		stored, _ := f.projects.GetByID(context.Background(), p.ID)
		if stored.GracePeriodStartedAt != nil || stored.MissedPayments != 0 {
			t.Fatalf("persisted state not reset: %+v", stored)
		}
	})

	t.Run("same-state transition is a no-op", func(t *testing.T) {
		f := newFixture(t, now)
		p := seedProject(f, domain.Project{Status: domain.StatusActive})

		if err := f.svc.Apply(context.Background(), p, lifecycle.Transition{
			Target: domain.StatusActive,
			Actor:  "admin-1",
		}); err != nil {
			t.Fatalf("Apply: %v", err)
		}
		if len(f.activity.Entries) != 0 {
			t.Fatalf("activity entries = %d, want 0", len(f.activity.Entries))
		}
	})

	t.Run("system actor cannot leave the terminal state", func(t *testing.T) {
		f := newFixture(t, now)
		p := seedProject(f, domain.Project{Status: domain.StatusHandedOff})

		err := f.svc.Apply(context.Background(), p, lifecycle.Transition{
			Target: domain.StatusActive,
			Actor:  domain.ActorSystem,
		})
		if err == nil {
			t.Fatal("expected error for automated transition out of HANDED_OFF")
		}
		if p.Status != domain.StatusHandedOff {
			t.Fatalf("status = %s, want HANDED_OFF", p.Status)
		}
	})

	t.Run("operator may force a transition out of the terminal state", func(t *testing.T) {
		f := newFixture(t, now)
		p := seedProject(f, domain.Project{Status: domain.StatusHandedOff})

		if err := f.svc.Apply(context.Background(), p, lifecycle.Transition{
			Target: domain.StatusActive,
			Actor:  "admin-1",
			Reason: "handoff reverted",
		}); err != nil {
			t.Fatalf("Apply: %v", err)
		}
		if p.Status != domain.StatusActive {
			t.Fatalf("status = %s, want ACTIVE", p.Status)
		}
	})

	t.Run("unknown target status is rejected", func(t *testing.T) {
		f := newFixture(t, now)
		p := seedProject(f, domain.Project{Status: domain.StatusActive})

		err := f.svc.Apply(context.Background(), p, lifecycle.Transition{
			Target: domain.Status("LAUNCHED"),
			Actor:  "admin-1",
		})
		if err == nil {
			t.Fatal("expected error for unknown status")
		}
	})

	t.Run("transition appends audit entry and emits bus events", func(t *testing.T) {
		f := newFixture(t, now)
		p := seedProject(f, domain.Project{Status: domain.StatusActive, ClientID: "client-1"})

		clientCh, cancel, err := f.bus.Subscribe("client-1")
		if err != nil {
			t.Fatalf("Subscribe: %v", err)
		}
		defer cancel()

		err = f.svc.Apply(context.Background(), p, lifecycle.Transition{
			Target:   domain.StatusCompleted,
			Actor:    "admin-1",
			Reason:   "delivered",
			Metadata: map[string]any{"milestone": "v1"},
		})
		if err != nil {
			t.Fatalf("Apply: %v", err)
		}

		if len(f.activity.Entries) != 1 {
			t.Fatalf("activity entries = %d, want 1", len(f.activity.Entries))
		}
		entry := f.activity.Entries[0]
		if entry.Action != domain.ActionStatusChanged {
			t.Fatalf("action = %s, want %s", entry.Action, domain.ActionStatusChanged)
		}
		if entry.Metadata["newStatus"] != string(domain.StatusCompleted) {
			t.Fatalf("metadata newStatus = %v", entry.Metadata["newStatus"])
		}
		if entry.Metadata["milestone"] != "v1" {
			t.Fatalf("metadata milestone = %v", entry.Metadata["milestone"])
		}

		select {
		case ev := <-clientCh:
			if ev.Type != bus.KindStatusChanged {
				t.Fatalf("event type = %s, want %s", ev.Type, bus.KindStatusChanged)
			}
		default:
			t.Fatal("expected a status_changed event for the client")
		}
	})

	t.Run("notice creates a client notification", func(t *testing.T) {
		f := newFixture(t, now)
		p := seedProject(f, domain.Project{Status: domain.StatusActive, ClientID: "client-1"})

		err := f.svc.Apply(context.Background(), p, lifecycle.Transition{
			Target: domain.StatusPaused,
			Actor:  domain.ActorSystem,
			Notice: &lifecycle.Notice{
				Type:    domain.NotificationPaymentMissed,
				Title:   "Payment Missed",
				Message: "A payment was missed.",
			},
		})
		if err != nil {
			t.Fatalf("Apply: %v", err)
		}
		page, _ := f.notifications.ListByUser(context.Background(), "client-1", 10, 0)
		if page.Total != 1 {
			t.Fatalf("notifications = %d, want 1", page.Total)
		}
		if page.Items[0].Type != domain.NotificationPaymentMissed {
			t.Fatalf("type = %s", page.Items[0].Type)
		}
	})

	t.Run("notice without client is skipped", func(t *testing.T) {
		f := newFixture(t, now)
		p := seedProject(f, domain.Project{Status: domain.StatusActive})

		err := f.svc.Apply(context.Background(), p, lifecycle.Transition{
			Target: domain.StatusPaused,
			Actor:  domain.ActorSystem,
			Notice: &lifecycle.Notice{Type: domain.NotificationPaymentMissed, Title: "t", Message: "m"},
		})
		if err != nil {
			t.Fatalf("Apply: %v", err)
		}
		if len(f.notifications.Items) != 0 {
			t.Fatalf("notifications = %d, want 0", len(f.notifications.Items))
		}
	})
}

func TestActivateOnFirstPayment(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	t.Run("activates a payment-setup project", func(t *testing.T) {
		f := newFixture(t, now)
		p := seedProject(f, domain.Project{Status: domain.StatusPaymentSetup})

		changed, err := f.svc.ActivateOnFirstPayment(context.Background(), p)
		if err != nil {
			t.Fatalf("ActivateOnFirstPayment: %v", err)
		}
		if !changed || p.Status != domain.StatusActive {
			t.Fatalf("changed=%v status=%s, want true/ACTIVE", changed, p.Status)
		}
	})

	t.Run("leaves other states untouched", func(t *testing.T) {
		f := newFixture(t, now)
		p := seedProject(f, domain.Project{Status: domain.StatusActive})

		changed, err := f.svc.ActivateOnFirstPayment(context.Background(), p)
		if err != nil {
			t.Fatalf("ActivateOnFirstPayment: %v", err)
		}
		if changed {
			t.Fatal("expected no transition for an active project")
		}
	})
}

func TestSuspendIfGraceExpired(t *testing.T) {
	now := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)

	t.Run("suspends once the calendar window elapses", func(t *testing.T) {
		f := newFixture(t, now)
		started := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
		p := seedProject(f, domain.Project{
			Status:               domain.StatusPaused,
			GracePeriodStartedAt: &started,
			GracePeriodMonths:    2,
			ClientID:             "client-1",
		})

		changed, err := f.svc.SuspendIfGraceExpired(context.Background(), p)
		if err != nil {
			t.Fatalf("SuspendIfGraceExpired: %v", err)
		}
		if !changed || p.Status != domain.StatusSuspended {
			t.Fatalf("changed=%v status=%s, want true/SUSPENDED", changed, p.Status)
		}
		page, _ := f.notifications.ListByUser(context.Background(), "client-1", 10, 0)
		if page.Total != 1 || page.Items[0].Type != domain.NotificationStatusChange {
			t.Fatalf("expected one STATUS_CHANGE notification, got %+v", page.Items)
		}
	})

	t.Run("does nothing while the window is still open", func(t *testing.T) {
		f := newFixture(t, now)
		started := time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC)
		p := seedProject(f, domain.Project{
			Status:               domain.StatusPaused,
			GracePeriodStartedAt: &started,
			GracePeriodMonths:    2,
		})

		changed, err := f.svc.SuspendIfGraceExpired(context.Background(), p)
		if err != nil {
			t.Fatalf("SuspendIfGraceExpired: %v", err)
		}
		if changed || p.Status != domain.StatusPaused {
			t.Fatalf("changed=%v status=%s, want false/PAUSED", changed, p.Status)
		}
	})
}

func TestCompleteIfFullyPaid(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	t.Run("completes when ledger reaches the total", func(t *testing.T) {
		f := newFixture(t, now)
		p := seedProject(f, domain.Project{
			Status:      domain.StatusActive,
			TotalAmount: 500_000,
			AmountPaid:  500_000,
		})

		changed, err := f.svc.CompleteIfFullyPaid(context.Background(), p, domain.ActorSystem, "payoff")
		if err != nil {
			t.Fatalf("CompleteIfFullyPaid: %v", err)
		}
		if !changed || p.Status != domain.StatusCompleted {
			t.Fatalf("changed=%v status=%s, want true/COMPLETED", changed, p.Status)
		}
	})

	t.Run("ignores a partially paid project", func(t *testing.T) {
		f := newFixture(t, now)
		p := seedProject(f, domain.Project{
			Status:      domain.StatusActive,
			TotalAmount: 500_000,
			AmountPaid:  499_999,
		})

		changed, err := f.svc.CompleteIfFullyPaid(context.Background(), p, domain.ActorSystem, "payoff")
		if err != nil {
			t.Fatalf("CompleteIfFullyPaid: %v", err)
		}
		if changed {
			t.Fatal("expected no transition below the total")
		}
	})
}

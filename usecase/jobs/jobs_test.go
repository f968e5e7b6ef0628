package jobs_test

import (
	"context"
	"testing"
	"time"

	"github.com/juicebox/backoffice/domain"
	"github.com/juicebox/backoffice/internal/services/bus"
	"github.com/juicebox/backoffice/internal/services/email"
	"github.com/juicebox/backoffice/repository/memory"
	"github.com/juicebox/backoffice/usecase/jobs"
	"github.com/juicebox/backoffice/usecase/lifecycle"
)

type fixture struct {
	projects *memory.ProjectRepo
	notifs   *memory.NotificationRepo
	users    *memory.UserRepo
	svc      *jobs.Service
}

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()
	f := &fixture{
		projects: memory.NewProjectRepo(),
		notifs:   memory.NewNotificationRepo(),
		users:    memory.NewUserRepo(),
	}
	eventBus := bus.New(10, nil)
	t.Cleanup(eventBus.Close)
	clock := func() time.Time { return now }
	activity := memory.NewActivityRepo()
	lifecycleSvc := lifecycle.New(f.projects, activity, f.notifs, eventBus, nil).WithClock(clock)
	f.svc = jobs.New(f.projects, f.notifs, f.users, lifecycleSvc, email.NewLogSender(nil), nil).
		WithClock(clock)
	return f
}

func pausedProject(started time.Time, months int, clientID string) domain.Project {
	return domain.Project{
		Status:               domain.StatusPaused,
		GracePeriodStartedAt: &started,
		GracePeriodMonths:    months,
		ClientID:             clientID,
	}
}

func TestRunGraceExpiry(t *testing.T) {
	now := time.Date(2026, 4, 1, 6, 0, 0, 0, time.UTC)

	t.Run("suspends only expired projects", func(t *testing.T) {
		f := newFixture(t, now)
		expired := pausedProject(now.AddDate(0, -3, 0), 2, "client-1")
		open := pausedProject(now.AddDate(0, -1, 0), 3, "client-2")
		f.projects.Seed(&expired)
		f.projects.Seed(&open)

		count, err := f.svc.RunGraceExpiry(context.Background())
		if err != nil {
			t.Fatalf("RunGraceExpiry: %v", err)
		}
		if count != 1 {
			t.Fatalf("count = %d, want 1", count)
		}
		storedExpired, _ := f.projects.GetByID(context.Background(), expired.ID)
		if storedExpired.Status != domain.StatusSuspended {
			t.Fatalf("expired project status = %s, want SUSPENDED", storedExpired.Status)
		}
		storedOpen, _ := f.projects.GetByID(context.Background(), open.ID)
		if storedOpen.Status != domain.StatusPaused {
			t.Fatalf("open project status = %s, want PAUSED", storedOpen.Status)
		}
	})

	t.Run("rerunning the same day is a no-op", func(t *testing.T) {
		f := newFixture(t, now)
		expired := pausedProject(now.AddDate(0, -3, 0), 2, "")
		f.projects.Seed(&expired)

		if _, err := f.svc.RunGraceExpiry(context.Background()); err != nil {
			t.Fatalf("first run: %v", err)
		}
		count, err := f.svc.RunGraceExpiry(context.Background())
		if err != nil {
			t.Fatalf("second run: %v", err)
		}
		if count != 0 {
			t.Fatalf("second run count = %d, want 0", count)
		}
	})

	t.Run("expiry boundary uses calendar months", func(t *testing.T) {
		// Grace started Jan 31, two months: AddDate lands on Mar 31.
		boundary := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
		f := newFixture(t, boundary)
		p := pausedProject(time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC), 2, "")
		f.projects.Seed(&p)

		count, err := f.svc.RunGraceExpiry(context.Background())
		if err != nil {
			t.Fatalf("RunGraceExpiry: %v", err)
		}
		if count != 1 {
			t.Fatalf("count = %d, want 1 exactly at the boundary", count)
		}
	})
}

func TestRunGraceWarning(t *testing.T) {
	now := time.Date(2026, 4, 1, 6, 0, 0, 0, time.UTC)

	t.Run("warns inside the 30 day window without changing status", func(t *testing.T) {
		f := newFixture(t, now)
		// Ends Apr 15: 14 days out.
		p := pausedProject(time.Date(2026, 1, 15, 6, 0, 0, 0, time.UTC), 3, "client-1")
		f.projects.Seed(&p)

		count, err := f.svc.RunGraceWarning(context.Background())
		if err != nil {
			t.Fatalf("RunGraceWarning: %v", err)
		}
		if count != 1 {
			t.Fatalf("count = %d, want 1", count)
		}
		stored, _ := f.projects.GetByID(context.Background(), p.ID)
		if stored.Status != domain.StatusPaused {
			t.Fatalf("status = %s, want PAUSED unchanged", stored.Status)
		}
		page, _ := f.notifs.ListByUser(context.Background(), "client-1", 10, 0)
		if page.Total != 1 || page.Items[0].Type != domain.NotificationGracePeriodWarning {
			t.Fatalf("expected one GRACE_PERIOD_WARNING notification, got %+v", page.Items)
		}
	})

	t.Run("skips windows ending beyond the horizon", func(t *testing.T) {
		f := newFixture(t, now)
		// Ends Jul 1: far outside 30 days.
		p := pausedProject(time.Date(2026, 4, 1, 6, 0, 0, 0, time.UTC), 3, "client-1")
		f.projects.Seed(&p)

		count, err := f.svc.RunGraceWarning(context.Background())
		if err != nil {
			t.Fatalf("RunGraceWarning: %v", err)
		}
		if count != 0 {
			t.Fatalf("count = %d, want 0", count)
		}
	})

	t.Run("skips already expired windows", func(t *testing.T) {
		f := newFixture(t, now)
		p := pausedProject(now.AddDate(0, -3, 0), 2, "client-1")
		f.projects.Seed(&p)

		count, err := f.svc.RunGraceWarning(context.Background())
		if err != nil {
			t.Fatalf("RunGraceWarning: %v", err)
		}
		if count != 0 {
			t.Fatalf("count = %d, want 0 for an already expired window", count)
		}
	})

	t.Run("counts only projects that were actually warned", func(t *testing.T) {
		f := newFixture(t, now)
		// Both end Apr 15, but only one has a client to warn.
		clientless := pausedProject(time.Date(2026, 1, 15, 6, 0, 0, 0, time.UTC), 3, "")
		cliented := pausedProject(time.Date(2026, 1, 15, 6, 0, 0, 0, time.UTC), 3, "client-1")
		f.projects.Seed(&clientless)
		f.projects.Seed(&cliented)

		count, err := f.svc.RunGraceWarning(context.Background())
		if err != nil {
			t.Fatalf("RunGraceWarning: %v", err)
		}
		if count != 1 {
			t.Fatalf("count = %d, want 1 for the single warned project", count)
		}
		page, _ := f.notifs.ListByUser(context.Background(), "client-1", 10, 0)
		if page.Total != 1 {
			t.Fatalf("notifications = %d, want 1", page.Total)
		}
	})

	t.Run("rerunning inside the window renotifies", func(t *testing.T) {
		f := newFixture(t, now)
		p := pausedProject(time.Date(2026, 1, 15, 6, 0, 0, 0, time.UTC), 3, "client-1")
		f.projects.Seed(&p)

		if _, err := f.svc.RunGraceWarning(context.Background()); err != nil {
			t.Fatalf("first run: %v", err)
		}
		if _, err := f.svc.RunGraceWarning(context.Background()); err != nil {
			t.Fatalf("second run: %v", err)
		}
		page, _ := f.notifs.ListByUser(context.Background(), "client-1", 10, 0)
		if page.Total != 2 {
			t.Fatalf("notifications = %d, want 2 after two runs", page.Total)
		}
	})
}

func TestRunPaymentReminder(t *testing.T) {
	now := time.Date(2026, 4, 6, 9, 0, 0, 0, time.UTC)

	t.Run("reminds active installment projects with a client", func(t *testing.T) {
		f := newFixture(t, now)
		f.users.Seed(&domain.User{ID: "client-1", Email: "client@example.com", Role: domain.RoleClient})
		eligible := domain.Project{
			Status:                 domain.StatusActive,
			DealType:               domain.DealInstallment,
			ProviderSubscriptionID: "sub_1",
			ClientID:               "client-1",
			MonthlyPayment:         25_000,
		}
		noSub := domain.Project{
			Status:   domain.StatusActive,
			DealType: domain.DealInstallment,
			ClientID: "client-1",
		}
		equity := domain.Project{
			Status:                 domain.StatusActive,
			DealType:               domain.DealEquity,
			ProviderSubscriptionID: "sub_2",
			ClientID:               "client-1",
		}
		f.projects.Seed(&eligible)
		f.projects.Seed(&noSub)
		f.projects.Seed(&equity)

		count, err := f.svc.RunPaymentReminder(context.Background())
		if err != nil {
			t.Fatalf("RunPaymentReminder: %v", err)
		}
		if count != 1 {
			t.Fatalf("count = %d, want 1", count)
		}
	})
}

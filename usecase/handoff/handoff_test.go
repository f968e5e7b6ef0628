package handoff_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/juicebox/backoffice/domain"
	"github.com/juicebox/backoffice/internal/services/bus"
	"github.com/juicebox/backoffice/internal/services/email"
	"github.com/juicebox/backoffice/repository/memory"
	"github.com/juicebox/backoffice/usecase/handoff"
	"github.com/juicebox/backoffice/usecase/lifecycle"
)

type fixture struct {
	handoff  *memory.HandoffRepo
	projects *memory.ProjectRepo
	activity *memory.ActivityRepo
	notifs   *memory.NotificationRepo
	users    *memory.UserRepo
	svc      *handoff.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		handoff:  memory.NewHandoffRepo(),
		projects: memory.NewProjectRepo(),
		activity: memory.NewActivityRepo(),
		notifs:   memory.NewNotificationRepo(),
		users:    memory.NewUserRepo(),
	}
	eventBus := bus.New(10, nil)
	t.Cleanup(eventBus.Close)
	now := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	lifecycleSvc := lifecycle.New(f.projects, f.activity, f.notifs, eventBus, nil).
		WithClock(func() time.Time { return now })
	f.svc = handoff.New(f.handoff, f.projects, f.activity, f.notifs, f.users,
		lifecycleSvc, eventBus, email.NewLogSender(nil), nil)
	return f
}

func completedProject(f *fixture) *domain.Project {
	p := domain.Project{Status: domain.StatusCompleted, Title: "Site", ClientID: "client-1"}
	f.projects.Seed(&p)
	return &p
}

func completeAll(t *testing.T, f *fixture, projectID string) {
	t.Helper()
	items, err := f.handoff.ListByProject(context.Background(), projectID)
	if err != nil {
		t.Fatal(err)
	}
	for _, item := range items {
		if _, _, err := f.svc.ToggleItem(context.Background(), item.ID, true); err != nil {
			t.Fatalf("ToggleItem: %v", err)
		}
	}
}

func TestGenerateChecklist(t *testing.T) {
	t.Run("creates the default items in order", func(t *testing.T) {
		f := newFixture(t)
		p := completedProject(f)

		items, err := f.svc.GenerateChecklist(context.Background(), p.ID, "admin-1")
		if err != nil {
			t.Fatalf("GenerateChecklist: %v", err)
		}
		if len(items) != len(domain.DefaultHandoffItems) {
			t.Fatalf("items = %d, want %d", len(items), len(domain.DefaultHandoffItems))
		}
		stored, _ := f.handoff.ListByProject(context.Background(), p.ID)
		for i, item := range stored {
			if item.Label != domain.DefaultHandoffItems[i] {
				t.Fatalf("item %d = %q, want %q", i, item.Label, domain.DefaultHandoffItems[i])
			}
			if item.Completed {
				t.Fatalf("item %d starts completed", i)
			}
		}
	})

	t.Run("second generation is a conflict", func(t *testing.T) {
		f := newFixture(t)
		p := completedProject(f)

		if _, err := f.svc.GenerateChecklist(context.Background(), p.ID, "admin-1"); err != nil {
			t.Fatalf("first generation: %v", err)
		}
		_, err := f.svc.GenerateChecklist(context.Background(), p.ID, "admin-1")
		if !errors.Is(err, domain.ErrChecklistExists) {
			t.Fatalf("err = %v, want ErrChecklistExists", err)
		}
	})
}

func TestToggleItem(t *testing.T) {
	f := newFixture(t)
	p := completedProject(f)
	items, _ := f.svc.GenerateChecklist(context.Background(), p.ID, "admin-1")

	item, remaining, err := f.svc.ToggleItem(context.Background(), items[0].ID, true)
	if err != nil {
		t.Fatalf("ToggleItem: %v", err)
	}
	if !item.Completed || item.CompletedAt == nil {
		t.Fatalf("item = %+v, want completed with timestamp", item)
	}
	if remaining != len(items)-1 {
		t.Fatalf("remaining = %d, want %d", remaining, len(items)-1)
	}

	item, remaining, err = f.svc.ToggleItem(context.Background(), items[0].ID, false)
	if err != nil {
		t.Fatalf("ToggleItem: %v", err)
	}
	if item.Completed || item.CompletedAt != nil {
		t.Fatalf("item = %+v, want reopened with cleared timestamp", item)
	}
	if remaining != len(items) {
		t.Fatalf("remaining = %d, want %d", remaining, len(items))
	}
}

func TestFinalize(t *testing.T) {
	t.Run("all items complete hands the project off", func(t *testing.T) {
		f := newFixture(t)
		f.users.Seed(&domain.User{ID: "client-1", Email: "client@example.com", Role: domain.RoleClient})
		p := completedProject(f)
		if _, err := f.svc.GenerateChecklist(context.Background(), p.ID, "admin-1"); err != nil {
			t.Fatal(err)
		}
		completeAll(t, f, p.ID)

		updated, err := f.svc.Finalize(context.Background(), p.ID, "admin-1")
		if err != nil {
			t.Fatalf("Finalize: %v", err)
		}
		if updated.Status != domain.StatusHandedOff {
			t.Fatalf("status = %s, want HANDED_OFF", updated.Status)
		}
		page, _ := f.notifs.ListByUser(context.Background(), "client-1", 10, 0)
		if page.Total != 1 || page.Items[0].Type != domain.NotificationHandoffReady {
			t.Fatalf("expected one HANDOFF_READY notification, got %+v", page.Items)
		}
	})

	t.Run("open items block finalization", func(t *testing.T) {
		f := newFixture(t)
		p := completedProject(f)
		items, _ := f.svc.GenerateChecklist(context.Background(), p.ID, "admin-1")
		for _, item := range items[:len(items)-1] {
			if _, _, err := f.svc.ToggleItem(context.Background(), item.ID, true); err != nil {
				t.Fatal(err)
			}
		}

		_, err := f.svc.Finalize(context.Background(), p.ID, "admin-1")
		if !errors.Is(err, domain.ErrChecklistIncomplete) {
			t.Fatalf("err = %v, want ErrChecklistIncomplete", err)
		}
		stored, _ := f.projects.GetByID(context.Background(), p.ID)
		if stored.Status != domain.StatusCompleted {
			t.Fatalf("status = %s, want COMPLETED unchanged", stored.Status)
		}
	})

	t.Run("missing checklist blocks finalization", func(t *testing.T) {
		f := newFixture(t)
		p := completedProject(f)

		_, err := f.svc.Finalize(context.Background(), p.ID, "admin-1")
		if !errors.Is(err, domain.ErrChecklistIncomplete) {
			t.Fatalf("err = %v, want ErrChecklistIncomplete", err)
		}
	})

	t.Run("repeat finalization reports already handed off", func(t *testing.T) {
		f := newFixture(t)
		f.users.Seed(&domain.User{ID: "client-1", Email: "client@example.com", Role: domain.RoleClient})
		p := completedProject(f)
		if _, err := f.svc.GenerateChecklist(context.Background(), p.ID, "admin-1"); err != nil {
			t.Fatal(err)
		}
		completeAll(t, f, p.ID)
		if _, err := f.svc.Finalize(context.Background(), p.ID, "admin-1"); err != nil {
			t.Fatal(err)
		}

		_, err := f.svc.Finalize(context.Background(), p.ID, "admin-1")
		if !errors.Is(err, domain.ErrAlreadyHandedOff) {
			t.Fatalf("err = %v, want ErrAlreadyHandedOff", err)
		}
	})

	t.Run("non-completed project cannot be handed off", func(t *testing.T) {
		f := newFixture(t)
		p := domain.Project{Status: domain.StatusActive, Title: "Site"}
		f.projects.Seed(&p)
		if _, err := f.svc.GenerateChecklist(context.Background(), p.ID, "admin-1"); err != nil {
			t.Fatal(err)
		}
		completeAll(t, f, p.ID)

		if _, err := f.svc.Finalize(context.Background(), p.ID, "admin-1"); err == nil {
			t.Fatal("expected error for non-completed project")
		}
	})
}

package services_test

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/juicebox/backoffice/internal/infrastructure/deadletter"
	"github.com/juicebox/backoffice/internal/services"
	"github.com/juicebox/backoffice/internal/services/bus"
	"github.com/juicebox/backoffice/internal/services/email"
	"github.com/juicebox/backoffice/repository/memory"
	lifecycleUC "github.com/juicebox/backoffice/usecase/lifecycle"
	"github.com/juicebox/backoffice/usecase/reconciler"
)

type fakeHealth struct{ online bool }

func (f fakeHealth) IsOnline() bool { return f.online }

type noopCanceler struct{}

func (noopCanceler) CancelSubscription(context.Context, string) error { return nil }

type redeliveryFixture struct {
	store      *deadletter.Store
	processor  *services.RedeliveryProcessor
	reconciler *reconciler.Service
}

func newRedeliveryFixture(t *testing.T, online bool, maxRetries int) *redeliveryFixture {
	t.Helper()

	store, err := deadletter.Open(filepath.Join(t.TempDir(), "journal.db"), "events")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	eventBus := bus.New(5, nil)
	t.Cleanup(eventBus.Close)

	projects := memory.NewProjectRepo()
	payments := memory.NewPaymentRepo()
	activity := memory.NewActivityRepo()
	notifs := memory.NewNotificationRepo()
	users := memory.NewUserRepo()

	lifecycleSvc := lifecycleUC.New(projects, activity, notifs, eventBus, nil)
	reconcilerSvc := reconciler.New(projects, payments, activity, notifs, users,
		lifecycleSvc, eventBus, email.NewLogSender(nil), noopCanceler{}, nil)

	processor := services.NewRedeliveryProcessor(store, fakeHealth{online: online}, reconcilerSvc, nil,
		services.RedeliveryConfig{Interval: time.Minute, BatchSize: 10, MaxRetries: maxRetries})

	return &redeliveryFixture{store: store, processor: processor, reconciler: reconcilerSvc}
}

func journalEvent(t *testing.T, store *deadletter.Store, payload string, retries int) {
	t.Helper()
	err := store.Save(deadletter.Item{
		EventID:   "evt_1",
		EventType: reconciler.EventInvoicePaid,
		Payload:   json.RawMessage(payload),
		Retries:   retries,
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
}

func TestDrain(t *testing.T) {
	t.Run("removes events that replay cleanly", func(t *testing.T) {
		f := newRedeliveryFixture(t, true, 3)
		// An invoice for an unknown subscription reconciles to a no-op.
		journalEvent(t, f.store, `{"id":"evt_1","type":"invoice.paid","data":{"id":"in_1","subscription":""}}`, 0)

		if err := f.processor.Drain(context.Background()); err != nil {
			t.Fatalf("Drain: %v", err)
		}
		if size, _ := f.store.Size(); size != 0 {
			t.Fatalf("journal size = %d, want 0", size)
		}
	})

	t.Run("requeues failures with a bumped retry count", func(t *testing.T) {
		f := newRedeliveryFixture(t, true, 3)
		// Data is a string, so decoding the invoice fails every time.
		journalEvent(t, f.store, `{"id":"evt_1","type":"invoice.paid","data":"boom"}`, 0)

		if err := f.processor.Drain(context.Background()); err != nil {
			t.Fatalf("Drain: %v", err)
		}
		items, _ := f.store.List(10)
		if len(items) != 1 {
			t.Fatalf("journal size = %d, want the event kept", len(items))
		}
		if items[0].Retries != 1 {
			t.Fatalf("retries = %d, want 1", items[0].Retries)
		}
		if items[0].Error == "" {
			t.Fatal("expected the failure reason to be recorded")
		}
	})

	t.Run("leaves exhausted events for the operator", func(t *testing.T) {
		f := newRedeliveryFixture(t, true, 2)
		journalEvent(t, f.store, `{"id":"evt_1","type":"invoice.paid","data":"boom"}`, 2)

		if err := f.processor.Drain(context.Background()); err != nil {
			t.Fatalf("Drain: %v", err)
		}
		items, _ := f.store.List(10)
		if len(items) != 1 || items[0].Retries != 2 {
			t.Fatalf("exhausted event should stay untouched, got %+v", items)
		}
	})

	t.Run("skips the journal while stores are offline", func(t *testing.T) {
		f := newRedeliveryFixture(t, false, 3)
		journalEvent(t, f.store, `{"id":"evt_1","type":"invoice.paid","data":"boom"}`, 0)

		if err := f.processor.Drain(context.Background()); err != nil {
			t.Fatalf("Drain: %v", err)
		}
		items, _ := f.store.List(10)
		if len(items) != 1 || items[0].Retries != 0 {
			t.Fatalf("offline drain should not touch the journal, got %+v", items)
		}
	})
}

func TestReplayDropsUndecodablePayloads(t *testing.T) {
	f := newRedeliveryFixture(t, true, 3)
	journalEvent(t, f.store, `"garbage"`, 0)

	items, _ := f.store.List(10)
	if err := f.processor.Replay(context.Background(), items[0]); err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if size, _ := f.store.Size(); size != 0 {
		t.Fatalf("journal size = %d, want undecodable payload dropped", size)
	}
}

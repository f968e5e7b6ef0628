package bus

import (
	"testing"
	"time"
)

func receive(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev, ok := <-ch:
		if !ok {
			t.Fatal("channel closed before event arrived")
		}
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
	return Event{}
}

func TestBus_PerUserAddressing(t *testing.T) {
	b := New(10, nil)
	defer b.Close()

	clientCh, cancelClient, err := b.Subscribe("client-1")
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	defer cancelClient()

	otherCh, cancelOther, err := b.Subscribe("client-2")
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	defer cancelOther()

	b.NotifyUser("client-1", map[string]any{"projectId": "p1"})

	ev := receive(t, clientCh)
	if ev.Type != KindNotification {
		t.Errorf("expected notification event, got %s", ev.Type)
	}
	if ev.Data["projectId"] != "p1" {
		t.Errorf("unexpected event data: %v", ev.Data)
	}

	select {
	case ev := <-otherCh:
		t.Errorf("event addressed to client-1 leaked to client-2: %v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBus_BroadcastReachesAllSubscribers(t *testing.T) {
	b := New(10, nil)
	defer b.Close()

	var channels []<-chan Event
	for _, id := range []string{"admin-1", "admin-2", "client-1"} {
		ch, cancel, err := b.Subscribe(id)
		if err != nil {
			t.Fatalf("subscribe %s failed: %v", id, err)
		}
		defer cancel()
		channels = append(channels, ch)
	}

	b.StatusChanged(Broadcast, map[string]any{"status": "COMPLETED"})

	for i, ch := range channels {
		ev := receive(t, ch)
		if ev.Type != KindStatusChanged {
			t.Errorf("subscriber %d: expected status_changed, got %s", i, ev.Type)
		}
	}
}

func TestBus_SubscriberCeiling(t *testing.T) {
	b := New(2, nil)
	defer b.Close()

	for i := 0; i < 2; i++ {
		if _, _, err := b.Subscribe("user"); err != nil {
			t.Fatalf("subscribe %d failed: %v", i, err)
		}
	}

	if _, _, err := b.Subscribe("user"); err == nil {
		t.Fatal("expected subscribe beyond the ceiling to fail")
	}
}

func TestBus_CancelReleasesSlot(t *testing.T) {
	b := New(1, nil)
	defer b.Close()

	_, cancel, err := b.Subscribe("user")
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	cancel()
	cancel() // second cancel is a no-op

	if got := b.SubscriberCount(); got != 0 {
		t.Fatalf("expected 0 subscribers after cancel, got %d", got)
	}

	if _, _, err := b.Subscribe("user"); err != nil {
		t.Fatalf("subscribe after cancel failed: %v", err)
	}
}

func TestBus_PublishDoesNotBlockOnSlowSubscriber(t *testing.T) {
	b := New(10, nil)
	defer b.Close()

	_, cancel, err := b.Subscribe("slow")
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			b.NotifyUser("slow", nil)
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a subscriber that never drains")
	}
}

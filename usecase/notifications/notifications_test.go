package notifications_test

import (
	"context"
	"strconv"
	"testing"

	"github.com/juicebox/backoffice/domain"
	"github.com/juicebox/backoffice/repository/memory"
	"github.com/juicebox/backoffice/usecase/notifications"
)

func seedFeed(t *testing.T, repo *memory.NotificationRepo, userID string, n int) []string {
	t.Helper()
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		notif := &domain.Notification{
			UserID:  userID,
			Type:    domain.NotificationStatusChange,
			Title:   "Update " + strconv.Itoa(i),
			Message: "msg",
		}
		if err := repo.Create(context.Background(), notif); err != nil {
			t.Fatal(err)
		}
		ids = append(ids, notif.ID)
	}
	return ids
}

func TestList(t *testing.T) {
	t.Run("pages newest first with unread count", func(t *testing.T) {
		repo := memory.NewNotificationRepo()
		svc := notifications.New(repo)
		seedFeed(t, repo, "user-1", 25)
		seedFeed(t, repo, "user-2", 3)

		page, err := svc.List(context.Background(), "user-1", 1, 20)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if page.Total != 25 || page.UnreadCount != 25 {
			t.Fatalf("total=%d unread=%d, want 25/25", page.Total, page.UnreadCount)
		}
		if len(page.Items) != 20 {
			t.Fatalf("items = %d, want 20", len(page.Items))
		}
		if page.Items[0].Title != "Update 24" {
			t.Fatalf("first item = %q, want the newest", page.Items[0].Title)
		}

		second, err := svc.List(context.Background(), "user-1", 2, 20)
		if err != nil {
			t.Fatalf("List page 2: %v", err)
		}
		if len(second.Items) != 5 {
			t.Fatalf("page 2 items = %d, want 5", len(second.Items))
		}
	})

	t.Run("clamps page and limit", func(t *testing.T) {
		repo := memory.NewNotificationRepo()
		svc := notifications.New(repo)
		seedFeed(t, repo, "user-1", 60)

		page, err := svc.List(context.Background(), "user-1", 0, 500)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(page.Items) != 50 {
			t.Fatalf("items = %d, want the 50 ceiling", len(page.Items))
		}
	})

	t.Run("requires a user", func(t *testing.T) {
		svc := notifications.New(memory.NewNotificationRepo())
		if _, err := svc.List(context.Background(), "", 1, 20); err == nil {
			t.Fatal("expected error for missing user")
		}
	})
}

func TestMarkRead(t *testing.T) {
	t.Run("marks only the owner's rows", func(t *testing.T) {
		repo := memory.NewNotificationRepo()
		svc := notifications.New(repo)
		mine := seedFeed(t, repo, "user-1", 3)
		theirs := seedFeed(t, repo, "user-2", 1)

		count, err := svc.MarkRead(context.Background(), "user-1", []string{mine[0], mine[1], theirs[0]})
		if err != nil {
			t.Fatalf("MarkRead: %v", err)
		}
		if count != 2 {
			t.Fatalf("count = %d, want 2", count)
		}
		otherPage, _ := svc.List(context.Background(), "user-2", 1, 10)
		if otherPage.UnreadCount != 1 {
			t.Fatalf("user-2 unread = %d, want untouched 1", otherPage.UnreadCount)
		}
	})

	t.Run("marking twice counts once", func(t *testing.T) {
		repo := memory.NewNotificationRepo()
		svc := notifications.New(repo)
		ids := seedFeed(t, repo, "user-1", 1)

		if _, err := svc.MarkRead(context.Background(), "user-1", ids); err != nil {
			t.Fatal(err)
		}
		count, err := svc.MarkRead(context.Background(), "user-1", ids)
		if err != nil {
			t.Fatalf("MarkRead: %v", err)
		}
		if count != 0 {
			t.Fatalf("count = %d, want 0 on repeat", count)
		}
	})

	t.Run("empty id list is rejected", func(t *testing.T) {
		svc := notifications.New(memory.NewNotificationRepo())
		if _, err := svc.MarkRead(context.Background(), "user-1", nil); err == nil {
			t.Fatal("expected error for empty ids")
		}
	})
}

func TestMarkAllRead(t *testing.T) {
	repo := memory.NewNotificationRepo()
	svc := notifications.New(repo)
	seedFeed(t, repo, "user-1", 4)

	count, err := svc.MarkAllRead(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("MarkAllRead: %v", err)
	}
	if count != 4 {
		t.Fatalf("count = %d, want 4", count)
	}
	page, _ := svc.List(context.Background(), "user-1", 1, 10)
	if page.UnreadCount != 0 {
		t.Fatalf("unread = %d, want 0", page.UnreadCount)
	}
}

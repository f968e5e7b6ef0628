package project_test

import (
	"context"
	"testing"

	"github.com/juicebox/backoffice/domain"
	"github.com/juicebox/backoffice/repository"
	"github.com/juicebox/backoffice/repository/memory"
	"github.com/juicebox/backoffice/usecase/project"
)

func newService(t *testing.T) (*project.Service, *memory.ProjectRepo, *memory.ActivityRepo) {
	t.Helper()
	projects := memory.NewProjectRepo()
	activity := memory.NewActivityRepo()
	svc := project.New(projects, memory.NewPaymentRepo(), activity, nil)
	return svc, projects, activity
}

func TestSlugify(t *testing.T) {
	cases := []struct {
		title string
		want  string
	}{
		{"Acme Website", "acme-website"},
		{"  Lots   of---Spaces  ", "lots-of-spaces"},
		{"Version 2.0 (Final)", "version-2-0-final"},
		{"ALL CAPS", "all-caps"},
		{"™☃", "project"},
	}
	for _, tc := range cases {
		if got := project.Slugify(tc.title); got != tc.want {
			t.Errorf("Slugify(%q) = %q, want %q", tc.title, got, tc.want)
		}
	}
}

func TestCreate(t *testing.T) {
	t.Run("new project starts in planning with a derived monthly payment", func(t *testing.T) {
		svc, _, activity := newService(t)

		p, err := svc.Create(context.Background(), project.CreateInput{
			Title:             "Acme Website",
			DealType:          domain.DealInstallment,
			TotalAmount:       100_000,
			TermMonths:        3,
			GracePeriodMonths: 2,
		}, "admin-1")
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if p.Status != domain.StatusPlanning {
			t.Fatalf("status = %s, want PLANNING", p.Status)
		}
		if p.Slug != "acme-website" {
			t.Fatalf("slug = %q, want acme-website", p.Slug)
		}
		// ceil(100000 / 3)
		if p.MonthlyPayment != 33_334 {
			t.Fatalf("monthlyPayment = %d, want 33334", p.MonthlyPayment)
		}
		if len(activity.Entries) != 1 || activity.Entries[0].Action != domain.ActionProjectCreated {
			t.Fatalf("expected one PROJECT_CREATED entry, got %+v", activity.Entries)
		}
	})

	t.Run("equity deals have no monthly payment", func(t *testing.T) {
		svc, _, _ := newService(t)

		p, err := svc.Create(context.Background(), project.CreateInput{
			Title:       "Equity Deal",
			DealType:    domain.DealEquity,
			TotalAmount: 100_000,
			TermMonths:  12,
		}, "admin-1")
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if p.MonthlyPayment != 0 {
			t.Fatalf("monthlyPayment = %d, want 0", p.MonthlyPayment)
		}
	})

	t.Run("slug collisions get numeric suffixes", func(t *testing.T) {
		svc, _, _ := newService(t)

		in := project.CreateInput{Title: "Acme Website", DealType: domain.DealEquity}
		first, err := svc.Create(context.Background(), in, "admin-1")
		if err != nil {
			t.Fatal(err)
		}
		second, err := svc.Create(context.Background(), in, "admin-1")
		if err != nil {
			t.Fatal(err)
		}
		third, err := svc.Create(context.Background(), in, "admin-1")
		if err != nil {
			t.Fatal(err)
		}
		if first.Slug != "acme-website" || second.Slug != "acme-website-2" || third.Slug != "acme-website-3" {
			t.Fatalf("slugs = %q, %q, %q", first.Slug, second.Slug, third.Slug)
		}
	})

	t.Run("validation", func(t *testing.T) {
		svc, _, _ := newService(t)

		if _, err := svc.Create(context.Background(), project.CreateInput{DealType: domain.DealEquity}, "a"); err == nil {
			t.Error("expected error for missing title")
		}
		if _, err := svc.Create(context.Background(), project.CreateInput{Title: "x", DealType: "WEIRD"}, "a"); err == nil {
			t.Error("expected error for unknown deal type")
		}
		if _, err := svc.Create(context.Background(), project.CreateInput{
			Title: "x", DealType: domain.DealEquity, TotalAmount: -1,
		}, "a"); err == nil {
			t.Error("expected error for negative total")
		}
	})
}

func TestUpdate(t *testing.T) {
	t.Run("editing totals keeps the original monthly payment", func(t *testing.T) {
		svc, projects, _ := newService(t)
		p, err := svc.Create(context.Background(), project.CreateInput{
			Title:       "Acme Website",
			DealType:    domain.DealInstallment,
			TotalAmount: 120_000,
			TermMonths:  12,
		}, "admin-1")
		if err != nil {
			t.Fatal(err)
		}

		newTotal := int64(240_000)
		updated, err := svc.Update(context.Background(), p.ID, repository.ProjectUpdate{TotalAmount: &newTotal}, "admin-1")
		if err != nil {
			t.Fatalf("Update: %v", err)
		}
		if updated.TotalAmount != 240_000 {
			t.Fatalf("totalAmount = %d, want 240000", updated.TotalAmount)
		}
		if updated.MonthlyPayment != 10_000 {
			t.Fatalf("monthlyPayment = %d, want the original 10000", updated.MonthlyPayment)
		}

		stored, _ := projects.GetByID(context.Background(), p.ID)
		if stored.MonthlyPayment != 10_000 {
			t.Fatalf("stored monthlyPayment = %d, want 10000", stored.MonthlyPayment)
		}
	})

	t.Run("unknown project", func(t *testing.T) {
		svc, _, _ := newService(t)
		title := "x"
		if _, err := svc.Update(context.Background(), "missing", repository.ProjectUpdate{Title: &title}, "a"); err == nil {
			t.Fatal("expected error for unknown project")
		}
	})
}

package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/wellness-reminders/internal/persistence"
	"github.com/example/wellness-reminders/internal/recurrence"
)

func sampleTemplate(id, author string, public bool) persistence.ReminderTemplate {
	return persistence.ReminderTemplate{
		ID:          id,
		Name:        "Morning Routine",
		Description: "Start the day right",
		Author:      author,
		Public:      public,
		Items: []persistence.TemplateItem{
			{
				Time:    "07:00",
				Days:    []time.Weekday{time.Monday, time.Wednesday, time.Friday},
				Message: "Stretch",
			},
			{
				Time:    "07:30",
				Days:    []time.Weekday{time.Saturday},
				Message: "Long run",
				Rule: &recurrence.ScheduleRule{
					Pattern: recurrence.PatternCyclic,
					Cyclic:  &recurrence.CyclicRule{ActiveDays: 21, RestDays: 7},
				},
			},
		},
		CreatedAt: time.Date(2024, time.April, 1, 10, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2024, time.April, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestTemplateRepository_CreateAndGet(t *testing.T) {
	storage := setupStorage(t)
	ctx := context.Background()

	template := sampleTemplate("template1", "user1", true)
	if err := storage.CreateTemplate(ctx, template); err != nil {
		t.Fatalf("CreateTemplate failed: %v", err)
	}

	loaded, err := storage.GetTemplate(ctx, "template1")
	if err != nil {
		t.Fatalf("GetTemplate failed: %v", err)
	}
	if loaded.Name != "Morning Routine" || loaded.Author != "user1" || !loaded.Public {
		t.Errorf("unexpected template: %+v", loaded)
	}
	if len(loaded.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(loaded.Items))
	}
	if loaded.Items[0].Time != "07:00" || loaded.Items[0].Message != "Stretch" {
		t.Errorf("unexpected first item: %+v", loaded.Items[0])
	}
	second := loaded.Items[1]
	if second.Rule == nil || second.Rule.Pattern != recurrence.PatternCyclic {
		t.Fatalf("expected cyclic rule on second item, got %+v", second.Rule)
	}
	if second.Rule.Cyclic.ActiveDays != 21 || second.Rule.Cyclic.RestDays != 7 {
		t.Errorf("unexpected cyclic spans: %+v", second.Rule.Cyclic)
	}
}

func TestTemplateRepository_CreateDuplicate(t *testing.T) {
	storage := setupStorage(t)
	ctx := context.Background()

	template := sampleTemplate("template1", "user1", false)
	if err := storage.CreateTemplate(ctx, template); err != nil {
		t.Fatalf("CreateTemplate failed: %v", err)
	}
	if err := storage.CreateTemplate(ctx, template); !errors.Is(err, persistence.ErrConstraintViolation) {
		t.Errorf("expected ErrConstraintViolation for duplicate ID, got %v", err)
	}
}

func TestTemplateRepository_GetMissing(t *testing.T) {
	storage := setupStorage(t)

	_, err := storage.GetTemplate(context.Background(), "ghost")
	if !errors.Is(err, persistence.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestTemplateRepository_ListFilters(t *testing.T) {
	storage := setupStorage(t)
	ctx := context.Background()

	fixtures := []persistence.ReminderTemplate{
		sampleTemplate("template1", "alice", true),
		sampleTemplate("template2", "alice", false),
		sampleTemplate("template3", "bob", true),
	}
	for i, template := range fixtures {
		template.CreatedAt = template.CreatedAt.Add(time.Duration(i) * time.Hour)
		template.UpdatedAt = template.CreatedAt
		if err := storage.CreateTemplate(ctx, template); err != nil {
			t.Fatalf("CreateTemplate %s failed: %v", template.ID, err)
		}
	}

	t.Run("all", func(t *testing.T) {
		templates, err := storage.ListTemplates(ctx, persistence.TemplateFilter{})
		if err != nil {
			t.Fatalf("ListTemplates failed: %v", err)
		}
		if len(templates) != 3 {
			t.Fatalf("expected 3 templates, got %d", len(templates))
		}
		// Newest first.
		if templates[0].ID != "template3" {
			t.Errorf("expected template3 first, got %s", templates[0].ID)
		}
	})

	t.Run("public only", func(t *testing.T) {
		templates, err := storage.ListTemplates(ctx, persistence.TemplateFilter{PublicOnly: true})
		if err != nil {
			t.Fatalf("ListTemplates failed: %v", err)
		}
		if len(templates) != 2 {
			t.Fatalf("expected 2 public templates, got %d", len(templates))
		}
		for _, template := range templates {
			if !template.Public {
				t.Errorf("private template %s in public listing", template.ID)
			}
		}
	})

	t.Run("by author", func(t *testing.T) {
		templates, err := storage.ListTemplates(ctx, persistence.TemplateFilter{Author: "alice"})
		if err != nil {
			t.Fatalf("ListTemplates failed: %v", err)
		}
		if len(templates) != 2 {
			t.Fatalf("expected 2 templates by alice, got %d", len(templates))
		}
	})

	t.Run("author and public", func(t *testing.T) {
		templates, err := storage.ListTemplates(ctx, persistence.TemplateFilter{Author: "alice", PublicOnly: true})
		if err != nil {
			t.Fatalf("ListTemplates failed: %v", err)
		}
		if len(templates) != 1 || templates[0].ID != "template1" {
			t.Errorf("expected only template1, got %+v", templates)
		}
	})
}

func TestTemplateRepository_Counters(t *testing.T) {
	storage := setupStorage(t)
	ctx := context.Background()

	if err := storage.CreateTemplate(ctx, sampleTemplate("template1", "user1", true)); err != nil {
		t.Fatalf("CreateTemplate failed: %v", err)
	}

	if err := storage.IncrementTemplateLikes(ctx, "template1"); err != nil {
		t.Fatalf("IncrementTemplateLikes failed: %v", err)
	}
	if err := storage.IncrementTemplateDownloads(ctx, "template1"); err != nil {
		t.Fatalf("IncrementTemplateDownloads failed: %v", err)
	}
	if err := storage.IncrementTemplateDownloads(ctx, "template1"); err != nil {
		t.Fatalf("second IncrementTemplateDownloads failed: %v", err)
	}

	loaded, err := storage.GetTemplate(ctx, "template1")
	if err != nil {
		t.Fatalf("GetTemplate failed: %v", err)
	}
	if loaded.Likes != 1 {
		t.Errorf("expected 1 like, got %d", loaded.Likes)
	}
	if loaded.Downloads != 2 {
		t.Errorf("expected 2 downloads, got %d", loaded.Downloads)
	}

	if err := storage.IncrementTemplateLikes(ctx, "ghost"); !errors.Is(err, persistence.ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing template, got %v", err)
	}
}

func TestTemplateRepository_Delete(t *testing.T) {
	storage := setupStorage(t)
	ctx := context.Background()

	if err := storage.CreateTemplate(ctx, sampleTemplate("template1", "user1", false)); err != nil {
		t.Fatalf("CreateTemplate failed: %v", err)
	}
	if err := storage.DeleteTemplate(ctx, "template1"); err != nil {
		t.Fatalf("DeleteTemplate failed: %v", err)
	}
	if _, err := storage.GetTemplate(ctx, "template1"); !errors.Is(err, persistence.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := storage.DeleteTemplate(ctx, "template1"); !errors.Is(err, persistence.ErrNotFound) {
		t.Errorf("expected ErrNotFound for second delete, got %v", err)
	}
}

package sched

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/sizieks/parsers/pkg/models"
)

func openTestQueue(t *testing.T) *Queue {
	t.Helper()
	q, err := OpenQueue(filepath.Join(t.TempDir(), "queue.db"))
	if err != nil {
		t.Fatalf("OpenQueue: %v", err)
	}
	t.Cleanup(func() { q.Close() })
	return q
}

func unit(page int) models.WorkUnit {
	return models.WorkUnit{
		Handler: "reviews",
		Value:   map[string]any{"sku": "X1", "page": page, "only": true},
	}
}

func TestScheduleAndDrain(t *testing.T) {
	q := openTestQueue(t)
	ctx := context.Background()

	for page := 2; page <= 4; page++ {
		if err := q.Schedule(ctx, unit(page)); err != nil {
			t.Fatalf("Schedule: %v", err)
		}
	}

	n, err := q.Pending(ctx)
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if n != 3 {
		t.Fatalf("Expected 3 pending units, got %d", n)
	}

	// Drain in insertion order.
	for page := 2; page <= 4; page++ {
		qu, err := q.Next(ctx)
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if qu == nil {
			t.Fatalf("Expected a pending unit for page %d", page)
		}
		if qu.Unit.Handler != "reviews" {
			t.Errorf("Handler = %q, want reviews", qu.Unit.Handler)
		}
		if got := qu.Unit.Value["page"]; got != float64(page) {
			t.Errorf("page = %v, want %d", got, page)
		}
		if err := q.Done(ctx, qu.ID); err != nil {
			t.Fatalf("Done: %v", err)
		}
	}

	qu, err := q.Next(ctx)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if qu != nil {
		t.Errorf("Expected an empty queue, got %+v", qu)
	}
}

func TestScheduleDeduplicates(t *testing.T) {
	q := openTestQueue(t)
	ctx := context.Background()

	if err := q.Schedule(ctx, unit(2)); err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	// Same payload with different map ordering must hash identically.
	if err := q.Schedule(ctx, models.WorkUnit{
		Handler: "reviews",
		Value:   map[string]any{"only": true, "page": 2, "sku": "X1"},
	}); err != nil {
		t.Fatalf("Schedule duplicate: %v", err)
	}

	n, err := q.Pending(ctx)
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected the duplicate to be dropped, pending = %d", n)
	}
}

func TestScheduleDistinguishesHandlers(t *testing.T) {
	q := openTestQueue(t)
	ctx := context.Background()

	value := map[string]any{"sku": "X1"}
	if err := q.Schedule(ctx, models.WorkUnit{Handler: "reviews", Value: value}); err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if err := q.Schedule(ctx, models.WorkUnit{Handler: "qa", Value: value}); err != nil {
		t.Fatalf("Schedule: %v", err)
	}

	n, err := q.Pending(ctx)
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if n != 2 {
		t.Errorf("Expected units under distinct handlers to coexist, pending = %d", n)
	}
}

func TestDedupSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.db")
	ctx := context.Background()

	q, err := OpenQueue(path)
	if err != nil {
		t.Fatalf("OpenQueue: %v", err)
	}
	if err := q.Schedule(ctx, unit(2)); err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if err := q.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	q, err = OpenQueue(path)
	if err != nil {
		t.Fatalf("Reopen: %v", err)
	}
	defer q.Close()

	if err := q.Schedule(ctx, unit(2)); err != nil {
		t.Fatalf("Schedule after reopen: %v", err)
	}
	n, err := q.Pending(ctx)
	if err != nil {
		t.Fatalf("Pending: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected dedup to persist across reopen, pending = %d", n)
	}
}

func TestList(t *testing.T) {
	q := openTestQueue(t)
	ctx := context.Background()

	for page := 2; page <= 4; page++ {
		if err := q.Schedule(ctx, unit(page)); err != nil {
			t.Fatalf("Schedule: %v", err)
		}
	}

	units, err := q.List(ctx, 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(units) != 2 {
		t.Fatalf("Expected limit to apply, got %d units", len(units))
	}
	// Newest first.
	if units[0].Unit.Value["page"] != float64(4) {
		t.Errorf("units[0] page = %v, want 4", units[0].Unit.Value["page"])
	}
	if units[0].Created == "" {
		t.Error("Expected a created timestamp")
	}
}

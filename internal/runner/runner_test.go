package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/sizieks/parsers/internal/config"
	"github.com/sizieks/parsers/internal/pipeline"
	"github.com/sizieks/parsers/internal/sched"
	"github.com/sizieks/parsers/pkg/models"
)

const reviewsSnapshot = `
<div id="cm_cr-review_list">
	<div data-hook="cr-filter-info-section">
		<span>120 total ratings, 12 with reviews</span>
	</div>
	<div id="R1AAA" data-hook="review">
		<span class="a-profile-name">Alice</span>
		<i class="review-rating"><span>4.0 out of 5 stars</span></i>
		<a class="review-title"><span>Solid</span></a>
		<span data-hook="review-date">Reviewed in the United States on November 2, 2023</span>
	</div>
</div>`

// capture records scheduled continuation units.
type capture struct {
	units []models.WorkUnit
}

func (c *capture) Schedule(_ context.Context, unit models.WorkUnit) error {
	c.units = append(c.units, unit)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		RetryAttempts:  1,
		RateLimitRPS:   100,
		RateLimitBurst: 10,
	}
}

func writeSnapshot(t *testing.T, raw string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "page.html")
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestRunSnapshot(t *testing.T) {
	sink := &capture{}
	r := New(testConfig(), pipeline.DefaultRegistry(0), nil, sink)

	value, err := r.Run(context.Background(),
		models.WorkUnit{Handler: "reviews", Value: map[string]any{"sku": "B00TEST"}},
		Options{SnapshotPath: writeSnapshot(t, reviewsSnapshot)})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	doc, ok := value.(map[string]any)
	if !ok {
		t.Fatalf("Expected a normalized document, got %T", value)
	}
	if doc["found"] != true {
		t.Errorf("found = %v, want true", doc["found"])
	}
	reviews, ok := doc["reviews"].([]any)
	if !ok || len(reviews) != 1 {
		t.Fatalf("Expected 1 review, got %v", doc["reviews"])
	}

	// Defaults placed page at 1; 12 reviews span 2 pages, so one
	// continuation lands in the scheduler.
	if len(sink.units) != 1 {
		t.Fatalf("Expected 1 scheduled unit, got %d", len(sink.units))
	}
	if sink.units[0].Value["page"] != 2 {
		t.Errorf("Scheduled page = %v, want 2", sink.units[0].Value["page"])
	}
}

func TestRunRejectsBadUnit(t *testing.T) {
	r := New(testConfig(), pipeline.DefaultRegistry(0), nil, nil)

	_, err := r.Run(context.Background(),
		models.WorkUnit{Handler: "reviews", Value: map[string]any{"page": 2}},
		Options{SnapshotPath: writeSnapshot(t, reviewsSnapshot)})

	var pe *pipeline.Error
	if !errors.As(err, &pe) || pe.Code != pipeline.CodeValidation {
		t.Errorf("Expected CodeValidation for a unit without sku, got %v", err)
	}
}

func TestRunUnknownHandler(t *testing.T) {
	r := New(testConfig(), pipeline.DefaultRegistry(0), nil, nil)

	_, err := r.Run(context.Background(),
		models.WorkUnit{Handler: "nope", Value: map[string]any{}},
		Options{})

	var pe *pipeline.Error
	if !errors.As(err, &pe) || pe.Code != pipeline.CodeUnknownHandler {
		t.Errorf("Expected CodeUnknownHandler, got %v", err)
	}
}

func TestRunDoesNotMutateUnit(t *testing.T) {
	r := New(testConfig(), pipeline.DefaultRegistry(0), nil, sched.Discard)

	value := map[string]any{"sku": "B00TEST"}
	_, err := r.Run(context.Background(),
		models.WorkUnit{Handler: "reviews", Value: value},
		Options{SnapshotPath: writeSnapshot(t, reviewsSnapshot)})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if _, ok := value["page"]; ok {
		t.Error("Defaults must apply to a copy, not the caller's map")
	}
}

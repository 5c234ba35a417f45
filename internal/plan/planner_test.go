package plan

import (
	"testing"

	"github.com/sizieks/parsers/pkg/models"
)

func TestPages(t *testing.T) {
	tests := []struct {
		reviews int
		want    int
	}{
		{0, 0},
		{-3, 0},
		{1, 1},
		{10, 1},
		{11, 2},
		{4999, 500},
		{5000, 500},
		{5001, MaxPages},
		{120000, MaxPages},
	}

	for _, tt := range tests {
		if got := Pages(tt.reviews); got != tt.want {
			t.Errorf("Pages(%d) = %d, want %d", tt.reviews, got, tt.want)
		}
	}
}

func sweepUnit(page int) models.UnitContext {
	return models.UnitContext{Handler: "reviews", SKU: "X1", Page: page, Only: true}
}

func TestReviewsSweep(t *testing.T) {
	units, err := Reviews(sweepUnit(1), []string{"2023-11-02T00:00:00Z"}, models.Stats{Pages: 3})
	if err != nil {
		t.Fatalf("Reviews returned error: %v", err)
	}
	if len(units) != 2 {
		t.Fatalf("Expected units for pages 2 and 3, got %d", len(units))
	}
	for i, wantPage := range []int{2, 3} {
		u := units[i]
		if u.Handler != "reviews" {
			t.Errorf("units[%d].Handler = %q, want reviews", i, u.Handler)
		}
		if u.Value["page"] != wantPage {
			t.Errorf("units[%d] page = %v, want %d", i, u.Value["page"], wantPage)
		}
		if u.Value["only"] != true {
			t.Errorf("units[%d] only = %v, sweep children must not re-expand", i, u.Value["only"])
		}
		if u.Value["sku"] != "X1" {
			t.Errorf("units[%d] sku = %v, want X1", i, u.Value["sku"])
		}
	}
}

func TestReviewsSweepNoPages(t *testing.T) {
	units, err := Reviews(sweepUnit(1), nil, models.Stats{Pages: 0})
	if err != nil {
		t.Fatalf("Reviews returned error: %v", err)
	}
	if len(units) != 0 {
		t.Errorf("Expected no units for an empty series, got %d", len(units))
	}
}

func TestReviewsSweepLastPage(t *testing.T) {
	units, err := Reviews(sweepUnit(3), nil, models.Stats{Pages: 3})
	if err != nil {
		t.Fatalf("Reviews returned error: %v", err)
	}
	if len(units) != 0 {
		t.Errorf("Expected no units past the last page, got %d", len(units))
	}
}

func TestReviewsScopedUnitPlansNothing(t *testing.T) {
	unit := sweepUnit(2)
	unit.Only = false
	units, err := Reviews(unit, []string{"2024-01-01T00:00:00Z"}, models.Stats{Pages: 500})
	if err != nil {
		t.Fatalf("Reviews returned error: %v", err)
	}
	if units != nil {
		t.Errorf("only=false unit must plan nothing, got %v", units)
	}
}

func TestReviewsBoundaryAllBeyond(t *testing.T) {
	unit := sweepUnit(1)
	unit.BoundaryDate = "2023-11-02T00:00:00Z"

	// Every date is after boundary+1d: the series continues
	units, err := Reviews(unit, []string{
		"2023-11-20T00:00:00Z",
		"2023-11-05T00:00:00Z",
	}, models.Stats{Pages: 500})
	if err != nil {
		t.Fatalf("Reviews returned error: %v", err)
	}
	if len(units) != 1 {
		t.Fatalf("Expected exactly one next-page unit, got %d", len(units))
	}
	u := units[0]
	if u.Value["page"] != 2 {
		t.Errorf("page = %v, want 2", u.Value["page"])
	}
	if u.Value["only"] != false {
		t.Errorf("only = %v, boundary continuation must scope its child", u.Value["only"])
	}
}

func TestReviewsBoundaryReached(t *testing.T) {
	unit := sweepUnit(1)
	unit.BoundaryDate = "2023-11-02T00:00:00Z"

	// One date at the cutoff: already-covered data has appeared
	units, err := Reviews(unit, []string{
		"2023-11-20T00:00:00Z",
		"2023-11-03T00:00:00Z",
	}, models.Stats{Pages: 500})
	if err != nil {
		t.Fatalf("Reviews returned error: %v", err)
	}
	if len(units) != 0 {
		t.Errorf("Expected pagination to stop at the boundary, got %d units", len(units))
	}
}

func TestReviewsBoundaryEmptyPage(t *testing.T) {
	unit := sweepUnit(1)
	unit.BoundaryDate = "2023-11-02T00:00:00Z"

	units, err := Reviews(unit, nil, models.Stats{Pages: 500})
	if err != nil {
		t.Fatalf("Reviews returned error: %v", err)
	}
	if len(units) != 0 {
		t.Errorf("An empty page must stop the series, got %d units", len(units))
	}
}

func TestReviewsBoundaryBareDate(t *testing.T) {
	unit := sweepUnit(1)
	unit.BoundaryDate = "2023-11-02"

	units, err := Reviews(unit, []string{"2023-12-01T00:00:00Z"}, models.Stats{Pages: 500})
	if err != nil {
		t.Fatalf("Reviews returned error: %v", err)
	}
	if len(units) != 1 {
		t.Errorf("Expected one next-page unit, got %d", len(units))
	}
}

func TestReviewsBoundaryMalformed(t *testing.T) {
	unit := sweepUnit(1)
	unit.BoundaryDate = "yesterday"

	if _, err := Reviews(unit, []string{"2023-12-01T00:00:00Z"}, models.Stats{Pages: 1}); err == nil {
		t.Error("Expected an error for a malformed boundary date")
	}
}

func TestCategories(t *testing.T) {
	unit := models.UnitContext{
		Handler:  "trends",
		DateFrom: "2024-03-01",
		DateTo:   "2024-03-28",
		Cookies: map[string]models.Cookie{
			"sid": {Value: "abc", Domain: ".example.com", Path: "/", Expires: "Session"},
		},
	}

	units := Categories(unit, []string{"7500", "7501"})
	if len(units) != 2 {
		t.Fatalf("Expected 2 units, got %d", len(units))
	}

	first := units[0]
	if first.Handler != "trends" {
		t.Errorf("Handler = %q, want trends", first.Handler)
	}
	if first.Value["category"] != "7500" {
		t.Errorf("category = %v, want 7500", first.Value["category"])
	}
	if first.Value["dateFrom"] != "2024-03-01" || first.Value["dateTo"] != "2024-03-28" {
		t.Errorf("Date window not carried: %v", first.Value)
	}

	cookies, ok := first.Value["cookies"].(map[string]any)
	if !ok {
		t.Fatalf("Expected cookies map, got %T", first.Value["cookies"])
	}
	sid, ok := cookies["sid"].(map[string]any)
	if !ok || sid["value"] != "abc" || sid["expires"] != "Session" {
		t.Errorf("Cookie not carried: %v", cookies["sid"])
	}
}

// Package plan decides what continuation work a unit's extracted data
// implies. The shared shape across modes: estimate the total extent,
// compare it against what is already covered, and emit the uncovered
// remainder as work units scoped so no two units re-cover the same data.
package plan

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sizieks/parsers/pkg/models"
)

const (
	// PageSize is the number of reviews served per page.
	PageSize = 10

	// MaxPages caps pagination: the platform stops serving past this
	// depth no matter the total count.
	MaxPages = 500

	// maxReviews is the total count beyond which pagination is capped.
	maxReviews = 5000
)

// Pages derives the page count from a total review count.
func Pages(reviews int) int {
	if reviews <= 0 {
		return 0
	}
	if reviews > maxReviews {
		return MaxPages
	}
	return (reviews + PageSize - 1) / PageSize
}

// Reviews emits the continuation units for one extracted review page.
// dates are the records' normalized RFC 3339 dates in output order.
//
// With no boundary pinned, every remaining page up to stats.Pages is
// emitted with only=true so the children do not re-expand the sweep. With
// a boundary pinned, at most one next page is emitted, and only while the
// current page holds nothing at or behind the boundary.
func Reviews(unit models.UnitContext, dates []string, stats models.Stats) ([]models.WorkUnit, error) {
	if !unit.Only {
		// An only=false unit was scoped to a single page by its parent;
		// expanding again would cascade combinatorially.
		return nil, nil
	}

	if unit.BoundaryDate == "" {
		units := make([]models.WorkUnit, 0)
		for page := unit.Page + 1; page <= stats.Pages; page++ {
			units = append(units, nextPage(unit, page, true))
		}
		log.Debug().Int("pages", stats.Pages).Int("units", len(units)).Msg("Planned page sweep")
		return units, nil
	}

	beyond, err := beyondBoundary(unit.BoundaryDate, dates)
	if err != nil {
		return nil, err
	}
	if !beyond {
		log.Debug().Str("boundary", unit.BoundaryDate).Msg("Boundary reached, pagination stops")
		return nil, nil
	}
	// The whole page is new data: fetch one more page, expansion off.
	return []models.WorkUnit{nextPage(unit, unit.Page+1, false)}, nil
}

// beyondBoundary reports whether every date is strictly after the boundary
// plus one day, meaning nothing already covered has appeared yet.
func beyondBoundary(boundary string, dates []string) (bool, error) {
	t, err := time.Parse(time.RFC3339, boundary)
	if err != nil {
		// A bare date boundary is also accepted.
		t, err = time.Parse("2006-01-02", boundary)
		if err != nil {
			return false, fmt.Errorf("boundary date %q: %w", boundary, err)
		}
	}
	cutoff := t.AddDate(0, 0, 1).UTC().Format(time.RFC3339)

	for _, date := range dates {
		if date <= cutoff {
			return false, nil
		}
	}
	return len(dates) > 0, nil
}

func nextPage(unit models.UnitContext, page int, only bool) models.WorkUnit {
	return models.WorkUnit{
		Handler: unit.Handler,
		Value: map[string]any{
			"only": only,
			"page": page,
			"sku":  unit.SKU,
		},
	}
}

// Categories emits one unit per leaf category, each carrying the shared
// date window and session cookies so independent workers can fan out.
func Categories(unit models.UnitContext, categories []string) []models.WorkUnit {
	units := make([]models.WorkUnit, 0, len(categories))
	for _, category := range categories {
		value := map[string]any{
			"category": category,
			"dateFrom": unit.DateFrom,
			"dateTo":   unit.DateTo,
		}
		if len(unit.Cookies) > 0 {
			cookies := make(map[string]any, len(unit.Cookies))
			for name, c := range unit.Cookies {
				cookies[name] = map[string]any{
					"value":   c.Value,
					"domain":  c.Domain,
					"path":    c.Path,
					"expires": c.Expires,
				}
			}
			value["cookies"] = cookies
		}
		units = append(units, models.WorkUnit{Handler: unit.Handler, Value: value})
	}
	return units
}

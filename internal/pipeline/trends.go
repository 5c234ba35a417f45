package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sizieks/parsers/internal/plan"
	"github.com/sizieks/parsers/internal/schema"
	"github.com/sizieks/parsers/internal/view"
	"github.com/sizieks/parsers/internal/watch"
	"github.com/sizieks/parsers/pkg/models"
)

const (
	diagramSelector = `[data-onboarding-target="trendsDiagram"]`

	// maxDateRange is the widest window the analytics backend serves in
	// one request.
	maxDateRange = 28 * 24 * time.Hour

	actionChangeCategory  = "changeCategory"
	actionChangeDateRange = "changeDateRange"

	// categoryPrefix decorates the selected category label in page chrome.
	categoryPrefix = "Категория: "
)

// Trends iterates the leaf categories of the analytics tree, waits for the
// trend diagram to re-render per category, fans per-category fetches out
// as work units, and extracts the selected category's metric series.
type Trends struct {
	waitTimeout time.Duration
}

// NewTrends creates the trends pipeline. waitTimeout bounds the diagram
// re-render wait; zero keeps the watch default.
func NewTrends(waitTimeout time.Duration) *Trends {
	return &Trends{waitTimeout: waitTimeout}
}

// Handler implements Pipeline.
func (p *Trends) Handler() string { return "trends" }

// PageURL implements Pipeline. The dashboard renders the whole category
// tree client-side; the date range in the query only seeds the pickers.
func (p *Trends) PageURL(unit models.UnitContext) string {
	q := url.Values{}
	q.Set("from", unit.DateFrom)
	q.Set("to", unit.DateTo)
	return "https://seller.ozon.ru/app/analytics/what-to-sell?" + q.Encode()
}

// InputSchema implements Pipeline.
func (p *Trends) InputSchema() *schema.Schema {
	return &schema.Schema{
		Type: "object",
		Properties: map[string]*schema.Schema{
			"category": {Type: "string"},
			"cookies":  {Type: "object", AdditionalProperties: true},
			"dateFrom": {Type: "string", Format: "date"},
			"dateTo":   {Type: "string", Format: "date"},
		},
		Required: []string{"dateFrom", "dateTo"},
	}
}

// OutputSchema implements Pipeline.
func (p *Trends) OutputSchema() *schema.Schema {
	metric := &schema.Schema{
		Type: "object",
		Properties: map[string]*schema.Schema{
			"dynamics": {Type: "number"},
			"value":    {Type: "number"},
		},
		Required: []string{"dynamics", "value"},
	}
	point := &schema.Schema{
		Type: "object",
		Properties: map[string]*schema.Schema{
			"startDate":      {Type: "string", Format: "date"},
			"endDate":        {Type: "string", Format: "date"},
			"platformMetric": metric,
			"sellerMetric":   metric,
		},
		Required: []string{"startDate", "endDate", "platformMetric", "sellerMetric"},
	}
	return &schema.Schema{
		Type: "object",
		Properties: map[string]*schema.Schema{
			"id":     {Type: "integer"},
			"level":  {Const: 2},
			"name":   {Type: "string"},
			"trends": {Type: "array", Items: point},
		},
		Required: []string{"id", "level", "name", "trends"},
	}
}

// trendsResult is the handler's output document.
type trendsResult struct {
	ID     int                 `json:"id"`
	Level  int                 `json:"level"`
	Name   string              `json:"name"`
	Trends []models.TrendPoint `json:"trends"`
}

// Run implements Pipeline.
func (p *Trends) Run(ctx context.Context, unit models.UnitContext, page Page) (*Result, error) {
	if page.State == nil {
		return nil, NewError(CodeBrowser, "trends handler needs a view state provider", nil)
	}
	if err := p.checkRange(unit); err != nil {
		return nil, err
	}

	var units []models.WorkUnit
	if unit.Category == "" {
		// Category-set unit: walk every leaf and fan the per-category
		// fetches out. Per-category units carry their category and plan
		// nothing further, which is what stops the fan-out from
		// re-expanding itself.
		categories, err := page.State.CategoryTree()
		if err != nil {
			return nil, NewError(CodeExtraction, "category tree unavailable", err)
		}
		for _, category := range categories {
			if err := p.selectCategory(ctx, unit, page, category); err != nil {
				return nil, err
			}
		}
		units = plan.Categories(unit, categories)
	} else {
		if err := p.selectCategory(ctx, unit, page, unit.Category); err != nil {
			return nil, err
		}
	}

	selected, err := page.State.Selection()
	if err != nil {
		return nil, NewError(CodeExtraction, "selected category unavailable", err)
	}

	raw, err := page.State.TrendsJSON()
	if err != nil {
		return nil, NewError(CodeExtraction, "trend series unavailable", err)
	}
	var trends []models.TrendPoint
	if err := json.Unmarshal(raw, &trends); err != nil {
		return nil, NewError(CodeExtraction, "trend series malformed", err)
	}

	log.Info().
		Int("category", selected.ID).
		Int("points", len(trends)).
		Int("fanout", len(units)).
		Msg("Trend series extracted")

	return &Result{
		Value: trendsResult{
			ID:     selected.ID,
			Level:  selected.Level,
			Name:   strings.TrimPrefix(selected.Name, categoryPrefix),
			Trends: trends,
		},
		Units: units,
	}, nil
}

// selectCategory dispatches the category and date-range change, then waits
// for the diagram subtree to re-render before moving on.
func (p *Trends) selectCategory(ctx context.Context, unit models.UnitContext, page Page, category string) error {
	diagram := page.Tree.Subtree(diagramSelector)
	before := diagram.HTML()

	err := page.State.Dispatch(ctx, actionChangeCategory, map[string]string{"category": category})
	if err != nil {
		return NewError(CodeBrowser, "category change failed", err).WithDetail("category", category)
	}
	err = page.State.Dispatch(ctx, actionChangeDateRange, map[string]string{
		"dateFrom": unit.DateFrom,
		"dateTo":   unit.DateTo,
	})
	if err != nil {
		return NewError(CodeBrowser, "date range change failed", err).WithDetail("category", category)
	}

	_, err = watch.Materialize(ctx, page.Tree, watch.Spec{
		Root: diagram,
		Done: func(root view.Node) view.Node {
			// Re-render detection: the diagram markup must differ from
			// what was on screen before the dispatch.
			if html := root.HTML(); html != before {
				return root
			}
			return nil
		},
		Timeout: p.waitTimeout,
	})
	if err != nil {
		return classifyWait(err, "diagram never re-rendered").WithDetail("category", category)
	}
	return nil
}

func (p *Trends) checkRange(unit models.UnitContext) error {
	from, err := time.Parse("2006-01-02", unit.DateFrom)
	if err != nil {
		return NewError(CodeValidation, fmt.Sprintf("malformed dateFrom %q", unit.DateFrom), err)
	}
	to, err := time.Parse("2006-01-02", unit.DateTo)
	if err != nil {
		return NewError(CodeValidation, fmt.Sprintf("malformed dateTo %q", unit.DateTo), err)
	}
	if to.Before(from) {
		return NewError(CodeValidation, "dateTo precedes dateFrom", nil)
	}
	if to.Sub(from) > maxDateRange {
		return NewError(CodeValidation, "date range exceeds 28 days", nil)
	}
	return nil
}

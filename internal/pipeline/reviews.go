package pipeline

import (
	"context"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/sizieks/parsers/internal/assemble"
	"github.com/sizieks/parsers/internal/extract"
	"github.com/sizieks/parsers/internal/plan"
	"github.com/sizieks/parsers/internal/schema"
	"github.com/sizieks/parsers/internal/view"
	"github.com/sizieks/parsers/pkg/models"
)

// Reviews extracts a product review page and plans the pagination or
// boundary-date continuation that covers the rest of the series.
type Reviews struct {
	fields extract.FieldMap
}

// NewReviews creates the reviews pipeline.
func NewReviews() *Reviews {
	return &Reviews{
		fields: extract.FieldMap{
			"id":     {Extract: extract.Attr("id"), Required: true},
			"author": {Selector: ".a-profile-name", Required: true},
			"rating": {Selector: ".review-rating", Required: true, Normalize: extract.Rating},
			"title":  {Selector: ".review-title", Required: true},
			"date":   {Selector: `[data-hook="review-date"]`, Required: true, Normalize: extract.DateISO},
			"product": {
				Selector:  `[data-hook^="format-strip"]`,
				Extract:   extract.OwnText,
				Normalize: extract.KeyValues,
			},
			"content": {
				Selector:  `[data-hook="review-body"] span`,
				Extract:   extract.HTML,
				Normalize: extract.Markdown,
			},
			"helpful": {
				Selector:  `[data-hook="helpful-vote-statement"]`,
				Normalize: extract.Helpful,
			},
		},
	}
}

// Handler implements Pipeline.
func (p *Reviews) Handler() string { return "reviews" }

// PageURL implements Pipeline. Verified-purchase filtering follows the
// unit's only flag; boundary continuation pages drop it to see the full
// series.
func (p *Reviews) PageURL(unit models.UnitContext) string {
	q := url.Values{}
	q.Set("pageNumber", strconv.Itoa(unit.Page))
	sortBy := unit.SortBy
	if sortBy == "" {
		sortBy = "recent"
	}
	q.Set("sortBy", sortBy)
	if unit.Only {
		q.Set("reviewerType", "avp_only_reviews")
	}
	return "https://www.amazon.com/product-reviews/" + url.PathEscape(unit.SKU) + "/?" + q.Encode()
}

// InputSchema implements Pipeline.
func (p *Reviews) InputSchema() *schema.Schema {
	return &schema.Schema{
		Type: "object",
		Properties: map[string]*schema.Schema{
			"only":   {Type: "boolean", Default: true},
			"page":   {Type: "integer", Default: 1},
			"sortBy": {Type: "string", Enum: []any{"recent", "helpful"}, Default: "recent"},
			"sku":    {Type: "string"},
			"date":   {Type: "string", Format: "date-time"},
		},
		Required: []string{"sku"},
	}
}

// OutputSchema implements Pipeline.
func (p *Reviews) OutputSchema() *schema.Schema {
	review := &schema.Schema{
		Type: "object",
		Properties: map[string]*schema.Schema{
			"id":      {Type: "string"},
			"author":  {Type: "string"},
			"rating":  {Type: "number", Minimum: schema.Num(0), Maximum: schema.Num(5)},
			"title":   {Type: "string"},
			"date":    {Type: "string", Format: "date-time"},
			"product": schema.Nullable(&schema.Schema{Type: "object", AdditionalProperties: true}),
			"content": schema.Nullable(&schema.Schema{Type: "string"}),
			"helpful": {Type: "integer"},
		},
		Required: []string{"id", "author", "rating", "title", "date", "product", "content", "helpful"},
	}

	return &schema.Schema{
		Type: "object",
		Properties: map[string]*schema.Schema{
			"reviews": {Type: "array", Items: review},
			"stats": {
				Type: "object",
				Properties: map[string]*schema.Schema{
					"ratings": {Type: "integer"},
					"reviews": {Type: "integer"},
					"pages":   {Type: "integer"},
				},
				Required: []string{"ratings", "reviews", "pages"},
			},
			"found": {Type: "boolean"},
		},
		Required: []string{"reviews", "stats", "found"},
	}
}

// reviewsResult is the handler's output document.
type reviewsResult struct {
	Reviews []models.Review `json:"reviews"`
	Stats   models.Stats    `json:"stats"`
	Found   bool            `json:"found"`
}

// Run implements Pipeline.
func (p *Reviews) Run(ctx context.Context, unit models.UnitContext, page Page) (*Result, error) {
	root := page.Tree.Root()
	if err := CheckBlocked(root); err != nil {
		return nil, err
	}

	stats := p.parseStats(root)
	records, errs := assemble.Records(root.QueryAll(`[data-hook="review"]`), p.buildReview)
	for _, err := range errs {
		log.Warn().Err(err).Str("sku", unit.SKU).Msg("Review dropped")
	}
	assemble.SortByDate(records, func(r models.Review) string { return r.Date })

	if p.parseNotFound(root) {
		// Nothing behind this SKU: deliver what little there is, plan
		// nothing.
		return &Result{Value: reviewsResult{Reviews: records, Stats: stats, Found: false}}, nil
	}

	dates := make([]string, len(records))
	for i, r := range records {
		dates[i] = r.Date
	}
	units, err := plan.Reviews(unit, dates, stats)
	if err != nil {
		return nil, NewError(CodeValidation, "continuation planning failed", err)
	}

	return &Result{
		Value: reviewsResult{Reviews: records, Stats: stats, Found: true},
		Units: units,
	}, nil
}

func (p *Reviews) buildReview(n view.Node) (models.Review, error) {
	rec, err := extract.Extract(n, p.fields)
	if err != nil {
		return models.Review{}, err
	}

	helpful := 0
	if rec["helpful"] != nil {
		helpful = asInt(rec["helpful"])
	}

	return models.Review{
		ID:      asString(rec["id"]),
		Author:  asString(rec["author"]),
		Rating:  asFloat(rec["rating"]),
		Title:   asString(rec["title"]),
		Date:    asString(rec["date"]),
		Product: asStringMap(rec["product"]),
		Content: asStringPtr(rec["content"]),
		Helpful: helpful,
	}, nil
}

var (
	ratingsRe = regexp.MustCompile(`([\d,]+)\s+total`)
	reviewsRe = regexp.MustCompile(`ratings?,\s+([\d,]+)\s+with`)
)

// parseStats reads the aggregate counters from the filter-info chrome.
// Absent chrome means an empty result set: zero counters, zero pages.
func (p *Reviews) parseStats(root view.Node) models.Stats {
	info := root.Query(`[data-hook="cr-filter-info-section"]`)
	if info == nil {
		return models.Stats{}
	}

	text := info.Text()
	stats := models.Stats{
		Ratings: matchCount(ratingsRe, text),
		Reviews: matchCount(reviewsRe, text),
	}
	stats.Pages = plan.Pages(stats.Reviews)
	return stats
}

func matchCount(re *regexp.Regexp, text string) int {
	m := re.FindStringSubmatch(text)
	if len(m) < 2 {
		return 0
	}
	n, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
	if err != nil {
		return 0
	}
	return n
}

// notFoundAlt is the alt text of the error-page illustration.
const notFoundAlt = "Sorry! We couldn't find that page. Try searching or go to the home page."

func (p *Reviews) parseNotFound(root view.Node) bool {
	img := root.Query("#g div img")
	if img == nil {
		return false
	}
	alt, _ := img.Attr("alt")
	return alt == notFoundAlt
}

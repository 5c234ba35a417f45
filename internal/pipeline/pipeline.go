// Package pipeline binds the generic engine pieces (watcher, extractor,
// assembler, validator, planner) to the concrete page layouts the system
// scrapes. Each handler owns its input/output schemas and its selectors.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/sizieks/parsers/internal/schema"
	"github.com/sizieks/parsers/internal/view"
	"github.com/sizieks/parsers/pkg/models"
)

// Page bundles the rendered view a unit of work runs against.
type Page struct {
	Tree view.Tree

	// State is the host-runtime capability. Nil for handlers that read
	// only the DOM.
	State view.StateProvider
}

// Result is what a pipeline hands back: the handler-shaped result document
// plus the continuation units its data implies. Units are emitted to the
// scheduler only when Run returned no fatal error.
type Result struct {
	Value any
	Units []models.WorkUnit
}

// Pipeline is one extraction handler.
type Pipeline interface {
	// Handler is the name work units select this pipeline by.
	Handler() string

	// InputSchema declares the unit value shape, with defaults.
	InputSchema() *schema.Schema

	// OutputSchema declares the result document shape.
	OutputSchema() *schema.Schema

	// PageURL is the page a unit of work navigates to.
	PageURL(unit models.UnitContext) string

	// Run extracts the page and plans continuation. unit has already been
	// validated against InputSchema.
	Run(ctx context.Context, unit models.UnitContext, page Page) (*Result, error)
}

// Registry maps handler names to pipelines.
type Registry map[string]Pipeline

// DefaultRegistry returns every built-in pipeline. waitTimeout bounds each
// materialization wait; zero keeps the package default.
func DefaultRegistry(waitTimeout time.Duration) Registry {
	r := make(Registry)
	for _, p := range []Pipeline{NewQA(waitTimeout), NewReviews(), NewTrends(waitTimeout)} {
		r[p.Handler()] = p
	}
	return r
}

// Lookup resolves a handler name.
func (r Registry) Lookup(handler string) (Pipeline, error) {
	p, ok := r[handler]
	if !ok {
		return nil, NewError(CodeUnknownHandler, fmt.Sprintf("no pipeline for handler %q", handler), nil)
	}
	return p, nil
}

// blockedSelector is the anti-automation challenge form. Its presence is a
// fatal blocked condition, reported upward and never retried here.
const blockedSelector = `form[action="/errors/validateCaptcha"]`

// CheckBlocked inspects the page for an anti-automation challenge.
func CheckBlocked(root view.Node) error {
	if root.Query(blockedSelector) != nil {
		return NewError(CodeBlocked, "anti-automation challenge detected", nil)
	}
	return nil
}

// Coercion helpers for the map records the extractor produces. Extraction
// already normalized types; these only unwrap the any values.

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	}
	return 0
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	}
	return 0
}

func asStringPtr(v any) *string {
	if s, ok := v.(string); ok {
		return &s
	}
	return nil
}

func asStringMap(v any) map[string]string {
	m, _ := v.(map[string]string)
	return m
}

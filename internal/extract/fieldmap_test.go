package extract

import (
	"errors"
	"testing"

	"github.com/sizieks/parsers/internal/view"
)

func nodeFrom(t *testing.T, rawHTML, selector string) view.Node {
	t.Helper()
	snap, err := view.NewSnapshot(rawHTML)
	if err != nil {
		t.Fatalf("Failed to parse fixture: %v", err)
	}
	node := snap.Root().Query(selector)
	if node == nil {
		t.Fatalf("Fixture has no %q", selector)
	}
	return node
}

func TestExtract(t *testing.T) {
	node := nodeFrom(t, `
		<div class="q" data-question-id="q1">
			<span class="question-text"> Does it fit? </span>
			<span class="question-likes">likes: 12</span>
		</div>`, ".q")

	fm := FieldMap{
		"id":      {Extract: Attr("data-question-id"), Required: true},
		"content": {Selector: ".question-text", Required: true},
		"likes":   {Selector: ".question-likes", Normalize: Int},
	}

	rec, err := Extract(node, fm)
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if rec["id"] != "q1" {
		t.Errorf("id = %v, want q1", rec["id"])
	}
	if rec["content"] != "Does it fit?" {
		t.Errorf("content = %q, want trimmed text", rec["content"])
	}
	if rec["likes"] != 12 {
		t.Errorf("likes = %v, want 12", rec["likes"])
	}
}

func TestExtractRequiredMissing(t *testing.T) {
	node := nodeFrom(t, `<div class="q"></div>`, ".q")

	fm := FieldMap{
		"author": {Selector: ".question-author", Required: true},
	}

	_, err := Extract(node, fm)
	if err == nil {
		t.Fatal("Expected an error for a missing required field")
	}
	var ee *ExtractionError
	if !errors.As(err, &ee) {
		t.Fatalf("Expected ExtractionError, got %T", err)
	}
	if ee.Field != "author" {
		t.Errorf("Field = %q, want author", ee.Field)
	}
}

func TestExtractOptionalMissing(t *testing.T) {
	node := nodeFrom(t, `<div class="q"></div>`, ".q")

	rec, err := Extract(node, FieldMap{
		"helpful": {Selector: ".votes", Normalize: Helpful},
	})
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if rec["helpful"] != nil {
		t.Errorf("Expected nil for missing optional field, got %v", rec["helpful"])
	}
}

func TestExtractNormalizeFailure(t *testing.T) {
	node := nodeFrom(t, `<div class="q"><span class="rating">bad</span></div>`, ".q")

	_, err := Extract(node, FieldMap{
		"rating": {Selector: ".rating", Required: true, Normalize: Rating},
	})
	if err == nil {
		t.Fatal("Expected a normalization error")
	}
}

func TestExtractOwnText(t *testing.T) {
	node := nodeFrom(t, `
		<div class="strip">
			Color: Red
			<i class="a-icon"></i>
			Size: Large
		</div>`, ".strip")

	rec, err := Extract(node, FieldMap{
		"product": {Extract: OwnText, Normalize: KeyValues},
	})
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	kv, ok := rec["product"].(map[string]string)
	if !ok {
		t.Fatalf("Expected map, got %T", rec["product"])
	}
	if kv["color"] != "Red" || kv["size"] != "Large" {
		t.Errorf("Unexpected pairs: %v", kv)
	}
}

// Package extract turns view nodes into flat records through declarative
// field maps: one selector, one raw-text extractor and one normalizer per
// output field. Positional selectors are a structural-drift risk, so they
// live only inside field maps where a mismatch fails loudly as an
// ExtractionError instead of silently mis-binding fields.
package extract

import (
	"fmt"
	"strings"

	"github.com/sizieks/parsers/internal/view"
)

// ExtractionError reports a required field whose selector matched nothing.
// It is fatal to the single record being built, never to the batch.
type ExtractionError struct {
	Field    string
	Selector string
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("field %q: no node matches selector %q", e.Field, e.Selector)
}

// Field describes how one output field is read off a node.
type Field struct {
	// Selector resolves to zero or one descendant. Empty targets the
	// record node itself.
	Selector string

	// Required makes a missing descendant a hard error. Optional fields
	// yield nil instead.
	Required bool

	// Extract reads the raw value from the resolved node. Nil means
	// trimmed text content.
	Extract func(view.Node) string

	// Normalize converts raw text to the typed value. Nil keeps the raw
	// string.
	Normalize func(string) (any, error)
}

// FieldMap maps output field names to their extraction rules. Field maps
// are stateless and reusable across any number of nodes.
type FieldMap map[string]Field

// Extract applies the field map to one node. It reads only from the node
// and touches no engine state.
func Extract(node view.Node, fm FieldMap) (map[string]any, error) {
	record := make(map[string]any, len(fm))

	for name, field := range fm {
		target := node
		if field.Selector != "" {
			target = node.Query(field.Selector)
		}
		if target == nil {
			if field.Required {
				return nil, &ExtractionError{Field: name, Selector: field.Selector}
			}
			record[name] = nil
			continue
		}

		raw := ""
		if field.Extract != nil {
			raw = field.Extract(target)
		} else {
			raw = strings.TrimSpace(target.Text())
		}

		if field.Normalize == nil {
			record[name] = raw
			continue
		}
		value, err := field.Normalize(raw)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		record[name] = value
	}

	return record, nil
}

// Text extracts trimmed text content. The default when Field.Extract is
// nil, exported for explicit field maps.
func Text(n view.Node) string { return strings.TrimSpace(n.Text()) }

// OwnText extracts only the node's immediate text children.
func OwnText(n view.Node) string { return n.OwnText() }

// HTML extracts the node's inner HTML.
func HTML(n view.Node) string { return n.HTML() }

// Attr returns an extractor reading the named attribute.
func Attr(name string) func(view.Node) string {
	return func(n view.Node) string {
		v, _ := n.Attr(name)
		return v
	}
}

// Package schema declares and checks the closed object shapes that guard
// the engine's boundaries. Schemas are data: each handler declares its
// input and output shape and the thin validator enforces it.
package schema

// Schema describes one declared shape. Objects are closed: a property not
// listed in Properties is a violation.
type Schema struct {
	// Type is one of object, array, string, integer, number, boolean,
	// null. Empty means any type (used by bare anyOf branches).
	Type string

	Properties map[string]*Schema
	Required   []string

	// AdditionalProperties opens an object shape back up. Off by default.
	AdditionalProperties bool

	Items *Schema

	Enum  []any
	Const any

	// Minimum and Maximum are inclusive bounds on numeric values.
	Minimum *float64
	Maximum *float64

	// Format is a structural string constraint: "date" or "date-time".
	Format string

	// AnyOf accepts a value matching at least one branch. Used for
	// nullable unions.
	AnyOf []*Schema

	// Default is applied to missing optional object properties before
	// validation.
	Default any
}

// Num is shorthand for the pointer bounds.
func Num(v float64) *float64 { return &v }

// Nullable wraps a schema into an anyOf [T, null] union.
func Nullable(s *Schema) *Schema {
	return &Schema{AnyOf: []*Schema{s, {Type: "null"}}}
}

// ApplyDefaults fills missing optional properties of obj from the schema's
// declared defaults. Only the top level is filled; nested defaults belong
// to the handler that owns the nested shape.
func ApplyDefaults(obj map[string]any, s *Schema) {
	if obj == nil || s == nil {
		return
	}
	for name, prop := range s.Properties {
		if prop.Default == nil {
			continue
		}
		if _, present := obj[name]; !present {
			obj[name] = prop.Default
		}
	}
}

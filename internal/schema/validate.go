package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"regexp"
)

// FieldError is one validation failure with the path that produced it.
type FieldError struct {
	Path    string
	Message string
}

func (e FieldError) String() string {
	if e.Path == "" {
		return e.Message
	}
	return e.Path + ": " + e.Message
}

// Result is the outcome of one Validate call.
type Result struct {
	OK     bool
	Errors []FieldError
}

// Validate checks value against the schema. Values follow JSON
// conventions: map[string]any, []any, string, numbers, bool, nil.
func Validate(value any, s *Schema) Result {
	var errs []FieldError
	check(value, s, "", &errs)
	return Result{OK: len(errs) == 0, Errors: errs}
}

// Normalize round-trips a typed Go value through JSON so it can be
// validated like any inbound document.
func Normalize(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("normalize value: %w", err)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("normalize value: %w", err)
	}
	return out, nil
}

var (
	dateRe     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	dateTimeRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}[Tt]\d{2}:\d{2}:\d{2}(\.\d+)?([Zz]|[+-]\d{2}:\d{2})$`)
)

func check(value any, s *Schema, path string, errs *[]FieldError) {
	if s == nil {
		return
	}

	if len(s.AnyOf) > 0 {
		for _, branch := range s.AnyOf {
			var branchErrs []FieldError
			check(value, branch, path, &branchErrs)
			if len(branchErrs) == 0 {
				return
			}
		}
		*errs = append(*errs, FieldError{path, "matches no allowed shape"})
		return
	}

	if s.Const != nil {
		if !looseEqual(value, s.Const) {
			*errs = append(*errs, FieldError{path, fmt.Sprintf("must be %v", s.Const)})
		}
		return
	}

	if s.Type != "" && !typeMatches(value, s.Type) {
		*errs = append(*errs, FieldError{path, fmt.Sprintf("expected %s", s.Type)})
		return
	}

	if len(s.Enum) > 0 {
		ok := false
		for _, allowed := range s.Enum {
			if looseEqual(value, allowed) {
				ok = true
				break
			}
		}
		if !ok {
			*errs = append(*errs, FieldError{path, fmt.Sprintf("%v is not one of the allowed values", value)})
			return
		}
	}

	switch s.Type {
	case "object":
		obj, ok := value.(map[string]any)
		if !ok {
			return
		}
		for _, name := range s.Required {
			if _, present := obj[name]; !present {
				*errs = append(*errs, FieldError{join(path, name), "required"})
			}
		}
		for name, v := range obj {
			prop, declared := s.Properties[name]
			if !declared {
				if !s.AdditionalProperties {
					*errs = append(*errs, FieldError{join(path, name), "undeclared property"})
				}
				continue
			}
			check(v, prop, join(path, name), errs)
		}

	case "array":
		items, ok := value.([]any)
		if !ok || s.Items == nil {
			return
		}
		for i, item := range items {
			check(item, s.Items, fmt.Sprintf("%s[%d]", path, i), errs)
		}

	case "string":
		str, _ := value.(string)
		switch s.Format {
		case "date":
			if !dateRe.MatchString(str) {
				*errs = append(*errs, FieldError{path, fmt.Sprintf("%q is not a date", str)})
			}
		case "date-time":
			if !dateTimeRe.MatchString(str) {
				*errs = append(*errs, FieldError{path, fmt.Sprintf("%q is not a date-time", str)})
			}
		}

	case "integer", "number":
		n, _ := numberOf(value)
		if s.Minimum != nil && n < *s.Minimum {
			*errs = append(*errs, FieldError{path, fmt.Sprintf("%v is below minimum %v", n, *s.Minimum)})
		}
		if s.Maximum != nil && n > *s.Maximum {
			*errs = append(*errs, FieldError{path, fmt.Sprintf("%v is above maximum %v", n, *s.Maximum)})
		}
	}
}

func typeMatches(value any, typ string) bool {
	switch typ {
	case "null":
		return value == nil
	case "object":
		_, ok := value.(map[string]any)
		return ok
	case "array":
		_, ok := value.([]any)
		return ok
	case "string":
		_, ok := value.(string)
		return ok
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "number":
		_, ok := numberOf(value)
		return ok
	case "integer":
		n, ok := numberOf(value)
		return ok && n == math.Trunc(n)
	}
	return false
}

func numberOf(value any) (float64, bool) {
	switch n := value.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// looseEqual compares values with numeric widening so 2 and 2.0 are the
// same enum member regardless of how they were decoded.
func looseEqual(a, b any) bool {
	if an, ok := numberOf(a); ok {
		if bn, ok := numberOf(b); ok {
			return an == bn
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

func join(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

package schema

import (
	"testing"
)

func unitSchema() *Schema {
	return &Schema{
		Type: "object",
		Properties: map[string]*Schema{
			"only":   {Type: "boolean", Default: true},
			"page":   {Type: "integer", Default: 1, Minimum: Num(1)},
			"sortBy": {Type: "string", Enum: []any{"recent", "helpful"}, Default: "recent"},
			"sku":    {Type: "string"},
			"date":   {Type: "string", Format: "date-time"},
		},
		Required: []string{"sku"},
	}
}

func findError(res Result, path string) *FieldError {
	for i := range res.Errors {
		if res.Errors[i].Path == path {
			return &res.Errors[i]
		}
	}
	return nil
}

func TestValidateRequiredMissing(t *testing.T) {
	res := Validate(map[string]any{"page": 2}, unitSchema())
	if res.OK {
		t.Fatal("Expected validation to fail without sku")
	}
	fe := findError(res, "sku")
	if fe == nil {
		t.Fatalf("Expected an error at path sku, got %v", res.Errors)
	}
	if fe.Message != "required" {
		t.Errorf("Message = %q, want required", fe.Message)
	}
}

func TestValidateUndeclaredProperty(t *testing.T) {
	res := Validate(map[string]any{"sku": "X1", "extra": true}, unitSchema())
	if res.OK {
		t.Fatal("Expected closed object to reject undeclared property")
	}
	if findError(res, "extra") == nil {
		t.Errorf("Expected an error at path extra, got %v", res.Errors)
	}
}

func TestValidateTypeAndEnum(t *testing.T) {
	res := Validate(map[string]any{"sku": "X1", "page": "2"}, unitSchema())
	if res.OK || findError(res, "page") == nil {
		t.Errorf("Expected type error at page, got %v", res.Errors)
	}

	res = Validate(map[string]any{"sku": "X1", "sortBy": "oldest"}, unitSchema())
	if res.OK || findError(res, "sortBy") == nil {
		t.Errorf("Expected enum error at sortBy, got %v", res.Errors)
	}
}

func TestValidateIntegerAcceptsIntegralFloat(t *testing.T) {
	// JSON decoding yields float64; 3.0 is an integer, 3.5 is not.
	res := Validate(map[string]any{"sku": "X1", "page": 3.0}, unitSchema())
	if !res.OK {
		t.Errorf("Expected 3.0 to satisfy integer, got %v", res.Errors)
	}

	res = Validate(map[string]any{"sku": "X1", "page": 3.5}, unitSchema())
	if res.OK {
		t.Error("Expected 3.5 to fail integer")
	}
}

func TestValidateBounds(t *testing.T) {
	res := Validate(map[string]any{"sku": "X1", "page": 0}, unitSchema())
	if res.OK || findError(res, "page") == nil {
		t.Errorf("Expected minimum bound error at page, got %v", res.Errors)
	}
}

func TestValidateFormats(t *testing.T) {
	ok := Validate(map[string]any{"sku": "X1", "date": "2023-11-02T00:00:00Z"}, unitSchema())
	if !ok.OK {
		t.Errorf("Expected valid date-time to pass, got %v", ok.Errors)
	}

	bad := Validate(map[string]any{"sku": "X1", "date": "2023-11-02"}, unitSchema())
	if bad.OK {
		t.Error("Expected bare date to fail date-time format")
	}

	dateOnly := &Schema{Type: "string", Format: "date"}
	if res := Validate("2024-03-01", dateOnly); !res.OK {
		t.Errorf("Expected valid date to pass, got %v", res.Errors)
	}
	if res := Validate("03/01/2024", dateOnly); res.OK {
		t.Error("Expected slash date to fail date format")
	}
}

func TestValidateNullableUnion(t *testing.T) {
	s := Nullable(&Schema{Type: "string"})
	if res := Validate(nil, s); !res.OK {
		t.Errorf("Expected null to pass the union, got %v", res.Errors)
	}
	if res := Validate("text", s); !res.OK {
		t.Errorf("Expected string to pass the union, got %v", res.Errors)
	}
	if res := Validate(5, s); res.OK {
		t.Error("Expected number to fail the union")
	}
}

func TestValidateConst(t *testing.T) {
	s := &Schema{Const: 2}
	if res := Validate(2.0, s); !res.OK {
		t.Errorf("Expected 2.0 to equal const 2, got %v", res.Errors)
	}
	if res := Validate(3, s); res.OK {
		t.Error("Expected 3 to fail const 2")
	}
}

func TestValidateArrayItemPaths(t *testing.T) {
	s := &Schema{
		Type: "object",
		Properties: map[string]*Schema{
			"reviews": {Type: "array", Items: &Schema{Type: "object", Properties: map[string]*Schema{
				"id": {Type: "string"},
			}, Required: []string{"id"}}},
		},
	}
	res := Validate(map[string]any{
		"reviews": []any{
			map[string]any{"id": "r1"},
			map[string]any{},
		},
	}, s)
	if res.OK {
		t.Fatal("Expected second item to fail")
	}
	if findError(res, "reviews[1].id") == nil {
		t.Errorf("Expected error at reviews[1].id, got %v", res.Errors)
	}
}

func TestApplyDefaults(t *testing.T) {
	obj := map[string]any{"sku": "X1", "page": 7}
	ApplyDefaults(obj, unitSchema())

	if obj["only"] != true {
		t.Errorf("only = %v, want default true", obj["only"])
	}
	if obj["sortBy"] != "recent" {
		t.Errorf("sortBy = %v, want default recent", obj["sortBy"])
	}
	if obj["page"] != 7 {
		t.Errorf("page = %v, explicit value must win over default", obj["page"])
	}
	if _, present := obj["date"]; present {
		t.Error("date has no default and must stay absent")
	}
}

func TestNormalize(t *testing.T) {
	type doc struct {
		Found bool `json:"found"`
		Count int  `json:"count"`
	}
	v, err := Normalize(doc{Found: true, Count: 3})
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	obj, ok := v.(map[string]any)
	if !ok {
		t.Fatalf("Expected map, got %T", v)
	}
	if obj["found"] != true {
		t.Errorf("found = %v, want true", obj["found"])
	}
	if obj["count"] != 3.0 {
		t.Errorf("count = %v (%T), want JSON number", obj["count"], obj["count"])
	}
}

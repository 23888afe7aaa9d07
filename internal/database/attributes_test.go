package database

import "testing"

func TestStringAttributes(t *testing.T) {
	in := map[string]any{
		"name":       "A",
		"age":        30,
		"dob":        "1990-01-01",
		"allergies":  []any{"peanuts"},
		"insured":    true,
		"note":       nil,
		"patient_id": "spoofed",
	}

	got := StringAttributes(in)

	if len(got) != 2 {
		t.Fatalf("expected 2 string attributes, got %d: %v", len(got), got)
	}
	if got["name"] != "A" || got["dob"] != "1990-01-01" {
		t.Errorf("unexpected attributes: %v", got)
	}
	if _, ok := got["age"]; ok {
		t.Error("numeric attribute should be dropped")
	}
	if _, ok := got["patient_id"]; ok {
		t.Error("reserved attribute should be dropped")
	}
}

func TestStringAttributes_Nil(t *testing.T) {
	got := StringAttributes(nil)
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil map, got %v", got)
	}
}

func TestAttributesJSONRoundTrip(t *testing.T) {
	data, err := EncodeAttributesJSON(nil)
	if err != nil {
		t.Fatalf("EncodeAttributesJSON: %v", err)
	}
	if string(data) != "{}" {
		t.Errorf("expected {}, got %s", data)
	}

	attrs, err := DecodeAttributesJSON([]byte(`{"name":"A","age":30}`))
	if err != nil {
		t.Fatalf("DecodeAttributesJSON: %v", err)
	}
	if len(attrs) != 1 || attrs["name"] != "A" {
		t.Errorf("expected only name, got %v", attrs)
	}

	if _, err := DecodeAttributesJSON([]byte(`not json`)); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

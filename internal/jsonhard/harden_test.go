package jsonhard

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestRepair_PassesValidJSONThrough(t *testing.T) {
	input := []byte(`{"host":"example.com","height":800000}`)
	got := Repair(input)
	if !json.Valid(got) {
		t.Fatalf("expected valid JSON, got %s", got)
	}
	var decoded map[string]any
	if err := json.Unmarshal(got, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if decoded["host"] != "example.com" {
		t.Errorf("expected host preserved, got %v", decoded["host"])
	}
}

func TestRepair_UnsyncBoxBodyPattern(t *testing.T) {
	// The embedded headers map carries genuinely unescaped inner
	// quotes, so this is malformed JSON, not just brace-heavy text.
	input := []byte(`{"error_message":"Response { status: 400, headers: {"content-type": "application/json"}, body: UnsyncBoxBody }"}`)
	got := Repair(input)
	if !json.Valid(got) {
		t.Fatalf("expected valid JSON after repair, got %s", got)
	}
	if strings.Contains(string(got), "UnsyncBoxBody") {
		t.Error("expected UnsyncBoxBody to be replaced")
	}
}

func TestRepair_TrailingComma(t *testing.T) {
	input := []byte(`{"host":"example.com","height":800000,}`)
	got := Repair(input)
	if !json.Valid(got) {
		t.Fatalf("expected valid JSON after repair, got %s", got)
	}
}

func TestRepair_ExtractsBalancedSubstring(t *testing.T) {
	input := []byte(`garbage prefix {"host":"example.com","height":1} trailing noise`)
	got := Repair(input)
	if !json.Valid(got) {
		t.Fatalf("expected valid JSON after repair, got %s", got)
	}
	var decoded map[string]any
	if err := json.Unmarshal(got, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if decoded["host"] != "example.com" {
		t.Errorf("expected extracted object to preserve host, got %v", decoded["host"])
	}
}

func TestRepair_EmptyInputProducesSkeleton(t *testing.T) {
	got := Repair([]byte(""))
	if !json.Valid(got) {
		t.Fatalf("expected valid skeleton JSON, got %s", got)
	}
	var decoded map[string]any
	if err := json.Unmarshal(got, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if decoded["status"] != "error" {
		t.Errorf("expected skeleton status=error, got %v", decoded["status"])
	}
}

func TestRepair_NeverReturnsInvalidJSON(t *testing.T) {
	inputs := []string{
		"",
		"not json at all",
		`{{{`,
		`{"a": "b" "c": "d"}`,
		`{"key": }`,
	}
	for _, in := range inputs {
		got := Repair([]byte(in))
		if !json.Valid(got) {
			t.Errorf("Repair(%q) produced invalid JSON: %s", in, got)
		}
	}
}

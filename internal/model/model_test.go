package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestKeyTypeValid(t *testing.T) {
	tests := []struct {
		in   KeyType
		want bool
	}{
		{KeyTypeDev, true},
		{KeyTypeProd, true},
		{"", false},
		{"staging", false},
		{"DEV", false},
	}
	for _, tt := range tests {
		if got := tt.in.Valid(); got != tt.want {
			t.Errorf("KeyType(%q).Valid() = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestAPIKeyJSON(t *testing.T) {
	now := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	k := APIKey{
		ID:        "0194b1f2-0000-7000-8000-000000000001",
		Name:      "ci-bot",
		Secret:    "pk_abc123xyz_1736942400000",
		IsActive:  true,
		Type:      KeyTypeDev,
		CreatedAt: now,
	}

	b, err := json.Marshal(k)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}

	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}

	if m["secret"] != k.Secret {
		t.Errorf("secret = %v, want %q", m["secret"], k.Secret)
	}
	if m["isActive"] != true {
		t.Errorf("isActive = %v, want true", m["isActive"])
	}
	if m["type"] != "dev" {
		t.Errorf("type = %v, want dev", m["type"])
	}

	// Unlimited keys serialize monthlyLimit as an explicit null.
	v, ok := m["monthlyLimit"]
	if !ok {
		t.Error("expected monthlyLimit key in JSON output")
	}
	if v != nil {
		t.Errorf("monthlyLimit = %v, want null", v)
	}

	if _, ok := m["lastUsedAt"]; ok {
		t.Error("expected lastUsedAt to be omitted when unset")
	}

	limit := int64(1000)
	used := now.Add(time.Hour)
	k.MonthlyLimit = &limit
	k.LastUsedAt = &used

	b2, err := json.Marshal(k)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	var k2 APIKey
	if err := json.Unmarshal(b2, &k2); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if k2.MonthlyLimit == nil || *k2.MonthlyLimit != 1000 {
		t.Errorf("MonthlyLimit = %v, want 1000", k2.MonthlyLimit)
	}
	if k2.LastUsedAt == nil || !k2.LastUsedAt.Equal(used) {
		t.Errorf("LastUsedAt = %v, want %v", k2.LastUsedAt, used)
	}
}

func TestEnvelopeOmitsEmptyFields(t *testing.T) {
	b, err := json.Marshal(Envelope{Success: false, Error: "Invalid API key"})
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}

	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}

	if m["success"] != false {
		t.Errorf("success = %v, want false", m["success"])
	}
	if _, ok := m["data"]; ok {
		t.Error("expected data to be omitted")
	}
	if _, ok := m["message"]; ok {
		t.Error("expected message to be omitted")
	}
	if m["error"] != "Invalid API key" {
		t.Errorf("error = %v, want %q", m["error"], "Invalid API key")
	}
}

func TestRepoSummaryJSONFieldNames(t *testing.T) {
	b, err := json.Marshal(RepoSummary{Summary: "s", CoolFacts: []string{"a"}})
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	want := `{"summary":"s","cool_facts":["a"]}`
	if string(b) != want {
		t.Errorf("got %s, want %s", b, want)
	}
}

package domain

import (
	"encoding/json"
	"testing"
)

func decode(t *testing.T, raw string) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	return m
}

func TestPayloadStringSnakeAndCamel(t *testing.T) {
	m := decode(t, `{"campaignId": "c-77", "lead_email": "a@b.co"}`)

	if got := PayloadString(m, "campaign_id"); got != "c-77" {
		t.Errorf("campaign_id via camel = %q, want c-77", got)
	}
	if got := PayloadString(m, "lead_email"); got != "a@b.co" {
		t.Errorf("lead_email = %q, want a@b.co", got)
	}
	if got := PayloadString(m, "missing", "also_missing"); got != "" {
		t.Errorf("missing keys = %q, want empty", got)
	}
}

func TestPayloadStringNumbers(t *testing.T) {
	m := decode(t, `{"campaign_id": 12345, "score": 1.5}`)

	if got := PayloadString(m, "campaign_id"); got != "12345" {
		t.Errorf("numeric id = %q, want 12345", got)
	}
	if got := PayloadString(m, "score"); got != "1.5" {
		t.Errorf("float = %q, want 1.5", got)
	}
}

func TestPayloadStringFirstKeyWins(t *testing.T) {
	m := decode(t, `{"event_id": "evt-1", "id": "raw-2"}`)
	if got := PayloadString(m, "event_id", "id"); got != "evt-1" {
		t.Errorf("got %q, want evt-1", got)
	}
}

func TestPayloadInt(t *testing.T) {
	m := decode(t, `{"sequence_step": 3, "stepNumber": "7", "bad": "x"}`)

	if n, ok := PayloadInt(m, "sequence_step"); !ok || n != 3 {
		t.Errorf("sequence_step = %d/%v, want 3/true", n, ok)
	}
	if n, ok := PayloadInt(m, "step_number"); !ok || n != 7 {
		t.Errorf("step_number via camel = %d/%v, want 7/true", n, ok)
	}
	if _, ok := PayloadInt(m, "bad"); ok {
		t.Error("non-numeric string should not parse")
	}
	if _, ok := PayloadInt(m, "absent"); ok {
		t.Error("absent key should not parse")
	}
}

func TestPayloadMap(t *testing.T) {
	m := decode(t, `{"resource": {"id": "psc_1"}, "dateCreated": "2026-01-01"}`)

	res := PayloadMap(m, "resource")
	if res == nil {
		t.Fatal("resource map missing")
	}
	if got := PayloadString(res, "id"); got != "psc_1" {
		t.Errorf("resource.id = %q, want psc_1", got)
	}
	if PayloadMap(m, "date_created") != nil {
		t.Error("scalar value must not be returned as a map")
	}
}

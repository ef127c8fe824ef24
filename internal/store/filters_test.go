package store

import (
	"encoding/json"
	"testing"
)

func TestMatches(t *testing.T) {
	payload := json.RawMessage(
		`{"id":"wo-1","status":"open","priority":"high","due_date":"2020-06-01T00:00:00Z","latitude":40.0,"longitude":-74.0}`)
	noDue := json.RawMessage(`{"id":"wo-2","status":"open","priority":"low"}`)

	tests := []struct {
		name    string
		where   []Cond
		payload json.RawMessage
		want    bool
	}{
		{"equality hit", []Cond{Eq("status", "open")}, payload, true},
		{"equality miss", []Cond{Eq("status", "completed")}, payload, false},
		{"range hit", []Cond{Before("due_date", int64(1893456000000))}, payload, true},
		{"range miss", []Cond{Before("due_date", int64(0))}, payload, false},
		{"range on missing value", []Cond{Before("due_date", int64(1893456000000))}, noDue, false},
		{"membership hit", []Cond{In("status", "open", "in_progress")}, payload, true},
		{"membership miss", []Cond{In("status", "completed", "cancelled")}, payload, false},
		{"empty membership", []Cond{In("status")}, payload, false},
		{"not null hit", []Cond{NotNull("latitude")}, payload, true},
		{"not null miss", []Cond{NotNull("latitude")}, noDue, false},
		{"conjunction", []Cond{Eq("status", "open"), Eq("priority", "high")}, payload, true},
		{"conjunction one fails", []Cond{Eq("status", "open"), Eq("priority", "low")}, payload, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Matches(WorkOrders, tt.where, tt.payload)
			if err != nil {
				t.Fatalf("matches: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMatchesRejectsUnknownColumn(t *testing.T) {
	payload := json.RawMessage(`{"id":"wo-1","status":"open"}`)
	if _, err := Matches(WorkOrders, []Cond{Eq("nope", "x")}, payload); err == nil {
		t.Fatal("expected error for unknown column")
	}
}

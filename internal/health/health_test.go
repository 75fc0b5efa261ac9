package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"alertwatcher/internal/models"
)

func TestRecorderPingAlwaysOK(t *testing.T) {
	r := NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health/ping", nil)
	w := httptest.NewRecorder()
	r.Mux().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if w.Body.String() != "ok" {
		t.Fatalf("body = %q, want ok", w.Body.String())
	}
}

func TestRecorderDetailedBeforeAnyCycle(t *testing.T) {
	r := NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health/detailed", nil)
	w := httptest.NewRecorder()
	r.Mux().ServeHTTP(w, req)

	var snap Snapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.CyclesCompleted != 0 || snap.LastCycle != nil {
		t.Fatalf("expected no cycles recorded yet, got %+v", snap)
	}
}

func TestRecorderAccumulatesTotalsAcrossCycles(t *testing.T) {
	r := NewRecorder()

	r.Record(models.CycleStats{
		CycleID: "c1", StartedAt: time.Now(),
		Fetched: 10, Deduped: 8, Classified: 6, Enriched: 4,
		AlertsSent: 2, AlertsFailed: 1,
		BySource:   map[string]int{"prnewswire": 10},
		ByCategory: map[string]int{"fda": 2},
	})
	r.Record(models.CycleStats{
		CycleID: "c2", StartedAt: time.Now(),
		Fetched: 5, AlertsSent: 1,
	})

	req := httptest.NewRequest(http.MethodGet, "/health/detailed", nil)
	w := httptest.NewRecorder()
	r.Mux().ServeHTTP(w, req)

	var snap Snapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.CyclesCompleted != 2 {
		t.Fatalf("cycles_completed = %d, want 2", snap.CyclesCompleted)
	}
	if snap.Totals.Fetched != 15 || snap.Totals.AlertsSent != 3 {
		t.Fatalf("totals = %+v, want fetched=15 alerts_sent=3", snap.Totals)
	}
	if snap.LastCycle == nil || snap.LastCycleID != "c2" {
		t.Fatalf("last cycle = %+v, want c2", snap.LastCycle)
	}
}

// Package health exposes the two operability endpoints spec.md §6 calls
// "standard for operability": a trivial liveness ping and a JSON snapshot
// of the last cycle's stats, uptime and error counts. Neither endpoint
// drives pipeline logic; both are read-only views over state the
// orchestrator already computes.
package health

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"alertwatcher/internal/models"
)

// Snapshot is the JSON body served by /health/detailed.
type Snapshot struct {
	Status          string            `json:"status"`
	UptimeSeconds   float64           `json:"uptime_seconds"`
	LastCycleID     string            `json:"last_cycle_id,omitempty"`
	LastCycleAt     time.Time         `json:"last_cycle_at,omitempty"`
	CyclesCompleted int64             `json:"cycles_completed"`
	LastCycle       *CycleSummary     `json:"last_cycle,omitempty"`
	Totals          CycleSummary      `json:"totals"`
	BySource        map[string]int    `json:"by_source,omitempty"`
	ByCategory      map[string]int    `json:"by_category,omitempty"`
}

// CycleSummary mirrors the scalar counters of models.CycleStats, dropping
// the maps (surfaced separately on Snapshot so repeated cycles can be
// summed without double-counting).
type CycleSummary struct {
	Fetched      int `json:"fetched"`
	Deduped      int `json:"deduped"`
	Classified   int `json:"classified"`
	Enriched     int `json:"enriched"`
	AlertsSent   int `json:"alerts_sent"`
	AlertsFailed int `json:"alerts_failed"`
	DroppedError int `json:"dropped_error"`
}

func summaryOf(s models.CycleStats) CycleSummary {
	return CycleSummary{
		Fetched:      s.Fetched,
		Deduped:      s.Deduped,
		Classified:   s.Classified,
		Enriched:     s.Enriched,
		AlertsSent:   s.AlertsSent,
		AlertsFailed: s.AlertsFailed,
		DroppedError: s.DroppedError,
	}
}

// Recorder accumulates the last cycle's stats plus running totals. A
// single Recorder is created at process start and passed to the
// orchestrator as Deps.OnCycle; the HTTP handlers below only ever read it.
type Recorder struct {
	startedAt time.Time

	mu         sync.Mutex
	cyclesDone int64
	last       models.CycleStats
	haveLast   bool
	totals     CycleSummary
}

func NewRecorder() *Recorder {
	return &Recorder{startedAt: time.Now()}
}

// Record is the func value to hand to orchestrator.Deps.OnCycle.
func (r *Recorder) Record(stats models.CycleStats) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cyclesDone++
	r.last = stats
	r.haveLast = true

	s := summaryOf(stats)
	r.totals.Fetched += s.Fetched
	r.totals.Deduped += s.Deduped
	r.totals.Classified += s.Classified
	r.totals.Enriched += s.Enriched
	r.totals.AlertsSent += s.AlertsSent
	r.totals.AlertsFailed += s.AlertsFailed
	r.totals.DroppedError += s.DroppedError
}

// CyclesCompleted reports how many cycles have been recorded so far,
// mostly for the heartbeat log line.
func (r *Recorder) CyclesCompleted() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cyclesDone
}

func (r *Recorder) snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := Snapshot{
		Status:          "ok",
		UptimeSeconds:   time.Since(r.startedAt).Seconds(),
		CyclesCompleted: r.cyclesDone,
		Totals:          r.totals,
	}
	if r.haveLast {
		summary := summaryOf(r.last)
		snap.LastCycle = &summary
		snap.LastCycleID = r.last.CycleID
		snap.LastCycleAt = r.last.StartedAt
		snap.BySource = r.last.BySource
		snap.ByCategory = r.last.ByCategory
	}
	return snap
}

// Mux builds the /health/ping and /health/detailed handlers on a fresh
// mux, ready to be served directly or mounted under a larger one.
func (r *Recorder) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/ping", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/health/detailed", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(r.snapshot())
	})
	return mux
}

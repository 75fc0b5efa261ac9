// Package weights loads the DynamicWeights snapshot the classifier consumes
// at the start of every cycle. The snapshot is owned by an external
// collaborator (a backtesting/feedback job, per spec.md's scope note); this
// package only ever reads it.
package weights

import (
	"encoding/json"
	"os"
	"sync"

	"alertwatcher/internal/errs"
	"alertwatcher/internal/models"
)

// fileSchema is the on-disk representation: category -> weight. Weights are
// used as-is, with no range check or clamping. Unknown categories are
// accepted as-is; the classifier decides what to do with a category it
// doesn't recognize.
type fileSchema struct {
	Baseline float64            `json:"baseline"`
	Weights  map[string]float64 `json:"weights"`
}

// Loader caches the last-loaded snapshot and reloads from disk once per
// cycle. It never blocks the orchestrator on a write in progress elsewhere:
// a read of a partially-written file falls back to the previous snapshot.
type Loader struct {
	path string

	mu       sync.Mutex
	current  models.DynamicWeights
	loadedOk bool
}

// NewLoader returns a Loader reading from path. Call Reload once per cycle
// before classification begins; Current is safe to call concurrently from
// enrichment/classification workers.
func NewLoader(path string) *Loader {
	return &Loader{
		path: path,
		current: models.DynamicWeights{
			Weights:  map[string]float64{},
			Baseline: 0.50,
		},
	}
}

// Reload re-reads the weights file. If the file is missing or malformed, the
// previously loaded snapshot (or the 0.50-baseline zero value on first run)
// is kept and an error is returned (DataGap kind for an unreadable file,
// Parse kind for a malformed one) so the orchestrator can log it without
// aborting the cycle. A file that is missing before any successful load
// is not an error.
func (l *Loader) Reload() error {
	b, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) && !l.loadedOk {
			// No snapshot has ever existed; this is expected on a fresh
			// deployment, not a gap.
			return nil
		}
		return errs.Wrap(errs.DataGap, "read weights file", err)
	}

	var fs fileSchema
	if err := json.Unmarshal(b, &fs); err != nil {
		return errs.Wrap(errs.Parse, "parse weights file", err)
	}
	if fs.Baseline <= 0 {
		fs.Baseline = 0.50
	}
	if fs.Weights == nil {
		fs.Weights = map[string]float64{}
	}

	l.mu.Lock()
	l.current = models.DynamicWeights{Weights: fs.Weights, Baseline: fs.Baseline}
	l.loadedOk = true
	l.mu.Unlock()
	return nil
}

// Current returns the last successfully loaded snapshot.
func (l *Loader) Current() models.DynamicWeights {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current
}

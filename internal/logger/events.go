package logger

import (
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"
)

// Event is one structured line appended to events.log (spec.md §6). Stage
// boundaries call EventLogger.Log with a stable reason tag so that cycle
// failures never escape silently.
type Event struct {
	Time    time.Time      `json:"time"`
	Stage   string         `json:"stage"`
	Reason  string         `json:"reason,omitempty"`
	CycleID string         `json:"cycle_id,omitempty"`
	Fields  map[string]any `json:"fields,omitempty"`
}

// EventLogger writes newline-delimited JSON events to a destination writer,
// usually a Rotator fanned out to stdout as well.
type EventLogger struct {
	mu  sync.Mutex
	out io.Writer
}

// NewEventLogger opens (or creates) filename as a size-rotated JSONL sink
// and mirrors every event to stdout, matching the plain text logger's
// io.MultiWriter(os.Stdout, rotator) pattern.
func NewEventLogger(filename string, maxSizeMB int64, maxBackups int) (*EventLogger, error) {
	rotator := &Rotator{
		Filename:   filename,
		MaxSize:    maxSizeMB * 1024 * 1024,
		MaxBackups: maxBackups,
	}
	if err := rotator.openExistingOrNew(); err != nil {
		return nil, err
	}
	return &EventLogger{out: io.MultiWriter(os.Stdout, rotator)}, nil
}

// Log appends one event as a single JSON line. Marshal failures are
// swallowed — logging must never be allowed to abort a cycle.
func (l *EventLogger) Log(stage, reason, cycleID string, fields map[string]any) {
	ev := Event{
		Time:    time.Now().UTC(),
		Stage:   stage,
		Reason:  reason,
		CycleID: cycleID,
		Fields:  fields,
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return
	}
	b = append(b, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = l.out.Write(b)
}

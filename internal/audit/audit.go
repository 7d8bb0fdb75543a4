// Package audit emits one JSONL event per answered question so every result
// can be traced back to the question, responder, and confidence that
// produced it. Emission is best-effort: an unwritable sink degrades to log
// output and never blocks answering.
package audit

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"trustaid/internal/confidence"
	"trustaid/internal/logging"
)

// idLength is the number of hex characters kept from the underlying UUID.
const idLength = 12

// Event is one line of the JSONL sink.
type Event struct {
	AuditID    string `json:"audit_id"`
	Event      string `json:"event"`
	Timestamp  string `json:"ts"`
	Question   string `json:"question,omitempty"`
	Kind       string `json:"kind,omitempty"`
	Confidence string `json:"confidence,omitempty"`
	LatencyMS  int64  `json:"latency_ms,omitempty"`
}

// Auditor appends events to a JSONL file. Safe for concurrent use.
type Auditor struct {
	mu   sync.Mutex
	path string
}

// New creates an auditor writing to path. An empty path disables the file
// sink; ids are still issued.
func New(path string) *Auditor {
	return &Auditor{path: path}
}

// Path returns the sink location, empty when disabled.
func (a *Auditor) Path() string { return a.path }

// NewID derives a fresh audit id: the first 12 hex characters of a UUIDv4.
func NewID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:idLength]
}

// Start issues an audit id for a question and records the start event.
func (a *Auditor) Start(question string) string {
	id := NewID()
	a.append(Event{
		AuditID:   id,
		Event:     "start",
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Question:  question,
	})
	return id
}

// Finish records the outcome for a previously issued id.
func (a *Auditor) Finish(id, kind string, conf confidence.Confidence, latency time.Duration) {
	a.append(Event{
		AuditID:    id,
		Event:      "finish",
		Timestamp:  time.Now().UTC().Format(time.RFC3339Nano),
		Kind:       kind,
		Confidence: conf.Level.String(),
		LatencyMS:  latency.Milliseconds(),
	})
}

func (a *Auditor) append(ev Event) {
	line, err := json.Marshal(ev)
	if err != nil {
		logging.Get(logging.CategoryAudit).Error("Failed to encode event: %v", err)
		return
	}
	if a.path == "" {
		logging.Get(logging.CategoryAudit).Debug("%s", line)
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if dir := filepath.Dir(a.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logging.Get(logging.CategoryAudit).Error("Failed to create sink dir: %v", err)
			return
		}
	}
	f, err := os.OpenFile(a.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		logging.Get(logging.CategoryAudit).Error("Failed to open sink: %v", err)
		return
	}
	defer f.Close()
	if _, err := f.Write(append(line, '\n')); err != nil {
		logging.Get(logging.CategoryAudit).Error("Failed to append event: %v", err)
	}
}

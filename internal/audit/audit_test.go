package audit

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"trustaid/internal/confidence"
)

var idPattern = regexp.MustCompile(`^[0-9a-f]{12}$`)

func TestNewIDShape(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 64; i++ {
		id := NewID()
		if !idPattern.MatchString(id) {
			t.Fatalf("NewID() = %q, want 12 lowercase hex chars", id)
		}
		if seen[id] {
			t.Fatalf("NewID() repeated %q", id)
		}
		seen[id] = true
	}
}

func TestStartFinishWritesEvents(t *testing.T) {
	sink := filepath.Join(t.TempDir(), "audit.jsonl")
	a := New(sink)

	id := a.Start("How do I apply for a Home Care Package?")
	a.Finish(id, "navigator", confidence.New(confidence.High, 0.9), 1500*time.Millisecond)

	f, err := os.Open(sink)
	if err != nil {
		t.Fatalf("open sink: %v", err)
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var ev Event
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			t.Fatalf("line %d not JSON: %v", len(events)+1, err)
		}
		events = append(events, ev)
	}
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}

	start, finish := events[0], events[1]
	if start.Event != "start" || start.AuditID != id {
		t.Errorf("start event = %+v", start)
	}
	if start.Question == "" {
		t.Errorf("start event missing question")
	}
	if finish.Event != "finish" || finish.AuditID != id {
		t.Errorf("finish event = %+v", finish)
	}
	if finish.Kind != "navigator" {
		t.Errorf("Kind = %q, want navigator", finish.Kind)
	}
	if finish.Confidence != "high" {
		t.Errorf("Confidence = %q, want high", finish.Confidence)
	}
	if finish.LatencyMS != 1500 {
		t.Errorf("LatencyMS = %d, want 1500", finish.LatencyMS)
	}
}

func TestDisabledSinkStillIssuesIDs(t *testing.T) {
	a := New("")
	id := a.Start("anything")
	if !idPattern.MatchString(id) {
		t.Errorf("Start() = %q, want 12 lowercase hex chars", id)
	}
	a.Finish(id, "trustbot", confidence.New(confidence.Exact, 1.0), time.Millisecond)
}

func TestSinkDirectoryCreated(t *testing.T) {
	sink := filepath.Join(t.TempDir(), "nested", "dir", "audit.jsonl")
	a := New(sink)
	a.Start("q")
	if _, err := os.Stat(sink); err != nil {
		t.Errorf("sink not created: %v", err)
	}
}

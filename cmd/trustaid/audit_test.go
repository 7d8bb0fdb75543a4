package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
)

// syncBuffer is a goroutine-safe writer for the tail goroutine.
type syncBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestTailFileFollowsAppends(t *testing.T) {
	// Linked libraries start long-lived goroutines at init; only the
	// watcher's own goroutines are under test.
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	path := filepath.Join(t.TempDir(), "audit.jsonl")
	if err := os.WriteFile(path, []byte("first\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	out := &syncBuffer{}
	done := make(chan error, 1)
	go func() { done <- tailFile(ctx, path, out) }()

	waitFor(t, 2*time.Second, func() bool {
		return strings.Contains(out.String(), "first")
	})

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString("second\n"); err != nil {
		t.Fatal(err)
	}
	f.Close()

	waitFor(t, 2*time.Second, func() bool {
		return strings.Contains(out.String(), "second")
	})

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("tailFile() = %v, want nil on cancel", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("tailFile did not return after cancel")
	}
}

func TestTailFilePicksUpLateCreation(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	path := filepath.Join(t.TempDir(), "audit.jsonl")

	ctx, cancel := context.WithCancel(context.Background())
	out := &syncBuffer{}
	done := make(chan error, 1)
	go func() { done <- tailFile(ctx, path, out) }()

	// Give the watcher a moment to attach before the file appears.
	time.Sleep(50 * time.Millisecond)
	if err := os.WriteFile(path, []byte("created\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	waitFor(t, 2*time.Second, func() bool {
		return strings.Contains(out.String(), "created")
	})

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("tailFile() = %v, want nil on cancel", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("tailFile did not return after cancel")
	}
}

package orchestrator

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"trustaid/internal/audit"
	"trustaid/internal/confidence"
	"trustaid/internal/navigator"
	"trustaid/internal/retrieval"
	"trustaid/internal/store"
	"trustaid/internal/synthesis"
	"trustaid/internal/trustbot"
)

// newCore wires real components end to end: lexical retrieval over the
// built-in corpus, template synthesis (no provider), canned SQL generation,
// and a seeded temp data store.
func newCore(t *testing.T) *Orchestrator {
	t.Helper()

	ds, err := store.NewDataStore(filepath.Join(t.TempDir(), "data.db"))
	require.NoError(t, err)
	t.Cleanup(func() { ds.Close() })

	engine := retrieval.NewEngine(retrieval.EngineConfig{TopK: 3, ForceLexical: true})
	nav := navigator.New(engine, synthesis.New(nil))
	bot := trustbot.New(trustbot.NewGenerator(nil, true), ds)

	return New(Config{
		Navigator: nav,
		Trustbot:  bot,
		Auditor:   audit.New(filepath.Join(t.TempDir(), "audit.jsonl")),
		Engine:    engine,
		Payments:  ds,
	})
}

func TestAnswerInformationalEndToEnd(t *testing.T) {
	o := newCore(t)

	got := o.Answer(context.Background(), Query{
		Text: "What is the Carer Allowance eligibility process?",
	})

	if got.Kind != navigator.Kind {
		t.Fatalf("Kind = %q, want %q", got.Kind, navigator.Kind)
	}
	if got.Confidence.Level == confidence.None {
		t.Errorf("Confidence.Level = none, want better")
	}
	if got.Navigator == nil {
		t.Fatal("Navigator payload missing")
	}
	found := false
	for _, c := range got.Navigator.Citations {
		if strings.Contains(c.URL, "servicesaustralia.gov.au") {
			found = true
		}
	}
	if !found {
		t.Errorf("citations %+v missing the Carer Allowance source", got.Navigator.Citations)
	}
	if got.Mode != "lexical" {
		t.Errorf("Mode = %q, want lexical", got.Mode)
	}
}

func TestAnswerAnalyticEndToEnd(t *testing.T) {
	o := newCore(t)

	got := o.Answer(context.Background(), Query{Text: "average vendor payment Q2"})

	if got.Kind != trustbot.Kind {
		t.Fatalf("Kind = %q, want %q", got.Kind, trustbot.Kind)
	}
	if got.Confidence.Level != confidence.Exact {
		t.Errorf("Confidence.Level = %v, want exact", got.Confidence.Level)
	}
	if got.Trustbot == nil {
		t.Fatal("Trustbot payload missing")
	}
	cols := got.Trustbot.Table.Columns
	hasVendor, hasAmount := false, false
	for _, c := range cols {
		switch c {
		case "vendor":
			hasVendor = true
		case "amount":
			hasAmount = true
		}
	}
	if !hasVendor || !hasAmount {
		t.Errorf("columns = %v, want vendor and amount present", cols)
	}
	if len(got.Trustbot.Table.Rows) == 0 {
		t.Errorf("no rows returned from seeded store")
	}
}

func TestStatusSnapshot(t *testing.T) {
	o := newCore(t)

	s := o.Status()

	if s.Backend != "lexical" {
		t.Errorf("Backend = %q, want lexical", s.Backend)
	}
	if s.CorpusSize != 2 {
		t.Errorf("CorpusSize = %d, want 2", s.CorpusSize)
	}
	if s.Payments != 3 {
		t.Errorf("Payments = %d, want 3", s.Payments)
	}
	if s.Generation {
		t.Errorf("Generation = true, want false without a provider")
	}
	if s.AuditSink == "" {
		t.Errorf("AuditSink empty")
	}
}

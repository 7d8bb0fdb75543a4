package navigator

import (
	"context"
	"strings"
	"testing"

	"trustaid/internal/confidence"
	"trustaid/internal/retrieval"
	"trustaid/internal/synthesis"
)

type emptyRetriever struct{}

func (emptyRetriever) Retrieve(ctx context.Context, question string) []retrieval.Evidence {
	return nil
}

func (emptyRetriever) State() retrieval.Backend { return retrieval.BackendLexical }

func TestAnswerWithEvidence(t *testing.T) {
	engine := retrieval.NewEngine(retrieval.EngineConfig{ForceLexical: true})
	nav := New(engine, synthesis.New(nil))
	got := nav.Answer(context.Background(), "What is the Carer Allowance eligibility process?")

	if got.Kind != Kind {
		t.Errorf("kind = %q, want navigator", got.Kind)
	}
	if got.Mode != "lexical" {
		t.Errorf("mode = %q, want lexical", got.Mode)
	}
	if len(got.Evidence) == 0 {
		t.Fatal("no evidence attached")
	}
	if got.Evidence[0].Title != "Carer Allowance" {
		t.Errorf("top evidence = %q, want Carer Allowance", got.Evidence[0].Title)
	}
	if got.Confidence.Level == confidence.None {
		t.Errorf("confidence = %v, want non-none", got.Confidence)
	}
	found := false
	for _, c := range got.Citations {
		if strings.Contains(c.URL, "servicesaustralia") {
			found = true
		}
	}
	if !found {
		t.Errorf("citations %v missing Services Australia URL", got.Citations)
	}
}

func TestAnswerEmptyEvidenceSkipsSynthesis(t *testing.T) {
	nav := New(emptyRetriever{}, synthesis.New(&panicClient{t}))
	got := nav.Answer(context.Background(), "anything at all")

	if got.Answer != noEvidenceAnswer {
		t.Errorf("answer = %q, want the fixed no-evidence answer", got.Answer)
	}
	if got.Confidence.Level != confidence.Low || got.Confidence.Score != 0.2 {
		t.Errorf("confidence = %v, want low(0.20)", got.Confidence)
	}
	if len(got.Evidence) != 0 {
		t.Errorf("evidence = %v, want empty", got.Evidence)
	}
}

// panicClient fails the test if synthesis ever reaches the provider.
type panicClient struct {
	t *testing.T
}

func (p *panicClient) Complete(ctx context.Context, prompt string) (string, error) {
	p.t.Fatal("synthesis must not run on empty evidence")
	return "", nil
}

func (p *panicClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return p.Complete(ctx, userPrompt)
}

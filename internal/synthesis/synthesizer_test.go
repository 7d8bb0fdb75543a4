package synthesis

import (
	"context"
	"errors"
	"testing"

	"trustaid/internal/confidence"
	"trustaid/internal/retrieval"
)

type fakeClient struct {
	reply string
	err   error
	calls int
}

func (f *fakeClient) Complete(ctx context.Context, prompt string) (string, error) {
	return f.CompleteWithSystem(ctx, "", prompt)
}

func (f *fakeClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	f.calls++
	return f.reply, f.err
}

func sampleEvidence() []retrieval.Evidence {
	return []retrieval.Evidence{
		{Title: "Carer Allowance", URL: "https://www.servicesaustralia.gov.au/", Similarity: 0.9, Snippet: "Carer Allowance is a fortnightly supplement."},
		{Title: "Home Care Packages Overview", URL: "https://www.myagedcare.gov.au/", Similarity: 0.4, Snippet: "Home Care Packages help older people."},
	}
}

func TestSynthesizeHappyPath(t *testing.T) {
	c := &fakeClient{reply: `{
		"answer": "You may be eligible for Carer Allowance.",
		"steps": [{"title": "Check eligibility", "link": "https://www.servicesaustralia.gov.au/"}],
		"citations": [{"title": "Carer Allowance", "url": "https://www.servicesaustralia.gov.au/"}],
		"confidence": {"level": "high", "score": 0.9}
	}`}
	got := New(c).Synthesize(context.Background(), "carer allowance?", sampleEvidence())

	if got.Answer != "You may be eligible for Carer Allowance." {
		t.Errorf("answer = %q", got.Answer)
	}
	if got.Confidence.Level != confidence.High || got.Confidence.Score != 0.9 {
		t.Errorf("confidence = %v", got.Confidence)
	}
	if len(got.Steps) != 1 || len(got.Citations) != 1 {
		t.Errorf("steps=%d citations=%d, want 1 and 1", len(got.Steps), len(got.Citations))
	}
}

func TestSynthesizeNilClientUsesTemplate(t *testing.T) {
	got := New(nil).Synthesize(context.Background(), "q", sampleEvidence())

	if got.Answer != templateAnswer {
		t.Errorf("answer = %q, want template", got.Answer)
	}
	if got.Confidence.Level != confidence.High || got.Confidence.Score != 0.7 {
		t.Errorf("confidence = %v, want high(0.70)", got.Confidence)
	}
	if len(got.Steps) != 2 {
		t.Fatalf("steps = %d, want one per evidence item", len(got.Steps))
	}
	if got.Steps[0].Title != "Check: Carer Allowance" {
		t.Errorf("step title = %q", got.Steps[0].Title)
	}
}

func TestSynthesizeProviderErrorUsesTemplate(t *testing.T) {
	c := &fakeClient{err: errors.New("quota exceeded")}
	got := New(c).Synthesize(context.Background(), "q", sampleEvidence())

	if got.Answer != templateAnswer {
		t.Errorf("answer = %q, want template", got.Answer)
	}
	if got.Confidence.Score != 0.7 {
		t.Errorf("confidence = %v, want high(0.70)", got.Confidence)
	}
}

func TestSynthesizeMalformedJSONUsesTemplate(t *testing.T) {
	c := &fakeClient{reply: "sorry, I can't do JSON today"}
	got := New(c).Synthesize(context.Background(), "q", sampleEvidence())

	if got.Answer != templateAnswer {
		t.Errorf("answer = %q, want template", got.Answer)
	}
}

func TestSynthesizeWrongTypedConfidenceUsesTemplate(t *testing.T) {
	// Numeric level is a type error under the strict schema, not a guess.
	c := &fakeClient{reply: `{"answer": "ok", "confidence": {"level": 3, "score": 0.9}}`}
	got := New(c).Synthesize(context.Background(), "q", sampleEvidence())

	if got.Answer != templateAnswer {
		t.Errorf("answer = %q, want template", got.Answer)
	}
}

func TestSynthesizeMissingConfidenceDefaultsHigh(t *testing.T) {
	c := &fakeClient{reply: `{"answer": "Based on the evidence, apply online."}`}
	got := New(c).Synthesize(context.Background(), "q", sampleEvidence())

	if got.Answer != "Based on the evidence, apply online." {
		t.Errorf("answer = %q", got.Answer)
	}
	if got.Confidence.Level != confidence.High || got.Confidence.Score != 0.8 {
		t.Errorf("confidence = %v, want high(0.80)", got.Confidence)
	}
}

func TestSynthesizeBlankAnswerKeepsProviderCitations(t *testing.T) {
	c := &fakeClient{reply: `{
		"answer": "  ",
		"citations": [{"title": "Provider Pick", "url": "https://example.gov.au/"}],
		"confidence": {"level": "low", "score": 0.3}
	}`}
	got := New(c).Synthesize(context.Background(), "q", sampleEvidence())

	if got.Answer != templateAnswer {
		t.Errorf("answer = %q, want template", got.Answer)
	}
	if len(got.Steps) == 0 {
		t.Error("blank answer should get template steps")
	}
	if len(got.Citations) != 1 || got.Citations[0].Title != "Provider Pick" {
		t.Errorf("citations = %v, want provider's kept", got.Citations)
	}
	if got.Confidence.Level != confidence.Low {
		t.Errorf("confidence level = %v, want provider's low kept", got.Confidence.Level)
	}
}

func TestSynthesizeScoreClamped(t *testing.T) {
	c := &fakeClient{reply: `{"answer": "ok", "confidence": {"level": "high", "score": 7.5}}`}
	got := New(c).Synthesize(context.Background(), "q", sampleEvidence())

	if got.Confidence.Score != 1.0 {
		t.Errorf("score = %v, want clamped to 1.0", got.Confidence.Score)
	}
}

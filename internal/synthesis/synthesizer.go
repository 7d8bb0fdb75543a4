// Package synthesis turns retrieved evidence into a structured answer using
// the generative-completion capability. Every provider failure degrades to a
// deterministic template; the synthesizer never surfaces a provider error.
package synthesis

import (
	"context"
	"fmt"
	"strings"

	"trustaid/internal/confidence"
	"trustaid/internal/llm"
	"trustaid/internal/logging"
	"trustaid/internal/retrieval"
)

// Step is one recommended action.
type Step struct {
	Title string `json:"title"`
	Link  string `json:"link,omitempty"`
}

// Citation points at a source document.
type Citation struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Answer is the synthesized result. It is always well-formed, even when the
// provider failed.
type Answer struct {
	Answer     string                `json:"answer"`
	Steps      []Step                `json:"steps"`
	Citations  []Citation            `json:"citations"`
	Confidence confidence.Confidence `json:"confidence"`
}

// digestSize is how many evidence items feed the prompt and the template.
const digestSize = 3

const systemInstruction = `You are TrustAid Navigator, an assistant for Australian government services.
Answer using ONLY the supplied evidence. Be clear and actionable.
If the evidence is insufficient, say exactly what is missing and recommend the best official next step.
Return strict JSON: {"answer": string, "steps": [{"title": string, "link": string}], "citations": [{"title": string, "url": string}], "confidence": {"level": "none"|"low"|"high"|"exact", "score": number 0..1}}.`

// templateAnswer is the deterministic degraded answer text.
const templateAnswer = "Here are recommended steps based on official sources:"

// Synthesizer builds answers from evidence. A nil client is valid and means
// the template path is always taken.
type Synthesizer struct {
	client llm.Client
}

// New creates a synthesizer.
func New(client llm.Client) *Synthesizer {
	return &Synthesizer{client: client}
}

// wireAnswer is the strict decode target for provider output. Missing fields
// default to zero values; a missing confidence gets a fixed high default.
// Wrong-typed fields fail the decode, which takes the template path.
type wireAnswer struct {
	Answer     string                 `json:"answer"`
	Steps      []Step                 `json:"steps"`
	Citations  []Citation             `json:"citations"`
	Confidence *confidence.Confidence `json:"confidence"`
}

// Synthesize produces an answer from the question and evidence. The caller
// is expected to have short-circuited the empty-evidence case already; given
// no evidence this still degrades safely to the template.
func (s *Synthesizer) Synthesize(ctx context.Context, question string, evidence []retrieval.Evidence) Answer {
	timer := logging.StartTimer(logging.CategorySynthesis, "Synthesize")
	defer timer.Stop()

	top := evidence
	if len(top) > digestSize {
		top = top[:digestSize]
	}

	if s.client == nil {
		logging.SynthesisDebug("Completion client not configured; using template answer")
		return templateFor(top)
	}

	var wire wireAnswer
	err := llm.CompleteJSON(ctx, s.client, systemInstruction, buildPrompt(question, top), &wire)
	if err != nil {
		logging.Get(logging.CategorySynthesis).Warn("Provider synthesis failed, degrading to template: %v", err)
		return templateFor(top)
	}

	answer := Answer{
		Answer:    strings.TrimSpace(wire.Answer),
		Steps:     wire.Steps,
		Citations: wire.Citations,
	}
	if wire.Confidence != nil {
		answer.Confidence = confidence.New(wire.Confidence.Level, wire.Confidence.Score)
	} else {
		answer.Confidence = confidence.New(confidence.High, 0.8)
	}

	// A decodable reply with a blank answer gets the template text and
	// steps, keeping whatever citations and confidence the provider gave.
	if answer.Answer == "" {
		logging.SynthesisDebug("Provider returned blank answer; substituting template text")
		tmpl := templateFor(top)
		answer.Answer = tmpl.Answer
		answer.Steps = tmpl.Steps
		if len(answer.Citations) == 0 {
			answer.Citations = tmpl.Citations
		}
	}
	if answer.Steps == nil {
		answer.Steps = []Step{}
	}
	if answer.Citations == nil {
		answer.Citations = []Citation{}
	}

	logging.Synthesis("Synthesized answer: confidence=%s steps=%d citations=%d",
		answer.Confidence, len(answer.Steps), len(answer.Citations))
	return answer
}

// buildPrompt renders the evidence digest the provider is constrained to.
func buildPrompt(question string, top []retrieval.Evidence) string {
	var b strings.Builder
	b.WriteString("Question: ")
	b.WriteString(question)
	b.WriteString("\n\nEvidence:\n")
	if len(top) == 0 {
		b.WriteString("(no evidence)\n")
	}
	for _, ev := range top {
		fmt.Fprintf(&b, "- %s — %s :: %s\n", ev.Title, ev.URL, ev.Snippet)
	}
	return b.String()
}

// templateFor is the deterministic fallback: one step and one citation per
// top evidence item, fixed high-but-not-exact confidence.
func templateFor(top []retrieval.Evidence) Answer {
	steps := make([]Step, 0, len(top))
	citations := make([]Citation, 0, len(top))
	for _, ev := range top {
		steps = append(steps, Step{Title: "Check: " + ev.Title, Link: ev.URL})
		citations = append(citations, Citation{Title: ev.Title, URL: ev.URL})
	}
	return Answer{
		Answer:     templateAnswer,
		Steps:      steps,
		Citations:  citations,
		Confidence: confidence.New(confidence.High, 0.7),
	}
}

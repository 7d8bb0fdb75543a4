// Package navigator composes the retrieval engine and the answer synthesizer
// into the evidence-grounded responder.
package navigator

import (
	"context"

	"trustaid/internal/confidence"
	"trustaid/internal/logging"
	"trustaid/internal/retrieval"
	"trustaid/internal/synthesis"
)

// Kind is the responder tag carried on navigator results.
const Kind = "navigator"

// noEvidenceAnswer is the fixed terminal answer when retrieval finds nothing.
const noEvidenceAnswer = "I couldn't find solid evidence in the current document set."

// Result is the navigator's structured answer.
type Result struct {
	Kind       string                `json:"kind"`
	Answer     string                `json:"answer"`
	Steps      []synthesis.Step      `json:"steps"`
	Citations  []synthesis.Citation  `json:"citations"`
	Evidence   []retrieval.Evidence  `json:"evidence"`
	Confidence confidence.Confidence `json:"confidence"`
	Mode       string                `json:"mode"` // retrieval backend that served the request
}

// Retriever is the slice of the retrieval engine the navigator consumes.
type Retriever interface {
	Retrieve(ctx context.Context, question string) []retrieval.Evidence
	State() retrieval.Backend
}

// Navigator answers informational questions from retrieved evidence.
type Navigator struct {
	engine Retriever
	synth  *synthesis.Synthesizer
}

// New creates a navigator.
func New(engine Retriever, synth *synthesis.Synthesizer) *Navigator {
	return &Navigator{engine: engine, synth: synth}
}

// Answer retrieves evidence and synthesizes an answer. An empty evidence set
// skips synthesis entirely: that is a terminal low-confidence outcome, not
// an error.
func (n *Navigator) Answer(ctx context.Context, question string) Result {
	evidence := n.engine.Retrieve(ctx, question)
	mode := n.engine.State().String()

	if len(evidence) == 0 {
		logging.Get(logging.CategoryOrchestrator).Warn("No evidence for question; skipping synthesis")
		return Result{
			Kind:       Kind,
			Answer:     noEvidenceAnswer,
			Steps:      []synthesis.Step{},
			Citations:  []synthesis.Citation{},
			Evidence:   []retrieval.Evidence{},
			Confidence: confidence.New(confidence.Low, 0.2),
			Mode:       mode,
		}
	}

	answer := n.synth.Synthesize(ctx, question, evidence)
	return Result{
		Kind:       Kind,
		Answer:     answer.Answer,
		Steps:      answer.Steps,
		Citations:  answer.Citations,
		Evidence:   evidence,
		Confidence: answer.Confidence,
		Mode:       mode,
	}
}

// Package orchestrator routes a question to a responder, applies the single
// confidence-gated escalation hop, and stamps the result with its audit
// trail. It is the only package the CLI calls into; every internal failure
// surfaces here as a well-formed confidence-annotated result, never as an
// error.
package orchestrator

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"trustaid/internal/audit"
	"trustaid/internal/confidence"
	"trustaid/internal/logging"
	"trustaid/internal/navigator"
	"trustaid/internal/retrieval"
	"trustaid/internal/router"
	"trustaid/internal/trustbot"
)

// Bounds on the question text, enforced at the CLI boundary via Validate.
const (
	minQuestionRunes = 2
	maxQuestionRunes = 2000
)

var (
	ErrQuestionTooShort = errors.New("question is too short")
	ErrQuestionTooLong  = errors.New("question is too long")
)

// Query is one request into the core.
type Query struct {
	Text         string `json:"text"`
	Locale       string `json:"locale,omitempty"`
	Jurisdiction string `json:"jurisdiction,omitempty"`

	// ForcedKind overrides routing when it names a valid kind.
	ForcedKind string `json:"forced_kind,omitempty"`
}

// Validate checks the boundary constraints on the question text. The core
// itself does not call this; the CLI does, before Answer.
func (q Query) Validate() error {
	n := utf8.RuneCountInString(strings.TrimSpace(q.Text))
	if n < minQuestionRunes {
		return ErrQuestionTooShort
	}
	if n > maxQuestionRunes {
		return ErrQuestionTooLong
	}
	return nil
}

// Result is the final answer: exactly one responder payload is set, and the
// top-level Kind, Confidence, and Mode mirror that payload.
type Result struct {
	Kind       string                `json:"kind"`
	Navigator  *navigator.Result     `json:"navigator,omitempty"`
	Trustbot   *trustbot.Result      `json:"trustbot,omitempty"`
	Confidence confidence.Confidence `json:"confidence"`
	Mode       string                `json:"mode"`
	Escalated  bool                  `json:"escalated,omitempty"`
	AuditID    string                `json:"audit_id"`
	LatencyMS  int64                 `json:"latency_ms"`
}

// NavigatorResponder answers informational questions.
type NavigatorResponder interface {
	Answer(ctx context.Context, question string) navigator.Result
}

// TrustbotResponder answers analytic questions.
type TrustbotResponder interface {
	Answer(ctx context.Context, question string) trustbot.Result
}

// EngineStatus is the slice of the retrieval engine Status reports on.
type EngineStatus interface {
	State() retrieval.Backend
	CorpusSize() int
}

// PaymentCounter reports the data store row count for Status.
type PaymentCounter interface {
	PaymentCount() (int, error)
}

// Config wires the orchestrator's collaborators. Navigator, Trustbot, and
// Auditor are required; the rest only feed Status.
type Config struct {
	Navigator  NavigatorResponder
	Trustbot   TrustbotResponder
	Auditor    *audit.Auditor
	Engine     EngineStatus
	Payments   PaymentCounter
	Generation bool
}

// Orchestrator is the core entry point.
type Orchestrator struct {
	cfg Config
}

// New creates an orchestrator.
func New(cfg Config) *Orchestrator {
	return &Orchestrator{cfg: cfg}
}

// Answer routes the query and returns the final result. Two responder
// invocations at most: the primary, plus one escalation hop from a
// low-confidence navigator result to the trustbot. Analytic questions never
// escalate.
func (o *Orchestrator) Answer(ctx context.Context, q Query) Result {
	started := time.Now()
	auditID := o.cfg.Auditor.Start(q.Text)

	kind := o.resolveKind(q)
	logging.Orchestrator("Routing question: kind=%s audit=%s", kind, auditID)

	var result Result
	if kind == router.KindAnalytic {
		result = fromTrustbot(o.runTrustbot(ctx, q.Text))
	} else {
		nav := o.runNavigator(ctx, q.Text)
		result = fromNavigator(nav)
		if nav.Confidence.Level.Escalatable() {
			logging.Orchestrator("Escalating: navigator confidence %s", nav.Confidence.Level)
			bot := o.runTrustbot(ctx, q.Text)
			if bot.Confidence.Level.Escalatable() {
				logging.Orchestrator("Discarding escalation: trustbot confidence %s", bot.Confidence.Level)
			} else {
				result = fromTrustbot(bot)
				result.Escalated = true
			}
		}
	}

	elapsed := time.Since(started)
	result.AuditID = auditID
	result.LatencyMS = elapsed.Milliseconds()
	o.cfg.Auditor.Finish(auditID, result.Kind, result.Confidence, elapsed)
	return result
}

// resolveKind honors a valid forced kind and otherwise classifies. An
// invalid override is ignored, not an error.
func (o *Orchestrator) resolveKind(q Query) router.Kind {
	if q.ForcedKind != "" {
		if kind, ok := router.ParseKind(q.ForcedKind); ok {
			return kind
		}
		logging.Get(logging.CategoryOrchestrator).Warn("Ignoring invalid forced kind %q", q.ForcedKind)
	}
	return router.Classify(q.Text)
}

// runNavigator invokes the navigator, converting a panic to a none-confidence
// result so nothing escapes the core boundary.
func (o *Orchestrator) runNavigator(ctx context.Context, question string) (res navigator.Result) {
	defer func() {
		if r := recover(); r != nil {
			logging.Get(logging.CategoryOrchestrator).Error("Navigator panicked: %v", r)
			res = navigator.Result{
				Kind:       navigator.Kind,
				Answer:     "Something went wrong while answering.",
				Confidence: confidence.New(confidence.None, 0),
			}
		}
	}()
	return o.cfg.Navigator.Answer(ctx, question)
}

func (o *Orchestrator) runTrustbot(ctx context.Context, question string) (res trustbot.Result) {
	defer func() {
		if r := recover(); r != nil {
			logging.Get(logging.CategoryOrchestrator).Error("Trustbot panicked: %v", r)
			res = trustbot.Result{
				Kind:       trustbot.Kind,
				Answer:     "Something went wrong while answering.",
				Confidence: confidence.New(confidence.None, 0),
			}
		}
	}()
	return o.cfg.Trustbot.Answer(ctx, question)
}

func fromNavigator(r navigator.Result) Result {
	return Result{
		Kind:       r.Kind,
		Navigator:  &r,
		Confidence: r.Confidence,
		Mode:       r.Mode,
	}
}

func fromTrustbot(r trustbot.Result) Result {
	return Result{
		Kind:       r.Kind,
		Trustbot:   &r,
		Confidence: r.Confidence,
		Mode:       r.Mode,
	}
}

// Status is a point-in-time snapshot of the core for the status verb.
type Status struct {
	Backend    string `json:"backend"`
	CorpusSize int    `json:"corpus_size"`
	Payments   int    `json:"payments"`
	Generation bool   `json:"generation"`
	AuditSink  string `json:"audit_sink,omitempty"`
}

// Status reports backend state and store counts.
func (o *Orchestrator) Status() Status {
	s := Status{Generation: o.cfg.Generation}
	if o.cfg.Engine != nil {
		s.Backend = o.cfg.Engine.State().String()
		s.CorpusSize = o.cfg.Engine.CorpusSize()
	}
	if o.cfg.Payments != nil {
		if n, err := o.cfg.Payments.PaymentCount(); err == nil {
			s.Payments = n
		}
	}
	if o.cfg.Auditor != nil {
		s.AuditSink = o.cfg.Auditor.Path()
	}
	return s
}

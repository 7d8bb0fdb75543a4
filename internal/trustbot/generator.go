package trustbot

import (
	"context"
	"regexp"
	"strings"

	"trustaid/internal/llm"
	"trustaid/internal/logging"
)

// Generation-path tags carried on results.
const (
	ModeLLM    = "llm"
	ModeCanned = "canned"
)

// Canned query templates, used whenever generation is disabled or the
// provider output is unusable.
const (
	cannedQ2Query = "SELECT vendor, amount, paid_at as date, category FROM procurement_payments WHERE quarter='2023-24 Q2' AND amount >= 500000 ORDER BY amount DESC LIMIT 10;"

	cannedDefaultQuery = "SELECT vendor, amount, paid_at as date, category FROM procurement_payments ORDER BY amount DESC LIMIT 10;"
)

// q2Pattern recognizes second-quarter phrasings in the question.
var q2Pattern = regexp.MustCompile(`(?i)\b(q2|quarter 2|2023\s*[-/]?\s*24\s*q2)\b`)

const generationSystem = `You translate questions into a single SQLite SELECT statement.
Schema: TABLE procurement_payments(vendor TEXT, amount REAL, paid_at TEXT, category TEXT, quarter TEXT) -- SQLite SELECT-only
Rules: SELECT-only; limit results to at most 50 rows.
Return strict JSON: {"sql": "..."} with no other keys.`

// Generator produces a candidate SELECT for a question. It never returns an
// error: any generation failure falls back to the canned templates.
type Generator struct {
	client llm.Client
	demo   bool
}

// NewGenerator creates a generator. A nil client or demo mode means the
// canned path is always taken and the provider is never called.
func NewGenerator(client llm.Client, demo bool) *Generator {
	return &Generator{client: client, demo: demo}
}

// Generate returns the candidate SQL and the generation mode that produced
// it. The output is untrusted either way; validation runs downstream.
func (g *Generator) Generate(ctx context.Context, question string) (string, string) {
	if g.demo || g.client == nil {
		logging.TrustbotDebug("SQL generation disabled (demo=%v); using canned query", g.demo)
		return g.canned(question), ModeCanned
	}

	var wire struct {
		SQL string `json:"sql"`
	}
	if err := llm.CompleteJSON(ctx, g.client, generationSystem, question, &wire); err != nil {
		logging.Get(logging.CategoryTrustbot).Warn("SQL generation failed, falling back to canned query: %v", err)
		return g.canned(question), ModeCanned
	}

	sqlText := strings.TrimSpace(wire.SQL)
	if !strings.HasPrefix(strings.ToLower(sqlText), "select") {
		logging.Get(logging.CategoryTrustbot).Warn("Generated statement is not a SELECT, falling back to canned query")
		return g.canned(question), ModeCanned
	}

	logging.TrustbotDebug("Generated SQL via provider: %s", sqlText)
	return sqlText, ModeLLM
}

// canned chooses a template by matching literal quarter phrases.
func (g *Generator) canned(question string) string {
	if q2Pattern.MatchString(question) {
		return cannedQ2Query
	}
	return cannedDefaultQuery
}

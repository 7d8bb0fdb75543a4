// Package router classifies incoming questions as analytic (structured-data
// path) or informational (evidence-grounded path). Classification is pure
// keyword matching: deterministic, total, and biased toward the
// informational path when intent is ambiguous.
package router

import (
	"regexp"
	"strings"

	"trustaid/internal/logging"
)

// Kind is the routing class of a question.
type Kind string

const (
	// KindAnalytic routes to the SQL responder.
	KindAnalytic Kind = "analytic"
	// KindInformational routes to the evidence-grounded responder.
	KindInformational Kind = "informational"
)

// Heuristics for data/analytics questions (SQL path)
var analyticTerms = regexp.MustCompile(`\b(budget|spend|spending|procurement|vendor|invoice|payment|salary|hr|headcount|leave|trend|average|median|mean|percent|%|sum|count|compare|q[1-4]|quarter|fy|table|chart|top|outlier|anomaly)\b`)

// Heuristics for navigation / services questions (retrieval path)
var serviceTerms = regexp.MustCompile(`\b(how|apply|steps|process|eligibility|documents|where|when|deadline|requirements|contact|support|benefit|allowance|rebate|service|appointment)\b`)

// Strong government-service hints
var govTerms = regexp.MustCompile(`\b(centrelink|services australia|my aged care|ato|ndis|medicare|mygov|state revenue|family tax|carer|home care|visa|aged care|concession|pension)\b`)

// Classify labels a question. Analytic terms win over service terms when
// both match; no match at all defaults to informational.
func Classify(question string) Kind {
	ql := strings.ToLower(question)
	if analyticTerms.MatchString(ql) {
		logging.Get(logging.CategoryRouter).Debug("classified analytic: %q", question)
		return KindAnalytic
	}
	if serviceTerms.MatchString(ql) || govTerms.MatchString(ql) {
		return KindInformational
	}
	// default
	return KindInformational
}

// LooksAnalytic reports whether the question matches the analytic vocabulary.
func LooksAnalytic(question string) bool {
	return analyticTerms.MatchString(strings.ToLower(question))
}

// ParseKind maps a caller-supplied override onto a Kind. Only the two valid
// labels are accepted; anything else reports ok=false and the caller should
// fall back to Classify.
func ParseKind(s string) (Kind, bool) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindAnalytic:
		return KindAnalytic, true
	case KindInformational:
		return KindInformational, true
	default:
		return "", false
	}
}

// Package confidence defines the shared answer-quality vocabulary used by
// every responder. Levels are ordered; escalation decisions compare levels
// only, never raw scores, so provider-specific score scales cannot skew
// routing.
package confidence

import (
	"encoding/json"
	"fmt"
)

// Level is an ordered answer-quality level.
type Level int

const (
	// None means the responder could not produce a usable answer.
	None Level = iota
	// Low means the answer is a guess or built from thin evidence.
	Low
	// High means the answer is well grounded but not authoritative.
	High
	// Exact means the answer is ground truth (e.g. executed SQL).
	Exact
)

var levelNames = map[Level]string{
	None:  "none",
	Low:   "low",
	High:  "high",
	Exact: "exact",
}

var levelValues = map[string]Level{
	"none":  None,
	"low":   Low,
	"high":  High,
	"exact": Exact,
}

// String returns the wire name of the level.
func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "none"
}

// ParseLevel maps a wire name onto a Level. Unknown names report ok=false.
func ParseLevel(s string) (Level, bool) {
	l, ok := levelValues[s]
	return l, ok
}

// Escalatable reports whether a result at this level is weak enough that the
// orchestrator should try the other responder.
func (l Level) Escalatable() bool {
	return l == None || l == Low
}

// MarshalJSON encodes the level as its wire name.
func (l Level) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

// UnmarshalJSON decodes a wire name. Non-string input or an unknown name is
// an error so malformed provider output fails decoding instead of silently
// mapping to a level.
func (l *Level) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("confidence level must be a string: %w", err)
	}
	parsed, ok := ParseLevel(s)
	if !ok {
		return fmt.Errorf("unknown confidence level %q", s)
	}
	*l = parsed
	return nil
}

// Confidence pairs an ordered level with a numeric score in [0,1].
type Confidence struct {
	Level Level   `json:"level" yaml:"level"`
	Score float64 `json:"score" yaml:"score"`
}

// New builds a Confidence with the score clamped to [0,1].
func New(level Level, score float64) Confidence {
	return Confidence{Level: level, Score: ClampScore(score)}
}

// ClampScore forces a score into [0,1].
func ClampScore(score float64) float64 {
	switch {
	case score < 0:
		return 0
	case score > 1:
		return 1
	default:
		return score
	}
}

// String renders the confidence for logs, e.g. "high(0.80)".
func (c Confidence) String() string {
	return fmt.Sprintf("%s(%.2f)", c.Level, c.Score)
}

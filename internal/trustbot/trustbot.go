package trustbot

import (
	"context"
	"time"

	"trustaid/internal/confidence"
	"trustaid/internal/logging"
)

// Kind is the responder tag carried on trustbot results.
const Kind = "trustbot"

// Table is an executed query's tabular shape.
type Table struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// Chart is a fixed rendering hint for the table.
type Chart struct {
	Type string `json:"type"`
	X    string `json:"x"`
	Y    string `json:"y"`
}

// Dataset describes the data the table was computed from.
type Dataset struct {
	Name        string `json:"name"`
	Period      string `json:"period"`
	LastUpdated string `json:"last_updated"`
}

// Result is the trustbot's structured answer. Confidence is exact only when
// a validated statement executed; every failure is none/0.
type Result struct {
	Kind       string                `json:"kind"`
	Answer     string                `json:"answer"`
	SQL        string                `json:"sql,omitempty"`
	Table      Table                 `json:"table"`
	Chart      Chart                 `json:"chart"`
	Dataset    Dataset               `json:"dataset"`
	Confidence confidence.Confidence `json:"confidence"`
	Mode       string                `json:"mode"`
}

// defaultColumns names the table shape when a query returns zero rows.
var defaultColumns = []string{"vendor", "amount", "date", "category"}

// fixedDataset is the descriptor attached to every successful result.
func fixedDataset() Dataset {
	return Dataset{
		Name:        "AusTender Demo",
		Period:      "2023-07-01..2024-06-30",
		LastUpdated: time.Now().UTC().Format(time.RFC3339),
	}
}

// DataStore is the read-only execution capability.
type DataStore interface {
	Query(ctx context.Context, sqlText string) ([]string, [][]any, error)
}

// Trustbot is the SQL guardrail responder: generate, validate, execute.
type Trustbot struct {
	generator  *Generator
	validators []Validator
	store      DataStore
}

// New creates a trustbot. The keyword validator always runs first; the
// structural validator is appended when the parsing capability is available.
// Absence of the parser degrades validation to keyword-only, never to
// allow-all.
func New(generator *Generator, store DataStore, validators ...Validator) *Trustbot {
	if len(validators) == 0 {
		validators = []Validator{NewKeywordValidator(), NewASTValidator()}
	}
	return &Trustbot{generator: generator, validators: validators, store: store}
}

// Answer runs the full pipeline for a question.
func (t *Trustbot) Answer(ctx context.Context, question string) Result {
	timer := logging.StartTimer(logging.CategoryTrustbot, "Answer")
	defer timer.Stop()

	sqlText, mode := t.generator.Generate(ctx, question)

	for _, v := range t.validators {
		if err := v.Validate(sqlText); err != nil {
			logging.Get(logging.CategoryTrustbot).Warn("Validation rejected statement (%s): %v", v.Name(), err)
			return failure("Query validation failed.", mode)
		}
	}

	columns, rows, err := t.store.Query(ctx, sqlText)
	if err != nil {
		logging.Get(logging.CategoryTrustbot).Error("Execution failed: %v", err)
		return failure("Query execution failed.", mode)
	}
	if len(rows) == 0 && len(columns) == 0 {
		columns = defaultColumns
	}

	chart := Chart{Type: "bar", X: columns[0], Y: columns[0]}
	if len(columns) > 1 {
		chart.Y = columns[1]
	}

	logging.Trustbot("Executed validated query: mode=%s rows=%d", mode, len(rows))
	return Result{
		Kind:       Kind,
		Answer:     "Here are the results.",
		SQL:        sqlText,
		Table:      Table{Columns: columns, Rows: rows},
		Chart:      chart,
		Dataset:    fixedDataset(),
		Confidence: confidence.New(confidence.Exact, 1.0),
		Mode:       mode,
	}
}

// failure is the well-formed zero-confidence result for rejected or failed
// statements. No SQL is echoed back.
func failure(answer, mode string) Result {
	return Result{
		Kind:       Kind,
		Answer:     answer,
		Table:      Table{Columns: defaultColumns, Rows: [][]any{}},
		Dataset:    fixedDataset(),
		Confidence: confidence.New(confidence.None, 0),
		Mode:       mode,
	}
}

// Package trustbot is the structured-data responder: it turns a question
// into a single read-only SELECT against a fixed schema, validates it with a
// generate-then-validate discipline in which no stage trusts another, and
// shapes the executed result as a table. Only statements proven safe ever
// reach the data store.
package trustbot

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel rejection reasons callers can branch on.
var (
	ErrNotSelect        = errors.New("statement is not a plain SELECT")
	ErrBannedKeyword    = errors.New("statement contains a banned keyword")
	ErrTableNotAllowed  = errors.New("referenced table is not whitelisted")
	ErrColumnNotAllowed = errors.New("referenced column is not whitelisted")
)

// Validator is the SQL validation capability. Implementations must fail
// closed: reject unless proven safe, never allow unless proven unsafe.
type Validator interface {
	// Validate returns nil only if the statement is a safe read query
	Validate(sqlText string) error

	// Name identifies the validator in logs
	Name() string
}

// Schema whitelist shared by both validators.
var (
	allowedTables = map[string]bool{
		"procurement_payments": true,
	}
	allowedColumns = map[string]bool{
		"vendor":   true,
		"amount":   true,
		"paid_at":  true,
		"date":     true,
		"category": true,
		"quarter":  true,
	}
)

// bannedKeywords is a conservative textual pre-filter applied before any
// structural parsing. "create " and "replace " keep their trailing space so
// column values like "created_at" do not false-positive.
var bannedKeywords = []string{
	"insert", "update", "delete", "drop", "alter",
	"attach", "pragma", "create ", "replace ", "vacuum",
}

// KeywordValidator is the always-available textual validator.
type KeywordValidator struct{}

// NewKeywordValidator creates the textual validator.
func NewKeywordValidator() *KeywordValidator {
	return &KeywordValidator{}
}

// Name identifies the validator.
func (v *KeywordValidator) Name() string { return "keyword" }

// Validate rejects anything that is not a SELECT-prefixed statement free of
// banned keyword substrings.
func (v *KeywordValidator) Validate(sqlText string) error {
	normalized := strings.ToLower(strings.TrimSpace(sqlText))
	if !strings.HasPrefix(normalized, "select") {
		return fmt.Errorf("%w: %q", ErrNotSelect, prefixOf(normalized))
	}
	for _, kw := range bannedKeywords {
		if strings.Contains(normalized, kw) {
			return fmt.Errorf("%w: %q", ErrBannedKeyword, strings.TrimSpace(kw))
		}
	}
	return nil
}

func prefixOf(s string) string {
	if len(s) > 24 {
		return s[:24] + "..."
	}
	return s
}

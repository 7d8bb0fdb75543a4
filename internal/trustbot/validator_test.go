package trustbot

import (
	"errors"
	"testing"
)

func TestKeywordValidatorAcceptsCannedQueries(t *testing.T) {
	v := NewKeywordValidator()
	for _, q := range []string{cannedQ2Query, cannedDefaultQuery} {
		if err := v.Validate(q); err != nil {
			t.Errorf("Validate(%q) = %v, want nil", q, err)
		}
	}
}

func TestKeywordValidatorRejectsNonSelect(t *testing.T) {
	v := NewKeywordValidator()
	cases := []string{
		"UPDATE procurement_payments SET amount = 0",
		"  with t as (select 1) select * from t",
		"",
		"EXPLAIN SELECT vendor FROM procurement_payments",
	}
	for _, q := range cases {
		err := v.Validate(q)
		if !errors.Is(err, ErrNotSelect) {
			t.Errorf("Validate(%q) = %v, want ErrNotSelect", q, err)
		}
	}
}

func TestKeywordValidatorRejectsBannedKeywords(t *testing.T) {
	v := NewKeywordValidator()
	cases := []string{
		"SELECT vendor FROM procurement_payments; DROP TABLE procurement_payments",
		"select vendor from procurement_payments where quarter = 'x'; delete from procurement_payments",
		"SELECT vendor FROM procurement_payments; PRAGMA writable_schema=ON",
		"select * from procurement_payments; attach database 'x' as y",
	}
	for _, q := range cases {
		err := v.Validate(q)
		if !errors.Is(err, ErrBannedKeyword) {
			t.Errorf("Validate(%q) = %v, want ErrBannedKeyword", q, err)
		}
	}
}

func TestKeywordValidatorAllowsCreatedSubstring(t *testing.T) {
	// "created_at" must not trip the "create " filter.
	v := NewKeywordValidator()
	q := "SELECT vendor FROM procurement_payments WHERE category = 'created_at'"
	if err := v.Validate(q); err != nil {
		t.Errorf("Validate(%q) = %v, want nil", q, err)
	}
}

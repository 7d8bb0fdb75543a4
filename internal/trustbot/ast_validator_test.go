package trustbot

import (
	"errors"
	"testing"
)

func TestASTValidatorAcceptsCannedQueries(t *testing.T) {
	v := NewASTValidator()
	for _, q := range []string{cannedQ2Query, cannedDefaultQuery} {
		if err := v.Validate(q); err != nil {
			t.Errorf("Validate(%q) = %v, want nil", q, err)
		}
	}
}

func TestASTValidatorAcceptsAggregates(t *testing.T) {
	v := NewASTValidator()
	cases := []string{
		"SELECT sum(amount) FROM procurement_payments",
		"SELECT category, avg(amount) FROM procurement_payments GROUP BY category",
		"SELECT count(vendor) FROM procurement_payments WHERE amount > 100000",
		"SELECT round(max(amount)) FROM procurement_payments",
	}
	for _, q := range cases {
		if err := v.Validate(q); err != nil {
			t.Errorf("Validate(%q) = %v, want nil", q, err)
		}
	}
}

func TestASTValidatorRejectsDisallowedTable(t *testing.T) {
	v := NewASTValidator()
	err := v.Validate("SELECT name FROM sqlite_master")
	if !errors.Is(err, ErrTableNotAllowed) && !errors.Is(err, ErrColumnNotAllowed) {
		t.Errorf("Validate(sqlite_master) = %v, want whitelist rejection", err)
	}
}

func TestASTValidatorRejectsDisallowedColumn(t *testing.T) {
	v := NewASTValidator()
	cases := []string{
		"SELECT secret FROM procurement_payments",
		"SELECT vendor FROM procurement_payments WHERE rowid = 1",
		"SELECT vendor AS shadow FROM procurement_payments",
	}
	for _, q := range cases {
		err := v.Validate(q)
		if !errors.Is(err, ErrColumnNotAllowed) {
			t.Errorf("Validate(%q) = %v, want ErrColumnNotAllowed", q, err)
		}
	}
}

func TestASTValidatorRejectsDisallowedFunction(t *testing.T) {
	v := NewASTValidator()
	err := v.Validate("SELECT load_extension('evil') FROM procurement_payments")
	if !errors.Is(err, ErrColumnNotAllowed) {
		t.Errorf("Validate(load_extension) = %v, want ErrColumnNotAllowed", err)
	}
}

func TestASTValidatorRejectsNonSelectShapes(t *testing.T) {
	v := NewASTValidator()
	cases := []string{
		"WITH t AS (SELECT vendor FROM procurement_payments) SELECT vendor FROM t",
		"SELECT vendor FROM procurement_payments UNION SELECT vendor FROM procurement_payments",
		"VALUES (1, 2)",
		"DELETE FROM procurement_payments",
		"not sql at all",
	}
	for _, q := range cases {
		err := v.Validate(q)
		if !errors.Is(err, ErrNotSelect) {
			t.Errorf("Validate(%q) = %v, want ErrNotSelect", q, err)
		}
	}
}

func TestASTValidatorRejectsJoins(t *testing.T) {
	v := NewASTValidator()
	q := "SELECT a.vendor FROM procurement_payments a JOIN procurement_payments b ON a.vendor = b.vendor"
	if err := v.Validate(q); err == nil {
		t.Errorf("Validate(%q) = nil, want rejection", q)
	}
}

func TestASTValidatorAcceptsSubquerySource(t *testing.T) {
	v := NewASTValidator()
	q := "SELECT vendor FROM (SELECT vendor, amount FROM procurement_payments WHERE amount > 500000)"
	if err := v.Validate(q); err != nil {
		t.Errorf("Validate(%q) = %v, want nil", q, err)
	}
}

package trustbot

import (
	"fmt"
	"strings"

	rsql "github.com/rqlite/sql"
)

// ASTValidator is the structural validator. It parses the statement as
// SQLite and walks the tree with an explicit allow-list of node kinds: any
// node it does not recognize is a rejection, so new syntax is unsafe until
// proven otherwise.
type ASTValidator struct {
	tables  map[string]bool
	columns map[string]bool
}

// allowedFunctions are the aggregate/scalar functions a read query may call.
var allowedFunctions = map[string]bool{
	"avg":   true,
	"sum":   true,
	"count": true,
	"min":   true,
	"max":   true,
	"total": true,
	"round": true,
}

// NewASTValidator creates the structural validator over the fixed schema
// whitelist.
func NewASTValidator() *ASTValidator {
	return &ASTValidator{tables: allowedTables, columns: allowedColumns}
}

// Name identifies the validator.
func (v *ASTValidator) Name() string { return "ast" }

// Validate parses the statement and walks it.
func (v *ASTValidator) Validate(sqlText string) error {
	sqlText = strings.TrimRight(strings.TrimSpace(sqlText), ";")
	stmt, err := rsql.NewParser(strings.NewReader(sqlText)).ParseStatement()
	if err != nil {
		return fmt.Errorf("%w: parse: %v", ErrNotSelect, err)
	}
	sel, ok := stmt.(*rsql.SelectStatement)
	if !ok {
		return fmt.Errorf("%w: root is %T", ErrNotSelect, stmt)
	}
	return v.validateSelect(sel)
}

func (v *ASTValidator) validateSelect(sel *rsql.SelectStatement) error {
	if sel.WithClause != nil {
		return fmt.Errorf("%w: WITH clause", ErrNotSelect)
	}
	if sel.Compound != nil {
		return fmt.Errorf("%w: compound select", ErrNotSelect)
	}
	if len(sel.ValueLists) > 0 {
		return fmt.Errorf("%w: VALUES list", ErrNotSelect)
	}

	for _, col := range sel.Columns {
		if col.Expr != nil {
			if err := v.validateExpr(col.Expr); err != nil {
				return err
			}
		}
		if col.Alias != nil && !v.columns[strings.ToLower(col.Alias.Name)] {
			return fmt.Errorf("%w: alias %q", ErrColumnNotAllowed, col.Alias.Name)
		}
	}

	if err := v.validateSource(sel.Source); err != nil {
		return err
	}

	exprs := []rsql.Expr{sel.WhereExpr, sel.HavingExpr, sel.LimitExpr, sel.OffsetExpr}
	exprs = append(exprs, sel.GroupByExprs...)
	for _, term := range sel.OrderingTerms {
		exprs = append(exprs, term.X)
	}
	for _, expr := range exprs {
		if expr == nil {
			continue
		}
		if err := v.validateExpr(expr); err != nil {
			return err
		}
	}
	return nil
}

// validateSource allows a bare whitelisted table, a parenthesized source, or
// a subquery. Everything else, joins included, is rejected.
func (v *ASTValidator) validateSource(src rsql.Source) error {
	switch s := src.(type) {
	case nil:
		return nil
	case *rsql.QualifiedTableName:
		name := strings.ToLower(s.Name.Name)
		if !v.tables[name] {
			return fmt.Errorf("%w: %q", ErrTableNotAllowed, s.Name.Name)
		}
		if s.Alias != nil {
			// Table aliases would let column references dodge the
			// whitelist; the single-table schema does not need them.
			return fmt.Errorf("%w: table alias %q", ErrTableNotAllowed, s.Alias.Name)
		}
		return nil
	case *rsql.ParenSource:
		return v.validateSource(s.X)
	case *rsql.SelectStatement:
		return v.validateSelect(s)
	default:
		return fmt.Errorf("%w: unsupported source %T", ErrNotSelect, src)
	}
}

// validateExpr walks an expression with the node-kind allow-list.
func (v *ASTValidator) validateExpr(expr rsql.Expr) error {
	switch e := expr.(type) {
	case *rsql.Ident:
		if !v.columns[strings.ToLower(e.Name)] {
			return fmt.Errorf("%w: %q", ErrColumnNotAllowed, e.Name)
		}
		return nil
	case *rsql.QualifiedRef:
		if e.Table != nil && !v.tables[strings.ToLower(e.Table.Name)] {
			return fmt.Errorf("%w: %q", ErrTableNotAllowed, e.Table.Name)
		}
		if e.Star.IsValid() {
			return nil
		}
		if e.Column == nil || !v.columns[strings.ToLower(e.Column.Name)] {
			return fmt.Errorf("%w: %q", ErrColumnNotAllowed, refName(e))
		}
		return nil
	case *rsql.StringLit, *rsql.NumberLit, *rsql.NullLit, *rsql.BoolLit:
		return nil
	case *rsql.UnaryExpr:
		return v.validateExpr(e.X)
	case *rsql.ParenExpr:
		return v.validateExpr(e.X)
	case *rsql.BinaryExpr:
		if err := v.validateExpr(e.X); err != nil {
			return err
		}
		return v.validateExpr(e.Y)
	case *rsql.Range:
		if err := v.validateExpr(e.X); err != nil {
			return err
		}
		return v.validateExpr(e.Y)
	case *rsql.ExprList:
		for _, x := range e.Exprs {
			if err := v.validateExpr(x); err != nil {
				return err
			}
		}
		return nil
	case *rsql.Call:
		if e.Name == nil || !allowedFunctions[strings.ToLower(e.Name.Name)] {
			return fmt.Errorf("%w: function %q", ErrColumnNotAllowed, callName(e))
		}
		for _, arg := range e.Args {
			if err := v.validateExpr(arg); err != nil {
				return err
			}
		}
		return nil
	case *rsql.Exists:
		return v.validateSelect(e.Select)
	default:
		return fmt.Errorf("%w: unsupported expression %T", ErrNotSelect, expr)
	}
}

func refName(e *rsql.QualifiedRef) string {
	if e.Column != nil {
		return e.Column.Name
	}
	return "(unnamed)"
}

func callName(e *rsql.Call) string {
	if e.Name != nil {
		return e.Name.Name
	}
	return "(unnamed)"
}

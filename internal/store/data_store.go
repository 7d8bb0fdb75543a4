// Package store provides the two SQLite-backed persistence capabilities the
// answering core consumes: a read-only tabular data store for the trustbot
// responder and a vector store for semantic retrieval. Both are built once at
// startup and shared read-mostly across requests.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // pure-Go driver for the tabular path

	"trustaid/internal/logging"
)

// DataStore wraps the tabular SQLite database queried by the SQL guardrail.
// The core treats it as read-only; the only write is the idempotent seed at
// construction time.
type DataStore struct {
	db   *sql.DB
	mu   sync.RWMutex
	path string
}

// seedPayments is the fixed demo dataset. Seeding only happens when the
// table is empty, so re-opening an existing database never duplicates rows.
var seedPayments = []struct {
	Vendor   string
	Amount   float64
	PaidAt   string
	Category string
	Quarter  string
}{
	{"Acme Pty Ltd", 830000, "2024-02-13", "IT", "2023-24 Q2"},
	{"Koala Tech", 790000, "2024-03-29", "Services", "2023-24 Q2"},
	{"Wattle Solutions", 670000, "2024-01-19", "Consulting", "2023-24 Q2"},
}

// NewDataStore opens (or creates) the payments database at the given path
// and seeds it when empty.
func NewDataStore(path string) (*DataStore, error) {
	timer := logging.StartTimer(logging.CategoryStore, "NewDataStore")
	defer timer.Stop()

	logging.Store("Initializing data store at path: %s", path)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		logging.Get(logging.CategoryStore).Error("Failed to create directory %s: %v", dir, err)
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		logging.Get(logging.CategoryStore).Error("Failed to open database at %s: %v", path, err)
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.StoreDebug("Failed to set sqlite busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.StoreDebug("Failed to set sqlite journal_mode=WAL: %v", err)
	}

	s := &DataStore{db: db, path: path}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// initialize creates the schema and seeds the demo rows when the table is
// empty.
func (s *DataStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS procurement_payments (
		vendor TEXT NOT NULL,
		amount REAL NOT NULL,
		paid_at TEXT NOT NULL,
		category TEXT NOT NULL,
		quarter TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_payments_quarter ON procurement_payments(quarter);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create payments schema: %w", err)
	}

	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM procurement_payments").Scan(&count); err != nil {
		return fmt.Errorf("failed to count payments: %w", err)
	}
	if count > 0 {
		logging.StoreDebug("Data store already seeded: %d rows", count)
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin seed transaction: %w", err)
	}
	for _, p := range seedPayments {
		if _, err := tx.Exec(
			"INSERT INTO procurement_payments (vendor, amount, paid_at, category, quarter) VALUES (?, ?, ?, ?, ?)",
			p.Vendor, p.Amount, p.PaidAt, p.Category, p.Quarter,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to seed payment row: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit seed: %w", err)
	}

	logging.Store("Data store seeded with %d payment rows", len(seedPayments))
	return nil
}

// Query executes a single read SELECT and returns the result shape. Callers
// are responsible for validating the statement first; the store does not
// re-validate.
func (s *DataStore) Query(ctx context.Context, sqlText string) ([]string, [][]any, error) {
	timer := logging.StartTimer(logging.CategoryStore, "DataStore.Query")
	defer timer.Stop()

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, sqlText)
	if err != nil {
		logging.Get(logging.CategoryStore).Error("Query failed: %v", err)
		return nil, nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read columns: %w", err)
	}

	var out [][]any
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return nil, nil, fmt.Errorf("failed to scan row: %w", err)
		}
		// Normalize []byte text columns so callers see plain strings.
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		out = append(out, values)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("row iteration failed: %w", err)
	}

	logging.StoreDebug("Query returned %d rows, %d columns", len(out), len(columns))
	return columns, out, nil
}

// PaymentCount returns the number of rows in the payments table.
func (s *DataStore) PaymentCount() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM procurement_payments").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count payments: %w", err)
	}
	return count, nil
}

// Close closes the underlying database.
func (s *DataStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

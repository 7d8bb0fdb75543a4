package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	_ "github.com/mattn/go-sqlite3" // cgo driver; sqlite-vec registers against it

	"trustaid/internal/embedding"
	"trustaid/internal/logging"
)

// =============================================================================
// VECTOR STORE CAPABILITY
// =============================================================================

// VectorEntry is one document to seed into a collection.
type VectorEntry struct {
	ID       string
	Text     string
	Metadata map[string]string
	Vector   []float32
}

// VectorHit is one ranked nearest-neighbor result. Distance is cosine
// distance (0 = identical), the store's native scale.
type VectorHit struct {
	ID       string
	Text     string
	Metadata map[string]string
	Distance float64
}

// VectorStore is the persistent nearest-neighbor capability consumed by the
// retrieval engine. Any error from it triggers the engine's sticky fallback.
type VectorStore interface {
	// Seed inserts entries into a named collection
	Seed(ctx context.Context, collection string, entries []VectorEntry) error

	// QueryNearest returns the k nearest entries by cosine distance
	QueryNearest(ctx context.Context, collection string, vector []float32, k int) ([]VectorHit, error)

	// Count returns the number of entries in a collection
	Count(collection string) (int, error)
}

// SQLiteVectorStore implements VectorStore on SQLite. When the sqlite-vec
// extension is available its vec_distance_cosine function ranks candidates
// in SQL; otherwise ranking falls back to brute-force cosine in Go. Both
// paths read the same table, so the extension is an accelerator, not a
// correctness requirement.
type SQLiteVectorStore struct {
	db        *sql.DB
	mu        sync.RWMutex
	path      string
	vectorExt bool
}

// NewSQLiteVectorStore opens (or creates) the vector database at the given
// path.
func NewSQLiteVectorStore(path string) (*SQLiteVectorStore, error) {
	timer := logging.StartTimer(logging.CategoryStore, "NewSQLiteVectorStore")
	defer timer.Stop()

	logging.Store("Initializing vector store at path: %s", path)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		logging.Get(logging.CategoryStore).Error("Failed to create directory %s: %v", dir, err)
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		logging.Get(logging.CategoryStore).Error("Failed to open vector database at %s: %v", path, err)
		return nil, fmt.Errorf("failed to open vector database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.StoreDebug("Failed to set sqlite busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.StoreDebug("Failed to set sqlite journal_mode=WAL: %v", err)
	}

	s := &SQLiteVectorStore{db: db, path: path}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	s.detectVecExtension()
	if s.vectorExt {
		logging.Store("sqlite-vec extension detected and enabled")
	} else {
		logging.Get(logging.CategoryStore).Warn("sqlite-vec extension not available; using brute-force cosine ranking")
	}

	return s, nil
}

func (s *SQLiteVectorStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS vectors (
		collection TEXT NOT NULL,
		id TEXT NOT NULL,
		content TEXT NOT NULL,
		metadata TEXT,
		embedding BLOB NOT NULL,
		PRIMARY KEY (collection, id)
	);
	CREATE INDEX IF NOT EXISTS idx_vectors_collection ON vectors(collection);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create vectors schema: %w", err)
	}
	return nil
}

// detectVecExtension probes for sqlite-vec by asking for its version.
func (s *SQLiteVectorStore) detectVecExtension() {
	if s.db == nil {
		return
	}
	var version string
	if err := s.db.QueryRow("SELECT vec_version()").Scan(&version); err == nil {
		s.vectorExt = true
		logging.StoreDebug("sqlite-vec version: %s", version)
	}
}

// Seed inserts entries into a collection. Existing ids are replaced, so
// seeding is idempotent.
func (s *SQLiteVectorStore) Seed(ctx context.Context, collection string, entries []VectorEntry) error {
	timer := logging.StartTimer(logging.CategoryStore, "SQLiteVectorStore.Seed")
	defer timer.Stop()

	if collection == "" {
		return fmt.Errorf("collection name required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin seed transaction: %w", err)
	}
	for _, e := range entries {
		if len(e.Vector) == 0 {
			tx.Rollback()
			return fmt.Errorf("entry %q has no embedding", e.ID)
		}
		metaJSON, err := json.Marshal(e.Metadata)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to encode metadata for %q: %w", e.ID, err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT OR REPLACE INTO vectors (collection, id, content, metadata, embedding) VALUES (?, ?, ?, ?, ?)",
			collection, e.ID, e.Text, string(metaJSON), encodeFloat32SliceToBlob(e.Vector),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert entry %q: %w", e.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit seed: %w", err)
	}

	logging.Store("Seeded collection %s with %d entries", collection, len(entries))
	return nil
}

// QueryNearest returns the k nearest entries to the query vector by cosine
// distance, ascending.
func (s *SQLiteVectorStore) QueryNearest(ctx context.Context, collection string, vector []float32, k int) ([]VectorHit, error) {
	timer := logging.StartTimer(logging.CategoryStore, "SQLiteVectorStore.QueryNearest")
	defer timer.Stop()

	if k <= 0 {
		k = 5
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, fmt.Errorf("vector store not initialized")
	}

	if s.vectorExt {
		hits, err := s.queryNearestVec(ctx, collection, vector, k)
		if err == nil {
			return hits, nil
		}
		logging.StoreDebug("Falling back to brute-force ranking: %v", err)
	}
	return s.queryNearestBruteForce(ctx, collection, vector, k)
}

// queryNearestVec ranks candidates in SQL using sqlite-vec.
func (s *SQLiteVectorStore) queryNearestVec(ctx context.Context, collection string, vector []float32, k int) ([]VectorHit, error) {
	query := `
		SELECT
			id,
			content,
			metadata,
			vec_distance_cosine(embedding, ?) AS distance
		FROM vectors
		WHERE collection = ?
		ORDER BY distance ASC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, encodeFloat32SliceToBlob(vector), collection, k)
	if err != nil {
		return nil, fmt.Errorf("vec search failed: %w", err)
	}
	defer rows.Close()

	var hits []VectorHit
	for rows.Next() {
		var hit VectorHit
		var metaJSON sql.NullString
		if err := rows.Scan(&hit.ID, &hit.Text, &metaJSON, &hit.Distance); err != nil {
			return nil, fmt.Errorf("failed to scan hit: %w", err)
		}
		if metaJSON.Valid && metaJSON.String != "" {
			json.Unmarshal([]byte(metaJSON.String), &hit.Metadata)
		}
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}

// queryNearestBruteForce loads the collection and ranks in Go. The corpus is
// small, so a full scan is acceptable.
func (s *SQLiteVectorStore) queryNearestBruteForce(ctx context.Context, collection string, vector []float32, k int) ([]VectorHit, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, content, metadata, embedding FROM vectors WHERE collection = ?", collection)
	if err != nil {
		return nil, fmt.Errorf("failed to load collection %s: %w", collection, err)
	}
	defer rows.Close()

	var hits []VectorHit
	for rows.Next() {
		var hit VectorHit
		var metaJSON sql.NullString
		var blob []byte
		if err := rows.Scan(&hit.ID, &hit.Text, &metaJSON, &blob); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		stored, err := decodeBlobToFloat32Slice(blob)
		if err != nil {
			logging.StoreDebug("Skipping entry %s: %v", hit.ID, err)
			continue
		}
		sim, err := embedding.CosineSimilarity(vector, stored)
		if err != nil {
			logging.StoreDebug("Skipping entry %s: %v", hit.ID, err)
			continue
		}
		hit.Distance = 1 - sim
		if metaJSON.Valid && metaJSON.String != "" {
			json.Unmarshal([]byte(metaJSON.String), &hit.Metadata)
		}
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Count returns the number of entries in a collection.
func (s *SQLiteVectorStore) Count(collection string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return 0, fmt.Errorf("vector store not initialized")
	}

	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM vectors WHERE collection = ?", collection).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count collection %s: %w", collection, err)
	}
	return count, nil
}

// Close closes the underlying database.
func (s *SQLiteVectorStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

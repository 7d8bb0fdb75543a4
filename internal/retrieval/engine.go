package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"trustaid/internal/embedding"
	"trustaid/internal/logging"
	"trustaid/internal/store"
)

// =============================================================================
// RETRIEVAL ENGINE - backend selection and sticky fallback
// =============================================================================

// Backend identifies which retrieval implementation is serving queries.
type Backend int

const (
	// BackendLexical serves from the in-memory TF-IDF index.
	BackendLexical Backend = iota
	// BackendVector serves from the persistent vector store.
	BackendVector
)

// String returns the wire name of the backend.
func (b Backend) String() string {
	if b == BackendVector {
		return "vector"
	}
	return "lexical"
}

// ErrNoEmbedder indicates the embedding capability is not configured.
var ErrNoEmbedder = errors.New("embedding engine not configured")

// EngineConfig configures a retrieval engine.
type EngineConfig struct {
	// Embedder and Vectors enable the vector backend. Either being nil
	// (or ForceLexical set) starts the engine lexical-only.
	Embedder     embedding.Engine
	Vectors      store.VectorStore
	Docs         []Document
	GoldenQA     []GoldenQA
	TopK         int
	ForceLexical bool
}

// Engine owns backend selection. The backend flag is the only mutable state
// and flips exactly once, vector to lexical, on the first vector-path
// failure. It never flips back.
type Engine struct {
	mu      sync.RWMutex
	backend Backend

	embedder embedding.Engine
	vectors  store.VectorStore
	lexical  *LexicalIndex
	docs     []Document
	goldenQA []GoldenQA
	topK     int
}

// NewEngine constructs the engine. The lexical index is always built: it is
// either the active backend or the fallback target.
func NewEngine(cfg EngineConfig) *Engine {
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	docs := cfg.Docs
	if len(docs) == 0 {
		docs = BuiltinCorpus()
	}
	goldenQA := cfg.GoldenQA
	if goldenQA == nil {
		goldenQA = BuiltinGoldenQA()
	}

	e := &Engine{
		backend:  BackendLexical,
		embedder: cfg.Embedder,
		vectors:  cfg.Vectors,
		lexical:  NewLexicalIndex(docs),
		docs:     docs,
		goldenQA: goldenQA,
		topK:     cfg.TopK,
	}
	if !cfg.ForceLexical && cfg.Embedder != nil && cfg.Vectors != nil {
		e.backend = BackendVector
	}

	logging.Retrieval("Retrieval engine initialized: backend=%s, corpus=%d docs", e.backend, len(docs))
	return e
}

// State returns the current backend.
func (e *Engine) State() Backend {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.backend
}

// CorpusSize returns the number of corpus documents.
func (e *Engine) CorpusSize() int {
	return len(e.docs)
}

// downgrade is the single transition point of the backend state machine.
// One-way and sticky: concurrent failures race here, the first logs, and no
// later request observes the vector backend again.
func (e *Engine) downgrade(reason error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.backend == BackendLexical {
		return
	}
	e.backend = BackendLexical
	logging.Get(logging.CategoryRetrieval).Warn("Vector backend failed, downgrading to lexical for process lifetime: %v", reason)
}

// EnsureReady builds whichever index the active backend needs. For the
// vector backend it seeds the document and golden-QA collections when empty;
// a seeding failure downgrades to lexical. The lexical index is already
// built at construction. Run once at startup, before query traffic.
func (e *Engine) EnsureReady(ctx context.Context) {
	timer := logging.StartTimer(logging.CategoryRetrieval, "Engine.EnsureReady")
	defer timer.Stop()

	if e.State() != BackendVector {
		return
	}
	if err := e.seedVectorStore(ctx); err != nil {
		e.downgrade(err)
	}
}

// seedVectorStore fills the two collections when empty. The two seeding
// operations are independent and run concurrently.
func (e *Engine) seedVectorStore(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		count, err := e.vectors.Count(CollectionDocuments)
		if err != nil {
			return fmt.Errorf("failed to count %s: %w", CollectionDocuments, err)
		}
		if count > 0 {
			logging.RetrievalDebug("Collection %s already seeded: %d entries", CollectionDocuments, count)
			return nil
		}

		texts := make([]string, len(e.docs))
		for i, doc := range e.docs {
			texts[i] = doc.Text
		}
		vectors, err := e.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("failed to embed corpus: %w", err)
		}

		entries := make([]store.VectorEntry, len(e.docs))
		for i, doc := range e.docs {
			entries[i] = store.VectorEntry{
				ID:   doc.ID,
				Text: doc.Text,
				Metadata: map[string]string{
					"title":        doc.Title,
					"url":          doc.URL,
					"updated_at":   doc.UpdatedAt,
					"jurisdiction": doc.Jurisdiction,
				},
				Vector: vectors[i],
			}
		}
		return e.vectors.Seed(ctx, CollectionDocuments, entries)
	})

	g.Go(func() error {
		count, err := e.vectors.Count(CollectionGoldenQA)
		if err != nil {
			return fmt.Errorf("failed to count %s: %w", CollectionGoldenQA, err)
		}
		if count > 0 || len(e.goldenQA) == 0 {
			return nil
		}

		texts := make([]string, len(e.goldenQA))
		for i, qa := range e.goldenQA {
			texts[i] = qa.Text
		}
		vectors, err := e.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("failed to embed golden QA: %w", err)
		}

		entries := make([]store.VectorEntry, len(e.goldenQA))
		for i, qa := range e.goldenQA {
			entries[i] = store.VectorEntry{ID: qa.ID, Text: qa.Text, Metadata: qa.Metadata, Vector: vectors[i]}
		}
		return e.vectors.Seed(ctx, CollectionGoldenQA, entries)
	})

	return g.Wait()
}

// Retrieve produces ranked evidence for a question. A vector-path failure
// downgrades the engine and re-serves the same question lexically, so the
// caller always gets an answerable result.
func (e *Engine) Retrieve(ctx context.Context, question string) []Evidence {
	timer := logging.StartTimer(logging.CategoryRetrieval, "Engine.Retrieve")
	defer timer.Stop()

	if e.State() == BackendVector {
		evidence, err := e.retrieveVector(ctx, question)
		if err == nil {
			return evidence
		}
		e.downgrade(err)
	}
	return e.lexical.Search(question, e.topK)
}

// retrieveVector embeds the question and ranks against the vector store.
func (e *Engine) retrieveVector(ctx context.Context, question string) ([]Evidence, error) {
	if e.embedder == nil {
		return nil, ErrNoEmbedder
	}

	qvec, err := e.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("failed to embed question: %w", err)
	}

	hits, err := e.vectors.QueryNearest(ctx, CollectionDocuments, qvec, e.topK)
	if err != nil {
		return nil, fmt.Errorf("vector query failed: %w", err)
	}

	evidence := make([]Evidence, 0, len(hits))
	for _, hit := range hits {
		evidence = append(evidence, Evidence{
			Title:      hit.Metadata["title"],
			URL:        hit.Metadata["url"],
			UpdatedAt:  hit.Metadata["updated_at"],
			Similarity: 1 - hit.Distance,
			Snippet:    snippet(hit.Text),
		})
	}
	return evidence, nil
}

package retrieval

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"trustaid/internal/logging"
)

// =============================================================================
// LEXICAL INDEX - TF-IDF over the fixed corpus
// =============================================================================

var tokenPattern = regexp.MustCompile(`[a-z0-9]+`)

// tokenize lower-cases the text and splits it into alphanumeric runs.
func tokenize(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}

// LexicalIndex is an in-memory TF-IDF index. It is built once at startup and
// read-only afterward, so concurrent searches need no locking.
type LexicalIndex struct {
	docs    []Document
	vocab   map[string]int
	idf     []float64
	vectors [][]float64 // per-document TF-IDF, L2-normalized
}

// NewLexicalIndex builds the index over the given corpus. Smoothed IDF
// (ln((N+1)/(df+1))+1) keeps terms that appear in every document from
// zeroing out.
func NewLexicalIndex(docs []Document) *LexicalIndex {
	timer := logging.StartTimer(logging.CategoryRetrieval, "NewLexicalIndex")
	defer timer.Stop()

	ix := &LexicalIndex{
		docs:  docs,
		vocab: make(map[string]int),
	}

	tokenized := make([][]string, len(docs))
	for i, doc := range docs {
		tokens := tokenize(doc.Text)
		tokenized[i] = tokens
		for _, tok := range tokens {
			if _, ok := ix.vocab[tok]; !ok {
				ix.vocab[tok] = len(ix.vocab)
			}
		}
	}

	// Document frequency per vocabulary term.
	df := make([]int, len(ix.vocab))
	for _, tokens := range tokenized {
		seen := make(map[int]bool, len(tokens))
		for _, tok := range tokens {
			seen[ix.vocab[tok]] = true
		}
		for id := range seen {
			df[id]++
		}
	}

	n := float64(len(docs))
	ix.idf = make([]float64, len(ix.vocab))
	for id, d := range df {
		ix.idf[id] = math.Log((n+1)/(float64(d)+1)) + 1
	}

	ix.vectors = make([][]float64, len(docs))
	for i, tokens := range tokenized {
		ix.vectors[i] = ix.vectorize(tokens)
	}

	logging.Retrieval("Lexical index built: %d documents, %d terms", len(docs), len(ix.vocab))
	return ix
}

// vectorize maps tokens onto an L2-normalized TF-IDF vector. Tokens outside
// the vocabulary are ignored.
func (ix *LexicalIndex) vectorize(tokens []string) []float64 {
	vec := make([]float64, len(ix.vocab))
	if len(tokens) == 0 {
		return vec
	}

	counts := make(map[int]int, len(tokens))
	known := 0
	for _, tok := range tokens {
		if id, ok := ix.vocab[tok]; ok {
			counts[id]++
			known++
		}
	}
	if known == 0 {
		return vec
	}

	var norm float64
	for id, count := range counts {
		tf := float64(count) / float64(len(tokens))
		w := tf * ix.idf[id]
		vec[id] = w
		norm += w * w
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for id := range counts {
			vec[id] /= norm
		}
	}
	return vec
}

// Search returns the top-k documents by cosine similarity to the query,
// descending, with stable tie-break by original document order.
func (ix *LexicalIndex) Search(query string, k int) []Evidence {
	timer := logging.StartTimer(logging.CategoryRetrieval, "LexicalIndex.Search")
	defer timer.Stop()

	if k <= 0 {
		k = 5
	}

	qvec := ix.vectorize(tokenize(query))

	type scored struct {
		doc        int
		similarity float64
	}
	results := make([]scored, len(ix.docs))
	for i, dvec := range ix.vectors {
		var dot float64
		for id, w := range qvec {
			dot += w * dvec[id]
		}
		results[i] = scored{doc: i, similarity: dot}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].similarity > results[j].similarity
	})
	if len(results) > k {
		results = results[:k]
	}

	evidence := make([]Evidence, 0, len(results))
	for _, r := range results {
		doc := ix.docs[r.doc]
		evidence = append(evidence, Evidence{
			Title:      doc.Title,
			URL:        doc.URL,
			UpdatedAt:  doc.UpdatedAt,
			Similarity: r.similarity,
			Snippet:    snippet(doc.Text),
		})
	}
	return evidence
}

// Size returns the number of indexed documents.
func (ix *LexicalIndex) Size() int {
	return len(ix.docs)
}

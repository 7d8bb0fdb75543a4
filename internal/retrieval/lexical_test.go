package retrieval

import (
	"math"
	"testing"
)

func TestLexicalSelfQueryRanksFirst(t *testing.T) {
	docs := BuiltinCorpus()
	ix := NewLexicalIndex(docs)

	for _, doc := range docs {
		results := ix.Search(doc.Text, 5)
		if len(results) == 0 {
			t.Fatalf("no results for self-query of %s", doc.ID)
		}
		if results[0].Title != doc.Title {
			t.Errorf("self-query of %s ranked %q first, want %q", doc.ID, results[0].Title, doc.Title)
		}
		if math.Abs(results[0].Similarity-1.0) > 1e-9 {
			t.Errorf("self-query similarity = %v, want ~1.0", results[0].Similarity)
		}
	}
}

func TestLexicalSearchRelevanceOrdering(t *testing.T) {
	ix := NewLexicalIndex(BuiltinCorpus())

	results := ix.Search("carer allowance eligibility", 5)
	if len(results) == 0 {
		t.Fatal("no results")
	}
	if results[0].Title != "Carer Allowance" {
		t.Errorf("top result = %q, want Carer Allowance", results[0].Title)
	}
	for i := 1; i < len(results); i++ {
		if results[i].Similarity > results[i-1].Similarity {
			t.Errorf("results not in descending similarity order at %d", i)
		}
	}
}

func TestLexicalSearchTopK(t *testing.T) {
	ix := NewLexicalIndex(BuiltinCorpus())

	if got := len(ix.Search("care", 1)); got != 1 {
		t.Errorf("k=1 returned %d results", got)
	}
	// k larger than the corpus returns everything.
	if got := len(ix.Search("care", 50)); got != 2 {
		t.Errorf("k=50 returned %d results, want 2", got)
	}
}

func TestLexicalSearchUnknownTerms(t *testing.T) {
	ix := NewLexicalIndex(BuiltinCorpus())

	// A query sharing no vocabulary scores zero everywhere but still
	// returns the corpus in stable original order.
	results := ix.Search("xyzzy quux", 5)
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	for _, r := range results {
		if r.Similarity != 0 {
			t.Errorf("similarity = %v, want 0", r.Similarity)
		}
	}
	if results[0].Title != "Home Care Packages Overview" {
		t.Errorf("tie-break order broken: first = %q", results[0].Title)
	}
}

func TestLexicalSnippetBounded(t *testing.T) {
	long := make([]byte, 2000)
	for i := range long {
		long[i] = 'a'
	}
	docs := []Document{{ID: "d1", Title: "Long", Text: string(long)}}
	ix := NewLexicalIndex(docs)

	results := ix.Search("aaaa", 1)
	if len(results) != 1 {
		t.Fatal("no result")
	}
	if len(results[0].Snippet) > maxSnippetLen {
		t.Errorf("snippet length = %d, want <= %d", len(results[0].Snippet), maxSnippetLen)
	}
}

func TestTokenize(t *testing.T) {
	got := tokenize("Carer Allowance: 1800-200-422!")
	want := []string{"carer", "allowance", "1800", "200", "422"}
	if len(got) != len(want) {
		t.Fatalf("tokens = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

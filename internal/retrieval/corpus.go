// Package retrieval produces ranked evidence for a question, hiding which of
// its two backends served it: a persistent vector store reached through the
// embedding capability, or an in-memory TF-IDF index over the same corpus.
// The first failure on the vector path downgrades the engine to lexical for
// the remainder of the process.
package retrieval

import (
	"fmt"
	"os"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"trustaid/internal/logging"
)

// Evidence is a ranked snippet of source text plus provenance metadata used
// to ground an answer. Both backends report Similarity on the cosine
// similarity scale.
type Evidence struct {
	Title      string  `json:"title"`
	URL        string  `json:"url"`
	UpdatedAt  string  `json:"updated_at"`
	Similarity float64 `json:"similarity"`
	Snippet    string  `json:"snippet"`
}

// maxSnippetLen bounds evidence snippets.
const maxSnippetLen = 600

// Document is one entry of the fixed seed corpus. The same documents feed
// both backends.
type Document struct {
	ID           string `yaml:"id"`
	Title        string `yaml:"title"`
	URL          string `yaml:"url"`
	UpdatedAt    string `yaml:"updated_at"`
	Jurisdiction string `yaml:"jurisdiction"`
	Text         string `yaml:"text"`
}

// GoldenQA is a curated question/answer pair seeded into the vector store's
// golden_qa collection.
type GoldenQA struct {
	ID       string
	Text     string
	Metadata map[string]string
}

// Vector-store collection names.
const (
	CollectionDocuments = "documents"
	CollectionGoldenQA  = "golden_qa"
)

// BuiltinCorpus returns the fixed seed document set.
func BuiltinCorpus() []Document {
	return []Document{
		{
			ID:           "doc_myagedcare_hcp",
			Title:        "Home Care Packages Overview",
			URL:          "https://www.myagedcare.gov.au/",
			UpdatedAt:    "2025-06-01",
			Jurisdiction: "AU",
			Text:         "Home Care Packages help older people to receive care at home. Step: contact My Aged Care to arrange an assessment. Hotline: 1800200422.",
		},
		{
			ID:           "doc_servicesaustralia_carer_allowance",
			Title:        "Carer Allowance",
			URL:          "https://www.servicesaustralia.gov.au/",
			UpdatedAt:    "2025-05-10",
			Jurisdiction: "AU",
			Text:         "Carer Allowance is a fortnightly supplement for people who give daily care. Check eligibility on Services Australia and prepare identity documents.",
		},
	}
}

// BuiltinGoldenQA returns the curated QA seed for the vector backend.
func BuiltinGoldenQA() []GoldenQA {
	return []GoldenQA{
		{
			ID:   "gqa_hcp_1",
			Text: "Q: apply for home care after discharge? A: Book My Aged Care assessment; prepare medical summary; explore interim services.",
			Metadata: map[string]string{
				"kind":         "navigator",
				"jurisdiction": "AU",
			},
		},
	}
}

// LoadCorpus returns the document corpus, honoring an optional YAML override
// file. An empty or missing path means the built-in corpus; a present but
// malformed file is an error.
func LoadCorpus(path string) ([]Document, error) {
	if path == "" {
		return BuiltinCorpus(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logging.Retrieval("Corpus override %s not found; using built-in corpus", path)
			return BuiltinCorpus(), nil
		}
		return nil, fmt.Errorf("failed to read corpus file: %w", err)
	}

	var docs []Document
	if err := yaml.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("failed to parse corpus file: %w", err)
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("corpus file %s contains no documents", path)
	}

	logging.Retrieval("Loaded %d corpus documents from %s", len(docs), path)
	return docs, nil
}

// snippet bounds a document text for inclusion in evidence. Truncation is
// by character, never mid-rune.
func snippet(text string) string {
	if utf8.RuneCountInString(text) <= maxSnippetLen {
		return text
	}
	runes := []rune(text)
	return string(runes[:maxSnippetLen])
}

// Package knowledge manages the medical knowledge base: document storage,
// embedding generation and vector similarity search over PostgreSQL with
// pgvector. The corpus comes from the ingest pipeline; conversations can be
// indexed too, tagged by source type.
package knowledge

import (
	"time"
)

// VectorDimension is the embedding width of the documents table. The
// configured embedder must produce vectors of exactly this size.
const VectorDimension = 768

// Source type values for the source_type metadata.
const (
	// SourceTypeDocument is ingested corpus content (PDFs, articles).
	SourceTypeDocument = "document"

	// SourceTypeConversation is indexed chat history.
	SourceTypeConversation = "conversation"
)

// ValidSourceTypes lists the accepted source_type values. Tool input is
// checked against this before it reaches a query.
var ValidSourceTypes = []string{SourceTypeDocument, SourceTypeConversation}

// Document is a knowledge base entry.
type Document struct {
	ID         string
	Content    string
	SourceType string
	Metadata   map[string]any
	CreatedAt  time.Time
}

// Result is a single search hit with its similarity score.
type Result struct {
	Document   Document
	Similarity float32 // cosine similarity, 0-1
}

// SearchOption configures search behavior (functional options).
type SearchOption func(*searchConfig)

type searchConfig struct {
	topK       int
	sourceType string
	filter     map[string]string
	timeout    time.Duration
}

// WithTopK sets the maximum number of results. Default is 5.
func WithTopK(k int) SearchOption {
	return func(c *searchConfig) {
		c.topK = k
	}
}

// WithSourceType restricts results to one source type.
func WithSourceType(sourceType string) SearchOption {
	return func(c *searchConfig) {
		c.sourceType = sourceType
	}
}

// WithFilter adds a metadata filter. Multiple calls AND together.
func WithFilter(key, value string) SearchOption {
	return func(c *searchConfig) {
		if c.filter == nil {
			c.filter = make(map[string]string)
		}
		c.filter[key] = value
	}
}

// WithTimeout overrides the per-search deadline. Default is 10 seconds.
func WithTimeout(d time.Duration) SearchOption {
	return func(c *searchConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func buildSearchConfig(opts []SearchOption) *searchConfig {
	cfg := &searchConfig{
		topK:    5,
		timeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

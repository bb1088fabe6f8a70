package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pgvector/pgvector-go"
)

// ErrInvalidSourceType indicates a source type outside ValidSourceTypes.
var ErrInvalidSourceType = errors.New("invalid source type")

// Querier is the database surface Store depends on. Consumer-side interface
// so tests can substitute a mock.
type Querier interface {
	UpsertDocument(ctx context.Context, arg UpsertDocumentParams) error
	SearchDocuments(ctx context.Context, arg SearchDocumentsParams) ([]DocumentRow, error)
	CountDocuments(ctx context.Context, sourceType string) (int64, error)
	DeleteDocument(ctx context.Context, id string) error
	DeleteDocumentsBySource(ctx context.Context, sourceType string) (int64, error)
	ListDocumentsBySource(ctx context.Context, sourceType string, limit, offset int32) ([]DocumentRow, error)
}

// Store manages knowledge documents with vector search. Safe for concurrent
// use by multiple goroutines.
type Store struct {
	queries      Querier
	embedder     ai.Embedder
	embedOptions any
	logger       *slog.Logger
}

// StoreOption configures the Store at construction.
type StoreOption func(*Store)

// WithEmbedOptions sets provider-specific options passed on every embed
// request. The gemini provider uses this to truncate embeddings to
// VectorDimension via OutputDimensionality.
func WithEmbedOptions(opts any) StoreOption {
	return func(s *Store) {
		s.embedOptions = opts
	}
}

// New creates a Store.
func New(querier Querier, embedder ai.Embedder, logger *slog.Logger, opts ...StoreOption) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{queries: querier, embedder: embedder, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add embeds and upserts a single document.
func (s *Store) Add(ctx context.Context, doc Document) error {
	vectors, err := s.embed(ctx, []string{doc.Content})
	if err != nil {
		return fmt.Errorf("embed document %q: %w", doc.ID, err)
	}
	return s.upsert(ctx, doc, vectors[0])
}

// AddBatch embeds and upserts documents in one embedder call. The ingest
// pipeline uses this to amortize embedding round-trips across a batch.
func (s *Store) AddBatch(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	contents := make([]string, len(docs))
	for i, doc := range docs {
		contents[i] = doc.Content
	}
	vectors, err := s.embed(ctx, contents)
	if err != nil {
		return fmt.Errorf("embed batch of %d: %w", len(docs), err)
	}
	for i, doc := range docs {
		if err := s.upsert(ctx, doc, vectors[i]); err != nil {
			return err
		}
	}
	s.logger.Debug("added document batch", "count", len(docs))
	return nil
}

func (s *Store) upsert(ctx context.Context, doc Document, embedding pgvector.Vector) error {
	if doc.SourceType != "" && !slices.Contains(ValidSourceTypes, doc.SourceType) {
		return fmt.Errorf("%w: %q", ErrInvalidSourceType, doc.SourceType)
	}
	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	err = s.queries.UpsertDocument(ctx, UpsertDocumentParams{
		ID:         doc.ID,
		Content:    doc.Content,
		SourceType: doc.SourceType,
		Embedding:  &embedding,
		Metadata:   metadataJSON,
		CreatedAt:  pgtype.Timestamptz{Time: doc.CreatedAt, Valid: !doc.CreatedAt.IsZero()},
	})
	if err != nil {
		return fmt.Errorf("upsert document %q: %w", doc.ID, err)
	}
	return nil
}

// Search performs semantic search, ordered by similarity. A per-call timeout
// keeps slow vector scans from holding the request.
//
// Example:
//
//	results, err := store.Search(ctx, "dengue symptoms",
//	    knowledge.WithTopK(7),
//	    knowledge.WithSourceType(knowledge.SourceTypeDocument))
func (s *Store) Search(ctx context.Context, query string, opts ...SearchOption) ([]Result, error) {
	cfg := buildSearchConfig(opts)
	if cfg.sourceType != "" && !slices.Contains(ValidSourceTypes, cfg.sourceType) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSourceType, cfg.sourceType)
	}

	queryCtx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	vectors, err := s.embed(queryCtx, []string{query})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("embedding generation timeout: %w", err)
		}
		return nil, fmt.Errorf("embed query: %w", err)
	}

	// Filter JSON always comes from json.Marshal over a typed map; user
	// input never reaches the SQL text.
	var filterJSON []byte
	if len(cfg.filter) > 0 {
		filterJSON, err = json.Marshal(cfg.filter)
		if err != nil {
			return nil, fmt.Errorf("marshal filter: %w", err)
		}
	}

	rows, err := s.queries.SearchDocuments(queryCtx, SearchDocumentsParams{
		QueryEmbedding: &vectors[0],
		SourceType:     cfg.sourceType,
		FilterMetadata: filterJSON,
		ResultLimit:    cfg.topK,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("search query timeout: %w", err)
		}
		return nil, fmt.Errorf("search failed: %w", err)
	}
	return s.rowsToResults(rows), nil
}

// Count returns the number of documents, optionally per source type
// (empty counts all).
func (s *Store) Count(ctx context.Context, sourceType string) (int, error) {
	if sourceType != "" && !slices.Contains(ValidSourceTypes, sourceType) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSourceType, sourceType)
	}
	count, err := s.queries.CountDocuments(ctx, sourceType)
	if err != nil {
		return 0, fmt.Errorf("count failed: %w", err)
	}
	if count > math.MaxInt {
		return 0, fmt.Errorf("document count %d exceeds platform int capacity", count)
	}
	return int(count), nil
}

// Delete removes a document by ID.
func (s *Store) Delete(ctx context.Context, docID string) error {
	if err := s.queries.DeleteDocument(ctx, docID); err != nil {
		return fmt.Errorf("delete document %q: %w", docID, err)
	}
	s.logger.Debug("deleted document", "id", docID)
	return nil
}

// DeleteBySourceType removes every document of one source type. The ingest
// job uses this for full corpus reloads.
func (s *Store) DeleteBySourceType(ctx context.Context, sourceType string) (int64, error) {
	if !slices.Contains(ValidSourceTypes, sourceType) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSourceType, sourceType)
	}
	n, err := s.queries.DeleteDocumentsBySource(ctx, sourceType)
	if err != nil {
		return 0, fmt.Errorf("delete by source type %q: %w", sourceType, err)
	}
	s.logger.Debug("deleted documents by source type", "source_type", sourceType, "count", n)
	return n, nil
}

// ListBySourceType lists documents of one source type, newest first.
func (s *Store) ListBySourceType(ctx context.Context, sourceType string, limit, offset int32) ([]Document, error) {
	if !slices.Contains(ValidSourceTypes, sourceType) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSourceType, sourceType)
	}
	rows, err := s.queries.ListDocumentsBySource(ctx, sourceType, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list by source type %q: %w", sourceType, err)
	}
	docs := make([]Document, 0, len(rows))
	for _, row := range rows {
		docs = append(docs, s.rowToDocument(row))
	}
	return docs, nil
}

func (s *Store) embed(ctx context.Context, contents []string) ([]pgvector.Vector, error) {
	input := make([]*ai.Document, len(contents))
	for i, content := range contents {
		input[i] = &ai.Document{Content: []*ai.Part{ai.NewTextPart(content)}}
	}
	resp, err := s.embedder.Embed(ctx, &ai.EmbedRequest{Input: input, Options: s.embedOptions})
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) != len(contents) {
		return nil, fmt.Errorf("embedder returned %d embeddings for %d inputs", len(resp.Embeddings), len(contents))
	}
	vectors := make([]pgvector.Vector, len(contents))
	for i, emb := range resp.Embeddings {
		if len(emb.Embedding) == 0 {
			return nil, fmt.Errorf("empty embedding at index %d", i)
		}
		vectors[i] = pgvector.NewVector(emb.Embedding)
	}
	return vectors, nil
}

func (s *Store) rowsToResults(rows []DocumentRow) []Result {
	results := make([]Result, 0, len(rows))
	for _, row := range rows {
		results = append(results, Result{
			Document:   s.rowToDocument(row),
			Similarity: row.Similarity,
		})
	}
	return results
}

func (s *Store) rowToDocument(row DocumentRow) Document {
	var metadata map[string]any
	if len(row.Metadata) > 0 {
		if err := json.Unmarshal(row.Metadata, &metadata); err != nil {
			s.logger.Warn("failed to parse metadata", "document_id", row.ID, "error", err)
		}
	}
	var createdAt time.Time
	if row.CreatedAt.Valid {
		createdAt = row.CreatedAt.Time
	}
	return Document{
		ID:         row.ID,
		Content:    row.Content,
		SourceType: row.SourceType,
		Metadata:   metadata,
		CreatedAt:  createdAt,
	}
}

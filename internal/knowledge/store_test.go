package knowledge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
)

// fakeEmbedder returns a deterministic vector per input so unit tests run
// without a model backend.
type fakeEmbedder struct {
	fail bool
}

func (f *fakeEmbedder) Name() string { return "fake/embedder" }

func (f *fakeEmbedder) Register(api.Registry) {}

func (f *fakeEmbedder) Embed(_ context.Context, req *ai.EmbedRequest) (*ai.EmbedResponse, error) {
	if f.fail {
		return nil, errors.New("embedder unavailable")
	}
	resp := &ai.EmbedResponse{}
	for i := range req.Input {
		vec := make([]float32, 4)
		vec[0] = float32(i + 1)
		resp.Embeddings = append(resp.Embeddings, &ai.Embedding{Embedding: vec})
	}
	return resp, nil
}

// mockKnowledgeQuerier records calls and serves canned rows.
type mockKnowledgeQuerier struct {
	upserts    []UpsertDocumentParams
	searchArgs *SearchDocumentsParams
	rows       []DocumentRow
	count      int64
	deleted    []string
}

func (m *mockKnowledgeQuerier) UpsertDocument(_ context.Context, arg UpsertDocumentParams) error {
	m.upserts = append(m.upserts, arg)
	return nil
}

func (m *mockKnowledgeQuerier) SearchDocuments(_ context.Context, arg SearchDocumentsParams) ([]DocumentRow, error) {
	m.searchArgs = &arg
	return m.rows, nil
}

func (m *mockKnowledgeQuerier) CountDocuments(_ context.Context, _ string) (int64, error) {
	return m.count, nil
}

func (m *mockKnowledgeQuerier) DeleteDocument(_ context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockKnowledgeQuerier) DeleteDocumentsBySource(_ context.Context, _ string) (int64, error) {
	return m.count, nil
}

func (m *mockKnowledgeQuerier) ListDocumentsBySource(_ context.Context, _ string, _, _ int32) ([]DocumentRow, error) {
	return m.rows, nil
}

func newTestStore(q Querier) *Store {
	return New(q, &fakeEmbedder{}, slog.New(slog.DiscardHandler))
}

func TestAddUpsertsWithEmbedding(t *testing.T) {
	q := &mockKnowledgeQuerier{}
	store := newTestStore(q)

	err := store.Add(context.Background(), Document{
		ID:         "doc-1",
		Content:    "dengue fever presents with retro-orbital headache",
		SourceType: SourceTypeDocument,
		Metadata:   map[string]any{"source": "handbook.pdf"},
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	if len(q.upserts) != 1 {
		t.Fatalf("upserts = %d, want 1", len(q.upserts))
	}
	got := q.upserts[0]
	if got.ID != "doc-1" {
		t.Errorf("ID = %q", got.ID)
	}
	if got.Embedding == nil {
		t.Fatal("embedding not set")
	}
	if got.SourceType != SourceTypeDocument {
		t.Errorf("SourceType = %q", got.SourceType)
	}
}

func TestAddRejectsUnknownSourceType(t *testing.T) {
	store := newTestStore(&mockKnowledgeQuerier{})

	err := store.Add(context.Background(), Document{ID: "x", Content: "y", SourceType: "secrets"})
	if !errors.Is(err, ErrInvalidSourceType) {
		t.Errorf("err = %v, want ErrInvalidSourceType", err)
	}
}

func TestAddBatchSingleEmbedCall(t *testing.T) {
	q := &mockKnowledgeQuerier{}
	store := newTestStore(q)

	docs := make([]Document, 5)
	for i := range docs {
		docs[i] = Document{
			ID:         fmt.Sprintf("chunk-%d", i),
			Content:    fmt.Sprintf("chunk content %d", i),
			SourceType: SourceTypeDocument,
		}
	}
	if err := store.AddBatch(context.Background(), docs); err != nil {
		t.Fatalf("AddBatch: %v", err)
	}
	if len(q.upserts) != 5 {
		t.Errorf("upserts = %d, want 5", len(q.upserts))
	}
}

func TestAddEmbedderFailure(t *testing.T) {
	store := New(&mockKnowledgeQuerier{}, &fakeEmbedder{fail: true}, slog.New(slog.DiscardHandler))

	if err := store.Add(context.Background(), Document{ID: "a", Content: "b"}); err == nil {
		t.Fatal("expected embedder error to propagate")
	}
}

func TestSearchOptions(t *testing.T) {
	q := &mockKnowledgeQuerier{
		rows: []DocumentRow{
			{ID: "d1", Content: "result one", SourceType: SourceTypeDocument, Metadata: []byte(`{"source":"a.pdf"}`), Similarity: 0.92},
			{ID: "d2", Content: "result two", SourceType: SourceTypeDocument, Similarity: 0.81},
		},
	}
	store := newTestStore(q)

	results, err := store.Search(context.Background(), "fever",
		WithTopK(7), WithSourceType(SourceTypeDocument), WithFilter("source", "a.pdf"))
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if q.searchArgs.ResultLimit != 7 {
		t.Errorf("ResultLimit = %d, want 7", q.searchArgs.ResultLimit)
	}
	if q.searchArgs.SourceType != SourceTypeDocument {
		t.Errorf("SourceType = %q", q.searchArgs.SourceType)
	}
	if len(q.searchArgs.FilterMetadata) == 0 {
		t.Error("metadata filter not passed")
	}
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	if results[0].Similarity != 0.92 {
		t.Errorf("Similarity = %f", results[0].Similarity)
	}
	if results[0].Document.Metadata["source"] != "a.pdf" {
		t.Errorf("metadata not decoded: %v", results[0].Document.Metadata)
	}
}

func TestMetadataAllowsNonStringValues(t *testing.T) {
	q := &mockKnowledgeQuerier{}
	store := newTestStore(q)

	err := store.Add(context.Background(), Document{
		ID:         "doc-2",
		Content:    "oral rehydration guidance",
		SourceType: SourceTypeDocument,
		Metadata:   map[string]any{"source": "guide.pdf", "chunk": 3},
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if got := string(q.upserts[0].Metadata); !strings.Contains(got, `"chunk":3`) {
		t.Errorf("metadata JSON = %s, missing numeric chunk", got)
	}

	q.rows = []DocumentRow{
		{ID: "doc-2", Content: "oral rehydration guidance", SourceType: SourceTypeDocument,
			Metadata: []byte(`{"chunk":3,"source":"guide.pdf"}`), Similarity: 0.9},
	}
	results, err := store.Search(context.Background(), "rehydration")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if results[0].Document.Metadata["chunk"] != float64(3) {
		t.Errorf("chunk = %v, want 3", results[0].Document.Metadata["chunk"])
	}
}

func TestSearchRejectsUnknownSourceType(t *testing.T) {
	store := newTestStore(&mockKnowledgeQuerier{})

	_, err := store.Search(context.Background(), "q", WithSourceType("everything"))
	if !errors.Is(err, ErrInvalidSourceType) {
		t.Errorf("err = %v, want ErrInvalidSourceType", err)
	}
}

func TestCount(t *testing.T) {
	store := newTestStore(&mockKnowledgeQuerier{count: 42})

	n, err := store.Count(context.Background(), SourceTypeDocument)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 42 {
		t.Errorf("Count = %d, want 42", n)
	}

	if _, err := store.Count(context.Background(), "bogus"); !errors.Is(err, ErrInvalidSourceType) {
		t.Errorf("err = %v, want ErrInvalidSourceType", err)
	}
}

func TestDelete(t *testing.T) {
	q := &mockKnowledgeQuerier{}
	store := newTestStore(q)

	if err := store.Delete(context.Background(), "doc-9"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(q.deleted) != 1 || q.deleted[0] != "doc-9" {
		t.Errorf("deleted = %v", q.deleted)
	}
}

func TestSearchConfigDefaults(t *testing.T) {
	cfg := buildSearchConfig(nil)
	if cfg.topK != 5 {
		t.Errorf("default topK = %d, want 5", cfg.topK)
	}
	if cfg.timeout <= 0 {
		t.Error("default timeout must be positive")
	}
}

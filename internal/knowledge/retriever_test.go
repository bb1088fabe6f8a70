package knowledge

import (
	"testing"

	"github.com/firebase/genkit/go/ai"
)

func TestExtractTopK(t *testing.T) {
	tests := []struct {
		name    string
		options any
		want    int
	}{
		{"nil options", nil, 7},
		{"int", map[string]any{"k": 3}, 3},
		{"float64 from JSON", map[string]any{"k": float64(9)}, 9},
		{"zero falls back", map[string]any{"k": 0}, 7},
		{"too large falls back", map[string]any{"k": 50}, 7},
		{"wrong type falls back", map[string]any{"k": "three"}, 7},
		{"missing key", map[string]any{"other": 1}, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &ai.RetrieverRequest{Options: tt.options}
			if got := extractTopK(req, 7); got != tt.want {
				t.Errorf("extractTopK = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestExtractQueryText(t *testing.T) {
	req := &ai.RetrieverRequest{Query: ai.DocumentFromText("what causes dengue", nil)}
	if got := extractQueryText(req); got != "what causes dengue" {
		t.Errorf("extractQueryText = %q", got)
	}
	if got := extractQueryText(&ai.RetrieverRequest{}); got != "" {
		t.Errorf("empty request should yield empty query, got %q", got)
	}
}

func TestToGenkitDocuments(t *testing.T) {
	results := []Result{
		{
			Document: Document{
				Content:    "hydration guidance",
				SourceType: SourceTypeDocument,
				Metadata:   map[string]any{"source": "who.pdf"},
			},
			Similarity: 0.88,
		},
	}
	docs := toGenkitDocuments(results)
	if len(docs) != 1 {
		t.Fatalf("docs = %d, want 1", len(docs))
	}
	if docs[0].Content[0].Text != "hydration guidance" {
		t.Errorf("content = %q", docs[0].Content[0].Text)
	}
	if docs[0].Metadata["similarity"] != float32(0.88) {
		t.Errorf("similarity metadata = %v", docs[0].Metadata["similarity"])
	}
	if docs[0].Metadata["source"] != "who.pdf" {
		t.Errorf("source metadata = %v", docs[0].Metadata["source"])
	}
}

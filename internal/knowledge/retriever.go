package knowledge

import (
	"context"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// DefineRetriever registers a Genkit retriever over the store, restricted
// to one source type. Flows and tools retrieve through the standard
// ai.Retriever interface instead of touching the store directly.
//
// Usage:
//
//	docRetriever := knowledge.DefineRetriever(g, store, "medical-documents", knowledge.SourceTypeDocument, 7)
func DefineRetriever(g *genkit.Genkit, store *Store, name, sourceType string, defaultK int) ai.Retriever {
	return genkit.DefineRetriever(
		g, name, nil,
		func(ctx context.Context, req *ai.RetrieverRequest) (*ai.RetrieverResponse, error) {
			opts := []SearchOption{
				WithTopK(extractTopK(req, defaultK)),
			}
			if sourceType != "" {
				opts = append(opts, WithSourceType(sourceType))
			}

			results, err := store.Search(ctx, extractQueryText(req), opts...)
			if err != nil {
				return nil, err
			}
			return &ai.RetrieverResponse{Documents: toGenkitDocuments(results)}, nil
		},
	)
}

func extractQueryText(req *ai.RetrieverRequest) string {
	if req.Query != nil && len(req.Query.Content) > 0 {
		return req.Query.Content[0].Text
	}
	return ""
}

// extractTopK reads a "k" option if present. Values outside [1, 10] fall
// back to the default regardless of caller behavior.
func extractTopK(req *ai.RetrieverRequest, defaultK int) int {
	opts, ok := req.Options.(map[string]any)
	if !ok {
		return defaultK
	}
	k, exists := opts["k"]
	if !exists {
		return defaultK
	}

	var kInt int
	switch v := k.(type) {
	case int:
		kInt = v
	case int32:
		kInt = int(v)
	case int64:
		kInt = int(v)
	case float64:
		kInt = int(v)
	case float32:
		kInt = int(v)
	default:
		return defaultK
	}
	if kInt < 1 || kInt > 10 {
		return defaultK
	}
	return kInt
}

func toGenkitDocuments(results []Result) []*ai.Document {
	docs := make([]*ai.Document, len(results))
	for i, result := range results {
		metadata := make(map[string]any, len(result.Document.Metadata)+2)
		for k, v := range result.Document.Metadata {
			metadata[k] = v
		}
		metadata["similarity"] = result.Similarity
		metadata["source_type"] = result.Document.SourceType
		docs[i] = ai.DocumentFromText(result.Document.Content, metadata)
	}
	return docs
}

package tools

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/firebase/genkit/go/ai"

	"github.com/mediblaze/mediblaze/internal/knowledge"
)

// SearchKnowledgeName is the Genkit tool name for knowledge-base search.
const SearchKnowledgeName = "search_medical_knowledge"

// TopK bounds for knowledge search.
const (
	DefaultKnowledgeTopK = 7
	MaxTopK              = 10
)

// KnowledgeSearcher is the subset of the knowledge store the tools need.
type KnowledgeSearcher interface {
	Search(ctx context.Context, query string, opts ...knowledge.SearchOption) ([]knowledge.Result, error)
}

// Knowledge holds dependencies for the knowledge search handler.
type Knowledge struct {
	store  KnowledgeSearcher
	logger *slog.Logger
}

// NewKnowledge creates a Knowledge tool handler.
func NewKnowledge(store KnowledgeSearcher, logger *slog.Logger) (*Knowledge, error) {
	if store == nil {
		return nil, fmt.Errorf("knowledge store is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Knowledge{store: store, logger: logger}, nil
}

// clampTopK validates topK and returns a value within [1, MaxTopK].
// If topK <= 0, returns defaultVal.
func clampTopK(topK, defaultVal int) int {
	if topK <= 0 {
		return defaultVal
	}
	if topK > MaxTopK {
		return MaxTopK
	}
	return topK
}

// Search queries the medical knowledge base semantically.
func (k *Knowledge) Search(ctx *ai.ToolContext, input KnowledgeSearchInput) (Result, error) {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return errorResult(ErrCodeValidation, "query is required"), nil
	}

	topK := clampTopK(input.TopK, DefaultKnowledgeTopK)
	k.logger.Info("knowledge search", "query", query, "topK", topK)

	results, err := k.store.Search(ctx, query,
		knowledge.WithTopK(topK),
		knowledge.WithSourceType(knowledge.SourceTypeDocument))
	if err != nil {
		k.logger.Warn("knowledge search failed", "query", query, "error", err)
		return errorResult(ErrCodeExecution, fmt.Sprintf("searching knowledge base: %v", err)), nil
	}

	if len(results) == 0 {
		return Result{
			Status:  StatusSuccess,
			Message: "No matching passages found in the knowledge base. Consider medical_web_search for broader coverage.",
			Data: map[string]any{
				"query":        query,
				"result_count": 0,
			},
		}, nil
	}

	passages := make([]map[string]any, 0, len(results))
	for _, r := range results {
		passages = append(passages, map[string]any{
			"content":    r.Document.Content,
			"similarity": r.Similarity,
			"source":     r.Document.Metadata["source"],
		})
	}

	k.logger.Info("knowledge search succeeded", "query", query, "result_count", len(results))
	return Result{
		Status: StatusSuccess,
		Data: map[string]any{
			"query":        query,
			"result_count": len(results),
			"results":      passages,
		},
	}, nil
}

// contextFromResults concatenates result contents for prompt assembly,
// keeping at most limit passages.
func contextFromResults(results []knowledge.Result, limit int) string {
	if len(results) > limit {
		results = results[:limit]
	}
	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(r.Document.Content)
	}
	return b.String()
}

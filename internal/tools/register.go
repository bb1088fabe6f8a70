package tools

import (
	"fmt"
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/mediblaze/mediblaze/internal/config"
	"github.com/mediblaze/mediblaze/internal/security"
)

// Toolkit bundles the tool handlers and registers them with Genkit.
type Toolkit struct {
	knowledge *Knowledge
	webSearch *WebSearch
	pageFetch *PageFetch
	predict   *Predict
}

// ToolkitConfig holds the dependencies for NewToolkit.
type ToolkitConfig struct {
	Store     KnowledgeSearcher
	WebSearch config.WebSearchConfig
	PageFetch config.PageFetchConfig
	Validator *security.URL
	Logger    *slog.Logger
}

// NewToolkit creates all tool handlers.
func NewToolkit(cfg ToolkitConfig) (*Toolkit, error) {
	kn, err := NewKnowledge(cfg.Store, cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("knowledge tool: %w", err)
	}
	ws, err := NewWebSearch(cfg.WebSearch, cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("web search tool: %w", err)
	}
	pf, err := NewPageFetch(cfg.PageFetch, cfg.Validator, cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("page fetch tool: %w", err)
	}
	pr, err := NewPredict(cfg.Store, cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("predict tool: %w", err)
	}
	return &Toolkit{knowledge: kn, webSearch: ws, pageFetch: pf, predict: pr}, nil
}

// Register defines every tool with Genkit and returns the references the
// agent passes to generation.
func (t *Toolkit) Register(g *genkit.Genkit) ([]ai.ToolRef, error) {
	if g == nil {
		return nil, fmt.Errorf("genkit instance is required")
	}

	defined := []ai.Tool{
		genkit.DefineTool(g, SearchKnowledgeName,
			"Search the curated medical knowledge base using semantic similarity. "+
				"Finds passages from ingested medical references that relate to the query. "+
				"Returns: passage text, source document, and similarity score. "+
				"Use this FIRST for medical questions before searching the web. "+
				"Default topK: 7. Maximum topK: 10.",
			WithEvents(SearchKnowledgeName, t.knowledge.Search)),
		genkit.DefineTool(g, WebSearchName,
			"Search trusted health websites (WHO, Mayo Clinic, CDC, NIH, MedlinePlus, "+
				"Healthline, WebMD) for current medical information. "+
				"Returns: up to 3 results with title, URL, and snippet. "+
				"Use this when the knowledge base has no answer or the question "+
				"needs current information such as outbreaks or new guidance.",
			WithEvents(WebSearchName, t.webSearch.Search)),
		genkit.DefineTool(g, FetchPageName,
			"Fetch a specific health article URL and extract its readable text. "+
				"Use this after medical_web_search when a snippet is not enough "+
				"and the full article content is needed.",
			WithEvents(FetchPageName, t.pageFetch.Fetch)),
		genkit.DefineTool(g, PredictName,
			"Assess reported symptoms and suggest likely conditions with risk levels, "+
				"recommended tests, and next steps. "+
				"Requires: symptoms. Optional: duration, severity, additional info. "+
				"Use this when the user describes their own symptoms and wants to "+
				"understand what might be wrong.",
			WithEvents(PredictName, t.predict.Assess)),
	}

	refs := make([]ai.ToolRef, 0, len(defined))
	for _, tool := range defined {
		refs = append(refs, tool)
	}
	return refs, nil
}

// SearchKnowledge runs the knowledge base search tool directly, outside
// Genkit. Used by the MCP server.
func (t *Toolkit) SearchKnowledge(ctx *ai.ToolContext, input KnowledgeSearchInput) (Result, error) {
	return t.knowledge.Search(ctx, input)
}

// SearchWeb runs the trusted-site web search tool directly.
func (t *Toolkit) SearchWeb(ctx *ai.ToolContext, input WebSearchInput) (Result, error) {
	return t.webSearch.Search(ctx, input)
}

// FetchPage runs the page fetch tool directly.
func (t *Toolkit) FetchPage(ctx *ai.ToolContext, input FetchPageInput) (Result, error) {
	return t.pageFetch.Fetch(ctx, input)
}

// PredictConditions runs the symptom assessment tool directly.
func (t *Toolkit) PredictConditions(ctx *ai.ToolContext, input PredictInput) (Result, error) {
	return t.predict.Assess(ctx, input)
}

// Names lists the registered tool names in registration order.
func Names() []string {
	return []string{SearchKnowledgeName, WebSearchName, FetchPageName, PredictName}
}

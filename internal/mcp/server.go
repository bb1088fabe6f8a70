// Package mcp exposes the medical tools over the Model Context Protocol.
//
// The server speaks MCP over any transport the SDK supports; in practice it
// runs on stdio so editors and agent hosts can call the knowledge search,
// web search, page fetch, and symptom assessment tools without going
// through the HTTP API or the LLM agent.
//
// Tool results keep the same structured envelope the agent sees: successes
// carry JSON data, failures carry a code and message with IsError set so
// the caller can distinguish tool-level failures from protocol errors.
package mcp

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mediblaze/mediblaze/internal/tools"
)

// Server wraps the MCP SDK server and the medical toolkit.
type Server struct {
	mcpServer *mcp.Server
	toolkit   *tools.Toolkit
	logger    *slog.Logger
}

// Config holds MCP server configuration.
type Config struct {
	Name    string
	Version string
	Toolkit *tools.Toolkit
	Logger  *slog.Logger
}

// NewServer creates an MCP server with every tool registered.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("server name is required")
	}
	if cfg.Version == "" {
		return nil, fmt.Errorf("server version is required")
	}
	if cfg.Toolkit == nil {
		return nil, fmt.Errorf("toolkit is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		mcpServer: mcp.NewServer(&mcp.Implementation{
			Name:    cfg.Name,
			Version: cfg.Version,
		}, nil),
		toolkit: cfg.Toolkit,
		logger:  logger,
	}

	if err := s.registerTools(); err != nil {
		return nil, fmt.Errorf("registering tools: %w", err)
	}
	return s, nil
}

// Run starts the MCP server on the given transport. Blocks until the
// context is canceled or the transport closes.
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	return s.mcpServer.Run(ctx, transport)
}

func (s *Server) registerTools() error {
	searchSchema, err := jsonschema.For[tools.KnowledgeSearchInput](nil)
	if err != nil {
		return fmt.Errorf("schema for %s: %w", tools.SearchKnowledgeName, err)
	}
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name: tools.SearchKnowledgeName,
		Description: "Search the curated medical knowledge base using semantic similarity. " +
			"Returns passages with source document and similarity score.",
		InputSchema: searchSchema,
	}, s.SearchKnowledge)

	webSchema, err := jsonschema.For[tools.WebSearchInput](nil)
	if err != nil {
		return fmt.Errorf("schema for %s: %w", tools.WebSearchName, err)
	}
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name: tools.WebSearchName,
		Description: "Search trusted health websites (WHO, Mayo Clinic, CDC, NIH, MedlinePlus, " +
			"Healthline, WebMD) for current medical information.",
		InputSchema: webSchema,
	}, s.SearchWeb)

	fetchSchema, err := jsonschema.For[tools.FetchPageInput](nil)
	if err != nil {
		return fmt.Errorf("schema for %s: %w", tools.FetchPageName, err)
	}
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name: tools.FetchPageName,
		Description: "Fetch a health article URL and extract its readable text. " +
			"Only public http/https URLs are allowed.",
		InputSchema: fetchSchema,
	}, s.FetchPage)

	predictSchema, err := jsonschema.For[tools.PredictInput](nil)
	if err != nil {
		return fmt.Errorf("schema for %s: %w", tools.PredictName, err)
	}
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name: tools.PredictName,
		Description: "Assess reported symptoms and suggest likely conditions with risk levels, " +
			"recommended tests, and next steps. Not a diagnosis.",
		InputSchema: predictSchema,
	}, s.PredictConditions)

	return nil
}

// SearchKnowledge handles the knowledge base search MCP tool call.
func (s *Server) SearchKnowledge(ctx context.Context, _ *mcp.CallToolRequest, input tools.KnowledgeSearchInput) (*mcp.CallToolResult, any, error) {
	result, err := s.toolkit.SearchKnowledge(&ai.ToolContext{Context: ctx}, input)
	if err != nil {
		return nil, nil, fmt.Errorf("knowledge search failed: %w", err)
	}
	return resultToMCP(result, s.logger), nil, nil
}

// SearchWeb handles the web search MCP tool call.
func (s *Server) SearchWeb(ctx context.Context, _ *mcp.CallToolRequest, input tools.WebSearchInput) (*mcp.CallToolResult, any, error) {
	result, err := s.toolkit.SearchWeb(&ai.ToolContext{Context: ctx}, input)
	if err != nil {
		return nil, nil, fmt.Errorf("web search failed: %w", err)
	}
	return resultToMCP(result, s.logger), nil, nil
}

// FetchPage handles the page fetch MCP tool call.
func (s *Server) FetchPage(ctx context.Context, _ *mcp.CallToolRequest, input tools.FetchPageInput) (*mcp.CallToolResult, any, error) {
	result, err := s.toolkit.FetchPage(&ai.ToolContext{Context: ctx}, input)
	if err != nil {
		return nil, nil, fmt.Errorf("page fetch failed: %w", err)
	}
	return resultToMCP(result, s.logger), nil, nil
}

// PredictConditions handles the symptom assessment MCP tool call.
func (s *Server) PredictConditions(ctx context.Context, _ *mcp.CallToolRequest, input tools.PredictInput) (*mcp.CallToolResult, any, error) {
	result, err := s.toolkit.PredictConditions(&ai.ToolContext{Context: ctx}, input)
	if err != nil {
		return nil, nil, fmt.Errorf("symptom assessment failed: %w", err)
	}
	return resultToMCP(result, s.logger), nil, nil
}

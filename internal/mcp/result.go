package mcp

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mediblaze/mediblaze/internal/tools"
)

// resultToMCP converts a tools.Result to an MCP call result. Tool-level
// failures become IsError text content so the client sees the code and
// message instead of a protocol error.
func resultToMCP(result tools.Result, logger *slog.Logger) *mcp.CallToolResult {
	if result.Status == tools.StatusError {
		errorText := fmt.Sprintf("[%s] %s", result.Error.Code, result.Error.Message)
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: errorText}},
			IsError: true,
		}
	}

	payload := map[string]any{"message": result.Message}
	for k, v := range result.Data {
		payload[k] = v
	}

	b, err := json.Marshal(payload)
	if err != nil {
		logger.Warn("marshaling tool result", "error", err)
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: "internal marshal error"}},
			IsError: true,
		}
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(b)}},
	}
}

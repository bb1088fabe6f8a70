// Package app wires the application together: configuration, database,
// Genkit, knowledge store, session store, tools, and the agent. Every entry
// point (serve, ask, ingest, mcp) goes through Setup.
package app

import (
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mediblaze/mediblaze/internal/agent"
	"github.com/mediblaze/mediblaze/internal/config"
	"github.com/mediblaze/mediblaze/internal/knowledge"
	"github.com/mediblaze/mediblaze/internal/session"
	"github.com/mediblaze/mediblaze/internal/tools"
)

// App is the application container. Fields are populated by Setup and
// released by Close.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	Genkit   *genkit.Genkit
	Embedder ai.Embedder
	DBPool   *pgxpool.Pool

	Knowledge    *knowledge.Store
	Retriever    ai.Retriever
	SessionStore *session.Store

	Toolkit  *tools.Toolkit
	ToolRefs []ai.ToolRef

	Agent *agent.Agent
	Flow  *agent.Flow

	otelCleanup func()
	dbCleanup   func()
}

// Close releases all resources in reverse initialization order. Safe to call
// on a partially initialized App (Setup uses it for cleanup on failure).
func (a *App) Close() error {
	if a.dbCleanup != nil {
		a.dbCleanup()
		a.Logger.Info("database pool closed")
	}
	if a.otelCleanup != nil {
		a.otelCleanup()
	}
	return nil
}

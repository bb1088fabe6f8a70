// Package cmd implements the mediblaze command-line interface.
//
// Subcommands: serve (HTTP API), ask (one-shot question), ingest
// (knowledge base loading), mcp (stdio tool server), version, help.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
)

// Execute dispatches the subcommand from os.Args.
func Execute() error {
	logger := newLogger()

	if len(os.Args) < 2 {
		runHelp()
		return nil
	}

	switch os.Args[1] {
	case "serve":
		return runServe(logger, os.Args[2:])
	case "ask":
		return runAsk(logger, os.Args[2:])
	case "ingest":
		return runIngest(logger, os.Args[2:])
	case "mcp":
		return runMCP(logger)
	case "version":
		runVersion()
		return nil
	case "help", "-h", "--help":
		runHelp()
		return nil
	default:
		runHelp()
		return fmt.Errorf("unknown command: %s", os.Args[1])
	}
}

// newLogger writes to stderr so the mcp subcommand keeps stdout clean
// for the protocol stream.
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func runHelp() {
	fmt.Println(`mediblaze - medical assistant service

Usage:
  mediblaze serve [addr]       Start the HTTP API server (default 127.0.0.1:8080)
  mediblaze ask <question>     Ask a one-shot question in the terminal
  mediblaze ingest <dir>       Ingest documents into the knowledge base
  mediblaze mcp                Serve the medical tools over MCP on stdio
  mediblaze version            Print version information
  mediblaze help               Show this help

Environment:
  DEBUG                 Enable debug logging when set
  DATABASE_URL          Postgres connection URL (overrides config)
  MEDIBLAZE_RATE_BURST  Per-IP rate limiter burst for serve mode`)
}

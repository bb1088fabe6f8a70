package cmd

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mediblaze/mediblaze/internal/app"
	"github.com/mediblaze/mediblaze/internal/config"
	"github.com/mediblaze/mediblaze/internal/ingest"
)

// runIngest loads a directory of documents into the knowledge base.
func runIngest(logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("ingest", flag.ContinueOnError)
	reset := fs.Bool("reset", false, "delete existing documents before ingesting")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: mediblaze ingest [-reset] <dir>")
	}
	dir := fs.Arg(0)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("setup: %w", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("shutdown cleanup failed", "error", err)
		}
	}()

	pipeline := ingest.New(a.Knowledge, cfg.Ingest, logger)

	if *reset {
		deleted, err := pipeline.Reset(ctx)
		if err != nil {
			return fmt.Errorf("reset knowledge base: %w", err)
		}
		fmt.Printf("deleted %d existing documents\n", deleted)
	}

	result, err := pipeline.IngestDir(ctx, dir)
	if err != nil {
		return fmt.Errorf("ingest %s: %w", dir, err)
	}

	fmt.Printf("ingested %d files (%d chunks) in %s\n",
		result.FilesProcessed, result.ChunksIndexed, result.Duration.Round(time.Millisecond))
	if result.FilesSkipped > 0 {
		fmt.Printf("skipped %d unsupported files\n", result.FilesSkipped)
	}
	if result.FilesFailed > 0 {
		fmt.Printf("failed %d files (see logs)\n", result.FilesFailed)
	}
	return nil
}

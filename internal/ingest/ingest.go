// Package ingest loads reference documents into the knowledge base.
//
// It walks a directory of PDF, Markdown, and plain-text files, splits each
// file into overlapping chunks, and upserts the chunks in batches. Chunk IDs
// are derived from the file path and chunk ordinal, so re-running ingestion
// over the same corpus updates documents in place instead of duplicating
// them.
package ingest

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/tmc/langchaingo/textsplitter"

	"github.com/mediblaze/mediblaze/internal/config"
	"github.com/mediblaze/mediblaze/internal/knowledge"
)

// Store is the subset of the knowledge store the pipeline needs.
type Store interface {
	AddBatch(ctx context.Context, docs []knowledge.Document) error
	DeleteBySourceType(ctx context.Context, sourceType string) (int64, error)
}

var supportedExtensions = map[string]bool{
	".pdf": true,
	".md":  true,
	".txt": true,
}

const (
	batchRetries   = 3
	batchRetryWait = 2 * time.Second
)

// Result summarizes one ingestion run.
type Result struct {
	FilesProcessed int
	FilesSkipped   int
	FilesFailed    int
	ChunksIndexed  int
	Duration       time.Duration
}

// Pipeline chunks files and writes them to the knowledge base.
type Pipeline struct {
	store     Store
	splitter  textsplitter.RecursiveCharacter
	batchSize int
	logger    *slog.Logger
}

// New builds a pipeline with the given chunking configuration.
func New(store Store, cfg config.IngestConfig, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		store: store,
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(cfg.ChunkSize),
			textsplitter.WithChunkOverlap(cfg.ChunkOverlap),
		),
		batchSize: cfg.BatchSize,
		logger:    logger,
	}
}

// IngestDir walks dir and ingests every supported file under it. A file
// that fails is counted and logged; the walk continues.
func (p *Pipeline) IngestDir(ctx context.Context, dir string) (*Result, error) {
	start := time.Now()
	result := &Result{}

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		if !supportedExtensions[strings.ToLower(filepath.Ext(path))] {
			result.FilesSkipped++
			return nil
		}

		chunks, err := p.IngestFile(ctx, path)
		if err != nil {
			result.FilesFailed++
			p.logger.Error("ingest failed", "file", path, "error", err)
			return nil
		}
		result.FilesProcessed++
		result.ChunksIndexed += chunks
		p.logger.Info("file indexed", "file", path, "chunks", chunks)
		return nil
	})

	result.Duration = time.Since(start)
	if err != nil {
		return result, fmt.Errorf("walk %s: %w", dir, err)
	}
	p.logger.Info("ingestion complete",
		"processed", result.FilesProcessed,
		"skipped", result.FilesSkipped,
		"failed", result.FilesFailed,
		"chunks", result.ChunksIndexed,
		"duration", result.Duration)
	return result, nil
}

// IngestFile chunks a single file and upserts the chunks. Returns the number
// of chunks indexed.
func (p *Pipeline) IngestFile(ctx context.Context, path string) (int, error) {
	text, err := extractText(path)
	if err != nil {
		return 0, err
	}

	chunks, err := p.splitter.SplitText(text)
	if err != nil {
		return 0, fmt.Errorf("split %s: %w", path, err)
	}

	docs := make([]knowledge.Document, 0, len(chunks))
	for i, chunk := range chunks {
		chunk = strings.TrimSpace(chunk)
		if chunk == "" {
			continue
		}
		docs = append(docs, knowledge.Document{
			ID:         chunkID(path, i),
			Content:    chunk,
			SourceType: knowledge.SourceTypeDocument,
			Metadata: map[string]any{
				"source": filepath.Base(path),
				"chunk":  strconv.Itoa(i),
			},
		})
	}

	for i := 0; i < len(docs); i += p.batchSize {
		end := min(i+p.batchSize, len(docs))
		if err := p.addBatchWithRetry(ctx, docs[i:end]); err != nil {
			return 0, fmt.Errorf("index batch %d of %s: %w", i/p.batchSize, path, err)
		}
	}
	return len(docs), nil
}

// Reset removes every previously ingested document so a corpus can be
// re-indexed from scratch.
func (p *Pipeline) Reset(ctx context.Context) (int64, error) {
	return p.store.DeleteBySourceType(ctx, knowledge.SourceTypeDocument)
}

func (p *Pipeline) addBatchWithRetry(ctx context.Context, docs []knowledge.Document) error {
	var lastErr error
	for attempt := 1; attempt <= batchRetries; attempt++ {
		lastErr = p.store.AddBatch(ctx, docs)
		if lastErr == nil {
			return nil
		}
		p.logger.Warn("batch upsert failed", "attempt", attempt, "error", lastErr)
		if attempt < batchRetries {
			select {
			case <-time.After(batchRetryWait):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return lastErr
}

func extractText(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return extractPDFText(path)
	case ".md", ".txt":
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", path, err)
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("unsupported file type: %s", path)
	}
}

func chunkID(path string, ordinal int) string {
	sum := sha256.Sum256([]byte(filepath.Base(path) + "|" + strconv.Itoa(ordinal)))
	return fmt.Sprintf("doc:%x", sum[:16])
}

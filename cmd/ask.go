package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/glamour"

	"github.com/mediblaze/mediblaze/internal/app"
	"github.com/mediblaze/mediblaze/internal/config"
)

const askWrapWidth = 100

// runAsk answers a single question and exits. The conversation is
// persisted so a follow-up through the API can pick it up.
func runAsk(logger *slog.Logger, args []string) error {
	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" {
		return fmt.Errorf("usage: mediblaze ask <question>")
	}

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

	title := a.Agent.GenerateTitle(ctx, question)
	sess, err := a.SessionStore.CreateSession(ctx, title, cfg.FullModelName())
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	resp, err := a.Agent.Execute(ctx, sess.ID, question)
	if err != nil {
		return fmt.Errorf("execute: %w", err)
	}

	fmt.Println(renderAnswer(resp.FinalText))
	if names := resp.ToolNames(); len(names) > 0 {
		fmt.Fprintf(os.Stderr, "tools used: %s\n", strings.Join(names, ", "))
	}
	return nil
}

// renderAnswer formats markdown for the terminal, falling back to the
// raw text when the renderer cannot be built.
func renderAnswer(text string) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(askWrapWidth),
	)
	if err != nil {
		return text
	}
	out, err := r.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimSuffix(out, "\n")
}

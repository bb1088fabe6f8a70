package tools

import (
	"context"
	"errors"
	"testing"

	"github.com/firebase/genkit/go/ai"
)

type recordingEmitter struct {
	started   []string
	completed []string
	failed    []string
}

func (r *recordingEmitter) OnToolStart(name string)    { r.started = append(r.started, name) }
func (r *recordingEmitter) OnToolComplete(name string) { r.completed = append(r.completed, name) }
func (r *recordingEmitter) OnToolError(name string)    { r.failed = append(r.failed, name) }

func TestWithEventsSuccess(t *testing.T) {
	emitter := &recordingEmitter{}
	ctx := &ai.ToolContext{Context: ContextWithEmitter(context.Background(), emitter)}

	wrapped := WithEvents("demo_tool", func(_ *ai.ToolContext, in string) (string, error) {
		return in + "!", nil
	})

	out, err := wrapped(ctx, "hello")
	if err != nil {
		t.Fatal(err)
	}
	if out != "hello!" {
		t.Errorf("out = %q", out)
	}
	if len(emitter.started) != 1 || emitter.started[0] != "demo_tool" {
		t.Errorf("started = %v", emitter.started)
	}
	if len(emitter.completed) != 1 {
		t.Errorf("completed = %v", emitter.completed)
	}
	if len(emitter.failed) != 0 {
		t.Errorf("failed = %v", emitter.failed)
	}
}

func TestWithEventsError(t *testing.T) {
	emitter := &recordingEmitter{}
	ctx := &ai.ToolContext{Context: ContextWithEmitter(context.Background(), emitter)}

	wrapped := WithEvents("demo_tool", func(_ *ai.ToolContext, _ string) (string, error) {
		return "", errors.New("boom")
	})

	if _, err := wrapped(ctx, "x"); err == nil {
		t.Fatal("expected error")
	}
	if len(emitter.failed) != 1 {
		t.Errorf("failed = %v", emitter.failed)
	}
	if len(emitter.completed) != 0 {
		t.Errorf("completed = %v", emitter.completed)
	}
}

func TestWithEventsErrorEnvelope(t *testing.T) {
	emitter := &recordingEmitter{}
	ctx := &ai.ToolContext{Context: ContextWithEmitter(context.Background(), emitter)}

	wrapped := WithEvents("demo_tool", func(_ *ai.ToolContext, _ string) (Result, error) {
		return errorResult(ErrCodeNetwork, "upstream unreachable"), nil
	})

	result, err := wrapped(ctx, "x")
	if err != nil {
		t.Fatal(err)
	}
	if result.Status != StatusError {
		t.Fatalf("Status = %q", result.Status)
	}
	if len(emitter.failed) != 1 || emitter.failed[0] != "demo_tool" {
		t.Errorf("failed = %v", emitter.failed)
	}
	if len(emitter.completed) != 0 {
		t.Errorf("completed = %v", emitter.completed)
	}
}

func TestWithEventsNoEmitter(t *testing.T) {
	ctx := &ai.ToolContext{Context: context.Background()}
	wrapped := WithEvents("demo_tool", func(_ *ai.ToolContext, in int) (int, error) {
		return in * 2, nil
	})
	out, err := wrapped(ctx, 21)
	if err != nil {
		t.Fatal(err)
	}
	if out != 42 {
		t.Errorf("out = %d", out)
	}
}

func TestEmitterFromContextMissing(t *testing.T) {
	if EmitterFromContext(context.Background()) != nil {
		t.Error("expected nil emitter for bare context")
	}
}

package tools

import (
	"github.com/firebase/genkit/go/ai"
)

// WithEvents wraps a typed tool handler to emit lifecycle events around the
// call. When no emitter is bound to the context the wrapper is a plain
// pass-through, so non-streaming callers pay nothing.
func WithEvents[In, Out any](name string, fn func(*ai.ToolContext, In) (Out, error)) func(*ai.ToolContext, In) (Out, error) {
	return func(ctx *ai.ToolContext, input In) (Out, error) {
		emitter := EmitterFromContext(ctx.Context)
		if emitter != nil {
			emitter.OnToolStart(name)
		}

		result, err := fn(ctx, input)

		if emitter != nil {
			switch {
			case err != nil:
				emitter.OnToolError(name)
			case isErrorEnvelope(result):
				// Handlers report failures inside the Result envelope so
				// the model can recover; the stream still flags them.
				emitter.OnToolError(name)
			default:
				emitter.OnToolComplete(name)
			}
		}
		return result, err
	}
}

func isErrorEnvelope(v any) bool {
	result, ok := v.(Result)
	return ok && result.Status == StatusError
}

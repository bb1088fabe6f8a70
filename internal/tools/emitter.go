// Package tools defines the agent-facing tools: knowledge-base search,
// medical web search, page fetch, and condition prediction.
package tools

import (
	"context"
)

type emitterKey struct{}

// EventEmitter receives tool lifecycle events. The streaming handler binds
// an emitter to the SSE writer; non-streaming paths leave it unset and the
// wrapper degrades to a pass-through.
type EventEmitter interface {
	OnToolStart(name string)
	OnToolComplete(name string)
	OnToolError(name string)
}

// EmitterFromContext retrieves the EventEmitter, or nil when none is bound.
func EmitterFromContext(ctx context.Context) EventEmitter {
	emitter, _ := ctx.Value(emitterKey{}).(EventEmitter)
	return emitter
}

// ContextWithEmitter binds an EventEmitter to the request context.
func ContextWithEmitter(ctx context.Context, emitter EventEmitter) context.Context {
	return context.WithValue(ctx, emitterKey{}, emitter)
}

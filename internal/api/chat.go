package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/uuid"

	"github.com/mediblaze/mediblaze/internal/agent"
	"github.com/mediblaze/mediblaze/internal/markdown"
	"github.com/mediblaze/mediblaze/internal/security"
	"github.com/mediblaze/mediblaze/internal/session"
	"github.com/mediblaze/mediblaze/internal/tools"
)

// maxChatBodyBytes limits chat request bodies.
const maxChatBodyBytes = 1 << 20

// chatRequest is the body for POST /api/v1/chat and /api/v1/chat/stream.
// An empty sessionId starts a new conversation.
type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId,omitempty"`
}

// chatResponse is the body for POST /api/v1/chat.
type chatResponse struct {
	Response     string   `json:"response"`
	ResponseHTML string   `json:"responseHtml"`
	SessionID    string   `json:"sessionId"`
	ToolsUsed    []string `json:"toolsUsed"`
	ProcessingMs int64    `json:"processingMs"`
	Timestamp    string   `json:"timestamp"`
}

// SSE event types for chat streaming.
const (
	EventStart = "start" // session resolved, generation starting
	EventTool  = "tool"  // tool lifecycle update
	EventChunk = "chunk" // partial response text
	EventDone  = "done"  // stream completed successfully
	EventError = "error" // error occurred during streaming
)

// StartPayload is the SSE data payload for the start event.
type StartPayload struct {
	SessionID string `json:"sessionId"`
}

// ToolPayload is the SSE data payload for tool lifecycle events.
type ToolPayload struct {
	Name   string `json:"name"`
	Status string `json:"status"` // "start", "complete", "error"
}

// ChunkPayload is the SSE data payload for streaming text chunks.
type ChunkPayload struct {
	Text string `json:"text"`
}

// DonePayload is the SSE data payload when streaming completes.
type DonePayload struct {
	Response     string   `json:"response"`
	ResponseHTML string   `json:"responseHtml"`
	SessionID    string   `json:"sessionId"`
	ToolsUsed    []string `json:"toolsUsed"`
	ProcessingMs int64    `json:"processingMs"`
}

// ErrorPayload is the SSE data payload when an error occurs.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ChatAgent is the agent surface the handlers need. Satisfied by
// *agent.Agent; a mock stands in for tests.
type ChatAgent interface {
	Execute(ctx context.Context, sessionID uuid.UUID, input string) (*agent.Response, error)
	ExecuteStream(ctx context.Context, sessionID uuid.UUID, input string, callback agent.StreamCallback) (*agent.Response, error)
	GenerateTitle(ctx context.Context, userMessage string) string
}

// chatHandler serves the conversational endpoints.
type chatHandler struct {
	agent    ChatAgent
	sessions *session.Store
	renderer *markdown.Renderer
	screen   *security.Prompt
	logger   *slog.Logger
}

// parseChatRequest decodes and validates the chat request body.
func parseChatRequest(w http.ResponseWriter, r *http.Request) (chatRequest, error) {
	var req chatRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxChatBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, fmt.Errorf("invalid request body: %w", err)
	}
	if strings.TrimSpace(req.Message) == "" {
		return req, errors.New("message is required")
	}
	return req, nil
}

// screenQuery rejects input matching known instruction-injection patterns.
func (h *chatHandler) screenQuery(query string) error {
	hits := h.screen.Check(query)
	if len(hits) == 0 {
		return nil
	}
	h.logger.Warn("query rejected by injection screen", "patterns", hits)
	return errors.New("query contains disallowed instruction patterns")
}

// resolveSession parses the session ID or creates a new session for an
// empty one. A title is generated best-effort from the first message.
func (h *chatHandler) resolveSession(ctx context.Context, req chatRequest) (uuid.UUID, bool, error) {
	if req.SessionID == "" {
		s, err := h.sessions.CreateSession(ctx, "", "")
		if err != nil {
			return uuid.Nil, false, fmt.Errorf("create session: %w", err)
		}
		return s.ID, true, nil
	}

	sessionID, err := uuid.Parse(req.SessionID)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("%w: %w", session.ErrInvalidSessionID, err)
	}
	if _, err := h.sessions.GetSession(ctx, sessionID); err != nil {
		return uuid.Nil, false, err
	}
	return sessionID, false, nil
}

// setTitleFromFirstMessage generates and stores a session title.
// Best-effort: failures are logged and ignored.
func (h *chatHandler) setTitleFromFirstMessage(ctx context.Context, sessionID uuid.UUID, query string) {
	title := h.agent.GenerateTitle(ctx, query)
	if title == "" {
		return
	}
	if err := h.sessions.SetTitle(ctx, sessionID, title); err != nil {
		h.logger.Debug("failed to store session title", "session_id", sessionID, "error", err)
	}
}

// send handles POST /api/v1/chat.
func (h *chatHandler) send(w http.ResponseWriter, r *http.Request) {
	req, err := parseChatRequest(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if err := h.screenQuery(req.Message); err != nil {
		writeError(w, http.StatusBadRequest, "query_rejected", err.Error())
		return
	}

	ctx := r.Context()
	sessionID, created, err := h.resolveSession(ctx, req)
	if err != nil {
		status, code := sessionErrorStatus(err)
		writeError(w, status, code, err.Error())
		return
	}

	start := time.Now()
	resp, err := h.agent.Execute(ctx, sessionID, req.Message)
	if err != nil {
		h.logger.Error("chat execution failed", "session_id", sessionID, "error", err)
		writeError(w, executionErrorStatus(err), "execution_failed", "failed to generate a response")
		return
	}

	if created {
		h.setTitleFromFirstMessage(ctx, sessionID, req.Message)
	}

	html, err := h.renderer.Render(resp.FinalText)
	if err != nil {
		h.logger.Warn("markdown rendering failed", "error", err)
		html = ""
	}

	writeJSON(w, http.StatusOK, chatResponse{
		Response:     resp.FinalText,
		ResponseHTML: html,
		SessionID:    sessionID.String(),
		ToolsUsed:    resp.ToolNames(),
		ProcessingMs: time.Since(start).Milliseconds(),
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
	})
}

// sseWriter serializes SSE writes: the tool emitter fires from tool
// goroutines while chunks arrive from the generation loop.
type sseWriter struct {
	mu      sync.Mutex
	w       io.Writer
	flusher http.Flusher
}

func (s *sseWriter) writeEvent(event string, data any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, jsonData); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	s.flusher.Flush()
	return nil
}

// sseEmitter forwards tool lifecycle events onto the SSE stream.
type sseEmitter struct {
	sse    *sseWriter
	logger *slog.Logger
}

func (e *sseEmitter) emit(name, status string) {
	if err := e.sse.writeEvent(EventTool, ToolPayload{Name: name, Status: status}); err != nil {
		e.logger.Debug("failed to write tool event", "tool", name, "error", err)
	}
}

func (e *sseEmitter) OnToolStart(name string)    { e.emit(name, "start") }
func (e *sseEmitter) OnToolComplete(name string) { e.emit(name, "complete") }
func (e *sseEmitter) OnToolError(name string)    { e.emit(name, "error") }

// stream handles POST /api/v1/chat/stream with Server-Sent Events.
func (h *chatHandler) stream(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}
	sse := &sseWriter{w: w, flusher: flusher}

	req, err := parseChatRequest(w, r)
	if err != nil {
		_ = sse.writeEvent(EventError, ErrorPayload{Code: "invalid_request", Message: err.Error()})
		return
	}
	if err := h.screenQuery(req.Message); err != nil {
		_ = sse.writeEvent(EventError, ErrorPayload{Code: "query_rejected", Message: err.Error()})
		return
	}

	ctx := r.Context()
	sessionID, created, err := h.resolveSession(ctx, req)
	if err != nil {
		_, code := sessionErrorStatus(err)
		_ = sse.writeEvent(EventError, ErrorPayload{Code: code, Message: err.Error()})
		return
	}

	if err := sse.writeEvent(EventStart, StartPayload{SessionID: sessionID.String()}); err != nil {
		return
	}

	// Bind the tool emitter so tool lifecycle events interleave with chunks.
	emitter := &sseEmitter{sse: sse, logger: h.logger}
	ctx = tools.ContextWithEmitter(ctx, emitter)

	h.logger.Debug("SSE stream started", "session_id", sessionID)
	start := time.Now()

	callback := func(cbCtx context.Context, chunk *ai.ModelResponseChunk) error {
		if cbCtx.Err() != nil {
			return cbCtx.Err()
		}
		if chunk == nil {
			return nil
		}
		for _, part := range chunk.Content {
			if part.Text == "" {
				continue
			}
			if err := sse.writeEvent(EventChunk, ChunkPayload{Text: part.Text}); err != nil {
				return err
			}
		}
		return nil
	}

	resp, err := h.agent.ExecuteStream(ctx, sessionID, req.Message, callback)
	if err != nil {
		if ctx.Err() != nil {
			h.logger.Info("client disconnected", "session_id", sessionID)
			return
		}
		h.logger.Error("stream execution failed", "session_id", sessionID, "error", err)
		_ = sse.writeEvent(EventError, ErrorPayload{Code: "execution_failed", Message: "failed to generate a response"})
		return
	}

	if created {
		h.setTitleFromFirstMessage(ctx, sessionID, req.Message)
	}

	html, err := h.renderer.Render(resp.FinalText)
	if err != nil {
		h.logger.Warn("markdown rendering failed", "error", err)
		html = ""
	}

	_ = sse.writeEvent(EventDone, DonePayload{
		Response:     resp.FinalText,
		ResponseHTML: html,
		SessionID:    sessionID.String(),
		ToolsUsed:    resp.ToolNames(),
		ProcessingMs: time.Since(start).Milliseconds(),
	})

	h.logger.Info("SSE stream completed", "session_id", sessionID, "duration", time.Since(start))
}

// sessionErrorStatus maps session resolution errors to HTTP status codes.
func sessionErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, session.ErrInvalidSessionID):
		return http.StatusBadRequest, "invalid_session"
	case errors.Is(err, session.ErrSessionNotFound):
		return http.StatusNotFound, "session_not_found"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// executionErrorStatus maps agent errors to HTTP status codes.
func executionErrorStatus(err error) int {
	if errors.Is(err, agent.ErrCircuitOpen) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

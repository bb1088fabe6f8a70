package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/mediblaze/mediblaze/internal/session"
)

// conversationHandler serves the conversation management endpoints.
type conversationHandler struct {
	store  *session.Store
	logger *slog.Logger
}

// conversationBody is the JSON shape of a conversation.
type conversationBody struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	MessageCount int    `json:"messageCount"`
	CreatedAt    string `json:"createdAt"`
	UpdatedAt    string `json:"updatedAt"`
}

// messageBody is the JSON shape of a stored message.
type messageBody struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Sequence  int    `json:"sequence"`
	CreatedAt string `json:"createdAt"`
}

func toConversationBody(s *session.Session) conversationBody {
	return conversationBody{
		ID:           s.ID.String(),
		Title:        s.Title,
		MessageCount: s.MessageCount,
		CreatedAt:    s.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:    s.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// create handles POST /api/v1/conversations.
func (h *conversationHandler) create(w http.ResponseWriter, r *http.Request) {
	s, err := h.store.CreateSession(r.Context(), "", "")
	if err != nil {
		h.logger.Error("failed to create conversation", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to create conversation")
		return
	}
	writeJSON(w, http.StatusCreated, toConversationBody(s))
}

// list handles GET /api/v1/conversations.
func (h *conversationHandler) list(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.store.ListSessions(r.Context(), 100, 0)
	if err != nil {
		h.logger.Error("failed to list conversations", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list conversations")
		return
	}

	bodies := make([]conversationBody, 0, len(sessions))
	for _, s := range sessions {
		bodies = append(bodies, toConversationBody(s))
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversations": bodies})
}

// parseID extracts and validates the {id} path parameter.
func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_session", "conversation ID must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

// history handles GET /api/v1/conversations/{id}.
func (h *conversationHandler) history(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	s, err := h.store.GetSession(r.Context(), id)
	if err != nil {
		status, code := sessionErrorStatus(err)
		writeError(w, status, code, err.Error())
		return
	}

	messages, err := h.store.GetMessages(r.Context(), id, session.MaxHistoryLimit, 0)
	if err != nil {
		h.logger.Error("failed to load messages", "session_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to load messages")
		return
	}

	bodies := make([]messageBody, 0, len(messages))
	for _, m := range messages {
		bodies = append(bodies, messageBody{
			Role:      m.Role,
			Content:   m.Text(),
			Sequence:  m.SequenceNumber,
			CreatedAt: m.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"conversation": toConversationBody(s),
		"messages":     bodies,
	})
}

// clear handles DELETE /api/v1/conversations/{id}/messages.
func (h *conversationHandler) clear(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := h.store.ClearMessages(r.Context(), id); err != nil {
		status, code := sessionErrorStatus(err)
		writeError(w, status, code, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared", "id": id.String()})
}

// remove handles DELETE /api/v1/conversations/{id}.
func (h *conversationHandler) remove(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := h.store.DeleteSession(r.Context(), id); err != nil {
		status, code := sessionErrorStatus(err)
		writeError(w, status, code, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

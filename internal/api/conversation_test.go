package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/uuid"

	"github.com/mediblaze/mediblaze/internal/session"
)

func seedMessages(t *testing.T, ts *testServer, sessionID uuid.UUID) {
	t.Helper()

	err := ts.store.AddMessages(context.Background(), sessionID, []*session.Message{
		{Role: session.RoleUser, Content: []*ai.Part{ai.NewTextPart("I have a headache")}},
		{Role: session.RoleAssistant, Content: []*ai.Part{ai.NewTextPart("How long has it lasted?")}},
	})
	if err != nil {
		t.Fatalf("AddMessages() error = %v", err)
	}
}

func TestConversationCreate(t *testing.T) {
	ts := newTestServer(t, &mockAgent{})

	w := ts.request(t, http.MethodPost, "/api/v1/conversations", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	body := decodeBody[conversationBody](t, w)
	id, err := uuid.Parse(body.ID)
	if err != nil {
		t.Fatalf("id %q is not a UUID: %v", body.ID, err)
	}
	if body.MessageCount != 0 {
		t.Errorf("messageCount = %d, want 0", body.MessageCount)
	}

	if _, err := ts.store.GetSession(context.Background(), id); err != nil {
		t.Errorf("session not persisted: %v", err)
	}
}

func TestConversationList(t *testing.T) {
	ts := newTestServer(t, &mockAgent{})

	for range 3 {
		if _, err := ts.store.CreateSession(context.Background(), "", ""); err != nil {
			t.Fatalf("CreateSession() error = %v", err)
		}
	}

	w := ts.request(t, http.MethodGet, "/api/v1/conversations", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	body := decodeBody[struct {
		Conversations []conversationBody `json:"conversations"`
	}](t, w)
	if len(body.Conversations) != 3 {
		t.Errorf("conversations = %d, want 3", len(body.Conversations))
	}
}

func TestConversationHistory(t *testing.T) {
	ts := newTestServer(t, &mockAgent{})

	s, err := ts.store.CreateSession(context.Background(), "Headache", "")
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	seedMessages(t, ts, s.ID)

	w := ts.request(t, http.MethodGet, "/api/v1/conversations/"+s.ID.String(), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	body := decodeBody[struct {
		Conversation conversationBody `json:"conversation"`
		Messages     []messageBody    `json:"messages"`
	}](t, w)

	if body.Conversation.Title != "Headache" {
		t.Errorf("title = %q", body.Conversation.Title)
	}
	if len(body.Messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(body.Messages))
	}
	if body.Messages[0].Role != session.RoleUser || body.Messages[0].Content != "I have a headache" {
		t.Errorf("first message = %+v", body.Messages[0])
	}
	if body.Messages[1].Role != session.RoleAssistant {
		t.Errorf("second message role = %q", body.Messages[1].Role)
	}
	if body.Messages[0].Sequence >= body.Messages[1].Sequence {
		t.Errorf("messages not in sequence order: %d, %d", body.Messages[0].Sequence, body.Messages[1].Sequence)
	}
}

func TestConversationHistoryErrors(t *testing.T) {
	tests := []struct {
		name       string
		id         string
		wantStatus int
	}{
		{name: "malformed ID", id: "not-a-uuid", wantStatus: http.StatusBadRequest},
		{name: "unknown ID", id: uuid.NewString(), wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, &mockAgent{})
			w := ts.request(t, http.MethodGet, "/api/v1/conversations/"+tt.id, nil)
			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}

func TestConversationClearMessages(t *testing.T) {
	ts := newTestServer(t, &mockAgent{})

	s, err := ts.store.CreateSession(context.Background(), "", "")
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	seedMessages(t, ts, s.ID)

	w := ts.request(t, http.MethodDelete, "/api/v1/conversations/"+s.ID.String()+"/messages", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	messages, err := ts.store.GetMessages(context.Background(), s.ID, session.MaxHistoryLimit, 0)
	if err != nil {
		t.Fatalf("GetMessages() error = %v", err)
	}
	if len(messages) != 0 {
		t.Errorf("messages = %d after clear, want 0", len(messages))
	}
}

func TestConversationDelete(t *testing.T) {
	ts := newTestServer(t, &mockAgent{})

	s, err := ts.store.CreateSession(context.Background(), "", "")
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	w := ts.request(t, http.MethodDelete, "/api/v1/conversations/"+s.ID.String(), nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", w.Code)
	}

	if _, err := ts.store.GetSession(context.Background(), s.ID); err == nil {
		t.Error("session still exists after delete")
	}
}

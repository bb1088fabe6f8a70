// Package session persists conversation sessions and their messages in
// PostgreSQL. A session is one patient conversation; messages keep the
// model/user turns in order so the agent can rebuild context.
package session

import (
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/uuid"
)

// Role constants define valid message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Session represents one conversation (application-level type).
type Session struct {
	ID           uuid.UUID
	Title        string
	ModelName    string
	MessageCount int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Message is a single conversation turn. Content stores Genkit's ai.Part
// slice, serialized as JSONB, so tool requests and responses round-trip
// without a lossy text projection.
type Message struct {
	ID             uuid.UUID
	SessionID      uuid.UUID
	Role           string // "user" | "assistant" | "tool"
	Content        []*ai.Part
	SequenceNumber int
	CreatedAt      time.Time
}

// Text flattens the message content to plain text, skipping non-text parts.
func (m *Message) Text() string {
	var out string
	for _, p := range m.Content {
		if p != nil && p.IsText() {
			out += p.Text
		}
	}
	return out
}

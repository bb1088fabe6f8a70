package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/mediblaze/mediblaze/internal/session"
)

// MemSessionQuerier is an in-memory session.Querier for handler and agent
// tests that need a working session store without Postgres.
type MemSessionQuerier struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]session.SessionRow
	messages map[uuid.UUID][]session.MessageRow
}

// NewMemSessionQuerier creates an empty in-memory querier.
func NewMemSessionQuerier() *MemSessionQuerier {
	return &MemSessionQuerier{
		sessions: make(map[uuid.UUID]session.SessionRow),
		messages: make(map[uuid.UUID][]session.MessageRow),
	}
}

func now() pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: time.Now(), Valid: true}
}

func pgID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

// CreateSession implements session.Querier.
func (m *MemSessionQuerier) CreateSession(_ context.Context, arg session.CreateSessionParams) (session.SessionRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.New()
	count := int32(0)
	row := session.SessionRow{
		ID:           pgID(id),
		Title:        arg.Title,
		ModelName:    arg.ModelName,
		MessageCount: &count,
		CreatedAt:    now(),
		UpdatedAt:    now(),
	}
	m.sessions[id] = row
	return row, nil
}

// GetSession implements session.Querier.
func (m *MemSessionQuerier) GetSession(_ context.Context, id pgtype.UUID) (session.SessionRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.sessions[uuid.UUID(id.Bytes)]
	if !ok {
		return session.SessionRow{}, pgx.ErrNoRows
	}
	return row, nil
}

// ListSessions implements session.Querier.
func (m *MemSessionQuerier) ListSessions(_ context.Context, limit, offset int32) ([]session.SessionRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows := make([]session.SessionRow, 0, len(m.sessions))
	for _, row := range m.sessions {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].UpdatedAt.Time.After(rows[j].UpdatedAt.Time)
	})

	start := int(offset)
	if start > len(rows) {
		start = len(rows)
	}
	end := start + int(limit)
	if end > len(rows) {
		end = len(rows)
	}
	return rows[start:end], nil
}

// DeleteSession implements session.Querier.
func (m *MemSessionQuerier) DeleteSession(_ context.Context, id pgtype.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sid := uuid.UUID(id.Bytes)
	delete(m.sessions, sid)
	delete(m.messages, sid)
	return nil
}

// LockSession implements session.Querier.
func (m *MemSessionQuerier) LockSession(_ context.Context, id pgtype.UUID) (pgtype.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[uuid.UUID(id.Bytes)]; !ok {
		return pgtype.UUID{}, pgx.ErrNoRows
	}
	return id, nil
}

// AddMessage implements session.Querier.
func (m *MemSessionQuerier) AddMessage(_ context.Context, arg session.AddMessageParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sid := uuid.UUID(arg.SessionID.Bytes)
	m.messages[sid] = append(m.messages[sid], session.MessageRow{
		ID:             pgID(uuid.New()),
		SessionID:      arg.SessionID,
		Role:           arg.Role,
		Content:        arg.Content,
		SequenceNumber: arg.SequenceNumber,
		CreatedAt:      now(),
	})
	return nil
}

// GetMessages implements session.Querier.
func (m *MemSessionQuerier) GetMessages(_ context.Context, arg session.GetMessagesParams) ([]session.MessageRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows := append([]session.MessageRow(nil), m.messages[uuid.UUID(arg.SessionID.Bytes)]...)
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].SequenceNumber < rows[j].SequenceNumber
	})

	start := int(arg.ResultOffset)
	if start > len(rows) {
		start = len(rows)
	}
	end := start + int(arg.ResultLimit)
	if end > len(rows) {
		end = len(rows)
	}
	return rows[start:end], nil
}

// GetRecentMessages implements session.Querier.
func (m *MemSessionQuerier) GetRecentMessages(_ context.Context, sessionID pgtype.UUID, limit int32) ([]session.MessageRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows := append([]session.MessageRow(nil), m.messages[uuid.UUID(sessionID.Bytes)]...)
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].SequenceNumber > rows[j].SequenceNumber
	})
	if int(limit) < len(rows) {
		rows = rows[:limit]
	}
	return rows, nil
}

// DeleteMessages implements session.Querier.
func (m *MemSessionQuerier) DeleteMessages(_ context.Context, sessionID pgtype.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.messages, uuid.UUID(sessionID.Bytes))
	return nil
}

// GetMaxSequenceNumber implements session.Querier.
func (m *MemSessionQuerier) GetMaxSequenceNumber(_ context.Context, sessionID pgtype.UUID) (int32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var maxSeq int32
	for _, row := range m.messages[uuid.UUID(sessionID.Bytes)] {
		if row.SequenceNumber > maxSeq {
			maxSeq = row.SequenceNumber
		}
	}
	return maxSeq, nil
}

// UpdateSessionStats implements session.Querier.
func (m *MemSessionQuerier) UpdateSessionStats(_ context.Context, arg session.UpdateSessionStatsParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sid := uuid.UUID(arg.SessionID.Bytes)
	row, ok := m.sessions[sid]
	if !ok {
		return pgx.ErrNoRows
	}
	count := arg.MessageCount
	row.MessageCount = &count
	row.UpdatedAt = now()
	m.sessions[sid] = row
	return nil
}

// UpdateSessionTitle implements session.Querier.
func (m *MemSessionQuerier) UpdateSessionTitle(_ context.Context, sessionID pgtype.UUID, title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sid := uuid.UUID(sessionID.Bytes)
	row, ok := m.sessions[sid]
	if !ok {
		return pgx.ErrNoRows
	}
	row.Title = &title
	row.UpdatedAt = now()
	m.sessions[sid] = row
	return nil
}

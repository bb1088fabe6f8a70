package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is the database surface Store depends on. Defined on the consumer
// side so tests can substitute a mock.
type Querier interface {
	CreateSession(ctx context.Context, arg CreateSessionParams) (SessionRow, error)
	GetSession(ctx context.Context, id pgtype.UUID) (SessionRow, error)
	ListSessions(ctx context.Context, limit, offset int32) ([]SessionRow, error)
	DeleteSession(ctx context.Context, id pgtype.UUID) error
	LockSession(ctx context.Context, id pgtype.UUID) (pgtype.UUID, error)
	AddMessage(ctx context.Context, arg AddMessageParams) error
	GetMessages(ctx context.Context, arg GetMessagesParams) ([]MessageRow, error)
	GetRecentMessages(ctx context.Context, sessionID pgtype.UUID, limit int32) ([]MessageRow, error)
	DeleteMessages(ctx context.Context, sessionID pgtype.UUID) error
	GetMaxSequenceNumber(ctx context.Context, sessionID pgtype.UUID) (int32, error)
	UpdateSessionStats(ctx context.Context, arg UpdateSessionStatsParams) error
	UpdateSessionTitle(ctx context.Context, sessionID pgtype.UUID, title string) error
}

// Store manages session persistence. Safe for concurrent use.
type Store struct {
	querier Querier
	pool    *pgxpool.Pool // transaction support; nil in unit tests
	logger  *slog.Logger
}

// New creates a Store. The pool may be nil when testing with a mock
// querier; appends then run non-transactionally.
func New(querier Querier, pool *pgxpool.Pool, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{querier: querier, pool: pool, logger: logger}
}

// CreateSession creates a new conversation session.
func (s *Store) CreateSession(ctx context.Context, title, modelName string) (*Session, error) {
	var titlePtr, modelPtr *string
	if title != "" {
		titlePtr = &title
	}
	if modelName != "" {
		modelPtr = &modelName
	}

	row, err := s.querier.CreateSession(ctx, CreateSessionParams{Title: titlePtr, ModelName: modelPtr})
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	sess := rowToSession(row)
	s.logger.Debug("created session", "id", sess.ID, "title", sess.Title)
	return sess, nil
}

// GetSession retrieves a session by ID.
func (s *Store) GetSession(ctx context.Context, sessionID uuid.UUID) (*Session, error) {
	row, err := s.querier.GetSession(ctx, uuidToPgUUID(sessionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("session %s: %w", sessionID, ErrSessionNotFound)
		}
		return nil, fmt.Errorf("get session %s: %w", sessionID, err)
	}
	return rowToSession(row), nil
}

// ListSessions lists sessions ordered by updated_at descending.
func (s *Store) ListSessions(ctx context.Context, limit, offset int32) ([]*Session, error) {
	rows, err := s.querier.ListSessions(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	sessions := make([]*Session, 0, len(rows))
	for _, row := range rows {
		sessions = append(sessions, rowToSession(row))
	}
	return sessions, nil
}

// DeleteSession deletes a session and all its messages (CASCADE).
func (s *Store) DeleteSession(ctx context.Context, sessionID uuid.UUID) error {
	if err := s.querier.DeleteSession(ctx, uuidToPgUUID(sessionID)); err != nil {
		return fmt.Errorf("delete session %s: %w", sessionID, err)
	}
	s.logger.Debug("deleted session", "id", sessionID)
	return nil
}

// ClearMessages removes a session's messages and resets its counters,
// keeping the session itself so the conversation can restart.
func (s *Store) ClearMessages(ctx context.Context, sessionID uuid.UUID) error {
	pgID := uuidToPgUUID(sessionID)
	if _, err := s.querier.GetSession(ctx, pgID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("session %s: %w", sessionID, ErrSessionNotFound)
		}
		return fmt.Errorf("get session %s: %w", sessionID, err)
	}
	if err := s.querier.DeleteMessages(ctx, pgID); err != nil {
		return fmt.Errorf("clear messages for session %s: %w", sessionID, err)
	}
	if err := s.querier.UpdateSessionStats(ctx, UpdateSessionStatsParams{SessionID: pgID, MessageCount: 0}); err != nil {
		return fmt.Errorf("reset session stats: %w", err)
	}
	s.logger.Debug("cleared session messages", "id", sessionID)
	return nil
}

// SetTitle updates a session's title.
func (s *Store) SetTitle(ctx context.Context, sessionID uuid.UUID, title string) error {
	if err := s.querier.UpdateSessionTitle(ctx, uuidToPgUUID(sessionID), title); err != nil {
		return fmt.Errorf("update session title: %w", err)
	}
	return nil
}

// AddMessages appends messages to a session in one transaction. The session
// row is locked first so concurrent appends cannot race on sequence numbers.
func (s *Store) AddMessages(ctx context.Context, sessionID uuid.UUID, messages []*Message) error {
	if len(messages) == 0 {
		return nil
	}

	// No pool means a mock querier; skip the transaction machinery.
	if s.pool == nil {
		return s.appendMessages(ctx, s.querier, sessionID, messages)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			s.logger.Debug("transaction rollback", "error", err)
		}
	}()

	txQuerier := NewQueries(tx)
	if _, err := txQuerier.LockSession(ctx, uuidToPgUUID(sessionID)); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("session %s: %w", sessionID, ErrSessionNotFound)
		}
		return fmt.Errorf("lock session: %w", err)
	}

	if err := s.appendMessages(ctx, txQuerier, sessionID, messages); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	s.logger.Debug("added messages", "session_id", sessionID, "count", len(messages))
	return nil
}

func (s *Store) appendMessages(ctx context.Context, q Querier, sessionID uuid.UUID, messages []*Message) error {
	pgID := uuidToPgUUID(sessionID)

	maxSeq, err := q.GetMaxSequenceNumber(ctx, pgID)
	if err != nil {
		return fmt.Errorf("get max sequence number: %w", err)
	}

	for i, msg := range messages {
		for j, part := range msg.Content {
			if part == nil {
				return fmt.Errorf("message %d has nil content at index %d", i, j)
			}
		}
		contentJSON, err := json.Marshal(msg.Content)
		if err != nil {
			return fmt.Errorf("marshal message content at index %d: %w", i, err)
		}
		if err := q.AddMessage(ctx, AddMessageParams{
			SessionID:      pgID,
			Role:           msg.Role,
			Content:        contentJSON,
			SequenceNumber: maxSeq + int32(i) + 1, // #nosec G115 -- i bounded by slice length
		}); err != nil {
			return fmt.Errorf("insert message %d: %w", i, err)
		}
	}

	newCount := maxSeq + int32(len(messages)) // #nosec G115 -- len bounded by practical limits
	if err := q.UpdateSessionStats(ctx, UpdateSessionStatsParams{SessionID: pgID, MessageCount: newCount}); err != nil {
		return fmt.Errorf("update session metadata: %w", err)
	}
	return nil
}

// GetMessages retrieves messages in sequence order with pagination.
func (s *Store) GetMessages(ctx context.Context, sessionID uuid.UUID, limit, offset int32) ([]*Message, error) {
	rows, err := s.querier.GetMessages(ctx, GetMessagesParams{
		SessionID:    uuidToPgUUID(sessionID),
		ResultLimit:  limit,
		ResultOffset: offset,
	})
	if err != nil {
		return nil, fmt.Errorf("get messages for session %s: %w", sessionID, err)
	}
	return s.decodeMessages(rows), nil
}

// History returns the most recent messages as Genkit messages in
// conversation order, ready to seed the model context.
func (s *Store) History(ctx context.Context, sessionID uuid.UUID, limit int32) ([]*ai.Message, error) {
	limit = NormalizeHistoryLimit(limit)
	rows, err := s.querier.GetRecentMessages(ctx, uuidToPgUUID(sessionID), limit)
	if err != nil {
		return nil, fmt.Errorf("load history for session %s: %w", sessionID, err)
	}

	messages := s.decodeMessages(rows)
	// Recent-first from the query; restore chronological order.
	out := make([]*ai.Message, 0, len(messages))
	for i := len(messages) - 1; i >= 0; i-- {
		role := ai.Role(messages[i].Role)
		if messages[i].Role == RoleAssistant {
			role = ai.RoleModel
		}
		out = append(out, &ai.Message{Role: role, Content: messages[i].Content})
	}
	return out, nil
}

func (s *Store) decodeMessages(rows []MessageRow) []*Message {
	messages := make([]*Message, 0, len(rows))
	for _, row := range rows {
		var content []*ai.Part
		if err := json.Unmarshal(row.Content, &content); err != nil {
			// Skip malformed rows rather than failing the whole load.
			s.logger.Warn("failed to unmarshal message content",
				"message_id", pgUUIDToUUID(row.ID), "error", err)
			continue
		}
		messages = append(messages, &Message{
			ID:             pgUUIDToUUID(row.ID),
			SessionID:      pgUUIDToUUID(row.SessionID),
			Role:           row.Role,
			Content:        content,
			SequenceNumber: int(row.SequenceNumber),
			CreatedAt:      row.CreatedAt.Time,
		})
	}
	return messages
}

func rowToSession(row SessionRow) *Session {
	sess := &Session{
		ID:        pgUUIDToUUID(row.ID),
		CreatedAt: row.CreatedAt.Time,
		UpdatedAt: row.UpdatedAt.Time,
	}
	if row.Title != nil {
		sess.Title = *row.Title
	}
	if row.ModelName != nil {
		sess.ModelName = *row.ModelName
	}
	if row.MessageCount != nil {
		sess.MessageCount = int(*row.MessageCount)
	}
	return sess
}

func uuidToPgUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

func pgUUIDToUUID(pgUUID pgtype.UUID) uuid.UUID {
	if !pgUUID.Valid {
		return uuid.Nil
	}
	return pgUUID.Bytes
}

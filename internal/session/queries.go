package session

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// DBTX abstracts a pgx connection, pool or transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// SessionRow mirrors the sessions table.
type SessionRow struct {
	ID           pgtype.UUID
	Title        *string
	ModelName    *string
	MessageCount *int32
	CreatedAt    pgtype.Timestamptz
	UpdatedAt    pgtype.Timestamptz
}

// MessageRow mirrors the session_messages table.
type MessageRow struct {
	ID             pgtype.UUID
	SessionID      pgtype.UUID
	Role           string
	Content        []byte
	SequenceNumber int32
	CreatedAt      pgtype.Timestamptz
}

// CreateSessionParams are the nullable columns of a new session.
type CreateSessionParams struct {
	Title     *string
	ModelName *string
}

// AddMessageParams insert one message with an explicit sequence number.
type AddMessageParams struct {
	SessionID      pgtype.UUID
	Role           string
	Content        []byte
	SequenceNumber int32
}

// GetMessagesParams page through a session's messages in sequence order.
type GetMessagesParams struct {
	SessionID    pgtype.UUID
	ResultLimit  int32
	ResultOffset int32
}

// UpdateSessionStatsParams bump a session's message count and updated_at.
type UpdateSessionStatsParams struct {
	SessionID    pgtype.UUID
	MessageCount int32
}

// Queries executes session SQL against a DBTX.
type Queries struct {
	db DBTX
}

// NewQueries returns a Queries bound to db.
func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns a Queries bound to the given transaction.
func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}

const createSessionSQL = `
INSERT INTO sessions (title, model_name)
VALUES ($1, $2)
RETURNING id, title, model_name, message_count, created_at, updated_at`

func (q *Queries) CreateSession(ctx context.Context, arg CreateSessionParams) (SessionRow, error) {
	var row SessionRow
	err := q.db.QueryRow(ctx, createSessionSQL, arg.Title, arg.ModelName).Scan(
		&row.ID, &row.Title, &row.ModelName, &row.MessageCount, &row.CreatedAt, &row.UpdatedAt)
	return row, err
}

const getSessionSQL = `
SELECT id, title, model_name, message_count, created_at, updated_at
FROM sessions WHERE id = $1`

func (q *Queries) GetSession(ctx context.Context, id pgtype.UUID) (SessionRow, error) {
	var row SessionRow
	err := q.db.QueryRow(ctx, getSessionSQL, id).Scan(
		&row.ID, &row.Title, &row.ModelName, &row.MessageCount, &row.CreatedAt, &row.UpdatedAt)
	return row, err
}

const listSessionsSQL = `
SELECT id, title, model_name, message_count, created_at, updated_at
FROM sessions ORDER BY updated_at DESC LIMIT $1 OFFSET $2`

func (q *Queries) ListSessions(ctx context.Context, limit, offset int32) ([]SessionRow, error) {
	rows, err := q.db.Query(ctx, listSessionsSQL, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SessionRow
	for rows.Next() {
		var row SessionRow
		if err := rows.Scan(&row.ID, &row.Title, &row.ModelName, &row.MessageCount, &row.CreatedAt, &row.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

const deleteSessionSQL = `DELETE FROM sessions WHERE id = $1`

func (q *Queries) DeleteSession(ctx context.Context, id pgtype.UUID) error {
	_, err := q.db.Exec(ctx, deleteSessionSQL, id)
	return err
}

// LockSession takes a row lock so concurrent appends cannot race on
// sequence numbers.
const lockSessionSQL = `SELECT id FROM sessions WHERE id = $1 FOR UPDATE`

func (q *Queries) LockSession(ctx context.Context, id pgtype.UUID) (pgtype.UUID, error) {
	var locked pgtype.UUID
	err := q.db.QueryRow(ctx, lockSessionSQL, id).Scan(&locked)
	return locked, err
}

const addMessageSQL = `
INSERT INTO session_messages (session_id, role, content, sequence_number)
VALUES ($1, $2, $3, $4)`

func (q *Queries) AddMessage(ctx context.Context, arg AddMessageParams) error {
	_, err := q.db.Exec(ctx, addMessageSQL, arg.SessionID, arg.Role, arg.Content, arg.SequenceNumber)
	return err
}

const getMessagesSQL = `
SELECT id, session_id, role, content, sequence_number, created_at
FROM session_messages
WHERE session_id = $1
ORDER BY sequence_number ASC
LIMIT $2 OFFSET $3`

func (q *Queries) GetMessages(ctx context.Context, arg GetMessagesParams) ([]MessageRow, error) {
	rows, err := q.db.Query(ctx, getMessagesSQL, arg.SessionID, arg.ResultLimit, arg.ResultOffset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

// getRecentMessagesSQL returns the newest messages; callers reverse the
// slice to restore conversation order.
const getRecentMessagesSQL = `
SELECT id, session_id, role, content, sequence_number, created_at
FROM session_messages
WHERE session_id = $1
ORDER BY sequence_number DESC
LIMIT $2`

func (q *Queries) GetRecentMessages(ctx context.Context, sessionID pgtype.UUID, limit int32) ([]MessageRow, error) {
	rows, err := q.db.Query(ctx, getRecentMessagesSQL, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows)
}

const deleteMessagesSQL = `DELETE FROM session_messages WHERE session_id = $1`

func (q *Queries) DeleteMessages(ctx context.Context, sessionID pgtype.UUID) error {
	_, err := q.db.Exec(ctx, deleteMessagesSQL, sessionID)
	return err
}

const getMaxSequenceNumberSQL = `
SELECT COALESCE(MAX(sequence_number), 0) FROM session_messages WHERE session_id = $1`

func (q *Queries) GetMaxSequenceNumber(ctx context.Context, sessionID pgtype.UUID) (int32, error) {
	var maxSeq int32
	err := q.db.QueryRow(ctx, getMaxSequenceNumberSQL, sessionID).Scan(&maxSeq)
	return maxSeq, err
}

const updateSessionStatsSQL = `
UPDATE sessions SET message_count = $1, updated_at = now() WHERE id = $2`

func (q *Queries) UpdateSessionStats(ctx context.Context, arg UpdateSessionStatsParams) error {
	_, err := q.db.Exec(ctx, updateSessionStatsSQL, arg.MessageCount, arg.SessionID)
	return err
}

const updateSessionTitleSQL = `
UPDATE sessions SET title = $1, updated_at = now() WHERE id = $2`

func (q *Queries) UpdateSessionTitle(ctx context.Context, sessionID pgtype.UUID, title string) error {
	_, err := q.db.Exec(ctx, updateSessionTitleSQL, title, sessionID)
	return err
}

func scanMessages(rows pgx.Rows) ([]MessageRow, error) {
	var out []MessageRow
	for rows.Next() {
		var row MessageRow
		if err := rows.Scan(&row.ID, &row.SessionID, &row.Role, &row.Content, &row.SequenceNumber, &row.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

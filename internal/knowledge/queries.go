package knowledge

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pgvector/pgvector-go"
)

// DBTX abstracts a pgx connection, pool or transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// UpsertDocumentParams carries one document row.
type UpsertDocumentParams struct {
	ID         string
	Content    string
	SourceType string
	Embedding  *pgvector.Vector
	Metadata   []byte
	CreatedAt  pgtype.Timestamptz
}

// SearchDocumentsParams is a filtered kNN query.
type SearchDocumentsParams struct {
	QueryEmbedding *pgvector.Vector
	SourceType     string // empty = all source types
	FilterMetadata []byte // nil = no metadata filter
	ResultLimit    int
}

// DocumentRow is one search or list hit.
type DocumentRow struct {
	ID         string
	Content    string
	SourceType string
	Metadata   []byte
	CreatedAt  pgtype.Timestamptz
	Similarity float32
}

// Queries executes knowledge SQL against a DBTX.
type Queries struct {
	db DBTX
}

// NewQueries returns a Queries bound to db.
func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

const upsertDocumentSQL = `
INSERT INTO documents (id, content, source_type, embedding, metadata, created_at)
VALUES ($1, $2, $3, $4, $5, COALESCE($6, now()))
ON CONFLICT (id) DO UPDATE SET
	content = EXCLUDED.content,
	source_type = EXCLUDED.source_type,
	embedding = EXCLUDED.embedding,
	metadata = EXCLUDED.metadata`

func (q *Queries) UpsertDocument(ctx context.Context, arg UpsertDocumentParams) error {
	var createdAt any
	if arg.CreatedAt.Valid {
		createdAt = arg.CreatedAt
	}
	_, err := q.db.Exec(ctx, upsertDocumentSQL,
		arg.ID, arg.Content, arg.SourceType, arg.Embedding, arg.Metadata, createdAt)
	return err
}

// searchDocumentsSQL orders by cosine distance; similarity = 1 - distance.
// Both filters are optional and collapse to TRUE when unset, so one
// parameterized statement serves every search shape.
const searchDocumentsSQL = `
SELECT id, content, source_type, metadata, created_at,
	(1 - (embedding <=> $1))::float4 AS similarity
FROM documents
WHERE ($2 = '' OR source_type = $2)
  AND ($3::jsonb IS NULL OR metadata @> $3::jsonb)
ORDER BY embedding <=> $1
LIMIT $4`

func (q *Queries) SearchDocuments(ctx context.Context, arg SearchDocumentsParams) ([]DocumentRow, error) {
	var filter any
	if len(arg.FilterMetadata) > 0 {
		filter = arg.FilterMetadata
	}
	rows, err := q.db.Query(ctx, searchDocumentsSQL,
		arg.QueryEmbedding, arg.SourceType, filter, arg.ResultLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DocumentRow
	for rows.Next() {
		var row DocumentRow
		if err := rows.Scan(&row.ID, &row.Content, &row.SourceType, &row.Metadata, &row.CreatedAt, &row.Similarity); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

const countDocumentsSQL = `
SELECT COUNT(*) FROM documents WHERE ($1 = '' OR source_type = $1)`

func (q *Queries) CountDocuments(ctx context.Context, sourceType string) (int64, error) {
	var count int64
	err := q.db.QueryRow(ctx, countDocumentsSQL, sourceType).Scan(&count)
	return count, err
}

const deleteDocumentSQL = `DELETE FROM documents WHERE id = $1`

func (q *Queries) DeleteDocument(ctx context.Context, id string) error {
	_, err := q.db.Exec(ctx, deleteDocumentSQL, id)
	return err
}

const deleteDocumentsBySourceSQL = `DELETE FROM documents WHERE source_type = $1`

func (q *Queries) DeleteDocumentsBySource(ctx context.Context, sourceType string) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteDocumentsBySourceSQL, sourceType)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const listDocumentsBySourceSQL = `
SELECT id, content, source_type, metadata, created_at, 0::float4 AS similarity
FROM documents
WHERE source_type = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

func (q *Queries) ListDocumentsBySource(ctx context.Context, sourceType string, limit, offset int32) ([]DocumentRow, error) {
	rows, err := q.db.Query(ctx, listDocumentsBySourceSQL, sourceType, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DocumentRow
	for rows.Next() {
		var row DocumentRow
		if err := rows.Scan(&row.ID, &row.Content, &row.SourceType, &row.Metadata, &row.CreatedAt, &row.Similarity); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

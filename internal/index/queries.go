package index

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SQL for the chunks table. The access-target predicate is pushed into the
// search query itself so a restricted search ranks only eligible chunks;
// filtering after the fact would starve the result limit.
const (
	insertChunkSQL = `
INSERT INTO chunks (id, content, embedding, metadata)
VALUES ($1, $2, $3, $4)`

	searchChunksFilteredSQL = `
SELECT id, content, metadata, (1 - (embedding <=> $1))::float4 AS similarity
FROM chunks
WHERE metadata->>'access_target' = ANY($2)
ORDER BY embedding <=> $1
LIMIT $3`

	searchChunksAllSQL = `
SELECT id, content, metadata, (1 - (embedding <=> $1))::float4 AS similarity
FROM chunks
ORDER BY embedding <=> $1
LIMIT $2`

	deleteDocumentChunksSQL = `
DELETE FROM chunks
WHERE metadata->>'document_id' = $1`

	countChunksSQL = `SELECT COUNT(*) FROM chunks`
)

// PGQueries is the production Querier over a pgx connection pool.
type PGQueries struct {
	pool *pgxpool.Pool
}

// NewPGQueries creates the pgx-backed Querier.
func NewPGQueries(pool *pgxpool.Pool) *PGQueries {
	return &PGQueries{pool: pool}
}

// InsertChunks writes all rows in one batch inside one transaction, so a
// document commit is atomic: a failure at any row aborts the whole commit
// and no chunk of the document becomes visible.
func (q *PGQueries) InsertChunks(ctx context.Context, rows []InsertChunkParams) error {
	tx, err := q.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		// No-op after a successful Commit.
		_ = tx.Rollback(ctx)
	}()

	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(insertChunkSQL, row.ID, row.Content, row.Embedding, row.Metadata)
	}

	br := tx.SendBatch(ctx, batch)
	for range rows {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("inserting chunk: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("closing batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// SearchChunks runs the similarity query, filtered by access target when
// Targets is non-nil.
func (q *PGQueries) SearchChunks(ctx context.Context, arg SearchChunksParams) ([]SearchChunksRow, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if arg.Targets != nil {
		rows, err = q.pool.Query(ctx, searchChunksFilteredSQL,
			arg.QueryEmbedding, arg.Targets, arg.ResultLimit)
	} else {
		rows, err = q.pool.Query(ctx, searchChunksAllSQL,
			arg.QueryEmbedding, arg.ResultLimit)
	}
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var out []SearchChunksRow
	for rows.Next() {
		var row SearchChunksRow
		if err := rows.Scan(&row.ID, &row.Content, &row.Metadata, &row.Similarity); err != nil {
			return nil, fmt.Errorf("scanning chunk row: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading chunk rows: %w", err)
	}
	return out, nil
}

// DeleteDocumentChunks removes every chunk of one document in a single
// statement.
func (q *PGQueries) DeleteDocumentChunks(ctx context.Context, documentID string) (int64, error) {
	tag, err := q.pool.Exec(ctx, deleteDocumentChunksSQL, documentID)
	if err != nil {
		return 0, fmt.Errorf("deleting chunks: %w", err)
	}
	return tag.RowsAffected(), nil
}

// CountChunks returns the total row count.
func (q *PGQueries) CountChunks(ctx context.Context) (int64, error) {
	var count int64
	if err := q.pool.QueryRow(ctx, countChunksSQL).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return count, nil
}

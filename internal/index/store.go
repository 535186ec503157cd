package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/pgvector/pgvector-go"
	"google.golang.org/genai"
)

// searchTimeout bounds a single vector search (embedding plus SQL) so a
// slow index cannot block request handling. A caller-supplied deadline
// shorter than this wins.
const searchTimeout = 10 * time.Second

// Querier defines the database operations the store needs. Defined by the
// consumer so the store depends on an abstraction: production uses
// PGQueries over a pgx pool, tests substitute a mock.
type Querier interface {
	// InsertChunks writes all rows inside a single transaction.
	InsertChunks(ctx context.Context, rows []InsertChunkParams) error

	// SearchChunks performs a similarity search. A nil Targets slice
	// searches the full index; otherwise only chunks whose access target
	// is in Targets are candidates.
	SearchChunks(ctx context.Context, arg SearchChunksParams) ([]SearchChunksRow, error)

	// DeleteDocumentChunks removes every chunk of one document,
	// returning the number of rows deleted.
	DeleteDocumentChunks(ctx context.Context, documentID string) (int64, error)

	// CountChunks returns the total number of indexed chunks.
	CountChunks(ctx context.Context) (int64, error)
}

// InsertChunkParams is one row of a document commit.
type InsertChunkParams struct {
	ID        string
	Content   string
	Embedding *pgvector.Vector
	Metadata  []byte
}

// SearchChunksParams configures one similarity search.
type SearchChunksParams struct {
	QueryEmbedding *pgvector.Vector
	Targets        []string // nil = unfiltered
	ResultLimit    int32
}

// SearchChunksRow is one similarity-ranked row.
type SearchChunksRow struct {
	ID         string
	Content    string
	Metadata   []byte
	Similarity float32
}

// Store manages chunk records with vector search. It owns embedding
// generation: callers hand it text, it stores and searches vectors.
//
// Safe for concurrent use by multiple goroutines.
type Store struct {
	queries  Querier
	embedder ai.Embedder
	logger   *slog.Logger
}

// New creates a Store. A nil logger falls back to slog.Default.
func New(queries Querier, embedder ai.Embedder, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		queries:  queries,
		embedder: embedder,
		logger:   logger,
	}
}

// AddDocument embeds and commits all chunks of one document as a single
// transactional unit. Either every chunk becomes visible or none does.
//
// The chunks must all carry the same document id; callers construct them
// that way during ingestion, and ids are fresh per ingestion call, so two
// concurrent ingestions can never interleave within one document.
func (s *Store) AddDocument(ctx context.Context, chunks []Chunk) error {
	if s.queries == nil || s.embedder == nil {
		return ErrUnavailable
	}
	if len(chunks) == 0 {
		return fmt.Errorf("no chunks to add")
	}

	embeddings, err := s.embedTexts(ctx, chunkTexts(chunks))
	if err != nil {
		return err
	}

	rows := make([]InsertChunkParams, len(chunks))
	for i, c := range chunks {
		metadata, err := json.Marshal(c.Metadata)
		if err != nil {
			return fmt.Errorf("marshaling metadata for chunk %q: %w", c.ID, err)
		}
		vec := pgvector.NewVector(embeddings[i])
		rows[i] = InsertChunkParams{
			ID:        c.ID,
			Content:   c.Text,
			Embedding: &vec,
			Metadata:  metadata,
		}
	}

	if err := s.queries.InsertChunks(ctx, rows); err != nil {
		return fmt.Errorf("committing %d chunks for document %q: %w",
			len(rows), chunks[0].Metadata.DocumentID, err)
	}

	s.logger.Debug("committed document chunks",
		"document_id", chunks[0].Metadata.DocumentID,
		"chunks", len(rows))
	return nil
}

// Search returns at most k chunks similarity-ranked against the query
// text, restricted by the filter. Fewer than k results is a valid outcome
// for a sparse corpus, not an error.
func (s *Store) Search(ctx context.Context, query string, filter Filter, k int) ([]Result, error) {
	if s.queries == nil || s.embedder == nil {
		return nil, ErrUnavailable
	}
	if k <= 0 {
		return nil, fmt.Errorf("result limit must be positive, got %d", k)
	}

	queryCtx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	embeddings, err := s.embedTexts(queryCtx, []string{query})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("query embedding timeout: %w", err)
		}
		return nil, err
	}
	queryEmbedding := pgvector.NewVector(embeddings[0])

	rows, err := s.queries.SearchChunks(queryCtx, SearchChunksParams{
		QueryEmbedding: &queryEmbedding,
		Targets:        filter.Targets(),
		ResultLimit:    int32(k), // #nosec G115 -- k validated positive and small
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("search query timeout: %w", err)
		}
		return nil, fmt.Errorf("search failed: %w", err)
	}

	return s.rowsToResults(rows), nil
}

// DeleteDocument removes all chunks of one document. Deletion of one
// document id is all-or-nothing: a single DELETE statement removes every
// matching row. Returns the number of chunks removed; zero means the
// document was not indexed.
func (s *Store) DeleteDocument(ctx context.Context, documentID string) (int64, error) {
	if s.queries == nil {
		return 0, ErrUnavailable
	}
	if documentID == "" {
		return 0, fmt.Errorf("document id must not be empty")
	}

	deleted, err := s.queries.DeleteDocumentChunks(ctx, documentID)
	if err != nil {
		return 0, fmt.Errorf("deleting document %q: %w", documentID, err)
	}

	s.logger.Debug("deleted document chunks", "document_id", documentID, "chunks", deleted)
	return deleted, nil
}

// Count returns the total number of indexed chunks.
func (s *Store) Count(ctx context.Context) (int64, error) {
	if s.queries == nil {
		return 0, ErrUnavailable
	}
	count, err := s.queries.CountChunks(ctx)
	if err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return count, nil
}

// embedTexts generates embeddings for all texts in one request and
// validates that the backend returned one vector of the schema's dimension
// per input.
//
// gemini-embedding-001 outputs 3072 dimensions by default; the request
// asks for truncation to VectorDimension so vectors fit the pgvector
// column. A backend that ignores the option fails the dimension check
// here instead of failing the INSERT or the similarity query.
func (s *Store) embedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	input := make([]*ai.Document, len(texts))
	for i, t := range texts {
		input[i] = ai.DocumentFromText(t, nil)
	}

	dim := int32(VectorDimension)
	resp, err := s.embedder.Embed(ctx, &ai.EmbedRequest{
		Input:   input,
		Options: &genai.EmbedContentConfig{OutputDimensionality: &dim},
	})
	if err != nil {
		return nil, fmt.Errorf("generating embeddings: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d inputs", len(resp.Embeddings), len(texts))
	}

	out := make([][]float32, len(texts))
	for i, e := range resp.Embeddings {
		if len(e.Embedding) != VectorDimension {
			return nil, fmt.Errorf("embedder returned %d-dimensional vector for input %d, schema requires %d",
				len(e.Embedding), i, VectorDimension)
		}
		out[i] = e.Embedding
	}
	return out, nil
}

func chunkTexts(chunks []Chunk) []string {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	return texts
}

// rowsToResults converts database rows to domain results. Rows with
// unparsable metadata are kept with zero-value metadata rather than
// dropped, so a single bad row cannot hide search results.
func (s *Store) rowsToResults(rows []SearchChunksRow) []Result {
	results := make([]Result, 0, len(rows))
	for _, row := range rows {
		var metadata Metadata
		if err := json.Unmarshal(row.Metadata, &metadata); err != nil {
			s.logger.Warn("failed to parse chunk metadata", "chunk_id", row.ID, "error", err)
		}
		results = append(results, Result{
			Chunk: Chunk{
				ID:       row.ID,
				Text:     row.Content,
				Metadata: metadata,
			},
			Similarity: row.Similarity,
		})
	}
	return results
}

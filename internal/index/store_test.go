package index

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
	"google.golang.org/genai"

	"github.com/lyceum-ai/lyceum/internal/access"
	"github.com/lyceum-ai/lyceum/internal/log"
)

// mockEmbedder implements ai.Embedder with a fixed vector per input.
type mockEmbedder struct {
	embedErr    error
	vector      []float32
	callCount   int
	lastInput   []string
	lastOptions any
}

func (m *mockEmbedder) Name() string { return "mock-embedder" }

func (m *mockEmbedder) Register(api.Registry) {}

func (m *mockEmbedder) Embed(_ context.Context, req *ai.EmbedRequest) (*ai.EmbedResponse, error) {
	m.callCount++
	m.lastInput = nil
	m.lastOptions = req.Options
	for _, doc := range req.Input {
		if len(doc.Content) > 0 {
			m.lastInput = append(m.lastInput, doc.Content[0].Text)
		}
	}
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	vec := m.vector
	if vec == nil {
		vec = make([]float32, VectorDimension)
		vec[0] = 0.1
		vec[1] = 0.2
	}
	resp := &ai.EmbedResponse{}
	for range req.Input {
		resp.Embeddings = append(resp.Embeddings, &ai.Embedding{Embedding: vec})
	}
	return resp, nil
}

// mockQuerier records calls and returns configured results.
type mockQuerier struct {
	insertErr error
	searchErr error
	deleteErr error
	countErr  error

	searchRows   []SearchChunksRow
	deleteResult int64
	countResult  int64

	insertedRows []InsertChunkParams
	searchArgs   []SearchChunksParams
	deletedIDs   []string
}

func (m *mockQuerier) InsertChunks(_ context.Context, rows []InsertChunkParams) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.insertedRows = append(m.insertedRows, rows...)
	return nil
}

func (m *mockQuerier) SearchChunks(_ context.Context, arg SearchChunksParams) ([]SearchChunksRow, error) {
	m.searchArgs = append(m.searchArgs, arg)
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	return m.searchRows, nil
}

func (m *mockQuerier) DeleteDocumentChunks(_ context.Context, documentID string) (int64, error) {
	if m.deleteErr != nil {
		return 0, m.deleteErr
	}
	m.deletedIDs = append(m.deletedIDs, documentID)
	return m.deleteResult, nil
}

func (m *mockQuerier) CountChunks(_ context.Context) (int64, error) {
	if m.countErr != nil {
		return 0, m.countErr
	}
	return m.countResult, nil
}

func testChunks() []Chunk {
	return []Chunk{
		{
			ID:   "doc_1_chunk_0",
			Text: "first window",
			Metadata: Metadata{
				SourceFilename: "syllabus.pdf",
				PageNumber:     1,
				DocumentID:     "doc_1",
				ChunkIndex:     0,
				AccessTarget:   access.TargetPublic,
			},
		},
		{
			ID:   "doc_1_chunk_1",
			Text: "second window",
			Metadata: Metadata{
				SourceFilename: "syllabus.pdf",
				PageNumber:     2,
				DocumentID:     "doc_1",
				ChunkIndex:     1,
				AccessTarget:   access.TargetPublic,
			},
		},
	}
}

func TestAddDocument(t *testing.T) {
	q := &mockQuerier{}
	e := &mockEmbedder{}
	store := New(q, e, log.NewNop())

	if err := store.AddDocument(context.Background(), testChunks()); err != nil {
		t.Fatalf("AddDocument: %v", err)
	}

	if e.callCount != 1 {
		t.Errorf("embedder called %d times, want 1 batched call", e.callCount)
	}
	if len(q.insertedRows) != 2 {
		t.Fatalf("inserted %d rows, want 2", len(q.insertedRows))
	}

	var meta Metadata
	if err := json.Unmarshal(q.insertedRows[0].Metadata, &meta); err != nil {
		t.Fatalf("unmarshal stored metadata: %v", err)
	}
	if meta.AccessTarget != access.TargetPublic || meta.DocumentID != "doc_1" || meta.ChunkIndex != 0 {
		t.Errorf("stored metadata = %+v", meta)
	}
	if q.insertedRows[1].ID != "doc_1_chunk_1" {
		t.Errorf("second row id = %q", q.insertedRows[1].ID)
	}
}

func TestEmbedRequestsSchemaDimension(t *testing.T) {
	q := &mockQuerier{}
	e := &mockEmbedder{}
	store := New(q, e, log.NewNop())

	if err := store.AddDocument(context.Background(), testChunks()); err != nil {
		t.Fatalf("AddDocument: %v", err)
	}

	cfg, ok := e.lastOptions.(*genai.EmbedContentConfig)
	if !ok {
		t.Fatalf("embed options = %T, want *genai.EmbedContentConfig", e.lastOptions)
	}
	if cfg.OutputDimensionality == nil || *cfg.OutputDimensionality != VectorDimension {
		t.Errorf("output dimensionality = %v, want %d", cfg.OutputDimensionality, VectorDimension)
	}
}

func TestEmbedDimensionMismatchRejected(t *testing.T) {
	q := &mockQuerier{}
	// A backend ignoring the truncation option returns full-width vectors.
	e := &mockEmbedder{vector: make([]float32, 3072)}
	store := New(q, e, log.NewNop())

	err := store.AddDocument(context.Background(), testChunks())
	if err == nil {
		t.Fatal("expected error for vector wider than the schema column")
	}
	if !strings.Contains(err.Error(), "3072") {
		t.Errorf("error should name the offending dimension, got %v", err)
	}
	if len(q.insertedRows) != 0 {
		t.Errorf("no rows must be written on dimension mismatch, got %d", len(q.insertedRows))
	}

	if _, err := store.Search(context.Background(), "q", Unfiltered(), 5); err == nil {
		t.Error("search must also reject a mismatched query vector")
	}
}

func TestAddDocumentEmbedFailure(t *testing.T) {
	q := &mockQuerier{}
	e := &mockEmbedder{embedErr: errors.New("backend down")}
	store := New(q, e, log.NewNop())

	if err := store.AddDocument(context.Background(), testChunks()); err == nil {
		t.Fatal("expected error when embedding fails")
	}
	if len(q.insertedRows) != 0 {
		t.Errorf("no rows must be written when embedding fails, got %d", len(q.insertedRows))
	}
}

func TestAddDocumentUnavailable(t *testing.T) {
	store := New(nil, nil, log.NewNop())
	if err := store.AddDocument(context.Background(), testChunks()); !errors.Is(err, ErrUnavailable) {
		t.Errorf("error = %v, want ErrUnavailable", err)
	}
}

func TestSearchFilterPushdown(t *testing.T) {
	q := &mockQuerier{}
	e := &mockEmbedder{}
	store := New(q, e, log.NewNop())

	allowed := access.Resolve(access.Identity{Role: access.RoleStudent, Level: 2})
	if _, err := store.Search(context.Background(), "grading policy", ForTags(allowed), 5); err != nil {
		t.Fatalf("Search: %v", err)
	}

	if len(q.searchArgs) != 1 {
		t.Fatalf("search called %d times, want 1", len(q.searchArgs))
	}
	arg := q.searchArgs[0]
	want := []string{"public", "all_students", "level_2"}
	if len(arg.Targets) != len(want) {
		t.Fatalf("targets = %v, want %v", arg.Targets, want)
	}
	for i, target := range want {
		if arg.Targets[i] != target {
			t.Errorf("targets[%d] = %q, want %q", i, arg.Targets[i], target)
		}
	}
	if arg.ResultLimit != 5 {
		t.Errorf("result limit = %d, want 5", arg.ResultLimit)
	}
}

func TestSearchUnrestrictedOmitsFilter(t *testing.T) {
	q := &mockQuerier{}
	store := New(q, &mockEmbedder{}, log.NewNop())

	admin := access.Resolve(access.Identity{Role: access.RoleAdmin})
	if _, err := store.Search(context.Background(), "anything", ForTags(admin), 5); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if q.searchArgs[0].Targets != nil {
		t.Errorf("unrestricted search must pass nil targets, got %v", q.searchArgs[0].Targets)
	}
}

func TestSearchResultConversion(t *testing.T) {
	metadata, _ := json.Marshal(Metadata{
		SourceFilename: "a.pdf",
		PageNumber:     3,
		DocumentID:     "doc_9",
		ChunkIndex:     4,
		AccessTarget:   access.TargetAllStudents,
	})
	q := &mockQuerier{searchRows: []SearchChunksRow{
		{ID: "doc_9_chunk_4", Content: "window text", Metadata: metadata, Similarity: 0.87},
		{ID: "doc_9_chunk_5", Content: "bad metadata", Metadata: []byte("{"), Similarity: 0.5},
	}}
	store := New(q, &mockEmbedder{}, log.NewNop())

	results, err := store.Search(context.Background(), "q", Unfiltered(), 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2 (bad metadata kept, not dropped)", len(results))
	}
	if results[0].Chunk.Metadata.SourceFilename != "a.pdf" || results[0].Chunk.Metadata.PageNumber != 3 {
		t.Errorf("metadata = %+v", results[0].Chunk.Metadata)
	}
	if results[0].Similarity != 0.87 {
		t.Errorf("similarity = %v", results[0].Similarity)
	}
	if results[1].Chunk.Metadata != (Metadata{}) {
		t.Errorf("unparsable metadata should be zero value, got %+v", results[1].Chunk.Metadata)
	}
}

func TestSearchErrors(t *testing.T) {
	t.Run("unavailable", func(t *testing.T) {
		store := New(nil, nil, log.NewNop())
		if _, err := store.Search(context.Background(), "q", Unfiltered(), 5); !errors.Is(err, ErrUnavailable) {
			t.Errorf("error = %v, want ErrUnavailable", err)
		}
	})

	t.Run("invalid limit", func(t *testing.T) {
		store := New(&mockQuerier{}, &mockEmbedder{}, log.NewNop())
		if _, err := store.Search(context.Background(), "q", Unfiltered(), 0); err == nil {
			t.Error("expected error for k=0")
		}
	})

	t.Run("query failure wrapped", func(t *testing.T) {
		q := &mockQuerier{searchErr: errors.New("connection refused")}
		store := New(q, &mockEmbedder{}, log.NewNop())
		if _, err := store.Search(context.Background(), "q", Unfiltered(), 5); err == nil {
			t.Error("expected wrapped search error")
		}
	})
}

func TestDeleteDocument(t *testing.T) {
	q := &mockQuerier{deleteResult: 7}
	store := New(q, &mockEmbedder{}, log.NewNop())

	deleted, err := store.DeleteDocument(context.Background(), "doc_3")
	if err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}
	if deleted != 7 {
		t.Errorf("deleted = %d, want 7", deleted)
	}
	if len(q.deletedIDs) != 1 || q.deletedIDs[0] != "doc_3" {
		t.Errorf("deleted ids = %v", q.deletedIDs)
	}

	if _, err := store.DeleteDocument(context.Background(), ""); err == nil {
		t.Error("expected error for empty document id")
	}
}

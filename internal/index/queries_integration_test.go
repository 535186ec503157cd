package index_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/pgvector/pgvector-go"

	"github.com/lyceum-ai/lyceum/internal/index"
	"github.com/lyceum-ai/lyceum/internal/testutil"
)

// unitVector returns a 768-dim unit vector pointing along the given axis.
// Distinct axes are orthogonal, so cosine similarity between them is 0.
func unitVector(axis int) *pgvector.Vector {
	vals := make([]float32, index.VectorDimension)
	vals[axis] = 1
	v := pgvector.NewVector(vals)
	return &v
}

func metadataJSON(t *testing.T, docID, target string, chunkIdx int) []byte {
	t.Helper()
	b, err := json.Marshal(index.Metadata{
		SourceFilename: "physics.pdf",
		PageNumber:     1,
		DocumentID:     docID,
		ChunkIndex:     chunkIdx,
		AccessTarget:   target,
	})
	if err != nil {
		t.Fatalf("marshaling metadata: %v", err)
	}
	return b
}

func TestPGQueriesRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	q := index.NewPGQueries(db.Pool)

	rows := []index.InsertChunkParams{
		{ID: "doc_a_chunk_0", Content: "public chunk", Embedding: unitVector(0), Metadata: metadataJSON(t, "doc_a", "public", 0)},
		{ID: "doc_a_chunk_1", Content: "level one chunk", Embedding: unitVector(1), Metadata: metadataJSON(t, "doc_a", "level_1", 1)},
		{ID: "doc_b_chunk_0", Content: "admin chunk", Embedding: unitVector(2), Metadata: metadataJSON(t, "doc_b", "admin_only", 0)},
	}
	if err := q.InsertChunks(ctx, rows); err != nil {
		t.Fatalf("InsertChunks() error: %v", err)
	}

	count, err := q.CountChunks(ctx)
	if err != nil {
		t.Fatalf("CountChunks() error: %v", err)
	}
	if count != 3 {
		t.Fatalf("count = %d, want 3", count)
	}

	// Unfiltered search sees everything; the matching axis ranks first.
	all, err := q.SearchChunks(ctx, index.SearchChunksParams{
		QueryEmbedding: unitVector(2),
		ResultLimit:    10,
	})
	if err != nil {
		t.Fatalf("SearchChunks() error: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("unfiltered results = %d, want 3", len(all))
	}
	if all[0].ID != "doc_b_chunk_0" {
		t.Errorf("top result = %s, want doc_b_chunk_0", all[0].ID)
	}
	if all[0].Similarity < 0.99 {
		t.Errorf("exact match similarity = %f, want ~1", all[0].Similarity)
	}

	// Filtered search must exclude rows outside the target set even when
	// they are the best vector match.
	filtered, err := q.SearchChunks(ctx, index.SearchChunksParams{
		QueryEmbedding: unitVector(2),
		Targets:        []string{"public", "all_students", "level_1"},
		ResultLimit:    10,
	})
	if err != nil {
		t.Fatalf("SearchChunks() filtered error: %v", err)
	}
	if len(filtered) != 2 {
		t.Fatalf("filtered results = %d, want 2", len(filtered))
	}
	for _, r := range filtered {
		if r.ID == "doc_b_chunk_0" {
			t.Error("admin_only chunk leaked through target filter")
		}
	}

	// Deleting a document removes exactly its chunks.
	deleted, err := q.DeleteDocumentChunks(ctx, "doc_a")
	if err != nil {
		t.Fatalf("DeleteDocumentChunks() error: %v", err)
	}
	if deleted != 2 {
		t.Errorf("deleted = %d, want 2", deleted)
	}

	count, err = q.CountChunks(ctx)
	if err != nil {
		t.Fatalf("CountChunks() error: %v", err)
	}
	if count != 1 {
		t.Errorf("count after delete = %d, want 1", count)
	}
}

func TestPGQueriesInsertIsAtomic(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	q := index.NewPGQueries(db.Pool)

	seed := []index.InsertChunkParams{
		{ID: "doc_c_chunk_0", Content: "first", Embedding: unitVector(0), Metadata: metadataJSON(t, "doc_c", "public", 0)},
	}
	if err := q.InsertChunks(ctx, seed); err != nil {
		t.Fatalf("seeding: %v", err)
	}

	// Second batch collides on the primary key of its second row; the
	// whole batch must roll back, leaving only the seed row.
	bad := []index.InsertChunkParams{
		{ID: "doc_d_chunk_0", Content: "ok", Embedding: unitVector(1), Metadata: metadataJSON(t, "doc_d", "public", 0)},
		{ID: "doc_c_chunk_0", Content: "dup", Embedding: unitVector(2), Metadata: metadataJSON(t, "doc_c", "public", 0)},
	}
	if err := q.InsertChunks(ctx, bad); err == nil {
		t.Fatal("InsertChunks() with duplicate key should fail")
	}

	count, err := q.CountChunks(ctx)
	if err != nil {
		t.Fatalf("CountChunks() error: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1 (failed batch must not persist partially)", count)
	}
}

// Package index implements the vector index for document chunks.
//
// The index is PostgreSQL with the pgvector extension. Each row is one
// chunk: its text, its embedding, and a JSONB metadata document carrying
// provenance (source filename, page number, document id, chunk ordinal)
// and the access target controlling who may retrieve it.
//
// The index exclusively owns chunk records. Ingestion commits all chunks
// of a document inside one transaction, so a document is either fully
// visible or absent; readers never observe a partial document. Concurrent
// reads and cross-document writes require no application-level locking
// because chunk ids are globally unique and non-overlapping.
package index

import "errors"

// VectorDimension is the embedding dimension of the chunks table schema.
// gemini-embedding-001 supports truncation to 768 dimensions, which is
// what the pgvector column is sized for.
const VectorDimension = 768

// ErrUnavailable indicates the index or its embedder is not configured.
// Distinguishable from an empty result set: "no matches" is a valid
// outcome, a missing index is a system fault.
var ErrUnavailable = errors.New("vector index unavailable")

// Metadata is the persisted metadata document of a chunk.
// PageNumber is omitted for formats without page structure.
type Metadata struct {
	SourceFilename string `json:"source_filename"`
	PageNumber     int    `json:"page_number,omitempty"`
	DocumentID     string `json:"document_id"`
	ChunkIndex     int    `json:"chunk_index"`
	AccessTarget   string `json:"access_target"`
}

// Chunk is the unit of indexing and retrieval.
type Chunk struct {
	ID       string
	Text     string
	Metadata Metadata
}

// Result is a retrieved chunk with its cosine similarity to the query.
type Result struct {
	Chunk      Chunk
	Similarity float32
}

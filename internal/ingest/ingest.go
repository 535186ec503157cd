// Package ingest turns uploaded documents into committed index chunks.
//
// The pipeline validates the declared access target, extracts text with the
// loader package, splits it into overlapping chunks, and hands the whole
// document to the index in a single call so it becomes visible atomically.
// Chunk indexes are contiguous and zero-based across page boundaries, so a
// document re-split with the same parameters always produces the same layout.
package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/lyceum-ai/lyceum/internal/access"
	"github.com/lyceum-ai/lyceum/internal/chunk"
	"github.com/lyceum-ai/lyceum/internal/index"
	"github.com/lyceum-ai/lyceum/internal/loader"
	"github.com/lyceum-ai/lyceum/internal/log"
)

var (
	// ErrInvalidAccessTarget indicates the declared access target is not in
	// the fixed vocabulary.
	ErrInvalidAccessTarget = errors.New("invalid access target")

	// ErrEmptyFile indicates the uploaded file has no bytes.
	ErrEmptyFile = errors.New("empty file")

	// ErrNoContent indicates extraction produced no indexable text.
	ErrNoContent = errors.New("no extractable content")

	// ErrUnavailable indicates the pipeline is not fully configured.
	ErrUnavailable = errors.New("ingestion pipeline unavailable")
)

// Writer commits a batch of chunks to the index.
// *index.Store satisfies this.
type Writer interface {
	AddDocument(ctx context.Context, chunks []index.Chunk) error
}

// Pipeline ingests documents into the vector index.
type Pipeline struct {
	store    Writer
	splitter *chunk.Splitter
	logger   log.Logger
}

// New creates an ingestion pipeline with default chunking parameters.
func New(store Writer, logger log.Logger) *Pipeline {
	return &Pipeline{
		store:    store,
		splitter: chunk.NewDefaultSplitter(),
		logger:   logger,
	}
}

// Ingest processes one uploaded document and commits it to the index.
// It returns the generated document ID.
//
// Every chunk of the document carries the same access target; readers are
// filtered against it at query time. The document becomes visible only after
// the store commits, so a failure anywhere leaves no partial document behind.
func (p *Pipeline) Ingest(ctx context.Context, content []byte, contentType, filename, accessTarget string) (string, error) {
	if p == nil || p.store == nil {
		return "", ErrUnavailable
	}

	if !access.ValidTarget(accessTarget) {
		return "", fmt.Errorf("%w: %q", ErrInvalidAccessTarget, accessTarget)
	}

	if len(content) == 0 {
		return "", ErrEmptyFile
	}

	pages, err := loader.Load(content, contentType, filename)
	if err != nil {
		if errors.Is(err, loader.ErrUnsupportedType) {
			return "", err
		}
		// A corrupt payload of a supported type yields no document,
		// not a system fault.
		p.logger.Warn("document extraction failed",
			"filename", filename, "content_type", contentType, "error", err)
		return "", fmt.Errorf("%w: %v", ErrNoContent, err)
	}

	docID := "doc_" + uuid.NewString()

	var chunks []index.Chunk
	for _, page := range pages {
		for _, c := range p.splitter.Split(page.Text) {
			i := len(chunks)
			chunks = append(chunks, index.Chunk{
				ID:   fmt.Sprintf("%s_chunk_%d", docID, i),
				Text: c.Text,
				Metadata: index.Metadata{
					SourceFilename: page.Filename,
					PageNumber:     page.Number,
					DocumentID:     docID,
					ChunkIndex:     i,
					AccessTarget:   accessTarget,
				},
			})
		}
	}

	if len(chunks) == 0 {
		return "", ErrNoContent
	}

	if err := p.store.AddDocument(ctx, chunks); err != nil {
		return "", fmt.Errorf("committing document: %w", err)
	}

	p.logger.Info("document ingested",
		"document_id", docID,
		"filename", filename,
		"content_type", contentType,
		"access_target", accessTarget,
		"pages", len(pages),
		"chunks", len(chunks))

	return docID, nil
}

package rag

import (
	"context"
	"fmt"

	"github.com/lyceum-ai/lyceum/internal/access"
	"github.com/lyceum-ai/lyceum/internal/index"
	"github.com/lyceum-ai/lyceum/internal/log"
)

// DefaultTopK is the number of chunks retrieved per query.
const DefaultTopK = 5

// Searcher runs a filtered similarity search over the vector index.
// *index.Store satisfies this.
type Searcher interface {
	Search(ctx context.Context, query string, filter index.Filter, k int) ([]index.Result, error)
}

// Retriever fetches the chunks a caller is allowed to see.
type Retriever struct {
	searcher Searcher
	topK     int
	logger   log.Logger
}

// NewRetriever creates a retriever. topK <= 0 selects DefaultTopK.
func NewRetriever(searcher Searcher, topK int, logger log.Logger) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Retriever{searcher: searcher, topK: topK, logger: logger}
}

// Retrieve runs a similarity search scoped to the given access tags.
// An empty result is a normal outcome, not an error.
func (r *Retriever) Retrieve(ctx context.Context, query string, tags access.AllowedTags) ([]index.Result, error) {
	results, err := r.searcher.Search(ctx, query, index.ForTags(tags), r.topK)
	if err != nil {
		return nil, fmt.Errorf("retrieving chunks: %w", err)
	}

	r.logger.Debug("chunks retrieved",
		"count", len(results),
		"top_k", r.topK,
		"unrestricted", tags.IsUnrestricted())

	return results, nil
}

package rag

import (
	"context"
	"errors"
	"strings"

	"github.com/lyceum-ai/lyceum/internal/access"
	"github.com/lyceum-ai/lyceum/internal/log"
)

var (
	// ErrEmptyQuery indicates the question is empty or whitespace.
	ErrEmptyQuery = errors.New("empty query")

	// ErrUnavailable indicates the pipeline is not fully configured.
	ErrUnavailable = errors.New("question answering unavailable")
)

// Orchestrator wires access resolution, retrieval and composition into the
// single entry point the API layer calls.
type Orchestrator struct {
	retriever *Retriever
	composer  *Composer
	logger    log.Logger
}

// NewOrchestrator creates the query pipeline entry point.
func NewOrchestrator(retriever *Retriever, composer *Composer, logger log.Logger) *Orchestrator {
	return &Orchestrator{retriever: retriever, composer: composer, logger: logger}
}

// AnswerQuery answers a question within the caller's access scope.
//
// The identity is resolved to allowed access targets before retrieval, so
// restricted chunks never reach the model. Retrieval errors propagate;
// generation problems degrade inside Compose.
func (o *Orchestrator) AnswerQuery(ctx context.Context, question string, id access.Identity) (Answer, error) {
	if o == nil || o.retriever == nil || o.composer == nil {
		return Answer{}, ErrUnavailable
	}

	question = strings.TrimSpace(question)
	if question == "" {
		return Answer{}, ErrEmptyQuery
	}

	tags := access.Resolve(id)

	results, err := o.retriever.Retrieve(ctx, question, tags)
	if err != nil {
		return Answer{}, err
	}

	answer := o.composer.Compose(ctx, question, results)

	o.logger.Info("query answered",
		"role", id.Role,
		"chunks", len(results),
		"sources", len(answer.Sources))

	return answer, nil
}

package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/lyceum-ai/lyceum/internal/index"
	"github.com/lyceum-ai/lyceum/internal/log"
)

// FallbackAnswer is returned verbatim when the retrieved context cannot
// answer the question. The prompt instructs the model to emit exactly this
// string, so callers can rely on it.
const FallbackAnswer = "Sorry, I don't know the answer. Please clarify your question so I can help better 🤔"

// generationErrorAnswer is the user-safe reply for model call failures.
// Raw backend errors never reach the caller.
const generationErrorAnswer = "An error occurred while processing your question. Please try again later."

// promptTemplate grounds the model in the retrieved chunks only.
const promptTemplate = `You are a helpful teaching assistant. Use only the following pieces of context to answer the question at the end.
If you don't know the answer from the context, you MUST reply exactly: %q
Do not try to make up an answer if it's not in the context.
Keep your answers concise and directly related to the question based on the provided context.
If possible, answer in the same language as the question.

Context:
%s

Question: %s
Helpful Answer:`

// Source identifies a document that contributed to an answer.
type Source struct {
	Filename   string         `json:"filename"`
	PageNumber int            `json:"page_number,omitempty"`
	Metadata   index.Metadata `json:"metadata"`
}

// Answer is a composed reply with its supporting sources.
type Answer struct {
	Text    string   `json:"answer"`
	Sources []Source `json:"sources"`
}

// Composer turns retrieved chunks into a grounded answer via the
// configured generation model.
type Composer struct {
	g         *genkit.Genkit
	modelName string
	logger    log.Logger
}

// NewComposer creates a composer bound to a Genkit instance and model.
func NewComposer(g *genkit.Genkit, modelName string, logger log.Logger) *Composer {
	return &Composer{g: g, modelName: modelName, logger: logger}
}

// Compose generates an answer grounded in the given chunks.
//
// With no chunks it returns FallbackAnswer without calling the model.
// A model call failure degrades to a user-safe reply with empty sources
// rather than an error; only the caller-facing answer shape is affected.
func (c *Composer) Compose(ctx context.Context, question string, results []index.Result) Answer {
	if len(results) == 0 {
		return Answer{Text: FallbackAnswer}
	}

	resp, err := genkit.Generate(ctx, c.g,
		ai.WithModelName(c.modelName),
		ai.WithPrompt(buildPrompt(question, results)),
	)
	if err != nil {
		c.logger.Error("answer generation failed", "error", err, "model", c.modelName)
		return Answer{Text: generationErrorAnswer}
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		c.logger.Warn("model returned empty answer", "model", c.modelName)
		return Answer{Text: FallbackAnswer}
	}

	return Answer{Text: text, Sources: dedupeSources(results)}
}

// buildPrompt assembles the grounding prompt from the retrieved chunks.
func buildPrompt(question string, results []index.Result) string {
	var sb strings.Builder
	for i, r := range results {
		if i > 0 {
			sb.WriteString("\n---\n")
		}
		sb.WriteString(r.Chunk.Text)
	}
	return fmt.Sprintf(promptTemplate, FallbackAnswer, sb.String(), question)
}

// dedupeSources collapses chunks of the same document page into one source.
// Order follows first occurrence, which preserves similarity ranking.
func dedupeSources(results []index.Result) []Source {
	seen := make(map[string]bool, len(results))
	sources := make([]Source, 0, len(results))
	for _, r := range results {
		key := r.Chunk.Metadata.SourceFilename + "\x00" + fmt.Sprint(r.Chunk.Metadata.PageNumber)
		if seen[key] {
			continue
		}
		seen[key] = true
		sources = append(sources, Source{
			Filename:   r.Chunk.Metadata.SourceFilename,
			PageNumber: r.Chunk.Metadata.PageNumber,
			Metadata:   r.Chunk.Metadata,
		})
	}
	return sources
}

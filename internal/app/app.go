// Package app wires configuration, storage, AI components and the
// question-answering pipeline into a runnable application.
package app

import (
	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lyceum-ai/lyceum/internal/config"
	"github.com/lyceum-ai/lyceum/internal/index"
	"github.com/lyceum-ai/lyceum/internal/ingest"
	"github.com/lyceum-ai/lyceum/internal/log"
	"github.com/lyceum-ai/lyceum/internal/rag"
)

// App holds the initialized application components.
type App struct {
	Config *config.Config
	Logger log.Logger

	// Core services
	Genkit   *genkit.Genkit
	Embedder ai.Embedder
	Pool     *pgxpool.Pool

	// Domain components
	Store        *index.Store
	Pipeline     *ingest.Pipeline
	Orchestrator *rag.Orchestrator
}

// Close releases all resources. Safe to call on a partially built App.
func (a *App) Close() error {
	if a.Pool != nil {
		a.Pool.Close()
		a.Logger.Info("database pool closed")
	}
	return nil
}

// Package api provides the HTTP REST API for lyceum.
//
// Endpoints:
//
//	POST   /api/v1/query                  →  answer a question within the caller's access scope
//	POST   /api/v1/admin/documents        →  upload and index a document (admin only)
//	DELETE /api/v1/admin/documents/{id}   →  remove a document and its chunks (admin only)
//	GET    /health                        →  liveness probe
//	GET    /ready                         →  readiness probe (checks database)
//
// Caller identity arrives via trusted headers (X-User-Role, X-User-Level,
// X-User-Name) set by the authenticating reverse proxy. The API never
// authenticates credentials itself.
//
// File structure:
//   - server.go: route setup, middleware stack, server lifecycle
//   - identity.go: identity resolution from trusted headers
//   - query.go: question answering endpoint
//   - documents.go: admin document management endpoints
//   - middleware.go: recovery, logging, security headers
//   - ratelimit.go: per-IP token bucket rate limiting
//   - response.go: JSON response helpers
//   - health.go: health and readiness probes
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lyceum-ai/lyceum/internal/access"
	"github.com/lyceum-ai/lyceum/internal/rag"
)

const (
	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout is the timeout for reading request headers.
	// This prevents Slowloris attacks (CWE-400).
	ReadHeaderTimeout = 10 * time.Second

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout = 30 * time.Second

	// WriteTimeout is the maximum duration for writing the response.
	WriteTimeout = 60 * time.Second

	// IdleTimeout is the maximum time to wait for the next request on keep-alive connections.
	IdleTimeout = 120 * time.Second

	// defaultMaxUploadBytes caps document uploads when the config leaves it unset.
	defaultMaxUploadBytes int64 = 32 << 20
)

// Answerer answers a question for a resolved identity.
// *rag.Orchestrator satisfies this.
type Answerer interface {
	AnswerQuery(ctx context.Context, question string, id access.Identity) (rag.Answer, error)
}

// Ingestor commits an uploaded document to the index.
// *ingest.Pipeline satisfies this.
type Ingestor interface {
	Ingest(ctx context.Context, content []byte, contentType, filename, accessTarget string) (string, error)
}

// Deleter removes a document's chunks from the index.
// *index.Store satisfies this.
type Deleter interface {
	DeleteDocument(ctx context.Context, documentID string) (int64, error)
}

// ServerConfig contains configuration for creating the API server.
type ServerConfig struct {
	Logger         *slog.Logger
	Answerer       Answerer // Required
	Ingestor       Ingestor // Required
	Deleter        Deleter  // Required
	Pool           *pgxpool.Pool
	Identity       IdentityResolver // Optional: defaults to HeaderIdentity
	TrustProxy     bool             // Trust X-Real-IP/X-Forwarded-For headers (behind reverse proxy)
	RateBurst      int              // Rate limiter burst size per IP (0 = default 60)
	RateRefill     float64          // Rate limiter refill in tokens/sec per IP (0 = default 1)
	MaxUploadBytes int64            // Upload size cap (0 = default 32 MiB)
}

// Server is the JSON API HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates a new API server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Answerer == nil {
		return nil, errors.New("answerer is required")
	}
	if cfg.Ingestor == nil {
		return nil, errors.New("ingestor is required")
	}
	if cfg.Deleter == nil {
		return nil, errors.New("deleter is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	resolver := cfg.Identity
	if resolver == nil {
		resolver = HeaderIdentity{}
	}

	maxUpload := cfg.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = defaultMaxUploadBytes
	}

	qh := &queryHandler{answerer: cfg.Answerer, logger: logger}
	dh := &documentHandler{
		ingestor:  cfg.Ingestor,
		deleter:   cfg.Deleter,
		maxUpload: maxUpload,
		logger:    logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/query", qh.answer)
	mux.HandleFunc("POST /api/v1/admin/documents", dh.upload)
	mux.HandleFunc("DELETE /api/v1/admin/documents/{id}", dh.remove)

	// Rate limiter: per-IP token bucket
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 60
	}
	refill := cfg.RateRefill
	if refill <= 0 {
		refill = 1.0
	}
	rl := newRateLimiter(refill, burst)

	// Build middleware stack (outermost first):
	//   Recovery → Logging → RateLimit → Identity → Routes
	// Identity must be innermost so rate limiting applies to all callers,
	// authenticated or not.
	var handler http.Handler = mux
	handler = identityMiddleware(resolver)(handler)
	handler = rateLimitMiddleware(rl, cfg.TrustProxy, logger)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = recoveryMiddleware(logger)(handler)

	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setSecurityHeaders(w)
		handler.ServeHTTP(w, r)
	})

	// Health probes stay outside the middleware stack so load balancers
	// are never rate limited.
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", health)
	topMux.Handle("GET /ready", readiness(cfg.Pool))
	topMux.Handle("/", final)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Run starts the HTTP server and blocks until the context is cancelled.
// It handles graceful shutdown when the context is done.
func (s *Server) Run(ctx context.Context, addr string, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

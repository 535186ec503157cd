package api

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lyceum-ai/lyceum/internal/access"
	"github.com/lyceum-ai/lyceum/internal/rag"
)

type mockAnswerer struct {
	ans         rag.Answer
	err         error
	gotQuestion string
	gotIdentity access.Identity
}

func (m *mockAnswerer) AnswerQuery(_ context.Context, question string, id access.Identity) (rag.Answer, error) {
	m.gotQuestion = question
	m.gotIdentity = id
	return m.ans, m.err
}

type mockIngestor struct {
	docID     string
	err       error
	gotType   string
	gotName   string
	gotTarget string
	gotBytes  int
}

func (m *mockIngestor) Ingest(_ context.Context, content []byte, contentType, filename, accessTarget string) (string, error) {
	m.gotBytes = len(content)
	m.gotType = contentType
	m.gotName = filename
	m.gotTarget = accessTarget
	return m.docID, m.err
}

type mockDeleter struct {
	deleted int64
	err     error
	gotID   string
}

func (m *mockDeleter) DeleteDocument(_ context.Context, documentID string) (int64, error) {
	m.gotID = documentID
	return m.deleted, m.err
}

type serverMocks struct {
	answerer *mockAnswerer
	ingestor *mockIngestor
	deleter  *mockDeleter
}

func newTestServer(t *testing.T) (*Server, *serverMocks) {
	t.Helper()
	m := &serverMocks{
		answerer: &mockAnswerer{ans: rag.Answer{Text: "mock answer"}},
		ingestor: &mockIngestor{docID: "doc_test"},
		deleter:  &mockDeleter{deleted: 3},
	}
	srv, err := NewServer(ServerConfig{
		Logger:    slog.New(slog.DiscardHandler),
		Answerer:  m.answerer,
		Ingestor:  m.ingestor,
		Deleter:   m.deleter,
		RateBurst: 1000,
	})
	if err != nil {
		t.Fatalf("NewServer() error: %v", err)
	}
	return srv, m
}

func TestNewServerRequiredDeps(t *testing.T) {
	a := &mockAnswerer{}
	i := &mockIngestor{}
	d := &mockDeleter{}

	tests := []struct {
		name string
		cfg  ServerConfig
	}{
		{"missing answerer", ServerConfig{Ingestor: i, Deleter: d}},
		{"missing ingestor", ServerConfig{Answerer: a, Deleter: d}},
		{"missing deleter", ServerConfig{Answerer: a, Ingestor: i}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewServer(tt.cfg); err == nil {
				t.Fatal("NewServer() expected error, got nil")
			}
		})
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("GET /health status = %d, want 200", rec.Code)
	}
}

func TestReadyEndpointWithoutPool(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/ready", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("GET /ready status = %d, want 200", rec.Code)
	}
}

func TestUnknownRouteIs404(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/nope", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestSecurityHeadersApplied(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/nope", nil))

	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want nosniff", got)
	}
	if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q, want DENY", got)
	}
}

func TestRateLimitExceeded(t *testing.T) {
	a := &mockAnswerer{ans: rag.Answer{Text: "ok"}}
	srv, err := NewServer(ServerConfig{
		Logger:    slog.New(slog.DiscardHandler),
		Answerer:  a,
		Ingestor:  &mockIngestor{},
		Deleter:   &mockDeleter{},
		RateBurst: 2,
	})
	if err != nil {
		t.Fatalf("NewServer() error: %v", err)
	}

	var lastCode int
	for range 5 {
		rec := httptest.NewRecorder()
		r := httptest.NewRequest("GET", "/api/v1/nope", nil)
		r.RemoteAddr = "192.0.2.1:1234"
		srv.Handler().ServeHTTP(rec, r)
		lastCode = rec.Code
	}

	if lastCode != http.StatusTooManyRequests {
		t.Errorf("5th request status = %d, want 429", lastCode)
	}
}

func TestRateLimitIsolatesHealthProbes(t *testing.T) {
	srv, err := NewServer(ServerConfig{
		Logger:    slog.New(slog.DiscardHandler),
		Answerer:  &mockAnswerer{},
		Ingestor:  &mockIngestor{},
		Deleter:   &mockDeleter{},
		RateBurst: 1,
	})
	if err != nil {
		t.Fatalf("NewServer() error: %v", err)
	}

	for i := range 10 {
		rec := httptest.NewRecorder()
		r := httptest.NewRequest("GET", "/health", nil)
		r.RemoteAddr = "192.0.2.9:1234"
		srv.Handler().ServeHTTP(rec, r)
		if rec.Code != http.StatusOK {
			t.Fatalf("probe %d status = %d, want 200", i, rec.Code)
		}
	}
}

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"catalog-service/internal/domain"
	"catalog-service/internal/events"
	"catalog-service/internal/store"
	"catalog-service/pkg/auth"

	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-test-secret-test-secret"

// recordingPublisher keeps every published event for assertions.
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.MovieEvent
}

func (p *recordingPublisher) Publish(_ context.Context, e events.MovieEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type testServer struct {
	handler    http.Handler
	movies     store.MovieStore
	users      *store.MemoryUserStore
	tokens     auth.TokenManager
	published  *recordingPublisher
	metrics    *Metrics
	admin      *domain.User
	adminToken string
	userToken  string
}

type serverOption func(*RouterOptions, *testServer)

func withMovieStore(s store.MovieStore) serverOption {
	return func(_ *RouterOptions, ts *testServer) { ts.movies = s }
}

func withRateLimit(rps float64, burst int) serverOption {
	return func(o *RouterOptions, _ *testServer) {
		o.RateLimitEnabled = true
		o.RateLimitRPS = rps
		o.RateLimitBurst = burst
	}
}

func withMaxBody(n int64) serverOption {
	return func(o *RouterOptions, _ *testServer) { o.MaxBodyBytes = n }
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, options ...serverOption) *testServer {
	t.Helper()
	logger := discardLogger()

	tokens, err := auth.NewTokenManager(testSecret, time.Hour)
	require.NoError(t, err)

	ts := &testServer{
		movies:    store.NewMemoryMovieStore(logger),
		users:     store.NewMemoryUserStore(logger),
		tokens:    tokens,
		published: &recordingPublisher{},
		metrics:   NewMetrics(),
	}
	opts := RouterOptions{
		AllowedOrigins: []string{"https://admin.example.com"},
		MaxBodyBytes:   10 << 20,
		Metrics:        ts.metrics,
	}
	for _, o := range options {
		o(&opts, ts)
	}

	ts.admin = ts.createUser(t, "admin@example.com", "admin-pass", domain.RoleAdmin)
	ts.adminToken = ts.tokenFor(t, ts.admin)
	ts.userToken = ts.tokenFor(t, ts.createUser(t, "viewer@example.com", "viewer-pass", domain.RoleUser))

	validator := domain.NewValidator()
	movies := NewMovieHandler(ts.movies, logger, validator, ts.published, ts.metrics)
	accounts := NewAuthHandler(ts.users, logger, validator, tokens)
	gate := NewGate(ts.users, tokens, logger)
	ts.handler = NewRouter(movies, accounts, gate, logger, opts)
	return ts
}

func (ts *testServer) createUser(t *testing.T, email, password string, role domain.Role) *domain.User {
	t.Helper()
	hash, err := auth.HashPassword(password)
	require.NoError(t, err)
	u := &domain.User{Email: email, PasswordHash: hash, Role: role, IsActive: true}
	require.NoError(t, ts.users.Create(context.Background(), u))
	return u
}

func (ts *testServer) tokenFor(t *testing.T, u *domain.User) string {
	t.Helper()
	token, err := ts.tokens.Generate(u.ID, string(u.Role))
	require.NoError(t, err)
	return token
}

// envelopeResponse mirrors Envelope with the payload left raw.
type envelopeResponse struct {
	Success    bool                `json:"success"`
	Data       json.RawMessage     `json:"data"`
	Message    string              `json:"message"`
	Code       string              `json:"code"`
	Errors     []domain.FieldError `json:"errors"`
	Pagination *store.Pagination   `json:"pagination"`
}

func (e envelopeResponse) decodeData(t *testing.T, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(e.Data, dst))
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, envelopeResponse) {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)

	var env envelopeResponse
	if rr.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env), rr.Body.String())
	}
	return rr, env
}

func validPayload() map[string]any {
	return map[string]any{
		"title":        "Dune",
		"description":  "A noble family becomes embroiled in a war for control of the desert planet Arrakis.",
		"category":     "Sci-Fi",
		"quality":      "4K",
		"size":         "4.1 GB",
		"downloadLink": "https://x/d",
		"poster":       "https://x/p",
	}
}

func (ts *testServer) createMovie(t *testing.T, mutate func(map[string]any)) domain.Movie {
	t.Helper()
	payload := validPayload()
	if mutate != nil {
		mutate(payload)
	}
	rr, env := ts.do(t, http.MethodPost, "/api/movies", ts.adminToken, payload)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var m domain.Movie
	env.decodeData(t, &m)
	return m
}

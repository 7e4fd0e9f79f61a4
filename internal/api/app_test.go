package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/booklog/booklog/internal/auth"
	"github.com/booklog/booklog/internal/config"
	"github.com/booklog/booklog/internal/db"
	"github.com/booklog/booklog/internal/db/dbtest"
	"github.com/booklog/booklog/internal/events"
	"github.com/booklog/booklog/internal/repo"
	"github.com/booklog/booklog/pkg/bookapi"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testWebURL = "http://localhost:5173"

type notification struct {
	kind   string
	id     int64
	fields []string
	reqID  string
}

type recordingNotifier struct {
	mu   sync.Mutex
	seen []notification
}

func (n *recordingNotifier) record(ctx context.Context, kind string, id int64, fields []string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.seen = append(n.seen, notification{kind: kind, id: id, fields: fields, reqID: events.CorrelationID(ctx)})
}

func (n *recordingNotifier) BookCreated(ctx context.Context, book bookapi.Book) {
	n.record(ctx, "created", book.ID, nil)
}

func (n *recordingNotifier) BookUpdated(ctx context.Context, book bookapi.Book, fields []string) {
	n.record(ctx, "updated", book.ID, fields)
}

func (n *recordingNotifier) BookDeleted(ctx context.Context, id int64) {
	n.record(ctx, "deleted", id, nil)
}

func (n *recordingNotifier) all() []notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notification(nil), n.seen...)
}

type testEnv struct {
	handler  http.Handler
	db       *db.DB
	auth     *auth.Service
	notifier *recordingNotifier
}

type envOption func(*Options, *Deps)

func withResolver(r auth.Resolver) envOption {
	return func(_ *Options, d *Deps) { d.Resolver = r }
}

func withLogger(log *zap.Logger) envOption {
	return func(_ *Options, d *Deps) { d.Log = log }
}

func withRateLimit(rps float64, burst int) envOption {
	return func(o *Options, _ *Deps) {
		o.RateLimit = config.RateLimit{Enabled: true, RPS: rps, Burst: burst}
	}
}

func withAuthHandler(h http.Handler) envOption {
	return func(_ *Options, d *Deps) { d.AuthHandler = h }
}

func withHealth(checks ...HealthCheck) envOption {
	return func(_ *Options, d *Deps) { d.Health = checks }
}

func newTestEnv(t *testing.T, options ...envOption) *testEnv {
	t.Helper()

	database := dbtest.New(t)
	authSvc := auth.NewService(database, "test-secret", time.Hour, zap.NewNop())
	notifier := &recordingNotifier{}

	opts := Options{
		WebURL:      testWebURL,
		CORSOrigins: []string{"http://localhost:5173"},
	}
	deps := Deps{
		Books:       repo.NewBookRepository(database, zap.NewNop()),
		Notifier:    notifier,
		Resolver:    authSvc,
		AuthHandler: authSvc.Handler(false),
		Log:         zap.NewNop(),
	}
	for _, o := range options {
		o(&opts, &deps)
	}

	return &testEnv{
		handler:  New(opts, deps).Handler(),
		db:       database,
		auth:     authSvc,
		notifier: notifier,
	}
}

func (e *testEnv) do(t *testing.T, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

// createBook posts body and returns the created book.
func (e *testEnv) createBook(t *testing.T, body string) bookapi.Book {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/books", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeBook(t, rec)
}

func decodeBook(t *testing.T, rec *httptest.ResponseRecorder) bookapi.Book {
	t.Helper()
	var resp bookapi.BookResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Book
}

func decodeMap(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	return m
}

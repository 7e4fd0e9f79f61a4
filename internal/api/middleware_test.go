package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/booklog/booklog/internal/auth"
	"github.com/booklog/booklog/internal/mocks"
	"github.com/booklog/booklog/pkg/bookapi"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func signUp(t *testing.T, env *testEnv) string {
	t.Helper()
	_, token, err := env.auth.SignUp(context.Background(), bookapi.SignUpRequest{
		Name:     "Ada",
		Email:    "ada@example.com",
		Password: "password123",
	}, auth.ClientMeta{})
	require.NoError(t, err)
	return token
}

func TestSessionResolutionFailsOpen(t *testing.T) {
	ctrl := gomock.NewController(t)
	resolver := mocks.NewMockResolver(ctrl)
	resolver.EXPECT().
		Resolve(gomock.Any(), gomock.Any()).
		Return(nil, errors.New("auth backend unreachable")).
		AnyTimes()

	core, logs := observer.New(zapcore.WarnLevel)
	env := newTestEnv(t, withResolver(resolver), withLogger(zap.New(core)))

	rec := env.do(t, http.MethodGet, "/books", "", "Cookie", bookapi.SessionCookie+"=whatever")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"books":[]}`, rec.Body.String())

	// Treated as anonymous: no redirect even for a browser
	rec = env.do(t, http.MethodGet, "/", "", "Accept", "text/html")
	assert.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, 2, logs.FilterMessage("Session resolution failed, continuing unauthenticated").Len())
}

func TestRootRoute(t *testing.T) {
	env := newTestEnv(t)
	token := signUp(t, env)

	rec := env.do(t, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Book Log API - Welcome!"}`, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/", "", "Accept", "text/html,application/xhtml+xml", "Cookie", bookapi.SessionCookie+"="+token)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, testWebURL, rec.Header().Get("Location"))

	rec = env.do(t, http.MethodGet, "/", "", "Accept", "application/json", "Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/", "", "Accept", "text/html")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestIdentityReachesHandlers(t *testing.T) {
	ctrl := gomock.NewController(t)
	resolver := mocks.NewMockResolver(ctrl)
	want := &auth.Identity{User: bookapi.User{ID: "u-1"}}
	resolver.EXPECT().Resolve(gomock.Any(), gomock.Any()).Return(want, nil)

	app := New(Options{}, Deps{Resolver: resolver})

	var got auth.Identity
	var ok bool
	h := app.authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok = identityFrom(r)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	require.True(t, ok)
	assert.Equal(t, "u-1", got.User.ID)
}

func TestCORS(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodOptions, "/books/1", "",
		"Origin", "http://localhost:5173",
		"Access-Control-Request-Method", http.MethodPut,
		"Access-Control-Request-Headers", "content-type",
	)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	assert.Equal(t, "600", rec.Header().Get("Access-Control-Max-Age"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPut)
	assert.Equal(t, "content-type", rec.Header().Get("Access-Control-Allow-Headers"))

	// Headers outside the allow list abort the preflight
	rec = env.do(t, http.MethodOptions, "/books/1", "",
		"Origin", "http://localhost:5173",
		"Access-Control-Request-Method", http.MethodPut,
		"Access-Control-Request-Headers", "x-secret",
	)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Headers"))

	rec = env.do(t, http.MethodGet, "/books", "", "Origin", "http://localhost:5173")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Expose-Headers"), "Set-Cookie")

	rec = env.do(t, http.MethodGet, "/books", "", "Origin", "http://evil.example")
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, withRateLimit(0.001, 2))

	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/books", "").Code)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/books", "").Code)

	rec := env.do(t, http.MethodGet, "/books", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.JSONEq(t, `{"error":"rate limit exceeded"}`, rec.Body.String())

	// A different client has its own bucket
	req := httptest.NewRequest(http.MethodGet, "/books", nil)
	req.RemoteAddr = "198.51.100.7:4000"
	other := httptest.NewRecorder()
	env.handler.ServeHTTP(other, req)
	assert.Equal(t, http.StatusOK, other.Code)
}

func TestLimiterSweep(t *testing.T) {
	l := newIPLimiter(1, 1)
	l.Allow("a")
	l.Allow("b")

	assert.Equal(t, 2, l.Sweep(time.Hour))
	assert.Equal(t, 0, l.Sweep(-time.Second))
}

func TestAuthRoutesAreDelegated(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/auth/sign-up/email", `{"name":"Ada","email":"ada@example.com","password":"password123"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("Set-Cookie"))

	rec = env.do(t, http.MethodGet, "/api/auth/get-session", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "null", strings.TrimSpace(rec.Body.String()))
}

func TestAuthHandlerPanicIsContained(t *testing.T) {
	env := newTestEnv(t, withAuthHandler(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("provider exploded")
	})))

	rec := env.do(t, http.MethodGet, "/api/auth/get-session", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Authentication error"}`, rec.Body.String())

	// The rest of the pipeline still serves
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/books", "").Code)
}

func TestRecoverPanic(t *testing.T) {
	app := New(Options{}, Deps{})
	h := app.recoverPanic(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "close", rec.Header().Get("Connection"))
	assert.JSONEq(t, `{"error":"Internal server error"}`, rec.Body.String())
}

func TestRequestID(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/books", "", "X-Request-ID", "abc-123")
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))

	rec = env.do(t, http.MethodGet, "/books", "")
	assert.Len(t, rec.Header().Get("X-Request-ID"), 36)
}

func TestUnknownRouteAndMethod(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Not found"}`, rec.Body.String())

	rec = env.do(t, http.MethodPatch, "/books/1", `{}`)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Contains(t, decodeMap(t, rec), "error")
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, withHealth(func() error { return nil }))
	rec := env.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", rec.Body.String())

	env = newTestEnv(t, withHealth(func() error { return nil }, func() error { return errors.New("rabbitmq connection failed") }))
	rec = env.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "unhealthy: rabbitmq connection failed", rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodGet, "/books", "")
	env.do(t, http.MethodGet, "/books/77", "")

	rec := env.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `booklog_http_requests_total{method="GET",route="books.list",status="200"} 1`)
	assert.Contains(t, body, `booklog_http_requests_total{method="GET",route="books.get",status="404"} 1`)
}

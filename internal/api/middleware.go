package api

import (
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/booklog/booklog/internal/auth"
	"github.com/booklog/booklog/internal/events"
	"github.com/google/uuid"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

const requestIDHeader = "X-Request-ID"

// recoverPanic turns a panic anywhere below it into a 500 and closes the
// connection.
func (app *Application) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				if err == http.ErrAbortHandler {
					panic(err)
				}
				w.Header().Set("Connection", "close")
				app.serverErrorResponse(w, r, fmt.Errorf("panic: %v", err), "Internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// requestID reuses the caller's X-Request-ID or mints one, echoes it, and
// makes it the correlation id of events raised by the request.
func (app *Application) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		next.ServeHTTP(w, r.WithContext(events.WithCorrelationID(r.Context(), id)))
	})
}

// responseRecorder remembers the status and size of a response for logging.
type responseRecorder struct {
	http.ResponseWriter
	status      int
	bytes       int
	wroteHeader bool
}

func (rw *responseRecorder) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.status = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseRecorder) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		rw.WriteHeader(http.StatusOK)
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.bytes += n
	return n, err
}

func (rw *responseRecorder) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

func (app *Application) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rw, r)

		app.log.Info("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rw.status),
			zap.Int("bytes", rw.bytes),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", events.CorrelationID(r.Context())),
		)
	})
}

// corsPolicy applies the browser cross-origin policy. Preflight requests are
// answered here and never reach the router.
func (app *Application) corsPolicy(next http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins: app.opts.CORSOrigins,
		AllowedMethods: []string{
			http.MethodPost, http.MethodGet, http.MethodPut, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Requested-With"},
		ExposedHeaders:   []string{"Content-Length", "Set-Cookie"},
		AllowCredentials: true,
		MaxAge:           600,
	}).Handler(next)
}

// rateLimit enforces the per-IP token bucket when enabled.
func (app *Application) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !app.opts.RateLimit.Enabled {
			next.ServeHTTP(w, r)
			return
		}

		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}

		if !app.limiter.Allow(ip) {
			app.rateLimitExceededResponse(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// authenticate resolves the session behind the request. A resolver failure
// is logged and the request continues as anonymous.
func (app *Application) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := app.resolver.Resolve(r.Context(), r.Header)
		if err != nil {
			app.log.Warn("Session resolution failed, continuing unauthenticated",
				zap.String("request_id", events.CorrelationID(r.Context())),
				zap.Error(err),
			)
			identity = nil
		}

		next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), identity)))
	})
}

// recoverAuth shields the pipeline from panics inside the auth handler.
func (app *Application) recoverAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				if err == http.ErrAbortHandler {
					panic(err)
				}
				app.serverErrorResponse(w, r, fmt.Errorf("auth handler panic: %v", err), "Authentication error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func identityFrom(r *http.Request) (auth.Identity, bool) {
	return auth.IdentityFrom(r.Context())
}

// Package api is the booklog HTTP application: the /books handlers and the
// middleware pipeline in front of them.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/booklog/booklog/internal/auth"
	"github.com/booklog/booklog/internal/config"
	"github.com/booklog/booklog/internal/db"
	"github.com/booklog/booklog/internal/metrics"
	"github.com/booklog/booklog/internal/repo"
	"github.com/booklog/booklog/pkg/bookapi"
	"go.uber.org/zap"
)

// BookStore is the persistence the handlers need. *repo.BookRepository
// satisfies it.
type BookStore interface {
	ListBooks(ctx context.Context) ([]*db.Book, error)
	GetBook(ctx context.Context, id int64) (*db.Book, error)
	CreateBook(ctx context.Context, book *db.Book) error
	UpdateBook(ctx context.Context, id int64, update repo.BookUpdate) (*db.Book, error)
	DeleteBook(ctx context.Context, id int64) error
}

// Notifier receives successful mutations. It must not block.
type Notifier interface {
	BookCreated(ctx context.Context, book bookapi.Book)
	BookUpdated(ctx context.Context, book bookapi.Book, fieldsChanged []string)
	BookDeleted(ctx context.Context, id int64)
}

// HealthCheck reports whether a dependency is usable.
type HealthCheck func() error

// Options are the static settings of the HTTP pipeline.
type Options struct {
	WebURL      string
	CORSOrigins []string
	RateLimit   config.RateLimit
}

// Deps collects the collaborators of the application.
type Deps struct {
	Books       BookStore
	Notifier    Notifier
	Resolver    auth.Resolver
	AuthHandler http.Handler
	Metrics     *metrics.Metrics
	Health      []HealthCheck
	Log         *zap.Logger
}

// Application holds the dependencies shared by handlers and middleware.
type Application struct {
	opts     Options
	log      *zap.Logger
	books    BookStore
	notifier Notifier
	resolver auth.Resolver
	authH    http.Handler
	metrics  *metrics.Metrics
	health   []HealthCheck
	limiter  *ipLimiter
}

func New(opts Options, deps Deps) *Application {
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}
	return &Application{
		opts:     opts,
		log:      deps.Log,
		books:    deps.Books,
		notifier: deps.Notifier,
		resolver: deps.Resolver,
		authH:    deps.AuthHandler,
		metrics:  deps.Metrics,
		health:   deps.Health,
		limiter:  newIPLimiter(opts.RateLimit.RPS, opts.RateLimit.Burst),
	}
}

// SweepRateLimiter drops rate limiter state for clients idle longer than
// maxIdle.
func (app *Application) SweepRateLimiter(maxIdle time.Duration) int {
	return app.limiter.Sweep(maxIdle)
}

package events

import (
	"context"
	"sync"
	"time"

	"github.com/booklog/booklog/pkg/bookapi"
	"github.com/gammazero/workerpool"
	"go.uber.org/zap"
)

const publishTimeout = 10 * time.Second

// Notifier publishes events off the request path on a bounded worker pool.
// Publish failures are logged and never reported to the caller.
type Notifier struct {
	publisher Publisher
	pool      *workerpool.WorkerPool
	log       *zap.Logger
	timeout   time.Duration

	mu     sync.RWMutex
	closed bool
}

// NewNotifier starts a pool of workers publishing through publisher
func NewNotifier(publisher Publisher, workers int, log *zap.Logger) *Notifier {
	if workers < 1 {
		workers = 1
	}
	return &Notifier{
		publisher: publisher,
		pool:      workerpool.New(workers),
		log:       log,
		timeout:   publishTimeout,
	}
}

func (n *Notifier) BookCreated(ctx context.Context, book bookapi.Book) {
	n.submit(ctx, EventTypeBookCreated, func(ctx context.Context) error {
		return n.publisher.PublishBookCreated(ctx, book)
	})
}

func (n *Notifier) BookUpdated(ctx context.Context, book bookapi.Book, fieldsChanged []string) {
	n.submit(ctx, EventTypeBookUpdated, func(ctx context.Context) error {
		return n.publisher.PublishBookUpdated(ctx, book, fieldsChanged)
	})
}

func (n *Notifier) BookDeleted(ctx context.Context, id int64) {
	n.submit(ctx, EventTypeBookDeleted, func(ctx context.Context) error {
		return n.publisher.PublishBookDeleted(ctx, id)
	})
}

// submit detaches the task from the request context, keeping only its
// correlation id.
func (n *Notifier) submit(reqCtx context.Context, eventType string, publish func(context.Context) error) {
	correlationID := CorrelationID(reqCtx)

	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.closed {
		n.log.Warn("Notifier closed, dropping event", zap.String("event_type", eventType))
		return
	}

	n.pool.Submit(func() {
		ctx, cancel := context.WithTimeout(WithCorrelationID(context.Background(), correlationID), n.timeout)
		defer cancel()

		if err := publish(ctx); err != nil {
			n.log.Error("Failed to publish event",
				zap.String("event_type", eventType),
				zap.String("correlation_id", correlationID),
				zap.Error(err),
			)
		}
	})
}

// Close waits for queued events to be published and stops the workers
func (n *Notifier) Close() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.closed = true
	n.mu.Unlock()

	n.pool.StopWait()
}

package events

import (
	"context"

	"github.com/booklog/booklog/pkg/bookapi"
	"go.uber.org/zap"
)

// NopPublisher logs events at debug level and drops them. It is used when no
// broker is configured.
type NopPublisher struct {
	log *zap.Logger
}

var _ Publisher = (*NopPublisher)(nil)

func NewNopPublisher(log *zap.Logger) *NopPublisher {
	return &NopPublisher{log: log}
}

func (p *NopPublisher) PublishBookCreated(ctx context.Context, book bookapi.Book) error {
	p.drop(BookCreatedEvent(ctx, book))
	return nil
}

func (p *NopPublisher) PublishBookUpdated(ctx context.Context, book bookapi.Book, fieldsChanged []string) error {
	p.drop(BookUpdatedEvent(ctx, book, fieldsChanged))
	return nil
}

func (p *NopPublisher) PublishBookDeleted(ctx context.Context, id int64) error {
	p.drop(BookDeletedEvent(ctx, id))
	return nil
}

func (p *NopPublisher) drop(event Event) {
	p.log.Debug("Event dropped, no broker configured",
		zap.String("event_type", event.EventType),
		zap.String("event_id", event.EventID),
	)
}

func (p *NopPublisher) IsHealthy() bool { return true }

func (p *NopPublisher) Close() error { return nil }

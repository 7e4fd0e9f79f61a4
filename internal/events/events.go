// Package events publishes book lifecycle events to a message broker.
package events

import (
	"context"
	"time"

	"github.com/booklog/booklog/pkg/bookapi"
	"github.com/google/uuid"
)

const (
	EventTypeBookCreated = "book.created"
	EventTypeBookUpdated = "book.updated"
	EventTypeBookDeleted = "book.deleted"

	eventVersion = "1.0.0"
)

// Publisher delivers book events. Implementations must be safe for
// concurrent use.
type Publisher interface {
	PublishBookCreated(ctx context.Context, book bookapi.Book) error
	PublishBookUpdated(ctx context.Context, book bookapi.Book, fieldsChanged []string) error
	PublishBookDeleted(ctx context.Context, id int64) error
	IsHealthy() bool
	Close() error
}

// Event represents a domain event
type Event struct {
	EventID       string                 `json:"event_id"`
	EventType     string                 `json:"event_type"`
	EventVersion  string                 `json:"event_version"`
	Timestamp     string                 `json:"timestamp"`
	CorrelationID string                 `json:"correlation_id,omitempty"`
	Payload       map[string]interface{} `json:"payload"`
}

type correlationKey struct{}

// WithCorrelationID returns a copy of ctx carrying id. Events built from the
// returned context are stamped with it.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

// CorrelationID returns the id stored by WithCorrelationID, or "".
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}

func newEvent(ctx context.Context, eventType string, payload map[string]interface{}) Event {
	return Event{
		EventID:       uuid.New().String(),
		EventType:     eventType,
		EventVersion:  eventVersion,
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		CorrelationID: CorrelationID(ctx),
		Payload:       payload,
	}
}

// BookCreatedEvent builds the envelope for a newly created book.
func BookCreatedEvent(ctx context.Context, book bookapi.Book) Event {
	return newEvent(ctx, EventTypeBookCreated, map[string]interface{}{
		"id":     book.ID,
		"title":  book.Title,
		"author": book.Author,
		"status": string(book.Status),
		"stars":  book.Stars,
		"review": book.Review,
	})
}

// BookUpdatedEvent carries the changed field names and their new values.
func BookUpdatedEvent(ctx context.Context, book bookapi.Book, fieldsChanged []string) Event {
	payload := map[string]interface{}{
		"id":             book.ID,
		"fields_changed": fieldsChanged,
	}
	for _, field := range fieldsChanged {
		switch field {
		case "title":
			payload["title"] = book.Title
		case "author":
			payload["author"] = book.Author
		case "status":
			payload["status"] = string(book.Status)
		case "stars":
			payload["stars"] = book.Stars
		case "review":
			payload["review"] = book.Review
		}
	}
	return newEvent(ctx, EventTypeBookUpdated, payload)
}

func BookDeletedEvent(ctx context.Context, id int64) Event {
	return newEvent(ctx, EventTypeBookDeleted, map[string]interface{}{
		"id": id,
	})
}

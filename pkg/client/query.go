package client

import (
	"context"

	"github.com/booklog/booklog/pkg/bookapi"
)

// QueryOptions describes a cacheable read: the cache key and how to fetch it.
type QueryOptions[Resp any] struct {
	Key   []string
	Fetch func(ctx context.Context) (Resp, error)
}

// NewQuery binds a body-less endpoint under a static key.
func NewQuery[Resp any](key []string, c *Client, ep bookapi.Endpoint[bookapi.NoBody, Resp], targets ...Target) QueryOptions[Resp] {
	return QueryOptions[Resp]{
		Key: key,
		Fetch: func(ctx context.Context) (Resp, error) {
			return Do(ctx, c, ep, bookapi.NoBody{}, targets...)
		},
	}
}

// NewKeyedQuery returns a query factory whose key and request targets are
// derived from an input value, e.g. a book id.
func NewKeyedQuery[In, Resp any](key func(In) []string, targets func(In) []Target, c *Client, ep bookapi.Endpoint[bookapi.NoBody, Resp]) func(In) QueryOptions[Resp] {
	return func(in In) QueryOptions[Resp] {
		return NewQuery(key(in), c, ep, targets(in)...)
	}
}

package client

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/booklog/booklog/pkg/bookapi"
)

// Mutation is a write bound to an endpoint. The request value becomes the
// JSON body; path parameters, query values and headers travel as Targets.
type Mutation[Req, Resp any] struct {
	client *Client
	ep     bookapi.Endpoint[Req, Resp]

	mu        sync.Mutex
	onSuccess []func(ctx context.Context, resp Resp)

	inFlight atomic.Int32
}

func NewMutation[Req, Resp any](c *Client, ep bookapi.Endpoint[Req, Resp]) *Mutation[Req, Resp] {
	return &Mutation[Req, Resp]{client: c, ep: ep}
}

// OnSuccess registers fn to run after every successful Mutate, in
// registration order.
func (m *Mutation[Req, Resp]) OnSuccess(fn func(ctx context.Context, resp Resp)) *Mutation[Req, Resp] {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onSuccess = append(m.onSuccess, fn)
	return m
}

func (m *Mutation[Req, Resp]) Mutate(ctx context.Context, req Req, targets ...Target) (Resp, error) {
	m.inFlight.Add(1)
	defer m.inFlight.Add(-1)

	resp, err := Do(ctx, m.client, m.ep, req, targets...)
	if err != nil {
		return resp, err
	}

	m.mu.Lock()
	hooks := slices.Clone(m.onSuccess)
	m.mu.Unlock()
	for _, hook := range hooks {
		hook(ctx, resp)
	}
	return resp, nil
}

// Pending reports whether a Mutate call is in flight.
func (m *Mutation[Req, Resp]) Pending() bool {
	return m.inFlight.Load() > 0
}

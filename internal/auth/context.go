package auth

import (
	"context"
	"net/http"

	"github.com/booklog/booklog/pkg/bookapi"
)

// Identity is the authenticated user and session behind a request.
type Identity struct {
	User    bookapi.User
	Session bookapi.Session
}

// Resolver maps request headers to the identity they authenticate. A request
// without a usable session resolves to (nil, nil); an error means the
// resolver itself failed.
type Resolver interface {
	Resolve(ctx context.Context, header http.Header) (*Identity, error)
}

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying a snapshot of id. A nil id
// records an unauthenticated request.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	if id != nil {
		snapshot := *id
		id = &snapshot
	}
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the identity stored by WithIdentity. The returned value
// is a copy; callers cannot alter what other handlers observe.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, _ := ctx.Value(identityKey{}).(*Identity)
	if id == nil {
		return Identity{}, false
	}
	return *id, true
}

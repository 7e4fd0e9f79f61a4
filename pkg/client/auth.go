package client

import (
	"context"

	"github.com/booklog/booklog/pkg/bookapi"
)

// SignUp registers an account. The session cookie is kept in the client's
// jar; the token is also returned for clients that persist it.
func SignUp(ctx context.Context, c *Client, req bookapi.SignUpRequest) (bookapi.SessionResponse, error) {
	return Do(ctx, c, bookapi.SignUpEmail, req)
}

func SignIn(ctx context.Context, c *Client, req bookapi.SignInRequest) (bookapi.SessionResponse, error) {
	return Do(ctx, c, bookapi.SignInEmail, req)
}

func SignOut(ctx context.Context, c *Client) error {
	_, err := Do(ctx, c, bookapi.SignOut, bookapi.NoBody{})
	return err
}

// Session returns the current session, or nil when signed out.
func Session(ctx context.Context, c *Client) (*bookapi.SessionResponse, error) {
	return Do(ctx, c, bookapi.GetSession, bookapi.NoBody{})
}

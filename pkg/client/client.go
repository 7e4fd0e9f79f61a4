// Package client is a typed HTTP client for the booklog API. Requests are
// built from the bookapi endpoint descriptors, so paths, methods and body
// shapes come from the same values the server registers.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/booklog/booklog/pkg/bookapi"
)

// Client sends credentialed requests to one booklog server. Session cookies
// set by the server are kept in the client's jar.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	token   string
}

type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. Its Jar is replaced by
// the client's own when nil.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithToken sends token as a bearer credential on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid server url %q: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid server url %q: scheme and host are required", baseURL)
	}

	c := &Client{
		baseURL: u,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.http.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, err
		}
		c.http.Jar = jar
	}
	return c, nil
}

// APIError is a non-2xx response. Payload is the server's "error" field when
// the body has one (a string, or a field->message map for validation
// failures) and the raw body otherwise.
type APIError struct {
	Status  int
	Payload any
}

func (e *APIError) Error() string {
	return fmt.Sprintf("booklog api: status %d: %v", e.Status, e.Payload)
}

// Fields returns the per-field messages of a validation failure, or nil.
func (e *APIError) Fields() map[string]string {
	raw, ok := e.Payload.(map[string]any)
	if !ok {
		return nil
	}
	fields := make(map[string]string, len(raw))
	for k, v := range raw {
		fields[k] = fmt.Sprint(v)
	}
	return fields
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// Target routes a value into part of the request other than the body.
type Target func(*request)

type request struct {
	params  map[string]string
	query   url.Values
	headers http.Header
}

// WithParam fills the ":name" path segment.
func WithParam(name, value string) Target {
	return func(r *request) { r.params[name] = value }
}

// WithQuery adds a query string value.
func WithQuery(key, value string) Target {
	return func(r *request) { r.query.Add(key, value) }
}

// WithHeader sets a request header.
func WithHeader(key, value string) Target {
	return func(r *request) { r.headers.Set(key, value) }
}

// Do sends input to ep and decodes the response. bookapi.NoBody inputs are
// sent without a body.
func Do[Req, Resp any](ctx context.Context, c *Client, ep bookapi.Endpoint[Req, Resp], input Req, targets ...Target) (Resp, error) {
	var out Resp

	r := request{params: map[string]string{}, query: url.Values{}, headers: http.Header{}}
	for _, t := range targets {
		t(&r)
	}

	path, rawPath, err := expandPath(ep.Path, r.params)
	if err != nil {
		return out, fmt.Errorf("%s: %w", ep.Name, err)
	}
	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	u.RawPath = c.baseURL.EscapedPath() + rawPath
	u.RawQuery = r.query.Encode()

	var body io.Reader
	if _, empty := any(input).(bookapi.NoBody); !empty {
		buf, err := json.Marshal(input)
		if err != nil {
			return out, fmt.Errorf("%s: encode request: %w", ep.Name, err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, ep.Method, u.String(), body)
	if err != nil {
		return out, fmt.Errorf("%s: %w", ep.Name, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for k, v := range r.headers {
		req.Header[k] = v
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return out, fmt.Errorf("%s: %w", ep.Name, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return out, fmt.Errorf("%s: read response: %w", ep.Name, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return out, newAPIError(resp.StatusCode, raw)
	}

	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("%s: decode response: %w", ep.Name, err)
	}
	return out, nil
}

func newAPIError(status int, raw []byte) *APIError {
	var body map[string]json.RawMessage
	if err := json.Unmarshal(raw, &body); err == nil {
		if field, ok := body["error"]; ok {
			var payload any
			if err := json.Unmarshal(field, &payload); err == nil {
				return &APIError{Status: status, Payload: payload}
			}
		}
	}
	return &APIError{Status: status, Payload: string(raw)}
}

// expandPath substitutes ":name" segments of an httprouter-style path and
// returns the result both plain and escaped.
func expandPath(pattern string, params map[string]string) (string, string, error) {
	segments := strings.Split(pattern, "/")
	escaped := make([]string, len(segments))
	for i, seg := range segments {
		escaped[i] = seg
		if !strings.HasPrefix(seg, ":") {
			continue
		}
		value, ok := params[seg[1:]]
		if !ok {
			return "", "", fmt.Errorf("missing path parameter %q", seg[1:])
		}
		segments[i] = value
		escaped[i] = url.PathEscape(value)
	}
	return strings.Join(segments, "/"), strings.Join(escaped, "/"), nil
}

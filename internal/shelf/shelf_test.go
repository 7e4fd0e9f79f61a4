package shelf

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/booklog/booklog/internal/api"
	"github.com/booklog/booklog/internal/auth"
	"github.com/booklog/booklog/internal/db/dbtest"
	"github.com/booklog/booklog/internal/events"
	"github.com/booklog/booklog/internal/repo"
	"github.com/booklog/booklog/pkg/bookapi"
	"github.com/booklog/booklog/pkg/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fixture struct {
	shelf     *Shelf
	out       *bytes.Buffer
	logs      *observer.ObservedLogs
	listCalls *atomic.Int32
}

// newFixture serves the real API and counts GET /books requests.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	database := dbtest.New(t)
	nop := zap.NewNop()
	authSvc := auth.NewService(database, "test-secret", time.Hour, nop)
	notifier := events.NewNotifier(events.NewNopPublisher(nop), 1, nop)
	t.Cleanup(notifier.Close)

	handler := api.New(api.Options{}, api.Deps{
		Books:       repo.NewBookRepository(database, nop),
		Notifier:    notifier,
		Resolver:    authSvc,
		AuthHandler: authSvc.Handler(false),
	}).Handler()

	var listCalls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && r.URL.Path == "/books" {
			listCalls.Add(1)
		}
		handler.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)

	c, err := client.New(srv.URL)
	require.NoError(t, err)

	core, logs := observer.New(zapcore.DebugLevel)
	out := &bytes.Buffer{}
	return &fixture{
		shelf:     New(c, out, zap.New(core)),
		out:       out,
		logs:      logs,
		listCalls: &listCalls,
	}
}

var all = ListOptions{Filter: FilterAll, Sort: SortCreatedAt}

func TestListIsCachedUntilAWrite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.shelf.List(ctx, all))
	require.NoError(t, f.shelf.List(ctx, ListOptions{Filter: FilterDone, Sort: SortTitle}))
	assert.Equal(t, int32(1), f.listCalls.Load())
	assert.Contains(t, f.out.String(), "No books found.")

	require.NoError(t, f.shelf.Add(ctx, bookapi.CreateBookRequest{Title: "Dune", Author: "Frank Herbert"}))

	f.out.Reset()
	require.NoError(t, f.shelf.List(ctx, all))
	assert.Equal(t, int32(2), f.listCalls.Load())
	assert.Contains(t, f.out.String(), "Total: 1  Reading: 1  Done: 0")
	assert.Contains(t, f.out.String(), "Dune")
}

func TestEditAndDeleteInvalidate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.shelf.Add(ctx, bookapi.CreateBookRequest{Title: "Dune", Author: "Frank Herbert"}))
	require.NoError(t, f.shelf.Show(ctx, 1))

	require.NoError(t, f.shelf.Edit(ctx, 1, bookapi.UpdateBookRequest{
		Status: bookapi.Ptr(bookapi.StatusDone),
		Stars:  bookapi.Ptr(5),
	}))

	f.out.Reset()
	require.NoError(t, f.shelf.Show(ctx, 1))
	assert.Contains(t, f.out.String(), "★★★★★")
	assert.Contains(t, f.out.String(), "done")

	require.NoError(t, f.shelf.Delete(ctx, 1))

	f.out.Reset()
	require.NoError(t, f.shelf.Show(ctx, 1))
	assert.Equal(t, "Book 1 not found.\n", f.out.String())

	f.out.Reset()
	require.NoError(t, f.shelf.Delete(ctx, 1))
	assert.Equal(t, "Book 1 not found.\n", f.out.String())
}

func TestAddRejectsInvalidFormLocally(t *testing.T) {
	f := newFixture(t)

	err := f.shelf.Add(context.Background(), bookapi.CreateBookRequest{Author: "Nobody", Stars: bookapi.Ptr(7)})
	var formErr *FormError
	require.ErrorAs(t, err, &formErr)
	assert.Len(t, formErr.Fields, 2)

	require.NoError(t, f.shelf.List(context.Background(), all))
	assert.Contains(t, f.out.String(), "Total: 0")
}

func TestAdapterErrorsBecomeStaticMessages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"Failed to fetch books"}`))
	}))
	defer srv.Close()

	c, err := client.New(srv.URL)
	require.NoError(t, err)
	core, logs := observer.New(zapcore.DebugLevel)
	s := New(c, &bytes.Buffer{}, zap.New(core))

	err = s.List(context.Background(), all)
	assert.Equal(t, ErrLoadBooks, err)

	err = s.Add(context.Background(), bookapi.CreateBookRequest{Title: "Dune", Author: "Herbert"})
	assert.Equal(t, ErrCreateBook, err)

	entries := logs.FilterMessage(ErrLoadBooks.Error()).All()
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].ContextMap()["error"], "Failed to fetch books")
}

func TestAccountCommands(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.shelf.WhoAmI(ctx))
	assert.Equal(t, "Not signed in.\n", f.out.String())

	token, err := f.shelf.SignUp(ctx, bookapi.SignUpRequest{Name: "Ada", Email: "ada@example.com", Password: "password123"})
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	f.out.Reset()
	require.NoError(t, f.shelf.WhoAmI(ctx))
	assert.Contains(t, f.out.String(), "Ada <ada@example.com>")

	require.NoError(t, f.shelf.SignOut(ctx))
	_, err = f.shelf.SignIn(ctx, bookapi.SignInRequest{Email: "ada@example.com", Password: "wrong-password"})
	assert.Equal(t, ErrSignIn, err)

	_, err = f.shelf.SignUp(ctx, bookapi.SignUpRequest{Name: "Bob", Email: "not-an-email", Password: "short"})
	var formErr *FormError
	require.ErrorAs(t, err, &formErr)
	assert.Contains(t, formErr.Fields, "email")
	assert.Contains(t, formErr.Fields, "password")
}

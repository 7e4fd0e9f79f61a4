package client

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/booklog/booklog/pkg/bookapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countingQuery(key []string, calls *atomic.Int32, value string) QueryOptions[string] {
	return QueryOptions[string]{
		Key: key,
		Fetch: func(context.Context) (string, error) {
			calls.Add(1)
			return value, nil
		},
	}
}

func TestFetchCaches(t *testing.T) {
	cache := NewQueryCache()
	var calls atomic.Int32
	q := countingQuery([]string{"books"}, &calls, "list")

	for i := 0; i < 3; i++ {
		v, err := Fetch(context.Background(), cache, q)
		require.NoError(t, err)
		assert.Equal(t, "list", v)
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchDoesNotCacheErrors(t *testing.T) {
	cache := NewQueryCache()
	fail := true
	q := QueryOptions[int]{
		Key: []string{"books"},
		Fetch: func(context.Context) (int, error) {
			if fail {
				return 0, errors.New("boom")
			}
			return 7, nil
		},
	}

	_, err := Fetch(context.Background(), cache, q)
	assert.Error(t, err)
	assert.Equal(t, 0, cache.Len())

	fail = false
	v, err := Fetch(context.Background(), cache, q)
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestFetchCollapsesConcurrentCalls(t *testing.T) {
	cache := NewQueryCache()
	var calls atomic.Int32
	release := make(chan struct{})
	q := QueryOptions[string]{
		Key: []string{"books"},
		Fetch: func(context.Context) (string, error) {
			calls.Add(1)
			<-release
			return "list", nil
		},
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := Fetch(context.Background(), cache, q)
			assert.NoError(t, err)
			assert.Equal(t, "list", v)
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}

func TestInvalidatePrefix(t *testing.T) {
	cache := NewQueryCache()
	var calls atomic.Int32
	ctx := context.Background()

	for _, key := range [][]string{{"books"}, {"books", "1"}, {"books", "2"}, {"bookshelf"}, {"session"}} {
		_, err := Fetch(ctx, cache, countingQuery(key, &calls, "v"))
		require.NoError(t, err)
	}
	require.Equal(t, 5, cache.Len())

	assert.Equal(t, 1, cache.Invalidate("books", "2"))
	assert.Equal(t, 2, cache.Invalidate(BooksKey...))
	assert.Equal(t, 2, cache.Len())

	// The next read refetches
	_, err := Fetch(ctx, cache, countingQuery(BooksKey, &calls, "v"))
	require.NoError(t, err)
	assert.Equal(t, int32(6), calls.Load())

	assert.Equal(t, 3, cache.Invalidate())
	assert.Equal(t, 0, cache.Len())
}

// blockingQuery holds its first fetch until release is closed and answers
// later fetches at once.
func blockingQuery(calls *atomic.Int32, started, release chan struct{}) QueryOptions[string] {
	return QueryOptions[string]{
		Key: BooksKey,
		Fetch: func(context.Context) (string, error) {
			if calls.Add(1) == 1 {
				close(started)
				<-release
				return "before", nil
			}
			return "after", nil
		},
	}
}

func TestInvalidateDuringFetchDropsResult(t *testing.T) {
	cache := NewQueryCache()
	var calls atomic.Int32
	started, release := make(chan struct{}), make(chan struct{})
	q := blockingQuery(&calls, started, release)

	done := make(chan string)
	go func() {
		v, err := Fetch(context.Background(), cache, q)
		assert.NoError(t, err)
		done <- v
	}()

	<-started
	assert.Equal(t, 0, cache.Invalidate(BooksKey...))
	close(release)

	// The caller that started the fetch still gets its answer
	assert.Equal(t, "before", <-done)
	assert.Equal(t, 0, cache.Len())

	v, err := Fetch(context.Background(), cache, q)
	require.NoError(t, err)
	assert.Equal(t, "after", v)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetchAfterInvalidateStartsNewRequest(t *testing.T) {
	cache := NewQueryCache()
	var calls atomic.Int32
	started, release := make(chan struct{}), make(chan struct{})
	q := blockingQuery(&calls, started, release)

	done := make(chan string)
	go func() {
		v, err := Fetch(context.Background(), cache, q)
		assert.NoError(t, err)
		done <- v
	}()

	<-started
	cache.Invalidate()

	v, err := Fetch(context.Background(), cache, q)
	require.NoError(t, err)
	assert.Equal(t, "after", v)

	close(release)
	assert.Equal(t, "before", <-done)

	// The older request finishing last does not overwrite the newer entry
	v, err = Fetch(context.Background(), cache, q)
	require.NoError(t, err)
	assert.Equal(t, "after", v)
	assert.Equal(t, int32(2), calls.Load())
}

func TestCancelledCallerDoesNotFailOthers(t *testing.T) {
	cache := NewQueryCache()
	var calls atomic.Int32
	started, release := make(chan struct{}), make(chan struct{})
	q := blockingQuery(&calls, started, release)

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error)
	go func() {
		_, err := Fetch(ctx, cache, q)
		first <- err
	}()
	<-started

	second := make(chan string)
	go func() {
		v, err := Fetch(context.Background(), cache, q)
		assert.NoError(t, err)
		second <- v
	}()
	time.Sleep(50 * time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-first, context.Canceled)

	close(release)
	assert.Equal(t, "before", <-second)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 1, cache.Len())
}

func TestMutationHooksAndPending(t *testing.T) {
	srv := newServer(t)
	c := newClient(t, srv.URL)
	ctx := context.Background()
	cache := NewQueryCache()

	list, err := Fetch(ctx, cache, BooksQuery(c))
	require.NoError(t, err)
	assert.Empty(t, list.Books)

	create := CreateBook(c)
	var order []string
	create.
		OnSuccess(func(_ context.Context, resp bookapi.BookResponse) {
			assert.True(t, create.Pending())
			order = append(order, "invalidate")
			cache.Invalidate(BooksKey...)
		}).
		OnSuccess(func(_ context.Context, resp bookapi.BookResponse) {
			order = append(order, resp.Book.Title)
		})

	assert.False(t, create.Pending())
	_, err = create.Mutate(ctx, bookapi.CreateBookRequest{Title: "Dune", Author: "Frank Herbert"})
	require.NoError(t, err)
	assert.False(t, create.Pending())
	assert.Equal(t, []string{"invalidate", "Dune"}, order)

	list, err = Fetch(ctx, cache, BooksQuery(c))
	require.NoError(t, err)
	assert.Len(t, list.Books, 1)

	// Hooks do not run on failure
	_, err = create.Mutate(ctx, bookapi.CreateBookRequest{})
	assert.Error(t, err)
	assert.Len(t, order, 2)
}

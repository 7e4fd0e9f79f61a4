package shelf

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/booklog/booklog/pkg/bookapi"
	"github.com/booklog/booklog/pkg/client"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

// Messages shown when the API call behind a command fails. The cause is only
// logged.
var (
	ErrLoadBooks   = errors.New("Error loading books. Please try again.")
	ErrCreateBook  = errors.New("Failed to create book. Please try again.")
	ErrUpdateBook  = errors.New("Failed to update book. Please try again.")
	ErrDeleteBook  = errors.New("Failed to delete book. Please try again.")
	ErrSignUp      = errors.New("Sign up failed. Please try again.")
	ErrSignIn      = errors.New("Sign in failed. Check your email and password and try again.")
	ErrSignOut     = errors.New("Sign out failed. Please try again.")
	ErrLoadSession = errors.New("Could not load your session. Please try again.")
)

// Shelf runs commands against one server and prints to out. Query results
// are cached for the life of the Shelf and dropped after every successful
// write.
type Shelf struct {
	client *client.Client
	cache  *client.QueryCache
	out    io.Writer
	log    *zap.Logger
	lang   language.Tag

	create *client.Mutation[bookapi.CreateBookRequest, bookapi.BookResponse]
	update *client.Mutation[bookapi.UpdateBookRequest, bookapi.BookResponse]
	remove *client.Mutation[bookapi.NoBody, bookapi.MessageResponse]
}

func New(c *client.Client, out io.Writer, log *zap.Logger) *Shelf {
	s := &Shelf{
		client: c,
		cache:  client.NewQueryCache(),
		out:    out,
		log:    log,
		lang:   language.English,
	}
	s.create = client.CreateBook(c).OnSuccess(func(context.Context, bookapi.BookResponse) { s.invalidateBooks() })
	s.update = client.UpdateBook(c).OnSuccess(func(context.Context, bookapi.BookResponse) { s.invalidateBooks() })
	s.remove = client.DeleteBook(c).OnSuccess(func(context.Context, bookapi.MessageResponse) { s.invalidateBooks() })
	return s
}

func (s *Shelf) invalidateBooks() {
	n := s.cache.Invalidate(client.BooksKey...)
	s.log.Debug("Book queries invalidated", zap.Int("entries", n))
}

// failed logs the cause and returns the static message.
func (s *Shelf) failed(msg error, err error) error {
	s.log.Debug(msg.Error(), zap.Error(err))
	return msg
}

type ListOptions struct {
	Filter Filter
	Sort   SortBy
}

func (s *Shelf) List(ctx context.Context, opts ListOptions) error {
	resp, err := client.Fetch(ctx, s.cache, client.BooksQuery(s.client))
	if err != nil {
		return s.failed(ErrLoadBooks, err)
	}
	return RenderList(s.out, Arrange(resp.Books, opts.Filter, opts.Sort, s.lang), CountBooks(resp.Books))
}

func (s *Shelf) Show(ctx context.Context, id int64) error {
	resp, err := client.Fetch(ctx, s.cache, client.BookQuery(s.client, id))
	if client.IsNotFound(err) {
		_, err := fmt.Fprintf(s.out, "Book %d not found.\n", id)
		return err
	}
	if err != nil {
		return s.failed(ErrLoadBooks, err)
	}
	return RenderBook(s.out, resp.Book)
}

func (s *Shelf) Add(ctx context.Context, req bookapi.CreateBookRequest) error {
	if err := CheckCreate(req); err != nil {
		return err
	}
	resp, err := s.create.Mutate(ctx, req)
	if err != nil {
		return s.failed(ErrCreateBook, err)
	}
	fmt.Fprintf(s.out, "Added book %d.\n\n", resp.Book.ID)
	return RenderBook(s.out, resp.Book)
}

func (s *Shelf) Edit(ctx context.Context, id int64, req bookapi.UpdateBookRequest) error {
	if err := CheckUpdate(req); err != nil {
		return err
	}
	resp, err := s.update.Mutate(ctx, req, client.IDTarget(id))
	if client.IsNotFound(err) {
		_, err := fmt.Fprintf(s.out, "Book %d not found.\n", id)
		return err
	}
	if err != nil {
		return s.failed(ErrUpdateBook, err)
	}
	fmt.Fprintf(s.out, "Updated book %d.\n\n", id)
	return RenderBook(s.out, resp.Book)
}

func (s *Shelf) Delete(ctx context.Context, id int64) error {
	_, err := s.remove.Mutate(ctx, bookapi.NoBody{}, client.IDTarget(id))
	if client.IsNotFound(err) {
		_, err := fmt.Fprintf(s.out, "Book %d not found.\n", id)
		return err
	}
	if err != nil {
		return s.failed(ErrDeleteBook, err)
	}
	_, err = fmt.Fprintf(s.out, "Deleted book %d.\n", id)
	return err
}

// SignUp registers and returns the session token so the caller can keep it.
func (s *Shelf) SignUp(ctx context.Context, req bookapi.SignUpRequest) (string, error) {
	if err := CheckSignUp(req); err != nil {
		return "", err
	}
	resp, err := client.SignUp(ctx, s.client, req)
	if err != nil {
		return "", s.failed(ErrSignUp, err)
	}
	fmt.Fprintf(s.out, "Welcome, %s.\n", resp.User.Name)
	return resp.Token, nil
}

func (s *Shelf) SignIn(ctx context.Context, req bookapi.SignInRequest) (string, error) {
	resp, err := client.SignIn(ctx, s.client, req)
	if err != nil {
		return "", s.failed(ErrSignIn, err)
	}
	fmt.Fprintf(s.out, "Signed in as %s.\n", resp.User.Email)
	return resp.Token, nil
}

func (s *Shelf) SignOut(ctx context.Context) error {
	if err := client.SignOut(ctx, s.client); err != nil {
		return s.failed(ErrSignOut, err)
	}
	_, err := fmt.Fprintln(s.out, "Signed out.")
	return err
}

func (s *Shelf) WhoAmI(ctx context.Context) error {
	session, err := client.Session(ctx, s.client)
	if err != nil {
		return s.failed(ErrLoadSession, err)
	}
	if session == nil {
		_, err := fmt.Fprintln(s.out, "Not signed in.")
		return err
	}
	_, err = fmt.Fprintf(s.out, "%s <%s>, session expires %s\n",
		session.User.Name, session.User.Email, session.Session.ExpiresAt.Local().Format(dateLayout))
	return err
}

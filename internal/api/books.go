package api

import (
	"errors"
	"net/http"

	"github.com/booklog/booklog/internal/db"
	"github.com/booklog/booklog/internal/repo"
	"github.com/booklog/booklog/pkg/bookapi"
	"go.uber.org/zap"
)

func (app *Application) listBooksHandler(w http.ResponseWriter, r *http.Request) {
	rows, err := app.books.ListBooks(r.Context())
	if err != nil {
		app.serverErrorResponse(w, r, err, "Failed to fetch books")
		return
	}

	books := make([]bookapi.Book, len(rows))
	for i, row := range rows {
		books[i] = row.ToAPI()
	}
	reply(app, w, r, bookapi.ListBooks, http.StatusOK, bookapi.BooksResponse{Books: books})
}

func (app *Application) showBookHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	book, err := app.books.GetBook(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, repo.ErrBookNotFound):
			app.bookNotFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err, "Failed to fetch book")
		}
		return
	}

	reply(app, w, r, bookapi.GetBook, http.StatusOK, bookapi.BookResponse{Book: book.ToAPI()})
}

func (app *Application) createBookHandler(w http.ResponseWriter, r *http.Request) {
	input, err := decode(w, r, bookapi.CreateBook)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := bookapi.Validate(input); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	book := &db.Book{
		Title:  input.Title,
		Author: input.Author,
		Status: string(input.StatusOrDefault()),
		Stars:  input.Stars,
		Review: input.Review,
	}
	if err := app.books.CreateBook(r.Context(), book); err != nil {
		app.serverErrorResponse(w, r, err, "Failed to create book")
		return
	}

	created := book.ToAPI()
	app.notifier.BookCreated(r.Context(), created)
	reply(app, w, r, bookapi.CreateBook, http.StatusCreated, bookapi.BookResponse{Book: created})
}

func (app *Application) updateBookHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	input, err := decode(w, r, bookapi.UpdateBook)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if err := bookapi.Validate(input); err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	update := repo.BookUpdate{
		Title:  input.Title,
		Author: input.Author,
		Stars:  input.Stars,
		Review: input.Review,
	}
	if input.Status != nil {
		status := string(*input.Status)
		update.Status = &status
	}

	book, err := app.books.UpdateBook(r.Context(), id, update)
	if err != nil {
		switch {
		case errors.Is(err, repo.ErrBookNotFound):
			app.bookNotFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err, "Failed to update book")
		}
		return
	}

	updated := book.ToAPI()
	app.notifier.BookUpdated(r.Context(), updated, update.Fields())
	reply(app, w, r, bookapi.UpdateBook, http.StatusOK, bookapi.BookResponse{Book: updated})
}

func (app *Application) deleteBookHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if err := app.books.DeleteBook(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, repo.ErrBookNotFound):
			app.bookNotFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err, "Failed to delete book")
		}
		return
	}

	app.notifier.BookDeleted(r.Context(), id)
	reply(app, w, r, bookapi.DeleteBook, http.StatusOK, bookapi.MessageResponse{Message: "Book deleted successfully"})
}

// rootHandler sends signed-in browsers to the web app and answers everyone
// else with a welcome payload.
func (app *Application) rootHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := identityFrom(r); ok && acceptsHTML(r) && app.opts.WebURL != "" {
		http.Redirect(w, r, app.opts.WebURL, http.StatusFound)
		return
	}

	if err := app.writeJSON(w, http.StatusOK, bookapi.MessageResponse{Message: "Book Log API - Welcome!"}, nil); err != nil {
		app.serverErrorResponse(w, r, err, "Internal server error")
	}
}

// healthzHandler reports 503 when any dependency check fails.
func (app *Application) healthzHandler(w http.ResponseWriter, r *http.Request) {
	for _, check := range app.health {
		if err := check(); err != nil {
			app.log.Warn("Health check failed", zap.Error(err))
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("unhealthy: " + err.Error()))
			return
		}
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("healthy"))
}

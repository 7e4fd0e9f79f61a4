package api

import (
	"errors"
	"net/http"

	"github.com/booklog/booklog/internal/events"
	"github.com/booklog/booklog/pkg/bookapi"
	"go.uber.org/zap"
)

// logError logs an internal error with enough request context to find it.
func (app *Application) logError(r *http.Request, err error) {
	app.log.Error(err.Error(),
		zap.String("request_method", r.Method),
		zap.String("request_url", r.URL.String()),
		zap.String("request_id", events.CorrelationID(r.Context())),
	)
}

// errorResponse sends {"error": message} with the given status.
func (app *Application) errorResponse(w http.ResponseWriter, r *http.Request, status int, message any) {
	if err := app.writeJSON(w, status, bookapi.ErrorResponse{Error: message}, nil); err != nil {
		app.logError(r, err)
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// serverErrorResponse logs err and answers with a generic message that
// reveals nothing about it.
func (app *Application) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error, message string) {
	app.logError(r, err)
	app.errorResponse(w, r, http.StatusInternalServerError, message)
}

func (app *Application) notFoundResponse(w http.ResponseWriter, r *http.Request) {
	app.errorResponse(w, r, http.StatusNotFound, "Not found")
}

func (app *Application) bookNotFoundResponse(w http.ResponseWriter, r *http.Request) {
	app.errorResponse(w, r, http.StatusNotFound, "Book not found")
}

func (app *Application) methodNotAllowedResponse(w http.ResponseWriter, r *http.Request) {
	message := "the " + r.Method + " method is not supported for this resource"
	app.errorResponse(w, r, http.StatusMethodNotAllowed, message)
}

// badRequestResponse answers 400. Validation failures carry a field->message
// object, anything else its text.
func (app *Application) badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	var verrs bookapi.ValidationErrors
	if errors.As(err, &verrs) {
		app.errorResponse(w, r, http.StatusBadRequest, verrs)
		return
	}
	app.errorResponse(w, r, http.StatusBadRequest, err.Error())
}

func (app *Application) rateLimitExceededResponse(w http.ResponseWriter, r *http.Request) {
	app.errorResponse(w, r, http.StatusTooManyRequests, "rate limit exceeded")
}

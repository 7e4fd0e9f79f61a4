package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/booklog/booklog/pkg/bookapi"
	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

const maxBodyBytes = 1_048_576

// writeJSON encodes data with the given status. Extra headers are applied
// before the status line is written.
func (app *Application) writeJSON(w http.ResponseWriter, status int, data any, headers http.Header) error {
	js, err := json.Marshal(data)
	if err != nil {
		return err
	}
	js = append(js, '\n')

	for key, value := range headers {
		w.Header()[key] = value
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(js)
	return nil
}

// reply writes the response body of ep. The Resp type parameter ties every
// handler to the shape its endpoint declares.
func reply[Req, Resp any](app *Application, w http.ResponseWriter, r *http.Request, _ bookapi.Endpoint[Req, Resp], status int, resp Resp) {
	if err := app.writeJSON(w, status, resp, nil); err != nil {
		app.log.Error("Failed to encode response",
			zap.String("request_url", r.URL.String()),
			zap.Error(err),
		)
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// decode reads the request body of ep. Unknown fields are ignored.
func decode[Req, Resp any](w http.ResponseWriter, r *http.Request, _ bookapi.Endpoint[Req, Resp]) (Req, error) {
	var req Req
	if err := readJSON(w, r, &req); err != nil {
		return req, err
	}
	return req, nil
}

// malformedError is a body that could not be decoded at all.
type malformedError struct{ msg string }

func (e *malformedError) Error() string { return e.msg }

func readJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	err := dec.Decode(dst)
	if err != nil {
		var (
			fieldErrors   bookapi.ValidationErrors
			syntaxError   *json.SyntaxError
			typeError     *json.UnmarshalTypeError
			maxBytesError *http.MaxBytesError
		)

		switch {
		case errors.As(err, &fieldErrors):
			return fieldErrors
		case errors.As(err, &syntaxError):
			return &malformedError{fmt.Sprintf("body contains badly-formed JSON (at character %d)", syntaxError.Offset)}
		case errors.Is(err, io.ErrUnexpectedEOF):
			return &malformedError{"body contains badly-formed JSON"}
		case errors.As(err, &typeError):
			if typeError.Field != "" {
				return bookapi.ValidationErrors{typeError.Field: "has an invalid type"}
			}
			return &malformedError{fmt.Sprintf("body contains incorrect JSON type (at character %d)", typeError.Offset)}
		case errors.Is(err, io.EOF):
			return &malformedError{"body must not be empty"}
		case errors.As(err, &maxBytesError):
			return &malformedError{fmt.Sprintf("body must not be larger than %d bytes", maxBytesError.Limit)}
		default:
			return &malformedError{err.Error()}
		}
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return &malformedError{"body must only contain a single JSON value"}
	}
	return nil
}

// readIDParam validates the ":id" path parameter.
func (app *Application) readIDParam(r *http.Request) (int64, error) {
	params := httprouter.ParamsFromContext(r.Context())
	return bookapi.ParseBookID(params.ByName("id"))
}

// acceptsHTML reports whether the client asked for an HTML document.
func acceptsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

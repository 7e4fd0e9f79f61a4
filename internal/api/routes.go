package api

import (
	"net/http"

	"github.com/booklog/booklog/pkg/bookapi"
	"github.com/julienschmidt/httprouter"
)

// Handler builds the full pipeline.
//
// Middleware chain (outermost first):
//
//	recoverPanic -> requestID -> logRequests -> corsPolicy -> rateLimit -> authenticate -> router
func (app *Application) Handler() http.Handler {
	return app.recoverPanic(
		app.requestID(
			app.logRequests(
				app.corsPolicy(
					app.rateLimit(
						app.authenticate(app.routes()))))))
}

func (app *Application) routes() *httprouter.Router {
	router := httprouter.New()

	router.NotFound = http.HandlerFunc(app.notFoundResponse)
	router.MethodNotAllowed = http.HandlerFunc(app.methodNotAllowedResponse)

	handle(app, router, bookapi.ListBooks, app.listBooksHandler)
	handle(app, router, bookapi.GetBook, app.showBookHandler)
	handle(app, router, bookapi.CreateBook, app.createBookHandler)
	handle(app, router, bookapi.UpdateBook, app.updateBookHandler)
	handle(app, router, bookapi.DeleteBook, app.deleteBookHandler)

	if app.authH != nil {
		authHandler := app.recoverAuth(app.authH)
		router.Handler(http.MethodGet, bookapi.AuthPrefix+"/*path", authHandler)
		router.Handler(http.MethodPost, bookapi.AuthPrefix+"/*path", authHandler)
	}

	router.HandlerFunc(http.MethodGet, "/", app.rootHandler)
	router.HandlerFunc(http.MethodGet, "/healthz", app.healthzHandler)
	router.Handler(http.MethodGet, "/metrics", app.metrics.Handler())

	return router
}

// handle registers h at ep's method and path, counted under ep's name.
func handle[Req, Resp any](app *Application, router *httprouter.Router, ep bookapi.Endpoint[Req, Resp], h http.HandlerFunc) {
	router.Handler(ep.Method, ep.Path, app.metrics.Instrument(ep.Name, h))
}

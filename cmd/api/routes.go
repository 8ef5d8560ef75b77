// cmd/api/routes.go
package main

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
)

// routes registers all HTTP endpoints and returns the configured router
// wrapped in middleware.
//
// Middleware chain (outermost → innermost):
//
//	recoverPanic → requestID → logRequest → rateLimit → router
//
// Endpoints (trailing-slash variants are redirected by httprouter):
//
//	GET    /v1/healthcheck  – service status
//	GET    /v1/books        – list live books (paginated)
//	POST   /v1/books        – create one book or a list of books
//	PATCH  /v1/books        – bulk partial update of [{pk, ...fields}]
//	DELETE /v1/books        – bulk soft delete of {"ids": [...]}
//	GET    /v1/books/:id    – retrieve a single book
//	PUT    /v1/books/:id    – replace a book
//	PATCH  /v1/books/:id    – partially update a book
//	DELETE /v1/books/:id    – soft delete a book
//	GET    /v1/presses      – list presses
//	GET    /v1/presses/:id  – retrieve a single press
func (app *applicationDependencies) routes() http.Handler {
	router := httprouter.New()

	router.NotFound = http.HandlerFunc(app.notFoundResponse)
	router.MethodNotAllowed = http.HandlerFunc(app.methodNotAllowedResponse)

	router.HandlerFunc(http.MethodGet, "/v1/healthcheck", app.healthcheckHandler)

	router.HandlerFunc(http.MethodGet, "/v1/books", app.listBooksHandler)
	router.HandlerFunc(http.MethodPost, "/v1/books", app.createBooksHandler)
	router.HandlerFunc(http.MethodPatch, "/v1/books", app.bulkUpdateBooksHandler)
	router.HandlerFunc(http.MethodDelete, "/v1/books", app.bulkDeleteBooksHandler)
	router.HandlerFunc(http.MethodGet, "/v1/books/:id", app.showBookHandler)
	router.HandlerFunc(http.MethodPut, "/v1/books/:id", app.replaceBookHandler)
	router.HandlerFunc(http.MethodPatch, "/v1/books/:id", app.updateBookHandler)
	router.HandlerFunc(http.MethodDelete, "/v1/books/:id", app.deleteBookHandler)

	router.HandlerFunc(http.MethodGet, "/v1/presses", app.listPressesHandler)
	router.HandlerFunc(http.MethodGet, "/v1/presses/:id", app.showPressHandler)

	return app.recoverPanic(app.requestID(app.logRequest(app.rateLimit(router))))
}

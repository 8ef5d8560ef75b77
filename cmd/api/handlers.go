// cmd/api/handlers.go
// This file contains the HTTP request handlers for the books resource.
// Each handler is a method on *applicationDependencies so it has access
// to the logger and the models.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/aoideee/bookstore-api/internal/data"
	"github.com/aoideee/bookstore-api/internal/validator"
)

// listBooksHandler handles GET /v1/books.
// It reads page, page_size and sort from the query string and returns one
// page of live books along with pagination metadata.
func (app *applicationDependencies) listBooksHandler(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()

	filters := data.Filters{
		Page:         app.readInt(qs, "page", 1),
		PageSize:     app.readInt(qs, "page_size", 20),
		Sort:         app.readString(qs, "sort", "book_id"),
		SortSafeList: data.BookSortSafeList,
	}

	v := validator.New()
	if data.ValidateFilters(v, filters); !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	books, metadata, err := app.models.Books.GetAll(r.Context(), filters)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{
		"status":   http.StatusOK,
		"message":  "books retrieved",
		"results":  books,
		"metadata": metadata,
	}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// showBookHandler handles GET /v1/books/:id.
// Responds 404 if the book does not exist or has been soft-deleted.
func (app *applicationDependencies) showBookHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	book, err := app.models.Books.Get(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"status": http.StatusOK, "message": "book retrieved", "results": book}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// createBooksHandler handles POST /v1/books.
// The body is either one book object or a list of them. Every book is
// validated first; if any fails, nothing is stored. Otherwise all books are
// inserted together and returned with a 201 Created status, as a single
// object or a list matching the request shape.
func (app *applicationDependencies) createBooksHandler(w http.ResponseWriter, r *http.Request) {
	var body json.RawMessage
	err := app.readJSON(w, r, &body)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	inputs, many, err := data.ParseBookInputs(body)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	v := validator.New()
	presses := make([]*data.Press, len(inputs))
	for i := range inputs {
		prefix := ""
		if many {
			prefix = strconv.Itoa(i)
		}
		presses[i], err = data.ValidateBookInput(r.Context(), app.models.Presses, v, prefix, &inputs[i])
		if err != nil {
			app.serverErrorResponse(w, r, err)
			return
		}
	}
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	books := make([]*data.Book, len(inputs))
	for i := range inputs {
		books[i] = inputs[i].NewBook(presses[i])
	}

	err = app.models.Books.Insert(r.Context(), books...)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	if !many {
		headers := make(http.Header)
		headers.Set("Location", fmt.Sprintf("/v1/books/%d", books[0].ID))
		err = app.writeJSON(w, http.StatusCreated, envelope{"status": http.StatusCreated, "message": "book created", "results": books[0]}, headers)
	} else {
		err = app.writeJSON(w, http.StatusCreated, envelope{"status": http.StatusCreated, "message": "books created", "results": books}, nil)
	}
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// replaceBookHandler handles PUT /v1/books/:id.
// Every writable field must be supplied and passes the full rule set.
func (app *applicationDependencies) replaceBookHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	var input data.BookInput
	err = app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	book, err := app.models.Books.Get(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	v := validator.New()
	press, err := data.ValidateBookInput(r.Context(), app.models.Presses, v, "", &input)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	input.ApplyTo(book, press)

	err = app.models.Books.Update(r.Context(), book)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"status": http.StatusOK, "message": "book updated", "results": book}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// updateBookHandler handles PATCH /v1/books/:id.
// Only the fields present in the body are checked and applied.
func (app *applicationDependencies) updateBookHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}
	app.reconcileBooks(w, r, id)
}

// bulkUpdateBooksHandler handles PATCH /v1/books.
// The body is a list of {"pk": ..., fields...}. Entries whose pk is not a
// live book are skipped and reported; any validation failure rejects the
// whole list.
func (app *applicationDependencies) bulkUpdateBooksHandler(w http.ResponseWriter, r *http.Request) {
	app.reconcileBooks(w, r, 0)
}

// reconcileBooks runs a sparse update through data.Reconciler. pathID is
// 0 for the collection route.
func (app *applicationDependencies) reconcileBooks(w http.ResponseWriter, r *http.Request, pathID int64) {
	var body json.RawMessage
	err := app.readJSON(w, r, &body)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	req, err := data.ParseUpdateRequest(pathID, body)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	v := validator.New()
	reconciler := data.Reconciler{Books: app.models.Books, Presses: app.models.Presses}

	result, err := reconciler.Reconcile(r.Context(), req, v)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrFailedValidation):
			app.failedValidationResponse(w, r, v.Errors)
		case errors.Is(err, data.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	if _, single := req.(data.SingleUpdate); single {
		err = app.writeJSON(w, http.StatusOK, envelope{"status": http.StatusOK, "message": "book updated", "results": result.Applied[0]}, nil)
	} else {
		if len(result.Skipped) > 0 {
			app.logger.Info("bulk update skipped unknown books",
				"request_id", requestIDFromContext(r.Context()),
				"skipped", result.Skipped,
			)
		}
		err = app.writeJSON(w, http.StatusOK, envelope{"status": http.StatusOK, "message": "books updated", "results": result}, nil)
	}
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// deleteBookHandler handles DELETE /v1/books/:id.
// The book is flagged as deleted, never removed. Responds 404 if it was
// missing or already deleted.
func (app *applicationDependencies) deleteBookHandler(w http.ResponseWriter, r *http.Request) {
	id, err := app.readIDParam(r)
	if err != nil {
		app.notFoundResponse(w, r)
		return
	}

	n, err := app.models.Books.SoftDelete(r.Context(), id)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
	if n == 0 {
		app.notFoundResponse(w, r)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"status": http.StatusOK, "message": "book deleted"}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// bulkDeleteBooksHandler handles DELETE /v1/books with a body of
// {"ids": [...]}. It succeeds if at least one live book was flagged.
func (app *applicationDependencies) bulkDeleteBooksHandler(w http.ResponseWriter, r *http.Request) {
	var input data.DeleteBooksInput
	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	v := validator.New()
	if err := v.Struct(input); err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	n, err := app.models.Books.SoftDelete(r.Context(), input.IDs...)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
	if n == 0 {
		app.errorResponse(w, r, http.StatusNotFound, "none of the given books exist or they are already deleted", nil)
		return
	}

	err = app.writeJSON(w, http.StatusOK, envelope{"status": http.StatusOK, "message": "books deleted", "deleted": n}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

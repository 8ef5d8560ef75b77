package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aoideee/bookstore-api/internal/config"
	"github.com/aoideee/bookstore-api/internal/data"
)

type response struct {
	Status   int               `json:"status"`
	Message  string            `json:"message"`
	Results  json.RawMessage   `json:"results"`
	Errors   map[string]string `json:"errors"`
	Deleted  int64             `json:"deleted"`
	Metadata data.Metadata     `json:"metadata"`
}

// newTestApp returns an app over memory models holding
// 1 "Dune", 2 "Emma", 3 "Ulysses", all at price 10 from press 1.
func newTestApp(t *testing.T) (*applicationDependencies, http.Handler) {
	t.Helper()

	app := &applicationDependencies{
		config: config.Config{Env: "development"},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		models: data.NewMemoryModels(demoPresses...),
	}
	for _, name := range []string{"Dune", "Emma", "Ulysses"} {
		book := &data.Book{BookName: name, Price: decimal.NewFromInt(10), PressID: 1}
		require.NoError(t, app.models.Books.Insert(context.Background(), book))
	}
	return app, app.routes()
}

func send(t *testing.T, h http.Handler, method, target, body string) (*httptest.ResponseRecorder, response) {
	t.Helper()

	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rdr)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	var resp response
	if strings.HasPrefix(rr.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp), rr.Body.String())
	}
	return rr, resp
}

func decodeBook(t *testing.T, raw json.RawMessage) data.Book {
	t.Helper()
	var b data.Book
	require.NoError(t, json.Unmarshal(raw, &b))
	return b
}

func decodeBooks(t *testing.T, raw json.RawMessage) []data.Book {
	t.Helper()
	var b []data.Book
	require.NoError(t, json.Unmarshal(raw, &b))
	return b
}

func mustGet(t *testing.T, app *applicationDependencies, id int64) *data.Book {
	t.Helper()
	book, err := app.models.Books.Get(context.Background(), id)
	require.NoError(t, err)
	return book
}

func TestHealthcheck(t *testing.T) {
	_, h := newTestApp(t)

	rr, resp := send(t, h, http.MethodGet, "/v1/healthcheck", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "available", resp.Message)
	assert.JSONEq(t, `{"environment": "development", "version": "`+appVersion+`"}`, string(resp.Results))
}

func TestListBooks(t *testing.T) {
	app, h := newTestApp(t)
	_, err := app.models.Books.SoftDelete(context.Background(), 2)
	require.NoError(t, err)

	rr, resp := send(t, h, http.MethodGet, "/v1/books?sort=-book_id", "")
	require.Equal(t, http.StatusOK, rr.Code)

	books := decodeBooks(t, resp.Results)
	require.Len(t, books, 2, "soft-deleted books are not listed")
	assert.Equal(t, "Ulysses", books[0].BookName)
	assert.Equal(t, "Dune", books[1].BookName)
	assert.Equal(t, "Orbit Press", books[0].Press.PressName)
	assert.Equal(t, 2, resp.Metadata.TotalRecords)

	rr, resp = send(t, h, http.MethodGet, "/v1/books?sort=pic&page=abc", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, resp.Errors, "sort")
	assert.Contains(t, resp.Errors, "page")
}

func TestShowBook(t *testing.T) {
	app, h := newTestApp(t)

	rr, resp := send(t, h, http.MethodGet, "/v1/books/1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	book := decodeBook(t, resp.Results)
	assert.Equal(t, "Dune", book.BookName)
	assert.True(t, book.Price.Equal(decimal.NewFromInt(10)))

	_, err := app.models.Books.SoftDelete(context.Background(), 1)
	require.NoError(t, err)

	for _, target := range []string{"/v1/books/1", "/v1/books/99", "/v1/books/abc"} {
		rr, resp = send(t, h, http.MethodGet, target, "")
		assert.Equal(t, http.StatusNotFound, rr.Code, target)
		assert.Equal(t, http.StatusNotFound, resp.Status, target)
	}
}

func TestCreateBook(t *testing.T) {
	_, h := newTestApp(t)

	rr, resp := send(t, h, http.MethodPost, "/v1/books", `{"book_name": "Persuasion", "price": "19.99", "publish": 2, "authors": [4]}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, "/v1/books/4", rr.Header().Get("Location"))

	book := decodeBook(t, resp.Results)
	assert.Equal(t, int64(4), book.ID)
	assert.Equal(t, "Lantern Books", book.Press.PressName)
	assert.Equal(t, []int64{4}, book.AuthorIDs)
}

func TestCreateBooksBatch(t *testing.T) {
	app, h := newTestApp(t)

	rr, resp := send(t, h, http.MethodPost, "/v1/books", `[
		{"book_name": "Persuasion", "price": 5, "publish": 1},
		{"book_name": "Middlemarch", "price": 7.5, "publish": 3}
	]`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	books := decodeBooks(t, resp.Results)
	require.Len(t, books, 2)
	assert.Equal(t, "Quarry House", books[1].Press.PressName)

	rr, resp = send(t, h, http.MethodPost, "/v1/books", `[
		{"book_name": "Beloved", "price": 5, "publish": 1},
		{"book_name": "ab", "price": 150, "publish": 9}
	]`)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, map[string]string{
		"1.book_name": "book name is too short",
		"1.price":     "book price is too high",
		"1.publish":   "press 9 does not exist",
	}, resp.Errors)

	_, err := app.models.Books.Get(context.Background(), 6)
	assert.ErrorIs(t, err, data.ErrRecordNotFound, "a failed batch stores nothing")
}

func TestCreateBookBadRequest(t *testing.T) {
	_, h := newTestApp(t)

	for _, body := range []string{`42`, `[]`, `{"book_name": "Dune", "is_delete": true}`, `{"book_name": `, ``} {
		rr, _ := send(t, h, http.MethodPost, "/v1/books", body)
		assert.Equal(t, http.StatusBadRequest, rr.Code, body)
	}
}

func TestReplaceBook(t *testing.T) {
	app, h := newTestApp(t)

	rr, resp := send(t, h, http.MethodPut, "/v1/books/2", `{"book_name": "Emma Revised", "price": 100, "publish": 2}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	book := decodeBook(t, resp.Results)
	assert.Equal(t, "Emma Revised", book.BookName)
	assert.Equal(t, "Lantern Books", book.Press.PressName)

	rr, resp = send(t, h, http.MethodPut, "/v1/books/2", `{"book_name": "Emma"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, resp.Errors, "price")
	assert.Contains(t, resp.Errors, "publish")
	assert.Equal(t, "Emma Revised", mustGet(t, app, 2).BookName)

	rr, _ = send(t, h, http.MethodPut, "/v1/books/42", `{"book_name": "Emma", "price": 1, "publish": 1}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestPatchBook(t *testing.T) {
	app, h := newTestApp(t)

	rr, resp := send(t, h, http.MethodPatch, "/v1/books/3", `{"price": 150}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, map[string]string{"price": "book price is too high"}, resp.Errors)
	assert.True(t, mustGet(t, app, 3).Price.Equal(decimal.NewFromInt(10)), "rejected patch does not mutate")

	rr, resp = send(t, h, http.MethodPatch, "/v1/books/3", `{"book_name": "Ulysses Annotated"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	book := decodeBook(t, resp.Results)
	assert.Equal(t, "Ulysses Annotated", book.BookName)
	assert.True(t, book.Price.Equal(decimal.NewFromInt(10)))

	rr, _ = send(t, h, http.MethodPatch, "/v1/books/99", `{"price": 1}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr, _ = send(t, h, http.MethodPatch, "/v1/books/3", `[{"pk": 3}]`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestBulkPatchRejectsWholeBatch(t *testing.T) {
	app, h := newTestApp(t)

	rr, resp := send(t, h, http.MethodPatch, "/v1/books", `[{"pk": 1, "book_name": "ab"}, {"pk": 999, "price": 10}]`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, map[string]string{"0.book_name": "book name is too short"}, resp.Errors)
	assert.Equal(t, "Dune", mustGet(t, app, 1).BookName)
}

func TestBulkPatchSkipsUnknownIDs(t *testing.T) {
	app, h := newTestApp(t)

	rr, resp := send(t, h, http.MethodPatch, "/v1/books", `[
		{"pk": 1, "book_name": "Dune Messiah"},
		{"pk": 999, "price": 10},
		{"pk": 2, "price": "12.50", "authors": [8, 9]}
	]`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var result struct {
		Applied []data.Book `json:"applied"`
		Skipped []int64     `json:"skipped"`
	}
	require.NoError(t, json.Unmarshal(resp.Results, &result))
	assert.Equal(t, []int64{999}, result.Skipped)
	assert.Len(t, result.Applied, 2)

	assert.Equal(t, "Dune Messiah", mustGet(t, app, 1).BookName)
	emma := mustGet(t, app, 2)
	assert.True(t, emma.Price.Equal(decimal.RequireFromString("12.5")))
	assert.Equal(t, []int64{8, 9}, emma.AuthorIDs)
}

func TestBulkPatchBadRequest(t *testing.T) {
	_, h := newTestApp(t)

	for _, body := range []string{`{"pk": 1, "price": 3}`, `[{"price": 3}]`, `[]`} {
		rr, _ := send(t, h, http.MethodPatch, "/v1/books", body)
		assert.Equal(t, http.StatusBadRequest, rr.Code, body)
	}
}

func TestDeleteBook(t *testing.T) {
	_, h := newTestApp(t)

	rr, _ := send(t, h, http.MethodDelete, "/v1/books/1", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr, _ = send(t, h, http.MethodDelete, "/v1/books/1", "")
	assert.Equal(t, http.StatusNotFound, rr.Code, "already deleted")

	rr, _ = send(t, h, http.MethodPatch, "/v1/books/1", `{"price": 1}`)
	assert.Equal(t, http.StatusNotFound, rr.Code, "deleted books cannot be updated")
}

func TestBulkDelete(t *testing.T) {
	app, h := newTestApp(t)
	_, err := app.models.Books.SoftDelete(context.Background(), 2)
	require.NoError(t, err)

	rr, resp := send(t, h, http.MethodDelete, "/v1/books", `{"ids": [1, 2, 3]}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, int64(2), resp.Deleted)

	rr, _ = send(t, h, http.MethodDelete, "/v1/books", `{"ids": [1, 2, 3]}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr, resp = send(t, h, http.MethodDelete, "/v1/books", `{"ids": []}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, resp.Errors, "ids")

	rr, resp = send(t, h, http.MethodDelete, "/v1/books", `{"ids": [0]}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, resp.Errors, "ids[0]")
}

func TestPresses(t *testing.T) {
	_, h := newTestApp(t)

	rr, resp := send(t, h, http.MethodGet, "/v1/presses", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var presses []data.Press
	require.NoError(t, json.Unmarshal(resp.Results, &presses))
	assert.Len(t, presses, len(demoPresses))

	rr, _ = send(t, h, http.MethodGet, "/v1/presses/2", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr, _ = send(t, h, http.MethodGet, "/v1/presses/20", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRouting(t *testing.T) {
	_, h := newTestApp(t)

	rr, _ := send(t, h, http.MethodGet, "/v1/authors", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr, resp := send(t, h, http.MethodPost, "/v1/books/1", `{}`)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	assert.Equal(t, "the POST method is not supported for this resource", resp.Message)

	rr, _ = send(t, h, http.MethodGet, "/v1/books/1/", "")
	assert.Equal(t, http.StatusMovedPermanently, rr.Code)
	assert.Equal(t, "/v1/books/1", rr.Header().Get("Location"))
}

func TestRequestID(t *testing.T) {
	_, h := newTestApp(t)

	rr, _ := send(t, h, http.MethodGet, "/v1/healthcheck", "")
	_, err := uuid.Parse(rr.Header().Get("X-Request-ID"))
	assert.NoError(t, err)

	id := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/v1/healthcheck", nil)
	req.Header.Set("X-Request-ID", id)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, id, rr.Header().Get("X-Request-ID"))
}

func TestRecoverPanic(t *testing.T) {
	app, _ := newTestApp(t)

	h := app.recoverPanic(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rr, resp := send(t, h, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "close", rr.Header().Get("Connection"))
	assert.NotContains(t, resp.Message, "boom")
}

func TestRateLimit(t *testing.T) {
	app, _ := newTestApp(t)
	app.config.Limiter.Enabled = true
	app.config.Limiter.RPS = 0.001
	app.config.Limiter.Burst = 2
	h := app.routes()

	for i := 0; i < 2; i++ {
		rr, _ := send(t, h, http.MethodGet, "/v1/healthcheck", "")
		require.Equal(t, http.StatusOK, rr.Code)
	}
	rr, _ := send(t, h, http.MethodGet, "/v1/healthcheck", "")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
}

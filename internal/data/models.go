// internal/data/models.go
package data

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/aoideee/bookstore-api/internal/validator"
)

// queryTimeout bounds every round-trip to the database.
const queryTimeout = 3 * time.Second

var (
	// ErrRecordNotFound is returned when no live row matches an identifier.
	ErrRecordNotFound = errors.New("record not found")

	// ErrRequestFormat is returned when a request body has the wrong shape.
	ErrRequestFormat = errors.New("invalid request format")

	// ErrFailedValidation is returned when one or more field rules fail.
	// The field messages are recorded in the Validator passed by the caller.
	ErrFailedValidation = errors.New("failed validation")
)

// BookRepository is the persistence boundary for books. Every method only
// ever sees live rows: soft-deleted books are invisible to reads and updates.
type BookRepository interface {
	// Insert stores every book in one batch and writes the assigned ID and
	// timestamps back into each struct. Either all books are stored or none.
	Insert(ctx context.Context, books ...*Book) error
	Get(ctx context.Context, id int64) (*Book, error)
	// GetMany returns the live books among ids, keyed by ID. Unknown or
	// soft-deleted ids are simply absent from the map.
	GetMany(ctx context.Context, ids []int64) (map[int64]*Book, error)
	GetAll(ctx context.Context, filters Filters) ([]*Book, Metadata, error)
	// Update persists every book in one batch. If any book is no longer
	// live, nothing is written and ErrRecordNotFound is returned.
	Update(ctx context.Context, books ...*Book) error
	// SoftDelete flags the live books among ids and reports how many rows
	// changed.
	SoftDelete(ctx context.Context, ids ...int64) (int64, error)
}

// PressRepository gives read-only access to presses.
type PressRepository interface {
	Get(ctx context.Context, id int64) (*Press, error)
	GetAll(ctx context.Context) ([]*Press, error)
}

// Models is a top-level container that groups all model types together.
// It is passed around the application via applicationDependencies so every handler
// has access to storage without importing sql directly.
type Models struct {
	Books   BookRepository
	Presses PressRepository
}

// NewModels constructs a Models value wired up to the given database connection pool.
// Call this once during application startup and store the result in applicationDependencies.
func NewModels(db *sql.DB) Models {
	return Models{
		Books:   BookModel{DB: db},
		Presses: PressModel{DB: db},
	}
}

// NewMemoryModels returns Models backed by process memory, seeded with the
// given presses. It is used when no database is configured and in tests.
func NewMemoryModels(presses ...Press) Models {
	p := newMemoryPressModel(presses)
	return Models{
		Books:   newMemoryBookModel(p),
		Presses: p,
	}
}

// Filters holds pagination and sorting parameters extracted from URL query strings.
type Filters struct {
	Page         int      // Current page number (1-indexed)
	PageSize     int      // Number of records per page
	Sort         string   // Column name to sort by (prefix with "-" for DESC)
	SortSafeList []string // Allowed sort values to prevent SQL injection
}

// BookSortSafeList holds the sort values accepted by GET /v1/books.
var BookSortSafeList = []string{"book_id", "book_name", "price", "-book_id", "-book_name", "-price"}

// ValidateFilters checks the paging and sort values taken from a query string.
func ValidateFilters(v *validator.Validator, f Filters) {
	v.Check(f.Page > 0, "page", "must be greater than zero")
	v.Check(f.Page <= 10_000_000, "page", "must be a maximum of 10 million")
	v.Check(f.PageSize > 0, "page_size", "must be greater than zero")
	v.Check(f.PageSize <= 100, "page_size", "must be a maximum of 100")
	v.Check(validator.In(f.Sort, f.SortSafeList...), "sort", "invalid sort value")
}

// sortColumn returns the validated column name for ORDER BY, defaulting to book_id.
func (f Filters) sortColumn() string {
	for _, safe := range f.SortSafeList {
		if f.Sort == safe {
			return strings.TrimPrefix(f.Sort, "-")
		}
	}
	return "book_id"
}

// sortDirection returns "ASC" or "DESC" based on the Sort prefix.
func (f Filters) sortDirection() string {
	if strings.HasPrefix(f.Sort, "-") {
		return "DESC"
	}
	return "ASC"
}

func (f Filters) limit() int { return f.PageSize }

func (f Filters) offset() int { return (f.Page - 1) * f.PageSize }

// Metadata contains pagination information returned alongside list responses.
type Metadata struct {
	CurrentPage  int `json:"current_page,omitempty"`
	PageSize     int `json:"page_size,omitempty"`
	FirstPage    int `json:"first_page,omitempty"`
	LastPage     int `json:"last_page,omitempty"`
	TotalRecords int `json:"total_records,omitempty"`
}

// calculateMetadata computes page metadata from total record count and filter values.
func calculateMetadata(totalRecords, page, pageSize int) Metadata {
	if totalRecords == 0 {
		return Metadata{}
	}
	return Metadata{
		CurrentPage:  page,
		PageSize:     pageSize,
		FirstPage:    1,
		LastPage:     int(math.Ceil(float64(totalRecords) / float64(pageSize))),
		TotalRecords: totalRecords,
	}
}

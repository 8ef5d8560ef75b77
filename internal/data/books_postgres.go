// internal/data/books_postgres.go
package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// BookModel wraps a *sql.DB connection and provides methods for
// creating, reading, updating, and soft-deleting book records.
type BookModel struct {
	DB *sql.DB // Shared database connection pool
}

// bookColumns and bookSource are shared by every book read. Soft-deleted
// rows are filtered by each query's WHERE clause.
const (
	bookColumns = `b.book_id, b.book_name, b.price, b.pic, b.author_ids, b.created_at, b.updated_at,
	       p.press_id, p.press_name, p.address, p.pic`
	bookSource = `FROM books b
		JOIN presses p ON p.press_id = b.press_id`
)

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanBook reads one row selecting bookColumns. extra destinations are
// scanned first, for window columns such as count(*) OVER().
func scanBook(row rowScanner, extra ...any) (*Book, error) {
	book := Book{Press: &Press{}}
	dest := append(extra,
		&book.ID,
		&book.BookName,
		&book.Price,
		&book.Pic,
		pq.Array(&book.AuthorIDs),
		&book.CreatedAt,
		&book.UpdatedAt,
		&book.Press.ID,
		&book.Press.PressName,
		&book.Press.Address,
		&book.Press.Pic,
	)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	book.PressID = book.Press.ID
	if book.AuthorIDs == nil {
		book.AuthorIDs = []int64{}
	}
	return &book, nil
}

// withTx runs fn inside a transaction, committing on success and rolling
// back on any error.
func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Insert adds every book in a single transaction.
// After a successful insert, the database-assigned book_id, created_at, and
// updated_at values are written back into each book struct.
func (m BookModel) Insert(ctx context.Context, books ...*Book) error {
	query := `
		INSERT INTO books (book_name, price, press_id, author_ids)
		VALUES ($1, $2, $3, $4)
		RETURNING book_id, pic, created_at, updated_at`

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	return withTx(ctx, m.DB, func(tx *sql.Tx) error {
		for _, book := range books {
			if book.AuthorIDs == nil {
				book.AuthorIDs = []int64{}
			}
			err := tx.QueryRowContext(ctx, query,
				book.BookName,
				book.Price,
				book.PressID,
				pq.Array(book.AuthorIDs),
			).Scan(&book.ID, &book.Pic, &book.CreatedAt, &book.UpdatedAt)
			if err != nil {
				return fmt.Errorf("insert book %q: %w", book.BookName, err)
			}
		}
		return nil
	})
}

// Get retrieves a single live book by its primary key.
// Returns ErrRecordNotFound if no such book exists or it has been soft-deleted.
func (m BookModel) Get(ctx context.Context, id int64) (*Book, error) {
	if id < 1 {
		return nil, ErrRecordNotFound
	}

	query := `
		SELECT ` + bookColumns + `
		` + bookSource + `
		WHERE b.book_id = $1 AND b.is_delete = FALSE`

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	book, err := scanBook(m.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}
	return book, nil
}

// GetMany retrieves the live books among ids in one round-trip.
func (m BookModel) GetMany(ctx context.Context, ids []int64) (map[int64]*Book, error) {
	books := make(map[int64]*Book, len(ids))
	if len(ids) == 0 {
		return books, nil
	}

	query := `
		SELECT ` + bookColumns + `
		` + bookSource + `
		WHERE b.book_id = ANY($1) AND b.is_delete = FALSE`

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := m.DB.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		books[book.ID] = book
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return books, nil
}

// GetAll retrieves a paginated, sorted list of live books.
// It uses a COUNT(*) OVER() window function so only one round-trip is needed.
func (m BookModel) GetAll(ctx context.Context, filters Filters) ([]*Book, Metadata, error) {
	query := fmt.Sprintf(`
		SELECT count(*) OVER(), %s
		%s
		WHERE b.is_delete = FALSE
		ORDER BY b.%s %s, b.book_id ASC
		LIMIT $1 OFFSET $2`, bookColumns, bookSource, filters.sortColumn(), filters.sortDirection())

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := m.DB.QueryContext(ctx, query, filters.limit(), filters.offset())
	if err != nil {
		return nil, Metadata{}, err
	}
	defer rows.Close()

	totalRecords := 0
	books := []*Book{}

	for rows.Next() {
		book, err := scanBook(rows, &totalRecords)
		if err != nil {
			return nil, Metadata{}, err
		}
		books = append(books, book)
	}
	if err = rows.Err(); err != nil {
		return nil, Metadata{}, err
	}

	metadata := calculateMetadata(totalRecords, filters.Page, filters.PageSize)
	return books, metadata, nil
}

// Update saves every book in a single transaction. The WHERE clause skips
// soft-deleted rows; if any book no longer matches, the whole batch is
// rolled back and ErrRecordNotFound is returned.
func (m BookModel) Update(ctx context.Context, books ...*Book) error {
	query := `
		UPDATE books
		SET book_name = $1, price = $2, press_id = $3, author_ids = $4, updated_at = CURRENT_TIMESTAMP
		WHERE book_id = $5 AND is_delete = FALSE
		RETURNING updated_at`

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	return withTx(ctx, m.DB, func(tx *sql.Tx) error {
		for _, book := range books {
			if book.AuthorIDs == nil {
				book.AuthorIDs = []int64{}
			}
			args := []any{
				book.BookName,
				book.Price,
				book.PressID,
				pq.Array(book.AuthorIDs),
				book.ID,
			}
			err := tx.QueryRowContext(ctx, query, args...).Scan(&book.UpdatedAt)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return fmt.Errorf("update book %d: %w", book.ID, ErrRecordNotFound)
				}
				return fmt.Errorf("update book %d: %w", book.ID, err)
			}
		}
		return nil
	})
}

// SoftDelete flags the live books among ids as deleted.
// Rows that are missing or already deleted are left alone and not counted.
func (m BookModel) SoftDelete(ctx context.Context, ids ...int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	query := `
		UPDATE books
		SET is_delete = TRUE, updated_at = CURRENT_TIMESTAMP
		WHERE book_id = ANY($1) AND is_delete = FALSE`

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	result, err := m.DB.ExecContext(ctx, query, pq.Array(ids))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// PressModel reads presses from the database.
type PressModel struct {
	DB *sql.DB
}

// Get retrieves one press by id.
func (m PressModel) Get(ctx context.Context, id int64) (*Press, error) {
	if id < 1 {
		return nil, ErrRecordNotFound
	}

	query := `
		SELECT press_id, press_name, address, pic
		FROM presses
		WHERE press_id = $1`

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var press Press
	err := m.DB.QueryRowContext(ctx, query, id).Scan(&press.ID, &press.PressName, &press.Address, &press.Pic)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &press, nil
}

// GetAll lists every press ordered by id.
func (m PressModel) GetAll(ctx context.Context) ([]*Press, error) {
	query := `
		SELECT press_id, press_name, address, pic
		FROM presses
		ORDER BY press_id`

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := m.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	presses := []*Press{}
	for rows.Next() {
		var press Press
		if err := rows.Scan(&press.ID, &press.PressName, &press.Address, &press.Pic); err != nil {
			return nil, err
		}
		presses = append(presses, &press)
	}
	return presses, rows.Err()
}

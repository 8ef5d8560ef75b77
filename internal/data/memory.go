package data

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
)

// memoryPressModel is a fixed set of presses held in memory.
type memoryPressModel struct {
	presses map[int64]Press
}

func newMemoryPressModel(presses []Press) *memoryPressModel {
	m := &memoryPressModel{presses: make(map[int64]Press, len(presses))}
	for _, p := range presses {
		m.presses[p.ID] = p
	}
	return m
}

func (m *memoryPressModel) Get(_ context.Context, id int64) (*Press, error) {
	p, ok := m.presses[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return &p, nil
}

func (m *memoryPressModel) GetAll(_ context.Context) ([]*Press, error) {
	presses := make([]*Press, 0, len(m.presses))
	for _, p := range m.presses {
		presses = append(presses, &p)
	}
	slices.SortFunc(presses, func(a, b *Press) int { return cmp.Compare(a.ID, b.ID) })
	return presses, nil
}

// memoryBookModel keeps books in a map guarded by a RWMutex. Callers always
// receive copies, so mutating a returned book never changes stored state
// until Update is called.
type memoryBookModel struct {
	mu      sync.RWMutex
	books   map[int64]Book
	nextID  int64
	presses *memoryPressModel
	now     func() time.Time
}

func newMemoryBookModel(presses *memoryPressModel) *memoryBookModel {
	return &memoryBookModel{
		books:   make(map[int64]Book),
		nextID:  1,
		presses: presses,
		now:     time.Now,
	}
}

// view returns a caller-owned copy of b with its press attached.
func (m *memoryBookModel) view(b Book) *Book {
	b.AuthorIDs = slices.Clone(b.AuthorIDs)
	if b.AuthorIDs == nil {
		b.AuthorIDs = []int64{}
	}
	if p, ok := m.presses.presses[b.PressID]; ok {
		b.Press = &p
	} else {
		b.Press = nil
	}
	return &b
}

func (m *memoryBookModel) Insert(_ context.Context, books ...*Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Presses are checked up front so a bad reference stores nothing.
	for _, book := range books {
		if _, ok := m.presses.presses[book.PressID]; !ok {
			return fmt.Errorf("insert book %q: press %d: %w", book.BookName, book.PressID, ErrRecordNotFound)
		}
	}

	now := m.now()
	for _, book := range books {
		book.ID = m.nextID
		m.nextID++
		book.IsDelete = false
		book.CreatedAt = now
		book.UpdatedAt = now
		if book.AuthorIDs == nil {
			book.AuthorIDs = []int64{}
		}

		stored := *book
		stored.AuthorIDs = slices.Clone(book.AuthorIDs)
		stored.Press = nil
		m.books[book.ID] = stored
	}
	return nil
}

func (m *memoryBookModel) Get(_ context.Context, id int64) (*Book, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.books[id]
	if !ok || b.IsDelete {
		return nil, ErrRecordNotFound
	}
	return m.view(b), nil
}

func (m *memoryBookModel) GetMany(_ context.Context, ids []int64) (map[int64]*Book, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	books := make(map[int64]*Book, len(ids))
	for _, id := range ids {
		if b, ok := m.books[id]; ok && !b.IsDelete {
			books[id] = m.view(b)
		}
	}
	return books, nil
}

func (m *memoryBookModel) GetAll(_ context.Context, filters Filters) ([]*Book, Metadata, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	live := make([]*Book, 0, len(m.books))
	for _, b := range m.books {
		if !b.IsDelete {
			live = append(live, m.view(b))
		}
	}

	column, desc := filters.sortColumn(), filters.sortDirection() == "DESC"
	slices.SortFunc(live, func(a, b *Book) int {
		var c int
		switch column {
		case "book_name":
			c = strings.Compare(a.BookName, b.BookName)
		case "price":
			c = a.Price.Cmp(b.Price)
		default:
			c = cmp.Compare(a.ID, b.ID)
		}
		if desc {
			c = -c
		}
		if c == 0 {
			c = cmp.Compare(a.ID, b.ID)
		}
		return c
	})

	total := len(live)
	start := max(0, min(filters.offset(), total))
	end := min(start+filters.limit(), total)
	return live[start:end], calculateMetadata(total, filters.Page, filters.PageSize), nil
}

func (m *memoryBookModel) Update(_ context.Context, books ...*Book) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, book := range books {
		if b, ok := m.books[book.ID]; !ok || b.IsDelete {
			return fmt.Errorf("update book %d: %w", book.ID, ErrRecordNotFound)
		}
		if _, ok := m.presses.presses[book.PressID]; !ok {
			return fmt.Errorf("update book %d: press %d: %w", book.ID, book.PressID, ErrRecordNotFound)
		}
	}

	now := m.now()
	for _, book := range books {
		stored := m.books[book.ID]
		stored.BookName = book.BookName
		stored.Price = book.Price
		stored.PressID = book.PressID
		stored.AuthorIDs = slices.Clone(book.AuthorIDs)
		stored.UpdatedAt = now
		m.books[book.ID] = stored

		book.UpdatedAt = now
	}
	return nil
}

func (m *memoryBookModel) SoftDelete(_ context.Context, ids ...int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	now := m.now()
	for _, id := range ids {
		b, ok := m.books[id]
		if !ok || b.IsDelete {
			continue
		}
		b.IsDelete = true
		b.UpdatedAt = now
		m.books[id] = b
		n++
	}
	return n, nil
}

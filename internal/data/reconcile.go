package data

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aoideee/bookstore-api/internal/validator"
)

// UpdateEntry pairs a book identifier with the sparse fields to change.
type UpdateEntry struct {
	ID     int64
	Fields UpdateBookInput
}

// UpdateRequest is either a SingleUpdate or a BatchUpdate.
type UpdateRequest interface {
	entries() []UpdateEntry
}

// SingleUpdate targets one book named by the URL path.
type SingleUpdate struct {
	Entry UpdateEntry
}

// BatchUpdate targets many books, each named by its own pk field.
type BatchUpdate struct {
	Entries []UpdateEntry
}

func (u SingleUpdate) entries() []UpdateEntry { return []UpdateEntry{u.Entry} }

func (u BatchUpdate) entries() []UpdateEntry { return u.Entries }

// batchEntry is the wire shape of one element of a bulk patch.
type batchEntry struct {
	PK *int64 `json:"pk"`
	UpdateBookInput
}

// ParseUpdateRequest decides the shape of a patch body. A positive pathID
// with a JSON object gives a SingleUpdate; pathID 0 with a JSON array of
// objects carrying "pk" gives a BatchUpdate. Any other combination fails
// with ErrRequestFormat.
func ParseUpdateRequest(pathID int64, body []byte) (UpdateRequest, error) {
	switch c := firstByte(body); {
	case c == '{' && pathID > 0:
		var in UpdateBookInput
		if err := decodeStrict(body, &in); err != nil {
			return nil, err
		}
		return SingleUpdate{Entry: UpdateEntry{ID: pathID, Fields: in}}, nil

	case c == '[' && pathID == 0:
		var raw []batchEntry
		if err := decodeStrict(body, &raw); err != nil {
			return nil, err
		}
		if len(raw) == 0 {
			return nil, fmt.Errorf("%w: body must contain at least one entry", ErrRequestFormat)
		}
		batch := BatchUpdate{Entries: make([]UpdateEntry, 0, len(raw))}
		for i, e := range raw {
			if e.PK == nil || *e.PK < 1 {
				return nil, fmt.Errorf("%w: entry %d must carry a positive pk", ErrRequestFormat, i)
			}
			batch.Entries = append(batch.Entries, UpdateEntry{ID: *e.PK, Fields: e.UpdateBookInput})
		}
		return batch, nil

	case c == '{':
		return nil, fmt.Errorf("%w: a single object needs a book id in the path", ErrRequestFormat)
	case c == '[':
		return nil, fmt.Errorf("%w: a list of objects cannot target a single book", ErrRequestFormat)
	default:
		return nil, fmt.Errorf("%w: body must be a JSON object or array", ErrRequestFormat)
	}
}

// Result reports the outcome of a reconciled update.
type Result struct {
	Applied []*Book // Updated books, one per distinct id, in request order
	Skipped []int64 // Batch ids that did not resolve to a live book
}

// MarshalJSON renders both lists as arrays, never null.
func (r Result) MarshalJSON() ([]byte, error) {
	applied, skipped := r.Applied, r.Skipped
	if applied == nil {
		applied = []*Book{}
	}
	if skipped == nil {
		skipped = []int64{}
	}
	return json.Marshal(struct {
		Applied []*Book `json:"applied"`
		Skipped []int64 `json:"skipped"`
	}{applied, skipped})
}

// Reconciler applies sparse updates to stored books.
type Reconciler struct {
	Books   BookRepository
	Presses PressRepository
}

// Reconcile resolves every entry of req against live books, validates the
// sparse fields of each resolved entry, applies them, and persists all
// touched books in one batch.
//
// In a batch, entries whose id is unknown or soft-deleted are dropped and
// listed in Result.Skipped. A single update of an unknown id returns
// ErrRecordNotFound. If any resolved entry fails validation the errors are
// left in v, ErrFailedValidation is returned and nothing is persisted.
func (r Reconciler) Reconcile(ctx context.Context, req UpdateRequest, v *validator.Validator) (*Result, error) {
	entries := req.entries()
	_, single := req.(SingleUpdate)

	ids := make([]int64, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID)
	}

	live, err := r.Books.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	type pending struct {
		entry UpdateEntry
		book  *Book
		press *Press
	}
	var resolved []pending

	result := &Result{}
	for i, e := range entries {
		book, ok := live[e.ID]
		if !ok {
			if single {
				return nil, ErrRecordNotFound
			}
			result.Skipped = append(result.Skipped, e.ID)
			continue
		}

		prefix := ""
		if !single {
			prefix = indexKey(i)
		}
		press, err := validatePatch(ctx, r.Presses, v, prefix, &e.Fields)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, pending{entry: e, book: book, press: press})
	}

	if !v.Valid() {
		return nil, ErrFailedValidation
	}

	seen := make(map[int64]bool, len(resolved))
	for _, p := range resolved {
		p.entry.Fields.ApplyTo(p.book, p.press)
		if !seen[p.book.ID] {
			seen[p.book.ID] = true
			result.Applied = append(result.Applied, p.book)
		}
	}

	if len(result.Applied) > 0 {
		if err := r.Books.Update(ctx, result.Applied...); err != nil {
			return nil, err
		}
	}
	return result, nil
}

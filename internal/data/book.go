// Package data provides the data models, storage and validation logic
// for the bookstore.
package data

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aoideee/bookstore-api/internal/validator"
)

// Book represents a single book record.
// It maps to a row in the "books" table joined with its press.
type Book struct {
	ID        int64           `json:"book_id"`
	BookName  string          `json:"book_name"`
	Price     decimal.Decimal `json:"price"`
	Pic       string          `json:"pic"`            // Cover image reference
	IsDelete  bool            `json:"-"`              // Soft-delete flag, never serialized
	AuthorIDs []int64         `json:"authors"`
	PressID   int64           `json:"-"`
	Press     *Press          `json:"publish,omitempty"` // Nested press on output
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Press is a publisher. Presses are read-only from the API.
type Press struct {
	ID        int64  `json:"press_id"`
	PressName string `json:"press_name"`
	Address   string `json:"address"`
	Pic       string `json:"pic"`
}

// BookInput holds the fields a client must supply when creating a book or
// replacing one in full.
type BookInput struct {
	BookName  string           `json:"book_name" validate:"required,min=3,excludes=1"`
	Price     *decimal.Decimal `json:"price"     validate:"required"`
	PressID   int64            `json:"publish"   validate:"required,gt=0"`
	AuthorIDs []int64          `json:"authors"   validate:"unique,dive,gt=0"`
}

// UpdateBookInput holds the fields a client may supply when partially updating a book.
// Every field is a pointer so we can distinguish between "not provided" (nil)
// and "intentionally set to zero/empty". Only non-nil fields are checked and applied.
type UpdateBookInput struct {
	BookName  *string          `json:"book_name" validate:"omitnil,min=3,excludes=1"`
	Price     *decimal.Decimal `json:"price"`
	PressID   *int64           `json:"publish"   validate:"omitnil,gt=0"`
	AuthorIDs *[]int64         `json:"authors"   validate:"omitnil,unique,dive,gt=0"`
}

// DeleteBooksInput is the body of a bulk delete.
type DeleteBooksInput struct {
	IDs []int64 `json:"ids" validate:"required,min=1,dive,gt=0"`
}

var maxPrice = decimal.NewFromInt(100)

// bookMessages replaces the generic tag messages for book names.
var bookMessages = map[string]string{
	"book_name.required": "book name is required",
	"book_name.min":      "book name is too short",
	"book_name.excludes": "book name contains a forbidden character",
}

func newBookValidator() *validator.Validator {
	v := validator.New()
	v.Messages = bookMessages
	return v
}

// validatePrice applies the price rules shared by full and partial updates.
func validatePrice(v *validator.Validator, price decimal.Decimal) {
	v.Check(!price.IsNegative(), "price", "must not be negative")
	v.Check(price.LessThanOrEqual(maxPrice), "price", "book price is too high")
	v.Check(price.Equal(price.Round(2)), "price", "must have at most 2 decimal places")
}

// lookupPress resolves a press reference, recording a validation error if it
// does not exist.
func lookupPress(ctx context.Context, presses PressRepository, v *validator.Validator, id int64) (*Press, error) {
	press, err := presses.Get(ctx, id)
	switch {
	case errors.Is(err, ErrRecordNotFound):
		v.AddError("publish", fmt.Sprintf("press %d does not exist", id))
		return nil, nil
	case err != nil:
		return nil, err
	}
	return press, nil
}

// ValidateBookInput checks a full book body and resolves its press. Field
// errors are recorded in v under key prefix (pass "" for a single book). The
// returned error is non-nil only when the press lookup itself fails.
func ValidateBookInput(ctx context.Context, presses PressRepository, v *validator.Validator, prefix string, in *BookInput) (*Press, error) {
	bv := newBookValidator()
	if err := bv.Struct(in); err != nil {
		return nil, err
	}
	if in.Price != nil {
		validatePrice(bv, *in.Price)
	}

	var press *Press
	if _, bad := bv.Errors["publish"]; !bad {
		var err error
		press, err = lookupPress(ctx, presses, bv, in.PressID)
		if err != nil {
			return nil, err
		}
	}

	v.Merge(prefix, bv)
	return press, nil
}

// validatePatch is ValidateBookInput for sparse input: only present fields
// are checked. The press is resolved only when publish is present.
func validatePatch(ctx context.Context, presses PressRepository, v *validator.Validator, prefix string, in *UpdateBookInput) (*Press, error) {
	bv := newBookValidator()
	if err := bv.Struct(in); err != nil {
		return nil, err
	}
	if in.Price != nil {
		validatePrice(bv, *in.Price)
	}

	var press *Press
	if _, bad := bv.Errors["publish"]; !bad && in.PressID != nil {
		var err error
		press, err = lookupPress(ctx, presses, bv, *in.PressID)
		if err != nil {
			return nil, err
		}
	}

	v.Merge(prefix, bv)
	return press, nil
}

// NewBook builds a book from validated input.
func (in *BookInput) NewBook(press *Press) *Book {
	book := &Book{}
	in.ApplyTo(book, press)
	return book
}

// ApplyTo overwrites every writable field of book.
func (in *BookInput) ApplyTo(book *Book, press *Press) {
	book.BookName = in.BookName
	book.Price = *in.Price
	book.PressID = in.PressID
	book.Press = press
	book.AuthorIDs = slices.Clone(in.AuthorIDs)
	if book.AuthorIDs == nil {
		book.AuthorIDs = []int64{}
	}
}

// ApplyTo copies only the fields that were provided onto book.
func (in *UpdateBookInput) ApplyTo(book *Book, press *Press) {
	if in.BookName != nil {
		book.BookName = *in.BookName
	}
	if in.Price != nil {
		book.Price = *in.Price
	}
	if in.PressID != nil {
		book.PressID = *in.PressID
		book.Press = press
	}
	if in.AuthorIDs != nil {
		book.AuthorIDs = slices.Clone(*in.AuthorIDs)
		if book.AuthorIDs == nil {
			book.AuthorIDs = []int64{}
		}
	}
}

// ParseBookInputs decodes a create body that is either one JSON object or a
// list of them. many reports which shape was sent.
func ParseBookInputs(body []byte) (inputs []BookInput, many bool, err error) {
	switch firstByte(body) {
	case '{':
		var in BookInput
		if err := decodeStrict(body, &in); err != nil {
			return nil, false, err
		}
		return []BookInput{in}, false, nil
	case '[':
		if err := decodeStrict(body, &inputs); err != nil {
			return nil, true, err
		}
		if len(inputs) == 0 {
			return nil, true, fmt.Errorf("%w: body must contain at least one book", ErrRequestFormat)
		}
		return inputs, true, nil
	default:
		return nil, false, fmt.Errorf("%w: body must be a JSON object or array", ErrRequestFormat)
	}
}

// decodeStrict decodes exactly one JSON value into dst, rejecting unknown fields.
func decodeStrict(body []byte, dst any) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", ErrRequestFormat, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: body must only contain a single JSON value", ErrRequestFormat)
	}
	return nil
}

func firstByte(body []byte) byte {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return 0
	}
	return body[0]
}

// indexKey is the error-key prefix for the i-th element of a batch.
func indexKey(i int) string {
	return strconv.Itoa(i)
}

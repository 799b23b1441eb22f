// Package docstore is a small document-store abstraction over MongoDB with an
// in-memory implementation for local runs and tests.
package docstore

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when no document matches an id.
	ErrNotFound = errors.New("document not found")
	// ErrDuplicate is returned when an insert violates a unique index.
	ErrDuplicate = errors.New("duplicate document")
)

// Filter matches documents whose top-level fields equal the given values.
// A value of type In matches when the field equals any listed value.
type Filter map[string]interface{}

// In is a set-membership filter value.
type In []interface{}

// FindOptions controls ordering and size of Find results.
type FindOptions struct {
	SortField string
	SortDesc  bool
	Limit     int64
}

// Collection is a set of documents keyed by a string _id.
type Collection interface {
	// Insert stores doc; doc must encode an _id field.
	Insert(ctx context.Context, doc interface{}) error
	FindByID(ctx context.Context, id string, out interface{}) error
	// Find decodes every match into out, which must be a pointer to a slice.
	Find(ctx context.Context, filter Filter, opts FindOptions, out interface{}) error
	// UpdateByID sets the given fields on one document.
	UpdateByID(ctx context.Context, id string, set map[string]interface{}) error
	DeleteByID(ctx context.Context, id string) error
	DeleteMany(ctx context.Context, filter Filter) (int64, error)
	// AddToSet atomically adds value to the array field and reports whether it was added.
	AddToSet(ctx context.Context, id, field string, value interface{}) (bool, error)
}

// Store hands out collections.
type Store interface {
	Collection(name string) Collection
	// EnsureIndex declares an index over fields; unique indexes reject duplicates on insert.
	EnsureIndex(ctx context.Context, collection string, unique bool, fields ...string) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// IsNotFound reports whether err is ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

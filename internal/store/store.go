// Package store persists local user records keyed by email. The record
// schema is open-ended: which optional identity columns exist is a
// deployment decision, exposed to callers as a field capability set.
package store

import (
	"context"
	"errors"
)

// ErrRecordTypeUnavailable marks a misconfigured user record type: the
// configured table does not exist or cannot hold user records. Fatal,
// operator-actionable, never retried.
var ErrRecordTypeUnavailable = errors.New("user record type unavailable")

// FieldSet is the set of columns the local record type actually exposes.
// Queried fresh per reconciliation; the schema may differ per deployment.
type FieldSet map[string]struct{}

func NewFieldSet(names ...string) FieldSet {
	fs := make(FieldSet, len(names))
	for _, name := range names {
		fs[name] = struct{}{}
	}
	return fs
}

func (f FieldSet) Has(name string) bool {
	_, ok := f[name]
	return ok
}

// Record is a local user record. Attrs holds the raw column values keyed by
// column name, excluding id and email.
type Record struct {
	ID    string
	Email string
	Attrs map[string]any
}

// Attr returns the named attribute value and whether it is present and
// non-nil.
func (r *Record) Attr(name string) (any, bool) {
	if r == nil {
		return nil, false
	}
	v, ok := r.Attrs[name]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// UserStore is the email-keyed record store the reconciler writes through.
type UserStore interface {
	// SupportedFields returns the live column set of the user table.
	SupportedFields(ctx context.Context) (FieldSet, error)

	// FindByEmail returns the record for the email, or (nil, nil) when no
	// record exists. Email is matched as given, not case-normalized.
	FindByEmail(ctx context.Context, email string) (*Record, error)

	// Upsert atomically creates or updates the record for the email and
	// returns the persisted state. Attribute keys must be supported columns.
	Upsert(ctx context.Context, email string, attrs map[string]any) (*Record, error)
}

// Package repository defines the error taxonomy shared by the store-facing
// layers and a typed read repository per entity.  Handlers translate the
// sentinels into HTTP statuses: ErrInvalidInput, ErrInvalidReference and
// ErrReferenceNotFound map to 400, ErrNotFound to 404, ErrConflict to 409
// and ErrAssociationFailed to 500.
package repository

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is returned for a malformed identifier, date or query
// parameter.  No mutation is attempted.
var ErrInvalidInput = errors.New("invalid input")

// ErrInvalidReference is returned when a reference field holds a value that
// is not syntactically an identifier.
var ErrInvalidReference = errors.New("invalid reference")

// ErrNotFound is returned when the primary entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrReferenceNotFound is returned when a well-formed reference points to no
// document.  Nothing has been written when it is returned.
var ErrReferenceNotFound = errors.New("reference not found")

// ErrConflict is returned when a one-to-one reference targets a document
// that already belongs to another one, e.g. a payment for a ticket that is
// already paid.  Nothing has been written when it is returned.
var ErrConflict = errors.New("conflict")

// ErrAssociationFailed is returned when a back-reference or cascade write
// failed after the primary mutation succeeded.
var ErrAssociationFailed = errors.New("association failed")

// ReferenceError describes a reference field whose targets could not all be
// resolved.
type ReferenceError struct {
	Field     string
	Target    string
	Requested int
	Found     int
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("%s: %d of %d %s not found", e.Field, e.Requested-e.Found, e.Requested, e.Target)
}

func (e *ReferenceError) Unwrap() error { return ErrReferenceNotFound }

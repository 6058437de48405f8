package store

import "errors"

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when an insert collides with a uniqueness
// constraint, e.g. two concurrent registrations for the same email.
var ErrConflict = errors.New("conflict")

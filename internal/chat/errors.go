package chat

import "errors"

// The messaging core reports outcomes through four sentinel errors. Callers
// branch with errors.Is; the API layer maps them onto HTTP statuses.
//
// Tenant mismatches are always ErrNotFound, never ErrForbidden — confirming
// that a channel exists in another tenant is itself a leak.
//
// ErrConflict marks a lost race on a uniqueness constraint (membership row,
// DM pair). Services recover it internally by retrying as a lookup, so it
// never reaches the API layer.
var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")
	ErrConflict  = errors.New("conflict")
	ErrInvalid   = errors.New("invalid input")
)

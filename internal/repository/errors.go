// Package repository defines error types that are reused across the data
// access layer.  These sentinel values allow higher layers such as
// handlers to distinguish between failure scenarios with errors.Is: a
// missing record becomes a 404, while an invariant violation is a defect
// and becomes a 500.
package repository

import "errors"

// ErrMovieNotFound is returned when no movie has the requested ID at the
// time of the operation.  Handlers should translate this into an HTTP 404
// response.
var ErrMovieNotFound = errors.New("movie not found")

// ErrInvariantViolation is returned when a create or patch would leave a
// record that breaks a whole-record invariant.  Validation runs before the
// repository is called, so reaching this error means a programming defect;
// nothing is written when it is returned.
var ErrInvariantViolation = errors.New("movie invariant violation")

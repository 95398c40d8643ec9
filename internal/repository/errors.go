// Package repository defines the error kinds shared by the review and
// translation layers, and the Review Repository itself.  Handlers translate
// each kind into a distinct HTTP status so clients can tell "not yours"
// apart from "doesn't exist".
package repository

import "errors"

// ErrInvalidInput is returned for missing or malformed fields, blank
// content and unsupported languages.  Handlers answer 400.
var ErrInvalidInput = errors.New("invalid input")

// ErrUnauthenticated is returned when an operation that needs a verified
// caller identity receives none.  Handlers answer 401.
var ErrUnauthenticated = errors.New("unauthenticated")

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrNotFound is returned when the referenced review does not exist.
// Handlers answer 404.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a reviewer already has a review for the
// movie. Handlers should translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrUpstream wraps record store and translation oracle failures.  These
// are transient and are never retried here.  Handlers answer 502.
var ErrUpstream = errors.New("upstream error")

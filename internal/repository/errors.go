// Package repository defines error types that are reused across multiple
// repositories.  These sentinel values allow higher layers such as the
// auth core and the handlers to distinguish between different failure
// scenarios without depending on a particular storage driver.
package repository

import "errors"

// ErrNotFound is returned when the requested user does not exist.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned when a create or update would give two users
// the same email address.  Handlers should translate this into an HTTP 409
// response.
var ErrEmailExists = errors.New("email already exists")

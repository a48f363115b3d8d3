package auth

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by every flow.  Callers compare with errors.Is;
// the HTTP layer maps each one to exactly one status code.
var (
	// ErrInvalidCredentials covers both an unknown email and a wrong
	// password so that a login never reveals whether an account exists.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthenticated: missing, malformed, expired or mis-signed token,
	// or a refresh token that does not match the stored slot.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden: the session is valid but the policy denies the action.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound: the user does not exist, or has no active refresh slot.
	ErrNotFound = errors.New("not found")
	// ErrInternal: signing, hashing or storage failure.
	ErrInternal = errors.New("internal error")
)

func internal(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrInternal, op, err)
}

package auth

import (
	"context"
	"errors"

	"github.com/iliyamo/tms-api/internal/model"
	"github.com/iliyamo/tms-api/internal/repository"
	"github.com/iliyamo/tms-api/internal/utils"
)

// UserFinder is the read side of the user store the core depends on.
type UserFinder interface {
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id string) (model.User, error)
}

// Authenticator implements the three verification procedures: password,
// access token and refresh token.  Each one is also exposed as a Verifier.
type Authenticator struct {
	issuer *Issuer
	users  UserFinder
	store  *RefreshStore
}

func NewAuthenticator(issuer *Issuer, users UserFinder, store *RefreshStore) *Authenticator {
	return &Authenticator{issuer: issuer, users: users, store: store}
}

// VerifyPassword looks the user up by email and checks the password.
// Unknown email and wrong password both yield ErrInvalidCredentials.
func (a *Authenticator) VerifyPassword(ctx context.Context, email, password string) (Session, error) {
	u, err := a.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			utils.BurnPasswordCheck(password)
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, internal("find user by email", err)
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return Session{}, ErrInvalidCredentials
	}
	return Session{Subject: u.ID, Role: u.Role}, nil
}

// VerifyAccess checks signature and expiry of an access token.  The
// session comes from the claims only.
func (a *Authenticator) VerifyAccess(raw string) (Session, error) {
	return a.issuer.ParseAccess(raw)
}

// RefreshSubject checks signature and expiry of a bearer refresh token
// and returns the subject it claims.
func (a *Authenticator) RefreshSubject(raw string) (string, error) {
	s, err := a.issuer.ParseRefresh(raw)
	if err != nil {
		return "", err
	}
	return s.Subject, nil
}

// VerifyRefresh compares raw with the slot of subject.  On success the
// session carries the user's current role so the rotated pair picks up
// role changes.
func (a *Authenticator) VerifyRefresh(ctx context.Context, subject, raw string) (Session, error) {
	if err := a.store.Match(ctx, subject, raw); err != nil {
		return Session{}, err
	}
	u, err := a.users.GetByID(ctx, subject)
	if err != nil {
		return Session{}, storeErr("find user by id", err)
	}
	return Session{Subject: u.ID, Role: u.Role}, nil
}

// Password exposes VerifyPassword as a Verifier (ID = email).
func (a *Authenticator) Password() Verifier {
	return VerifierFunc(func(ctx context.Context, c Credential) (Session, error) {
		return a.VerifyPassword(ctx, c.ID, c.Secret)
	})
}

// Access exposes VerifyAccess as a Verifier (ID unused).
func (a *Authenticator) Access() Verifier {
	return VerifierFunc(func(_ context.Context, c Credential) (Session, error) {
		return a.VerifyAccess(c.Secret)
	})
}

// Refresh exposes VerifyRefresh as a Verifier (ID = claimed subject).
func (a *Authenticator) Refresh() Verifier {
	return VerifierFunc(func(ctx context.Context, c Credential) (Session, error) {
		return a.VerifyRefresh(ctx, c.ID, c.Secret)
	})
}

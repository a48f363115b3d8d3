package auth

import (
	"context"

	"github.com/iliyamo/tms-api/internal/model"
)

// Session is the verified identity behind a request: who is calling and
// with which role.  The role is the one embedded in the access token at
// issuance, not a live read from storage.
type Session struct {
	Subject string
	Role    model.Role
}

// IsAdmin reports whether the session carries the admin role.
func (s Session) IsAdmin() bool { return s.Role == model.RoleAdmin }

// TokenPair is what login and refresh hand back to the client.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Credential is the input of a Verifier.  ID is the email for a password
// check and the claimed subject for a refresh check; Secret is the
// password or the raw token.
type Credential struct {
	ID     string
	Secret string
}

// Verifier turns a credential into a Session or fails.
type Verifier interface {
	Verify(ctx context.Context, c Credential) (Session, error)
}

// VerifierFunc adapts a function to Verifier.
type VerifierFunc func(ctx context.Context, c Credential) (Session, error)

func (f VerifierFunc) Verify(ctx context.Context, c Credential) (Session, error) { return f(ctx, c) }

type sessionKey struct{}

// WithSession returns a copy of ctx carrying s.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFrom returns the session stored by WithSession.
func SessionFrom(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(Session)
	return s, ok
}

package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/iliyamo/tms-api/internal/model"
)

// IssuerConfig holds the two independent secrets and lifetimes.
type IssuerConfig struct {
	AccessSecret  string
	AccessTTL     time.Duration
	RefreshSecret string
	RefreshTTL    time.Duration
}

// Claims is the payload of both token kinds: subject, role snapshot and
// the registered iat/exp/jti claims.
type Claims struct {
	Role model.Role `json:"role"`
	jwt.RegisteredClaims
}

// Issuer signs and parses HS256 access and refresh tokens.
type Issuer struct {
	cfg IssuerConfig
	now func() time.Time
}

// NewIssuer validates cfg and returns an Issuer.
func NewIssuer(cfg IssuerConfig) (*Issuer, error) {
	switch {
	case cfg.AccessSecret == "" || cfg.RefreshSecret == "":
		return nil, errors.New("token secrets must not be empty")
	case cfg.AccessSecret == cfg.RefreshSecret:
		return nil, errors.New("access and refresh secrets must differ")
	case cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0:
		return nil, errors.New("token lifetimes must be positive")
	}
	return &Issuer{cfg: cfg, now: time.Now}, nil
}

// Issue mints a fresh access/refresh pair for subject with role.  Each
// token gets its own random jti, so two pairs are never equal even when
// issued within the same second.
func (i *Issuer) Issue(subject string, role model.Role) (TokenPair, error) {
	now := i.now()
	access, err := i.sign(subject, role, now, i.cfg.AccessTTL, i.cfg.AccessSecret)
	if err != nil {
		return TokenPair{}, internal("sign access token", err)
	}
	refresh, err := i.sign(subject, role, now, i.cfg.RefreshTTL, i.cfg.RefreshSecret)
	if err != nil {
		return TokenPair{}, internal("sign refresh token", err)
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// ParseAccess verifies an access token and returns its session.
func (i *Issuer) ParseAccess(raw string) (Session, error) {
	return i.parse(raw, i.cfg.AccessSecret)
}

// ParseRefresh verifies the signature and expiry of a refresh token.  It
// does not consult the stored slot; see Authenticator.VerifyRefresh.
func (i *Issuer) ParseRefresh(raw string) (Session, error) {
	return i.parse(raw, i.cfg.RefreshSecret)
}

func (i *Issuer) sign(subject string, role model.Role, now time.Time, ttl time.Duration, secret string) (string, error) {
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func (i *Issuer) parse(raw, secret string) (Session, error) {
	if raw == "" {
		return Session{}, ErrUnauthenticated
	}
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil || !tok.Valid {
		return Session{}, ErrUnauthenticated
	}
	if claims.Subject == "" || !claims.Role.Valid() {
		return Session{}, ErrUnauthenticated
	}
	return Session{Subject: claims.Subject, Role: claims.Role}, nil
}

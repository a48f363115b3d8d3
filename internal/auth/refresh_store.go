package auth

import (
	"context"
	"errors"

	"github.com/iliyamo/tms-api/internal/repository"
	"github.com/iliyamo/tms-api/internal/utils"
)

// SlotRepository is the storage behind the refresh-token slot.  Setting
// replaces the previous value; an empty hash means logged out.  Both
// methods return repository.ErrNotFound for an unknown user.
type SlotRepository interface {
	SetRefreshTokenHash(ctx context.Context, userID, hash string) error
	RefreshTokenHash(ctx context.Context, userID string) (string, error)
}

// RefreshStore is the only path that mutates a refresh slot.  It never
// stores a raw token, only its hash.
type RefreshStore struct {
	slots SlotRepository
	cost  int
}

// NewRefreshStore wraps slots; cost is the bcrypt cost for slot hashes.
func NewRefreshStore(slots SlotRepository, cost int) *RefreshStore {
	return &RefreshStore{slots: slots, cost: cost}
}

// SetRefreshToken stores the hash of token for userID.  An empty token
// clears the slot.  Clearing an already empty slot is not an error.
func (s *RefreshStore) SetRefreshToken(ctx context.Context, userID, token string) error {
	hash := ""
	if token != "" {
		var err error
		if hash, err = utils.HashRefreshToken(token, s.cost); err != nil {
			return internal("hash refresh token", err)
		}
	}
	if err := s.slots.SetRefreshTokenHash(ctx, userID, hash); err != nil {
		return storeErr("set refresh slot", err)
	}
	return nil
}

// Match checks token against the slot of userID.  ErrNotFound when the
// user is unknown or logged out, ErrUnauthenticated on mismatch.
func (s *RefreshStore) Match(ctx context.Context, userID, token string) error {
	hash, err := s.slots.RefreshTokenHash(ctx, userID)
	if err != nil {
		return storeErr("read refresh slot", err)
	}
	if hash == "" {
		return ErrNotFound
	}
	if !utils.VerifyRefreshToken(hash, token) {
		return ErrUnauthenticated
	}
	return nil
}

func storeErr(op string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return internal(op, err)
}

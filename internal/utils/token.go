package utils // package utils provides helper functions for hashing secrets

import (
	"crypto/sha256" // SHA-256 pre-digest for refresh tokens
	"encoding/hex"  // hex encoding of the digest
)

// HashRefreshRaw returns the SHA-256 hash of the raw refresh token as a hex
// string.  bcrypt only reads the first 72 bytes of its input and the first
// 72 bytes of a JWT are almost identical between tokens of the same user,
// so the token is digested before it reaches bcrypt.
func HashRefreshRaw(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// HashRefreshToken returns the value stored in a user's refresh slot.
func HashRefreshToken(raw string, cost int) (string, error) {
	return HashPassword(HashRefreshRaw(raw), cost)
}

// VerifyRefreshToken compares a presented refresh token with the stored
// slot value.  An empty hash never matches.
func VerifyRefreshToken(hash, raw string) bool {
	if hash == "" {
		return false
	}
	return VerifyPassword(hash, HashRefreshRaw(raw))
}

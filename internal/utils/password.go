package utils

import (
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// MinCost is the lowest bcrypt cost accepted for stored secrets.
const MinCost = bcrypt.DefaultCost

// MaxPasswordBytes is the longest input bcrypt will hash.
const MaxPasswordBytes = 72

// dummyHash is compared against when no stored hash exists so that the
// caller spends the same time on unknown accounts as on known ones.
var dummyHash = sync.OnceValue(func() []byte {
	b, _ := bcrypt.GenerateFromPassword([]byte("tms-api-unknown-account"), MinCost)
	return b
})

// HashPassword returns bcrypt hash using the given cost.  Costs below
// MinCost are raised to MinCost.
func HashPassword(plain string, cost int) (string, error) {
	if cost < MinCost {
		cost = MinCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword safely compares bcrypt hash and plain password.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// BurnPasswordCheck runs a comparison that always fails.  Used on the
// unknown-account path of a login.
func BurnPasswordCheck(plain string) {
	_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(plain))
}

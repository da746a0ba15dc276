// Package password hashes credentials with bcrypt and enforces the strength
// policy applied at registration.
package password

import (
	"fmt"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is used when the configured cost is outside bcrypt's range.
const DefaultCost = 12

// MinLength is the shortest acceptable password, in characters.
const MinLength = 8

// MaxBytes is bcrypt's input limit; longer inputs would be rejected by Hash.
const MaxBytes = 72

// Symbols lists the characters that satisfy the special-character rule.
const Symbols = "!@#$%^&*()_+-=[]{}|;:,.<>?"

// Hasher hashes and verifies passwords at a fixed bcrypt cost.
type Hasher struct {
	cost int

	dummyOnce sync.Once
	dummy     []byte
}

// NewHasher returns a Hasher using cost, or DefaultCost when cost is out of range.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	return &Hasher{cost: cost}
}

// Cost reports the bcrypt cost in use.
func (h *Hasher) Cost() int {
	return h.cost
}

// Hash returns a salted bcrypt hash of plaintext.
func (h *Hasher) Hash(plaintext string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

// Verify reports whether plaintext matches hash. A malformed hash is a
// mismatch, not an error.
func (h *Hasher) Verify(plaintext, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	return err == nil
}

// VerifyDummy spends one comparison at the configured cost against a
// throwaway hash. Callers use it when no stored hash exists so that the
// response time does not reveal whether an account exists.
func (h *Hasher) VerifyDummy(plaintext string) {
	h.dummyOnce.Do(func() {
		b, err := bcrypt.GenerateFromPassword([]byte("noteko-dummy-password"), h.cost)
		if err != nil {
			// Only reachable with an invalid cost, which NewHasher rules out.
			panic(err)
		}
		h.dummy = b
	})
	_ = bcrypt.CompareHashAndPassword(h.dummy, []byte(plaintext))
}

// CheckStrength applies the password policy. Rules are checked in order and
// the first failure's reason is returned.
func CheckStrength(plaintext string) (bool, string) {
	if utf8.RuneCountInString(plaintext) < MinLength {
		return false, fmt.Sprintf("Password must be at least %d characters long", MinLength)
	}

	var upper, lower, digit, symbol bool
	for _, r := range plaintext {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(Symbols, r):
			symbol = true
		}
	}

	switch {
	case !upper:
		return false, "Password must contain at least one uppercase letter"
	case !lower:
		return false, "Password must contain at least one lowercase letter"
	case !digit:
		return false, "Password must contain at least one number"
	case !symbol:
		return false, "Password must contain at least one special character"
	case len(plaintext) > MaxBytes:
		return false, fmt.Sprintf("Password must be at most %d bytes long", MaxBytes)
	}
	return true, ""
}

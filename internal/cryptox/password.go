// Package cryptox holds the password hashing used by local accounts.
package cryptox

import (
	"crypto/subtle"

	"golang.org/x/crypto/argon2"

	"github.com/dmitrijs2005/mitrasign/internal/common"
)

const (
	// SaltLength is the size of a freshly generated password salt.
	SaltLength = 16

	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
)

// NewSalt returns SaltLength random bytes.
func NewSalt() []byte {
	return common.GenerateRandByteArray(SaltLength)
}

// HashPassword derives an Argon2id key from password and salt.
func HashPassword(password string, salt []byte) []byte {
	raw := []byte(password)
	defer common.WipeByteArray(raw)
	return argon2.IDKey(raw, salt, argonTime, argonMemory, argonThreads, argonKeyLen)
}

// CheckPassword reports whether candidate hashes to hash under salt.
// Empty hash or salt never match.
func CheckPassword(hash, salt []byte, candidate string) bool {
	if len(hash) == 0 || len(salt) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare(hash, HashPassword(candidate, salt)) == 1
}

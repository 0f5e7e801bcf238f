// Package hashing implements credential hashing for the server: a salted
// keyed hash for passwords and a one-way digest used to index refresh tokens
// without ever persisting the raw secret.
package hashing

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"

	"github.com/emsuite/authcore/internal/common"
)

// saltSize is the HMAC key length in bytes (512 bits).
const saltSize = 64

// CreatePasswordHash generates a fresh random salt and computes
// HMAC-SHA512(password) keyed with that salt. Both values are returned
// base64-encoded for storage. It never fails for any password string.
func CreatePasswordHash(password string) (hash, salt string) {
	key := common.GenerateRandByteArray(saltSize)

	mac := hmac.New(sha512.New, key)
	mac.Write([]byte(password))

	return base64.StdEncoding.EncodeToString(mac.Sum(nil)),
		base64.StdEncoding.EncodeToString(key)
}

// VerifyPassword recomputes the keyed hash with the stored salt and compares
// it against the stored hash in constant time. Any decode failure yields
// false rather than an error, so malformed rows cannot leak state.
func VerifyPassword(password, storedHash, storedSalt string) bool {
	key, err := base64.StdEncoding.DecodeString(storedSalt)
	if err != nil {
		return false
	}
	want, err := base64.StdEncoding.DecodeString(storedHash)
	if err != nil {
		return false
	}

	mac := hmac.New(sha512.New, key)
	mac.Write([]byte(password))

	return hmac.Equal(mac.Sum(nil), want)
}

// HashToken returns the deterministic one-way digest that refresh tokens are
// stored and looked up by: SHA-256 of the raw value, base64 (url, unpadded).
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

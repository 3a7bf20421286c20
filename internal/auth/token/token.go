// Package token generates and hashes the opaque one-time tokens used for
// magic-link sign-in and refresh-token rotation. Only the SHA-256 hash is
// ever persisted; the raw value leaves the process exactly once, inside the
// emailed link or the cookie.
package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
)

const (
	loginTokenBytes   = 32
	refreshTokenBytes = 48
)

// NewLoginToken returns a raw magic-link token and its storage hash.
func NewLoginToken() (raw, hash string, err error) {
	return newToken(loginTokenBytes)
}

// NewRefreshToken returns a raw refresh token and its storage hash.
func NewRefreshToken() (raw, hash string, err error) {
	return newToken(refreshTokenBytes)
}

// Hash returns the storage hash for a raw token received from a client.
func Hash(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func newToken(size int) (string, string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", "", err
	}
	raw := base64.RawURLEncoding.EncodeToString(b)
	return raw, Hash(raw), nil
}

package auth

import (
	"crypto/rand"
	"encoding/base64"
)

const tokenBytes = 32

// GenerateToken returns an opaque URL-safe token with 32 bytes of entropy.
func GenerateToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

package id

import (
	"crypto/rand"
	"encoding/hex"
)

// Token returns n random bytes hex-encoded, so the result is 2n characters long.
func Token(n int) string {
	if n < 1 {
		n = 1
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "fallback-token"
	}
	return hex.EncodeToString(b)
}

package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
)

// ResponseTokenLength is the hex length of a capability token (32 random bytes).
const ResponseTokenLength = 64

// NewResponseToken returns a 256-bit capability token as lowercase hex, safe to
// embed in a link without escaping. The token is the sole credential for
// mutating one response row; the database unique constraint backstops the
// (practically unreachable) collision case.
func NewResponseToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", fmt.Errorf("failed to draw token entropy: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// GenerateRefreshToken issues an opaque session refresh token, same entropy
// budget as a response token.
func GenerateRefreshToken() (string, error) {
	return NewResponseToken()
}

package orders

import (
	"crypto/rand"
	"encoding/base32"
	"encoding/base64"
	"fmt"
	"strings"
)

const orderCodeLength = 10

// GenerateOrderCode returns a short public order identifier: Base32
// (A-Z, 2-7) over 80 random bits, uppercase, no padding. Uniqueness is
// enforced by the caller's retry loop against the orders table.
func GenerateOrderCode() (string, error) {
	raw := make([]byte, 10)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generating order code: %w", err)
	}
	encoded := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(raw)
	return strings.ToUpper(encoded[:orderCodeLength]), nil
}

// GenerateAccessKey returns the URL-safe token that guards guest access
// to an order's detail page.
func GenerateAccessKey() (string, error) {
	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generating access key: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

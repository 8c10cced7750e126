// Package sha256 provides SHA-256 digest utilities.
package sha256

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hex hashes the input and returns a hex digest.
func Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

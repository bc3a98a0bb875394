package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashString returns the hex-encoded SHA-256 of s. Used for draft
// signatures, where only equality matters.
func HashString(s string) string {
	hasher := sha256.New()
	hasher.Write([]byte(s))
	return hex.EncodeToString(hasher.Sum(nil))
}

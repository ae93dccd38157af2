package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashContent returns the hex encoded SHA-256 digest of arg.
// Identical input yields the identical digest on every machine.
func HashContent(arg string) string {
	hasher := sha256.New()
	hasher.Write([]byte(arg))
	return hex.EncodeToString(hasher.Sum(nil))
}

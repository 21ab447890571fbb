package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashKey returns a filesystem-safe identifier for a namespace such as a job ID.
func HashKey(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

package utils

import (
	"crypto/md5"
	"encoding/hex"
	"io"
)

// HashString returns the hex md5 of s. Used for cache keys and page
// fingerprints, never for anything secret.
func HashString(s string) string {
	return HashParts(s)
}

// HashParts hashes the parts with a unit separator between them, so
// ("ab", "c") and ("a", "bc") differ.
func HashParts(parts ...string) string {
	h := md5.New()
	for i, p := range parts {
		if i > 0 {
			io.WriteString(h, "\x1f")
		}
		io.WriteString(h, p)
	}
	return hex.EncodeToString(h.Sum(nil))
}

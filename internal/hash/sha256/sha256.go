// Package sha256 provides content digests for naming archived pages.
package sha256

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hasher implements scraper.Hasher using SHA-256.
type Hasher struct {
	// Length truncates the hex digest when positive.
	Length int
}

// New returns a SHA-256 hasher producing full-length digests.
func New() *Hasher {
	return &Hasher{}
}

// Hash returns the hex digest of data.
func (h *Hasher) Hash(data []byte) (string, error) {
	sum := sha256.Sum256(data)
	out := hex.EncodeToString(sum[:])
	if h.Length > 0 && h.Length < len(out) {
		out = out[:h.Length]
	}
	return out, nil
}

// Package fingerprint computes content-based identities for notes and
// batches. A fingerprint depends only on document bytes, so a note renamed
// or re-exported under a different filename keeps its identity.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
)

// Note returns the hex-encoded SHA-256 digest of a note's raw bytes.
func Note(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Batch returns the fingerprint of a whole selection: the individual note
// hashes are sorted lexicographically and their concatenation is hashed, so
// the result is independent of selection order.
func Batch(hashes []string) string {
	sorted := make([]string, len(hashes))
	copy(sorted, hashes)
	sort.Strings(sorted)

	h := sha256.New()
	for _, s := range sorted {
		h.Write([]byte(s))
	}
	return hex.EncodeToString(h.Sum(nil))
}

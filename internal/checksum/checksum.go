// Package checksum detects drift in a project's protected items.
//
// The checksum is computed over ciphertext, never plaintext, so the server
// can compute and compare it without holding any key material. Both rotation
// mechanisms and offline sync rely on it to detect concurrent mutation.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
)

// Item is one protected config entry as persisted server-side: its name and
// its encrypted value. The plaintext is never part of the checksum.
type Item struct {
	Name            string
	ValueCiphertext string
}

// Compute returns the canonical checksum over an ordered list of items.
//
// Canonicalization concatenates "name=value" per item, newline-joined, in the
// order the items are currently persisted in. Items are deliberately not
// re-sorted: reordering without any value change is a detectable mutation,
// because a rotation prepared against the old order would re-wrap the wrong
// snapshot.
func Compute(items []Item) string {
	hasher := sha256.New()
	for i, item := range items {
		if i > 0 {
			hasher.Write([]byte("\n"))
		}
		hasher.Write([]byte(item.Name))
		hasher.Write([]byte("="))
		hasher.Write([]byte(item.ValueCiphertext))
	}
	return hex.EncodeToString(hasher.Sum(nil))
}

// HasDrifted reports whether the protected items changed between two
// checksum observations.
func HasDrifted(oldChecksum, newChecksum string) bool {
	return oldChecksum != newChecksum
}

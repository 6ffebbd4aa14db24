// Package service implements the envelope encryption primitives.
//
// Three operations cover every cryptographic need in the system:
//   - asymmetric encrypt-to-public-key / decrypt-with-private-key
//     (X25519 ECDH + HKDF-SHA256 + AES-256-GCM)
//   - symmetric encrypt-with-key / decrypt-with-key (AES-256-GCM keyed directly)
//   - deterministic key derivation (HKDF-SHA256, empty salt, labeled context)
//
// All operations are synchronous, CPU-bound, and free of shared mutable state;
// they may run on any goroutine without locking.
package service

import (
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"

	cryptoDomain "github.com/allisson/envie/internal/crypto/domain"
	apperrors "github.com/allisson/envie/internal/errors"
)

// Derive expands a secret into length bytes of key material using HKDF-SHA256
// with an empty salt and the given context label as the info parameter.
//
// This single KDF is used for every derivation in the system (identity ids,
// private keys, symmetric keys from shared secrets). Distinct context labels
// produce cryptographically independent outputs from the same secret, and the
// same (secret, label, length) triple always reproduces byte-identical output.
func Derive(secret []byte, contextLabel string, length int) ([]byte, error) {
	reader := hkdf.New(sha256.New, secret, nil, []byte(contextLabel))
	out := make([]byte, length)
	if _, err := io.ReadFull(reader, out); err != nil {
		return nil, apperrors.Wrap(err, "failed to derive key material")
	}
	return out, nil
}

// deriveEnvelopeKey derives the AES-256 key sealing an asymmetric envelope
// from an X25519 shared secret.
func deriveEnvelopeKey(sharedSecret []byte) ([]byte, error) {
	return Derive(sharedSecret, cryptoDomain.EnvelopeKeyContext, cryptoDomain.KeySize)
}

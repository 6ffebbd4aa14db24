package domain

import (
	"github.com/allisson/envie/internal/errors"
)

// Cryptographic operation error definitions.
//
// These domain-specific errors wrap standard errors from internal/errors
// so handlers can map them to HTTP status codes without special-casing.
var (
	// ErrAuthenticationFailed indicates an AEAD open failed: either the wrong
	// key was used or the ciphertext was tampered with. The two causes are
	// deliberately not distinguished to avoid oracle leakage.
	ErrAuthenticationFailed = errors.Wrap(errors.ErrInvalidInput, "authentication failed")

	// ErrMalformedInput indicates a blob shorter than the minimum envelope
	// size, invalid base64, or an invalid token prefix/length. Decryption is
	// never attempted on malformed input.
	ErrMalformedInput = errors.Wrap(errors.ErrInvalidInput, "malformed input")

	// ErrInvalidKeySize indicates a key of the wrong length was supplied.
	// All keys in the system are exactly 32 bytes.
	ErrInvalidKeySize = errors.Wrap(errors.ErrInvalidInput, "invalid key size")
)

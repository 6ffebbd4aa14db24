// Package domain defines the identity model: devices, derived CLI identities,
// project tokens, and linking codes.
//
// An identity is any principal capable of decryption: a device bound to one
// application instance, or a derived identity bound to a bearer secret. The
// server never stores or sees a private key; it persists only public keys,
// wrapped key material, and one-way identity digests.
package domain

import "time"

const (
	// TokenPrefix is the fixed prefix of every project token.
	TokenPrefix = "envie_"

	// TokenSecretLength is the number of random bytes behind a project token.
	TokenSecretLength = 32

	// TokenDisplayPrefixLength is how many base64 characters after the fixed
	// prefix are kept for display. Never enough to reconstruct the secret.
	TokenDisplayPrefixLength = 3

	// LinkingCodeLength is the number of random bytes behind a device
	// linking code.
	LinkingCodeLength = 16

	// LinkingCodeTTL is how long a linking code stays redeemable.
	LinkingCodeTTL = 15 * time.Minute
)

// Package domain defines the core types and constants for envelope encryption.
//
// Every blob produced by this system is self-contained: it bundles the
// ephemeral public key and nonce needed to decrypt it given only the matching
// private key or symmetric key. The layouts and derivation labels below are
// wire format and must not change without a protocol version bump.
package domain

const (
	// KeySize is the size in bytes of every symmetric key and X25519 key
	// in the system (256 bits).
	KeySize = 32

	// EphemeralPublicKeySize is the size of the X25519 ephemeral public key
	// prepended to asymmetric envelopes.
	EphemeralPublicKeySize = 32

	// NonceSize is the AES-256-GCM nonce size.
	NonceSize = 12

	// TagSize is the AES-256-GCM authentication tag size.
	TagSize = 16

	// IdentityIDSize is the size of a derived identity identifier.
	IdentityIDSize = 16

	// MinAsymmetricSize is the smallest valid asymmetric envelope:
	// ephemeral public key + nonce + tag (empty plaintext is legal).
	MinAsymmetricSize = EphemeralPublicKeySize + NonceSize + TagSize

	// MinSymmetricSize is the smallest valid symmetric envelope:
	// nonce + tag (empty plaintext is legal).
	MinSymmetricSize = NonceSize + TagSize
)

// HKDF context labels. Distinct labels guarantee cryptographically
// independent outputs from the same secret.
const (
	// IdentityIDContext derives the public identity identifier from a secret.
	IdentityIDContext = "envie-identity-id"

	// PrivateKeyContext derives an X25519 private key from a secret.
	PrivateKeyContext = "envie-private-key"

	// EnvelopeKeyContext derives the AES key from an X25519 shared secret
	// inside the asymmetric envelope.
	EnvelopeKeyContext = "envie-encrypt"
)

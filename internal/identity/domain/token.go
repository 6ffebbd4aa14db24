package domain

import (
	"time"

	"github.com/google/uuid"
)

// DerivedIdentity is the deterministic output of identity derivation from an
// opaque high-entropy secret. The same secret always re-derives the same
// values; two different secrets collide with negligible probability.
type DerivedIdentity struct {
	// IdentityID is the public identifier, hex-encoded. CLI requests carry
	// it in a header; it is effectively a long-lived bearer value over a
	// transport assumed to be confidential.
	IdentityID string

	// IdentityIDHash is hex(SHA-256(raw identity id bytes)). It is the only
	// value persisted server-side, used as the lookup key.
	IdentityIDHash string

	// PublicKey and PrivateKey form the X25519 keypair derived from the
	// secret. The private key never leaves the client.
	PublicKey  []byte
	PrivateKey []byte
}

// ProjectToken is the server-side record of a derived CLI identity with
// access to one project. The project key is wrapped to the derived public
// key once, at token-creation time.
type ProjectToken struct {
	ID                  uuid.UUID
	ProjectID           uuid.UUID
	Name                string
	TokenPrefix         string
	IdentityIDHash      string
	EncryptedProjectKey string
	ExpiresAt           *time.Time
	LastUsedAt          *time.Time
	CreatedBy           uuid.UUID
	CreatedAt           time.Time
}

// IsExpired reports whether the token's TTL has elapsed. Tokens without an
// expiry never expire.
func (t *ProjectToken) IsExpired(now time.Time) bool {
	if t.ExpiresAt == nil {
		return false
	}
	return now.After(*t.ExpiresAt)
}

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Device is one physical or application instance registered by a user.
//
// EncryptedMasterKey is the user's master private key asymmetrically wrapped
// to this device's public key. A nil value means the device is pending
// approval: it has registered a public key but no already-approved principal
// has wrapped the master key for it yet. A device decrypts its own wrapped
// master key with its own private key to bootstrap access; no other path
// exists.
//
// PublicKey never mutates once set. Master key rotation replaces the wrapped
// value, not the device.
type Device struct {
	ID                 uuid.UUID
	UserID             uuid.UUID
	Name               string
	PublicKey          string
	EncryptedMasterKey *string
	LastActive         time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// IsApproved reports whether the device holds a wrapped master key.
func (d *Device) IsApproved() bool {
	return d.EncryptedMasterKey != nil
}

// UserKey is the server-visible root of a user's key chain: the master
// identity public key and an opaque, monotonically increasing version
// counter incremented on every master key rotation.
type UserKey struct {
	UserID           uuid.UUID
	PublicKey        string
	MasterKeyVersion int
	UpdatedAt        time.Time
}

// LinkingCode binds a new device public key to a user for out-of-band
// approval. Codes are single-use, short-lived, and stored hashed.
type LinkingCode struct {
	ID              uuid.UUID
	CodeHash        string
	UserID          uuid.UUID
	DevicePublicKey string
	ExpiresAt       time.Time
	UsedAt          *time.Time
	CreatedAt       time.Time
}

// IsRedeemable reports whether the code is unused and unexpired at now.
func (lc *LinkingCode) IsRedeemable(now time.Time) bool {
	return lc.UsedAt == nil && now.Before(lc.ExpiresAt)
}

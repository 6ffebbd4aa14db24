// Package domain defines the project key rotation state machine and its
// persisted models. A rotation is proposed with a full re-encrypted snapshot,
// collects approvals, and either commits atomically or dies in a terminal
// state. The server never sees a key; it only swaps ciphertext.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// DefaultTTL is the window a pending rotation stays actionable.
const DefaultTTL = 24 * time.Hour

// Status is the rotation lifecycle state. Pending is the only non-terminal
// state.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusExpired  Status = "expired"
	StatusStale    Status = "stale"
)

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return s != StatusPending
}

// ConfigItemSnapshot carries one config value re-encrypted under the
// proposed project key.
type ConfigItemSnapshot struct {
	ConfigItemID    uuid.UUID `json:"configItemId"`
	ValueCiphertext string    `json:"valueCiphertext"`
}

// TeamKeySnapshot carries the proposed project key wrapped under one team's
// key.
type TeamKeySnapshot struct {
	TeamID              uuid.UUID `json:"teamId"`
	EncryptedProjectKey string    `json:"encryptedProjectKey"`
}

// FileKeySnapshot carries one file encryption key re-wrapped under the
// proposed project key.
type FileKeySnapshot struct {
	FileID           uuid.UUID `json:"fileId"`
	EncryptedFileKey string    `json:"encryptedFileKey"`
}

// PendingKeyRotation is a proposed project key rotation with its complete
// re-encrypted snapshot. ConfigChecksum records the canonical checksum of the
// config items the snapshot was built against; if the live checksum diverges
// before commit, the snapshot is stale.
type PendingKeyRotation struct {
	ID                uuid.UUID
	ProjectID         uuid.UUID
	InitiatedBy       uuid.UUID
	NewKeyVersion     uint
	Status            Status
	RequiredApprovals int
	ConfigChecksum    string
	ExpiresAt         time.Time

	ConfigItems []ConfigItemSnapshot
	TeamKeys    []TeamKeySnapshot
	FileKeys    []FileKeySnapshot

	Approvals []*KeyRotationApproval

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsExpired reports whether the actionable window has closed.
func (r *PendingKeyRotation) IsExpired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// ApprovalCount counts distinct positive votes.
func (r *PendingKeyRotation) ApprovalCount() int {
	count := 0
	for _, approval := range r.Approvals {
		if approval.Approved {
			count++
		}
	}
	return count
}

// HasVoted reports whether the user already cast a vote.
func (r *PendingKeyRotation) HasVoted(userID uuid.UUID) bool {
	for _, approval := range r.Approvals {
		if approval.UserID == userID {
			return true
		}
	}
	return false
}

// InitiateInput carries a complete rotation proposal from a client. The
// snapshots were built client-side against the state identified by
// ExpectedChecksum; the server only validates coverage and swaps ciphertext.
type InitiateInput struct {
	ProjectID   uuid.UUID
	InitiatedBy uuid.UUID

	// ExpectedChecksum is the config checksum the client built the snapshot
	// against. A mismatch with the live checksum means the proposal is
	// already stale.
	ExpectedChecksum string

	// RequiredApprovals is the organization's quorum policy. Clamped to zero
	// when the project has a single admin, since no second approver exists.
	RequiredApprovals int

	// TTL bounds the actionable window; zero means DefaultTTL.
	TTL time.Duration

	ConfigItems []ConfigItemSnapshot
	TeamKeys    []TeamKeySnapshot
	FileKeys    []FileKeySnapshot
}

// KeyRotationApproval is one user's vote on a pending rotation.
// VerifiedDecryption records the voter's attestation that they decrypted the
// proposed snapshot with the new key before deciding.
type KeyRotationApproval struct {
	ID                 uuid.UUID
	RotationID         uuid.UUID
	UserID             uuid.UUID
	Approved           bool
	VerifiedDecryption bool
	Comment            string
	CreatedAt          time.Time
}

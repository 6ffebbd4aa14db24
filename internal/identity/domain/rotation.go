package domain

import (
	"github.com/google/uuid"
)

// DeviceKeyWrap is the new master private key asymmetrically wrapped to one
// approved device's public key.
type DeviceKeyWrap struct {
	DeviceID           uuid.UUID `json:"device_id"`
	EncryptedMasterKey string    `json:"encrypted_master_key"`
}

// TeamKeyWrap is a team key re-wrapped to the new master public key.
type TeamKeyWrap struct {
	TeamID           uuid.UUID `json:"team_id"`
	EncryptedTeamKey string    `json:"encrypted_team_key"`
}

// OrgKeyWrap is an organization key re-wrapped to the new master public key.
type OrgKeyWrap struct {
	OrganizationID  uuid.UUID `json:"organization_id"`
	EncryptedOrgKey string    `json:"encrypted_org_key"`
}

// MasterRotationBundle is a client-built master key rotation: the new master
// public key plus a replacement wrap for every place the old key was
// reachable from. The bundle commits atomically or not at all; a partial
// apply would lock the user out of part of their own key chain.
//
// ExpectedVersion pins the bundle to the master key version it was built
// against so two concurrent rotations cannot interleave.
type MasterRotationBundle struct {
	UserID          uuid.UUID
	NewPublicKey    string
	ExpectedVersion int

	DeviceKeys []DeviceKeyWrap
	TeamKeys   []TeamKeyWrap
	OrgKeys    []OrgKeyWrap
}

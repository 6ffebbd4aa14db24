// Package dto provides data transfer objects for HTTP request and response handling.
package dto

import (
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	validation "github.com/jellydator/validation"

	identityDomain "github.com/allisson/envie/internal/identity/domain"
	identityUseCase "github.com/allisson/envie/internal/identity/usecase"
	customValidation "github.com/allisson/envie/internal/validation"
)

// identityHashRegex matches a SHA-256 identity digest in lowercase hex.
var identityHashRegex = regexp.MustCompile(`^[0-9a-f]{64}$`)

// RegisterDeviceRequest registers a device public key for a user. The first
// device of a user must also carry the master public key and the master
// private key wrapped to itself.
type RegisterDeviceRequest struct {
	UserID             string `json:"user_id" binding:"required"`
	Name               string `json:"name" binding:"required"`
	PublicKey          string `json:"public_key" binding:"required"`
	MasterPublicKey    string `json:"master_public_key"`
	EncryptedMasterKey string `json:"encrypted_master_key"`
}

// Validate checks if the register device request is valid.
func (r *RegisterDeviceRequest) Validate() error {
	if (r.MasterPublicKey == "") != (r.EncryptedMasterKey == "") {
		return fmt.Errorf("master_public_key and encrypted_master_key must be provided together")
	}
	return validation.ValidateStruct(r,
		validation.Field(&r.UserID, validation.Required, customValidation.UUID),
		validation.Field(&r.Name, validation.Required, validation.Length(1, 100), customValidation.NotBlank),
		validation.Field(&r.PublicKey, validation.Required, customValidation.Base64),
		validation.Field(&r.MasterPublicKey, customValidation.Base64),
		validation.Field(&r.EncryptedMasterKey, customValidation.Base64),
	)
}

// ToInput converts the request into a use case input.
func (r *RegisterDeviceRequest) ToInput() (*identityUseCase.RegisterDeviceInput, error) {
	userID, err := uuid.Parse(r.UserID)
	if err != nil {
		return nil, err
	}
	return &identityUseCase.RegisterDeviceInput{
		UserID:             userID,
		Name:               r.Name,
		PublicKey:          r.PublicKey,
		MasterPublicKey:    r.MasterPublicKey,
		EncryptedMasterKey: r.EncryptedMasterKey,
	}, nil
}

// CreateLinkingCodeRequest issues a linking code for a pending device public key.
type CreateLinkingCodeRequest struct {
	DevicePublicKey string `json:"device_public_key" binding:"required"`
}

// Validate checks if the create linking code request is valid.
func (r *CreateLinkingCodeRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.DevicePublicKey, validation.Required, customValidation.Base64),
	)
}

// RedeemLinkingCodeRequest consumes a linking code.
type RedeemLinkingCodeRequest struct {
	Code string `json:"code" binding:"required"`
}

// Validate checks if the redeem linking code request is valid.
func (r *RedeemLinkingCodeRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Code, validation.Required, validation.Length(1, 100)),
	)
}

// ApproveDeviceRequest stores the wrapped master key on a pending device.
type ApproveDeviceRequest struct {
	EncryptedMasterKey string `json:"encrypted_master_key" binding:"required"`
}

// Validate checks if the approve device request is valid.
func (r *ApproveDeviceRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.EncryptedMasterKey, validation.Required, customValidation.Base64),
	)
}

// CreateTokenRequest persists a client-built project token record. The token
// secret never appears here; only its derived identity hash does.
type CreateTokenRequest struct {
	Name                string     `json:"name" binding:"required"`
	TokenPrefix         string     `json:"token_prefix" binding:"required"`
	IdentityIDHash      string     `json:"identity_id_hash" binding:"required"`
	EncryptedProjectKey string     `json:"encrypted_project_key" binding:"required"`
	ExpiresAt           *time.Time `json:"expires_at"`
}

// Validate checks if the create token request is valid.
func (r *CreateTokenRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 100), customValidation.NotBlank),
		validation.Field(&r.TokenPrefix,
			validation.Required,
			validation.Length(identityDomain.TokenDisplayPrefixLength, identityDomain.TokenDisplayPrefixLength),
		),
		validation.Field(&r.IdentityIDHash,
			validation.Required,
			validation.Match(identityHashRegex).Error("must be a 64-character lowercase hex digest"),
		),
		validation.Field(&r.EncryptedProjectKey, validation.Required, customValidation.Base64),
	)
}

// DeviceKeyWrapRequest carries one device's replacement master key wrap.
type DeviceKeyWrapRequest struct {
	DeviceID           string `json:"device_id" binding:"required"`
	EncryptedMasterKey string `json:"encrypted_master_key" binding:"required"`
}

// Validate checks if the device wrap entry is valid.
func (r DeviceKeyWrapRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.DeviceID, validation.Required, customValidation.UUID),
		validation.Field(&r.EncryptedMasterKey, validation.Required, customValidation.Base64),
	)
}

// TeamKeyWrapRequest carries one team key re-wrapped to the new master key.
type TeamKeyWrapRequest struct {
	TeamID           string `json:"team_id" binding:"required"`
	EncryptedTeamKey string `json:"encrypted_team_key" binding:"required"`
}

// Validate checks if the team wrap entry is valid.
func (r TeamKeyWrapRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.TeamID, validation.Required, customValidation.UUID),
		validation.Field(&r.EncryptedTeamKey, validation.Required, customValidation.Base64),
	)
}

// OrgKeyWrapRequest carries one organization key re-wrapped to the new master key.
type OrgKeyWrapRequest struct {
	OrganizationID  string `json:"organization_id" binding:"required"`
	EncryptedOrgKey string `json:"encrypted_org_key" binding:"required"`
}

// Validate checks if the organization wrap entry is valid.
func (r OrgKeyWrapRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.OrganizationID, validation.Required, customValidation.UUID),
		validation.Field(&r.EncryptedOrgKey, validation.Required, customValidation.Base64),
	)
}

// RotateMasterKeyRequest carries a complete client-built master key rotation
// bundle.
type RotateMasterKeyRequest struct {
	NewPublicKey    string                 `json:"new_public_key" binding:"required"`
	ExpectedVersion int                    `json:"expected_version" binding:"required"`
	DeviceKeys      []DeviceKeyWrapRequest `json:"device_keys"`
	TeamKeys        []TeamKeyWrapRequest   `json:"team_keys"`
	OrgKeys         []OrgKeyWrapRequest    `json:"org_keys"`
}

// Validate checks if the rotate master key request is valid.
func (r *RotateMasterKeyRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.NewPublicKey, validation.Required, customValidation.Base64),
		validation.Field(&r.ExpectedVersion, validation.Required, validation.Min(1)),
		validation.Field(&r.DeviceKeys, validation.Required),
		validation.Field(&r.TeamKeys),
		validation.Field(&r.OrgKeys),
	)
}

// ToBundle converts the request into a rotation bundle for the user.
func (r *RotateMasterKeyRequest) ToBundle(userID uuid.UUID) (*identityDomain.MasterRotationBundle, error) {
	bundle := &identityDomain.MasterRotationBundle{
		UserID:          userID,
		NewPublicKey:    r.NewPublicKey,
		ExpectedVersion: r.ExpectedVersion,
		DeviceKeys:      make([]identityDomain.DeviceKeyWrap, 0, len(r.DeviceKeys)),
		TeamKeys:        make([]identityDomain.TeamKeyWrap, 0, len(r.TeamKeys)),
		OrgKeys:         make([]identityDomain.OrgKeyWrap, 0, len(r.OrgKeys)),
	}

	for _, wrap := range r.DeviceKeys {
		deviceID, err := uuid.Parse(wrap.DeviceID)
		if err != nil {
			return nil, err
		}
		bundle.DeviceKeys = append(bundle.DeviceKeys, identityDomain.DeviceKeyWrap{
			DeviceID:           deviceID,
			EncryptedMasterKey: wrap.EncryptedMasterKey,
		})
	}

	for _, wrap := range r.TeamKeys {
		teamID, err := uuid.Parse(wrap.TeamID)
		if err != nil {
			return nil, err
		}
		bundle.TeamKeys = append(bundle.TeamKeys, identityDomain.TeamKeyWrap{
			TeamID:           teamID,
			EncryptedTeamKey: wrap.EncryptedTeamKey,
		})
	}

	for _, wrap := range r.OrgKeys {
		orgID, err := uuid.Parse(wrap.OrganizationID)
		if err != nil {
			return nil, err
		}
		bundle.OrgKeys = append(bundle.OrgKeys, identityDomain.OrgKeyWrap{
			OrganizationID:  orgID,
			EncryptedOrgKey: wrap.EncryptedOrgKey,
		})
	}

	return bundle, nil
}

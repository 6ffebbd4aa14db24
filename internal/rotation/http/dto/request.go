// Package dto provides data transfer objects for HTTP request and response handling.
package dto

import (
	"regexp"
	"time"

	"github.com/google/uuid"
	validation "github.com/jellydator/validation"

	rotationDomain "github.com/allisson/envie/internal/rotation/domain"
	customValidation "github.com/allisson/envie/internal/validation"
)

// checksumRegex matches a SHA-256 config checksum in lowercase hex.
var checksumRegex = regexp.MustCompile(`^[0-9a-f]{64}$`)

// ConfigItemSnapshotRequest carries one config value re-encrypted under the
// proposed project key.
type ConfigItemSnapshotRequest struct {
	ConfigItemID    string `json:"config_item_id" binding:"required"`
	ValueCiphertext string `json:"value_ciphertext" binding:"required"`
}

// Validate checks if the config item snapshot entry is valid.
func (r ConfigItemSnapshotRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ConfigItemID, validation.Required, customValidation.UUID),
		validation.Field(&r.ValueCiphertext, validation.Required, customValidation.Base64),
	)
}

// TeamKeySnapshotRequest carries the proposed project key wrapped under one
// team's key.
type TeamKeySnapshotRequest struct {
	TeamID              string `json:"team_id" binding:"required"`
	EncryptedProjectKey string `json:"encrypted_project_key" binding:"required"`
}

// Validate checks if the team key snapshot entry is valid.
func (r TeamKeySnapshotRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.TeamID, validation.Required, customValidation.UUID),
		validation.Field(&r.EncryptedProjectKey, validation.Required, customValidation.Base64),
	)
}

// FileKeySnapshotRequest carries one file encryption key re-wrapped under the
// proposed project key.
type FileKeySnapshotRequest struct {
	FileID           string `json:"file_id" binding:"required"`
	EncryptedFileKey string `json:"encrypted_file_key" binding:"required"`
}

// Validate checks if the file key snapshot entry is valid.
func (r FileKeySnapshotRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FileID, validation.Required, customValidation.UUID),
		validation.Field(&r.EncryptedFileKey, validation.Required, customValidation.Base64),
	)
}

// InitiateRotationRequest contains a complete client-built rotation proposal:
// every config value re-encrypted under the new project key, the new key
// wrapped for every team, and every file key re-wrapped. The server validates
// coverage against live state but never sees a key.
type InitiateRotationRequest struct {
	ExpectedChecksum  string                      `json:"expected_checksum"  binding:"required"`
	RequiredApprovals int                         `json:"required_approvals"`
	TTLSeconds        int                         `json:"ttl_seconds"`
	ConfigItems       []ConfigItemSnapshotRequest `json:"config_items"`
	TeamKeys          []TeamKeySnapshotRequest    `json:"team_keys"`
	FileKeys          []FileKeySnapshotRequest    `json:"file_keys"`
}

// Validate checks if the initiate rotation request is valid.
func (r *InitiateRotationRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.ExpectedChecksum,
			validation.Required,
			validation.Match(checksumRegex).Error("must be a 64-character lowercase hex checksum"),
		),
		validation.Field(&r.RequiredApprovals, validation.Min(0), validation.Max(10)),
		validation.Field(&r.TTLSeconds, validation.Min(0)),
		validation.Field(&r.TeamKeys, validation.Required),
		validation.Field(&r.ConfigItems),
		validation.Field(&r.FileKeys),
	)
}

// ToInput converts the request into a use case input. UUID fields were
// already validated; parse errors here are reported as invalid input.
func (r *InitiateRotationRequest) ToInput(projectID, userID uuid.UUID) (*rotationDomain.InitiateInput, error) {
	input := &rotationDomain.InitiateInput{
		ProjectID:         projectID,
		InitiatedBy:       userID,
		ExpectedChecksum:  r.ExpectedChecksum,
		RequiredApprovals: r.RequiredApprovals,
		TTL:               time.Duration(r.TTLSeconds) * time.Second,
		ConfigItems:       make([]rotationDomain.ConfigItemSnapshot, 0, len(r.ConfigItems)),
		TeamKeys:          make([]rotationDomain.TeamKeySnapshot, 0, len(r.TeamKeys)),
		FileKeys:          make([]rotationDomain.FileKeySnapshot, 0, len(r.FileKeys)),
	}

	for _, item := range r.ConfigItems {
		itemID, err := uuid.Parse(item.ConfigItemID)
		if err != nil {
			return nil, err
		}
		input.ConfigItems = append(input.ConfigItems, rotationDomain.ConfigItemSnapshot{
			ConfigItemID:    itemID,
			ValueCiphertext: item.ValueCiphertext,
		})
	}

	for _, team := range r.TeamKeys {
		teamID, err := uuid.Parse(team.TeamID)
		if err != nil {
			return nil, err
		}
		input.TeamKeys = append(input.TeamKeys, rotationDomain.TeamKeySnapshot{
			TeamID:              teamID,
			EncryptedProjectKey: team.EncryptedProjectKey,
		})
	}

	for _, file := range r.FileKeys {
		fileID, err := uuid.Parse(file.FileID)
		if err != nil {
			return nil, err
		}
		input.FileKeys = append(input.FileKeys, rotationDomain.FileKeySnapshot{
			FileID:           fileID,
			EncryptedFileKey: file.EncryptedFileKey,
		})
	}

	return input, nil
}

// VoteRequest contains an approval or rejection vote on a pending rotation.
// VerifiedDecryption is the voter's attestation that they decrypted the
// proposed snapshot with the new key before deciding.
type VoteRequest struct {
	Comment            string `json:"comment"`
	VerifiedDecryption bool   `json:"verified_decryption"`
}

// Validate checks if the vote request is valid.
func (r *VoteRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Comment, validation.Length(0, 500)),
	)
}

// Package dto provides data transfer objects for HTTP request and response handling.
package dto

import (
	"time"

	rotationDomain "github.com/allisson/envie/internal/rotation/domain"
)

// ApprovalResponse represents one vote on a rotation in API responses.
type ApprovalResponse struct {
	ID                 string    `json:"id"`
	UserID             string    `json:"user_id"`
	Approved           bool      `json:"approved"`
	VerifiedDecryption bool      `json:"verified_decryption"`
	Comment            string    `json:"comment,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

// RotationResponse represents a key rotation in API responses. The snapshot
// ciphertexts are never echoed back; approvers verify the proposal against
// the config checksum.
type RotationResponse struct {
	ID                string             `json:"id"`
	ProjectID         string             `json:"project_id"`
	InitiatedBy       string             `json:"initiated_by"`
	NewKeyVersion     uint               `json:"new_key_version"`
	Status            string             `json:"status"`
	RequiredApprovals int                `json:"required_approvals"`
	ApprovalCount     int                `json:"approval_count"`
	ConfigChecksum    string             `json:"config_checksum"`
	ExpiresAt         time.Time          `json:"expires_at"`
	Approvals         []ApprovalResponse `json:"approvals,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
}

// ListRotationsResponse represents a list of pending rotations awaiting the
// caller's vote.
type ListRotationsResponse struct {
	Rotations []RotationResponse `json:"rotations"`
}

// MapRotationToResponse converts a domain rotation to an API response.
func MapRotationToResponse(rotation *rotationDomain.PendingKeyRotation) RotationResponse {
	approvals := make([]ApprovalResponse, 0, len(rotation.Approvals))
	for _, approval := range rotation.Approvals {
		approvals = append(approvals, ApprovalResponse{
			ID:                 approval.ID.String(),
			UserID:             approval.UserID.String(),
			Approved:           approval.Approved,
			VerifiedDecryption: approval.VerifiedDecryption,
			Comment:            approval.Comment,
			CreatedAt:          approval.CreatedAt,
		})
	}

	return RotationResponse{
		ID:                rotation.ID.String(),
		ProjectID:         rotation.ProjectID.String(),
		InitiatedBy:       rotation.InitiatedBy.String(),
		NewKeyVersion:     rotation.NewKeyVersion,
		Status:            string(rotation.Status),
		RequiredApprovals: rotation.RequiredApprovals,
		ApprovalCount:     rotation.ApprovalCount(),
		ConfigChecksum:    rotation.ConfigChecksum,
		ExpiresAt:         rotation.ExpiresAt,
		Approvals:         approvals,
		CreatedAt:         rotation.CreatedAt,
	}
}

// MapRotationsToListResponse converts domain rotations to a list response.
func MapRotationsToListResponse(rotations []*rotationDomain.PendingKeyRotation) ListRotationsResponse {
	items := make([]RotationResponse, 0, len(rotations))
	for _, rotation := range rotations {
		items = append(items, MapRotationToResponse(rotation))
	}
	return ListRotationsResponse{Rotations: items}
}

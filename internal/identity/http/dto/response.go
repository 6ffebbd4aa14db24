package dto

import (
	"time"

	"github.com/google/uuid"

	identityDomain "github.com/allisson/envie/internal/identity/domain"
	identityUseCase "github.com/allisson/envie/internal/identity/usecase"
)

// DeviceResponse represents a device in API responses. The wrapped master key
// is ciphertext opaque to the server; it is returned only to the device's own
// user, who needs it to unlock locally.
type DeviceResponse struct {
	ID                 uuid.UUID `json:"id"`
	UserID             uuid.UUID `json:"user_id"`
	Name               string    `json:"name"`
	PublicKey          string    `json:"public_key"`
	EncryptedMasterKey *string   `json:"encrypted_master_key,omitempty"`
	Approved           bool      `json:"approved"`
	LastActive         time.Time `json:"last_active"`
	CreatedAt          time.Time `json:"created_at"`
}

// ListDevicesResponse represents a list of devices in API responses.
type ListDevicesResponse struct {
	Devices []*DeviceResponse `json:"devices"`
}

// MapDeviceToResponse converts a domain device to a response DTO.
func MapDeviceToResponse(device *identityDomain.Device) *DeviceResponse {
	return &DeviceResponse{
		ID:                 device.ID,
		UserID:             device.UserID,
		Name:               device.Name,
		PublicKey:          device.PublicKey,
		EncryptedMasterKey: device.EncryptedMasterKey,
		Approved:           device.IsApproved(),
		LastActive:         device.LastActive,
		CreatedAt:          device.CreatedAt,
	}
}

// MapDevicesToListResponse converts domain devices to a list response DTO.
func MapDevicesToListResponse(devices []*identityDomain.Device) *ListDevicesResponse {
	response := &ListDevicesResponse{Devices: make([]*DeviceResponse, 0, len(devices))}
	for _, device := range devices {
		response.Devices = append(response.Devices, MapDeviceToResponse(device))
	}
	return response
}

// UserKeyResponse represents a user's master public key in API responses.
type UserKeyResponse struct {
	UserID           uuid.UUID `json:"user_id"`
	PublicKey        string    `json:"public_key"`
	MasterKeyVersion int       `json:"master_key_version"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// MapUserKeyToResponse converts a domain user key to a response DTO.
func MapUserKeyToResponse(userKey *identityDomain.UserKey) *UserKeyResponse {
	return &UserKeyResponse{
		UserID:           userKey.UserID,
		PublicKey:        userKey.PublicKey,
		MasterKeyVersion: userKey.MasterKeyVersion,
		UpdatedAt:        userKey.UpdatedAt,
	}
}

// LinkingCodeResponse represents a freshly issued linking code. The plain code
// appears here and nowhere else; storage holds only its hash.
type LinkingCodeResponse struct {
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RedeemedLinkingCodeResponse represents a consumed linking code: the user and
// pending device public key the code was bound to.
type RedeemedLinkingCodeResponse struct {
	UserID          uuid.UUID `json:"user_id"`
	DevicePublicKey string    `json:"device_public_key"`
}

// TokenResponse represents project token metadata in API responses. The
// identity hash and wrapped project key are omitted from listings.
type TokenResponse struct {
	ID          uuid.UUID  `json:"id"`
	ProjectID   uuid.UUID  `json:"project_id"`
	Name        string     `json:"name"`
	TokenPrefix string     `json:"token_prefix"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// ListTokensResponse represents a list of project tokens in API responses.
type ListTokensResponse struct {
	Tokens []*TokenResponse `json:"tokens"`
}

// MapTokenToResponse converts a domain project token to a response DTO.
func MapTokenToResponse(token *identityDomain.ProjectToken) *TokenResponse {
	return &TokenResponse{
		ID:          token.ID,
		ProjectID:   token.ProjectID,
		Name:        token.Name,
		TokenPrefix: token.TokenPrefix,
		ExpiresAt:   token.ExpiresAt,
		LastUsedAt:  token.LastUsedAt,
		CreatedAt:   token.CreatedAt,
	}
}

// MapTokensToListResponse converts domain project tokens to a list response DTO.
func MapTokensToListResponse(tokens []*identityDomain.ProjectToken) *ListTokensResponse {
	response := &ListTokensResponse{Tokens: make([]*TokenResponse, 0, len(tokens))}
	for _, token := range tokens {
		response.Tokens = append(response.Tokens, MapTokenToResponse(token))
	}
	return response
}

// TeamMembershipWrapResponse is one team key wrapped to the caller's master
// public key.
type TeamMembershipWrapResponse struct {
	TeamID           uuid.UUID `json:"team_id"`
	EncryptedTeamKey string    `json:"encrypted_team_key"`
}

// OrgMembershipWrapResponse is one organization membership; the wrapped org
// key is present only for admins and owners.
type OrgMembershipWrapResponse struct {
	OrganizationID  uuid.UUID `json:"organization_id"`
	Role            string    `json:"role"`
	EncryptedOrgKey *string   `json:"encrypted_org_key,omitempty"`
}

// RotationStateResponse is the live coverage state a master key rotation
// bundle must be built against.
type RotationStateResponse struct {
	UserKey         *UserKeyResponse              `json:"user_key"`
	Devices         []*DeviceResponse             `json:"devices"`
	TeamMemberships []*TeamMembershipWrapResponse `json:"team_memberships"`
	OrgMemberships  []*OrgMembershipWrapResponse  `json:"org_memberships"`
}

// MapRotationStateToResponse converts the use case rotation state to a
// response DTO.
func MapRotationStateToResponse(state *identityUseCase.MasterRotationState) *RotationStateResponse {
	response := &RotationStateResponse{
		UserKey:         MapUserKeyToResponse(state.UserKey),
		Devices:         MapDevicesToListResponse(state.Devices).Devices,
		TeamMemberships: make([]*TeamMembershipWrapResponse, 0, len(state.TeamMemberships)),
		OrgMemberships:  make([]*OrgMembershipWrapResponse, 0, len(state.OrgMemberships)),
	}
	for _, membership := range state.TeamMemberships {
		response.TeamMemberships = append(response.TeamMemberships, &TeamMembershipWrapResponse{
			TeamID:           membership.TeamID,
			EncryptedTeamKey: membership.EncryptedTeamKey,
		})
	}
	for _, membership := range state.OrgMemberships {
		response.OrgMemberships = append(response.OrgMemberships, &OrgMembershipWrapResponse{
			OrganizationID:  membership.OrganizationID,
			Role:            membership.Role,
			EncryptedOrgKey: membership.EncryptedOrgKey,
		})
	}
	return response
}

// BootstrapResponse is what an authenticated CLI identity needs to decrypt:
// its own wrapped project key.
type BootstrapResponse struct {
	ProjectID           uuid.UUID `json:"project_id"`
	EncryptedProjectKey string    `json:"encrypted_project_key"`
}

// Package rotation drives a master key rotation from the client side: it
// fetches the coverage state, rebuilds every wrap under a fresh keypair
// locally, and submits the complete bundle in one request. The server never
// sees a private key at any point.
package rotation

import (
	"encoding/base64"
	"fmt"

	cryptoDomain "github.com/allisson/envie/internal/crypto/domain"
	cryptoService "github.com/allisson/envie/internal/crypto/service"
	apperrors "github.com/allisson/envie/internal/errors"
	identityDTO "github.com/allisson/envie/internal/identity/http/dto"
)

// BuildPlan turns the server's rotation state into a complete rotation bundle
// under newKeypair. Every team and org wrap is decrypted with oldPrivateKey
// and re-encrypted to the new public key; the new private key is wrapped to
// every approved device. Any single failure aborts the whole plan, so a
// partial bundle never leaves this function.
func BuildPlan(
	state *identityDTO.RotationStateResponse,
	oldPrivateKey []byte,
	newKeypair *cryptoDomain.Keypair,
) (*identityDTO.RotateMasterKeyRequest, error) {
	request := &identityDTO.RotateMasterKeyRequest{
		NewPublicKey:    base64.StdEncoding.EncodeToString(newKeypair.PublicKey),
		ExpectedVersion: state.UserKey.MasterKeyVersion,
		DeviceKeys:      make([]identityDTO.DeviceKeyWrapRequest, 0, len(state.Devices)),
		TeamKeys:        make([]identityDTO.TeamKeyWrapRequest, 0, len(state.TeamMemberships)),
		OrgKeys:         make([]identityDTO.OrgKeyWrapRequest, 0, len(state.OrgMemberships)),
	}

	for _, device := range state.Devices {
		devicePublicKey, err := base64.StdEncoding.DecodeString(device.PublicKey)
		if err != nil {
			return nil, apperrors.Wrap(
				apperrors.ErrInvalidInput,
				fmt.Sprintf("device %s has a malformed public key", device.ID),
			)
		}
		wrap, err := cryptoService.EncryptToPublicKeyBase64(devicePublicKey, newKeypair.PrivateKey)
		if err != nil {
			return nil, apperrors.Wrap(err, fmt.Sprintf("failed to wrap master key for device %s", device.ID))
		}
		request.DeviceKeys = append(request.DeviceKeys, identityDTO.DeviceKeyWrapRequest{
			DeviceID:           device.ID.String(),
			EncryptedMasterKey: wrap,
		})
	}

	for _, membership := range state.TeamMemberships {
		teamKey, err := cryptoService.DecryptWithPrivateKeyBase64(oldPrivateKey, membership.EncryptedTeamKey)
		if err != nil {
			return nil, apperrors.Wrap(err, fmt.Sprintf("failed to unwrap team key for team %s", membership.TeamID))
		}
		wrap, err := cryptoService.EncryptToPublicKeyBase64(newKeypair.PublicKey, teamKey)
		cryptoDomain.Zero(teamKey)
		if err != nil {
			return nil, apperrors.Wrap(err, fmt.Sprintf("failed to re-wrap team key for team %s", membership.TeamID))
		}
		request.TeamKeys = append(request.TeamKeys, identityDTO.TeamKeyWrapRequest{
			TeamID:           membership.TeamID.String(),
			EncryptedTeamKey: wrap,
		})
	}

	for _, membership := range state.OrgMemberships {
		// Plain members hold no org key wrap; nothing to carry over.
		if membership.EncryptedOrgKey == nil {
			continue
		}
		orgKey, err := cryptoService.DecryptWithPrivateKeyBase64(oldPrivateKey, *membership.EncryptedOrgKey)
		if err != nil {
			return nil, apperrors.Wrap(err,
				fmt.Sprintf("failed to unwrap org key for organization %s", membership.OrganizationID))
		}
		wrap, err := cryptoService.EncryptToPublicKeyBase64(newKeypair.PublicKey, orgKey)
		cryptoDomain.Zero(orgKey)
		if err != nil {
			return nil, apperrors.Wrap(err,
				fmt.Sprintf("failed to re-wrap org key for organization %s", membership.OrganizationID))
		}
		request.OrgKeys = append(request.OrgKeys, identityDTO.OrgKeyWrapRequest{
			OrganizationID:  membership.OrganizationID.String(),
			EncryptedOrgKey: wrap,
		})
	}

	return request, nil
}

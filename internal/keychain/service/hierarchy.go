// Package service implements wrap/unwrap for every layer of the key chain
// and the unlock resolution that walks it top-down.
//
// Each layer is a pure function pair over byte slices and base64 blobs; the
// manager holds no state and is safe for concurrent use.
package service

import (
	cryptoService "github.com/allisson/envie/internal/crypto/service"
	keychainDomain "github.com/allisson/envie/internal/keychain/domain"
)

// KeyHierarchy wraps and unwraps keys along the chain
// master → organization → team → project → file/config.
type KeyHierarchy interface {
	// WrapKeyForPublicKey wraps a symmetric key asymmetrically to a
	// principal's public key (master → org, master → team, token → project).
	WrapKeyForPublicKey(publicKey, key []byte) (string, error)

	// UnwrapKeyWithPrivateKey opens an asymmetric wrap with the principal's
	// private key.
	UnwrapKeyWithPrivateKey(privateKey []byte, blob string) ([]byte, error)

	// WrapKeyUnderKey wraps a symmetric key under a parent symmetric key
	// (org → team, team → project, project → file key).
	WrapKeyUnderKey(parentKey, key []byte) (string, error)

	// UnwrapKeyUnderKey opens a symmetric wrap with the parent key.
	UnwrapKeyUnderKey(parentKey []byte, blob string) ([]byte, error)

	// UnlockProjectKey resolves "can this principal access this project" by
	// walking the chain from the master private key down.
	UnlockProjectKey(masterPrivateKey []byte, access *keychainDomain.ProjectAccess) ([]byte, error)

	// UnlockFileKey opens a file encryption key wrapped under the project key.
	UnlockFileKey(projectKey []byte, encryptedFEK string) ([]byte, error)
}

type keyHierarchy struct{}

// NewKeyHierarchy creates a stateless KeyHierarchy.
func NewKeyHierarchy() KeyHierarchy {
	return &keyHierarchy{}
}

func (h *keyHierarchy) WrapKeyForPublicKey(publicKey, key []byte) (string, error) {
	return cryptoService.EncryptToPublicKeyBase64(publicKey, key)
}

func (h *keyHierarchy) UnwrapKeyWithPrivateKey(privateKey []byte, blob string) ([]byte, error) {
	return cryptoService.DecryptWithPrivateKeyBase64(privateKey, blob)
}

func (h *keyHierarchy) WrapKeyUnderKey(parentKey, key []byte) (string, error) {
	return cryptoService.EncryptWithKeyBase64(parentKey, key)
}

func (h *keyHierarchy) UnwrapKeyUnderKey(parentKey []byte, blob string) ([]byte, error) {
	return cryptoService.DecryptWithKeyBase64(parentKey, blob)
}

// UnlockProjectKey tries the direct team-membership path first (works for
// every team member) and falls back to the organization path (works only for
// org admins/owners holding a wrapped organization key). The order matters: a
// principal might lack a direct team wrap but still be entitled through an
// organization role.
//
// Unwrap failures (wrong key, corrupted blob) propagate as authentication
// failures; a principal with no wrapped copy on either path gets
// ErrNotEntitled.
func (h *keyHierarchy) UnlockProjectKey(
	masterPrivateKey []byte,
	access *keychainDomain.ProjectAccess,
) ([]byte, error) {
	teamKey, err := h.unlockTeamKey(masterPrivateKey, access)
	if err != nil {
		return nil, err
	}

	return h.UnwrapKeyUnderKey(teamKey, access.EncryptedProjectKey)
}

func (h *keyHierarchy) unlockTeamKey(
	masterPrivateKey []byte,
	access *keychainDomain.ProjectAccess,
) ([]byte, error) {
	if access.EncryptedTeamKey != nil {
		return h.UnwrapKeyWithPrivateKey(masterPrivateKey, *access.EncryptedTeamKey)
	}

	if access.EncryptedOrgKey != nil && access.TeamKeyUnderOrg != nil {
		orgKey, err := h.UnwrapKeyWithPrivateKey(masterPrivateKey, *access.EncryptedOrgKey)
		if err != nil {
			return nil, err
		}
		return h.UnwrapKeyUnderKey(orgKey, *access.TeamKeyUnderOrg)
	}

	return nil, keychainDomain.ErrNotEntitled
}

func (h *keyHierarchy) UnlockFileKey(projectKey []byte, encryptedFEK string) ([]byte, error) {
	return h.UnwrapKeyUnderKey(projectKey, encryptedFEK)
}

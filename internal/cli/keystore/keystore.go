// Package keystore persists the CLI's master key material at rest, sealed by
// a gocloud.dev secrets keeper. The keeper URL decides the sealing backend:
// base64key:// for a local scope key, hashivault:// for a Vault transit key.
// The key file on disk is always ciphertext.
package keystore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"gocloud.dev/secrets"
	_ "gocloud.dev/secrets/hashivault"   // hashivault:// keeper scheme
	_ "gocloud.dev/secrets/localsecrets" // base64key:// keeper scheme

	"github.com/allisson/envie/internal/cli/session"
	apperrors "github.com/allisson/envie/internal/errors"
)

// ErrNoKeyFile indicates no sealed key file exists yet at the configured
// path.
var ErrNoKeyFile = apperrors.Wrap(apperrors.ErrNotFound, "no key file")

// Keystore seals and unseals the local key file through a secrets keeper.
type Keystore struct {
	keeper *secrets.Keeper
	path   string
}

// Open connects the keeper behind keeperURL and binds it to the key file at
// path.
func Open(ctx context.Context, keeperURL, path string) (*Keystore, error) {
	keeper, err := secrets.OpenKeeper(ctx, keeperURL)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to open secrets keeper")
	}
	return &Keystore{keeper: keeper, path: path}, nil
}

// Save seals the key material and writes it to the key file. The file is
// created owner-read-write only.
func (k *Keystore) Save(ctx context.Context, material *session.KeyMaterial) error {
	plaintext, err := json.Marshal(material)
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal key material")
	}

	ciphertext, err := k.keeper.Encrypt(ctx, plaintext)
	if err != nil {
		return apperrors.Wrap(err, "failed to seal key material")
	}

	if err := os.MkdirAll(filepath.Dir(k.path), 0o700); err != nil {
		return apperrors.Wrap(err, "failed to create key file directory")
	}
	if err := os.WriteFile(k.path, ciphertext, 0o600); err != nil {
		return apperrors.Wrap(err, "failed to write key file")
	}

	return nil
}

// Load reads and unseals the key file.
func (k *Keystore) Load(ctx context.Context) (*session.KeyMaterial, error) {
	ciphertext, err := os.ReadFile(k.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoKeyFile
		}
		return nil, apperrors.Wrap(err, "failed to read key file")
	}

	plaintext, err := k.keeper.Decrypt(ctx, ciphertext)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to unseal key material")
	}

	var material session.KeyMaterial
	if err := json.Unmarshal(plaintext, &material); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal key material")
	}

	return &material, nil
}

// Close releases the keeper.
func (k *Keystore) Close() error {
	return k.keeper.Close()
}

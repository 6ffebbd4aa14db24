// Package service implements deterministic identity derivation and project
// token generation.
//
// A single high-entropy secret yields three values: a public identity id, a
// one-way digest of that id (the only value the server persists), and an
// X25519 keypair. Determinism is a hard requirement: re-running derivation on
// the same secret must reproduce byte-identical output.
package service

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strings"

	cryptoDomain "github.com/allisson/envie/internal/crypto/domain"
	cryptoService "github.com/allisson/envie/internal/crypto/service"
	apperrors "github.com/allisson/envie/internal/errors"
	identityDomain "github.com/allisson/envie/internal/identity/domain"
)

// IdentityService derives identities from secrets and generates bearer
// credentials in token form.
type IdentityService interface {
	// DeriveIdentity deterministically expands a secret into a derived
	// identity (id, id hash, keypair).
	DeriveIdentity(secret []byte) (*identityDomain.DerivedIdentity, error)

	// GenerateToken creates a fresh project token: the printable token
	// string, its display prefix, and the identity derived from it.
	GenerateToken() (token string, displayPrefix string, identity *identityDomain.DerivedIdentity, err error)

	// ParseToken validates a printable token and returns the raw secret.
	ParseToken(token string) ([]byte, error)

	// HashIdentityID computes the server-side lookup hash for a plaintext
	// hex identity id.
	HashIdentityID(identityID string) (string, error)
}

type identityService struct{}

// NewIdentityService creates a new IdentityService instance.
func NewIdentityService() IdentityService {
	return &identityService{}
}

// DeriveIdentity expands the secret through the system KDF:
//
//	identityID   = hex(KDF(secret, "envie-identity-id", 16))
//	identityHash = hex(SHA-256(raw identity id bytes))
//	privateKey   = KDF(secret, "envie-private-key", 32)
//	publicKey    = X25519(privateKey, basepoint)
func (s *identityService) DeriveIdentity(secret []byte) (*identityDomain.DerivedIdentity, error) {
	identityIDBytes, err := cryptoService.Derive(secret, cryptoDomain.IdentityIDContext, cryptoDomain.IdentityIDSize)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to derive identity id")
	}

	hash := sha256.Sum256(identityIDBytes)

	privateKey, err := cryptoService.Derive(secret, cryptoDomain.PrivateKeyContext, cryptoDomain.KeySize)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to derive private key")
	}

	publicKey, err := cryptoService.PublicKeyFromPrivate(privateKey)
	if err != nil {
		cryptoDomain.Zero(privateKey)
		return nil, err
	}

	return &identityDomain.DerivedIdentity{
		IdentityID:     hex.EncodeToString(identityIDBytes),
		IdentityIDHash: hex.EncodeToString(hash[:]),
		PublicKey:      publicKey,
		PrivateKey:     privateKey,
	}, nil
}

// GenerateToken creates 32 random bytes, encodes them as
// "envie_" + base64url (no padding), and derives the identity behind them.
// The display prefix is the first 3 base64 characters after the fixed prefix.
func (s *identityService) GenerateToken() (string, string, *identityDomain.DerivedIdentity, error) {
	secret := make([]byte, identityDomain.TokenSecretLength)
	if _, err := rand.Read(secret); err != nil {
		return "", "", nil, apperrors.Wrap(err, "failed to generate token secret")
	}

	encoded := base64.RawURLEncoding.EncodeToString(secret)
	token := identityDomain.TokenPrefix + encoded
	displayPrefix := encoded[:identityDomain.TokenDisplayPrefixLength]

	identity, err := s.DeriveIdentity(secret)
	if err != nil {
		return "", "", nil, err
	}

	return token, displayPrefix, identity, nil
}

// ParseToken strips and checks the fixed prefix, decodes the base64url body,
// and checks the secret length. Any deviation is malformed input; decryption
// or derivation is never attempted on a malformed token.
func (s *identityService) ParseToken(token string) ([]byte, error) {
	if !strings.HasPrefix(token, identityDomain.TokenPrefix) {
		return nil, identityDomain.ErrInvalidTokenFormat
	}

	secret, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(token, identityDomain.TokenPrefix))
	if err != nil {
		return nil, identityDomain.ErrInvalidTokenFormat
	}
	if len(secret) != identityDomain.TokenSecretLength {
		return nil, identityDomain.ErrInvalidTokenFormat
	}

	return secret, nil
}

// HashIdentityID decodes the hex identity id and returns
// hex(SHA-256(raw bytes)), matching what DeriveIdentity persisted.
func (s *identityService) HashIdentityID(identityID string) (string, error) {
	identityBytes, err := hex.DecodeString(identityID)
	if err != nil {
		return "", identityDomain.ErrInvalidTokenFormat
	}
	hash := sha256.Sum256(identityBytes)
	return hex.EncodeToString(hash[:]), nil
}

package service

import (
	"crypto/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptoService "github.com/allisson/envie/internal/crypto/service"
	identityDomain "github.com/allisson/envie/internal/identity/domain"
)

func TestDeriveIdentity_Deterministic(t *testing.T) {
	svc := NewIdentityService()

	// Property: for all secrets, derivation called twice yields byte-identical
	// identity id, hash, private key, and public key.
	for i := 0; i < 50; i++ {
		secret := make([]byte, identityDomain.TokenSecretLength)
		_, err := rand.Read(secret)
		require.NoError(t, err)

		first, err := svc.DeriveIdentity(secret)
		require.NoError(t, err)
		second, err := svc.DeriveIdentity(secret)
		require.NoError(t, err)

		assert.Equal(t, first.IdentityID, second.IdentityID)
		assert.Equal(t, first.IdentityIDHash, second.IdentityIDHash)
		assert.Equal(t, first.PrivateKey, second.PrivateKey)
		assert.Equal(t, first.PublicKey, second.PublicKey)
	}
}

func TestDeriveIdentity_DistinctSecrets(t *testing.T) {
	svc := NewIdentityService()

	a, err := svc.DeriveIdentity([]byte("secret-a"))
	require.NoError(t, err)
	b, err := svc.DeriveIdentity([]byte("secret-b"))
	require.NoError(t, err)

	assert.NotEqual(t, a.IdentityID, b.IdentityID)
	assert.NotEqual(t, a.IdentityIDHash, b.IdentityIDHash)
	assert.NotEqual(t, a.PrivateKey, b.PrivateKey)
}

func TestDeriveIdentity_Shape(t *testing.T) {
	svc := NewIdentityService()

	identity, err := svc.DeriveIdentity([]byte("some secret"))
	require.NoError(t, err)

	assert.Len(t, identity.IdentityID, 32, "16 bytes hex-encoded")
	assert.Len(t, identity.IdentityIDHash, 64, "SHA-256 hex-encoded")
	assert.Len(t, identity.PrivateKey, 32)
	assert.Len(t, identity.PublicKey, 32)

	// The persisted hash must match recomputing it from the public id.
	recomputed, err := svc.HashIdentityID(identity.IdentityID)
	require.NoError(t, err)
	assert.Equal(t, identity.IdentityIDHash, recomputed)
}

func TestGenerateToken(t *testing.T) {
	svc := NewIdentityService()

	token, displayPrefix, identity, err := svc.GenerateToken()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(token, identityDomain.TokenPrefix))
	assert.NotContains(t, token, "=", "base64url without padding")
	assert.Len(t, displayPrefix, identityDomain.TokenDisplayPrefixLength)
	assert.Equal(t, strings.TrimPrefix(token, identityDomain.TokenPrefix)[:3], displayPrefix)

	// Round trip: parsing the token and re-deriving must land on the same
	// identity, so the CLI can authenticate with nothing but the token.
	secret, err := svc.ParseToken(token)
	require.NoError(t, err)

	rederived, err := svc.DeriveIdentity(secret)
	require.NoError(t, err)
	assert.Equal(t, identity.IdentityID, rederived.IdentityID)
	assert.Equal(t, identity.IdentityIDHash, rederived.IdentityIDHash)
	assert.Equal(t, identity.PrivateKey, rederived.PrivateKey)
}

func TestGenerateToken_KeypairUsable(t *testing.T) {
	svc := NewIdentityService()

	_, _, identity, err := svc.GenerateToken()
	require.NoError(t, err)

	// A project key wrapped to the derived public key must open with the
	// derived private key.
	projectKey, err := cryptoService.GenerateKey()
	require.NoError(t, err)

	wrapped, err := cryptoService.EncryptToPublicKey(identity.PublicKey, projectKey)
	require.NoError(t, err)

	unwrapped, err := cryptoService.DecryptWithPrivateKey(identity.PrivateKey, wrapped)
	require.NoError(t, err)
	assert.Equal(t, projectKey, unwrapped)
}

func TestParseToken_Invalid(t *testing.T) {
	svc := NewIdentityService()

	tests := []struct {
		name  string
		token string
	}{
		{"MissingPrefix", "abcdef"},
		{"WrongPrefix", "other_AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"},
		{"InvalidBase64", identityDomain.TokenPrefix + "!!!not-base64!!!"},
		{"TooShort", identityDomain.TokenPrefix + "AAAA"},
		{"Empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ParseToken(tt.token)
			assert.ErrorIs(t, err, identityDomain.ErrInvalidTokenFormat)
		})
	}
}

func TestHashIdentityID_InvalidHex(t *testing.T) {
	svc := NewIdentityService()

	_, err := svc.HashIdentityID("not-hex")
	assert.ErrorIs(t, err, identityDomain.ErrInvalidTokenFormat)
}

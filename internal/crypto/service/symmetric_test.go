package service

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/allisson/envie/internal/crypto/domain"
)

func TestEncryptWithKey_RoundTrip(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)

	plaintexts := [][]byte{
		[]byte("DATABASE_URL=postgres://localhost"),
		{}, // empty config values are legal
		[]byte{0x00, 0x01, 0x02},
	}

	for _, plaintext := range plaintexts {
		blob, err := EncryptWithKey(key, plaintext)
		require.NoError(t, err)

		// Even empty values must carry a full nonce and tag.
		assert.GreaterOrEqual(t, len(blob), cryptoDomain.MinSymmetricSize)

		decrypted, err := DecryptWithKey(key, blob)
		require.NoError(t, err)
		assert.Equal(t, plaintext, append([]byte{}, decrypted...))
	}
}

func TestDecryptWithKey_WrongKey(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)
	otherKey, err := GenerateKey()
	require.NoError(t, err)

	blob, err := EncryptWithKey(key, []byte("secret"))
	require.NoError(t, err)

	_, err = DecryptWithKey(otherKey, blob)
	assert.ErrorIs(t, err, cryptoDomain.ErrAuthenticationFailed)
}

func TestDecryptWithKey_TamperDetection(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)

	blob, err := EncryptWithKey(key, []byte("tamper target"))
	require.NoError(t, err)

	for i := 0; i < len(blob); i++ {
		for bit := 0; bit < 8; bit++ {
			tampered := append([]byte{}, blob...)
			tampered[i] ^= 1 << bit

			_, err := DecryptWithKey(key, tampered)
			assert.ErrorIs(t, err, cryptoDomain.ErrAuthenticationFailed,
				"bit flip at byte %d bit %d went undetected", i, bit)
		}
	}
}

func TestDecryptWithKey_MinimumSize(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)

	for size := 0; size < cryptoDomain.MinSymmetricSize; size++ {
		blob := make([]byte, size)
		_, err := rand.Read(blob)
		require.NoError(t, err)

		_, err = DecryptWithKey(key, blob)
		assert.ErrorIs(t, err, cryptoDomain.ErrMalformedInput)
	}
}

func TestDecryptWithKey_InvalidKeySize(t *testing.T) {
	_, err := DecryptWithKey([]byte("short"), make([]byte, cryptoDomain.MinSymmetricSize))
	assert.ErrorIs(t, err, cryptoDomain.ErrInvalidKeySize)

	_, err = EncryptWithKey(make([]byte, 16), []byte("x"))
	assert.ErrorIs(t, err, cryptoDomain.ErrInvalidKeySize)
}

func TestDecryptWithKeyBase64_InvalidBase64(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)

	_, err = DecryptWithKeyBase64(key, "%%%")
	assert.ErrorIs(t, err, cryptoDomain.ErrMalformedInput)
}

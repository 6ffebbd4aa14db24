package service

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"

	"golang.org/x/crypto/curve25519"

	cryptoDomain "github.com/allisson/envie/internal/crypto/domain"
	apperrors "github.com/allisson/envie/internal/errors"
)

// EncryptToPublicKey encrypts plaintext so that only the holder of the
// matching private key can read it.
//
// A fresh ephemeral X25519 keypair is generated per call; the shared secret
// from the ECDH exchange with the receiver's public key is expanded into an
// AES-256 key via HKDF, and the plaintext is sealed under AES-256-GCM with a
// random nonce.
//
// Output layout: ephemeral_public_key(32) || nonce(12) || ciphertext+tag.
func EncryptToPublicKey(receiverPublicKey, plaintext []byte) ([]byte, error) {
	if len(receiverPublicKey) != cryptoDomain.KeySize {
		return nil, cryptoDomain.ErrInvalidKeySize
	}

	ephemeralPrivate := make([]byte, cryptoDomain.KeySize)
	if _, err := rand.Read(ephemeralPrivate); err != nil {
		return nil, apperrors.Wrap(err, "failed to generate ephemeral key")
	}
	defer cryptoDomain.Zero(ephemeralPrivate)

	ephemeralPublic, err := curve25519.X25519(ephemeralPrivate, curve25519.Basepoint)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to derive ephemeral public key")
	}

	sharedSecret, err := curve25519.X25519(ephemeralPrivate, receiverPublicKey)
	if err != nil {
		return nil, apperrors.Wrap(err, "X25519 key exchange failed")
	}
	defer cryptoDomain.Zero(sharedSecret)

	envelopeKey, err := deriveEnvelopeKey(sharedSecret)
	if err != nil {
		return nil, err
	}
	defer cryptoDomain.Zero(envelopeKey)

	nonce := make([]byte, cryptoDomain.NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, apperrors.Wrap(err, "failed to generate nonce")
	}

	aead, err := newGCM(envelopeKey)
	if err != nil {
		return nil, err
	}

	result := make([]byte, 0, len(ephemeralPublic)+len(nonce)+len(plaintext)+cryptoDomain.TagSize)
	result = append(result, ephemeralPublic...)
	result = append(result, nonce...)
	result = aead.Seal(result, nonce, plaintext, nil)

	return result, nil
}

// DecryptWithPrivateKey is the mirror of EncryptToPublicKey: it recomputes the
// shared secret from the receiver's private key and the embedded ephemeral
// public key, re-derives the envelope key, and opens the AEAD payload.
//
// Blobs shorter than the minimum envelope size are rejected as malformed
// without attempting decryption. A tag verification failure (wrong key or
// tampered ciphertext, indistinguishable by design) yields
// ErrAuthenticationFailed.
func DecryptWithPrivateKey(privateKey, blob []byte) ([]byte, error) {
	if len(privateKey) != cryptoDomain.KeySize {
		return nil, cryptoDomain.ErrInvalidKeySize
	}
	if len(blob) < cryptoDomain.MinAsymmetricSize {
		return nil, cryptoDomain.ErrMalformedInput
	}

	ephemeralPublic := blob[:cryptoDomain.EphemeralPublicKeySize]
	nonce := blob[cryptoDomain.EphemeralPublicKeySize : cryptoDomain.EphemeralPublicKeySize+cryptoDomain.NonceSize]
	ciphertext := blob[cryptoDomain.EphemeralPublicKeySize+cryptoDomain.NonceSize:]

	sharedSecret, err := curve25519.X25519(privateKey, ephemeralPublic)
	if err != nil {
		return nil, apperrors.Wrap(err, "X25519 key exchange failed")
	}
	defer cryptoDomain.Zero(sharedSecret)

	envelopeKey, err := deriveEnvelopeKey(sharedSecret)
	if err != nil {
		return nil, err
	}
	defer cryptoDomain.Zero(envelopeKey)

	aead, err := newGCM(envelopeKey)
	if err != nil {
		return nil, err
	}

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, cryptoDomain.ErrAuthenticationFailed
	}

	return plaintext, nil
}

// EncryptToPublicKeyBase64 encrypts and returns the blob as standard base64,
// the encoding used for every wrapped key persisted server-side.
func EncryptToPublicKeyBase64(receiverPublicKey, plaintext []byte) (string, error) {
	blob, err := EncryptToPublicKey(receiverPublicKey, plaintext)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(blob), nil
}

// DecryptWithPrivateKeyBase64 decodes a standard base64 blob and decrypts it.
// Invalid base64 is reported as malformed input.
func DecryptWithPrivateKeyBase64(privateKey []byte, blobBase64 string) ([]byte, error) {
	blob, err := base64.StdEncoding.DecodeString(blobBase64)
	if err != nil {
		return nil, cryptoDomain.ErrMalformedInput
	}
	return DecryptWithPrivateKey(privateKey, blob)
}

// newGCM builds the canonical AEAD: AES-256-GCM with a 96-bit nonce.
func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to create cipher")
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to create GCM")
	}
	return aead, nil
}

package service

import (
	"crypto/rand"
	"encoding/base64"

	cryptoDomain "github.com/allisson/envie/internal/crypto/domain"
	apperrors "github.com/allisson/envie/internal/errors"
)

// EncryptWithKey seals plaintext under a previously-derived 32-byte symmetric
// key using AES-256-GCM.
//
// Output layout: nonce(12) || ciphertext+tag. A zero-length plaintext is
// legal and still produces a blob of at least 28 bytes (nonce + tag).
func EncryptWithKey(key, plaintext []byte) ([]byte, error) {
	if len(key) != cryptoDomain.KeySize {
		return nil, cryptoDomain.ErrInvalidKeySize
	}

	nonce := make([]byte, cryptoDomain.NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, apperrors.Wrap(err, "failed to generate nonce")
	}

	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	result := make([]byte, 0, len(nonce)+len(plaintext)+cryptoDomain.TagSize)
	result = append(result, nonce...)
	result = aead.Seal(result, nonce, plaintext, nil)

	return result, nil
}

// DecryptWithKey opens a blob produced by EncryptWithKey.
//
// Blobs shorter than nonce+tag are rejected as malformed without attempting
// decryption; a tag mismatch yields ErrAuthenticationFailed.
func DecryptWithKey(key, blob []byte) ([]byte, error) {
	if len(key) != cryptoDomain.KeySize {
		return nil, cryptoDomain.ErrInvalidKeySize
	}
	if len(blob) < cryptoDomain.MinSymmetricSize {
		return nil, cryptoDomain.ErrMalformedInput
	}

	nonce := blob[:cryptoDomain.NonceSize]
	ciphertext := blob[cryptoDomain.NonceSize:]

	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, cryptoDomain.ErrAuthenticationFailed
	}

	return plaintext, nil
}

// EncryptWithKeyBase64 encrypts and returns the blob as standard base64.
func EncryptWithKeyBase64(key, plaintext []byte) (string, error) {
	blob, err := EncryptWithKey(key, plaintext)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(blob), nil
}

// DecryptWithKeyBase64 decodes a standard base64 blob and decrypts it.
func DecryptWithKeyBase64(key []byte, blobBase64 string) ([]byte, error) {
	blob, err := base64.StdEncoding.DecodeString(blobBase64)
	if err != nil {
		return nil, cryptoDomain.ErrMalformedInput
	}
	return DecryptWithKey(key, blob)
}

// GenerateKey creates a fresh random 32-byte symmetric key.
func GenerateKey() ([]byte, error) {
	key := make([]byte, cryptoDomain.KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, apperrors.Wrap(err, "failed to generate key")
	}
	return key, nil
}

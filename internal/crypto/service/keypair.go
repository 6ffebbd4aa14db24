package service

import (
	"crypto/rand"

	"golang.org/x/crypto/curve25519"

	cryptoDomain "github.com/allisson/envie/internal/crypto/domain"
	apperrors "github.com/allisson/envie/internal/errors"
)

// GenerateKeypair creates a fresh random X25519 keypair.
//
// The private key is 32 random bytes; the public key is the scalar
// multiplication of the private key with the curve base point.
func GenerateKeypair() (*cryptoDomain.Keypair, error) {
	privateKey := make([]byte, cryptoDomain.KeySize)
	if _, err := rand.Read(privateKey); err != nil {
		return nil, apperrors.Wrap(err, "failed to generate private key")
	}

	publicKey, err := PublicKeyFromPrivate(privateKey)
	if err != nil {
		cryptoDomain.Zero(privateKey)
		return nil, err
	}

	return &cryptoDomain.Keypair{PublicKey: publicKey, PrivateKey: privateKey}, nil
}

// PublicKeyFromPrivate computes the X25519 public key for a private key.
func PublicKeyFromPrivate(privateKey []byte) ([]byte, error) {
	if len(privateKey) != cryptoDomain.KeySize {
		return nil, cryptoDomain.ErrInvalidKeySize
	}

	publicKey, err := curve25519.X25519(privateKey, curve25519.Basepoint)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to derive public key")
	}
	return publicKey, nil
}

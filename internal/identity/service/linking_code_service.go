package service

import (
	"crypto/rand"
	"encoding/base64"

	"github.com/allisson/go-pwdhash"

	apperrors "github.com/allisson/envie/internal/errors"
)

// LinkingCodeService generates and verifies device linking codes.
//
// Codes are random, single-use values shown to the user on an approved device
// and typed into the new one. They are stored hashed with Argon2id so a
// database read cannot redeem a code.
type LinkingCodeService interface {
	// GenerateCode returns a printable linking code and its hash for storage.
	GenerateCode() (plainCode string, codeHash string, err error)

	// VerifyCode performs a constant-time comparison of a plain code against
	// its stored hash.
	VerifyCode(plainCode string, codeHash string) bool
}

type linkingCodeService struct {
	hasher *pwdhash.PasswordHasher
}

// NewLinkingCodeService creates a LinkingCodeService using Argon2id hashing.
// The interactive policy keeps verification fast enough for a UI prompt.
func NewLinkingCodeService() (LinkingCodeService, error) {
	hasher, err := pwdhash.New(pwdhash.WithPolicy(pwdhash.PolicyInteractive))
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to create hasher")
	}
	return &linkingCodeService{hasher: hasher}, nil
}

func (s *linkingCodeService) GenerateCode() (string, string, error) {
	randomBytes := make([]byte, 16)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", "", apperrors.Wrap(err, "failed to generate linking code")
	}

	plainCode := base64.RawURLEncoding.EncodeToString(randomBytes)

	codeHash, err := s.hasher.Hash([]byte(plainCode))
	if err != nil {
		return "", "", apperrors.Wrap(err, "failed to hash linking code")
	}

	return plainCode, codeHash, nil
}

func (s *linkingCodeService) VerifyCode(plainCode string, codeHash string) bool {
	ok, err := s.hasher.Verify([]byte(plainCode), codeHash)
	if err != nil {
		return false
	}
	return ok
}

// Package session models the CLI's unlocked key material explicitly: locked
// means absent, unlocked means present with an expiry. There is no ambient
// singleton; callers hold a Session and ask it for material on every use.
package session

import (
	"sync"
	"time"

	cryptoDomain "github.com/allisson/envie/internal/crypto/domain"
	apperrors "github.com/allisson/envie/internal/errors"
)

// ErrLocked indicates no unlocked key material is available, either because
// the session was never unlocked or because its expiry elapsed.
var ErrLocked = apperrors.Wrap(apperrors.ErrUnauthorized, "session is locked")

// KeyMaterial is the client-side master identity state. The private key never
// leaves the process unencrypted.
type KeyMaterial struct {
	MasterPrivateKey []byte `json:"master_private_key"`
	MasterPublicKey  []byte `json:"master_public_key"`
	MasterKeyVersion int    `json:"master_key_version"`
}

// Zero wipes the private key bytes.
func (m *KeyMaterial) Zero() {
	cryptoDomain.Zero(m.MasterPrivateKey)
}

// Session holds unlocked key material until its TTL elapses or Lock is
// called. Safe for concurrent use.
type Session struct {
	mu        sync.Mutex
	material  *KeyMaterial
	expiresAt time.Time
	ttl       time.Duration
	now       func() time.Time
}

// NewSession creates a locked session with the given unlock TTL.
func NewSession(ttl time.Duration) *Session {
	return &Session{
		ttl: ttl,
		now: time.Now,
	}
}

// Unlock stores key material and starts the expiry clock. Material already
// held is wiped first.
func (s *Session) Unlock(material *KeyMaterial) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.material != nil {
		s.material.Zero()
	}
	s.material = material
	s.expiresAt = s.now().Add(s.ttl)
}

// Get returns the unlocked key material, locking the session first when the
// expiry has elapsed.
func (s *Session) Get() (*KeyMaterial, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.material == nil {
		return nil, ErrLocked
	}
	if s.now().After(s.expiresAt) {
		s.material.Zero()
		s.material = nil
		return nil, ErrLocked
	}

	return s.material, nil
}

// Lock wipes and drops the key material.
func (s *Session) Lock() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.material != nil {
		s.material.Zero()
		s.material = nil
	}
}

// Unlocked reports whether unexpired key material is held.
func (s *Session) Unlocked() bool {
	_, err := s.Get()
	return err == nil
}

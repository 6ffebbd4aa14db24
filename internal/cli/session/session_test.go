package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func material() *KeyMaterial {
	return &KeyMaterial{
		MasterPrivateKey: []byte{1, 2, 3, 4},
		MasterPublicKey:  []byte{5, 6, 7, 8},
		MasterKeyVersion: 1,
	}
}

func TestSession_LockedByDefault(t *testing.T) {
	s := NewSession(time.Minute)

	got, err := s.Get()
	assert.Nil(t, got)
	assert.ErrorIs(t, err, ErrLocked)
	assert.False(t, s.Unlocked())
}

func TestSession_UnlockThenGet(t *testing.T) {
	s := NewSession(time.Minute)
	s.Unlock(material())

	got, err := s.Get()
	require.NoError(t, err)
	assert.Equal(t, 1, got.MasterKeyVersion)
	assert.True(t, s.Unlocked())
}

func TestSession_ExpiryLocks(t *testing.T) {
	s := NewSession(time.Minute)
	s.Unlock(material())

	now := time.Now()
	s.now = func() time.Time { return now.Add(2 * time.Minute) }

	got, err := s.Get()
	assert.Nil(t, got)
	assert.ErrorIs(t, err, ErrLocked)
}

func TestSession_ExpiryWipesPrivateKey(t *testing.T) {
	s := NewSession(time.Minute)
	m := material()
	s.Unlock(m)

	now := time.Now()
	s.now = func() time.Time { return now.Add(2 * time.Minute) }

	_, err := s.Get()
	require.ErrorIs(t, err, ErrLocked)
	assert.Equal(t, []byte{0, 0, 0, 0}, m.MasterPrivateKey)
}

func TestSession_LockWipes(t *testing.T) {
	s := NewSession(time.Minute)
	m := material()
	s.Unlock(m)

	s.Lock()

	assert.Equal(t, []byte{0, 0, 0, 0}, m.MasterPrivateKey)
	assert.False(t, s.Unlocked())
}

func TestSession_UnlockReplacesAndWipesPrevious(t *testing.T) {
	s := NewSession(time.Minute)
	old := material()
	s.Unlock(old)

	replacement := &KeyMaterial{
		MasterPrivateKey: []byte{9, 9},
		MasterKeyVersion: 2,
	}
	s.Unlock(replacement)

	assert.Equal(t, []byte{0, 0, 0, 0}, old.MasterPrivateKey)

	got, err := s.Get()
	require.NoError(t, err)
	assert.Equal(t, 2, got.MasterKeyVersion)
}

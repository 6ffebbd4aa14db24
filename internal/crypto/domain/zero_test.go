package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestZero(t *testing.T) {
	t.Run("ClearsAllBytes", func(t *testing.T) {
		b := []byte{1, 2, 3, 4, 5}
		Zero(b)
		assert.Equal(t, []byte{0, 0, 0, 0, 0}, b)
	})

	t.Run("NilSliceIsNoOp", func(t *testing.T) {
		assert.NotPanics(t, func() { Zero(nil) })
	})

	t.Run("EmptySliceIsNoOp", func(t *testing.T) {
		assert.NotPanics(t, func() { Zero([]byte{}) })
	})
}

func TestKeypairZero(t *testing.T) {
	kp := &Keypair{
		PublicKey:  []byte{1, 2, 3},
		PrivateKey: []byte{4, 5, 6},
	}
	kp.Zero()

	assert.Equal(t, []byte{0, 0, 0}, kp.PrivateKey)
	assert.Equal(t, []byte{1, 2, 3}, kp.PublicKey, "public key is not sensitive")
}

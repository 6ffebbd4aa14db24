// Package domain defines the key hierarchy model.
//
// The chain runs master identity key → organization key → team key →
// project key → file/config keys. Each layer is wrapped under its parent:
// asymmetrically when the parent is a keypair, symmetrically when the parent
// is itself a symmetric key.
package domain

import (
	"github.com/allisson/envie/internal/errors"
)

var (
	// ErrNotEntitled indicates no wrapped copy of a key exists for this
	// principal at this layer. Deliberately distinct from an authentication
	// failure so callers can surface "request access" rather than
	// "corrupted data".
	ErrNotEntitled = errors.Wrap(errors.ErrForbidden, "no wrapped key for this principal")
)

package domain

import (
	"github.com/allisson/envie/internal/errors"
)

// Identity and device registry error definitions.
var (
	// ErrDeviceNotFound indicates the device does not exist for this user.
	ErrDeviceNotFound = errors.Wrap(errors.ErrNotFound, "device not found")

	// ErrDeviceAlreadyApproved indicates an approval was attempted on a
	// device that already holds a wrapped master key.
	ErrDeviceAlreadyApproved = errors.Wrap(errors.ErrConflict, "device already approved")

	// ErrUserKeyNotFound indicates no master public key is registered for the user.
	ErrUserKeyNotFound = errors.Wrap(errors.ErrNotFound, "user key not found")

	// ErrTokenNotFound indicates no project token matches the identity hash.
	ErrTokenNotFound = errors.Wrap(errors.ErrUnauthorized, "invalid or unknown token")

	// ErrTokenExpired indicates the project token's TTL has elapsed.
	ErrTokenExpired = errors.Wrap(errors.ErrUnauthorized, "token has expired")

	// ErrInvalidTokenFormat indicates the token is missing the fixed prefix,
	// has the wrong length, or is not valid base64url.
	ErrInvalidTokenFormat = errors.Wrap(errors.ErrInvalidInput, "invalid token format")

	// ErrLinkingCodeInvalid indicates the linking code is unknown, already
	// used, or expired. The three causes are not distinguished.
	ErrLinkingCodeInvalid = errors.Wrap(errors.ErrUnauthorized, "invalid linking code")

	// ErrRotationBundleIncomplete indicates a master key rotation bundle is
	// missing a wrap for an approved device or a team membership. The whole
	// bundle is rejected; nothing is applied.
	ErrRotationBundleIncomplete = errors.Wrap(errors.ErrInvalidInput, "rotation bundle incomplete")

	// ErrMasterKeyVersionConflict indicates the bundle was built against a
	// master key version that is no longer current.
	ErrMasterKeyVersionConflict = errors.Wrap(errors.ErrConflict, "master key version conflict")
)

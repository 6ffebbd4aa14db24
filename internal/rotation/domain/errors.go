package domain

import (
	"github.com/allisson/envie/internal/errors"
)

var (
	// ErrRotationNotFound indicates no rotation matches the lookup.
	ErrRotationNotFound = errors.Wrap(errors.ErrNotFound, "rotation not found")

	// ErrRotationConflict indicates a pending rotation already exists for the
	// project. Only one proposal may be in flight at a time.
	ErrRotationConflict = errors.Wrap(errors.ErrConflict, "a pending rotation already exists for this project")

	// ErrRotationFinalized indicates the rotation reached a terminal state and
	// cannot transition again.
	ErrRotationFinalized = errors.Wrap(errors.ErrConflict, "rotation is already finalized")

	// ErrRotationExpired indicates the actionable window closed before a
	// decision was reached.
	ErrRotationExpired = errors.Wrap(errors.ErrExpired, "rotation expired")

	// ErrRotationStale indicates the project config changed after the snapshot
	// was taken; committing it would silently destroy the newer writes.
	ErrRotationStale = errors.Wrap(errors.ErrConflict, "rotation snapshot is stale")

	// ErrAlreadyVoted indicates the user already cast a vote on this rotation.
	ErrAlreadyVoted = errors.Wrap(errors.ErrConflict, "user already voted on this rotation")

	// ErrSelfApproval indicates the initiator tried to approve their own
	// proposal.
	ErrSelfApproval = errors.Wrap(errors.ErrForbidden, "initiator cannot approve their own rotation")

	// ErrNotInitiator indicates someone other than the initiator tried to
	// cancel the rotation.
	ErrNotInitiator = errors.Wrap(errors.ErrForbidden, "only the initiator can cancel a rotation")

	// ErrSnapshotIncomplete indicates the proposed snapshot does not cover
	// every live config item, team grant and file key.
	ErrSnapshotIncomplete = errors.Wrap(errors.ErrInvalidInput, "rotation snapshot does not cover current project state")
)

package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/envie/internal/checksum"
	"github.com/allisson/envie/internal/database"
	apperrors "github.com/allisson/envie/internal/errors"
	projectDomain "github.com/allisson/envie/internal/project/domain"
	rotationDomain "github.com/allisson/envie/internal/rotation/domain"
)

// rotationUseCase implements the RotationUseCase interface.
type rotationUseCase struct {
	txManager database.TxManager
	rotations RotationRepository
	projects  ProjectRepository
	items     ConfigItemRepository
	files     FileRepository
	teams     TeamRepository
	tokens    ProjectTokenRepository
}

// Initiate validates a rotation proposal and persists it as pending. The
// project row is locked for the whole transaction, serializing concurrent
// initiations; one pending rotation per project is the invariant.
func (r *rotationUseCase) Initiate(
	ctx context.Context,
	input *rotationDomain.InitiateInput,
) (*rotationDomain.PendingKeyRotation, error) {
	var rotation *rotationDomain.PendingKeyRotation

	err := r.txManager.WithTx(ctx, func(txCtx context.Context) error {
		project, err := r.projects.GetByIDForUpdate(txCtx, input.ProjectID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()

		// An existing pending rotation blocks a new one unless it is overdue,
		// in which case it is expired lazily right here.
		existing, err := r.rotations.GetPendingByProject(txCtx, input.ProjectID)
		if err != nil && !apperrors.Is(err, rotationDomain.ErrRotationNotFound) {
			return err
		}
		if existing != nil {
			if !existing.IsExpired(now) {
				return rotationDomain.ErrRotationConflict
			}
			if err := r.rotations.UpdateStatusIf(
				txCtx, existing.ID, rotationDomain.StatusPending, rotationDomain.StatusExpired,
			); err != nil {
				return err
			}
		}

		liveItems, err := r.items.ListByProject(txCtx, input.ProjectID)
		if err != nil {
			return err
		}
		liveChecksum := computeChecksum(liveItems)

		// The client built the snapshot against ExpectedChecksum; if config
		// changed since, the proposal is stale before it starts.
		if input.ExpectedChecksum != liveChecksum {
			return rotationDomain.ErrRotationStale
		}

		liveGrants, err := r.teams.ListTeamProjects(txCtx, input.ProjectID)
		if err != nil {
			return err
		}

		liveFiles, err := r.files.ListByProject(txCtx, input.ProjectID)
		if err != nil {
			return err
		}

		if err := validateCoverage(input, liveItems, liveGrants, liveFiles); err != nil {
			return err
		}

		required := input.RequiredApprovals
		admins, err := r.teams.CountProjectAdmins(txCtx, input.ProjectID)
		if err != nil {
			return err
		}
		if admins <= 1 {
			// No second approver exists; waiting would deadlock the project.
			required = 0
		}

		ttl := input.TTL
		if ttl <= 0 {
			ttl = rotationDomain.DefaultTTL
		}

		rotation = &rotationDomain.PendingKeyRotation{
			ID:                uuid.Must(uuid.NewV7()),
			ProjectID:         input.ProjectID,
			InitiatedBy:       input.InitiatedBy,
			NewKeyVersion:     project.KeyVersion + 1,
			Status:            rotationDomain.StatusPending,
			RequiredApprovals: required,
			ConfigChecksum:    liveChecksum,
			ExpiresAt:         now.Add(ttl),
			ConfigItems:       input.ConfigItems,
			TeamKeys:          input.TeamKeys,
			FileKeys:          input.FileKeys,
			CreatedAt:         now,
			UpdatedAt:         now,
		}

		if err := r.rotations.Create(txCtx, rotation); err != nil {
			return err
		}

		if required == 0 {
			return r.commit(txCtx, rotation, liveItems)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return rotation, nil
}

// Approve casts a positive vote. The rotation and project rows are locked
// for the whole transaction so the drift check and the commit see the same
// config state.
func (r *rotationUseCase) Approve(
	ctx context.Context,
	rotationID, userID uuid.UUID,
	comment string,
	verifiedDecryption bool,
) (*rotationDomain.PendingKeyRotation, error) {
	var (
		rotation *rotationDomain.PendingKeyRotation
		softErr  error
	)

	err := r.txManager.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		rotation, err = r.loadActionable(txCtx, rotationID, &softErr)
		if err != nil || rotation == nil {
			return err
		}

		if rotation.InitiatedBy == userID {
			return rotationDomain.ErrSelfApproval
		}
		if rotation.HasVoted(userID) {
			return rotationDomain.ErrAlreadyVoted
		}

		isAdmin, err := r.teams.IsProjectAdmin(txCtx, rotation.ProjectID, userID)
		if err != nil {
			return err
		}
		if !isAdmin {
			return apperrors.Wrap(apperrors.ErrForbidden, "approver is not a project admin")
		}

		// Lock the project row and recompute the live checksum under it. Any
		// config write since the snapshot makes the re-encrypted values wrong
		// and the rotation dies as stale instead of destroying newer data.
		// The stale mark must survive this transaction, so it is committed
		// and the failure surfaces afterwards.
		if _, err := r.projects.GetByIDForUpdate(txCtx, rotation.ProjectID); err != nil {
			return err
		}
		liveItems, err := r.items.ListByProject(txCtx, rotation.ProjectID)
		if err != nil {
			return err
		}
		if checksum.HasDrifted(rotation.ConfigChecksum, computeChecksum(liveItems)) {
			if err := r.transition(txCtx, rotation, rotationDomain.EventDriftDetected); err != nil {
				return err
			}
			softErr = rotationDomain.ErrRotationStale
			return nil
		}

		approval := &rotationDomain.KeyRotationApproval{
			ID:                 uuid.Must(uuid.NewV7()),
			RotationID:         rotation.ID,
			UserID:             userID,
			Approved:           true,
			VerifiedDecryption: verifiedDecryption,
			Comment:            comment,
			CreatedAt:          time.Now().UTC(),
		}
		if err := r.rotations.CreateApproval(txCtx, approval); err != nil {
			return err
		}
		rotation.Approvals = append(rotation.Approvals, approval)

		if rotation.ApprovalCount() >= rotation.RequiredApprovals {
			return r.commit(txCtx, rotation, liveItems)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}
	if softErr != nil {
		return nil, softErr
	}

	return rotation, nil
}

// Reject casts a veto; a single rejection finalizes the rotation.
func (r *rotationUseCase) Reject(
	ctx context.Context,
	rotationID, userID uuid.UUID,
	comment string,
	verifiedDecryption bool,
) (*rotationDomain.PendingKeyRotation, error) {
	var (
		rotation *rotationDomain.PendingKeyRotation
		softErr  error
	)

	err := r.txManager.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		rotation, err = r.loadActionable(txCtx, rotationID, &softErr)
		if err != nil || rotation == nil {
			return err
		}

		if rotation.HasVoted(userID) {
			return rotationDomain.ErrAlreadyVoted
		}

		isAdmin, err := r.teams.IsProjectAdmin(txCtx, rotation.ProjectID, userID)
		if err != nil {
			return err
		}
		if !isAdmin {
			return apperrors.Wrap(apperrors.ErrForbidden, "approver is not a project admin")
		}

		approval := &rotationDomain.KeyRotationApproval{
			ID:                 uuid.Must(uuid.NewV7()),
			RotationID:         rotation.ID,
			UserID:             userID,
			Approved:           false,
			VerifiedDecryption: verifiedDecryption,
			Comment:            comment,
			CreatedAt:          time.Now().UTC(),
		}
		if err := r.rotations.CreateApproval(txCtx, approval); err != nil {
			return err
		}
		rotation.Approvals = append(rotation.Approvals, approval)

		return r.transition(txCtx, rotation, rotationDomain.EventRejected)
	})
	if err != nil {
		return nil, err
	}
	if softErr != nil {
		return nil, softErr
	}

	return rotation, nil
}

// Cancel withdraws a pending proposal. Only the initiator may cancel, and
// only before anyone voted.
func (r *rotationUseCase) Cancel(
	ctx context.Context,
	rotationID, userID uuid.UUID,
) (*rotationDomain.PendingKeyRotation, error) {
	var (
		rotation *rotationDomain.PendingKeyRotation
		softErr  error
	)

	err := r.txManager.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		rotation, err = r.loadActionable(txCtx, rotationID, &softErr)
		if err != nil || rotation == nil {
			return err
		}

		if rotation.InitiatedBy != userID {
			return rotationDomain.ErrNotInitiator
		}
		if len(rotation.Approvals) > 0 {
			return apperrors.Wrap(apperrors.ErrConflict, "rotation already has votes")
		}

		return r.transition(txCtx, rotation, rotationDomain.EventCancelled)
	})
	if err != nil {
		return nil, err
	}
	if softErr != nil {
		return nil, softErr
	}

	return rotation, nil
}

// GetPending returns the project's pending rotation, expiring it lazily when
// the window has closed.
func (r *rotationUseCase) GetPending(
	ctx context.Context,
	projectID uuid.UUID,
) (*rotationDomain.PendingKeyRotation, error) {
	rotation, err := r.rotations.GetPendingByProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	if rotation.IsExpired(time.Now().UTC()) {
		err := r.rotations.UpdateStatusIf(
			ctx, rotation.ID, rotationDomain.StatusPending, rotationDomain.StatusExpired,
		)
		if err != nil && !apperrors.Is(err, rotationDomain.ErrRotationFinalized) {
			return nil, err
		}
		rotation.Status = rotationDomain.StatusExpired
	}

	return rotation, nil
}

// ListPendingForUser returns pending rotations awaiting the user's vote.
func (r *rotationUseCase) ListPendingForUser(
	ctx context.Context,
	userID uuid.UUID,
) ([]*rotationDomain.PendingKeyRotation, error) {
	return r.rotations.ListPendingForUser(ctx, userID)
}

// SweepExpired finalizes every overdue pending rotation.
func (r *rotationUseCase) SweepExpired(ctx context.Context) (int64, error) {
	return r.rotations.ExpireSweep(ctx, time.Now().UTC())
}

// loadActionable fetches a rotation under a row lock and verifies it can
// still accept a decision, expiring it lazily when overdue. A lazy expiry
// must commit, so it is reported through softErr with a nil rotation rather
// than an error that would roll the transaction back.
func (r *rotationUseCase) loadActionable(
	ctx context.Context,
	rotationID uuid.UUID,
	softErr *error,
) (*rotationDomain.PendingKeyRotation, error) {
	rotation, err := r.rotations.GetByIDForUpdate(ctx, rotationID)
	if err != nil {
		return nil, err
	}

	if rotation.Status.IsTerminal() {
		return nil, rotationDomain.ErrRotationFinalized
	}

	if rotation.IsExpired(time.Now().UTC()) {
		if err := r.transition(ctx, rotation, rotationDomain.EventExpired); err != nil {
			return nil, err
		}
		*softErr = rotationDomain.ErrRotationExpired
		return nil, nil
	}

	return rotation, nil
}

// transition runs the state machine and persists the result conditionally.
func (r *rotationUseCase) transition(
	ctx context.Context,
	rotation *rotationDomain.PendingKeyRotation,
	event rotationDomain.Event,
) error {
	next, err := rotationDomain.Transition(rotation.Status, event)
	if err != nil {
		return err
	}

	if err := r.rotations.UpdateStatusIf(ctx, rotation.ID, rotation.Status, next); err != nil {
		return err
	}
	rotation.Status = next

	return nil
}

// commit applies the snapshot: every config ciphertext, team wrap and file
// key is replaced, the project's key version and checksum advance, existing
// project tokens are revoked, and the rotation flips to approved. All inside
// the caller's transaction.
func (r *rotationUseCase) commit(
	ctx context.Context,
	rotation *rotationDomain.PendingKeyRotation,
	liveItems []*projectDomain.ConfigItem,
) error {
	newCiphertexts := make(map[uuid.UUID]string, len(rotation.ConfigItems))
	for _, snapshot := range rotation.ConfigItems {
		if err := r.items.UpdateValueCiphertext(ctx, snapshot.ConfigItemID, snapshot.ValueCiphertext); err != nil {
			return err
		}
		newCiphertexts[snapshot.ConfigItemID] = snapshot.ValueCiphertext
	}

	for _, snapshot := range rotation.TeamKeys {
		if err := r.teams.UpdateTeamProjectKey(ctx, snapshot.TeamID, rotation.ProjectID, snapshot.EncryptedProjectKey); err != nil {
			return err
		}
	}

	for _, snapshot := range rotation.FileKeys {
		if err := r.files.UpdateFileKey(ctx, snapshot.FileID, snapshot.EncryptedFileKey); err != nil {
			return err
		}
	}

	// The new checksum covers the re-encrypted values in the same persisted
	// order as the live items.
	newItems := make([]checksum.Item, 0, len(liveItems))
	for _, item := range liveItems {
		newItems = append(newItems, checksum.Item{
			Name:            item.Name,
			ValueCiphertext: newCiphertexts[item.ID],
		})
	}
	newChecksum := checksum.Compute(newItems)

	if err := r.projects.UpdateKeyState(ctx, rotation.ProjectID, rotation.NewKeyVersion, newChecksum); err != nil {
		return err
	}

	// Tokens hold the project key wrapped to their own keypair; after the
	// swap they can never decrypt again, so they are revoked outright.
	if _, err := r.tokens.DeleteByProject(ctx, rotation.ProjectID); err != nil {
		return err
	}

	return r.transition(ctx, rotation, rotationDomain.EventQuorumReached)
}

// validateCoverage checks that the snapshot covers exactly the live config
// items, team grants and files. Anything missing or unknown rejects the
// proposal: a partial commit would leave some ciphertext under the old key.
func validateCoverage(
	input *rotationDomain.InitiateInput,
	liveItems []*projectDomain.ConfigItem,
	liveGrants []*projectDomain.TeamProject,
	liveFiles []*projectDomain.ProjectFile,
) error {
	if len(input.ConfigItems) != len(liveItems) ||
		len(input.TeamKeys) != len(liveGrants) ||
		len(input.FileKeys) != len(liveFiles) {
		return rotationDomain.ErrSnapshotIncomplete
	}

	itemIDs := make(map[uuid.UUID]bool, len(input.ConfigItems))
	for _, snapshot := range input.ConfigItems {
		itemIDs[snapshot.ConfigItemID] = true
	}
	for _, item := range liveItems {
		if !itemIDs[item.ID] {
			return rotationDomain.ErrSnapshotIncomplete
		}
	}

	teamIDs := make(map[uuid.UUID]bool, len(input.TeamKeys))
	for _, snapshot := range input.TeamKeys {
		teamIDs[snapshot.TeamID] = true
	}
	for _, grant := range liveGrants {
		if !teamIDs[grant.TeamID] {
			return rotationDomain.ErrSnapshotIncomplete
		}
	}

	fileIDs := make(map[uuid.UUID]bool, len(input.FileKeys))
	for _, snapshot := range input.FileKeys {
		fileIDs[snapshot.FileID] = true
	}
	for _, file := range liveFiles {
		if !fileIDs[file.ID] {
			return rotationDomain.ErrSnapshotIncomplete
		}
	}

	return nil
}

func computeChecksum(items []*projectDomain.ConfigItem) string {
	checksumItems := make([]checksum.Item, 0, len(items))
	for _, item := range items {
		checksumItems = append(checksumItems, checksum.Item{
			Name:            item.Name,
			ValueCiphertext: item.ValueCiphertext,
		})
	}
	return checksum.Compute(checksumItems)
}

// NewRotationUseCase creates a new rotation use case instance.
func NewRotationUseCase(
	txManager database.TxManager,
	rotations RotationRepository,
	projects ProjectRepository,
	items ConfigItemRepository,
	files FileRepository,
	teams TeamRepository,
	tokens ProjectTokenRepository,
) RotationUseCase {
	return &rotationUseCase{
		txManager: txManager,
		rotations: rotations,
		projects:  projects,
		items:     items,
		files:     files,
		teams:     teams,
		tokens:    tokens,
	}
}

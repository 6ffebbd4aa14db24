package rotation

import (
	"context"
	"encoding/base64"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/allisson/envie/internal/cli/keystore"
	"github.com/allisson/envie/internal/cli/session"
	cryptoService "github.com/allisson/envie/internal/crypto/service"
	apperrors "github.com/allisson/envie/internal/errors"
	identityDTO "github.com/allisson/envie/internal/identity/http/dto"
)

var (
	// ErrStaleLocalKey indicates the unlocked key material is older than the
	// server's current master key version. Another device already rotated;
	// this one must re-link before it can rotate again.
	ErrStaleLocalKey = apperrors.Wrap(apperrors.ErrConflict, "local master key is stale")

	// ErrConcurrentRotation indicates the server state moved between reads,
	// meaning another rotation is in flight right now.
	ErrConcurrentRotation = apperrors.Wrap(apperrors.ErrConflict, "concurrent master key rotation detected")
)

// API is the slice of the server the orchestrator needs.
type API interface {
	GetUserKey(ctx context.Context) (*identityDTO.UserKeyResponse, error)
	GetRotationState(ctx context.Context) (*identityDTO.RotationStateResponse, error)
	RotateMasterKey(ctx context.Context, request *identityDTO.RotateMasterKeyRequest) (*identityDTO.UserKeyResponse, error)
}

// Result is what a completed rotation hands back to the user. The recovery
// key is shown exactly once; it is never stored in plaintext anywhere.
type Result struct {
	RecoveryKey      string
	MasterKeyVersion int
}

// Orchestrator runs the client side of a master key rotation end to end.
type Orchestrator struct {
	api      API
	session  *session.Session
	keystore *keystore.Keystore
	logger   *slog.Logger
}

// NewOrchestrator creates an orchestrator with required dependencies.
func NewOrchestrator(api API, sess *session.Session, ks *keystore.Keystore, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		api:      api,
		session:  sess,
		keystore: ks,
		logger:   logger,
	}
}

// Rotate generates a fresh master keypair, rebuilds every wrap under it and
// commits the bundle. On success the new material is sealed to disk and
// replaces the unlocked session material.
//
// A non-nil Result can come back alongside a non-nil error: when the server
// already committed the rotation but sealing the new key locally failed, the
// recovery key in the Result is the only remaining path to the new identity.
// Callers must surface it before reporting the error.
func (o *Orchestrator) Rotate(ctx context.Context) (*Result, error) {
	material, err := o.session.Get()
	if err != nil {
		return nil, err
	}

	var (
		state   *identityDTO.RotationStateResponse
		userKey *identityDTO.UserKeyResponse
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		state, err = o.api.GetRotationState(groupCtx)
		return err
	})
	group.Go(func() error {
		var err error
		userKey, err = o.api.GetUserKey(groupCtx)
		return err
	})
	if err := group.Wait(); err != nil {
		return nil, apperrors.Wrap(err, "failed to fetch rotation state")
	}

	// The two reads race each other; a version mismatch between them means
	// another rotation landed in between.
	if state.UserKey.MasterKeyVersion != userKey.MasterKeyVersion {
		return nil, ErrConcurrentRotation
	}
	if material.MasterKeyVersion != userKey.MasterKeyVersion {
		return nil, ErrStaleLocalKey
	}

	newKeypair, err := cryptoService.GenerateKeypair()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to generate master keypair")
	}

	plan, err := BuildPlan(state, material.MasterPrivateKey, newKeypair)
	if err != nil {
		newKeypair.Zero()
		return nil, err
	}

	committed, err := o.api.RotateMasterKey(ctx, plan)
	if err != nil {
		newKeypair.Zero()
		return nil, err
	}

	o.logger.Info("master key rotated",
		slog.Int("master_key_version", committed.MasterKeyVersion),
		slog.Int("device_wraps", len(plan.DeviceKeys)),
		slog.Int("team_wraps", len(plan.TeamKeys)),
		slog.Int("org_wraps", len(plan.OrgKeys)),
	)

	newMaterial := &session.KeyMaterial{
		MasterPrivateKey: newKeypair.PrivateKey,
		MasterPublicKey:  newKeypair.PublicKey,
		MasterKeyVersion: committed.MasterKeyVersion,
	}
	result := &Result{
		RecoveryKey:      base64.StdEncoding.EncodeToString(newKeypair.PrivateKey),
		MasterKeyVersion: committed.MasterKeyVersion,
	}

	if err := o.keystore.Save(ctx, newMaterial); err != nil {
		// The server already committed. Keep the new material unlocked so the
		// process stays usable, and let the caller surface the recovery key.
		o.session.Unlock(newMaterial)
		return result, apperrors.Wrap(err, "rotation committed but sealing the new key failed")
	}

	o.session.Unlock(newMaterial)
	return result, nil
}

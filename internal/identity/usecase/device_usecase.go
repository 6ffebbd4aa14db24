package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/envie/internal/database"
	apperrors "github.com/allisson/envie/internal/errors"
	identityDomain "github.com/allisson/envie/internal/identity/domain"
	identityService "github.com/allisson/envie/internal/identity/service"
)

type deviceUseCase struct {
	txManager    database.TxManager
	devices      DeviceRepository
	userKeys     UserKeyRepository
	linkingCodes LinkingCodeRepository
	codeService  identityService.LinkingCodeService
}

// Register creates a device. The first device of a user carries the master
// public key and its own wrapped copy of the master private key; it
// bootstraps the key chain and is approved immediately. Every later device
// registers pending.
func (d *deviceUseCase) Register(
	ctx context.Context,
	input *RegisterDeviceInput,
) (*identityDomain.Device, error) {
	now := time.Now().UTC()

	device := &identityDomain.Device{
		ID:         uuid.Must(uuid.NewV7()),
		UserID:     input.UserID,
		Name:       input.Name,
		PublicKey:  input.PublicKey,
		LastActive: now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	bootstrap := input.MasterPublicKey != ""

	err := d.txManager.WithTx(ctx, func(txCtx context.Context) error {
		_, err := d.userKeys.Get(txCtx, input.UserID)
		switch {
		case err == nil:
			if bootstrap {
				return apperrors.Wrap(apperrors.ErrConflict, "user key chain already bootstrapped")
			}
		case apperrors.Is(err, identityDomain.ErrUserKeyNotFound):
			if !bootstrap {
				return identityDomain.ErrUserKeyNotFound
			}
			userKey := &identityDomain.UserKey{
				UserID:           input.UserID,
				PublicKey:        input.MasterPublicKey,
				MasterKeyVersion: 1,
				UpdatedAt:        now,
			}
			if err := d.userKeys.Create(txCtx, userKey); err != nil {
				return err
			}
			wrapped := input.EncryptedMasterKey
			device.EncryptedMasterKey = &wrapped
		default:
			return err
		}

		return d.devices.Create(txCtx, device)
	})
	if err != nil {
		return nil, err
	}

	return device, nil
}

// CreateLinkingCode issues a single-use code for a pending device public key.
// The plain code exists only in the return value; storage holds its Argon2id
// hash.
func (d *deviceUseCase) CreateLinkingCode(
	ctx context.Context,
	userID uuid.UUID,
	devicePublicKey string,
) (string, *identityDomain.LinkingCode, error) {
	plainCode, codeHash, err := d.codeService.GenerateCode()
	if err != nil {
		return "", nil, err
	}

	now := time.Now().UTC()
	code := &identityDomain.LinkingCode{
		ID:              uuid.Must(uuid.NewV7()),
		CodeHash:        codeHash,
		UserID:          userID,
		DevicePublicKey: devicePublicKey,
		ExpiresAt:       now.Add(identityDomain.LinkingCodeTTL),
		CreatedAt:       now,
	}

	if err := d.linkingCodes.Create(ctx, code); err != nil {
		return "", nil, err
	}

	return plainCode, code, nil
}

// RedeemLinkingCode consumes a code and returns the bound registration.
// Unknown, used and expired codes fail identically.
func (d *deviceUseCase) RedeemLinkingCode(
	ctx context.Context,
	plainCode string,
) (*identityDomain.LinkingCode, error) {
	now := time.Now().UTC()

	var redeemed *identityDomain.LinkingCode

	err := d.txManager.WithTx(ctx, func(txCtx context.Context) error {
		candidates, err := d.linkingCodes.ListRedeemable(txCtx, now)
		if err != nil {
			return err
		}

		for _, candidate := range candidates {
			if !d.codeService.VerifyCode(plainCode, candidate.CodeHash) {
				continue
			}
			if err := d.linkingCodes.MarkUsed(txCtx, candidate.ID, now); err != nil {
				return err
			}
			usedAt := now
			candidate.UsedAt = &usedAt
			redeemed = candidate
			return nil
		}

		return identityDomain.ErrLinkingCodeInvalid
	})
	if err != nil {
		return nil, err
	}

	return redeemed, nil
}

// Approve stores the wrapped master key on a pending device owned by the
// caller.
func (d *deviceUseCase) Approve(
	ctx context.Context,
	userID, deviceID uuid.UUID,
	encryptedMasterKey string,
) (*identityDomain.Device, error) {
	var device *identityDomain.Device

	err := d.txManager.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		device, err = d.devices.GetByID(txCtx, deviceID)
		if err != nil {
			return err
		}
		if device.UserID != userID {
			return apperrors.Wrap(apperrors.ErrForbidden, "device belongs to another user")
		}
		if device.IsApproved() {
			return identityDomain.ErrDeviceAlreadyApproved
		}

		if err := d.devices.Approve(txCtx, deviceID, encryptedMasterKey); err != nil {
			return err
		}

		device.EncryptedMasterKey = &encryptedMasterKey
		return nil
	})
	if err != nil {
		return nil, err
	}

	return device, nil
}

// List returns the user's devices, pending included.
func (d *deviceUseCase) List(ctx context.Context, userID uuid.UUID) ([]*identityDomain.Device, error) {
	return d.devices.ListByUser(ctx, userID)
}

// Touch loads a device and records its activity. A failed touch does not
// fail the lookup.
func (d *deviceUseCase) Touch(ctx context.Context, deviceID uuid.UUID) (*identityDomain.Device, error) {
	device, err := d.devices.GetByID(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	_ = d.devices.TouchLastActive(ctx, deviceID)
	return device, nil
}

// Revoke removes a device owned by the caller. The master key copy the
// device held stays readable to whoever kept the device; only a master key
// rotation makes revocation cryptographic.
func (d *deviceUseCase) Revoke(ctx context.Context, userID, deviceID uuid.UUID) error {
	return d.txManager.WithTx(ctx, func(txCtx context.Context) error {
		device, err := d.devices.GetByID(txCtx, deviceID)
		if err != nil {
			return err
		}
		if device.UserID != userID {
			return apperrors.Wrap(apperrors.ErrForbidden, "device belongs to another user")
		}
		return d.devices.Delete(txCtx, deviceID)
	})
}

// GetUserKey returns the user's master public key and version.
func (d *deviceUseCase) GetUserKey(ctx context.Context, userID uuid.UUID) (*identityDomain.UserKey, error) {
	return d.userKeys.Get(ctx, userID)
}

// NewDeviceUseCase creates a new DeviceUseCase instance.
func NewDeviceUseCase(
	txManager database.TxManager,
	devices DeviceRepository,
	userKeys UserKeyRepository,
	linkingCodes LinkingCodeRepository,
	codeService identityService.LinkingCodeService,
) DeviceUseCase {
	return &deviceUseCase{
		txManager:    txManager,
		devices:      devices,
		userKeys:     userKeys,
		linkingCodes: linkingCodes,
		codeService:  codeService,
	}
}

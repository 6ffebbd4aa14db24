// Package http provides HTTP handlers for the identity registry: device
// registration and approval, linking codes, project tokens and master key
// rotation, plus the authentication middlewares for the two identity kinds.
package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "github.com/allisson/envie/internal/errors"
	"github.com/allisson/envie/internal/httputil"
	identityDomain "github.com/allisson/envie/internal/identity/domain"
	"github.com/allisson/envie/internal/identity/http/dto"
	identityUseCase "github.com/allisson/envie/internal/identity/usecase"
	customValidation "github.com/allisson/envie/internal/validation"
)

// DeviceHandler handles HTTP requests for device lifecycle and master key
// rotation.
type DeviceHandler struct {
	deviceUseCase         identityUseCase.DeviceUseCase
	masterRotationUseCase identityUseCase.MasterRotationUseCase
	logger                *slog.Logger
}

// NewDeviceHandler creates a new device handler with required dependencies.
func NewDeviceHandler(
	deviceUseCase identityUseCase.DeviceUseCase,
	masterRotationUseCase identityUseCase.MasterRotationUseCase,
	logger *slog.Logger,
) *DeviceHandler {
	return &DeviceHandler{
		deviceUseCase:         deviceUseCase,
		masterRotationUseCase: masterRotationUseCase,
		logger:                logger,
	}
}

// authenticatedUser extracts the authenticated user ID set by the device
// authentication middleware. Writes a 401 response when absent.
func (h *DeviceHandler) authenticatedUser(c *gin.Context) (uuid.UUID, bool) {
	userID, ok := GetUserID(c.Request.Context())
	if !ok {
		httputil.HandleErrorGin(
			c,
			apperrors.Wrap(apperrors.ErrUnauthorized, "no authenticated user in request"),
			h.logger,
		)
		return uuid.Nil, false
	}
	return userID, true
}

// RegisterHandler registers a device public key.
// POST /v1/devices - Unauthenticated; a device cannot authenticate before it
// exists. The first device of a user must carry the master bootstrap fields
// and comes back approved; later devices come back pending.
// Returns 201 Created with the device.
func (h *DeviceHandler) RegisterHandler(c *gin.Context) {
	var req dto.RegisterDeviceRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	input, err := req.ToInput()
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	device, err := h.deviceUseCase.Register(c.Request.Context(), input)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapDeviceToResponse(device))
}

// ListHandler retrieves the caller's devices, pending included.
// GET /v1/devices
// Returns 200 OK with the list.
func (h *DeviceHandler) ListHandler(c *gin.Context) {
	userID, ok := h.authenticatedUser(c)
	if !ok {
		return
	}

	devices, err := h.deviceUseCase.List(c.Request.Context(), userID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapDevicesToListResponse(devices))
}

// ApproveHandler stores a wrapped master key on a pending device owned by the
// caller.
// POST /v1/devices/:id/approve
// Returns 200 OK with the approved device.
func (h *DeviceHandler) ApproveHandler(c *gin.Context) {
	userID, ok := h.authenticatedUser(c)
	if !ok {
		return
	}

	deviceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleValidationErrorGin(c,
			fmt.Errorf("invalid device ID format: must be a valid UUID"),
			h.logger)
		return
	}

	var req dto.ApproveDeviceRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	device, err := h.deviceUseCase.Approve(c.Request.Context(), userID, deviceID, req.EncryptedMasterKey)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapDeviceToResponse(device))
}

// RevokeHandler removes a device owned by the caller.
// DELETE /v1/devices/:id
// Returns 204 No Content. Revocation alone is not cryptographic; only a
// master key rotation cuts off what the device already held.
func (h *DeviceHandler) RevokeHandler(c *gin.Context) {
	userID, ok := h.authenticatedUser(c)
	if !ok {
		return
	}

	deviceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleValidationErrorGin(c,
			fmt.Errorf("invalid device ID format: must be a valid UUID"),
			h.logger)
		return
	}

	if err := h.deviceUseCase.Revoke(c.Request.Context(), userID, deviceID); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Status(http.StatusNoContent)
}

// CreateLinkingCodeHandler issues a single-use linking code for the caller's
// device public key.
// POST /v1/linking-codes - Pending devices allowed; this is how a new device
// asks an approved one for the master key.
// Returns 201 Created with the plain code, which is never retrievable again.
func (h *DeviceHandler) CreateLinkingCodeHandler(c *gin.Context) {
	userID, ok := h.authenticatedUser(c)
	if !ok {
		return
	}

	var req dto.CreateLinkingCodeRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	plainCode, code, err := h.deviceUseCase.CreateLinkingCode(c.Request.Context(), userID, req.DevicePublicKey)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, &dto.LinkingCodeResponse{
		Code:      plainCode,
		ExpiresAt: code.ExpiresAt,
	})
}

// RedeemLinkingCodeHandler consumes a linking code on behalf of an approved
// device, returning the pending device public key the code was bound to so
// the caller can wrap the master key for it.
// POST /v1/linking-codes/redeem
// Returns 200 OK. Unknown, used, expired and foreign codes all yield 401.
func (h *DeviceHandler) RedeemLinkingCodeHandler(c *gin.Context) {
	userID, ok := h.authenticatedUser(c)
	if !ok {
		return
	}

	var req dto.RedeemLinkingCodeRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	code, err := h.deviceUseCase.RedeemLinkingCode(c.Request.Context(), req.Code)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	if code.UserID != userID {
		// A valid code for another user's device reveals nothing.
		httputil.HandleErrorGin(c, identityDomain.ErrLinkingCodeInvalid, h.logger)
		return
	}

	c.JSON(http.StatusOK, &dto.RedeemedLinkingCodeResponse{
		UserID:          code.UserID,
		DevicePublicKey: code.DevicePublicKey,
	})
}

// GetUserKeyHandler retrieves the caller's master public key and version.
// GET /v1/user-key
// Returns 200 OK.
func (h *DeviceHandler) GetUserKeyHandler(c *gin.Context) {
	userID, ok := h.authenticatedUser(c)
	if !ok {
		return
	}

	userKey, err := h.deviceUseCase.GetUserKey(c.Request.Context(), userID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapUserKeyToResponse(userKey))
}

// GetRotationStateHandler retrieves the live coverage state a master key
// rotation bundle must be built against: user key, approved devices, and
// every membership wrap.
// GET /v1/user-key/rotation-state
// Returns 200 OK.
func (h *DeviceHandler) GetRotationStateHandler(c *gin.Context) {
	userID, ok := h.authenticatedUser(c)
	if !ok {
		return
	}

	state, err := h.masterRotationUseCase.State(c.Request.Context(), userID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapRotationStateToResponse(state))
}

// RotateMasterKeyHandler applies a client-built master key rotation bundle.
// POST /v1/user-key/rotate
// Returns 200 OK with the new user key, 409 Conflict on a stale expected
// version, or 422 when the bundle misses an approved device or membership.
func (h *DeviceHandler) RotateMasterKeyHandler(c *gin.Context) {
	userID, ok := h.authenticatedUser(c)
	if !ok {
		return
	}

	var req dto.RotateMasterKeyRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	bundle, err := req.ToBundle(userID)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	userKey, err := h.masterRotationUseCase.Rotate(c.Request.Context(), bundle)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapUserKeyToResponse(userKey))
}

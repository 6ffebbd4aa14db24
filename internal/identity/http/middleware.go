package http

import (
	"log/slog"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "github.com/allisson/envie/internal/errors"
	"github.com/allisson/envie/internal/httputil"
	identityUseCase "github.com/allisson/envie/internal/identity/usecase"
)

// Identity headers. The values are bearer credentials over a transport
// assumed to be confidential; the server stores only one-way digests of them.
const (
	// CLIIdentityHeader carries the plaintext identity id derived from a
	// project token.
	CLIIdentityHeader = "X-CLI-Identity"

	// DeviceIdentityHeader carries a device id for user-scoped endpoints.
	DeviceIdentityHeader = "X-Device-Identity"

	// MasterKeyVersionHeader reports the caller's current master key version
	// on every device-authenticated response. Clients compare it against
	// their cached version to detect a rotation they missed.
	MasterKeyVersionHeader = "X-Master-Key-Version"
)

// CLIAuthMiddleware authenticates CLI requests via the X-CLI-Identity header.
//
// The middleware:
// 1. Extracts the plaintext identity id from the header
// 2. Resolves it through TokenUseCase.Authenticate (hash lookup, expiry check)
// 3. Stores the project token in the request context for GetProjectToken()
//
// Unknown, malformed and expired identities all yield 401.
func CLIAuthMiddleware(
	tokenUseCase identityUseCase.TokenUseCase,
	logger *slog.Logger,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		identityID := c.GetHeader(CLIIdentityHeader)
		if identityID == "" {
			logger.Debug("cli authentication failed: missing identity header")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		token, err := tokenUseCase.Authenticate(c.Request.Context(), identityID)
		if err != nil {
			logger.Debug("cli authentication failed", slog.String("error", err.Error()))
			httputil.HandleErrorGin(c, apperrors.Wrap(apperrors.ErrUnauthorized, "invalid identity"), logger)
			c.Abort()
			return
		}

		ctx := WithProjectToken(c.Request.Context(), token)
		c.Request = c.Request.WithContext(ctx)

		logger.Debug("cli authentication successful",
			slog.String("token_id", token.ID.String()),
			slog.String("project_id", token.ProjectID.String()),
		)

		c.Next()
	}
}

// PendingDeviceAuthMiddleware authenticates via the X-Device-Identity header
// without requiring approval. Pending devices need a narrow surface (issuing
// their linking code) before any approved principal has wrapped the master
// key for them; everything else stays behind DeviceAuthMiddleware.
func PendingDeviceAuthMiddleware(
	deviceUseCase identityUseCase.DeviceUseCase,
	logger *slog.Logger,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		deviceID, err := uuid.Parse(c.GetHeader(DeviceIdentityHeader))
		if err != nil {
			logger.Debug("device authentication failed: missing or malformed device header")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		device, err := deviceUseCase.Touch(c.Request.Context(), deviceID)
		if err != nil {
			logger.Debug("device authentication failed", slog.String("error", err.Error()))
			httputil.HandleErrorGin(c, apperrors.Wrap(apperrors.ErrUnauthorized, "unknown device"), logger)
			c.Abort()
			return
		}

		ctx := WithUserID(c.Request.Context(), device.UserID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// DeviceAuthMiddleware authenticates user requests via the X-Device-Identity
// header carrying an approved device id.
//
// The middleware:
// 1. Parses the device id and loads the device
// 2. Rejects pending devices; only an approved device acts for its user
// 3. Stores the user id in the request context for GetUserID()
// 4. Touches the device's last activity timestamp
// 5. Sets the X-Master-Key-Version response header so clients can detect a
//    master key rotation they have not applied locally
func DeviceAuthMiddleware(
	deviceUseCase identityUseCase.DeviceUseCase,
	logger *slog.Logger,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		deviceID, err := uuid.Parse(c.GetHeader(DeviceIdentityHeader))
		if err != nil {
			logger.Debug("device authentication failed: missing or malformed device header")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		device, err := deviceUseCase.Touch(c.Request.Context(), deviceID)
		if err != nil {
			logger.Debug("device authentication failed", slog.String("error", err.Error()))
			httputil.HandleErrorGin(c, apperrors.Wrap(apperrors.ErrUnauthorized, "unknown device"), logger)
			c.Abort()
			return
		}
		if !device.IsApproved() {
			logger.Debug("device authentication failed: device pending approval",
				slog.String("device_id", device.ID.String()))
			httputil.HandleErrorGin(c, apperrors.Wrap(apperrors.ErrForbidden, "device pending approval"), logger)
			c.Abort()
			return
		}

		if userKey, err := deviceUseCase.GetUserKey(c.Request.Context(), device.UserID); err == nil {
			c.Header(MasterKeyVersionHeader, strconv.Itoa(userKey.MasterKeyVersion))
		}

		ctx := WithUserID(c.Request.Context(), device.UserID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

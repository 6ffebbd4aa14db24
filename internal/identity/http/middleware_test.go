package http

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	identityDomain "github.com/allisson/envie/internal/identity/domain"
	"github.com/allisson/envie/internal/identity/http/mocks"
)

func middlewareRouter(t *testing.T) (*gin.Engine, *mocks.MockDeviceUseCase, *mocks.MockTokenUseCase) {
	t.Helper()

	gin.SetMode(gin.TestMode)

	mockDevices := &mocks.MockDeviceUseCase{}
	mockTokens := &mocks.MockTokenUseCase{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	router := gin.New()
	router.GET("/device", DeviceAuthMiddleware(mockDevices, logger), func(c *gin.Context) {
		userID, _ := GetUserID(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"user_id": userID.String()})
	})
	router.GET("/pending", PendingDeviceAuthMiddleware(mockDevices, logger), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	router.GET("/cli", CLIAuthMiddleware(mockTokens, logger), func(c *gin.Context) {
		token, _ := GetProjectToken(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"project_id": token.ProjectID.String()})
	})

	return router, mockDevices, mockTokens
}

func TestDeviceAuthMiddleware(t *testing.T) {
	t.Run("Success_ApprovedDevice", func(t *testing.T) {
		router, mockDevices, _ := middlewareRouter(t)

		userID := uuid.Must(uuid.NewV7())
		device := approvedDevice(userID)

		mockDevices.On("Touch", mock.Anything, device.ID).Return(device, nil).Once()
		mockDevices.On("GetUserKey", mock.Anything, userID).
			Return(&identityDomain.UserKey{UserID: userID, MasterKeyVersion: 4}, nil).Once()

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/device", nil)
		req.Header.Set(DeviceIdentityHeader, device.ID.String())
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), userID.String())
		assert.Equal(t, "4", w.Header().Get(MasterKeyVersionHeader))
		mockDevices.AssertExpectations(t)
	})

	t.Run("Error_MissingHeader", func(t *testing.T) {
		router, mockDevices, _ := middlewareRouter(t)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/device", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		mockDevices.AssertNotCalled(t, "Touch")
	})

	t.Run("Error_UnknownDevice", func(t *testing.T) {
		router, mockDevices, _ := middlewareRouter(t)

		deviceID := uuid.Must(uuid.NewV7())
		mockDevices.On("Touch", mock.Anything, deviceID).
			Return(nil, identityDomain.ErrDeviceNotFound).Once()

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/device", nil)
		req.Header.Set(DeviceIdentityHeader, deviceID.String())
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Error_PendingDeviceForbidden", func(t *testing.T) {
		router, mockDevices, _ := middlewareRouter(t)

		device := approvedDevice(uuid.Must(uuid.NewV7()))
		device.EncryptedMasterKey = nil

		mockDevices.On("Touch", mock.Anything, device.ID).Return(device, nil).Once()

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/device", nil)
		req.Header.Set(DeviceIdentityHeader, device.ID.String())
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("Success_PendingDeviceOnPendingSurface", func(t *testing.T) {
		router, mockDevices, _ := middlewareRouter(t)

		device := approvedDevice(uuid.Must(uuid.NewV7()))
		device.EncryptedMasterKey = nil

		mockDevices.On("Touch", mock.Anything, device.ID).Return(device, nil).Once()

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/pending", nil)
		req.Header.Set(DeviceIdentityHeader, device.ID.String())
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestCLIAuthMiddleware(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		router, _, mockTokens := middlewareRouter(t)

		projectID := uuid.Must(uuid.NewV7())
		token := &identityDomain.ProjectToken{
			ID:        uuid.Must(uuid.NewV7()),
			ProjectID: projectID,
			CreatedAt: time.Now().UTC(),
		}

		mockTokens.On("Authenticate", mock.Anything, "deadbeef").Return(token, nil).Once()

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/cli", nil)
		req.Header.Set(CLIIdentityHeader, "deadbeef")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), projectID.String())
		mockTokens.AssertExpectations(t)
	})

	t.Run("Error_MissingHeader", func(t *testing.T) {
		router, _, mockTokens := middlewareRouter(t)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/cli", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		mockTokens.AssertNotCalled(t, "Authenticate")
	})

	t.Run("Error_ExpiredToken", func(t *testing.T) {
		router, _, mockTokens := middlewareRouter(t)

		mockTokens.On("Authenticate", mock.Anything, "deadbeef").
			Return(nil, identityDomain.ErrTokenExpired).Once()

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/cli", nil)
		req.Header.Set(CLIIdentityHeader, "deadbeef")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

package http

import (
	"bytes"
	"encoding/json"
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
	"github.com/allisson/envie/internal/identity/http/dto"
	"github.com/allisson/envie/internal/identity/http/mocks"
	identityUseCase "github.com/allisson/envie/internal/identity/usecase"
)

const (
	testPublicKey  = "ZGV2aWNlLXB1YmxpYy1rZXk="
	testMasterPub  = "bWFzdGVyLXB1YmxpYy1rZXk="
	testMasterWrap = "d3JhcHBlZC1tYXN0ZXIta2V5"
)

// setupDeviceHandler creates a device handler backed by mocked use cases.
func setupDeviceHandler(t *testing.T) (*DeviceHandler, *mocks.MockDeviceUseCase, *mocks.MockMasterRotationUseCase) {
	t.Helper()

	gin.SetMode(gin.TestMode)

	mockDevices := &mocks.MockDeviceUseCase{}
	mockRotation := &mocks.MockMasterRotationUseCase{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return NewDeviceHandler(mockDevices, mockRotation, logger), mockDevices, mockRotation
}

// createTestContext builds a gin test context. A non-nil userID is stored in
// the request context the way the authentication middleware would.
func createTestContext(
	method, path string,
	body interface{},
	userID uuid.UUID,
) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req := httptest.NewRequest(method, path, bodyReader)
	req.Header.Set("Content-Type", "application/json")

	if userID != uuid.Nil {
		req = req.WithContext(WithUserID(req.Context(), userID))
	}

	c.Request = req

	return c, w
}

func approvedDevice(userID uuid.UUID) *identityDomain.Device {
	now := time.Now().UTC()
	wrapped := testMasterWrap
	return &identityDomain.Device{
		ID:                 uuid.Must(uuid.NewV7()),
		UserID:             userID,
		Name:               "laptop",
		PublicKey:          testPublicKey,
		EncryptedMasterKey: &wrapped,
		LastActive:         now,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

func TestDeviceHandler_RegisterHandler(t *testing.T) {
	t.Run("Success_BootstrapFirstDevice", func(t *testing.T) {
		handler, mockDevices, _ := setupDeviceHandler(t)

		userID := uuid.Must(uuid.NewV7())
		device := approvedDevice(userID)

		mockDevices.On("Register", mock.Anything, mock.MatchedBy(func(input *identityUseCase.RegisterDeviceInput) bool {
			return input.UserID == userID &&
				input.Name == "laptop" &&
				input.MasterPublicKey == testMasterPub &&
				input.EncryptedMasterKey == testMasterWrap
		})).Return(device, nil).Once()

		c, w := createTestContext(http.MethodPost, "/v1/devices", dto.RegisterDeviceRequest{
			UserID:             userID.String(),
			Name:               "laptop",
			PublicKey:          testPublicKey,
			MasterPublicKey:    testMasterPub,
			EncryptedMasterKey: testMasterWrap,
		}, uuid.Nil)

		handler.RegisterHandler(c)

		assert.Equal(t, http.StatusCreated, w.Code)

		var response dto.DeviceResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, device.ID, response.ID)
		assert.True(t, response.Approved)
		mockDevices.AssertExpectations(t)
	})

	t.Run("Error_MasterFieldsMustTravelTogether", func(t *testing.T) {
		handler, mockDevices, _ := setupDeviceHandler(t)

		c, w := createTestContext(http.MethodPost, "/v1/devices", dto.RegisterDeviceRequest{
			UserID:          uuid.Must(uuid.NewV7()).String(),
			Name:            "laptop",
			PublicKey:       testPublicKey,
			MasterPublicKey: testMasterPub,
		}, uuid.Nil)

		handler.RegisterHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		mockDevices.AssertNotCalled(t, "Register")
	})

	t.Run("Error_InvalidPublicKey", func(t *testing.T) {
		handler, mockDevices, _ := setupDeviceHandler(t)

		c, w := createTestContext(http.MethodPost, "/v1/devices", dto.RegisterDeviceRequest{
			UserID:    uuid.Must(uuid.NewV7()).String(),
			Name:      "laptop",
			PublicKey: "not base64!!!",
		}, uuid.Nil)

		handler.RegisterHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, w.Body.String(), "validation_error")
		mockDevices.AssertNotCalled(t, "Register")
	})
}

func TestDeviceHandler_ApproveHandler(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		handler, mockDevices, _ := setupDeviceHandler(t)

		userID := uuid.Must(uuid.NewV7())
		device := approvedDevice(userID)

		mockDevices.On("Approve", mock.Anything, userID, device.ID, testMasterWrap).
			Return(device, nil).Once()

		c, w := createTestContext(http.MethodPost, "/v1/devices/"+device.ID.String()+"/approve",
			dto.ApproveDeviceRequest{EncryptedMasterKey: testMasterWrap}, userID)
		c.Params = gin.Params{{Key: "id", Value: device.ID.String()}}

		handler.ApproveHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)
		mockDevices.AssertExpectations(t)
	})

	t.Run("Error_AlreadyApproved", func(t *testing.T) {
		handler, mockDevices, _ := setupDeviceHandler(t)

		userID := uuid.Must(uuid.NewV7())
		deviceID := uuid.Must(uuid.NewV7())

		mockDevices.On("Approve", mock.Anything, userID, deviceID, testMasterWrap).
			Return(nil, identityDomain.ErrDeviceAlreadyApproved).Once()

		c, w := createTestContext(http.MethodPost, "/v1/devices/"+deviceID.String()+"/approve",
			dto.ApproveDeviceRequest{EncryptedMasterKey: testMasterWrap}, userID)
		c.Params = gin.Params{{Key: "id", Value: deviceID.String()}}

		handler.ApproveHandler(c)

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("Error_Unauthenticated", func(t *testing.T) {
		handler, mockDevices, _ := setupDeviceHandler(t)

		deviceID := uuid.Must(uuid.NewV7())
		c, w := createTestContext(http.MethodPost, "/v1/devices/"+deviceID.String()+"/approve",
			dto.ApproveDeviceRequest{EncryptedMasterKey: testMasterWrap}, uuid.Nil)
		c.Params = gin.Params{{Key: "id", Value: deviceID.String()}}

		handler.ApproveHandler(c)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		mockDevices.AssertNotCalled(t, "Approve")
	})
}

func TestDeviceHandler_LinkingCodes(t *testing.T) {
	t.Run("Success_Create", func(t *testing.T) {
		handler, mockDevices, _ := setupDeviceHandler(t)

		userID := uuid.Must(uuid.NewV7())
		expiresAt := time.Now().UTC().Add(identityDomain.LinkingCodeTTL)

		mockDevices.On("CreateLinkingCode", mock.Anything, userID, testPublicKey).
			Return("plain-code", &identityDomain.LinkingCode{
				ID:              uuid.Must(uuid.NewV7()),
				UserID:          userID,
				DevicePublicKey: testPublicKey,
				ExpiresAt:       expiresAt,
			}, nil).Once()

		c, w := createTestContext(http.MethodPost, "/v1/linking-codes",
			dto.CreateLinkingCodeRequest{DevicePublicKey: testPublicKey}, userID)

		handler.CreateLinkingCodeHandler(c)

		assert.Equal(t, http.StatusCreated, w.Code)

		var response dto.LinkingCodeResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "plain-code", response.Code)
		mockDevices.AssertExpectations(t)
	})

	t.Run("Success_Redeem", func(t *testing.T) {
		handler, mockDevices, _ := setupDeviceHandler(t)

		userID := uuid.Must(uuid.NewV7())

		mockDevices.On("RedeemLinkingCode", mock.Anything, "plain-code").
			Return(&identityDomain.LinkingCode{
				ID:              uuid.Must(uuid.NewV7()),
				UserID:          userID,
				DevicePublicKey: testPublicKey,
			}, nil).Once()

		c, w := createTestContext(http.MethodPost, "/v1/linking-codes/redeem",
			dto.RedeemLinkingCodeRequest{Code: "plain-code"}, userID)

		handler.RedeemLinkingCodeHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)

		var response dto.RedeemedLinkingCodeResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, testPublicKey, response.DevicePublicKey)
	})

	t.Run("Error_RedeemForeignCode", func(t *testing.T) {
		handler, mockDevices, _ := setupDeviceHandler(t)

		// Valid code, but bound to another user's device.
		mockDevices.On("RedeemLinkingCode", mock.Anything, "plain-code").
			Return(&identityDomain.LinkingCode{
				ID:              uuid.Must(uuid.NewV7()),
				UserID:          uuid.Must(uuid.NewV7()),
				DevicePublicKey: testPublicKey,
			}, nil).Once()

		c, w := createTestContext(http.MethodPost, "/v1/linking-codes/redeem",
			dto.RedeemLinkingCodeRequest{Code: "plain-code"}, uuid.Must(uuid.NewV7()))

		handler.RedeemLinkingCodeHandler(c)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Error_RedeemUnknownCode", func(t *testing.T) {
		handler, mockDevices, _ := setupDeviceHandler(t)

		mockDevices.On("RedeemLinkingCode", mock.Anything, "wrong-code").
			Return(nil, identityDomain.ErrLinkingCodeInvalid).Once()

		c, w := createTestContext(http.MethodPost, "/v1/linking-codes/redeem",
			dto.RedeemLinkingCodeRequest{Code: "wrong-code"}, uuid.Must(uuid.NewV7()))

		handler.RedeemLinkingCodeHandler(c)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestDeviceHandler_RevokeHandler(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		handler, mockDevices, _ := setupDeviceHandler(t)

		userID := uuid.Must(uuid.NewV7())
		deviceID := uuid.Must(uuid.NewV7())

		mockDevices.On("Revoke", mock.Anything, userID, deviceID).Return(nil).Once()

		c, w := createTestContext(http.MethodDelete, "/v1/devices/"+deviceID.String(), nil, userID)
		c.Params = gin.Params{{Key: "id", Value: deviceID.String()}}

		handler.RevokeHandler(c)
		// Flush the status set via c.Status; gin's engine does this after handlers,
		// but direct handler invocation skips it when no body is written.
		c.Writer.WriteHeaderNow()

		assert.Equal(t, http.StatusNoContent, w.Code)
		mockDevices.AssertExpectations(t)
	})

	t.Run("Error_InvalidDeviceID", func(t *testing.T) {
		handler, mockDevices, _ := setupDeviceHandler(t)

		c, w := createTestContext(http.MethodDelete, "/v1/devices/nope", nil, uuid.Must(uuid.NewV7()))
		c.Params = gin.Params{{Key: "id", Value: "nope"}}

		handler.RevokeHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		mockDevices.AssertNotCalled(t, "Revoke")
	})
}

func TestDeviceHandler_RotateMasterKeyHandler(t *testing.T) {
	rotateRequest := func(deviceID uuid.UUID) dto.RotateMasterKeyRequest {
		return dto.RotateMasterKeyRequest{
			NewPublicKey:    testMasterPub,
			ExpectedVersion: 1,
			DeviceKeys: []dto.DeviceKeyWrapRequest{
				{DeviceID: deviceID.String(), EncryptedMasterKey: testMasterWrap},
			},
		}
	}

	t.Run("Success", func(t *testing.T) {
		handler, _, mockRotation := setupDeviceHandler(t)

		userID := uuid.Must(uuid.NewV7())
		deviceID := uuid.Must(uuid.NewV7())

		mockRotation.On("Rotate", mock.Anything, mock.MatchedBy(func(bundle *identityDomain.MasterRotationBundle) bool {
			return bundle.UserID == userID &&
				bundle.ExpectedVersion == 1 &&
				len(bundle.DeviceKeys) == 1 &&
				bundle.DeviceKeys[0].DeviceID == deviceID
		})).Return(&identityDomain.UserKey{
			UserID:           userID,
			PublicKey:        testMasterPub,
			MasterKeyVersion: 2,
		}, nil).Once()

		c, w := createTestContext(http.MethodPost, "/v1/user-key/rotate", rotateRequest(deviceID), userID)

		handler.RotateMasterKeyHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)

		var response dto.UserKeyResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, 2, response.MasterKeyVersion)
		mockRotation.AssertExpectations(t)
	})

	t.Run("Error_VersionConflict", func(t *testing.T) {
		handler, _, mockRotation := setupDeviceHandler(t)

		userID := uuid.Must(uuid.NewV7())
		deviceID := uuid.Must(uuid.NewV7())

		mockRotation.On("Rotate", mock.Anything, mock.Anything).
			Return(nil, identityDomain.ErrMasterKeyVersionConflict).Once()

		c, w := createTestContext(http.MethodPost, "/v1/user-key/rotate", rotateRequest(deviceID), userID)

		handler.RotateMasterKeyHandler(c)

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("Error_IncompleteBundle", func(t *testing.T) {
		handler, _, mockRotation := setupDeviceHandler(t)

		userID := uuid.Must(uuid.NewV7())
		deviceID := uuid.Must(uuid.NewV7())

		mockRotation.On("Rotate", mock.Anything, mock.Anything).
			Return(nil, identityDomain.ErrRotationBundleIncomplete).Once()

		c, w := createTestContext(http.MethodPost, "/v1/user-key/rotate", rotateRequest(deviceID), userID)

		handler.RotateMasterKeyHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("Error_MissingDeviceKeys", func(t *testing.T) {
		handler, _, mockRotation := setupDeviceHandler(t)

		c, w := createTestContext(http.MethodPost, "/v1/user-key/rotate", dto.RotateMasterKeyRequest{
			NewPublicKey:    testMasterPub,
			ExpectedVersion: 1,
		}, uuid.Must(uuid.NewV7()))

		handler.RotateMasterKeyHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Contains(t, w.Body.String(), "validation_error")
		mockRotation.AssertNotCalled(t, "Rotate")
	})
}

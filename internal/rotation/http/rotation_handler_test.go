package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	identityHTTP "github.com/allisson/envie/internal/identity/http"
	rotationDomain "github.com/allisson/envie/internal/rotation/domain"
	"github.com/allisson/envie/internal/rotation/http/dto"
	"github.com/allisson/envie/internal/rotation/http/mocks"
)

const testCiphertext = "Y2lwaGVydGV4dA=="

var testChecksum = strings.Repeat("ab", 32)

// setupTestHandler creates a test handler with a mocked use case.
func setupTestHandler(t *testing.T) (*RotationHandler, *mocks.MockRotationUseCase) {
	t.Helper()

	gin.SetMode(gin.TestMode)

	mockUseCase := &mocks.MockRotationUseCase{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return NewRotationHandler(mockUseCase, logger), mockUseCase
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
		req = req.WithContext(identityHTTP.WithUserID(req.Context(), userID))
	}

	c.Request = req

	return c, w
}

func pendingRotation(projectID, initiatedBy uuid.UUID) *rotationDomain.PendingKeyRotation {
	now := time.Now().UTC()
	return &rotationDomain.PendingKeyRotation{
		ID:                uuid.Must(uuid.NewV7()),
		ProjectID:         projectID,
		InitiatedBy:       initiatedBy,
		NewKeyVersion:     2,
		Status:            rotationDomain.StatusPending,
		RequiredApprovals: 1,
		ConfigChecksum:    testChecksum,
		ExpiresAt:         now.Add(rotationDomain.DefaultTTL),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

func initiateRequest(teamID, itemID uuid.UUID) dto.InitiateRotationRequest {
	return dto.InitiateRotationRequest{
		ExpectedChecksum:  testChecksum,
		RequiredApprovals: 1,
		ConfigItems: []dto.ConfigItemSnapshotRequest{
			{ConfigItemID: itemID.String(), ValueCiphertext: testCiphertext},
		},
		TeamKeys: []dto.TeamKeySnapshotRequest{
			{TeamID: teamID.String(), EncryptedProjectKey: testCiphertext},
		},
	}
}

func TestRotationHandler_InitiateHandler(t *testing.T) {
	t.Run("Success_ValidProposal", func(t *testing.T) {
		handler, mockUseCase := setupTestHandler(t)

		projectID := uuid.Must(uuid.NewV7())
		userID := uuid.Must(uuid.NewV7())
		teamID := uuid.Must(uuid.NewV7())
		itemID := uuid.Must(uuid.NewV7())

		rotation := pendingRotation(projectID, userID)

		mockUseCase.On("Initiate", mock.Anything, mock.MatchedBy(func(input *rotationDomain.InitiateInput) bool {
			return input.ProjectID == projectID &&
				input.InitiatedBy == userID &&
				input.ExpectedChecksum == testChecksum &&
				len(input.ConfigItems) == 1 &&
				input.ConfigItems[0].ConfigItemID == itemID &&
				len(input.TeamKeys) == 1 &&
				input.TeamKeys[0].TeamID == teamID
		})).Return(rotation, nil).Once()

		c, w := createTestContext(
			http.MethodPost,
			"/v1/projects/"+projectID.String()+"/rotations",
			initiateRequest(teamID, itemID),
			userID,
		)
		c.Params = gin.Params{{Key: "id", Value: projectID.String()}}

		handler.InitiateHandler(c)

		assert.Equal(t, http.StatusCreated, w.Code)

		var response dto.RotationResponse
		err := json.Unmarshal(w.Body.Bytes(), &response)
		assert.NoError(t, err)
		assert.Equal(t, rotation.ID.String(), response.ID)
		assert.Equal(t, projectID.String(), response.ProjectID)
		assert.Equal(t, string(rotationDomain.StatusPending), response.Status)
		assert.Equal(t, uint(2), response.NewKeyVersion)

		mockUseCase.AssertExpectations(t)
	})

	t.Run("Error_Unauthenticated", func(t *testing.T) {
		handler, mockUseCase := setupTestHandler(t)

		projectID := uuid.Must(uuid.NewV7())

		c, w := createTestContext(
			http.MethodPost,
			"/v1/projects/"+projectID.String()+"/rotations",
			initiateRequest(uuid.Must(uuid.NewV7()), uuid.Must(uuid.NewV7())),
			uuid.Nil,
		)
		c.Params = gin.Params{{Key: "id", Value: projectID.String()}}

		handler.InitiateHandler(c)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		mockUseCase.AssertNotCalled(t, "Initiate")
	})

	t.Run("Error_InvalidProjectID", func(t *testing.T) {
		handler, mockUseCase := setupTestHandler(t)

		c, w := createTestContext(
			http.MethodPost,
			"/v1/projects/not-a-uuid/rotations",
			initiateRequest(uuid.Must(uuid.NewV7()), uuid.Must(uuid.NewV7())),
			uuid.Must(uuid.NewV7()),
		)
		c.Params = gin.Params{{Key: "id", Value: "not-a-uuid"}}

		handler.InitiateHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		mockUseCase.AssertNotCalled(t, "Initiate")
	})

	t.Run("Error_MissingTeamKeys", func(t *testing.T) {
		handler, mockUseCase := setupTestHandler(t)

		projectID := uuid.Must(uuid.NewV7())
		request := initiateRequest(uuid.Must(uuid.NewV7()), uuid.Must(uuid.NewV7()))
		request.TeamKeys = nil

		c, w := createTestContext(
			http.MethodPost,
			"/v1/projects/"+projectID.String()+"/rotations",
			request,
			uuid.Must(uuid.NewV7()),
		)
		c.Params = gin.Params{{Key: "id", Value: projectID.String()}}

		handler.InitiateHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

		var response map[string]interface{}
		err := json.Unmarshal(w.Body.Bytes(), &response)
		assert.NoError(t, err)
		assert.Equal(t, "validation_error", response["error"])

		mockUseCase.AssertNotCalled(t, "Initiate")
	})

	t.Run("Error_InvalidChecksum", func(t *testing.T) {
		handler, mockUseCase := setupTestHandler(t)

		projectID := uuid.Must(uuid.NewV7())
		request := initiateRequest(uuid.Must(uuid.NewV7()), uuid.Must(uuid.NewV7()))
		request.ExpectedChecksum = "not-hex"

		c, w := createTestContext(
			http.MethodPost,
			"/v1/projects/"+projectID.String()+"/rotations",
			request,
			uuid.Must(uuid.NewV7()),
		)
		c.Params = gin.Params{{Key: "id", Value: projectID.String()}}

		handler.InitiateHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		mockUseCase.AssertNotCalled(t, "Initiate")
	})

	t.Run("Error_StaleSnapshot", func(t *testing.T) {
		handler, mockUseCase := setupTestHandler(t)

		projectID := uuid.Must(uuid.NewV7())
		userID := uuid.Must(uuid.NewV7())

		mockUseCase.On("Initiate", mock.Anything, mock.Anything).
			Return(nil, rotationDomain.ErrRotationStale).Once()

		c, w := createTestContext(
			http.MethodPost,
			"/v1/projects/"+projectID.String()+"/rotations",
			initiateRequest(uuid.Must(uuid.NewV7()), uuid.Must(uuid.NewV7())),
			userID,
		)
		c.Params = gin.Params{{Key: "id", Value: projectID.String()}}

		handler.InitiateHandler(c)

		assert.Equal(t, http.StatusConflict, w.Code)
		mockUseCase.AssertExpectations(t)
	})
}

func TestRotationHandler_ApproveHandler(t *testing.T) {
	t.Run("Success_QuorumReached", func(t *testing.T) {
		handler, mockUseCase := setupTestHandler(t)

		projectID := uuid.Must(uuid.NewV7())
		userID := uuid.Must(uuid.NewV7())

		rotation := pendingRotation(projectID, uuid.Must(uuid.NewV7()))
		rotation.Status = rotationDomain.StatusApproved
		rotation.Approvals = []*rotationDomain.KeyRotationApproval{
			{
				ID:                 uuid.Must(uuid.NewV7()),
				RotationID:         rotation.ID,
				UserID:             userID,
				Approved:           true,
				VerifiedDecryption: true,
				Comment:            "looks good",
				CreatedAt:          time.Now().UTC(),
			},
		}

		mockUseCase.On("Approve", mock.Anything, rotation.ID, userID, "looks good", true).
			Return(rotation, nil).Once()

		c, w := createTestContext(
			http.MethodPost,
			"/v1/rotations/"+rotation.ID.String()+"/approve",
			dto.VoteRequest{Comment: "looks good", VerifiedDecryption: true},
			userID,
		)
		c.Params = gin.Params{{Key: "id", Value: rotation.ID.String()}}

		handler.ApproveHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)

		var response dto.RotationResponse
		err := json.Unmarshal(w.Body.Bytes(), &response)
		assert.NoError(t, err)
		assert.Equal(t, string(rotationDomain.StatusApproved), response.Status)
		assert.Equal(t, 1, response.ApprovalCount)
		assert.Len(t, response.Approvals, 1)
		assert.Equal(t, "looks good", response.Approvals[0].Comment)
		assert.True(t, response.Approvals[0].VerifiedDecryption)

		mockUseCase.AssertExpectations(t)
	})

	t.Run("Error_AlreadyVoted", func(t *testing.T) {
		handler, mockUseCase := setupTestHandler(t)

		rotationID := uuid.Must(uuid.NewV7())
		userID := uuid.Must(uuid.NewV7())

		mockUseCase.On("Approve", mock.Anything, rotationID, userID, "", false).
			Return(nil, rotationDomain.ErrAlreadyVoted).Once()

		c, w := createTestContext(
			http.MethodPost,
			"/v1/rotations/"+rotationID.String()+"/approve",
			dto.VoteRequest{},
			userID,
		)
		c.Params = gin.Params{{Key: "id", Value: rotationID.String()}}

		handler.ApproveHandler(c)

		assert.Equal(t, http.StatusConflict, w.Code)
		mockUseCase.AssertExpectations(t)
	})

	t.Run("Error_Expired", func(t *testing.T) {
		handler, mockUseCase := setupTestHandler(t)

		rotationID := uuid.Must(uuid.NewV7())
		userID := uuid.Must(uuid.NewV7())

		mockUseCase.On("Approve", mock.Anything, rotationID, userID, "", false).
			Return(nil, rotationDomain.ErrRotationExpired).Once()

		c, w := createTestContext(
			http.MethodPost,
			"/v1/rotations/"+rotationID.String()+"/approve",
			dto.VoteRequest{},
			userID,
		)
		c.Params = gin.Params{{Key: "id", Value: rotationID.String()}}

		handler.ApproveHandler(c)

		assert.Equal(t, http.StatusGone, w.Code)
		mockUseCase.AssertExpectations(t)
	})

	t.Run("Error_SelfApproval", func(t *testing.T) {
		handler, mockUseCase := setupTestHandler(t)

		rotationID := uuid.Must(uuid.NewV7())
		userID := uuid.Must(uuid.NewV7())

		mockUseCase.On("Approve", mock.Anything, rotationID, userID, "", false).
			Return(nil, rotationDomain.ErrSelfApproval).Once()

		c, w := createTestContext(
			http.MethodPost,
			"/v1/rotations/"+rotationID.String()+"/approve",
			dto.VoteRequest{},
			userID,
		)
		c.Params = gin.Params{{Key: "id", Value: rotationID.String()}}

		handler.ApproveHandler(c)

		assert.Equal(t, http.StatusForbidden, w.Code)
		mockUseCase.AssertExpectations(t)
	})
}

func TestRotationHandler_RejectHandler(t *testing.T) {
	t.Run("Success_VetoFinalizes", func(t *testing.T) {
		handler, mockUseCase := setupTestHandler(t)

		projectID := uuid.Must(uuid.NewV7())
		userID := uuid.Must(uuid.NewV7())

		rotation := pendingRotation(projectID, uuid.Must(uuid.NewV7()))
		rotation.Status = rotationDomain.StatusRejected

		mockUseCase.On("Reject", mock.Anything, rotation.ID, userID, "wrong key", false).
			Return(rotation, nil).Once()

		c, w := createTestContext(
			http.MethodPost,
			"/v1/rotations/"+rotation.ID.String()+"/reject",
			dto.VoteRequest{Comment: "wrong key"},
			userID,
		)
		c.Params = gin.Params{{Key: "id", Value: rotation.ID.String()}}

		handler.RejectHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)

		var response dto.RotationResponse
		err := json.Unmarshal(w.Body.Bytes(), &response)
		assert.NoError(t, err)
		assert.Equal(t, string(rotationDomain.StatusRejected), response.Status)

		mockUseCase.AssertExpectations(t)
	})

	t.Run("Error_CommentTooLong", func(t *testing.T) {
		handler, mockUseCase := setupTestHandler(t)

		rotationID := uuid.Must(uuid.NewV7())

		c, w := createTestContext(
			http.MethodPost,
			"/v1/rotations/"+rotationID.String()+"/reject",
			dto.VoteRequest{Comment: strings.Repeat("x", 501)},
			uuid.Must(uuid.NewV7()),
		)
		c.Params = gin.Params{{Key: "id", Value: rotationID.String()}}

		handler.RejectHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		mockUseCase.AssertNotCalled(t, "Reject")
	})
}

func TestRotationHandler_CancelHandler(t *testing.T) {
	t.Run("Success_InitiatorCancels", func(t *testing.T) {
		handler, mockUseCase := setupTestHandler(t)

		projectID := uuid.Must(uuid.NewV7())
		userID := uuid.Must(uuid.NewV7())

		rotation := pendingRotation(projectID, userID)
		rotation.Status = rotationDomain.StatusRejected

		mockUseCase.On("Cancel", mock.Anything, rotation.ID, userID).
			Return(rotation, nil).Once()

		c, w := createTestContext(
			http.MethodPost,
			"/v1/rotations/"+rotation.ID.String()+"/cancel",
			nil,
			userID,
		)
		c.Params = gin.Params{{Key: "id", Value: rotation.ID.String()}}

		handler.CancelHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)
		mockUseCase.AssertExpectations(t)
	})

	t.Run("Error_NotInitiator", func(t *testing.T) {
		handler, mockUseCase := setupTestHandler(t)

		rotationID := uuid.Must(uuid.NewV7())
		userID := uuid.Must(uuid.NewV7())

		mockUseCase.On("Cancel", mock.Anything, rotationID, userID).
			Return(nil, rotationDomain.ErrNotInitiator).Once()

		c, w := createTestContext(
			http.MethodPost,
			"/v1/rotations/"+rotationID.String()+"/cancel",
			nil,
			userID,
		)
		c.Params = gin.Params{{Key: "id", Value: rotationID.String()}}

		handler.CancelHandler(c)

		assert.Equal(t, http.StatusForbidden, w.Code)
		mockUseCase.AssertExpectations(t)
	})
}

func TestRotationHandler_GetPendingHandler(t *testing.T) {
	t.Run("Success_PendingRotation", func(t *testing.T) {
		handler, mockUseCase := setupTestHandler(t)

		projectID := uuid.Must(uuid.NewV7())
		userID := uuid.Must(uuid.NewV7())
		rotation := pendingRotation(projectID, userID)

		mockUseCase.On("GetPending", mock.Anything, projectID).
			Return(rotation, nil).Once()

		c, w := createTestContext(
			http.MethodGet,
			"/v1/projects/"+projectID.String()+"/rotations/pending",
			nil,
			userID,
		)
		c.Params = gin.Params{{Key: "id", Value: projectID.String()}}

		handler.GetPendingHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)

		var response dto.RotationResponse
		err := json.Unmarshal(w.Body.Bytes(), &response)
		assert.NoError(t, err)
		assert.Equal(t, rotation.ID.String(), response.ID)
		assert.Equal(t, testChecksum, response.ConfigChecksum)

		mockUseCase.AssertExpectations(t)
	})

	t.Run("Error_NothingPending", func(t *testing.T) {
		handler, mockUseCase := setupTestHandler(t)

		projectID := uuid.Must(uuid.NewV7())

		mockUseCase.On("GetPending", mock.Anything, projectID).
			Return(nil, rotationDomain.ErrRotationNotFound).Once()

		c, w := createTestContext(
			http.MethodGet,
			"/v1/projects/"+projectID.String()+"/rotations/pending",
			nil,
			uuid.Must(uuid.NewV7()),
		)
		c.Params = gin.Params{{Key: "id", Value: projectID.String()}}

		handler.GetPendingHandler(c)

		assert.Equal(t, http.StatusNotFound, w.Code)
		mockUseCase.AssertExpectations(t)
	})
}

func TestRotationHandler_ListPendingHandler(t *testing.T) {
	t.Run("Success_PendingVotes", func(t *testing.T) {
		handler, mockUseCase := setupTestHandler(t)

		userID := uuid.Must(uuid.NewV7())
		rotations := []*rotationDomain.PendingKeyRotation{
			pendingRotation(uuid.Must(uuid.NewV7()), uuid.Must(uuid.NewV7())),
			pendingRotation(uuid.Must(uuid.NewV7()), uuid.Must(uuid.NewV7())),
		}

		mockUseCase.On("ListPendingForUser", mock.Anything, userID).
			Return(rotations, nil).Once()

		c, w := createTestContext(http.MethodGet, "/v1/rotations/pending", nil, userID)

		handler.ListPendingHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)

		var response dto.ListRotationsResponse
		err := json.Unmarshal(w.Body.Bytes(), &response)
		assert.NoError(t, err)
		assert.Len(t, response.Rotations, 2)

		mockUseCase.AssertExpectations(t)
	})

	t.Run("Success_Empty", func(t *testing.T) {
		handler, mockUseCase := setupTestHandler(t)

		userID := uuid.Must(uuid.NewV7())

		mockUseCase.On("ListPendingForUser", mock.Anything, userID).
			Return([]*rotationDomain.PendingKeyRotation{}, nil).Once()

		c, w := createTestContext(http.MethodGet, "/v1/rotations/pending", nil, userID)

		handler.ListPendingHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)

		var response dto.ListRotationsResponse
		err := json.Unmarshal(w.Body.Bytes(), &response)
		assert.NoError(t, err)
		assert.Empty(t, response.Rotations)

		mockUseCase.AssertExpectations(t)
	})
}

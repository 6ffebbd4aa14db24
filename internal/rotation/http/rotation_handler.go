// Package http provides HTTP handlers for the project key rotation protocol:
// proposal submission, quorum voting, cancellation and pending lookups.
package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "github.com/allisson/envie/internal/errors"
	"github.com/allisson/envie/internal/httputil"
	identityHTTP "github.com/allisson/envie/internal/identity/http"
	rotationDomain "github.com/allisson/envie/internal/rotation/domain"
	"github.com/allisson/envie/internal/rotation/http/dto"
	rotationUseCase "github.com/allisson/envie/internal/rotation/usecase"
	customValidation "github.com/allisson/envie/internal/validation"
)

// RotationHandler handles HTTP requests for the key rotation protocol.
type RotationHandler struct {
	rotationUseCase rotationUseCase.RotationUseCase
	logger          *slog.Logger
}

// NewRotationHandler creates a new rotation handler with required dependencies.
func NewRotationHandler(useCase rotationUseCase.RotationUseCase, logger *slog.Logger) *RotationHandler {
	return &RotationHandler{
		rotationUseCase: useCase,
		logger:          logger,
	}
}

// authenticatedUser extracts the authenticated user ID set by the device
// authentication middleware. Writes a 401 response when absent.
func (h *RotationHandler) authenticatedUser(c *gin.Context) (uuid.UUID, bool) {
	userID, ok := identityHTTP.GetUserID(c.Request.Context())
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

// InitiateHandler submits a complete rotation proposal for a project.
// POST /v1/projects/:id/rotations
// Returns 201 Created with the rotation; with a zero quorum the returned
// rotation is already approved.
func (h *RotationHandler) InitiateHandler(c *gin.Context) {
	userID, ok := h.authenticatedUser(c)
	if !ok {
		return
	}

	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleValidationErrorGin(c,
			fmt.Errorf("invalid project ID format: must be a valid UUID"),
			h.logger)
		return
	}

	var req dto.InitiateRotationRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	input, err := req.ToInput(projectID, userID)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	rotation, err := h.rotationUseCase.Initiate(c.Request.Context(), input)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapRotationToResponse(rotation))
}

// ApproveHandler casts a positive vote on a pending rotation.
// POST /v1/rotations/:id/approve
// Returns 200 OK; the quorum-reaching vote returns the rotation already
// committed with status approved.
func (h *RotationHandler) ApproveHandler(c *gin.Context) {
	h.voteHandler(c, h.rotationUseCase.Approve)
}

// RejectHandler casts a veto on a pending rotation.
// POST /v1/rotations/:id/reject
// Returns 200 OK with the rejected rotation. A single veto finalizes.
func (h *RotationHandler) RejectHandler(c *gin.Context) {
	h.voteHandler(c, h.rotationUseCase.Reject)
}

// voteHandler is the shared parse/validate/respond path for approve and reject.
func (h *RotationHandler) voteHandler(
	c *gin.Context,
	vote func(ctx context.Context, rotationID, userID uuid.UUID, comment string, verifiedDecryption bool) (*rotationDomain.PendingKeyRotation, error),
) {
	userID, ok := h.authenticatedUser(c)
	if !ok {
		return
	}

	rotationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleValidationErrorGin(c,
			fmt.Errorf("invalid rotation ID format: must be a valid UUID"),
			h.logger)
		return
	}

	var req dto.VoteRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	rotation, err := vote(c.Request.Context(), rotationID, userID, req.Comment, req.VerifiedDecryption)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapRotationToResponse(rotation))
}

// CancelHandler withdraws a pending rotation before any vote is cast.
// POST /v1/rotations/:id/cancel - Initiator only.
// Returns 200 OK with the rejected rotation.
func (h *RotationHandler) CancelHandler(c *gin.Context) {
	userID, ok := h.authenticatedUser(c)
	if !ok {
		return
	}

	rotationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleValidationErrorGin(c,
			fmt.Errorf("invalid rotation ID format: must be a valid UUID"),
			h.logger)
		return
	}

	rotation, err := h.rotationUseCase.Cancel(c.Request.Context(), rotationID, userID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapRotationToResponse(rotation))
}

// GetPendingHandler retrieves the project's pending rotation, expiring it
// lazily when the actionable window has closed.
// GET /v1/projects/:id/rotations/pending
// Returns 200 OK, 404 Not Found when nothing is pending, or 410 Gone when
// the rotation just expired.
func (h *RotationHandler) GetPendingHandler(c *gin.Context) {
	if _, ok := h.authenticatedUser(c); !ok {
		return
	}

	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleValidationErrorGin(c,
			fmt.Errorf("invalid project ID format: must be a valid UUID"),
			h.logger)
		return
	}

	rotation, err := h.rotationUseCase.GetPending(c.Request.Context(), projectID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapRotationToResponse(rotation))
}

// ListPendingHandler retrieves pending rotations awaiting the caller's vote.
// GET /v1/rotations/pending
// Returns 200 OK with the list, which may be empty.
func (h *RotationHandler) ListPendingHandler(c *gin.Context) {
	userID, ok := h.authenticatedUser(c)
	if !ok {
		return
	}

	rotations, err := h.rotationUseCase.ListPendingForUser(c.Request.Context(), userID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapRotationsToListResponse(rotations))
}

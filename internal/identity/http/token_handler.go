package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "github.com/allisson/envie/internal/errors"
	"github.com/allisson/envie/internal/httputil"
	"github.com/allisson/envie/internal/identity/http/dto"
	identityUseCase "github.com/allisson/envie/internal/identity/usecase"
	customValidation "github.com/allisson/envie/internal/validation"
)

// TokenHandler handles HTTP requests for project token management and the
// CLI bootstrap lookup.
type TokenHandler struct {
	tokenUseCase identityUseCase.TokenUseCase
	logger       *slog.Logger
}

// NewTokenHandler creates a new token handler with required dependencies.
func NewTokenHandler(tokenUseCase identityUseCase.TokenUseCase, logger *slog.Logger) *TokenHandler {
	return &TokenHandler{
		tokenUseCase: tokenUseCase,
		logger:       logger,
	}
}

func (h *TokenHandler) authenticatedUser(c *gin.Context) (uuid.UUID, bool) {
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

// CreateHandler persists a client-built token record for a project. The
// caller generated the token secret locally and sends only the derived
// identity hash plus the project key wrapped to the derived public key.
// POST /v1/projects/:id/tokens
// Returns 201 Created with the token metadata.
func (h *TokenHandler) CreateHandler(c *gin.Context) {
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

	var req dto.CreateTokenRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}
	if req.ExpiresAt != nil && !req.ExpiresAt.After(time.Now().UTC()) {
		httputil.HandleValidationErrorGin(c,
			fmt.Errorf("expires_at must be in the future"),
			h.logger)
		return
	}

	token, err := h.tokenUseCase.Create(c.Request.Context(), &identityUseCase.CreateTokenInput{
		ProjectID:           projectID,
		Name:                req.Name,
		TokenPrefix:         req.TokenPrefix,
		IdentityIDHash:      req.IdentityIDHash,
		EncryptedProjectKey: req.EncryptedProjectKey,
		ExpiresAt:           req.ExpiresAt,
		CreatedBy:           userID,
	})
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapTokenToResponse(token))
}

// ListHandler retrieves token metadata for a project. Identity hashes and
// wrapped keys are never listed.
// GET /v1/projects/:id/tokens?offset=0&limit=50
// Returns 200 OK with the page.
func (h *TokenHandler) ListHandler(c *gin.Context) {
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

	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	tokens, err := h.tokenUseCase.ListByProject(c.Request.Context(), projectID, offset, limit)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapTokensToListResponse(tokens))
}

// RevokeHandler deletes a single project token.
// DELETE /v1/tokens/:id
// Returns 204 No Content.
func (h *TokenHandler) RevokeHandler(c *gin.Context) {
	if _, ok := h.authenticatedUser(c); !ok {
		return
	}

	tokenID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleValidationErrorGin(c,
			fmt.Errorf("invalid token ID format: must be a valid UUID"),
			h.logger)
		return
	}

	if err := h.tokenUseCase.Revoke(c.Request.Context(), tokenID); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Status(http.StatusNoContent)
}

// BootstrapHandler returns the authenticated CLI identity's wrapped project
// key. The CLI decrypts it with the private key derived from its token
// secret; the server only echoes ciphertext it stored at token creation.
// GET /v1/cli/bootstrap - CLI identity authentication.
// Returns 200 OK.
func (h *TokenHandler) BootstrapHandler(c *gin.Context) {
	token, ok := GetProjectToken(c.Request.Context())
	if !ok {
		httputil.HandleErrorGin(
			c,
			apperrors.Wrap(apperrors.ErrUnauthorized, "no authenticated identity in request"),
			h.logger,
		)
		return
	}

	c.JSON(http.StatusOK, &dto.BootstrapResponse{
		ProjectID:           token.ProjectID,
		EncryptedProjectKey: token.EncryptedProjectKey,
	})
}

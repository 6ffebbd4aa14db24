// Package http provides HTTP handlers for encrypted project config: access
// path lookup, config item reads and writes, file key records and the CLI
// snapshot endpoint.
package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "github.com/allisson/envie/internal/errors"
	"github.com/allisson/envie/internal/httputil"
	identityHTTP "github.com/allisson/envie/internal/identity/http"
	"github.com/allisson/envie/internal/project/http/dto"
	projectUseCase "github.com/allisson/envie/internal/project/usecase"
	customValidation "github.com/allisson/envie/internal/validation"
)

// ConfigHandler handles HTTP requests for encrypted project config.
type ConfigHandler struct {
	configUseCase projectUseCase.ConfigUseCase
	logger        *slog.Logger
}

// NewConfigHandler creates a new config handler with required dependencies.
func NewConfigHandler(configUseCase projectUseCase.ConfigUseCase, logger *slog.Logger) *ConfigHandler {
	return &ConfigHandler{
		configUseCase: configUseCase,
		logger:        logger,
	}
}

func (h *ConfigHandler) authenticatedUser(c *gin.Context) (uuid.UUID, bool) {
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

func (h *ConfigHandler) projectID(c *gin.Context) (uuid.UUID, bool) {
	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleValidationErrorGin(c,
			fmt.Errorf("invalid project ID format: must be a valid UUID"),
			h.logger)
		return uuid.Nil, false
	}
	return projectID, true
}

// GetProjectHandler retrieves project metadata for an entitled user.
// GET /v1/projects/:id
// Returns 200 OK, or 403 when the user has no access path.
func (h *ConfigHandler) GetProjectHandler(c *gin.Context) {
	userID, ok := h.authenticatedUser(c)
	if !ok {
		return
	}
	projectID, ok := h.projectID(c)
	if !ok {
		return
	}

	project, err := h.configUseCase.GetProject(c.Request.Context(), projectID, userID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapProjectToResponse(project))
}

// GetAccessHandler retrieves the caller's wrapped keys for a project.
// GET /v1/projects/:id/access
// Returns 200 OK with ciphertext wraps the caller decrypts locally.
func (h *ConfigHandler) GetAccessHandler(c *gin.Context) {
	userID, ok := h.authenticatedUser(c)
	if !ok {
		return
	}
	projectID, ok := h.projectID(c)
	if !ok {
		return
	}

	access, err := h.configUseCase.GetAccess(c.Request.Context(), projectID, userID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapAccessToResponse(access))
}

// ListItemsHandler retrieves the project's config items in persisted order.
// GET /v1/projects/:id/config
// Returns 200 OK with the list.
func (h *ConfigHandler) ListItemsHandler(c *gin.Context) {
	userID, ok := h.authenticatedUser(c)
	if !ok {
		return
	}
	projectID, ok := h.projectID(c)
	if !ok {
		return
	}

	items, err := h.configUseCase.ListItems(c.Request.Context(), projectID, userID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapConfigItemsToListResponse(items))
}

// SetItemHandler creates or replaces one named config value.
// PUT /v1/projects/:id/config/:name
// Returns 200 OK with the stored item.
func (h *ConfigHandler) SetItemHandler(c *gin.Context) {
	userID, ok := h.authenticatedUser(c)
	if !ok {
		return
	}
	projectID, ok := h.projectID(c)
	if !ok {
		return
	}

	name := c.Param("name")
	if err := dto.ValidateConfigItemName(name); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	var req dto.SetConfigItemRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	item, err := h.configUseCase.SetItem(c.Request.Context(), projectID, userID, name, req.ValueCiphertext)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapConfigItemToResponse(item))
}

// DeleteItemHandler removes one named config value.
// DELETE /v1/projects/:id/config/:name
// Returns 204 No Content.
func (h *ConfigHandler) DeleteItemHandler(c *gin.Context) {
	userID, ok := h.authenticatedUser(c)
	if !ok {
		return
	}
	projectID, ok := h.projectID(c)
	if !ok {
		return
	}

	name := c.Param("name")
	if err := dto.ValidateConfigItemName(name); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	if err := h.configUseCase.DeleteItem(c.Request.Context(), projectID, userID, name); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Status(http.StatusNoContent)
}

// ListFilesHandler retrieves the project's encrypted file records.
// GET /v1/projects/:id/files
// Returns 200 OK with the list.
func (h *ConfigHandler) ListFilesHandler(c *gin.Context) {
	userID, ok := h.authenticatedUser(c)
	if !ok {
		return
	}
	projectID, ok := h.projectID(c)
	if !ok {
		return
	}

	files, err := h.configUseCase.ListFiles(c.Request.Context(), projectID, userID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapFilesToListResponse(files))
}

// CreateFileHandler records a new encrypted file key wrap.
// POST /v1/projects/:id/files
// Returns 201 Created with the file record.
func (h *ConfigHandler) CreateFileHandler(c *gin.Context) {
	userID, ok := h.authenticatedUser(c)
	if !ok {
		return
	}
	projectID, ok := h.projectID(c)
	if !ok {
		return
	}

	var req dto.CreateFileRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	file, err := h.configUseCase.CreateFile(c.Request.Context(), userID, &projectUseCase.CreateFileInput{
		ProjectID:        projectID,
		Name:             req.Name,
		SizeBytes:        req.SizeBytes,
		EncryptedFileKey: req.EncryptedFileKey,
	})
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapFileToResponse(file))
}

// SnapshotHandler serves the full ciphertext state of the authenticated CLI
// identity's project: metadata, config items and file key wraps.
// GET /v1/cli/config - CLI identity authentication.
// Returns 200 OK.
func (h *ConfigHandler) SnapshotHandler(c *gin.Context) {
	token, ok := identityHTTP.GetProjectToken(c.Request.Context())
	if !ok {
		httputil.HandleErrorGin(
			c,
			apperrors.Wrap(apperrors.ErrUnauthorized, "no authenticated identity in request"),
			h.logger,
		)
		return
	}

	snapshot, err := h.configUseCase.Snapshot(c.Request.Context(), token.ProjectID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapSnapshotToResponse(snapshot))
}

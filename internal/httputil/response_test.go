package httputil

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/envie/internal/errors"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHandleErrorGin(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		statusCode int
		errorCode  string
	}{
		{
			name:       "not found",
			err:        apperrors.Wrap(apperrors.ErrNotFound, "device lookup"),
			statusCode: http.StatusNotFound,
			errorCode:  "not_found",
		},
		{
			name:       "conflict",
			err:        apperrors.ErrConflict,
			statusCode: http.StatusConflict,
			errorCode:  "conflict",
		},
		{
			name:       "invalid input",
			err:        apperrors.Wrap(apperrors.ErrInvalidInput, "bad ciphertext"),
			statusCode: http.StatusUnprocessableEntity,
			errorCode:  "invalid_input",
		},
		{
			name:       "unauthorized",
			err:        apperrors.ErrUnauthorized,
			statusCode: http.StatusUnauthorized,
			errorCode:  "unauthorized",
		},
		{
			name:       "expired",
			err:        apperrors.ErrExpired,
			statusCode: http.StatusGone,
			errorCode:  "expired",
		},
		{
			name:       "forbidden",
			err:        apperrors.ErrForbidden,
			statusCode: http.StatusForbidden,
			errorCode:  "forbidden",
		},
		{
			name:       "unknown error hides details",
			err:        apperrors.New("database exploded"),
			statusCode: http.StatusInternalServerError,
			errorCode:  "internal_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			HandleErrorGin(c, tt.err, testLogger())

			assert.Equal(t, tt.statusCode, w.Code)

			var response ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
			assert.Equal(t, tt.errorCode, response.Error)

			if tt.errorCode == "internal_error" {
				assert.NotContains(t, response.Message, "database exploded")
			}
		})
	}
}

func TestHandleErrorGin_NilError(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	HandleErrorGin(c, nil, testLogger())

	assert.Empty(t, w.Body.String())
}

func TestHandleValidationErrorGin(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	HandleValidationErrorGin(c, apperrors.New("name: cannot be blank"), testLogger())

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var response ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "validation_error", response.Error)
	assert.Contains(t, response.Message, "cannot be blank")
}

func TestHandleBadRequestGin(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	HandleBadRequestGin(c, apperrors.New("invalid offset parameter"), testLogger())

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var response ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "bad_request", response.Error)
}

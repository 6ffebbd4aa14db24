// Package api is the CLI's HTTP client for the device endpoints: master key
// rotation and project token creation. The client authenticates as a device
// and tracks the X-Master-Key-Version response header so callers can detect
// that another device rotated underneath them.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	apperrors "github.com/allisson/envie/internal/errors"
	"github.com/allisson/envie/internal/httputil"
	identityHTTP "github.com/allisson/envie/internal/identity/http"
	identityDTO "github.com/allisson/envie/internal/identity/http/dto"
	projectDTO "github.com/allisson/envie/internal/project/http/dto"
)

// Client talks to the server as an approved device.
type Client struct {
	baseURL    string
	deviceID   string
	httpClient *http.Client
	logger     *slog.Logger

	mu                       sync.Mutex
	lastSeenMasterKeyVersion int
}

// NewClient creates a client bound to one device identity.
func NewClient(baseURL, deviceID string, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		deviceID:   deviceID,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

// LastSeenMasterKeyVersion returns the most recent master key version the
// server reported, or zero before the first response.
func (c *Client) LastSeenMasterKeyVersion() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSeenMasterKeyVersion
}

// GetUserKey retrieves the caller's master public key and version.
func (c *Client) GetUserKey(ctx context.Context) (*identityDTO.UserKeyResponse, error) {
	var response identityDTO.UserKeyResponse
	if err := c.do(ctx, http.MethodGet, "/v1/user-key", nil, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// GetRotationState retrieves the coverage state a rotation bundle must be
// built against.
func (c *Client) GetRotationState(ctx context.Context) (*identityDTO.RotationStateResponse, error) {
	var response identityDTO.RotationStateResponse
	if err := c.do(ctx, http.MethodGet, "/v1/user-key/rotation-state", nil, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// RotateMasterKey submits a complete rotation bundle.
func (c *Client) RotateMasterKey(ctx context.Context, request *identityDTO.RotateMasterKeyRequest) (*identityDTO.UserKeyResponse, error) {
	var response identityDTO.UserKeyResponse
	if err := c.do(ctx, http.MethodPost, "/v1/user-key/rotate", request, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// GetProjectAccess retrieves the wrapped keys on the caller's path to one
// project key. Every field in the response is ciphertext.
func (c *Client) GetProjectAccess(ctx context.Context, projectID string) (*projectDTO.AccessResponse, error) {
	var response projectDTO.AccessResponse
	if err := c.do(ctx, http.MethodGet, "/v1/projects/"+projectID+"/access", nil, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// CreateProjectToken persists a client-built token record. The token secret
// itself never crosses the wire; only its identity hash and the project key
// wrapped to the token's public key do.
func (c *Client) CreateProjectToken(ctx context.Context, projectID string, request *identityDTO.CreateTokenRequest) (*identityDTO.TokenResponse, error) {
	var response identityDTO.TokenResponse
	if err := c.do(ctx, http.MethodPost, "/v1/projects/"+projectID+"/tokens", request, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return apperrors.Wrap(err, "failed to marshal request body")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return apperrors.Wrap(err, "failed to build request")
	}
	req.Header.Set(identityHTTP.DeviceIdentityHeader, c.deviceID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.Wrap(err, "request failed")
	}
	defer resp.Body.Close()

	if version := resp.Header.Get(identityHTTP.MasterKeyVersionHeader); version != "" {
		if parsed, err := strconv.Atoi(version); err == nil {
			c.mu.Lock()
			c.lastSeenMasterKeyVersion = parsed
			c.mu.Unlock()
		}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return c.decodeError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return apperrors.Wrap(err, "failed to decode response body")
		}
	}

	return nil
}

// decodeError converts a non-2xx response back into the domain sentinel the
// server mapped it from, so callers can branch with apperrors.Is.
func (c *Client) decodeError(resp *http.Response) error {
	var errorResponse httputil.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errorResponse); err != nil {
		return fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	message := errorResponse.Message
	if message == "" {
		message = errorResponse.Error
	}

	var sentinel error
	switch errorResponse.Error {
	case "not_found":
		sentinel = apperrors.ErrNotFound
	case "conflict":
		sentinel = apperrors.ErrConflict
	case "invalid_input", "validation_error":
		sentinel = apperrors.ErrInvalidInput
	case "unauthorized":
		sentinel = apperrors.ErrUnauthorized
	case "expired":
		sentinel = apperrors.ErrExpired
	case "forbidden":
		sentinel = apperrors.ErrForbidden
	default:
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, message)
	}

	return apperrors.Wrap(sentinel, message)
}

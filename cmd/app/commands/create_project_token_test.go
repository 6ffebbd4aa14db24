package commands

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	cryptoService "github.com/allisson/envie/internal/crypto/service"
	apperrors "github.com/allisson/envie/internal/errors"
	identityDTO "github.com/allisson/envie/internal/identity/http/dto"
	identityService "github.com/allisson/envie/internal/identity/service"
	keychainService "github.com/allisson/envie/internal/keychain/service"
	projectDTO "github.com/allisson/envie/internal/project/http/dto"
)

type mockTokenAPI struct {
	mock.Mock
}

func (m *mockTokenAPI) GetProjectAccess(ctx context.Context, projectID string) (*projectDTO.AccessResponse, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*projectDTO.AccessResponse), args.Error(1)
}

func (m *mockTokenAPI) CreateProjectToken(ctx context.Context, projectID string, request *identityDTO.CreateTokenRequest) (*identityDTO.TokenResponse, error) {
	args := m.Called(ctx, projectID, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identityDTO.TokenResponse), args.Error(1)
}

func TestCreateProjectToken(t *testing.T) {
	ctx := context.Background()
	hierarchy := keychainService.NewKeyHierarchy()

	masterKeypair, err := cryptoService.GenerateKeypair()
	require.NoError(t, err)

	teamKey, err := cryptoService.GenerateKey()
	require.NoError(t, err)
	projectKey, err := cryptoService.GenerateKey()
	require.NoError(t, err)

	encryptedTeamKey, err := hierarchy.WrapKeyForPublicKey(masterKeypair.PublicKey, teamKey)
	require.NoError(t, err)
	encryptedProjectKey, err := hierarchy.WrapKeyUnderKey(teamKey, projectKey)
	require.NoError(t, err)

	projectID := uuid.Must(uuid.NewV7())

	t.Run("wraps the project key to the token identity", func(t *testing.T) {
		mockAPI := &mockTokenAPI{}
		mockAPI.On("GetProjectAccess", ctx, projectID.String()).Return(&projectDTO.AccessResponse{
			EncryptedTeamKey:    &encryptedTeamKey,
			EncryptedProjectKey: encryptedProjectKey,
		}, nil)

		var captured *identityDTO.CreateTokenRequest
		mockAPI.On("CreateProjectToken", ctx, projectID.String(), mock.AnythingOfType("*dto.CreateTokenRequest")).
			Run(func(args mock.Arguments) {
				captured = args.Get(2).(*identityDTO.CreateTokenRequest)
			}).
			Return(&identityDTO.TokenResponse{
				ID:          uuid.Must(uuid.NewV7()),
				ProjectID:   projectID,
				Name:        "ci-deploy",
				TokenPrefix: "abc",
				CreatedAt:   time.Now(),
			}, nil)

		var out bytes.Buffer
		err := createProjectToken(ctx, mockAPI, masterKeypair.PrivateKey, projectID.String(), "ci-deploy", nil, &out)

		require.NoError(t, err)
		require.NotNil(t, captured)
		require.Equal(t, "ci-deploy", captured.Name)
		require.Len(t, captured.TokenPrefix, 3)
		require.NoError(t, captured.Validate())
		mockAPI.AssertExpectations(t)

		// The printed token must re-derive the identity the server stored
		// and unlock the wrapped project key.
		output := out.String()
		require.Contains(t, output, "Token (shown once, store it safely):")
		start := strings.Index(output, "envie_")
		require.GreaterOrEqual(t, start, 0)
		token := strings.TrimSpace(output[start:])

		svc := identityService.NewIdentityService()
		secret, err := svc.ParseToken(token)
		require.NoError(t, err)
		identity, err := svc.DeriveIdentity(secret)
		require.NoError(t, err)
		require.Equal(t, captured.IdentityIDHash, identity.IdentityIDHash)

		unwrapped, err := hierarchy.UnwrapKeyWithPrivateKey(identity.PrivateKey, captured.EncryptedProjectKey)
		require.NoError(t, err)
		require.Equal(t, projectKey, unwrapped)
	})

	t.Run("passes the expiry through", func(t *testing.T) {
		expiresAt := time.Now().Add(time.Hour).UTC()

		mockAPI := &mockTokenAPI{}
		mockAPI.On("GetProjectAccess", ctx, projectID.String()).Return(&projectDTO.AccessResponse{
			EncryptedTeamKey:    &encryptedTeamKey,
			EncryptedProjectKey: encryptedProjectKey,
		}, nil)
		mockAPI.On("CreateProjectToken", ctx, projectID.String(), mock.MatchedBy(func(request *identityDTO.CreateTokenRequest) bool {
			return request.ExpiresAt != nil && request.ExpiresAt.Equal(expiresAt)
		})).Return(&identityDTO.TokenResponse{
			ProjectID:   projectID,
			Name:        "short-lived",
			TokenPrefix: "abc",
			ExpiresAt:   &expiresAt,
		}, nil)

		var out bytes.Buffer
		err := createProjectToken(ctx, mockAPI, masterKeypair.PrivateKey, projectID.String(), "short-lived", &expiresAt, &out)

		require.NoError(t, err)
		mockAPI.AssertExpectations(t)
	})

	t.Run("does not call the server when the key cannot be unlocked", func(t *testing.T) {
		otherKeypair, err := cryptoService.GenerateKeypair()
		require.NoError(t, err)

		mockAPI := &mockTokenAPI{}
		mockAPI.On("GetProjectAccess", ctx, projectID.String()).Return(&projectDTO.AccessResponse{
			EncryptedTeamKey:    &encryptedTeamKey,
			EncryptedProjectKey: encryptedProjectKey,
		}, nil)

		var out bytes.Buffer
		err = createProjectToken(ctx, mockAPI, otherKeypair.PrivateKey, projectID.String(), "ci-deploy", nil, &out)

		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to unlock project key")
		require.Empty(t, out.String())
		mockAPI.AssertNotCalled(t, "CreateProjectToken", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("propagates access fetch errors", func(t *testing.T) {
		mockAPI := &mockTokenAPI{}
		mockAPI.On("GetProjectAccess", ctx, projectID.String()).Return(nil, apperrors.ErrNotFound)

		var out bytes.Buffer
		err := createProjectToken(ctx, mockAPI, masterKeypair.PrivateKey, projectID.String(), "ci-deploy", nil, &out)

		require.Error(t, err)
		require.ErrorIs(t, err, apperrors.ErrNotFound)
		require.Empty(t, out.String())
	})
}

func TestRunCreateProjectTokenValidation(t *testing.T) {
	t.Run("missing project id", func(t *testing.T) {
		var out bytes.Buffer
		err := RunCreateProjectToken(context.Background(), IOTuple{Writer: &out}, "", "ci-deploy", 0)

		require.Error(t, err)
		require.Contains(t, err.Error(), "--project-id")
	})

	t.Run("missing name", func(t *testing.T) {
		var out bytes.Buffer
		err := RunCreateProjectToken(context.Background(), IOTuple{Writer: &out}, "0191e9b2-0000-7000-8000-000000000000", "", 0)

		require.Error(t, err)
		require.Contains(t, err.Error(), "--name")
	})
}

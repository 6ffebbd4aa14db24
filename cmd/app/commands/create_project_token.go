package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/allisson/envie/internal/app"
	"github.com/allisson/envie/internal/cli/api"
	"github.com/allisson/envie/internal/cli/keystore"
	"github.com/allisson/envie/internal/cli/session"
	"github.com/allisson/envie/internal/config"
	identityDTO "github.com/allisson/envie/internal/identity/http/dto"
	identityService "github.com/allisson/envie/internal/identity/service"
	keychainDomain "github.com/allisson/envie/internal/keychain/domain"
	keychainService "github.com/allisson/envie/internal/keychain/service"
	projectDTO "github.com/allisson/envie/internal/project/http/dto"
)

// tokenAPI is the server surface token creation needs.
type tokenAPI interface {
	GetProjectAccess(ctx context.Context, projectID string) (*projectDTO.AccessResponse, error)
	CreateProjectToken(ctx context.Context, projectID string, request *identityDTO.CreateTokenRequest) (*identityDTO.TokenResponse, error)
}

// RunCreateProjectToken creates a project token from this device. The token
// secret is generated locally, the project key is unlocked with the device's
// master key and re-wrapped to the token's derived public key, and only the
// wrapped key plus the identity hash reach the server.
func RunCreateProjectToken(ctx context.Context, ioTuple IOTuple, projectID, name string, ttl time.Duration) error {
	cfg := config.Load()

	if projectID == "" {
		return errors.New("--project-id must be set")
	}
	if name == "" {
		return errors.New("--name must be set")
	}
	if cfg.CLIDeviceID == "" {
		return errors.New("CLI_DEVICE_ID must be set to the id of an approved device")
	}
	if cfg.CLIKeystoreURL == "" {
		return errors.New("CLI_KEYSTORE_URL must be set to a secrets keeper URL (e.g., base64key://...)")
	}

	container := app.NewContainer(cfg)
	logger := container.Logger()

	ks, err := keystore.Open(ctx, cfg.CLIKeystoreURL, cfg.CLIKeyFilePath)
	if err != nil {
		return fmt.Errorf("failed to open keystore: %w", err)
	}
	defer func() { _ = ks.Close() }()

	material, err := ks.Load(ctx)
	if err != nil {
		if errors.Is(err, keystore.ErrNoKeyFile) {
			return fmt.Errorf("no sealed key file at %s; run device setup first: %w", cfg.CLIKeyFilePath, err)
		}
		return fmt.Errorf("failed to load key material: %w", err)
	}

	sess := session.NewSession(cfg.CLISessionTTL)
	sess.Unlock(material)
	defer sess.Lock()

	unlocked, err := sess.Get()
	if err != nil {
		return fmt.Errorf("failed to read session key material: %w", err)
	}

	var expiresAt *time.Time
	if ttl > 0 {
		deadline := time.Now().Add(ttl)
		expiresAt = &deadline
	}

	client := api.NewClient(cfg.CLIServerURL, cfg.CLIDeviceID, logger)

	return createProjectToken(ctx, client, unlocked.MasterPrivateKey, projectID, name, expiresAt, ioTuple.Writer)
}

// createProjectToken runs the client side of token creation and prints the
// token secret exactly once.
func createProjectToken(
	ctx context.Context,
	client tokenAPI,
	masterPrivateKey []byte,
	projectID, name string,
	expiresAt *time.Time,
	out io.Writer,
) error {
	access, err := client.GetProjectAccess(ctx, projectID)
	if err != nil {
		return fmt.Errorf("failed to fetch project access: %w", err)
	}

	hierarchy := keychainService.NewKeyHierarchy()
	projectKey, err := hierarchy.UnlockProjectKey(masterPrivateKey, &keychainDomain.ProjectAccess{
		EncryptedTeamKey:    access.EncryptedTeamKey,
		EncryptedOrgKey:     access.EncryptedOrgKey,
		TeamKeyUnderOrg:     access.TeamKeyUnderOrg,
		EncryptedProjectKey: access.EncryptedProjectKey,
	})
	if err != nil {
		return fmt.Errorf("failed to unlock project key: %w", err)
	}

	token, displayPrefix, identity, err := identityService.NewIdentityService().GenerateToken()
	if err != nil {
		return fmt.Errorf("failed to generate token: %w", err)
	}

	encryptedProjectKey, err := hierarchy.WrapKeyForPublicKey(identity.PublicKey, projectKey)
	if err != nil {
		return fmt.Errorf("failed to wrap project key for token: %w", err)
	}

	created, err := client.CreateProjectToken(ctx, projectID, &identityDTO.CreateTokenRequest{
		Name:                name,
		TokenPrefix:         displayPrefix,
		IdentityIDHash:      identity.IdentityIDHash,
		EncryptedProjectKey: encryptedProjectKey,
		ExpiresAt:           expiresAt,
	})
	if err != nil {
		return fmt.Errorf("failed to create token: %w", err)
	}

	fmt.Fprintf(out, "Token %q created for project %s.\n", created.Name, created.ProjectID)
	fmt.Fprintf(out, "Token (shown once, store it safely):\n%s\n", token)
	return nil
}

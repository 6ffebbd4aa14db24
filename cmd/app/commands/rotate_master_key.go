package commands

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/allisson/envie/internal/app"
	"github.com/allisson/envie/internal/cli/api"
	"github.com/allisson/envie/internal/cli/keystore"
	clirotation "github.com/allisson/envie/internal/cli/rotation"
	"github.com/allisson/envie/internal/cli/session"
	"github.com/allisson/envie/internal/config"
)

// rotator runs the client side of a master key rotation.
type rotator interface {
	Rotate(ctx context.Context) (*clirotation.Result, error)
}

// RunRotateMasterKey generates a new master keypair for this device's user,
// re-wraps every device and membership key, and commits the rotation on the
// server. The recovery key is printed exactly once.
func RunRotateMasterKey(ctx context.Context, ioTuple IOTuple) error {
	cfg := config.Load()

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

	client := api.NewClient(cfg.CLIServerURL, cfg.CLIDeviceID, logger)
	orchestrator := clirotation.NewOrchestrator(client, sess, ks, logger)

	return rotateMasterKey(ctx, orchestrator, ioTuple.Writer)
}

// rotateMasterKey runs the rotation and prints the outcome. The recovery key
// is printed even when sealing the new key locally failed, since the server
// side already committed and the key is the only way back in.
func rotateMasterKey(ctx context.Context, orchestrator rotator, out io.Writer) error {
	result, err := orchestrator.Rotate(ctx)
	if result != nil {
		fmt.Fprintf(out, "Master key rotated to version %d.\n", result.MasterKeyVersion)
		fmt.Fprintf(out, "Recovery key (shown once, store it safely):\n%s\n", result.RecoveryKey)
	}
	if err != nil {
		return fmt.Errorf("master key rotation: %w", err)
	}
	return nil
}

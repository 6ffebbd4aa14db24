package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/allisson/envie/internal/app"
	"github.com/allisson/envie/internal/config"
)

// RunSweepExpiredRotations finalizes every pending project key rotation whose
// deadline has passed. Meant to run periodically (e.g., from cron); expired
// rotations are also finalized lazily when read, so a missed run is not fatal.
func RunSweepExpiredRotations(ctx context.Context) error {
	cfg := config.Load()

	container := app.NewContainer(cfg)
	logger := container.Logger()

	defer closeContainer(container, logger)

	rotationUseCase, err := container.RotationUseCase()
	if err != nil {
		return fmt.Errorf("failed to initialize rotation use case: %w", err)
	}

	expired, err := rotationUseCase.SweepExpired(ctx)
	if err != nil {
		return fmt.Errorf("failed to sweep expired rotations: %w", err)
	}

	logger.Info("expired rotations sweep completed", slog.Int64("expired", expired))
	return nil
}

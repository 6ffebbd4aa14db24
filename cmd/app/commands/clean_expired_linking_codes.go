package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/allisson/envie/internal/app"
	"github.com/allisson/envie/internal/config"
)

// RunCleanExpiredLinkingCodes deletes linking codes past their expiration.
// Expired codes are already unredeemable; this only reclaims storage.
func RunCleanExpiredLinkingCodes(ctx context.Context) error {
	cfg := config.Load()

	container := app.NewContainer(cfg)
	logger := container.Logger()

	defer closeContainer(container, logger)

	linkingCodeRepository, err := container.LinkingCodeRepository()
	if err != nil {
		return fmt.Errorf("failed to initialize linking code repository: %w", err)
	}

	deleted, err := linkingCodeRepository.DeleteExpired(ctx, time.Now())
	if err != nil {
		return fmt.Errorf("failed to delete expired linking codes: %w", err)
	}

	logger.Info("expired linking codes cleanup completed", slog.Int64("deleted", deleted))
	return nil
}

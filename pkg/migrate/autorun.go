package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/supplyledger-backend/pkg/config"
	"github.com/angelmondragon/supplyledger-backend/pkg/db"
	"github.com/angelmondragon/supplyledger-backend/pkg/logger"
)

// MaybeRunDev applies the embedded migrations on startup, but only in dev with
// SUPPLYLEDGER_AUTO_MIGRATE enabled. Other environments run cmd/migrate.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	meta := map[string]any{"env": cfg.App.Env, "source": "embedded"}
	ctx = logg.WithFields(ctx, meta)
	logg.Info(ctx, "applying ledger schema migrations")

	if err := Run(ctx, sqlDB, "", "up"); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}

	logg.Info(ctx, "ledger schema up to date")
	return nil
}

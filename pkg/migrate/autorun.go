package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/storefront-checkout/pkg/config"
	"github.com/angelmondragon/storefront-checkout/pkg/db"
	"github.com/angelmondragon/storefront-checkout/pkg/db/models"
	"github.com/angelmondragon/storefront-checkout/pkg/logger"
)

// MaybeRunDev applies the bundled migrations when running in dev with the
// auto-migrate flag enabled. The goose migrations target Postgres, so sqlite
// databases get their tables from the gorm models instead.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if cfg.FeatureFlags.UseSQLite {
		return syncSQLite(ctx, logg, client)
	}
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	sqlDB, err := client.SQL()
	if err != nil {
		return err
	}
	source, err := Source("", true)
	if err != nil {
		return err
	}
	runner, err := NewRunner(sqlDB, source, logg)
	if err != nil {
		return err
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "dir": EmbeddedDir})
	logg.Info(ctx, "running goose migrations (dev auto-run)")
	if err := runner.Up(ctx); err != nil {
		return err
	}

	logg.Info(ctx, "goose migrations completed")
	return nil
}

func syncSQLite(ctx context.Context, logg *logger.Logger, client *db.Client) error {
	err := client.DB().WithContext(ctx).AutoMigrate(
		&models.DeliveryZone{},
		&models.PickupLocation{},
		&models.SavedAddress{},
		&models.PaymentMethod{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderLineItem{},
	)
	if err != nil {
		return fmt.Errorf("sqlite auto-migrate: %w", err)
	}
	logg.Info(ctx, "sqlite schema synced from models")
	return nil
}

package db

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"delivery-metrics-service/internal/config"
)

// RequiredRelations are read by the metric queries.
var RequiredRelations = []string{"shipment_delivery_summary", "drivers", "driver_assignments"}

func New(cfg *config.Config, log zerolog.Logger) (*gorm.DB, error) {
	database, err := gorm.Open(postgres.Open(cfg.DB.DSN), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	sqlDB, err := database.DB()
	if err != nil {
		return nil, fmt.Errorf("postgres pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.DB.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.DB.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.DB.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	missing, err := MissingRelations(ctx, database, RequiredRelations...)
	if err != nil {
		return nil, fmt.Errorf("inspect relations: %w", err)
	}
	for _, name := range missing {
		log.Warn().Str("relation", name).Msg("relation not found; dependent metrics will fail until it is loaded")
	}

	if cfg.DB.BootstrapIndex {
		if err := bootstrapIndexes(database.WithContext(ctx)); err != nil {
			return nil, err
		}
		log.Info().Msg("read indexes ensured")
	}

	return database, nil
}

func Close(database *gorm.DB) error {
	sqlDB, err := database.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func MissingRelations(ctx context.Context, database *gorm.DB, names ...string) ([]string, error) {
	var missing []string
	for _, name := range names {
		exists, err := relationExists(ctx, database, name)
		if err != nil {
			return nil, err
		}
		if !exists {
			missing = append(missing, name)
		}
	}
	return missing, nil
}

func relationExists(ctx context.Context, database *gorm.DB, name string) (bool, error) {
	var exists bool
	err := database.WithContext(ctx).
		Raw(`SELECT EXISTS (
			SELECT 1
			FROM pg_catalog.pg_class c
			JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
			WHERE c.relname = ? AND c.relkind IN ('r','m','v') AND n.nspname = current_schema()
		)`, name).
		Scan(&exists).Error
	return exists, err
}

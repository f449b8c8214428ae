package pipeline

import (
	"context"
	"database/sql"

	"retailcast/internal/config"
	"retailcast/internal/source"

	"github.com/rs/zerolog/log"
)

// OpenLoader picks the warehouse when WAREHOUSE_DSN is set and the cleaned CSV directory
// otherwise. The returned close func is always safe to call.
func OpenLoader(ctx context.Context, cfg *config.AppConfig, withReturns bool) (source.Loader, func(), error) {
	if cfg.WarehouseDSN == "" {
		log.Debug().Str("dir", cfg.CleanedDir).Msg("Reading cleaned CSV exports")
		return &source.CSVLoader{Dir: cfg.CleanedDir, Returns: withReturns}, func() {}, nil
	}

	db, err := source.OpenWarehouse(ctx, cfg.WarehouseDSN)
	if err != nil {
		return nil, func() {}, err
	}
	log.Info().Msg("Reading from warehouse")
	return &source.WarehouseLoader{DB: db, Returns: withReturns}, closer(db), nil
}

func closer(db *sql.DB) func() {
	return func() {
		if err := db.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close warehouse connection")
		}
	}
}

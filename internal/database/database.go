package database

import (
	"fmt"

	"quiz-ingest/internal/config"
	"quiz-ingest/internal/logger"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
	_ "github.com/sijms/go-ora/v2"  // Oracle driver
	"go.uber.org/zap"
)

func init() {
	// go-ora registers as "oracle", which sqlx does not know. Repositories write
	// queries with ? placeholders and rebind them per driver.
	sqlx.BindDriver(config.DriverOracle, sqlx.NAMED)
}

// NewSQLXDB connects to the configured record store and pings it.
func NewSQLXDB(cfg *config.Config) (*sqlx.DB, error) {
	driver := cfg.DB.Driver
	switch driver {
	case config.DriverOracle, config.DriverSQLite3:
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}

	db, err := sqlx.Connect(driver, cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s database: %w", driver, err)
	}

	if driver == config.DriverSQLite3 {
		// SQLite allows a single writer.
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", driver, err)
	}

	logger.Get().Info("Successfully connected to database", zap.String("driver", driver))
	return db, nil
}

// Package storage persists the catalog, the store info and orders with gorm
// on sqlite.
package storage

import (
	"context"
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/itsneelabh/sushichat/core"
)

// DB wraps a gorm connection.
type DB struct {
	gorm   *gorm.DB
	logger core.Logger
}

// Open connects to the database described by cfg and migrates the schema
// when cfg.AutoMigrate is set.
func Open(cfg core.StorageConfig, logger core.Logger) (*DB, error) {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	if cfg.Driver != "sqlite" {
		return nil, fmt.Errorf("unsupported storage driver %q: %w", cfg.Driver, core.ErrInvalidConfiguration)
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("storage dsn is required: %w", core.ErrMissingConfiguration)
	}

	gdb, err := gorm.Open(sqlite.Open(cfg.DSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// sqlite allows one writer; a single connection keeps transactions from
	// failing with "database is locked".
	sqlDB.SetMaxOpenConns(1)

	db := &DB{gorm: gdb, logger: core.ComponentLogger(logger, "storage")}
	if cfg.AutoMigrate {
		if err := db.Migrate(); err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
	}

	db.logger.Info("Database opened", map[string]interface{}{
		"driver":       cfg.Driver,
		"auto_migrate": cfg.AutoMigrate,
	})
	return db, nil
}

// Migrate creates or updates the tables.
func (d *DB) Migrate() error {
	if err := d.gorm.AutoMigrate(&Box{}, &Store{}, &OrderRecord{}, &OrderLineRecord{}); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// Gorm exposes the underlying handle.
func (d *DB) Gorm() *gorm.DB { return d.gorm }

// Ping checks the connection.
func (d *DB) Ping(ctx context.Context) error {
	sqlDB, err := d.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the connection pool.
func (d *DB) Close() error {
	sqlDB, err := d.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

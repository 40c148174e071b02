package database

import (
	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"example.com/sawmill/services/mill/config"
	"example.com/sawmill/services/mill/internal/models"
)

// Databases bundles the write and read-only connections. Opened once at
// process start and closed on shutdown; no other connection state exists.
type Databases struct {
	Write    *gorm.DB
	ReadOnly *gorm.DB
}

// Connect opens both database connections, configures their pools and
// runs migrations against the write database.
func Connect(cfg config.DatabaseConfig) (*Databases, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{})
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to write database")
	}

	readOnlyDB, err := gorm.Open(postgres.Open(cfg.ReadOnlyDSN), &gorm.Config{})
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to read-only database")
	}

	if err := models.SetupModels(db); err != nil {
		return nil, errors.Wrap(err, "failed to run migrations")
	}

	if err := configurePool(db, cfg.MaxOpenConns, cfg.MaxIdleConns, cfg); err != nil {
		return nil, errors.Wrap(err, "failed to configure write pool")
	}
	// The read-only side gets a larger pool; it serves most traffic.
	if err := configurePool(readOnlyDB, cfg.MaxOpenConns*2, cfg.MaxIdleConns*2, cfg); err != nil {
		return nil, errors.Wrap(err, "failed to configure read-only pool")
	}

	return &Databases{Write: db, ReadOnly: readOnlyDB}, nil
}

func configurePool(db *gorm.DB, maxOpen, maxIdle int, cfg config.DatabaseConfig) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	return nil
}

// Close closes both connections
func (d *Databases) Close() error {
	writeDB, err := d.Write.DB()
	if err != nil {
		return err
	}
	if err := writeDB.Close(); err != nil {
		return err
	}

	readDB, err := d.ReadOnly.DB()
	if err != nil {
		return err
	}
	return readDB.Close()
}

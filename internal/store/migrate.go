package store

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/tinkering/twinby/internal/store/migrations"
)

// MigrateResult reports the schema version after a migration run.
type MigrateResult struct {
	Version uint
	Dirty   bool
	// Changed is false when the schema was already current.
	Changed bool
}

// Migrate brings the schema up to the latest embedded version.
func (db *DB) Migrate() (*MigrateResult, error) {
	return db.migrate(func(m *migrate.Migrate) error { return m.Up() })
}

// MigrateTo moves the schema to version, running down migrations if needed.
// Version 0 drops every table.
func (db *DB) MigrateTo(version uint) (*MigrateResult, error) {
	if version == 0 {
		return db.migrate(func(m *migrate.Migrate) error { return m.Down() })
	}
	return db.migrate(func(m *migrate.Migrate) error { return m.Migrate(version) })
}

func (db *DB) migrate(step func(*migrate.Migrate) error) (*MigrateResult, error) {
	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return nil, fmt.Errorf("migration source: %w", err)
	}
	// The driver wraps db.DB; closing the migrator would close the store.
	driver, err := sqlite3.WithInstance(db.DB, &sqlite3.Config{})
	if err != nil {
		return nil, fmt.Errorf("migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return nil, fmt.Errorf("migration instance: %w", err)
	}

	changed := true
	if err := step(m); errors.Is(err, migrate.ErrNoChange) {
		changed = false
	} else if err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return &MigrateResult{Changed: changed}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("migration version: %w", err)
	}
	return &MigrateResult{Version: version, Dirty: dirty, Changed: changed}, nil
}

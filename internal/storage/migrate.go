package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SchemaVersion is the migration state of a database file.
type SchemaVersion struct {
	Version uint
	Dirty   bool
}

// RunMigrations applies every pending migration to the records database at
// dbPath and returns the resulting version. A dirty database is refused so a
// half-applied migration is repaired by hand rather than built upon.
func RunMigrations(dbPath string) (SchemaVersion, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return SchemaVersion{}, fmt.Errorf("open migration database: %w", err)
	}
	defer conn.Close()

	driver, err := sqlite.WithInstance(conn, &sqlite.Config{})
	if err != nil {
		return SchemaVersion{}, fmt.Errorf("create sqlite driver: %w", err)
	}
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return SchemaVersion{}, fmt.Errorf("load embedded migrations: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return SchemaVersion{}, fmt.Errorf("create migrator: %w", err)
	}
	defer m.Close()

	before, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		before = 0
	case err != nil:
		return SchemaVersion{}, fmt.Errorf("read schema version: %w", err)
	case dirty:
		return SchemaVersion{Version: before, Dirty: true},
			fmt.Errorf("schema version %d is dirty", before)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return SchemaVersion{}, fmt.Errorf("apply migrations: %w", err)
	}

	after, dirty, err := m.Version()
	if err != nil {
		return SchemaVersion{}, fmt.Errorf("read schema version: %w", err)
	}
	if after != before {
		slog.Info("Records schema migrated", "from", before, "to", after)
	}
	return SchemaVersion{Version: after, Dirty: dirty}, nil
}

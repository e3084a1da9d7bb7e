// Package migrations embeds the schema shared by the sqlite and postgres
// backends and applies it with golang-migrate, grounded on the teacher's
// versioned-migration convention (internal/infra/migrations.go) but using
// the real golang-migrate/migrate/v4 engine instead of a hand-rolled runner.
package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed sql/*.sql
var fs embed.FS

// Dialect names which golang-migrate database driver to open.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

// Up applies every pending migration against db, using the driver
// appropriate to dialect. It is idempotent: running it against an
// already-migrated database is a no-op.
func Up(db *sql.DB, dialect Dialect) error {
	source, err := iofs.New(fs, "sql")
	if err != nil {
		return fmt.Errorf("migrations: open embedded source: %w", err)
	}

	var dbDriver migrate.Driver
	switch dialect {
	case SQLite:
		dbDriver, err = sqlite3.WithInstance(db, &sqlite3.Config{})
	case Postgres:
		dbDriver, err = postgres.WithInstance(db, &postgres.Config{})
	default:
		return fmt.Errorf("migrations: unknown dialect %q", dialect)
	}
	if err != nil {
		return fmt.Errorf("migrations: open %s driver: %w", dialect, err)
	}

	m, err := migrate.NewWithInstance("iofs", source, string(dialect), dbDriver)
	if err != nil {
		return fmt.Errorf("migrations: build migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrations: apply: %w", err)
	}
	return nil
}

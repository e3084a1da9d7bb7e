// Package postgres wires sqlstore.Store to a jackc/pgx/v5 connection via
// its database/sql-compatible stdlib adapter.
package postgres

import (
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/relaymind/conduit/internal/store/migrations"
	"github.com/relaymind/conduit/internal/store/sqlstore"
)

// Open opens a postgres connection at dsn, applies every pending migration,
// and returns a ready-to-use Store.
func Open(dsn string) (*sqlstore.Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	if err := migrations.Up(db, migrations.Postgres); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return sqlstore.New(db, sqlstore.Postgres), nil
}

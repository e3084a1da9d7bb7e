// Package sqlite wires sqlstore.Store to a mattn/go-sqlite3 connection. It
// is the default Repository backing store (spec §3).
package sqlite

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/relaymind/conduit/internal/store/migrations"
	"github.com/relaymind/conduit/internal/store/sqlstore"
)

// Open opens (creating if necessary) a sqlite3 database at path, applies
// every pending migration, and returns a ready-to-use Store.
func Open(path string) (*sqlstore.Store, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1) // mattn/go-sqlite3 serializes writers; avoid SQLITE_BUSY churn.

	if err := migrations.Up(db, migrations.SQLite); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: migrate %s: %w", path, err)
	}

	return sqlstore.New(db, sqlstore.SQLite), nil
}

package sqlstore_test

import (
	"path/filepath"
	"testing"

	"github.com/relaymind/conduit/internal/store/sqlite"
	"github.com/relaymind/conduit/internal/store/sqlstore"
)

// newTestStore opens a fresh, migrated sqlite-backed Store in a temp
// directory. sqlstore is dialect-agnostic by construction (every query goes
// through Store.rewrite), so exercising it against sqlite is representative
// of the postgres path too. Postgres-specific behavior has no test in this
// module, since it would need a live server to run against.
func newTestStore(t *testing.T) *sqlstore.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "conduit.db")
	store, err := sqlite.Open(path)
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

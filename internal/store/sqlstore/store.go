// Package sqlstore implements repository.Repository once, over
// database/sql, shared by the sqlite and postgres backends (spec §3
// internal/store/sqlite, internal/store/postgres). Every query is written
// with "?" placeholders; Store rewrites them to "$1", "$2", ... for
// dialects that require it, so the two backends differ only in which
// driver they open and which golang-migrate driver applies the one shared
// migration set, grounded on the
// teacher's CockroachStore (internal/sessions/cockroach.go): a thin
// dialect-specific constructor around one shared, prepared-statement-free
// database/sql implementation.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/relaymind/conduit/internal/repository"
)

// Dialect names the two supported backends. Only placeholder syntax differs
// between them; the schema and every query are otherwise identical.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

// Store implements repository.Repository over a database/sql handle.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// New wraps an already-open, already-migrated database handle.
func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

func (s *Store) Close() error { return s.db.Close() }

// rewrite converts "?" positional placeholders to "$1", "$2", ... for
// dialects that require them (postgres). SQLite queries are returned
// unchanged.
func (s *Store) rewrite(query string) string {
	if s.dialect != Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$")
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *Store) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, s.rewrite(query), args...)
}

func (s *Store) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.rewrite(query), args...)
}

func (s *Store) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ctx, s.rewrite(query), args...)
}

func newID() string { return uuid.NewString() }

// timeLayout is a fixed-width variant of RFC3339Nano (no trailing-zero
// trimming), so that lexical string ordering matches chronological
// ordering — required since every timestamp column is TEXT and several
// queries ORDER BY it directly.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullTimePtr(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t := parseTime(ns.String)
	return &t
}

func timePtrToNull(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func toJSON(v any) string {
	if v == nil {
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil || string(b) == "null" {
		return ""
	}
	return string(b)
}

func fromJSON[T any](s string) T {
	var out T
	if s == "" {
		return out
	}
	_ = json.Unmarshal([]byte(s), &out)
	return out
}

func encodeEmbedding(e []float64) string { return toJSON(e) }
func decodeEmbedding(s string) []float64 { return fromJSON[[]float64](s) }

func l2Distance(a, b []float64) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return math.MaxFloat64
	}
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// wrapNotFound maps sql.ErrNoRows to repository.ErrNotFound so callers never
// see the database/sql sentinel directly.
func wrapNotFound(err error) error {
	if err == sql.ErrNoRows {
		return repository.ErrNotFound
	}
	return err
}

var _ repository.Repository = (*Store)(nil)

func fmtErr(op string, err error) error {
	return fmt.Errorf("sqlstore: %s: %w", op, err)
}

// isUniqueViolation reports whether err came from a primary-key/unique
// constraint conflict. Matched by message substring rather than a driver
// error type so sqlstore stays free of a compile-time dependency on either
// driver package (those live only in sqlite.go/postgres.go).
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint") || // mattn/go-sqlite3
		strings.Contains(msg, "duplicate key value") // pgx/postgres
}

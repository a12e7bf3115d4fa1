// Package testdb provides helpers for integration tests that need a real
// Postgres database. Tests call Connect, which skips when no database is
// configured, then run inside a rolled-back transaction so test data never
// leaks between cases.
package testdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/require"
)

// pingTimeout bounds the connection check when a test database is configured.
const pingTimeout = 5 * time.Second

// migrationTableName matches the goose table used by the server binary so
// migrations applied by either are visible to both.
const migrationTableName = "schema_migrations"

// URL returns the test database URL, checking DATABASE_URL and then
// MNEMO_TEST_DB_URL. Empty means integration tests should be skipped.
func URL() string {
	if u := os.Getenv("DATABASE_URL"); u != "" {
		return u
	}
	return os.Getenv("MNEMO_TEST_DB_URL")
}

// Connect opens the configured test database and applies migrations. It
// skips the test when no database URL is set, so integration tests are a
// no-op in environments without Postgres.
func Connect(t *testing.T) *sql.DB {
	t.Helper()

	url := URL()
	if url == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	db, err := sql.Open("pgx", url)
	require.NoError(t, err, "failed to open test database")
	t.Cleanup(func() {
		_ = db.Close()
	})

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	require.NoError(t, db.PingContext(ctx), "failed to ping test database")

	migrate(t, db)
	return db
}

// WithTx runs fn inside a transaction that is always rolled back, keeping
// the shared test database clean across cases.
func WithTx(t *testing.T, db *sql.DB, fn func(tx *sql.Tx)) {
	t.Helper()

	tx, err := db.Begin()
	require.NoError(t, err, "failed to begin test transaction")
	defer func() {
		_ = tx.Rollback()
	}()

	fn(tx)
}

// migrate brings the test database schema up to date with goose.
func migrate(t *testing.T, db *sql.DB) {
	t.Helper()

	dir, err := migrationsDir()
	require.NoError(t, err, "failed to locate migrations directory")

	goose.SetLogger(goose.NopLogger())
	require.NoError(t, goose.SetDialect("postgres"))
	goose.SetTableName(migrationTableName)
	require.NoError(t, goose.Up(db, dir), "failed to apply migrations")
}

// migrationsDir walks up from the working directory until it finds the
// migrations directory, so tests work from any package in the module.
func migrationsDir() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}

	rel := filepath.Join("internal", "platform", "postgres", "migrations")
	for dir := cwd; ; dir = filepath.Dir(dir) {
		candidate := filepath.Join(dir, rel)
		if info, statErr := os.Stat(candidate); statErr == nil && info.IsDir() {
			return candidate, nil
		}
		if dir == filepath.Dir(dir) {
			return "", fmt.Errorf("migrations directory not found above %s", cwd)
		}
	}
}

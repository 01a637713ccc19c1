// Package testdb provides databases for tests. Real servers are used only
// when their URL is set in the environment; the test is skipped otherwise
// (unless REQUIRE_TEST_DB=true).
package testdb

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/microsoft/go-mssqldb"
	_ "modernc.org/sqlite"
)

// Environment variables naming real test servers.
const (
	EnvPostgresURL  = "PGINDEX_TEST_POSTGRES_URL"
	EnvSQLServerURL = "PGINDEX_TEST_SQLSERVER_URL"
	EnvRequireDB    = "REQUIRE_TEST_DB"
)

// SQLiteURL returns a connection string for a fresh sqlite file in a
// temporary directory. Connections wait on locks instead of failing.
func SQLiteURL(t *testing.T) string {
	t.Helper()
	return "file:" + filepath.Join(t.TempDir(), "test.db") + "?_pragma=busy_timeout(5000)"
}

// SQLite opens a fresh sqlite database and runs setup statements on it.
// It returns the connection string so other pools can open the same file.
func SQLite(t *testing.T, setup ...string) string {
	t.Helper()

	url := SQLiteURL(t)
	db, err := sql.Open("sqlite", url)
	if err != nil {
		t.Fatalf("Failed to open sqlite: %v", err)
	}
	defer func() { _ = db.Close() }()

	for _, stmt := range setup {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("Failed to prepare sqlite (%s): %v", stmt, err)
		}
	}
	return url
}

// UnreachableSQLiteURL points at a read-only file in a directory that does
// not exist, so opening it always fails.
func UnreachableSQLiteURL(t *testing.T) string {
	t.Helper()
	return "file:" + filepath.Join(t.TempDir(), "missing", "test.db") + "?mode=ro"
}

// Postgres returns the URL of a reachable PostgreSQL test server.
func Postgres(t *testing.T) string {
	t.Helper()
	return server(t, "postgres", EnvPostgresURL)
}

// SQLServer returns the URL of a reachable SQL Server test server.
func SQLServer(t *testing.T) string {
	t.Helper()
	return server(t, "sqlserver", EnvSQLServerURL)
}

func server(t *testing.T, driver, env string) string {
	t.Helper()

	requireDB := os.Getenv(EnvRequireDB) == "true"
	url := os.Getenv(env)
	if url == "" {
		if requireDB {
			t.Fatalf("%s required but %s is not set", driver, env)
		}
		t.Skipf("%s not set", env)
	}

	db, err := sql.Open(driver, url)
	if err != nil {
		if requireDB {
			t.Fatalf("%s required but unavailable: %v", driver, err)
		}
		t.Skipf("%s not available: %v", driver, err)
	}
	defer func() { _ = db.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		if requireDB {
			t.Fatalf("%s required but unreachable: %v", driver, err)
		}
		t.Skipf("%s not reachable: %v", driver, err)
	}
	return url
}

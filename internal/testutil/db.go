// Package testutil provides shared helpers for integration tests.
// Helpers skip automatically when the database environment variables are not
// set, so unit tests run without a live database.
package testutil

import (
	"context"
	"database/sql"
	"os"
	"testing"

	_ "github.com/denisenkom/go-mssqldb" // registers "sqlserver" for database/sql
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx" for database/sql
)

// Environment variables naming the integration databases.
const (
	PostgresEnv  = "TEST_DATABASE_URL"
	SQLServerEnv = "TEST_SQLSERVER_URL"
)

// NewPool opens a *pgxpool.Pool on TEST_DATABASE_URL, skipping the test when
// it is unset. The pool is closed when the test finishes.
func NewPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := requireDSN(t, PostgresEnv)

	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		t.Fatalf("testutil.NewPool: open pool: %v", err)
	}
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		t.Fatalf("testutil.NewPool: ping: %v", err)
	}

	t.Cleanup(pool.Close)
	return pool
}

// NewSQLServerDB opens a *sql.DB on TEST_SQLSERVER_URL, skipping the test
// when it is unset. The handle is closed when the test finishes.
func NewSQLServerDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := requireDSN(t, SQLServerEnv)

	db, err := sql.Open("sqlserver", dsn)
	if err != nil {
		t.Fatalf("testutil.NewSQLServerDB: open: %v", err)
	}
	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		t.Fatalf("testutil.NewSQLServerDB: ping: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

// MustOpenSQLDB opens a *sql.DB with the named driver and panics on error.
// Use this in TestMain where no *testing.T is available.
// Callers are responsible for closing the returned *sql.DB.
func MustOpenSQLDB(driver, dsn string) *sql.DB {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		panic("testutil.MustOpenSQLDB: open: " + err.Error())
	}
	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		panic("testutil.MustOpenSQLDB: ping: " + err.Error())
	}
	return db
}

func requireDSN(t *testing.T, env string) string {
	t.Helper()
	dsn := os.Getenv(env)
	if dsn == "" {
		t.Skipf("%s not set; skipping integration test", env)
	}
	return dsn
}

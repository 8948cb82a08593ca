// Package cache is the proxy's durable store: a single embedded SQLite
// database holding FRL activation/deactivation pairs, log sessions, and
// NUL license sessions, with schema migration, import/export, clear, and
// CSV reporting.
package cache

import (
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "modernc.org/sqlite" // pure Go driver, no CGo
)

// sqlDebugEnvVar enables verbose per-statement SQL logging when set to any
// non-empty value.
const sqlDebugEnvVar = "ADLU_PROXY_SQL_DEBUG"

// PoolConfig controls the connection pool's operational parameters. The
// proxy's cache is a single file with concurrent readers but a small,
// fixed cap on writers (at most 5 concurrent).
type PoolConfig struct {
	BusyTimeout  time.Duration
	MaxOpenConns int
}

// DefaultPoolConfig returns the pool configuration the proxy uses in
// production: a 5-second busy timeout and at most 5 open connections,
// matching the original's SqlitePoolOptions::new().max_connections(5).
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		BusyTimeout:  5 * time.Second,
		MaxOpenConns: 5,
	}
}

// Open opens (creating if necessary) a SQLite database at path with the
// mandatory pragmas applied to every pooled connection via the DSN, then
// initializes all three data families' schemas.
func Open(path string, cfg PoolConfig) (*DB, error) {
	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)",
		path, cfg.BusyTimeout.Milliseconds(),
	)
	driverName := "sqlite"
	if os.Getenv(sqlDebugEnvVar) != "" {
		registerDebugDriver()
		driverName = sqlDebugDriverName
	}
	sqlDB, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("cache: open %s: %w", path, err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("cache: ping %s: %w", path, err)
	}

	db := &DB{sql: sqlDB}
	if err := db.init(); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// OpenMemory opens an in-memory database for tests. The pool is pinned
// to a single connection: SQLite's ":memory:" database is private to
// the connection that created it, so a second pooled connection would
// see an empty database instead of the one under test.
func OpenMemory() (*DB, error) {
	return Open(":memory:", PoolConfig{BusyTimeout: 5 * time.Second, MaxOpenConns: 1})
}

// DB wraps the pool and exposes the family-scoped stores.
type DB struct {
	sql *sql.DB
}

func (d *DB) init() error {
	if err := initFRLSchema(d.sql); err != nil {
		return err
	}
	if err := migrateFamily(d.sql, familyFRL); err != nil {
		return err
	}
	if err := initLogSchema(d.sql); err != nil {
		return err
	}
	if err := migrateFamily(d.sql, familyLog); err != nil {
		return err
	}
	if err := initNulSchema(d.sql); err != nil {
		return err
	}
	if err := migrateFamily(d.sql, familyNul); err != nil {
		return err
	}
	return nil
}

// Close releases the underlying connection pool.
func (d *DB) Close() error {
	return d.sql.Close()
}

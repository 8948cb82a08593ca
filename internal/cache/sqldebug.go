// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package cache

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// sqlDebugDriverName is the name under which the verbose-logging wrapper
// around the sqlite driver is registered, the first time it's needed.
const sqlDebugDriverName = "sqlite-debug"

var registerDebugDriverOnce sync.Once

// registerDebugDriver looks up the already-registered "sqlite" driver and
// registers a logging wrapper around it under sqlDebugDriverName. Safe to
// call more than once; only the first call does any work.
func registerDebugDriver() {
	registerDebugDriverOnce.Do(func() {
		probe, err := sql.Open("sqlite", "")
		if err != nil {
			return
		}
		defer probe.Close()
		sql.Register(sqlDebugDriverName, loggingDriver{Driver: probe.Driver(), log: log.Logger})
	})
}

// loggingDriver wraps a driver.Driver so every statement prepared or
// executed through it is logged at debug level first, gated by the
// proxy's ADLU_PROXY_SQL_DEBUG verbose-SQL toggle.
type loggingDriver struct {
	driver.Driver
	log zerolog.Logger
}

func (d loggingDriver) Open(name string) (driver.Conn, error) {
	conn, err := d.Driver.Open(name)
	if err != nil {
		return nil, err
	}
	return loggingConn{Conn: conn, log: d.log}, nil
}

type loggingConn struct {
	driver.Conn
	log zerolog.Logger
}

func (c loggingConn) Prepare(query string) (driver.Stmt, error) {
	c.log.Debug().Str("sql", query).Msg("cache: prepare")
	return c.Conn.Prepare(query)
}

func (c loggingConn) PrepareContext(ctx context.Context, query string) (driver.Stmt, error) {
	c.log.Debug().Str("sql", query).Msg("cache: prepare")
	if p, ok := c.Conn.(driver.ConnPrepareContext); ok {
		return p.PrepareContext(ctx, query)
	}
	return c.Conn.Prepare(query)
}

// ExecContext and QueryContext only fire when the wrapped driver.Conn
// supports the fast path that bypasses Prepare; returning driver.ErrSkip
// when it doesn't tells database/sql to fall back to Prepare (already
// logged above), per the driver.ErrSkip contract.
func (c loggingConn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	if execer, ok := c.Conn.(driver.ExecerContext); ok {
		c.log.Debug().Str("sql", query).Msg("cache: exec")
		return execer.ExecContext(ctx, query, args)
	}
	return nil, driver.ErrSkip
}

func (c loggingConn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	if queryer, ok := c.Conn.(driver.QueryerContext); ok {
		c.log.Debug().Str("sql", query).Msg("cache: query")
		return queryer.QueryContext(ctx, query, args)
	}
	return nil, driver.ErrSkip
}

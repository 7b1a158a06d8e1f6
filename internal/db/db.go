// Package db opens warehouse connections from URI-style connection strings.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // postgres driver, registered as "pgx"
	_ "github.com/mattn/go-sqlite3"    // sqlite driver for local testing
)

// Open creates a database handle for the given URI and verifies the
// connection with a ping. The pool behind *sql.DB hands each concurrent
// copy worker its own connection.
func Open(ctx context.Context, uri string) (*sql.DB, error) {
	driver, dsn, err := driverFor(uri)
	if err != nil {
		return nil, err
	}
	handle, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := handle.PingContext(ctx); err != nil {
		_ = handle.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return handle, nil
}

func driverFor(uri string) (driver, dsn string, err error) {
	scheme := ""
	if i := strings.Index(uri, "://"); i >= 0 {
		scheme = strings.ToLower(uri[:i])
	}
	switch scheme {
	case "postgres", "postgresql":
		return "pgx", uri, nil
	case "redshift":
		// Redshift speaks the postgres wire protocol.
		return "pgx", "postgres" + uri[len("redshift"):], nil
	case "sqlite", "sqlite3":
		return "sqlite3", uri[len(scheme)+len("://"):], nil
	default:
		return "", "", fmt.Errorf("unsupported database URI scheme %q", scheme)
	}
}

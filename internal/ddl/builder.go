// Package ddl builds the SQL statements the copier issues: schema creation
// and CREATE TABLE AS SELECT, with dialect-appropriate quoting.
package ddl

import (
	"fmt"
	"strings"

	"dbtci/internal/domain"
)

// Dialect selects statement variants for the connected warehouse.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectRedshift Dialect = "redshift"
	DialectSQLite   Dialect = "sqlite"
	DialectGeneric  Dialect = "generic"
)

// DetectDialect infers the dialect from a connection URI scheme.
func DetectDialect(uri string) Dialect {
	scheme := uri
	if i := strings.Index(uri, "://"); i >= 0 {
		scheme = uri[:i]
	}
	switch strings.ToLower(scheme) {
	case "postgres", "postgresql":
		return DialectPostgres
	case "redshift":
		return DialectRedshift
	case "sqlite", "sqlite3", "file":
		return DialectSQLite
	default:
		return DialectGeneric
	}
}

// Qualify renders a qualified name with each part validated and quoted.
func Qualify(q domain.QualifiedName) (string, error) {
	parts := make([]string, 0, 3)
	if q.Database != "" {
		if err := ValidateIdentifier(q.Database); err != nil {
			return "", fmt.Errorf("invalid database name %q: %w", q.Database, err)
		}
		parts = append(parts, QuoteIdentifier(q.Database))
	}
	if err := ValidateIdentifier(q.Schema); err != nil {
		return "", fmt.Errorf("invalid schema name %q: %w", q.Schema, err)
	}
	if err := ValidateIdentifier(q.Table); err != nil {
		return "", fmt.Errorf("invalid table name %q: %w", q.Table, err)
	}
	parts = append(parts, QuoteIdentifier(q.Schema), QuoteIdentifier(q.Table))
	return strings.Join(parts, "."), nil
}

// CreateSchemaIfNotExists returns the idempotent schema-creation statement
// for the dialect. SQLite has no CREATE SCHEMA (schemas are attached
// databases), so it returns "" and the caller skips execution.
func CreateSchemaIfNotExists(d Dialect, schema string) (string, error) {
	if err := ValidateIdentifier(schema); err != nil {
		return "", fmt.Errorf("invalid schema name %q: %w", schema, err)
	}
	if d == DialectSQLite {
		return "", nil
	}
	return fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", QuoteIdentifier(schema)), nil
}

// CreateTableAs returns a CREATE TABLE <target> AS SELECT * FROM <source>
// statement. Deliberately no OR REPLACE and no DROP: an existing target
// table must surface as a driver error rather than be silently destroyed.
func CreateTableAs(d Dialect, target, source domain.QualifiedName) (string, error) {
	tgt, err := Qualify(target)
	if err != nil {
		return "", fmt.Errorf("invalid copy target: %w", err)
	}
	src, err := Qualify(source)
	if err != nil {
		return "", fmt.Errorf("invalid copy source: %w", err)
	}
	return fmt.Sprintf("CREATE TABLE %s AS SELECT * FROM %s", tgt, src), nil
}

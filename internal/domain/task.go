package domain

import "strings"

// QualifiedName is a fully qualified table reference. Database may be empty,
// in which case the connection's current database is assumed.
type QualifiedName struct {
	Database string
	Schema   string
	Table    string
}

// String renders the name dotted and unquoted, for logs and summaries.
// SQL rendering with proper quoting lives in the ddl package.
func (q QualifiedName) String() string {
	parts := make([]string, 0, 3)
	if q.Database != "" {
		parts = append(parts, q.Database)
	}
	parts = append(parts, q.Schema, q.Table)
	return strings.Join(parts, ".")
}

// CopyTask is one production-to-CI table copy. Created by the mapper,
// consumed once by the copier, never mutated.
type CopyTask struct {
	NodeID          string
	Kind            ResourceType
	Materialization Materialization
	Source          QualifiedName
	Target          QualifiedName
}

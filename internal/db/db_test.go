package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDriverFor(t *testing.T) {
	tests := []struct {
		name       string
		uri        string
		wantDriver string
		wantDSN    string
		wantErr    string
	}{
		{
			name:       "postgres",
			uri:        "postgres://u:p@host:5432/db",
			wantDriver: "pgx",
			wantDSN:    "postgres://u:p@host:5432/db",
		},
		{
			name:       "postgresql_alias",
			uri:        "postgresql://u:p@host:5432/db",
			wantDriver: "pgx",
			wantDSN:    "postgresql://u:p@host:5432/db",
		},
		{
			name:       "redshift_rewritten_to_postgres",
			uri:        "redshift://u:p@cluster:5439/db",
			wantDriver: "pgx",
			wantDSN:    "postgres://u:p@cluster:5439/db",
		},
		{
			name:       "sqlite",
			uri:        "sqlite://ci.db",
			wantDriver: "sqlite3",
			wantDSN:    "ci.db",
		},
		{
			name:       "sqlite3_memory",
			uri:        "sqlite3://:memory:",
			wantDriver: "sqlite3",
			wantDSN:    ":memory:",
		},
		{
			name:    "unsupported_scheme",
			uri:     "bigquery://project/dataset",
			wantErr: `unsupported database URI scheme "bigquery"`,
		},
		{
			name:    "no_scheme",
			uri:     "host:5432/db",
			wantErr: "unsupported database URI scheme",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			driver, dsn, err := driverFor(tt.uri)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantDriver, driver)
			assert.Equal(t, tt.wantDSN, dsn)
		})
	}
}

func TestOpenSQLite(t *testing.T) {
	handle, err := Open(context.Background(), "sqlite3://:memory:")
	require.NoError(t, err)
	defer handle.Close()

	var one int
	require.NoError(t, handle.QueryRow("SELECT 1").Scan(&one))
	assert.Equal(t, 1, one)
}

func TestOpenUnsupported(t *testing.T) {
	_, err := Open(context.Background(), "mysql://u:p@host/db")
	require.Error(t, err)
}

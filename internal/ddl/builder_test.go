package ddl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dbtci/internal/domain"
)

func TestDetectDialect(t *testing.T) {
	tests := []struct {
		uri  string
		want Dialect
	}{
		{"postgres://u:p@host:5432/db", DialectPostgres},
		{"postgresql://u:p@host:5432/db", DialectPostgres},
		{"redshift://u:p@host:5439/db", DialectRedshift},
		{"sqlite://ci.db", DialectSQLite},
		{"sqlite3://ci.db", DialectSQLite},
		{"trino://host:8080/catalog", DialectGeneric},
		{"not-a-uri", DialectGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectDialect(tt.uri))
		})
	}
}

func TestQualify(t *testing.T) {
	tests := []struct {
		name    string
		qn      domain.QualifiedName
		want    string
		wantErr string
	}{
		{
			name: "with_database",
			qn:   domain.QualifiedName{Database: "prod", Schema: "edu_dbt", Table: "orders"},
			want: `"prod"."edu_dbt"."orders"`,
		},
		{
			name: "without_database",
			qn:   domain.QualifiedName{Schema: "edu_dbt", Table: "orders"},
			want: `"edu_dbt"."orders"`,
		},
		{
			name:    "invalid_schema",
			qn:      domain.QualifiedName{Schema: "edu-dbt", Table: "orders"},
			wantErr: "invalid schema name",
		},
		{
			name:    "invalid_table",
			qn:      domain.QualifiedName{Schema: "edu_dbt", Table: "orders; drop table x"},
			wantErr: "invalid table name",
		},
		{
			name:    "invalid_database",
			qn:      domain.QualifiedName{Database: "pro;d", Schema: "edu_dbt", Table: "orders"},
			wantErr: "invalid database name",
		},
		{
			name:    "empty_table",
			qn:      domain.QualifiedName{Schema: "edu_dbt"},
			wantErr: "invalid table name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Qualify(tt.qn)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCreateSchemaIfNotExists(t *testing.T) {
	stmt, err := CreateSchemaIfNotExists(DialectPostgres, "ci_test")
	require.NoError(t, err)
	assert.Equal(t, `CREATE SCHEMA IF NOT EXISTS "ci_test"`, stmt)

	// SQLite has no CREATE SCHEMA; caller must skip.
	stmt, err = CreateSchemaIfNotExists(DialectSQLite, "ci_test")
	require.NoError(t, err)
	assert.Equal(t, "", stmt)

	_, err = CreateSchemaIfNotExists(DialectPostgres, "ci-test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid schema name")
}

func TestCreateTableAs(t *testing.T) {
	target := domain.QualifiedName{Schema: "ci_test", Table: "orders"}
	source := domain.QualifiedName{Database: "prod", Schema: "edu_dbt", Table: "orders"}

	stmt, err := CreateTableAs(DialectPostgres, target, source)
	require.NoError(t, err)
	assert.Equal(t,
		`CREATE TABLE "ci_test"."orders" AS SELECT * FROM "prod"."edu_dbt"."orders"`,
		stmt)

	// No DROP and no OR REPLACE: existing targets must fail loudly.
	assert.NotContains(t, stmt, "DROP")
	assert.NotContains(t, stmt, "REPLACE")

	_, err = CreateTableAs(DialectPostgres, domain.QualifiedName{Schema: "ci", Table: "x"},
		domain.QualifiedName{Schema: "bad schema", Table: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid copy source")
}

func TestValidateIdentifier(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{name: "simple", input: "edu_dbt"},
		{name: "leading_underscore", input: "_staging"},
		{name: "empty", input: "", wantErr: "name is required"},
		{name: "hyphen", input: "edu-dbt", wantErr: "must match"},
		{name: "leading_digit", input: "1schema", wantErr: "must match"},
		{name: "injection", input: `x"; DROP TABLE y; --`, wantErr: "must match"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateIdentifier(tt.input)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestQuoteIdentifier(t *testing.T) {
	assert.Equal(t, `"orders"`, QuoteIdentifier("orders"))
	assert.Equal(t, `"or""ders"`, QuoteIdentifier(`or"ders`))
}

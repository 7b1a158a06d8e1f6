// Package config handles resolution and validation of copier configuration.
package config

import (
	"fmt"
	"log/slog"
)

// DefaultSchemaDelimiter separates a base schema from its custom suffix
// (dbt's generate_schema_name convention: <base>_<custom>).
const DefaultSchemaDelimiter = "_"

// Config holds the full configuration for one copier run. It is resolved
// once by the CLI and treated as immutable afterwards.
type Config struct {
	// Manifest source: either a local file or dbt Cloud coordinates.
	ProdManifestPath  string
	DbtCloudToken     string
	DbtCloudAccountID string
	DbtCloudJobID     string
	DbtCloudRunID     string // optional, latest successful run when empty

	DbtProjectDir string // dbt project to run selection against
	DatabaseURI   string // warehouse connection URI
	CISchema      string // target base schema for copied tables
	BaseSchema    string // production base schema override, auto-detected when empty

	// SchemaDelimiter joins base schema and custom suffix. Configurable
	// because not every project follows the single-underscore convention.
	SchemaDelimiter string

	Threads int  // parallel copy workers, minimum 1
	DryRun  bool // report what would be copied without touching the database
	Verbose bool
}

// UseCloud reports whether the manifest comes from the dbt Cloud API.
func (c *Config) UseCloud() bool {
	return c.ProdManifestPath == "" && c.DbtCloudJobID != ""
}

// SlogLevel maps the verbose flag to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	if c.Verbose {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// Validate checks that the configuration is complete and internally
// consistent. It is called once before any work starts.
func (c *Config) Validate() error {
	if c.DbtProjectDir == "" {
		return fmt.Errorf("--dbt-project-dir is required")
	}
	if c.DatabaseURI == "" {
		return fmt.Errorf("--database-uri is required")
	}
	if c.CISchema == "" {
		return fmt.Errorf("--ci-schema is required")
	}
	if c.Threads < 1 {
		return fmt.Errorf("--threads must be at least 1 (got %d)", c.Threads)
	}
	if c.SchemaDelimiter == "" {
		return fmt.Errorf("--schema-delimiter must not be empty")
	}

	hasLocal := c.ProdManifestPath != ""
	hasCloud := c.DbtCloudToken != "" && c.DbtCloudAccountID != "" && c.DbtCloudJobID != ""
	switch {
	case hasLocal && hasCloud:
		return fmt.Errorf("--prod-manifest-path and dbt Cloud options are mutually exclusive")
	case !hasLocal && !hasCloud:
		if c.DbtCloudToken != "" || c.DbtCloudAccountID != "" || c.DbtCloudJobID != "" {
			return fmt.Errorf("dbt Cloud manifest source requires --dbt-cloud-token, " +
				"--dbt-cloud-account-id and --dbt-cloud-job-id")
		}
		return fmt.Errorf("must provide either --prod-manifest-path or " +
			"(--dbt-cloud-token, --dbt-cloud-account-id, --dbt-cloud-job-id)")
	}
	return nil
}

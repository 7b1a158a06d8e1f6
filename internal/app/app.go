// Package app wires the copier workflow end to end: manifest retrieval,
// modified-node selection, classification, and table copying.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"dbtci/internal/config"
	"dbtci/internal/copier"
	"dbtci/internal/db"
	"dbtci/internal/dbtcloud"
	"dbtci/internal/ddl"
	"dbtci/internal/domain"
	"dbtci/internal/manifest"
	"dbtci/internal/mapper"
	"dbtci/internal/selection"
)

// Deps holds what the app cannot create itself. Selector and DB are
// optional overrides: when nil the app builds a dbt-ls selector and opens
// a connection from the configured URI.
type Deps struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Selector selection.Selector
	DB       *sql.DB
}

// App runs one copy workflow and releases its resources on Cleanup.
type App struct {
	cfg      *config.Config
	logger   *slog.Logger
	selector selection.Selector

	mu      sync.Mutex
	handle  *sql.DB
	ownsDB  bool
	tempDir string // holds a downloaded cloud manifest, removed on Cleanup
}

// New creates an App from validated configuration.
func New(deps Deps) (*App, error) {
	if deps.Cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := deps.Cfg.Validate(); err != nil {
		return nil, err
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &App{
		cfg:      deps.Cfg,
		logger:   logger,
		selector: deps.Selector,
		handle:   deps.DB,
		ownsDB:   deps.DB == nil,
	}, nil
}

// Run executes the workflow once: load manifest, detect modified nodes,
// classify, copy. Fatal errors surface before any database mutation.
func (a *App) Run(ctx context.Context) (*domain.Summary, error) {
	summary := &domain.Summary{RunID: uuid.NewString()}
	a.logger.Info("starting dbt incremental CI run",
		"run_id", summary.RunID, "dry_run", a.cfg.DryRun)

	manifestPath, err := a.resolveManifestPath(ctx)
	if err != nil {
		return nil, err
	}

	man, err := manifest.Load(manifestPath)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("manifest loaded", "nodes", man.Len())

	project, err := manifest.LoadProject(a.cfg.DbtProjectDir)
	if err != nil {
		return nil, err
	}

	baseSchema := a.cfg.BaseSchema
	if baseSchema == "" {
		baseSchema = man.DetectBaseSchema(a.cfg.SchemaDelimiter, a.logger)
		if baseSchema != "" {
			a.logger.Info("auto-detected base schema", "base_schema", baseSchema)
		}
	}

	sel := a.selector
	if sel == nil {
		sel = selection.NewDbtLsSelector(
			a.cfg.DbtProjectDir, filepath.Dir(manifestPath),
			a.logger.With("component", "selector"))
	}
	names, err := sel.ModifiedNodes(ctx)
	if err != nil {
		return nil, err
	}
	summary.ModifiedCount = len(names)
	if len(names) == 0 {
		a.logger.Info("no modified nodes found, nothing to copy")
		return summary, nil
	}

	modified := man.ResolveSelection(names, project.Name, a.logger)

	m := mapper.New(a.cfg.CISchema, baseSchema, a.cfg.SchemaDelimiter,
		a.logger.With("component", "mapper"))
	tasks, err := m.Tasks(man, modified)
	if err != nil {
		return nil, err
	}
	summary.CandidateCount = len(tasks)
	if len(tasks) == 0 {
		a.logger.Info("no incremental models or snapshots among modified nodes")
		return summary, nil
	}

	dialect := ddl.DetectDialect(a.cfg.DatabaseURI)

	var exec copier.Executor
	if !a.cfg.DryRun {
		handle, err := a.database(ctx)
		if err != nil {
			return nil, err
		}
		exec = handle
	}

	c := copier.New(exec, dialect, a.cfg.Threads, a.cfg.DryRun,
		a.logger.With("component", "copier"))
	results, err := c.Copy(ctx, tasks)
	if err != nil {
		return nil, err
	}
	summary.Results = results
	return summary, nil
}

// Cleanup releases the database handle and any temporary manifest
// download. Safe to call multiple times and after a failed Run.
func (a *App) Cleanup() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var firstErr error
	if a.handle != nil && a.ownsDB {
		if err := a.handle.Close(); err != nil {
			firstErr = err
		}
	}
	a.handle = nil

	if a.tempDir != "" {
		if err := os.RemoveAll(a.tempDir); err != nil && firstErr == nil {
			firstErr = err
		}
		a.tempDir = ""
	}
	return firstErr
}

// resolveManifestPath returns the on-disk location of the production
// manifest, downloading it from dbt Cloud first when configured. The
// manifest must live on disk either way: dbt ls defers against a state
// directory, not raw bytes.
func (a *App) resolveManifestPath(ctx context.Context) (string, error) {
	if !a.cfg.UseCloud() {
		a.logger.Info("using local manifest", "path", a.cfg.ProdManifestPath)
		return a.cfg.ProdManifestPath, nil
	}

	client := dbtcloud.NewClient(a.cfg.DbtCloudToken, a.cfg.DbtCloudAccountID,
		dbtcloud.WithLogger(a.logger.With("component", "dbtcloud")))
	data, err := client.Manifest(ctx, a.cfg.DbtCloudJobID, a.cfg.DbtCloudRunID)
	if err != nil {
		return "", fmt.Errorf("fetch manifest from dbt Cloud: %w", err)
	}

	dir, err := os.MkdirTemp("", "dbtci-state-")
	if err != nil {
		return "", fmt.Errorf("create state dir: %w", err)
	}
	a.mu.Lock()
	a.tempDir = dir
	a.mu.Unlock()

	path := filepath.Join(dir, "manifest.json")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("write manifest: %w", err)
	}
	return path, nil
}

// database lazily opens the warehouse connection. Never called in dry-run.
func (a *App) database(ctx context.Context) (*sql.DB, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.handle != nil {
		return a.handle, nil
	}
	handle, err := db.Open(ctx, a.cfg.DatabaseURI)
	if err != nil {
		return nil, err
	}
	handle.SetMaxOpenConns(a.cfg.Threads)
	a.handle = handle
	a.ownsDB = true
	return handle, nil
}

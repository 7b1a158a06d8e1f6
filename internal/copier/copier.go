// Package copier executes production-to-CI table copies, optionally in
// parallel with a bounded worker pool.
package copier

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"dbtci/internal/ddl"
	"dbtci/internal/domain"
)

// Executor is the narrow database capability the copier consumes.
// *sql.DB satisfies it; its pool hands each concurrent worker its own
// connection, so no connection is shared across workers.
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Copier runs copy tasks against a warehouse.
type Copier struct {
	db      Executor
	dialect ddl.Dialect
	threads int
	dryRun  bool
	logger  *slog.Logger
}

// New creates a Copier. db may be nil in dry-run mode.
func New(db Executor, dialect ddl.Dialect, threads int, dryRun bool, logger *slog.Logger) *Copier {
	if threads < 1 {
		threads = 1
	}
	return &Copier{db: db, dialect: dialect, threads: threads, dryRun: dryRun, logger: logger}
}

// Copy ensures every distinct target schema exists and then executes one
// CREATE TABLE AS SELECT per task. Schema creation completes fully before
// any copy starts, so a parallel copy can never race a schema create.
// Individual copy failures are recorded per task and do not abort or
// cancel sibling tasks; only pre-copy failures (schema creation, invalid
// identifiers) return an error.
func (c *Copier) Copy(ctx context.Context, tasks []domain.CopyTask) ([]domain.RunResult, error) {
	if len(tasks) == 0 {
		c.logger.Info("no tables to copy")
		return nil, nil
	}

	if c.dryRun {
		return c.dryRunResults(tasks)
	}

	if err := c.ensureSchemas(ctx, tasks); err != nil {
		return nil, err
	}

	c.logger.Info("copying tables", "count", len(tasks), "threads", c.threads)

	// One result slot per task; workers never touch each other's slot.
	results := make([]domain.RunResult, len(tasks))
	g := &errgroup.Group{}
	g.SetLimit(c.threads)
	for i := range tasks {
		i := i
		g.Go(func() error {
			results[i] = c.copyOne(ctx, tasks[i])
			return nil
		})
	}
	_ = g.Wait() // workers report failures through their result slot

	copied, failed := 0, 0
	for _, r := range results {
		if r.Status == domain.StatusCopied {
			copied++
		} else {
			failed++
		}
	}
	c.logger.Info("copy complete", "copied", copied, "failed", failed)
	return results, nil
}

// ensureSchemas creates each distinct target schema exactly once, in task
// order, before any copy runs.
func (c *Copier) ensureSchemas(ctx context.Context, tasks []domain.CopyTask) error {
	seen := make(map[string]bool)
	for _, t := range tasks {
		schema := t.Target.Schema
		if seen[schema] {
			continue
		}
		seen[schema] = true

		stmt, err := ddl.CreateSchemaIfNotExists(c.dialect, schema)
		if err != nil {
			return err
		}
		if stmt == "" {
			continue
		}
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema %s: %w", schema, err)
		}
		c.logger.Info("ensured schema exists", "schema", schema)
	}
	return nil
}

func (c *Copier) copyOne(ctx context.Context, task domain.CopyTask) domain.RunResult {
	start := time.Now()
	result := domain.RunResult{Task: task}

	stmt, err := ddl.CreateTableAs(c.dialect, task.Target, task.Source)
	if err != nil {
		result.Status = domain.StatusFailed
		result.Err = &domain.CopyError{
			Source: task.Source.String(), Target: task.Target.String(), Cause: err,
		}
		result.Elapsed = time.Since(start)
		return result
	}
	result.SQL = stmt

	c.logger.Info("copying table",
		"source", task.Source.String(), "target", task.Target.String(),
		"materialization", task.Materialization)

	if _, err := c.db.ExecContext(ctx, stmt); err != nil {
		c.logger.Error("copy failed",
			"source", task.Source.String(), "target", task.Target.String(), "error", err)
		result.Status = domain.StatusFailed
		result.Err = &domain.CopyError{
			Source: task.Source.String(), Target: task.Target.String(), Cause: err,
		}
	} else {
		c.logger.Info("copied table",
			"source", task.Source.String(), "target", task.Target.String())
		result.Status = domain.StatusCopied
	}
	result.Elapsed = time.Since(start)
	return result
}

// dryRunResults reports every task as skipped with the statement that
// would have run. No database call is made.
func (c *Copier) dryRunResults(tasks []domain.CopyTask) ([]domain.RunResult, error) {
	seen := make(map[string]bool)
	results := make([]domain.RunResult, 0, len(tasks))
	for _, t := range tasks {
		if !seen[t.Target.Schema] {
			seen[t.Target.Schema] = true
			c.logger.Info("[dry-run] would create schema", "schema", t.Target.Schema)
		}

		stmt, err := ddl.CreateTableAs(c.dialect, t.Target, t.Source)
		if err != nil {
			return nil, err
		}
		c.logger.Info("[dry-run] would copy table",
			"source", t.Source.String(), "target", t.Target.String(),
			"materialization", t.Materialization)
		results = append(results, domain.RunResult{
			Task:   t,
			Status: domain.StatusSkipped,
			SQL:    stmt,
		})
	}
	return results, nil
}

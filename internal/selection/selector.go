// Package selection resolves the set of dbt nodes modified relative to a
// deferred production state.
package selection

import (
	"bytes"
	"context"
	"log/slog"
	"os/exec"
	"strings"

	"dbtci/internal/domain"
)

// Selector yields the names of nodes changed relative to production.
// Abstracted so tests can substitute a canned list for the real dbt CLI.
type Selector interface {
	ModifiedNodes(ctx context.Context) ([]string, error)
}

// CommandRunner executes one external command in a working directory and
// returns its stdout. Injectable for tests.
type CommandRunner func(ctx context.Context, dir, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, domain.ErrSelection("dbt ls failed: %s", msg)
	}
	return stdout.Bytes(), nil
}

// DbtLsSelector shells out to `dbt ls --select state:modified+ --defer`,
// deferring against the directory that holds the production manifest.
type DbtLsSelector struct {
	ProjectDir string
	StateDir   string // directory containing the production manifest.json
	Logger     *slog.Logger
	Runner     CommandRunner // defaults to running the real dbt binary
}

// Compile-time interface check.
var _ Selector = (*DbtLsSelector)(nil)

// NewDbtLsSelector creates a selector for the given project and state dirs.
func NewDbtLsSelector(projectDir, stateDir string, logger *slog.Logger) *DbtLsSelector {
	return &DbtLsSelector{
		ProjectDir: projectDir,
		StateDir:   stateDir,
		Logger:     logger,
		Runner:     execRunner,
	}
}

// ModifiedNodes runs dbt ls and parses its stdout into node names.
func (s *DbtLsSelector) ModifiedNodes(ctx context.Context) ([]string, error) {
	args := []string{
		"ls",
		"--select", "state:modified+",
		"--defer",
		"--state", s.StateDir,
		"--project-dir", s.ProjectDir,
	}
	s.Logger.Info("detecting modified nodes", "command", "dbt "+strings.Join(args, " "))

	out, err := s.Runner(ctx, s.ProjectDir, "dbt", args...)
	if err != nil {
		if _, ok := err.(*domain.SelectionError); ok {
			return nil, err
		}
		return nil, domain.ErrSelection("dbt ls failed: %v", err)
	}

	nodes := parseLsOutput(string(out))
	s.Logger.Info("modified nodes detected", "count", len(nodes))
	return nodes, nil
}

// parseLsOutput extracts node names from dbt ls stdout. dbt mixes log
// lines ("Running with dbt...", "Found 12 models...") into stdout; real
// node names are single dot-separated tokens with no whitespace and no
// ANSI prefix.
func parseLsOutput(out string) []string {
	var nodes []string
	seen := make(map[string]bool)
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "[") || strings.HasPrefix(line, "\x1b") {
			continue
		}
		if strings.ContainsAny(line, " \t") {
			continue
		}
		if seen[line] {
			continue
		}
		seen[line] = true
		nodes = append(nodes, line)
	}
	return nodes
}

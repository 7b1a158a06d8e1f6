// Package mapper classifies modified manifest nodes and derives the
// source/target qualified names for each table copy.
package mapper

import (
	"log/slog"
	"strings"

	"dbtci/internal/domain"
	"dbtci/internal/manifest"
)

// Mapper turns modified node ids into copy tasks. Only snapshots and
// incremental models are kept; their custom schema suffix carries over
// from the production base schema onto the CI schema.
type Mapper struct {
	CISchema   string
	BaseSchema string // production base schema; empty disables suffix inference
	Delimiter  string // joins base schema and custom suffix, normally "_"
	Logger     *slog.Logger
}

// New creates a Mapper.
func New(ciSchema, baseSchema, delimiter string, logger *slog.Logger) *Mapper {
	return &Mapper{
		CISchema:   ciSchema,
		BaseSchema: baseSchema,
		Delimiter:  delimiter,
		Logger:     logger,
	}
}

// Tasks builds the ordered list of copy tasks for the given modified node
// ids. Input order (sorted manifest ids) is preserved so dry-run output is
// reproducible. A node whose schema cannot be mapped onto the CI schema is
// a SchemaInferenceError, not a silent skip.
func (m *Mapper) Tasks(man *manifest.Manifest, modified []string) ([]domain.CopyTask, error) {
	var tasks []domain.CopyTask
	for _, id := range modified {
		node, ok := man.Get(id)
		if !ok {
			continue
		}
		if !node.IsCopyCandidate() {
			m.Logger.Debug("skipping non-candidate node",
				"node", id, "resource_type", node.ResourceType,
				"materialization", node.Materialization)
			continue
		}

		targetSchema, err := m.targetSchema(node.Schema)
		if err != nil {
			return nil, err
		}

		table := node.TableName()
		tasks = append(tasks, domain.CopyTask{
			NodeID:          id,
			Kind:            node.ResourceType,
			Materialization: node.Materialization,
			Source: domain.QualifiedName{
				Database: node.Database,
				Schema:   node.Schema,
				Table:    table,
			},
			Target: domain.QualifiedName{
				Schema: targetSchema,
				Table:  table,
			},
		})
	}
	return tasks, nil
}

// targetSchema maps a source schema onto the CI schema, preserving any
// custom suffix beyond the base schema: base + delim + suffix becomes
// ci + delim + suffix, and the base schema itself becomes the CI schema.
func (m *Mapper) targetSchema(sourceSchema string) (string, error) {
	if m.BaseSchema == "" {
		return m.CISchema, nil
	}
	if sourceSchema == m.BaseSchema {
		return m.CISchema, nil
	}
	if suffix, ok := strings.CutPrefix(sourceSchema, m.BaseSchema+m.Delimiter); ok && suffix != "" {
		return m.CISchema + m.Delimiter + suffix, nil
	}
	return "", domain.ErrSchemaInference(
		"cannot derive CI schema for source schema %q: expected %q or %q followed by a suffix",
		sourceSchema, m.BaseSchema, m.BaseSchema+m.Delimiter)
}

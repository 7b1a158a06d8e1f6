package mapper

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dbtci/internal/domain"
	"dbtci/internal/manifest"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const testManifest = `{
  "nodes": {
    "model.edu.orders_inc": {
      "name": "orders_inc",
      "package_name": "edu",
      "resource_type": "model",
      "database": "prod",
      "schema": "edu_dbt",
      "config": {"materialized": "incremental"}
    },
    "model.edu.events_inc": {
      "name": "events_inc",
      "alias": "events",
      "package_name": "edu",
      "resource_type": "model",
      "database": "prod",
      "schema": "edu_dbt_custom_suffix",
      "config": {"materialized": "incremental", "schema": "custom_suffix"}
    },
    "model.edu.daily_summary": {
      "name": "daily_summary",
      "package_name": "edu",
      "resource_type": "model",
      "database": "prod",
      "schema": "edu_dbt",
      "config": {"materialized": "view"}
    },
    "snapshot.edu.orders_snapshot": {
      "name": "orders_snapshot",
      "package_name": "edu",
      "resource_type": "snapshot",
      "database": "prod",
      "schema": "edu_dbt_snapshots",
      "config": {"schema": "snapshots"}
    },
    "model.edu.legacy": {
      "name": "legacy",
      "package_name": "edu",
      "resource_type": "model",
      "database": "prod",
      "schema": "unrelated_schema",
      "config": {"materialized": "incremental"}
    }
  }
}`

func loadManifest(t *testing.T) *manifest.Manifest {
	t.Helper()
	m, err := manifest.Parse([]byte(testManifest))
	require.NoError(t, err)
	return m
}

func TestTasksSelectionRule(t *testing.T) {
	man := loadManifest(t)
	m := New("ci_test", "edu_dbt", "_", discardLogger())

	// The view model must be filtered out; the unknown id ignored.
	tasks, err := m.Tasks(man, []string{
		"model.edu.daily_summary",
		"model.edu.events_inc",
		"model.edu.orders_inc",
		"model.edu.unknown",
		"snapshot.edu.orders_snapshot",
	})
	require.NoError(t, err)
	require.Len(t, tasks, 3)

	ids := make([]string, 0, len(tasks))
	for _, task := range tasks {
		ids = append(ids, task.NodeID)
	}
	assert.Equal(t, []string{
		"model.edu.events_inc",
		"model.edu.orders_inc",
		"snapshot.edu.orders_snapshot",
	}, ids)
}

func TestTasksNameMapping(t *testing.T) {
	man := loadManifest(t)
	m := New("ci_test", "edu_dbt", "_", discardLogger())

	tasks, err := m.Tasks(man, []string{"model.edu.events_inc", "model.edu.orders_inc"})
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	// Custom suffix preserved: edu_dbt_custom_suffix -> ci_test_custom_suffix.
	events := tasks[0]
	assert.Equal(t, domain.QualifiedName{Database: "prod", Schema: "edu_dbt_custom_suffix", Table: "events"}, events.Source)
	assert.Equal(t, domain.QualifiedName{Schema: "ci_test_custom_suffix", Table: "events"}, events.Target)
	assert.Equal(t, domain.ResourceModel, events.Kind)

	// Base schema maps onto the CI schema unchanged.
	orders := tasks[1]
	assert.Equal(t, "edu_dbt", orders.Source.Schema)
	assert.Equal(t, "ci_test", orders.Target.Schema)
	assert.Equal(t, "orders_inc", orders.Target.Table)
}

func TestTasksSnapshotSuffix(t *testing.T) {
	man := loadManifest(t)
	m := New("ci_test", "edu_dbt", "_", discardLogger())

	tasks, err := m.Tasks(man, []string{"snapshot.edu.orders_snapshot"})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "ci_test_snapshots", tasks[0].Target.Schema)
	assert.Equal(t, domain.ResourceSnapshot, tasks[0].Kind)
}

func TestTasksSchemaInferenceError(t *testing.T) {
	man := loadManifest(t)
	m := New("ci_test", "edu_dbt", "_", discardLogger())

	_, err := m.Tasks(man, []string{"model.edu.legacy"})
	require.Error(t, err)
	var infErr *domain.SchemaInferenceError
	require.ErrorAs(t, err, &infErr)
	assert.Contains(t, err.Error(), "unrelated_schema")
}

func TestTasksNoBaseSchema(t *testing.T) {
	man := loadManifest(t)
	m := New("ci_test", "", "_", discardLogger())

	// Without a base schema every table lands directly in the CI schema.
	tasks, err := m.Tasks(man, []string{"model.edu.events_inc", "model.edu.legacy"})
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	for _, task := range tasks {
		assert.Equal(t, "ci_test", task.Target.Schema)
	}
}

func TestTargetSchemaDelimiter(t *testing.T) {
	tests := []struct {
		name      string
		base      string
		delimiter string
		source    string
		want      string
		wantErr   bool
	}{
		{name: "exact_base", base: "edu_dbt", delimiter: "_", source: "edu_dbt", want: "ci_test"},
		{name: "suffix", base: "edu_dbt", delimiter: "_", source: "edu_dbt_custom_suffix", want: "ci_test_custom_suffix"},
		{name: "double_underscore", base: "edu_dbt", delimiter: "__", source: "edu_dbt__marts", want: "ci_test__marts"},
		{name: "delimiter_without_suffix", base: "edu_dbt", delimiter: "_", source: "edu_dbt_", wantErr: true},
		{name: "unrelated", base: "edu_dbt", delimiter: "_", source: "warehouse", wantErr: true},
		{name: "prefix_without_delimiter", base: "edu_dbt", delimiter: "_", source: "edu_dbtx", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New("ci_test", tt.base, tt.delimiter, discardLogger())
			got, err := m.targetSchema(tt.source)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

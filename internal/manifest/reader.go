// Package manifest loads and validates dbt manifest.json documents.
package manifest

import (
	"encoding/json"
	"log/slog"
	"os"
	"sort"
	"strings"

	"dbtci/internal/domain"
)

// rawNode mirrors the subset of a manifest node this tool consumes.
// Parsing into an explicit struct up front keeps attribute errors out of
// the later pipeline stages.
type rawNode struct {
	Name         string        `json:"name"`
	Alias        string        `json:"alias"`
	PackageName  string        `json:"package_name"`
	ResourceType string        `json:"resource_type"`
	Database     string        `json:"database"`
	Schema       string        `json:"schema"`
	Config       rawNodeConfig `json:"config"`
}

type rawNodeConfig struct {
	Materialized string `json:"materialized"`
	Schema       string `json:"schema"` // custom schema suffix, empty for base-schema nodes
}

type rawManifest struct {
	Nodes map[string]rawNode `json:"nodes"`
}

// Manifest is a validated production manifest: a catalog of model and
// snapshot nodes keyed by unique id.
type Manifest struct {
	nodes map[string]domain.ManifestNode
	ids   []string // sorted, for reproducible iteration
}

// Load reads and parses a manifest.json file from disk.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.ErrManifestParse("read manifest %s: %v", path, err)
	}
	return Parse(data)
}

// Parse decodes manifest JSON bytes into a validated Manifest. Only model
// and snapshot nodes are kept; other resource types (tests, seeds,
// analyses) are irrelevant to table copying.
func Parse(data []byte) (*Manifest, error) {
	var raw rawManifest
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, domain.ErrManifestParse("invalid manifest JSON: %v", err)
	}
	if raw.Nodes == nil {
		return nil, domain.ErrManifestParse("manifest has no \"nodes\" section")
	}

	m := &Manifest{nodes: make(map[string]domain.ManifestNode, len(raw.Nodes))}
	for id, rn := range raw.Nodes {
		rt := domain.ResourceType(rn.ResourceType)
		if rt != domain.ResourceModel && rt != domain.ResourceSnapshot {
			continue
		}
		if rn.Name == "" {
			return nil, domain.ErrManifestParse("node %s is missing required field \"name\"", id)
		}
		if rn.Schema == "" {
			return nil, domain.ErrManifestParse("node %s is missing required field \"schema\"", id)
		}
		mat := domain.Materialization(rn.Config.Materialized)
		if rt == domain.ResourceSnapshot {
			mat = domain.MaterializationSnapshot
		}
		m.nodes[id] = domain.ManifestNode{
			UniqueID:        id,
			Name:            rn.Name,
			Alias:           rn.Alias,
			PackageName:     rn.PackageName,
			ResourceType:    rt,
			Materialization: mat,
			Database:        rn.Database,
			Schema:          rn.Schema,
			CustomSchema:    rn.Config.Schema,
		}
	}

	m.ids = make([]string, 0, len(m.nodes))
	for id := range m.nodes {
		m.ids = append(m.ids, id)
	}
	sort.Strings(m.ids)
	return m, nil
}

// Len returns the number of model/snapshot nodes in the manifest.
func (m *Manifest) Len() int { return len(m.nodes) }

// Get returns the node with the given unique id.
func (m *Manifest) Get(id string) (domain.ManifestNode, bool) {
	n, ok := m.nodes[id]
	return n, ok
}

// SortedIDs returns all node ids in sorted order.
func (m *Manifest) SortedIDs() []string {
	out := make([]string, len(m.ids))
	copy(out, m.ids)
	return out
}

// DetectBaseSchema infers the production base schema:
//
//  1. the schema of any model without a custom schema config
//  2. else, a model schema with its custom suffix stripped
//  3. else, the most common schema among copy-candidate nodes
//
// Returns "" when nothing can be inferred; the mapper then places every
// table directly in the CI schema.
func (m *Manifest) DetectBaseSchema(delimiter string, logger *slog.Logger) string {
	for _, id := range m.ids {
		n := m.nodes[id]
		if n.ResourceType == domain.ResourceModel && n.CustomSchema == "" {
			return n.Schema
		}
	}

	for _, id := range m.ids {
		n := m.nodes[id]
		if n.ResourceType != domain.ResourceModel || n.CustomSchema == "" {
			continue
		}
		if base, ok := strings.CutSuffix(n.Schema, delimiter+n.CustomSchema); ok && base != "" {
			return base
		}
	}

	counts := make(map[string]int)
	for _, id := range m.ids {
		n := m.nodes[id]
		if n.IsCopyCandidate() {
			counts[n.Schema]++
		}
	}
	best, bestCount := "", 0
	for _, id := range m.ids {
		n := m.nodes[id]
		if c := counts[n.Schema]; c > bestCount {
			best, bestCount = n.Schema, c
		}
	}
	if best == "" {
		logger.Warn("could not auto-detect base schema from manifest")
	}
	return best
}

// ResolveSelection maps selector output names onto manifest node ids.
//
// `dbt ls` emits project-path names such as "my_project.marts.orders"
// while manifest keys look like "model.my_project.orders", so matching is
// by trailing node name. When projectName is non-empty, nodes from other
// packages are excluded. Names with no manifest counterpart are dropped
// with a warning, not an error: a modified view or seed is simply not a
// copy candidate catalogued here.
func (m *Manifest) ResolveSelection(names []string, projectName string, logger *slog.Logger) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, name := range names {
		short := name
		if i := strings.LastIndex(name, "."); i >= 0 {
			short = name[i+1:]
		}

		matched := false
		for _, id := range m.ids {
			n := m.nodes[id]
			if n.Name != short {
				continue
			}
			if projectName != "" && n.PackageName != "" && n.PackageName != projectName {
				continue
			}
			matched = true
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
		if !matched {
			logger.Warn("modified node not found in production manifest, skipping", "node", name)
		}
	}
	sort.Strings(ids)
	return ids
}

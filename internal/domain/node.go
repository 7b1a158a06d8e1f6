package domain

// ResourceType identifies the kind of dbt resource a manifest node describes.
type ResourceType string

// Resource type constants as they appear in manifest.json.
const (
	ResourceModel    ResourceType = "model"
	ResourceSnapshot ResourceType = "snapshot"
	ResourceSeed     ResourceType = "seed"
	ResourceTest     ResourceType = "test"
)

// Materialization describes how a model is built in the warehouse.
// Only meaningful for ResourceModel nodes.
type Materialization string

const (
	MaterializationTable       Materialization = "table"
	MaterializationView        Materialization = "view"
	MaterializationIncremental Materialization = "incremental"
	MaterializationEphemeral   Materialization = "ephemeral"
	MaterializationSnapshot    Materialization = "snapshot"
)

// ManifestNode is one model or snapshot entry from a dbt manifest.
// Nodes are immutable once loaded.
type ManifestNode struct {
	UniqueID        string
	Name            string
	Alias           string // physical table name override, may be empty
	PackageName     string
	ResourceType    ResourceType
	Materialization Materialization
	Database        string
	Schema          string
	CustomSchema    string // per-model schema config, empty when the node uses the base schema
}

// TableName returns the physical table name: the alias when set, the node
// name otherwise.
func (n *ManifestNode) TableName() string {
	if n.Alias != "" {
		return n.Alias
	}
	return n.Name
}

// IsCopyCandidate reports whether the node's production table should be
// copied into CI: snapshots always, models only when incremental.
func (n *ManifestNode) IsCopyCandidate() bool {
	switch n.ResourceType {
	case ResourceSnapshot:
		return true
	case ResourceModel:
		return n.Materialization == MaterializationIncremental
	default:
		return false
	}
}

package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Project is the subset of dbt_project.yml the copier needs: the project
// name disambiguates selector output when a manifest carries nodes from
// multiple packages.
type Project struct {
	Name    string `yaml:"name"`
	Profile string `yaml:"profile"`
	Version string `yaml:"version"`
}

// LoadProject reads dbt_project.yml from a dbt project directory. A missing
// file is not an error: selection matching just loses package filtering.
func LoadProject(dir string) (*Project, error) {
	path := filepath.Join(dir, "dbt_project.yml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Project{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var p Project
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &p, nil
}

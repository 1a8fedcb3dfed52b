// Package devseed loads seed fixtures for the sandbox API server. Seed files
// are JSON or YAML documents keyed by resource collection.
package devseed

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Seed holds the initial sandbox dataset. Entity objects are kept as loose
// maps so the sandbox can apply PATCH-style partial updates without a schema.
type Seed struct {
	Users       map[string]string `json:"users" yaml:"users"`
	Inventory   []map[string]any  `json:"inventory" yaml:"inventory"`
	Maintenance []map[string]any  `json:"maintenance" yaml:"maintenance"`
	Groups      []map[string]any  `json:"groups" yaml:"groups"`
}

// Load reads a seed file, choosing the decoder by file extension (.yaml/.yml
// or .json).
func Load(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("devseed: read %s: %w", path, err)
	}

	seed := &Seed{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, seed); err != nil {
			return nil, fmt.Errorf("devseed: parse %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(data, seed); err != nil {
			return nil, fmt.Errorf("devseed: parse %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("devseed: unsupported seed format %q", filepath.Ext(path))
	}

	return seed, nil
}

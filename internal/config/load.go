package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where Load looks when no path is given.
const DefaultPath = "opnvpn.yaml"

// Load reads and parses the configuration file, merges defaults into every
// profile, and validates the result.
func Load(path string) (*File, error) {
	if path == "" {
		path = DefaultPath
	}
	// #nosec G304 -- path comes from the operator's own flag
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	for i := range f.Profiles {
		f.Profiles[i].applyDefaults()
	}
	if f.OutputDir == "" {
		f.OutputDir = "out"
	}

	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return &f, nil
}

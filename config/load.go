package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load loads configuration with priority: defaults < file < flags.
// path may be empty, in which case ./flowguide.yaml is used when
// present.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		if _, err := os.Stat("flowguide.yaml"); err == nil {
			path = "flowguide.yaml"
		}
	}
	if path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", path, err)
		}
	}

	applyFlags(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromFile loads config from a YAML file, merging with existing
// values.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func (c *Config) validate() error {
	switch c.Solver.Weighting {
	case "uniform", "invlength":
	default:
		return fmt.Errorf("config: unknown solver weighting %q", c.Solver.Weighting)
	}
	switch c.Mesh.NonManifold {
	case "repair", "reject":
	default:
		return fmt.Errorf("config: unknown non-manifold policy %q", c.Mesh.NonManifold)
	}
	if c.Solver.Threshold < 0 {
		return fmt.Errorf("config: negative solver threshold")
	}
	if c.Solver.MaxPasses < 0 {
		return fmt.Errorf("config: negative solver pass cap")
	}
	return nil
}

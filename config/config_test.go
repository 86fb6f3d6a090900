package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Solver.Threshold != 1e-3 {
		t.Errorf("expected threshold 1e-3, got %g", cfg.Solver.Threshold)
	}
	if cfg.Solver.MaxPasses != 64 {
		t.Errorf("expected max passes 64, got %d", cfg.Solver.MaxPasses)
	}
	if cfg.Solver.Seed != 1 {
		t.Errorf("expected seed 1, got %d", cfg.Solver.Seed)
	}
	if cfg.Solver.Weighting != "uniform" {
		t.Errorf("expected uniform weighting, got %s", cfg.Solver.Weighting)
	}
	if cfg.Hierarchy.MinVertices != 24 {
		t.Errorf("expected min vertices 24, got %d", cfg.Hierarchy.MinVertices)
	}
	if cfg.Mesh.NonManifold != "repair" {
		t.Errorf("expected repair policy, got %s", cfg.Mesh.NonManifold)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "flowguide.yaml")

	yamlContent := `
solver:
  threshold: 1e-5
  max_passes: 200
  seed: 99
  weighting: invlength
mesh:
  non_manifold: reject
logging:
  level: debug
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Solver.Threshold != 1e-5 {
		t.Errorf("expected threshold 1e-5, got %g", cfg.Solver.Threshold)
	}
	if cfg.Solver.MaxPasses != 200 {
		t.Errorf("expected max passes 200, got %d", cfg.Solver.MaxPasses)
	}
	if cfg.Solver.Seed != 99 {
		t.Errorf("expected seed 99, got %d", cfg.Solver.Seed)
	}
	if cfg.Solver.Weighting != "invlength" {
		t.Errorf("expected invlength weighting, got %s", cfg.Solver.Weighting)
	}
	if cfg.Mesh.NonManifold != "reject" {
		t.Errorf("expected reject policy, got %s", cfg.Mesh.NonManifold)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level debug, got %s", cfg.Logging.Level)
	}
	// Untouched sections keep their defaults.
	if cfg.Hierarchy.MinVertices != 24 {
		t.Errorf("expected default min vertices, got %d", cfg.Hierarchy.MinVertices)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "flowguide.yaml")
	if err := os.WriteFile(configPath, []byte("solver:\n  weighting: sideways\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(configPath); err == nil {
		t.Fatal("expected error for unknown weighting")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config path")
	}
}

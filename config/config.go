// Package config handles pipeline configuration loading for the
// flowguide tools.
package config

// Config holds all pipeline settings.
type Config struct {
	Solver    SolverConfig    `yaml:"solver"`
	Hierarchy HierarchyConfig `yaml:"hierarchy"`
	Mesh      MeshConfig      `yaml:"mesh"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// SolverConfig holds relaxation parameters.
type SolverConfig struct {
	// Threshold is the convergence threshold in radians.
	Threshold float64 `yaml:"threshold"`
	// MaxPasses caps relaxation passes per hierarchy level.
	MaxPasses int `yaml:"max_passes"`
	// Seed drives the random seeding and visitation shuffles; equal
	// seeds reproduce runs exactly.
	Seed uint64 `yaml:"seed"`
	// Weighting is "uniform" or "invlength".
	Weighting string `yaml:"weighting"`
}

// HierarchyConfig holds coarsening parameters.
type HierarchyConfig struct {
	// MinVertices is the coarsening floor.
	MinVertices int `yaml:"min_vertices"`
}

// MeshConfig holds topology construction parameters.
type MeshConfig struct {
	// NonManifold is "repair" or "reject".
	NonManifold string `yaml:"non_manifold"`
	// WeldTolerance merges STL soup vertices closer than this;
	// 0 infers a tolerance from the smallest triangle.
	WeldTolerance float64 `yaml:"weld_tolerance"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Solver: SolverConfig{
			Threshold: 1e-3,
			MaxPasses: 64,
			Seed:      1,
			Weighting: "uniform",
		},
		Hierarchy: HierarchyConfig{
			MinVertices: 24,
		},
		Mesh: MeshConfig{
			NonManifold:   "repair",
			WeldTolerance: 0,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

package config

import "flag"

var (
	flagConfig    = flag.String("config", "", "Path to config file")
	flagDebug     = flag.Bool("debug", false, "Enable debug logging")
	flagSeed      = flag.Uint64("seed", 0, "Random seed override (0 keeps the configured seed)")
	flagThreshold = flag.Float64("threshold", 0, "Convergence threshold override in radians")
	flagMaxPasses = flag.Int("max-passes", 0, "Per-level pass cap override")
	flagReject    = flag.Bool("reject-nonmanifold", false, "Fail on non-manifold input instead of repairing")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via the
// -config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagSeed != 0 {
		cfg.Solver.Seed = *flagSeed
	}
	if *flagThreshold > 0 {
		cfg.Solver.Threshold = *flagThreshold
	}
	if *flagMaxPasses > 0 {
		cfg.Solver.MaxPasses = *flagMaxPasses
	}
	if *flagReject {
		cfg.Mesh.NonManifold = "reject"
	}
}

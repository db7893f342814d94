package config

import "flag"

// Flags holds command-line overrides. Unset values leave the config alone.
type Flags struct {
	Config  string
	Debug   bool
	LogFile string
	Mode    string
	Format  string
	Basis   string
	Normals string

	// Thresholds are negative when unset; zero is a valid override.
	GeneralOptimization    float64
	QuaternionOptimization float64
	Interpolation          float64
}

// Register binds the flags to fs.
func (f *Flags) Register(fs *flag.FlagSet) {
	fs.StringVar(&f.Config, "config", "", "Path to config file (.yaml or .toml)")
	fs.BoolVar(&f.Debug, "debug", false, "Enable debug logging")
	fs.StringVar(&f.LogFile, "log", "", "Write logs to this file as well")
	fs.StringVar(&f.Mode, "mode", "", "Rotation mode: euler, quaternion or keep")
	fs.StringVar(&f.Format, "format", "", "Output format: yaml or toml")
	fs.StringVar(&f.Basis, "basis", "", "Basis shape name")
	fs.StringVar(&f.Normals, "normals", "", "Shape normals: none, nulled or full")
	fs.Float64Var(&f.GeneralOptimization, "optimize", -1, "General optimization threshold")
	fs.Float64Var(&f.QuaternionOptimization, "optimize-rotation", -1, "Rotation optimization threshold")
	fs.Float64Var(&f.Interpolation, "interpolation", -1, "Interpolation threshold for non-linear curves")
}

// ConfigPath returns the explicit config path if provided via --config flag.
func (f *Flags) ConfigPath() string {
	if f == nil {
		return ""
	}
	return f.Config
}

// apply applies CLI flag overrides to the config.
func (f *Flags) apply(cfg *Config) {
	if f == nil {
		return
	}
	if f.Debug {
		cfg.Logging.Level = "debug"
	}
	if f.LogFile != "" {
		cfg.Logging.LogFile = f.LogFile
	}
	if f.Mode != "" {
		cfg.Bake.RotationMode = f.Mode
	}
	if f.Format != "" {
		cfg.Output.Format = f.Format
	}
	if f.Basis != "" {
		cfg.Shape.Basis = f.Basis
	}
	if f.Normals != "" {
		cfg.Shape.Normals = f.Normals
	}
	if f.GeneralOptimization >= 0 {
		cfg.Bake.GeneralOptimizationThreshold = f.GeneralOptimization
	}
	if f.QuaternionOptimization >= 0 {
		cfg.Bake.QuaternionOptimizationThreshold = f.QuaternionOptimization
	}
	if f.Interpolation >= 0 {
		cfg.Bake.InterpolationThreshold = f.Interpolation
	}
}

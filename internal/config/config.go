// Package config handles motionbake configuration loading and management.
package config

import (
	"fmt"
	"strings"

	"github.com/Faultbox/motionbake/pkg/bake"
)

// Config holds all bake settings.
type Config struct {
	Bake    BakeConfig    `yaml:"bake" toml:"bake"`
	Shape   ShapeConfig   `yaml:"shape" toml:"shape"`
	Output  OutputConfig  `yaml:"output" toml:"output"`
	Logging LoggingConfig `yaml:"logging" toml:"logging"`
}

// BakeConfig holds sampling and optimization thresholds.
type BakeConfig struct {
	InterpolationThreshold          float64 `yaml:"interpolation_threshold" toml:"interpolation_threshold"`
	GeneralOptimizationThreshold    float64 `yaml:"general_optimization_threshold" toml:"general_optimization_threshold"`
	QuaternionThreshold             float64 `yaml:"quaternion_threshold" toml:"quaternion_threshold"`
	QuaternionOptimizationThreshold float64 `yaml:"quaternion_optimization_threshold" toml:"quaternion_optimization_threshold"`
	RotationMode                    string  `yaml:"rotation_mode" toml:"rotation_mode"` // euler, quaternion or keep
	RotateZYX                       bool    `yaml:"rotate_zyx" toml:"rotate_zyx"`
	EnsurePositiveEulerAngles       bool    `yaml:"ensure_positive_euler_angles" toml:"ensure_positive_euler_angles"`

	// QuaternionConversionDeviation thins converted rotation keys on import.
	QuaternionConversionDeviation float64 `yaml:"quaternion_conversion_deviation" toml:"quaternion_conversion_deviation"`
}

// ShapeConfig holds shape key settings.
type ShapeConfig struct {
	Basis   string `yaml:"basis" toml:"basis"`
	Normals string `yaml:"normals" toml:"normals"` // none, nulled or full
	Reuse   bool   `yaml:"reuse" toml:"reuse"`     // match imported arrays against existing shapes
}

// OutputConfig holds motion document output settings.
type OutputConfig struct {
	Format string `yaml:"format" toml:"format"` // yaml or toml
	Dir    string `yaml:"dir" toml:"dir"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level" toml:"level"`
	LogFile string `yaml:"log_file" toml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Bake: BakeConfig{
			InterpolationThreshold:          0.001,
			GeneralOptimizationThreshold:    0.001,
			QuaternionThreshold:             0.01,
			QuaternionOptimizationThreshold: 0.001,
			RotationMode:                    "euler",
			QuaternionConversionDeviation:   bake.DefaultConversionDeviation,
		},
		Shape: ShapeConfig{
			Basis:   "Basis",
			Normals: "none",
		},
		Output: OutputConfig{
			Format: "yaml",
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Parameters converts the bake section and validates it.
func (b BakeConfig) Parameters() (bake.Parameters, error) {
	mode, err := bake.ParseRotationMode(b.RotationMode)
	if err != nil {
		return bake.Parameters{}, err
	}

	p := bake.Parameters{
		InterpolationThreshold:          b.InterpolationThreshold,
		GeneralOptimizationThreshold:    b.GeneralOptimizationThreshold,
		QuaternionThreshold:             b.QuaternionThreshold,
		QuaternionOptimizationThreshold: b.QuaternionOptimizationThreshold,
		RotationMode:                    mode,
		RotateZYX:                       b.RotateZYX,
		EnsurePositiveEulerAngles:       b.EnsurePositiveEulerAngles,
	}
	if err := p.Validate(); err != nil {
		return bake.Parameters{}, err
	}
	if b.QuaternionConversionDeviation < 0 {
		return bake.Parameters{}, &bake.ConfigurationError{
			Option: "quaternion_conversion_deviation",
			Value:  b.QuaternionConversionDeviation,
		}
	}
	return p, nil
}

// NormalMode parses the normals setting.
func (s ShapeConfig) NormalMode() (bake.NormalMode, error) {
	var m bake.NormalMode
	if err := m.UnmarshalText([]byte(s.Normals)); err != nil {
		return bake.NormalsNone, err
	}
	return m, nil
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	if _, err := c.Bake.Parameters(); err != nil {
		return fmt.Errorf("bake: %w", err)
	}
	if _, err := c.Shape.NormalMode(); err != nil {
		return fmt.Errorf("shape: %w", err)
	}
	switch strings.ToLower(c.Output.Format) {
	case "yaml", "toml":
	default:
		return fmt.Errorf("output: unknown format %q", c.Output.Format)
	}
	return nil
}

// Package bake converts animation curves to keyframe channels and back.
//
// Export samples the curves of a node, camera or shape action at the frames
// they need, converts positions, rotations and scales into target space and
// thins the result. Import reverses the conversion and produces linear
// curves.
package bake

import (
	"fmt"
	"math"
	"strings"
)

// RotationMode selects the rotation representation of baked keys.
type RotationMode int

const (
	RotationEuler RotationMode = iota
	RotationQuaternion
	// RotationKeep keeps the representation of the source.
	RotationKeep
)

var rotationModeNames = []string{"euler", "quaternion", "keep"}

// String returns the lowercase mode name.
func (m RotationMode) String() string {
	if int(m) >= 0 && int(m) < len(rotationModeNames) {
		return rotationModeNames[m]
	}
	return fmt.Sprintf("RotationMode(%d)", int(m))
}

// ParseRotationMode parses "euler", "quaternion" or "keep".
func ParseRotationMode(s string) (RotationMode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range rotationModeNames {
		if name == s {
			return RotationMode(i), nil
		}
	}
	return RotationEuler, fmt.Errorf("unknown rotation mode %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (m RotationMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *RotationMode) UnmarshalText(text []byte) error {
	v, err := ParseRotationMode(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Parameters tune sampling and optimization. All thresholds are
// non-negative; zero means lossless.
type Parameters struct {
	// InterpolationThreshold bounds the error when thinning dense samples
	// of non-linear curve runs.
	InterpolationThreshold float64 `yaml:"interpolation_threshold" toml:"interpolation_threshold"`
	// GeneralOptimizationThreshold thins position, scale and camera keys.
	GeneralOptimizationThreshold float64 `yaml:"general_optimization_threshold" toml:"general_optimization_threshold"`
	// QuaternionThreshold bounds the error of Euler/quaternion conversion.
	QuaternionThreshold float64 `yaml:"quaternion_threshold" toml:"quaternion_threshold"`
	// QuaternionOptimizationThreshold thins rotation keys.
	QuaternionOptimizationThreshold float64 `yaml:"quaternion_optimization_threshold" toml:"quaternion_optimization_threshold"`

	RotationMode              RotationMode `yaml:"rotation_mode" toml:"rotation_mode"`
	RotateZYX                 bool         `yaml:"rotate_zyx" toml:"rotate_zyx"`
	EnsurePositiveEulerAngles bool         `yaml:"ensure_positive_euler_angles" toml:"ensure_positive_euler_angles"`
}

// DefaultParameters returns lossless parameters with Euler output.
func DefaultParameters() Parameters {
	return Parameters{RotationMode: RotationEuler}
}

// Validate rejects negative or NaN thresholds.
func (p Parameters) Validate() error {
	checks := []struct {
		name  string
		value float64
	}{
		{"interpolation_threshold", p.InterpolationThreshold},
		{"general_optimization_threshold", p.GeneralOptimizationThreshold},
		{"quaternion_threshold", p.QuaternionThreshold},
		{"quaternion_optimization_threshold", p.QuaternionOptimizationThreshold},
	}
	for _, c := range checks {
		if c.value < 0 || math.IsNaN(c.value) {
			return &ConfigurationError{Option: c.name, Value: c.value}
		}
	}
	if p.RotationMode < RotationEuler || p.RotationMode > RotationKeep {
		return fmt.Errorf("invalid rotation mode %d", int(p.RotationMode))
	}
	return nil
}

// optimize reports whether a post-bake optimization pass is needed.
func (p Parameters) optimize() bool {
	return p.GeneralOptimizationThreshold > 0 || p.QuaternionOptimizationThreshold > 0
}

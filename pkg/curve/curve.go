// Package curve models keyed animation curves and extracts the integer
// frames a curve needs to be reproduced by linear keyframes.
package curve

import (
	"fmt"
	"sort"
	"strings"
)

// Interpolation is the interpolation of the segment that starts at a
// control point.
type Interpolation int

const (
	Constant Interpolation = iota
	Linear
	Bezier // any non-linear interpolation
)

var interpolationNames = map[Interpolation]string{
	Constant: "constant",
	Linear:   "linear",
	Bezier:   "bezier",
}

// String returns the lowercase interpolation name.
func (i Interpolation) String() string {
	if name, ok := interpolationNames[i]; ok {
		return name
	}
	return fmt.Sprintf("Interpolation(%d)", int(i))
}

// MarshalText implements encoding.TextMarshaler.
func (i Interpolation) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (i *Interpolation) UnmarshalText(text []byte) error {
	s := strings.ToLower(strings.TrimSpace(string(text)))
	for k, name := range interpolationNames {
		if name == s {
			*i = k
			return nil
		}
	}
	return fmt.Errorf("unknown interpolation %q", text)
}

// ControlPoint is a key on a curve. Frames may be fractional.
type ControlPoint struct {
	Frame         float64       `yaml:"frame" toml:"frame"`
	Value         float64       `yaml:"value" toml:"value"`
	Interpolation Interpolation `yaml:"interpolation" toml:"interpolation"`
}

// Curve is a read-only keyed animation curve.
type Curve interface {
	// ControlPoints returns the keys ordered by frame.
	ControlPoints() []ControlPoint
	// Evaluate returns the curve value at frame.
	Evaluate(frame float64) float64
}

// Points is an in-memory Curve. Keys must be ordered by frame.
type Points []ControlPoint

// ControlPoints implements Curve.
func (p Points) ControlPoints() []ControlPoint { return p }

// Evaluate implements Curve. Values before the first and after the last key
// are held constant. Bezier segments are evaluated as cubic Hermite splines
// with Catmull-Rom tangents.
func (p Points) Evaluate(frame float64) float64 {
	n := len(p)
	if n == 0 {
		return 0
	}
	if frame <= p[0].Frame {
		return p[0].Value
	}
	if frame >= p[n-1].Frame {
		return p[n-1].Value
	}

	// First key strictly after frame; the segment starts one before it.
	i := sort.Search(n, func(i int) bool { return p[i].Frame > frame }) - 1
	a, b := p[i], p[i+1]
	width := b.Frame - a.Frame
	t := (frame - a.Frame) / width

	switch a.Interpolation {
	case Constant:
		return a.Value
	case Linear:
		return a.Value + t*(b.Value-a.Value)
	default:
		m0 := p.tangent(i) * width
		m1 := p.tangent(i+1) * width
		t2 := t * t
		t3 := t2 * t
		return (2*t3-3*t2+1)*a.Value +
			(t3-2*t2+t)*m0 +
			(-2*t3+3*t2)*b.Value +
			(t3-t2)*m1
	}
}

// tangent is the Catmull-Rom slope at key i, one-sided at the ends.
func (p Points) tangent(i int) float64 {
	lo, hi := i-1, i+1
	if lo < 0 {
		lo = 0
	}
	if hi >= len(p) {
		hi = len(p) - 1
	}
	dx := p[hi].Frame - p[lo].Frame
	if dx == 0 {
		return 0
	}
	return (p[hi].Value - p[lo].Value) / dx
}

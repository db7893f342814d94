package bake

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/motionbake/pkg/curve"
	"github.com/Faultbox/motionbake/pkg/math"
	"github.com/Faultbox/motionbake/pkg/motion"
)

// shapeMatchTolerance is the largest vertex distance at which an imported
// array reuses an existing shape.
const shapeMatchTolerance = 0.01

// ShapeImporter maps vertex keys back to shape names.
type ShapeImporter struct {
	// Basis is the name of the reference shape. Arrays labeled with it, or
	// matching its geometry when reusing, resolve to no active shape.
	Basis string
	// Existing holds known shapes in source space.
	Existing map[string][]mgl64.Vec3
	// Reuse matches arrays against Existing before falling back to labels.
	Reuse bool

	assigned map[*motion.LabeledArray]string
	used     map[string]bool
}

// Timeline builds a shape timeline from the Vertex track of k.
func (s *ShapeImporter) Timeline(k *motion.Keyframes) (ShapeTimeline, error) {
	if k.Vertex.Len() == 0 {
		return nil, fmt.Errorf("shape import: %w", ErrNothingToBake)
	}
	if s.assigned == nil {
		s.assigned = make(map[*motion.LabeledArray]string)
		s.used = make(map[string]bool)
	}

	out := make(ShapeTimeline, k.Vertex.Len())
	for _, kf := range k.Vertex.Samples() {
		if kf.Value == nil {
			return nil, fmt.Errorf("shape import: empty vertex array at frame %d", kf.Frame)
		}
		out[kf.Frame] = s.shapeFor(kf.Value)
	}
	return out, nil
}

func (s *ShapeImporter) shapeFor(arr *motion.LabeledArray) string {
	if name, ok := s.assigned[arr]; ok {
		return name
	}

	name := arr.Label
	if strings.EqualFold(name, s.Basis) {
		name = ""
	} else if s.Reuse {
		if match, ok := s.match(arr); ok {
			name = match
		}
	}

	s.assigned[arr] = name
	if name != "" {
		s.used[name] = true
	}
	return name
}

// match looks for an unused existing shape with the same geometry.
func (s *ShapeImporter) match(arr *motion.LabeledArray) (string, bool) {
	verts := make([]mgl64.Vec3, len(arr.Values))
	for i, v := range arr.Values {
		verts[i] = math.PositionFromTarget(v)
	}
	candidate := &motion.LabeledArray{Values: verts}

	if basis, ok := s.Existing[s.Basis]; ok && candidate.Matches(&motion.LabeledArray{Values: basis}, shapeMatchTolerance) {
		return "", true
	}
	for _, name := range sortedKeys(s.Existing) {
		if name == s.Basis || s.used[name] {
			continue
		}
		if candidate.Matches(&motion.LabeledArray{Values: s.Existing[name]}, shapeMatchTolerance) {
			return name, true
		}
	}
	return "", false
}

// ShapeCurves builds one step curve per shape of t. Each on run is framed by
// off keys so that no two shapes blend: the shape turning on gets an off key
// at the previous keyed frame and the shape turning off gets an off key at
// the switch frame. Every curve starts at frame 0 and ends at the larger of
// lastFrame and the last keyed frame.
func ShapeCurves(t ShapeTimeline, lastFrame int) map[string]curve.Points {
	keys := make(map[string]map[int]float64)
	set := func(name string, frame int, v float64) {
		if name == "" {
			return
		}
		if keys[name] == nil {
			keys[name] = make(map[int]float64)
		}
		keys[name][frame] = v
	}

	frames := t.Frames()
	for i, f := range frames {
		name := t[f]
		set(name, f, 1)

		if i == 0 {
			continue
		}
		prevFrame := frames[i-1]
		if prev := t[prevFrame]; prev != name {
			set(prev, f, 0)
			set(name, prevFrame, 0)
		}
	}

	end := lastFrame
	if n := len(frames); n > 0 && frames[n-1] > end {
		end = frames[n-1]
	}

	out := make(map[string]curve.Points, len(keys))
	for name, k := range keys {
		if _, ok := k[0]; !ok {
			k[0] = 0
		}
		ordered := sortedKeys(k)
		if last := ordered[len(ordered)-1]; last < end {
			k[end] = k[last]
			ordered = append(ordered, end)
		}

		points := make(curve.Points, len(ordered))
		for i, f := range ordered {
			points[i] = curve.ControlPoint{Frame: float64(f), Value: k[f], Interpolation: curve.Constant}
		}
		out[name] = points
	}
	return out
}

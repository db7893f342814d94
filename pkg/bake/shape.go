package bake

import (
	"fmt"
	gomath "math"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/exp/constraints"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/Faultbox/motionbake/pkg/curve"
	"github.com/Faultbox/motionbake/pkg/math"
	"github.com/Faultbox/motionbake/pkg/motion"
)

// ShapeCurve is the on/off curve of one shape key. Keys must sit on integer
// frames with values 0 (off) or 1 (on).
type ShapeCurve struct {
	Shape string
	Curve curve.Curve
}

// ShapeTimeline maps keyed frames to the shape active from that frame on.
// An empty name means no shape is active and the basis shape applies.
type ShapeTimeline map[int]string

// Frames returns the keyed frames in increasing order.
func (t ShapeTimeline) Frames() []int {
	return sortedKeys(t)
}

func sortedKeys[K constraints.Ordered, V any](m map[K]V) []K {
	keys := maps.Keys(m)
	slices.Sort(keys)
	return keys
}

// At returns the shape active at frame: the value of the latest keyed frame
// not after it. It returns "" before the first key.
func (t ShapeTimeline) At(frame int) string {
	best, name := gomath.MinInt, ""
	for f, n := range t {
		if f <= frame && f > best {
			best, name = f, n
		}
	}
	return name
}

// Shapes returns the distinct active shape names in first-use order.
func (t ShapeTimeline) Shapes() []string {
	var out []string
	for _, f := range t.Frames() {
		if n := t[f]; n != "" && !slices.Contains(out, n) {
			out = append(out, n)
		}
	}
	return out
}

// BakeShapeTimeline builds the timeline of an action from its shape curves
// over [start, end]. Frames in the result are relative to start.
//
// A shape whose first key turns it on after frame 0 is taken to be on from
// frame 0. A shape still on at its last key is kept on until the last key of
// any shape curve. Overlapping shapes, misaligned or non-binary keys, keys outside the
// range and shapes driven by more than one curve yield a *UserDataError.
// An action without any active shape yields ErrNothingToBake.
func BakeShapeTimeline(action string, curves []ShapeCurve, start, end int) (ShapeTimeline, error) {
	if end < start {
		return nil, fmt.Errorf("%w: end %d before start %d", ErrInvalidRange, end, start)
	}
	bound := lastShapeKey(curves, start, end) - start

	frames := make(ShapeTimeline)
	marked := make([]bool, bound+1)
	seen := make(map[string]bool, len(curves))

	mark := func(frame int) error {
		if marked[frame] {
			return &UserDataError{
				Action:   action,
				Frame:    frame + start,
				HasFrame: true,
				Reason:   "one or more shapes overlap",
			}
		}
		marked[frame] = true
		return nil
	}
	markRange := func(from, to int) error {
		for f := from; f <= to; f++ {
			if err := mark(f); err != nil {
				return err
			}
		}
		return nil
	}

	for _, sc := range curves {
		if sc.Curve == nil || len(sc.Curve.ControlPoints()) == 0 {
			continue
		}
		if seen[sc.Shape] {
			return nil, &UserDataError{
				Action: action,
				Shape:  sc.Shape,
				Reason: "more than one animation source targets this shape",
			}
		}
		seen[sc.Shape] = true

		var prevFrame int
		var prevState, started bool

		for _, p := range sc.Curve.ControlPoints() {
			if err := verifyShapeKey(action, sc.Shape, p, start, end); err != nil {
				return nil, err
			}

			frame := int(p.Frame) - start
			state := p.Value == 1

			if state {
				frames[frame] = sc.Shape
				if err := mark(frame); err != nil {
					return nil, err
				}
			} else if _, ok := frames[frame]; !ok {
				frames[frame] = ""
			}

			if !started {
				started = true
				prevFrame, prevState = 0, state
				if frame > 0 && state {
					frames[0] = sc.Shape
					if err := mark(0); err != nil {
						return nil, err
					}
				}
			}

			if frame > prevFrame+1 && state && prevState {
				if err := markRange(prevFrame+1, frame-1); err != nil {
					return nil, err
				}
			}
			prevFrame, prevState = frame, state
		}

		if prevState && prevFrame < bound {
			frames[bound] = sc.Shape
			if err := mark(bound); err != nil {
				return nil, err
			}
			if err := markRange(prevFrame+1, bound-1); err != nil {
				return nil, err
			}
		}
	}

	if len(frames) == 0 || len(frames.Shapes()) == 0 {
		return nil, fmt.Errorf("action %s: %w", action, ErrNothingToBake)
	}
	return frames, nil
}

// lastShapeKey returns the latest key frame across curves, clamped to
// [start, end].
func lastShapeKey(curves []ShapeCurve, start, end int) int {
	last := start
	for _, sc := range curves {
		if sc.Curve == nil {
			continue
		}
		for _, p := range sc.Curve.ControlPoints() {
			last = max(last, int(p.Frame))
		}
	}
	return min(last, end)
}

func verifyShapeKey(action, shape string, p curve.ControlPoint, start, end int) error {
	frame := int(gomath.Floor(p.Frame))
	switch {
	case p.Frame != gomath.Trunc(p.Frame):
		return &UserDataError{Action: action, Shape: shape, Frame: frame, HasFrame: true,
			Reason: "one or more keys are not aligned with the frame number"}
	case p.Value != 0 && p.Value != 1:
		return &UserDataError{Action: action, Shape: shape, Frame: frame, HasFrame: true,
			Reason: "one or more keys are not 0.0 or 1.0"}
	case frame < start || frame > end:
		return &UserDataError{Action: action, Shape: shape, Frame: frame, HasFrame: true,
			Reason: fmt.Sprintf("key lies outside the frame range [%d, %d]", start, end)}
	}
	return nil
}

// NormalMode selects which normal arrays accompany shape vertices.
type NormalMode int

const (
	NormalsNone NormalMode = iota
	// NormalsNulled writes a single zero normal per shape.
	NormalsNulled
	NormalsFull
)

var normalModeNames = []string{"none", "nulled", "full"}

// String returns the lowercase mode name.
func (m NormalMode) String() string {
	if int(m) >= 0 && int(m) < len(normalModeNames) {
		return normalModeNames[m]
	}
	return fmt.Sprintf("NormalMode(%d)", int(m))
}

// MarshalText implements encoding.TextMarshaler.
func (m NormalMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *NormalMode) UnmarshalText(text []byte) error {
	s := strings.ToLower(strings.TrimSpace(string(text)))
	for i, name := range normalModeNames {
		if name == s {
			*m = NormalMode(i)
			return nil
		}
	}
	return fmt.Errorf("unknown normal mode %q", text)
}

// ShapeProvider returns the geometry of a shape key in source space.
type ShapeProvider interface {
	ShapeGeometry(shape string) (positions, normals []mgl64.Vec3, err error)
}

// ShapeBaker turns a shape timeline into vertex and normal keys.
type ShapeBaker struct {
	// Basis is the shape used on frames without an active shape.
	Basis    string
	Normals  NormalMode
	Provider ShapeProvider

	// VertexMatrix and NormalMatrix transform geometry before conversion to
	// target space. The zero matrix means identity.
	VertexMatrix mgl64.Mat4
	NormalMatrix mgl64.Mat4
	// VertexMapping, when set, selects and orders the exported vertices.
	VertexMapping []int

	cache map[string][2]*motion.LabeledArray
}

// Keyframes fills Vertex and Normal tracks for every keyed frame of t.
// Arrays are built once per shape and shared between frames.
func (b *ShapeBaker) Keyframes(t ShapeTimeline) (*motion.Keyframes, error) {
	if b.cache == nil {
		b.cache = make(map[string][2]*motion.LabeledArray)
	}

	out := motion.New()
	for _, f := range t.Frames() {
		name := t[f]
		if name == "" {
			name = b.Basis
		}

		arrays, ok := b.cache[name]
		if !ok {
			var err error
			if arrays, err = b.buildArrays(name); err != nil {
				return nil, err
			}
			b.cache[name] = arrays
		}

		out.Vertex.Add(f, arrays[0])
		if arrays[1] != nil {
			out.Normal.Add(f, arrays[1])
		}
	}
	return out, nil
}

func (b *ShapeBaker) buildArrays(name string) ([2]*motion.LabeledArray, error) {
	positions, normals, err := b.Provider.ShapeGeometry(name)
	if err != nil {
		return [2]*motion.LabeledArray{}, fmt.Errorf("shape %s: %w", name, err)
	}

	vm := orIdentity(b.VertexMatrix)
	vertices, err := b.mapped(positions, func(v mgl64.Vec3) mgl64.Vec3 {
		return math.PositionToTarget(math.TransformPoint(vm, v))
	})
	if err != nil {
		return [2]*motion.LabeledArray{}, fmt.Errorf("shape %s vertices: %w", name, err)
	}
	arrays := [2]*motion.LabeledArray{{Label: strings.ToLower(name), Values: vertices}}

	switch b.Normals {
	case NormalsNulled:
		arrays[1] = &motion.LabeledArray{Label: NormalLabel(name), Values: []mgl64.Vec3{{}}}
	case NormalsFull:
		nm := orIdentity(b.NormalMatrix).Mat3()
		values, err := b.mapped(normals, func(n mgl64.Vec3) mgl64.Vec3 {
			return math.PositionToTarget(nm.Mul3x1(n))
		})
		if err != nil {
			return [2]*motion.LabeledArray{}, fmt.Errorf("shape %s normals: %w", name, err)
		}
		arrays[1] = &motion.LabeledArray{Label: NormalLabel(name), Values: values}
	}
	return arrays, nil
}

func (b *ShapeBaker) mapped(src []mgl64.Vec3, fn func(mgl64.Vec3) mgl64.Vec3) ([]mgl64.Vec3, error) {
	if b.VertexMapping == nil {
		out := make([]mgl64.Vec3, len(src))
		for i, v := range src {
			out[i] = fn(v)
		}
		return out, nil
	}

	out := make([]mgl64.Vec3, len(b.VertexMapping))
	for i, idx := range b.VertexMapping {
		if idx < 0 || idx >= len(src) {
			return nil, fmt.Errorf("vertex index %d out of range (%d vertices)", idx, len(src))
		}
		out[i] = fn(src[idx])
	}
	return out, nil
}

// NormalLabel derives the normal array label from a shape name: vtx, vertex
// and vert become nrm, normal and norm; otherwise "_normal" is appended.
func NormalLabel(shape string) string {
	lower := strings.ToLower(shape)
	label := strings.NewReplacer("vtx", "nrm", "vertex", "normal", "vert", "norm").Replace(lower)
	if label == lower {
		label += "_normal"
	}
	return label
}

package clip

import (
	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/Faultbox/motionbake/pkg/bake"
	"github.com/Faultbox/motionbake/pkg/math"
	"github.com/Faultbox/motionbake/pkg/motion"
)

// VecKey is a keyed 3-vector.
type VecKey struct {
	Frame int        `yaml:"frame" toml:"frame"`
	Value mgl64.Vec3 `yaml:"value" toml:"value"`
}

// QuatKey is a keyed quaternion stored as W, X, Y, Z.
type QuatKey struct {
	Frame int        `yaml:"frame" toml:"frame"`
	Value [4]float64 `yaml:"value" toml:"value"`
}

// ScalarKey is a keyed number.
type ScalarKey struct {
	Frame int     `yaml:"frame" toml:"frame"`
	Value float64 `yaml:"value" toml:"value"`
}

// ShapeKey is one entry of a shape timeline. An empty shape is the basis.
type ShapeKey struct {
	Frame int    `yaml:"frame" toml:"frame"`
	Shape string `yaml:"shape" toml:"shape"`
}

// LabelKey references a labeled array at a frame.
type LabelKey struct {
	Frame int    `yaml:"frame" toml:"frame"`
	Label string `yaml:"label" toml:"label"`
}

// Motion is the baked document of one clip. Frames are relative to Start.
type Motion struct {
	Name  string `yaml:"name" toml:"name"`
	RunID string `yaml:"run_id,omitempty" toml:"run_id,omitempty"`
	Start int    `yaml:"start" toml:"start"`
	End   int    `yaml:"end" toml:"end"`

	Nodes  []NodeMotion  `yaml:"nodes,omitempty" toml:"nodes,omitempty"`
	Camera *CameraMotion `yaml:"camera,omitempty" toml:"camera,omitempty"`
	Shapes *ShapeMotion  `yaml:"shapes,omitempty" toml:"shapes,omitempty"`
}

// NodeMotion holds the keys of one node together with the transforms they
// were baked with, so that they can be reconstructed.
type NodeMotion struct {
	Name string `yaml:"name" toml:"name"`
	// Order is the Euler order of EulerRotation.
	Order math.RotationOrder `yaml:"order" toml:"order"`
	// SourceOrder is the Euler order of the source curves.
	SourceOrder math.RotationOrder `yaml:"source_order" toml:"source_order"`
	// SourceQuaternion is set when the source rotation was a quaternion.
	SourceQuaternion bool `yaml:"source_quaternion,omitempty" toml:"source_quaternion,omitempty"`

	Position            []VecKey  `yaml:"position,omitempty" toml:"position,omitempty"`
	EulerRotation       []VecKey  `yaml:"euler_rotation,omitempty" toml:"euler_rotation,omitempty"`
	QuaternionRotation  []QuatKey `yaml:"quaternion_rotation,omitempty" toml:"quaternion_rotation,omitempty"`
	Scale               []VecKey  `yaml:"scale,omitempty" toml:"scale,omitempty"`
	ExactRotationFrames []int     `yaml:"exact_rotation_frames,omitempty" toml:"exact_rotation_frames,omitempty"`

	Base           *mgl64.Mat4 `yaml:"base,omitempty" toml:"base,omitempty"`
	PositionOffset *mgl64.Vec3 `yaml:"position_offset,omitempty" toml:"position_offset,omitempty"`
	RotationOffset *mgl64.Mat4 `yaml:"rotation_offset,omitempty" toml:"rotation_offset,omitempty"`
}

// CameraMotion holds baked camera keys together with the rig settings
// needed to rebuild lens curves.
type CameraMotion struct {
	Name     string      `yaml:"name" toml:"name"`
	Position []VecKey    `yaml:"position" toml:"position"`
	Target   []VecKey    `yaml:"target" toml:"target"`
	Roll     []ScalarKey `yaml:"roll" toml:"roll"`
	Angle    []ScalarKey `yaml:"angle" toml:"angle"`

	SensorWidth float64     `yaml:"sensor_width" toml:"sensor_width"`
	Base        *mgl64.Mat4 `yaml:"base,omitempty" toml:"base,omitempty"`
}

// ShapeMotion holds a baked shape action. Vertex and Normal reference
// arrays by label; Arrays holds every array once.
type ShapeMotion struct {
	Action   string                  `yaml:"action" toml:"action"`
	Basis    string                  `yaml:"basis" toml:"basis"`
	Timeline []ShapeKey              `yaml:"timeline" toml:"timeline"`
	Vertex   []LabelKey              `yaml:"vertex,omitempty" toml:"vertex,omitempty"`
	Normal   []LabelKey              `yaml:"normal,omitempty" toml:"normal,omitempty"`
	Arrays   map[string][]mgl64.Vec3 `yaml:"arrays,omitempty" toml:"arrays,omitempty"`
}

func trackKeys[V, K any](t *motion.Track[V], fn func(frame int, v V) K) []K {
	samples := t.Samples()
	if len(samples) == 0 {
		return nil
	}
	out := make([]K, len(samples))
	for i, s := range samples {
		out[i] = fn(s.Frame, s.Value)
	}
	return out
}

func vecKey(frame int, v mgl64.Vec3) VecKey { return VecKey{Frame: frame, Value: v} }

func scalarKey(frame int, v float64) ScalarKey { return ScalarKey{Frame: frame, Value: v} }

// NewNodeMotion records the keys of k baked from n.
func NewNodeMotion(n *Node, k *motion.Keyframes) NodeMotion {
	out := NodeMotion{
		Name:                n.Name,
		SourceOrder:         n.Order,
		SourceQuaternion:    n.Quaternion,
		Position:            trackKeys(&k.Position, vecKey),
		Scale:               trackKeys(&k.Scale, vecKey),
		ExactRotationFrames: k.ExactRotationFrames,
		Base:                n.Base,
		PositionOffset:      n.PositionOffset,
		RotationOffset:      n.RotationOffset,
	}

	if first, ok := k.EulerRotation.First(); ok {
		out.Order = first.Value.Order
	}
	out.EulerRotation = trackKeys(&k.EulerRotation, func(frame int, e math.Euler) VecKey {
		return VecKey{Frame: frame, Value: e.Vec3()}
	})
	out.QuaternionRotation = trackKeys(&k.QuaternionRotation, func(frame int, q mgl64.Quat) QuatKey {
		return QuatKey{Frame: frame, Value: [4]float64{q.W, q.V[0], q.V[1], q.V[2]}}
	})
	return out
}

// Keyframes rebuilds the keyframe tracks.
func (n *NodeMotion) Keyframes() *motion.Keyframes {
	k := motion.New()
	for _, key := range n.Position {
		k.Position.Add(key.Frame, key.Value)
	}
	for _, key := range n.EulerRotation {
		k.EulerRotation.Add(key.Frame, math.NewEuler(key.Value, n.Order))
	}
	for _, key := range n.QuaternionRotation {
		k.QuaternionRotation.Add(key.Frame, math.QuatFromWXYZ(key.Value[0], key.Value[1], key.Value[2], key.Value[3]))
	}
	for _, key := range n.Scale {
		k.Scale.Add(key.Frame, key.Value)
	}
	k.ExactRotationFrames = n.ExactRotationFrames
	return k
}

// Transforms returns the base matrix, position offset and rotation offset
// the node was baked with.
func (n *NodeMotion) Transforms() (base mgl64.Mat4, offset mgl64.Vec3, rotation mgl64.Mat4) {
	base = matOrIdentity(n.Base)
	rotation = matOrIdentity(n.RotationOffset)
	if n.PositionOffset != nil {
		offset = *n.PositionOffset
	}
	return base, offset, rotation
}

// NewCameraMotion records the keys of k baked from c.
func NewCameraMotion(c *Camera, k *motion.Keyframes) *CameraMotion {
	return &CameraMotion{
		Name:        c.Name,
		Position:    trackKeys(&k.Position, vecKey),
		Target:      trackKeys(&k.Target, vecKey),
		Roll:        trackKeys(&k.Roll, scalarKey),
		Angle:       trackKeys(&k.Angle, scalarKey),
		SensorWidth: c.SensorWidth,
		Base:        c.Base,
	}
}

// Keyframes rebuilds the camera tracks.
func (c *CameraMotion) Keyframes() *motion.Keyframes {
	k := motion.New()
	for _, key := range c.Position {
		k.Position.Add(key.Frame, key.Value)
	}
	for _, key := range c.Target {
		k.Target.Add(key.Frame, key.Value)
	}
	for _, key := range c.Roll {
		k.Roll.Add(key.Frame, key.Value)
	}
	for _, key := range c.Angle {
		k.Angle.Add(key.Frame, key.Value)
	}
	return k
}

// NewShapeMotion records a shape timeline and its vertex keys.
func NewShapeMotion(action, basis string, t bake.ShapeTimeline, k *motion.Keyframes) *ShapeMotion {
	out := &ShapeMotion{
		Action: action,
		Basis:  basis,
		Arrays: make(map[string][]mgl64.Vec3),
	}
	for _, f := range t.Frames() {
		out.Timeline = append(out.Timeline, ShapeKey{Frame: f, Shape: t[f]})
	}

	labelKey := func(frame int, a *motion.LabeledArray) LabelKey {
		out.Arrays[a.Label] = a.Values
		return LabelKey{Frame: frame, Label: a.Label}
	}
	out.Vertex = trackKeys(&k.Vertex, labelKey)
	out.Normal = trackKeys(&k.Normal, labelKey)
	return out
}

// ShapeTimeline returns the recorded timeline.
func (s *ShapeMotion) ShapeTimeline() bake.ShapeTimeline {
	t := make(bake.ShapeTimeline, len(s.Timeline))
	for _, key := range s.Timeline {
		t[key.Frame] = key.Shape
	}
	return t
}

// Keyframes rebuilds the vertex and normal tracks. Keys with the same label
// share one array.
func (s *ShapeMotion) Keyframes() *motion.Keyframes {
	arrays := make(map[string]*motion.LabeledArray, len(s.Arrays))
	for _, label := range sortedLabels(s.Arrays) {
		arrays[label] = &motion.LabeledArray{Label: label, Values: s.Arrays[label]}
	}
	lookup := func(label string) *motion.LabeledArray {
		if a, ok := arrays[label]; ok {
			return a
		}
		a := &motion.LabeledArray{Label: label}
		arrays[label] = a
		return a
	}

	k := motion.New()
	for _, key := range s.Vertex {
		k.Vertex.Add(key.Frame, lookup(key.Label))
	}
	for _, key := range s.Normal {
		k.Normal.Add(key.Frame, lookup(key.Label))
	}
	return k
}

func sortedLabels(m map[string][]mgl64.Vec3) []string {
	labels := maps.Keys(m)
	slices.Sort(labels)
	return labels
}

// Package clip reads and writes the documents the motionbake CLI works on.
//
// A clip document holds the source curves of one animation clip: node
// transforms, an optional camera rig and an optional shape key action. A
// motion document holds the baked keyframes of a clip. Both are YAML or
// TOML, selected by file extension.
package clip

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/Faultbox/motionbake/pkg/bake"
	"github.com/Faultbox/motionbake/pkg/curve"
	"github.com/Faultbox/motionbake/pkg/math"
)

// Document errors
var (
	ErrNoName        = errors.New("missing name")
	ErrDuplicateNode = errors.New("duplicate node name")
	ErrUnknownShape  = errors.New("unknown shape")
)

// Keys is the control point list of one curve.
type Keys []curve.ControlPoint

// curve returns nil for an empty list so the channel counts as absent.
func (k Keys) curve() curve.Curve {
	if len(k) == 0 {
		return nil
	}
	return curve.Points(k)
}

// Curves3 holds one curve per axis.
type Curves3 struct {
	X Keys `yaml:"x,omitempty" toml:"x,omitempty"`
	Y Keys `yaml:"y,omitempty" toml:"y,omitempty"`
	Z Keys `yaml:"z,omitempty" toml:"z,omitempty"`
}

func (c Curves3) curves() [3]curve.Curve {
	return [3]curve.Curve{c.X.curve(), c.Y.curve(), c.Z.curve()}
}

func (c Curves3) present() bool {
	return len(c.X) > 0 || len(c.Y) > 0 || len(c.Z) > 0
}

// RotationCurves holds Euler X, Y, Z curves, plus W for quaternions.
type RotationCurves struct {
	W Keys `yaml:"w,omitempty" toml:"w,omitempty"`
	X Keys `yaml:"x,omitempty" toml:"x,omitempty"`
	Y Keys `yaml:"y,omitempty" toml:"y,omitempty"`
	Z Keys `yaml:"z,omitempty" toml:"z,omitempty"`
}

func (c RotationCurves) present() bool {
	return len(c.W) > 0 || len(c.X) > 0 || len(c.Y) > 0 || len(c.Z) > 0
}

// Clip is the source document of one animation clip.
type Clip struct {
	Name  string `yaml:"name" toml:"name"`
	Start int    `yaml:"start" toml:"start"`
	End   int    `yaml:"end" toml:"end"`

	Nodes  []Node  `yaml:"nodes,omitempty" toml:"nodes,omitempty"`
	Camera *Camera `yaml:"camera,omitempty" toml:"camera,omitempty"`
	Shapes *Shapes `yaml:"shapes,omitempty" toml:"shapes,omitempty"`
}

// Node holds the transform curves of one node.
type Node struct {
	Name string `yaml:"name" toml:"name"`
	// Quaternion selects W, X, Y, Z rotation curves instead of Euler.
	Quaternion bool               `yaml:"quaternion,omitempty" toml:"quaternion,omitempty"`
	Order      math.RotationOrder `yaml:"order" toml:"order"`

	Location Curves3        `yaml:"location,omitempty" toml:"location,omitempty"`
	Rotation RotationCurves `yaml:"rotation,omitempty" toml:"rotation,omitempty"`
	Scale    Curves3        `yaml:"scale,omitempty" toml:"scale,omitempty"`

	// Base is the node's parent matrix. Nil means identity.
	Base           *mgl64.Mat4 `yaml:"base,omitempty" toml:"base,omitempty"`
	PositionOffset *mgl64.Vec3 `yaml:"position_offset,omitempty" toml:"position_offset,omitempty"`
	RotationOffset *mgl64.Mat4 `yaml:"rotation_offset,omitempty" toml:"rotation_offset,omitempty"`
}

// Bake converts the document node to its bake form and parent matrix.
func (n *Node) Bake() (bake.Node, mgl64.Mat4) {
	out := bake.Node{
		Name:       n.Name,
		Location:   n.Location.curves(),
		Scale:      n.Scale.curves(),
		Quaternion: n.Quaternion,
		Order:      n.Order,
	}
	if n.Quaternion {
		out.Rotation = [4]curve.Curve{n.Rotation.W.curve(), n.Rotation.X.curve(), n.Rotation.Y.curve(), n.Rotation.Z.curve()}
	} else {
		out.Rotation = [4]curve.Curve{n.Rotation.X.curve(), n.Rotation.Y.curve(), n.Rotation.Z.curve()}
	}
	if n.PositionOffset != nil {
		out.PositionOffset = *n.PositionOffset
	}
	if n.RotationOffset != nil {
		out.RotationOffset = *n.RotationOffset
	}
	return out, matOrIdentity(n.Base)
}

// Channels returns the number of keyed channel groups.
func (n *Node) Channels() int {
	count := 0
	for _, present := range []bool{n.Location.present(), n.Rotation.present(), n.Scale.present()} {
		if present {
			count++
		}
	}
	return count
}

// Camera holds the curves of a camera rig.
type Camera struct {
	Name     string  `yaml:"name" toml:"name"`
	Position Curves3 `yaml:"position,omitempty" toml:"position,omitempty"`
	Target   Curves3 `yaml:"target,omitempty" toml:"target,omitempty"`
	Roll     Keys    `yaml:"roll,omitempty" toml:"roll,omitempty"`
	Lens     Keys    `yaml:"lens,omitempty" toml:"lens,omitempty"`

	Base            *mgl64.Mat4 `yaml:"base,omitempty" toml:"base,omitempty"`
	DefaultPosition mgl64.Vec3  `yaml:"default_position" toml:"default_position"`
	DefaultTarget   mgl64.Vec3  `yaml:"default_target" toml:"default_target"`
	DefaultRoll     float64     `yaml:"default_roll" toml:"default_roll"`
	DefaultAngle    float64     `yaml:"default_angle" toml:"default_angle"`
	SensorWidth     float64     `yaml:"sensor_width" toml:"sensor_width"`
}

// Bake converts the document camera to its bake form.
func (c *Camera) Bake() bake.Camera {
	return bake.Camera{
		Name:            c.Name,
		Position:        c.Position.curves(),
		Target:          c.Target.curves(),
		Roll:            c.Roll.curve(),
		Lens:            c.Lens.curve(),
		Base:            matOrIdentity(c.Base),
		DefaultPosition: c.DefaultPosition,
		DefaultTarget:   c.DefaultTarget,
		DefaultRoll:     c.DefaultRoll,
		DefaultAngle:    c.DefaultAngle,
		SensorWidth:     c.SensorWidth,
	}
}

// Channels returns the number of keyed camera channels.
func (c *Camera) Channels() int {
	count := 0
	for _, present := range []bool{c.Position.present(), c.Target.present(), len(c.Roll) > 0, len(c.Lens) > 0} {
		if present {
			count++
		}
	}
	return count
}

// Geometry is the vertex data of one shape key in source space.
type Geometry struct {
	Positions []mgl64.Vec3 `yaml:"positions" toml:"positions"`
	Normals   []mgl64.Vec3 `yaml:"normals,omitempty" toml:"normals,omitempty"`
}

// Shapes holds a shape key action: one on/off curve per shape plus the
// geometry of every shape.
type Shapes struct {
	Action   string              `yaml:"action" toml:"action"`
	Basis    string              `yaml:"basis,omitempty" toml:"basis,omitempty"`
	Curves   map[string]Keys     `yaml:"curves" toml:"curves"`
	Geometry map[string]Geometry `yaml:"geometry,omitempty" toml:"geometry,omitempty"`
}

// ShapeCurves returns the keyed curves ordered by shape name.
func (s *Shapes) ShapeCurves() []bake.ShapeCurve {
	names := maps.Keys(s.Curves)
	slices.Sort(names)

	out := make([]bake.ShapeCurve, 0, len(names))
	for _, name := range names {
		out = append(out, bake.ShapeCurve{Shape: name, Curve: s.Curves[name].curve()})
	}
	return out
}

// ShapeGeometry implements bake.ShapeProvider.
func (s *Shapes) ShapeGeometry(shape string) ([]mgl64.Vec3, []mgl64.Vec3, error) {
	g, ok := s.Geometry[shape]
	if !ok {
		return nil, nil, fmt.Errorf("%w %q", ErrUnknownShape, shape)
	}
	return g.Positions, g.Normals, nil
}

// Existing returns the positions of every shape, for import reuse.
func (s *Shapes) Existing() map[string][]mgl64.Vec3 {
	out := make(map[string][]mgl64.Vec3, len(s.Geometry))
	for name, g := range s.Geometry {
		out[name] = g.Positions
	}
	return out
}

// Validate checks the clip header and node names.
func (c *Clip) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("clip: %w", ErrNoName)
	}
	if c.End < c.Start {
		return fmt.Errorf("clip %s: %w: end %d before start %d", c.Name, bake.ErrInvalidRange, c.End, c.Start)
	}

	seen := make(map[string]bool, len(c.Nodes))
	for i, n := range c.Nodes {
		if n.Name == "" {
			return fmt.Errorf("clip %s: node %d: %w", c.Name, i, ErrNoName)
		}
		if seen[n.Name] {
			return fmt.Errorf("clip %s: %w %q", c.Name, ErrDuplicateNode, n.Name)
		}
		seen[n.Name] = true
	}
	return nil
}

// Channels returns the number of keyed channel groups in the clip.
func (c *Clip) Channels() int {
	count := 0
	for i := range c.Nodes {
		count += c.Nodes[i].Channels()
	}
	if c.Camera != nil {
		count += c.Camera.Channels()
	}
	if c.Shapes != nil {
		for _, k := range c.Shapes.Curves {
			if len(k) > 0 {
				count++
			}
		}
	}
	return count
}

// Cost estimates the number of curve evaluations of a lossless bake: every
// frame of the range for every channel group.
func (c *Clip) Cost() int {
	return (c.End - c.Start + 1) * c.Channels()
}

func matOrIdentity(m *mgl64.Mat4) mgl64.Mat4 {
	if m == nil {
		return mgl64.Ident4()
	}
	return *m
}

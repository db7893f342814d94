package bake

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"
	"golang.org/x/exp/slices"

	"github.com/Faultbox/motionbake/pkg/curve"
	"github.com/Faultbox/motionbake/pkg/math"
	"github.com/Faultbox/motionbake/pkg/motion"
)

// Node describes the transform curves of one animated node. Nil curves are
// absent.
type Node struct {
	Name string

	Location [3]curve.Curve
	// Rotation holds X, Y, Z Euler curves, or W, X, Y, Z quaternion curves
	// when Quaternion is set.
	Rotation   [4]curve.Curve
	Scale      [3]curve.Curve
	Quaternion bool
	// Order is the Euler order of the rotation curves.
	Order math.RotationOrder

	// PositionOffset is added to positions after RotationOffset is undone.
	PositionOffset mgl64.Vec3
	// RotationOffset re-expresses the node in another parent space. The zero
	// matrix means identity.
	RotationOffset mgl64.Mat4
}

func (n *Node) rotationOffset() mgl64.Mat4 {
	return orIdentity(n.RotationOffset)
}

func orIdentity(m mgl64.Mat4) mgl64.Mat4 {
	if m == (mgl64.Mat4{}) {
		return mgl64.Ident4()
	}
	return m
}

// Evaluator bakes curves over the frame range [Start, End]. Baked keys are
// stored relative to Start.
type Evaluator struct {
	Start, End int
	Params     Parameters

	// Scene is advanced to every evaluated frame. It may be nil.
	Scene   Scene
	Reducer RotationReducer
	Log     *zap.Logger
}

// NewEvaluator validates params and the frame range.
func NewEvaluator(start, end int, params Parameters, scene Scene) (*Evaluator, error) {
	e := &Evaluator{Start: start, End: end, Params: params, Scene: scene}
	if err := e.check(); err != nil {
		return nil, err
	}
	return e, nil
}

// check validates the parameters and frame range, and fills an unset
// Reducer or Log with the defaults. Every bake starts with it.
func (e *Evaluator) check() error {
	if err := e.Params.Validate(); err != nil {
		return err
	}
	if e.End < e.Start {
		return fmt.Errorf("%w: end %d before start %d", ErrInvalidRange, e.End, e.Start)
	}
	if e.Reducer == nil {
		e.Reducer = motion.RotationUtils{}
	}
	if e.Log == nil {
		e.Log = zap.NewNop()
	}
	return nil
}

// Duration returns the last relative frame.
func (e *Evaluator) Duration() int {
	return e.End - e.Start
}

func (e *Evaluator) sampler() curve.Sampler {
	return curve.Sampler{Threshold: e.Params.InterpolationThreshold}
}

// BakeTransform bakes the location, rotation and scale curves of node.
// base maps node space to the exported parent space. It returns
// ErrNothingToBake when no curve has keys.
func (e *Evaluator) BakeTransform(node Node, base mgl64.Mat4) (*motion.Keyframes, error) {
	if err := e.check(); err != nil {
		return nil, fmt.Errorf("node %s: %w", node.Name, err)
	}
	pos := newChannel(node.Location[:])
	scale := newChannel(node.Scale[:], 1, 1, 1)

	var rot *channel
	if node.Quaternion {
		rot = newChannel(node.Rotation[:], 1, 0, 0, 0)
	} else {
		rot = newChannel(node.Rotation[:3])
	}

	var active []*channel
	for _, c := range []*channel{pos, rot, scale} {
		if c.present() {
			active = append(active, c)
		}
	}
	if len(active) == 0 {
		return nil, fmt.Errorf("node %s: %w", node.Name, ErrNothingToBake)
	}

	if err := bakeChannels(e.Scene, e.sampler(), e.Start, e.End, active...); err != nil {
		return nil, fmt.Errorf("node %s: %w", node.Name, err)
	}

	out := motion.New()
	rotOffset := node.rotationOffset()

	if pos.present() {
		e.storeLocation(pos, &out.Position, base, rotOffset.Inv(), node.PositionOffset)
	}
	if rot.present() {
		e.storeRotation(rot, out, node, base, rotOffset)
	}
	if scale.present() {
		e.storeScale(scale, out, base)
	}

	if e.Params.optimize() {
		out.Optimize(e.Params.GeneralOptimizationThreshold, e.Params.QuaternionOptimizationThreshold)
	}
	if e.Params.EnsurePositiveEulerAngles {
		out.EnsurePositiveEulerAngles()
	}

	e.Log.Debug("baked node",
		zap.String("node", node.Name),
		zap.Strings("channels", out.Channels()),
		zap.Int("keys", out.KeyCount()))
	return out, nil
}

// storeLocation converts sampled positions to target space:
// base · (p · R⁻¹ + offset), then (x, z, -y).
func (e *Evaluator) storeLocation(c *channel, out *motion.Track[mgl64.Vec3], base, rotInv mgl64.Mat4, offset mgl64.Vec3) {
	for _, s := range c.samples() {
		p := mgl64.Vec3{s.Value[0], s.Value[1], s.Value[2]}
		p = math.RowTransform(p, rotInv).Add(offset)
		p = math.TransformPoint(base, p)
		out.Add(s.Frame, math.PositionToTarget(p))
	}
}

// storeRotation builds target space rotation matrices and hands them to the
// reducer. Euler sources also record the complementary rotations of
// intervals that turn more than half a revolution.
func (e *Evaluator) storeRotation(c *channel, out *motion.Keyframes, node Node, base, rotOffset mgl64.Mat4) {
	baseRot := math.NormalizedRotation(base)
	toTarget := func(m mgl64.Mat4) mgl64.Mat4 {
		return math.ToTargetSpace(baseRot.Mul4(rotOffset).Mul4(m))
	}
	toMatrix := func(eu math.Euler) mgl64.Mat4 { return toTarget(eu.Mat4()) }

	source := func(v []float64) mgl64.Mat4 {
		if node.Quaternion {
			q := math.QuatFromWXYZ(v[0], v[1], v[2], v[3])
			if q.Len() == 0 {
				q = mgl64.QuatIdent()
			}
			return toTarget(q.Normalize().Mat4())
		}
		return toMatrix(math.Euler{X: v[0], Y: v[1], Z: v[2], Order: node.Order})
	}

	samples := c.samples()
	path := func(frame int) mgl64.Mat4 { return source(valueAt(samples, frame)) }

	var matrices motion.Track[mgl64.Mat4]
	compl := make(motion.ComplementaryMap)

	var prev *math.Euler
	prevFrame := 0
	for _, s := range samples {
		matrices.Add(s.Frame, source(s.Value))
		if node.Quaternion {
			continue
		}

		eu := math.Euler{X: s.Value[0], Y: s.Value[1], Z: s.Value[2], Order: node.Order}
		if prev != nil {
			compl.AddTurns(prevFrame, *prev, eu, toMatrix)
		}
		prev = &eu
		prevFrame = s.Frame
	}
	if len(compl) == 0 {
		compl = nil
	}

	mode := e.Params.RotationMode
	if mode == RotationQuaternion || (mode == RotationKeep && node.Quaternion) {
		e.Reducer.MatrixToQuaternion(out, &matrices, node.Quaternion, e.Params.QuaternionThreshold, path)
	} else {
		e.Reducer.MatrixToEuler(out, &matrices, node.Quaternion, e.Params.QuaternionThreshold, e.Params.RotateZYX, compl, path)
	}

	// Only source key frames anchor rotation optimization.
	out.ExactRotationFrames = onlyFrames(out.ExactRotationFrames, c.keyFrames(e.Start))

	if compl != nil {
		e.Log.Debug("multi-turn rotation",
			zap.String("node", node.Name),
			zap.Ints("frames", compl.Frames()))
	}
}

// onlyFrames keeps the frames of exact that are also in keys.
func onlyFrames(exact, keys []int) []int {
	if len(exact) == 0 {
		return nil
	}
	var out []int
	for _, f := range exact {
		if _, ok := slices.BinarySearch(keys, f); ok {
			out = append(out, f)
		}
	}
	return out
}

// storeScale multiplies by the scale of base and swaps Y and Z.
func (e *Evaluator) storeScale(c *channel, out *motion.Keyframes, base mgl64.Mat4) {
	baseScale := math.ExtractScale(base)
	for _, s := range c.samples() {
		v := mgl64.Vec3{s.Value[0], s.Value[1], s.Value[2]}
		out.Scale.Add(s.Frame, math.SwapScaleAxes(math.MulComponents(v, baseScale)))
	}
}

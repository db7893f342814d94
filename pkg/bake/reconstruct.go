package bake

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"github.com/Faultbox/motionbake/pkg/curve"
	"github.com/Faultbox/motionbake/pkg/decimate"
	"github.com/Faultbox/motionbake/pkg/math"
	"github.com/Faultbox/motionbake/pkg/motion"
)

// DefaultConversionDeviation is the default error allowed when thinning
// rotation keys that were converted between Euler and quaternion form.
const DefaultConversionDeviation = 0.05

// CurveSet is the result of importing a keyframe set: linear curves per
// channel. Absent channels are nil.
type CurveSet struct {
	Location [3]curve.Points
	Scale    [3]curve.Points

	// Exactly one of the rotation groups is set when rotation keys exist.
	EulerRotation      [3]curve.Points
	QuaternionRotation [4]curve.Points
	// RotationMode is RotationEuler or RotationQuaternion.
	RotationMode RotationMode
	Order        math.RotationOrder
}

// HasRotation reports whether any rotation curve was produced.
func (c *CurveSet) HasRotation() bool {
	return c.EulerRotation[0] != nil || c.QuaternionRotation[0] != nil
}

// Reconstructor turns keyframes back into continuous curves. It inverts the
// transforms applied by Evaluator.BakeTransform.
type Reconstructor struct {
	// Mode selects the output rotation representation. RotationKeep picks
	// Euler when the keys hold Euler rotations.
	Mode RotationMode
	// Order is the Euler order of Euler output.
	Order math.RotationOrder
	// ConversionDeviation thins converted rotation keys between frames that
	// were not converted. Zero disables thinning.
	ConversionDeviation float64

	Reducer RotationReducer
	Log     *zap.Logger
}

// NewReconstructor returns a reconstructor with the stock reducer.
func NewReconstructor(mode RotationMode, order math.RotationOrder) *Reconstructor {
	return &Reconstructor{
		Mode:                mode,
		Order:               order,
		ConversionDeviation: DefaultConversionDeviation,
		Reducer:             motion.RotationUtils{},
		Log:                 zap.NewNop(),
	}
}

// Transform rebuilds curves from k. base, offset and rotation are the values
// passed when the keys were baked; a zero rotation matrix means identity.
// It returns ErrNothingToBake when k has no transform keys.
func (r *Reconstructor) Transform(k *motion.Keyframes, base mgl64.Mat4, offset mgl64.Vec3, rotation mgl64.Mat4) (*CurveSet, error) {
	if r.ConversionDeviation < 0 {
		return nil, &ConfigurationError{Option: "quaternion_conversion_deviation", Value: r.ConversionDeviation}
	}
	if k.Empty() {
		return nil, fmt.Errorf("reconstruct: %w", ErrNothingToBake)
	}

	base = orIdentity(base)
	rotation = orIdentity(rotation)
	out := &CurveSet{Order: r.Order}

	if k.Position.Len() > 0 {
		baseInv := base.Inv()
		var track motion.Track[mgl64.Vec3]
		for _, s := range k.Position.Samples() {
			p := math.TransformPoint(baseInv, math.PositionFromTarget(s.Value))
			track.Add(s.Frame, math.RowTransform(p.Sub(offset), rotation))
		}
		out.Location = vecCurves(&track)
	}

	if k.EulerRotation.Len() > 0 || k.QuaternionRotation.Len() > 0 {
		r.rotation(k, out, base, rotation)
	}

	if k.Scale.Len() > 0 {
		baseScale := math.ExtractScale(base)
		var track motion.Track[mgl64.Vec3]
		for _, s := range k.Scale.Samples() {
			track.Add(s.Frame, math.DivComponents(math.SwapScaleAxes(s.Value), baseScale))
		}
		out.Scale = vecCurves(&track)
	}

	r.Log.Debug("reconstructed transform",
		zap.Stringer("rotation_mode", out.RotationMode),
		zap.Bool("rotation", out.HasRotation()))
	return out, nil
}

// outputMode resolves RotationKeep against the keys.
func (r *Reconstructor) outputMode(k *motion.Keyframes) RotationMode {
	switch r.Mode {
	case RotationQuaternion:
		return RotationQuaternion
	case RotationKeep:
		if k.EulerRotation.Len() == 0 {
			return RotationQuaternion
		}
	}
	return RotationEuler
}

func (r *Reconstructor) rotation(k *motion.Keyframes, out *CurveSet, base, rotation mgl64.Mat4) {
	mode := r.outputMode(k)
	out.RotationMode = mode
	wantQuat := mode == RotationQuaternion

	targetMatrices, converted, compl := r.Reducer.RotationMatrices(k, wantQuat)

	// Undo ToTargetSpace(baseRot · rotation · m).
	undo := math.NormalizedRotation(base).Mul4(rotation).Inv()
	toSource := func(m mgl64.Mat4) mgl64.Mat4 {
		return undo.Mul4(math.FromTargetSpace(m))
	}
	compl = compl.Transform(toSource)

	// Keys between exact frames were inserted by an earlier conversion and
	// are thinned again after converting back.
	exact := k.ExactRotationFrames
	if converted && len(exact) == 0 {
		exact = targetMatrices.Frames()
	}

	if wantQuat {
		var track motion.Track[mgl64.Quat]
		prev := mgl64.QuatIdent()
		for _, s := range targetMatrices.Samples() {
			q := math.QuatCompatible(math.QuatFromMat4(toSource(s.Value)), prev)
			track.Add(s.Frame, q)
			prev = q
		}
		if converted {
			track.Decimate(r.ConversionDeviation, math.LerpQuat, math.QuatDeviation, exact)
		}
		out.QuaternionRotation = quatCurves(&track)
		return
	}

	var track motion.Track[math.Euler]
	seed := math.Euler{Order: r.Order}
	for _, s := range targetMatrices.Samples() {
		e := math.Mat4ToEulerCompat(toSource(s.Value), r.Order, seed)
		track.Add(s.Frame, e)
		seed = e

		for _, m := range compl[s.Frame] {
			seed = math.Mat4ToEulerCompat(m, r.Order, seed)
		}
	}
	if converted {
		track.Decimate(r.ConversionDeviation, math.LerpEuler, math.EulerDeviation, exact)
	}
	out.EulerRotation = eulerCurves(&track)
}

func linearPoints[V any](samples []decimate.Sample[V], component func(V) float64) curve.Points {
	out := make(curve.Points, len(samples))
	for i, s := range samples {
		out[i] = curve.ControlPoint{
			Frame:         float64(s.Frame),
			Value:         component(s.Value),
			Interpolation: curve.Linear,
		}
	}
	return out
}

func vecCurves(t *motion.Track[mgl64.Vec3]) [3]curve.Points {
	samples := t.Samples()
	var out [3]curve.Points
	for i := range out {
		axis := i
		out[i] = linearPoints(samples, func(v mgl64.Vec3) float64 { return v[axis] })
	}
	return out
}

func eulerCurves(t *motion.Track[math.Euler]) [3]curve.Points {
	samples := t.Samples()
	return [3]curve.Points{
		linearPoints(samples, func(e math.Euler) float64 { return e.X }),
		linearPoints(samples, func(e math.Euler) float64 { return e.Y }),
		linearPoints(samples, func(e math.Euler) float64 { return e.Z }),
	}
}

func quatCurves(t *motion.Track[mgl64.Quat]) [4]curve.Points {
	samples := t.Samples()
	return [4]curve.Points{
		linearPoints(samples, func(q mgl64.Quat) float64 { return q.W }),
		linearPoints(samples, func(q mgl64.Quat) float64 { return q.V[0] }),
		linearPoints(samples, func(q mgl64.Quat) float64 { return q.V[1] }),
		linearPoints(samples, func(q mgl64.Quat) float64 { return q.V[2] }),
	}
}

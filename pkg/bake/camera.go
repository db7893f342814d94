package bake

import (
	"fmt"
	gomath "math"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"github.com/Faultbox/motionbake/pkg/curve"
	"github.com/Faultbox/motionbake/pkg/math"
	"github.com/Faultbox/motionbake/pkg/motion"
)

// Camera describes an animated camera rig: the camera, the object it looks
// at, a roll curve and a lens curve. Nil curves are absent; absent channels
// hold their default value.
type Camera struct {
	Name string

	Position [3]curve.Curve
	Target   [3]curve.Curve
	Roll     curve.Curve
	// Lens is the focal length in millimetres.
	Lens curve.Curve

	// Base is the world matrix of the rig container.
	Base mgl64.Mat4

	DefaultPosition mgl64.Vec3
	DefaultTarget   mgl64.Vec3
	DefaultRoll     float64
	// DefaultAngle is the field of view in radians.
	DefaultAngle float64
	// SensorWidth is the sensor width in millimetres.
	SensorWidth float64
}

// FieldOfView converts a focal length to a field of view in radians.
func FieldOfView(sensorWidth, lens float64) float64 {
	return 2 * gomath.Atan(sensorWidth/(2*lens))
}

// BakeCamera bakes the position, target, roll and field of view of cam.
// It returns ErrNothingToBake when no curve has keys.
func (e *Evaluator) BakeCamera(cam Camera) (*motion.Keyframes, error) {
	if err := e.check(); err != nil {
		return nil, fmt.Errorf("camera %s: %w", cam.Name, err)
	}
	pos := newChannel(cam.Position[:])
	target := newChannel(cam.Target[:])
	roll := newChannel([]curve.Curve{cam.Roll})
	lens := newChannel([]curve.Curve{cam.Lens})

	var active []*channel
	for _, c := range []*channel{pos, target, roll, lens} {
		if c.present() {
			active = append(active, c)
		}
	}
	if len(active) == 0 {
		return nil, fmt.Errorf("camera %s: %w", cam.Name, ErrNothingToBake)
	}

	if err := bakeChannels(e.Scene, e.sampler(), e.Start, e.End, active...); err != nil {
		return nil, fmt.Errorf("camera %s: %w", cam.Name, err)
	}

	out := motion.New()
	base := orIdentity(cam.Base)
	ident := mgl64.Ident4()
	duration := e.Duration()

	if pos.present() {
		e.storeLocation(pos, &out.Position, base, ident, mgl64.Vec3{})
	} else {
		holdVec3(&out.Position, math.PositionToTarget(cam.DefaultPosition), duration)
	}

	if target.present() {
		e.storeLocation(target, &out.Target, base, ident, mgl64.Vec3{})
	} else {
		holdVec3(&out.Target, math.PositionToTarget(cam.DefaultTarget), duration)
	}

	if roll.present() {
		for _, s := range roll.samples() {
			out.Roll.Add(s.Frame, -s.Value[0])
		}
	} else {
		out.Roll.Add(0, cam.DefaultRoll)
		out.Roll.Add(duration, cam.DefaultRoll)
	}

	if lens.present() {
		for _, s := range lens.samples() {
			if s.Value[0] <= 0 {
				return nil, &UserDataError{
					Action:   cam.Name,
					Frame:    s.Frame + e.Start,
					HasFrame: true,
					Reason:   "camera lens must be positive",
				}
			}
			out.Angle.Add(s.Frame, FieldOfView(cam.SensorWidth, s.Value[0]))
		}
	} else {
		out.Angle.Add(0, cam.DefaultAngle)
		out.Angle.Add(duration, cam.DefaultAngle)
	}

	if e.Params.optimize() {
		out.Optimize(e.Params.GeneralOptimizationThreshold, e.Params.QuaternionOptimizationThreshold)
	}

	e.Log.Debug("baked camera",
		zap.String("camera", cam.Name),
		zap.Int("keys", out.KeyCount()))
	return out, nil
}

func holdVec3(t *motion.Track[mgl64.Vec3], v mgl64.Vec3, duration int) {
	t.Add(0, v)
	t.Add(duration, v)
}

// FocalLength converts a field of view in radians back to a focal length.
func FocalLength(sensorWidth, angle float64) float64 {
	return 0.5 * sensorWidth / gomath.Tan(angle/2)
}

// CameraCurves holds the linear curves rebuilt from camera keys. Absent
// channels are nil.
type CameraCurves struct {
	Position [3]curve.Points
	Target   [3]curve.Points
	Roll     curve.Points
	Lens     curve.Points
}

// Camera rebuilds camera curves from k, inverting Evaluator.BakeCamera.
// base is the rig matrix the keys were baked with and sensorWidth converts
// angles back to focal lengths. It returns ErrNothingToBake when k has no
// camera keys.
func (r *Reconstructor) Camera(k *motion.Keyframes, base mgl64.Mat4, sensorWidth float64) (*CameraCurves, error) {
	if k.Empty() {
		return nil, fmt.Errorf("reconstruct camera: %w", ErrNothingToBake)
	}

	baseInv := orIdentity(base).Inv()
	location := func(t *motion.Track[mgl64.Vec3]) [3]curve.Points {
		if t.Len() == 0 {
			return [3]curve.Points{}
		}
		var track motion.Track[mgl64.Vec3]
		for _, s := range t.Samples() {
			track.Add(s.Frame, math.TransformPoint(baseInv, math.PositionFromTarget(s.Value)))
		}
		return vecCurves(&track)
	}

	out := &CameraCurves{
		Position: location(&k.Position),
		Target:   location(&k.Target),
	}

	if k.Roll.Len() > 0 {
		out.Roll = linearPoints(k.Roll.Samples(), func(v float64) float64 { return -v })
	}

	if k.Angle.Len() > 0 {
		samples := k.Angle.Samples()
		for _, s := range samples {
			if s.Value <= 0 || s.Value >= gomath.Pi {
				return nil, &UserDataError{
					Frame:    s.Frame,
					HasFrame: true,
					Reason:   fmt.Sprintf("camera angle %g out of range (0, pi)", s.Value),
				}
			}
		}
		out.Lens = linearPoints(samples, func(v float64) float64 { return FocalLength(sensorWidth, v) })
	}

	r.Log.Debug("reconstructed camera",
		zap.Int("position_keys", k.Position.Len()),
		zap.Int("angle_keys", k.Angle.Len()))
	return out, nil
}

// Package motion holds baked keyframe channels and the rotation utilities
// that reduce rotation matrices to Euler or quaternion keys.
package motion

import (
	gomath "math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/motionbake/pkg/decimate"
	"github.com/Faultbox/motionbake/pkg/math"
)

// Channel names, as used in documents and logs.
const (
	ChannelPosition           = "position"
	ChannelTarget             = "target"
	ChannelScale              = "scale"
	ChannelEulerRotation      = "euler_rotation"
	ChannelQuaternionRotation = "quaternion_rotation"
	ChannelRoll               = "roll"
	ChannelAngle              = "angle"
	ChannelVertex             = "vertex"
	ChannelNormal             = "normal"
)

// LabeledArray is a named vertex or normal array used by shape keys.
type LabeledArray struct {
	Label  string
	Values []mgl64.Vec3
}

// Matches reports whether both arrays hold the same vectors within tolerance.
// Labels are ignored.
func (a *LabeledArray) Matches(b *LabeledArray, tolerance float64) bool {
	if a == nil || b == nil || len(a.Values) != len(b.Values) {
		return false
	}
	for i := range a.Values {
		if math.Vec3Distance(a.Values[i], b.Values[i]) > tolerance {
			return false
		}
	}
	return true
}

// Keyframes is the keyed output of one bake: a track per channel.
type Keyframes struct {
	Position           Track[mgl64.Vec3]
	Target             Track[mgl64.Vec3]
	Scale              Track[mgl64.Vec3]
	EulerRotation      Track[math.Euler]
	QuaternionRotation Track[mgl64.Quat]
	Roll               Track[float64]
	Angle              Track[float64]
	Vertex             Track[*LabeledArray]
	Normal             Track[*LabeledArray]

	// ExactRotationFrames lists rotation keys taken directly from the source
	// representation when the rotation was converted. Rotation optimization
	// never removes them.
	ExactRotationFrames []int
}

// New returns empty keyframes.
func New() *Keyframes {
	return &Keyframes{}
}

// Channels returns the names of the non-empty channels.
func (k *Keyframes) Channels() []string {
	var out []string
	add := func(name string, n int) {
		if n > 0 {
			out = append(out, name)
		}
	}
	add(ChannelPosition, k.Position.Len())
	add(ChannelTarget, k.Target.Len())
	add(ChannelScale, k.Scale.Len())
	add(ChannelEulerRotation, k.EulerRotation.Len())
	add(ChannelQuaternionRotation, k.QuaternionRotation.Len())
	add(ChannelRoll, k.Roll.Len())
	add(ChannelAngle, k.Angle.Len())
	add(ChannelVertex, k.Vertex.Len())
	add(ChannelNormal, k.Normal.Len())
	return out
}

// Empty reports whether no channel holds a key.
func (k *Keyframes) Empty() bool {
	return len(k.Channels()) == 0
}

// KeyCount returns the total number of keys across channels.
func (k *Keyframes) KeyCount() int {
	return k.Position.Len() + k.Target.Len() + k.Scale.Len() +
		k.EulerRotation.Len() + k.QuaternionRotation.Len() +
		k.Roll.Len() + k.Angle.Len() + k.Vertex.Len() + k.Normal.Len()
}

// Optimize removes redundant keys. Vector and scalar channels use general;
// rotation channels use rotation and are anchored on ExactRotationFrames.
// First and last keys of each channel are always kept.
func (k *Keyframes) Optimize(general, rotation float64) {
	k.Position.Decimate(general, math.LerpVec3, math.Vec3Distance, nil)
	k.Target.Decimate(general, math.LerpVec3, math.Vec3Distance, nil)
	k.Scale.Decimate(general, math.LerpVec3, math.Vec3Distance, nil)
	k.Roll.Decimate(general, decimate.Lerp[float64], decimate.AbsDiff[float64], nil)
	k.Angle.Decimate(general, decimate.Lerp[float64], decimate.AbsDiff[float64], nil)

	k.EulerRotation.Decimate(rotation, math.LerpEuler, math.EulerDeviation, k.ExactRotationFrames)
	k.QuaternionRotation.Decimate(rotation, math.LerpQuat, math.QuatDeviation, k.ExactRotationFrames)
}

// EnsurePositiveEulerAngles shifts each Euler axis by whole turns so that
// its smallest keyed angle is not negative. Deltas between keys are kept.
func (k *Keyframes) EnsurePositiveEulerAngles() {
	if k.EulerRotation.Len() == 0 {
		return
	}

	minAngle := mgl64.Vec3{gomath.Inf(1), gomath.Inf(1), gomath.Inf(1)}
	for _, s := range k.EulerRotation.Samples() {
		v := s.Value.Vec3()
		for i := 0; i < 3; i++ {
			minAngle[i] = gomath.Min(minAngle[i], v[i])
		}
	}

	var shift mgl64.Vec3
	for i := 0; i < 3; i++ {
		if minAngle[i] < 0 {
			shift[i] = gomath.Ceil(-minAngle[i]/(2*gomath.Pi)) * 2 * gomath.Pi
		}
	}
	if shift == (mgl64.Vec3{}) {
		return
	}

	k.EulerRotation.Map(func(_ int, e math.Euler) math.Euler {
		return math.NewEuler(e.Vec3().Add(shift), e.Order)
	})
}

package motion

import (
	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/exp/slices"

	"github.com/Faultbox/motionbake/pkg/decimate"
	"github.com/Faultbox/motionbake/pkg/math"
)

// RotationUtils reduces keyed rotation matrices to Euler or quaternion
// tracks and rebuilds matrices from them.
type RotationUtils struct{}

// EulerOrder returns the Euler order used for output tracks.
func EulerOrder(rotateZYX bool) math.RotationOrder {
	if rotateZYX {
		return math.ZYX
	}
	return math.XYZ
}

// RotationPath returns the source rotation at any frame between the first
// and last keyed matrix, in the space of the keyed matrices.
type RotationPath func(frame int) mgl64.Mat4

// keyedPath follows matrices along the shortest arc between keys. It is used
// when the caller knows nothing better about the source.
func keyedPath(matrices *Track[mgl64.Mat4]) RotationPath {
	samples := matrices.Samples()
	return func(frame int) mgl64.Mat4 {
		i, found := slices.BinarySearchFunc(samples, frame, func(s decimate.Sample[mgl64.Mat4], f int) int {
			return s.Frame - f
		})
		switch {
		case found:
			return samples[i].Value
		case i == 0:
			return samples[0].Value
		case i == len(samples):
			return samples[i-1].Value
		}
		a, b := samples[i-1], samples[i]
		t := float64(frame-a.Frame) / float64(b.Frame-a.Frame)
		return math.LerpQuat(math.QuatFromMat4(a.Value), math.QuatFromMat4(b.Value), t).Mat4()
	}
}

// refine returns the frames strictly between lo and hi that must become keys
// so that every frame in between stays within threshold of the source.
// deviation measures frame f against interpolation between keys a and b.
// The worst frame is keyed first and both halves are refined again.
func refine(lo, hi int, threshold float64, deviation func(a, b, f int) float64) []int {
	worst, split := threshold, -1
	for f := lo + 1; f < hi; f++ {
		if d := deviation(lo, hi, f); d > worst {
			worst, split = d, f
		}
	}
	if split < 0 {
		return nil
	}
	out := refine(lo, split, threshold, deviation)
	out = append(out, split)
	return append(out, refine(split, hi, threshold, deviation)...)
}

// MatrixToEuler fills k.EulerRotation from matrices. Each conversion is
// seeded with the previous Euler so that angles stay continuous; complementary
// rotations of a frame advance the seed before the next key is converted.
//
// When the matrices come from quaternion keys and threshold is positive,
// frames between two keys are added until interpolating the Euler keys stays
// within threshold radians of path at every frame. A nil path follows the
// shortest arc between keys. The source frames are then recorded as exact.
func (RotationUtils) MatrixToEuler(k *Keyframes, matrices *Track[mgl64.Mat4], fromQuaternion bool, threshold float64, rotateZYX bool, compl ComplementaryMap, path RotationPath) {
	order := EulerOrder(rotateZYX)
	k.EulerRotation.Clear()
	if path == nil {
		path = keyedPath(matrices)
	}

	samples := matrices.Samples()
	seed := math.Euler{Order: order}

	for i, s := range samples {
		e := math.Mat4ToEulerCompat(s.Value, order, seed)
		k.EulerRotation.Add(s.Frame, e)
		seed = e

		for _, m := range compl[s.Frame] {
			seed = math.Mat4ToEulerCompat(m, order, seed)
		}

		if !fromQuaternion || threshold <= 0 || i == len(samples)-1 {
			continue
		}

		// Walk the source frame by frame so that inner keys unwrap
		// continuously from e.
		next := samples[i+1]
		eulers := map[int]math.Euler{s.Frame: e}
		sources := map[int]mgl64.Quat{s.Frame: math.QuatFromMat4(s.Value)}
		walk := e
		for f := s.Frame + 1; f <= next.Frame; f++ {
			m := next.Value
			if f < next.Frame {
				m = path(f)
			}
			walk = math.Mat4ToEulerCompat(m, order, walk)
			eulers[f] = walk
			sources[f] = math.QuatFromMat4(m)
		}

		inserted := refine(s.Frame, next.Frame, threshold, func(a, b, f int) float64 {
			t := float64(f-a) / float64(b-a)
			lerped := math.LerpEuler(eulers[a], eulers[b], t)
			return math.QuatDeviation(math.QuatFromMat3(lerped.Mat3()), sources[f])
		})
		for _, f := range inserted {
			k.EulerRotation.Add(f, eulers[f])
		}
		// The next key converts to the walked Euler.
		seed = eulers[next.Frame]
	}

	k.ExactRotationFrames = nil
	if fromQuaternion {
		k.ExactRotationFrames = matrices.Frames()
	}
}

// MatrixToQuaternion fills k.QuaternionRotation from matrices, keeping
// consecutive quaternions on the same hemisphere.
//
// When the matrices come from Euler keys and threshold is positive, frames
// between two keys are added until the spherical interpolation of the
// quaternion keys stays within threshold radians of path at every frame. A
// nil path follows the shortest arc between keys. The source frames are then
// recorded as exact.
func (RotationUtils) MatrixToQuaternion(k *Keyframes, matrices *Track[mgl64.Mat4], fromQuaternion bool, threshold float64, path RotationPath) {
	k.QuaternionRotation.Clear()
	if path == nil {
		path = keyedPath(matrices)
	}

	prev := mgl64.QuatIdent()
	add := func(frame int, m mgl64.Mat4) {
		q := math.QuatCompatible(math.QuatFromMat4(m), prev)
		k.QuaternionRotation.Add(frame, q)
		prev = q
	}

	samples := matrices.Samples()
	for i, s := range samples {
		add(s.Frame, s.Value)
		if fromQuaternion || threshold <= 0 || i == len(samples)-1 {
			continue
		}

		next := samples[i+1]
		sources := map[int]mgl64.Mat4{s.Frame: s.Value, next.Frame: next.Value}
		for f := s.Frame + 1; f < next.Frame; f++ {
			sources[f] = path(f)
		}

		inserted := refine(s.Frame, next.Frame, threshold, func(a, b, f int) float64 {
			t := float64(f-a) / float64(b-a)
			q := math.LerpQuat(math.QuatFromMat4(sources[a]), math.QuatFromMat4(sources[b]), t)
			return math.QuatDeviation(q, math.QuatFromMat4(sources[f]))
		})
		for _, f := range inserted {
			add(f, sources[f])
		}
	}

	k.ExactRotationFrames = nil
	if !fromQuaternion && threshold > 0 {
		k.ExactRotationFrames = matrices.Frames()
	}
}

// RotationMatrices rebuilds rotation matrices from k. The Euler track is
// used unless a quaternion output is wanted and a quaternion track exists,
// or no Euler track exists. converted reports whether the chosen source
// differs from the wanted representation. Euler sources also yield the
// complementary rotations of each interval.
func (RotationUtils) RotationMatrices(k *Keyframes, wantQuaternion bool) (Track[mgl64.Mat4], bool, ComplementaryMap) {
	var matrices Track[mgl64.Mat4]

	useEuler := k.EulerRotation.Len() > 0 &&
		(!wantQuaternion || k.QuaternionRotation.Len() == 0)

	if !useEuler {
		for _, s := range k.QuaternionRotation.Samples() {
			matrices.Add(s.Frame, s.Value.Normalize().Mat4())
		}
		return matrices, !wantQuaternion, nil
	}

	compl := make(ComplementaryMap)
	samples := k.EulerRotation.Samples()
	for i, s := range samples {
		matrices.Add(s.Frame, s.Value.Mat4())
		if i > 0 {
			prev := samples[i-1]
			compl.AddTurns(prev.Frame, prev.Value, s.Value, math.Euler.Mat4)
		}
	}
	if len(compl) == 0 {
		compl = nil
	}
	return matrices, wantQuaternion, compl
}

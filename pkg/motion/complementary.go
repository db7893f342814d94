package motion

import (
	gomath "math"

	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/Faultbox/motionbake/pkg/math"
)

// ComplementaryMap holds synthetic rotations that lie strictly between a
// keyed frame and the next key. They let matrix based reductions recover
// turns of more than half a revolution between two keys. Entries are never
// written out as keys.
type ComplementaryMap map[int][]mgl64.Mat4

// ComplementaryEulers returns the intermediate orientations needed between
// prev and next. The largest per-axis delta decides the count: nothing when
// it is below π, otherwise floor(delta/π)+1 orientations spaced evenly so
// that none coincides with next.
func ComplementaryEulers(prev, next math.Euler) []math.Euler {
	delta := next.Sub(prev)
	maxDelta := gomath.Max(gomath.Abs(delta[0]), gomath.Max(gomath.Abs(delta[1]), gomath.Abs(delta[2])))

	n := int(gomath.Floor(maxDelta / gomath.Pi))
	if n == 0 {
		return nil
	}
	n++

	step := 1.0 / float64(n+1)
	out := make([]math.Euler, n)
	for i := range out {
		fac := step * float64(i+1)
		out[i] = math.NewEuler(prev.Vec3().Add(delta.Mul(fac)), prev.Order)
	}
	return out
}

// AddTurns records the complementary rotations between prev, keyed at
// frame, and next. toMatrix converts each orientation into the matrix space
// of the keyed rotations. It reports whether an entry was added.
func (c ComplementaryMap) AddTurns(frame int, prev, next math.Euler, toMatrix func(math.Euler) mgl64.Mat4) bool {
	eulers := ComplementaryEulers(prev, next)
	if len(eulers) == 0 {
		return false
	}

	matrices := make([]mgl64.Mat4, len(eulers))
	for i, e := range eulers {
		matrices[i] = toMatrix(e)
	}
	c[frame] = matrices
	return true
}

// Frames returns the frames with entries in increasing order.
func (c ComplementaryMap) Frames() []int {
	frames := maps.Keys(c)
	slices.Sort(frames)
	return frames
}

// Transform applies fn to every matrix and returns a new map. A nil map
// stays nil.
func (c ComplementaryMap) Transform(fn func(mgl64.Mat4) mgl64.Mat4) ComplementaryMap {
	if c == nil {
		return nil
	}
	out := make(ComplementaryMap, len(c))
	for f, matrices := range c {
		mapped := make([]mgl64.Mat4, len(matrices))
		for i, m := range matrices {
			mapped[i] = fn(m)
		}
		out[f] = mapped
	}
	return out
}

package curve

import (
	"math"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/Faultbox/motionbake/pkg/decimate"
)

// FrameSet is a set of integer frames.
type FrameSet map[int]struct{}

// NewFrameSet returns a set holding frames.
func NewFrameSet(frames ...int) FrameSet {
	s := make(FrameSet, len(frames))
	s.Add(frames...)
	return s
}

// Add inserts frames into the set.
func (s FrameSet) Add(frames ...int) {
	for _, f := range frames {
		s[f] = struct{}{}
	}
}

// Has reports whether frame is in the set.
func (s FrameSet) Has(frame int) bool {
	_, ok := s[frame]
	return ok
}

// Union adds every frame of other to s.
func (s FrameSet) Union(other FrameSet) {
	for f := range other {
		s[f] = struct{}{}
	}
}

// Sorted returns the frames in increasing order.
func (s FrameSet) Sorted() []int {
	frames := maps.Keys(s)
	slices.Sort(frames)
	return frames
}

// Sampler extracts the frames at which a curve must be evaluated so that
// linear keyframes reproduce it.
type Sampler struct {
	// Threshold bounds the error allowed when thinning the dense sampling
	// of non-linear runs. Zero keeps every integer frame of such runs.
	Threshold float64
}

// Frames returns the frames curve c needs within [start, end]. The second
// result is false when the curve is nil or has no keys; callers treat that
// as an absent channel.
//
// The set holds the floor and ceiling of every key. A key following a
// constant segment that sits on an integer frame also adds the frame before
// it, preserving the step. Each non-linear key starts a run up to the next
// collected frame; the run is evaluated at every integer frame and thinned
// with the decimator.
func (s Sampler) Frames(c Curve, start, end int) (FrameSet, bool) {
	if c == nil {
		return nil, false
	}
	points := c.ControlPoints()
	if len(points) == 0 {
		return nil, false
	}

	result, nonlinear := keyFrames(points)
	sorted := result.Sorted()
	for _, runStart := range nonlinear.Sorted() {
		idx, _ := slices.BinarySearch(sorted, runStart)
		if idx >= len(sorted)-1 {
			continue
		}
		runEnd := sorted[idx+1]
		if runStart == runEnd-1 {
			continue
		}
		result.Add(s.runFrames(c, runStart, runEnd)...)
	}

	result.clip(start, end)
	return result, true
}

// KeyFrames returns the frames within [start, end] that hold the keys of c:
// the floor and ceiling of every key, plus the frame before a key that ends a
// constant step. It is the result of Frames without the dense samples of
// non-linear runs.
func KeyFrames(c Curve, start, end int) FrameSet {
	if c == nil {
		return FrameSet{}
	}
	result, _ := keyFrames(c.ControlPoints())
	result.clip(start, end)
	return result
}

// keyFrames collects the key frames of points and the frames starting a
// non-linear run.
func keyFrames(points []ControlPoint) (result, nonlinear FrameSet) {
	result = make(FrameSet)
	nonlinear = make(FrameSet)

	wasConstant := false
	for _, p := range points {
		left := int(math.Floor(p.Frame))
		right := int(math.Ceil(p.Frame))
		result.Add(left, right)

		if wasConstant && left == right {
			result.Add(left - 1)
		}
		wasConstant = p.Interpolation == Constant

		if p.Interpolation != Linear && p.Interpolation != Constant {
			nonlinear.Add(right)
		}
	}
	return result, nonlinear
}

func (s FrameSet) clip(start, end int) {
	for f := range s {
		if f < start || f > end {
			delete(s, f)
		}
	}
}

// runFrames samples c densely over [from, to] and thins the samples.
func (s Sampler) runFrames(c Curve, from, to int) []int {
	samples := make([]decimate.Sample[float64], 0, to-from+1)
	for f := from; f <= to; f++ {
		samples = append(samples, decimate.Sample[float64]{Frame: f, Value: c.Evaluate(float64(f))})
	}

	if s.Threshold > 0 {
		samples = decimate.Decimate(samples, s.Threshold, decimate.Lerp[float64], decimate.AbsDiff[float64])
	}
	return decimate.Frames(samples)
}

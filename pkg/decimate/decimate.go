// Package decimate removes redundant samples from a sampled channel.
//
// A sample is redundant when linearly interpolating its surviving
// neighbours reproduces its value to within a threshold. The algorithm is
// generic over the sample value: callers pass the interpolation and
// distance functions that fit their representation.
package decimate

import (
	"golang.org/x/exp/constraints"
)

// Sample is a value at an integer frame.
type Sample[V any] struct {
	Frame int
	Value V
}

// LerpFunc interpolates between a and b at t in [0, 1].
type LerpFunc[V any] func(a, b V, t float64) V

// DistanceFunc measures how far apart a and b are.
type DistanceFunc[V any] func(a, b V) float64

// Decimate removes interior samples of the whole sequence. See DecimateRange.
func Decimate[V any](samples []Sample[V], threshold float64, lerp LerpFunc[V], distance DistanceFunc[V]) []Sample[V] {
	if len(samples) == 0 {
		return samples
	}
	return DecimateRange(samples, samples[0].Frame, samples[len(samples)-1].Frame, threshold, lerp, distance)
}

// DecimateRange removes samples strictly between frames from and to.
// Samples must be ordered by frame. Samples outside the range, and the
// samples at from and to, are never removed.
//
// Each pass walks left to right keeping a "last kept" sample. A candidate is
// dropped when the value interpolated between the last kept sample and the
// candidate's successor lies closer than threshold to the candidate. Passes
// repeat until one removes nothing, so the result is stable under repeated
// application. This deliberately keeps fewer samples than a single causal
// pass would: a later pass may drop a sample an earlier pass kept, and each
// pass only measures samples against their current neighbours. A threshold
// of zero returns the input unchanged.
//
// The input slice is not modified.
func DecimateRange[V any](samples []Sample[V], from, to int, threshold float64, lerp LerpFunc[V], distance DistanceFunc[V]) []Sample[V] {
	if threshold <= 0 || len(samples) < 3 {
		return samples
	}

	lo, hi := -1, -1
	for i, s := range samples {
		if lo < 0 && s.Frame >= from {
			lo = i
		}
		if s.Frame <= to {
			hi = i
		}
	}
	if lo < 0 || hi-lo < 2 {
		return samples
	}

	samples = append([]Sample[V](nil), samples...)
	for {
		var removed int
		samples, removed = sweep(samples, lo, hi, threshold, lerp, distance)
		if removed == 0 {
			return samples
		}
		hi -= removed
	}
}

// sweep runs one left-to-right pass over samples[lo..hi], compacting the
// slice in place, and reports how many samples it dropped.
func sweep[V any](samples []Sample[V], lo, hi int, threshold float64, lerp LerpFunc[V], distance DistanceFunc[V]) ([]Sample[V], int) {
	out := samples[:lo+1]
	kept := samples[lo]

	for i := lo + 1; i < hi; i++ {
		cur, next := samples[i], samples[i+1]

		span := next.Frame - kept.Frame
		t := 0.0
		if span != 0 {
			t = float64(cur.Frame-kept.Frame) / float64(span)
		}

		if distance(lerp(kept.Value, next.Value, t), cur.Value) < threshold {
			continue
		}
		out = append(out, cur)
		kept = cur
	}

	removed := hi - lo - 1 - (len(out) - lo - 1)
	out = append(out, samples[hi:]...)
	return out, removed
}

// Lerp interpolates scalars.
func Lerp[T constraints.Float](a, b T, t float64) T {
	return a*T(1-t) + b*T(t)
}

// AbsDiff is the absolute difference of two scalars.
func AbsDiff[T constraints.Float](a, b T) float64 {
	if a > b {
		return float64(a - b)
	}
	return float64(b - a)
}

// Frames returns the frames of samples in order.
func Frames[V any](samples []Sample[V]) []int {
	frames := make([]int, len(samples))
	for i, s := range samples {
		frames[i] = s.Frame
	}
	return frames
}

package motion

import (
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/Faultbox/motionbake/pkg/decimate"
)

// Track is one keyframe channel. Frames are unique; iteration is always in
// increasing frame order.
type Track[V any] struct {
	keys map[int]V
}

// Add sets the value at frame, replacing any existing key.
func (t *Track[V]) Add(frame int, v V) {
	if t.keys == nil {
		t.keys = make(map[int]V)
	}
	t.keys[frame] = v
}

// Get returns the value at frame.
func (t *Track[V]) Get(frame int) (V, bool) {
	v, ok := t.keys[frame]
	return v, ok
}

// Len returns the number of keys.
func (t *Track[V]) Len() int {
	return len(t.keys)
}

// Clear removes all keys.
func (t *Track[V]) Clear() {
	t.keys = nil
}

// Frames returns the keyed frames in increasing order.
func (t *Track[V]) Frames() []int {
	frames := maps.Keys(t.keys)
	slices.Sort(frames)
	return frames
}

// First returns the key with the smallest frame.
func (t *Track[V]) First() (decimate.Sample[V], bool) {
	if len(t.keys) == 0 {
		return decimate.Sample[V]{}, false
	}
	f := slices.Min(maps.Keys(t.keys))
	return decimate.Sample[V]{Frame: f, Value: t.keys[f]}, true
}

// Samples returns the keys ordered by frame.
func (t *Track[V]) Samples() []decimate.Sample[V] {
	frames := t.Frames()
	out := make([]decimate.Sample[V], len(frames))
	for i, f := range frames {
		out[i] = decimate.Sample[V]{Frame: f, Value: t.keys[f]}
	}
	return out
}

// SetSamples replaces the track contents.
func (t *Track[V]) SetSamples(samples []decimate.Sample[V]) {
	t.keys = make(map[int]V, len(samples))
	for _, s := range samples {
		t.keys[s.Frame] = s.Value
	}
}

// Decimate removes redundant keys. With two or more anchors, removal only
// happens between consecutive anchors and the anchors themselves survive.
func (t *Track[V]) Decimate(threshold float64, lerp decimate.LerpFunc[V], distance decimate.DistanceFunc[V], anchors []int) {
	if threshold <= 0 || len(t.keys) < 3 {
		return
	}

	samples := t.Samples()
	if len(anchors) < 2 {
		samples = decimate.Decimate(samples, threshold, lerp, distance)
	} else {
		for i := 1; i < len(anchors); i++ {
			samples = decimate.DecimateRange(samples, anchors[i-1], anchors[i], threshold, lerp, distance)
		}
	}
	t.SetSamples(samples)
}

// Map applies fn to every value in place.
func (t *Track[V]) Map(fn func(frame int, v V) V) {
	for f, v := range t.keys {
		t.keys[f] = fn(f, v)
	}
}

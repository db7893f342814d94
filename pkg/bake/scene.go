package bake

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/Faultbox/motionbake/pkg/curve"
	"github.com/Faultbox/motionbake/pkg/decimate"
	"github.com/Faultbox/motionbake/pkg/motion"
)

// Scene is the stateful host scene. The evaluator advances it to each
// required frame before reading curve values, in strictly increasing frame
// order within one bake.
type Scene interface {
	AdvanceToFrame(frame int) error
}

// SceneFunc adapts a function to Scene.
type SceneFunc func(frame int) error

// AdvanceToFrame calls f(frame).
func (f SceneFunc) AdvanceToFrame(frame int) error { return f(frame) }

// RotationReducer converts keyed rotation matrices to Euler or quaternion
// tracks and back. motion.RotationUtils is the stock implementation.
type RotationReducer interface {
	MatrixToEuler(k *motion.Keyframes, matrices *motion.Track[mgl64.Mat4], fromQuaternion bool, threshold float64, rotateZYX bool, compl motion.ComplementaryMap, path motion.RotationPath)
	MatrixToQuaternion(k *motion.Keyframes, matrices *motion.Track[mgl64.Mat4], fromQuaternion bool, threshold float64, path motion.RotationPath)
	RotationMatrices(k *motion.Keyframes, wantQuaternion bool) (motion.Track[mgl64.Mat4], bool, motion.ComplementaryMap)
}

// channel is a group of parallel curves baked together, such as the three
// location curves of a node.
type channel struct {
	curves   []curve.Curve
	fallback []float64

	frames curve.FrameSet
	// keys holds the key frames of the curves within the bake range.
	keys curve.FrameSet
	// values holds the sampled curve values keyed by frame relative to the
	// bake start.
	values map[int][]float64
}

func newChannel(curves []curve.Curve, fallback ...float64) *channel {
	return &channel{curves: curves, fallback: fallback}
}

// present reports whether any curve of the channel has keys.
func (c *channel) present() bool {
	for _, cv := range c.curves {
		if cv != nil && len(cv.ControlPoints()) > 0 {
			return true
		}
	}
	return false
}

// sample collects the frames the channel needs within [start, end].
func (c *channel) sample(s curve.Sampler, start, end int) {
	c.frames = curve.NewFrameSet(start, end)
	c.keys = curve.NewFrameSet(start, end)
	for _, cv := range c.curves {
		if frames, ok := s.Frames(cv, start, end); ok {
			c.frames.Union(frames)
			c.keys.Union(curve.KeyFrames(cv, start, end))
		}
	}
	c.values = make(map[int][]float64, len(c.frames))
}

// read stores the curve values at frame.
func (c *channel) read(frame, start int) {
	v := make([]float64, len(c.curves))
	for i, cv := range c.curves {
		switch {
		case cv != nil && len(cv.ControlPoints()) > 0:
			v[i] = cv.Evaluate(float64(frame))
		case i < len(c.fallback):
			v[i] = c.fallback[i]
		}
	}
	c.values[frame-start] = v
}

// samples returns the sampled values ordered by relative frame.
func (c *channel) samples() []decimate.Sample[[]float64] {
	frames := maps.Keys(c.values)
	slices.Sort(frames)

	out := make([]decimate.Sample[[]float64], len(frames))
	for i, f := range frames {
		out[i] = decimate.Sample[[]float64]{Frame: f, Value: c.values[f]}
	}
	return out
}

// keyFrames returns the key frames relative to start, in increasing order.
func (c *channel) keyFrames(start int) []int {
	frames := c.keys.Sorted()
	for i := range frames {
		frames[i] -= start
	}
	return frames
}

// valueAt interpolates the sampled values linearly at a relative frame.
// Between two sampled frames the curves are linear to within the sampling
// threshold. Frames outside the sampled span clamp to the nearest sample.
func valueAt(samples []decimate.Sample[[]float64], frame int) []float64 {
	i, found := slices.BinarySearchFunc(samples, frame, func(s decimate.Sample[[]float64], f int) int {
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
	out := make([]float64, len(a.Value))
	for j := range out {
		out[j] = decimate.Lerp(a.Value[j], b.Value[j], t)
	}
	return out
}

// bakeChannels samples every present channel and reads all values in one
// pass over the union of their frames, advancing scene once per frame.
func bakeChannels(scene Scene, s curve.Sampler, start, end int, channels ...*channel) error {
	all := curve.NewFrameSet()
	for _, c := range channels {
		c.sample(s, start, end)
		all.Union(c.frames)
	}

	for _, f := range all.Sorted() {
		if scene != nil {
			if err := scene.AdvanceToFrame(f); err != nil {
				return fmt.Errorf("advance to frame %d: %w", f, err)
			}
		}
		for _, c := range channels {
			if c.frames.Has(f) {
				c.read(f, start)
			}
		}
	}
	return nil
}

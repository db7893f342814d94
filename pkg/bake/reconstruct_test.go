package bake

import (
	gomath "math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/motionbake/pkg/math"
	"github.com/Faultbox/motionbake/pkg/motion"
)

func TestReconstructorOutputMode(t *testing.T) {
	eulerKeys := motion.New()
	eulerKeys.EulerRotation.Add(0, math.Euler{Order: math.XYZ})
	eulerKeys.EulerRotation.Add(10, math.Euler{X: 1, Order: math.XYZ})

	quatKeys := motion.New()
	quatKeys.QuaternionRotation.Add(0, mgl64.QuatIdent())
	quatKeys.QuaternionRotation.Add(10, mgl64.QuatRotate(1, mgl64.Vec3{1, 0, 0}))

	tests := []struct {
		name string
		mode RotationMode
		keys *motion.Keyframes
		want RotationMode
	}{
		{"keep euler", RotationKeep, eulerKeys, RotationEuler},
		{"keep quaternion", RotationKeep, quatKeys, RotationQuaternion},
		{"euler from quaternion", RotationEuler, quatKeys, RotationEuler},
		{"quaternion from euler", RotationQuaternion, eulerKeys, RotationQuaternion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReconstructor(tt.mode, math.XYZ)
			cs, err := r.Transform(tt.keys, mgl64.Ident4(), mgl64.Vec3{}, mgl64.Mat4{})
			require.NoError(t, err)
			require.True(t, cs.HasRotation())
			assert.Equal(t, tt.want, cs.RotationMode)

			if tt.want == RotationEuler {
				assert.Nil(t, cs.QuaternionRotation[0])
				assert.InDelta(t, 1, cs.EulerRotation[0].Evaluate(10), 1e-9)
			} else {
				assert.Nil(t, cs.EulerRotation[0])
				assert.Len(t, cs.QuaternionRotation[0], 2)
			}
		})
	}
}

func TestReconstructorThinsConvertedKeys(t *testing.T) {
	// Frames 4 and 7 were inserted when converting to Euler.
	k := motion.New()
	for _, f := range []int{0, 4, 7, 10} {
		k.EulerRotation.Add(f, math.Euler{X: float64(f) / 10, Order: math.XYZ})
	}
	k.ExactRotationFrames = []int{0, 10}

	tests := []struct {
		name      string
		deviation float64
		want      []float64
	}{
		{"thinned", DefaultConversionDeviation, []float64{0, 10}},
		{"disabled", 0, []float64{0, 4, 7, 10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReconstructor(RotationQuaternion, math.XYZ)
			r.ConversionDeviation = tt.deviation

			cs, err := r.Transform(k, mgl64.Ident4(), mgl64.Vec3{}, mgl64.Mat4{})
			require.NoError(t, err)

			var frames []float64
			for _, p := range cs.QuaternionRotation[0] {
				frames = append(frames, p.Frame)
			}
			assert.Equal(t, tt.want, frames)
		})
	}
}

func TestReconstructorMultiTurn(t *testing.T) {
	k := motion.New()
	k.EulerRotation.Add(0, math.Euler{Order: math.XYZ})
	k.EulerRotation.Add(10, math.Euler{X: 3 * gomath.Pi, Order: math.XYZ})

	r := NewReconstructor(RotationEuler, math.XYZ)
	cs, err := r.Transform(k, mgl64.Ident4(), mgl64.Vec3{}, mgl64.Mat4{})
	require.NoError(t, err)
	assert.InDelta(t, 3*gomath.Pi, cs.EulerRotation[0].Evaluate(10), 1e-9)
}

func TestReconstructorPositionAndScale(t *testing.T) {
	k := motion.New()
	k.Position.Add(0, mgl64.Vec3{1, 3, -2})
	k.Scale.Add(0, mgl64.Vec3{2, 6, 4})

	r := NewReconstructor(RotationKeep, math.XYZ)
	cs, err := r.Transform(k, mgl64.Scale3D(2, 2, 2), mgl64.Vec3{}, mgl64.Mat4{})
	require.NoError(t, err)
	assert.False(t, cs.HasRotation())

	assert.InDelta(t, 0.5, cs.Location[0].Evaluate(0), 1e-12)
	assert.InDelta(t, 1, cs.Location[1].Evaluate(0), 1e-12)
	assert.InDelta(t, 1.5, cs.Location[2].Evaluate(0), 1e-12)

	assert.InDelta(t, 1, cs.Scale[0].Evaluate(0), 1e-12)
	assert.InDelta(t, 2, cs.Scale[1].Evaluate(0), 1e-12)
	assert.InDelta(t, 3, cs.Scale[2].Evaluate(0), 1e-12)
}

func TestReconstructorErrors(t *testing.T) {
	r := NewReconstructor(RotationEuler, math.XYZ)
	_, err := r.Transform(motion.New(), mgl64.Ident4(), mgl64.Vec3{}, mgl64.Mat4{})
	assert.ErrorIs(t, err, ErrNothingToBake)

	k := motion.New()
	k.Position.Add(0, mgl64.Vec3{})
	r.ConversionDeviation = -1
	_, err = r.Transform(k, mgl64.Ident4(), mgl64.Vec3{}, mgl64.Mat4{})
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.ErrorIs(t, err, ErrInvalidThreshold)
}

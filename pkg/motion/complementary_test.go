package motion

import (
	gomath "math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/motionbake/pkg/math"
)

func TestComplementaryEulersThreeTurns(t *testing.T) {
	prev := math.Euler{Order: math.XYZ}
	next := math.Euler{X: 3 * gomath.Pi, Order: math.XYZ}

	got := ComplementaryEulers(prev, next)
	require.Len(t, got, 4)

	for i, fac := range []float64{0.2, 0.4, 0.6, 0.8} {
		assert.InDelta(t, fac*3*gomath.Pi, got[i].X, 1e-12, "orientation %d", i)
		assert.Zero(t, got[i].Y)
		assert.Zero(t, got[i].Z)
		assert.Equal(t, math.XYZ, got[i].Order)
	}
}

func TestComplementaryEulersCount(t *testing.T) {
	tests := []struct {
		name  string
		delta mgl64.Vec3
		want  int
	}{
		{"zero delta", mgl64.Vec3{}, 0},
		{"below half turn", mgl64.Vec3{0.9 * gomath.Pi, 0, 0}, 0},
		{"negative half turn", mgl64.Vec3{0, -1.5 * gomath.Pi, 0}, 2},
		{"largest axis decides", mgl64.Vec3{0.5, 2.5 * gomath.Pi, -4.2 * gomath.Pi}, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prev := math.Euler{X: 0.1, Y: 0.2, Z: 0.3, Order: math.ZXY}
			next := math.NewEuler(prev.Vec3().Add(tt.delta), math.ZXY)
			assert.Len(t, ComplementaryEulers(prev, next), tt.want)
		})
	}
}

func TestComplementaryMapAddTurns(t *testing.T) {
	c := make(ComplementaryMap)
	same := math.Euler{X: 1, Y: 2, Z: 3, Order: math.XYZ}

	assert.False(t, c.AddTurns(0, same, same, math.Euler.Mat4))
	assert.Empty(t, c)

	next := math.Euler{X: 1 + 3*gomath.Pi, Y: 2, Z: 3, Order: math.XYZ}
	require.True(t, c.AddTurns(10, same, next, math.Euler.Mat4))
	assert.Equal(t, []int{10}, c.Frames())
	assert.Len(t, c[10], 4)

	want := math.Euler{X: 1 + 0.2*3*gomath.Pi, Y: 2, Z: 3, Order: math.XYZ}.Mat4()
	got := c[10][0]
	assert.InDeltaSlice(t, want[:], got[:], 1e-12)
}

func TestComplementaryMapTransform(t *testing.T) {
	var nilMap ComplementaryMap
	assert.Nil(t, nilMap.Transform(func(m mgl64.Mat4) mgl64.Mat4 { return m }))

	c := ComplementaryMap{3: {mgl64.Ident4()}}
	scaled := c.Transform(func(m mgl64.Mat4) mgl64.Mat4 { return m.Mul(2) })
	assert.Equal(t, 2.0, scaled[3][0].At(0, 0))
	assert.Equal(t, 1.0, c[3][0].At(0, 0), "source map must not change")
}

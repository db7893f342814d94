// Package math provides the rotation and vector math used by the keyframe
// codec: Euler orders, matrix decomposition, quaternion helpers and the
// conversion between source (Z-up) and target (Y-up) spaces.
package math

import (
	"github.com/go-gl/mathgl/mgl64"
)

// LerpVec3 performs linear interpolation between two 3D vectors.
func LerpVec3(a, b mgl64.Vec3, t float64) mgl64.Vec3 {
	return mgl64.Vec3{
		a[0] + t*(b[0]-a[0]),
		a[1] + t*(b[1]-a[1]),
		a[2] + t*(b[2]-a[2]),
	}
}

// Vec3Distance returns the Euclidean distance between a and b.
func Vec3Distance(a, b mgl64.Vec3) float64 {
	return a.Sub(b).Len()
}

// MulComponents multiplies a and b component-wise.
func MulComponents(a, b mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{a[0] * b[0], a[1] * b[1], a[2] * b[2]}
}

// DivComponents divides a by b component-wise. Zero divisors leave the
// component unchanged.
func DivComponents(a, b mgl64.Vec3) mgl64.Vec3 {
	r := a
	for i := 0; i < 3; i++ {
		if b[i] != 0 {
			r[i] = a[i] / b[i]
		}
	}
	return r
}

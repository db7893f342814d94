package math

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Quaternions are mgl64.Quat values: W is the scalar part, V = (X, Y, Z).

// QuatFromMat3 converts a rotation matrix to a unit quaternion.
// Scale is removed before conversion.
func QuatFromMat3(m mgl64.Mat3) mgl64.Quat {
	return mgl64.Mat4ToQuat(normalizeColumns(m).Mat4()).Normalize()
}

// QuatFromMat4 converts the rotation part of m to a unit quaternion.
func QuatFromMat4(m mgl64.Mat4) mgl64.Quat {
	return QuatFromMat3(m.Mat3())
}

// QuatFromWXYZ builds a quaternion from components in W, X, Y, Z order.
func QuatFromWXYZ(w, x, y, z float64) mgl64.Quat {
	return mgl64.Quat{W: w, V: mgl64.Vec3{x, y, z}}
}

// QuatCompatible returns q or -q, whichever lies on the same hemisphere
// as prev. Both describe the same orientation.
func QuatCompatible(q, prev mgl64.Quat) mgl64.Quat {
	if q.Dot(prev) < 0 {
		return q.Scale(-1)
	}
	return q
}

// LerpQuat interpolates along the shortest arc.
// t should be in range [0, 1].
func LerpQuat(a, b mgl64.Quat, t float64) mgl64.Quat {
	b = QuatCompatible(b, a)

	// Close quaternions fall back to normalized linear interpolation to
	// avoid dividing by a vanishing sine.
	if a.Dot(b) > 0.9995 {
		return mgl64.QuatNlerp(a, b, t)
	}
	return mgl64.QuatSlerp(a, b, t)
}

// QuatDeviation is the rotation angle between a and b in radians. It does
// not distinguish q from -q.
func QuatDeviation(a, b mgl64.Quat) float64 {
	dot := math.Abs(a.Normalize().Dot(b.Normalize()))
	if dot > 1 {
		dot = 1
	}
	return 2 * math.Acos(dot)
}

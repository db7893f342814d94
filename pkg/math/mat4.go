package math

import (
	"github.com/go-gl/mathgl/mgl64"
)

// Matrices are mgl64 column-major 4x4 matrices (OpenGL layout).
// Layout: [m0 m4 m8  m12]
//
//	[m1 m5 m9  m13]
//	[m2 m6 m10 m14]
//	[m3 m7 m11 m15]

// targetBasis maps source (Z-up) axes to target (Y-up) axes:
// (x, y, z) -> (x, z, -y). It is a proper rotation, Rx(-90°).
var targetBasis = mgl64.Mat4{
	1, 0, 0, 0,
	0, 0, -1, 0,
	0, 1, 0, 0,
	0, 0, 0, 1,
}

// ToTargetSpace re-expresses a source-space transform in target space.
func ToTargetSpace(m mgl64.Mat4) mgl64.Mat4 {
	return targetBasis.Mul4(m).Mul4(targetBasis.Transpose())
}

// FromTargetSpace is the inverse of ToTargetSpace.
func FromTargetSpace(m mgl64.Mat4) mgl64.Mat4 {
	return targetBasis.Transpose().Mul4(m).Mul4(targetBasis)
}

// PositionToTarget converts a source-space position: (x, y, z) -> (x, z, -y).
func PositionToTarget(v mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{v[0], v[2], -v[1]}
}

// PositionFromTarget is the inverse of PositionToTarget.
func PositionFromTarget(v mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{v[0], -v[2], v[1]}
}

// SwapScaleAxes swaps the Y and Z scale factors. It is its own inverse.
func SwapScaleAxes(v mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{v[0], v[2], v[1]}
}

// TransformPoint transforms a 3D point by m (assumes w=1).
func TransformPoint(m mgl64.Mat4, p mgl64.Vec3) mgl64.Vec3 {
	r := m.Mul4x1(p.Vec4(1))
	if w := r[3]; w != 0 && w != 1 {
		return mgl64.Vec3{r[0] / w, r[1] / w, r[2] / w}
	}
	return r.Vec3()
}

// RowTransform multiplies p as a row vector: p · m.
func RowTransform(p mgl64.Vec3, m mgl64.Mat4) mgl64.Vec3 {
	return m.Transpose().Mul4x1(p.Vec4(1)).Vec3()
}

// ExtractScale returns the length of each basis column of m.
// A negative determinant flips the sign of all three factors.
func ExtractScale(m mgl64.Mat4) mgl64.Vec3 {
	x, y, z := mgl64.Extract3DScale(m)
	if m.Mat3().Det() < 0 {
		return mgl64.Vec3{-x, -y, -z}
	}
	return mgl64.Vec3{x, y, z}
}

// NormalizedRotation returns the pure rotation of m, without translation
// or scale.
func NormalizedRotation(m mgl64.Mat4) mgl64.Mat4 {
	return QuatFromMat3(m.Mat3()).Mat4()
}

// normalizeColumns scales each column of m to unit length. Zero columns
// are left untouched.
func normalizeColumns(m mgl64.Mat3) mgl64.Mat3 {
	for c := 0; c < 3; c++ {
		col := m.Col(c)
		l := col.Len()
		if l == 0 {
			continue
		}
		m.SetCol(c, col.Mul(1/l))
	}
	return m
}

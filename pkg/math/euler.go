package math

import (
	"fmt"
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
)

// RotationOrder is the axis order of an Euler rotation.
// XYZ applies the X rotation first, then Y, then Z.
type RotationOrder int

const (
	XYZ RotationOrder = iota
	XZY
	YXZ
	YZX
	ZXY
	ZYX
)

// orderInfo holds the axis permutation of an order and whether that
// permutation is odd.
var orderInfo = [...]struct {
	axes   [3]int
	parity bool
}{
	XYZ: {[3]int{0, 1, 2}, false},
	XZY: {[3]int{0, 2, 1}, true},
	YXZ: {[3]int{1, 0, 2}, true},
	YZX: {[3]int{1, 2, 0}, false},
	ZXY: {[3]int{2, 0, 1}, false},
	ZYX: {[3]int{2, 1, 0}, true},
}

var orderNames = [...]string{"XYZ", "XZY", "YXZ", "YZX", "ZXY", "ZYX"}

// String returns the order as its three axis letters.
func (o RotationOrder) String() string {
	if o < XYZ || o > ZYX {
		return fmt.Sprintf("Unknown(%d)", int(o))
	}
	return orderNames[o]
}

// ParseRotationOrder parses "XYZ", "zyx" and so on.
func ParseRotationOrder(s string) (RotationOrder, error) {
	upper := strings.ToUpper(strings.TrimSpace(s))
	for i, name := range orderNames {
		if name == upper {
			return RotationOrder(i), nil
		}
	}
	return XYZ, fmt.Errorf("unknown rotation order %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (o RotationOrder) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *RotationOrder) UnmarshalText(text []byte) error {
	parsed, err := ParseRotationOrder(string(text))
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}

// Euler is a rotation in radians around X, Y and Z, applied in Order.
// Angles are not wrapped: 3π and π describe the same orientation but
// different motion when keyframed.
type Euler struct {
	X, Y, Z float64
	Order   RotationOrder
}

// NewEuler creates an Euler rotation from a vector of angles.
func NewEuler(v mgl64.Vec3, order RotationOrder) Euler {
	return Euler{X: v[0], Y: v[1], Z: v[2], Order: order}
}

// Vec3 returns the angles as a vector.
func (e Euler) Vec3() mgl64.Vec3 {
	return mgl64.Vec3{e.X, e.Y, e.Z}
}

// Sub returns the per-axis angle delta e - other.
func (e Euler) Sub(other Euler) mgl64.Vec3 {
	return e.Vec3().Sub(other.Vec3())
}

// Mat3 returns the rotation matrix of the Euler rotation.
func (e Euler) Mat3() mgl64.Mat3 {
	info := orderInfo[e.Order]
	angles := e.Vec3()

	m := axisRotation(info.axes[0], angles[info.axes[0]])
	m = axisRotation(info.axes[1], angles[info.axes[1]]).Mul3(m)
	return axisRotation(info.axes[2], angles[info.axes[2]]).Mul3(m)
}

// Mat4 returns the rotation as a homogeneous matrix.
func (e Euler) Mat4() mgl64.Mat4 {
	return e.Mat3().Mat4()
}

func axisRotation(axis int, angle float64) mgl64.Mat3 {
	switch axis {
	case 0:
		return mgl64.Rotate3DX(angle)
	case 1:
		return mgl64.Rotate3DY(angle)
	default:
		return mgl64.Rotate3DZ(angle)
	}
}

// eulerPair decomposes a normalized rotation matrix into the two Euler
// solutions of the given order.
func eulerPair(m mgl64.Mat3, order RotationOrder) (mgl64.Vec3, mgl64.Vec3) {
	info := orderInfo[order]
	i, j, k := info.axes[0], info.axes[1], info.axes[2]

	// at(c, r) reads column c, row r.
	at := func(c, r int) float64 { return m.At(r, c) }

	var e1, e2 mgl64.Vec3
	cy := math.Hypot(at(i, i), at(i, j))
	if cy > gimbalEpsilon {
		e1[i] = math.Atan2(at(j, k), at(k, k))
		e1[j] = math.Atan2(-at(i, k), cy)
		e1[k] = math.Atan2(at(i, j), at(i, i))

		e2[i] = math.Atan2(-at(j, k), -at(k, k))
		e2[j] = math.Atan2(-at(i, k), -cy)
		e2[k] = math.Atan2(-at(i, j), -at(i, i))
	} else {
		e1[i] = math.Atan2(-at(k, j), at(j, j))
		e1[j] = math.Atan2(-at(i, k), cy)
		e1[k] = 0
		e2 = e1
	}

	if info.parity {
		e1 = e1.Mul(-1)
		e2 = e2.Mul(-1)
	}
	return e1, e2
}

// gimbalEpsilon is the cos(pitch) below which the decomposition treats the
// matrix as gimbal locked.
const gimbalEpsilon = 16 * 1.1920929e-7

// Mat3ToEulerCompat decomposes a rotation matrix into the Euler solution
// closest to compat, unwrapping each axis by full turns where needed.
// Seeding every conversion with the previous keyframe keeps animated
// angles continuous.
func Mat3ToEulerCompat(m mgl64.Mat3, order RotationOrder, compat Euler) Euler {
	e1, e2 := eulerPair(normalizeColumns(m), order)
	old := compat.Vec3()

	e1 = compatibleEuler(e1, old)
	e2 = compatibleEuler(e2, old)

	if absSum(e1.Sub(old)) > absSum(e2.Sub(old)) {
		return NewEuler(e2, order)
	}
	return NewEuler(e1, order)
}

// Mat4ToEulerCompat is Mat3ToEulerCompat on the rotation part of m.
func Mat4ToEulerCompat(m mgl64.Mat4, order RotationOrder, compat Euler) Euler {
	return Mat3ToEulerCompat(m.Mat3(), order, compat)
}

// compatibleEuler shifts each angle of e by whole turns toward old, then
// flips any single axis that is still more than half a turn away.
func compatibleEuler(e, old mgl64.Vec3) mgl64.Vec3 {
	const (
		piThresh = 5.1
		piX2     = 2 * math.Pi
	)

	var d mgl64.Vec3
	for i := 0; i < 3; i++ {
		d[i] = e[i] - old[i]
		if d[i] > piThresh {
			e[i] -= math.Floor(d[i]/piX2+0.5) * piX2
			d[i] = e[i] - old[i]
		} else if d[i] < -piThresh {
			e[i] += math.Floor(-d[i]/piX2+0.5) * piX2
			d[i] = e[i] - old[i]
		}
	}

	// Each check uses the deltas from above; they are independent.
	for i := 0; i < 3; i++ {
		a, b := (i+1)%3, (i+2)%3
		if math.Abs(d[i]) > 3.2 && math.Abs(d[a]) < 1.6 && math.Abs(d[b]) < 1.6 {
			if d[i] > 0 {
				e[i] -= piX2
			} else {
				e[i] += piX2
			}
		}
	}
	return e
}

func absSum(v mgl64.Vec3) float64 {
	return math.Abs(v[0]) + math.Abs(v[1]) + math.Abs(v[2])
}

// LerpEuler interpolates each angle linearly. The order of a is kept.
func LerpEuler(a, b Euler, t float64) Euler {
	return NewEuler(LerpVec3(a.Vec3(), b.Vec3(), t), a.Order)
}

// EulerDeviation is the largest per-axis angle difference.
func EulerDeviation(a, b Euler) float64 {
	d := a.Sub(b)
	return math.Max(math.Abs(d[0]), math.Max(math.Abs(d[1]), math.Abs(d[2])))
}

// Package transform provides the 6-DOF rigid transform used for node poses
// and pose-graph links.
package transform

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/num/quat"
)

// Transform is a rigid transform stored as a 3x4 row-major matrix
// (rotation | translation). The zero value is the null transform, which is
// distinct from Identity and marks an unknown/invalid pose.
type Transform struct {
	m [12]float32
}

// Identity returns the identity transform.
func Identity() Transform {
	return Transform{m: [12]float32{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
	}}
}

// FromMatrix builds a transform from a 3x4 row-major matrix.
func FromMatrix(m [12]float32) Transform {
	return Transform{m: m}
}

// New builds a transform from a translation and ZYX Euler angles (radians).
func New(x, y, z, roll, pitch, yaw float32) Transform {
	sr, cr := math.Sincos(float64(roll))
	sp, cp := math.Sincos(float64(pitch))
	sy, cy := math.Sincos(float64(yaw))

	return Transform{m: [12]float32{
		float32(cy * cp), float32(cy*sp*sr - sy*cr), float32(cy*sp*cr + sy*sr), x,
		float32(sy * cp), float32(sy*sp*sr + cy*cr), float32(sy*sp*cr - cy*sr), y,
		float32(-sp), float32(cp * sr), float32(cp * cr), z,
	}}
}

// FromQuat builds a transform from a translation and a unit quaternion.
func FromQuat(x, y, z float32, q quat.Number) Transform {
	qw, qx, qy, qz := q.Real, q.Imag, q.Jmag, q.Kmag

	return Transform{m: [12]float32{
		float32(1 - 2*(qy*qy+qz*qz)), float32(2 * (qx*qy - qz*qw)), float32(2 * (qx*qz + qy*qw)), x,
		float32(2 * (qx*qy + qz*qw)), float32(1 - 2*(qx*qx+qz*qz)), float32(2 * (qy*qz - qx*qw)), y,
		float32(2 * (qx*qz - qy*qw)), float32(2 * (qy*qz + qx*qw)), float32(1 - 2*(qx*qx+qy*qy)), z,
	}}
}

// IsNull reports whether the transform is the zero value.
func (t Transform) IsNull() bool {
	return t.m == [12]float32{}
}

// IsIdentity reports whether the transform equals Identity exactly.
func (t Transform) IsIdentity() bool {
	return t == Identity()
}

// Matrix returns the 3x4 row-major matrix.
func (t Transform) Matrix() [12]float32 {
	return t.m
}

// X returns the x translation component.
func (t Transform) X() float32 { return t.m[3] }

// Y returns the y translation component.
func (t Transform) Y() float32 { return t.m[7] }

// Z returns the z translation component.
func (t Transform) Z() float32 { return t.m[11] }

// Translation returns the translation components.
func (t Transform) Translation() (x, y, z float32) {
	return t.m[3], t.m[7], t.m[11]
}

// Quat returns the rotation as a unit quaternion.
func (t Transform) Quat() quat.Number {
	r00, r01, r02 := float64(t.m[0]), float64(t.m[1]), float64(t.m[2])
	r10, r11, r12 := float64(t.m[4]), float64(t.m[5]), float64(t.m[6])
	r20, r21, r22 := float64(t.m[8]), float64(t.m[9]), float64(t.m[10])

	trace := r00 + r11 + r22
	var q quat.Number
	switch {
	case trace > 0:
		s := 2 * math.Sqrt(trace+1)
		q = quat.Number{
			Real: s / 4,
			Imag: (r21 - r12) / s,
			Jmag: (r02 - r20) / s,
			Kmag: (r10 - r01) / s,
		}
	case r00 > r11 && r00 > r22:
		s := 2 * math.Sqrt(1+r00-r11-r22)
		q = quat.Number{
			Real: (r21 - r12) / s,
			Imag: s / 4,
			Jmag: (r01 + r10) / s,
			Kmag: (r02 + r20) / s,
		}
	case r11 > r22:
		s := 2 * math.Sqrt(1+r11-r00-r22)
		q = quat.Number{
			Real: (r02 - r20) / s,
			Imag: (r01 + r10) / s,
			Jmag: s / 4,
			Kmag: (r12 + r21) / s,
		}
	default:
		s := 2 * math.Sqrt(1+r22-r00-r11)
		q = quat.Number{
			Real: (r10 - r01) / s,
			Imag: (r02 + r20) / s,
			Jmag: (r12 + r21) / s,
			Kmag: s / 4,
		}
	}
	return quat.Scale(1/quat.Abs(q), q)
}

// EulerAngles returns the rotation as ZYX Euler angles (radians).
func (t Transform) EulerAngles() (roll, pitch, yaw float32) {
	r00, r10 := float64(t.m[0]), float64(t.m[4])
	r20, r21, r22 := float64(t.m[8]), float64(t.m[9]), float64(t.m[10])

	roll = float32(math.Atan2(r21, r22))
	pitch = float32(math.Atan2(-r20, math.Hypot(r00, r10)))
	yaw = float32(math.Atan2(r10, r00))
	return roll, pitch, yaw
}

// Mul returns t * o (applies o first, then t).
func (t Transform) Mul(o Transform) Transform {
	var r [12]float32
	for row := 0; row < 3; row++ {
		for col := 0; col < 4; col++ {
			sum := t.m[row*4+0]*o.at(0, col) +
				t.m[row*4+1]*o.at(1, col) +
				t.m[row*4+2]*o.at(2, col)
			if col == 3 {
				sum += t.m[row*4+3]
			}
			r[row*4+col] = sum
		}
	}
	return Transform{m: r}
}

func (t Transform) at(row, col int) float32 {
	return t.m[row*4+col]
}

// Inverse returns the inverse transform. The rotation part is assumed
// orthonormal, so the inverse is the transpose with a rotated translation.
func (t Transform) Inverse() Transform {
	var r [12]float32
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			r[row*4+col] = t.m[col*4+row]
		}
	}
	x, y, z := t.m[3], t.m[7], t.m[11]
	r[3] = -(r[0]*x + r[1]*y + r[2]*z)
	r[7] = -(r[4]*x + r[5]*y + r[6]*z)
	r[11] = -(r[8]*x + r[9]*y + r[10]*z)
	return Transform{m: r}
}

// String implements fmt.Stringer.
func (t Transform) String() string {
	if t.IsNull() {
		return "Transform(null)"
	}
	x, y, z := t.Translation()
	roll, pitch, yaw := t.EulerAngles()
	return fmt.Sprintf("Transform(xyz=%.3f,%.3f,%.3f rpy=%.3f,%.3f,%.3f)", x, y, z, roll, pitch, yaw)
}

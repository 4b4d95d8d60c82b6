package geom

import "math"

// Quat is a unit rotation quaternion, serialized in (x, y, z, w) order to
// match the frontend scene graph.
type Quat struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	W float64 `json:"w"`
}

// Identity returns the no-rotation quaternion.
func Identity() Quat {
	return Quat{W: 1}
}

var (
	worldUp    = Vec3{Y: 1}
	worldRight = Vec3{X: 1}
)

// QuatFromAxes builds the rotation that aligns local +Z with normal and
// local +Y with up, as a right-handed orthonormal basis. Degenerate input
// (zero vectors, or up parallel to normal) falls back to a world axis so
// the result is always a valid unit quaternion, never NaN.
func QuatFromAxes(normal, up Vec3) Quat {
	n := normal
	if !n.IsFinite() || n.NearZero() {
		n = worldUp
	}
	n = n.Normalized()

	u := up
	if !u.IsFinite() || u.NearZero() {
		u = worldUp
	}
	u = u.Normalized()

	// Up parallel (or anti-parallel) to the normal cannot span a plane;
	// substitute a world axis that is guaranteed non-parallel.
	if math.Abs(n.Dot(u)) > 1-1e-6 {
		u = worldUp
		if math.Abs(n.Dot(u)) > 1-1e-6 {
			u = worldRight
		}
	}

	x := u.Cross(n).Normalized() // local +X
	y := n.Cross(x)              // local +Y, re-orthogonalized
	return quatFromBasis(x, y, n)
}

// quatFromBasis converts a right-handed orthonormal basis (columns x, y, z
// of the rotation matrix) to a quaternion, branching on the largest
// diagonal term for numeric stability.
func quatFromBasis(x, y, z Vec3) Quat {
	m00, m01, m02 := x.X, y.X, z.X
	m10, m11, m12 := x.Y, y.Y, z.Y
	m20, m21, m22 := x.Z, y.Z, z.Z

	trace := m00 + m11 + m22
	var q Quat
	switch {
	case trace > 0:
		s := math.Sqrt(trace+1) * 2
		q = Quat{
			X: (m21 - m12) / s,
			Y: (m02 - m20) / s,
			Z: (m10 - m01) / s,
			W: s / 4,
		}
	case m00 > m11 && m00 > m22:
		s := math.Sqrt(1+m00-m11-m22) * 2
		q = Quat{
			X: s / 4,
			Y: (m01 + m10) / s,
			Z: (m02 + m20) / s,
			W: (m21 - m12) / s,
		}
	case m11 > m22:
		s := math.Sqrt(1+m11-m00-m22) * 2
		q = Quat{
			X: (m01 + m10) / s,
			Y: s / 4,
			Z: (m12 + m21) / s,
			W: (m02 - m20) / s,
		}
	default:
		s := math.Sqrt(1+m22-m00-m11) * 2
		q = Quat{
			X: (m02 + m20) / s,
			Y: (m12 + m21) / s,
			Z: s / 4,
			W: (m10 - m01) / s,
		}
	}
	return q.Normalized()
}

func (q Quat) Normalized() Quat {
	l := math.Sqrt(q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W)
	if l < epsilon {
		return Identity()
	}
	return Quat{q.X / l, q.Y / l, q.Z / l, q.W / l}
}

// Apply rotates v by q.
func (q Quat) Apply(v Vec3) Vec3 {
	// v' = v + 2w(qv × v) + 2(qv × (qv × v))
	qv := Vec3{q.X, q.Y, q.Z}
	t := qv.Cross(v).Scale(2)
	return v.Add(t.Scale(q.W)).Add(qv.Cross(t))
}

// IsFinite reports whether all components are finite numbers.
func (q Quat) IsFinite() bool {
	return !math.IsNaN(q.X) && !math.IsInf(q.X, 0) &&
		!math.IsNaN(q.Y) && !math.IsInf(q.Y, 0) &&
		!math.IsNaN(q.Z) && !math.IsInf(q.Z, 0) &&
		!math.IsNaN(q.W) && !math.IsInf(q.W, 0)
}

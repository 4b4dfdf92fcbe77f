package math3d

import "math"

// Mat4 is a 4x4 matrix in column-major order, the layout glTF node matrices
// use, so a glTF matrix converts with a plain type conversion.
//
//	| 0  4  8  12 |
//	| 1  5  9  13 |
//	| 2  6  10 14 |
//	| 3  7  11 15 |
//
// Columns 0 to 2 of an affine transform are the basis vectors, column 3 is
// the translation.
type Mat4 [16]float64

// Identity returns the identity matrix.
func Identity() Mat4 {
	return Mat4{0: 1, 5: 1, 10: 1, 15: 1}
}

// Translate returns a translation by v.
func Translate(v Vec3) Mat4 {
	m := Identity()
	m[12], m[13], m[14] = v.X, v.Y, v.Z
	return m
}

// Scale returns a per-axis scale.
func Scale(v Vec3) Mat4 {
	return Mat4{0: v.X, 5: v.Y, 10: v.Z, 15: 1}
}

// ScaleUniform returns a scale by s on every axis.
func ScaleUniform(s float64) Mat4 {
	return Scale(V3(s, s, s))
}

// RotateX returns a right-handed rotation about +X.
func RotateX(angle float64) Mat4 {
	c, s := math.Cos(angle), math.Sin(angle)
	m := Identity()
	m[5], m[6] = c, s
	m[9], m[10] = -s, c
	return m
}

// RotateY returns a right-handed rotation about +Y.
func RotateY(angle float64) Mat4 {
	c, s := math.Cos(angle), math.Sin(angle)
	m := Identity()
	m[0], m[2] = c, -s
	m[8], m[10] = s, c
	return m
}

// RotateZ returns a right-handed rotation about +Z.
func RotateZ(angle float64) Mat4 {
	c, s := math.Cos(angle), math.Sin(angle)
	m := Identity()
	m[0], m[1] = c, s
	m[4], m[5] = -s, c
	return m
}

// FromQuat converts an (x, y, z, w) unit quaternion, glTF's rotation
// order, to a rotation matrix.
func FromQuat(q [4]float64) Mat4 {
	x, y, z, w := q[0], q[1], q[2], q[3]
	return Mat4{
		1 - 2*(y*y+z*z), 2 * (x*y + z*w), 2 * (x*z - y*w), 0,
		2 * (x*y - z*w), 1 - 2*(x*x+z*z), 2 * (y*z + x*w), 0,
		2 * (x*z + y*w), 2 * (y*z - x*w), 1 - 2*(x*x+y*y), 0,
		0, 0, 0, 1,
	}
}

// TRS composes translation * rotation * scale.
func TRS(t Vec3, r [4]float64, s Vec3) Mat4 {
	m := FromQuat(r)
	for i := range 3 {
		m[i] *= s.X
		m[4+i] *= s.Y
		m[8+i] *= s.Z
	}
	m[12], m[13], m[14] = t.X, t.Y, t.Z
	return m
}

// LookAt returns the view matrix of an eye at eye looking at center.
func LookAt(eye, center, up Vec3) Mat4 {
	f := center.Sub(eye).Normalize()
	s := f.Cross(up).Normalize()
	u := s.Cross(f)
	return Mat4{
		s.X, u.X, -f.X, 0,
		s.Y, u.Y, -f.Y, 0,
		s.Z, u.Z, -f.Z, 0,
		-s.Dot(eye), -u.Dot(eye), f.Dot(eye), 1,
	}
}

// Perspective returns an OpenGL style projection with a vertical field of
// view fovy in radians.
func Perspective(fovy, aspect, near, far float64) Mat4 {
	f := 1 / math.Tan(fovy/2)
	nf := 1 / (near - far)
	return Mat4{
		0:  f / aspect,
		5:  f,
		10: (far + near) * nf,
		11: -1,
		14: 2 * far * near * nf,
	}
}

// Mul returns a * b, so b applies first.
func (a Mat4) Mul(b Mat4) Mat4 {
	var m Mat4
	for c := range 4 {
		b0, b1, b2, b3 := b[c*4], b[c*4+1], b[c*4+2], b[c*4+3]
		for r := range 4 {
			m[c*4+r] = a[r]*b0 + a[4+r]*b1 + a[8+r]*b2 + a[12+r]*b3
		}
	}
	return m
}

// MulVec3 transforms a point, dividing by w when the matrix is projective.
func (m Mat4) MulVec3(v Vec3) Vec3 {
	p := m.MulVec4(V4FromV3(v, 1))
	if p.W == 0 {
		return Vec3{p.X, p.Y, p.Z}
	}
	return p.PerspectiveDivide()
}

// MulVec3Dir transforms a direction, ignoring translation.
func (m Mat4) MulVec3Dir(v Vec3) Vec3 {
	return Vec3{
		m[0]*v.X + m[4]*v.Y + m[8]*v.Z,
		m[1]*v.X + m[5]*v.Y + m[9]*v.Z,
		m[2]*v.X + m[6]*v.Y + m[10]*v.Z,
	}
}

func (m Mat4) MulVec4(v Vec4) Vec4 {
	return Vec4{
		m[0]*v.X + m[4]*v.Y + m[8]*v.Z + m[12]*v.W,
		m[1]*v.X + m[5]*v.Y + m[9]*v.Z + m[13]*v.W,
		m[2]*v.X + m[6]*v.Y + m[10]*v.Z + m[14]*v.W,
		m[3]*v.X + m[7]*v.Y + m[11]*v.Z + m[15]*v.W,
	}
}

// IsAffine reports whether the bottom row is (0, 0, 0, 1).
func (m Mat4) IsAffine() bool {
	return m[3] == 0 && m[7] == 0 && m[11] == 0 && m[15] == 1
}

// Inverse returns the inverse of m, or the identity when m is singular.
// Tile and node transforms are affine and take the cheaper path.
func (m Mat4) Inverse() Mat4 {
	if m.IsAffine() {
		return m.inverseAffine()
	}
	return m.inverseGeneral()
}

func (m Mat4) inverseAffine() Mat4 {
	// cofactors of the upper 3x3
	c00 := m[5]*m[10] - m[9]*m[6]
	c01 := m[8]*m[6] - m[4]*m[10]
	c02 := m[4]*m[9] - m[8]*m[5]
	det := m[0]*c00 + m[1]*c01 + m[2]*c02
	if det == 0 {
		return Identity()
	}
	inv := 1 / det

	var r Mat4
	r[0] = c00 * inv
	r[4] = c01 * inv
	r[8] = c02 * inv
	r[1] = (m[9]*m[2] - m[1]*m[10]) * inv
	r[5] = (m[0]*m[10] - m[8]*m[2]) * inv
	r[9] = (m[8]*m[1] - m[0]*m[9]) * inv
	r[2] = (m[1]*m[6] - m[5]*m[2]) * inv
	r[6] = (m[4]*m[2] - m[0]*m[6]) * inv
	r[10] = (m[0]*m[5] - m[4]*m[1]) * inv
	r[15] = 1

	t := r.MulVec3Dir(Vec3{m[12], m[13], m[14]})
	r[12], r[13], r[14] = -t.X, -t.Y, -t.Z
	return r
}

// inverseGeneral is Gauss-Jordan elimination with partial pivoting.
func (m Mat4) inverseGeneral() Mat4 {
	a := m
	r := Identity()
	at := func(mat *Mat4, row, col int) *float64 { return &mat[col*4+row] }

	for col := range 4 {
		pivot := col
		for row := col + 1; row < 4; row++ {
			if math.Abs(*at(&a, row, col)) > math.Abs(*at(&a, pivot, col)) {
				pivot = row
			}
		}
		p := *at(&a, pivot, col)
		if p == 0 {
			return Identity()
		}
		if pivot != col {
			for k := range 4 {
				x, y := at(&a, col, k), at(&a, pivot, k)
				*x, *y = *y, *x
				x, y = at(&r, col, k), at(&r, pivot, k)
				*x, *y = *y, *x
			}
		}
		for k := range 4 {
			*at(&a, col, k) /= p
			*at(&r, col, k) /= p
		}
		for row := range 4 {
			if row == col {
				continue
			}
			f := *at(&a, row, col)
			if f == 0 {
				continue
			}
			for k := range 4 {
				*at(&a, row, k) -= f * *at(&a, col, k)
				*at(&r, row, k) -= f * *at(&r, col, k)
			}
		}
	}
	return r
}

// Translation returns column 3.
func (m Mat4) Translation() Vec3 {
	return m.Column(3)
}

// Column returns the first three components of column i.
func (m Mat4) Column(i int) Vec3 {
	return Vec3{m[i*4], m[i*4+1], m[i*4+2]}
}

// ApproxEqual reports whether every element of m and b differs by at most
// eps.
func (m Mat4) ApproxEqual(b Mat4, eps float64) bool {
	for i := range m {
		if math.Abs(m[i]-b[i]) > eps {
			return false
		}
	}
	return true
}

package math3d

import "github.com/chewxy/math32"

// Mat4 is a 4x4 matrix stored in column-major order.
// This matches OpenGL conventions for easier reasoning about transforms.
//
// Memory layout (indices):
// | 0  4  8  12 |
// | 1  5  9  13 |
// | 2  6  10 14 |
// | 3  7  11 15 |
//
// Projections produced by this package map view depth to NDC z in [-1, 1].
type Mat4 [16]float32

// Identity returns the identity matrix.
func Identity() Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Translate creates a translation matrix.
func Translate(v Vec3) Mat4 {
	return Mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		v.X, v.Y, v.Z, 1,
	}
}

// Scale creates a scaling matrix.
func Scale(v Vec3) Mat4 {
	return Mat4{
		v.X, 0, 0, 0,
		0, v.Y, 0, 0,
		0, 0, v.Z, 0,
		0, 0, 0, 1,
	}
}

// ScaleUniform creates a uniform scaling matrix.
func ScaleUniform(s float32) Mat4 {
	return Scale(V3(s, s, s))
}

// RotateX creates a rotation matrix around the X axis.
func RotateX(angle float32) Mat4 {
	c, s := math32.Cos(angle), math32.Sin(angle)
	return Mat4{
		1, 0, 0, 0,
		0, c, s, 0,
		0, -s, c, 0,
		0, 0, 0, 1,
	}
}

// RotateY creates a rotation matrix around the Y axis.
func RotateY(angle float32) Mat4 {
	c, s := math32.Cos(angle), math32.Sin(angle)
	return Mat4{
		c, 0, -s, 0,
		0, 1, 0, 0,
		s, 0, c, 0,
		0, 0, 0, 1,
	}
}

// RotateZ creates a rotation matrix around the Z axis.
func RotateZ(angle float32) Mat4 {
	c, s := math32.Cos(angle), math32.Sin(angle)
	return Mat4{
		c, s, 0, 0,
		-s, c, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// FromQuat creates a rotation matrix from a unit quaternion (x, y, z, w).
func FromQuat(q Vec4) Mat4 {
	x, y, z, w := q.X, q.Y, q.Z, q.W
	return Mat4{
		1 - 2*(y*y+z*z), 2 * (x*y + z*w), 2 * (x*z - y*w), 0,
		2 * (x*y - z*w), 1 - 2*(x*x+z*z), 2 * (y*z + x*w), 0,
		2 * (x*z + y*w), 2 * (y*z - x*w), 1 - 2*(x*x+y*y), 0,
		0, 0, 0, 1,
	}
}

// FromTRS composes translation * rotation * scale.
func FromTRS(t Vec3, r Vec4, s Vec3) Mat4 {
	return Translate(t).Mul(FromQuat(r)).Mul(Scale(s))
}

// LookAt creates a view matrix looking from eye towards center.
func LookAt(eye, center, up Vec3) Mat4 {
	f := center.Sub(eye).Normalize() // Forward
	s := f.Cross(up).Normalize()     // Right
	u := s.Cross(f)                  // Up (recomputed)

	return Mat4{
		s.X, u.X, -f.X, 0,
		s.Y, u.Y, -f.Y, 0,
		s.Z, u.Z, -f.Z, 0,
		-s.Dot(eye), -u.Dot(eye), f.Dot(eye), 1,
	}
}

// Perspective creates a perspective projection matrix.
// fovy is vertical field of view in radians.
// aspect is width/height.
// near and far are clipping planes.
func Perspective(fovy, aspect, near, far float32) Mat4 {
	f := 1.0 / math32.Tan(fovy/2)
	nf := 1.0 / (near - far)

	return Mat4{
		f / aspect, 0, 0, 0,
		0, f, 0, 0,
		0, 0, (far + near) * nf, -1,
		0, 0, 2 * far * near * nf, 0,
	}
}

// Orthographic creates an orthographic projection matrix.
func Orthographic(left, right, bottom, top, near, far float32) Mat4 {
	rl := 1.0 / (right - left)
	tb := 1.0 / (top - bottom)
	fn := 1.0 / (far - near)

	return Mat4{
		2 * rl, 0, 0, 0,
		0, 2 * tb, 0, 0,
		0, 0, -2 * fn, 0,
		-(right + left) * rl, -(top + bottom) * tb, -(far + near) * fn, 1,
	}
}

// Mul multiplies two matrices: a * b.
//
//nolint:st1016 // a*b naming convention is clearer for matrix multiplication
func (a Mat4) Mul(b Mat4) Mat4 {
	var m Mat4
	for col := range 4 {
		for row := range 4 {
			var sum float32
			for k := range 4 {
				sum += a[row+k*4] * b[k+col*4]
			}
			m[row+col*4] = sum
		}
	}
	return m
}

// MulVec3 transforms a Vec3 as a point (w=1) and applies the perspective
// divide.
func (m Mat4) MulVec3(v Vec3) Vec3 {
	w := m[3]*v.X + m[7]*v.Y + m[11]*v.Z + m[15]
	if w == 0 {
		w = 1
	}
	return Vec3{
		(m[0]*v.X + m[4]*v.Y + m[8]*v.Z + m[12]) / w,
		(m[1]*v.X + m[5]*v.Y + m[9]*v.Z + m[13]) / w,
		(m[2]*v.X + m[6]*v.Y + m[10]*v.Z + m[14]) / w,
	}
}

// MulVec3Dir transforms a Vec3 as a direction (w=0, no translation).
func (m Mat4) MulVec3Dir(v Vec3) Vec3 {
	return Vec3{
		m[0]*v.X + m[4]*v.Y + m[8]*v.Z,
		m[1]*v.X + m[5]*v.Y + m[9]*v.Z,
		m[2]*v.X + m[6]*v.Y + m[10]*v.Z,
	}
}

// MulVec4 transforms a Vec4.
func (m Mat4) MulVec4(v Vec4) Vec4 {
	return Vec4{
		m[0]*v.X + m[4]*v.Y + m[8]*v.Z + m[12]*v.W,
		m[1]*v.X + m[5]*v.Y + m[9]*v.Z + m[13]*v.W,
		m[2]*v.X + m[6]*v.Y + m[10]*v.Z + m[14]*v.W,
		m[3]*v.X + m[7]*v.Y + m[11]*v.Z + m[15]*v.W,
	}
}

// Transpose returns the transposed matrix.
func (m Mat4) Transpose() Mat4 {
	return Mat4{
		m[0], m[4], m[8], m[12],
		m[1], m[5], m[9], m[13],
		m[2], m[6], m[10], m[14],
		m[3], m[7], m[11], m[15],
	}
}

// Determinant returns the determinant of the matrix.
func (m Mat4) Determinant() float32 {
	return float32(determinant64(widen(m)))
}

func widen(m Mat4) [16]float64 {
	var w [16]float64
	for i, v := range m {
		w[i] = float64(v)
	}
	return w
}

func determinant64(m [16]float64) float64 {
	return m[0]*(m[5]*(m[10]*m[15]-m[14]*m[11])-m[9]*(m[6]*m[15]-m[14]*m[7])+m[13]*(m[6]*m[11]-m[10]*m[7])) -
		m[4]*(m[1]*(m[10]*m[15]-m[14]*m[11])-m[9]*(m[2]*m[15]-m[14]*m[3])+m[13]*(m[2]*m[11]-m[10]*m[3])) +
		m[8]*(m[1]*(m[6]*m[15]-m[14]*m[7])-m[5]*(m[2]*m[15]-m[14]*m[3])+m[13]*(m[2]*m[7]-m[6]*m[3])) -
		m[12]*(m[1]*(m[6]*m[11]-m[10]*m[7])-m[5]*(m[2]*m[11]-m[10]*m[3])+m[9]*(m[2]*m[7]-m[6]*m[3]))
}

// Inverse returns the inverse of the matrix.
// The cofactor expansion runs in float64; perspective matrices with a
// large far/near ratio lose too much in float32.
// Returns identity if the matrix is singular (det=0).
func (m Mat4) Inverse() Mat4 {
	w := widen(m)
	det := determinant64(w)
	if det == 0 {
		return Identity()
	}

	invDet := 1.0 / det
	var inv [16]float64
	a := w

	inv[0] = (a[5]*(a[10]*a[15]-a[14]*a[11]) - a[9]*(a[6]*a[15]-a[14]*a[7]) + a[13]*(a[6]*a[11]-a[10]*a[7])) * invDet
	inv[1] = -(a[1]*(a[10]*a[15]-a[14]*a[11]) - a[9]*(a[2]*a[15]-a[14]*a[3]) + a[13]*(a[2]*a[11]-a[10]*a[3])) * invDet
	inv[2] = (a[1]*(a[6]*a[15]-a[14]*a[7]) - a[5]*(a[2]*a[15]-a[14]*a[3]) + a[13]*(a[2]*a[7]-a[6]*a[3])) * invDet
	inv[3] = -(a[1]*(a[6]*a[11]-a[10]*a[7]) - a[5]*(a[2]*a[11]-a[10]*a[3]) + a[9]*(a[2]*a[7]-a[6]*a[3])) * invDet

	inv[4] = -(a[4]*(a[10]*a[15]-a[14]*a[11]) - a[8]*(a[6]*a[15]-a[14]*a[7]) + a[12]*(a[6]*a[11]-a[10]*a[7])) * invDet
	inv[5] = (a[0]*(a[10]*a[15]-a[14]*a[11]) - a[8]*(a[2]*a[15]-a[14]*a[3]) + a[12]*(a[2]*a[11]-a[10]*a[3])) * invDet
	inv[6] = -(a[0]*(a[6]*a[15]-a[14]*a[7]) - a[4]*(a[2]*a[15]-a[14]*a[3]) + a[12]*(a[2]*a[7]-a[6]*a[3])) * invDet
	inv[7] = (a[0]*(a[6]*a[11]-a[10]*a[7]) - a[4]*(a[2]*a[11]-a[10]*a[3]) + a[8]*(a[2]*a[7]-a[6]*a[3])) * invDet

	inv[8] = (a[4]*(a[9]*a[15]-a[13]*a[11]) - a[8]*(a[5]*a[15]-a[13]*a[7]) + a[12]*(a[5]*a[11]-a[9]*a[7])) * invDet
	inv[9] = -(a[0]*(a[9]*a[15]-a[13]*a[11]) - a[8]*(a[1]*a[15]-a[13]*a[3]) + a[12]*(a[1]*a[11]-a[9]*a[3])) * invDet
	inv[10] = (a[0]*(a[5]*a[15]-a[13]*a[7]) - a[4]*(a[1]*a[15]-a[13]*a[3]) + a[12]*(a[1]*a[7]-a[5]*a[3])) * invDet
	inv[11] = -(a[0]*(a[5]*a[11]-a[9]*a[7]) - a[4]*(a[1]*a[11]-a[9]*a[3]) + a[8]*(a[1]*a[7]-a[5]*a[3])) * invDet

	inv[12] = -(a[4]*(a[9]*a[14]-a[13]*a[10]) - a[8]*(a[5]*a[14]-a[13]*a[6]) + a[12]*(a[5]*a[10]-a[9]*a[6])) * invDet
	inv[13] = (a[0]*(a[9]*a[14]-a[13]*a[10]) - a[8]*(a[1]*a[14]-a[13]*a[2]) + a[12]*(a[1]*a[10]-a[9]*a[2])) * invDet
	inv[14] = -(a[0]*(a[5]*a[14]-a[13]*a[6]) - a[4]*(a[1]*a[14]-a[13]*a[2]) + a[12]*(a[1]*a[6]-a[5]*a[2])) * invDet
	inv[15] = (a[0]*(a[5]*a[10]-a[9]*a[6]) - a[4]*(a[1]*a[10]-a[9]*a[2]) + a[8]*(a[1]*a[6]-a[5]*a[2])) * invDet

	var out Mat4
	for i, v := range inv {
		out[i] = float32(v)
	}
	return out
}

// Get returns the element at (row, col).
func (m Mat4) Get(row, col int) float32 {
	return m[row+col*4]
}

// Translation extracts the translation component.
func (m Mat4) Translation() Vec3 {
	return Vec3{m[12], m[13], m[14]}
}

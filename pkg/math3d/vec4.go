package math3d

// Vec4 is a homogeneous point in clip space.
type Vec4 struct {
	X, Y, Z, W float64
}

// V4FromV3 extends v with w; w is 1 for points and 0 for directions.
func V4FromV3(v Vec3, w float64) Vec4 {
	return Vec4{v.X, v.Y, v.Z, w}
}

// PerspectiveDivide maps clip space to normalized device coordinates. A
// zero W leaves the components unscaled.
func (v Vec4) PerspectiveDivide() Vec3 {
	if v.W == 0 {
		return Vec3{v.X, v.Y, v.Z}
	}
	inv := 1 / v.W
	return Vec3{v.X * inv, v.Y * inv, v.Z * inv}
}

package scene

import (
	"math"

	"github.com/taigrr/tilekit/pkg/math3d"
)

// Camera is a perspective camera placed by position and Euler angles.
type Camera struct {
	Position math3d.Vec3

	Pitch float64 // about X, radians
	Yaw   float64 // about Y, radians
	Roll  float64 // about Z, radians

	FOV  float64 // vertical, radians
	Near float64
	Far  float64

	// Current marks the camera that renders the game viewport.
	Current bool
}

// NewCamera creates a camera at the origin looking down -Z.
func NewCamera() *Camera {
	return &Camera{
		FOV:  math.Pi / 3,
		Near: 0.1,
		Far:  100000,
	}
}

// Transform returns the camera-to-world transform. Its -Z column is the view
// direction and its Y column the up vector.
func (c *Camera) Transform() math3d.Mat4 {
	return math3d.Translate(c.Position).
		Mul(math3d.RotateY(c.Yaw)).
		Mul(math3d.RotateX(c.Pitch)).
		Mul(math3d.RotateZ(c.Roll))
}

// Forward returns the view direction.
func (c *Camera) Forward() math3d.Vec3 {
	return c.Transform().Column(2).Negate().Normalize()
}

// Up returns the camera up vector.
func (c *Camera) Up() math3d.Vec3 {
	return c.Transform().Column(1).Normalize()
}

// ViewMatrix returns the world-to-camera transform.
func (c *Camera) ViewMatrix() math3d.Mat4 {
	rot := math3d.RotateZ(-c.Roll).Mul(
		math3d.RotateX(-c.Pitch)).Mul(
		math3d.RotateY(-c.Yaw))
	return rot.Mul(math3d.Translate(c.Position.Negate()))
}

// ProjectionMatrix returns the perspective projection for an aspect ratio.
func (c *Camera) ProjectionMatrix(aspect float64) math3d.Mat4 {
	return math3d.Perspective(c.FOV, aspect, c.Near, c.Far)
}

// ViewProjectionMatrix returns projection * view.
func (c *Camera) ViewProjectionMatrix(aspect float64) math3d.Mat4 {
	return c.ProjectionMatrix(aspect).Mul(c.ViewMatrix())
}

// LookAt points the camera at target, clearing roll.
func (c *Camera) LookAt(target math3d.Vec3) {
	dir := target.Sub(c.Position).Normalize()
	c.Pitch = math.Asin(dir.Y)
	c.Yaw = math.Atan2(-dir.X, -dir.Z)
	c.Roll = 0
}

// Viewport is a render target showing the scene through a camera.
type Viewport struct {
	Width  int
	Height int
	Camera *Camera
}

// Aspect returns width / height.
func (v *Viewport) Aspect() float64 {
	if v.Height == 0 {
		return 1
	}
	return float64(v.Width) / float64(v.Height)
}

// WorldToScreen projects a world point into viewport pixels.
func (v *Viewport) WorldToScreen(p math3d.Vec3) (x, y, depth float64, visible bool) {
	clip := v.Camera.ViewProjectionMatrix(v.Aspect()).MulVec4(math3d.V4FromV3(p, 1))
	if clip.W <= 0 {
		return 0, 0, 0, false
	}
	ndc := clip.PerspectiveDivide()
	if ndc.X < -1 || ndc.X > 1 || ndc.Y < -1 || ndc.Y > 1 || ndc.Z < -1 || ndc.Z > 1 {
		return 0, 0, 0, false
	}
	x = (ndc.X + 1) * 0.5 * float64(v.Width)
	y = (1 - ndc.Y) * 0.5 * float64(v.Height)
	return x, y, ndc.Z, true
}

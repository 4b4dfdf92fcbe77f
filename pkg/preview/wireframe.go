package preview

import (
	"image/color"

	"github.com/taigrr/tilekit/pkg/math3d"
	"github.com/taigrr/tilekit/pkg/scene"
)

// Colors used for overlays.
var (
	ColorRed   = color.RGBA{R: 255, A: 255}
	ColorGreen = color.RGBA{G: 255, A: 255}
	ColorBlue  = color.RGBA{B: 255, A: 255}
	ColorGray  = color.RGBA{R: 128, G: 128, B: 128, A: 255}
	ColorWhite = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// ndcLimit bounds how far outside the viewport a line endpoint may be
// before the line is skipped.
const ndcLimit = 4

// project maps a scene point to framebuffer pixels. ok is false behind the
// camera or far outside the viewport.
func (r *Renderer) project(p math3d.Vec3) (x, y int, ok bool) {
	clip := r.viewProj.MulVec4(math3d.V4FromV3(p, 1))
	if clip.W <= 0 {
		return 0, 0, false
	}
	nx, ny := clip.X/clip.W, clip.Y/clip.W
	if nx < -ndcLimit || nx > ndcLimit || ny < -ndcLimit || ny > ndcLimit {
		return 0, 0, false
	}
	x = int((nx + 1) * 0.5 * float64(r.FB.Width))
	y = int((1 - ny) * 0.5 * float64(r.FB.Height))
	return x, y, true
}

// DrawLine3D draws a scene space line with the camera of the last Render.
func (r *Renderer) DrawLine3D(a, b math3d.Vec3, c color.RGBA) bool {
	x0, y0, ok0 := r.project(a)
	x1, y1, ok1 := r.project(b)
	if !ok0 || !ok1 {
		return false
	}
	r.FB.DrawLine(x0, y0, x1, y1, c)
	return true
}

func (r *Renderer) drawEdges(m *scene.Mesh, xf math3d.Mat4) int {
	drawn := 0
	for f := range m.TriangleCount() {
		face := m.Face(f)
		var p [3]math3d.Vec3
		for i, idx := range face {
			p[i] = xf.MulVec3(m.Position(idx))
		}
		c := vertexColor(m, face[0])
		c.A = 255
		hit := false
		for i := range 3 {
			if r.DrawLine3D(p[i], p[(i+1)%3], c) {
				hit = true
			}
		}
		if hit {
			drawn++
		}
	}
	return drawn
}

func (r *Renderer) drawPoints(vp *scene.Viewport, m *scene.Mesh, xf math3d.Mat4) int {
	drawn := 0
	for i := range m.VertexCount() {
		x, y, _, ok := vp.WorldToScreen(xf.MulVec3(m.Position(i)))
		if !ok {
			continue
		}
		c := vertexColor(m, i)
		c.A = 255
		r.FB.SetPixel(int(x), int(y), c)
		drawn++
	}
	return drawn
}

// DrawAxes draws the scene axes at the origin.
func (r *Renderer) DrawAxes(length float64) {
	origin := math3d.Zero3()
	r.DrawLine3D(origin, math3d.V3(length, 0, 0), ColorRed)
	r.DrawLine3D(origin, math3d.V3(0, length, 0), ColorGreen)
	r.DrawLine3D(origin, math3d.V3(0, 0, length), ColorBlue)
}

// DrawGrid draws a size x size grid on the XZ plane at y.
func (r *Renderer) DrawGrid(y, size, step float64, c color.RGBA) {
	if step <= 0 {
		return
	}
	half := size / 2
	for v := -half; v <= half; v += step {
		r.DrawLine3D(math3d.V3(v, y, -half), math3d.V3(v, y, half), c)
		r.DrawLine3D(math3d.V3(-half, y, v), math3d.V3(half, y, v), c)
	}
}

// DrawBox outlines an axis-aligned box.
func (r *Renderer) DrawBox(lo, hi math3d.Vec3, c color.RGBA) {
	corner := func(i int) math3d.Vec3 {
		p := lo
		if i&1 != 0 {
			p.X = hi.X
		}
		if i&2 != 0 {
			p.Y = hi.Y
		}
		if i&4 != 0 {
			p.Z = hi.Z
		}
		return p
	}
	for i := range 8 {
		for _, bit := range []int{1, 2, 4} {
			if i&bit == 0 {
				r.DrawLine3D(corner(i), corner(i|bit), c)
			}
		}
	}
}

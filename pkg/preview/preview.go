package preview

import (
	"image/color"

	"github.com/taigrr/tilekit/pkg/math3d"
	"github.com/taigrr/tilekit/pkg/scene"
)

// Mode selects how meshes are drawn.
type Mode int

const (
	Solid Mode = iota
	Wireframe
)

// Background is the clear colour.
var Background = color.RGBA{R: 135, G: 206, B: 235, A: 255}

// Stats counts what the last Render drew.
type Stats struct {
	Instances int
	Triangles int
	Points    int
}

// Renderer draws the visible mesh instances of a scene tree.
type Renderer struct {
	FB       *Framebuffer
	Viewport *scene.Viewport
	Mode     Mode
	// Light is the direction towards the light in scene space.
	Light math3d.Vec3

	viewProj math3d.Mat4
}

// NewRenderer returns a solid renderer drawing vp into fb.
func NewRenderer(fb *Framebuffer, vp *scene.Viewport) *Renderer {
	return &Renderer{
		FB:       fb,
		Viewport: vp,
		Light:    math3d.V3(0.4, 1, 0.3).Normalize(),
	}
}

// Render clears the framebuffer and draws every visible instance under
// root.
func (r *Renderer) Render(root *scene.Node) Stats {
	var st Stats
	r.FB.Clear(Background)
	if r.Viewport == nil || r.Viewport.Camera == nil || root == nil {
		return st
	}
	vp := *r.Viewport
	vp.Width, vp.Height = r.FB.Width, r.FB.Height
	r.viewProj = vp.Camera.ViewProjectionMatrix(vp.Aspect())

	root.Walk(func(n *scene.Node) {
		if n.Mesh == nil || !n.IsVisibleInTree() {
			return
		}
		st.Instances++
		xf := n.GlobalTransform()
		switch {
		case n.Mesh.Type == scene.PrimitivePoints:
			st.Points += r.drawPoints(&vp, n.Mesh, xf)
		case r.Mode == Wireframe:
			st.Triangles += r.drawEdges(n.Mesh, xf)
		default:
			st.Triangles += r.drawSolid(n.Mesh, xf)
		}
	})
	return st
}

func (r *Renderer) drawSolid(m *scene.Mesh, xf math3d.Mat4) int {
	twoSided := m.Material != nil && m.Material.CullDisabled
	unshaded := m.Material != nil && m.Material.Shading == scene.ShadingUnshaded
	drawn := 0
	for f := range m.TriangleCount() {
		face := m.Face(f)
		var tri [3]vertex
		for i, idx := range face {
			tri[i] = vertex{Position: xf.MulVec3(m.Position(idx)), Color: vertexColor(m, idx)}
		}
		if !unshaded {
			n := tri[1].Position.Sub(tri[0].Position).Cross(tri[2].Position.Sub(tri[0].Position)).Normalize()
			for i := range tri {
				tri[i].Color = shade(tri[i].Color, n, r.Light)
			}
		}
		if r.fillTriangle(tri, twoSided) {
			drawn++
		}
	}
	return drawn
}

// vertexColor combines the material albedo, the albedo texture sampled at
// the vertex and the vertex colour.
func vertexColor(m *scene.Mesh, idx int) color.RGBA {
	c := [4]float64{1, 1, 1, 1}
	if mat := m.Material; mat != nil {
		c = mat.Albedo
		if b, ok := mat.Texture(scene.SlotAlbedo); ok && b.Texture != nil && b.UVSlot < len(m.UVs) && idx < len(m.UVs[b.UVSlot]) {
			uv := m.UVs[b.UVSlot][idx]
			u := float64(uv[0])*mat.UV1Scale.X + mat.UV1Offset.X
			v := float64(uv[1])*mat.UV1Scale.Y + mat.UV1Offset.Y
			t := b.Texture.At(int(u*float64(b.Texture.Width()-1)), int(v*float64(b.Texture.Height()-1)))
			c = [4]float64{c[0] * float64(t.R) / 255, c[1] * float64(t.G) / 255, c[2] * float64(t.B) / 255, c[3] * float64(t.A) / 255}
		}
	}
	if idx < len(m.Colors) {
		vc := m.Colors[idx]
		for i := range c {
			c[i] *= float64(vc[i]) / 255
		}
	}
	to8 := func(f float64) uint8 { return uint8(max(0, min(1, f)) * 255) }
	out := color.RGBA{R: to8(c[0]), G: to8(c[1]), B: to8(c[2]), A: to8(c[3])}
	if m.Material == nil || m.Material.Transparency == scene.TransparencyDisabled {
		out.A = 255
	}
	return out
}

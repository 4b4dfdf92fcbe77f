package scene

import (
	"image/color"
	"math"
	"testing"

	"github.com/taigrr/tilekit/pkg/math3d"
)

func TestNodeAddRemove(t *testing.T) {
	root := NewNode("root")
	a := NewNode("a")
	b := NewMeshInstance("b", &Mesh{})

	root.AddChild(a)
	a.AddChild(b)
	if b.Parent() != a || len(a.Children()) != 1 {
		t.Fatal("b not attached to a")
	}
	if b.Visible {
		t.Error("mesh instances start hidden")
	}

	root.AddChild(b)
	if b.Parent() != root || len(a.Children()) != 0 {
		t.Error("AddChild should reparent")
	}
	if !root.RemoveChild(b) {
		t.Error("RemoveChild() = false, want true")
	}
	if root.RemoveChild(b) {
		t.Error("second RemoveChild() = true, want false")
	}
	if b.Parent() != nil {
		t.Error("removed node keeps parent")
	}
}

func TestGlobalTransformAndVisibility(t *testing.T) {
	root := NewNode("root")
	root.Transform = math3d.Translate(math3d.V3(1, 0, 0))
	child := NewNode("child")
	child.Transform = math3d.Translate(math3d.V3(0, 2, 0))
	root.AddChild(child)

	if got := child.GlobalTransform().Translation(); got != math3d.V3(1, 2, 0) {
		t.Errorf("GlobalTransform translation = %v", got)
	}
	root.Visible = false
	if child.IsVisibleInTree() {
		t.Error("child of hidden root reported visible")
	}
}

func TestIsDegenerate(t *testing.T) {
	tests := []struct {
		name      string
		positions [][3]float32
		want      bool
	}{
		{"two vertices", [][3]float32{{0, 0, 0}, {1, 0, 0}}, true},
		{"coincident pair", [][3]float32{{0, 0, 0}, {1, 0, 0}, {1, 0.000001, 0}}, true},
		{"triangle", [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}, false},
		{"four vertices", [][3]float32{{0, 0, 0}, {0, 0, 0}, {0, 0, 0}, {0, 0, 0}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Mesh{Positions: tt.positions}
			if got := m.IsDegenerate(); got != tt.want {
				t.Errorf("IsDegenerate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBakeConvex(t *testing.T) {
	m := &Mesh{Positions: [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 1, 0}}}
	shape := BakeConvex(m)
	if shape == nil || len(shape.Points) != 3 {
		t.Fatalf("BakeConvex() = %+v, want 3 unique points", shape)
	}
	m.Type = PrimitivePoints
	if BakeConvex(m) != nil {
		t.Error("point meshes get no collision")
	}
}

func TestMaterialDefaults(t *testing.T) {
	m := NewMaterial()
	if m.Albedo != [4]float64{1, 1, 1, 1} || m.Metallic != 1 || m.Roughness != 1 {
		t.Errorf("NewMaterial() = %+v", m)
	}
	m.SetParam("x", 1)
	if v, ok := m.Param("x"); !ok || v != 1 {
		t.Errorf("Param(x) = %v, %v", v, ok)
	}
	m.ClearParam("x")
	if m.ParamCount() != 0 {
		t.Error("ClearParam left the parameter")
	}
}

func TestGenerateMipmaps(t *testing.T) {
	tex := NewSolidTexture(8, 4, color.RGBA{R: 200, A: 255})
	tex.GenerateMipmaps()
	if len(tex.Mipmaps) != 3 {
		t.Fatalf("len(Mipmaps) = %d, want 3", len(tex.Mipmaps))
	}
	last := tex.Mipmaps[len(tex.Mipmaps)-1].Bounds()
	if last.Dx() != 1 || last.Dy() != 1 {
		t.Errorf("last level = %v, want 1x1", last)
	}
	if got := tex.At(7, 3); got.R != 200 {
		t.Errorf("At(7,3) = %v", got)
	}
	if got := tex.At(8, 0); got != (color.RGBA{}) {
		t.Errorf("At(8,0) = %v, want zero", got)
	}
}

func TestCameraBasis(t *testing.T) {
	tests := []struct {
		name    string
		yaw     float64
		pitch   float64
		forward math3d.Vec3
	}{
		{"default", 0, 0, math3d.V3(0, 0, -1)},
		{"yaw quarter", math.Pi / 2, 0, math3d.V3(-1, 0, 0)},
		{"pitch up", 0, math.Pi / 2, math3d.V3(0, 1, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCamera()
			c.Yaw, c.Pitch = tt.yaw, tt.pitch
			if d := c.Forward().Distance(tt.forward); d > 1e-9 {
				t.Errorf("Forward() = %v, want %v", c.Forward(), tt.forward)
			}
		})
	}
}

func TestLookAtMatchesForward(t *testing.T) {
	c := NewCamera()
	c.Position = math3d.V3(10, 5, 10)
	c.LookAt(math3d.Zero3())
	want := math3d.Zero3().Sub(c.Position).Normalize()
	if d := c.Forward().Distance(want); d > 1e-9 {
		t.Errorf("Forward() = %v, want %v", c.Forward(), want)
	}

	vp := &Viewport{Width: 100, Height: 100, Camera: c}
	x, y, _, ok := vp.WorldToScreen(math3d.Zero3())
	if !ok || math.Abs(x-50) > 1e-6 || math.Abs(y-50) > 1e-6 {
		t.Errorf("WorldToScreen(target) = %v, %v, %v", x, y, ok)
	}
}

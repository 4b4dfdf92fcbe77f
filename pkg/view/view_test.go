package view

import (
	"math"
	"testing"

	"github.com/taigrr/tilekit/pkg/math3d"
	"github.com/taigrr/tilekit/pkg/scene"
)

func viewport(w, h int) *scene.Viewport {
	return &scene.Viewport{Width: w, Height: h, Camera: scene.NewCamera()}
}

func TestHorizontalFOV(t *testing.T) {
	tests := []struct {
		name       string
		vfov, w, h float64
		want       float64
	}{
		{"square", math.Pi / 2, 100, 100, math.Pi / 2},
		{"wide", math.Pi / 2, 200, 100, 2 * math.Atan(2)},
		{"tall", math.Pi / 3, 100, 200, 2 * math.Atan(0.5*math.Tan(math.Pi/6))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HorizontalFOV(tt.vfov, tt.w, tt.h); math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("HorizontalFOV() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestViewStatesViewportGuard(t *testing.T) {
	tests := []struct {
		name   string
		ctx    Context
		states int
	}{
		{"game camera", Context{Viewport: viewport(800, 600)}, 1},
		{"exactly 50 wide", Context{Viewport: viewport(50, 600)}, 0},
		{"51 by 51", Context{Viewport: viewport(51, 51)}, 1},
		{"no camera", Context{Viewport: &scene.Viewport{Width: 800, Height: 600}}, 0},
		{"editor viewports ignored outside editor", Context{
			Viewport:        viewport(800, 600),
			EditorViewports: []*scene.Viewport{viewport(400, 300)},
		}, 1},
		{"editor viewports capped at four", Context{
			Editor: true,
			EditorViewports: []*scene.Viewport{
				viewport(400, 300), viewport(400, 300), viewport(10, 10),
				viewport(400, 300), viewport(400, 300),
			},
		}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.ctx.WorldToTileset = math3d.Identity()
			if got := NewProducer(nil).ViewStates(tt.ctx); len(got) != tt.states {
				t.Errorf("len(ViewStates()) = %d, want %d", len(got), tt.states)
			}
		})
	}
}

func TestFromCameraTransforms(t *testing.T) {
	cam := scene.NewCamera()
	cam.Position = math3d.V3(1, 2, 3)
	cam.FOV = math.Pi / 4

	worldToTileset := math3d.Translate(math3d.V3(10, 0, 0)).Mul(math3d.ScaleUniform(2))
	geo := &Georeference{LocalToGlobal: math3d.RotateX(math.Pi / 2)}

	vs := FromCamera(cam, 200, 100, worldToTileset, geo)

	// (1,2,3)*2 + (10,0,0) = (12,4,6), then Y->Z rotation gives (12,-6,4).
	if d := vs.Position.Distance(math3d.V3(12, -6, 4)); d > 1e-9 {
		t.Errorf("Position = %v", vs.Position)
	}
	// -Z becomes +Y once rotated about X.
	if d := vs.Direction.Distance(math3d.V3(0, 1, 0)); d > 1e-9 {
		t.Errorf("Direction = %v", vs.Direction)
	}
	if d := vs.Up.Distance(math3d.V3(0, 0, 1)); d > 1e-9 {
		t.Errorf("Up = %v", vs.Up)
	}
	if math.Abs(vs.Direction.Len()-1) > 1e-12 || math.Abs(vs.Up.Len()-1) > 1e-12 {
		t.Error("direction and up must be unit length")
	}
	if vs.VerticalFOV != math.Pi/4 || vs.ViewportSize != math3d.V2(200, 100) {
		t.Errorf("fov/size = %v / %v", vs.VerticalFOV, vs.ViewportSize)
	}
	if want := HorizontalFOV(math.Pi/4, 200, 100); vs.HorizontalFOV != want {
		t.Errorf("HorizontalFOV = %v, want %v", vs.HorizontalFOV, want)
	}
}

func TestFrustumCulling(t *testing.T) {
	vs := ViewState{
		Position:     math3d.Zero3(),
		Direction:    math3d.V3(0, 0, -1),
		Up:           math3d.V3(0, 1, 0),
		ViewportSize: math3d.V2(100, 100),
		VerticalFOV:  math.Pi / 2,
	}
	f := NewFrustum(vs, 0.1, 100)

	tests := []struct {
		name string
		box  AABB
		want bool
	}{
		{"ahead", AABB{Min: math3d.V3(-1, -1, -11), Max: math3d.V3(1, 1, -9)}, true},
		{"behind", AABB{Min: math3d.V3(-1, -1, 9), Max: math3d.V3(1, 1, 11)}, false},
		{"beyond far", AABB{Min: math3d.V3(-1, -1, -300), Max: math3d.V3(1, 1, -200)}, false},
		{"straddling left plane", AABB{Min: math3d.V3(-20, -1, -11), Max: math3d.V3(-9, 1, -9)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.IntersectAABB(tt.box); got != tt.want {
				t.Errorf("IntersectAABB() = %v, want %v", got, tt.want)
			}
		})
	}
	if !f.ContainsPoint(math3d.V3(0, 0, -5)) || f.ContainsPoint(math3d.V3(0, 0, 5)) {
		t.Error("ContainsPoint() disagrees with the view direction")
	}
}

func TestPlaneNormalize(t *testing.T) {
	plane := Plane{Normal: math3d.V3(0, 3, 4), D: 10}
	plane.Normalize()
	if math.Abs(plane.Normal.Len()-1) > 1e-9 || math.Abs(plane.D-2) > 1e-9 {
		t.Errorf("Normalize() = %+v", plane)
	}
}

func TestAABBTransform(t *testing.T) {
	box := AABB{Min: math3d.V3(-1, -1, -1), Max: math3d.V3(1, 1, 1)}
	got := box.Transform(math3d.Translate(math3d.V3(5, 0, 0)).Mul(math3d.RotateY(math.Pi / 4)))
	r := math.Sqrt2
	if math.Abs(got.Max.X-(5+r)) > 1e-9 || math.Abs(got.Min.Z+r) > 1e-9 {
		t.Errorf("Transform() = %+v", got)
	}
}

package main

import (
	"math"
	"testing"

	"github.com/taigrr/tilekit/pkg/math3d"
	"github.com/taigrr/tilekit/pkg/scene"
	"github.com/taigrr/tilekit/pkg/view"
)

func TestOrbitFrameLooksAtCenter(t *testing.T) {
	o := NewOrbit(30)
	cam := scene.NewCamera()
	box := view.AABB{Min: math3d.V3(10, 0, 10), Max: math3d.V3(14, 2, 12)}

	o.Frame(box, cam.FOV)
	o.Snap()
	o.Apply(cam)

	center := box.Center()
	if d := cam.Position.Distance(center); math.Abs(d-o.Distance) > 1e-9 {
		t.Errorf("distance = %v, want %v", d, o.Distance)
	}
	want := center.Sub(cam.Position).Normalize()
	if got := cam.Forward(); got.Dot(want) < 0.9999 {
		t.Errorf("forward = %v, want %v", got, want)
	}
	// the whole box fits in the vertical field of view
	radius := box.Max.Sub(box.Min).Len() / 2
	if math.Asin(radius/o.Distance) > cam.FOV/2 {
		t.Error("box does not fit")
	}
}

func TestOrbitRotateClampsPitch(t *testing.T) {
	tests := []struct {
		name  string
		pitch float64
		want  float64
	}{
		{"up", 10, maxPitch},
		{"down", -10, -maxPitch},
		{"small", 0.2, 0.7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := NewOrbit(30)
			o.Rotate(0, tt.pitch)
			if math.Abs(o.Pitch-tt.want) > 1e-9 {
				t.Errorf("Pitch = %v, want %v", o.Pitch, tt.want)
			}
		})
	}
}

func TestOrbitEasesTowardsTarget(t *testing.T) {
	o := NewOrbit(30)
	start := o.yaw.pos
	o.Rotate(1, 0)
	for range 300 {
		o.Update()
	}
	if math.Abs(o.yaw.pos-(start+1)) > 1e-3 {
		t.Errorf("yaw = %v, want %v", o.yaw.pos, start+1)
	}

	o.Zoom(0)
	if o.Distance != minDistance {
		t.Errorf("Distance = %v, want %v", o.Distance, minDistance)
	}
}

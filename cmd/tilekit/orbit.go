package main

import (
	"math"

	"github.com/charmbracelet/harmonica"
	"github.com/taigrr/tilekit/pkg/math3d"
	"github.com/taigrr/tilekit/pkg/scene"
	"github.com/taigrr/tilekit/pkg/view"
)

const (
	maxPitch    = 1.5
	minDistance = 0.1
)

// axis is one spring-driven orbit coordinate chasing its target.
type axis struct {
	pos float64
	vel float64
}

func (a *axis) update(s harmonica.Spring, target float64) {
	a.pos, a.vel = s.Update(a.pos, a.vel, target)
}

// Orbit places a camera on a sphere around Center. Yaw, Pitch and Distance
// are targets; the camera eases towards them with a critically damped
// spring.
type Orbit struct {
	Center   math3d.Vec3
	Yaw      float64
	Pitch    float64 // positive looks down on the center
	Distance float64

	spring          harmonica.Spring
	yaw, pitch, dst axis
}

// NewOrbit returns an orbit updated fps times per second.
func NewOrbit(fps int) *Orbit {
	o := &Orbit{
		spring: harmonica.NewSpring(harmonica.FPS(fps), 6.0, 1.0),
	}
	o.Reset()
	return o
}

// Reset restores the default angles and snaps to them.
func (o *Orbit) Reset() {
	o.Yaw, o.Pitch, o.Distance = 0.6, 0.5, 10
	o.Snap()
}

// Snap jumps to the targets without easing.
func (o *Orbit) Snap() {
	o.yaw = axis{pos: o.Yaw}
	o.pitch = axis{pos: o.Pitch}
	o.dst = axis{pos: o.Distance}
}

// Rotate moves the targets by the given angles.
func (o *Orbit) Rotate(yaw, pitch float64) {
	o.Yaw += yaw
	o.Pitch = math.Max(-maxPitch, math.Min(maxPitch, o.Pitch+pitch))
}

// Zoom scales the target distance.
func (o *Orbit) Zoom(factor float64) {
	o.Distance = math.Max(minDistance, o.Distance*factor)
}

// Frame centers the orbit on box at a distance that fits it in a camera
// with vertical field of view fov.
func (o *Orbit) Frame(box view.AABB, fov float64) {
	o.Center = box.Center()
	radius := box.Max.Sub(box.Min).Len() / 2
	if radius <= 0 {
		radius = 1
	}
	o.Distance = math.Max(minDistance, radius/math.Sin(fov/2)*1.1)
}

// Update advances the springs by one frame.
func (o *Orbit) Update() {
	o.yaw.update(o.spring, o.Yaw)
	o.pitch.update(o.spring, o.Pitch)
	o.dst.update(o.spring, o.Distance)
}

// Apply positions cam on the orbit looking at the center.
func (o *Orbit) Apply(cam *scene.Camera) {
	d := math.Max(minDistance, o.dst.pos)
	cp := math.Cos(o.pitch.pos)
	offset := math3d.V3(cp*math.Sin(o.yaw.pos), math.Sin(o.pitch.pos), cp*math.Cos(o.yaw.pos))
	cam.Position = o.Center.Add(offset.Scale(d))
	cam.LookAt(o.Center)
	cam.Far = math.Max(100000, d*100)
}

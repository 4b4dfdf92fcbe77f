package view

import (
	"github.com/taigrr/tilekit/pkg/math3d"
)

// Plane is the plane Normal . p + D = 0.
type Plane struct {
	Normal math3d.Vec3
	D      float64
}

// Normalize scales the plane so the normal has unit length.
func (p *Plane) Normalize() {
	l := p.Normal.Len()
	if l == 0 {
		return
	}
	p.Normal = p.Normal.Scale(1.0 / l)
	p.D /= l
}

// DistanceToPoint returns the signed distance from the plane to a point,
// positive on the normal side.
func (p Plane) DistanceToPoint(point math3d.Vec3) float64 {
	return p.Normal.Dot(point) + p.D
}

// Frustum holds six inward facing planes: left, right, bottom, top, near,
// far.
type Frustum struct {
	Planes [6]Plane
}

const (
	FrustumLeft = iota
	FrustumRight
	FrustumBottom
	FrustumTop
	FrustumNear
	FrustumFar
)

// NewFrustumFromMatrix extracts the planes of a view-projection matrix
// (Gribb/Hartmann). Row i element j of the column-major m is m[i+j*4].
func NewFrustumFromMatrix(m math3d.Mat4) Frustum {
	var f Frustum
	row := func(i int) (float64, float64, float64, float64) {
		return m[i], m[i+4], m[i+8], m[i+12]
	}
	wx, wy, wz, ww := row(3)
	for axis := range 3 {
		x, y, z, w := row(axis)
		f.Planes[2*axis] = Plane{Normal: math3d.V3(wx+x, wy+y, wz+z), D: ww + w}
		f.Planes[2*axis+1] = Plane{Normal: math3d.V3(wx-x, wy-y, wz-z), D: ww - w}
	}
	for i := range f.Planes {
		f.Planes[i].Normalize()
	}
	return f
}

// NewFrustum builds the frustum of a view state between near and far.
func NewFrustum(v ViewState, near, far float64) Frustum {
	view := math3d.LookAt(v.Position, v.Position.Add(v.Direction), v.Up)
	proj := math3d.Perspective(v.VerticalFOV, v.Aspect(), near, far)
	return NewFrustumFromMatrix(proj.Mul(view))
}

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min math3d.Vec3
	Max math3d.Vec3
}

// Center returns the center of the box.
func (b AABB) Center() math3d.Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// Transform returns the box bounding the eight transformed corners.
func (b AABB) Transform(m math3d.Mat4) AABB {
	out := AABB{Min: m.MulVec3(b.Min), Max: m.MulVec3(b.Min)}
	for i := 1; i < 8; i++ {
		c := b.Min
		if i&1 != 0 {
			c.X = b.Max.X
		}
		if i&2 != 0 {
			c.Y = b.Max.Y
		}
		if i&4 != 0 {
			c.Z = b.Max.Z
		}
		p := m.MulVec3(c)
		out.Min = out.Min.Min(p)
		out.Max = out.Max.Max(p)
	}
	return out
}

// Union returns the box bounding both b and o.
func (b AABB) Union(o AABB) AABB {
	return AABB{Min: b.Min.Min(o.Min), Max: b.Max.Max(o.Max)}
}

// IntersectAABB reports whether any part of box is inside the frustum, using
// the positive vertex of each plane.
func (f Frustum) IntersectAABB(box AABB) bool {
	for _, plane := range f.Planes {
		p := box.Min
		if plane.Normal.X >= 0 {
			p.X = box.Max.X
		}
		if plane.Normal.Y >= 0 {
			p.Y = box.Max.Y
		}
		if plane.Normal.Z >= 0 {
			p.Z = box.Max.Z
		}
		if plane.DistanceToPoint(p) < 0 {
			return false
		}
	}
	return true
}

// ContainsPoint reports whether p is inside the frustum.
func (f Frustum) ContainsPoint(p math3d.Vec3) bool {
	for _, plane := range f.Planes {
		if plane.DistanceToPoint(p) < 0 {
			return false
		}
	}
	return true
}

package preview

import (
	"image/color"
	"math"

	"github.com/taigrr/tilekit/pkg/math3d"
)

// vertex is one corner of a triangle ready for rasterization.
type vertex struct {
	Position math3d.Vec3 // scene space
	Color    color.RGBA
}

type screenVertex struct {
	X, Y, Z float64
	W       float64
	Color   color.RGBA
}

// edgeCoeffs returns A, B, C of the edge function A*x + B*y + C.
func edgeCoeffs(x0, y0, x1, y1 float64) (a, b, c float64) {
	return y0 - y1, x1 - x0, x0*y1 - x1*y0
}

// fillTriangle rasterizes a triangle with depth testing. Front faces wind
// clockwise in scene space; back faces are skipped unless twoSided is set.
// Translucent colours are blended and do not write depth.
func (r *Renderer) fillTriangle(tri [3]vertex, twoSided bool) bool {
	fb := r.FB
	viewProj := r.viewProj

	var sv [3]screenVertex
	for i, v := range tri {
		clip := viewProj.MulVec4(math3d.V4FromV3(v.Position, 1))
		// Triangles crossing the near plane are dropped rather than clipped.
		if clip.W <= 0 {
			return false
		}
		inv := 1 / clip.W
		sv[i] = screenVertex{
			X:     (clip.X*inv + 1) * 0.5 * float64(fb.Width),
			Y:     (1 - clip.Y*inv) * 0.5 * float64(fb.Height),
			Z:     clip.Z * inv,
			W:     clip.W,
			Color: v.Color,
		}
	}

	area := (sv[1].X-sv[0].X)*(sv[2].Y-sv[0].Y) - (sv[1].Y-sv[0].Y)*(sv[2].X-sv[0].X)
	if area == 0 || (area < 0 && !twoSided) {
		return false
	}

	minX := max(0, int(math.Floor(min(sv[0].X, sv[1].X, sv[2].X))))
	maxX := min(fb.Width-1, int(math.Ceil(max(sv[0].X, sv[1].X, sv[2].X))))
	minY := max(0, int(math.Floor(min(sv[0].Y, sv[1].Y, sv[2].Y))))
	maxY := min(fb.Height-1, int(math.Ceil(max(sv[0].Y, sv[1].Y, sv[2].Y))))
	if minX > maxX || minY > maxY {
		return false
	}

	a0, b0, c0 := edgeCoeffs(sv[1].X, sv[1].Y, sv[2].X, sv[2].Y)
	a1, b1, c1 := edgeCoeffs(sv[2].X, sv[2].Y, sv[0].X, sv[0].Y)
	a2, b2, c2 := edgeCoeffs(sv[0].X, sv[0].Y, sv[1].X, sv[1].Y)
	inv := 1 / area

	translucent := sv[0].Color.A < 255 || sv[1].Color.A < 255 || sv[2].Color.A < 255
	drawn := false
	for y := minY; y <= maxY; y++ {
		py := float64(y) + 0.5
		for x := minX; x <= maxX; x++ {
			px := float64(x) + 0.5
			w0 := (a0*px + b0*py + c0) * inv
			w1 := (a1*px + b1*py + c1) * inv
			w2 := (a2*px + b2*py + c2) * inv
			if w0 < 0 || w1 < 0 || w2 < 0 {
				continue
			}
			z := w0*sv[0].Z + w1*sv[1].Z + w2*sv[2].Z
			if !fb.testDepth(x, y, z, !translucent) {
				continue
			}
			c := lerpColor(sv[0].Color, sv[1].Color, sv[2].Color, w0, w1, w2)
			if translucent {
				fb.BlendPixel(x, y, c)
			} else {
				fb.SetPixel(x, y, c)
			}
			drawn = true
		}
	}
	return drawn
}

func lerpColor(c0, c1, c2 color.RGBA, w0, w1, w2 float64) color.RGBA {
	ch := func(a, b, c uint8) uint8 {
		v := float64(a)*w0 + float64(b)*w1 + float64(c)*w2
		return uint8(math.Round(math.Max(0, math.Min(255, v))))
	}
	return color.RGBA{
		R: ch(c0.R, c1.R, c2.R),
		G: ch(c0.G, c1.G, c2.G),
		B: ch(c0.B, c1.B, c2.B),
		A: ch(c0.A, c1.A, c2.A),
	}
}

// shade scales c by a Lambert term with an ambient floor.
func shade(c color.RGBA, normal, light math3d.Vec3) color.RGBA {
	intensity := 0.3 + 0.7*math.Abs(normal.Dot(light))
	return color.RGBA{
		R: uint8(float64(c.R) * intensity),
		G: uint8(float64(c.G) * intensity),
		B: uint8(float64(c.B) * intensity),
		A: c.A,
	}
}

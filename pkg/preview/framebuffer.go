// Package preview draws the scene graph into a framebuffer shown in the
// terminal with half-block characters.
package preview

import (
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
)

// Framebuffer is a row-major RGBA canvas with a depth buffer. Height is
// twice the terminal rows it is drawn into.
type Framebuffer struct {
	Width  int
	Height int
	Pixels []color.RGBA
	depth  []float64
}

// NewFramebuffer creates a framebuffer with the given dimensions.
func NewFramebuffer(width, height int) *Framebuffer {
	return &Framebuffer{
		Width:  width,
		Height: height,
		Pixels: make([]color.RGBA, width*height),
		depth:  make([]float64, width*height),
	}
}

// Resize reallocates the buffers when the dimensions change.
func (fb *Framebuffer) Resize(width, height int) {
	if fb.Width == width && fb.Height == height {
		return
	}
	*fb = *NewFramebuffer(width, height)
}

// Clear fills the framebuffer with c and resets the depth buffer.
func (fb *Framebuffer) Clear(c color.RGBA) {
	for i := range fb.Pixels {
		fb.Pixels[i] = c
	}
	n := len(fb.depth)
	if n == 0 {
		return
	}
	fb.depth[0] = math.MaxFloat64
	for i := 1; i < n; i *= 2 {
		copy(fb.depth[i:], fb.depth[:i])
	}
}

// SetPixel sets (x, y) to c. Out of range writes are dropped.
func (fb *Framebuffer) SetPixel(x, y int, c color.RGBA) {
	if x < 0 || x >= fb.Width || y < 0 || y >= fb.Height {
		return
	}
	fb.Pixels[y*fb.Width+x] = c
}

// BlendPixel composites c over (x, y) using c's alpha.
func (fb *Framebuffer) BlendPixel(x, y int, c color.RGBA) {
	if x < 0 || x >= fb.Width || y < 0 || y >= fb.Height {
		return
	}
	if c.A == 255 {
		fb.Pixels[y*fb.Width+x] = c
		return
	}
	dst := &fb.Pixels[y*fb.Width+x]
	a := uint32(c.A)
	blend := func(s, d uint8) uint8 {
		return uint8((uint32(s)*a + uint32(d)*(255-a)) / 255)
	}
	dst.R = blend(c.R, dst.R)
	dst.G = blend(c.G, dst.G)
	dst.B = blend(c.B, dst.B)
	dst.A = 255
}

// At returns the pixel at (x, y), or transparent black outside.
func (fb *Framebuffer) At(x, y int) color.RGBA {
	if x < 0 || x >= fb.Width || y < 0 || y >= fb.Height {
		return color.RGBA{}
	}
	return fb.Pixels[y*fb.Width+x]
}

// testDepth reports whether z is nearer than the stored depth at (x, y) and
// stores it when it is.
func (fb *Framebuffer) testDepth(x, y int, z float64, write bool) bool {
	if x < 0 || x >= fb.Width || y < 0 || y >= fb.Height {
		return false
	}
	i := y*fb.Width + x
	if z >= fb.depth[i] {
		return false
	}
	if write {
		fb.depth[i] = z
	}
	return true
}

// DrawLine draws a line with Bresenham's algorithm.
func (fb *Framebuffer) DrawLine(x0, y0, x1, y1 int, c color.RGBA) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	for {
		fb.SetPixel(x0, y0, c)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// Image returns a copy of the framebuffer as an image.
func (fb *Framebuffer) Image() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, fb.Width, fb.Height))
	for y := range fb.Height {
		for x := range fb.Width {
			img.SetRGBA(x, y, fb.Pixels[y*fb.Width+x])
		}
	}
	return img
}

// SavePNG writes the framebuffer to path.
func (fb *Framebuffer) SavePNG(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, fb.Image()); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

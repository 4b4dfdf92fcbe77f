package scene

import (
	"image"
	"image/color"

	"github.com/anthonynsimon/bild/clone"
	"github.com/anthonynsimon/bild/transform"
)

// Texture is a decoded RGBA image with an optional mip chain.
type Texture struct {
	Name    string
	Image   *image.RGBA
	Mipmaps []*image.RGBA // level 1 and smaller
}

// NewTexture creates a transparent texture with the given dimensions.
func NewTexture(width, height int) *Texture {
	return &Texture{Image: image.NewRGBA(image.Rect(0, 0, width, height))}
}

// NewSolidTexture creates a texture filled with one colour.
func NewSolidTexture(width, height int, c color.RGBA) *Texture {
	tex := NewTexture(width, height)
	for i := 0; i < len(tex.Image.Pix); i += 4 {
		tex.Image.Pix[i] = c.R
		tex.Image.Pix[i+1] = c.G
		tex.Image.Pix[i+2] = c.B
		tex.Image.Pix[i+3] = c.A
	}
	return tex
}

// TextureFromImage copies img into a texture.
func TextureFromImage(img image.Image) *Texture {
	return &Texture{Image: clone.AsRGBA(img)}
}

// Width returns the width of level 0.
func (t *Texture) Width() int { return t.Image.Bounds().Dx() }

// Height returns the height of level 0.
func (t *Texture) Height() int { return t.Image.Bounds().Dy() }

// GenerateMipmaps builds the mip chain down to 1x1, halving each level.
// Existing levels are replaced.
func (t *Texture) GenerateMipmaps() {
	t.Mipmaps = t.Mipmaps[:0]
	w, h := t.Width(), t.Height()
	prev := t.Image
	for w > 1 || h > 1 {
		w = max(w/2, 1)
		h = max(h/2, 1)
		prev = transform.Resize(prev, w, h, transform.Linear)
		t.Mipmaps = append(t.Mipmaps, prev)
	}
}

// At returns the level 0 pixel at (x, y), or transparent black outside the
// image.
func (t *Texture) At(x, y int) color.RGBA {
	if !(image.Point{x, y}.In(t.Image.Bounds())) {
		return color.RGBA{}
	}
	return t.Image.RGBAAt(x, y)
}

package overlay

import (
	"image"
	"image/color"
	"math/rand/v2"

	"github.com/taigrr/tilekit/pkg/scene"
)

// RasterResult is a decoded overlay tile produced off the main goroutine.
type RasterResult struct {
	Image *image.RGBA
}

// Texture is an overlay tile uploaded as a scene texture, keyed by the
// overlay's material key.
type Texture struct {
	Key     string
	Texture *scene.Texture
}

// debugTileSize is the edge length of generated debug tiles.
const debugTileSize = 4

// DebugColorizeImage returns a half transparent tile of one random colour.
func DebugColorizeImage(rng *rand.Rand) *image.RGBA {
	c := color.RGBA{
		R: uint8(rng.IntN(256)),
		G: uint8(rng.IntN(256)),
		B: uint8(rng.IntN(256)),
		A: 128,
	}
	return scene.NewSolidTexture(debugTileSize, debugTileSize, c).Image
}

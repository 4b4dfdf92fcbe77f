package scene

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"

	"github.com/anthonynsimon/bild/clone"
	"github.com/h2non/filetype"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"
)

// ErrUnsupportedImage is returned for bytes that are not a known raster
// format.
var ErrUnsupportedImage = errors.New("unsupported image format")

// Decode sniffs the encoding of data and decodes it.
func Decode(data []byte) (image.Image, error) {
	kind, err := filetype.Match(data)
	if err != nil {
		return nil, fmt.Errorf("sniff image: %w", err)
	}
	r := bytes.NewReader(data)
	switch kind.Extension {
	case "png":
		return png.Decode(r)
	case "jpg":
		return jpeg.Decode(r)
	case "gif":
		return gif.Decode(r)
	case "webp":
		return webp.Decode(r)
	case "bmp":
		return bmp.Decode(r)
	case "tif":
		return tiff.Decode(r)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedImage, kind.MIME.Value)
}

// DecodeTexture decodes data into a texture.
func DecodeTexture(data []byte) (*Texture, error) {
	img, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return &Texture{Image: clone.AsRGBA(img)}, nil
}

package scene

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func TestDecode(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 2, 2))
	src.Set(1, 1, color.RGBA{R: 10, G: 20, B: 30, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		t.Fatal(err)
	}

	tex, err := DecodeTexture(buf.Bytes())
	if err != nil {
		t.Fatalf("DecodeTexture() error = %v", err)
	}
	if got := tex.Image.RGBAAt(1, 1); got != (color.RGBA{R: 10, G: 20, B: 30, A: 255}) {
		t.Errorf("pixel = %v", got)
	}

	if _, err := Decode([]byte("not an image at all")); !errors.Is(err, ErrUnsupportedImage) {
		t.Errorf("Decode(text) error = %v, want ErrUnsupportedImage", err)
	}
}

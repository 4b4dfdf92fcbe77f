package overlay

import (
	"math/rand/v2"
	"testing"
)

type fakeHost struct {
	layers []*Layer
}

func (h *fakeHost) AddOverlay(l *Layer) { h.layers = append(h.layers, l) }

func (h *fakeHost) RemoveOverlay(l *Layer) {
	for i, x := range h.layers {
		if x == l {
			h.layers = append(h.layers[:i], h.layers[i+1:]...)
			return
		}
	}
}

func TestProviderAddRemove(t *testing.T) {
	tests := []struct {
		name     string
		provider *Provider
		added    bool
	}{
		{"tms", NewTileMapService("https://example.com/tms"), true},
		{"tms without url", NewTileMapService(""), false},
		{"debug colorize", NewDebugColorize(), true},
		{"none", &Provider{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &fakeHost{}
			tt.provider.AddToTileset(h, nil)
			tt.provider.AddToTileset(h, nil)
			want := 0
			if tt.added {
				want = 1
			}
			if len(h.layers) != want {
				t.Fatalf("layers = %d, want %d", len(h.layers), want)
			}
			tt.provider.RemoveFromTileset(h)
			if len(h.layers) != 0 || tt.provider.Attached() {
				t.Error("RemoveFromTileset left the layer attached")
			}
		})
	}
}

func TestTileMapServiceZoomLevels(t *testing.T) {
	p := NewTileMapService("file:///tiles")
	p.TMS.MinimumLevel = 3
	p.TMS.MaximumLevel = 8

	h := &fakeHost{}
	p.AddToTileset(h, nil)
	if h.layers[0].MinimumLevel != nil {
		t.Error("zoom levels applied without SpecifyZoomLevels")
	}
	p.RemoveFromTileset(h)

	p.TMS.SpecifyZoomLevels = true
	p.AddToTileset(h, nil)
	l := h.layers[0]
	if l.MinimumLevel == nil || *l.MinimumLevel != 3 || *l.MaximumLevel != 8 {
		t.Errorf("zoom = %v..%v", l.MinimumLevel, l.MaximumLevel)
	}
}

func TestMaterialKeysIgnoreDuplicates(t *testing.T) {
	k := NewMaterialKeys(nil)
	if !k.Add("0") || !k.Add("Clipping") {
		t.Fatal("Add() rejected a new key")
	}
	if k.Add("0") {
		t.Error("duplicate key accepted")
	}
	if got := k.Keys(); len(got) != 2 {
		t.Errorf("Keys() = %v", got)
	}
	params := k.Params()
	want := []string{"_overlay_texture_0", "_overlay_texture_coordinate_index_0", "_overlay_translation_and_scale_0"}
	for i, p := range want {
		if params[i] != p {
			t.Errorf("Params()[%d] = %q, want %q", i, params[i], p)
		}
	}
	k.Remove("0")
	if k.Has("0") {
		t.Error("Remove() kept the key")
	}
}

func TestDebugColorizeImage(t *testing.T) {
	img := DebugColorizeImage(rand.New(rand.NewPCG(1, 2)))
	if img.Bounds().Dx() != debugTileSize {
		t.Fatalf("size = %v", img.Bounds())
	}
	first := img.RGBAAt(0, 0)
	if first.A != 128 || img.RGBAAt(debugTileSize-1, debugTileSize-1) != first {
		t.Errorf("tile not a solid half transparent colour: %v", first)
	}
}

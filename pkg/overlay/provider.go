// Package overlay describes raster overlays draped over tile geometry: the
// provider variants a tileset can carry, the material parameters an overlay
// binds, and decoding of overlay tile images.
package overlay

import (
	"go.uber.org/zap"
)

// Kind selects the overlay variant.
type Kind int

const (
	KindNone Kind = iota
	KindTileMapService
	KindDebugColorize
)

func (k Kind) String() string {
	switch k {
	case KindTileMapService:
		return "tile_map_service"
	case KindDebugColorize:
		return "debug_colorize"
	}
	return "none"
}

// DefaultMaterialKey is the material key of a new provider.
const DefaultMaterialKey = "0"

// Options are the per-overlay streaming limits handed to the engine.
type Options struct {
	MaximumScreenSpaceError      float64 `yaml:"maximum_screen_space_error" toml:"maximum_screen_space_error"`
	MaximumTextureSize           int     `yaml:"maximum_texture_size" toml:"maximum_texture_size"`
	MaximumSimultaneousTileLoads int     `yaml:"maximum_simultaneous_tile_loads" toml:"maximum_simultaneous_tile_loads"`
	SubTileCacheBytes            int64   `yaml:"sub_tile_cache_bytes" toml:"sub_tile_cache_bytes"`
}

// DefaultOptions returns the engine defaults.
func DefaultOptions() Options {
	return Options{
		MaximumScreenSpaceError:      2,
		MaximumTextureSize:           2048,
		MaximumSimultaneousTileLoads: 20,
		SubTileCacheBytes:            16 * 1024 * 1024,
	}
}

// TileMapService configures a TMS imagery source.
type TileMapService struct {
	URL               string `yaml:"url" toml:"url"`
	SpecifyZoomLevels bool   `yaml:"specify_zoom_levels" toml:"specify_zoom_levels"`
	MinimumLevel      int    `yaml:"minimum_level" toml:"minimum_level"`
	MaximumLevel      int    `yaml:"maximum_level" toml:"maximum_level"`
}

// Provider is a raster overlay attached to a tileset. Kind selects which of
// the variant fields apply.
type Provider struct {
	Kind        Kind
	MaterialKey string
	Options     Options
	TMS         TileMapService

	layer *Layer
}

// NewTileMapService returns a TMS provider with default settings.
func NewTileMapService(url string) *Provider {
	return &Provider{
		Kind:        KindTileMapService,
		MaterialKey: DefaultMaterialKey,
		Options:     DefaultOptions(),
		TMS:         TileMapService{URL: url, MaximumLevel: 10},
	}
}

// NewDebugColorize returns a provider painting each raster tile a random
// colour.
func NewDebugColorize() *Provider {
	return &Provider{
		Kind:        KindDebugColorize,
		MaterialKey: DefaultMaterialKey,
		Options:     DefaultOptions(),
	}
}

// Layer is the engine-side overlay created from a provider.
type Layer struct {
	Name    string // material key
	Kind    Kind
	URL     string
	Options Options

	// Zoom range, set only when the provider specifies a valid range.
	MinimumLevel *int
	MaximumLevel *int

	// OnLoadError receives failed overlay tile fetches.
	OnLoadError func(statusCode int, message string)
}

// Host is the tileset side an overlay layer is added to.
type Host interface {
	AddOverlay(*Layer)
	RemoveOverlay(*Layer)
}

// Attached reports whether the provider currently has a layer in a tileset.
func (p *Provider) Attached() bool { return p.layer != nil }

// AddToTileset creates the provider's layer and adds it to host. It is a
// no-op when already attached, for KindNone, and for TMS providers without a
// URL.
func (p *Provider) AddToTileset(host Host, log *zap.Logger) {
	if p.layer != nil || host == nil {
		return
	}
	if log == nil {
		log = zap.NewNop()
	}

	layer := &Layer{
		Name:    p.MaterialKey,
		Kind:    p.Kind,
		Options: p.Options,
		OnLoadError: func(status int, msg string) {
			log.Error("overlay tile load failed",
				zap.String("overlay", p.MaterialKey),
				zap.Int("status_code", status),
				zap.String("message", msg))
		},
	}

	switch p.Kind {
	case KindTileMapService:
		if p.TMS.URL == "" {
			log.Debug("skipping tile map service overlay without url", zap.String("key", p.MaterialKey))
			return
		}
		layer.URL = p.TMS.URL
		if p.TMS.SpecifyZoomLevels && p.TMS.MaximumLevel > p.TMS.MinimumLevel {
			minLevel, maxLevel := p.TMS.MinimumLevel, p.TMS.MaximumLevel
			layer.MinimumLevel = &minLevel
			layer.MaximumLevel = &maxLevel
		}
	case KindDebugColorize:
	default:
		return
	}

	p.layer = layer
	host.AddOverlay(layer)
}

// RemoveFromTileset removes the provider's layer from host.
func (p *Provider) RemoveFromTileset(host Host) {
	if p.layer == nil || host == nil {
		return
	}
	host.RemoveOverlay(p.layer)
	p.layer = nil
}

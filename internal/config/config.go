// Package config loads tilekit settings from defaults, a YAML or TOML file
// and command line flags, in that order of priority.
package config

import (
	"github.com/jinzhu/copier"
	"github.com/taigrr/tilekit/pkg/overlay"
	"github.com/taigrr/tilekit/pkg/tileset"
)

// Config holds every tilekit setting.
type Config struct {
	Tileset TilesetConfig `yaml:"tileset" toml:"tileset"`
	Overlay OverlayConfig `yaml:"overlay" toml:"overlay"`
	Preview PreviewConfig `yaml:"preview" toml:"preview"`
	Logging LoggingConfig `yaml:"logging" toml:"logging"`
}

// TilesetConfig configures the tileset and its engine.
type TilesetConfig struct {
	Dir                 string          `yaml:"dir" toml:"dir"`
	Editor              bool            `yaml:"editor" toml:"editor"`
	MaxTasks            int             `yaml:"max_tasks" toml:"max_tasks"`
	SuspendUpdate       bool            `yaml:"suspend_update" toml:"suspend_update"`
	CreatePhysicsMeshes bool            `yaml:"create_physics_meshes" toml:"create_physics_meshes"`
	LogSelectionStats   bool            `yaml:"log_selection_stats" toml:"log_selection_stats"`
	Options             tileset.Options `yaml:"options" toml:"options"`
}

// OverlayConfig selects the raster overlay.
type OverlayConfig struct {
	// Kind is none, tile_map_service or debug_colorize.
	Kind        string                 `yaml:"kind" toml:"kind"`
	MaterialKey string                 `yaml:"material_key" toml:"material_key"`
	TMS         overlay.TileMapService `yaml:"tms" toml:"tms"`
	Options     overlay.Options        `yaml:"options" toml:"options"`
}

// PreviewConfig configures the terminal preview.
type PreviewConfig struct {
	// Mode is solid or wireframe.
	Mode      string  `yaml:"mode" toml:"mode"`
	FPS       int     `yaml:"fps" toml:"fps"`
	OrbitRate float64 `yaml:"orbit_rate" toml:"orbit_rate"` // radians per second
	Snapshot  string  `yaml:"snapshot" toml:"snapshot"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	Level   string `yaml:"level" toml:"level"`
	LogFile string `yaml:"log_file" toml:"log_file"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Tileset: TilesetConfig{
			Dir:                 ".",
			CreatePhysicsMeshes: true,
			Options:             tileset.DefaultOptions(),
		},
		Overlay: OverlayConfig{
			Kind:        overlay.KindNone.String(),
			MaterialKey: overlay.DefaultMaterialKey,
			TMS:         overlay.TileMapService{MaximumLevel: 10},
			Options:     overlay.DefaultOptions(),
		},
		Preview: PreviewConfig{
			Mode:      "solid",
			FPS:       30,
			OrbitRate: 0.3,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Provider builds the configured overlay provider, or nil for none.
func (c OverlayConfig) Provider() *overlay.Provider {
	var p *overlay.Provider
	switch c.Kind {
	case overlay.KindTileMapService.String():
		p = overlay.NewTileMapService(c.TMS.URL)
		p.TMS = c.TMS
	case overlay.KindDebugColorize.String():
		p = overlay.NewDebugColorize()
	default:
		return nil
	}
	if c.MaterialKey != "" {
		p.MaterialKey = c.MaterialKey
	}
	p.Options = c.Options
	return p
}

// Apply copies the tileset settings onto ts.
func (c TilesetConfig) Apply(ts *tileset.Tileset) error {
	if err := copier.Copy(&ts.Options, &c.Options); err != nil {
		return err
	}
	ts.SuspendUpdate = c.SuspendUpdate
	ts.LogSelectionStats = c.LogSelectionStats
	ts.SetCreatePhysicsMeshes(c.CreatePhysicsMeshes)
	return nil
}

// Context returns the tileset context these settings describe.
func (c TilesetConfig) Context() tileset.Context {
	return tileset.Context{Editor: c.Editor, MaxTasks: c.MaxTasks}
}

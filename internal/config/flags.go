package config

import "flag"

// Flags are the command line overrides. Zero values leave the file and
// default settings alone.
type Flags struct {
	Config    string
	Dir       string
	Debug     bool
	Overlay   string
	TMS       string
	Wireframe bool
	Snapshot  string
	LogFile   string
	MaxSSE    float64
}

// RegisterFlags defines the flags on fs.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{}
	fs.StringVar(&f.Config, "config", "", "path to a YAML or TOML config file")
	fs.StringVar(&f.Dir, "dir", "", "directory of .glb tiles")
	fs.BoolVar(&f.Debug, "debug", false, "enable debug logging and selection stats")
	fs.StringVar(&f.Overlay, "overlay", "", "raster overlay: none, tile_map_service or debug_colorize")
	fs.StringVar(&f.TMS, "tms", "", "tile map service directory (implies -overlay tile_map_service)")
	fs.BoolVar(&f.Wireframe, "wireframe", false, "draw the preview as wireframe")
	fs.StringVar(&f.Snapshot, "snapshot", "", "render one frame to this PNG and exit")
	fs.StringVar(&f.LogFile, "log", "", "log file")
	fs.Float64Var(&f.MaxSSE, "max-sse", 0, "maximum screen space error")
	return f
}

func (f *Flags) apply(cfg *Config) {
	if f == nil {
		return
	}
	if f.Dir != "" {
		cfg.Tileset.Dir = f.Dir
	}
	if f.Debug {
		cfg.Logging.Level = "debug"
		cfg.Tileset.LogSelectionStats = true
	}
	if f.Overlay != "" {
		cfg.Overlay.Kind = f.Overlay
	}
	if f.TMS != "" {
		cfg.Overlay.Kind = "tile_map_service"
		cfg.Overlay.TMS.URL = f.TMS
	}
	if f.Wireframe {
		cfg.Preview.Mode = "wireframe"
	}
	if f.Snapshot != "" {
		cfg.Preview.Snapshot = f.Snapshot
	}
	if f.LogFile != "" {
		cfg.Logging.LogFile = f.LogFile
	}
	if f.MaxSSE > 0 {
		cfg.Tileset.Options.MaximumScreenSpaceError = f.MaxSSE
	}
}

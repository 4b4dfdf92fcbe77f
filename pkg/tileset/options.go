package tileset

import (
	"runtime"

	"go.uber.org/zap"
)

// Options are forwarded to the engine unchanged every frame.
type Options struct {
	MaximumScreenSpaceError       float64 `yaml:"maximum_screen_space_error" toml:"maximum_screen_space_error"`
	PreloadAncestors              bool    `yaml:"preload_ancestors" toml:"preload_ancestors"`
	PreloadSiblings               bool    `yaml:"preload_siblings" toml:"preload_siblings"`
	ForbidHoles                   bool    `yaml:"forbid_holes" toml:"forbid_holes"`
	MaximumSimultaneousTileLoads  int     `yaml:"maximum_simultaneous_tile_loads" toml:"maximum_simultaneous_tile_loads"`
	MaximumCachedBytes            int64   `yaml:"maximum_cached_bytes" toml:"maximum_cached_bytes"`
	LoadingDescendantLimit        int     `yaml:"loading_descendant_limit" toml:"loading_descendant_limit"`
	EnableFrustumCulling          bool    `yaml:"enable_frustum_culling" toml:"enable_frustum_culling"`
	EnableFogCulling              bool    `yaml:"enable_fog_culling" toml:"enable_fog_culling"`
	EnforceCulledScreenSpaceError bool    `yaml:"enforce_culled_screen_space_error" toml:"enforce_culled_screen_space_error"`
	CulledScreenSpaceError        float64 `yaml:"culled_screen_space_error" toml:"culled_screen_space_error"`
}

// DefaultOptions returns the engine defaults.
func DefaultOptions() Options {
	return Options{
		MaximumScreenSpaceError:       16,
		PreloadAncestors:              true,
		PreloadSiblings:               true,
		ForbidHoles:                   true,
		MaximumSimultaneousTileLoads:  20,
		MaximumCachedBytes:            512 * 1024 * 1024,
		LoadingDescendantLimit:        20,
		EnableFrustumCulling:          true,
		EnableFogCulling:              true,
		EnforceCulledScreenSpaceError: true,
		CulledScreenSpaceError:        64,
	}
}

// Context carries what a tileset would otherwise take from globals.
type Context struct {
	Log *zap.Logger
	// Editor is set when running inside an editor: editor cameras produce
	// view states and no collision shapes are baked.
	Editor bool
	// MaxTasks bounds concurrent background preparation. Zero means
	// GOMAXPROCS.
	MaxTasks int
}

func (c Context) logger() *zap.Logger {
	if c.Log == nil {
		return zap.NewNop()
	}
	return c.Log
}

func (c Context) maxTasks() int {
	if c.MaxTasks > 0 {
		return c.MaxTasks
	}
	return runtime.GOMAXPROCS(0)
}

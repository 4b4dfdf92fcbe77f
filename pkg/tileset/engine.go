package tileset

import (
	"context"

	"github.com/taigrr/tilekit/pkg/math3d"
	"github.com/taigrr/tilekit/pkg/overlay"
	"github.com/taigrr/tilekit/pkg/renderer"
	"github.com/taigrr/tilekit/pkg/tiles"
	"github.com/taigrr/tilekit/pkg/view"
	"go.uber.org/zap"
)

// LoadState is the load state of a tile's content.
type LoadState int

const (
	Unloaded LoadState = iota
	ContentLoading
	ContentLoaded
	Done
	Failed
)

func (s LoadState) String() string {
	switch s {
	case ContentLoading:
		return "content_loading"
	case ContentLoaded:
		return "content_loaded"
	case Done:
		return "done"
	case Failed:
		return "failed"
	}
	return "unloaded"
}

// Tile is one node of the engine's tile hierarchy.
type Tile interface {
	renderer.Tile
	State() LoadState
	// RenderResources returns the tile's render handle, or nil when the
	// tile has no renderable content.
	RenderResources() *renderer.TileNode
}

// ViewUpdateResult is the engine's selection for one frame.
type ViewUpdateResult struct {
	TilesToRenderThisFrame []Tile
	TilesFadingOut         []Tile

	TilesVisited                    int
	CulledTilesVisited              int
	TilesCulled                     int
	TilesOccluded                   int
	TilesWaitingForOcclusionResults int
	MaxDepthVisited                 int
	WorkerThreadTileLoadQueueLength int
	MainThreadTileLoadQueueLength   int
	FrameNumber                     int
}

// Stats is the comparable summary of a ViewUpdateResult.
type Stats struct {
	Visited               int
	CulledVisited         int
	Rendered              int
	Culled                int
	Occluded              int
	WaitingForOcclusion   int
	MaxDepthVisited       int
	WorkerQueueLength     int
	MainThreadQueueLength int
}

// Stats summarises r.
func (r *ViewUpdateResult) Stats() Stats {
	if r == nil {
		return Stats{}
	}
	return Stats{
		Visited:               r.TilesVisited,
		CulledVisited:         r.CulledTilesVisited,
		Rendered:              len(r.TilesToRenderThisFrame),
		Culled:                r.TilesCulled,
		Occluded:              r.TilesOccluded,
		WaitingForOcclusion:   r.TilesWaitingForOcclusionResults,
		MaxDepthVisited:       r.MaxDepthVisited,
		WorkerQueueLength:     r.WorkerThreadTileLoadQueueLength,
		MainThreadQueueLength: r.MainThreadTileLoadQueueLength,
	}
}

// Engine is the tile streaming engine a tileset drives. Overlay layers are
// added to and removed from the engine directly.
type Engine interface {
	overlay.Host

	UpdateView(views []view.ViewState, delta float64) *ViewUpdateResult
	SetOptions(Options)
	// LoadProgress returns the share of selected tiles that are loaded, in
	// percent.
	LoadProgress() float64
	TilesLoaded() int
	// Close frees every tile and overlay texture through the renderer
	// resources and stops background work.
	Close()
}

// Bounder is implemented by engines that know the extent of their content in
// the tileset frame.
type Bounder interface {
	Bounds() (view.AABB, bool)
}

// RendererResources is the tile and raster overlay lifecycle an engine calls
// back into.
type RendererResources interface {
	PrepareInBackground(ctx context.Context, payload *tiles.Payload) (*renderer.LoadResult, error)
	PrepareInMainThread(tile renderer.Tile, res *renderer.LoadResult) *renderer.TileNode
	Free(tile renderer.Tile, res *renderer.LoadResult, node *renderer.TileNode)

	PrepareRasterInBackground(img overlay.Image) (*overlay.RasterResult, error)
	PrepareRasterInMainThread(key string, res *overlay.RasterResult) *overlay.Texture
	FreeRaster(res *overlay.RasterResult, tex *overlay.Texture)
	AttachRasterInMainThread(node *renderer.TileNode, channel int, tex *overlay.Texture, translation, scale math3d.Vec2) int
	DetachRasterInMainThread(node *renderer.TileNode, channel int, tex *overlay.Texture) int
}

var _ RendererResources = (*renderer.Resources)(nil)

// LoadFailure describes a tile or overlay fetch the engine gave up on.
type LoadFailure struct {
	URL        string
	StatusCode int
	Message    string
}

// Externals is what a tileset hands its engine.
type Externals struct {
	Resources RendererResources
	Log       *zap.Logger
	// MaxTasks bounds concurrent background preparation.
	MaxTasks int
	// OnLoadError receives fetch failures. It never stops the engine.
	OnLoadError func(LoadFailure)
}

// EngineFactory creates the engine for the tileset at url.
type EngineFactory func(url string, ext Externals, opts Options) (Engine, error)

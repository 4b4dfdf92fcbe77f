// Package tileset drives a tile streaming engine once per frame: it feeds
// the engine view states, shows and hides the tiles it selects, and tracks
// load progress.
package tileset

import (
	"github.com/jinzhu/copier"
	"github.com/taigrr/tilekit/pkg/math3d"
	"github.com/taigrr/tilekit/pkg/overlay"
	"github.com/taigrr/tilekit/pkg/renderer"
	"github.com/taigrr/tilekit/pkg/scene"
	"github.com/taigrr/tilekit/pkg/tiles"
	"github.com/taigrr/tilekit/pkg/view"
	"go.uber.org/zap"
)

// Tileset is one streamed tileset in the scene.
type Tileset struct {
	// Node owns the mesh instances of every loaded tile.
	Node *scene.Node

	// Georeference must be set before the engine is created.
	Georeference *view.Georeference

	Viewport        *scene.Viewport
	EditorViewports []*scene.Viewport

	Options           Options
	SuspendUpdate     bool
	LogSelectionStats bool

	// OnLoaded fires once each time loading reaches 100%.
	OnLoaded func()

	ctx      Context
	log      *zap.Logger
	factory  EngineFactory
	producer *view.Producer
	keys     *overlay.MaterialKeys

	url                 string
	provider            *overlay.Provider
	createPhysicsMeshes bool

	engine    Engine
	resources *renderer.Resources

	last          Stats
	frame         int
	progress      float64
	activeLoading bool
}

// New returns a tileset named name streaming url through engines built by
// factory. The engine is created on the first Update.
func New(ctx Context, name, url string, factory EngineFactory) *Tileset {
	log := ctx.logger().With(zap.String("tileset", name))
	return &Tileset{
		Node:                scene.NewNode(name),
		Options:             DefaultOptions(),
		ctx:                 ctx,
		log:                 log,
		factory:             factory,
		producer:            view.NewProducer(log),
		keys:                overlay.NewMaterialKeys(log),
		url:                 url,
		createPhysicsMeshes: true,
	}
}

// URL returns the tileset source.
func (t *Tileset) URL() string { return t.url }

// SetURL changes the source. The current engine is destroyed and a new one
// is created on the next Update.
func (t *Tileset) SetURL(url string) {
	if t.url == url {
		return
	}
	t.url = url
	t.Destroy()
}

// SetOverlay replaces the raster overlay provider, reloading the tileset.
func (t *Tileset) SetOverlay(p *overlay.Provider) {
	if t.provider == p {
		return
	}
	t.Destroy()
	t.provider = p
}

// Overlay returns the raster overlay provider, if any.
func (t *Tileset) Overlay() *overlay.Provider { return t.provider }

// SetCreatePhysicsMeshes toggles collision baking, reloading the tileset.
func (t *Tileset) SetCreatePhysicsMeshes(v bool) {
	if t.createPhysicsMeshes == v {
		return
	}
	t.createPhysicsMeshes = v
	t.Destroy()
}

// MaterialKeys returns the overlay keys tile materials expose.
func (t *Tileset) MaterialKeys() []string { return t.keys.Keys() }

// Engine returns the current engine, or nil before the first Update.
func (t *Tileset) Engine() Engine { return t.engine }

// Update runs one frame.
func (t *Tileset) Update(delta float64) {
	if t.SuspendUpdate {
		return
	}
	if t.engine == nil {
		t.load()
		if t.engine == nil {
			return
		}
	}

	t.engine.SetOptions(t.options())

	views := t.producer.ViewStates(t.viewContext())
	res := t.engine.UpdateView(views, delta)
	if res == nil {
		res = &ViewUpdateResult{}
	}
	t.frame = res.FrameNumber
	t.updateStats(res.Stats())

	for _, tile := range res.TilesFadingOut {
		setVisible(tile, false)
	}
	for _, tile := range res.TilesToRenderThisFrame {
		setVisible(tile, true)
	}

	t.updateLoadStatus()
}

func setVisible(tile Tile, v bool) {
	if tile == nil || tile.State() != Done {
		return
	}
	if node := tile.RenderResources(); node != nil {
		node.SetVisible(v)
	}
}

// load creates the engine. Without a georeference nothing is created.
func (t *Tileset) load() {
	if t.Georeference == nil {
		t.log.Debug("no georeference, tileset not loaded")
		return
	}

	t.resources = renderer.New(t.Node, t.log)
	t.resources.Editor = t.ctx.Editor
	t.resources.CreatePhysicsMeshes = t.createPhysicsMeshes

	ext := Externals{
		Resources:   t.resources,
		Log:         t.log,
		MaxTasks:    t.ctx.maxTasks(),
		OnLoadError: t.logLoadFailure,
	}
	engine, err := t.factory(t.url, ext, t.options())
	if err != nil {
		t.log.Error("create tileset engine", zap.String("url", t.url), zap.Error(err))
		t.resources = nil
		return
	}
	t.log.Info("tileset loaded", zap.String("url", t.url))

	t.engine = engine
	t.last = Stats{}
	t.progress = 0
	t.activeLoading = false

	if t.provider != nil {
		t.provider.AddToTileset(engine, t.log)
		if t.provider.Attached() {
			t.keys.Add(t.provider.MaterialKey)
		}
	}
}

func (t *Tileset) logLoadFailure(f LoadFailure) {
	t.log.Error("tile load failed",
		zap.String("url", f.URL),
		zap.Int("status_code", f.StatusCode),
		zap.String("message", f.Message))
}

// Destroy closes the engine, freeing every tile. The tileset reloads on the
// next Update.
func (t *Tileset) Destroy() {
	if t.engine == nil {
		return
	}
	t.log.Info("destroying tileset")
	if t.provider != nil && t.provider.Attached() {
		t.provider.RemoveFromTileset(t.engine)
		t.keys.Remove(t.provider.MaterialKey)
	}
	t.engine.Close()
	t.resources.Destroy()
	t.engine = nil
	t.resources = nil
	t.progress = 0
	t.activeLoading = false
}

func (t *Tileset) options() Options {
	var opts Options
	if err := copier.Copy(&opts, &t.Options); err != nil {
		t.log.Warn("copy tileset options", zap.Error(err))
		return t.Options
	}
	return opts
}

// WorldToTileset maps scene space into the Z-up tileset frame.
func (t *Tileset) WorldToTileset() math3d.Mat4 {
	return t.TilesetToWorld().Inverse()
}

// TilesetToWorld maps the Z-up tileset frame into scene space.
func (t *Tileset) TilesetToWorld() math3d.Mat4 {
	return t.Node.GlobalTransform().Mul(tiles.ZUpToYUp())
}

func (t *Tileset) viewContext() view.Context {
	return view.Context{
		Viewport:        t.Viewport,
		EditorViewports: t.EditorViewports,
		Editor:          t.ctx.Editor,
		WorldToTileset:  t.WorldToTileset(),
		Georeference:    t.Georeference,
	}
}

func (t *Tileset) updateStats(s Stats) {
	if s == t.last {
		return
	}
	t.last = s
	if !t.LogSelectionStats {
		return
	}
	loaded := 0
	if t.engine != nil {
		loaded = t.engine.TilesLoaded()
	}
	t.log.Info("selection",
		zap.Int("visited", s.Visited),
		zap.Int("culled_visited", s.CulledVisited),
		zap.Int("rendered", s.Rendered),
		zap.Int("culled", s.Culled),
		zap.Int("occluded", s.Occluded),
		zap.Int("waiting_for_occlusion", s.WaitingForOcclusion),
		zap.Int("max_depth_visited", s.MaxDepthVisited),
		zap.Int("loading_worker", s.WorkerQueueLength),
		zap.Int("loading_main", s.MainThreadQueueLength),
		zap.Int("tiles_loaded", loaded),
		zap.Float64("load_progress", t.progress),
		zap.Int("frame", t.frame))
}

// updateLoadStatus fires OnLoaded when loading reaches 100% with no tile
// waiting on occlusion results. It fires again only after progress drops.
func (t *Tileset) updateLoadStatus() {
	t.progress = t.engine.LoadProgress()
	if t.progress < 100 || t.last.WaitingForOcclusion > 0 {
		t.activeLoading = true
		return
	}
	if !t.activeLoading {
		return
	}
	t.activeLoading = false
	t.log.Info("tileset finished loading")
	if t.OnLoaded != nil {
		t.OnLoaded()
	}
}

// LoadProgress returns the last computed load progress in percent.
func (t *Tileset) LoadProgress() float64 {
	if t.engine == nil {
		return 0
	}
	return t.progress
}

// LastStats returns the selection summary of the last frame that changed it.
func (t *Tileset) LastStats() Stats { return t.last }

// FocusTarget returns the scene space bounds of the tileset content when
// the engine can report them.
func (t *Tileset) FocusTarget() (view.AABB, bool) {
	b, ok := t.engine.(Bounder)
	if !ok {
		return view.AABB{}, false
	}
	box, ok := b.Bounds()
	if !ok {
		return view.AABB{}, false
	}
	return box.Transform(t.TilesetToWorld()), true
}

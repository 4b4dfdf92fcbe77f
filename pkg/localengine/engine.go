// Package localengine is a small tile streaming engine over a directory of
// glTF files. Each file is one tile; tiles are loaded in the background,
// culled against the view frusta and evicted when over the cache budget.
package localengine

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math/rand/v2"
	"path/filepath"
	"slices"
	"strings"

	"github.com/taigrr/tilekit/pkg/renderer"
	"github.com/taigrr/tilekit/pkg/tiles"
	"github.com/taigrr/tilekit/pkg/tileset"
	"github.com/taigrr/tilekit/pkg/view"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	frustumNear = 0.1
	frustumFar  = 1e7
)

// ErrNoTiles is returned when the directory holds no glTF files.
var ErrNoTiles = errors.New("no glTF tiles found")

type loaded struct {
	tile *Tile
	res  *renderer.LoadResult
	err  error
}

// Engine implements tileset.Engine over a directory.
type Engine struct {
	dir   string
	ext   tileset.Externals
	opts  tileset.Options
	log   *zap.Logger
	tiles []*Tile

	ctx    context.Context
	cancel context.CancelFunc
	group  errgroup.Group
	done   chan loaded

	inFlight int
	frame    int
	progress float64

	overlays []*layerState
	rasters  chan rasterLoaded
	rng      *rand.Rand
	closed   bool
}

// Factory adapts Open to tileset.EngineFactory.
func Factory(url string, ext tileset.Externals, opts tileset.Options) (tileset.Engine, error) {
	e, err := Open(url, ext, opts)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// Open scans dir for .glb and .gltf files.
func Open(dir string, ext tileset.Externals, opts tileset.Options) (*Engine, error) {
	if ext.Resources == nil {
		return nil, errors.New("localengine: no renderer resources")
	}
	log := ext.Log
	if log == nil {
		log = zap.NewNop()
	}

	var found []*Tile
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".glb", ".gltf":
		default:
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			rel = path
		}
		found = append(found, &Tile{URL: filepath.ToSlash(rel), path: path, size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan tiles in %s: %w", dir, err)
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("%s: %w", dir, ErrNoTiles)
	}
	slices.SortFunc(found, func(a, b *Tile) int { return strings.Compare(a.URL, b.URL) })

	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		dir:     dir,
		ext:     ext,
		opts:    opts,
		log:     log,
		tiles:   found,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan loaded, len(found)),
		rasters: make(chan rasterLoaded, 8),
		rng:     rand.New(rand.NewPCG(uint64(len(found)), 0x7e11)),
	}
	limit := ext.MaxTasks
	if limit < 1 {
		limit = 1
	}
	e.group.SetLimit(limit)
	log.Debug("opened tile directory", zap.String("dir", dir), zap.Int("tiles", len(found)))
	return e, nil
}

// Tiles returns every tile of the directory in URL order.
func (e *Engine) Tiles() []*Tile { return e.tiles }

// SetOptions replaces the options used from the next UpdateView on.
func (e *Engine) SetOptions(opts tileset.Options) { e.opts = opts }

// UpdateView integrates finished loads, selects the tiles visible from
// views and starts loading the ones still missing.
func (e *Engine) UpdateView(views []view.ViewState, _ float64) *tileset.ViewUpdateResult {
	e.frame++
	res := &tileset.ViewUpdateResult{FrameNumber: e.frame}
	if e.closed {
		return res
	}

	res.MainThreadTileLoadQueueLength = len(e.done)
	e.drainLoads()
	e.drainRasters()
	e.requestRasters()

	var frusta []view.Frustum
	if e.opts.EnableFrustumCulling {
		for _, v := range views {
			frusta = append(frusta, view.NewFrustum(v, frustumNear, frustumFar))
		}
	}

	wanted, ready := 0, 0
	for _, t := range e.tiles {
		res.TilesVisited++
		if !t.visible(frusta) {
			res.TilesCulled++
			if t.rendered {
				res.TilesFadingOut = append(res.TilesFadingOut, t)
				t.rendered = false
			}
			continue
		}
		wanted++
		switch t.state {
		case tileset.Done:
			ready++
			t.rendered = true
			res.TilesToRenderThisFrame = append(res.TilesToRenderThisFrame, t)
		case tileset.Failed:
			ready++
		case tileset.Unloaded:
			e.load(t)
		}
	}

	e.evict()

	res.WorkerThreadTileLoadQueueLength = e.inFlight
	if wanted == 0 {
		e.progress = 100
	} else {
		e.progress = 100 * float64(ready) / float64(wanted)
	}
	return res
}

// load starts the background preparation of t when a worker is free.
func (e *Engine) load(t *Tile) {
	if maxLoads := e.opts.MaximumSimultaneousTileLoads; maxLoads > 0 && e.inFlight >= maxLoads {
		return
	}
	started := e.group.TryGo(func() error {
		res, err := e.prepare(t)
		e.done <- loaded{tile: t, res: res, err: err}
		return nil
	})
	if !started {
		return
	}
	t.state = tileset.ContentLoading
	t.evicted = false
	e.inFlight++
}

func (e *Engine) prepare(t *Tile) (*renderer.LoadResult, error) {
	p, err := tiles.Load(t.path)
	if err != nil {
		return nil, err
	}
	extras, _ := p.Doc.Extras.(map[string]any)
	if extras == nil {
		extras = map[string]any{}
		p.Doc.Extras = extras
	}
	if _, ok := extras[tiles.TileURLExtra]; !ok {
		extras[tiles.TileURLExtra] = t.URL
	}
	return e.ext.Resources.PrepareInBackground(e.ctx, p)
}

// drainLoads finishes every completed background load without blocking.
func (e *Engine) drainLoads() {
	for {
		select {
		case l := <-e.done:
			e.finish(l)
		default:
			return
		}
	}
}

func (e *Engine) finish(l loaded) {
	e.inFlight--
	t := l.tile
	if l.err != nil {
		if t.evicted || errors.Is(l.err, context.Canceled) {
			t.state = tileset.Unloaded
			return
		}
		t.state = tileset.Failed
		e.log.Warn("tile load failed", zap.String("tile", t.URL), zap.Error(l.err))
		e.reportFailure(t.URL, l.err)
		return
	}
	t.node = e.ext.Resources.PrepareInMainThread(t, l.res)
	if t.evicted {
		t.state = tileset.Unloaded
		t.node = nil
		return
	}
	t.state = tileset.Done
	t.computeBounds()
	for _, ls := range e.overlays {
		e.attach(ls, t)
	}
}

func (e *Engine) reportFailure(url string, err error) {
	if e.ext.OnLoadError == nil {
		return
	}
	status := 500
	if errors.Is(err, fs.ErrNotExist) {
		status = 404
	}
	e.ext.OnLoadError(tileset.LoadFailure{URL: url, StatusCode: status, Message: err.Error()})
}

// evict unloads tiles not rendered this frame, largest first, until the
// loaded tiles fit MaximumCachedBytes.
func (e *Engine) evict() {
	budget := e.opts.MaximumCachedBytes
	if budget <= 0 {
		return
	}
	var total int64
	var idle []*Tile
	for _, t := range e.tiles {
		if t.state != tileset.Done {
			continue
		}
		total += t.size
		if !t.rendered {
			idle = append(idle, t)
		}
	}
	slices.SortFunc(idle, func(a, b *Tile) int { return cmp.Compare(b.size, a.size) })
	for _, t := range idle {
		if total <= budget {
			return
		}
		e.unload(t)
		total -= t.size
	}
}

func (e *Engine) unload(t *Tile) {
	for _, ls := range e.overlays {
		e.detach(ls, t)
	}
	e.ext.Resources.Free(t, nil, t.node)
	t.node = nil
	t.state = tileset.Unloaded
	e.log.Debug("evicted tile", zap.String("tile", t.URL))
}

// wait blocks until background work stops, finishing results as they
// arrive so no worker stays blocked on a full channel.
func (e *Engine) wait() {
	stopped := make(chan struct{})
	go func() {
		_ = e.group.Wait()
		close(stopped)
	}()
	for {
		select {
		case l := <-e.done:
			e.finish(l)
		case r := <-e.rasters:
			e.finishRaster(r)
		case <-stopped:
			e.drainLoads()
			e.drainRasters()
			return
		}
	}
}

// LoadProgress implements tileset.Engine.
func (e *Engine) LoadProgress() float64 { return e.progress }

// TilesLoaded implements tileset.Engine.
func (e *Engine) TilesLoaded() int {
	n := 0
	for _, t := range e.tiles {
		if t.state == tileset.Done {
			n++
		}
	}
	return n
}

// Bounds returns the union of every loaded tile's bounds.
func (e *Engine) Bounds() (view.AABB, bool) {
	var box view.AABB
	ok := false
	for _, t := range e.tiles {
		b, has := t.Bounds()
		if !has {
			continue
		}
		if ok {
			box = box.Union(b)
		} else {
			box, ok = b, true
		}
	}
	return box, ok
}

// Close stops background work and frees every tile and overlay texture.
// In-flight results are handed to the renderer as evicted.
func (e *Engine) Close() {
	if e.closed {
		return
	}
	e.closed = true
	e.cancel()
	for _, t := range e.tiles {
		if t.state == tileset.ContentLoading {
			t.evicted = true
		}
	}
	e.wait()

	for _, ls := range e.overlays {
		e.removeLayer(ls)
	}
	e.overlays = nil
	for _, t := range e.tiles {
		if t.node != nil {
			e.ext.Resources.Free(t, nil, t.node)
			t.node = nil
		}
		t.state = tileset.Unloaded
	}
	e.log.Debug("closed tile directory", zap.String("dir", e.dir))
}

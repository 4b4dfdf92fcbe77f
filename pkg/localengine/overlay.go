package localengine

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/taigrr/tilekit/pkg/math3d"
	"github.com/taigrr/tilekit/pkg/overlay"
	"github.com/taigrr/tilekit/pkg/tileset"
	"go.uber.org/zap"
)

// overlayChannel is the _CESIUMOVERLAY_ set every layer drapes onto.
const overlayChannel = 0

type layerState struct {
	layer *overlay.Layer

	// shared is the single texture of a tile map service layer.
	shared    *overlay.Texture
	requested bool
	failed    bool

	// perTile holds the textures of debug colorize layers.
	perTile map[*Tile]*overlay.Texture
}

type rasterLoaded struct {
	state *layerState
	res   *overlay.RasterResult
	err   error
}

// AddOverlay implements overlay.Host.
func (e *Engine) AddOverlay(l *overlay.Layer) {
	if e.closed || l == nil {
		return
	}
	ls := &layerState{layer: l, perTile: map[*Tile]*overlay.Texture{}}
	e.overlays = append(e.overlays, ls)
	e.log.Debug("added overlay", zap.String("key", l.Name), zap.Stringer("kind", l.Kind))
	if l.Kind == overlay.KindDebugColorize {
		for _, t := range e.tiles {
			e.attach(ls, t)
		}
	}
}

// RemoveOverlay implements overlay.Host.
func (e *Engine) RemoveOverlay(l *overlay.Layer) {
	for i, ls := range e.overlays {
		if ls.layer == l {
			e.removeLayer(ls)
			e.overlays = append(e.overlays[:i], e.overlays[i+1:]...)
			return
		}
	}
}

func (e *Engine) removeLayer(ls *layerState) {
	for _, t := range e.tiles {
		e.detach(ls, t)
	}
	if ls.shared != nil {
		e.ext.Resources.FreeRaster(nil, ls.shared)
		ls.shared = nil
	}
}

// attach drapes the layer over a loaded tile.
func (e *Engine) attach(ls *layerState, t *Tile) {
	if t.state != tileset.Done || t.node == nil {
		return
	}
	tex := ls.shared
	if ls.layer.Kind == overlay.KindDebugColorize {
		tex = ls.perTile[t]
		if tex == nil {
			img := overlay.DebugColorizeImage(e.rng)
			tex = e.ext.Resources.PrepareRasterInMainThread(ls.layer.Name, &overlay.RasterResult{Image: img})
			ls.perTile[t] = tex
		}
	}
	if tex == nil {
		return
	}
	e.ext.Resources.AttachRasterInMainThread(t.node, overlayChannel, tex, math3d.V2(0, 0), math3d.V2(1, 1))
}

func (e *Engine) detach(ls *layerState, t *Tile) {
	if t.node == nil {
		return
	}
	tex := ls.shared
	if ls.layer.Kind == overlay.KindDebugColorize {
		tex = ls.perTile[t]
		delete(ls.perTile, t)
		defer e.ext.Resources.FreeRaster(nil, tex)
	}
	if tex != nil {
		e.ext.Resources.DetachRasterInMainThread(t.node, overlayChannel, tex)
	}
}

// requestRasters starts reading the root image of tile map service layers.
func (e *Engine) requestRasters() {
	for _, ls := range e.overlays {
		if ls.layer.Kind != overlay.KindTileMapService || ls.requested || ls.failed {
			continue
		}
		started := e.group.TryGo(func() error {
			data, err := readRootImage(ls.layer)
			if err != nil {
				e.rasters <- rasterLoaded{state: ls, err: err}
				return nil
			}
			res, err := e.ext.Resources.PrepareRasterInBackground(overlay.Image{Data: data, Rectangle: [4]float64{0, 0, 1, 1}})
			e.rasters <- rasterLoaded{state: ls, res: res, err: err}
			return nil
		})
		ls.requested = started
	}
}

func (e *Engine) drainRasters() {
	for {
		select {
		case r := <-e.rasters:
			e.finishRaster(r)
		default:
			return
		}
	}
}

func (e *Engine) finishRaster(r rasterLoaded) {
	ls := r.state
	if !slices.Contains(e.overlays, ls) {
		e.ext.Resources.FreeRaster(r.res, nil)
		return
	}
	if r.err != nil {
		ls.failed = true
		status := 500
		if errors.Is(r.err, fs.ErrNotExist) {
			status = 404
		}
		if ls.layer.OnLoadError != nil {
			ls.layer.OnLoadError(status, r.err.Error())
		}
		return
	}
	ls.shared = e.ext.Resources.PrepareRasterInMainThread(ls.layer.Name, r.res)
	for _, t := range e.tiles {
		e.attach(ls, t)
	}
}

// rootExtensions are tried in order for the root tile of a TMS directory.
var rootExtensions = []string{".png", ".jpg", ".jpeg", ".webp"}

// readRootImage reads the lowest level tile (x 0, y 0) of a TMS directory.
func readRootImage(l *overlay.Layer) ([]byte, error) {
	level := 0
	if l.MinimumLevel != nil {
		level = *l.MinimumLevel
	}
	base := filepath.Join(l.URL, strconv.Itoa(level), "0", "0")
	for _, ext := range rootExtensions {
		data, err := os.ReadFile(base + ext)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read overlay tile: %w", err)
		}
	}
	return nil, fmt.Errorf("overlay tile %s: %w", base, fs.ErrNotExist)
}

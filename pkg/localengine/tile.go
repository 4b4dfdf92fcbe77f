package localengine

import (
	"github.com/taigrr/tilekit/pkg/renderer"
	"github.com/taigrr/tilekit/pkg/tiles"
	"github.com/taigrr/tilekit/pkg/tileset"
	"github.com/taigrr/tilekit/pkg/view"
)

// Tile is one glTF file of the directory.
type Tile struct {
	URL  string // path relative to the tileset directory
	path string
	size int64

	state     tileset.LoadState
	node      *renderer.TileNode
	bounds    view.AABB
	hasBounds bool
	evicted   bool
	rendered  bool
}

func (t *Tile) State() tileset.LoadState { return t.state }
func (t *Tile) RenderResources() *renderer.TileNode { return t.node }
func (t *Tile) Evicted() bool { return t.evicted }

// Bounds returns the tile's extent in the tileset frame once it is loaded.
func (t *Tile) Bounds() (view.AABB, bool) { return t.bounds, t.hasBounds }

// computeBounds measures the loaded instances in the tileset frame.
func (t *Tile) computeBounds() {
	t.hasBounds = false
	if t.node == nil {
		return
	}
	toTileset := tiles.ZUpToYUp().Inverse()
	for _, inst := range t.node.Instances {
		if inst.Mesh == nil || inst.Mesh.VertexCount() == 0 {
			continue
		}
		lo, hi := inst.Mesh.Bounds()
		box := view.AABB{Min: lo, Max: hi}.Transform(toTileset.Mul(inst.Transform))
		if t.hasBounds {
			t.bounds = t.bounds.Union(box)
		} else {
			t.bounds = box
			t.hasBounds = true
		}
	}
}

// visible reports whether any frustum sees the tile. Tiles without bounds
// are always visible.
func (t *Tile) visible(frusta []view.Frustum) bool {
	if !t.hasBounds || len(frusta) == 0 {
		return true
	}
	for _, f := range frusta {
		if f.IntersectAABB(t.bounds) {
			return true
		}
	}
	return false
}

// Package renderer builds and tears down the scene objects of streamed
// tiles. Background work never touches the scene graph; everything else runs
// on the goroutine that owns the scene.
package renderer

import (
	"context"
	"errors"
	"fmt"

	"github.com/taigrr/tilekit/pkg/material"
	"github.com/taigrr/tilekit/pkg/pack"
	"github.com/taigrr/tilekit/pkg/scene"
	"github.com/taigrr/tilekit/pkg/tiles"
	"go.uber.org/zap"
)

// ErrPanic wraps a panic recovered while preparing a tile.
var ErrPanic = errors.New("panic while preparing tile")

// Tile is the engine's view of the tile a result belongs to.
type Tile interface {
	// Evicted reports whether the engine dropped the tile while it was
	// being prepared.
	Evicted() bool
}

// TileNode is the render handle of one tile: one mesh instance per uploaded
// primitive, index-aligned with its PrimitiveInfo.
type TileNode struct {
	Instances []*scene.Node
	Infos     []pack.PrimitiveInfo

	visible bool
	freed   bool
}

// SetVisible shows or hides every instance.
func (n *TileNode) SetVisible(v bool) {
	if n.visible == v {
		return
	}
	n.visible = v
	for _, inst := range n.Instances {
		inst.Visible = v
	}
}

// Visible reports the last visibility set.
func (n *TileNode) Visible() bool { return n.visible }

// Freed reports whether the handle was released.
func (n *TileNode) Freed() bool { return n.freed }

// Resources implements the tile render resource lifecycle for one tileset.
type Resources struct {
	// Owner is the tileset node instances are attached under.
	Owner *scene.Node

	// Editor disables collision baking.
	Editor bool

	// CreatePhysicsMeshes enables convex collision baking.
	CreatePhysicsMeshes bool

	log       *zap.Logger
	destroyed bool
}

// New returns resources attaching instances under owner.
func New(owner *scene.Node, log *zap.Logger) *Resources {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resources{
		Owner:               owner,
		CreatePhysicsMeshes: true,
		log:                 log,
	}
}

// Destroy marks the owning tileset as gone. Later Free calls do nothing.
func (r *Resources) Destroy() { r.destroyed = true }

// PrepareInBackground packs the payload into meshes. It does not touch the
// scene graph and may run on any goroutine. A nil result with a nil error
// means the payload has nothing to render.
func (r *Resources) PrepareInBackground(ctx context.Context, payload *tiles.Payload) (res *LoadResult, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("prepare tile in background", zap.Any("panic", rec))
			res, err = nil, fmt.Errorf("%w: %v", ErrPanic, rec)
		}
	}()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if payload == nil || payload.Doc == nil {
		return nil, nil
	}
	return uploadPayload(payload, r.log), nil
}

// PrepareInMainThread takes ownership of res and builds the tile's mesh
// instances under Owner. The returned handle starts hidden. Results for
// evicted tiles are freed and yield nil.
func (r *Resources) PrepareInMainThread(tile Tile, res *LoadResult) (node *TileNode) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("prepare tile in main thread", zap.Any("panic", rec))
			if node != nil {
				r.Free(tile, nil, node)
			}
			node = nil
		}
	}()
	if res == nil {
		return nil
	}
	if tile != nil && tile.Evicted() {
		r.Free(tile, res, nil)
		return nil
	}
	if len(res.Primitives) == 0 {
		res.release()
		return nil
	}

	node = &TileNode{
		Instances: make([]*scene.Node, 0, len(res.Primitives)),
		Infos:     make([]pack.PrimitiveInfo, 0, len(res.Primitives)),
	}
	root := tiles.ZUpToYUp().Mul(res.Transform)
	for _, prim := range res.Primitives {
		mat := scene.NewMaterial()
		material.Bind(prim.Info, prim.Material, mat, res.Textures)
		prim.Mesh.Material = mat

		inst := scene.NewMeshInstance(res.Name, prim.Mesh)
		inst.Transform = root.Mul(prim.Local)
		if r.Owner != nil {
			r.Owner.AddChild(inst)
		}
		if r.CreatePhysicsMeshes && !r.Editor && !prim.Info.ContainsPoints && !prim.Mesh.IsDegenerate() {
			inst.Collision = scene.BakeConvex(prim.Mesh)
		}

		node.Instances = append(node.Instances, inst)
		node.Infos = append(node.Infos, prim.Info)
	}
	res.release()
	return node
}

// Free releases a background result, a render handle, or both. Either may be
// nil. Freeing a handle twice logs a warning and does nothing. After Destroy
// only background results are released.
func (r *Resources) Free(tile Tile, res *LoadResult, node *TileNode) {
	if res != nil {
		res.release()
	}
	if r.destroyed || node == nil {
		return
	}
	if node.freed {
		r.log.Warn("tile render resources already freed")
		return
	}
	node.freed = true
	for _, inst := range node.Instances {
		if p := inst.Parent(); p != nil {
			p.RemoveChild(inst)
		}
	}
	node.Instances = nil
	node.Infos = nil
}

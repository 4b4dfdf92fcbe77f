// Package view turns the scene's active cameras into the view states the
// tile engine selects against.
package view

import (
	"math"

	"github.com/taigrr/tilekit/pkg/math3d"
	"github.com/taigrr/tilekit/pkg/scene"
	"go.uber.org/zap"
)

const (
	// MinViewportSize is the exclusive lower bound on both viewport
	// dimensions for a camera to produce a view state.
	MinViewportSize = 50

	// MaxEditorViewports is the number of editor viewports considered.
	MaxEditorViewports = 4
)

// ViewState is one camera as seen from the tileset frame.
type ViewState struct {
	Position      math3d.Vec3
	Direction     math3d.Vec3 // unit length
	Up            math3d.Vec3 // unit length
	ViewportSize  math3d.Vec2
	HorizontalFOV float64 // radians
	VerticalFOV   float64 // radians
}

// Aspect returns width / height of the viewport.
func (v ViewState) Aspect() float64 {
	if v.ViewportSize.Y == 0 {
		return 1
	}
	return v.ViewportSize.X / v.ViewportSize.Y
}

// Georeference places the tileset frame on the globe.
type Georeference struct {
	// LocalToGlobal maps the local horizontal frame to the global frame.
	LocalToGlobal math3d.Mat4
}

// Context is everything the producer reads for one frame.
type Context struct {
	// Viewport is the game viewport; nil or cameraless viewports are skipped.
	Viewport *scene.Viewport
	// EditorViewports are consulted only when Editor is set.
	EditorViewports []*scene.Viewport
	Editor          bool

	// WorldToTileset maps scene space into the tileset frame.
	WorldToTileset math3d.Mat4
	Georeference   *Georeference
}

// Producer collects view states from the scene cameras.
type Producer struct {
	log *zap.Logger
}

// NewProducer returns a producer logging to log.
func NewProducer(log *zap.Logger) *Producer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Producer{log: log}
}

// ViewStates returns one view state for the game camera and, in editor
// context, one per editor camera. Viewports not larger than
// MinViewportSize in both dimensions are skipped.
func (p *Producer) ViewStates(ctx Context) []ViewState {
	var out []ViewState
	add := func(vp *scene.Viewport) {
		if vp == nil || vp.Camera == nil {
			return
		}
		if vp.Width <= MinViewportSize || vp.Height <= MinViewportSize {
			p.log.Debug("skipping small viewport", zap.Int("width", vp.Width), zap.Int("height", vp.Height))
			return
		}
		out = append(out, FromCamera(vp.Camera, float64(vp.Width), float64(vp.Height), ctx.WorldToTileset, ctx.Georeference))
	}

	add(ctx.Viewport)
	if ctx.Editor {
		for i, vp := range ctx.EditorViewports {
			if i >= MaxEditorViewports {
				break
			}
			add(vp)
		}
	}
	return out
}

// FromCamera builds the view state of cam rendering a width x height
// viewport.
func FromCamera(cam *scene.Camera, width, height float64, worldToTileset math3d.Mat4, geo *Georeference) ViewState {
	xf := cam.Transform()

	position := worldToTileset.MulVec3(xf.Translation())
	direction := worldToTileset.MulVec3Dir(xf.Column(2).Negate())
	up := worldToTileset.MulVec3Dir(xf.Column(1))

	if geo != nil {
		position = geo.LocalToGlobal.MulVec3(position)
		direction = geo.LocalToGlobal.MulVec3Dir(direction)
		up = geo.LocalToGlobal.MulVec3Dir(up)
	}

	return ViewState{
		Position:      position,
		Direction:     direction.Normalize(),
		Up:            up.Normalize(),
		ViewportSize:  math3d.V2(width, height),
		HorizontalFOV: HorizontalFOV(cam.FOV, width, height),
		VerticalFOV:   cam.FOV,
	}
}

// HorizontalFOV derives the horizontal field of view from the vertical one.
func HorizontalFOV(vertical, width, height float64) float64 {
	return 2 * math.Atan(width/height*math.Tan(vertical/2))
}

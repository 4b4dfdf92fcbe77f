package renderer

import (
	"fmt"

	"github.com/taigrr/tilekit/pkg/math3d"
	"github.com/taigrr/tilekit/pkg/overlay"
	"github.com/taigrr/tilekit/pkg/scene"
	"go.uber.org/zap"
)

// PrepareRasterInBackground decodes an overlay tile image.
func (r *Resources) PrepareRasterInBackground(img overlay.Image) (res *overlay.RasterResult, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			res, err = nil, fmt.Errorf("%w: %v", ErrPanic, rec)
		}
	}()
	tex, err := scene.DecodeTexture(img.Data)
	if err != nil {
		return nil, fmt.Errorf("decode overlay tile: %w", err)
	}
	return &overlay.RasterResult{Image: tex.Image}, nil
}

// PrepareRasterInMainThread turns a decoded overlay tile into a texture for
// the overlay with material key key.
func (r *Resources) PrepareRasterInMainThread(key string, res *overlay.RasterResult) *overlay.Texture {
	if res == nil || res.Image == nil {
		return nil
	}
	tex := &overlay.Texture{
		Key:     key,
		Texture: &scene.Texture{Name: key, Image: res.Image},
	}
	res.Image = nil
	return tex
}

// FreeRaster releases either or both raster resources.
func (r *Resources) FreeRaster(res *overlay.RasterResult, tex *overlay.Texture) {
	if res != nil {
		res.Image = nil
	}
	if tex != nil {
		tex.Texture = nil
	}
}

// AttachRasterInMainThread binds tex to every instance of node whose
// primitive packed overlay texture coordinate set channel. It returns the
// number of materials bound. Repeated attaches for the same key overwrite
// earlier ones.
func (r *Resources) AttachRasterInMainThread(node *TileNode, channel int, tex *overlay.Texture, translation, scale math3d.Vec2) int {
	if node == nil || node.freed || tex == nil || tex.Texture == nil {
		return 0
	}
	bound := 0
	for i, info := range node.Infos {
		slot, ok := info.OverlayUVIndexMap[channel]
		if !ok {
			continue
		}
		mat := instanceMaterial(node, i)
		if mat == nil {
			continue
		}
		mat.SetParam(overlay.TextureParam(tex.Key), tex.Texture)
		mat.SetParam(overlay.CoordinateIndexParam(tex.Key), slot)
		mat.SetParam(overlay.TranslationScaleParam(tex.Key), [4]float64{translation.X, translation.Y, scale.X, scale.Y})
		bound++
	}
	r.log.Debug("attached raster overlay", zap.String("key", tex.Key), zap.Int("channel", channel), zap.Int("bound", bound))
	return bound
}

// DetachRasterInMainThread clears the overlay parameters set by
// AttachRasterInMainThread and returns the number of materials cleared.
func (r *Resources) DetachRasterInMainThread(node *TileNode, channel int, tex *overlay.Texture) int {
	if node == nil || node.freed || tex == nil {
		return 0
	}
	cleared := 0
	for i, info := range node.Infos {
		if _, ok := info.OverlayUVIndexMap[channel]; !ok {
			continue
		}
		mat := instanceMaterial(node, i)
		if mat == nil {
			continue
		}
		mat.ClearParam(overlay.TextureParam(tex.Key))
		mat.ClearParam(overlay.CoordinateIndexParam(tex.Key))
		mat.ClearParam(overlay.TranslationScaleParam(tex.Key))
		cleared++
	}
	return cleared
}

func instanceMaterial(node *TileNode, i int) *scene.Material {
	if i >= len(node.Instances) {
		return nil
	}
	inst := node.Instances[i]
	if inst.Mesh == nil {
		return nil
	}
	return inst.Mesh.Material
}

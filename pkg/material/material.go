// Package material maps glTF materials onto scene materials.
package material

import (
	"github.com/qmuntal/gltf"
	"github.com/taigrr/tilekit/pkg/math3d"
	"github.com/taigrr/tilekit/pkg/pack"
	"github.com/taigrr/tilekit/pkg/scene"
	"github.com/taigrr/tilekit/pkg/tiles"
)

const (
	unlitExtension     = "KHR_materials_unlit"
	transformExtension = "KHR_texture_transform"
)

// TextureLoader resolves a glTF texture index to a decoded texture and the
// filter of its sampler.
type TextureLoader interface {
	Texture(index int) (*scene.Texture, bool)
	Filter(index int) scene.Filter
}

// Textures holds the textures of one document decoded ahead of time.
type Textures struct {
	textures map[int]*scene.Texture
	filters  map[int]scene.Filter
}

// NewTextures returns an empty texture set.
func NewTextures() *Textures {
	return &Textures{textures: map[int]*scene.Texture{}, filters: map[int]scene.Filter{}}
}

// Add stores the texture for glTF texture index.
func (t *Textures) Add(index int, tex *scene.Texture, filter scene.Filter) {
	t.textures[index] = tex
	t.filters[index] = filter
}

// Texture implements TextureLoader.
func (t *Textures) Texture(index int) (*scene.Texture, bool) {
	tex, ok := t.textures[index]
	return tex, ok && tex != nil
}

// Filter implements TextureLoader.
func (t *Textures) Filter(index int) scene.Filter { return t.filters[index] }

// Len returns the number of textures held.
func (t *Textures) Len() int { return len(t.textures) }

// Lookup returns material index i of doc, or nil.
func Lookup(doc *gltf.Document, i *int) *gltf.Material {
	if doc == nil || i == nil || *i < 0 || *i >= len(doc.Materials) {
		return nil
	}
	return doc.Materials[*i]
}

// IsUnlit reports whether the material uses KHR_materials_unlit.
func IsUnlit(mat *gltf.Material) bool {
	return mat != nil && tiles.HasExtension(mat.Extensions, unlitExtension)
}

// textureTransform is the KHR_texture_transform payload.
type textureTransform struct {
	Offset   *[2]float64 `json:"offset"`
	Scale    *[2]float64 `json:"scale"`
	Rotation float64     `json:"rotation"`
}

// slotRef is one texture reference of a glTF material in binding order.
type slotRef struct {
	slot     scene.TextureSlot
	index    int
	texCoord int
	exts     gltf.Extensions
}

// refs lists the material's texture references. The order is the order UV
// transforms are applied in.
func refs(mat *gltf.Material) []slotRef {
	var out []slotRef
	if pbr := mat.PBRMetallicRoughness; pbr != nil {
		if ti := pbr.BaseColorTexture; ti != nil {
			out = append(out, slotRef{scene.SlotAlbedo, ti.Index, ti.TexCoord, ti.Extensions})
		}
		if ti := pbr.MetallicRoughnessTexture; ti != nil {
			out = append(out, slotRef{scene.SlotMetallicRoughness, ti.Index, ti.TexCoord, ti.Extensions})
		}
	}
	if nt := mat.NormalTexture; nt != nil && nt.Index != nil {
		out = append(out, slotRef{scene.SlotNormal, *nt.Index, nt.TexCoord, nt.Extensions})
	}
	if ti := mat.EmissiveTexture; ti != nil {
		out = append(out, slotRef{scene.SlotEmission, ti.Index, ti.TexCoord, ti.Extensions})
	}
	if ot := mat.OcclusionTexture; ot != nil && ot.Index != nil {
		out = append(out, slotRef{scene.SlotOcclusion, *ot.Index, ot.TexCoord, ot.Extensions})
	}
	return out
}

// TextureIndices returns the glTF texture indices mat references.
func TextureIndices(mat *gltf.Material) []int {
	if mat == nil {
		return nil
	}
	var out []int
	for _, ref := range refs(mat) {
		out = append(out, ref.index)
	}
	return out
}

// Bind fills m from the glTF material mat. A nil mat leaves the
// default PBR values. Textures are bound only when the primitive packed the
// texture's coordinate set; the binding then samples the packed slot.
//
// Every slot carrying KHR_texture_transform overwrites the single UV1
// offset and scale of m, bound or not, so the last slot in refs order wins.
// The extension's texCoord override is ignored; slots are keyed by the
// texture info's own texCoord.
func Bind(info pack.PrimitiveInfo, mat *gltf.Material, m *scene.Material, textures TextureLoader) {
	m.Albedo = [4]float64{1, 1, 1, 1}
	m.Metallic = 1
	m.Roughness = 1
	if info.IsUnlit {
		m.Shading = scene.ShadingUnshaded
	}
	if info.IsTranslucent {
		m.Transparency = scene.TransparencyAlpha
	}
	if mat == nil {
		return
	}

	if pbr := mat.PBRMetallicRoughness; pbr != nil {
		m.Albedo = pbr.BaseColorFactorOrDefault()
		m.Metallic = pbr.MetallicFactorOrDefault()
		m.Roughness = pbr.RoughnessFactorOrDefault()
	}
	m.Emission = mat.EmissiveFactor
	switch mat.AlphaMode {
	case gltf.AlphaBlend:
		m.Transparency = scene.TransparencyAlpha
	case gltf.AlphaMask:
		if m.Transparency == scene.TransparencyDisabled {
			m.Transparency = scene.TransparencyAlphaScissor
		}
		m.AlphaCutoff = mat.AlphaCutoffOrDefault()
	}
	m.CullDisabled = mat.DoubleSided
	if IsUnlit(mat) {
		m.Shading = scene.ShadingUnshaded
	}

	for _, ref := range refs(mat) {
		slot, ok := info.UVIndexMap[ref.texCoord]
		if !ok {
			continue
		}
		tex, ok := textures.Texture(ref.index)
		if !ok {
			continue
		}
		m.SetTexture(ref.slot, tex, slot)
		if ref.slot == scene.SlotAlbedo {
			m.Filter = textures.Filter(ref.index)
		}
	}

	// Transforms apply whether or not the slot's texture was bound.
	for _, ref := range refs(mat) {
		var xf textureTransform
		if tiles.DecodeExtension(ref.exts, transformExtension, &xf) {
			applyTransform(m, xf)
		}
	}
}

func applyTransform(m *scene.Material, xf textureTransform) {
	m.UV1Offset = math3d.V2(0, 0)
	m.UV1Scale = math3d.V2(1, 1)
	if xf.Offset != nil {
		m.UV1Offset = math3d.V2(xf.Offset[0], xf.Offset[1])
	}
	if xf.Scale != nil {
		m.UV1Scale = math3d.V2(xf.Scale[0], xf.Scale[1])
	}
}

// SamplerFilter returns the filter for glTF texture index from its sampler.
func SamplerFilter(doc *gltf.Document, index int) scene.Filter {
	if doc == nil || index < 0 || index >= len(doc.Textures) {
		return scene.FilterLinear
	}
	tex := doc.Textures[index]
	if tex.Sampler == nil || *tex.Sampler < 0 || *tex.Sampler >= len(doc.Samplers) {
		return scene.FilterLinear
	}
	return Filter(doc.Samplers[*tex.Sampler])
}

// Filter maps a sampler's min and mag filters to a scene filter.
func Filter(s *gltf.Sampler) scene.Filter {
	switch s.MinFilter {
	case gltf.MinNearest:
		return scene.FilterNearest
	case gltf.MinNearestMipMapNearest:
		return scene.FilterNearestMipmaps
	case gltf.MinLinear:
		return scene.FilterLinear
	case gltf.MinLinearMipMapNearest, gltf.MinNearestMipMapLinear, gltf.MinLinearMipMapLinear:
		return scene.FilterLinearMipmaps
	}
	if s.MagFilter == gltf.MagNearest {
		return scene.FilterNearest
	}
	return scene.FilterLinear
}

package scene

import "github.com/taigrr/tilekit/pkg/math3d"

// Shading selects the lighting model of a material.
type Shading int

const (
	ShadingPerPixel Shading = iota
	ShadingUnshaded
)

// Transparency selects how alpha is handled.
type Transparency int

const (
	TransparencyDisabled Transparency = iota
	TransparencyAlpha
	TransparencyAlphaScissor
)

// TextureSlot names a material texture input.
type TextureSlot int

const (
	SlotAlbedo TextureSlot = iota
	SlotMetallicRoughness
	SlotNormal
	SlotOcclusion
	SlotEmission
)

func (s TextureSlot) String() string {
	switch s {
	case SlotAlbedo:
		return "albedo"
	case SlotMetallicRoughness:
		return "metallic_roughness"
	case SlotNormal:
		return "normal"
	case SlotOcclusion:
		return "occlusion"
	case SlotEmission:
		return "emission"
	}
	return "unknown"
}

// Filter is the texture filter used by a material.
type Filter int

const (
	FilterLinear Filter = iota
	FilterNearest
	FilterLinearMipmaps
	FilterNearestMipmaps
)

func (f Filter) String() string {
	switch f {
	case FilterNearest:
		return "nearest"
	case FilterLinearMipmaps:
		return "linear_mipmaps"
	case FilterNearestMipmaps:
		return "nearest_mipmaps"
	}
	return "linear"
}

// Mipmapped reports whether the filter samples mip levels.
func (f Filter) Mipmapped() bool {
	return f == FilterLinearMipmaps || f == FilterNearestMipmaps
}

// TextureBinding is a texture bound to a material slot, sampled with the
// given texture coordinate slot of the mesh.
type TextureBinding struct {
	Texture *Texture
	UVSlot  int
}

// Material holds the PBR inputs of one mesh plus free-form shader parameters
// used for raster overlays.
type Material struct {
	Albedo      [4]float64
	Metallic    float64
	Roughness   float64
	Emission    [3]float64
	AlphaCutoff float64

	Textures map[TextureSlot]TextureBinding
	Filter   Filter

	// UV1 transform shared by every texture slot.
	UV1Offset math3d.Vec2
	UV1Scale  math3d.Vec2

	Shading      Shading
	Transparency Transparency
	CullDisabled bool

	params map[string]any
}

// NewMaterial returns a white, fully metallic, fully rough material.
func NewMaterial() *Material {
	return &Material{
		Albedo:    [4]float64{1, 1, 1, 1},
		Metallic:  1,
		Roughness: 1,
		Textures:  map[TextureSlot]TextureBinding{},
		UV1Scale:  math3d.V2(1, 1),
		params:    map[string]any{},
	}
}

// SetTexture binds tex to slot.
func (m *Material) SetTexture(slot TextureSlot, tex *Texture, uvSlot int) {
	m.Textures[slot] = TextureBinding{Texture: tex, UVSlot: uvSlot}
}

// Texture returns the binding for slot.
func (m *Material) Texture(slot TextureSlot) (TextureBinding, bool) {
	b, ok := m.Textures[slot]
	return b, ok
}

// SetParam sets a shader parameter.
func (m *Material) SetParam(name string, v any) {
	if m.params == nil {
		m.params = map[string]any{}
	}
	m.params[name] = v
}

// Param returns a shader parameter.
func (m *Material) Param(name string) (any, bool) {
	v, ok := m.params[name]
	return v, ok
}

// ClearParam removes a shader parameter.
func (m *Material) ClearParam(name string) {
	delete(m.params, name)
}

// ParamCount returns the number of shader parameters set.
func (m *Material) ParamCount() int { return len(m.params) }

package renderer

import (
	"github.com/jinzhu/copier"
	"github.com/qmuntal/gltf"
	"github.com/taigrr/tilekit/pkg/material"
	"github.com/taigrr/tilekit/pkg/math3d"
	"github.com/taigrr/tilekit/pkg/pack"
	"github.com/taigrr/tilekit/pkg/scene"
	"github.com/taigrr/tilekit/pkg/tiles"
	"go.uber.org/zap"
)

// Primitive is one packed primitive waiting for the main goroutine.
type Primitive struct {
	Mesh     *scene.Mesh
	Info     pack.PrimitiveInfo
	Material *gltf.Material // private copy, nil for the default material
	Local    math3d.Mat4    // up-axis correction times the glTF node transform
}

// LoadResult is the output of the background phase. It holds no reference
// into the payload it was built from and is owned by exactly one caller at
// a time.
type LoadResult struct {
	Name       string
	Transform  math3d.Mat4 // tile transform with the RTC center applied
	Primitives []Primitive
	Textures   *material.Textures
}

// release drops the buffers held by the result.
func (r *LoadResult) release() {
	r.Primitives = nil
	r.Textures = nil
}

// uploadPayload converts every drawable primitive of p into a mesh. Primitives
// without a usable POSITION, with an unsupported index type, or that the
// packer drops are left out; no placeholder takes their place.
func uploadPayload(p *tiles.Payload, log *zap.Logger) *LoadResult {
	res := &LoadResult{
		Name:      p.Name(),
		Transform: p.RootTransform(),
		Textures:  material.NewTextures(),
	}
	upAxis := p.UpAxis.ToZUp()
	materials := map[int]*gltf.Material{}

	for _, prim := range p.Primitives() {
		if _, ok := prim.Attribute(gltf.POSITION); !ok {
			log.Debug("skipping primitive without POSITION", zap.Int("mesh", prim.Mesh), zap.Int("primitive", prim.Index))
			continue
		}

		var indices *tiles.Accessor
		if prim.Indices != nil {
			acc, err := p.Accessor(*prim.Indices)
			if err != nil {
				log.Debug("skipping primitive with unreadable indices", zap.Int("mesh", prim.Mesh), zap.Error(err))
				continue
			}
			indices = acc
		}
		posIdx, _ := prim.Attribute(gltf.POSITION)
		pos, err := p.Accessor(posIdx)
		if err != nil {
			log.Debug("skipping primitive with invalid POSITION", zap.Int("mesh", prim.Mesh), zap.Error(err))
			continue
		}

		src := material.Lookup(p.Doc, prim.Material)
		packed, ok := pack.Pack(prim, p, pack.IndexFormatFor(indices, pos.Count), material.IsUnlit(src))
		if !ok {
			log.Debug("skipping primitive the packer dropped", zap.Int("mesh", prim.Mesh), zap.Int("primitive", prim.Index))
			continue
		}

		var mat *gltf.Material
		if src != nil {
			mat = materials[*prim.Material]
			if mat == nil {
				mat = copyMaterial(src, log)
				materials[*prim.Material] = mat
				loadTextures(p, mat, res.Textures, log)
			}
		}

		res.Primitives = append(res.Primitives, Primitive{
			Mesh:     meshFromPacked(p.Name(), packed),
			Info:     packed.Info,
			Material: mat,
			Local:    upAxis.Mul(prim.Transform),
		})
	}
	return res
}

func copyMaterial(src *gltf.Material, log *zap.Logger) *gltf.Material {
	dst := new(gltf.Material)
	if err := copier.CopyWithOption(dst, src, copier.Option{DeepCopy: true}); err != nil {
		log.Warn("copy material", zap.String("material", src.Name), zap.Error(err))
		return src
	}
	return dst
}

// loadTextures decodes the textures mat references that are not loaded yet.
func loadTextures(p *tiles.Payload, mat *gltf.Material, out *material.Textures, log *zap.Logger) {
	doc := p.Doc
	for _, idx := range material.TextureIndices(mat) {
		if _, ok := out.Texture(idx); ok {
			continue
		}
		if idx < 0 || idx >= len(doc.Textures) || doc.Textures[idx].Source == nil {
			continue
		}
		data, err := p.ImageData(*doc.Textures[idx].Source)
		if err != nil {
			log.Warn("read texture image", zap.Int("texture", idx), zap.Error(err))
			continue
		}
		tex, err := scene.DecodeTexture(data)
		if err != nil {
			log.Warn("decode texture image", zap.Int("texture", idx), zap.Error(err))
			continue
		}
		filter := material.SamplerFilter(doc, idx)
		if filter.Mipmapped() {
			tex.GenerateMipmaps()
		}
		out.Add(idx, tex, filter)
	}
}

func meshFromPacked(name string, r *pack.Result) *scene.Mesh {
	a := r.Arrays()
	m := &scene.Mesh{
		Name:      name,
		Positions: a.Positions,
		Normals:   a.Normals,
		Colors:    a.Colors,
		UVs:       a.UVs,
		Indices:   a.Indices,
	}
	if r.Info.ContainsPoints {
		m.Type = scene.PrimitivePoints
	}
	return m
}

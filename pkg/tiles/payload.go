// Package tiles wraps the decoded glTF content of one streamed tile.
package tiles

import (
	"fmt"
	"math"
	"path/filepath"

	"github.com/qmuntal/gltf"
	"github.com/taigrr/tilekit/pkg/math3d"
)

// Attribute semantics used by the pipeline beyond the core glTF set.
const (
	// OverlayPrefix prefixes the texture coordinate sets generated for raster
	// overlays (_CESIUMOVERLAY_0, _CESIUMOVERLAY_1, ...).
	OverlayPrefix = "_CESIUMOVERLAY_"

	// TexCoordPrefix prefixes the texture coordinate sets declared by the model.
	TexCoordPrefix = "TEXCOORD_"

	// TileURLExtra is the document extras key holding the tile URL.
	TileURLExtra = "Cesium3DTiles_TileUrl"

	// RTCExtension is the CESIUM_RTC extension carrying a relative-to-center offset.
	RTCExtension = "CESIUM_RTC"
)

// UpAxis is the up axis a payload was authored with.
type UpAxis int

const (
	UpAxisY UpAxis = iota // glTF default
	UpAxisZ
	UpAxisX
)

// Payload is the decoded content of one tile as handed over by the streaming
// engine. The pipeline only reads it.
type Payload struct {
	Doc       *gltf.Document
	Transform math3d.Mat4 // tile transform in the tileset frame
	UpAxis    UpAxis
	RTCCenter *math3d.Vec3 // optional relative-to-center offset
	Dir       string       // directory for external image URIs
}

// NewPayload wraps a document with an identity transform.
func NewPayload(doc *gltf.Document) *Payload {
	return &Payload{
		Doc:       doc,
		Transform: math3d.Identity(),
	}
}

// Name returns the tile URL stored in the document extras, or "glTF".
func (p *Payload) Name() string {
	if p == nil || p.Doc == nil {
		return "glTF"
	}
	if extras, ok := p.Doc.Extras.(map[string]any); ok {
		if url, ok := extras[TileURLExtra].(string); ok && url != "" {
			return url
		}
	}
	return "glTF"
}

// RootTransform returns the tile transform with the RTC center applied.
func (p *Payload) RootTransform() math3d.Mat4 {
	if p.RTCCenter == nil {
		return p.Transform
	}
	return p.Transform.Mul(math3d.Translate(*p.RTCCenter))
}

// Primitive is one mesh primitive reached while walking the scene, together
// with the accumulated node transform.
type Primitive struct {
	Mesh      int
	Index     int // position within the mesh
	Mode      gltf.PrimitiveMode
	Attrs     gltf.PrimitiveAttributes
	Indices   *int
	Material  *int
	Transform math3d.Mat4
}

// Attribute returns the accessor index for a semantic.
func (p Primitive) Attribute(semantic string) (int, bool) {
	idx, ok := p.Attrs[semantic]
	return idx, ok
}

// Primitives walks the default scene (or the first scene, or every mesh when
// the document has no scenes) and returns its primitives in draw order.
func (p *Payload) Primitives() []Primitive {
	if p == nil || p.Doc == nil {
		return nil
	}
	doc := p.Doc

	var out []Primitive
	visit := func(meshIdx int, transform math3d.Mat4) {
		if meshIdx < 0 || meshIdx >= len(doc.Meshes) {
			return
		}
		for i, prim := range doc.Meshes[meshIdx].Primitives {
			out = append(out, Primitive{
				Mesh:      meshIdx,
				Index:     i,
				Mode:      prim.Mode,
				Attrs:     prim.Attributes,
				Indices:   prim.Indices,
				Material:  prim.Material,
				Transform: transform,
			})
		}
	}

	sceneIdx := -1
	if doc.Scene != nil {
		sceneIdx = *doc.Scene
	} else if len(doc.Scenes) > 0 {
		sceneIdx = 0
	}

	if sceneIdx < 0 || sceneIdx >= len(doc.Scenes) {
		// No usable scene: fall back to every mesh with an identity transform.
		for i := range doc.Meshes {
			visit(i, math3d.Identity())
		}
		return out
	}

	var walk func(nodeIdx int, parent math3d.Mat4, depth int)
	walk = func(nodeIdx int, parent math3d.Mat4, depth int) {
		if nodeIdx < 0 || nodeIdx >= len(doc.Nodes) || depth > len(doc.Nodes) {
			return
		}
		node := doc.Nodes[nodeIdx]
		local := parent.Mul(nodeMatrix(node))
		if node.Mesh != nil {
			visit(*node.Mesh, local)
		}
		for _, child := range node.Children {
			walk(child, local, depth+1)
		}
	}
	for _, root := range doc.Scenes[sceneIdx].Nodes {
		walk(root, math3d.Identity(), 0)
	}
	return out
}

// nodeMatrix returns the local transform of a node.
func nodeMatrix(n *gltf.Node) math3d.Mat4 {
	m := n.MatrixOrDefault()
	if m != gltf.DefaultMatrix {
		return math3d.Mat4(m)
	}
	t := n.TranslationOrDefault()
	s := n.ScaleOrDefault()
	return math3d.TRS(math3d.V3(t[0], t[1], t[2]), n.RotationOrDefault(), math3d.V3(s[0], s[1], s[2]))
}

// Load opens a .gltf or .glb file as a payload.
func Load(path string) (*Payload, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gltf: %w", err)
	}
	p := NewPayload(doc)
	p.RTCCenter = rtcCenter(doc)
	p.Dir = filepath.Dir(path)
	return p, nil
}

// ToZUp returns the rotation taking content authored with axis up into the
// Z-up tileset frame.
func (a UpAxis) ToZUp() math3d.Mat4 {
	switch a {
	case UpAxisZ:
		return math3d.Identity()
	case UpAxisX:
		return math3d.RotateY(-math.Pi / 2)
	}
	return math3d.RotateX(math.Pi / 2)
}

// ZUpToYUp returns the rotation from the Z-up tileset frame into the Y-up
// scene frame.
func ZUpToYUp() math3d.Mat4 {
	return math3d.RotateX(-math.Pi / 2)
}

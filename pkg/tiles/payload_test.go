package tiles

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/taigrr/tilekit/pkg/math3d"
)

func TestPrimitivesWalkNodeTransforms(t *testing.T) {
	doc := gltf.NewDocument()
	pos := modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}})
	doc.Meshes = []*gltf.Mesh{
		{Primitives: []*gltf.Primitive{{Attributes: gltf.PrimitiveAttributes{gltf.POSITION: pos}}}},
		{Primitives: []*gltf.Primitive{
			{Attributes: gltf.PrimitiveAttributes{gltf.POSITION: pos}},
			{Attributes: gltf.PrimitiveAttributes{gltf.POSITION: pos}, Mode: gltf.PrimitivePoints},
		}},
	}
	doc.Nodes = []*gltf.Node{
		{Mesh: gltf.Index(0), Translation: [3]float64{10, 0, 0}, Children: []int{1}},
		{Mesh: gltf.Index(1), Translation: [3]float64{0, 5, 0}},
	}
	doc.Scenes = []*gltf.Scene{{Nodes: []int{0}}}
	doc.Scene = gltf.Index(0)

	prims := NewPayload(doc).Primitives()
	if len(prims) != 3 {
		t.Fatalf("len(Primitives()) = %d, want 3", len(prims))
	}
	if got := prims[0].Transform.Translation(); got != math3d.V3(10, 0, 0) {
		t.Errorf("root translation = %v", got)
	}
	if got := prims[2].Transform.Translation(); got != math3d.V3(10, 5, 0) {
		t.Errorf("child translation = %v", got)
	}
	if prims[2].Mode != gltf.PrimitivePoints || prims[2].Index != 1 {
		t.Errorf("prims[2] = %+v", prims[2])
	}
}

func TestPrimitivesWithoutScene(t *testing.T) {
	doc := &gltf.Document{Meshes: []*gltf.Mesh{{Primitives: []*gltf.Primitive{{}}}}}
	if got := len(NewPayload(doc).Primitives()); got != 1 {
		t.Errorf("len(Primitives()) = %d, want 1", got)
	}
}

func TestPayloadName(t *testing.T) {
	doc := gltf.NewDocument()
	if got := NewPayload(doc).Name(); got != "glTF" {
		t.Errorf("Name() = %q, want glTF", got)
	}
	doc.Extras = map[string]any{TileURLExtra: "tiles/0/0/0.glb"}
	if got := NewPayload(doc).Name(); got != "tiles/0/0/0.glb" {
		t.Errorf("Name() = %q", got)
	}
}

func TestAccessorBounds(t *testing.T) {
	doc := gltf.NewDocument()
	idx := modeler.WriteIndices(doc, []uint16{0, 1, 2, 2})
	p := NewPayload(doc)

	acc, err := p.Accessor(idx)
	if err != nil {
		t.Fatal(err)
	}
	got, err := acc.Indices()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 4 || got[3] != 2 {
		t.Errorf("Indices() = %v", got)
	}

	if _, err := p.Accessor(99); !errors.Is(err, ErrNoAccessor) {
		t.Errorf("Accessor(99) err = %v, want ErrNoAccessor", err)
	}

	doc.Accessors[idx].Count = 1000
	if _, err := p.Accessor(idx); err == nil {
		t.Error("oversized accessor should fail")
	}
}

func TestRTCCenter(t *testing.T) {
	doc := gltf.NewDocument()
	doc.Extensions = gltf.Extensions{RTCExtension: json.RawMessage(`{"center":[1,2,3]}`)}
	c := rtcCenter(doc)
	if c == nil || *c != math3d.V3(1, 2, 3) {
		t.Fatalf("rtcCenter() = %v", c)
	}
	p := NewPayload(doc)
	p.RTCCenter = c
	if got := p.RootTransform().Translation(); got != math3d.V3(1, 2, 3) {
		t.Errorf("RootTransform translation = %v", got)
	}
}

func TestUpAxisToZUp(t *testing.T) {
	tests := []struct {
		name string
		axis UpAxis
		up   math3d.Vec3
	}{
		{"y", UpAxisY, math3d.V3(0, 1, 0)},
		{"x", UpAxisX, math3d.V3(1, 0, 0)},
		{"z", UpAxisZ, math3d.V3(0, 0, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.axis.ToZUp().MulVec3Dir(tt.up)
			if got.Distance(math3d.V3(0, 0, 1)) > 1e-12 {
				t.Errorf("ToZUp() maps %v to %v, want +Z", tt.up, got)
			}
		})
	}
	// Round trip back into the scene frame restores Y-up content.
	got := ZUpToYUp().Mul(UpAxisY.ToZUp()).MulVec3Dir(math3d.V3(0, 1, 0))
	if got.Distance(math3d.V3(0, 1, 0)) > 1e-12 {
		t.Errorf("Y-up round trip = %v", got)
	}
}

func TestImageDataBadBuffer(t *testing.T) {
	tests := []struct {
		name string
		bv   *gltf.BufferView
	}{
		{"buffer past end", &gltf.BufferView{Buffer: 5, ByteLength: 4}},
		{"nil view", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := gltf.NewDocument()
			doc.Buffers = []*gltf.Buffer{{Data: []byte{1, 2, 3, 4}}}
			doc.BufferViews = []*gltf.BufferView{tt.bv}
			doc.Images = []*gltf.Image{{BufferView: gltf.Index(0), MimeType: "image/png"}}

			if _, err := NewPayload(doc).ImageData(0); err == nil {
				t.Error("ImageData() error = nil, want an out of range error")
			}
		})
	}
}

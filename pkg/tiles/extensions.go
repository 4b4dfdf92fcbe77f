package tiles

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/qmuntal/gltf"
	"github.com/taigrr/tilekit/pkg/math3d"
)

// DecodeExtension unmarshals an extension value into v. Extensions the glTF
// decoder does not know are kept as raw JSON; known ones may already be
// decoded into maps or structs.
func DecodeExtension(exts gltf.Extensions, name string, v any) bool {
	raw, ok := exts[name]
	if !ok || raw == nil {
		return false
	}
	var data []byte
	switch r := raw.(type) {
	case json.RawMessage:
		data = r
	case []byte:
		data = r
	default:
		b, err := json.Marshal(r)
		if err != nil {
			return false
		}
		data = b
	}
	return json.Unmarshal(data, v) == nil
}

// HasExtension reports whether the extension is present.
func HasExtension(exts gltf.Extensions, name string) bool {
	_, ok := exts[name]
	return ok
}

func rtcCenter(doc *gltf.Document) *math3d.Vec3 {
	var rtc struct {
		Center []float64 `json:"center"`
	}
	if !DecodeExtension(doc.Extensions, RTCExtension, &rtc) || len(rtc.Center) != 3 {
		return nil
	}
	c := math3d.V3(rtc.Center[0], rtc.Center[1], rtc.Center[2])
	return &c
}

// ImageData returns the encoded bytes of an image, read from its buffer view,
// an embedded data URI, or a file next to the document.
func (p *Payload) ImageData(index int) ([]byte, error) {
	doc := p.Doc
	if doc == nil || index < 0 || index >= len(doc.Images) {
		return nil, fmt.Errorf("image %d not found", index)
	}
	img := doc.Images[index]
	if img.BufferView != nil {
		if *img.BufferView < 0 || *img.BufferView >= len(doc.BufferViews) {
			return nil, fmt.Errorf("image %d: buffer view out of range", index)
		}
		bv := doc.BufferViews[*img.BufferView]
		if bv == nil || bv.Buffer < 0 || bv.Buffer >= len(doc.Buffers) || doc.Buffers[bv.Buffer] == nil {
			return nil, fmt.Errorf("image %d: buffer out of range", index)
		}
		buf := doc.Buffers[bv.Buffer]
		if buf.Data == nil || bv.ByteOffset+bv.ByteLength > len(buf.Data) {
			return nil, fmt.Errorf("image %d: buffer has no data", index)
		}
		return buf.Data[bv.ByteOffset : bv.ByteOffset+bv.ByteLength], nil
	}
	if img.IsEmbeddedResource() {
		return img.MarshalData()
	}
	if img.URI == "" || p.Dir == "" {
		return nil, fmt.Errorf("image %d has no data", index)
	}
	return os.ReadFile(filepath.Join(p.Dir, img.URI))
}

package pack

import (
	"fmt"
	"strconv"

	"github.com/chewxy/math32"
	"github.com/qmuntal/gltf"
	"github.com/taigrr/tilekit/pkg/tiles"
)

// promoteAt is the synthesized vertex count at which UInt16 output is
// widened to UInt32.
const promoteAt = 1 << 16

// PrimitiveInfo is the per-primitive metadata kept alongside the uploaded
// mesh.
type PrimitiveInfo struct {
	ContainsPoints bool
	IsTranslucent  bool
	IsUnlit        bool

	// UVIndexMap maps TEXCOORD_n to the packed slot holding it.
	UVIndexMap map[int]int
	// OverlayUVIndexMap maps _CESIUMOVERLAY_n to the packed slot holding it.
	OverlayUVIndexMap map[int]int
}

// Result is one packed primitive.
type Result struct {
	Buffer      VertexBuffer
	Indices     []uint32 // reversed, clockwise front faces
	IndexFormat IndexFormat
	Info        PrimitiveInfo
}

// Arrays de-interleaves the buffer and attaches the index list.
func (r *Result) Arrays() Arrays {
	a := r.Buffer.Deinterleave()
	a.Indices = r.Indices
	return a
}

// IndexFormatFor returns the output format matching a source index accessor.
// Primitives without indices get UInt32 once their vertex count no longer
// fits in 16 bits.
func IndexFormatFor(indices *tiles.Accessor, vertexCount int) IndexFormat {
	if indices == nil {
		if vertexCount >= promoteAt {
			return UInt32
		}
		return UInt16
	}
	if indices.ComponentType == gltf.ComponentUint {
		return UInt32
	}
	return UInt16
}

// uvChannel is one texture coordinate set selected for packing.
type uvChannel struct {
	acc  *tiles.Accessor
	slot int
}

// Pack packs one primitive. ok is false when the primitive yields nothing
// drawable: no usable POSITION, unsupported mode or index type, or fewer
// than three indices for a non-point primitive.
func Pack(prim tiles.Primitive, src tiles.AccessorSource, format IndexFormat, unlit bool) (*Result, bool) {
	r, err := pack(prim, src, format, unlit)
	if err != nil {
		return nil, false
	}
	return r, true
}

func pack(prim tiles.Primitive, src tiles.AccessorSource, format IndexFormat, unlit bool) (*Result, error) {
	posIdx, ok := prim.Attribute(gltf.POSITION)
	if !ok {
		return nil, fmt.Errorf("primitive has no POSITION")
	}
	pos, err := src.Accessor(posIdx)
	if err != nil {
		return nil, fmt.Errorf("read positions: %w", err)
	}
	if pos.Type != gltf.AccessorVec3 || pos.ComponentType != gltf.ComponentFloat {
		return nil, fmt.Errorf("unexpected POSITION accessor %v/%v", pos.Type, pos.ComponentType)
	}
	vertexCount := pos.Count

	var indices []uint32
	if prim.Indices != nil {
		acc, err := src.Accessor(*prim.Indices)
		if err != nil {
			return nil, fmt.Errorf("read indices: %w", err)
		}
		if indices, err = acc.Indices(); err != nil {
			return nil, err
		}
		for _, i := range indices {
			if int(i) >= vertexCount {
				return nil, fmt.Errorf("index %d out of range (%d vertices)", i, vertexCount)
			}
		}
	} else {
		indices = sequence(vertexCount)
	}

	points := prim.Mode == gltf.PrimitivePoints
	indices, ok = expandIndices(prim.Mode, indices)
	if !ok {
		return nil, fmt.Errorf("unsupported primitive mode %v", prim.Mode)
	}
	if !points {
		indices = indices[:len(indices)-len(indices)%3]
		if len(indices) < 3 {
			return nil, fmt.Errorf("primitive has %d indices", len(indices))
		}
	}

	info := PrimitiveInfo{
		ContainsPoints:    points,
		IsUnlit:           unlit,
		UVIndexMap:        map[int]int{},
		OverlayUVIndexMap: map[int]int{},
	}

	normals, hasNormalAttr := validNormals(prim, src, vertexCount)
	flat := !hasNormalAttr && !unlit && !points
	if flat && format == UInt16 && len(indices) >= promoteAt {
		return pack(prim, src, UInt32, unlit)
	}

	colors := validColors(prim, src, vertexCount)
	if colors != nil && colors.Type == gltf.AccessorVec4 {
		info.IsTranslucent = true
	}

	var uvs []uvChannel
	uvs = collectUVs(prim, src, vertexCount, tiles.TexCoordPrefix, info.UVIndexMap, uvs)
	uvs = collectUVs(prim, src, vertexCount, tiles.OverlayPrefix, info.OverlayUVIndexMap, uvs)

	layout := []Attribute{{Semantic: Position, Format: Float32x3, Dimension: 3}}
	if normals != nil || flat {
		layout = append(layout, Attribute{Semantic: Normal, Format: Float32x3, Dimension: 3})
	}
	if colors != nil {
		layout = append(layout, Attribute{Semantic: Color, Format: UNorm8x4, Dimension: 4})
	}
	for _, uv := range uvs {
		layout = append(layout, Attribute{Semantic: TexCoord, Slot: uv.slot, Format: Float32x2, Dimension: 2})
	}

	res := &Result{
		Buffer:      VertexBuffer{Layout: layout},
		IndexFormat: format,
		Info:        info,
	}

	outCount := vertexCount
	if flat {
		outCount = len(indices)
	}
	w := writer{buf: make([]byte, 0, outCount*res.Buffer.Stride())}

	emit := func(v int, normal *[3]float32) {
		w.vec3(pos.Vec3(v))
		if normal != nil {
			w.vec3(*normal)
		} else if normals != nil {
			w.vec3(normals.Vec3(v))
		}
		if colors != nil {
			w.rgba(readColor(colors, v))
		}
		for _, uv := range uvs {
			w.vec2(readUV(uv.acc, v))
		}
	}

	if flat {
		// Every index gets its own vertex so each face can carry its normal.
		for t := 0; t+2 < len(indices); t += 3 {
			n := faceNormal(pos.Vec3(int(indices[t])), pos.Vec3(int(indices[t+1])), pos.Vec3(int(indices[t+2])))
			for k := range 3 {
				emit(int(indices[t+k]), &n)
			}
		}
		indices = sequence(len(indices))
	} else {
		for v := range vertexCount {
			emit(v, nil)
		}
	}

	reverse(indices)
	res.Buffer.Data = w.buf
	res.Indices = indices
	return res, nil
}

// faceNormal returns normalize(cross(b-a, c-a)).
func faceNormal(a, b, c [3]float32) [3]float32 {
	e1 := [3]float32{b[0] - a[0], b[1] - a[1], b[2] - a[2]}
	e2 := [3]float32{c[0] - a[0], c[1] - a[1], c[2] - a[2]}
	n := [3]float32{
		e1[1]*e2[2] - e1[2]*e2[1],
		e1[2]*e2[0] - e1[0]*e2[2],
		e1[0]*e2[1] - e1[1]*e2[0],
	}
	l := math32.Sqrt(n[0]*n[0] + n[1]*n[1] + n[2]*n[2])
	if l == 0 {
		return n
	}
	return [3]float32{n[0] / l, n[1] / l, n[2] / l}
}

// validNormals returns the NORMAL accessor when it is usable. present is true
// whenever the attribute is declared, valid or not.
func validNormals(prim tiles.Primitive, src tiles.AccessorSource, vertexCount int) (acc *tiles.Accessor, present bool) {
	idx, ok := prim.Attribute(gltf.NORMAL)
	if !ok {
		return nil, false
	}
	acc, err := src.Accessor(idx)
	if err != nil || acc.Type != gltf.AccessorVec3 || acc.ComponentType != gltf.ComponentFloat || acc.Count < vertexCount {
		return nil, true
	}
	return acc, true
}

func validColors(prim tiles.Primitive, src tiles.AccessorSource, vertexCount int) *tiles.Accessor {
	idx, ok := prim.Attribute(gltf.COLOR_0)
	if !ok {
		return nil
	}
	acc, err := src.Accessor(idx)
	if err != nil || acc.Count < vertexCount {
		return nil
	}
	if acc.Type != gltf.AccessorVec3 && acc.Type != gltf.AccessorVec4 {
		return nil
	}
	switch acc.ComponentType {
	case gltf.ComponentUbyte, gltf.ComponentUshort, gltf.ComponentFloat:
		return acc
	}
	return nil
}

// readColor converts one COLOR_0 element to 8 bits per channel.
func readColor(acc *tiles.Accessor, v int) [4]uint8 {
	c := [4]uint8{255, 255, 255, 255}
	for i := range acc.Components() {
		switch acc.ComponentType {
		case gltf.ComponentUbyte:
			c[i] = uint8(acc.Uint(v, i))
		case gltf.ComponentUshort:
			c[i] = uint8(acc.Uint(v, i) >> 8)
		case gltf.ComponentFloat:
			c[i] = uint8(uint32(255*acc.Float(v, i)) & 255)
		}
	}
	return c
}

// collectUVs appends the valid prefix0..prefix7 channels to uvs until all
// slots are taken, recording channel -> slot in index.
func collectUVs(prim tiles.Primitive, src tiles.AccessorSource, vertexCount int, prefix string, index map[int]int, uvs []uvChannel) []uvChannel {
	for ch := range MaxSlots {
		if len(uvs) >= MaxSlots {
			break
		}
		idx, ok := prim.Attribute(prefix + strconv.Itoa(ch))
		if !ok {
			continue
		}
		acc, err := src.Accessor(idx)
		if err != nil || acc.Type != gltf.AccessorVec2 || acc.Count < vertexCount {
			continue
		}
		switch acc.ComponentType {
		case gltf.ComponentFloat:
		case gltf.ComponentUbyte, gltf.ComponentUshort:
			if !acc.Normalized {
				continue
			}
		default:
			continue
		}
		index[ch] = len(uvs)
		uvs = append(uvs, uvChannel{acc: acc, slot: len(uvs)})
	}
	return uvs
}

func readUV(acc *tiles.Accessor, v int) [2]float32 {
	switch acc.ComponentType {
	case gltf.ComponentUbyte:
		return [2]float32{acc.Float(v, 0) / 255, acc.Float(v, 1) / 255}
	case gltf.ComponentUshort:
		return [2]float32{acc.Float(v, 0) / 65535, acc.Float(v, 1) / 65535}
	}
	return acc.Vec2(v)
}

// Package pack converts one glTF primitive into an interleaved vertex buffer
// and a flat triangle index list ready for upload.
package pack

import (
	"encoding/binary"
	"math"
)

// MaxSlots is the total number of texture coordinate slots a packed buffer
// can carry, shared between model and overlay channels.
const MaxSlots = 8

// IndexFormat is the width of the output indices.
type IndexFormat int

const (
	UInt16 IndexFormat = iota
	UInt32
)

func (f IndexFormat) String() string {
	if f == UInt32 {
		return "uint32"
	}
	return "uint16"
}

// Semantic identifies what a packed attribute holds.
type Semantic int

const (
	Position Semantic = iota
	Normal
	Color
	TexCoord
)

// Format is the numeric format of a packed attribute.
type Format int

const (
	Float32x3 Format = iota
	Float32x2
	UNorm8x4
)

// Size returns the byte size of one value.
func (f Format) Size() int {
	switch f {
	case Float32x3:
		return 12
	case Float32x2:
		return 8
	case UNorm8x4:
		return 4
	}
	return 0
}

// Dimension returns the component count of one value.
func (f Format) Dimension() int {
	switch f {
	case Float32x3:
		return 3
	case Float32x2:
		return 2
	case UNorm8x4:
		return 4
	}
	return 0
}

// Attribute describes one entry of the vertex layout. Slot is the texture
// coordinate slot for TexCoord attributes and zero otherwise.
type Attribute struct {
	Semantic  Semantic
	Slot      int
	Format    Format
	Dimension int
}

// VertexBuffer is an interleaved vertex buffer with its layout. Attributes
// are always ordered Position, [Normal], [Color], then texture coordinate
// slots ascending.
type VertexBuffer struct {
	Data   []byte
	Layout []Attribute
}

// Stride returns the byte size of one vertex.
func (b *VertexBuffer) Stride() int {
	n := 0
	for _, a := range b.Layout {
		n += a.Format.Size()
	}
	return n
}

// VertexCount returns the number of vertices held in Data.
func (b *VertexBuffer) VertexCount() int {
	s := b.Stride()
	if s == 0 {
		return 0
	}
	return len(b.Data) / s
}

// Has reports whether the layout contains the semantic.
func (b *VertexBuffer) Has(s Semantic) bool {
	for _, a := range b.Layout {
		if a.Semantic == s {
			return true
		}
	}
	return false
}

// TexCoordSlots returns the number of texture coordinate slots.
func (b *VertexBuffer) TexCoordSlots() int {
	n := 0
	for _, a := range b.Layout {
		if a.Semantic == TexCoord {
			n++
		}
	}
	return n
}

// writer appends little-endian values to an interleaved buffer.
type writer struct {
	buf []byte
}

func (w *writer) vec3(v [3]float32) {
	for _, c := range v {
		w.buf = binary.LittleEndian.AppendUint32(w.buf, math.Float32bits(c))
	}
}

func (w *writer) vec2(v [2]float32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, math.Float32bits(v[0]))
	w.buf = binary.LittleEndian.AppendUint32(w.buf, math.Float32bits(v[1]))
}

func (w *writer) rgba(c [4]uint8) {
	w.buf = append(w.buf, c[0], c[1], c[2], c[3])
}

func readVec3(b []byte) [3]float32 {
	return [3]float32{
		math.Float32frombits(binary.LittleEndian.Uint32(b)),
		math.Float32frombits(binary.LittleEndian.Uint32(b[4:])),
		math.Float32frombits(binary.LittleEndian.Uint32(b[8:])),
	}
}

func readVec2(b []byte) [2]float32 {
	return [2]float32{
		math.Float32frombits(binary.LittleEndian.Uint32(b)),
		math.Float32frombits(binary.LittleEndian.Uint32(b[4:])),
	}
}

// Arrays holds the packed vertices split back into parallel arrays.
type Arrays struct {
	Positions [][3]float32
	Normals   [][3]float32
	Colors    [][4]uint8
	UVs       [][][2]float32 // indexed by slot
	Indices   []uint32
}

// Deinterleave splits the buffer into parallel arrays.
func (b *VertexBuffer) Deinterleave() Arrays {
	var out Arrays
	stride := b.Stride()
	count := b.VertexCount()
	if count == 0 {
		return out
	}
	out.Positions = make([][3]float32, count)
	if b.Has(Normal) {
		out.Normals = make([][3]float32, count)
	}
	if b.Has(Color) {
		out.Colors = make([][4]uint8, count)
	}
	slots := b.TexCoordSlots()
	out.UVs = make([][][2]float32, slots)
	for s := range slots {
		out.UVs[s] = make([][2]float32, count)
	}

	for i := range count {
		off := i * stride
		for _, a := range b.Layout {
			v := b.Data[off:]
			switch a.Semantic {
			case Position:
				out.Positions[i] = readVec3(v)
			case Normal:
				out.Normals[i] = readVec3(v)
			case Color:
				out.Colors[i] = [4]uint8{v[0], v[1], v[2], v[3]}
			case TexCoord:
				out.UVs[a.Slot][i] = readVec2(v)
			}
			off += a.Format.Size()
		}
	}
	return out
}

package tiles

import (
	"errors"
	"fmt"
	"math"

	"github.com/qmuntal/gltf"
)

// ErrNoAccessor is returned for an accessor index outside the document.
var ErrNoAccessor = errors.New("accessor not found")

// Accessor is a typed view over the bytes of one glTF accessor.
type Accessor struct {
	Type          gltf.AccessorType
	ComponentType gltf.ComponentType
	Count         int
	Normalized    bool

	data   []byte
	start  int
	stride int
}

// Components returns the number of components per element.
func (a *Accessor) Components() int {
	switch a.Type {
	case gltf.AccessorScalar:
		return 1
	case gltf.AccessorVec2:
		return 2
	case gltf.AccessorVec3:
		return 3
	case gltf.AccessorVec4, gltf.AccessorMat2:
		return 4
	case gltf.AccessorMat3:
		return 9
	case gltf.AccessorMat4:
		return 16
	}
	return 0
}

// componentSize returns the byte size of one component.
func componentSize(ct gltf.ComponentType) int {
	switch ct {
	case gltf.ComponentByte, gltf.ComponentUbyte:
		return 1
	case gltf.ComponentShort, gltf.ComponentUshort:
		return 2
	default:
		return 4
	}
}

func (a *Accessor) offset(i, c int) int {
	return a.start + i*a.stride + c*componentSize(a.ComponentType)
}

// Float reads component c of element i as a float. Integer components are
// returned unscaled.
func (a *Accessor) Float(i, c int) float32 {
	off := a.offset(i, c)
	b := a.data
	switch a.ComponentType {
	case gltf.ComponentFloat:
		return math.Float32frombits(uint32(b[off]) | uint32(b[off+1])<<8 | uint32(b[off+2])<<16 | uint32(b[off+3])<<24)
	case gltf.ComponentByte:
		return float32(int8(b[off]))
	case gltf.ComponentShort:
		return float32(int16(uint16(b[off]) | uint16(b[off+1])<<8))
	}
	return float32(a.Uint(i, c))
}

// Uint reads component c of element i as an unsigned integer.
func (a *Accessor) Uint(i, c int) uint32 {
	off := a.offset(i, c)
	b := a.data
	switch a.ComponentType {
	case gltf.ComponentUbyte, gltf.ComponentByte:
		return uint32(b[off])
	case gltf.ComponentUshort, gltf.ComponentShort:
		return uint32(b[off]) | uint32(b[off+1])<<8
	case gltf.ComponentFloat:
		return uint32(a.Float(i, c))
	}
	return uint32(b[off]) | uint32(b[off+1])<<8 | uint32(b[off+2])<<16 | uint32(b[off+3])<<24
}

// Vec3 reads element i as three floats.
func (a *Accessor) Vec3(i int) [3]float32 {
	return [3]float32{a.Float(i, 0), a.Float(i, 1), a.Float(i, 2)}
}

// Vec2 reads element i as two floats.
func (a *Accessor) Vec2(i int) [2]float32 {
	return [2]float32{a.Float(i, 0), a.Float(i, 1)}
}

// Indices reads a scalar accessor as a list of indices.
func (a *Accessor) Indices() ([]uint32, error) {
	if a.Type != gltf.AccessorScalar {
		return nil, fmt.Errorf("expected SCALAR, got %v", a.Type)
	}
	switch a.ComponentType {
	case gltf.ComponentUbyte, gltf.ComponentUshort, gltf.ComponentUint:
	default:
		return nil, fmt.Errorf("unexpected index type: %v", a.ComponentType)
	}
	out := make([]uint32, a.Count)
	for i := range out {
		out[i] = a.Uint(i, 0)
	}
	return out, nil
}

// AccessorSource resolves accessor indices to typed views.
type AccessorSource interface {
	Accessor(index int) (*Accessor, error)
}

// Accessor returns a view over the accessor at index. Sparse accessors are
// not supported.
func (p *Payload) Accessor(index int) (*Accessor, error) {
	doc := p.Doc
	if doc == nil || index < 0 || index >= len(doc.Accessors) {
		return nil, fmt.Errorf("%w: %d", ErrNoAccessor, index)
	}
	acr := doc.Accessors[index]
	if acr.BufferView == nil {
		return nil, fmt.Errorf("accessor %d has no buffer view", index)
	}
	if *acr.BufferView >= len(doc.BufferViews) {
		return nil, fmt.Errorf("accessor %d: buffer view %d out of range", index, *acr.BufferView)
	}
	view := doc.BufferViews[*acr.BufferView]
	if view.Buffer >= len(doc.Buffers) {
		return nil, fmt.Errorf("accessor %d: buffer %d out of range", index, view.Buffer)
	}
	data := doc.Buffers[view.Buffer].Data
	if data == nil {
		return nil, fmt.Errorf("accessor %d: buffer has no data", index)
	}

	a := &Accessor{
		Type:          acr.Type,
		ComponentType: acr.ComponentType,
		Count:         acr.Count,
		Normalized:    acr.Normalized,
		data:          data,
		start:         view.ByteOffset + acr.ByteOffset,
		stride:        view.ByteStride,
	}
	elem := a.Components() * componentSize(a.ComponentType)
	if a.stride == 0 {
		a.stride = elem
	}
	if a.Count > 0 {
		end := a.start + (a.Count-1)*a.stride + elem
		if end > len(data) || end > view.ByteOffset+view.ByteLength {
			return nil, fmt.Errorf("accessor %d: %d bytes exceed buffer view", index, end)
		}
	}
	return a, nil
}

package scene

import (
	"math"

	"github.com/taigrr/tilekit/pkg/math3d"
)

// PrimitiveType is how a surface's indices are drawn.
type PrimitiveType int

const (
	PrimitiveTriangles PrimitiveType = iota
	PrimitivePoints
)

// DegenerateEpsilon is the distance under which two of three vertices are
// considered coincident.
const DegenerateEpsilon = 1e-5

// Mesh is one uploaded surface held as parallel vertex arrays. Triangles are
// clockwise front facing.
type Mesh struct {
	Name      string
	Type      PrimitiveType
	Positions [][3]float32
	Normals   [][3]float32
	Colors    [][4]uint8
	UVs       [][][2]float32 // per texture coordinate slot
	Indices   []uint32
	Material  *Material
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int { return len(m.Positions) }

// TriangleCount returns the number of triangles. Point meshes have none.
func (m *Mesh) TriangleCount() int {
	if m.Type == PrimitivePoints {
		return 0
	}
	return len(m.Indices) / 3
}

// Face returns the vertex indices of triangle i.
func (m *Mesh) Face(i int) [3]int {
	return [3]int{int(m.Indices[3*i]), int(m.Indices[3*i+1]), int(m.Indices[3*i+2])}
}

// Position returns vertex i as a double-precision vector.
func (m *Mesh) Position(i int) math3d.Vec3 {
	p := m.Positions[i]
	return math3d.V3(float64(p[0]), float64(p[1]), float64(p[2]))
}

// Bounds returns the axis-aligned bounding box of the vertices.
func (m *Mesh) Bounds() (min, max math3d.Vec3) {
	if len(m.Positions) == 0 {
		return math3d.Zero3(), math3d.Zero3()
	}
	min = math3d.V3(math.MaxFloat64, math.MaxFloat64, math.MaxFloat64)
	max = math3d.V3(-math.MaxFloat64, -math.MaxFloat64, -math.MaxFloat64)
	for i := range m.Positions {
		p := m.Position(i)
		min = min.Min(p)
		max = max.Max(p)
	}
	return min, max
}

// IsDegenerate reports whether the mesh cannot bound a volume: fewer than
// three vertices, or exactly three with two of them within DegenerateEpsilon.
func (m *Mesh) IsDegenerate() bool {
	switch n := len(m.Positions); {
	case n < 3:
		return true
	case n == 3:
		a, b, c := m.Position(0), m.Position(1), m.Position(2)
		return a.Distance(b) < DegenerateEpsilon ||
			a.Distance(c) < DegenerateEpsilon ||
			b.Distance(c) < DegenerateEpsilon
	}
	return false
}

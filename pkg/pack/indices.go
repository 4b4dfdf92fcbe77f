package pack

import "github.com/qmuntal/gltf"

// expandIndices turns strip and fan index lists into a flat triangle list.
// Triangle and point lists pass through. ok is false for unsupported modes.
func expandIndices(mode gltf.PrimitiveMode, in []uint32) (out []uint32, ok bool) {
	switch mode {
	case gltf.PrimitiveTriangles, gltf.PrimitivePoints:
		return in, true
	case gltf.PrimitiveTriangleStrip:
		return expandStrip(in), true
	case gltf.PrimitiveTriangleFan:
		return expandFan(in), true
	}
	return nil, false
}

// expandStrip emits 3*(n-2) indices. Odd triangles swap their last two
// vertices to keep a consistent winding.
func expandStrip(in []uint32) []uint32 {
	if len(in) < 3 {
		return nil
	}
	out := make([]uint32, 0, 3*(len(in)-2))
	for i := 0; i+2 < len(in); i++ {
		if i%2 == 1 {
			out = append(out, in[i], in[i+2], in[i+1])
		} else {
			out = append(out, in[i], in[i+1], in[i+2])
		}
	}
	return out
}

// expandFan emits one (first, previous, current) triangle per vertex after
// the second.
func expandFan(in []uint32) []uint32 {
	if len(in) < 3 {
		return nil
	}
	out := make([]uint32, 0, 3*(len(in)-2))
	for i := 2; i < len(in); i++ {
		out = append(out, in[0], in[i-1], in[i])
	}
	return out
}

// sequence returns 0..n-1.
func sequence(n int) []uint32 {
	out := make([]uint32, n)
	for i := range out {
		out[i] = uint32(i)
	}
	return out
}

// reverse flips the index order in place, turning counter-clockwise front
// faces into clockwise ones.
func reverse(idx []uint32) {
	for i, j := 0, len(idx)-1; i < j; i, j = i+1, j-1 {
		idx[i], idx[j] = idx[j], idx[i]
	}
}

package scene

// ConvexShape is a convex collision shape given by its point cloud.
type ConvexShape struct {
	Points [][3]float32
}

// BakeConvex builds a convex shape from the unique vertices of a mesh. It
// returns nil for point meshes and degenerate meshes.
func BakeConvex(m *Mesh) *ConvexShape {
	if m.Type == PrimitivePoints || m.IsDegenerate() {
		return nil
	}
	seen := make(map[[3]float32]struct{}, len(m.Positions))
	shape := &ConvexShape{}
	for _, p := range m.Positions {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		shape.Points = append(shape.Points, p)
	}
	return shape
}

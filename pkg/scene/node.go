// Package scene is the host scene graph the tile pipeline builds into:
// nodes, mesh instances, materials, textures and cameras. It is owned by the
// main goroutine and takes no locks.
package scene

import "github.com/taigrr/tilekit/pkg/math3d"

// Node is one element of the scene tree. A node carrying a Mesh is a mesh
// instance.
type Node struct {
	Name      string
	Transform math3d.Mat4 // parent-relative
	Visible   bool

	Mesh      *Mesh
	Collision *ConvexShape

	parent   *Node
	children []*Node
}

// NewNode creates a visible node with an identity transform.
func NewNode(name string) *Node {
	return &Node{
		Name:      name,
		Transform: math3d.Identity(),
		Visible:   true,
	}
}

// NewMeshInstance creates a hidden node drawing mesh.
func NewMeshInstance(name string, mesh *Mesh) *Node {
	n := NewNode(name)
	n.Mesh = mesh
	n.Visible = false
	return n
}

// Parent returns the parent node, or nil when detached.
func (n *Node) Parent() *Node { return n.parent }

// Children returns the direct children. The slice must not be modified.
func (n *Node) Children() []*Node { return n.children }

// AddChild attaches c to n, detaching it from any previous parent.
func (n *Node) AddChild(c *Node) {
	if c.parent != nil {
		c.parent.RemoveChild(c)
	}
	c.parent = n
	n.children = append(n.children, c)
}

// RemoveChild detaches c. It reports whether c was a child of n.
func (n *Node) RemoveChild(c *Node) bool {
	for i, child := range n.children {
		if child == c {
			n.children = append(n.children[:i], n.children[i+1:]...)
			c.parent = nil
			return true
		}
	}
	return false
}

// GlobalTransform returns the transform from node space to scene space.
func (n *Node) GlobalTransform() math3d.Mat4 {
	m := n.Transform
	for p := n.parent; p != nil; p = p.parent {
		m = p.Transform.Mul(m)
	}
	return m
}

// IsVisibleInTree reports whether n and all of its ancestors are visible.
func (n *Node) IsVisibleInTree() bool {
	for p := n; p != nil; p = p.parent {
		if !p.Visible {
			return false
		}
	}
	return true
}

// Walk calls fn for n and every descendant, depth first.
func (n *Node) Walk(fn func(*Node)) {
	fn(n)
	for _, c := range n.children {
		c.Walk(fn)
	}
}

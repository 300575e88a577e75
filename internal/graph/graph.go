package graph

// Graph is the arena that owns every node and device group of one task
// graph. Nodes reference each other freely (edges, forest links, payload
// sources) because their lifetime is the graph's: nothing is freed until the
// whole graph is dropped, and no node is destroyed mid-execution.
type Graph struct {
	nodes  []*Node
	groups []*DeviceGroup
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{}
}

// NewNode allocates a node carrying the given payload. The node starts with
// no edges, a pending count of zero, and as the singleton root of its own
// affinity cluster. Construction phase only.
func (g *Graph) NewNode(w Work) *Node {
	n := &Node{
		work:     w,
		treeSize: 1,
		graph:    g,
		index:    len(g.nodes),
	}
	n.parent = n
	g.nodes = append(g.nodes, n)
	return n
}

// NewDeviceGroup allocates a device group owned by this graph. Binding it to
// a cluster root is the caller's job.
func (g *Graph) NewDeviceGroup() *DeviceGroup {
	dg := NewDeviceGroup()
	g.groups = append(g.groups, dg)
	return dg
}

// Nodes returns all nodes in creation order. Callers must not mutate the
// slice.
func (g *Graph) Nodes() []*Node { return g.nodes }

// Len returns the number of nodes in the graph.
func (g *Graph) Len() int { return len(g.nodes) }

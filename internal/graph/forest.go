package graph

// Find returns the representative root of n's affinity cluster. Each loop
// iteration advances n's own parent link to its current grandparent, halving
// the walk n has to repeat on the next call. No node other than n is
// mutated, so amortized cost stays logarithmic without a global compression
// pass.
//
// Find is safe to call during execution only because by then the forest
// structure is frozen; interleaving it with Union is not supported.
func (n *Node) Find() *Node {
	for n.parent != n.parent.parent {
		n.parent = n.parent.parent
	}
	return n.parent
}

// Union merges the clusters containing x and y so the executor makes one
// device decision for both. A shared parent pointer means the pair was
// already merged and the call is a no-op. Past that pre-check, equal roots
// indicate a bug in the caller's clustering logic and panic.
//
// The smaller subtree is attached under the larger (ties put y's root under
// x's root), keeping forest depth logarithmic. Construction phase only.
func (x *Node) Union(y *Node) {
	if x.parent == y.parent {
		return
	}

	xroot := x.Find()
	yroot := y.Find()
	if xroot == yroot {
		panic("graph: union of nodes already in the same cluster")
	}

	if xroot.treeSize < yroot.treeSize {
		xroot.parent = yroot
		yroot.treeSize += xroot.treeSize
	} else {
		yroot.parent = xroot
		xroot.treeSize += yroot.treeSize
	}
}

// SubtreeSize returns the number of nodes accounted to n's subtree. Only
// meaningful on a cluster root, where it equals the cluster population.
func (n *Node) SubtreeSize() int { return n.treeSize }

package graph

import (
	"math/bits"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func newClusterNodes(g *Graph, n int) []*Node {
	nodes := make([]*Node, n)
	for i := range nodes {
		nodes[i] = g.NewNode(&Pull{Device: DeviceUnassigned})
	}
	return nodes
}

func TestFind_SingletonIsItsOwnRoot(t *testing.T) {
	g := New()
	n := g.NewNode(&Pull{})
	require.Same(t, n, n.Find())
	require.Equal(t, 1, n.SubtreeSize())
}

func TestUnion_MergesClustersAndSumsSubtreeSizes(t *testing.T) {
	g := New()
	ns := newClusterNodes(g, 4)

	ns[0].Union(ns[1])
	ns[2].Union(ns[3])
	require.NotSame(t, ns[0].Find(), ns[2].Find())

	ns[0].Union(ns[2])
	root := ns[0].Find()
	for _, n := range ns {
		require.Same(t, root, n.Find())
	}
	require.Equal(t, 4, root.SubtreeSize())
}

func TestUnion_SecondCallIsNoOp(t *testing.T) {
	g := New()
	ns := newClusterNodes(g, 2)

	ns[0].Union(ns[1])
	root := ns[0].Find()
	size := root.SubtreeSize()

	// Repeat must hit the parent-pointer pre-check and change nothing.
	ns[0].Union(ns[1])
	ns[1].Union(ns[0])
	require.Same(t, root, ns[0].Find())
	require.Same(t, root, ns[1].Find())
	require.Equal(t, size, root.SubtreeSize())
}

func TestUnion_TieBreakAttachesYUnderX(t *testing.T) {
	g := New()
	x := g.NewNode(&Pull{})
	y := g.NewNode(&Pull{})

	x.Union(y)
	require.Same(t, x, x.Find())
	require.Same(t, x, y.Find())
	require.Same(t, x, y.parent)
}

func TestUnion_SmallerTreeGoesUnderLarger(t *testing.T) {
	g := New()
	big := newClusterNodes(g, 3)
	big[0].Union(big[1])
	big[0].Union(big[2])
	small := g.NewNode(&Pull{})

	small.Union(big[0])
	require.Same(t, big[0].Find(), small.Find())
	require.Equal(t, 4, big[0].Find().SubtreeSize())
}

func TestUnion_PanicsWhenRootsAlreadySharedPastPrecheck(t *testing.T) {
	g := New()
	a, b, c, d := g.NewNode(&Pull{}), g.NewNode(&Pull{}), g.NewNode(&Pull{}), g.NewNode(&Pull{})

	a.Union(b) // b under a
	c.Union(d) // d under c
	a.Union(c) // c under a (tie on size 2)

	// d and b share root a but have distinct parent pointers, so the call
	// survives the pre-check and must trip the defensive assertion.
	require.NotSame(t, d.parent, b.parent)
	require.Panics(t, func() { d.Union(b) })
}

func TestFind_MutatesOnlyTheQueryingNode(t *testing.T) {
	g := New()
	a, b, c, d := g.NewNode(&Pull{}), g.NewNode(&Pull{}), g.NewNode(&Pull{}), g.NewNode(&Pull{})

	a.Union(b)
	c.Union(d)
	a.Union(c)

	// Chain: d -> c -> a. Finding from d advances only d's parent link.
	cParent := c.parent
	bParent := b.parent
	require.Same(t, a, d.Find())
	require.Same(t, a, d.parent)
	require.Same(t, cParent, c.parent)
	require.Same(t, bParent, b.parent)
}

// TestProperty_ForestDepthStaysLogarithmic drives random union sequences and
// checks that no node sits deeper than the size-weighted bound: a subtree of
// depth d holds at least 2^d nodes, so depth never exceeds log2(m).
func TestProperty_ForestDepthStaysLogarithmic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		m := rapid.IntRange(2, 256).Draw(t, "nodes")
		unions := rapid.IntRange(1, 4*m).Draw(t, "unions")

		g := New()
		ns := newClusterNodes(g, m)

		for i := 0; i < unions; i++ {
			x := ns[rapid.IntRange(0, m-1).Draw(t, "x")]
			y := ns[rapid.IntRange(0, m-1).Draw(t, "y")]
			if x.Find() == y.Find() {
				continue
			}
			x.Union(y)
		}

		maxDepth := bits.Len(uint(m)) // log2(m)+1, a safe ceiling
		for _, n := range ns {
			depth := 0
			for p := n; p.parent != p; p = p.parent {
				depth++
				require.LessOrEqual(t, depth, maxDepth, "node deeper than size-weighted bound")
			}
		}

		// Root subtree sizes partition the node set.
		total := 0
		for _, n := range ns {
			if n.parent == n {
				total += n.SubtreeSize()
			}
		}
		require.Equal(t, m, total)
	})
}

// TestProperty_UnionConnectsAndConservesSize checks random pairs: after a
// merge both members resolve to one root whose size is the sum of the two
// merged clusters.
func TestProperty_UnionConnectsAndConservesSize(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		m := rapid.IntRange(2, 64).Draw(t, "nodes")
		g := New()
		ns := newClusterNodes(g, m)

		pairs := rapid.IntRange(1, 2*m).Draw(t, "pairs")
		for i := 0; i < pairs; i++ {
			x := ns[rapid.IntRange(0, m-1).Draw(t, "x")]
			y := ns[rapid.IntRange(0, m-1).Draw(t, "y")]
			xr, yr := x.Find(), y.Find()
			if xr == yr {
				continue
			}
			want := xr.SubtreeSize() + yr.SubtreeSize()
			x.Union(y)
			root := x.Find()
			require.Same(t, root, y.Find())
			require.Equal(t, want, root.SubtreeSize())
		}
	})
}

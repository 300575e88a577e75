package graph

import (
	"fmt"
	"sync/atomic"
)

// Node is a single schedulable unit of work in the task graph. It owns its
// payload but none of the nodes it references: successors, dependents, the
// union-find parent, and payload source/target references all point into the
// arena of the Graph that created the node.
//
// Structural fields (edges, forest links) may only be mutated during the
// single-threaded construction phase. The pending-dependency counter is the
// one field touched concurrently during execution.
type Node struct {
	name string
	work Work

	successors []*Node
	dependents []*Node

	// pending counts unretired predecessors; the executor decrements it
	// once per retired predecessor and dispatches at zero.
	pending atomic.Int32

	// union-find forest membership. parent is self for a root.
	parent   *Node
	treeSize int

	group *DeviceGroup
	graph *Graph
	index int
}

// Name returns the display name, or the empty string if none was set.
func (n *Node) Name() string { return n.name }

// SetName assigns the display name used in logs and dumps.
func (n *Node) SetName(name string) { n.name = name }

// Kind returns the active payload discriminant.
func (n *Node) Kind() Kind { return n.work.kind() }

// IsHost reports whether the node carries host work.
func (n *Node) IsHost() bool { return n.work.kind() == KindHost }

// IsPull reports whether the node carries pull work.
func (n *Node) IsPull() bool { return n.work.kind() == KindPull }

// IsPush reports whether the node carries push work.
func (n *Node) IsPush() bool { return n.work.kind() == KindPush }

// IsKernel reports whether the node carries kernel work.
func (n *Node) IsKernel() bool { return n.work.kind() == KindKernel }

// IsTransfer reports whether the node carries transfer work.
func (n *Node) IsTransfer() bool { return n.work.kind() == KindTransfer }

// IsDevice reports whether the node requires a physical device and therefore
// participates in affinity clustering. Host nodes do not.
func (n *Node) IsDevice() bool {
	switch n.work.kind() {
	case KindPull, KindPush, KindKernel, KindTransfer:
		return true
	default:
		return false
	}
}

// NumSuccessors returns the current out-degree.
func (n *Node) NumSuccessors() int { return len(n.successors) }

// NumDependents returns the current in-degree.
func (n *Node) NumDependents() int { return len(n.dependents) }

// Successors returns the outgoing edge list. Callers must not mutate it.
func (n *Node) Successors() []*Node { return n.successors }

// Dependents returns the incoming edge list. Callers must not mutate it.
func (n *Node) Dependents() []*Node { return n.dependents }

// Graph returns the arena that owns this node.
func (n *Node) Graph() *Graph { return n.graph }

// Host returns the host payload. It panics if the node is not a host node;
// callers gate access behind the kind predicates.
func (n *Node) Host() *Host {
	h, ok := n.work.(*Host)
	if !ok {
		panic(n.badHandle(KindHost))
	}
	return h
}

// Pull returns the pull payload, panicking on kind mismatch.
func (n *Node) Pull() *Pull {
	p, ok := n.work.(*Pull)
	if !ok {
		panic(n.badHandle(KindPull))
	}
	return p
}

// Push returns the push payload, panicking on kind mismatch.
func (n *Node) Push() *Push {
	p, ok := n.work.(*Push)
	if !ok {
		panic(n.badHandle(KindPush))
	}
	return p
}

// Kernel returns the kernel payload, panicking on kind mismatch.
func (n *Node) Kernel() *Kernel {
	k, ok := n.work.(*Kernel)
	if !ok {
		panic(n.badHandle(KindKernel))
	}
	return k
}

// Transfer returns the transfer payload, panicking on kind mismatch.
func (n *Node) Transfer() *Transfer {
	t, ok := n.work.(*Transfer)
	if !ok {
		panic(n.badHandle(KindTransfer))
	}
	return t
}

func (n *Node) badHandle(want Kind) string {
	return fmt.Sprintf("graph: %s payload requested on %s node %q", want, n.Kind(), n.ident())
}

// Precede registers the directed edge n -> m: m joins n's successors, n
// joins m's dependents, and m's pending-dependency counter grows by one.
// Construction phase only; concurrent calls on overlapping nodes are not
// supported. Acyclicity is the caller's responsibility.
func (n *Node) Precede(m *Node) {
	n.successors = append(n.successors, m)
	m.dependents = append(m.dependents, n)
	m.pending.Add(1)
}

// PendingDependents returns the number of predecessors not yet retired.
func (n *Node) PendingDependents() int {
	return int(n.pending.Load())
}

// DecrementDependents records one retired predecessor and reports whether
// the node just became ready for dispatch. The executor calls this exactly
// once per completed dependency, from whichever goroutine retires it.
func (n *Node) DecrementDependents() bool {
	return n.pending.Add(-1) == 0
}

// Group returns the device group bound to this node, or nil. Groups are
// conventionally bound on cluster roots; members resolve theirs through
// Find().Group().
func (n *Node) Group() *DeviceGroup { return n.group }

// BindGroup attaches a device group allocated by the owning container. The
// node does not take ownership.
func (n *Node) BindGroup(g *DeviceGroup) { n.group = g }

// ident returns the display name, or a deterministic arena-derived token for
// anonymous nodes.
func (n *Node) ident() string {
	if n.name != "" {
		return n.name
	}
	return fmt.Sprintf("p%d", n.index)
}

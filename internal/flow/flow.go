// Package flow provides the fluent graph-construction API: it creates nodes
// in a graph arena, wires dependency edges, synthesizes the staging
// callbacks for pull/push/transfer work, and performs the device-affinity
// unions (a kernel with each of its sources, a transfer with both
// endpoints) so the executor can make one device decision per cluster.
//
// Misusing the builder, such as a push whose source is a host task or a
// kernel fed a non-device source, is a programmer error and panics; it is never a
// recoverable condition at this layer. Validating user input (definition
// files) before it reaches the builder is the loader's job.
package flow

import (
	"context"
	"fmt"

	"github.com/zjrosen/hetero/internal/graph"
	"github.com/zjrosen/hetero/internal/log"
)

// Flow accumulates a task graph under construction. Not safe for concurrent
// use; all construction is single-threaded per graph.
type Flow struct {
	graph *graph.Graph
}

// New returns an empty flow backed by a fresh graph arena.
func New() *Flow {
	return &Flow{graph: graph.New()}
}

// Graph returns the underlying graph for execution or export.
func (f *Flow) Graph() *graph.Graph { return f.graph }

// Task is a lightweight handle over a node, returned by the payload
// constructors and used for naming and edge wiring. Copying a Task is cheap
// and aliases the same node.
type Task struct {
	node *graph.Node
}

// Node returns the underlying graph node.
func (t Task) Node() *graph.Node { return t.node }

// Name assigns the display name and returns the task for chaining.
func (t Task) Name(name string) Task {
	t.node.SetName(name)
	return t
}

// Precede wires this task before each of the given tasks.
func (t Task) Precede(tasks ...Task) Task {
	for _, o := range tasks {
		t.node.Precede(o.node)
	}
	return t
}

// Succeed wires this task after each of the given tasks.
func (t Task) Succeed(tasks ...Task) Task {
	for _, o := range tasks {
		o.node.Precede(t.node)
	}
	return t
}

// Host creates a CPU-side callback task.
func (f *Flow) Host(work graph.HostFunc) Task {
	n := f.graph.NewNode(&graph.Host{Work: work})
	return Task{node: n}
}

// Pull creates a host-to-device staging task that copies src into a device
// buffer when it runs. The target device is whichever one the task's
// affinity cluster commits at execution time.
func (f *Flow) Pull(src []byte) Task {
	n := f.graph.NewNode(&graph.Pull{Device: graph.DeviceUnassigned})
	p := n.Pull()
	p.Work = func(ctx context.Context, alloc graph.Allocator, stream graph.Stream) error {
		buf := alloc.Allocate(len(src))
		copy(buf, src)
		p.Device = stream.DeviceID()
		p.Data = buf
		return nil
	}
	return Task{node: n}
}

// Push creates a device-to-host staging task that copies src's device
// buffer into dst when it runs. src must be a device task.
func (f *Flow) Push(src Task, dst []byte) Task {
	mustBeDevice("push source", src)
	n := f.graph.NewNode(&graph.Push{Source: src.node})
	p := n.Push()
	p.Work = func(ctx context.Context, stream graph.Stream) error {
		data := deviceData(p.Source)
		if len(data) > len(dst) {
			return fmt.Errorf("flow: push target holds %d bytes, source has %d", len(dst), len(data))
		}
		copy(dst, data)
		return nil
	}
	return Task{node: n}
}

// KernelWork is the user-facing kernel body: it receives the device buffers
// of the kernel's sources, in source order, and operates on them in place.
type KernelWork func(ctx context.Context, stream graph.Stream, bufs [][]byte) error

// Kernel creates a device kernel task consuming the buffers of the given
// source tasks. Every source must be a device task; each is unioned into
// the kernel's affinity cluster so all of them land on one device.
func (f *Flow) Kernel(work KernelWork, sources ...Task) Task {
	nodes := make([]*graph.Node, len(sources))
	for i, s := range sources {
		mustBeDevice("kernel source", s)
		nodes[i] = s.node
	}

	n := f.graph.NewNode(&graph.Kernel{Device: graph.DeviceUnassigned, Sources: nodes})
	k := n.Kernel()
	k.Work = func(ctx context.Context, stream graph.Stream) error {
		bufs := make([][]byte, len(k.Sources))
		for i, s := range k.Sources {
			bufs[i] = deviceData(s)
		}
		k.Device = stream.DeviceID()
		return work(ctx, stream, bufs)
	}

	f.cluster(n, nodes...)
	return Task{node: n}
}

// Transfer creates a device-to-device copy task from src's buffer to dst's
// buffer. Both endpoints must be device tasks and join the transfer's
// affinity cluster.
func (f *Flow) Transfer(src, dst Task) Task {
	mustBeDevice("transfer source", src)
	mustBeDevice("transfer target", dst)

	n := f.graph.NewNode(&graph.Transfer{Source: src.node, Target: dst.node})
	tr := n.Transfer()
	tr.Work = func(ctx context.Context, stream graph.Stream) error {
		copy(deviceData(tr.Target), deviceData(tr.Source))
		return nil
	}

	f.cluster(n, src.node, dst.node)
	return Task{node: n}
}

// cluster unions n with each of the given nodes, skipping pairs already in
// the same cluster so the forest's defensive assertion stays quiet.
func (f *Flow) cluster(n *graph.Node, with ...*graph.Node) {
	for _, m := range with {
		if n.Find() != m.Find() {
			n.Union(m)
		}
	}
	log.Debug(log.CatFlow, "clustered", "node", n.Name(), "size", n.Find().SubtreeSize())
}

func mustBeDevice(role string, t Task) {
	if !t.node.IsDevice() {
		panic(fmt.Sprintf("flow: %s must be a device task, got %s", role, t.node.Kind()))
	}
}

// deviceData resolves the device buffer a node's output lives in. Pulls own
// buffers directly; kernels and transfers operate in place on upstream
// buffers, so the walk follows their first source until it reaches one.
func deviceData(n *graph.Node) []byte {
	switch {
	case n.IsPull():
		return n.Pull().Data
	case n.IsKernel():
		if srcs := n.Kernel().Sources; len(srcs) > 0 {
			return deviceData(srcs[0])
		}
		return nil
	case n.IsTransfer():
		return deviceData(n.Transfer().Target)
	case n.IsPush():
		return deviceData(n.Push().Source)
	default:
		return nil
	}
}

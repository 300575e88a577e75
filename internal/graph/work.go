// Package graph implements the task-graph node model for heterogeneous
// CPU/GPU scheduling: a tagged work payload per node, directed dependency
// edges with an atomic readiness countdown, and a union-find forest that
// clusters nodes which must share a physical device.
//
// The package is a data model, not a runtime. Nodes are created and wired
// during a single-threaded construction phase (Precede, Union); during the
// execution phase many goroutines may concurrently decrement readiness
// counters and commit device ids, but all structure is read-only.
package graph

import "context"

// Kind discriminates the five work payload shapes a node can carry.
type Kind int

const (
	// KindHost is a host-side callback run on a CPU worker.
	KindHost Kind = iota
	// KindPull stages host data onto a device buffer.
	KindPull
	// KindPush stages a device buffer back to host memory.
	KindPush
	// KindKernel launches a device kernel over upstream device buffers.
	KindKernel
	// KindTransfer copies a device buffer to another device buffer.
	KindTransfer
)

func (k Kind) String() string {
	switch k {
	case KindHost:
		return "host"
	case KindPull:
		return "pull"
	case KindPush:
		return "push"
	case KindKernel:
		return "kernel"
	case KindTransfer:
		return "transfer"
	default:
		return "unknown"
	}
}

// Allocator hands out device buffers to pull work. Implementations live in
// the device runtime; the graph only threads the value through to callbacks.
type Allocator interface {
	// Allocate returns a device buffer of n bytes.
	Allocate(n int) []byte
	// Release returns a buffer obtained from Allocate.
	Release(buf []byte)
}

// Stream identifies the device work queue a callback is enqueued on.
type Stream interface {
	// DeviceID returns the physical device the stream belongs to.
	DeviceID() int
}

// Callback signatures per payload kind. Host work runs with no device
// context; device-kind work receives the stream it was dispatched on, and
// pull work additionally receives the allocator for its target device.
type (
	HostFunc     func(ctx context.Context) error
	PullFunc     func(ctx context.Context, alloc Allocator, stream Stream) error
	PushFunc     func(ctx context.Context, stream Stream) error
	KernelFunc   func(ctx context.Context, stream Stream) error
	TransferFunc func(ctx context.Context, stream Stream) error
)

// Work is the closed sum over the five payload shapes. Exactly one payload
// is active per node, fixed at construction. Only the five payload types in
// this package implement it.
type Work interface {
	kind() Kind
}

// Host is the payload of a CPU-side callback node.
type Host struct {
	Work HostFunc
}

// Pull is the payload of a host-to-device staging node. Device holds the
// resolved physical device (DeviceUnassigned until the node's cluster
// commits one) and Data the device-side buffer once the pull has run.
type Pull struct {
	Work   PullFunc
	Device int
	Data   []byte
}

// Push is the payload of a device-to-host staging node. Source must be a
// device-kind node whose buffer the push reads.
type Push struct {
	Work   PushFunc
	Source *Node
}

// Kernel is the payload of a device kernel launch. Sources are the upstream
// device-kind nodes whose buffers the kernel consumes, in argument order.
type Kernel struct {
	Work    KernelFunc
	Device  int
	Sources []*Node
}

// Transfer is the payload of a device-to-device copy between the buffers of
// two other device-kind nodes.
type Transfer struct {
	Work   TransferFunc
	Source *Node
	Target *Node
}

func (*Host) kind() Kind     { return KindHost }
func (*Pull) kind() Kind     { return KindPull }
func (*Push) kind() Kind     { return KindPush }
func (*Kernel) kind() Kind   { return KindKernel }
func (*Transfer) kind() Kind { return KindTransfer }

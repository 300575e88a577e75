package flow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/hetero/internal/graph"
)

func TestHost_CreatesHostNode(t *testing.T) {
	f := New()
	h := f.Host(func(ctx context.Context) error { return nil }).Name("prep")

	require.True(t, h.Node().IsHost())
	require.Equal(t, "prep", h.Node().Name())
	require.Equal(t, 1, f.Graph().Len())
}

func TestPrecedeAndSucceed_WireEdges(t *testing.T) {
	f := New()
	a := f.Host(nil)
	b := f.Host(nil)
	c := f.Host(nil)

	a.Precede(b, c)
	require.Equal(t, 2, a.Node().NumSuccessors())
	require.Equal(t, 1, b.Node().PendingDependents())

	d := f.Host(nil).Succeed(b, c)
	require.Equal(t, 2, d.Node().NumDependents())
	require.Equal(t, 2, d.Node().PendingDependents())
}

func TestKernel_UnionsSourcesIntoOneCluster(t *testing.T) {
	f := New()
	p1 := f.Pull([]byte{1, 2, 3})
	p2 := f.Pull([]byte{4, 5, 6})
	k := f.Kernel(nil, p1, p2)

	root := k.Node().Find()
	require.Same(t, root, p1.Node().Find())
	require.Same(t, root, p2.Node().Find())
	require.Equal(t, 3, root.SubtreeSize())
}

func TestKernel_SharedSourcesDoNotTripTheForestAssertion(t *testing.T) {
	f := New()
	p := f.Pull([]byte{1})
	k1 := f.Kernel(nil, p)
	// k2 shares p and k1, whose clusters are already merged.
	k2 := f.Kernel(nil, p, k1)

	require.Same(t, k2.Node().Find(), p.Node().Find())
	require.Equal(t, 3, k2.Node().Find().SubtreeSize())
}

func TestTransfer_UnionsBothEndpoints(t *testing.T) {
	f := New()
	p1 := f.Pull([]byte{1})
	p2 := f.Pull([]byte{2})
	tr := f.Transfer(p1, p2)

	require.Same(t, tr.Node().Find(), p1.Node().Find())
	require.Same(t, tr.Node().Find(), p2.Node().Find())
}

func TestBuilder_PanicsOnNonDeviceSources(t *testing.T) {
	f := New()
	h := f.Host(nil)
	p := f.Pull([]byte{1})

	require.Panics(t, func() { f.Push(h, nil) })
	require.Panics(t, func() { f.Kernel(nil, h) })
	require.Panics(t, func() { f.Transfer(h, p) })
	require.Panics(t, func() { f.Transfer(p, h) })
}

// TestPipelineScenario wires H(host) -> P1(pull) -> K(kernel, sources=[P1])
// -> Q(push, source=K) and checks clustering and readiness counts.
func TestPipelineScenario(t *testing.T) {
	f := New()
	h := f.Host(func(ctx context.Context) error { return nil }).Name("H")
	p1 := f.Pull([]byte{1, 2, 3, 4}).Name("P1")
	k := f.Kernel(func(ctx context.Context, stream graph.Stream, bufs [][]byte) error {
		return nil
	}, p1).Name("K")
	out := make([]byte, 4)
	q := f.Push(k, out).Name("Q")

	h.Precede(p1)
	p1.Precede(k)
	k.Precede(q)

	require.Same(t, p1.Node().Find(), k.Node().Find(), "kernel shares its source's cluster")
	require.NotSame(t, q.Node().Find(), k.Node().Find(), "push is not unioned with its source")

	require.Equal(t, 1, k.Node().PendingDependents())
	require.True(t, k.Node().DecrementDependents(), "kernel ready once the pull retires")
}

func TestPullPushWorkMoveDataThroughDeviceBuffers(t *testing.T) {
	f := New()
	src := []byte{10, 20, 30}
	p := f.Pull(src)
	dst := make([]byte, 3)
	q := f.Push(p, dst)

	pool := newTestPool(t)
	stream := pool.stream
	require.NoError(t, p.Node().Pull().Work(context.Background(), pool.alloc, stream))
	require.Equal(t, src, p.Node().Pull().Data)
	require.Equal(t, stream.DeviceID(), p.Node().Pull().Device)

	require.NoError(t, q.Node().Push().Work(context.Background(), stream))
	require.Equal(t, src, dst)
}

func TestKernelWorkOperatesInPlaceOnSourceBuffers(t *testing.T) {
	f := New()
	p := f.Pull([]byte{1, 1, 1})
	k := f.Kernel(func(ctx context.Context, stream graph.Stream, bufs [][]byte) error {
		for i := range bufs[0] {
			bufs[0][i] += 2
		}
		return nil
	}, p)
	dst := make([]byte, 3)
	q := f.Push(k, dst)

	pool := newTestPool(t)
	require.NoError(t, p.Node().Pull().Work(context.Background(), pool.alloc, pool.stream))
	require.NoError(t, k.Node().Kernel().Work(context.Background(), pool.stream))
	require.NoError(t, q.Node().Push().Work(context.Background(), pool.stream))
	require.Equal(t, []byte{3, 3, 3}, dst)
}

func TestTransferWorkCopiesBetweenBuffers(t *testing.T) {
	f := New()
	p1 := f.Pull([]byte{9, 9})
	p2 := f.Pull([]byte{0, 0})
	tr := f.Transfer(p1, p2)

	pool := newTestPool(t)
	require.NoError(t, p1.Node().Pull().Work(context.Background(), pool.alloc, pool.stream))
	require.NoError(t, p2.Node().Pull().Work(context.Background(), pool.alloc, pool.stream))
	require.NoError(t, tr.Node().Transfer().Work(context.Background(), pool.stream))
	require.Equal(t, []byte{9, 9}, p2.Node().Pull().Data)
}

// testPool is a minimal in-test stand-in for the device runtime.
type testPool struct {
	alloc  stubAllocator
	stream stubStream
}

func newTestPool(t *testing.T) *testPool {
	t.Helper()
	return &testPool{}
}

type stubAllocator struct{}

func (stubAllocator) Allocate(n int) []byte { return make([]byte, n) }
func (stubAllocator) Release([]byte)        {}

type stubStream struct{}

func (stubStream) DeviceID() int { return 0 }

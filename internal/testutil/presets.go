// Package testutil provides canned graphs for tests that need realistic
// topologies without repeating builder boilerplate.
package testutil

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/zjrosen/hetero/internal/flow"
	"github.com/zjrosen/hetero/internal/graph"
)

// Pipeline is the canonical four-stage shape: a host prep task feeding a
// pull, a kernel over the pull, and a push of the kernel's result.
type Pipeline struct {
	Flow *flow.Flow
	H    flow.Task
	P1   flow.Task
	K    flow.Task
	Q    flow.Task
	Out  []byte
}

// NewPipeline builds a pipeline over src whose kernel adds delta to every
// byte.
func NewPipeline(t *testing.T, src []byte, delta byte) *Pipeline {
	t.Helper()

	f := flow.New()
	p := &Pipeline{Flow: f, Out: make([]byte, len(src))}

	p.H = f.Host(func(ctx context.Context) error { return nil }).Name("H")
	p.P1 = f.Pull(src).Name("P1")
	p.K = f.Kernel(func(ctx context.Context, stream graph.Stream, bufs [][]byte) error {
		for i := range bufs[0] {
			bufs[0][i] += delta
		}
		return nil
	}, p.P1).Name("K")
	p.Q = f.Push(p.K, p.Out).Name("Q")

	p.H.Precede(p.P1)
	p.P1.Precede(p.K)
	p.K.Precede(p.Q)
	return p
}

// Diamond builds a host diamond a -> {b, c} -> d and returns the flow plus
// a counter incremented by every task body.
func Diamond(t *testing.T) (*flow.Flow, *atomic.Int32) {
	t.Helper()

	f := flow.New()
	var ran atomic.Int32
	body := func(ctx context.Context) error {
		ran.Add(1)
		return nil
	}

	a := f.Host(body).Name("a")
	b := f.Host(body).Name("b")
	c := f.Host(body).Name("c")
	d := f.Host(body).Name("d")
	a.Precede(b, c)
	d.Succeed(b, c)
	return f, &ran
}

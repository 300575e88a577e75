// Package executor runs a constructed task graph across CPU workers and
// simulated devices. It consumes the graph package's readiness countdown to
// order dispatch, resolves each device-kind node's cluster through the
// affinity forest, and commits one device per cluster through the group's
// compare-and-swap protocol.
package executor

import (
	"context"
	"fmt"
	"runtime"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	"github.com/zjrosen/hetero/internal/device"
	"github.com/zjrosen/hetero/internal/graph"
	"github.com/zjrosen/hetero/internal/log"
	"github.com/zjrosen/hetero/internal/pubsub"
)

// Event is the payload published on the broker for run and node lifecycle
// transitions.
type Event struct {
	RunID  string
	Node   string
	Kind   graph.Kind
	Device int
	Err    error
}

// Config configures an Executor. Zero values select defaults.
type Config struct {
	// Workers is the number of dispatch goroutines (default: NumCPU).
	Workers int
	// Pool supplies the simulated devices (default: one device, two streams).
	Pool *device.Pool
	// Policy proposes device ids for unassigned clusters (default: round-robin).
	Policy Policy
	// Broker receives lifecycle events; nil disables publishing.
	Broker *pubsub.Broker[Event]
	// Tracer spans runs and node dispatches; nil selects a no-op tracer.
	Tracer trace.Tracer
}

// Executor dispatches graphs. Safe for reuse across sequential runs; a
// single graph must not be run twice, since execution consumes its
// readiness counters.
type Executor struct {
	workers int
	pool    *device.Pool
	policy  Policy
	broker  *pubsub.Broker[Event]
	tracer  trace.Tracer
}

// New builds an executor from cfg, filling in defaults.
func New(cfg Config) *Executor {
	e := &Executor{
		workers: cfg.Workers,
		pool:    cfg.Pool,
		policy:  cfg.Policy,
		broker:  cfg.Broker,
		tracer:  cfg.Tracer,
	}
	if e.workers < 1 {
		e.workers = runtime.NumCPU()
	}
	if e.pool == nil {
		e.pool = device.NewPool(1, 2)
	}
	if e.policy == nil {
		e.policy = &RoundRobin{}
	}
	if e.tracer == nil {
		e.tracer = noop.NewTracerProvider().Tracer("executor")
	}
	return e
}

// Pool returns the device pool the executor dispatches onto.
func (e *Executor) Pool() *device.Pool { return e.pool }

// Run executes g to completion and returns the first node error, if any.
// Construction must be finished before Run; after Run the graph's readiness
// counters are spent.
func (e *Executor) Run(ctx context.Context, g *graph.Graph) error {
	runID := uuid.NewString()[:8]

	ctx, span := e.tracer.Start(ctx, "run",
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.Int("graph.nodes", g.Len()),
		))
	defer span.End()

	e.bindGroups(g)
	e.publish(pubsub.RunStarted, Event{RunID: runID})
	log.Info(log.CatExec, "run started", "run", runID, "nodes", g.Len(), "workers", e.workers)

	// Buffered to the node count so completions never block on hand-off.
	ready := make(chan *graph.Node, g.Len())
	remaining := int64(g.Len())
	seeded := 0
	for _, n := range g.Nodes() {
		if n.PendingDependents() == 0 {
			ready <- n
			seeded++
		}
	}
	if seeded == 0 && g.Len() > 0 {
		return fmt.Errorf("executor: graph has no source nodes")
	}

	eg, ctx := errgroup.WithContext(ctx)
	counted := make(chan struct{}, g.Len())
	// Closer drains one token per retired node and closes the ready channel
	// once the whole graph is done. Successor hand-offs happen before the
	// retiring worker's token, so no send can trail the close. On
	// cancellation the channel stays open and workers bail out via ctx.
	eg.Go(func() error {
		for remaining > 0 {
			select {
			case <-counted:
				remaining--
			case <-ctx.Done():
				return nil
			}
		}
		close(ready)
		return nil
	})

	for i := 0; i < e.workers; i++ {
		eg.Go(func() error {
			for {
				select {
				case n, ok := <-ready:
					if !ok {
						return nil
					}
					if err := e.dispatch(ctx, runID, n); err != nil {
						return err
					}
					for _, s := range n.Successors() {
						if s.DecrementDependents() {
							ready <- s
						}
					}
					counted <- struct{}{}
				case <-ctx.Done():
					return nil
				}
			}
		})
	}

	err := eg.Wait()
	e.publish(pubsub.RunCompleted, Event{RunID: runID, Err: err})
	if err != nil {
		log.ErrorErr(log.CatExec, "run failed", err, "run", runID)
		return err
	}
	log.Info(log.CatExec, "run completed", "run", runID)
	return nil
}

// bindGroups allocates one device group per affinity cluster, bound on the
// cluster root. Runs single-threaded before any worker starts.
func (e *Executor) bindGroups(g *graph.Graph) {
	for _, n := range g.Nodes() {
		if !n.IsDevice() {
			continue
		}
		root := n.Find()
		if root.Group() == nil {
			root.BindGroup(g.NewDeviceGroup())
		}
	}
}

// dispatch runs one node's work on the appropriate worker or device stream.
func (e *Executor) dispatch(ctx context.Context, runID string, n *graph.Node) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	name := nodeLabel(n)
	devID := graph.DeviceUnassigned
	if n.IsDevice() {
		devID = e.resolveDevice(n)
	}

	ctx, span := e.tracer.Start(ctx, "node",
		trace.WithAttributes(
			attribute.String("node.name", name),
			attribute.String("node.kind", n.Kind().String()),
			attribute.Int("node.device", devID),
		))
	defer span.End()

	e.publish(pubsub.NodeDispatched, Event{RunID: runID, Node: name, Kind: n.Kind(), Device: devID})
	log.Debug(log.CatExec, "dispatch", "run", runID, "node", name, "kind", n.Kind(), "device", devID)

	err := e.invoke(ctx, n, devID)
	if err != nil {
		span.RecordError(err)
		e.publish(pubsub.NodeFailed, Event{RunID: runID, Node: name, Kind: n.Kind(), Device: devID, Err: err})
		return fmt.Errorf("node %s: %w", name, err)
	}
	e.publish(pubsub.NodeCompleted, Event{RunID: runID, Node: name, Kind: n.Kind(), Device: devID})
	return nil
}

// resolveDevice returns the physical device for a device-kind node,
// committing the cluster's choice on first contact. Racing workers all
// converge on whichever proposal won the compare-and-swap.
func (e *Executor) resolveDevice(n *graph.Node) int {
	grp := n.Find().Group()
	id := grp.Device()
	if id == graph.DeviceUnassigned {
		id = grp.CommitDevice(e.policy.Pick(e.pool))
	}
	grp.AddTask()
	return id
}

func (e *Executor) invoke(ctx context.Context, n *graph.Node, devID int) error {
	switch {
	case n.IsHost():
		if w := n.Host().Work; w != nil {
			return w(ctx)
		}
		return nil
	case n.IsPull():
		dev := e.pool.Device(devID)
		stream := dev.Stream()
		return stream.Do(func() error {
			return n.Pull().Work(ctx, dev.Allocator(), stream)
		})
	case n.IsPush():
		stream := e.pool.Device(devID).Stream()
		return stream.Do(func() error {
			return n.Push().Work(ctx, stream)
		})
	case n.IsKernel():
		stream := e.pool.Device(devID).Stream()
		return stream.Do(func() error {
			return n.Kernel().Work(ctx, stream)
		})
	case n.IsTransfer():
		stream := e.pool.Device(devID).Stream()
		return stream.Do(func() error {
			return n.Transfer().Work(ctx, stream)
		})
	default:
		return fmt.Errorf("executor: unknown kind %v", n.Kind())
	}
}

func (e *Executor) publish(t pubsub.EventType, ev Event) {
	if e.broker != nil {
		e.broker.Publish(t, ev)
	}
}

func nodeLabel(n *graph.Node) string {
	if n.Name() != "" {
		return n.Name()
	}
	return fmt.Sprintf("%s-task", n.Kind())
}

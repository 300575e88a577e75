package flowfile

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/zjrosen/hetero/internal/flow"
	"github.com/zjrosen/hetero/internal/graph"
)

// Build materializes the definition into a flow with synthesized workloads:
// hosts sleep for their declared duration, pulls stage a filled buffer,
// kernels add their delta to every source byte, pushes copy back into a
// host buffer returned in Result.Outputs.
//
// Tasks are created in two passes (host/pull first, then the kinds that
// reference them) so forward references between device tasks resolve.
func (d *Definition) Build() (*Result, error) {
	f := flow.New()
	res := &Result{
		Flow:    f,
		Tasks:   make(map[string]flow.Task, len(d.Tasks)),
		Outputs: make(map[string][]byte),
	}

	for _, td := range d.Tasks {
		switch td.Kind {
		case "host":
			res.Tasks[td.Key] = f.Host(hostWork(time.Duration(td.Duration))).Name(td.Key)
		case "pull":
			res.Tasks[td.Key] = f.Pull(pattern(td.Bytes, byte(td.Fill))).Name(td.Key)
		}
	}

	for _, td := range d.Tasks {
		switch td.Kind {
		case "kernel":
			sources := make([]flow.Task, len(td.Sources))
			for i, key := range td.Sources {
				src, ok := res.Tasks[key]
				if !ok {
					return nil, fmt.Errorf("%w: kernel %s source %s must precede it in the file", ErrUnknownTask, td.Key, key)
				}
				sources[i] = src
			}
			delta := td.Delta
			if delta == 0 {
				delta = 1
			}
			res.Tasks[td.Key] = f.Kernel(kernelWork(byte(delta)), sources...).Name(td.Key)
		case "push":
			src, ok := res.Tasks[td.Source]
			if !ok {
				return nil, fmt.Errorf("%w: push %s source %s must precede it in the file", ErrUnknownTask, td.Key, td.Source)
			}
			out := make([]byte, outputSize(d, td.Source))
			res.Outputs[td.Key] = out
			res.Tasks[td.Key] = f.Push(src, out).Name(td.Key)
		case "transfer":
			src, okS := res.Tasks[td.Source]
			dst, okT := res.Tasks[td.Target]
			if !okS || !okT {
				return nil, fmt.Errorf("%w: transfer %s endpoints must precede it in the file", ErrUnknownTask, td.Key)
			}
			res.Tasks[td.Key] = f.Transfer(src, dst).Name(td.Key)
		}
	}

	for _, e := range d.Edges {
		res.Tasks[e.From].Precede(res.Tasks[e.To])
	}

	return res, nil
}

// Result is a built definition: the flow, the task handles by key, and the
// host-side output buffer of every push task.
type Result struct {
	Flow    *flow.Flow
	Tasks   map[string]flow.Task
	Outputs map[string][]byte
}

func hostWork(d time.Duration) graph.HostFunc {
	return func(ctx context.Context) error {
		if d <= 0 {
			return nil
		}
		select {
		case <-time.After(d):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func kernelWork(delta byte) flow.KernelWork {
	return func(ctx context.Context, stream graph.Stream, bufs [][]byte) error {
		for _, buf := range bufs {
			for i := range buf {
				buf[i] += delta
			}
		}
		return nil
	}
}

func pattern(n int, fill byte) []byte {
	return bytes.Repeat([]byte{fill}, n)
}

// outputSize sizes a push buffer from the pull the source chain bottoms out
// in. Kernels and transfers operate in place, so the walk mirrors how the
// builder resolves device buffers.
func outputSize(d *Definition, key string) int {
	for _, td := range d.Tasks {
		if td.Key != key {
			continue
		}
		switch td.Kind {
		case "pull":
			return td.Bytes
		case "kernel":
			if len(td.Sources) > 0 {
				return outputSize(d, td.Sources[0])
			}
		case "transfer":
			return outputSize(d, td.Target)
		case "push":
			return outputSize(d, td.Source)
		}
		return 0
	}
	return 0
}

package flowfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/hetero/internal/executor"
)

const pipelineYAML = `
name: pipeline
tasks:
  - key: h
    kind: host
    duration: 1ms
  - key: p1
    kind: pull
    bytes: 4
    fill: 3
  - key: k
    kind: kernel
    sources: [p1]
    delta: 2
  - key: q
    kind: push
    source: k
edges:
  - from: h
    to: p1
  - from: p1
    to: k
  - from: k
    to: q
`

func TestParse_ValidPipeline(t *testing.T) {
	def, err := Parse([]byte(pipelineYAML))
	require.NoError(t, err)
	require.Equal(t, "pipeline", def.Name)
	require.Len(t, def.Tasks, 4)
	require.Len(t, def.Edges, 3)
	require.Equal(t, Duration(time.Millisecond), def.Tasks[0].Duration)
}

func TestParse_RejectsBadDocuments(t *testing.T) {
	cases := []struct {
		name string
		yaml string
		want error
	}{
		{"empty", "name: x", ErrNoTasks},
		{"duplicate key", `
tasks:
  - {key: a, kind: host}
  - {key: a, kind: host}
`, ErrDuplicateTask},
		{"unknown kind", `
tasks:
  - {key: a, kind: gpu}
`, ErrUnknownKind},
		{"push without source", `
tasks:
  - {key: q, kind: push}
`, ErrMissingField},
		{"push from host", `
tasks:
  - {key: a, kind: host}
  - {key: q, kind: push, source: a}
`, ErrNotDeviceTask},
		{"kernel unknown source", `
tasks:
  - {key: k, kind: kernel, sources: [ghost]}
`, ErrUnknownTask},
		{"edge to unknown task", `
tasks:
  - {key: a, kind: host}
edges:
  - {from: a, to: ghost}
`, ErrUnknownTask},
		{"cycle", `
tasks:
  - {key: a, kind: host}
  - {key: b, kind: host}
edges:
  - {from: a, to: b}
  - {from: b, to: a}
`, ErrCycleDetected},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml))
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestBuild_WiresClustersAndEdges(t *testing.T) {
	def, err := Parse([]byte(pipelineYAML))
	require.NoError(t, err)

	res, err := def.Build()
	require.NoError(t, err)
	require.Len(t, res.Tasks, 4)
	require.Equal(t, 4, res.Flow.Graph().Len())

	p1 := res.Tasks["p1"].Node()
	k := res.Tasks["k"].Node()
	q := res.Tasks["q"].Node()
	require.Same(t, p1.Find(), k.Find())
	require.NotSame(t, q.Find(), k.Find())
	require.Equal(t, 1, k.PendingDependents())
}

func TestBuildAndRun_ProducesPushedOutput(t *testing.T) {
	def, err := Parse([]byte(pipelineYAML))
	require.NoError(t, err)
	res, err := def.Build()
	require.NoError(t, err)

	e := executor.New(executor.Config{Workers: 4})
	require.NoError(t, e.Run(context.Background(), res.Flow.Graph()))

	// fill=3 incremented by delta=2 across 4 bytes.
	require.Equal(t, []byte{5, 5, 5, 5}, res.Outputs["q"])
}

func TestLoad_CachesByPathAndModTime(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "graph.yaml")
	require.NoError(t, os.WriteFile(path, []byte(pipelineYAML), 0o644))

	first, err := Load(path)
	require.NoError(t, err)
	second, err := Load(path)
	require.NoError(t, err)
	require.Same(t, first, second, "unchanged file resolves from cache")

	// Rewrite with a new mod time to invalidate.
	require.NoError(t, os.WriteFile(path, []byte(pipelineYAML), 0o644))
	future := time.Now().Add(time.Second)
	require.NoError(t, os.Chtimes(path, future, future))
	third, err := Load(path)
	require.NoError(t, err)
	require.NotSame(t, first, third, "touched file re-parses")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

package graph

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeviceGroup_StartsUnassigned(t *testing.T) {
	g := NewDeviceGroup()
	require.Equal(t, DeviceUnassigned, g.Device())
	require.Equal(t, 0, g.NumTasks())
}

func TestCommitDevice_FirstCallWins(t *testing.T) {
	g := NewDeviceGroup()
	require.Equal(t, 2, g.CommitDevice(2))
	require.Equal(t, 2, g.CommitDevice(7), "losing caller reads the committed id")
	require.Equal(t, 2, g.Device())
}

// TestCommitDevice_ExactlyOnceUnderContention races N goroutines, each
// proposing its own device id, and checks that a single id wins and is
// observed identically by every caller.
func TestCommitDevice_ExactlyOnceUnderContention(t *testing.T) {
	const n = 64
	g := NewDeviceGroup()

	results := make([]int, n)
	var start, done sync.WaitGroup
	start.Add(1)
	done.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer done.Done()
			start.Wait()
			results[i] = g.CommitDevice(i)
			g.AddTask()
		}(i)
	}
	start.Done()
	done.Wait()

	winner := g.Device()
	require.NotEqual(t, DeviceUnassigned, winner)
	for i, got := range results {
		require.Equal(t, winner, got, "caller %d saw a different committed id", i)
	}
	require.Equal(t, n, g.NumTasks(), "task counter reflects every dispatch")
}

func TestGraph_OwnsAllocatedGroups(t *testing.T) {
	g := New()
	dg := g.NewDeviceGroup()
	n := g.NewNode(&Kernel{Device: DeviceUnassigned})

	require.Nil(t, n.Group())
	n.BindGroup(dg)
	require.Same(t, dg, n.Group())
	require.Same(t, dg, n.Find().Group(), "singleton resolves its own group through the forest")
}

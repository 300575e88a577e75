package executor

import (
	"sync/atomic"

	"github.com/zjrosen/hetero/internal/device"
)

// Policy chooses the device id a cluster proposes to commit. The choice is
// advisory: when several workers race, exactly one proposal wins the
// compare-and-swap on the cluster's device group and everyone adopts it.
type Policy interface {
	Pick(pool *device.Pool) int
}

// RoundRobin cycles through the pool's devices in dispatch order.
type RoundRobin struct {
	next atomic.Uint32
}

// Pick returns the next device id in rotation.
func (r *RoundRobin) Pick(pool *device.Pool) int {
	return int(r.next.Add(1)-1) % pool.Count()
}

// LeastLoaded proposes the device with the fewest dispatched work items.
type LeastLoaded struct{}

// Pick scans the pool for the least-dispatched device.
func (LeastLoaded) Pick(pool *device.Pool) int {
	best := 0
	bestLoad := int64(-1)
	for _, d := range pool.Devices() {
		load := d.Dispatched()
		if bestLoad < 0 || load < bestLoad {
			best, bestLoad = d.ID(), load
		}
	}
	return best
}

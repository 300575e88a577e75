package graph

import "sync/atomic"

// DeviceUnassigned is the device id of a group no member has committed yet.
const DeviceUnassigned = -1

// DeviceGroup is the small atomic record shared by every node in one
// affinity cluster: the committed physical device id and a live count of
// tasks dispatched against it. Groups are allocated by the graph container
// and referenced, never owned, by nodes.
type DeviceGroup struct {
	deviceID atomic.Int32
	numTasks atomic.Int32
}

// NewDeviceGroup returns an unassigned group with a zero task count.
func NewDeviceGroup() *DeviceGroup {
	g := &DeviceGroup{}
	g.deviceID.Store(DeviceUnassigned)
	return g
}

// CommitDevice transitions the group from unassigned to id exactly once and
// returns the authoritative id. Losing the compare-and-swap is the expected
// outcome for every caller after the first: they read and return whichever
// id won. Safe to call from any number of executor goroutines.
func (g *DeviceGroup) CommitDevice(id int) int {
	if g.deviceID.CompareAndSwap(DeviceUnassigned, int32(id)) {
		return id
	}
	return int(g.deviceID.Load())
}

// Device returns the committed device id, or DeviceUnassigned.
func (g *DeviceGroup) Device() int {
	return int(g.deviceID.Load())
}

// AddTask counts one dispatched member task. The count feeds load-balancing
// heuristics; it carries no ordering guarantees.
func (g *DeviceGroup) AddTask() {
	g.numTasks.Add(1)
}

// NumTasks returns the number of tasks dispatched against the group.
func (g *DeviceGroup) NumTasks() int {
	return int(g.numTasks.Load())
}

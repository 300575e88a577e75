// Package device provides a simulated accelerator runtime for executing
// task graphs without real hardware: numbered devices with per-device
// allocation accounting, round-robin stream handles that serialize the work
// enqueued on them, and allocators producing plain byte-slice buffers.
package device

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Device models one physical accelerator.
type Device struct {
	id         int
	allocated  atomic.Int64
	dispatched atomic.Int64
	streams    []*Stream
	next       atomic.Uint32
}

// ID returns the device's physical id.
func (d *Device) ID() int { return d.id }

// Allocator returns the buffer allocator for this device.
func (d *Device) Allocator() *Allocator { return &Allocator{dev: d} }

// Stream returns the next stream handle in round-robin order.
func (d *Device) Stream() *Stream {
	i := int(d.next.Add(1)-1) % len(d.streams)
	return d.streams[i]
}

// BytesAllocated returns the bytes currently held by live buffers.
func (d *Device) BytesAllocated() int64 { return d.allocated.Load() }

// Dispatched returns the number of work items run on this device.
func (d *Device) Dispatched() int64 { return d.dispatched.Load() }

// Allocator hands out device buffers and tracks their footprint.
type Allocator struct {
	dev *Device
}

// Allocate returns a zeroed buffer of n bytes charged to the device.
func (a *Allocator) Allocate(n int) []byte {
	a.dev.allocated.Add(int64(n))
	return make([]byte, n)
}

// Release returns a buffer's bytes to the device budget.
func (a *Allocator) Release(buf []byte) {
	a.dev.allocated.Add(-int64(len(buf)))
}

// Stream is a serial work queue on one device. Work submitted through Do
// runs one item at a time per stream, mirroring how real streams order the
// operations enqueued on them.
type Stream struct {
	dev *Device
	idx int
	mu  sync.Mutex
}

// DeviceID returns the physical device the stream belongs to.
func (s *Stream) DeviceID() int { return s.dev.id }

// Do runs fn serialized with all other work on this stream.
func (s *Stream) Do(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dev.dispatched.Add(1)
	return fn()
}

// Pool is a fixed set of simulated devices.
type Pool struct {
	devices []*Device
}

// NewPool creates count devices with streamsPerDevice streams each.
func NewPool(count, streamsPerDevice int) *Pool {
	if count < 1 {
		count = 1
	}
	if streamsPerDevice < 1 {
		streamsPerDevice = 1
	}
	p := &Pool{devices: make([]*Device, count)}
	for i := range p.devices {
		d := &Device{id: i, streams: make([]*Stream, streamsPerDevice)}
		for j := range d.streams {
			d.streams[j] = &Stream{dev: d, idx: j}
		}
		p.devices[i] = d
	}
	return p
}

// Device returns the device with the given id, panicking on an id outside
// the pool. Ids come from committed device groups, so a miss is a bug.
func (p *Pool) Device(id int) *Device {
	if id < 0 || id >= len(p.devices) {
		panic(fmt.Sprintf("device: no device with id %d in pool of %d", id, len(p.devices)))
	}
	return p.devices[id]
}

// Count returns the number of devices in the pool.
func (p *Pool) Count() int { return len(p.devices) }

// Devices returns every device in id order.
func (p *Pool) Devices() []*Device { return p.devices }

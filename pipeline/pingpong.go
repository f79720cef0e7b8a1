package pipeline

import (
	"sync"

	"github.com/ZPredou/ZWebGpu/gpu"
)

// PingPong owns a pair of equally sized buffers alternating source
// and destination roles across simulation steps. Within one step the
// two roles never alias: Source and Destination always name different
// allocations, and Swap flips the roles so step N reads what step N-1
// wrote.
type PingPong struct {
	dev gpu.Device

	mu    sync.Mutex
	bufs  [2]gpu.BufferID
	phase int
	steps uint64
	done  bool
}

// NewPingPong allocates both slots from desc. The slots get the
// descriptor's label suffixed "-a" and "-b".
func NewPingPong(dev gpu.Device, desc *gpu.BufferDescriptor) (*PingPong, error) {
	a := *desc
	a.Label = desc.Label + "-a"
	idA, err := dev.CreateBuffer(&a)
	if err != nil {
		return nil, err
	}
	b := *desc
	b.Label = desc.Label + "-b"
	idB, err := dev.CreateBuffer(&b)
	if err != nil {
		dev.DestroyBuffer(idA)
		return nil, err
	}
	return &PingPong{dev: dev, bufs: [2]gpu.BufferID{idA, idB}}, nil
}

// Source returns the buffer the current step reads.
func (p *PingPong) Source() gpu.BufferID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.bufs[p.phase]
}

// Destination returns the buffer the current step writes.
func (p *PingPong) Destination() gpu.BufferID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.bufs[p.phase^1]
}

// Swap flips the roles at the end of a step, so the next step reads
// what this step wrote.
func (p *PingPong) Swap() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.phase ^= 1
	p.steps++
}

// Phase returns the current role assignment (0 or 1).
func (p *PingPong) Phase() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.phase
}

// Steps returns the number of Swap calls.
func (p *PingPong) Steps() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.steps
}

// Destroy releases both buffers. Idempotent.
func (p *PingPong) Destroy() {
	p.mu.Lock()
	if p.done {
		p.mu.Unlock()
		return
	}
	p.done = true
	bufs := p.bufs
	p.bufs = [2]gpu.BufferID{}
	p.mu.Unlock()
	p.dev.DestroyBuffer(bufs[0])
	p.dev.DestroyBuffer(bufs[1])
}

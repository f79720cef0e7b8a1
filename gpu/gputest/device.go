// Package gputest provides an instrumented in-memory Device for tests.
//
// The fake tracks every create and destroy so tests can assert resource
// pairing, and supports scripted failures and device-loss injection.
package gputest

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ZPredou/ZWebGpu/gpu"
)

// Device is an in-memory gpu.Device. All operations succeed unless a
// failure is scripted with FailNext or the device is lost or closed.
// Buffers hold real backing storage so Write/Read round-trip.
type Device struct {
	mu     sync.Mutex
	nextID uint64
	closed bool
	lost   bool

	buffers   map[gpu.BufferID][]byte
	bufDescs  map[gpu.BufferID]gpu.BufferDescriptor
	textures  map[gpu.TextureID]gpu.TextureDescriptor
	shaders   map[gpu.ShaderModuleID]string
	bgLayouts map[gpu.BindGroupLayoutID]struct{}
	pLayouts  map[gpu.PipelineLayoutID]struct{}
	bgs       map[gpu.BindGroupID]gpu.BindGroupDescriptor
	cPipes    map[gpu.ComputePipelineID]struct{}
	rPipes    map[gpu.RenderPipelineID]struct{}

	failNext map[string]error
	lostFn   func(reason string)
	lostOnce sync.Once

	// Counters are cumulative over the device lifetime.
	Created   Counters
	Destroyed Counters

	// Dispatches counts compute dispatches recorded.
	Dispatches atomic.Int64

	// Draws counts draw calls recorded.
	Draws atomic.Int64

	// Submits counts Submit calls.
	Submits atomic.Int64
}

// Counters tallies resource operations by kind.
type Counters struct {
	Buffers          atomic.Int64
	Textures         atomic.Int64
	Shaders          atomic.Int64
	BindGroupLayouts atomic.Int64
	PipelineLayouts  atomic.Int64
	BindGroups       atomic.Int64
	ComputePipelines atomic.Int64
	RenderPipelines  atomic.Int64
}

// NewDevice returns an empty fake device.
func NewDevice() *Device {
	return &Device{
		buffers:   make(map[gpu.BufferID][]byte),
		bufDescs:  make(map[gpu.BufferID]gpu.BufferDescriptor),
		textures:  make(map[gpu.TextureID]gpu.TextureDescriptor),
		shaders:   make(map[gpu.ShaderModuleID]string),
		bgLayouts: make(map[gpu.BindGroupLayoutID]struct{}),
		pLayouts:  make(map[gpu.PipelineLayoutID]struct{}),
		bgs:       make(map[gpu.BindGroupID]gpu.BindGroupDescriptor),
		cPipes:    make(map[gpu.ComputePipelineID]struct{}),
		rPipes:    make(map[gpu.RenderPipelineID]struct{}),
		failNext:  make(map[string]error),
	}
}

// FailNext scripts the next call of op to return err. Ops are named
// after the Device method, e.g. "CreateBuffer".
func (d *Device) FailNext(op string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failNext[op] = err
}

// Lose marks the device as lost and fires the lost handler once.
func (d *Device) Lose(reason string) {
	d.mu.Lock()
	d.lost = true
	fn := d.lostFn
	d.mu.Unlock()
	if fn != nil {
		d.lostOnce.Do(func() { fn(reason) })
	}
}

// LiveBuffers returns the number of currently live buffers.
func (d *Device) LiveBuffers() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.buffers)
}

// LiveTextures returns the number of currently live textures.
func (d *Device) LiveTextures() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.textures)
}

// LiveBufferIDs returns the IDs of all currently live buffers.
func (d *Device) LiveBufferIDs() []gpu.BufferID {
	d.mu.Lock()
	defer d.mu.Unlock()
	ids := make([]gpu.BufferID, 0, len(d.buffers))
	for id := range d.buffers {
		ids = append(ids, id)
	}
	return ids
}

// BufferSize returns the size of a live buffer, or 0 if not live.
func (d *Device) BufferSize(id gpu.BufferID) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return uint64(len(d.buffers[id]))
}

// BufferContents returns a copy of a live buffer's backing storage.
func (d *Device) BufferContents(id gpu.BufferID) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	b, ok := d.buffers[id]
	if !ok {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func (d *Device) check(op string) error {
	if d.closed {
		return gpu.ErrDeviceClosed
	}
	if d.lost {
		return gpu.ErrDeviceLost
	}
	if err, ok := d.failNext[op]; ok {
		delete(d.failNext, op)
		return err
	}
	return nil
}

func (d *Device) alloc() uint64 {
	d.nextID++
	return d.nextID
}

// CreateBuffer implements gpu.Device.
func (d *Device) CreateBuffer(desc *gpu.BufferDescriptor) (gpu.BufferID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check("CreateBuffer"); err != nil {
		return gpu.InvalidID, err
	}
	if desc.Size == 0 {
		return gpu.InvalidID, fmt.Errorf("%w: zero-size buffer %q", gpu.ErrInvalidResource, desc.Label)
	}
	id := gpu.BufferID(d.alloc())
	d.buffers[id] = make([]byte, desc.Size)
	d.bufDescs[id] = *desc
	d.Created.Buffers.Add(1)
	return id, nil
}

// DestroyBuffer implements gpu.Device.
func (d *Device) DestroyBuffer(id gpu.BufferID) {
	if id == gpu.InvalidID {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.buffers[id]; ok {
		delete(d.buffers, id)
		delete(d.bufDescs, id)
		d.Destroyed.Buffers.Add(1)
	}
}

// WriteBuffer implements gpu.Device.
func (d *Device) WriteBuffer(id gpu.BufferID, offset uint64, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check("WriteBuffer"); err != nil {
		return err
	}
	buf, ok := d.buffers[id]
	if !ok {
		return fmt.Errorf("%w: buffer %d", gpu.ErrInvalidResource, id)
	}
	if offset+uint64(len(data)) > uint64(len(buf)) {
		return fmt.Errorf("%w: write past end of buffer %d", gpu.ErrInvalidResource, id)
	}
	copy(buf[offset:], data)
	return nil
}

// ReadBuffer implements gpu.Device.
func (d *Device) ReadBuffer(id gpu.BufferID, offset, size uint64) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check("ReadBuffer"); err != nil {
		return nil, err
	}
	buf, ok := d.buffers[id]
	if !ok {
		return nil, fmt.Errorf("%w: buffer %d", gpu.ErrInvalidResource, id)
	}
	if offset+size > uint64(len(buf)) {
		return nil, fmt.Errorf("%w: read past end of buffer %d", gpu.ErrInvalidResource, id)
	}
	out := make([]byte, size)
	copy(out, buf[offset:offset+size])
	return out, nil
}

// CreateTexture implements gpu.Device.
func (d *Device) CreateTexture(desc *gpu.TextureDescriptor) (gpu.TextureID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check("CreateTexture"); err != nil {
		return gpu.InvalidID, err
	}
	if desc.Width == 0 || desc.Height == 0 {
		return gpu.InvalidID, fmt.Errorf("%w: zero-size texture %q", gpu.ErrInvalidResource, desc.Label)
	}
	id := gpu.TextureID(d.alloc())
	d.textures[id] = *desc
	d.Created.Textures.Add(1)
	return id, nil
}

// DestroyTexture implements gpu.Device.
func (d *Device) DestroyTexture(id gpu.TextureID) {
	if id == gpu.InvalidID {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.textures[id]; ok {
		delete(d.textures, id)
		d.Destroyed.Textures.Add(1)
	}
}

// CreateShaderModule implements gpu.Device.
func (d *Device) CreateShaderModule(desc *gpu.ShaderModuleDescriptor) (gpu.ShaderModuleID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check("CreateShaderModule"); err != nil {
		return gpu.InvalidID, err
	}
	if desc.WGSL == "" {
		return gpu.InvalidID, fmt.Errorf("%w: empty shader %q", gpu.ErrInvalidResource, desc.Label)
	}
	id := gpu.ShaderModuleID(d.alloc())
	d.shaders[id] = desc.WGSL
	d.Created.Shaders.Add(1)
	return id, nil
}

// DestroyShaderModule implements gpu.Device.
func (d *Device) DestroyShaderModule(id gpu.ShaderModuleID) {
	if id == gpu.InvalidID {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.shaders[id]; ok {
		delete(d.shaders, id)
		d.Destroyed.Shaders.Add(1)
	}
}

// CreateBindGroupLayout implements gpu.Device.
func (d *Device) CreateBindGroupLayout(desc *gpu.BindGroupLayoutDescriptor) (gpu.BindGroupLayoutID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check("CreateBindGroupLayout"); err != nil {
		return gpu.InvalidID, err
	}
	id := gpu.BindGroupLayoutID(d.alloc())
	d.bgLayouts[id] = struct{}{}
	d.Created.BindGroupLayouts.Add(1)
	return id, nil
}

// DestroyBindGroupLayout implements gpu.Device.
func (d *Device) DestroyBindGroupLayout(id gpu.BindGroupLayoutID) {
	if id == gpu.InvalidID {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.bgLayouts[id]; ok {
		delete(d.bgLayouts, id)
		d.Destroyed.BindGroupLayouts.Add(1)
	}
}

// CreatePipelineLayout implements gpu.Device.
func (d *Device) CreatePipelineLayout(label string, layouts []gpu.BindGroupLayoutID) (gpu.PipelineLayoutID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check("CreatePipelineLayout"); err != nil {
		return gpu.InvalidID, err
	}
	for _, l := range layouts {
		if _, ok := d.bgLayouts[l]; !ok {
			return gpu.InvalidID, fmt.Errorf("%w: bind group layout %d", gpu.ErrInvalidResource, l)
		}
	}
	id := gpu.PipelineLayoutID(d.alloc())
	d.pLayouts[id] = struct{}{}
	d.Created.PipelineLayouts.Add(1)
	return id, nil
}

// DestroyPipelineLayout implements gpu.Device.
func (d *Device) DestroyPipelineLayout(id gpu.PipelineLayoutID) {
	if id == gpu.InvalidID {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.pLayouts[id]; ok {
		delete(d.pLayouts, id)
		d.Destroyed.PipelineLayouts.Add(1)
	}
}

// CreateBindGroup implements gpu.Device.
func (d *Device) CreateBindGroup(desc *gpu.BindGroupDescriptor) (gpu.BindGroupID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check("CreateBindGroup"); err != nil {
		return gpu.InvalidID, err
	}
	if _, ok := d.bgLayouts[desc.Layout]; !ok {
		return gpu.InvalidID, fmt.Errorf("%w: bind group layout %d", gpu.ErrInvalidResource, desc.Layout)
	}
	for _, e := range desc.Entries {
		if _, ok := d.buffers[e.Buffer]; !ok {
			return gpu.InvalidID, fmt.Errorf("%w: buffer %d in bind group %q", gpu.ErrInvalidResource, e.Buffer, desc.Label)
		}
	}
	id := gpu.BindGroupID(d.alloc())
	d.bgs[id] = *desc
	d.Created.BindGroups.Add(1)
	return id, nil
}

// DestroyBindGroup implements gpu.Device.
func (d *Device) DestroyBindGroup(id gpu.BindGroupID) {
	if id == gpu.InvalidID {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.bgs[id]; ok {
		delete(d.bgs, id)
		d.Destroyed.BindGroups.Add(1)
	}
}

// CreateComputePipeline implements gpu.Device.
func (d *Device) CreateComputePipeline(desc *gpu.ComputePipelineDescriptor) (gpu.ComputePipelineID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check("CreateComputePipeline"); err != nil {
		return gpu.InvalidID, err
	}
	if _, ok := d.shaders[desc.Module]; !ok {
		return gpu.InvalidID, fmt.Errorf("%w: shader module %d", gpu.ErrInvalidResource, desc.Module)
	}
	id := gpu.ComputePipelineID(d.alloc())
	d.cPipes[id] = struct{}{}
	d.Created.ComputePipelines.Add(1)
	return id, nil
}

// DestroyComputePipeline implements gpu.Device.
func (d *Device) DestroyComputePipeline(id gpu.ComputePipelineID) {
	if id == gpu.InvalidID {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.cPipes[id]; ok {
		delete(d.cPipes, id)
		d.Destroyed.ComputePipelines.Add(1)
	}
}

// CreateRenderPipeline implements gpu.Device.
func (d *Device) CreateRenderPipeline(desc *gpu.RenderPipelineDescriptor) (gpu.RenderPipelineID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check("CreateRenderPipeline"); err != nil {
		return gpu.InvalidID, err
	}
	if _, ok := d.shaders[desc.VertexModule]; !ok {
		return gpu.InvalidID, fmt.Errorf("%w: shader module %d", gpu.ErrInvalidResource, desc.VertexModule)
	}
	id := gpu.RenderPipelineID(d.alloc())
	d.rPipes[id] = struct{}{}
	d.Created.RenderPipelines.Add(1)
	return id, nil
}

// DestroyRenderPipeline implements gpu.Device.
func (d *Device) DestroyRenderPipeline(id gpu.RenderPipelineID) {
	if id == gpu.InvalidID {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.rPipes[id]; ok {
		delete(d.rPipes, id)
		d.Destroyed.RenderPipelines.Add(1)
	}
}

// BeginComputePass implements gpu.Device.
func (d *Device) BeginComputePass(label string) (gpu.ComputePass, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check("BeginComputePass"); err != nil {
		return nil, err
	}
	return &computePass{dev: d}, nil
}

// BeginRenderPass implements gpu.Device.
func (d *Device) BeginRenderPass(desc *gpu.RenderPassDescriptor) (gpu.RenderPass, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check("BeginRenderPass"); err != nil {
		return nil, err
	}
	return &renderPass{dev: d}, nil
}

// Submit implements gpu.Device.
func (d *Device) Submit() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.check("Submit"); err != nil {
		return err
	}
	d.Submits.Add(1)
	return nil
}

// WaitIdle implements gpu.Device.
func (d *Device) WaitIdle() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.check("WaitIdle")
}

// SetDeviceLostHandler implements gpu.Device.
func (d *Device) SetDeviceLostHandler(fn func(reason string)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lostFn = fn
}

// Close implements gpu.Device.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	clear(d.buffers)
	clear(d.bufDescs)
	clear(d.textures)
	clear(d.shaders)
	clear(d.bgLayouts)
	clear(d.pLayouts)
	clear(d.bgs)
	clear(d.cPipes)
	clear(d.rPipes)
	return nil
}

type computePass struct {
	dev   *Device
	ended bool
}

func (p *computePass) SetPipeline(id gpu.ComputePipelineID)        {}
func (p *computePass) SetBindGroup(index uint32, id gpu.BindGroupID) {}

func (p *computePass) Dispatch(x, y, z uint32) {
	if !p.ended {
		p.dev.Dispatches.Add(1)
	}
}

func (p *computePass) End() { p.ended = true }

type renderPass struct {
	dev   *Device
	ended bool
}

func (p *renderPass) SetPipeline(id gpu.RenderPipelineID)            {}
func (p *renderPass) SetBindGroup(index uint32, id gpu.BindGroupID)  {}
func (p *renderPass) SetVertexBuffer(slot uint32, id gpu.BufferID)   {}

func (p *renderPass) Draw(vertexCount, instanceCount uint32) {
	if !p.ended {
		p.dev.Draws.Add(1)
	}
}

func (p *renderPass) End() { p.ended = true }

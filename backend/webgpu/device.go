package webgpu

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/ZPredou/ZWebGpu/gpu"
)

// texture pairs a WebGPU texture with its default view. Views are
// created eagerly so render pass setup needs no extra calls.
type texture struct {
	tex  *wgpu.Texture
	view *wgpu.TextureView
}

// Device implements gpu.Device on the cogentcore/webgpu bindings. It
// maps opaque resource IDs to WebGPU objects and owns one command
// encoder at a time, flushed by Submit.
//
// Device is safe for concurrent use.
type Device struct {
	mu      sync.RWMutex
	adapter *wgpu.Adapter
	dev     *wgpu.Device
	queue   *wgpu.Queue

	nextID atomic.Uint64

	buffers          map[gpu.BufferID]*wgpu.Buffer
	textures         map[gpu.TextureID]*texture
	shaderModules    map[gpu.ShaderModuleID]*wgpu.ShaderModule
	bindGroupLayouts map[gpu.BindGroupLayoutID]*wgpu.BindGroupLayout
	pipelineLayouts  map[gpu.PipelineLayoutID]*wgpu.PipelineLayout
	bindGroups       map[gpu.BindGroupID]*wgpu.BindGroup
	computePipelines map[gpu.ComputePipelineID]*wgpu.ComputePipeline
	renderPipelines  map[gpu.RenderPipelineID]*wgpu.RenderPipeline

	encoder *wgpu.CommandEncoder

	onLost   func(reason string)
	lostOnce bool
	closed   bool
}

func newDevice(adapter *wgpu.Adapter, dev *wgpu.Device) *Device {
	d := &Device{
		adapter:          adapter,
		dev:              dev,
		queue:            dev.GetQueue(),
		buffers:          make(map[gpu.BufferID]*wgpu.Buffer),
		textures:         make(map[gpu.TextureID]*texture),
		shaderModules:    make(map[gpu.ShaderModuleID]*wgpu.ShaderModule),
		bindGroupLayouts: make(map[gpu.BindGroupLayoutID]*wgpu.BindGroupLayout),
		pipelineLayouts:  make(map[gpu.PipelineLayoutID]*wgpu.PipelineLayout),
		bindGroups:       make(map[gpu.BindGroupID]*wgpu.BindGroup),
		computePipelines: make(map[gpu.ComputePipelineID]*wgpu.ComputePipeline),
		renderPipelines:  make(map[gpu.RenderPipelineID]*wgpu.RenderPipeline),
	}
	d.nextID.Store(1)
	return d
}

func (d *Device) newID() uint64 {
	return d.nextID.Add(1) - 1
}

func (d *Device) check() error {
	if d.closed {
		return gpu.ErrDeviceClosed
	}
	if d.lostOnce {
		return gpu.ErrDeviceLost
	}
	return nil
}

// CreateBuffer creates a GPU buffer.
func (d *Device) CreateBuffer(desc *gpu.BufferDescriptor) (gpu.BufferID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.check(); err != nil {
		return gpu.InvalidID, err
	}
	if desc.Size == 0 {
		return gpu.InvalidID, fmt.Errorf("buffer %q: size must be positive", desc.Label)
	}

	buf, err := d.dev.CreateBuffer(&wgpu.BufferDescriptor{
		Label: desc.Label,
		Size:  desc.Size,
		Usage: toBufferUsage(desc.Usage),
	})
	if err != nil {
		return gpu.InvalidID, fmt.Errorf("create buffer %q: %w", desc.Label, err)
	}

	id := gpu.BufferID(d.newID())
	d.buffers[id] = buf
	return id, nil
}

// DestroyBuffer destroys a buffer. Destroying InvalidID is a no-op.
func (d *Device) DestroyBuffer(id gpu.BufferID) {
	d.mu.Lock()
	buf, ok := d.buffers[id]
	if ok {
		delete(d.buffers, id)
	}
	d.mu.Unlock()

	if ok {
		buf.Release()
	}
}

// WriteBuffer writes data to a buffer at the given byte offset.
func (d *Device) WriteBuffer(id gpu.BufferID, offset uint64, data []byte) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if err := d.check(); err != nil {
		return err
	}
	buf, ok := d.buffers[id]
	if !ok {
		return fmt.Errorf("%w: buffer %d", gpu.ErrInvalidResource, id)
	}
	if len(data) == 0 {
		return nil
	}
	return d.queue.WriteBuffer(buf, offset, data)
}

// ReadBuffer reads buffer contents back to the host through a staging
// buffer. It blocks until the copy completes.
func (d *Device) ReadBuffer(id gpu.BufferID, offset, size uint64) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.check(); err != nil {
		return nil, err
	}
	buf, ok := d.buffers[id]
	if !ok {
		return nil, fmt.Errorf("%w: buffer %d", gpu.ErrInvalidResource, id)
	}

	staging, err := d.dev.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "readback-staging",
		Size:  size,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create staging buffer: %w", err)
	}
	defer staging.Release()

	encoder, err := d.dev.CreateCommandEncoder(nil)
	if err != nil {
		return nil, fmt.Errorf("create readback encoder: %w", err)
	}
	defer encoder.Release()

	if err := encoder.CopyBufferToBuffer(buf, offset, staging, 0, size); err != nil {
		return nil, fmt.Errorf("copy to staging: %w", err)
	}

	cmd, err := encoder.Finish(nil)
	if err != nil {
		return nil, fmt.Errorf("finish readback encoder: %w", err)
	}
	d.queue.Submit(cmd)
	cmd.Release()

	status := wgpu.BufferMapAsyncStatusUnknown
	err = staging.MapAsync(wgpu.MapModeRead, 0, size, func(s wgpu.BufferMapAsyncStatus) {
		status = s
	})
	if err != nil {
		return nil, fmt.Errorf("map staging buffer: %w", err)
	}
	d.dev.Poll(true, nil)
	if status != wgpu.BufferMapAsyncStatusSuccess {
		return nil, fmt.Errorf("map staging buffer: status %v", status)
	}
	defer staging.Unmap()

	mapped := staging.GetMappedRange(0, uint(size))
	out := make([]byte, len(mapped))
	copy(out, mapped)
	return out, nil
}

// CreateTexture creates a GPU texture with a default 2D view.
func (d *Device) CreateTexture(desc *gpu.TextureDescriptor) (gpu.TextureID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.check(); err != nil {
		return gpu.InvalidID, err
	}
	if desc.Width == 0 || desc.Height == 0 {
		return gpu.InvalidID, fmt.Errorf("texture %q: dimensions must be positive", desc.Label)
	}

	tex, err := d.dev.CreateTexture(&wgpu.TextureDescriptor{
		Label: desc.Label,
		Size: wgpu.Extent3D{
			Width:              desc.Width,
			Height:             desc.Height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        toTextureFormat(desc.Format),
		Usage:         toTextureUsage(desc.Usage),
	})
	if err != nil {
		return gpu.InvalidID, fmt.Errorf("create texture %q: %w", desc.Label, err)
	}

	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return gpu.InvalidID, fmt.Errorf("create texture view %q: %w", desc.Label, err)
	}

	id := gpu.TextureID(d.newID())
	d.textures[id] = &texture{tex: tex, view: view}
	return id, nil
}

// DestroyTexture destroys a texture. Destroying InvalidID is a no-op.
func (d *Device) DestroyTexture(id gpu.TextureID) {
	d.mu.Lock()
	tex, ok := d.textures[id]
	if ok {
		delete(d.textures, id)
	}
	d.mu.Unlock()

	if ok {
		tex.view.Release()
		tex.tex.Release()
	}
}

// adoptSurfaceTexture registers a swapchain texture under a fresh ID so
// render passes can target it like any other texture. The surface owns
// the release after Present.
func (d *Device) adoptSurfaceTexture(tex *wgpu.Texture, view *wgpu.TextureView) gpu.TextureID {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := gpu.TextureID(d.newID())
	d.textures[id] = &texture{tex: tex, view: view}
	return id
}

// CreateShaderModule compiles WGSL source into a shader module.
func (d *Device) CreateShaderModule(desc *gpu.ShaderModuleDescriptor) (gpu.ShaderModuleID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.check(); err != nil {
		return gpu.InvalidID, err
	}
	if desc.WGSL == "" {
		return gpu.InvalidID, fmt.Errorf("shader module %q: empty source", desc.Label)
	}

	module, err := d.dev.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          desc.Label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: desc.WGSL},
	})
	if err != nil {
		return gpu.InvalidID, fmt.Errorf("create shader module %q: %w", desc.Label, err)
	}

	id := gpu.ShaderModuleID(d.newID())
	d.shaderModules[id] = module
	return id, nil
}

// DestroyShaderModule destroys a shader module.
func (d *Device) DestroyShaderModule(id gpu.ShaderModuleID) {
	d.mu.Lock()
	module, ok := d.shaderModules[id]
	if ok {
		delete(d.shaderModules, id)
	}
	d.mu.Unlock()

	if ok {
		module.Release()
	}
}

// CreateBindGroupLayout creates a bind group layout.
func (d *Device) CreateBindGroupLayout(desc *gpu.BindGroupLayoutDescriptor) (gpu.BindGroupLayoutID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.check(); err != nil {
		return gpu.InvalidID, err
	}

	entries := make([]wgpu.BindGroupLayoutEntry, len(desc.Entries))
	for i, entry := range desc.Entries {
		entries[i] = toLayoutEntry(entry)
	}

	layout, err := d.dev.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   desc.Label,
		Entries: entries,
	})
	if err != nil {
		return gpu.InvalidID, fmt.Errorf("create bind group layout %q: %w", desc.Label, err)
	}

	id := gpu.BindGroupLayoutID(d.newID())
	d.bindGroupLayouts[id] = layout
	return id, nil
}

// DestroyBindGroupLayout destroys a bind group layout.
func (d *Device) DestroyBindGroupLayout(id gpu.BindGroupLayoutID) {
	d.mu.Lock()
	layout, ok := d.bindGroupLayouts[id]
	if ok {
		delete(d.bindGroupLayouts, id)
	}
	d.mu.Unlock()

	if ok {
		layout.Release()
	}
}

// CreatePipelineLayout creates a pipeline layout from bind group layouts.
func (d *Device) CreatePipelineLayout(label string, layouts []gpu.BindGroupLayoutID) (gpu.PipelineLayoutID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.check(); err != nil {
		return gpu.InvalidID, err
	}

	wgpuLayouts := make([]*wgpu.BindGroupLayout, len(layouts))
	for i, lid := range layouts {
		layout, ok := d.bindGroupLayouts[lid]
		if !ok {
			return gpu.InvalidID, fmt.Errorf("%w: bind group layout %d", gpu.ErrInvalidResource, lid)
		}
		wgpuLayouts[i] = layout
	}

	layout, err := d.dev.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            label,
		BindGroupLayouts: wgpuLayouts,
	})
	if err != nil {
		return gpu.InvalidID, fmt.Errorf("create pipeline layout %q: %w", label, err)
	}

	id := gpu.PipelineLayoutID(d.newID())
	d.pipelineLayouts[id] = layout
	return id, nil
}

// DestroyPipelineLayout destroys a pipeline layout.
func (d *Device) DestroyPipelineLayout(id gpu.PipelineLayoutID) {
	d.mu.Lock()
	layout, ok := d.pipelineLayouts[id]
	if ok {
		delete(d.pipelineLayouts, id)
	}
	d.mu.Unlock()

	if ok {
		layout.Release()
	}
}

// CreateBindGroup creates a bind group.
func (d *Device) CreateBindGroup(desc *gpu.BindGroupDescriptor) (gpu.BindGroupID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.check(); err != nil {
		return gpu.InvalidID, err
	}
	layout, ok := d.bindGroupLayouts[desc.Layout]
	if !ok {
		return gpu.InvalidID, fmt.Errorf("%w: bind group layout %d", gpu.ErrInvalidResource, desc.Layout)
	}

	entries := make([]wgpu.BindGroupEntry, len(desc.Entries))
	for i, entry := range desc.Entries {
		buf, ok := d.buffers[entry.Buffer]
		if !ok {
			return gpu.InvalidID, fmt.Errorf("%w: buffer %d in binding %d", gpu.ErrInvalidResource, entry.Buffer, entry.Binding)
		}
		size := entry.Size
		if size == 0 {
			size = wgpu.WholeSize
		}
		entries[i] = wgpu.BindGroupEntry{
			Binding: entry.Binding,
			Buffer:  buf,
			Offset:  entry.Offset,
			Size:    size,
		}
	}

	group, err := d.dev.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   desc.Label,
		Layout:  layout,
		Entries: entries,
	})
	if err != nil {
		return gpu.InvalidID, fmt.Errorf("create bind group %q: %w", desc.Label, err)
	}

	id := gpu.BindGroupID(d.newID())
	d.bindGroups[id] = group
	return id, nil
}

// DestroyBindGroup destroys a bind group.
func (d *Device) DestroyBindGroup(id gpu.BindGroupID) {
	d.mu.Lock()
	group, ok := d.bindGroups[id]
	if ok {
		delete(d.bindGroups, id)
	}
	d.mu.Unlock()

	if ok {
		group.Release()
	}
}

// CreateComputePipeline creates a compute pipeline.
func (d *Device) CreateComputePipeline(desc *gpu.ComputePipelineDescriptor) (gpu.ComputePipelineID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.check(); err != nil {
		return gpu.InvalidID, err
	}
	layout, ok := d.pipelineLayouts[desc.Layout]
	if !ok {
		return gpu.InvalidID, fmt.Errorf("%w: pipeline layout %d", gpu.ErrInvalidResource, desc.Layout)
	}
	module, ok := d.shaderModules[desc.Module]
	if !ok {
		return gpu.InvalidID, fmt.Errorf("%w: shader module %d", gpu.ErrInvalidResource, desc.Module)
	}

	pipeline, err := d.dev.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  desc.Label,
		Layout: layout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     module,
			EntryPoint: desc.EntryPoint,
		},
	})
	if err != nil {
		return gpu.InvalidID, fmt.Errorf("create compute pipeline %q: %w", desc.Label, err)
	}

	id := gpu.ComputePipelineID(d.newID())
	d.computePipelines[id] = pipeline
	return id, nil
}

// DestroyComputePipeline destroys a compute pipeline.
func (d *Device) DestroyComputePipeline(id gpu.ComputePipelineID) {
	d.mu.Lock()
	pipeline, ok := d.computePipelines[id]
	if ok {
		delete(d.computePipelines, id)
	}
	d.mu.Unlock()

	if ok {
		pipeline.Release()
	}
}

// CreateRenderPipeline creates a render pipeline.
func (d *Device) CreateRenderPipeline(desc *gpu.RenderPipelineDescriptor) (gpu.RenderPipelineID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.check(); err != nil {
		return gpu.InvalidID, err
	}
	layout, ok := d.pipelineLayouts[desc.Layout]
	if !ok {
		return gpu.InvalidID, fmt.Errorf("%w: pipeline layout %d", gpu.ErrInvalidResource, desc.Layout)
	}
	vertex, ok := d.shaderModules[desc.VertexModule]
	if !ok {
		return gpu.InvalidID, fmt.Errorf("%w: vertex module %d", gpu.ErrInvalidResource, desc.VertexModule)
	}
	fragment, ok := d.shaderModules[desc.FragmentModule]
	if !ok {
		return gpu.InvalidID, fmt.Errorf("%w: fragment module %d", gpu.ErrInvalidResource, desc.FragmentModule)
	}

	wdesc := &wgpu.RenderPipelineDescriptor{
		Label:  desc.Label,
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     vertex,
			EntryPoint: desc.VertexEntryPoint,
		},
		Fragment: &wgpu.FragmentState{
			Module:     fragment,
			EntryPoint: desc.FragmentEntryPoint,
			Targets: []wgpu.ColorTargetState{{
				Format:    toTextureFormat(desc.ColorFormat),
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	}

	if desc.DepthFormat.IsDepth() {
		stencil := wgpu.StencilFaceState{
			Compare:     wgpu.CompareFunctionAlways,
			FailOp:      wgpu.StencilOperationKeep,
			DepthFailOp: wgpu.StencilOperationKeep,
			PassOp:      wgpu.StencilOperationKeep,
		}
		wdesc.DepthStencil = &wgpu.DepthStencilState{
			Format:            toTextureFormat(desc.DepthFormat),
			DepthWriteEnabled: true,
			DepthCompare:      wgpu.CompareFunctionLess,
			StencilFront:      stencil,
			StencilBack:       stencil,
			StencilReadMask:   0xFFFFFFFF,
			StencilWriteMask:  0xFFFFFFFF,
		}
	}

	pipeline, err := d.dev.CreateRenderPipeline(wdesc)
	if err != nil {
		return gpu.InvalidID, fmt.Errorf("create render pipeline %q: %w", desc.Label, err)
	}

	id := gpu.RenderPipelineID(d.newID())
	d.renderPipelines[id] = pipeline
	return id, nil
}

// DestroyRenderPipeline destroys a render pipeline.
func (d *Device) DestroyRenderPipeline(id gpu.RenderPipelineID) {
	d.mu.Lock()
	pipeline, ok := d.renderPipelines[id]
	if ok {
		delete(d.renderPipelines, id)
	}
	d.mu.Unlock()

	if ok {
		pipeline.Release()
	}
}

// ensureEncoder creates the shared command encoder on first use.
// Callers must hold mu.
func (d *Device) ensureEncoder() (*wgpu.CommandEncoder, error) {
	if d.encoder != nil {
		return d.encoder, nil
	}
	encoder, err := d.dev.CreateCommandEncoder(nil)
	if err != nil {
		return nil, fmt.Errorf("create command encoder: %w", err)
	}
	d.encoder = encoder
	return encoder, nil
}

// BeginComputePass begins recording a compute pass.
func (d *Device) BeginComputePass(label string) (gpu.ComputePass, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.check(); err != nil {
		return nil, err
	}
	encoder, err := d.ensureEncoder()
	if err != nil {
		return nil, err
	}

	pass := encoder.BeginComputePass(&wgpu.ComputePassDescriptor{Label: label})
	return &computePass{dev: d, pass: pass}, nil
}

// BeginRenderPass begins recording a render pass targeting the
// attachments in desc.
func (d *Device) BeginRenderPass(desc *gpu.RenderPassDescriptor) (gpu.RenderPass, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.check(); err != nil {
		return nil, err
	}
	color, ok := d.textures[desc.ColorTarget]
	if !ok {
		return nil, fmt.Errorf("%w: color target %d", gpu.ErrInvalidResource, desc.ColorTarget)
	}

	wdesc := &wgpu.RenderPassDescriptor{
		Label: desc.Label,
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:    color.view,
			LoadOp:  toLoadOp(desc.Load),
			StoreOp: wgpu.StoreOpStore,
			ClearValue: wgpu.Color{
				R: desc.ClearColor.R,
				G: desc.ClearColor.G,
				B: desc.ClearColor.B,
				A: desc.ClearColor.A,
			},
		}},
	}

	if desc.DepthTarget != gpu.InvalidID {
		depth, ok := d.textures[desc.DepthTarget]
		if !ok {
			return nil, fmt.Errorf("%w: depth target %d", gpu.ErrInvalidResource, desc.DepthTarget)
		}
		wdesc.DepthStencilAttachment = &wgpu.RenderPassDepthStencilAttachment{
			View:            depth.view,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: 1.0,
		}
	}

	encoder, err := d.ensureEncoder()
	if err != nil {
		return nil, err
	}

	pass := encoder.BeginRenderPass(wdesc)
	return &renderPass{dev: d, pass: pass}, nil
}

// Submit flushes all recorded passes to the GPU queue.
func (d *Device) Submit() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.check(); err != nil {
		return err
	}
	if d.encoder == nil {
		return nil
	}

	cmd, err := d.encoder.Finish(nil)
	d.encoder.Release()
	d.encoder = nil
	if err != nil {
		return fmt.Errorf("finish command encoder: %w", err)
	}

	d.queue.Submit(cmd)
	cmd.Release()
	return nil
}

// WaitIdle blocks until all submitted work completes.
func (d *Device) WaitIdle() error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if err := d.check(); err != nil {
		return err
	}
	d.dev.Poll(true, nil)
	return nil
}

// SetDeviceLostHandler installs a callback invoked once if the device
// is lost.
func (d *Device) SetDeviceLostHandler(fn func(reason string)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onLost = fn
}

// markLost flags the device as lost and fires the handler once. The
// surface calls this when frame acquisition fails fatally.
func (d *Device) markLost(reason string) {
	d.mu.Lock()
	if d.lostOnce || d.closed {
		d.mu.Unlock()
		return
	}
	d.lostOnce = true
	fn := d.onLost
	d.mu.Unlock()

	if fn != nil {
		fn(reason)
	}
}

// Close destroys all remaining resources and releases the device.
// Close is idempotent.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true

	if d.encoder != nil {
		d.encoder.Release()
		d.encoder = nil
	}

	// Dependents before dependencies.
	for id, p := range d.computePipelines {
		p.Release()
		delete(d.computePipelines, id)
	}
	for id, p := range d.renderPipelines {
		p.Release()
		delete(d.renderPipelines, id)
	}
	for id, g := range d.bindGroups {
		g.Release()
		delete(d.bindGroups, id)
	}
	for id, l := range d.pipelineLayouts {
		l.Release()
		delete(d.pipelineLayouts, id)
	}
	for id, l := range d.bindGroupLayouts {
		l.Release()
		delete(d.bindGroupLayouts, id)
	}
	for id, m := range d.shaderModules {
		m.Release()
		delete(d.shaderModules, id)
	}
	for id, t := range d.textures {
		t.view.Release()
		t.tex.Release()
		delete(d.textures, id)
	}
	for id, b := range d.buffers {
		b.Release()
		delete(d.buffers, id)
	}

	d.dev.Release()
	d.adapter.Release()
	return nil
}

type computePass struct {
	dev  *Device
	pass *wgpu.ComputePassEncoder
}

func (p *computePass) SetPipeline(id gpu.ComputePipelineID) {
	p.dev.mu.RLock()
	pipeline, ok := p.dev.computePipelines[id]
	p.dev.mu.RUnlock()

	if ok {
		p.pass.SetPipeline(pipeline)
	}
}

func (p *computePass) SetBindGroup(index uint32, id gpu.BindGroupID) {
	p.dev.mu.RLock()
	group, ok := p.dev.bindGroups[id]
	p.dev.mu.RUnlock()

	if ok {
		p.pass.SetBindGroup(index, group, nil)
	}
}

func (p *computePass) Dispatch(x, y, z uint32) {
	p.pass.DispatchWorkgroups(x, y, z)
}

func (p *computePass) End() {
	p.pass.End()
	p.pass.Release()
}

type renderPass struct {
	dev  *Device
	pass *wgpu.RenderPassEncoder
}

func (p *renderPass) SetPipeline(id gpu.RenderPipelineID) {
	p.dev.mu.RLock()
	pipeline, ok := p.dev.renderPipelines[id]
	p.dev.mu.RUnlock()

	if ok {
		p.pass.SetPipeline(pipeline)
	}
}

func (p *renderPass) SetBindGroup(index uint32, id gpu.BindGroupID) {
	p.dev.mu.RLock()
	group, ok := p.dev.bindGroups[id]
	p.dev.mu.RUnlock()

	if ok {
		p.pass.SetBindGroup(index, group, nil)
	}
}

func (p *renderPass) SetVertexBuffer(slot uint32, id gpu.BufferID) {
	p.dev.mu.RLock()
	buf, ok := p.dev.buffers[id]
	p.dev.mu.RUnlock()

	if ok {
		p.pass.SetVertexBuffer(slot, buf, 0, wgpu.WholeSize)
	}
}

func (p *renderPass) Draw(vertexCount, instanceCount uint32) {
	p.pass.Draw(vertexCount, instanceCount, 0, 0)
}

func (p *renderPass) End() {
	p.pass.End()
	p.pass.Release()
}

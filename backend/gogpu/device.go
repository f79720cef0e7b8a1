package gogpu

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
	types "github.com/gogpu/gputypes"

	"github.com/ZPredou/ZWebGpu/gpu"
)

// errRenderUnsupported is returned for render operations; the HAL path
// only exposes compute.
var errRenderUnsupported = errors.New("gogpu: render pipelines unsupported, compute only")

// errReadbackUnsupported is returned by ReadBuffer.
// TODO: implement a staging copy plus map once gogpu/wgpu HAL grows
// buffer mapping.
var errReadbackUnsupported = errors.New("gogpu: buffer readback unsupported, HAL lacks buffer mapping")

// waitTimeoutNs bounds fence waits on submit synchronization.
const waitTimeoutNs = 5_000_000_000

// Device implements gpu.Device on the gogpu/wgpu HAL. Resource IDs map
// to HAL objects; WGSL is lowered to SPIR-V before module creation.
//
// Device is safe for concurrent use.
type Device struct {
	mu       sync.RWMutex
	instance hal.Instance
	device   hal.Device
	queue    hal.Queue

	// ownsDevice is false when the device is shared from an embedding
	// application; Close must not destroy shared devices.
	ownsDevice bool

	nextID atomic.Uint64

	buffers          map[gpu.BufferID]hal.Buffer
	textures         map[gpu.TextureID]hal.Texture
	shaderModules    map[gpu.ShaderModuleID]hal.ShaderModule
	bindGroupLayouts map[gpu.BindGroupLayoutID]hal.BindGroupLayout
	pipelineLayouts  map[gpu.PipelineLayoutID]hal.PipelineLayout
	bindGroups       map[gpu.BindGroupID]hal.BindGroup
	computePipelines map[gpu.ComputePipelineID]hal.ComputePipeline

	encoder    hal.CommandEncoder
	hasEncoder bool

	onLost   func(reason string)
	lostOnce bool
	closed   bool
}

func newDevice(instance hal.Instance, device hal.Device, queue hal.Queue, ownsDevice bool) *Device {
	d := &Device{
		instance:         instance,
		device:           device,
		queue:            queue,
		ownsDevice:       ownsDevice,
		buffers:          make(map[gpu.BufferID]hal.Buffer),
		textures:         make(map[gpu.TextureID]hal.Texture),
		shaderModules:    make(map[gpu.ShaderModuleID]hal.ShaderModule),
		bindGroupLayouts: make(map[gpu.BindGroupLayoutID]hal.BindGroupLayout),
		pipelineLayouts:  make(map[gpu.PipelineLayoutID]hal.PipelineLayout),
		bindGroups:       make(map[gpu.BindGroupID]hal.BindGroup),
		computePipelines: make(map[gpu.ComputePipelineID]hal.ComputePipeline),
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

// compileWGSL lowers WGSL source to SPIR-V words. SPIR-V is
// little-endian 32-bit words.
func compileWGSL(source string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("compile shader: %w", err)
	}

	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return words, nil
}

func toBufferUsage(usage gpu.BufferUsage) types.BufferUsage {
	var out types.BufferUsage

	if usage&gpu.BufferUsageMapRead != 0 {
		out |= types.BufferUsageMapRead
	}
	if usage&gpu.BufferUsageMapWrite != 0 {
		out |= types.BufferUsageMapWrite
	}
	if usage&gpu.BufferUsageCopySrc != 0 {
		out |= types.BufferUsageCopySrc
	}
	if usage&gpu.BufferUsageCopyDst != 0 {
		out |= types.BufferUsageCopyDst
	}
	if usage&gpu.BufferUsageIndex != 0 {
		out |= types.BufferUsageIndex
	}
	if usage&gpu.BufferUsageVertex != 0 {
		out |= types.BufferUsageVertex
	}
	if usage&gpu.BufferUsageUniform != 0 {
		out |= types.BufferUsageUniform
	}
	if usage&gpu.BufferUsageStorage != 0 {
		out |= types.BufferUsageStorage
	}

	return out
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

	buffer, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: desc.Label,
		Size:  desc.Size,
		Usage: toBufferUsage(desc.Usage),
	})
	if err != nil {
		return gpu.InvalidID, fmt.Errorf("create buffer %q: %w", desc.Label, err)
	}

	id := gpu.BufferID(d.newID())
	d.buffers[id] = buffer
	return id, nil
}

// DestroyBuffer destroys a buffer. Destroying InvalidID is a no-op.
func (d *Device) DestroyBuffer(id gpu.BufferID) {
	d.mu.Lock()
	buffer, ok := d.buffers[id]
	if ok {
		delete(d.buffers, id)
	}
	d.mu.Unlock()

	if ok {
		d.device.DestroyBuffer(buffer)
	}
}

// WriteBuffer writes data to a buffer at the given byte offset.
func (d *Device) WriteBuffer(id gpu.BufferID, offset uint64, data []byte) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if err := d.check(); err != nil {
		return err
	}
	buffer, ok := d.buffers[id]
	if !ok {
		return fmt.Errorf("%w: buffer %d", gpu.ErrInvalidResource, id)
	}
	if len(data) == 0 {
		return nil
	}
	d.queue.WriteBuffer(buffer, offset, data)
	return nil
}

// ReadBuffer fails with errReadbackUnsupported. The HAL exposes no
// way to map staging memory, so a copy-to-staging would complete with
// contents that cannot be fetched; failing outright lets callers tell
// "unreadable" from a buffer that is genuinely all zeroes.
func (d *Device) ReadBuffer(id gpu.BufferID, offset, size uint64) ([]byte, error) {
	d.mu.RLock()
	_, ok := d.buffers[id]
	d.mu.RUnlock()

	if err := d.check(); err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: buffer %d", gpu.ErrInvalidResource, id)
	}
	return nil, fmt.Errorf("buffer %d: %w", id, errReadbackUnsupported)
}

// CreateTexture creates a GPU texture. Depth formats are not supported
// on this backend.
func (d *Device) CreateTexture(desc *gpu.TextureDescriptor) (gpu.TextureID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.check(); err != nil {
		return gpu.InvalidID, err
	}
	if desc.Width == 0 || desc.Height == 0 {
		return gpu.InvalidID, fmt.Errorf("texture %q: dimensions must be positive", desc.Label)
	}
	if desc.Format.IsDepth() {
		return gpu.InvalidID, fmt.Errorf("texture %q: depth formats unsupported on the pure-Go backend", desc.Label)
	}

	texture, err := d.device.CreateTexture(&hal.TextureDescriptor{
		Label: desc.Label,
		Size: hal.Extent3D{
			Width:              desc.Width,
			Height:             desc.Height,
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     types.TextureDimension2D,
		Format:        toTextureFormat(desc.Format),
		Usage:         types.TextureUsageCopySrc | types.TextureUsageCopyDst | types.TextureUsageStorageBinding,
	})
	if err != nil {
		return gpu.InvalidID, fmt.Errorf("create texture %q: %w", desc.Label, err)
	}

	id := gpu.TextureID(d.newID())
	d.textures[id] = texture
	return id, nil
}

func toTextureFormat(format gpu.TextureFormat) types.TextureFormat {
	switch format {
	case gpu.TextureFormatBGRA8Unorm:
		return types.TextureFormatBGRA8Unorm
	case gpu.TextureFormatRGBA8UnormSRGB:
		return types.TextureFormatRGBA8UnormSrgb
	default:
		return types.TextureFormatRGBA8Unorm
	}
}

// DestroyTexture destroys a texture. Destroying InvalidID is a no-op.
func (d *Device) DestroyTexture(id gpu.TextureID) {
	d.mu.Lock()
	texture, ok := d.textures[id]
	if ok {
		delete(d.textures, id)
	}
	d.mu.Unlock()

	if ok {
		d.device.DestroyTexture(texture)
	}
}

// CreateShaderModule compiles WGSL to SPIR-V and creates a module.
func (d *Device) CreateShaderModule(desc *gpu.ShaderModuleDescriptor) (gpu.ShaderModuleID, error) {
	if desc.WGSL == "" {
		return gpu.InvalidID, fmt.Errorf("shader module %q: empty source", desc.Label)
	}

	spirv, err := compileWGSL(desc.WGSL)
	if err != nil {
		return gpu.InvalidID, fmt.Errorf("shader module %q: %w", desc.Label, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.check(); err != nil {
		return gpu.InvalidID, err
	}

	module, err := d.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label: desc.Label,
		Source: hal.ShaderSource{
			SPIRV: spirv,
		},
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
		d.device.DestroyShaderModule(module)
	}
}

func toLayoutEntry(entry gpu.BindGroupLayoutEntry) types.BindGroupLayoutEntry {
	out := types.BindGroupLayoutEntry{
		Binding:    entry.Binding,
		Visibility: types.ShaderStageCompute,
	}

	switch entry.Type {
	case gpu.BindingTypeUniformBuffer:
		out.Buffer = &types.BufferBindingLayout{
			Type:           types.BufferBindingTypeUniform,
			MinBindingSize: entry.MinBindingSize,
		}
	case gpu.BindingTypeStorageBuffer:
		out.Buffer = &types.BufferBindingLayout{
			Type:           types.BufferBindingTypeStorage,
			MinBindingSize: entry.MinBindingSize,
		}
	case gpu.BindingTypeReadOnlyStorageBuffer:
		out.Buffer = &types.BufferBindingLayout{
			Type:           types.BufferBindingTypeReadOnlyStorage,
			MinBindingSize: entry.MinBindingSize,
		}
	}

	return out
}

// CreateBindGroupLayout creates a bind group layout.
func (d *Device) CreateBindGroupLayout(desc *gpu.BindGroupLayoutDescriptor) (gpu.BindGroupLayoutID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.check(); err != nil {
		return gpu.InvalidID, err
	}

	entries := make([]types.BindGroupLayoutEntry, len(desc.Entries))
	for i, entry := range desc.Entries {
		entries[i] = toLayoutEntry(entry)
	}

	layout, err := d.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
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
		d.device.DestroyBindGroupLayout(layout)
	}
}

// CreatePipelineLayout creates a pipeline layout from bind group layouts.
func (d *Device) CreatePipelineLayout(label string, layouts []gpu.BindGroupLayoutID) (gpu.PipelineLayoutID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.check(); err != nil {
		return gpu.InvalidID, err
	}

	halLayouts := make([]hal.BindGroupLayout, len(layouts))
	for i, lid := range layouts {
		layout, ok := d.bindGroupLayouts[lid]
		if !ok {
			return gpu.InvalidID, fmt.Errorf("%w: bind group layout %d", gpu.ErrInvalidResource, lid)
		}
		halLayouts[i] = layout
	}

	layout, err := d.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            label,
		BindGroupLayouts: halLayouts,
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
		d.device.DestroyPipelineLayout(layout)
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

	entries := make([]types.BindGroupEntry, len(desc.Entries))
	for i, entry := range desc.Entries {
		if _, ok := d.buffers[entry.Buffer]; !ok {
			return gpu.InvalidID, fmt.Errorf("%w: buffer %d in binding %d", gpu.ErrInvalidResource, entry.Buffer, entry.Binding)
		}
		entries[i] = types.BindGroupEntry{
			Binding: entry.Binding,
			Resource: types.BufferBinding{
				Buffer: uintptr(entry.Buffer),
				Offset: entry.Offset,
				Size:   entry.Size,
			},
		}
	}

	group, err := d.device.CreateBindGroup(&hal.BindGroupDescriptor{
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
		d.device.DestroyBindGroup(group)
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

	pipeline, err := d.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:  desc.Label,
		Layout: layout,
		Compute: hal.ComputeState{
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
		d.device.DestroyComputePipeline(pipeline)
	}
}

// CreateRenderPipeline returns an error; the HAL path is compute only.
func (d *Device) CreateRenderPipeline(desc *gpu.RenderPipelineDescriptor) (gpu.RenderPipelineID, error) {
	return gpu.InvalidID, fmt.Errorf("render pipeline %q: %w", desc.Label, errRenderUnsupported)
}

// DestroyRenderPipeline is a no-op; render pipelines cannot be created.
func (d *Device) DestroyRenderPipeline(id gpu.RenderPipelineID) {}

// BeginComputePass begins recording a compute pass.
func (d *Device) BeginComputePass(label string) (gpu.ComputePass, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.check(); err != nil {
		return nil, err
	}

	if !d.hasEncoder {
		encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{
			Label: "frame-encoder",
		})
		if err != nil {
			return nil, fmt.Errorf("create command encoder: %w", err)
		}
		if err := encoder.BeginEncoding(label); err != nil {
			return nil, fmt.Errorf("begin encoding: %w", err)
		}
		d.encoder = encoder
		d.hasEncoder = true
	}

	pass := d.encoder.BeginComputePass(&hal.ComputePassDescriptor{
		Label: label,
	})
	return &computePass{dev: d, pass: pass}, nil
}

// BeginRenderPass returns an error; the HAL path is compute only.
func (d *Device) BeginRenderPass(desc *gpu.RenderPassDescriptor) (gpu.RenderPass, error) {
	return nil, fmt.Errorf("render pass %q: %w", desc.Label, errRenderUnsupported)
}

// Submit submits recorded passes to the GPU queue.
func (d *Device) Submit() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.check(); err != nil {
		return err
	}
	if !d.hasEncoder || d.encoder == nil {
		return nil
	}

	cmdBuffer, err := d.encoder.EndEncoding()
	d.encoder = nil
	d.hasEncoder = false
	if err != nil {
		return fmt.Errorf("end encoding: %w", err)
	}
	defer cmdBuffer.Destroy()

	if err := d.queue.Submit([]hal.CommandBuffer{cmdBuffer}, nil, 0); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	return nil
}

// WaitIdle submits pending work and blocks on a fence until the GPU
// drains.
func (d *Device) WaitIdle() error {
	if err := d.Submit(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.check(); err != nil {
		return err
	}

	fence, err := d.device.CreateFence()
	if err != nil {
		return fmt.Errorf("create fence: %w", err)
	}
	defer d.device.DestroyFence(fence)

	if err := d.queue.Submit(nil, fence, 1); err != nil {
		return fmt.Errorf("submit fence: %w", err)
	}
	if _, err := d.device.Wait(fence, 1, waitTimeoutNs); err != nil {
		return fmt.Errorf("wait idle: %w", err)
	}
	return nil
}

// SetDeviceLostHandler installs a callback invoked once if the device
// is lost.
func (d *Device) SetDeviceLostHandler(fn func(reason string)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onLost = fn
}

// Close destroys all remaining resources and the device, unless the
// device is shared. Close is idempotent.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true

	if d.hasEncoder && d.encoder != nil {
		if cmdBuffer, err := d.encoder.EndEncoding(); err == nil {
			cmdBuffer.Destroy()
		}
		d.encoder = nil
		d.hasEncoder = false
	}

	// Dependents before dependencies.
	for id, p := range d.computePipelines {
		d.device.DestroyComputePipeline(p)
		delete(d.computePipelines, id)
	}
	for id, g := range d.bindGroups {
		d.device.DestroyBindGroup(g)
		delete(d.bindGroups, id)
	}
	for id, l := range d.pipelineLayouts {
		d.device.DestroyPipelineLayout(l)
		delete(d.pipelineLayouts, id)
	}
	for id, l := range d.bindGroupLayouts {
		d.device.DestroyBindGroupLayout(l)
		delete(d.bindGroupLayouts, id)
	}
	for id, m := range d.shaderModules {
		d.device.DestroyShaderModule(m)
		delete(d.shaderModules, id)
	}
	for id, t := range d.textures {
		d.device.DestroyTexture(t)
		delete(d.textures, id)
	}
	for id, b := range d.buffers {
		d.device.DestroyBuffer(b)
		delete(d.buffers, id)
	}

	if d.ownsDevice {
		d.device.Destroy()
		if d.instance != nil {
			d.instance.Destroy()
		}
	}
	return nil
}

type computePass struct {
	dev  *Device
	pass hal.ComputePassEncoder
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
	p.pass.Dispatch(x, y, z)
}

func (p *computePass) End() {
	p.pass.End()
}

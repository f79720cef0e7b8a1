package pipeline

import (
	"sync"

	"github.com/ZPredou/ZWebGpu/gpu"
)

// Resources is the owned bundle of GPU objects for one build
// generation: shader modules, pipelines, bind groups, buffers. A
// rebuild replaces the bundle wholesale; nothing is mutated
// field-by-field. Destroy releases everything and is idempotent.
type Resources struct {
	dev gpu.Device

	mu        sync.Mutex
	destroyed bool

	buffers   []gpu.BufferID
	textures  []gpu.TextureID
	shaders   []gpu.ShaderModuleID
	bgLayouts []gpu.BindGroupLayoutID
	pLayouts  []gpu.PipelineLayoutID
	bindGrps  []gpu.BindGroupID
	cPipes    []gpu.ComputePipelineID
	rPipes    []gpu.RenderPipelineID
}

// NewResources creates an empty bundle owned by dev.
func NewResources(dev gpu.Device) *Resources {
	return &Resources{dev: dev}
}

// Buffer creates a buffer and tracks it for Destroy.
func (r *Resources) Buffer(desc *gpu.BufferDescriptor) (gpu.BufferID, error) {
	id, err := r.dev.CreateBuffer(desc)
	if err != nil {
		return gpu.InvalidID, err
	}
	r.mu.Lock()
	r.buffers = append(r.buffers, id)
	r.mu.Unlock()
	return id, nil
}

// Texture creates a texture and tracks it.
func (r *Resources) Texture(desc *gpu.TextureDescriptor) (gpu.TextureID, error) {
	id, err := r.dev.CreateTexture(desc)
	if err != nil {
		return gpu.InvalidID, err
	}
	r.mu.Lock()
	r.textures = append(r.textures, id)
	r.mu.Unlock()
	return id, nil
}

// ShaderModule compiles WGSL and tracks the module.
func (r *Resources) ShaderModule(desc *gpu.ShaderModuleDescriptor) (gpu.ShaderModuleID, error) {
	id, err := r.dev.CreateShaderModule(desc)
	if err != nil {
		return gpu.InvalidID, err
	}
	r.mu.Lock()
	r.shaders = append(r.shaders, id)
	r.mu.Unlock()
	return id, nil
}

// BindGroupLayout creates a layout and tracks it.
func (r *Resources) BindGroupLayout(desc *gpu.BindGroupLayoutDescriptor) (gpu.BindGroupLayoutID, error) {
	id, err := r.dev.CreateBindGroupLayout(desc)
	if err != nil {
		return gpu.InvalidID, err
	}
	r.mu.Lock()
	r.bgLayouts = append(r.bgLayouts, id)
	r.mu.Unlock()
	return id, nil
}

// PipelineLayout creates a pipeline layout and tracks it.
func (r *Resources) PipelineLayout(label string, layouts []gpu.BindGroupLayoutID) (gpu.PipelineLayoutID, error) {
	id, err := r.dev.CreatePipelineLayout(label, layouts)
	if err != nil {
		return gpu.InvalidID, err
	}
	r.mu.Lock()
	r.pLayouts = append(r.pLayouts, id)
	r.mu.Unlock()
	return id, nil
}

// BindGroup creates a bind group and tracks it.
func (r *Resources) BindGroup(desc *gpu.BindGroupDescriptor) (gpu.BindGroupID, error) {
	id, err := r.dev.CreateBindGroup(desc)
	if err != nil {
		return gpu.InvalidID, err
	}
	r.mu.Lock()
	r.bindGrps = append(r.bindGrps, id)
	r.mu.Unlock()
	return id, nil
}

// ComputePipeline creates a compute pipeline and tracks it.
func (r *Resources) ComputePipeline(desc *gpu.ComputePipelineDescriptor) (gpu.ComputePipelineID, error) {
	id, err := r.dev.CreateComputePipeline(desc)
	if err != nil {
		return gpu.InvalidID, err
	}
	r.mu.Lock()
	r.cPipes = append(r.cPipes, id)
	r.mu.Unlock()
	return id, nil
}

// RenderPipeline creates a render pipeline and tracks it.
func (r *Resources) RenderPipeline(desc *gpu.RenderPipelineDescriptor) (gpu.RenderPipelineID, error) {
	id, err := r.dev.CreateRenderPipeline(desc)
	if err != nil {
		return gpu.InvalidID, err
	}
	r.mu.Lock()
	r.rPipes = append(r.rPipes, id)
	r.mu.Unlock()
	return id, nil
}

// BufferCount returns the number of tracked buffers.
func (r *Resources) BufferCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buffers)
}

// Destroy releases every tracked object, dependents first: pipelines,
// bind groups, layouts, shader modules, then textures and buffers.
// Idempotent; a second Destroy is a no-op.
func (r *Resources) Destroy() {
	r.mu.Lock()
	if r.destroyed {
		r.mu.Unlock()
		return
	}
	r.destroyed = true
	cPipes := r.cPipes
	rPipes := r.rPipes
	bindGrps := r.bindGrps
	pLayouts := r.pLayouts
	bgLayouts := r.bgLayouts
	shaders := r.shaders
	textures := r.textures
	buffers := r.buffers
	r.cPipes, r.rPipes, r.bindGrps = nil, nil, nil
	r.pLayouts, r.bgLayouts, r.shaders = nil, nil, nil
	r.textures, r.buffers = nil, nil
	r.mu.Unlock()

	for _, id := range cPipes {
		r.dev.DestroyComputePipeline(id)
	}
	for _, id := range rPipes {
		r.dev.DestroyRenderPipeline(id)
	}
	for _, id := range bindGrps {
		r.dev.DestroyBindGroup(id)
	}
	for _, id := range pLayouts {
		r.dev.DestroyPipelineLayout(id)
	}
	for _, id := range bgLayouts {
		r.dev.DestroyBindGroupLayout(id)
	}
	for _, id := range shaders {
		r.dev.DestroyShaderModule(id)
	}
	for _, id := range textures {
		r.dev.DestroyTexture(id)
	}
	for _, id := range buffers {
		r.dev.DestroyBuffer(id)
	}
}

package gpu

// Device is the opaque GPU device abstraction. Backends map the
// resource IDs to their own API objects.
//
// Every Create method has a paired Destroy method. GPU memory is not
// garbage collected: resources created and never destroyed leak until
// Close. Implementations must be safe for concurrent use.
type Device interface {
	// CreateBuffer creates a GPU buffer.
	CreateBuffer(desc *BufferDescriptor) (BufferID, error)

	// DestroyBuffer destroys a buffer. Destroying InvalidID is a no-op.
	DestroyBuffer(id BufferID)

	// WriteBuffer writes data to a buffer at the given byte offset.
	WriteBuffer(id BufferID, offset uint64, data []byte) error

	// ReadBuffer reads the buffer contents back to the host. The
	// buffer must carry BufferUsageMapRead or BufferUsageCopySrc.
	// This blocks until the GPU has finished writing.
	ReadBuffer(id BufferID, offset uint64, size uint64) ([]byte, error)

	// CreateTexture creates a GPU texture.
	CreateTexture(desc *TextureDescriptor) (TextureID, error)

	// DestroyTexture destroys a texture. Destroying InvalidID is a no-op.
	DestroyTexture(id TextureID)

	// CreateShaderModule compiles WGSL source into a shader module.
	CreateShaderModule(desc *ShaderModuleDescriptor) (ShaderModuleID, error)

	// DestroyShaderModule destroys a shader module.
	DestroyShaderModule(id ShaderModuleID)

	// CreateBindGroupLayout creates a bind group layout.
	CreateBindGroupLayout(desc *BindGroupLayoutDescriptor) (BindGroupLayoutID, error)

	// DestroyBindGroupLayout destroys a bind group layout.
	DestroyBindGroupLayout(id BindGroupLayoutID)

	// CreatePipelineLayout creates a pipeline layout from bind group layouts.
	CreatePipelineLayout(label string, layouts []BindGroupLayoutID) (PipelineLayoutID, error)

	// DestroyPipelineLayout destroys a pipeline layout.
	DestroyPipelineLayout(id PipelineLayoutID)

	// CreateBindGroup creates a bind group.
	CreateBindGroup(desc *BindGroupDescriptor) (BindGroupID, error)

	// DestroyBindGroup destroys a bind group.
	DestroyBindGroup(id BindGroupID)

	// CreateComputePipeline creates a compute pipeline.
	CreateComputePipeline(desc *ComputePipelineDescriptor) (ComputePipelineID, error)

	// DestroyComputePipeline destroys a compute pipeline.
	DestroyComputePipeline(id ComputePipelineID)

	// CreateRenderPipeline creates a render pipeline.
	CreateRenderPipeline(desc *RenderPipelineDescriptor) (RenderPipelineID, error)

	// DestroyRenderPipeline destroys a render pipeline.
	DestroyRenderPipeline(id RenderPipelineID)

	// BeginComputePass begins recording a compute pass. The pass must
	// be ended before Submit.
	BeginComputePass(label string) (ComputePass, error)

	// BeginRenderPass begins recording a render pass targeting the
	// attachments in desc.
	BeginRenderPass(desc *RenderPassDescriptor) (RenderPass, error)

	// Submit submits all recorded work to the GPU queue.
	Submit() error

	// WaitIdle blocks until all submitted work completes.
	WaitIdle() error

	// SetDeviceLostHandler installs a callback invoked once if the
	// device is lost. The handler runs at most once per device.
	SetDeviceLostHandler(fn func(reason string))

	// Close destroys all remaining resources and releases the device.
	// Close is idempotent.
	Close() error
}

// ComputePass records compute commands. Methods must be called between
// the BeginComputePass that produced the pass and its End.
type ComputePass interface {
	// SetPipeline sets the active compute pipeline.
	SetPipeline(id ComputePipelineID)

	// SetBindGroup binds a bind group at the given index.
	SetBindGroup(index uint32, id BindGroupID)

	// Dispatch dispatches workgroups.
	Dispatch(x, y, z uint32)

	// End finishes the pass.
	End()
}

// RenderPass records render commands.
type RenderPass interface {
	// SetPipeline sets the active render pipeline.
	SetPipeline(id RenderPipelineID)

	// SetBindGroup binds a bind group at the given index.
	SetBindGroup(index uint32, id BindGroupID)

	// SetVertexBuffer binds a vertex buffer at the given slot.
	SetVertexBuffer(slot uint32, id BufferID)

	// Draw draws primitives.
	Draw(vertexCount, instanceCount uint32)

	// End finishes the pass.
	End()
}

// Surface is a presentable render target tied to a canvas. A surface
// is only valid while its owning device is open.
type Surface interface {
	// Configure sizes the surface swapchain to w×h device pixels.
	// Both dimensions must be at least 1.
	Configure(w, h uint32) error

	// PreferredFormat returns the surface's preferred color format.
	PreferredFormat() TextureFormat

	// AcquireFrame acquires the texture for the current frame. The
	// returned ID is valid until Present.
	AcquireFrame() (TextureID, error)

	// Present presents the current frame.
	Present()

	// Size returns the current configured size in device pixels.
	Size() (w, h uint32)
}

// Canvas abstracts the host drawing area a surface attaches to. In a
// windowed build this wraps the native window; headless builds supply
// a fixed-size stub.
type Canvas interface {
	// LayoutSize returns the layout size in CSS-style logical pixels.
	LayoutSize() (w, h float64)

	// DevicePixelRatio returns the ratio of device pixels to logical
	// pixels, at least 1.
	DevicePixelRatio() float64

	// SurfaceHandle returns the backend-specific native handle used
	// to create a surface, or nil for headless canvases.
	SurfaceHandle() any
}

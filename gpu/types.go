package gpu

// Resource IDs
//
// These opaque IDs represent GPU resources. Each backend implementation
// maintains a mapping between IDs and actual API objects. IDs are uint64
// to accommodate various backend handle sizes.

// BufferID is an opaque handle to a GPU buffer.
type BufferID uint64

// TextureID is an opaque handle to a GPU texture.
type TextureID uint64

// ShaderModuleID is an opaque handle to a compiled shader module.
type ShaderModuleID uint64

// ComputePipelineID is an opaque handle to a compute pipeline.
type ComputePipelineID uint64

// RenderPipelineID is an opaque handle to a render pipeline.
type RenderPipelineID uint64

// BindGroupLayoutID is an opaque handle to a bind group layout.
type BindGroupLayoutID uint64

// BindGroupID is an opaque handle to a bind group.
type BindGroupID uint64

// PipelineLayoutID is an opaque handle to a pipeline layout.
type PipelineLayoutID uint64

// InvalidID is the zero value, representing an invalid/null resource.
const InvalidID = 0

// PowerPreference selects an adapter tier during acquisition.
type PowerPreference uint32

// Adapter preference tiers, in the order acquisition tries them.
const (
	// PowerHighPerformance prefers a discrete GPU.
	PowerHighPerformance PowerPreference = iota

	// PowerDefault lets the backend pick any usable adapter.
	PowerDefault

	// PowerLowPower prefers an integrated or software adapter.
	PowerLowPower
)

// String returns a human-readable name for the preference tier.
func (p PowerPreference) String() string {
	switch p {
	case PowerHighPerformance:
		return "high-performance"
	case PowerLowPower:
		return "low-power"
	default:
		return "default"
	}
}

// BufferUsage is a bitmask specifying how a buffer will be used.
type BufferUsage uint32

// Buffer usage flags.
const (
	// BufferUsageMapRead indicates the buffer can be mapped for reading.
	BufferUsageMapRead BufferUsage = 1 << 0

	// BufferUsageMapWrite indicates the buffer can be mapped for writing.
	BufferUsageMapWrite BufferUsage = 1 << 1

	// BufferUsageCopySrc indicates the buffer can be used as a copy source.
	BufferUsageCopySrc BufferUsage = 1 << 2

	// BufferUsageCopyDst indicates the buffer can be used as a copy destination.
	BufferUsageCopyDst BufferUsage = 1 << 3

	// BufferUsageIndex indicates the buffer can be used as an index buffer.
	BufferUsageIndex BufferUsage = 1 << 4

	// BufferUsageVertex indicates the buffer can be used as a vertex buffer.
	BufferUsageVertex BufferUsage = 1 << 5

	// BufferUsageUniform indicates the buffer can be used as a uniform buffer.
	BufferUsageUniform BufferUsage = 1 << 6

	// BufferUsageStorage indicates the buffer can be used as a storage buffer.
	BufferUsageStorage BufferUsage = 1 << 7
)

// TextureFormat specifies the format of texture data.
type TextureFormat uint32

// Texture formats.
const (
	// TextureFormatRGBA8Unorm is 8-bit RGBA, normalized unsigned integer.
	TextureFormatRGBA8Unorm TextureFormat = iota + 1

	// TextureFormatBGRA8Unorm is 8-bit BGRA, normalized unsigned integer.
	TextureFormatBGRA8Unorm

	// TextureFormatRGBA8UnormSRGB is 8-bit RGBA in sRGB color space.
	TextureFormatRGBA8UnormSRGB

	// TextureFormatDepth24Plus is a 24-bit (or deeper) depth format.
	TextureFormatDepth24Plus

	// TextureFormatDepth32Float is a 32-bit float depth format.
	TextureFormatDepth32Float
)

// IsDepth reports whether the format is a depth attachment format.
func (f TextureFormat) IsDepth() bool {
	return f == TextureFormatDepth24Plus || f == TextureFormatDepth32Float
}

// TextureUsage is a bitmask specifying how a texture will be used.
type TextureUsage uint32

// Texture usage flags.
const (
	// TextureUsageCopySrc indicates the texture can be used as a copy source.
	TextureUsageCopySrc TextureUsage = 1 << 0

	// TextureUsageCopyDst indicates the texture can be used as a copy destination.
	TextureUsageCopyDst TextureUsage = 1 << 1

	// TextureUsageTextureBinding indicates the texture can be bound as a sampled texture.
	TextureUsageTextureBinding TextureUsage = 1 << 2

	// TextureUsageStorageBinding indicates the texture can be bound as a storage texture.
	TextureUsageStorageBinding TextureUsage = 1 << 3

	// TextureUsageRenderAttachment indicates the texture can be used as a render target.
	TextureUsageRenderAttachment TextureUsage = 1 << 4
)

// BindingType specifies the type of a shader binding.
type BindingType uint32

// Binding types.
const (
	// BindingTypeUniformBuffer is a uniform buffer binding.
	BindingTypeUniformBuffer BindingType = iota + 1

	// BindingTypeStorageBuffer is a storage buffer binding (read-write).
	BindingTypeStorageBuffer

	// BindingTypeReadOnlyStorageBuffer is a read-only storage buffer binding.
	BindingTypeReadOnlyStorageBuffer
)

// BufferDescriptor describes a GPU buffer.
type BufferDescriptor struct {
	// Label is an optional debug label.
	Label string

	// Size is the buffer size in bytes. Must be positive.
	Size uint64

	// Usage specifies how the buffer will be used.
	Usage BufferUsage
}

// TextureDescriptor describes a GPU texture.
type TextureDescriptor struct {
	// Label is an optional debug label.
	Label string

	// Width is the texture width in pixels.
	Width uint32

	// Height is the texture height in pixels.
	Height uint32

	// Format is the texture pixel format.
	Format TextureFormat

	// Usage specifies how the texture will be used.
	Usage TextureUsage
}

// ShaderModuleDescriptor describes a shader module compiled from WGSL
// source text. The host uploads the source as-is; parsing and
// validation happen inside the backend.
type ShaderModuleDescriptor struct {
	// Label is an optional debug label.
	Label string

	// WGSL is the shader source text.
	WGSL string
}

// BindGroupLayoutDescriptor describes a bind group layout.
type BindGroupLayoutDescriptor struct {
	// Label is an optional debug label.
	Label string

	// Entries defines the bindings in this layout.
	Entries []BindGroupLayoutEntry
}

// BindGroupLayoutEntry describes a single binding in a bind group layout.
type BindGroupLayoutEntry struct {
	// Binding is the binding index.
	Binding uint32

	// Type is the type of resource bound at this index.
	Type BindingType

	// MinBindingSize is the minimum buffer size for buffer bindings.
	// Set to 0 for no constraint.
	MinBindingSize uint64
}

// BindGroupDescriptor describes a bind group.
type BindGroupDescriptor struct {
	// Label is an optional debug label.
	Label string

	// Layout is the bind group layout.
	Layout BindGroupLayoutID

	// Entries are the resource bindings.
	Entries []BindGroupEntry
}

// BindGroupEntry describes a single binding in a bind group.
type BindGroupEntry struct {
	// Binding is the binding index.
	Binding uint32

	// Buffer is the buffer to bind.
	Buffer BufferID

	// Offset is the offset into the buffer.
	Offset uint64

	// Size is the size of the buffer range to bind.
	// Use 0 to bind the entire buffer from offset.
	Size uint64
}

// ComputePipelineDescriptor describes a compute pipeline.
type ComputePipelineDescriptor struct {
	// Label is an optional debug label.
	Label string

	// Layout is the pipeline layout.
	Layout PipelineLayoutID

	// Module contains the compute shader.
	Module ShaderModuleID

	// EntryPoint is the name of the shader entry point function.
	EntryPoint string
}

// RenderPipelineDescriptor describes a render pipeline.
type RenderPipelineDescriptor struct {
	// Label is an optional debug label.
	Label string

	// Layout is the pipeline layout.
	Layout PipelineLayoutID

	// VertexModule contains the vertex shader.
	VertexModule ShaderModuleID

	// VertexEntryPoint is the vertex entry point function name.
	VertexEntryPoint string

	// FragmentModule contains the fragment shader.
	// May equal VertexModule when both stages share one source.
	FragmentModule ShaderModuleID

	// FragmentEntryPoint is the fragment entry point function name.
	FragmentEntryPoint string

	// ColorFormat is the color attachment format, normally the
	// surface's preferred format.
	ColorFormat TextureFormat

	// DepthFormat is the depth attachment format, or zero for no
	// depth testing.
	DepthFormat TextureFormat
}

// Color is a double-precision RGBA clear color.
type Color struct {
	R, G, B, A float64
}

// LoadOp specifies how an attachment is initialized at pass begin.
type LoadOp uint32

// Load operations.
const (
	// LoadOpClear clears the attachment to the clear value.
	LoadOpClear LoadOp = iota

	// LoadOpLoad preserves the existing attachment contents.
	LoadOpLoad
)

// RenderPassDescriptor describes a render pass.
type RenderPassDescriptor struct {
	// Label is an optional debug label.
	Label string

	// ColorTarget is the color attachment, normally the texture
	// acquired from the surface for the current frame.
	ColorTarget TextureID

	// Load specifies how the color attachment is initialized.
	Load LoadOp

	// ClearColor is used when Load is LoadOpClear.
	ClearColor Color

	// DepthTarget is the depth attachment, or InvalidID for none.
	DepthTarget TextureID
}

package webgpu

import (
	"github.com/cogentcore/webgpu/wgpu"

	"github.com/ZPredou/ZWebGpu/gpu"
)

func toBufferUsage(usage gpu.BufferUsage) wgpu.BufferUsage {
	var out wgpu.BufferUsage

	if usage&gpu.BufferUsageMapRead != 0 {
		out |= wgpu.BufferUsageMapRead
	}
	if usage&gpu.BufferUsageMapWrite != 0 {
		out |= wgpu.BufferUsageMapWrite
	}
	if usage&gpu.BufferUsageCopySrc != 0 {
		out |= wgpu.BufferUsageCopySrc
	}
	if usage&gpu.BufferUsageCopyDst != 0 {
		out |= wgpu.BufferUsageCopyDst
	}
	if usage&gpu.BufferUsageIndex != 0 {
		out |= wgpu.BufferUsageIndex
	}
	if usage&gpu.BufferUsageVertex != 0 {
		out |= wgpu.BufferUsageVertex
	}
	if usage&gpu.BufferUsageUniform != 0 {
		out |= wgpu.BufferUsageUniform
	}
	if usage&gpu.BufferUsageStorage != 0 {
		out |= wgpu.BufferUsageStorage
	}

	return out
}

func toTextureUsage(usage gpu.TextureUsage) wgpu.TextureUsage {
	var out wgpu.TextureUsage

	if usage&gpu.TextureUsageCopySrc != 0 {
		out |= wgpu.TextureUsageCopySrc
	}
	if usage&gpu.TextureUsageCopyDst != 0 {
		out |= wgpu.TextureUsageCopyDst
	}
	if usage&gpu.TextureUsageTextureBinding != 0 {
		out |= wgpu.TextureUsageTextureBinding
	}
	if usage&gpu.TextureUsageStorageBinding != 0 {
		out |= wgpu.TextureUsageStorageBinding
	}
	if usage&gpu.TextureUsageRenderAttachment != 0 {
		out |= wgpu.TextureUsageRenderAttachment
	}

	return out
}

func toTextureFormat(format gpu.TextureFormat) wgpu.TextureFormat {
	switch format {
	case gpu.TextureFormatRGBA8Unorm:
		return wgpu.TextureFormatRGBA8Unorm
	case gpu.TextureFormatBGRA8Unorm:
		return wgpu.TextureFormatBGRA8Unorm
	case gpu.TextureFormatRGBA8UnormSRGB:
		return wgpu.TextureFormatRGBA8UnormSrgb
	case gpu.TextureFormatDepth24Plus:
		return wgpu.TextureFormatDepth24Plus
	case gpu.TextureFormatDepth32Float:
		return wgpu.TextureFormatDepth32Float
	default:
		return wgpu.TextureFormatRGBA8Unorm
	}
}

func fromTextureFormat(format wgpu.TextureFormat) gpu.TextureFormat {
	switch format {
	case wgpu.TextureFormatRGBA8Unorm:
		return gpu.TextureFormatRGBA8Unorm
	case wgpu.TextureFormatBGRA8Unorm:
		return gpu.TextureFormatBGRA8Unorm
	case wgpu.TextureFormatRGBA8UnormSrgb:
		return gpu.TextureFormatRGBA8UnormSRGB
	case wgpu.TextureFormatDepth24Plus:
		return gpu.TextureFormatDepth24Plus
	case wgpu.TextureFormatDepth32Float:
		return gpu.TextureFormatDepth32Float
	default:
		return gpu.TextureFormatBGRA8Unorm
	}
}

func toLoadOp(op gpu.LoadOp) wgpu.LoadOp {
	if op == gpu.LoadOpLoad {
		return wgpu.LoadOpLoad
	}
	return wgpu.LoadOpClear
}

// toLayoutEntry maps a binding to its WebGPU layout entry. Read-write
// storage buffers are not visible to the vertex stage; WebGPU
// validation rejects that combination.
func toLayoutEntry(entry gpu.BindGroupLayoutEntry) wgpu.BindGroupLayoutEntry {
	out := wgpu.BindGroupLayoutEntry{
		Binding: entry.Binding,
	}

	switch entry.Type {
	case gpu.BindingTypeUniformBuffer:
		out.Visibility = wgpu.ShaderStageCompute | wgpu.ShaderStageVertex | wgpu.ShaderStageFragment
		out.Buffer = wgpu.BufferBindingLayout{
			Type:           wgpu.BufferBindingTypeUniform,
			MinBindingSize: entry.MinBindingSize,
		}
	case gpu.BindingTypeStorageBuffer:
		out.Visibility = wgpu.ShaderStageCompute | wgpu.ShaderStageFragment
		out.Buffer = wgpu.BufferBindingLayout{
			Type:           wgpu.BufferBindingTypeStorage,
			MinBindingSize: entry.MinBindingSize,
		}
	case gpu.BindingTypeReadOnlyStorageBuffer:
		out.Visibility = wgpu.ShaderStageCompute | wgpu.ShaderStageVertex | wgpu.ShaderStageFragment
		out.Buffer = wgpu.BufferBindingLayout{
			Type:           wgpu.BufferBindingTypeReadOnlyStorage,
			MinBindingSize: entry.MinBindingSize,
		}
	}

	return out
}

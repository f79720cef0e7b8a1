package webgpu

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/ZPredou/ZWebGpu/backend"
	"github.com/ZPredou/ZWebGpu/gpu"
)

var (
	_ gpu.Device       = (*Device)(nil)
	_ gpu.Surface      = (*Surface)(nil)
	_ backend.Provider = (*Provider)(nil)
)

func TestToBufferUsage(t *testing.T) {
	tests := []struct {
		in   gpu.BufferUsage
		want wgpu.BufferUsage
	}{
		{gpu.BufferUsageStorage, wgpu.BufferUsageStorage},
		{gpu.BufferUsageUniform | gpu.BufferUsageCopyDst, wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst},
		{gpu.BufferUsageMapRead | gpu.BufferUsageCopySrc, wgpu.BufferUsageMapRead | wgpu.BufferUsageCopySrc},
		{gpu.BufferUsageVertex | gpu.BufferUsageIndex, wgpu.BufferUsageVertex | wgpu.BufferUsageIndex},
	}
	for _, tt := range tests {
		if got := toBufferUsage(tt.in); got != tt.want {
			t.Errorf("toBufferUsage(%#x) = %#x, want %#x", tt.in, got, tt.want)
		}
	}
}

func TestTextureFormatRoundTrip(t *testing.T) {
	formats := []gpu.TextureFormat{
		gpu.TextureFormatRGBA8Unorm,
		gpu.TextureFormatBGRA8Unorm,
		gpu.TextureFormatRGBA8UnormSRGB,
		gpu.TextureFormatDepth24Plus,
		gpu.TextureFormatDepth32Float,
	}
	for _, f := range formats {
		if got := fromTextureFormat(toTextureFormat(f)); got != f {
			t.Errorf("fromTextureFormat(toTextureFormat(%v)) = %v", f, got)
		}
	}
}

func TestLayoutEntryVisibility(t *testing.T) {
	entry := toLayoutEntry(gpu.BindGroupLayoutEntry{
		Binding: 0,
		Type:    gpu.BindingTypeStorageBuffer,
	})
	if entry.Visibility&wgpu.ShaderStageVertex != 0 {
		t.Error("read-write storage buffer must not be vertex visible")
	}
	if entry.Visibility&wgpu.ShaderStageCompute == 0 {
		t.Error("storage buffer should be compute visible")
	}
	if entry.Buffer.Type != wgpu.BufferBindingTypeStorage {
		t.Errorf("buffer binding type = %v, want storage", entry.Buffer.Type)
	}

	uniform := toLayoutEntry(gpu.BindGroupLayoutEntry{
		Binding:        1,
		Type:           gpu.BindingTypeUniformBuffer,
		MinBindingSize: 16,
	})
	if uniform.Visibility&wgpu.ShaderStageVertex == 0 {
		t.Error("uniform buffer should be vertex visible")
	}
	if uniform.Buffer.MinBindingSize != 16 {
		t.Errorf("MinBindingSize = %d, want 16", uniform.Buffer.MinBindingSize)
	}
}

func TestAdapterOptions(t *testing.T) {
	high := adapterOptions(gpu.PowerHighPerformance)
	if high.PowerPreference != wgpu.PowerPreferenceHighPerformance {
		t.Errorf("high tier preference = %v", high.PowerPreference)
	}
	if high.ForceFallbackAdapter {
		t.Error("high tier must not force the fallback adapter")
	}

	low := adapterOptions(gpu.PowerLowPower)
	if low.PowerPreference != wgpu.PowerPreferenceLowPower {
		t.Errorf("low tier preference = %v", low.PowerPreference)
	}
	if !low.ForceFallbackAdapter {
		t.Error("low tier should force the fallback adapter")
	}

	def := adapterOptions(gpu.PowerDefault)
	if def.PowerPreference != wgpu.PowerPreferenceUndefined {
		t.Errorf("default tier preference = %v, want undefined", def.PowerPreference)
	}
}

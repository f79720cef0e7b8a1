package gogpu

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	types "github.com/gogpu/gputypes"

	"github.com/ZPredou/ZWebGpu/backend"
	"github.com/ZPredou/ZWebGpu/gpu"
)

var (
	_ gpu.Device       = (*Device)(nil)
	_ backend.Provider = (*Provider)(nil)
)

func TestToBufferUsage(t *testing.T) {
	tests := []struct {
		in   gpu.BufferUsage
		want types.BufferUsage
	}{
		{gpu.BufferUsageStorage, types.BufferUsageStorage},
		{gpu.BufferUsageUniform | gpu.BufferUsageCopyDst, types.BufferUsageUniform | types.BufferUsageCopyDst},
		{gpu.BufferUsageMapRead | gpu.BufferUsageCopySrc, types.BufferUsageMapRead | types.BufferUsageCopySrc},
	}
	for _, tt := range tests {
		if got := toBufferUsage(tt.in); got != tt.want {
			t.Errorf("toBufferUsage(%#x) = %#x, want %#x", tt.in, got, tt.want)
		}
	}
}

func TestLayoutEntryComputeOnly(t *testing.T) {
	entry := toLayoutEntry(gpu.BindGroupLayoutEntry{
		Binding:        2,
		Type:           gpu.BindingTypeReadOnlyStorageBuffer,
		MinBindingSize: 64,
	})
	if entry.Visibility != types.ShaderStageCompute {
		t.Errorf("visibility = %v, want compute", entry.Visibility)
	}
	if entry.Buffer == nil || entry.Buffer.Type != types.BufferBindingTypeReadOnlyStorage {
		t.Errorf("buffer binding = %+v, want read-only storage", entry.Buffer)
	}
	if entry.Buffer.MinBindingSize != 64 {
		t.Errorf("MinBindingSize = %d, want 64", entry.Buffer.MinBindingSize)
	}
}

func TestPickAdapterTiers(t *testing.T) {
	adapters := make([]hal.ExposedAdapter, 2)
	adapters[0].Info.DeviceType = gputypes.DeviceTypeIntegratedGPU
	adapters[1].Info.DeviceType = gputypes.DeviceTypeDiscreteGPU

	if got := pickAdapter(adapters, gpu.PowerHighPerformance); got != &adapters[1] {
		t.Error("high tier did not pick the discrete adapter")
	}
	if got := pickAdapter(adapters, gpu.PowerLowPower); got != &adapters[0] {
		t.Error("low tier did not pick the integrated adapter")
	}
	if got := pickAdapter(adapters, gpu.PowerDefault); got != &adapters[1] {
		t.Error("default tier did not prefer the discrete adapter")
	}
}

func TestPickAdapterNoMatch(t *testing.T) {
	adapters := make([]hal.ExposedAdapter, 1)
	adapters[0].Info.DeviceType = gputypes.DeviceTypeIntegratedGPU

	if got := pickAdapter(adapters, gpu.PowerHighPerformance); got != nil {
		t.Errorf("high tier matched %v on integrated-only hardware", got.Info.DeviceType)
	}
	if pickAdapter(nil, gpu.PowerDefault) != nil {
		t.Error("default tier matched with no adapters")
	}
}

func TestReadBufferUnsupported(t *testing.T) {
	d := newDevice(nil, nil, nil, false)
	d.buffers[1] = nil

	// A live buffer reads back as an explicit error, never as zeroed
	// bytes a caller could mistake for contents.
	data, err := d.ReadBuffer(1, 0, 16)
	if !errors.Is(err, errReadbackUnsupported) {
		t.Errorf("ReadBuffer() error = %v, want errReadbackUnsupported", err)
	}
	if data != nil {
		t.Errorf("ReadBuffer() data = %v, want nil", data)
	}

	if _, err := d.ReadBuffer(99, 0, 16); !errors.Is(err, gpu.ErrInvalidResource) {
		t.Errorf("ReadBuffer(unknown) error = %v, want ErrInvalidResource", err)
	}
}

func TestRenderUnsupported(t *testing.T) {
	d := newDevice(nil, nil, nil, false)

	if _, err := d.CreateRenderPipeline(&gpu.RenderPipelineDescriptor{Label: "p"}); err == nil {
		t.Error("CreateRenderPipeline() did not fail")
	}
	if _, err := d.BeginRenderPass(&gpu.RenderPassDescriptor{Label: "p"}); err == nil {
		t.Error("BeginRenderPass() did not fail")
	}
}

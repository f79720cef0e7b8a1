package gogpu

import (
	"context"
	"fmt"
	"sync"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	_ "github.com/gogpu/wgpu/hal/vulkan"

	"github.com/ZPredou/ZWebGpu/backend"
	"github.com/ZPredou/ZWebGpu/gpu"
)

func init() {
	backend.Register(backend.NameGoGPU, func() backend.Provider {
		return NewProvider()
	})
}

// Provider acquires compute devices through the gogpu/wgpu HAL. It can
// also share a device owned by an embedding application instead of
// opening its own.
type Provider struct {
	mu sync.Mutex

	// Shared device from a gpucontext.DeviceProvider, if any.
	sharedDevice hal.Device
	sharedQueue  hal.Queue
}

// NewProvider creates an unprobed provider.
func NewProvider() *Provider {
	return &Provider{}
}

// Name returns the backend identifier.
func (p *Provider) Name() string {
	return backend.NameGoGPU
}

// Probe checks that the Vulkan HAL backend is linked and usable.
func (p *Provider) Probe() error {
	if _, ok := hal.GetBackend(gputypes.BackendVulkan); !ok {
		return fmt.Errorf("%w: vulkan backend not linked", gpu.ErrCapabilityAbsent)
	}
	return nil
}

// ShareDevice switches the provider to a device owned by the given
// gpucontext provider. The provider must expose HAL types through
// HalDevice and HalQueue methods; gogpu application contexts do.
func (p *Provider) ShareDevice(provider gpucontext.DeviceProvider) error {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return fmt.Errorf("gogpu: provider %T does not expose HAL types", provider)
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return fmt.Errorf("gogpu: provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return fmt.Errorf("gogpu: provider HalQueue is not hal.Queue")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.sharedDevice = device
	p.sharedQueue = queue
	return nil
}

// pickAdapter selects an adapter matching the preference tier, or nil
// when the tier has no match.
func pickAdapter(adapters []hal.ExposedAdapter, power gpu.PowerPreference) *hal.ExposedAdapter {
	pickType := func(t gputypes.DeviceType) *hal.ExposedAdapter {
		for i := range adapters {
			if adapters[i].Info.DeviceType == t {
				return &adapters[i]
			}
		}
		return nil
	}

	switch power {
	case gpu.PowerHighPerformance:
		return pickType(gputypes.DeviceTypeDiscreteGPU)
	case gpu.PowerLowPower:
		return pickType(gputypes.DeviceTypeIntegratedGPU)
	default:
		if a := pickType(gputypes.DeviceTypeDiscreteGPU); a != nil {
			return a
		}
		if a := pickType(gputypes.DeviceTypeIntegratedGPU); a != nil {
			return a
		}
		if len(adapters) > 0 {
			return &adapters[0]
		}
		return nil
	}
}

// Acquire opens a compute device at the given adapter preference tier.
// The surface is always offscreen; canvases with native window handles
// are rejected.
func (p *Provider) Acquire(ctx context.Context, canvas gpu.Canvas, power gpu.PowerPreference) (gpu.Device, gpu.Surface, error) {
	if handle := canvas.SurfaceHandle(); handle != nil {
		return nil, nil, fmt.Errorf("%w: window surfaces unsupported, use the webgpu backend", gpu.ErrSurfaceConfig)
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	p.mu.Lock()
	shared := p.sharedDevice
	sharedQueue := p.sharedQueue
	p.mu.Unlock()

	if shared != nil {
		dev := newDevice(nil, shared, sharedQueue, false)
		return dev, backend.NewOffscreenSurface(dev, gpu.TextureFormatRGBA8Unorm), nil
	}

	halBackend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, nil, fmt.Errorf("%w: vulkan backend not linked", gpu.ErrCapabilityAbsent)
	}

	instance, err := halBackend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: create instance: %w", gpu.ErrCapabilityAbsent, err)
	}

	adapters := instance.EnumerateAdapters(nil)
	selected := pickAdapter(adapters, power)
	if selected == nil {
		instance.Destroy()
		return nil, nil, fmt.Errorf("%w: no %s adapter among %d enumerated",
			gpu.ErrAdapterUnavailable, power, len(adapters))
	}

	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, nil, fmt.Errorf("%w: open %q: %w", gpu.ErrAdapterUnavailable, selected.Info.Name, err)
	}

	dev := newDevice(instance, openDev.Device, openDev.Queue, true)
	return dev, backend.NewOffscreenSurface(dev, gpu.TextureFormatRGBA8Unorm), nil
}

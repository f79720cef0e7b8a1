package webgpu

import (
	"context"
	"fmt"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/ZPredou/ZWebGpu/backend"
	"github.com/ZPredou/ZWebGpu/gpu"
)

func init() {
	backend.Register(backend.NameWebGPU, func() backend.Provider {
		return NewProvider()
	})
}

// Provider acquires devices through the cogentcore/webgpu bindings.
// One instance is shared across all acquisitions.
type Provider struct {
	mu       sync.Mutex
	instance *wgpu.Instance
}

// NewProvider creates an unprobed provider.
func NewProvider() *Provider {
	return &Provider{}
}

// Name returns the backend identifier.
func (p *Provider) Name() string {
	return backend.NameWebGPU
}

// Probe checks that a WebGPU instance can be created in this process.
func (p *Provider) Probe() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ensureInstance()
}

func (p *Provider) ensureInstance() error {
	if p.instance != nil {
		return nil
	}
	instance := wgpu.CreateInstance(nil)
	if instance == nil {
		return fmt.Errorf("%w: webgpu instance creation failed", gpu.ErrCapabilityAbsent)
	}
	p.instance = instance
	return nil
}

func adapterOptions(power gpu.PowerPreference) *wgpu.RequestAdapterOptions {
	opts := &wgpu.RequestAdapterOptions{}
	switch power {
	case gpu.PowerHighPerformance:
		opts.PowerPreference = wgpu.PowerPreferenceHighPerformance
	case gpu.PowerLowPower:
		opts.PowerPreference = wgpu.PowerPreferenceLowPower
		opts.ForceFallbackAdapter = true
	}
	return opts
}

// Acquire opens a device at the given adapter preference tier and a
// surface for canvas. A canvas without a native handle gets an
// offscreen surface.
func (p *Provider) Acquire(ctx context.Context, canvas gpu.Canvas, power gpu.PowerPreference) (gpu.Device, gpu.Surface, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ensureInstance(); err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	var wsurf *wgpu.Surface
	if handle := canvas.SurfaceHandle(); handle != nil {
		desc, ok := handle.(*wgpu.SurfaceDescriptor)
		if !ok {
			return nil, nil, fmt.Errorf("%w: surface handle is %T, want *wgpu.SurfaceDescriptor",
				gpu.ErrSurfaceConfig, handle)
		}
		wsurf = p.instance.CreateSurface(desc)
		if wsurf == nil {
			return nil, nil, fmt.Errorf("%w: surface creation failed", gpu.ErrSurfaceConfig)
		}
	}

	opts := adapterOptions(power)
	opts.CompatibleSurface = wsurf
	adapter, err := p.instance.RequestAdapter(opts)
	if err != nil {
		if wsurf != nil {
			wsurf.Release()
		}
		return nil, nil, fmt.Errorf("%w: %s tier: %w", gpu.ErrAdapterUnavailable, power, err)
	}

	wdev, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "zwebgpu-device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		if wsurf != nil {
			wsurf.Release()
		}
		adapter.Release()
		return nil, nil, fmt.Errorf("%w: device request on %q: %w",
			gpu.ErrAdapterUnavailable, adapter.GetInfo().Name, err)
	}

	dev := newDevice(adapter, wdev)
	if wsurf == nil {
		return dev, backend.NewOffscreenSurface(dev, gpu.TextureFormatRGBA8Unorm), nil
	}
	return dev, newSurface(dev, wsurf), nil
}

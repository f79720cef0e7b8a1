package zwebgpu

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ZPredou/ZWebGpu/backend"
	"github.com/ZPredou/ZWebGpu/gpu"
)

// adapterTiers is the fixed preference order for device selection.
// The first tier that yields a device wins.
var adapterTiers = []gpu.PowerPreference{
	gpu.PowerHighPerformance,
	gpu.PowerDefault,
	gpu.PowerLowPower,
}

// AcquireOptions configures context acquisition. The zero value
// selects the default backend.
type AcquireOptions struct {
	// Backend names a registered backend. Empty selects by registry
	// priority.
	Backend string

	// OnDeviceLost, if set, is called once if the device is lost
	// after acquisition. The context is already flipped to not-ready
	// when it runs.
	OnDeviceLost func(reason string)
}

// GraphicsContext bundles everything a demo needs to draw: the
// device, its presentation surface, the surface's preferred format,
// and the canvas it is attached to. A context is owned exclusively by
// the demo mount that acquired it; contexts are never shared.
//
// Device loss flips the context to not-ready and records the reason.
// The context never reacquires on its own; recovery requires a fresh
// mount.
type GraphicsContext struct {
	dev     gpu.Device
	surf    gpu.Surface
	format  gpu.TextureFormat
	canvas  gpu.Canvas
	backend string

	mu         sync.Mutex
	ready      bool
	lostReason string
	onLost     func(reason string)
	closed     bool
}

// Device returns the GPU device.
func (g *GraphicsContext) Device() gpu.Device { return g.dev }

// Surface returns the presentation surface.
func (g *GraphicsContext) Surface() gpu.Surface { return g.surf }

// Format returns the surface's preferred color format.
func (g *GraphicsContext) Format() gpu.TextureFormat { return g.format }

// Canvas returns the canvas the surface is attached to.
func (g *GraphicsContext) Canvas() gpu.Canvas { return g.canvas }

// Backend returns the name of the backend that produced this context.
func (g *GraphicsContext) Backend() string { return g.backend }

// Ready reports whether the context is usable. It becomes false on
// device loss or Close.
func (g *GraphicsContext) Ready() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ready
}

// LostReason returns the device-loss reason, or "" if the device has
// not been lost.
func (g *GraphicsContext) LostReason() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lostReason
}

// Close releases the device. Close is idempotent.
func (g *GraphicsContext) Close() error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return nil
	}
	g.closed = true
	g.ready = false
	g.mu.Unlock()

	err := g.dev.Close()
	if r, ok := g.surf.(surfaceReleaser); ok {
		r.Release()
	}
	return err
}

// surfaceReleaser is implemented by surfaces holding native swapchain
// handles that outlive the device.
type surfaceReleaser interface {
	Release()
}

// handleLost is installed as the device lost handler at acquisition.
func (g *GraphicsContext) handleLost(reason string) {
	g.mu.Lock()
	g.ready = false
	g.lostReason = reason
	fn := g.onLost
	g.mu.Unlock()
	Logger().Warn("device lost", "backend", g.backend, "reason", reason)
	if fn != nil {
		fn(reason)
	}
}

// setLostCallback chains an additional loss subscriber. Used by the
// lifecycle controller; any AcquireOptions.OnDeviceLost still runs.
func (g *GraphicsContext) setLostCallback(fn func(reason string)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	prev := g.onLost
	g.onLost = func(reason string) {
		if prev != nil {
			prev(reason)
		}
		fn(reason)
	}
}

// Acquirer performs context acquisition with a per-process capability
// probe. The probe runs once per backend; a probe failure is cached
// and every later acquisition through the same Acquirer
// short-circuits to the same error without re-probing.
type Acquirer struct {
	mu     sync.Mutex
	probed map[string]error
}

// NewAcquirer returns an Acquirer with an empty probe cache. Most
// callers use the package-level Acquire, which shares one cache for
// the process.
func NewAcquirer() *Acquirer {
	return &Acquirer{probed: make(map[string]error)}
}

var defaultAcquirer = NewAcquirer()

// Acquire acquires a GraphicsContext for canvas using the
// process-wide probe cache. See Acquirer.Acquire.
func Acquire(ctx context.Context, canvas gpu.Canvas, opts AcquireOptions) (*GraphicsContext, error) {
	return defaultAcquirer.Acquire(ctx, canvas, opts)
}

// Acquire probes the selected backend, then requests a device at each
// adapter preference tier in order (high-performance, default,
// low-power); the first success wins. The error distinguishes a
// missing capability (gpu.ErrCapabilityAbsent) from adapter
// exhaustion (gpu.ErrAdapterUnavailable) and from surface problems
// (gpu.ErrSurfaceConfig).
func (a *Acquirer) Acquire(ctx context.Context, canvas gpu.Canvas, opts AcquireOptions) (*GraphicsContext, error) {
	if canvas == nil {
		return nil, errors.New("zwebgpu: nil canvas")
	}

	var provider backend.Provider
	if opts.Backend != "" {
		provider = backend.Get(opts.Backend)
		if provider == nil {
			return nil, fmt.Errorf("%w: backend %q not registered", gpu.ErrCapabilityAbsent, opts.Backend)
		}
	} else {
		provider = backend.Default()
		if provider == nil {
			return nil, fmt.Errorf("%w: no backend registered", gpu.ErrCapabilityAbsent)
		}
	}

	if err := a.probe(provider); err != nil {
		return nil, err
	}

	var lastErr error
	for _, tier := range adapterTiers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		dev, surf, err := provider.Acquire(ctx, canvas, tier)
		if err == nil {
			gc := &GraphicsContext{
				dev:     dev,
				surf:    surf,
				format:  surf.PreferredFormat(),
				canvas:  canvas,
				backend: provider.Name(),
				ready:   true,
				onLost:  opts.OnDeviceLost,
			}
			dev.SetDeviceLostHandler(gc.handleLost)
			Logger().Info("graphics context acquired",
				"backend", provider.Name(), "tier", tier.String())
			return gc, nil
		}
		if errors.Is(err, gpu.ErrSurfaceConfig) || errors.Is(err, gpu.ErrCapabilityAbsent) {
			// Not an adapter problem; trying other tiers cannot help.
			return nil, err
		}
		Logger().Warn("adapter tier failed", "tier", tier.String(), "error", err)
		lastErr = err
	}

	if lastErr == nil {
		lastErr = gpu.ErrAdapterUnavailable
	} else if !errors.Is(lastErr, gpu.ErrAdapterUnavailable) {
		lastErr = fmt.Errorf("%w: %w", gpu.ErrAdapterUnavailable, lastErr)
	}
	return nil, fmt.Errorf("no adapter after trying all preference tiers: %w", lastErr)
}

// probe runs the provider's capability probe once, caching the result.
func (a *Acquirer) probe(p backend.Provider) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err, ok := a.probed[p.Name()]; ok {
		return err
	}
	err := p.Probe()
	if err != nil && !errors.Is(err, gpu.ErrCapabilityAbsent) {
		err = fmt.Errorf("%w: %w", gpu.ErrCapabilityAbsent, err)
	}
	a.probed[p.Name()] = err
	return err
}

package zwebgpu

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/ZPredou/ZWebGpu/backend"
	"github.com/ZPredou/ZWebGpu/gpu"
	"github.com/ZPredou/ZWebGpu/gpu/gputest"
)

// fakeProvider scripts probe and per-tier acquisition results. A
// non-nil block channel stalls Acquire until the channel closes or
// the context is canceled, for in-flight cancellation tests.
type fakeProvider struct {
	mu       sync.Mutex
	name     string
	probeErr error
	probes   int
	tierErrs map[gpu.PowerPreference]error
	block    chan struct{}
	acquired []gpu.PowerPreference
	devices  []*gputest.Device
}

func newFakeProvider(name string) *fakeProvider {
	return &fakeProvider{
		name:     name,
		tierErrs: make(map[gpu.PowerPreference]error),
	}
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) Probe() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.probes++
	return p.probeErr
}

func (p *fakeProvider) Acquire(ctx context.Context, canvas gpu.Canvas, power gpu.PowerPreference) (gpu.Device, gpu.Surface, error) {
	p.mu.Lock()
	block := p.block
	p.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.acquired = append(p.acquired, power)
	if err := p.tierErrs[power]; err != nil {
		return nil, nil, err
	}
	dev := gputest.NewDevice()
	p.devices = append(p.devices, dev)
	return dev, gputest.NewSurface(dev), nil
}

func (p *fakeProvider) register(t *testing.T) {
	t.Helper()
	backend.Register(p.name, func() backend.Provider { return p })
	t.Cleanup(func() { backend.Unregister(p.name) })
}

func TestAcquireFirstTierWins(t *testing.T) {
	p := newFakeProvider("fake-first")
	p.register(t)

	a := NewAcquirer()
	gc, err := a.Acquire(context.Background(), gputest.NewCanvas(800, 600, 1), AcquireOptions{Backend: p.name})
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer gc.Close()

	if len(p.acquired) != 1 || p.acquired[0] != gpu.PowerHighPerformance {
		t.Errorf("tiers tried = %v, want [high-performance]", p.acquired)
	}
	if !gc.Ready() {
		t.Error("Ready() = false after acquisition")
	}
	if gc.Backend() != p.name {
		t.Errorf("Backend() = %q, want %q", gc.Backend(), p.name)
	}
}

func TestAcquireTierFallback(t *testing.T) {
	p := newFakeProvider("fake-fallback")
	p.tierErrs[gpu.PowerHighPerformance] = fmt.Errorf("%w: no discrete gpu", gpu.ErrAdapterUnavailable)
	p.tierErrs[gpu.PowerDefault] = fmt.Errorf("%w: default failed", gpu.ErrAdapterUnavailable)
	p.register(t)

	a := NewAcquirer()
	gc, err := a.Acquire(context.Background(), gputest.NewCanvas(800, 600, 1), AcquireOptions{Backend: p.name})
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer gc.Close()

	want := []gpu.PowerPreference{gpu.PowerHighPerformance, gpu.PowerDefault, gpu.PowerLowPower}
	if len(p.acquired) != len(want) {
		t.Fatalf("tiers tried = %v, want %v", p.acquired, want)
	}
	for i := range want {
		if p.acquired[i] != want[i] {
			t.Errorf("tier[%d] = %v, want %v", i, p.acquired[i], want[i])
		}
	}
}

func TestAcquireAllTiersFail(t *testing.T) {
	p := newFakeProvider("fake-exhausted")
	for _, tier := range adapterTiers {
		p.tierErrs[tier] = fmt.Errorf("%w: tier %v", gpu.ErrAdapterUnavailable, tier)
	}
	p.register(t)

	a := NewAcquirer()
	_, err := a.Acquire(context.Background(), gputest.NewCanvas(800, 600, 1), AcquireOptions{Backend: p.name})
	if !errors.Is(err, gpu.ErrAdapterUnavailable) {
		t.Errorf("err = %v, want ErrAdapterUnavailable", err)
	}
	// Exhaustion must not be confused with a missing capability.
	if errors.Is(err, gpu.ErrCapabilityAbsent) {
		t.Errorf("err = %v, should not wrap ErrCapabilityAbsent", err)
	}
}

func TestAcquireProbeOnce(t *testing.T) {
	p := newFakeProvider("fake-probe")
	p.probeErr = fmt.Errorf("%w: api missing", gpu.ErrCapabilityAbsent)
	p.register(t)

	a := NewAcquirer()
	canvas := gputest.NewCanvas(800, 600, 1)

	_, err1 := a.Acquire(context.Background(), canvas, AcquireOptions{Backend: p.name})
	_, err2 := a.Acquire(context.Background(), canvas, AcquireOptions{Backend: p.name})

	if !errors.Is(err1, gpu.ErrCapabilityAbsent) {
		t.Errorf("first err = %v, want ErrCapabilityAbsent", err1)
	}
	if !errors.Is(err2, gpu.ErrCapabilityAbsent) {
		t.Errorf("second err = %v, want ErrCapabilityAbsent", err2)
	}
	if p.probes != 1 {
		t.Errorf("probes = %d, want 1 (failure must be cached)", p.probes)
	}
	if len(p.acquired) != 0 {
		t.Errorf("tiers tried = %v, want none after failed probe", p.acquired)
	}
}

func TestAcquireSurfaceConfigStopsTiers(t *testing.T) {
	p := newFakeProvider("fake-surface")
	p.tierErrs[gpu.PowerHighPerformance] = fmt.Errorf("%w: bad surface", gpu.ErrSurfaceConfig)
	p.register(t)

	a := NewAcquirer()
	_, err := a.Acquire(context.Background(), gputest.NewCanvas(800, 600, 1), AcquireOptions{Backend: p.name})
	if !errors.Is(err, gpu.ErrSurfaceConfig) {
		t.Errorf("err = %v, want ErrSurfaceConfig", err)
	}
	if len(p.acquired) != 1 {
		t.Errorf("tiers tried = %d, want 1 (surface failures are not retried)", len(p.acquired))
	}
}

func TestAcquireUnknownBackend(t *testing.T) {
	a := NewAcquirer()
	_, err := a.Acquire(context.Background(), gputest.NewCanvas(800, 600, 1), AcquireOptions{Backend: "does-not-exist"})
	if !errors.Is(err, gpu.ErrCapabilityAbsent) {
		t.Errorf("err = %v, want ErrCapabilityAbsent", err)
	}
}

func TestAcquireCanceledContext(t *testing.T) {
	p := newFakeProvider("fake-cancel")
	p.register(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	a := NewAcquirer()
	_, err := a.Acquire(ctx, gputest.NewCanvas(800, 600, 1), AcquireOptions{Backend: p.name})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if len(p.acquired) != 0 {
		t.Errorf("tiers tried = %v, want none with canceled context", p.acquired)
	}
}

func TestDeviceLossFlipsContext(t *testing.T) {
	p := newFakeProvider("fake-loss")
	p.register(t)

	var gotReason string
	a := NewAcquirer()
	gc, err := a.Acquire(context.Background(), gputest.NewCanvas(800, 600, 1), AcquireOptions{
		Backend:      p.name,
		OnDeviceLost: func(reason string) { gotReason = reason },
	})
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer gc.Close()

	p.devices[0].Lose("gpu reset")

	if gc.Ready() {
		t.Error("Ready() = true after device loss")
	}
	if gc.LostReason() != "gpu reset" {
		t.Errorf("LostReason() = %q, want %q", gc.LostReason(), "gpu reset")
	}
	if gotReason != "gpu reset" {
		t.Errorf("OnDeviceLost reason = %q, want %q", gotReason, "gpu reset")
	}
}

func TestGraphicsContextCloseIdempotent(t *testing.T) {
	p := newFakeProvider("fake-close")
	p.register(t)

	a := NewAcquirer()
	gc, err := a.Acquire(context.Background(), gputest.NewCanvas(800, 600, 1), AcquireOptions{Backend: p.name})
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if err := gc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := gc.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if gc.Ready() {
		t.Error("Ready() = true after Close")
	}
}

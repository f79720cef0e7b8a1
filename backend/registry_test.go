package backend

import (
	"context"
	"testing"

	"github.com/ZPredou/ZWebGpu/gpu"
)

// stubProvider is a minimal Provider for registry tests.
type stubProvider struct {
	name string
}

func (p *stubProvider) Name() string { return p.name }
func (p *stubProvider) Probe() error { return nil }

func (p *stubProvider) Acquire(ctx context.Context, canvas gpu.Canvas, power gpu.PowerPreference) (gpu.Device, gpu.Surface, error) {
	return nil, nil, gpu.ErrAdapterUnavailable
}

func TestRegistryRegisterAndGet(t *testing.T) {
	Register("test-stub", func() Provider { return &stubProvider{name: "test-stub"} })
	t.Cleanup(func() { Unregister("test-stub") })

	p := Get("test-stub")
	if p == nil {
		t.Fatal("Get(test-stub) returned nil")
	}
	if p.Name() != "test-stub" {
		t.Errorf("Get(test-stub).Name() = %q, want %q", p.Name(), "test-stub")
	}
}

func TestRegistryGetUnregistered(t *testing.T) {
	p := Get("nonexistent")
	if p != nil {
		t.Error("Get(nonexistent) should return nil")
	}
}

func TestRegistryAvailable(t *testing.T) {
	Register("test-avail", func() Provider { return &stubProvider{name: "test-avail"} })
	t.Cleanup(func() { Unregister("test-avail") })

	found := false
	for _, name := range Available() {
		if name == "test-avail" {
			found = true
			break
		}
	}
	if !found {
		t.Error("Available() should include 'test-avail'")
	}
}

func TestRegistryDefaultPriority(t *testing.T) {
	Register(NameWebGPU, func() Provider { return &stubProvider{name: NameWebGPU} })
	Register(NameGoGPU, func() Provider { return &stubProvider{name: NameGoGPU} })
	t.Cleanup(func() {
		Unregister(NameWebGPU)
		Unregister(NameGoGPU)
	})

	p := Default()
	if p == nil {
		t.Fatal("Default() returned nil")
	}
	// The windowed backend wins when both are registered.
	if p.Name() != NameWebGPU {
		t.Errorf("Default().Name() = %q, want %q", p.Name(), NameWebGPU)
	}
}

func TestRegistryDefaultFallback(t *testing.T) {
	Register("test-only", func() Provider { return &stubProvider{name: "test-only"} })
	t.Cleanup(func() { Unregister("test-only") })

	p := Default()
	if p == nil {
		t.Fatal("Default() returned nil")
	}
}

func TestRegistryUnregister(t *testing.T) {
	Register("test-backend", func() Provider { return &stubProvider{name: "test-backend"} })

	if !IsRegistered("test-backend") {
		t.Error("test-backend should be registered")
	}

	Unregister("test-backend")

	if IsRegistered("test-backend") {
		t.Error("test-backend should be unregistered")
	}
}

func TestRegistryIsRegistered(t *testing.T) {
	if IsRegistered("nonexistent") {
		t.Error("nonexistent should not be registered")
	}
}

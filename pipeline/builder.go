package pipeline

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ZPredou/ZWebGpu/gpu"
)

// ErrBuildFailed wraps a construction failure. Callers surface it the
// same way they surface a surface-configuration failure; the frame
// loop must not keep running against a half-built generation.
var ErrBuildFailed = errors.New("pipeline: build failed")

// BuildFunc constructs one generation of resources sized exactly for
// the current parameter values. It allocates through res so the
// builder can destroy the generation wholesale later.
type BuildFunc func(res *Resources, params *Params) error

// BuilderConfig configures a Builder.
type BuilderConfig struct {
	// Device owns all allocations.
	Device gpu.Device

	// Params is the declared parameter set.
	Params *Params

	// Build constructs a generation.
	Build BuildFunc
}

// Builder owns a demo's pipeline resources across parameter changes.
// Sizing changes trigger a full rebuild: the previous generation is
// destroyed before the replacement is built. Uniform changes never
// rebuild. Each successful build increments the generation counter.
type Builder struct {
	dev    gpu.Device
	params *Params
	build  BuildFunc

	mu          sync.Mutex
	res         *Resources
	generation  uint64
	fingerprint uint64
}

// NewBuilder creates a Builder with no built generation yet.
func NewBuilder(cfg BuilderConfig) (*Builder, error) {
	if cfg.Device == nil || cfg.Params == nil || cfg.Build == nil {
		return nil, errors.New("pipeline: builder needs device, params and build func")
	}
	return &Builder{dev: cfg.Device, params: cfg.Params, build: cfg.Build}, nil
}

// Build constructs the first generation. Calling Build again rebuilds
// unconditionally.
func (b *Builder) Build() error {
	return b.rebuild()
}

// SetParam updates a parameter. A sizing change rebuilds immediately;
// the old generation's buffers are destroyed before the new ones are
// allocated. A uniform change only updates the value; the demo
// uploads it with the next frame's uniforms.
func (b *Builder) SetParam(name string, value float64) (Change, error) {
	change, err := b.params.Set(name, value)
	if err != nil {
		return ChangeNone, err
	}
	if change == ChangeSizing {
		if err := b.rebuild(); err != nil {
			return change, err
		}
	}
	return change, nil
}

// rebuild destroys the current generation, then builds a fresh one.
// Destroy-before-create is the ordering contract: GPU memory is not
// garbage collected, and the old and new generations must never
// coexist.
func (b *Builder) rebuild() error {
	b.mu.Lock()
	old := b.res
	b.res = nil
	b.mu.Unlock()

	if old != nil {
		old.Destroy()
	}

	res := NewResources(b.dev)
	if err := b.build(res, b.params); err != nil {
		// A partial generation must not leak.
		res.Destroy()
		return fmt.Errorf("%w: %w", ErrBuildFailed, err)
	}

	b.mu.Lock()
	b.res = res
	b.generation++
	b.fingerprint = b.params.SizingFingerprint()
	b.mu.Unlock()
	return nil
}

// Stale reports whether the sizing fingerprint has drifted from the
// built generation, meaning a rebuild is due.
func (b *Builder) Stale() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.res == nil || b.fingerprint != b.params.SizingFingerprint()
}

// Resources returns the current generation, or nil when no build has
// succeeded yet.
func (b *Builder) Resources() *Resources {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.res
}

// Params returns the declared parameter set.
func (b *Builder) Params() *Params { return b.params }

// Generation returns the number of successful builds.
func (b *Builder) Generation() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.generation
}

// Destroy releases the current generation. Idempotent.
func (b *Builder) Destroy() {
	b.mu.Lock()
	res := b.res
	b.res = nil
	b.mu.Unlock()
	if res != nil {
		res.Destroy()
	}
}

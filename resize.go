package zwebgpu

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/ZPredou/ZWebGpu/gpu"
)

// SizeObserver notifies on container size changes, the way a resize
// observer on a canvas element does. Observe registers fn and returns
// a cancel function that releases the subscription; after cancel
// returns, fn is never called again.
type SizeObserver interface {
	Observe(fn func()) (cancel func())
}

// PhysicalSize computes the backing-store pixel dimensions for a
// canvas: layout size times device pixel ratio, rounded. A nonzero
// layout dimension never maps to zero pixels; a zero layout dimension
// maps to zero, signalling "not laid out yet".
func PhysicalSize(canvas gpu.Canvas) (w, h uint32) {
	cw, ch := canvas.LayoutSize()
	dpr := canvas.DevicePixelRatio()
	if dpr < 1 {
		dpr = 1
	}
	return scaleDim(cw, dpr), scaleDim(ch, dpr)
}

func scaleDim(css, dpr float64) uint32 {
	if css <= 0 {
		return 0
	}
	px := math.Round(css * dpr)
	if px < 1 {
		return 1
	}
	return uint32(px)
}

// ResizeConfig configures a ResizeCoordinator.
type ResizeConfig struct {
	// Canvas supplies layout size and device pixel ratio.
	Canvas gpu.Canvas

	// Surface is reconfigured when the physical size changes.
	Surface gpu.Surface

	// Device creates and destroys the depth attachment.
	Device gpu.Device

	// DepthFormat enables a depth attachment in that format. Zero
	// means the demo needs no depth buffer.
	DepthFormat gpu.TextureFormat

	// OnResize, if set, runs after every successful surface
	// reconfiguration with the new physical size.
	OnResize func(w, h uint32)
}

// ResizeCoordinator keeps the surface and its depth attachment sized
// to the canvas. Mount performs the initial size computation
// synchronously, so the first frame never renders at a stale or zero
// size; afterwards it reacts to observer notifications. The depth
// attachment is recreated lazily, only when its dimensions no longer
// match the surface, never every frame.
type ResizeCoordinator struct {
	cfg ResizeConfig

	mu      sync.Mutex
	w, h    uint32
	depth   gpu.TextureID
	depthW  uint32
	depthH  uint32
	cancel  func()
	mounted bool
}

// NewResizeCoordinator creates an unmounted coordinator.
func NewResizeCoordinator(cfg ResizeConfig) (*ResizeCoordinator, error) {
	if cfg.Canvas == nil || cfg.Surface == nil || cfg.Device == nil {
		return nil, errors.New("zwebgpu: resize coordinator needs canvas, surface and device")
	}
	if cfg.DepthFormat != 0 && !cfg.DepthFormat.IsDepth() {
		return nil, fmt.Errorf("zwebgpu: %v is not a depth format", cfg.DepthFormat)
	}
	return &ResizeCoordinator{cfg: cfg}, nil
}

// Mount applies the current canvas size to the surface and subscribes
// to obs for subsequent changes. obs may be nil for a fixed-size
// canvas.
func (r *ResizeCoordinator) Mount(obs SizeObserver) error {
	r.mu.Lock()
	if r.mounted {
		r.mu.Unlock()
		return errors.New("zwebgpu: resize coordinator already mounted")
	}
	r.mounted = true
	r.mu.Unlock()

	if err := r.apply(); err != nil {
		return err
	}
	if obs != nil {
		cancel := obs.Observe(func() {
			if err := r.apply(); err != nil {
				Logger().Warn("resize failed", "error", err)
			}
		})
		r.mu.Lock()
		r.cancel = cancel
		r.mu.Unlock()
	}
	return nil
}

// apply recomputes the physical size and reconfigures the surface if
// it changed. A canvas with no layout yet is skipped rather than
// configured at zero.
func (r *ResizeCoordinator) apply() error {
	w, h := PhysicalSize(r.cfg.Canvas)
	if w == 0 || h == 0 {
		return nil
	}

	r.mu.Lock()
	if !r.mounted || (w == r.w && h == r.h) {
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()

	if err := r.cfg.Surface.Configure(w, h); err != nil {
		return fmt.Errorf("%w: %dx%d: %w", gpu.ErrSurfaceConfig, w, h, err)
	}

	r.mu.Lock()
	r.w, r.h = w, h
	r.mu.Unlock()

	Logger().Debug("surface resized", "width", w, "height", h)
	if r.cfg.OnResize != nil {
		r.cfg.OnResize(w, h)
	}
	return nil
}

// Size returns the last applied physical size.
func (r *ResizeCoordinator) Size() (w, h uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.w, r.h
}

// DepthTexture returns the depth attachment matching the current
// surface size, creating or recreating it only when the dimensions
// differ. The old texture is destroyed before the replacement is
// created. Returns an error if no DepthFormat was configured.
func (r *ResizeCoordinator) DepthTexture() (gpu.TextureID, error) {
	if r.cfg.DepthFormat == 0 {
		return gpu.InvalidID, errors.New("zwebgpu: no depth format configured")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.w == 0 || r.h == 0 {
		return gpu.InvalidID, errors.New("zwebgpu: surface not yet sized")
	}
	if r.depth != gpu.InvalidID && r.depthW == r.w && r.depthH == r.h {
		return r.depth, nil
	}

	if r.depth != gpu.InvalidID {
		r.cfg.Device.DestroyTexture(r.depth)
		r.depth = gpu.InvalidID
	}
	id, err := r.cfg.Device.CreateTexture(&gpu.TextureDescriptor{
		Label:  "depth",
		Width:  r.w,
		Height: r.h,
		Format: r.cfg.DepthFormat,
		Usage:  gpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		return gpu.InvalidID, err
	}
	r.depth = id
	r.depthW, r.depthH = r.w, r.h
	return id, nil
}

// Unmount releases the observer subscription and destroys the depth
// attachment. Unmount is idempotent.
func (r *ResizeCoordinator) Unmount() {
	r.mu.Lock()
	if !r.mounted {
		r.mu.Unlock()
		return
	}
	r.mounted = false
	cancel := r.cancel
	r.cancel = nil
	depth := r.depth
	r.depth = gpu.InvalidID
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if depth != gpu.InvalidID {
		r.cfg.Device.DestroyTexture(depth)
	}
}

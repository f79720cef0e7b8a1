package zwebgpu

import (
	"time"

	"github.com/ZPredou/ZWebGpu/gpu"
)

// Demo is a single gallery demo. The engine owns the lifecycle: Init
// runs once when a graphics context is ready, Frame runs every
// scheduled frame, Resize runs after the surface is reconfigured, and
// Close releases everything the demo allocated.
//
// Frame must not block; it encodes and submits GPU work and returns.
// A Frame error stops the loop and flips the mount to its error
// state, the same way a failed surface configuration would.
type Demo interface {
	// Entry returns the demo's catalog metadata.
	Entry() CatalogEntry

	// Init builds the demo's pipelines and buffers against a ready
	// context. The surface is already configured at the mount size.
	Init(gc *GraphicsContext) error

	// Frame renders one frame. elapsed is time since the loop
	// started; delta is time since the previous frame.
	Frame(elapsed, delta time.Duration) error

	// Resize is called after the surface was reconfigured to w×h
	// device pixels.
	Resize(w, h uint32)

	// Close destroys the demo's GPU resources. Close is called on
	// every unmount path, including after Init failure.
	Close()
}

// DepthRequirer is implemented by demos that need a depth attachment.
// The coordinator keeps the depth texture sized to the surface.
type DepthRequirer interface {
	DepthFormat() gpu.TextureFormat
}

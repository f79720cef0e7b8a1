// Package backend defines the GPU backend provider interface and a
// registry for selecting among implementations.
//
// Backends register themselves from init() and are selected by name
// or by priority. Importing a backend package for side effects makes
// it available:
//
//	import _ "github.com/ZPredou/ZWebGpu/backend/webgpu"
package backend

import (
	"context"
	"errors"

	"github.com/ZPredou/ZWebGpu/gpu"
)

// Common backend errors.
var (
	// ErrNotAvailable is returned when a requested backend is not available.
	ErrNotAvailable = errors.New("backend: not available")
)

// Backend names used by the built-in providers.
const (
	// NameWebGPU is the windowed backend on the native WebGPU binding.
	NameWebGPU = "webgpu"

	// NameGoGPU is the pure-Go headless backend.
	NameGoGPU = "gogpu"
)

// Provider creates GPU devices and surfaces for one backend
// implementation.
//
// Providers must be registered via Register() and are selected via
// Get() or Default().
type Provider interface {
	// Name returns the backend identifier (e.g., "webgpu", "gogpu").
	Name() string

	// Probe checks whether the backend's API is usable in this
	// process at all. It is cheap and does not acquire a device.
	// A failed probe wraps gpu.ErrCapabilityAbsent.
	Probe() error

	// Acquire requests a device at the given adapter preference tier
	// and a surface attached to canvas. For headless canvases (nil
	// surface handle) the returned surface renders offscreen.
	// A failure to find an adapter at this tier wraps
	// gpu.ErrAdapterUnavailable; a surface problem wraps
	// gpu.ErrSurfaceConfig. ctx bounds the asynchronous request.
	Acquire(ctx context.Context, canvas gpu.Canvas, power gpu.PowerPreference) (gpu.Device, gpu.Surface, error)
}

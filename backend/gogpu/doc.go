// Package gogpu provides the pure-Go headless GPU backend on
// gogpu/wgpu's hardware abstraction layer. WGSL shaders are compiled
// to SPIR-V with gogpu/naga and dispatched through Vulkan.
//
// The backend is compute-only: render pipelines and window surfaces
// are not supported, and presentation happens offscreen. Demos that
// only need compute and buffer readback run here without a display.
//
// Importing the package registers the backend:
//
//	import _ "github.com/ZPredou/ZWebGpu/backend/gogpu"
package gogpu

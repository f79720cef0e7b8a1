// Package gpu defines the opaque device abstraction the demo engine
// renders through.
//
// The graphics API itself (WebGPU in the browser, wgpu-native or a pure
// Go implementation elsewhere) is external to this module. Each backend
// maintains a mapping between the opaque resource IDs declared here and
// its actual API objects; the engine and the demos only ever hold IDs.
//
// Resource lifecycle:
//   - Resources are created via Create* methods
//   - Resources must be explicitly destroyed via Destroy* methods
//   - IDs become invalid after destruction and must not be reused
//
// There is no garbage collection of GPU-side memory: a buffer that is
// never destroyed leaks for the lifetime of the device.
package gpu

// Package webgpu provides the windowed GPU backend on the
// cogentcore/webgpu bindings. It talks to the platform's native WebGPU
// implementation, so it supports real window surfaces, render
// pipelines, and compute.
//
// Importing the package registers the backend:
//
//	import _ "github.com/ZPredou/ZWebGpu/backend/webgpu"
package webgpu

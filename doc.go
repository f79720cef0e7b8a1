// Package zwebgpu is a reusable engine for a gallery of GPU compute
// and render demos.
//
// Every demo repeats the same integration pattern: acquire a device,
// build a pipeline, write uniforms, submit a frame. This package
// factors that pattern out once. Demos supply WGSL shader text and
// per-frame logic; the engine supplies acquisition with adapter
// preference tiers, a lifecycle state machine tied to canvas mount
// and unmount, a frame scheduler with delta time and FPS tracking,
// and a resize coordinator that keeps the surface and depth
// attachment sized to the canvas.
//
// The GPU API itself is reached through the opaque [gpu.Device]
// interface, with concrete implementations registered in the backend
// registry. Import a backend package for its side effects to make it
// available:
//
//	import _ "github.com/ZPredou/ZWebGpu/backend/webgpu"
//
// A typical demo mount:
//
//	ctrl, err := zwebgpu.NewController(zwebgpu.ControllerConfig{
//	    Canvas:   canvas,
//	    Observer: observer,
//	    Source:   source,
//	    Demo:     demo,
//	})
//	if err != nil { ... }
//	if err := ctrl.Mount(ctx); err != nil { ... }
//	defer ctrl.Unmount()
package zwebgpu

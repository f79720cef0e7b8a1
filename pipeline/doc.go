// Package pipeline builds and owns per-demo GPU pipeline resources.
//
// A demo declares its parameters up front, each classified as Sizing
// or Uniform. Sizing changes (grid resolution, particle count) force
// a full rebuild in which every buffer of the previous generation is
// destroyed before its replacement is allocated; buffers are never
// resized in place. Uniform changes never rebuild; they flow through
// the per-frame uniform upload.
//
// Shader variants form a closed set: unknown variant names are
// rejected when configured, never silently mapped to a default.
//
// PingPong provides the double-buffering discipline simulations use:
// two buffers alternating source and destination roles each step,
// never aliasing within a step.
package pipeline

//go:build !nogpu

// Package gpu runs texpack packing passes on a GPU through gogpu/wgpu's
// hardware abstraction layer (zero CGO).
//
// Targets are storage buffers holding one vec4<f32> per texel. The compute
// pass uploads the four resampled sources and dispatches pack.wgsl; the
// raster pass dispatches adjust.wgsl from one target into the other. Both
// shaders quantize to the target's PixelFormat so results match the
// software executor.
//
// Use the public package github.com/gogpu/texpack/gpu rather than this one.
package gpu

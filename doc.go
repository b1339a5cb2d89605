// Package texpack packs channels of up to four source images into one
// texture.
//
// # Overview
//
// Each output channel (R, G, B, A) is described by a Contribution: a source
// image and the channel to read from it, an optional invert, a multiplier,
// or a forced white fill. A Packer turns a Request into at most two passes
// on an Executor:
//
//   - a compute pass that resamples the sources to the output resolution
//     and swizzles the chosen channels into place;
//   - a raster pass that applies invert and multiply, scheduled only when a
//     contribution needs one.
//
// The passes ping-pong between two targets held in a TargetPair, so a
// request at an unchanged resolution and format allocates nothing.
// Completions arrive asynchronously and are sequenced per request; stale or
// duplicate callbacks are dropped.
//
// # Quick Start
//
//	exec := texpack.NewSoftwareExecutor(texpack.SoftwareConfig{})
//	defer exec.Close()
//
//	p := texpack.New(exec, texpack.WithExporter(&export.FileExporter{Path: "packed.png"}))
//	defer p.Close()
//
//	req := texpack.DefaultRequest()
//	req.Contributions[0] = texpack.Contribution{Image: rough, Source: texpack.ChannelR, Multiply: 1}
//	req.Contributions[1] = texpack.Contribution{Image: ao, Source: texpack.ChannelR, Invert: true, Multiply: 1}
//	job, err := p.Finalize(req)
//	if err != nil {
//		return err
//	}
//	err = job.Wait(ctx)
//
// # Executors
//
// SoftwareExecutor runs both passes on the CPU. The gpu package provides an
// Executor that runs them as wgpu compute shaders.
//
// # Logging
//
// texpack is silent by default. SetLogger installs a log/slog logger for
// the package and for executors that accept one.
package texpack

// Version information
const (
	// Version is the current version of the module
	Version = "0.1.0"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 1

	// VersionPatch is the patch version
	VersionPatch = 0
)

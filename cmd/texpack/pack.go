package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gogpu/texpack"
	"github.com/gogpu/texpack/export"
	"github.com/gogpu/texpack/gpu"
	"github.com/spf13/cobra"
)

type packOptions struct {
	sources    [4]string
	white      [4]bool
	resolution int
	pot        bool
	format     string
	preview    string
	out        string
	dir        string
	backend    string
	workers    int
	memoryMB   int
	spirv      bool
	timeout    time.Duration
}

func newPackCmd() *cobra.Command {
	o := &packOptions{}
	cmd := &cobra.Command{
		Use:   "pack",
		Short: "Pack up to four image channels into one texture",
		Long: `Pack builds one texture whose R, G, B and A channels are read from
channels of other images. Each source is path:channel[:invert][:multiplier],
for example --g ao.png:r:invert or --a mask.png:a:0.5.

With --preview r|g|b|a the chosen channel is written to every color channel
of the output instead of packing all four.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPack(cmd, o)
		},
	}

	f := cmd.Flags()
	for i, name := range []string{"r", "g", "b", "a"} {
		upper := strings.ToUpper(name)
		f.StringVar(&o.sources[i], name, "", upper+" source as path:channel[:invert][:multiplier]")
		f.BoolVar(&o.white[i], name+"-white", false, "fill "+upper+" with white")
	}
	f.IntVar(&o.resolution, "resolution", texpack.DefaultResolution, "output width and height (16..8192)")
	f.BoolVar(&o.pot, "pot", true, "round the resolution up to a power of two")
	f.StringVar(&o.format, "format", texpack.FormatRGBA32.String(), "output pixel format (see texpack formats)")
	f.StringVar(&o.preview, "preview", "all", "preview one channel: all, r, g, b or a")
	f.StringVarP(&o.out, "out", "o", "", "output file; the extension follows the format")
	f.StringVar(&o.dir, "dir", ".", "output directory when --out is not set")
	f.StringVar(&o.backend, "backend", "auto", "executor: auto, gpu or software")
	f.IntVar(&o.workers, "workers", 0, "software executor workers (0 = GOMAXPROCS)")
	f.IntVar(&o.memoryMB, "memory-mb", 0, "GPU memory budget in MB (0 = default)")
	f.BoolVar(&o.spirv, "spirv", false, "compile GPU shaders to SPIR-V")
	f.DurationVar(&o.timeout, "timeout", time.Minute, "give up after this long")
	return cmd
}

func runPack(cmd *cobra.Command, o *packOptions) error {
	req, err := o.request()
	if err != nil {
		return err
	}

	exec, backend, err := o.executor()
	if err != nil {
		return err
	}
	defer exec.Close()

	exporter := &export.FileExporter{Path: o.out, Dir: o.dir}
	p := texpack.New(exec, texpack.WithExporter(exporter))
	defer p.Close()

	var job *texpack.Job
	if req.Preview.IsRestricted() {
		job, err = p.Preview(req)
	} else {
		job, err = p.Finalize(req)
	}
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), o.timeout)
	defer cancel()
	if err := job.Wait(ctx); err != nil {
		return err
	}
	if req.Preview.IsRestricted() {
		if err := exporter.Export(job.Result(), req.Format); err != nil {
			return err
		}
	}

	compute, raster := job.Passes()
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: %dx%d %s, %d compute + %d raster pass(es) on %s\n",
		exporter.LastPath(), req.Resolution, req.Resolution, req.Format, compute, raster, backend)
	return err
}

// request builds the packing request from the flags.
func (o *packOptions) request() (texpack.Request, error) {
	req := texpack.DefaultRequest()
	for i, name := range []string{"R", "G", "B", "A"} {
		c, err := contribution(name, o.sources[i], o.white[i])
		if err != nil {
			return req, err
		}
		req.Contributions[i] = c
	}

	req.Resolution = texpack.SnapResolution(o.resolution, o.pot)
	if req.Resolution != o.resolution {
		texpack.Logger().Info("texpack: resolution adjusted", "from", o.resolution, "to", req.Resolution)
	}

	var err error
	if req.Format, err = texpack.ParsePixelFormat(o.format); err != nil {
		return req, err
	}
	if req.Preview, err = texpack.ParsePreviewMode(o.preview); err != nil {
		return req, err
	}
	return req, nil
}

// executor opens the selected backend.
func (o *packOptions) executor() (gpu.Closer, string, error) {
	cfg := gpu.Config{MaxMemoryMB: o.memoryMB, UseSPIRV: o.spirv}
	switch o.backend {
	case "software":
		return texpack.NewSoftwareExecutor(texpack.SoftwareConfig{Workers: o.workers}), "software", nil
	case "gpu":
		e, err := gpu.NewExecutor(cfg)
		if err != nil {
			return nil, "", err
		}
		return e, "gpu", nil
	case "auto", "":
		exec, onGPU := gpu.NewExecutorOrSoftware(cfg, o.workers)
		if onGPU {
			return exec, "gpu", nil
		}
		return exec, "software", nil
	default:
		return nil, "", fmt.Errorf("unknown backend %q (want auto, gpu or software)", o.backend)
	}
}

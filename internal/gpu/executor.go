//go:build !nogpu

package gpu

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/texpack"
	intImage "github.com/gogpu/texpack/internal/image"
	"github.com/gogpu/wgpu/hal"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"
)

// DefaultFenceTimeout bounds the wait for one submitted pass.
const DefaultFenceTimeout = 5 * time.Second

// workgroupSize matches @workgroup_size in the pack and adjust shaders.
const workgroupSize = 8

var (
	// ErrNoAdapter is returned when no GPU adapter is available.
	ErrNoAdapter = errors.New("gpu: no GPU adapters found")

	// ErrFenceTimeout is returned when a submitted pass does not signal
	// its fence within Config.FenceTimeout.
	ErrFenceTimeout = errors.New("gpu: fence wait timed out")

	errForeignImage = errors.New("gpu: image was not created by this executor")
)

// Config configures an Executor.
type Config struct {
	// MaxMemoryMB is the budget for packing targets in megabytes.
	// Values below MinMemoryMB select DefaultMaxMemoryMB.
	MaxMemoryMB int

	// FenceTimeout bounds the wait for each pass. Zero selects
	// DefaultFenceTimeout.
	FenceTimeout time.Duration

	// UseSPIRV compiles the shaders to SPIR-V with naga instead of handing
	// WGSL to the backend.
	UseSPIRV bool

	// SourceCacheMB keeps up to this many megabytes of resampled sources
	// on the host between passes. Zero disables the cache. Entries are
	// keyed by image pointer: after editing an image in place, call
	// Executor.ClearSourceCache.
	SourceCacheMB int
}

// Executor is a texpack.Executor on a wgpu/hal device. Images are storage
// buffers of vec4<f32> texels; both passes are compute dispatches.
//
// Device access is serialized. Each pass runs on its own goroutine, which
// encodes, submits, waits on a fence and then reports completion.
type Executor struct {
	mu sync.Mutex

	instance hal.Instance
	device   hal.Device
	queue    hal.Queue
	external bool // device is shared, don't destroy on Close

	pack   *computePipeline
	adjust *computePipeline
	empty  hal.Buffer // bound to unused source slots

	memory  *MemoryManager
	sources *intImage.SourceCache
	timeout time.Duration
	spirv   bool

	passes sync.WaitGroup
	closed bool
}

var _ texpack.Executor = (*Executor)(nil)

// NewExecutor opens the first Vulkan adapter, preferring a discrete or
// integrated GPU, and builds the pipelines.
func NewExecutor(cfg Config) (*Executor, error) {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return nil, fmt.Errorf("gpu: vulkan backend not available")
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("gpu: create instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, ErrNoAdapter
	}
	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}
	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("gpu: open device: %w", err)
	}

	e := newExecutor(openDev.Device, openDev.Queue, cfg)
	e.instance = instance
	if err := e.init(); err != nil {
		openDev.Device.Destroy()
		instance.Destroy()
		return nil, err
	}
	slogger().Info("gpu: executor initialized", "adapter", selected.Info.Name)
	return e, nil
}

// NewExecutorWithDevice builds an executor on a device owned by the caller.
// Close releases the executor's resources but not the device.
func NewExecutorWithDevice(device hal.Device, queue hal.Queue, cfg Config) (*Executor, error) {
	if device == nil || queue == nil {
		return nil, fmt.Errorf("gpu: nil device or queue")
	}
	e := newExecutor(device, queue, cfg)
	e.external = true
	if err := e.init(); err != nil {
		return nil, err
	}
	slogger().Debug("gpu: executor on shared device")
	return e, nil
}

func newExecutor(device hal.Device, queue hal.Queue, cfg Config) *Executor {
	timeout := cfg.FenceTimeout
	if timeout <= 0 {
		timeout = DefaultFenceTimeout
	}
	e := &Executor{
		device:  device,
		queue:   queue,
		memory:  NewMemoryManager(cfg.MaxMemoryMB),
		timeout: timeout,
		spirv:   cfg.UseSPIRV,
	}
	if cfg.SourceCacheMB > 0 {
		e.sources = intImage.NewSourceCache(int64(cfg.SourceCacheMB) << 20)
	}
	return e
}

func (e *Executor) init() error {
	var err error
	e.pack, err = newComputePipeline(e.device, "texpack_pack", packShaderSource, 4, e.spirv)
	if err != nil {
		return fmt.Errorf("gpu: %w", err)
	}
	e.adjust, err = newComputePipeline(e.device, "texpack_adjust", adjustShaderSource, 1, e.spirv)
	if err != nil {
		e.pack.destroy(e.device)
		return fmt.Errorf("gpu: %w", err)
	}
	e.empty, err = e.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "texpack_empty", Size: texelBytes,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		e.adjust.destroy(e.device)
		e.pack.destroy(e.device)
		return fmt.Errorf("gpu: create empty buffer: %w", err)
	}
	return nil
}

// SetLogger implements the texpack logger propagation hook.
func (e *Executor) SetLogger(l *slog.Logger) { setLogger(l) }

// ClearSourceCache drops every cached resampled source.
func (e *Executor) ClearSourceCache() { e.sources.Clear() }

// MemoryStats returns the target memory accounting.
func (e *Executor) MemoryStats() MemoryStats { return e.memory.Stats() }

// Close waits for running passes and destroys the pipelines, and the device
// unless it is shared. Passes submitted afterwards complete with
// texpack.ErrClosed.
func (e *Executor) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.mu.Unlock()

	e.passes.Wait()

	e.mu.Lock()
	defer e.mu.Unlock()
	e.adjust.destroy(e.device)
	e.pack.destroy(e.device)
	if e.empty != nil {
		e.device.DestroyBuffer(e.empty)
		e.empty = nil
	}
	e.memory.Close()
	if !e.external {
		e.device.Destroy()
		if e.instance != nil {
			e.instance.Destroy()
		}
	}
	e.instance = nil
	e.device = nil
	e.queue = nil
}

// NewImage allocates a storage buffer target.
func (e *Executor) NewImage(width, height int, format texpack.PixelFormat) (texpack.Image, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("gpu: invalid image size %dx%d", width, height)
	}
	if !format.IsValid() {
		return nil, fmt.Errorf("%w: %s", texpack.ErrInvalidFormat, format)
	}
	size := uint64(width) * uint64(height) * texelBytes //nolint:gosec // positive dimensions

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, texpack.ErrClosed
	}
	if err := e.memory.Reserve(size); err != nil {
		return nil, err
	}
	buf, err := e.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "texpack_target", Size: size,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		e.memory.Free(size)
		return nil, fmt.Errorf("gpu: create target buffer: %w", err)
	}
	slogger().Debug("gpu: target allocated", "width", width, "height", height,
		"format", format, "gpu_format", format.GPUFormat(),
		"direct_write", format.SupportsRandomWrite(), "bytes", size)
	return &storageImage{exec: e, buf: buf, size: size, width: width, height: height, format: format}, nil
}

// ComputePass implements texpack.Executor.
func (e *Executor) ComputePass(sources [4]image.Image, dst texpack.Image, params texpack.BlitParams, allowComputeShortcut bool, onComplete func(error)) {
	e.run(texpack.PassCompute, onComplete, func() error {
		out, err := e.target(dst)
		if err != nil {
			return err
		}
		size := out.width
		if out.height != size {
			return fmt.Errorf("gpu: compute target must be square, got %dx%d", size, out.height)
		}

		var inputs [4]hal.Buffer
		defer func() {
			for _, b := range inputs {
				if b != nil {
					e.device.DestroyBuffer(b)
				}
			}
		}()
		for _, d := range params {
			if !d.IsActive() || inputs[d.Slot] != nil {
				continue
			}
			img := sources[d.Slot]
			if img == nil {
				return fmt.Errorf("gpu: source slot %d is nil", d.Slot)
			}
			inputs[d.Slot], err = e.upload(e.sources.Resample(img, size))
			if err != nil {
				return err
			}
		}

		bindings := make([]binding, 0, 5)
		for _, b := range inputs {
			if b == nil {
				bindings = append(bindings, binding{e.empty, texelBytes})
			} else {
				bindings = append(bindings, binding{b, out.size})
			}
		}
		bindings = append(bindings, binding{out.buf, out.size})

		shortcut := allowComputeShortcut && params.IsIdentity()
		return e.dispatch(e.pack, encodeParams(size, out.format, params, shortcut), bindings, size)
	})
}

// RasterPass implements texpack.Executor.
func (e *Executor) RasterPass(src, dst texpack.Image, params texpack.BlitParams, onComplete func(error)) {
	e.run(texpack.PassRaster, onComplete, func() error {
		in, err := e.target(src)
		if err != nil {
			return err
		}
		out, err := e.target(dst)
		if err != nil {
			return err
		}
		if in.width != out.width || in.height != out.height {
			return fmt.Errorf("gpu: raster size mismatch %dx%d -> %dx%d", in.width, in.height, out.width, out.height)
		}
		bindings := []binding{{in.buf, in.size}, {out.buf, out.size}}
		return e.dispatch(e.adjust, encodeParams(out.width, out.format, params, false), bindings, out.width)
	})
}

// run executes body on a new goroutine holding the device lock and reports
// the result after releasing it.
func (e *Executor) run(pass texpack.Pass, onComplete func(error), body func() error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		go onComplete(texpack.ErrClosed)
		return
	}
	e.passes.Add(1)
	e.mu.Unlock()

	go func() {
		defer e.passes.Done()
		start := time.Now()
		e.mu.Lock()
		err := body()
		e.mu.Unlock()
		if err != nil {
			slogger().Warn("gpu: pass failed", "pass", pass, "err", err)
		} else {
			slogger().Debug("gpu: pass done", "pass", pass, "elapsed", time.Since(start))
		}
		onComplete(err)
	}()
}

// target resolves img to one of this executor's live images. Caller holds mu.
func (e *Executor) target(img texpack.Image) (*storageImage, error) {
	si, ok := img.(*storageImage)
	if !ok || si.exec != e {
		return nil, fmt.Errorf("%w: %T", errForeignImage, img)
	}
	if si.Released() {
		return nil, texpack.ErrReleased
	}
	return si, nil
}

// upload copies a float image into a new storage buffer. Caller holds mu.
func (e *Executor) upload(f *intImage.Float) (hal.Buffer, error) {
	data := packFloats(f)
	buf, err := e.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "texpack_source", Size: uint64(len(data)),
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create source buffer: %w", err)
	}
	e.queue.WriteBuffer(buf, 0, data)
	return buf, nil
}

// binding is a storage buffer bound after the uniform.
type binding struct {
	buf  hal.Buffer
	size uint64
}

// dispatch runs one compute pass over a size x size grid and waits for it.
// Caller holds mu.
func (e *Executor) dispatch(p *computePipeline, params []byte, bindings []binding, size int) error {
	ub, err := e.device.CreateBuffer(&hal.BufferDescriptor{
		Label: p.label + "_params", Size: uint64(len(params)),
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create uniform buffer: %w", err)
	}
	defer e.device.DestroyBuffer(ub)
	e.queue.WriteBuffer(ub, 0, params)

	entries := []gputypes.BindGroupEntry{
		{Binding: 0, Resource: gputypes.BufferBinding{Buffer: ub.NativeHandle(), Offset: 0, Size: uint64(len(params))}},
	}
	for i, b := range bindings {
		entries = append(entries, gputypes.BindGroupEntry{
			Binding:  uint32(i + 1), //nolint:gosec // at most 5 bindings
			Resource: gputypes.BufferBinding{Buffer: b.buf.NativeHandle(), Offset: 0, Size: b.size},
		})
	}
	bg, err := e.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label: p.label + "_bind", Layout: p.bindLayout, Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("create bind group: %w", err)
	}
	defer e.device.DestroyBindGroup(bg)

	encoder, err := e.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: p.label + "_encoder"})
	if err != nil {
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding(p.label); err != nil {
		return fmt.Errorf("begin encoding: %w", err)
	}
	groups := uint32((size + workgroupSize - 1) / workgroupSize) //nolint:gosec // size <= MaxResolution
	pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: p.label})
	pass.SetPipeline(p.pipeline)
	pass.SetBindGroup(0, bg, nil)
	pass.Dispatch(groups, groups, 1)
	pass.End()
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("end encoding: %w", err)
	}
	defer e.device.FreeCommandBuffer(cmdBuf)

	return e.submitAndWait(cmdBuf)
}

// submitAndWait submits cmdBuf and blocks until its fence signals. Caller
// holds mu.
func (e *Executor) submitAndWait(cmdBuf hal.CommandBuffer) error {
	fence, err := e.device.CreateFence()
	if err != nil {
		return fmt.Errorf("create fence: %w", err)
	}
	defer e.device.DestroyFence(fence)
	if err := e.queue.Submit([]hal.CommandBuffer{cmdBuf}, fence, 1); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	ok, err := e.device.Wait(fence, 1, e.timeout)
	if err != nil {
		return fmt.Errorf("wait for GPU: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w after %v", ErrFenceTimeout, e.timeout)
	}
	return nil
}

// readBack copies a target to a staging buffer and decodes it.
func (e *Executor) readBack(s *storageImage) (*texpack.Pixels, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.device == nil {
		return nil, texpack.ErrClosed
	}

	staging, err := e.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "texpack_staging", Size: s.size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: create staging buffer: %w", err)
	}
	defer e.device.DestroyBuffer(staging)

	encoder, err := e.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "texpack_readback"})
	if err != nil {
		return nil, fmt.Errorf("gpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("texpack_readback"); err != nil {
		return nil, fmt.Errorf("gpu: begin encoding: %w", err)
	}
	encoder.CopyBufferToBuffer(s.buf, staging, []hal.BufferCopy{
		{SrcOffset: 0, DstOffset: 0, Size: s.size},
	})
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return nil, fmt.Errorf("gpu: end encoding: %w", err)
	}
	defer e.device.FreeCommandBuffer(cmdBuf)
	if err := e.submitAndWait(cmdBuf); err != nil {
		return nil, fmt.Errorf("gpu: readback: %w", err)
	}

	data := make([]byte, s.size)
	if err := e.queue.ReadBuffer(staging, 0, data); err != nil {
		return nil, fmt.Errorf("gpu: read staging buffer: %w", err)
	}
	px := texpack.NewPixels(s.width, s.height, s.format)
	unpackFloats(data, px.Data)
	return px, nil
}

// free destroys a target buffer.
func (e *Executor) free(s *storageImage) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.device == nil {
		return
	}
	e.device.DestroyBuffer(s.buf)
	e.memory.Free(s.size)
}

package texpack

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"

	intImage "github.com/gogpu/texpack/internal/image"
	"github.com/gogpu/texpack/internal/parallel"
)

// SoftwareConfig configures a SoftwareExecutor.
type SoftwareConfig struct {
	// Workers is the number of worker goroutines. Zero or negative uses
	// GOMAXPROCS.
	Workers int

	// SourceCacheMB keeps up to this many megabytes of resampled sources
	// between passes. Zero disables the cache. Entries are keyed by image
	// pointer: after editing an image in place, call ClearSourceCache.
	SourceCacheMB int
}

// SoftwareExecutor is a CPU Executor. Images are float32 RGBA buffers and
// passes run on a goroutine that splits rows across a worker pool. It is the
// fallback when no GPU is available and the reference for the GPU executor.
type SoftwareExecutor struct {
	pool    *parallel.WorkerPool
	sources *intImage.SourceCache
	logger  atomic.Pointer[slog.Logger]
	passes  sync.WaitGroup
	closeMu sync.RWMutex
	closed  bool
}

// NewSoftwareExecutor creates a SoftwareExecutor. Call Close to stop its
// workers.
func NewSoftwareExecutor(cfg SoftwareConfig) *SoftwareExecutor {
	e := &SoftwareExecutor{pool: parallel.NewWorkerPool(cfg.Workers)}
	if cfg.SourceCacheMB > 0 {
		e.sources = intImage.NewSourceCache(int64(cfg.SourceCacheMB) << 20)
	}
	return e
}

// SetLogger sets the executor logger. Nil uses the package logger.
func (e *SoftwareExecutor) SetLogger(l *slog.Logger) {
	e.logger.Store(l)
}

func (e *SoftwareExecutor) log() *slog.Logger {
	if l := e.logger.Load(); l != nil {
		return l
	}
	return Logger()
}

// ClearSourceCache drops every cached resampled source.
func (e *SoftwareExecutor) ClearSourceCache() {
	e.sources.Clear()
}

// Close waits for running passes and stops the workers. Passes submitted
// afterwards complete with ErrClosed.
func (e *SoftwareExecutor) Close() {
	e.closeMu.Lock()
	if e.closed {
		e.closeMu.Unlock()
		return
	}
	e.closed = true
	e.closeMu.Unlock()

	e.passes.Wait()
	e.pool.Close()
}

// NewImage allocates a zeroed image.
func (e *SoftwareExecutor) NewImage(width, height int, format PixelFormat) (Image, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("texpack: invalid image size %dx%d", width, height)
	}
	if !format.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidFormat, format)
	}
	return &softwareImage{buf: intImage.NewFloat(width, height), format: format}, nil
}

// ComputePass implements Executor.
func (e *SoftwareExecutor) ComputePass(sources [4]image.Image, dst Image, params BlitParams, allowComputeShortcut bool, onComplete func(error)) {
	e.run(PassCompute, onComplete, func() error {
		out, err := e.target(dst)
		if err != nil {
			return err
		}
		size := out.buf.Width()
		if out.buf.Height() != size {
			return fmt.Errorf("texpack: compute target must be square, got %dx%d", size, out.buf.Height())
		}

		var src [4]*intImage.Float
		for i, d := range params {
			if !d.IsActive() || src[d.Slot] != nil {
				continue
			}
			img := sources[d.Slot]
			if img == nil {
				return fmt.Errorf("texpack: source slot %d is nil", d.Slot)
			}
			src[d.Slot] = e.sources.Resample(img, size)
			e.log().Debug("texpack: source resampled", "channel", channelAt(i), "slot", d.Slot, "size", size)
		}

		if allowComputeShortcut && params.IsIdentity() {
			in := src[params[0].Slot]
			e.forEachPixel(out, func(x, y int) [4]float32 {
				return in.RGBA4(x, y)
			})
			return nil
		}

		e.forEachPixel(out, func(x, y int) [4]float32 {
			var v [4]float32
			for i, d := range params {
				if d.IsActive() {
					v[i] = src[d.Slot].RGBA4(x, y)[d.Channel.Index()]
				} else {
					v[i] = unmapped(i)
				}
			}
			return v
		})
		return nil
	})
}

// RasterPass implements Executor.
func (e *SoftwareExecutor) RasterPass(src, dst Image, params BlitParams, onComplete func(error)) {
	e.run(PassRaster, onComplete, func() error {
		in, err := e.target(src)
		if err != nil {
			return err
		}
		out, err := e.target(dst)
		if err != nil {
			return err
		}
		if in.buf.Width() != out.buf.Width() || in.buf.Height() != out.buf.Height() {
			return fmt.Errorf("texpack: raster size mismatch %dx%d -> %dx%d",
				in.buf.Width(), in.buf.Height(), out.buf.Width(), out.buf.Height())
		}

		e.forEachPixel(out, func(x, y int) [4]float32 {
			s := in.buf.RGBA4(x, y)
			var v [4]float32
			for i, d := range params {
				if d.IsActive() {
					v[i] = d.Apply(s[d.Channel.Index()])
				} else {
					v[i] = unmapped(i)
				}
			}
			return v
		})
		return nil
	})
}

// unmapped is the value written to output channel i when it has no source.
func unmapped(i int) float32 {
	if i == 3 {
		return 1
	}
	return 0
}

// run executes pass on a new goroutine and reports its result.
func (e *SoftwareExecutor) run(pass Pass, onComplete func(error), body func() error) {
	e.closeMu.RLock()
	if e.closed {
		e.closeMu.RUnlock()
		go onComplete(ErrClosed)
		return
	}
	e.passes.Add(1)
	e.closeMu.RUnlock()

	go func() {
		defer e.passes.Done()
		err := body()
		if err != nil {
			e.log().Warn("texpack: software pass failed", "pass", pass, "err", err)
		} else {
			e.log().Debug("texpack: software pass done", "pass", pass)
		}
		onComplete(err)
	}()
}

func (e *SoftwareExecutor) target(img Image) (*softwareImage, error) {
	si, ok := img.(*softwareImage)
	if !ok {
		return nil, fmt.Errorf("%w: %T was not created by this executor", errForeignImage, img)
	}
	if si.Released() {
		return nil, ErrReleased
	}
	return si, nil
}

// forEachPixel writes pixel(x, y), quantized to the image format, to every
// pixel of dst.
func (e *SoftwareExecutor) forEachPixel(dst *softwareImage, pixel func(x, y int) [4]float32) {
	buf, format := dst.buf, dst.format
	parallel.ForEachBand(e.pool, buf.Height(), func(b parallel.Band) {
		for y := b.Y0; y < b.Y1; y++ {
			for x := range buf.Width() {
				buf.SetRGBA4(x, y, format.Quantize(pixel(x, y)))
			}
		}
	})
}

// softwareImage is an Image held in memory.
type softwareImage struct {
	buf      *intImage.Float
	format   PixelFormat
	released atomic.Bool
}

func (s *softwareImage) Width() int          { return s.buf.Width() }
func (s *softwareImage) Height() int         { return s.buf.Height() }
func (s *softwareImage) Format() PixelFormat { return s.format }
func (s *softwareImage) Released() bool      { return s.released.Load() }
func (s *softwareImage) Release()            { s.released.Store(true) }

// ReadPixels copies the image.
func (s *softwareImage) ReadPixels() (*Pixels, error) {
	if s.Released() {
		return nil, ErrReleased
	}
	px := NewPixels(s.buf.Width(), s.buf.Height(), s.format)
	copy(px.Data, s.buf.Pix)
	return px, nil
}

var errForeignImage = errors.New("texpack: foreign image")

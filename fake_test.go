package texpack

import (
	"image"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeImage is an Image that holds no pixels.
type fakeImage struct {
	id       int
	w, h     int
	format   PixelFormat
	released atomic.Bool
}

func (f *fakeImage) Width() int          { return f.w }
func (f *fakeImage) Height() int         { return f.h }
func (f *fakeImage) Format() PixelFormat { return f.format }
func (f *fakeImage) Released() bool      { return f.released.Load() }
func (f *fakeImage) Release()            { f.released.Store(true) }

func (f *fakeImage) ReadPixels() (*Pixels, error) {
	if f.Released() {
		return nil, ErrReleased
	}
	return NewPixels(f.w, f.h, f.format), nil
}

// passCall records one pass submitted to a fakeExecutor.
type passCall struct {
	pass     Pass
	sources  [4]image.Image
	src, dst Image
	params   BlitParams
	shortcut bool
	done     func(error)
}

// fakeExecutor records passes. With auto set it completes every pass
// synchronously with autoErr; otherwise the test completes them from calls.
type fakeExecutor struct {
	mu       sync.Mutex
	nextID   int
	allocErr error
	allocs   []*fakeImage
	auto     bool
	autoErr  error
	calls    chan passCall
}

func newFakeExecutor(auto bool) *fakeExecutor {
	return &fakeExecutor{auto: auto, calls: make(chan passCall, 64)}
}

func (f *fakeExecutor) NewImage(w, h int, format PixelFormat) (Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.allocErr != nil {
		return nil, f.allocErr
	}
	f.nextID++
	img := &fakeImage{id: f.nextID, w: w, h: h, format: format}
	f.allocs = append(f.allocs, img)
	return img, nil
}

func (f *fakeExecutor) setAllocErr(err error) {
	f.mu.Lock()
	f.allocErr = err
	f.mu.Unlock()
}

func (f *fakeExecutor) allocCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.allocs)
}

func (f *fakeExecutor) ComputePass(sources [4]image.Image, dst Image, params BlitParams, shortcut bool, onComplete func(error)) {
	f.submit(passCall{pass: PassCompute, sources: sources, dst: dst, params: params, shortcut: shortcut, done: onComplete})
}

func (f *fakeExecutor) RasterPass(src, dst Image, params BlitParams, onComplete func(error)) {
	f.submit(passCall{pass: PassRaster, src: src, dst: dst, params: params, done: onComplete})
}

func (f *fakeExecutor) submit(c passCall) {
	f.calls <- c
	if f.auto {
		c.done(f.autoErr)
	}
}

// next returns the next submitted pass or fails the test.
func (f *fakeExecutor) next(t *testing.T) passCall {
	t.Helper()
	select {
	case c := <-f.calls:
		return c
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a pass")
		return passCall{}
	}
}

// noMore fails the test if another pass was submitted.
func (f *fakeExecutor) noMore(t *testing.T) {
	t.Helper()
	select {
	case c := <-f.calls:
		t.Fatalf("unexpected %s pass", c.pass)
	default:
	}
}

// recordingExporter counts exports and remembers the last image.
type recordingExporter struct {
	mu     sync.Mutex
	calls  int
	last   Image
	format PixelFormat
	err    error
	hook   func(Image)
}

func (r *recordingExporter) Export(img Image, format PixelFormat) error {
	if r.hook != nil {
		r.hook(img)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	r.last = img
	r.format = format
	return r.err
}

func (r *recordingExporter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// testImage returns a size x size image with a constant color.
func testImage(size int, r, g, b, a uint8) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = r, g, b, a
	}
	return img
}

// waitJob waits for job with a timeout.
func waitJob(t *testing.T, job *Job) error {
	t.Helper()
	select {
	case <-job.Done():
		return job.Err()
	case <-time.After(5 * time.Second):
		t.Fatalf("job %s did not finish, state %s", job.ID(), job.State())
		return nil
	}
}

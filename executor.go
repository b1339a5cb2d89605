package texpack

import "image"

// Executor runs blit passes. Implementations are asynchronous: both pass
// methods return immediately and call onComplete exactly once, with nil on
// success or the failure, from any goroutine.
//
// A compute channel with an active mapping reads channel Channel of
// sources[Slot]; an unmapped channel writes 0 for R, G, B and 1 for A. The
// raster pass reads channel Channel of src and applies ChannelData.Apply.
// Results are quantized to the destination format.
type Executor interface {
	// NewImage allocates a width x height image. The image is ready to be
	// written when NewImage returns.
	NewImage(width, height int, format PixelFormat) (Image, error)

	// ComputePass combines sources into dst. With allowComputeShortcut the
	// executor may copy a source directly when params is an identity mapping.
	ComputePass(sources [4]image.Image, dst Image, params BlitParams, allowComputeShortcut bool, onComplete func(error))

	// RasterPass applies per-channel adjustments from src into dst.
	RasterPass(src, dst Image, params BlitParams, onComplete func(error))
}

// Image is an executor-owned image.
type Image interface {
	Width() int
	Height() int
	Format() PixelFormat

	// Released reports whether Release has been called.
	Released() bool

	// Release frees the image. It is safe to call more than once.
	Release()

	// ReadPixels reads the image back. It returns ErrReleased after Release.
	ReadPixels() (*Pixels, error)
}

// Exporter receives the final image of a finalizing request.
type Exporter interface {
	Export(img Image, format PixelFormat) error
}

// ExporterFunc adapts a function to Exporter.
type ExporterFunc func(img Image, format PixelFormat) error

// Export calls f(img, format).
func (f ExporterFunc) Export(img Image, format PixelFormat) error { return f(img, format) }

// Pixels is a CPU copy of an image, interleaved RGBA float32 in row-major
// order. Channels the format does not store hold 0 (G, B) or 1 (A).
type Pixels struct {
	Width, Height int
	Format        PixelFormat
	Data          []float32
}

// NewPixels allocates zeroed pixels.
func NewPixels(width, height int, format PixelFormat) *Pixels {
	return &Pixels{
		Width:  width,
		Height: height,
		Format: format,
		Data:   make([]float32, width*height*4),
	}
}

// At returns the RGBA value at (x, y).
func (p *Pixels) At(x, y int) [4]float32 {
	i := (y*p.Width + x) * 4
	return [4]float32{p.Data[i], p.Data[i+1], p.Data[i+2], p.Data[i+3]}
}

// Set stores v at (x, y).
func (p *Pixels) Set(x, y int, v [4]float32) {
	i := (y*p.Width + x) * 4
	copy(p.Data[i:i+4], v[:])
}

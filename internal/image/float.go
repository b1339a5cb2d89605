package image

import (
	"image"
	"image/color"
	"math"
)

// Float is an RGBA image with one float32 per channel, non-premultiplied.
// Values are not clamped and may exceed [0, 1] for HDR sources.
type Float struct {
	// Pix holds the pixels in R, G, B, A order, row-major.
	Pix []float32
	// Stride is the number of float32 values per row.
	Stride int
	// Rect is the image bounds.
	Rect image.Rectangle
}

// NewFloat creates a zeroed width x height image at the origin.
func NewFloat(width, height int) *Float {
	return &Float{
		Pix:    make([]float32, width*height*4),
		Stride: width * 4,
		Rect:   image.Rect(0, 0, width, height),
	}
}

// Width returns the image width.
func (f *Float) Width() int { return f.Rect.Dx() }

// Height returns the image height.
func (f *Float) Height() int { return f.Rect.Dy() }

// Bounds implements image.Image.
func (f *Float) Bounds() image.Rectangle { return f.Rect }

// ColorModel implements image.Image.
func (f *Float) ColorModel() color.Model { return color.NRGBA64Model }

// At implements image.Image. Values are clamped to [0, 1].
func (f *Float) At(x, y int) color.Color {
	if !(image.Point{x, y}.In(f.Rect)) {
		return color.NRGBA64{}
	}
	v := f.RGBA4(x, y)
	return color.NRGBA64{R: to16(v[0]), G: to16(v[1]), B: to16(v[2]), A: to16(v[3])}
}

// PixOffset returns the index of the first value of pixel (x, y).
func (f *Float) PixOffset(x, y int) int {
	return (y-f.Rect.Min.Y)*f.Stride + (x-f.Rect.Min.X)*4
}

// RGBA4 returns the pixel at (x, y).
func (f *Float) RGBA4(x, y int) [4]float32 {
	i := f.PixOffset(x, y)
	return [4]float32{f.Pix[i], f.Pix[i+1], f.Pix[i+2], f.Pix[i+3]}
}

// SetRGBA4 sets the pixel at (x, y).
func (f *Float) SetRGBA4(x, y int, v [4]float32) {
	i := f.PixOffset(x, y)
	copy(f.Pix[i:i+4], v[:])
}

// Row returns the values of row y (0-based from Rect.Min.Y).
func (f *Float) Row(y int) []float32 {
	start := y * f.Stride
	return f.Pix[start : start+f.Rect.Dx()*4]
}

func to16(v float32) uint16 {
	if v != v || v <= 0 {
		return 0
	}
	if v >= 1 {
		return 0xffff
	}
	return uint16(math.Round(float64(v) * 0xffff))
}

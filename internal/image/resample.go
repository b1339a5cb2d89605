package image

import (
	"image"
	"image/color"

	"github.com/mrjoshuak/go-openexr/exr"
	"github.com/nfnt/resize"
)

// Resample returns src as a size x size Float image.
//
// A Float of the right size is returned as is. EXR images are sampled
// nearest-neighbour so HDR values survive. Other images are scaled with
// bilinear filtering and converted from 16-bit non-premultiplied color.
func Resample(src image.Image, size int) *Float {
	switch img := src.(type) {
	case *Float:
		if img.Width() == size && img.Height() == size {
			return img
		}
		return sampleNearest(img.Rect, size, img.RGBA4)
	case *exr.RGBAImage:
		return sampleNearest(img.Rect, size, func(x, y int) [4]float32 {
			r, g, b, a := img.RGBA(x, y)
			return [4]float32{r, g, b, a}
		})
	}

	b := src.Bounds()
	if b.Dx() == 1 && b.Dy() == 1 {
		// Solid placeholders.
		f := fromImage(src, b)
		return sampleNearest(f.Rect, size, f.RGBA4)
	}
	if b.Dx() != size || b.Dy() != size {
		src = resize.Resize(uint(size), uint(size), src, resize.Bilinear)
		b = src.Bounds()
	}
	return fromImage(src, b)
}

// sampleNearest maps every destination pixel to the nearest pixel of a
// source with bounds r.
func sampleNearest(r image.Rectangle, size int, at func(x, y int) [4]float32) *Float {
	dst := NewFloat(size, size)
	w, h := r.Dx(), r.Dy()
	if w == 0 || h == 0 {
		return dst
	}
	for y := range size {
		sy := r.Min.Y + y*h/size
		for x := range size {
			sx := r.Min.X + x*w/size
			dst.SetRGBA4(x, y, at(sx, sy))
		}
	}
	return dst
}

func fromImage(src image.Image, b image.Rectangle) *Float {
	dst := NewFloat(b.Dx(), b.Dy())
	if nrgba, ok := src.(*image.NRGBA); ok {
		for y := range b.Dy() {
			row := dst.Row(y)
			off := nrgba.PixOffset(b.Min.X, b.Min.Y+y)
			for i := range row {
				row[i] = float32(nrgba.Pix[off+i]) / 0xff
			}
		}
		return dst
	}
	for y := range b.Dy() {
		for x := range b.Dx() {
			c := color.NRGBA64Model.Convert(src.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA64)
			dst.SetRGBA4(x, y, [4]float32{
				float32(c.R) / 0xffff,
				float32(c.G) / 0xffff,
				float32(c.B) / 0xffff,
				float32(c.A) / 0xffff,
			})
		}
	}
	return dst
}

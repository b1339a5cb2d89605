package texpack

import (
	"fmt"
	"math"
	"strings"

	"github.com/gogpu/gputypes"
	"github.com/mrjoshuak/go-openexr/half"
)

// PixelFormat is the pixel format of the packed output image.
type PixelFormat uint8

// Supported output formats. The zero value is RGBA32, the default.
const (
	// FormatRGBA32 is 8-bit unsigned normalized RGBA.
	FormatRGBA32 PixelFormat = iota
	// FormatRHalf is a single 16-bit float channel.
	FormatRHalf
	// FormatRFloat is a single 32-bit float channel.
	FormatRFloat
	// FormatRGHalf is two 16-bit float channels.
	FormatRGHalf
	// FormatRGFloat is two 32-bit float channels.
	FormatRGFloat
	// FormatRGBAHalf is four 16-bit float channels.
	FormatRGBAHalf
	// FormatRGBAFloat is four 32-bit float channels.
	FormatRGBAFloat

	formatCount
)

var formatNames = [formatCount]string{
	FormatRGBA32:    "RGBA32",
	FormatRHalf:     "RHalf",
	FormatRFloat:    "RFloat",
	FormatRGHalf:    "RGHalf",
	FormatRGFloat:   "RGFloat",
	FormatRGBAHalf:  "RGBAHalf",
	FormatRGBAFloat: "RGBAFloat",
}

// Formats returns all supported pixel formats.
func Formats() []PixelFormat {
	out := make([]PixelFormat, 0, formatCount)
	for f := PixelFormat(0); f < formatCount; f++ {
		out = append(out, f)
	}
	return out
}

// IsValid reports whether f is a known format.
func (f PixelFormat) IsValid() bool { return f < formatCount }

func (f PixelFormat) String() string {
	if !f.IsValid() {
		return fmt.Sprintf("PixelFormat(%d)", uint8(f))
	}
	return formatNames[f]
}

// ChannelCount returns the number of channels stored per pixel (1, 2 or 4).
func (f PixelFormat) ChannelCount() int {
	switch f {
	case FormatRHalf, FormatRFloat:
		return 1
	case FormatRGHalf, FormatRGFloat:
		return 2
	case FormatRGBA32, FormatRGBAHalf, FormatRGBAFloat:
		return 4
	default:
		return 0
	}
}

// IsFloat reports whether channels are stored as floating point.
func (f PixelFormat) IsFloat() bool {
	return f.IsValid() && f != FormatRGBA32
}

// IsHalf reports whether channels are 16-bit floats.
func (f PixelFormat) IsHalf() bool {
	return f == FormatRHalf || f == FormatRGHalf || f == FormatRGBAHalf
}

// BytesPerPixel returns the storage size of one pixel.
func (f PixelFormat) BytesPerPixel() int {
	switch {
	case f == FormatRGBA32:
		return 4
	case f.IsHalf():
		return 2 * f.ChannelCount()
	case f.IsValid():
		return 4 * f.ChannelCount()
	default:
		return 0
	}
}

// SupportsRandomWrite reports whether a compute shader can write the format
// directly. 8-bit RGBA is the only format that needs an intermediate.
func (f PixelFormat) SupportsRandomWrite() bool {
	return f.IsValid() && f != FormatRGBA32
}

// GPUFormat returns the matching GPU texture format.
func (f PixelFormat) GPUFormat() gputypes.TextureFormat {
	switch f {
	case FormatRGBA32:
		return gputypes.TextureFormatRGBA8Unorm
	case FormatRHalf:
		return gputypes.TextureFormatR16Float
	case FormatRFloat:
		return gputypes.TextureFormatR32Float
	case FormatRGHalf:
		return gputypes.TextureFormatRG16Float
	case FormatRGFloat:
		return gputypes.TextureFormatRG32Float
	case FormatRGBAHalf:
		return gputypes.TextureFormatRGBA16Float
	case FormatRGBAFloat:
		return gputypes.TextureFormatRGBA32Float
	default:
		return gputypes.TextureFormatUndefined
	}
}

// Extension returns the file extension used when exporting the format:
// "png" for 8-bit RGBA and "exr" for float formats.
func (f PixelFormat) Extension() string {
	if f.IsFloat() {
		return "exr"
	}
	return "png"
}

// Quantize converts an RGBA value to what the format stores and reads it
// back. 8-bit channels are clamped and rounded, half channels are rounded to
// 16-bit floats. Channels the format does not store read back as 0, except
// alpha which reads back as 1.
func (f PixelFormat) Quantize(v [4]float32) [4]float32 {
	n := f.ChannelCount()
	out := [4]float32{0, 0, 0, 1}
	for i := 0; i < n; i++ {
		switch {
		case f == FormatRGBA32:
			out[i] = quantize8(v[i])
		case f.IsHalf():
			out[i] = half.FromFloat32(v[i]).Float32()
		default:
			out[i] = v[i]
		}
	}
	return out
}

func quantize8(v float32) float32 {
	if v != v {
		return 0
	}
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 1
	}
	return float32(math.Round(float64(v)*255)) / 255
}

// ParsePixelFormat parses a format name, case-insensitively.
func ParsePixelFormat(s string) (PixelFormat, error) {
	name := strings.TrimSpace(s)
	for f := PixelFormat(0); f < formatCount; f++ {
		if strings.EqualFold(formatNames[f], name) {
			return f, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
}

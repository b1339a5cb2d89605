//go:build !nogpu

package gpu

import (
	"encoding/binary"
	"math"
	"sync/atomic"

	"github.com/gogpu/texpack"
	intImage "github.com/gogpu/texpack/internal/image"
	"github.com/gogpu/wgpu/hal"
)

// texelBytes is the size of one vec4<f32> texel.
const texelBytes = 16

// storageImage is a texpack.Image backed by a storage buffer.
type storageImage struct {
	exec          *Executor
	buf           hal.Buffer
	size          uint64
	width, height int
	format        texpack.PixelFormat
	released      atomic.Bool
}

func (s *storageImage) Width() int                  { return s.width }
func (s *storageImage) Height() int                 { return s.height }
func (s *storageImage) Format() texpack.PixelFormat { return s.format }
func (s *storageImage) Released() bool              { return s.released.Load() }

// Release destroys the buffer. Later calls do nothing.
func (s *storageImage) Release() {
	if s.released.Swap(true) {
		return
	}
	s.exec.free(s)
}

// ReadPixels reads the buffer back from the GPU.
func (s *storageImage) ReadPixels() (*texpack.Pixels, error) {
	if s.Released() {
		return nil, texpack.ErrReleased
	}
	return s.exec.readBack(s)
}

// Uniform layout shared by pack.wgsl and adjust.wgsl.
const (
	paramsSize = 80

	// unmappedIndex marks a channel with no source in the slot and channel
	// vectors.
	unmappedIndex = 4
)

// Quantization modes.
const (
	quantNone   = 0
	quantUnorm8 = 1
	quantHalf   = 2
)

func quantMode(f texpack.PixelFormat) uint32 {
	switch {
	case f.IsHalf():
		return quantHalf
	case f.IsFloat():
		return quantNone
	default:
		return quantUnorm8
	}
}

// encodeParams serializes the shader uniform for a size x size pass.
func encodeParams(size int, format texpack.PixelFormat, params texpack.BlitParams, shortcut bool) []byte {
	le := binary.LittleEndian
	buf := make([]byte, paramsSize)
	le.PutUint32(buf[0:], uint32(size)) //nolint:gosec // size <= MaxResolution
	if shortcut {
		le.PutUint32(buf[4:], 1)
	}
	le.PutUint32(buf[8:], quantMode(format))
	le.PutUint32(buf[12:], uint32(format.ChannelCount())) //nolint:gosec // at most 4
	for i, d := range params {
		slot, ch := uint32(unmappedIndex), uint32(unmappedIndex)
		if d.IsActive() {
			slot, ch = uint32(d.Slot), uint32(d.Channel.Index()) //nolint:gosec // both in [0, 3] when active
		}
		le.PutUint32(buf[16+i*4:], slot)
		le.PutUint32(buf[32+i*4:], ch)
		le.PutUint32(buf[48+i*4:], uint32(d.Ops))
		le.PutUint32(buf[64+i*4:], math.Float32bits(d.Multiplier))
	}
	return buf
}

// packFloats serializes f as tightly packed little-endian vec4<f32> texels.
func packFloats(f *intImage.Float) []byte {
	w, h := f.Width(), f.Height()
	out := make([]byte, w*h*texelBytes)
	off := 0
	for y := range h {
		for _, v := range f.Row(y) {
			binary.LittleEndian.PutUint32(out[off:], math.Float32bits(v))
			off += 4
		}
	}
	return out
}

// unpackFloats decodes little-endian float32 values into dst.
func unpackFloats(data []byte, dst []float32) {
	n := min(len(dst), len(data)/4)
	for i := range n {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
}

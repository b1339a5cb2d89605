// Package export writes packed textures to disk.
//
// 8-bit results are written as PNG. Float results are written as OpenEXR
// with only the channels the format carries, stored as half or float to
// match the format.
package export

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gogpu/texpack"
	"github.com/google/uuid"
	"github.com/mrjoshuak/go-openexr/exr"
	"github.com/mrjoshuak/go-openexr/half"
)

// ErrNoDestination is returned when a FileExporter has neither Path nor Dir.
var ErrNoDestination = errors.New("export: no output path")

// channelNames are the EXR channel names in output order.
var channelNames = [4]string{"R", "G", "B", "A"}

// FileExporter is a texpack.Exporter that writes each exported image to a
// file. The file extension always follows the format: a Path with another
// extension has it replaced.
type FileExporter struct {
	// Path is the output file. When empty, a file named Name (or a
	// generated name) is created in Dir.
	Path string

	// Dir is the output directory used when Path is empty.
	Dir string

	// Name is the base file name used with Dir, without extension.
	Name string

	mu   sync.Mutex
	last string
}

var _ texpack.Exporter = (*FileExporter)(nil)

// Export reads img back and writes it in the encoding of format.
func (e *FileExporter) Export(img texpack.Image, format texpack.PixelFormat) error {
	path, err := e.destination(format)
	if err != nil {
		return err
	}
	px, err := img.ReadPixels()
	if err != nil {
		return fmt.Errorf("export: read pixels: %w", err)
	}
	if err := WriteFile(path, px); err != nil {
		return err
	}

	e.mu.Lock()
	e.last = path
	e.mu.Unlock()
	texpack.Logger().Info("texpack: exported", "path", path, "format", format,
		"width", px.Width, "height", px.Height)
	return nil
}

// LastPath returns the file written by the most recent successful Export.
func (e *FileExporter) LastPath() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last
}

func (e *FileExporter) destination(format texpack.PixelFormat) (string, error) {
	ext := "." + format.Extension()
	if e.Path != "" {
		return strings.TrimSuffix(e.Path, filepath.Ext(e.Path)) + ext, nil
	}
	if e.Dir == "" {
		return "", ErrNoDestination
	}
	name := e.Name
	if name == "" {
		name = "packed_" + uuid.NewString()[:8]
	}
	return filepath.Join(e.Dir, name+ext), nil
}

// WriteFile writes px to path, as PNG for 8-bit formats and EXR otherwise.
func WriteFile(path string, px *texpack.Pixels) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if px.Format.IsFloat() {
		err = WriteEXR(f, px)
	} else {
		err = WritePNG(f, px)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("export: write %s: %w", path, err)
	}
	return nil
}

// WritePNG encodes px as an 8-bit NRGBA PNG.
func WritePNG(w io.Writer, px *texpack.Pixels) error {
	return png.Encode(w, ToNRGBA(px))
}

// ToNRGBA converts px to 8 bits per channel, clamping to [0, 1].
func ToNRGBA(px *texpack.Pixels) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, px.Width, px.Height))
	for i, v := range px.Data {
		img.Pix[i] = to8(v)
	}
	return img
}

func to8(v float32) uint8 {
	if v != v || v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(math.Round(float64(v) * 255))
}

// WriteEXR encodes px as a ZIP-compressed scanline EXR holding the first
// ChannelCount channels of the format, half or float per the format.
func WriteEXR(w io.WriteSeeker, px *texpack.Pixels) error {
	width, height := px.Width, px.Height
	pixelType, size := exr.PixelTypeFloat, 4
	if px.Format.IsHalf() {
		pixelType, size = exr.PixelTypeHalf, 2
	}
	n := px.Format.ChannelCount()

	h := exr.NewScanlineHeader(width, height)
	h.SetCompression(exr.CompressionZIP)
	channels := exr.NewChannelList()
	fb := exr.NewFrameBuffer()
	for _, name := range channelNames[:n] {
		channels.Add(exr.Channel{Name: name, Type: pixelType, XSampling: 1, YSampling: 1})
		fb.Set(name, exr.NewSlice(pixelType, make([]byte, width*height*size), width, height))
	}
	h.SetChannels(channels)

	for c, name := range channelNames[:n] {
		slice := fb.Get(name)
		for y := range height {
			for x := range width {
				v := px.Data[(y*width+x)*4+c]
				if pixelType == exr.PixelTypeHalf {
					slice.SetHalf(x, y, half.FromFloat32(v))
				} else {
					slice.SetFloat32(x, y, v)
				}
			}
		}
	}

	sw, err := exr.NewScanlineWriter(w, h)
	if err != nil {
		return err
	}
	sw.SetFrameBuffer(fb)
	if err := sw.WritePixels(int(h.DataWindow().Min.Y), int(h.DataWindow().Max.Y)); err != nil {
		return err
	}
	return sw.Close()
}

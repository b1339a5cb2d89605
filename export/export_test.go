package export

import (
	"errors"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gogpu/texpack"
	"github.com/mrjoshuak/go-openexr/exr"
)

// pixelImage is a texpack.Image over fixed pixels.
type pixelImage struct {
	px  *texpack.Pixels
	err error
}

func (p *pixelImage) Width() int                           { return p.px.Width }
func (p *pixelImage) Height() int                          { return p.px.Height }
func (p *pixelImage) Format() texpack.PixelFormat          { return p.px.Format }
func (p *pixelImage) Released() bool                       { return false }
func (p *pixelImage) Release()                             {}
func (p *pixelImage) ReadPixels() (*texpack.Pixels, error) { return p.px, p.err }

// gradient returns size x size pixels where (x, y) holds
// (x/size, y/size, 0.5, 0.25), quantized to format.
func gradient(size int, format texpack.PixelFormat) *texpack.Pixels {
	px := texpack.NewPixels(size, size, format)
	for y := range size {
		for x := range size {
			v := [4]float32{float32(x) / float32(size), float32(y) / float32(size), 0.5, 0.25}
			px.Set(x, y, format.Quantize(v))
		}
	}
	return px
}

func TestFileExporter_PNG(t *testing.T) {
	dir := t.TempDir()
	px := gradient(8, texpack.FormatRGBA32)
	e := &FileExporter{Dir: dir, Name: "packed"}

	if err := e.Export(&pixelImage{px: px}, texpack.FormatRGBA32); err != nil {
		t.Fatalf("Export: %v", err)
	}
	want := filepath.Join(dir, "packed.png")
	if e.LastPath() != want {
		t.Errorf("LastPath() = %q, want %q", e.LastPath(), want)
	}

	f, err := os.Open(want)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("png.Decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 8 || b.Dy() != 8 {
		t.Fatalf("bounds = %v", b)
	}
	nrgba := ToNRGBA(px)
	for _, p := range [][2]int{{0, 0}, {3, 5}, {7, 7}} {
		got := img.At(p[0], p[1])
		if got != nrgba.At(p[0], p[1]) {
			t.Errorf("pixel %v = %v, want %v", p, got, nrgba.At(p[0], p[1]))
		}
	}
}

func TestFileExporter_EXR(t *testing.T) {
	tests := []struct {
		format   texpack.PixelFormat
		channels []string
		typ      exr.PixelType
	}{
		{texpack.FormatRHalf, []string{"R"}, exr.PixelTypeHalf},
		{texpack.FormatRFloat, []string{"R"}, exr.PixelTypeFloat},
		{texpack.FormatRGFloat, []string{"R", "G"}, exr.PixelTypeFloat},
		{texpack.FormatRGBAHalf, []string{"R", "G", "B", "A"}, exr.PixelTypeHalf},
		{texpack.FormatRGBAFloat, []string{"R", "G", "B", "A"}, exr.PixelTypeFloat},
	}
	for _, tt := range tests {
		t.Run(tt.format.String(), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "out.png")
			px := gradient(8, tt.format)
			e := &FileExporter{Path: path}
			if err := e.Export(&pixelImage{px: px}, tt.format); err != nil {
				t.Fatalf("Export: %v", err)
			}
			if !strings.HasSuffix(e.LastPath(), ".exr") {
				t.Fatalf("LastPath() = %q, want .exr extension", e.LastPath())
			}

			f, err := exr.OpenFile(e.LastPath())
			if err != nil {
				t.Fatalf("OpenFile: %v", err)
			}
			defer f.Close()

			channels := f.Header(0).Channels()
			if channels.Len() != len(tt.channels) {
				t.Fatalf("channel count = %d, want %d", channels.Len(), len(tt.channels))
			}
			for _, name := range tt.channels {
				ch := channels.Get(name)
				if ch == nil {
					t.Fatalf("channel %s missing", name)
				}
				if ch.Type != tt.typ {
					t.Errorf("channel %s type = %v, want %v", name, ch.Type, tt.typ)
				}
			}

			sr, err := exr.NewScanlineReader(f)
			if err != nil {
				t.Fatalf("NewScanlineReader: %v", err)
			}
			fb, _ := exr.AllocateChannels(sr.Header().Channels(), sr.DataWindow())
			sr.SetFrameBuffer(fb)
			if err := sr.ReadPixels(0, 7); err != nil {
				t.Fatalf("ReadPixels: %v", err)
			}
			for c, name := range tt.channels {
				slice := fb.Get(name)
				for _, p := range [][2]int{{0, 0}, {5, 2}, {7, 7}} {
					want := px.At(p[0], p[1])[c]
					got := slice.GetFloat32(p[0], p[1])
					if math.Abs(float64(got-want)) > 1e-6 {
						t.Errorf("%s at %v = %v, want %v", name, p, got, want)
					}
				}
			}
		})
	}
}

func TestFileExporter_Destination(t *testing.T) {
	tests := []struct {
		name   string
		e      *FileExporter
		format texpack.PixelFormat
		want   string
	}{
		{"path keeps matching extension", &FileExporter{Path: "a/out.png"}, texpack.FormatRGBA32, "a/out.png"},
		{"path extension replaced", &FileExporter{Path: "a/out.png"}, texpack.FormatRGBAHalf, "a/out.exr"},
		{"path without extension", &FileExporter{Path: "a/out"}, texpack.FormatRFloat, "a/out.exr"},
		{"dir and name", &FileExporter{Dir: "d", Name: "mask"}, texpack.FormatRGBA32, filepath.Join("d", "mask.png")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.e.destination(tt.format)
			if err != nil || got != tt.want {
				t.Errorf("destination() = %q, %v; want %q", got, err, tt.want)
			}
		})
	}

	got, err := (&FileExporter{Dir: "d"}).destination(texpack.FormatRGBA32)
	if err != nil || !strings.HasPrefix(filepath.Base(got), "packed_") || filepath.Ext(got) != ".png" {
		t.Errorf("generated destination = %q, %v", got, err)
	}
	if _, err := (&FileExporter{}).destination(texpack.FormatRGBA32); !errors.Is(err, ErrNoDestination) {
		t.Errorf("empty exporter = %v, want ErrNoDestination", err)
	}
}

func TestFileExporter_ReadError(t *testing.T) {
	e := &FileExporter{Dir: t.TempDir()}
	img := &pixelImage{px: gradient(2, texpack.FormatRGBA32), err: texpack.ErrReleased}
	if err := e.Export(img, texpack.FormatRGBA32); !errors.Is(err, texpack.ErrReleased) {
		t.Errorf("Export = %v, want ErrReleased", err)
	}
	if e.LastPath() != "" {
		t.Errorf("LastPath() = %q after failure", e.LastPath())
	}
}

func TestWriteFile_BadPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "out.png")
	if err := WriteFile(path, gradient(2, texpack.FormatRGBA32)); err == nil {
		t.Error("WriteFile into a missing directory should fail")
	}
}

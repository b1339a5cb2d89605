package image

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/mrjoshuak/go-openexr/exr"
)

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestLoadImage_PNG(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 4, 3))
	src.SetNRGBA(1, 2, color.NRGBA{R: 200, G: 100, B: 50, A: 255})

	path := filepath.Join(t.TempDir(), "src.png")
	writePNG(t, path, src)

	img, err := LoadImage(path)
	if err != nil {
		t.Fatalf("LoadImage() error = %v", err)
	}
	if got := img.Bounds(); got != src.Bounds() {
		t.Errorf("Bounds() = %v, want %v", got, src.Bounds())
	}
	r, g, b, _ := img.At(1, 2).RGBA()
	if r>>8 != 200 || g>>8 != 100 || b>>8 != 50 {
		t.Errorf("At(1, 2) = (%d, %d, %d), want (200, 100, 50)", r>>8, g>>8, b>>8)
	}
}

func TestLoadImage_EXR(t *testing.T) {
	src := exr.NewRGBAImage(image.Rect(0, 0, 2, 2))
	src.SetRGBA(1, 1, 2.5, 0.5, 0.25, 1)

	path := filepath.Join(t.TempDir(), "src.exr")
	if err := exr.EncodeFile(path, src); err != nil {
		t.Fatalf("EncodeFile: %v", err)
	}

	img, err := LoadImage(path)
	if err != nil {
		t.Fatalf("LoadImage() error = %v", err)
	}
	hdr, ok := img.(*exr.RGBAImage)
	if !ok {
		t.Fatalf("LoadImage() returned %T, want *exr.RGBAImage", img)
	}
	r, g, _, _ := hdr.RGBA(1, 1)
	if r != 2.5 || g != 0.5 {
		t.Errorf("RGBA(1, 1) = (%v, %v), want (2.5, 0.5)", r, g)
	}
}

func TestLoadImage_Missing(t *testing.T) {
	if _, err := LoadImage(filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Error("LoadImage() of a missing file should fail")
	}
}

func TestLoadImageFromBytes(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		_, err := LoadImageFromBytes(nil)
		if !errors.Is(err, ErrEmptyData) {
			t.Errorf("error = %v, want ErrEmptyData", err)
		}
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := LoadImageFromBytes([]byte("not an image"))
		if !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("error = %v, want ErrUnsupportedFormat", err)
		}
	})

	t.Run("png", func(t *testing.T) {
		var buf bytes.Buffer
		if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 3, 3))); err != nil {
			t.Fatal(err)
		}
		img, err := LoadImageFromBytes(buf.Bytes())
		if err != nil {
			t.Fatalf("error = %v", err)
		}
		if img.Bounds().Dx() != 3 {
			t.Errorf("width = %d, want 3", img.Bounds().Dx())
		}
	})
}

func TestIsEXR(t *testing.T) {
	if !isEXR([]byte{0x76, 0x2f, 0x31, 0x01, 0x02}) {
		t.Error("isEXR should accept the EXR magic number")
	}
	if isEXR([]byte{0x89, 'P', 'N', 'G'}) {
		t.Error("isEXR should reject PNG data")
	}
}

package image

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mrjoshuak/go-openexr/exr"
	_ "golang.org/x/image/bmp"  // register BMP decoder
	_ "golang.org/x/image/tiff" // register TIFF decoder
	_ "golang.org/x/image/webp" // register WebP decoder
)

// I/O errors.
var (
	// ErrUnsupportedFormat is returned when the image format is not supported.
	ErrUnsupportedFormat = errors.New("image: unsupported format")

	// ErrEmptyData is returned when image data is empty.
	ErrEmptyData = errors.New("image: empty data")
)

// Extensions lists the file extensions LoadImage accepts.
var Extensions = []string{".png", ".jpg", ".jpeg", ".bmp", ".tif", ".tiff", ".webp", ".exr"}

// LoadImage loads a source image from path. EXR files are decoded to
// *exr.RGBAImage with float values; other formats use the registered
// decoders, detected from content.
func LoadImage(path string) (image.Image, error) {
	if strings.EqualFold(filepath.Ext(path), ".exr") {
		img, err := exr.DecodeFile(filepath.Clean(path))
		if err != nil {
			return nil, fmt.Errorf("image: decode EXR: %w", err)
		}
		return img, nil
	}

	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("image: open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return Decode(f)
}

// LoadImageFromBytes decodes an image from a byte slice, auto-detecting the
// format. EXR data is recognized by its magic number.
func LoadImageFromBytes(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, ErrEmptyData
	}
	if isEXR(data) {
		img, err := exr.Decode(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			return nil, fmt.Errorf("image: decode EXR: %w", err)
		}
		return img, nil
	}
	return Decode(bytes.NewReader(data))
}

// Decode decodes an image from the given reader, auto-detecting the format.
func Decode(r io.Reader) (image.Image, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, fmt.Errorf("%w: %w", ErrUnsupportedFormat, err)
		}
		return nil, fmt.Errorf("image: decode: %w", err)
	}
	return img, nil
}

// exrMagic is the first four bytes of every OpenEXR file.
var exrMagic = []byte{0x76, 0x2f, 0x31, 0x01}

func isEXR(data []byte) bool {
	return bytes.HasPrefix(data, exrMagic)
}

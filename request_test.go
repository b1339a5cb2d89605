package texpack

import (
	"errors"
	"testing"
)

func TestDefaultRequest(t *testing.T) {
	req := DefaultRequest()
	if req.Resolution != 512 || req.Format != FormatRGBA32 || req.Preview != PreviewAll || req.Finalize {
		t.Errorf("unexpected defaults %+v", req)
	}
	if err := req.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestRequest_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Request)
		want   error
	}{
		{"min resolution", func(r *Request) { r.Resolution = 16 }, nil},
		{"max resolution", func(r *Request) { r.Resolution = 8192 }, nil},
		{"odd resolution", func(r *Request) { r.Resolution = 1000 }, nil},
		{"too small", func(r *Request) { r.Resolution = 15 }, ErrInvalidResolution},
		{"too large", func(r *Request) { r.Resolution = 8193 }, ErrInvalidResolution},
		{"bad format", func(r *Request) { r.Format = PixelFormat(99) }, ErrInvalidFormat},
		{"bad preview", func(r *Request) { r.Preview = PreviewMode(9) }, ErrInvalidPreview},
		{"invalid contribution is fine", func(r *Request) { r.Contributions[0].Source = ChannelR }, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := DefaultRequest()
			tt.modify(&req)
			err := req.Validate()
			if tt.want == nil && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSnapResolution(t *testing.T) {
	tests := []struct {
		res  int
		pot  bool
		want int
	}{
		{512, true, 512},
		{1000, true, 1024},
		{1000, false, 1000},
		{1, false, 16},
		{1, true, 16},
		{9000, false, 8192},
		{8000, true, 8192},
		{17, true, 32},
	}
	for _, tt := range tests {
		if got := SnapResolution(tt.res, tt.pot); got != tt.want {
			t.Errorf("SnapResolution(%d, %v) = %d, want %d", tt.res, tt.pot, got, tt.want)
		}
	}
}

func TestNextPowerOfTwo(t *testing.T) {
	for in, want := range map[int]int{-3: 1, 0: 1, 1: 1, 2: 2, 3: 4, 255: 256, 256: 256, 257: 512} {
		if got := NextPowerOfTwo(in); got != want {
			t.Errorf("NextPowerOfTwo(%d) = %d, want %d", in, got, want)
		}
	}
}

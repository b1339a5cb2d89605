package texpack

import "fmt"

// Output resolution limits.
const (
	MinResolution     = 16
	MaxResolution     = 8192
	DefaultResolution = 512
)

// Request is one packing call. It is a value: the Packer copies it at
// submission and never observes later changes made by the caller.
type Request struct {
	// Contributions in R, G, B, A order.
	Contributions [4]Contribution

	// Resolution is the width and height of the output, 16..8192.
	Resolution int

	// Format is the output pixel format.
	Format PixelFormat

	// Preview restricts the visible output to one channel. It is ignored
	// when Finalize is set.
	Preview PreviewMode

	// Finalize hands the result to the exporter after the last pass.
	Finalize bool
}

// DefaultRequest returns a request with four default contributions at
// 512x512 RGBA32.
func DefaultRequest() Request {
	return Request{
		Contributions: DefaultContributions(),
		Resolution:    DefaultResolution,
		Format:        FormatRGBA32,
		Preview:       PreviewAll,
	}
}

// Validate checks resolution, format and preview mode. Contributions are
// never rejected; invalid ones pack as inactive.
func (r Request) Validate() error {
	if r.Resolution < MinResolution || r.Resolution > MaxResolution {
		return fmt.Errorf("%w: %d (want %d..%d)", ErrInvalidResolution, r.Resolution, MinResolution, MaxResolution)
	}
	if !r.Format.IsValid() {
		return fmt.Errorf("%w: %s", ErrInvalidFormat, r.Format)
	}
	if r.Preview > PreviewA {
		return fmt.Errorf("%w: %s", ErrInvalidPreview, r.Preview)
	}
	return nil
}

// SnapResolution clamps res to 16..8192 and, when powerOfTwo is set, rounds
// it up to the next power of two.
func SnapResolution(res int, powerOfTwo bool) int {
	res = min(max(res, MinResolution), MaxResolution)
	if powerOfTwo {
		res = NextPowerOfTwo(res)
	}
	return res
}

// NextPowerOfTwo returns the smallest power of two >= n. It returns 1 for
// n <= 1.
func NextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

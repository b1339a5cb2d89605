package texpack

import (
	"errors"
	"fmt"
)

// Request validation errors, returned synchronously by Packer.Pack.
var (
	// ErrInvalidResolution is returned for a resolution outside 16..8192.
	ErrInvalidResolution = errors.New("texpack: invalid resolution")

	// ErrInvalidFormat is returned for an unknown pixel format.
	ErrInvalidFormat = errors.New("texpack: invalid pixel format")

	// ErrInvalidPreview is returned for an unknown preview mode.
	ErrInvalidPreview = errors.New("texpack: invalid preview mode")
)

var (
	// ErrAllocation is wrapped by every target allocation failure.
	ErrAllocation = errors.New("texpack: target allocation failed")

	// ErrExport is wrapped by exporter failures.
	ErrExport = errors.New("texpack: export failed")

	// ErrClosed is returned when packing on a closed Packer, and is the
	// outcome of jobs abandoned by Close.
	ErrClosed = errors.New("texpack: packer closed")

	// ErrOutOfOrder is reported by the sequencer for a completion that does
	// not match the current state. Such completions are dropped.
	ErrOutOfOrder = errors.New("texpack: out-of-order completion")

	// ErrReleased is returned by operations on a released image.
	ErrReleased = errors.New("texpack: image released")
)

// AllocationError describes a failed target allocation.
type AllocationError struct {
	Width, Height int
	Format        PixelFormat
	Err           error
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("texpack: allocate %dx%d %s target: %v", e.Width, e.Height, e.Format, e.Err)
}

// Unwrap returns both ErrAllocation and the executor error so that either
// can be matched with errors.Is.
func (e *AllocationError) Unwrap() []error {
	return []error{ErrAllocation, e.Err}
}

// Pass names a GPU pass.
type Pass string

const (
	// PassCompute is the channel combine pass.
	PassCompute Pass = "compute"
	// PassRaster is the per-channel adjustment pass.
	PassRaster Pass = "raster"
)

// PassError is a failure signalled by the executor's completion callback.
type PassError struct {
	Pass Pass
	Err  error
}

func (e *PassError) Error() string {
	return fmt.Sprintf("texpack: %s pass failed: %v", e.Pass, e.Err)
}

func (e *PassError) Unwrap() error { return e.Err }

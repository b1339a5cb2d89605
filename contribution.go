package texpack

import (
	"image"
	"math"
	"reflect"
)

// Contribution describes how one output channel is derived from a source
// image channel.
//
// A Contribution is plain data owned by the caller. The Packer copies it at
// submission time and never keeps a reference to the caller's value.
type Contribution struct {
	// Name is a display label. SafeName falls back to "None" when empty.
	Name string

	// Image is the source image. Nil, or a nil pointer, means no image
	// contribution.
	Image image.Image

	// Source selects the channel read from Image. ChannelNone makes the
	// contribution inactive unless ForceWhite is set.
	Source Channel

	// Invert outputs 1 - value.
	Invert bool

	// Multiply scales the value. Range [0, 2], default 1. Values outside
	// the range are clamped and NaN counts as 1.
	Multiply float32

	// ForceWhite makes the output channel constant 1 regardless of the
	// other fields.
	ForceWhite bool
}

// DefaultContribution returns an inactive contribution named name with a
// multiplier of 1. An empty name becomes "None".
func DefaultContribution(name string) Contribution {
	if name == "" {
		name = ChannelNone.String()
	}
	return Contribution{
		Name:     name,
		Source:   ChannelNone,
		Multiply: 1,
	}
}

// IsActive reports whether the contribution feeds its output channel:
// an image with a selected channel, or ForceWhite. A Source outside R..A
// selects nothing.
func (c Contribution) IsActive() bool {
	return (hasImage(c.Image) && c.Source.Index() >= 0) || c.ForceWhite
}

// IsValid reports whether the contribution is consistent. A selected
// channel without an image, or an unknown channel, is invalid; it is
// packed as inactive.
func (c Contribution) IsValid() bool {
	if c.ForceWhite || c.Source == ChannelNone {
		return true
	}
	return c.Source.Index() >= 0 && hasImage(c.Image)
}

// multiplier returns Multiply clamped to [0, 2], with NaN read as 1.
func (c Contribution) multiplier() float32 {
	m := c.Multiply
	switch {
	case math.IsNaN(float64(m)):
		return 1
	case m < 0:
		return 0
	case m > 2:
		return 2
	}
	return m
}

// hasImage reports whether img is a usable image. A nil pointer stored in
// the interface counts as no image.
func hasImage(img image.Image) bool {
	if img == nil {
		return false
	}
	v := reflect.ValueOf(img)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return !v.IsNil()
	}
	return true
}

// SafeName returns Name, or "None" when Name is empty.
func (c Contribution) SafeName() string {
	if c.Name == "" {
		return ChannelNone.String()
	}
	return c.Name
}

// needsAdjustment reports whether the contribution needs the raster pass.
func (c Contribution) needsAdjustment() bool {
	return c.Invert || !approximately(c.multiplier(), 1)
}

// multiplyTolerance is the tolerance for treating a multiplier as 1.
const multiplyTolerance = 1e-5

func approximately(a, b float32) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= multiplyTolerance
}

// DefaultContributions returns four default contributions named after the
// output channels.
func DefaultContributions() [4]Contribution {
	var out [4]Contribution
	for i, ch := range OutputChannels {
		out[i] = DefaultContribution(ch.String())
	}
	return out
}

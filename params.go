package texpack

import (
	"image"
	"image/color"
)

// Placeholder sources bound to slots without a usable image.
var (
	// BlackImage is the 1x1 opaque black placeholder.
	BlackImage image.Image = solid(color.NRGBA{A: 0xff})

	// WhiteImage is the 1x1 opaque white placeholder used for ForceWhite.
	WhiteImage image.Image = solid(color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff})
)

func solid(c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	img.SetNRGBA(0, 0, c)
	return img
}

// SourceSlot indexes the source images of a compute pass (0..3).
type SourceSlot int8

// SlotNone marks an output channel with no source.
const SlotNone SourceSlot = -1

// ChannelOps are the per-channel adjustments of the raster pass.
type ChannelOps uint8

const (
	// OpsNone copies the value unchanged.
	OpsNone ChannelOps = 0
	// OpsInvert outputs 1 - value.
	OpsInvert ChannelOps = 1
	// OpsMultiply scales the value by the multiplier.
	OpsMultiply ChannelOps = 2
)

// Has reports whether all bits of o are set.
func (ops ChannelOps) Has(o ChannelOps) bool { return ops&o == o }

// ChannelData is the mapping of one output channel.
type ChannelData struct {
	Slot       SourceSlot
	Channel    Channel
	Ops        ChannelOps
	Multiplier float32
}

// noSource is the mapping of a channel that reads nothing.
var noSource = ChannelData{Slot: SlotNone, Channel: ChannelNone, Multiplier: 1}

// IsActive reports whether the channel reads a source: a slot in 0..3 and
// a channel in R..A.
func (d ChannelData) IsActive() bool {
	return d.Slot >= 0 && d.Slot < 4 && d.Channel.Index() >= 0
}

// Apply applies the adjustments to v: invert first, then multiply.
func (d ChannelData) Apply(v float32) float32 {
	if d.Ops.Has(OpsInvert) {
		v = 1 - v
	}
	if d.Ops.Has(OpsMultiply) {
		v *= d.Multiplier
	}
	return v
}

// BlitParams maps the four output channels, in R, G, B, A order.
type BlitParams [4]ChannelData

// Active returns the number of channels that read a source.
func (p BlitParams) Active() int {
	n := 0
	for _, d := range p {
		if d.IsActive() {
			n++
		}
	}
	return n
}

// IsIdentity reports whether every channel reads the same channel of one
// slot with no adjustment, so a pass may copy that slot directly.
func (p BlitParams) IsIdentity() bool {
	slot := p[0].Slot
	for i, d := range p {
		if d.Slot != slot || d.Channel != channelAt(i) || d.Ops != OpsNone || !d.IsActive() {
			return false
		}
	}
	return true
}

// BuildComputeParams builds the compute pass mapping and the four resolved
// source images. Slot i holds WhiteImage for a ForceWhite contribution, the
// contribution's image when active, and BlackImage otherwise.
//
// A restricted preview maps all four output channels to the previewed
// channel's pair. When no channel reads a source, R reads slot 0 red from
// BlackImage. The contributions are not modified.
func BuildComputeParams(contribs [4]Contribution, preview PreviewMode) (BlitParams, [4]image.Image) {
	var (
		params  BlitParams
		sources [4]image.Image
	)
	for i, c := range contribs {
		switch {
		case c.ForceWhite:
			params[i] = ChannelData{Slot: SourceSlot(i), Channel: ChannelR, Multiplier: 1}
			sources[i] = WhiteImage
		case c.IsActive():
			params[i] = ChannelData{Slot: SourceSlot(i), Channel: c.Source, Multiplier: 1}
			sources[i] = c.Image
		default:
			params[i] = noSource
			sources[i] = BlackImage
		}
	}

	if ch := preview.Channel(); ch != ChannelNone {
		p := params[ch.Index()]
		for i := range params {
			params[i] = p
		}
	}

	if params.Active() == 0 {
		params[0] = ChannelData{Slot: 0, Channel: ChannelR, Multiplier: 1}
		sources[0] = BlackImage
	}
	return params, sources
}

// BuildRasterParams builds the raster pass mapping. Output channel i reads
// channel i of the intermediate image. Active contributions carry their
// adjustments; Multiply is always tagged on them. ForceWhite and inactive
// channels pass through unchanged.
//
// A restricted preview copies the previewed channel's data to every output
// channel. Alpha reads no source unless alpha itself is previewed.
func BuildRasterParams(contribs [4]Contribution, preview PreviewMode) BlitParams {
	var params BlitParams
	for i, c := range contribs {
		d := ChannelData{Slot: 0, Channel: channelAt(i), Multiplier: 1}
		if c.IsActive() && !c.ForceWhite {
			d.Ops = OpsMultiply
			if c.Invert {
				d.Ops |= OpsInvert
			}
			d.Multiplier = c.multiplier()
		}
		params[i] = d
	}

	if ch := preview.Channel(); ch != ChannelNone {
		p := params[ch.Index()]
		for i := range params {
			params[i] = p
		}
		if ch != ChannelA {
			params[3] = noSource
		}
	}
	return params
}

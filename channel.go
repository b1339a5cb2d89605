package texpack

import (
	"fmt"
	"strings"
)

// Channel identifies one color channel of an image.
// The zero value ChannelNone selects nothing.
type Channel uint8

const (
	// ChannelNone selects no channel.
	ChannelNone Channel = iota
	// ChannelR is the red channel.
	ChannelR
	// ChannelG is the green channel.
	ChannelG
	// ChannelB is the blue channel.
	ChannelB
	// ChannelA is the alpha channel.
	ChannelA
)

// OutputChannels lists the four output channels in packing order.
var OutputChannels = [4]Channel{ChannelR, ChannelG, ChannelB, ChannelA}

// String returns the short channel name ("R", "G", "B", "A" or "None").
func (c Channel) String() string {
	switch c {
	case ChannelNone:
		return "None"
	case ChannelR:
		return "R"
	case ChannelG:
		return "G"
	case ChannelB:
		return "B"
	case ChannelA:
		return "A"
	default:
		return fmt.Sprintf("Channel(%d)", uint8(c))
	}
}

// Index returns the 0-based RGBA component index of c, or -1 for ChannelNone
// and unknown values.
func (c Channel) Index() int {
	if c < ChannelR || c > ChannelA {
		return -1
	}
	return int(c - ChannelR)
}

// channelAt returns the output channel for RGBA component i (0..3).
func channelAt(i int) Channel {
	return ChannelR + Channel(i)
}

// ParseChannel parses a channel name. It accepts single letters and full
// color names in any case, and "none" or "" for ChannelNone.
func ParseChannel(s string) (Channel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "-":
		return ChannelNone, nil
	case "r", "red":
		return ChannelR, nil
	case "g", "green":
		return ChannelG, nil
	case "b", "blue":
		return ChannelB, nil
	case "a", "alpha":
		return ChannelA, nil
	default:
		return ChannelNone, fmt.Errorf("texpack: unknown channel %q", s)
	}
}

// PreviewMode restricts a preview to a single output channel.
// PreviewAll (the zero value) shows all channels.
type PreviewMode uint8

const (
	// PreviewAll shows every channel.
	PreviewAll PreviewMode = iota
	// PreviewR shows the red channel only.
	PreviewR
	// PreviewG shows the green channel only.
	PreviewG
	// PreviewB shows the blue channel only.
	PreviewB
	// PreviewA shows the alpha channel only.
	PreviewA
)

// Channel returns the output channel the preview is restricted to, or
// ChannelNone for PreviewAll.
func (p PreviewMode) Channel() Channel {
	if p < PreviewR || p > PreviewA {
		return ChannelNone
	}
	return Channel(p)
}

// IsRestricted reports whether the preview shows a single channel.
func (p PreviewMode) IsRestricted() bool {
	return p.Channel() != ChannelNone
}

func (p PreviewMode) String() string {
	if p == PreviewAll {
		return "All"
	}
	if c := p.Channel(); c != ChannelNone {
		return c.String()
	}
	return fmt.Sprintf("PreviewMode(%d)", uint8(p))
}

// ParsePreviewMode parses "all" or a channel name.
func ParsePreviewMode(s string) (PreviewMode, error) {
	if strings.EqualFold(strings.TrimSpace(s), "all") || strings.TrimSpace(s) == "" {
		return PreviewAll, nil
	}
	c, err := ParseChannel(s)
	if err != nil || c == ChannelNone {
		return PreviewAll, fmt.Errorf("%w: %q", ErrInvalidPreview, s)
	}
	return PreviewMode(c), nil
}

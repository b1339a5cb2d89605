package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gogpu/texpack"
	intImage "github.com/gogpu/texpack/internal/image"
)

// sourceSpec is a parsed "path:channel[:invert][:multiplier]" flag value.
type sourceSpec struct {
	path     string
	channel  texpack.Channel
	invert   bool
	multiply float32
}

// Multiplier range accepted on the command line.
const (
	minMultiplier = 0
	maxMultiplier = 2
)

// parseSource parses a channel source flag. Options are read from the end,
// so a path may itself contain colons.
func parseSource(s string) (sourceSpec, error) {
	spec := sourceSpec{multiply: 1}
	parts := strings.Split(s, ":")
	var sawChannel, sawMultiply bool
loop:
	for len(parts) > 1 {
		tok := strings.ToLower(strings.TrimSpace(parts[len(parts)-1]))
		switch {
		case tok == "invert" || tok == "inv":
			spec.invert = true
		case !sawMultiply && isNumber(tok):
			v, _ := strconv.ParseFloat(tok, 32)
			if !(v >= minMultiplier && v <= maxMultiplier) {
				return spec, fmt.Errorf("source %q: multiplier %s outside %g..%g", s, tok, minMultiplier, maxMultiplier)
			}
			spec.multiply = float32(v)
			sawMultiply = true
		default:
			ch, err := texpack.ParseChannel(tok)
			if err != nil || sawChannel || ch == texpack.ChannelNone {
				break loop
			}
			spec.channel = ch
			sawChannel = true
		}
		parts = parts[:len(parts)-1]
	}
	spec.path = strings.Join(parts, ":")
	if spec.path == "" {
		return spec, fmt.Errorf("source %q: missing image path", s)
	}
	if !sawChannel {
		return spec, fmt.Errorf("source %q: missing channel (r, g, b or a)", s)
	}
	return spec, nil
}

func isNumber(s string) bool {
	_, err := strconv.ParseFloat(s, 32)
	return err == nil
}

// contribution builds the contribution for one output channel. An empty
// source yields the default contribution.
func contribution(name, source string, white bool) (texpack.Contribution, error) {
	c := texpack.DefaultContribution(name)
	if white {
		c.ForceWhite = true
		return c, nil
	}
	if source == "" {
		return c, nil
	}
	spec, err := parseSource(source)
	if err != nil {
		return c, err
	}
	img, err := intImage.LoadImage(spec.path)
	if err != nil {
		return c, fmt.Errorf("%s source: %w", name, err)
	}
	c.Image = img
	c.Source = spec.channel
	c.Invert = spec.invert
	c.Multiply = spec.multiply
	return c, nil
}

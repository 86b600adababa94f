package render

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

var ErrInvalidColor = errors.New("render: invalid color")

// Color is an 8 bit RGBA color.
type Color struct {
	R, G, B, A uint8
}

var (
	White       = Color{255, 255, 255, 255}
	Black       = Color{0, 0, 0, 255}
	Transparent = Color{}
)

func RGB(r, g, b uint8) Color { return Color{r, g, b, 255} }

// WithAlpha returns c with its alpha channel replaced.
func (c Color) WithAlpha(a uint8) Color {
	c.A = a
	return c
}

// Hex formats the color as #rrggbb, or #rrggbbaa when it is not opaque.
func (c Color) Hex() string {
	if c.A == 255 {
		return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
	}
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}

func (c Color) String() string { return c.Hex() }

// ParseColor accepts #rrggbb, #rrggbbaa, [r,g,b] and [r,g,b,a].
func ParseColor(s string) (Color, error) {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, "#"):
		return parseHex(s[1:])
	case strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]"):
		parts := strings.Split(s[1:len(s)-1], ",")
		channels := make([]float64, 0, len(parts))
		for _, p := range parts {
			v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
			if err != nil {
				return Color{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
			}
			channels = append(channels, v)
		}
		return FromChannels(channels)
	default:
		return Color{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
}

func parseHex(h string) (Color, error) {
	if len(h) != 6 && len(h) != 8 {
		return Color{}, fmt.Errorf("%w: #%s", ErrInvalidColor, h)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("%w: #%s", ErrInvalidColor, h)
	}
	if len(h) == 6 {
		return RGB(uint8(v>>16), uint8(v>>8), uint8(v)), nil
	}
	return Color{uint8(v >> 24), uint8(v >> 16), uint8(v >> 8), uint8(v)}, nil
}

// FromChannels builds a color from three or four integral channels in 0..255.
func FromChannels(ch []float64) (Color, error) {
	if len(ch) != 3 && len(ch) != 4 {
		return Color{}, fmt.Errorf("%w: want 3 or 4 channels, got %d", ErrInvalidColor, len(ch))
	}
	out := [4]uint8{255, 255, 255, 255}
	for i, v := range ch {
		if v < 0 || v > 255 || v != math.Trunc(v) {
			return Color{}, fmt.Errorf("%w: channel %v out of range", ErrInvalidColor, v)
		}
		out[i] = uint8(v)
	}
	return Color{out[0], out[1], out[2], out[3]}, nil
}

// MarshalJSON writes the channel list form used by scene files.
func (c Color) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]int{int(c.R), int(c.G), int(c.B), int(c.A)})
}

func (c *Color) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parsed, err := ParseColor(s)
		if err != nil {
			return err
		}
		*c = parsed
		return nil
	}
	var ch []float64
	if err := json.Unmarshal(data, &ch); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidColor, data)
	}
	parsed, err := FromChannels(ch)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

func (c Color) MarshalYAML() (any, error) {
	return []int{int(c.R), int(c.G), int(c.B), int(c.A)}, nil
}

func (c *Color) UnmarshalYAML(node *yaml.Node) error {
	var parsed Color
	var err error
	switch node.Kind {
	case yaml.ScalarNode:
		parsed, err = ParseColor(node.Value)
	case yaml.SequenceNode:
		var ch []float64
		if err = node.Decode(&ch); err != nil {
			return fmt.Errorf("%w: line %d", ErrInvalidColor, node.Line)
		}
		parsed, err = FromChannels(ch)
	default:
		err = fmt.Errorf("%w: line %d", ErrInvalidColor, node.Line)
	}
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

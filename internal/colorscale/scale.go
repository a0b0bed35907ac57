// Package colorscale maps numeric values onto a fixed color ramp.
//
// A [Scale] is immutable after construction and safe to share between the
// feature styler and the legend renderer; both must see the same mapping.
package colorscale

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/rotisserie/eris"
)

// Sentinel is the color returned for values that are not a number.
const Sentinel = "#cccccc"

// Lab lightness removed per unit of darken factor (L on the 0..100 scale).
const darkenStep = 18.0

// Viridis anchors, ordered from the low end of the domain to the high end.
var Viridis = []string{
	"#440154", "#482777", "#3f4a8a", "#31678e", "#26838f",
	"#1f9d8a", "#6cce5a", "#b6de2b", "#fee825",
}

// Scale maps a closed numeric domain onto an ordered set of anchor colors.
type Scale struct {
	min, max float64
	anchors  []colorful.Color
}

// New builds a scale over [min, max] interpolating through anchors.
// With no anchors the viridis ramp is used.
func New(min, max float64, anchors ...string) (*Scale, error) {
	if math.IsNaN(min) || math.IsNaN(max) || !(max > min) {
		return nil, eris.Errorf("colorscale: invalid domain [%v, %v]", min, max)
	}
	if len(anchors) == 0 {
		anchors = Viridis
	}
	if len(anchors) < 2 {
		return nil, eris.New("colorscale: at least two anchor colors are required")
	}

	parsed := make([]colorful.Color, len(anchors))
	for i, a := range anchors {
		c, err := colorful.Hex(a)
		if err != nil {
			return nil, eris.Wrapf(err, "colorscale: anchor %d %q", i, a)
		}
		parsed[i] = c
	}
	return &Scale{min: min, max: max, anchors: parsed}, nil
}

// Default returns the viridis scale over [0, 100].
func Default() *Scale {
	s, err := New(0, 100)
	if err != nil {
		panic(err)
	}
	return s
}

// Domain returns the bounds of the scale.
func (s *Scale) Domain() (min, max float64) {
	return s.min, s.max
}

// ColorFor returns the #rrggbb color for value. NaN yields [Sentinel];
// values outside the domain are clamped to its ends.
func (s *Scale) ColorFor(value float64) string {
	if math.IsNaN(value) {
		return Sentinel
	}

	t := (value - s.min) / (s.max - s.min)
	t = math.Max(0, math.Min(1, t))

	pos := t * float64(len(s.anchors)-1)
	lower := int(math.Floor(pos))
	if lower >= len(s.anchors)-1 {
		return s.anchors[len(s.anchors)-1].Hex()
	}
	frac := pos - float64(lower)
	return s.anchors[lower].BlendRgb(s.anchors[lower+1], frac).Clamped().Hex()
}

// Sample returns n colors evenly spaced across the domain, ends included.
func (s *Scale) Sample(n int) []string {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []string{s.ColorFor(s.min)}
	}
	out := make([]string, n)
	step := (s.max - s.min) / float64(n-1)
	for i := range out {
		out[i] = s.ColorFor(s.min + float64(i)*step)
	}
	return out
}

// Darken lowers the Lab lightness of color by factor steps and returns
// the resulting #rrggbb color.
func Darken(color string, factor float64) (string, error) {
	c, err := colorful.Hex(color)
	if err != nil {
		return color, eris.Wrapf(err, "colorscale: parse %q", color)
	}
	l, a, b := c.Lab()
	l -= darkenStep * factor / 100
	return colorful.Lab(l, a, b).Clamped().Hex(), nil
}

// Package canvas provides a small 2D drawing surface modelled on the HTML
// canvas API: linear gradients, filled rectangles and aligned text.
//
// [Raster] renders into an in-memory RGBA image that can be encoded as PNG.
package canvas

import (
	"image/color"
	"sort"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/rotisserie/eris"
	"golang.org/x/image/font"
)

// TextAlign is the horizontal anchor of text relative to its x coordinate.
type TextAlign int

const (
	AlignLeft TextAlign = iota
	AlignCenter
	AlignRight
)

// TextBaseline is the vertical anchor of text relative to its y coordinate.
type TextBaseline int

const (
	BaselineAlphabetic TextBaseline = iota
	BaselineTop
	BaselineMiddle
	BaselineBottom
)

// Canvas is the drawing surface consumed by renderers.
type Canvas interface {
	Width() int
	Height() int
	CreateLinearGradient(x0, y0, x1, y1 float64) *LinearGradient
	SetFillStyle(p Paint)
	SetTextAlign(a TextAlign)
	SetTextBaseline(b TextBaseline)
	SetFont(face font.Face)
	FillRect(x, y, w, h float64)
	FillText(text string, x, y float64)
}

// Paint yields the fill color at a canvas coordinate.
type Paint interface {
	ColorAt(x, y float64) color.RGBA
}

// Solid is a uniform paint.
type Solid color.RGBA

// ColorAt implements Paint.
func (s Solid) ColorAt(_, _ float64) color.RGBA {
	return color.RGBA(s)
}

// ParseSolid parses a CSS hex color (#rgb or #rrggbb).
func ParseSolid(css string) (Solid, error) {
	c, err := colorful.Hex(css)
	if err != nil {
		return Solid{}, eris.Wrapf(err, "canvas: parse color %q", css)
	}
	r, g, b := c.RGB255()
	return Solid{R: r, G: g, B: b, A: 0xff}, nil
}

// Black is the default fill.
var Black = Solid{A: 0xff}

// Stop is one color stop of a gradient.
type Stop struct {
	Offset float64
	Color  string
	rgba   color.RGBA
}

// LinearGradient interpolates its stops along the line (x0,y0)-(x1,y1).
type LinearGradient struct {
	x0, y0, x1, y1 float64
	stops          []Stop
}

// NewLinearGradient returns a gradient without stops.
func NewLinearGradient(x0, y0, x1, y1 float64) *LinearGradient {
	return &LinearGradient{x0: x0, y0: y0, x1: x1, y1: y1}
}

// AddColorStop registers css at offset, clamped to [0, 1].
func (g *LinearGradient) AddColorStop(offset float64, css string) error {
	s, err := ParseSolid(css)
	if err != nil {
		return err
	}
	offset = clamp01(offset)
	g.stops = append(g.stops, Stop{Offset: offset, Color: css, rgba: color.RGBA(s)})
	return nil
}

// Stops returns the registered stops ordered by offset. Stops sharing an
// offset keep their insertion order.
func (g *LinearGradient) Stops() []Stop {
	out := make([]Stop, len(g.stops))
	copy(out, g.stops)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Offset < out[j].Offset })
	return out
}

// StopAt returns the first stop registered at offset.
func (g *LinearGradient) StopAt(offset float64) (Stop, bool) {
	for _, s := range g.stops {
		if s.Offset == offset {
			return s, true
		}
	}
	return Stop{}, false
}

// ColorAt implements Paint by projecting (x, y) onto the gradient line.
func (g *LinearGradient) ColorAt(x, y float64) color.RGBA {
	stops := g.Stops()
	if len(stops) == 0 {
		return color.RGBA{}
	}

	dx, dy := g.x1-g.x0, g.y1-g.y0
	length := dx*dx + dy*dy
	t := 0.0
	if length > 0 {
		t = clamp01(((x-g.x0)*dx + (y-g.y0)*dy) / length)
	}

	if t <= stops[0].Offset {
		return stops[0].rgba
	}
	for i := 1; i < len(stops); i++ {
		if t > stops[i].Offset {
			continue
		}
		prev, next := stops[i-1], stops[i]
		span := next.Offset - prev.Offset
		if span <= 0 {
			return next.rgba
		}
		return lerp(prev.rgba, next.rgba, (t-prev.Offset)/span)
	}
	return stops[len(stops)-1].rgba
}

func lerp(a, b color.RGBA, t float64) color.RGBA {
	mix := func(x, y uint8) uint8 {
		return uint8(float64(x) + t*(float64(y)-float64(x)) + 0.5)
	}
	return color.RGBA{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: mix(a.A, b.A)}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

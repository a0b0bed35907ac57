// Package legend draws the color legend of a choropleth: a vertical
// gradient bar sampled from the same scale that paints the regions, with
// tick marks and labels to its right.
package legend

import (
	"strconv"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"

	"github.com/joeblew999/plat-choropleth/internal/canvas"
	"github.com/joeblew999/plat-choropleth/internal/colorscale"
	"github.com/joeblew999/plat-choropleth/internal/mapview"
)

// Legend geometry, in canvas units.
const (
	ControlID = "legend"

	Width  = 50
	Height = 140

	barX      = 10
	barTop    = 10
	barWidth  = 15
	barHeight = 120
	barBottom = barTop + barHeight

	tickX      = barX + barWidth
	tickWidth  = 4
	tickHeight = 1
	labelX     = 32

	// LabelSize is the tick label font size in pixels.
	LabelSize = 10

	// Gradient stops sampled per unit of the normalized domain.
	steps = 100
)

// Ticks are the labelled values, as percentages of the domain.
var Ticks = []float64{0, 25, 50, 75, 100}

var (
	labelFont     *opentype.Font
	labelFontErr  error
	labelFontOnce sync.Once
)

// LabelFace returns a fresh Go Regular face for tick labels. A face is not
// safe for concurrent use, so each Draw takes its own. If the embedded font
// cannot be loaded the fixed 7x13 face is used instead.
func LabelFace() font.Face {
	labelFontOnce.Do(func() {
		labelFont, labelFontErr = opentype.Parse(goregular.TTF)
	})
	if labelFontErr != nil {
		zap.L().Warn("legend: parse label font", zap.Error(labelFontErr))
		return basicfont.Face7x13
	}
	face, err := opentype.NewFace(labelFont, &opentype.FaceOptions{
		Size:    LabelSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		zap.L().Warn("legend: create label face", zap.Error(err))
		return basicfont.Face7x13
	}
	return face
}

// Renderer draws the legend of one color scale.
type Renderer struct {
	scale *colorscale.Scale
}

// New creates a renderer for scale.
func New(scale *colorscale.Scale) *Renderer {
	return &Renderer{scale: scale}
}

// Gradient builds the bar gradient on c: the domain minimum at the bottom,
// the maximum at the top.
func (r *Renderer) Gradient(c canvas.Canvas) *canvas.LinearGradient {
	min, max := r.scale.Domain()
	g := c.CreateLinearGradient(0, barTop, 0, barBottom)
	for i := 0; i <= steps; i++ {
		v := min + (max-min)*float64(i)/steps
		if err := g.AddColorStop(1-float64(i)/steps, r.scale.ColorFor(v)); err != nil {
			zap.L().Warn("legend: add gradient stop", zap.Int("step", i), zap.Error(err))
		}
	}
	return g
}

// TickY returns the vertical position of the tick for percentage p.
func TickY(p float64) float64 {
	return barBottom - (p/100)*barHeight
}

// Draw renders the bar and ticks onto c.
func (r *Renderer) Draw(c canvas.Canvas) {
	c.SetFillStyle(r.Gradient(c))
	c.FillRect(barX, barTop, barWidth, barHeight)

	c.SetFillStyle(canvas.Black)
	c.SetTextAlign(canvas.AlignLeft)
	c.SetTextBaseline(canvas.BaselineMiddle)
	c.SetFont(LabelFace())

	min, max := r.scale.Domain()
	for _, p := range Ticks {
		y := TickY(p)
		c.FillRect(tickX, y, tickWidth, tickHeight)
		c.FillText(label(min+(max-min)*p/100), labelX, y)
	}
}

func label(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Control draws the legend into a fresh bottom-right canvas control.
func (r *Renderer) Control() *mapview.CanvasControl {
	ctrl := mapview.NewCanvasControl(ControlID, mapview.BottomRight, Width, Height)
	r.Draw(ctrl.Canvas())
	return ctrl
}

// Attach installs the legend on s. Repeated calls replace the previous
// legend control instead of adding another one.
func (r *Renderer) Attach(s mapview.Surface) {
	s.AddControl(r.Control())
}

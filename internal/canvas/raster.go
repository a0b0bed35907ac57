package canvas

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"

	"github.com/rotisserie/eris"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Raster is a Canvas backed by an RGBA image with a transparent background.
type Raster struct {
	img      *image.RGBA
	fill     Paint
	align    TextAlign
	baseline TextBaseline
	face     font.Face
}

// NewRaster allocates a w×h raster canvas.
func NewRaster(w, h int) *Raster {
	return &Raster{
		img:  image.NewRGBA(image.Rect(0, 0, w, h)),
		fill: Black,
		face: basicfont.Face7x13,
	}
}

func (r *Raster) Width() int  { return r.img.Bounds().Dx() }
func (r *Raster) Height() int { return r.img.Bounds().Dy() }

// Image exposes the rendered pixels.
func (r *Raster) Image() *image.RGBA { return r.img }

func (r *Raster) CreateLinearGradient(x0, y0, x1, y1 float64) *LinearGradient {
	return NewLinearGradient(x0, y0, x1, y1)
}

func (r *Raster) SetFillStyle(p Paint)           { r.fill = p }
func (r *Raster) SetTextAlign(a TextAlign)       { r.align = a }
func (r *Raster) SetTextBaseline(b TextBaseline) { r.baseline = b }

// SetFont replaces the text face; the default is basicfont.Face7x13.
func (r *Raster) SetFont(face font.Face) { r.face = face }

// FillRect paints every pixel whose center lies inside the rectangle.
func (r *Raster) FillRect(x, y, w, h float64) {
	if w < 0 {
		x, w = x+w, -w
	}
	if h < 0 {
		y, h = y+h, -h
	}
	rect := image.Rect(
		int(math.Round(x)), int(math.Round(y)),
		int(math.Round(x+w)), int(math.Round(y+h)),
	).Intersect(r.img.Bounds())

	for py := rect.Min.Y; py < rect.Max.Y; py++ {
		for px := rect.Min.X; px < rect.Max.X; px++ {
			c := r.fill.ColorAt(float64(px)+0.5, float64(py)+0.5)
			r.blend(px, py, c)
		}
	}
}

// FillText draws text anchored at (x, y) according to the current
// alignment and baseline.
func (r *Raster) FillText(text string, x, y float64) {
	width := font.MeasureString(r.face, text)
	dotX := fixed.Int26_6(x * 64)
	switch r.align {
	case AlignCenter:
		dotX -= width / 2
	case AlignRight:
		dotX -= width
	}

	m := r.face.Metrics()
	dotY := fixed.Int26_6(y * 64)
	switch r.baseline {
	case BaselineTop:
		dotY += m.Ascent
	case BaselineMiddle:
		dotY += (m.Ascent - m.Descent) / 2
	case BaselineBottom:
		dotY -= m.Descent
	}

	d := &font.Drawer{
		Dst:  r.img,
		Src:  image.NewUniform(r.fill.ColorAt(x, y)),
		Face: r.face,
		Dot:  fixed.Point26_6{X: dotX, Y: dotY},
	}
	d.DrawString(text)
}

func (r *Raster) blend(px, py int, c color.RGBA) {
	if c.A == 0xff {
		r.img.SetRGBA(px, py, c)
		return
	}
	draw.Draw(r.img, image.Rect(px, py, px+1, py+1), image.NewUniform(c), image.Point{}, draw.Over)
}

// EncodePNG writes the canvas as PNG.
func (r *Raster) EncodePNG(w io.Writer) error {
	if err := png.Encode(w, r.img); err != nil {
		return eris.Wrap(err, "canvas: encode png")
	}
	return nil
}

// PNG returns the canvas encoded as PNG.
func (r *Raster) PNG() ([]byte, error) {
	var buf bytes.Buffer
	if err := r.EncodePNG(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var _ Canvas = (*Raster)(nil)

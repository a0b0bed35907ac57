package mapview

import "github.com/joeblew999/plat-choropleth/internal/canvas"

// CanvasControl is an overlay control holding a raster drawing surface.
type CanvasControl struct {
	id       string
	position Position
	raster   *canvas.Raster
}

// NewCanvasControl creates a control with a blank w×h canvas.
func NewCanvasControl(id string, pos Position, w, h int) *CanvasControl {
	return &CanvasControl{id: id, position: pos, raster: canvas.NewRaster(w, h)}
}

func (c *CanvasControl) ID() string          { return c.id }
func (c *CanvasControl) Position() Position  { return c.position }
func (c *CanvasControl) ContentType() string { return "image/png" }

// Canvas returns the drawing surface of the control.
func (c *CanvasControl) Canvas() *canvas.Raster {
	return c.raster
}

// Render encodes the canvas as PNG.
func (c *CanvasControl) Render() ([]byte, error) {
	return c.raster.PNG()
}

var _ Control = (*CanvasControl)(nil)

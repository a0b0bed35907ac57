package choropleth

import (
	"html"
	"strings"

	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"github.com/joeblew999/plat-choropleth/internal/colorscale"
	"github.com/joeblew999/plat-choropleth/internal/mapview"
	"github.com/joeblew999/plat-choropleth/internal/numfmt"
)

// Fixed presentation parameters.
const (
	DarkenFactor = 1.5
	StrokeWeight = 0.5
	FillOpacity  = 0.7

	LineSeparator = "<br>"
	NoData        = "sin datos"
)

// Styler computes the style and popup of each feature from a shared scale.
type Styler struct {
	scale     *colorscale.Scale
	formatter numfmt.Formatter
}

// NewStyler creates a styler painting with scale and formatting values
// with formatter.
func NewStyler(scale *colorscale.Scale, formatter numfmt.Formatter) *Styler {
	return &Styler{scale: scale, formatter: formatter}
}

// Scale returns the color scale the styler paints with.
func (s *Styler) Scale() *colorscale.Scale {
	return s.scale
}

// Formatter returns the number formatter used for popup values.
func (s *Styler) Formatter() numfmt.Formatter {
	return s.formatter
}

// StyleFor returns the path style of f.
func (s *Styler) StyleFor(f *geojson.Feature) mapview.PathStyle {
	return s.StyleForValue(FromGeoJSON(f).Value)
}

// StyleForValue returns the path style of a region whose value is v.
func (s *Styler) StyleForValue(v float64) mapview.PathStyle {
	fill := s.scale.ColorFor(v)
	stroke, err := colorscale.Darken(fill, DarkenFactor)
	if err != nil {
		zap.L().Warn("choropleth: darken fill color", zap.String("fill", fill), zap.Error(err))
	}
	return mapview.PathStyle{
		FillColor:   fill,
		Color:       stroke,
		Weight:      StrokeWeight,
		FillOpacity: FillOpacity,
	}
}

// PopupFor returns the popup HTML of f: the country in bold, the region
// when known, and the formatted value or the no-data placeholder.
func (s *Styler) PopupFor(f *geojson.Feature) string {
	attrs := FromGeoJSON(f)

	lines := make([]string, 0, 3)
	lines = append(lines, "<strong>"+html.EscapeString(attrs.Country)+"</strong>")
	if attrs.HasRegion() {
		lines = append(lines, "<strong>Región:</strong> "+html.EscapeString(attrs.Region))
	}
	if attrs.HasValue {
		lines = append(lines, "<strong>Valor:</strong> "+html.EscapeString(s.formatter.Format(attrs.Value)))
	} else {
		lines = append(lines, "<strong>Valor:</strong> "+NoData)
	}
	return strings.Join(lines, LineSeparator)
}

// Bind attaches the popup of f to its interactive element.
func (s *Styler) Bind(f *geojson.Feature, b mapview.Binding) {
	b.BindPopup(s.PopupFor(f))
}

// Options returns the surface callbacks for this styler.
func (s *Styler) Options() mapview.GeoJSONOptions {
	return mapview.GeoJSONOptions{Style: s.StyleFor, OnEachFeature: s.Bind}
}

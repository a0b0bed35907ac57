package choropleth

import (
	"math"
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/joeblew999/plat-choropleth/internal/colorscale"
	"github.com/joeblew999/plat-choropleth/internal/mapview"
	"github.com/joeblew999/plat-choropleth/internal/numfmt"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func feature(props geojson.Properties) *geojson.Feature {
	f := geojson.NewFeature(orb.Point{-66.9, 10.5})
	f.Properties = props
	return f
}

func testStyler() *Styler {
	return NewStyler(colorscale.Default(), numfmt.New("es", 2))
}

func TestPopupFor_NoRegion(t *testing.T) {
	s := testStyler()
	popup := s.PopupFor(feature(geojson.Properties{"value": "57.3", "country": "Test"}))

	lines := strings.Split(popup, LineSeparator)
	require.Len(t, lines, 2)
	assert.Equal(t, "<strong>Test</strong>", lines[0])
	assert.Equal(t, "<strong>Valor:</strong> 57,30", lines[1])
}

func TestPopupFor_WithRegion(t *testing.T) {
	s := testStyler()
	popup := s.PopupFor(feature(geojson.Properties{
		"country": "Venezuela", "region": "Zulia", "value": "12345.5",
	}))

	assert.Equal(t,
		"<strong>Venezuela</strong><br><strong>Región:</strong> Zulia<br><strong>Valor:</strong> 12.345,50",
		popup)
}

func TestPopupFor_RegionPlaceholderHidden(t *testing.T) {
	s := testStyler()
	for _, region := range []any{NoRegion, "", nil} {
		popup := s.PopupFor(feature(geojson.Properties{"country": "X", "region": region, "value": "1"}))
		assert.NotContains(t, popup, "Región", "region %v", region)
	}
}

func TestPopupFor_MissingValue(t *testing.T) {
	s := testStyler()
	f := feature(geojson.Properties{"country": "Test"})

	lines := strings.Split(s.PopupFor(f), LineSeparator)
	require.Len(t, lines, 2)
	assert.Equal(t, "<strong>Valor:</strong> sin datos", lines[1])
	assert.Equal(t, colorscale.Sentinel, s.StyleFor(f).FillColor)

	for _, v := range []any{nil, ""} {
		f := feature(geojson.Properties{"country": "Test", "value": v})
		assert.Contains(t, s.PopupFor(f), NoData)
		assert.Equal(t, colorscale.Sentinel, s.StyleFor(f).FillColor)
	}
}

func TestPopupFor_MissingCountry(t *testing.T) {
	s := testStyler()
	assert.True(t, strings.HasPrefix(s.PopupFor(feature(geojson.Properties{})), "<strong>Unknown</strong>"))
	assert.True(t, strings.HasPrefix(s.PopupFor(feature(geojson.Properties{"country": ""})), "<strong>Unknown</strong>"))
	assert.True(t, strings.HasPrefix(s.PopupFor(nil), "<strong>Unknown</strong>"))
}

func TestPopupFor_EscapesText(t *testing.T) {
	s := testStyler()
	popup := s.PopupFor(feature(geojson.Properties{"country": "<b>X</b>", "region": "A & B"}))
	assert.Contains(t, popup, "&lt;b&gt;X&lt;/b&gt;")
	assert.Contains(t, popup, "A &amp; B")
}

func TestStyleFor(t *testing.T) {
	s := testStyler()
	style := s.StyleFor(feature(geojson.Properties{"value": "50"}))

	assert.Equal(t, s.Scale().ColorFor(50), style.FillColor)
	stroke, err := colorscale.Darken(style.FillColor, DarkenFactor)
	require.NoError(t, err)
	assert.Equal(t, stroke, style.Color)
	assert.NotEqual(t, style.FillColor, style.Color)
	assert.Equal(t, 0.5, style.Weight)
	assert.Equal(t, 0.7, style.FillOpacity)
}

func TestStyleFor_NonNumericValue(t *testing.T) {
	s := testStyler()
	f := feature(geojson.Properties{"country": "Test", "value": "n/a"})

	assert.Equal(t, colorscale.Sentinel, s.StyleFor(f).FillColor)
	assert.Contains(t, s.PopupFor(f), "<strong>Valor:</strong> NaN")
}

func TestStyleFor_OutOfDomainClamps(t *testing.T) {
	s := testStyler()
	assert.Equal(t, s.Scale().ColorFor(100), s.StyleFor(feature(geojson.Properties{"value": "180"})).FillColor)
	assert.Equal(t, s.Scale().ColorFor(0), s.StyleFor(feature(geojson.Properties{"value": "-3"})).FillColor)
}

type recordingBinding struct{ popups []string }

func (r *recordingBinding) BindPopup(html string) { r.popups = append(r.popups, html) }

func TestBind(t *testing.T) {
	s := testStyler()
	b := &recordingBinding{}
	f := feature(geojson.Properties{"country": "Test", "value": "57.3"})

	s.Bind(f, b)
	require.Len(t, b.popups, 1)
	assert.Equal(t, s.PopupFor(f), b.popups[0])
}

func TestOptions_DriveSurface(t *testing.T) {
	s := testStyler()
	fc := geojson.NewFeatureCollection()
	fc.Append(feature(geojson.Properties{"country": "A", "value": "10"}))
	fc.Append(feature(geojson.Properties{"country": "B"}))

	layer := mapview.New(mapview.DefaultView).AddGeoJSON(fc, s.Options())
	require.Len(t, layer.Features, 2)
	assert.Equal(t, s.Scale().ColorFor(10), layer.Features[0].Style.FillColor)
	assert.Equal(t, colorscale.Sentinel, layer.Features[1].Style.FillColor)
	assert.Contains(t, layer.Features[1].Popup, NoData)
}

func TestFromGeoJSON(t *testing.T) {
	f := FromGeoJSON(feature(geojson.Properties{"country": "C", "region": "R", "value": 42.0}))
	assert.Equal(t, "C", f.Country)
	assert.Equal(t, "R", f.Region)
	assert.True(t, f.HasValue)
	assert.Equal(t, 42.0, f.Value)
	assert.True(t, f.HasRegion())

	missing := FromGeoJSON(feature(geojson.Properties{}))
	assert.Equal(t, UnknownCountry, missing.Country)
	assert.False(t, missing.HasValue)
	assert.True(t, math.IsNaN(missing.Value))
	assert.False(t, missing.HasRegion())
}

func TestFromGeoJSON_NumericZero(t *testing.T) {
	s := testStyler()
	f := feature(geojson.Properties{"country": 0.0, "region": 0.0, "value": 0.0})

	attrs := FromGeoJSON(f)
	assert.Equal(t, UnknownCountry, attrs.Country)
	assert.False(t, attrs.HasRegion())
	assert.False(t, attrs.HasValue)
	assert.Equal(t, 0.0, attrs.Value)

	assert.Equal(t, "<strong>Unknown</strong><br><strong>Valor:</strong> sin datos", s.PopupFor(f))
	assert.Equal(t, s.Scale().ColorFor(0), s.StyleFor(f).FillColor)

	// A textual zero is a set attribute.
	text := feature(geojson.Properties{"country": "C", "value": "0"})
	assert.Contains(t, s.PopupFor(text), "<strong>Valor:</strong> 0,00")
}

func TestParseValue(t *testing.T) {
	cases := map[string]float64{
		"57.3":     57.3,
		"  12  ":   12,
		"3.5%":     3.5,
		".25":      0.25,
		"-4e2":     -400,
		"+7":       7,
		"1e400":    math.Inf(1),
		"Infinity": math.Inf(1),
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseValue(in), "input %q", in)
	}

	for _, in := range []string{"", "abc", "n/a", "-", "."} {
		assert.True(t, math.IsNaN(ParseValue(in)), "input %q", in)
	}
}

// Package mapview is the map rendering surface: it holds the tile backdrop,
// styled feature layers, the fitted viewport, overlay controls and
// user-visible notices for one session.
//
// Renderers talk to it through [Surface]; it never calls back into them
// except through the style and binding callbacks handed to [Surface.AddGeoJSON].
package mapview

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Position anchors an overlay control to a corner of the viewport.
type Position string

const (
	TopLeft     Position = "topleft"
	TopRight    Position = "topright"
	BottomLeft  Position = "bottomleft"
	BottomRight Position = "bottomright"
)

// PathStyle is the visual style of one rendered feature.
type PathStyle struct {
	FillColor   string  `json:"fillColor" doc:"Fill color" example:"#26838f"`
	Color       string  `json:"color" doc:"Stroke color" example:"#004a55"`
	Weight      float64 `json:"weight" doc:"Stroke width" example:"0.5"`
	FillOpacity float64 `json:"fillOpacity" doc:"Fill opacity (0-1)" example:"0.7"`
}

// TileLayer is a raster tile backdrop.
type TileLayer struct {
	URL         string `json:"url" doc:"Tile URL template"`
	Attribution string `json:"attribution,omitempty" doc:"Attribution text"`
	MaxZoom     int    `json:"maxZoom" doc:"Maximum zoom level"`
}

// Binding is the interactive element created for one rendered feature.
type Binding interface {
	BindPopup(html string)
}

// GeoJSONOptions carries the per-feature callbacks for AddGeoJSON.
type GeoJSONOptions struct {
	Style         func(f *geojson.Feature) PathStyle
	OnEachFeature func(f *geojson.Feature, b Binding)
}

// Control is an overlay anchored to the viewport.
type Control interface {
	ID() string
	Position() Position
	ContentType() string
	Render() ([]byte, error)
}

// Surface is the capability the loader and renderers draw onto.
type Surface interface {
	AddTileLayer(t TileLayer)
	AddGeoJSON(fc *geojson.FeatureCollection, opts GeoJSONOptions) *FeatureLayer
	RemoveLayer(l *FeatureLayer)
	FitBounds(b orb.Bound)
	// AddControl installs c, replacing any control with the same ID.
	AddControl(c Control)
	ShowNotice(msg string)
}

// RenderedFeature is a feature together with its computed style and popup.
type RenderedFeature struct {
	Feature *geojson.Feature
	Style   PathStyle
	Popup   string
}

// BindPopup implements Binding.
func (r *RenderedFeature) BindPopup(html string) {
	r.Popup = html
}

// FeatureLayer is a styled feature collection added to the surface.
type FeatureLayer struct {
	ID       string
	Features []*RenderedFeature
}

// Bounds returns the union of all feature bounds. ok is false when no
// feature carries a geometry.
func (l *FeatureLayer) Bounds() (b orb.Bound, ok bool) {
	for _, rf := range l.Features {
		if rf.Feature == nil || rf.Feature.Geometry == nil {
			continue
		}
		fb := rf.Feature.Geometry.Bound()
		if !ok {
			b, ok = fb, true
			continue
		}
		b = b.Union(fb)
	}
	return b, ok
}

// FeatureCollection returns a copy of the layer as GeoJSON with the style
// and popup of each feature stored in its properties.
func (l *FeatureLayer) FeatureCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, rf := range l.Features {
		if rf.Feature == nil {
			continue
		}
		out := geojson.NewFeature(rf.Feature.Geometry)
		out.ID = rf.Feature.ID
		for k, v := range rf.Feature.Properties {
			out.Properties[k] = v
		}
		out.Properties["style"] = rf.Style
		out.Properties["popup"] = rf.Popup
		fc.Append(out)
	}
	return fc
}

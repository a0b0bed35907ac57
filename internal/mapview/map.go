package mapview

import (
	"fmt"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// View is the initial viewport.
type View struct {
	Center orb.Point // lon, lat
	Zoom   float64
}

// DefaultView frames northern South America and the Caribbean.
var DefaultView = View{Center: orb.Point{-70, 10}, Zoom: 4}

// DefaultTiles is the unlabelled light basemap.
var DefaultTiles = TileLayer{
	URL:         "https://{s}.basemaps.cartocdn.com/light_nolabels/{z}/{x}/{y}{r}.png",
	Attribution: "&copy; CartoDB",
	MaxZoom:     18,
}

// Map is an in-memory Surface shared by the loader and the HTTP handlers.
type Map struct {
	mu       sync.RWMutex
	view     View
	tiles    []TileLayer
	layers   []*FeatureLayer
	bounds   *orb.Bound
	controls map[string]Control
	order    []string
	notices  []string
	bus      *EventBus
}

// New creates an empty map surface.
func New(view View) *Map {
	return &Map{
		view:     view,
		controls: make(map[string]Control),
		bus:      NewEventBus(),
	}
}

// Bus returns the change event bus.
func (m *Map) Bus() *EventBus {
	return m.bus
}

func (m *Map) AddTileLayer(t TileLayer) {
	m.mu.Lock()
	m.tiles = append(m.tiles, t)
	m.mu.Unlock()
	m.bus.Publish(Event{Kind: "tiles"})
}

// AddGeoJSON styles and binds every feature of fc, in order, and stores the
// resulting layer.
func (m *Map) AddGeoJSON(fc *geojson.FeatureCollection, opts GeoJSONOptions) *FeatureLayer {
	layer := &FeatureLayer{}
	if fc != nil {
		layer.Features = make([]*RenderedFeature, 0, len(fc.Features))
		for _, f := range fc.Features {
			if f == nil {
				continue
			}
			rf := &RenderedFeature{Feature: f}
			if opts.Style != nil {
				rf.Style = opts.Style(f)
			}
			if opts.OnEachFeature != nil {
				opts.OnEachFeature(f, rf)
			}
			layer.Features = append(layer.Features, rf)
		}
	}

	m.mu.Lock()
	layer.ID = fmt.Sprintf("layer-%d", len(m.layers)+1)
	m.layers = append(m.layers, layer)
	m.mu.Unlock()

	m.bus.Publish(Event{Kind: "layer", ID: layer.ID})
	return layer
}

// RemoveLayer drops l from the map. Unknown layers are ignored.
func (m *Map) RemoveLayer(l *FeatureLayer) {
	m.mu.Lock()
	removed := false
	for i, cur := range m.layers {
		if cur == l {
			m.layers = append(m.layers[:i], m.layers[i+1:]...)
			removed = true
			break
		}
	}
	m.mu.Unlock()
	if removed {
		m.bus.Publish(Event{Kind: "layer", ID: l.ID})
	}
}

func (m *Map) FitBounds(b orb.Bound) {
	m.mu.Lock()
	m.bounds = &b
	m.mu.Unlock()
	m.bus.Publish(Event{Kind: "bounds"})
}

func (m *Map) AddControl(c Control) {
	m.mu.Lock()
	if _, exists := m.controls[c.ID()]; !exists {
		m.order = append(m.order, c.ID())
	}
	m.controls[c.ID()] = c
	m.mu.Unlock()
	m.bus.Publish(Event{Kind: "control", ID: c.ID()})
}

func (m *Map) ShowNotice(msg string) {
	m.mu.Lock()
	m.notices = append(m.notices, msg)
	m.mu.Unlock()
	m.bus.Publish(Event{Kind: "notice"})
}

// Layers returns the feature layers in insertion order.
func (m *Map) Layers() []*FeatureLayer {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*FeatureLayer, len(m.layers))
	copy(out, m.layers)
	return out
}

// Control returns the control registered under id.
func (m *Map) Control(id string) (Control, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.controls[id]
	return c, ok
}

// Controls returns the installed controls in installation order.
func (m *Map) Controls() []Control {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Control, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.controls[id])
	}
	return out
}

// Notices returns the notices shown so far.
func (m *Map) Notices() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.notices))
	copy(out, m.notices)
	return out
}

// FeatureCollection merges all layers into one styled GeoJSON collection.
func (m *Map) FeatureCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, l := range m.Layers() {
		fc.Features = append(fc.Features, l.FeatureCollection().Features...)
	}
	return fc
}

// ControlInfo describes an installed control.
type ControlInfo struct {
	ID          string   `json:"id" doc:"Control ID" example:"legend"`
	Position    Position `json:"position" doc:"Viewport corner" example:"bottomright"`
	ContentType string   `json:"contentType" doc:"Media type of the rendered control" example:"image/png"`
	Href        string   `json:"href" doc:"URL of the rendered control"`
}

// Snapshot is a point-in-time view of the surface.
type Snapshot struct {
	Center   []float64     `json:"center" doc:"Initial center as [lon, lat]"`
	Zoom     float64       `json:"zoom" doc:"Initial zoom"`
	Tiles    []TileLayer   `json:"tiles" doc:"Tile backdrops"`
	Bounds   []float64     `json:"bounds,omitempty" doc:"Fitted bounds as [minLon, minLat, maxLon, maxLat]"`
	Layers   int           `json:"layers" doc:"Number of feature layers"`
	Features int           `json:"features" doc:"Number of rendered features"`
	Controls []ControlInfo `json:"controls" doc:"Overlay controls"`
	Notices  []string      `json:"notices" doc:"User-visible notices"`
}

// Snapshot captures the current surface state.
func (m *Map) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := Snapshot{
		Center:   []float64{m.view.Center.Lon(), m.view.Center.Lat()},
		Zoom:     m.view.Zoom,
		Tiles:    append([]TileLayer{}, m.tiles...),
		Layers:   len(m.layers),
		Controls: []ControlInfo{},
		Notices:  append([]string{}, m.notices...),
	}
	if m.bounds != nil {
		s.Bounds = []float64{m.bounds.Min.Lon(), m.bounds.Min.Lat(), m.bounds.Max.Lon(), m.bounds.Max.Lat()}
	}
	for _, l := range m.layers {
		s.Features += len(l.Features)
	}
	for _, id := range m.order {
		c := m.controls[id]
		s.Controls = append(s.Controls, ControlInfo{
			ID:          id,
			Position:    c.Position(),
			ContentType: c.ContentType(),
			Href:        "/api/v1/map/controls/" + id,
		})
	}
	return s
}

var _ Surface = (*Map)(nil)

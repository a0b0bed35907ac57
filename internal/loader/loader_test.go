package loader

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/joeblew999/plat-choropleth/internal/choropleth"
	"github.com/joeblew999/plat-choropleth/internal/colorscale"
	"github.com/joeblew999/plat-choropleth/internal/legend"
	"github.com/joeblew999/plat-choropleth/internal/mapview"
	"github.com/joeblew999/plat-choropleth/internal/numfmt"
	"github.com/joeblew999/plat-choropleth/internal/observability"
)

const headerContentType = "Content-Type"

const sampleGeoJSON = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "properties": {"country": "Venezuela", "region": "Zulia", "value": "57.3"},
      "geometry": {"type": "Polygon", "coordinates": [[[-73,8],[-71,8],[-71,11],[-73,11],[-73,8]]]}
    },
    {
      "type": "Feature",
      "properties": {"country": "Colombia"},
      "geometry": {"type": "Polygon", "coordinates": [[[-79,-4],[-67,-4],[-67,12],[-79,12],[-79,-4]]]}
    }
  ]
}`

// fakeSurface wraps a real map and counts rendering calls.
type fakeSurface struct {
	*mapview.Map
	geojsonCalls int
	fitCalls     int
	controlCalls int
	fitted       orb.Bound
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{Map: mapview.New(mapview.DefaultView)}
}

func (f *fakeSurface) AddGeoJSON(fc *geojson.FeatureCollection, opts mapview.GeoJSONOptions) *mapview.FeatureLayer {
	f.geojsonCalls++
	return f.Map.AddGeoJSON(fc, opts)
}

func (f *fakeSurface) FitBounds(b orb.Bound) {
	f.fitCalls++
	f.fitted = b
	f.Map.FitBounds(b)
}

func (f *fakeSurface) AddControl(c mapview.Control) {
	f.controlCalls++
	f.Map.AddControl(c)
}

type fixture struct {
	surface *fakeSurface
	metrics *observability.Metrics
	loader  *Loader
	scale   *colorscale.Scale
}

func newFixture(url string) *fixture {
	scale := colorscale.Default()
	surface := newFakeSurface()
	metrics := observability.NewMetricsForTesting()
	l := New(Config{URL: url}, surface,
		choropleth.NewStyler(scale, numfmt.New("es", 2)),
		legend.New(scale),
		metrics, zap.NewNop())
	return &fixture{surface: surface, metrics: metrics, loader: l, scale: scale}
}

func serve(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, http.MethodGet, r.Method)
		w.Header().Set(headerContentType, "application/geo+json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestLoad_Success(t *testing.T) {
	srv, hits := serve(t, http.StatusOK, sampleGeoJSON)
	fx := newFixture(srv.URL)

	res := fx.loader.Load(context.Background())
	require.True(t, res.OK(), "%v", res.Err)
	assert.Equal(t, 2, res.Features)
	assert.Equal(t, int32(1), hits.Load())

	assert.Equal(t, 1, fx.surface.geojsonCalls)
	assert.Equal(t, 1, fx.surface.fitCalls)
	assert.Equal(t, 1, fx.surface.controlCalls)
	assert.Equal(t, orb.Bound{Min: orb.Point{-79, -4}, Max: orb.Point{-67, 12}}, fx.surface.fitted)
	assert.Empty(t, fx.surface.Notices())

	layer := fx.surface.Layers()[0]
	require.Len(t, layer.Features, 2)
	assert.Equal(t, fx.scale.ColorFor(57.3), layer.Features[0].Style.FillColor)
	assert.Contains(t, layer.Features[0].Popup, "Zulia")
	assert.Equal(t, colorscale.Sentinel, layer.Features[1].Style.FillColor)

	_, ok := fx.surface.Control(legend.ControlID)
	assert.True(t, ok)

	assert.Equal(t, 1.0, testutil.ToFloat64(fx.metrics.DatasetLoads.WithLabelValues("success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(fx.metrics.FeaturesRendered))
	assert.Equal(t, 1.0, testutil.ToFloat64(fx.metrics.FeaturesNoValue))
}

func TestLoad_RunsOnce(t *testing.T) {
	srv, hits := serve(t, http.StatusOK, sampleGeoJSON)
	fx := newFixture(srv.URL)

	_, done := fx.loader.Status()
	assert.False(t, done)

	first := fx.loader.Load(context.Background())
	second := fx.loader.Load(context.Background())

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), hits.Load())
	assert.Equal(t, 1, fx.surface.geojsonCalls)
	assert.Len(t, fx.surface.Controls(), 1)

	status, done := fx.loader.Status()
	assert.True(t, done)
	assert.Equal(t, first, status)
}

func TestLoad_HTTPStatus(t *testing.T) {
	srv, _ := serve(t, http.StatusNotFound, "not found")
	fx := newFixture(srv.URL)

	res := fx.loader.Load(context.Background())
	require.Error(t, res.Err)

	var netErr *NetworkError
	require.True(t, errors.As(res.Err, &netErr))
	assert.Equal(t, http.StatusNotFound, netErr.StatusCode)
	assert.Contains(t, res.Err.Error(), "404")

	assert.Equal(t, []string{ErrorNotice}, fx.surface.Notices())
	assert.Zero(t, fx.surface.geojsonCalls)
	assert.Zero(t, fx.surface.fitCalls)
	assert.Zero(t, fx.surface.controlCalls)
	assert.Equal(t, 1.0, testutil.ToFloat64(fx.metrics.DatasetLoads.WithLabelValues("network_error")))
}

func TestLoad_EmptyObject(t *testing.T) {
	srv, _ := serve(t, http.StatusOK, `{}`)
	fx := newFixture(srv.URL)

	res := fx.loader.Load(context.Background())

	var valErr *ValidationError
	require.True(t, errors.As(res.Err, &valErr))
	assert.Equal(t, "missing features", valErr.Reason)
	assert.Equal(t, []string{ErrorNotice}, fx.surface.Notices())
	assert.Zero(t, fx.surface.geojsonCalls)
	assert.Zero(t, fx.surface.controlCalls)
	assert.Equal(t, 1.0, testutil.ToFloat64(fx.metrics.DatasetLoads.WithLabelValues("validation_error")))
}

func TestLoad_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	fx := newFixture(url)
	res := fx.loader.Load(context.Background())

	var netErr *NetworkError
	require.True(t, errors.As(res.Err, &netErr))
	assert.Zero(t, netErr.StatusCode)
	assert.Equal(t, []string{ErrorNotice}, fx.surface.Notices())
	assert.Zero(t, fx.surface.geojsonCalls)
}

func TestLoad_InvalidURL(t *testing.T) {
	fx := newFixture("://bad")
	res := fx.loader.Load(context.Background())

	assert.Equal(t, "network_error", Outcome(res.Err))
	assert.Len(t, fx.surface.Notices(), 1)
}

func TestDecode(t *testing.T) {
	invalid := map[string]string{
		"empty":          "",
		"null":           "null",
		"no features":    `{"type":"FeatureCollection"}`,
		"null features":  `{"type":"FeatureCollection","features":null}`,
		"not json":       `<html>`,
		"array":          `[]`,
		"features wrong": `{"type":"FeatureCollection","features":5}`,
	}
	for name, body := range invalid {
		_, err := Decode([]byte(body))
		var valErr *ValidationError
		assert.True(t, errors.As(err, &valErr), "case %s: %v", name, err)
	}

	fc, err := Decode([]byte(`{"type":"FeatureCollection","features":[]}`))
	require.NoError(t, err)
	assert.Empty(t, fc.Features)

	fc, err = Decode([]byte(sampleGeoJSON))
	require.NoError(t, err)
	assert.Len(t, fc.Features, 2)
}

func TestRender_EmptyCollectionSkipsFit(t *testing.T) {
	fx := newFixture("")
	n := fx.loader.Render(geojson.NewFeatureCollection())

	assert.Zero(t, n)
	assert.Equal(t, 1, fx.surface.geojsonCalls)
	assert.Zero(t, fx.surface.fitCalls)
	assert.Equal(t, 1, fx.surface.controlCalls)
}

type panickingSurface struct{ *fakeSurface }

func (p panickingSurface) FitBounds(orb.Bound) { panic("bounds are not valid") }

func TestLoad_RenderPanicBecomesNotice(t *testing.T) {
	srv, _ := serve(t, http.StatusOK, sampleGeoJSON)
	fx := newFixture(srv.URL)
	surface := panickingSurface{fx.surface}
	scale := colorscale.Default()
	l := New(Config{URL: srv.URL}, surface,
		choropleth.NewStyler(scale, numfmt.New("es", 2)), legend.New(scale),
		fx.metrics, zap.NewNop())

	var res Result
	require.NotPanics(t, func() { res = l.Load(context.Background()) })
	require.Error(t, res.Err)
	assert.Equal(t, []string{ErrorNotice}, fx.surface.Notices())

	assert.Equal(t, 1, fx.surface.geojsonCalls)
	assert.Empty(t, fx.surface.Layers())
	assert.Empty(t, fx.surface.Controls())
	assert.Equal(t, 1.0, testutil.ToFloat64(fx.metrics.DatasetLoads.WithLabelValues("error")))
}

func TestRender_CountsUnparsableValues(t *testing.T) {
	fx := newFixture("")
	fc, err := Decode([]byte(`{"type":"FeatureCollection","features":[
	  {"type":"Feature","properties":{"value":"abc"},"geometry":{"type":"Point","coordinates":[0,0]}},
	  {"type":"Feature","properties":{"value":"12"},"geometry":{"type":"Point","coordinates":[1,1]}},
	  {"type":"Feature","properties":{},"geometry":{"type":"Point","coordinates":[2,2]}},
	  {"type":"Feature","properties":{"value":0},"geometry":{"type":"Point","coordinates":[3,3]}}
	]}`))
	require.NoError(t, err)

	assert.Equal(t, 4, fx.loader.Render(fc))

	layer := fx.surface.Layers()[0]
	assert.Equal(t, colorscale.Sentinel, layer.Features[0].Style.FillColor)
	assert.Equal(t, colorscale.Sentinel, layer.Features[2].Style.FillColor)
	assert.Equal(t, 2.0, testutil.ToFloat64(fx.metrics.FeaturesNoValue))
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "HTTP error! status: 500", (&NetworkError{StatusCode: 500}).Error())
	assert.Equal(t, "network error", (&NetworkError{}).Error())
	assert.Equal(t, "invalid GeoJSON data: missing features", (&ValidationError{Reason: "missing features"}).Error())
	assert.Equal(t, "success", Outcome(nil))
	assert.Equal(t, "error", Outcome(errors.New("x")))
}

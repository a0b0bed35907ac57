// Package loader fetches the choropleth dataset and drives rendering.
//
// Loading is a two-stage pipeline: [Loader.Fetch] is the only blocking step
// and yields a validated feature collection or a typed error;
// [Loader.Render] then styles the features, fits the viewport and attaches
// the legend synchronously. [Loader.Load] runs both stages at most once and
// turns every failure into a single user-visible notice.
package loader

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/paulmach/orb/geojson"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/joeblew999/plat-choropleth/internal/choropleth"
	"github.com/joeblew999/plat-choropleth/internal/legend"
	"github.com/joeblew999/plat-choropleth/internal/mapview"
	"github.com/joeblew999/plat-choropleth/internal/observability"
)

// ErrorNotice is shown on the map when the dataset cannot be loaded.
const ErrorNotice = "Error al cargar los datos del mapa"

// Config holds the loader settings.
type Config struct {
	URL    string
	Client *http.Client // nil selects an http.Client without timeout
}

// Result is the terminal outcome of a load.
type Result struct {
	Features int
	Err      error
}

// OK reports whether the dataset was rendered.
func (r Result) OK() bool {
	return r.Err == nil
}

// Loader loads one dataset onto one surface.
type Loader struct {
	cfg     Config
	client  *http.Client
	surface mapview.Surface
	styler  *choropleth.Styler
	legend  *legend.Renderer
	metrics *observability.Metrics
	logger  *zap.Logger

	once   sync.Once
	done   atomic.Bool
	result Result
}

// New creates a loader. styler and legend must share the same color scale.
// A nil metrics or logger selects unregistered metrics and zap.L().
func New(cfg Config, surface mapview.Surface, styler *choropleth.Styler, lg *legend.Renderer, metrics *observability.Metrics, logger *zap.Logger) *Loader {
	client := cfg.Client
	if client == nil {
		client = &http.Client{}
	}
	if metrics == nil {
		metrics = observability.NewMetricsForTesting()
	}
	if logger == nil {
		logger = zap.L()
	}
	return &Loader{
		cfg:     cfg,
		client:  client,
		surface: surface,
		styler:  styler,
		legend:  lg,
		metrics: metrics,
		logger:  logger,
	}
}

// Fetch issues the dataset GET and validates the response.
func (l *Loader) Fetch(ctx context.Context) (*geojson.FeatureCollection, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.cfg.URL, nil)
	if err != nil {
		return nil, &NetworkError{Err: eris.Wrap(err, "create request")}
	}
	req.Header.Set("Accept", "application/geo+json, application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, &NetworkError{Err: eris.Wrapf(err, "GET %s", l.cfg.URL)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &NetworkError{
			StatusCode: resp.StatusCode,
			Err:        eris.Errorf("GET %s: %s", l.cfg.URL, resp.Status),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Err: eris.Wrap(err, "read response body")}
	}
	return Decode(body)
}

var jsonNull = []byte("null")

// Decode parses body as a feature collection. A missing body, a body
// without a features array, or malformed GeoJSON is a ValidationError.
func Decode(body []byte) (*geojson.FeatureCollection, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || bytes.Equal(body, jsonNull) {
		return nil, &ValidationError{Reason: "empty response body"}
	}

	var probe struct {
		Features json.RawMessage `json:"features"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return nil, &ValidationError{Reason: "malformed JSON", Err: eris.Wrap(err, "decode body")}
	}
	if f := bytes.TrimSpace(probe.Features); len(f) == 0 || bytes.Equal(f, jsonNull) {
		return nil, &ValidationError{Reason: "missing features"}
	}

	fc, err := geojson.UnmarshalFeatureCollection(body)
	if err != nil {
		return nil, &ValidationError{Reason: "malformed feature collection", Err: eris.Wrap(err, "decode geojson")}
	}
	return fc, nil
}

// Render paints fc onto the surface, fits the viewport to the rendered
// features and attaches the legend. It returns the number of features drawn.
func (l *Loader) Render(fc *geojson.FeatureCollection) int {
	return l.finish(l.surface.AddGeoJSON(fc, l.styler.Options()))
}

func (l *Loader) finish(layer *mapview.FeatureLayer) int {
	if b, ok := layer.Bounds(); ok {
		l.surface.FitBounds(b)
	}
	l.legend.Attach(l.surface)

	for _, rf := range layer.Features {
		if math.IsNaN(choropleth.FromGeoJSON(rf.Feature).Value) {
			l.metrics.FeaturesNoValue.Inc()
		}
	}
	l.metrics.FeaturesRendered.Set(float64(len(layer.Features)))
	return len(layer.Features)
}

// render is Render with panics turned into errors. A layer added before the
// panic is taken off the surface again.
func (l *Loader) render(fc *geojson.FeatureCollection) (n int, err error) {
	var layer *mapview.FeatureLayer
	defer func() {
		if r := recover(); r != nil {
			if layer != nil {
				l.surface.RemoveLayer(layer)
			}
			err = eris.Errorf("render dataset: %v", r)
		}
	}()
	layer = l.surface.AddGeoJSON(fc, l.styler.Options())
	return l.finish(layer), nil
}

// Load runs the fetch and render stages once. Later calls return the first
// result without touching the network or the surface.
func (l *Loader) Load(ctx context.Context) Result {
	l.once.Do(func() {
		l.result = l.run(ctx)
		l.done.Store(true)
	})
	return l.result
}

// Status returns the load result and whether loading has finished.
func (l *Loader) Status() (Result, bool) {
	if !l.done.Load() {
		return Result{}, false
	}
	return l.result, true
}

func (l *Loader) run(ctx context.Context) Result {
	start := time.Now()

	var res Result
	fc, err := l.Fetch(ctx)
	if err == nil {
		res.Features, err = l.render(fc)
	}
	res.Err = err

	outcome := Outcome(err)
	l.metrics.DatasetLoads.WithLabelValues(outcome).Inc()
	l.metrics.DatasetLoadDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		l.logger.Error("error loading or processing GeoJSON",
			zap.String("url", l.cfg.URL),
			zap.String("outcome", outcome),
			zap.Error(err),
		)
		l.surface.ShowNotice(ErrorNotice)
		return res
	}

	l.logger.Info("dataset rendered",
		zap.String("url", l.cfg.URL),
		zap.Int("features", res.Features),
		zap.Duration("elapsed", time.Since(start)),
	)
	return res
}

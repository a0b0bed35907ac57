package server

import (
	"github.com/joeblew999/plat-choropleth/internal/choropleth"
	"github.com/joeblew999/plat-choropleth/internal/colorscale"
	"github.com/joeblew999/plat-choropleth/internal/legend"
	"github.com/joeblew999/plat-choropleth/internal/loader"
	"github.com/joeblew999/plat-choropleth/internal/mapview"
	"github.com/joeblew999/plat-choropleth/internal/numfmt"
	"github.com/joeblew999/plat-choropleth/internal/observability"
	"go.uber.org/zap"
)

// Session is one map with its dataset pipeline. The styler and the legend
// are built from the same scale.
type Session struct {
	Map    *mapview.Map
	Scale  *colorscale.Scale
	Styler *choropleth.Styler
	Legend *legend.Renderer
	Loader *loader.Loader
}

// NewSession creates the map, adds the tile backdrop and prepares the loader.
// Nothing is fetched until Loader.Load is called.
func NewSession(cfg Config, metrics *observability.Metrics, logger *zap.Logger) *Session {
	m := mapview.New(mapview.DefaultView)

	tiles := mapview.DefaultTiles
	if cfg.TileURL != "" {
		tiles.URL = cfg.TileURL
	}
	m.AddTileLayer(tiles)

	scale := colorscale.Default()
	styler := choropleth.NewStyler(scale, numfmt.New(cfg.Locale, cfg.Decimals))
	lg := legend.New(scale)

	return &Session{
		Map:    m,
		Scale:  scale,
		Styler: styler,
		Legend: lg,
		Loader: loader.New(loader.Config{URL: cfg.DatasetURL, Client: cfg.Client}, m, styler, lg, metrics, logger),
	}
}

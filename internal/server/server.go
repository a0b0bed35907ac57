package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/joeblew999/plat-choropleth/internal/api"
	"github.com/joeblew999/plat-choropleth/internal/loader"
	"github.com/joeblew999/plat-choropleth/internal/mapview"
	"github.com/joeblew999/plat-choropleth/internal/observability"
	"github.com/joeblew999/plat-choropleth/internal/templates"
)

// Config holds the server configuration.
type Config struct {
	Host    string
	Port    string
	DataDir string // served under /data/

	DatasetURL     string
	DatasetTimeout time.Duration // 0 disables the timeout
	Client         *http.Client  // nil selects a default client

	Locale   string
	Decimals int
	TileURL  string

	Logger *zap.Logger // nil selects zap.L()
}

// Server is the choropleth HTTP server.
type Server struct {
	config   Config
	mux      *http.ServeMux
	humaAPI  huma.API
	session  *Session
	renderer *templates.Renderer
	registry *prometheus.Registry
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// New creates a new choropleth server.
func New(cfg Config) (*Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.L()
	}

	mux := http.NewServeMux()

	// Create Huma API with humago (pure stdlib) adapter
	humaConfig := huma.DefaultConfig("plat-choropleth API", "1.0.0")
	humaConfig.Info.Description = "Choropleth map API: styled regions, color scale and legend."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%s", cfg.Host, cfg.Port), Description: "Local server"},
	}
	// Disable $schema property in responses (cleaner JSON)
	humaConfig.CreateHooks = []func(huma.Config) huma.Config{}
	humaConfig.Transformers = append(humaConfig.Transformers, api.LinkTransformer())

	humaAPI := humago.New(mux, humaConfig)

	renderer, err := templates.New()
	if err != nil {
		return nil, eris.Wrap(err, "server: parse templates")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	s := &Server{
		config:   cfg,
		mux:      mux,
		humaAPI:  humaAPI,
		session:  NewSession(cfg, metrics, logger),
		renderer: renderer,
		registry: registry,
		metrics:  metrics,
		logger:   logger,
	}

	s.routes()
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// OpenAPI returns the generated OpenAPI document.
func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.humaAPI.OpenAPI()
}

// Session returns the map session.
func (s *Server) Session() *Session {
	return s.session
}

func (s *Server) routes() {
	// Register Huma REST API routes (OpenAPI-documented JSON endpoints)
	huma.AutoRegister(s.humaAPI, api.NewAPIHandler(&api.Services{
		Map:      s.session.Map,
		Styler:   s.session.Styler,
		Loader:   s.session.Loader,
		Renderer: s.renderer,
	}))
	api.NewInfoHandler(api.InfoBody{
		DatasetURL: s.config.DatasetURL,
		DataDir:    s.config.DataDir,
		Locale:     s.session.Styler.Formatter().Locale,
		Decimals:   s.session.Styler.Formatter().DecimalPlaces,
		TileURL:    s.tileURL(),
	}).RegisterRoutes(s.humaAPI)

	if s.config.DataDir != "" {
		s.mux.Handle("/data/", http.StripPrefix("/data/", s.handleData(s.config.DataDir)))
	}
	s.mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	// Page routes
	s.mux.HandleFunc("/viewer", s.handleViewer)
	s.mux.HandleFunc("/", s.handleRoot)
}

func (s *Server) tileURL() string {
	if s.config.TileURL != "" {
		return s.config.TileURL
	}
	return mapview.DefaultTiles.URL
}

// Load fetches and renders the dataset once, then notifies event
// subscribers that loading has finished.
func (s *Server) Load(ctx context.Context) loader.Result {
	if s.config.DatasetTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.DatasetTimeout)
		defer cancel()
	}
	res := s.session.Loader.Load(ctx)
	s.session.Map.Bus().Publish(mapview.Event{Kind: "loaded"})
	return res
}

// ListenAndServe binds the listener, starts loading the dataset and serves
// until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := net.JoinHostPort(s.config.Host, s.config.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return eris.Wrapf(err, "server: listen on %s", addr)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln. The dataset load starts once the listener is bound so
// a dataset URL pointing back at /data/ resolves.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server starting", zap.String("addr", ln.Addr().String()))
		errCh <- httpServer.Serve(ln)
	}()
	go s.Load(ctx)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return eris.Wrap(err, "server: serve")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return eris.Wrap(err, "server: shutdown")
	}
	return nil
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	http.Redirect(w, r, "/viewer", http.StatusFound)
}

// ViewerPage is the view model of the viewer template.
type ViewerPage struct {
	Title    string
	View     mapview.Snapshot
	Notice   string
	Status   api.StatusData
	Controls []mapview.ControlInfo
}

func (s *Server) handleViewer(w http.ResponseWriter, r *http.Request) {
	snap := s.session.Map.Snapshot()
	page := ViewerPage{
		Title:    "Mapa coroplético",
		View:     snap,
		Controls: snap.Controls,
	}
	if n := len(snap.Notices); n > 0 {
		page.Notice = snap.Notices[n-1]
	}
	if res, done := s.session.Loader.Status(); done {
		page.Status = api.StatusData{Loaded: res.OK(), Features: res.Features}
	}

	html, err := s.renderer.Render("viewer.html", page)
	if err != nil {
		s.logger.Error("render viewer", zap.Error(err))
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(html))
}

// handleData serves dataset files with CORS headers so external viewers can
// fetch them.
func (s *Server) handleData(dataDir string) http.Handler {
	fs := http.FileServer(http.Dir(filepath.Clean(dataDir)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		if filepath.Ext(r.URL.Path) == ".geojson" {
			w.Header().Set("Content-Type", "application/geo+json")
		}

		fs.ServeHTTP(w, r)
	})
}

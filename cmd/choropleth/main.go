package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/plat-choropleth/internal/colorscale"
	"github.com/joeblew999/plat-choropleth/internal/legend"
	"github.com/joeblew999/plat-choropleth/internal/logging"
	"github.com/joeblew999/plat-choropleth/internal/server"
)

// Options defines all CLI flags and env vars for the choropleth server.
// Flags: --host, --port, --data-dir, --dataset-url, --dataset-timeout, ...
// Env vars: SERVICE_HOST, SERVICE_PORT, SERVICE_DATA_DIR, SERVICE_DATASET_URL, ...
type Options struct {
	Host           string `doc:"Host to bind to" default:"0.0.0.0"`
	Port           int    `doc:"Port to listen on" short:"p" default:"8086"`
	DataDir        string `doc:"Directory served under /data" default:".data"`
	DatasetURL     string `doc:"GeoJSON dataset URL" default:"http://localhost:8086/data/charts/C3/es/G9b.geojson"`
	DatasetTimeout string `doc:"Dataset fetch timeout, 0 for none" default:"0s"`
	Locale         string `doc:"Number formatting locale" default:"es"`
	Decimals       int    `doc:"Fraction digits shown in popups" default:"2"`
	TileURL        string `doc:"Basemap tile URL template (empty for CartoDB light)" default:""`
	LogLevel       string `doc:"Log level: debug, info, warn, error" default:"info"`
	LogFormat      string `doc:"Log format: json or console" default:"json"`
}

func newConfig(opts *Options) (server.Config, error) {
	timeout, err := time.ParseDuration(opts.DatasetTimeout)
	if err != nil {
		return server.Config{}, eris.Wrapf(err, "parse dataset timeout %q", opts.DatasetTimeout)
	}
	return server.Config{
		Host:           opts.Host,
		Port:           strconv.Itoa(opts.Port),
		DataDir:        opts.DataDir,
		DatasetURL:     opts.DatasetURL,
		DatasetTimeout: timeout,
		Locale:         opts.Locale,
		Decimals:       opts.Decimals,
		TileURL:        opts.TileURL,
		Logger:         zap.L(),
	}, nil
}

func newServer(opts *Options) (*server.Server, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}
	return server.New(cfg)
}

func fatal(msg string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	os.Exit(1)
}

func initLogger(opts *Options) {
	if _, err := logging.Init(opts.LogLevel, opts.LogFormat); err != nil {
		fatal("Error configuring logger", err)
	}
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		ctx, cancel := context.WithCancel(context.Background())

		hooks.OnStart(func() {
			initLogger(opts)
			srv, err := newServer(opts)
			if err != nil {
				fatal("Error creating server", err)
			}

			displayHost := opts.Host
			if displayHost == "0.0.0.0" {
				displayHost = "localhost"
			}
			baseURL := fmt.Sprintf("http://%s:%d", displayHost, opts.Port)

			fmt.Println()
			fmt.Printf("plat-choropleth server starting...\n")
			fmt.Printf("  Server:  %s\n", baseURL)
			fmt.Printf("  Data:    %s\n", opts.DataDir)
			fmt.Printf("  Dataset: %s\n", opts.DatasetURL)
			fmt.Println()
			fmt.Printf("  Viewer:  %s/viewer\n", baseURL)
			fmt.Printf("  Docs:    %s/docs\n", baseURL)
			fmt.Printf("  OpenAPI: %s/openapi.json\n", baseURL)
			fmt.Printf("  Metrics: %s/metrics\n", baseURL)
			fmt.Println()

			if err := srv.ListenAndServe(ctx); err != nil {
				zap.L().Fatal("server error", zap.Error(err))
			}
		})

		hooks.OnStop(func() {
			cancel()
			_ = zap.L().Sync()
		})
	})

	cli.Root().Use = "choropleth"
	cli.Root().Short = "Choropleth map server with a synchronized color legend"
	cli.Root().Version = "0.1.0"

	// spec subcommand: export OpenAPI spec
	specCmd := &cobra.Command{
		Use:   "spec",
		Short: "Export OpenAPI spec (JSON by default, --yaml for YAML)",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			zap.ReplaceGlobals(zap.NewNop())
			srv, err := newServer(opts)
			if err != nil {
				fatal("Error creating server", err)
			}
			spec := srv.OpenAPI()

			useYAML, _ := cmd.Flags().GetBool("yaml")

			var output []byte
			if useYAML {
				output, err = yaml.Marshal(spec)
			} else {
				output, err = json.MarshalIndent(spec, "", "  ")
			}
			if err != nil {
				fatal("Error marshaling spec", err)
			}
			fmt.Println(string(output))
		}),
	}
	specCmd.Flags().BoolP("yaml", "y", false, "Output as YAML instead of JSON")
	cli.Root().AddCommand(specCmd)

	// legend subcommand: write the legend control as PNG
	legendCmd := &cobra.Command{
		Use:   "legend",
		Short: "Render the color legend to a PNG file",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			out, _ := cmd.Flags().GetString("output")
			data, err := legend.New(colorscale.Default()).Control().Render()
			if err != nil {
				fatal("Error rendering legend", err)
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				fatal("Error writing legend", err)
			}
			fmt.Printf("Legend written to %s\n", out)
		}),
	}
	legendCmd.Flags().StringP("output", "o", "legend.png", "Output PNG file")
	cli.Root().AddCommand(legendCmd)

	// render subcommand: style a dataset offline and print the result
	renderCmd := &cobra.Command{
		Use:   "render <url|file>",
		Short: "Load a dataset, style it and print the styled GeoJSON",
		Args:  cobra.ExactArgs(1),
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			initLogger(opts)
			cfg, err := newConfig(opts)
			if err != nil {
				fatal("Error reading options", err)
			}
			output, err := renderDataset(cmd.Context(), cfg, args[0])
			if err != nil {
				fatal("Error rendering dataset", err)
			}
			fmt.Println(string(output))
		}),
	}
	cli.Root().AddCommand(renderCmd)

	cli.Run()
}

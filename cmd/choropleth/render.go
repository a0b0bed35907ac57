package main

import (
	"context"
	"encoding/json"
	"os"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/joeblew999/plat-choropleth/internal/loader"
	"github.com/joeblew999/plat-choropleth/internal/server"
)

// renderDataset loads source, a URL or a local file, onto a fresh session
// and returns the styled feature collection as indented JSON.
func renderDataset(ctx context.Context, cfg server.Config, source string) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	remote := strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
	if remote {
		cfg.DatasetURL = source
	}
	session := server.NewSession(cfg, nil, cfg.Logger)

	if remote {
		if res := session.Loader.Load(ctx); res.Err != nil {
			return nil, res.Err
		}
	} else {
		body, err := os.ReadFile(source)
		if err != nil {
			return nil, eris.Wrapf(err, "read %s", source)
		}
		fc, err := loader.Decode(body)
		if err != nil {
			return nil, err
		}
		session.Loader.Render(fc)
	}

	out, err := json.MarshalIndent(session.Map.FeatureCollection(), "", "  ")
	if err != nil {
		return nil, eris.Wrap(err, "encode features")
	}
	return out, nil
}

package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
)

type InfoHandler struct {
	body InfoBody
}

func NewInfoHandler(body InfoBody) *InfoHandler {
	if body.Name == "" {
		body.Name = "plat-choropleth"
	}
	if body.Version == "" {
		body.Version = "0.1.0"
	}
	return &InfoHandler{body: body}
}

func (h *InfoHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/info", h.GetInfo, huma.OperationTags("health"))
}

type InfoBody struct {
	Name       string `json:"name" doc:"Service name"`
	Version    string `json:"version" doc:"Service version"`
	DatasetURL string `json:"dataset_url" doc:"URL the dataset is loaded from"`
	DataDir    string `json:"data_dir" doc:"Directory served under /data"`
	Locale     string `json:"locale" doc:"Number formatting locale" example:"es"`
	Decimals   int    `json:"decimals" doc:"Fraction digits in popups" example:"2"`
	TileURL    string `json:"tile_url" doc:"Basemap tile URL template"`
}

func (h *InfoHandler) GetInfo(ctx context.Context, input *struct{}) (*struct{ Body InfoBody }, error) {
	return &struct{ Body InfoBody }{Body: h.body}, nil
}

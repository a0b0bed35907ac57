// Package api defines the Huma API routes and handlers.
package api

import (
	"context"
	"math"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-choropleth/internal/choropleth"
	"github.com/joeblew999/plat-choropleth/internal/loader"
	"github.com/joeblew999/plat-choropleth/internal/mapview"
	"github.com/joeblew999/plat-choropleth/internal/templates"
)

// Services holds the session dependencies for API handlers.
type Services struct {
	Map      *mapview.Map
	Styler   *choropleth.Styler
	Loader   *loader.Loader
	Renderer *templates.Renderer
}

// Types

type ControlInput struct {
	ID string `path:"id" doc:"Control ID" example:"legend"`
}

type ColorInput struct {
	Value string `path:"value" doc:"Raw attribute value, parsed leniently" example:"57.3"`
}

type RampInput struct {
	Steps int `query:"steps" default:"11" minimum:"2" maximum:"256" doc:"Number of evenly spaced samples"`
}

// RawOutput is a non-JSON response body.
type RawOutput struct {
	ContentType  string `header:"Content-Type"`
	CacheControl string `header:"Cache-Control"`
	Body         []byte
}

type HealthBody struct {
	Status  string `json:"status" doc:"Health status" example:"ok"`
	Version string `json:"version" doc:"API version" example:"1.0.0"`
}

type MapBody struct {
	mapview.Snapshot
	Loaded bool   `json:"loaded" doc:"Whether the dataset was rendered"`
	Error  string `json:"error,omitempty" doc:"Load failure cause"`
}

type ColorBody struct {
	Value  string            `json:"value" doc:"Raw input value"`
	NoData bool              `json:"noData" doc:"Whether the value did not parse as a number"`
	Style  mapview.PathStyle `json:"style" doc:"Style a region with this value is painted with"`
}

type RampBody struct {
	Min    float64  `json:"min" doc:"Low end of the domain" example:"0"`
	Max    float64  `json:"max" doc:"High end of the domain" example:"100"`
	Colors []string `json:"colors" doc:"Colors from the low end to the high end"`
}

// APIHandler holds all REST API handlers. Methods named Register* are
// auto-discovered by huma.AutoRegister.
type APIHandler struct {
	svc *Services
}

func NewAPIHandler(svc *Services) *APIHandler {
	return &APIHandler{svc: svc}
}

// RegisterHealth registers health check routes.
func (h *APIHandler) RegisterHealth(api huma.API) {
	huma.Get(api, "/health", h.GetHealth, huma.OperationTags("health"))
}

// RegisterMap registers the map surface routes.
func (h *APIHandler) RegisterMap(api huma.API) {
	huma.Get(api, "/api/v1/map", h.GetMap, huma.OperationTags("map"))
	huma.Get(api, "/api/v1/map/features", h.GetFeatures, huma.OperationTags("map"))
	huma.Get(api, "/api/v1/map/controls/{id}", h.GetControl, huma.OperationTags("map"))
	huma.Get(api, "/api/v1/map/events", h.MapEvents, huma.OperationTags("map"))
}

// RegisterColors registers the color scale routes.
func (h *APIHandler) RegisterColors(api huma.API) {
	huma.Get(api, "/api/v1/colors", h.GetRamp, huma.OperationTags("colors"))
	huma.Get(api, "/api/v1/colors/{value}", h.GetColor, huma.OperationTags("colors"))
}

// Handlers

func (h *APIHandler) GetHealth(ctx context.Context, input *struct{}) (*struct{ Body HealthBody }, error) {
	return &struct{ Body HealthBody }{Body: HealthBody{Status: "ok", Version: "1.0.0"}}, nil
}

func (h *APIHandler) GetMap(ctx context.Context, input *struct{}) (*struct{ Body MapBody }, error) {
	body := MapBody{Snapshot: h.svc.Map.Snapshot()}
	if res, done := h.svc.Loader.Status(); done {
		body.Loaded = res.OK()
		if res.Err != nil {
			body.Error = res.Err.Error()
		}
	}
	return &struct{ Body MapBody }{Body: body}, nil
}

func (h *APIHandler) GetFeatures(ctx context.Context, input *struct{}) (*RawOutput, error) {
	data, err := h.svc.Map.FeatureCollection().MarshalJSON()
	if err != nil {
		return nil, huma.Error500InternalServerError("encode features", err)
	}
	return &RawOutput{ContentType: "application/geo+json", CacheControl: "no-cache", Body: data}, nil
}

func (h *APIHandler) GetControl(ctx context.Context, input *ControlInput) (*RawOutput, error) {
	c, ok := h.svc.Map.Control(input.ID)
	if !ok {
		return nil, huma.Error404NotFound("control not found")
	}
	data, err := c.Render()
	if err != nil {
		return nil, huma.Error500InternalServerError("render control", err)
	}
	return &RawOutput{ContentType: c.ContentType(), CacheControl: "no-cache", Body: data}, nil
}

func (h *APIHandler) GetColor(ctx context.Context, input *ColorInput) (*struct{ Body ColorBody }, error) {
	v := choropleth.ParseValue(input.Value)
	return &struct{ Body ColorBody }{Body: ColorBody{
		Value:  input.Value,
		NoData: math.IsNaN(v),
		Style:  h.svc.Styler.StyleForValue(v),
	}}, nil
}

func (h *APIHandler) GetRamp(ctx context.Context, input *RampInput) (*struct{ Body RampBody }, error) {
	scale := h.svc.Styler.Scale()
	min, max := scale.Domain()
	return &struct{ Body RampBody }{Body: RampBody{Min: min, Max: max, Colors: scale.Sample(input.Steps)}}, nil
}

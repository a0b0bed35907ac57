package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"go.uber.org/zap"

	"github.com/joeblew999/plat-choropleth/internal/humastar"
)

// Element IDs patched on the viewer page.
const (
	NoticeSelector = "#map-notice"
	StatusSelector = "#map-status"
)

// MapEvents streams the notice and load status to the Datastar viewer: once
// on connect and again after every change to the map surface.
func (h *APIHandler) MapEvents(ctx context.Context, input *humastar.EmptyInput) (*huma.StreamResponse, error) {
	return humastar.Stream(func(sse humastar.SSE) {
		sub := h.svc.Map.Bus().Subscribe(0)
		defer sub.Close()

		if err := h.push(sse); err != nil {
			zap.L().Debug("map events: push", zap.Error(err))
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-sub.C:
				if !ok {
					return
				}
				if err := h.push(sse); err != nil {
					zap.L().Debug("map events: push", zap.Error(err))
					return
				}
			}
		}
	}), nil
}

// StatusData is the view model of the status fragment.
type StatusData struct {
	Loaded   bool
	Features int
}

func (h *APIHandler) push(sse humastar.SSE) error {
	notice, err := h.svc.Renderer.Render("notice", h.notice())
	if err != nil {
		return err
	}
	if err := sse.Patch(notice, NoticeSelector); err != nil {
		return err
	}

	res, done := h.svc.Loader.Status()
	status := StatusData{Loaded: done && res.OK(), Features: res.Features}
	html, err := h.svc.Renderer.Render("status", status)
	if err != nil {
		return err
	}
	if err := sse.Patch(html, StatusSelector); err != nil {
		return err
	}
	return sse.Signals(map[string]any{
		"loaded":   status.Loaded,
		"features": status.Features,
	})
}

// notice returns the latest notice, empty when none was shown.
func (h *APIHandler) notice() string {
	notices := h.svc.Map.Notices()
	if len(notices) == 0 {
		return ""
	}
	return notices[len(notices)-1]
}

// Package ui contains the Datastar SSE handlers behind the parks page.
//
// The page opens one event stream per session. Every POST runs an action on
// the session's event loop; the resulting view change comes back over the
// stream, never in the POST response.
package ui

import (
	"context"
	"errors"
	"slices"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-parks/internal/humastar"
	"github.com/joeblew999/plat-parks/internal/service"
	"github.com/joeblew999/plat-parks/internal/session"
	"github.com/joeblew999/plat-parks/internal/templates"
)

// Handler serves the page's event stream and actions.
type Handler struct {
	humastar.Handler
	Sessions *session.Manager
	Bus      *service.EventBus
}

// NewHandler creates a UI handler.
func NewHandler(sessions *session.Manager, bus *service.EventBus, renderer *templates.Renderer) *Handler {
	return &Handler{
		Handler:  humastar.Handler{Renderer: renderer},
		Sessions: sessions,
		Bus:      bus,
	}
}

func (h *Handler) RegisterRoutes(api huma.API) {
	tags := huma.OperationTags("ui")
	huma.Get(api, "/api/v1/ui/events", h.Events, tags)
	huma.Post(api, "/api/v1/ui/map/load", h.MapLoad, tags)
	huma.Post(api, "/api/v1/ui/map/error", h.MapError, tags)
	huma.Post(api, "/api/v1/ui/parks/{id}/select", h.SelectPark, tags)
	huma.Post(api, "/api/v1/ui/parks/{id}/hover", h.HoverPark, tags)
	huma.Post(api, "/api/v1/ui/parks/{id}/favorite", h.ToggleFavorite, tags)
	huma.Post(api, "/api/v1/ui/filter", h.Filter, tags)
	huma.Post(api, "/api/v1/ui/markers/{id}/click", h.ClickMarker, tags)
	huma.Post(api, "/api/v1/ui/markers/{id}/hover", h.HoverMarker, tags)
}

// Inputs

type ParkInput struct {
	ID      string `path:"id" doc:"NPS park code"`
	RawBody []byte
}

type HoverInput struct {
	ID       string `path:"id" doc:"NPS park code"`
	Entering bool   `query:"entering" doc:"Pointer entered (true) or left (false) the list item"`
	RawBody  []byte
}

type MarkerHoverInput struct {
	ID      string `path:"id" doc:"NPS park code"`
	Hovered bool   `query:"hovered" doc:"Pointer is over the marker"`
	RawBody []byte
}

// session resolves the sid signal to a live session.
func (h *Handler) session(signals humastar.Signals) (*session.Session, error) {
	sid := signals.String("sid")
	if sid == "" {
		return nil, huma.Error400BadRequest("missing sid signal")
	}
	s, ok := h.Sessions.Get(sid)
	if !ok {
		return nil, huma.Error404NotFound("session expired, reload the page")
	}
	return s, nil
}

func (h *Handler) bodySession(body []byte) (*session.Session, humastar.Signals, error) {
	input := humastar.SignalsInput{RawBody: body}
	signals, err := input.MustParse()
	if err != nil {
		return nil, nil, err
	}
	s, err := h.session(signals)
	return s, signals, err
}

// actionError maps session errors to HTTP errors.
func actionError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, session.ErrUnknownPark):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, session.ErrUnknownParkType):
		return huma.Error400BadRequest(err.Error())
	case errors.Is(err, session.ErrMapNotReady):
		return huma.Error409Conflict(err.Error())
	default:
		return huma.Error500InternalServerError("action failed", err)
	}
}

// Events streams the session view. Opening the stream resolves the DOM gate.
func (h *Handler) Events(ctx context.Context, input *humastar.QuerySignalsInput) (*huma.StreamResponse, error) {
	signals, err := input.Parse()
	if err != nil {
		return nil, huma.Error400BadRequest("Invalid request data: " + err.Error())
	}
	s, err := h.session(signals)
	if err != nil {
		return nil, err
	}

	return h.Stream(func(sse humastar.SSE) {
		ch := h.Bus.Subscribe(s.ID)
		defer h.Bus.Unsubscribe(ch)
		detach := s.Attach()
		defer detach()

		s.DOMReady()
		var last pushed
		h.push(sse, s, &last)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ch:
				h.push(sse, s, &last)
			}
		}
	}), nil
}

// pushed remembers what a stream already sent.
type pushed struct {
	sent      bool
	parkTypes []string
}

func (h *Handler) push(sse humastar.SSE, s *session.Session, last *pushed) {
	v := s.View()

	signals := map[string]any{
		"map":     v.Map,
		"loading": !v.Loaded && v.Error == "",
	}
	if !last.sent || !slices.Equal(last.parkTypes, v.ParkTypes) {
		options := make([]humastar.SelectOptionData, len(v.ParkTypes))
		for i, t := range v.ParkTypes {
			options[i] = humastar.SelectOptionData{Value: t, Label: t}
		}
		sse.Patch(h.RenderSelect("All park types", options), "#park-type-filter")
		// Replacing the options resets the select; restore the bound value.
		signals["parkTypeFilter"] = v.ParkTypeFilter
		last.parkTypes = v.ParkTypes
		last.sent = true
	}
	sse.Signals(signals)
	sse.Error(v.Error)
	sse.Patch(h.renderParkList(v), "#park-list")
}

func (h *Handler) renderParkList(v session.View) string {
	if !v.Loaded {
		if v.Error != "" {
			return h.RenderList("", nil, "Parks unavailable.", v.Error)
		}
		out, _ := h.Renderer.Render("loading", nil)
		return out
	}
	visible := v.Visible()
	items := make([]any, len(visible))
	for i, p := range visible {
		items[i] = p
	}
	msg := "No parks match the selected type."
	if v.OnlyShowFavorites {
		msg = "Mark parks with the star to see them here."
	}
	return h.RenderList("park-item", items, "No parks.", msg)
}

// MapLoad reports the map widget script's load event.
func (h *Handler) MapLoad(ctx context.Context, input *humastar.SignalsInput) (*struct{}, error) {
	s, signals, err := h.bodySession(input.RawBody)
	if err != nil {
		return nil, err
	}
	s.MapLoaded(signals.Bool("mapwidget"))
	return &struct{}{}, nil
}

// MapError reports the map widget script's error event.
func (h *Handler) MapError(ctx context.Context, input *humastar.SignalsInput) (*struct{}, error) {
	s, _, err := h.bodySession(input.RawBody)
	if err != nil {
		return nil, err
	}
	s.MapFailed()
	return &struct{}{}, nil
}

func (h *Handler) SelectPark(ctx context.Context, input *ParkInput) (*struct{}, error) {
	s, _, err := h.bodySession(input.RawBody)
	if err != nil {
		return nil, err
	}
	if err := actionError(s.SelectPark(input.ID)); err != nil {
		return nil, err
	}
	return &struct{}{}, nil
}

func (h *Handler) HoverPark(ctx context.Context, input *HoverInput) (*struct{}, error) {
	s, _, err := h.bodySession(input.RawBody)
	if err != nil {
		return nil, err
	}
	if err := actionError(s.HoverPark(input.ID, input.Entering)); err != nil {
		return nil, err
	}
	return &struct{}{}, nil
}

func (h *Handler) ToggleFavorite(ctx context.Context, input *ParkInput) (*struct{}, error) {
	s, _, err := h.bodySession(input.RawBody)
	if err != nil {
		return nil, err
	}
	if err := actionError(s.ToggleFavorite(input.ID)); err != nil {
		return nil, err
	}
	return &struct{}{}, nil
}

// Filter applies the parkTypeFilter and onlyShowFavorites signals.
func (h *Handler) Filter(ctx context.Context, input *humastar.SignalsInput) (*struct{}, error) {
	s, signals, err := h.bodySession(input.RawBody)
	if err != nil {
		return nil, err
	}
	err = s.SetFilters(signals.String("parkTypeFilter"), signals.Bool("onlyShowFavorites"))
	if err := actionError(err); err != nil {
		return nil, err
	}
	return &struct{}{}, nil
}

func (h *Handler) ClickMarker(ctx context.Context, input *ParkInput) (*struct{}, error) {
	s, _, err := h.bodySession(input.RawBody)
	if err != nil {
		return nil, err
	}
	if err := actionError(s.ClickMarker(input.ID)); err != nil {
		return nil, err
	}
	return &struct{}{}, nil
}

func (h *Handler) HoverMarker(ctx context.Context, input *MarkerHoverInput) (*struct{}, error) {
	s, _, err := h.bodySession(input.RawBody)
	if err != nil {
		return nil, err
	}
	if err := actionError(s.HoverMarker(input.ID, input.Hovered)); err != nil {
		return nil, err
	}
	return &struct{}{}, nil
}

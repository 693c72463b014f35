// Package api defines the Huma API routes and handlers.
package api

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-parks/internal/humastar"
	"github.com/joeblew999/plat-parks/internal/nps"
	"github.com/joeblew999/plat-parks/internal/service"
)

// ParkSource supplies the park list. *nps.Repository implements it.
type ParkSource interface {
	Parks(ctx context.Context) ([]service.ParkData, error)
}

// Services holds the service dependencies for API handlers.
type Services struct {
	Parks ParkSource
}

// Types

type IDInput struct {
	ID string `path:"id" doc:"NPS park code" example:"crla"`
}

type ParksInput struct {
	Offset int    `query:"offset" default:"0" minimum:"0" doc:"Index of the first park"`
	Limit  int    `query:"limit" default:"20" minimum:"1" maximum:"100" doc:"Page size"`
	Type   string `query:"type" doc:"Only parks of this NPS designation" example:"National Park"`
}

// ParkBody is one park with its UI actions.
type ParkBody struct {
	service.ParkData
}

// parkActions are the page actions available on every park.
var parkActions = []humastar.ActionDef{
	{Rel: "select", Pattern: "/api/v1/ui/parks/%s/select", Method: "POST", Title: "Select on the map"},
	{Rel: "favorite", Pattern: "/api/v1/ui/parks/%s/favorite", Method: "POST", Title: "Toggle favorite"},
}

// Actions implements humastar.Actor.
func (p ParkBody) Actions() []humastar.Action {
	return humastar.ActionsFor(p.ID, parkActions)
}

type ParkOutput struct {
	Body ParkBody
}

type ParksOutput struct {
	Body humastar.PageBody[service.ParkData]
}

type FeaturesOutput struct {
	ContentType string `header:"Content-Type"`
	Body        []byte
}

type HealthBody struct {
	Status  string `json:"status" doc:"Health status" example:"ok"`
	Version string `json:"version" doc:"API version" example:"1.0.0"`
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

// RegisterParks registers park listing routes.
func (h *APIHandler) RegisterParks(api huma.API) {
	huma.Get(api, "/api/v1/parks", h.GetParks, huma.OperationTags("parks"))
	huma.Get(api, "/api/v1/parks/{id}", h.GetPark, huma.OperationTags("parks"))
}

// RegisterFeatures registers GeoJSON routes.
func (h *APIHandler) RegisterFeatures(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "get-park-features",
		Method:      "GET",
		Path:        "/api/v1/features/parks",
		Summary:     "Parks as a GeoJSON FeatureCollection",
		Tags:        []string{"parks"},
		Responses: map[string]*huma.Response{
			"200": {
				Description: "GeoJSON FeatureCollection",
				Content:     map[string]*huma.MediaType{"application/geo+json": {}},
			},
		},
	}, h.GetFeatures)
}

// Handlers

func (h *APIHandler) GetHealth(ctx context.Context, input *struct{}) (*struct{ Body HealthBody }, error) {
	return &struct{ Body HealthBody }{Body: HealthBody{Status: "ok", Version: "1.0.0"}}, nil
}

func (h *APIHandler) parks(ctx context.Context) ([]service.ParkData, error) {
	if h.svc == nil || h.svc.Parks == nil {
		return nil, huma.Error503ServiceUnavailable("park data not configured")
	}
	parks, err := h.svc.Parks.Parks(ctx)
	switch {
	case err == nil:
		return parks, nil
	case errors.Is(err, nps.ErrParse):
		return nil, huma.Error502BadGateway("NPS returned data that could not be parsed", err)
	default:
		return nil, huma.Error503ServiceUnavailable("park data unavailable", err)
	}
}

func (h *APIHandler) GetParks(ctx context.Context, input *ParksInput) (*ParksOutput, error) {
	parks, err := h.parks(ctx)
	if err != nil {
		return nil, err
	}
	if input.Type != "" {
		filtered := []service.ParkData{}
		for _, p := range parks {
			if p.ParkType == input.Type {
				filtered = append(filtered, p)
			}
		}
		parks = filtered
	}

	start := min(input.Offset, len(parks))
	end := min(start+input.Limit, len(parks))
	return &ParksOutput{Body: humastar.PageBody[service.ParkData]{
		Total:  len(parks),
		Offset: input.Offset,
		Limit:  input.Limit,
		Data:   parks[start:end],
	}}, nil
}

func (h *APIHandler) GetPark(ctx context.Context, input *IDInput) (*ParkOutput, error) {
	parks, err := h.parks(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range parks {
		if p.ID == input.ID {
			return &ParkOutput{Body: ParkBody{ParkData: p}}, nil
		}
	}
	return nil, huma.Error404NotFound("park not found")
}

func (h *APIHandler) GetFeatures(ctx context.Context, input *struct{}) (*FeaturesOutput, error) {
	parks, err := h.parks(ctx)
	if err != nil {
		return nil, err
	}
	data, err := Features(parks).MarshalJSON()
	if err != nil {
		return nil, huma.Error500InternalServerError("encoding features", err)
	}
	return &FeaturesOutput{ContentType: "application/geo+json", Body: data}, nil
}

// Features converts parks to point features carrying the park fields as
// properties.
func Features(parks []service.ParkData) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, p := range parks {
		f := geojson.NewFeature(p.LatLng.Point())
		f.ID = p.ID
		f.Properties["name"] = p.Name
		f.Properties["parkType"] = p.ParkType
		f.Properties["website"] = p.Website
		if p.Address != nil {
			f.Properties["address"] = p.Address.Street + ", " + p.Address.CityState
		}
		if p.ImgURL != "" {
			f.Properties["imgUrl"] = p.ImgURL
		}
		fc.Append(f)
	}
	if len(parks) > 0 {
		b := parks[0].LatLng.Point().Bound()
		for _, p := range parks[1:] {
			b = b.Extend(p.LatLng.Point())
		}
		fc.BBox = geojson.NewBBox(b)
	}
	return fc
}

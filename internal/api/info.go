package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
)

type InfoHandler struct {
	dataDir string
	store   string
	dbOK    bool
}

func NewInfoHandler(dataDir, store string, dbOK bool) *InfoHandler {
	return &InfoHandler{dataDir: dataDir, store: store, dbOK: dbOK}
}

func (h *InfoHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/info", h.GetInfo, huma.OperationTags("health"))
}

type InfoBody struct {
	Name     string   `json:"name" doc:"Service name"`
	Version  string   `json:"version" doc:"Service version"`
	DataDir  string   `json:"data_dir" doc:"Data directory path"`
	Store    string   `json:"store" doc:"Favorites storage backend" enum:"duckdb,redis,memory,none"`
	DB       bool     `json:"db" doc:"Whether the park archive is available"`
	Features []string `json:"features" doc:"Available features"`
}

func (h *InfoHandler) GetInfo(ctx context.Context, input *struct{}) (*struct{ Body InfoBody }, error) {
	features := []string{"nps", "favorites", "geojson", "datastar"}
	if h.dbOK {
		features = append(features, "duckdb")
	}
	return &struct{ Body InfoBody }{Body: InfoBody{
		Name:     "plat-parks",
		Version:  "0.1.0",
		DataDir:  h.dataDir,
		Store:    h.store,
		DB:       h.dbOK,
		Features: features,
	}}, nil
}

// Package service contains the shared domain types and event plumbing for plat-parks.
package service

import "github.com/paulmach/orb"

// ParkData is one normalized National Park Service site.
// Huma reads the tags for OpenAPI docs; the view model wraps it in a Park.
type ParkData struct {
	ID          string   `json:"id" doc:"NPS park code" example:"crla"`
	Name        string   `json:"name" doc:"Display name" example:"Crater Lake"`
	Description string   `json:"description" doc:"Park description"`
	Address     *Address `json:"address,omitempty" doc:"Physical address, if known"`
	ImgURL      string   `json:"imgUrl,omitempty" doc:"First park image URL"`
	ImgAlt      string   `json:"imgAlt,omitempty" doc:"Alt text of the first image"`
	ImgCaption  string   `json:"imgCaption,omitempty" doc:"Caption or credit of the first image"`
	LatLng      LatLng   `json:"latLng" doc:"Park coordinates"`
	ParkType    string   `json:"parkType" doc:"NPS designation" example:"National Park"`
	Website     string   `json:"website" doc:"Official NPS page" example:"https://www.nps.gov/crla/index.htm"`
}

// Address is a two-line display address.
type Address struct {
	Street    string `json:"street" doc:"Street lines" example:"1 Sager Building, Crater Lake National Park"`
	CityState string `json:"cityState" doc:"City, state and postal code" example:"Crater Lake, OR 97604"`
}

// LatLng is a WGS84 coordinate.
type LatLng struct {
	Lat float64 `json:"lat" minimum:"-90" maximum:"90" example:"42.94"`
	Lng float64 `json:"lng" minimum:"-180" maximum:"180" example:"-122.10"`
}

// Point returns the coordinate as an orb point (lng, lat).
func (l LatLng) Point() orb.Point {
	return orb.Point{l.Lng, l.Lat}
}

// Region is a named bounding box used as the map's minimum viewport.
type Region struct {
	StateCode string
	Bound     orb.Bound
}

// Oregon is the default region: its state code and a box enclosing the state.
var Oregon = Region{
	StateCode: "OR",
	Bound: orb.Bound{
		Min: orb.Point{-124.57, 41.99},
		Max: orb.Point{-116.46, 46.29},
	},
}

// NearbyStates lists the state codes treated as adjacent to Oregon.
var NearbyStates = []string{"CA", "ID", "NV", "OR", "WA"}

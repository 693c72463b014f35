// Package nps fetches National Park Service sites and normalizes them into
// service.ParkData.
package nps

import "encoding/json"

// Response is the body returned by the NPS /parks endpoint when requested
// with fields=addresses,images.
type Response struct {
	Data  []Park      `json:"data"`
	Limit json.Number `json:"limit"`
	Start json.Number `json:"start"`
	Total json.Number `json:"total"`
}

// Park is one raw record from the NPS API.
type Park struct {
	Addresses   []Address `json:"addresses"`
	Description string    `json:"description"`
	Designation string    `json:"designation"`
	FullName    string    `json:"fullName"`
	ID          string    `json:"id"`
	Images      []Image   `json:"images"`
	LatLong     string    `json:"latLong"`
	Name        string    `json:"name"`
	ParkCode    string    `json:"parkCode"`
	States      string    `json:"states"`
	URL         string    `json:"url"`
}

// Address is a raw NPS address.
type Address struct {
	City       string `json:"city"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2"`
	Line3      string `json:"line3"`
	PostalCode string `json:"postalCode"`
	StateCode  string `json:"stateCode"`
	Type       string `json:"type"`
}

// Image is a raw NPS image reference.
type Image struct {
	AltText string `json:"altText"`
	Caption string `json:"caption"`
	Credit  string `json:"credit"`
	Title   string `json:"title"`
	URL     string `json:"url"`
}

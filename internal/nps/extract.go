package nps

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strconv"

	"github.com/joeblew999/plat-parks/internal/service"
)

// ErrParse indicates the NPS response no longer has the format we expect.
var ErrParse = errors.New("could not parse NPS data")

// ParseError reports a non-empty field that could not be parsed.
type ParseError struct {
	ParkCode string
	Field    string
	Value    string
	Err      error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	msg := fmt.Sprintf("could not parse %s %q received from NPS for park %s", e.Field, e.Value, e.ParkCode)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap implements errors.Unwrap
func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

var latLongPattern = regexp.MustCompile(`^lat:([\d.-]+), long:([\d.-]+)$`)

// ParseLatLong parses the NPS "lat:<float>, long:<float>" format.
// Callers must skip empty strings; anything else that does not match is an
// upstream format change and returns a *ParseError.
func ParseLatLong(s string) (service.LatLng, error) {
	m := latLongPattern.FindStringSubmatch(s)
	if m == nil {
		return service.LatLng{}, &ParseError{Field: "latLong", Value: s}
	}
	lat, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return service.LatLng{}, &ParseError{Field: "latLong", Value: s, Err: err}
	}
	lng, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return service.LatLng{}, &ParseError{Field: "latLong", Value: s, Err: err}
	}
	return service.LatLng{Lat: lat, Lng: lng}, nil
}

// Extractor turns raw NPS records into normalized parks.
type Extractor struct {
	// Nearby lists state codes whose addresses are close enough to keep.
	Nearby []string
}

// Extract keeps records that have coordinates and a nearby first address,
// and maps them in source order. Some parks span several states, so a park
// listed under the requested state can still be far away.
// A corrupt coordinate string fails the whole batch.
func (x Extractor) Extract(resp *Response) ([]service.ParkData, error) {
	nearby := x.Nearby
	if len(nearby) == 0 {
		nearby = service.NearbyStates
	}

	parks := make([]service.ParkData, 0, len(resp.Data))
	for _, p := range resp.Data {
		if p.LatLong == "" {
			continue
		}
		if len(p.Addresses) == 0 || !slices.Contains(nearby, p.Addresses[0].StateCode) {
			continue
		}

		latLng, err := ParseLatLong(p.LatLong)
		if err != nil {
			var pe *ParseError
			if errors.As(err, &pe) {
				pe.ParkCode = p.ParkCode
			}
			return nil, err
		}

		park := service.ParkData{
			ID:          p.ParkCode,
			Name:        p.Name,
			Description: p.Description,
			Address:     formatAddress(p.Addresses[0]),
			LatLng:      latLng,
			ParkType:    p.Designation,
			Website:     p.URL,
		}
		if len(p.Images) > 0 {
			park.ImgURL = p.Images[0].URL
			park.ImgAlt = p.Images[0].AltText
			park.ImgCaption = p.Images[0].Caption
		}
		parks = append(parks, park)
	}
	return parks, nil
}

func formatAddress(a Address) *service.Address {
	street := a.Line1
	if a.Line2 != "" {
		street = a.Line1 + ", " + a.Line2
	}
	return &service.Address{
		Street:    street,
		CityState: fmt.Sprintf("%s, %s %s", a.City, a.StateCode, a.PostalCode),
	}
}

// Package mapview adapts the page's mapping widget to the park view model.
//
// The widget itself is opaque: [Widget] is the capability set the adapter
// needs, and [SignalWidget] is the implementation that mirrors widget state
// into a serializable [State] for the page to render.
package mapview

import (
	"github.com/paulmach/orb"
)

// Style is a marker's visual state.
type Style string

const (
	StyleDefault Style = "default"
	StyleHovered Style = "hovered"
)

// MarkerOptions describes a marker to create.
type MarkerOptions struct {
	ID       string
	Title    string
	Position orb.Point
}

// Marker is one point marker on the widget.
type Marker interface {
	ID() string
	SetStyle(s Style)
	SetVisible(visible bool)
}

// Widget is the mapping service.
type Widget interface {
	NewMarker(opts MarkerOptions) Marker
	OpenInfo(m Marker, content string)
	CloseInfo()
	FitBounds(b orb.Bound)
}

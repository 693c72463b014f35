package mapview

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/rs/zerolog"

	"github.com/joeblew999/plat-parks/internal/logging"
	"github.com/joeblew999/plat-parks/internal/service"
)

// LookupError reports a marker ID the adapter never created. It is raised as
// a panic.
type LookupError struct {
	ID string
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("mapview: no marker with id %q", e.ID)
}

// Options configures a ParkMap.
type Options struct {
	// Region is always inside the fitted viewport.
	Region orb.Bound
	// OnSelect receives the ID the info overlay opened on, or "" when it closed.
	OnSelect func(id string)
	// OnHover receives marker hover changes.
	OnHover func(id string, hovered bool)
	// Content renders the info overlay body for a park.
	Content func(id string) string
	Log     *zerolog.Logger
}

type entry struct {
	marker   Marker
	position orb.Point
	shown    bool
}

// ParkMap keeps one marker per park on a Widget. Markers are created once and
// then only shown, hidden or restyled. At most one info overlay is open.
type ParkMap struct {
	widget Widget
	opts   Options
	log    *zerolog.Logger

	markers     map[string]*entry
	order       []string
	openID      string
	initialized bool
	bounds      orb.Bound
}

// New creates an adapter over widget.
func New(widget Widget, opts Options) *ParkMap {
	log := opts.Log
	if log == nil {
		log = logging.Default()
	}
	return &ParkMap{
		widget:  widget,
		opts:    opts,
		log:     log,
		markers: make(map[string]*entry),
		bounds:  opts.Region,
	}
}

// InitMarkers creates a marker for every park and fits the viewport to all of
// them. Calling it twice panics.
func (m *ParkMap) InitMarkers(parks []service.ParkData) {
	if m.initialized {
		panic("mapview: InitMarkers called twice")
	}
	m.initialized = true
	for _, p := range parks {
		if _, dup := m.markers[p.ID]; dup {
			continue
		}
		mk := m.widget.NewMarker(MarkerOptions{ID: p.ID, Title: p.Name, Position: p.LatLng.Point()})
		m.markers[p.ID] = &entry{marker: mk, position: p.LatLng.Point(), shown: true}
		m.order = append(m.order, p.ID)
	}
	m.fit()
	m.log.Debug().Int("markers", len(m.order)).Msg("Markers created")
}

// Initialized reports whether InitMarkers has run.
func (m *ParkMap) Initialized() bool {
	return m.initialized
}

// SetVisibleMarkers shows exactly the markers in ids and refits the viewport
// to them. Unknown IDs are ignored.
func (m *ParkMap) SetVisibleMarkers(ids []string) {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	for _, id := range m.order {
		e := m.markers[id]
		if e.shown != want[id] {
			e.shown = want[id]
			e.marker.SetVisible(e.shown)
		}
	}
	m.fit()
}

// fit frames the shown markers together with the minimum region.
func (m *ParkMap) fit() {
	b := m.opts.Region
	for _, id := range m.order {
		if e := m.markers[id]; e.shown {
			b = b.Extend(e.position)
		}
	}
	m.bounds = b
	m.widget.FitBounds(b)
}

// SetHoverState restyles a marker without notifying anyone.
func (m *ParkMap) SetHoverState(id string, hovered bool) {
	e := m.lookup(id)
	if hovered {
		e.marker.SetStyle(StyleHovered)
	} else {
		e.marker.SetStyle(StyleDefault)
	}
}

// InfoOpen opens the overlay on id, closing any other first, and reports
// the selection through OnSelect.
func (m *ParkMap) InfoOpen(id string) {
	e := m.lookup(id)
	if m.openID != "" {
		m.widget.CloseInfo()
	}
	content := ""
	if m.opts.Content != nil {
		content = m.opts.Content(id)
	}
	m.widget.OpenInfo(e.marker, content)
	m.openID = id
	if m.opts.OnSelect != nil {
		m.opts.OnSelect(id)
	}
}

// InfoClose closes the overlay and always reports "" through OnSelect.
func (m *ParkMap) InfoClose() {
	if m.openID != "" {
		m.widget.CloseInfo()
		m.openID = ""
	}
	if m.opts.OnSelect != nil {
		m.opts.OnSelect("")
	}
}

// Click handles a click on a marker: it toggles the overlay on that marker.
func (m *ParkMap) Click(id string) {
	m.lookup(id)
	if m.openID == id {
		m.InfoClose()
		return
	}
	m.InfoOpen(id)
}

// Hover handles the pointer entering or leaving a marker.
func (m *ParkMap) Hover(id string, hovered bool) {
	m.SetHoverState(id, hovered)
	if m.opts.OnHover != nil {
		m.opts.OnHover(id, hovered)
	}
}

// Has reports whether a marker exists for id.
func (m *ParkMap) Has(id string) bool {
	_, ok := m.markers[id]
	return ok
}

// OpenID returns the ID the overlay is open on, or "".
func (m *ParkMap) OpenID() string {
	return m.openID
}

// Shown reports whether the marker for id is displayed.
func (m *ParkMap) Shown(id string) bool {
	return m.lookup(id).shown
}

// ShownIDs returns the displayed marker IDs in creation order.
func (m *ParkMap) ShownIDs() []string {
	out := []string{}
	for _, id := range m.order {
		if m.markers[id].shown {
			out = append(out, id)
		}
	}
	return out
}

// Bounds returns the last fitted viewport.
func (m *ParkMap) Bounds() orb.Bound {
	return m.bounds
}

func (m *ParkMap) lookup(id string) *entry {
	e, ok := m.markers[id]
	if !ok {
		panic(&LookupError{ID: id})
	}
	return e
}

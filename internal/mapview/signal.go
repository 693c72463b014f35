package mapview

import (
	"slices"

	"github.com/paulmach/orb"
)

// MarkerState is the serializable form of a marker.
type MarkerState struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Style   Style   `json:"style"`
	Visible bool    `json:"visible"`
}

// State is everything the page needs to draw the map.
type State struct {
	Markers  []MarkerState `json:"markers"`
	InfoID   string        `json:"infoId"`
	InfoHTML string        `json:"infoHtml"`
	// Bounds is [west, south, east, north].
	Bounds [4]float64 `json:"bounds"`
}

// SignalWidget records widget calls as State and reports every change to
// onChange. The session pushes the state to the page as Datastar signals.
type SignalWidget struct {
	state    State
	index    map[string]int
	onChange func()
}

// NewSignalWidget creates a widget framed on initial. onChange may be nil.
func NewSignalWidget(initial orb.Bound, onChange func()) *SignalWidget {
	w := &SignalWidget{index: make(map[string]int), onChange: onChange}
	w.state.Markers = []MarkerState{}
	w.state.Bounds = boundsArray(initial)
	return w
}

// State returns a copy of the current state.
func (w *SignalWidget) State() State {
	s := w.state
	s.Markers = slices.Clone(w.state.Markers)
	return s
}

func (w *SignalWidget) NewMarker(opts MarkerOptions) Marker {
	if i, ok := w.index[opts.ID]; ok {
		return &signalMarker{w: w, i: i}
	}
	w.index[opts.ID] = len(w.state.Markers)
	w.state.Markers = append(w.state.Markers, MarkerState{
		ID:      opts.ID,
		Title:   opts.Title,
		Lat:     opts.Position.Lat(),
		Lng:     opts.Position.Lon(),
		Style:   StyleDefault,
		Visible: true,
	})
	w.changed()
	return &signalMarker{w: w, i: w.index[opts.ID]}
}

func (w *SignalWidget) OpenInfo(m Marker, content string) {
	w.state.InfoID = m.ID()
	w.state.InfoHTML = content
	w.changed()
}

func (w *SignalWidget) CloseInfo() {
	if w.state.InfoID == "" {
		return
	}
	w.state.InfoID = ""
	w.state.InfoHTML = ""
	w.changed()
}

func (w *SignalWidget) FitBounds(b orb.Bound) {
	next := boundsArray(b)
	if next == w.state.Bounds {
		return
	}
	w.state.Bounds = next
	w.changed()
}

func (w *SignalWidget) changed() {
	if w.onChange != nil {
		w.onChange()
	}
}

func boundsArray(b orb.Bound) [4]float64 {
	return [4]float64{b.Min.Lon(), b.Min.Lat(), b.Max.Lon(), b.Max.Lat()}
}

type signalMarker struct {
	w *SignalWidget
	i int
}

func (m *signalMarker) ID() string {
	return m.w.state.Markers[m.i].ID
}

func (m *signalMarker) SetStyle(s Style) {
	if m.w.state.Markers[m.i].Style == s {
		return
	}
	m.w.state.Markers[m.i].Style = s
	m.w.changed()
}

func (m *signalMarker) SetVisible(visible bool) {
	if m.w.state.Markers[m.i].Visible == visible {
		return
	}
	m.w.state.Markers[m.i].Visible = visible
	m.w.changed()
}

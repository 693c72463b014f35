// Package session wires one page view together: readiness gates, favorites,
// view model and map adapter. A Session is the composition root; its mutex is
// the event loop every entry point runs on (see [Session.Do]).
//
// Startup joins two independent branches. The park fetch loads the view
// model; the map branch waits for the DOM and map widget gates and builds the
// map adapter. Markers are created only after both succeed.
package session

import (
	"context"
	"errors"
	"fmt"
	"html"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/joeblew999/plat-parks/internal/favorites"
	"github.com/joeblew999/plat-parks/internal/kv"
	"github.com/joeblew999/plat-parks/internal/logging"
	"github.com/joeblew999/plat-parks/internal/mapview"
	"github.com/joeblew999/plat-parks/internal/nps"
	"github.com/joeblew999/plat-parks/internal/ready"
	"github.com/joeblew999/plat-parks/internal/service"
	"github.com/joeblew999/plat-parks/internal/viewmodel"
)

// Event kinds published on the bus.
const (
	EventView  = "view"
	EventError = "error"
)

var (
	ErrUnknownPark     = errors.New("unknown park")
	ErrUnknownParkType = errors.New("unknown park type")
	ErrMapNotReady     = errors.New("map is not ready")
)

// ParkSource supplies the park list. *nps.Repository implements it.
type ParkSource interface {
	Parks(ctx context.Context) ([]service.ParkData, error)
}

// Config is shared by every session a Manager creates.
type Config struct {
	Parks   ParkSource
	Storage kv.Store // nil disables persistence
	Bus     *service.EventBus
	Region  service.Region
	// ScriptTimeout bounds the wait for the map widget (ready.ScriptTimeout if zero).
	ScriptTimeout time.Duration
	// InfoContent renders the map's info overlay for a park.
	InfoContent func(p service.ParkData) string
	Log         *zerolog.Logger
}

// Session is the state of one page view.
type Session struct {
	ID        string
	BrowserID string

	cfg       Config
	log       zerolog.Logger
	favorites *favorites.Store

	mu      sync.Mutex
	vm      *viewmodel.ViewModel
	widget  *mapview.SignalWidget
	parkMap *mapview.ParkMap
	dirty   bool
	err     error

	dom           *ready.Signal
	domReady      func()
	scriptEl      *ready.Element
	script        *ready.Signal
	widgetPresent atomic.Bool

	startOnce sync.Once
	cancel    context.CancelFunc
	done      chan struct{}
	streams   atomic.Int32
	lastSeen  atomic.Int64
}

// New creates a session. Favorites are stored under browserID, so they
// outlive the page view. The map widget wait starts now.
func New(id, browserID string, cfg Config) *Session {
	if cfg.Log == nil {
		cfg.Log = logging.Default()
	}
	if cfg.ScriptTimeout <= 0 {
		cfg.ScriptTimeout = ready.ScriptTimeout
	}
	if cfg.Region.Bound.IsZero() {
		cfg.Region = service.Oregon
	}
	if browserID == "" {
		browserID = id
	}

	s := &Session{
		ID:        id,
		BrowserID: browserID,
		cfg:       cfg,
		log:       cfg.Log.With().Str("session", id).Logger(),
		scriptEl:  ready.NewElement(),
		done:      make(chan struct{}),
	}
	var storage kv.Store
	if cfg.Storage != nil {
		storage = kv.Scoped(cfg.Storage, browserID)
	}
	s.favorites = favorites.New(storage, &s.log)
	s.vm = viewmodel.New(s.favorites, &s.log)
	s.vm.OnChange(s.markDirty)

	s.dom, s.domReady = ready.DOM(false)
	s.script = ready.Script(s.widgetPresent.Load, s.scriptEl, cfg.ScriptTimeout)
	s.Touch()
	return s
}

// Do runs fn on the session's event loop. View and map changes made by fn
// are published to the bus once fn returns.
func (s *Session) Do(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
	if s.dirty {
		s.dirty = false
		s.publish(EventView)
	}
}

func (s *Session) markDirty() {
	s.dirty = true
}

func (s *Session) publish(kind string) {
	if s.cfg.Bus != nil {
		s.cfg.Bus.Publish(service.Event{Session: s.ID, Kind: kind})
	}
}

// Start runs startup in the background. Only the first call has an effect.
func (s *Session) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		ctx, s.cancel = context.WithCancel(ctx)
		go s.run(ctx)
	})
}

// Done is closed when startup has finished, successfully or not.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Close stops a running startup.
func (s *Session) Close() {
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *Session) run(ctx context.Context) {
	defer close(s.done)
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		parks, err := s.cfg.Parks.Parks(gctx)
		if err != nil {
			return err
		}
		favs := s.favorites.Load(gctx)
		s.Do(func() { s.vm.LoadParks(parks, favs) })
		return nil
	})
	g.Go(func() error {
		if err := ready.All(gctx, s.dom, s.script); err != nil {
			return err
		}
		s.Do(s.attachMap)
		return nil
	})
	if err := g.Wait(); err != nil {
		s.fail(err)
		return
	}

	var parks int
	s.Do(func() {
		s.vm.InitMarkers()
		parks = len(s.vm.Parks())
	})
	s.log.Info().Dur("took", time.Since(start)).Int("parks", parks).Msg("Session ready")
}

func (s *Session) attachMap() {
	s.widget = mapview.NewSignalWidget(s.cfg.Region.Bound, s.markDirty)
	s.parkMap = mapview.New(s.widget, mapview.Options{
		Region:   s.cfg.Region.Bound,
		OnSelect: s.vm.MarkerSelected,
		OnHover:  s.vm.MarkerHovered,
		Content:  s.infoContent,
		Log:      &s.log,
	})
	s.vm.AttachMap(s.parkMap)
	s.markDirty()
}

func (s *Session) infoContent(id string) string {
	p := s.vm.ParkByID(id)
	if s.cfg.InfoContent == nil {
		return "<strong>" + html.EscapeString(p.Name) + "</strong>"
	}
	return s.cfg.InfoContent(p.ParkData)
}

func (s *Session) fail(err error) {
	if errors.Is(err, context.Canceled) {
		s.log.Debug().Msg("Session startup cancelled")
		return
	}
	s.log.Error().Err(err).Msg("Session startup failed")
	s.Do(func() {
		s.err = err
		s.publish(EventError)
	})
}

// Err returns the startup failure, if any.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Message turns a startup failure into text for the error banner.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ready.ErrScriptLoad):
		return ready.ErrScriptLoad.Error()
	case errors.Is(err, ready.ErrScriptTimeout):
		return ready.ErrScriptTimeout.Error()
	case errors.Is(err, nps.ErrParse):
		return "The park data could not be read. Please try again later."
	case errors.Is(err, nps.ErrUnavailable):
		return "Could not load parks from the National Park Service. Try reloading the page."
	case errors.Is(err, context.DeadlineExceeded):
		return "Loading parks took too long. Try reloading the page."
	default:
		return "Something went wrong loading the map. Try reloading the page."
	}
}

// DOMReady resolves the DOM gate. The events stream calls it when the page
// connects.
func (s *Session) DOMReady() {
	s.domReady()
}

// MapLoaded reports that the widget script fired its load event. present
// tells whether the widget namespace exists.
func (s *Session) MapLoaded(present bool) {
	if present {
		s.widgetPresent.Store(true)
	}
	s.scriptEl.Dispatch(ready.EventLoad)
}

// MapFailed reports that the widget script fired its error event.
func (s *Session) MapFailed() {
	s.scriptEl.Dispatch(ready.EventError)
}

func (s *Session) withPark(id string, fn func(p *viewmodel.Park)) (err error) {
	s.Do(func() {
		p, ok := s.vm.LookupPark(id)
		if !ok {
			err = fmt.Errorf("%w: %q", ErrUnknownPark, id)
			return
		}
		fn(p)
	})
	return err
}

// SelectPark toggles the selection from the park list.
func (s *Session) SelectPark(id string) error {
	return s.withPark(id, s.vm.SelectPark)
}

// HoverPark reports the pointer entering or leaving a list item.
func (s *Session) HoverPark(id string, entering bool) error {
	return s.withPark(id, func(p *viewmodel.Park) { s.vm.ToggleHover(p, entering) })
}

// ToggleFavorite flips a park's favorite flag.
func (s *Session) ToggleFavorite(id string) error {
	return s.withPark(id, s.vm.ToggleFavorite)
}

// SetFilters applies the park type and favorites filters. An empty type
// removes the type filter.
func (s *Session) SetFilters(parkType string, onlyFavorites bool) (err error) {
	s.Do(func() {
		if parkType != "" && !slices.Contains(s.vm.ParkTypes(), parkType) {
			err = fmt.Errorf("%w: %q", ErrUnknownParkType, parkType)
			return
		}
		s.vm.SetParkTypeFilter(parkType)
		s.vm.SetOnlyShowFavorites(onlyFavorites)
	})
	return err
}

func (s *Session) withMarker(id string, fn func()) (err error) {
	s.Do(func() {
		if s.parkMap == nil || !s.parkMap.Initialized() {
			err = ErrMapNotReady
			return
		}
		if !s.parkMap.Has(id) {
			err = fmt.Errorf("%w: %q", ErrUnknownPark, id)
			return
		}
		fn()
	})
	return err
}

// ClickMarker toggles the info overlay on a marker.
func (s *Session) ClickMarker(id string) error {
	return s.withMarker(id, func() { s.parkMap.Click(id) })
}

// HoverMarker reports the pointer entering or leaving a marker.
func (s *Session) HoverMarker(id string, hovered bool) error {
	return s.withMarker(id, func() { s.parkMap.Hover(id, hovered) })
}

// View is everything the page renders.
type View struct {
	viewmodel.Snapshot
	MapReady bool
	Map      mapview.State
	Error    string
}

// View returns a consistent copy of the session state.
func (s *Session) View() View {
	var v View
	s.Do(func() {
		v.Snapshot = s.vm.Snapshot()
		if s.widget != nil {
			v.Map = s.widget.State()
			v.MapReady = s.parkMap.Initialized()
		}
		v.Error = Message(s.err)
	})
	return v
}

// Touch records activity.
func (s *Session) Touch() {
	s.lastSeen.Store(time.Now().UnixNano())
}

// Attach records an open event stream; the returned function detaches it.
func (s *Session) Attach() func() {
	s.streams.Add(1)
	s.Touch()
	return func() {
		s.streams.Add(-1)
		s.Touch()
	}
}

// Idle reports whether the session has no open stream and no activity
// within ttl.
func (s *Session) Idle(now time.Time, ttl time.Duration) bool {
	if s.streams.Load() > 0 {
		return false
	}
	return now.Sub(time.Unix(0, s.lastSeen.Load())) > ttl
}

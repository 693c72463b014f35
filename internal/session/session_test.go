package session

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-parks/internal/kv"
	"github.com/joeblew999/plat-parks/internal/logging"
	"github.com/joeblew999/plat-parks/internal/nps"
	"github.com/joeblew999/plat-parks/internal/ready"
	"github.com/joeblew999/plat-parks/internal/service"
)

// gatedSource returns parks once release is closed.
type gatedSource struct {
	release chan struct{}
	parks   []service.ParkData
	err     error
}

func newGatedSource(parks []service.ParkData) *gatedSource {
	return &gatedSource{release: make(chan struct{}), parks: parks}
}

func (g *gatedSource) Parks(ctx context.Context) ([]service.ParkData, error) {
	select {
	case <-g.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if g.err != nil {
		return nil, g.err
	}
	return append([]service.ParkData(nil), g.parks...), nil
}

func testParks() []service.ParkData {
	return []service.ParkData{
		{ID: "crla", Name: "Crater Lake", ParkType: "National Park", LatLng: service.LatLng{Lat: 42.94, Lng: -122.1}},
		{ID: "joda", Name: "John Day Fossil Beds", ParkType: "National Monument", LatLng: service.LatLng{Lat: 44.66, Lng: -119.65}},
		{ID: "redw", Name: "Redwood", ParkType: "National Park", LatLng: service.LatLng{Lat: 41.37, Lng: -124.03}},
	}
}

func testConfig(src ParkSource, store kv.Store) Config {
	return Config{
		Parks:         src,
		Storage:       store,
		Bus:           service.NewEventBus(),
		Region:        service.Oregon,
		ScriptTimeout: 10 * time.Second,
		Log:           &logging.Nop,
	}
}

func waitDone(t *testing.T, s *Session) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("session startup did not finish")
	}
}

func TestStartup_MarkersWaitForFetch(t *testing.T) {
	src := newGatedSource(testParks())
	s := New("s1", "b1", testConfig(src, kv.NewMemory()))
	s.Start(context.Background())
	defer s.Close()

	s.DOMReady()
	s.MapLoaded(true)

	require.Eventually(t, func() bool {
		return s.View().Map.Bounds != [4]float64{}
	}, time.Second, 5*time.Millisecond, "map adapter should be built before parks arrive")
	v := s.View()
	assert.False(t, v.MapReady)
	assert.Empty(t, v.Map.Markers)
	assert.False(t, v.Loaded)

	close(src.release)
	waitDone(t, s)

	require.NoError(t, s.Err())
	v = s.View()
	assert.True(t, v.MapReady)
	assert.Len(t, v.Map.Markers, 3)
	assert.Equal(t, []string{"crla", "joda", "redw"}, v.VisibleIDs)
}

func TestStartup_MarkersWaitForMap(t *testing.T) {
	src := newGatedSource(testParks())
	close(src.release)
	s := New("s1", "b1", testConfig(src, nil))
	s.Start(context.Background())
	defer s.Close()

	require.Eventually(t, func() bool { return s.View().Loaded }, time.Second, 5*time.Millisecond)
	v := s.View()
	assert.False(t, v.MapReady)
	assert.ErrorIs(t, s.ClickMarker("crla"), ErrMapNotReady)

	// Selecting before the map exists is replayed onto the overlay later.
	require.NoError(t, s.SelectPark("joda"))

	s.MapLoaded(true)
	s.DOMReady()
	waitDone(t, s)

	v = s.View()
	require.True(t, v.MapReady)
	assert.Equal(t, "joda", v.Map.InfoID)
	assert.Equal(t, "joda", v.CurrentID)
}

func TestStartup_ScriptError(t *testing.T) {
	src := newGatedSource(testParks())
	close(src.release)
	s := New("s1", "b1", testConfig(src, nil))
	s.Start(context.Background())
	defer s.Close()

	s.DOMReady()
	s.MapFailed()
	waitDone(t, s)

	assert.ErrorIs(t, s.Err(), ready.ErrScriptLoad)
	assert.Equal(t, ready.ErrScriptLoad.Error(), s.View().Error)
}

func TestStartup_LoadWithoutWidget(t *testing.T) {
	src := newGatedSource(testParks())
	close(src.release)
	s := New("s1", "b1", testConfig(src, nil))
	s.Start(context.Background())
	defer s.Close()

	s.MapLoaded(false)
	waitDone(t, s)

	assert.ErrorIs(t, s.Err(), ready.ErrScriptLoad)
}

func TestStartup_ScriptTimeout(t *testing.T) {
	src := newGatedSource(testParks())
	close(src.release)
	cfg := testConfig(src, nil)
	cfg.ScriptTimeout = 20 * time.Millisecond
	s := New("s1", "b1", cfg)
	s.Start(context.Background())
	defer s.Close()

	s.DOMReady()
	waitDone(t, s)

	assert.ErrorIs(t, s.Err(), ready.ErrScriptTimeout)
	assert.Contains(t, s.View().Error, "took too long")
}

func TestStartup_FetchFailure(t *testing.T) {
	src := newGatedSource(nil)
	src.err = fmt.Errorf("%w: connection refused", nps.ErrUnavailable)
	close(src.release)
	cfg := testConfig(src, nil)
	ch := cfg.Bus.Subscribe("s1")
	defer cfg.Bus.Unsubscribe(ch)

	s := New("s1", "b1", cfg)
	s.Start(context.Background())
	defer s.Close()
	waitDone(t, s)

	assert.ErrorIs(t, s.Err(), nps.ErrUnavailable)
	assert.Contains(t, s.View().Error, "National Park Service")

	var kinds []string
	for len(ch) > 0 {
		ev := <-ch
		assert.Equal(t, "s1", ev.Session)
		kinds = append(kinds, ev.Kind)
	}
	assert.Contains(t, kinds, EventError)
}

func TestFavoritesPersistPerBrowser(t *testing.T) {
	store := kv.NewMemory()
	src := newGatedSource(testParks())
	close(src.release)
	cfg := testConfig(src, store)

	first := New("s1", "browser", cfg)
	first.Start(context.Background())
	require.Eventually(t, func() bool { return first.View().Loaded }, time.Second, 5*time.Millisecond)
	require.NoError(t, first.ToggleFavorite("redw"))
	first.Close()

	second := New("s2", "browser", cfg)
	second.Start(context.Background())
	defer second.Close()
	require.Eventually(t, func() bool { return second.View().Loaded }, time.Second, 5*time.Millisecond)

	v := second.View()
	assert.True(t, v.Parks[2].IsFavorite)

	other := New("s3", "someone-else", cfg)
	other.Start(context.Background())
	defer other.Close()
	require.Eventually(t, func() bool { return other.View().Loaded }, time.Second, 5*time.Millisecond)
	assert.False(t, other.View().Parks[2].IsFavorite)
}

func TestActions(t *testing.T) {
	src := newGatedSource(testParks())
	close(src.release)
	cfg := testConfig(src, nil)
	cfg.InfoContent = func(p service.ParkData) string { return "info:" + p.ID }
	s := New("s1", "b1", cfg)
	s.Start(context.Background())
	defer s.Close()
	s.DOMReady()
	s.MapLoaded(true)
	waitDone(t, s)
	require.NoError(t, s.Err())

	assert.ErrorIs(t, s.SelectPark("nope"), ErrUnknownPark)
	assert.ErrorIs(t, s.ClickMarker("nope"), ErrUnknownPark)
	assert.ErrorIs(t, s.SetFilters("Bogus", false), ErrUnknownParkType)

	require.NoError(t, s.ClickMarker("crla"))
	v := s.View()
	assert.Equal(t, "crla", v.CurrentID)
	assert.Equal(t, "info:crla", v.Map.InfoHTML)

	require.NoError(t, s.SelectPark("crla"))
	v = s.View()
	assert.Empty(t, v.CurrentID)
	assert.Empty(t, v.Map.InfoID)

	require.NoError(t, s.HoverMarker("joda", true))
	assert.Equal(t, "joda", s.View().HoveredID)
	require.NoError(t, s.HoverPark("joda", false))
	assert.Empty(t, s.View().HoveredID)

	require.NoError(t, s.SetFilters("National Park", false))
	v = s.View()
	assert.Equal(t, []string{"crla", "redw"}, v.VisibleIDs)
	assert.False(t, v.Map.Markers[1].Visible)

	require.NoError(t, s.ToggleFavorite("redw"))
	require.NoError(t, s.SetFilters("", true))
	assert.Equal(t, []string{"redw"}, s.View().VisibleIDs)
}

func TestDoPublishesChanges(t *testing.T) {
	src := newGatedSource(testParks())
	close(src.release)
	cfg := testConfig(src, nil)
	s := New("s1", "b1", cfg)
	s.Start(context.Background())
	defer s.Close()
	require.Eventually(t, func() bool { return s.View().Loaded }, time.Second, 5*time.Millisecond)

	ch := cfg.Bus.Subscribe("s1")
	defer cfg.Bus.Unsubscribe(ch)

	s.Do(func() {})
	assert.Len(t, ch, 0, "no change, no event")

	require.NoError(t, s.SetFilters("National Monument", false))
	require.Len(t, ch, 1)
	ev := <-ch
	assert.Equal(t, service.Event{Session: "s1", Kind: EventView}, ev)
}

func TestManager(t *testing.T) {
	src := newGatedSource(testParks())
	close(src.release)
	m := NewManager(context.Background(), testConfig(src, nil))
	defer m.Close()

	s := m.Create("b1")
	assert.Len(t, s.ID, 26)
	got, ok := m.Get(s.ID)
	require.True(t, ok)
	assert.Same(t, s, got)
	_, ok = m.Get("missing")
	assert.False(t, ok)

	detach := s.Attach()
	assert.Zero(t, m.Sweep(time.Now().Add(time.Hour), time.Minute), "sessions with a stream are kept")
	detach()
	assert.Zero(t, m.Sweep(time.Now(), time.Minute))
	assert.Equal(t, 1, m.Sweep(time.Now().Add(time.Hour), time.Minute))
	assert.Zero(t, m.Len())
}

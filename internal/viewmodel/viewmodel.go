// Package viewmodel holds the park collection and everything derived from it:
// park types, favorites, the filtered visible subset, and the selection and
// hover pointers. It drives the map adapter through [ParkMap] and receives
// marker interactions back through [ViewModel.MarkerSelected] and
// [ViewModel.MarkerHovered].
//
// A ViewModel is not goroutine-safe; the owning session serializes access.
package viewmodel

import (
	"context"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"github.com/joeblew999/plat-parks/internal/logging"
	"github.com/joeblew999/plat-parks/internal/reactive"
	"github.com/joeblew999/plat-parks/internal/service"
)

// SaveTimeout bounds a single favorites write.
const SaveTimeout = 2 * time.Second

// ParkMap is the part of the map adapter the view model drives.
type ParkMap interface {
	InitMarkers(parks []service.ParkData)
	SetVisibleMarkers(ids []string)
	SetHoverState(id string, hovered bool)
	InfoOpen(id string)
	InfoClose()
}

// FavoritesSaver persists favorite IDs. *favorites.Store implements it.
type FavoritesSaver interface {
	Save(ctx context.Context, ids []string)
}

// ViewModel is the reactive state of one map page.
type ViewModel struct {
	log   *zerolog.Logger
	saver FavoritesSaver

	parks             *reactive.List[*Park]
	byID              map[string]*Park
	parkTypes         *reactive.Value[[]string]
	currentPark       *reactive.Value[*Park]
	hoveredPark       *reactive.Value[*Park]
	parkTypeFilter    *reactive.Value[string]
	onlyShowFavorites *reactive.Value[bool]

	favoriteParks *reactive.Computed[[]*Park]
	visibleParks  *reactive.Computed[[]*Park]

	// version increments on every observable change.
	version *reactive.Value[uint64]

	parkMap      ParkMap
	markersReady bool
	loaded       bool
	persisting   bool
}

// New creates an empty view model. saver may be nil.
func New(saver FavoritesSaver, log *zerolog.Logger) *ViewModel {
	if log == nil {
		log = logging.Default()
	}
	vm := &ViewModel{
		log:               log,
		saver:             saver,
		parks:             reactive.NewList[*Park](),
		byID:              make(map[string]*Park),
		parkTypes:         reactive.NewValueFunc([]string{}, slices.Equal[[]string]),
		currentPark:       reactive.NewValue[*Park](nil),
		hoveredPark:       reactive.NewValue[*Park](nil),
		parkTypeFilter:    reactive.NewValue(""),
		onlyShowFavorites: reactive.NewValue(false),
		version:           reactive.NewValue[uint64](0),
	}

	vm.favoriteParks = reactive.NewComputed(vm.computeFavorites, slices.Equal[[]*Park], vm.parks)
	vm.visibleParks = reactive.NewComputed(vm.computeVisible, slices.Equal[[]*Park],
		vm.parks, vm.favoriteParks, vm.parkTypeFilter, vm.onlyShowFavorites)

	vm.visibleParks.Subscribe(vm.pushVisible)

	for _, src := range []reactive.Source{
		vm.parks, vm.parkTypes, vm.currentPark, vm.hoveredPark,
		vm.parkTypeFilter, vm.onlyShowFavorites, vm.favoriteParks, vm.visibleParks,
	} {
		src.Subscribe(vm.changed)
	}
	return vm
}

func (vm *ViewModel) computeFavorites() []*Park {
	out := []*Park{}
	for _, p := range vm.parks.Items() {
		if p.IsFavorite() {
			out = append(out, p)
		}
	}
	return out
}

func (vm *ViewModel) computeVisible() []*Park {
	source := vm.parks.Items()
	if vm.onlyShowFavorites.Get() {
		source = vm.favoriteParks.Get()
	}
	filter := vm.parkTypeFilter.Get()
	out := []*Park{}
	for _, p := range source {
		if filter == "" || p.ParkType == filter {
			out = append(out, p)
		}
	}
	return out
}

func (vm *ViewModel) changed() {
	vm.version.Set(vm.version.Get() + 1)
}

func (vm *ViewModel) pushVisible() {
	if vm.markersReady {
		vm.parkMap.SetVisibleMarkers(vm.VisibleIDs())
	}
}

func (vm *ViewModel) persist() {
	if vm.saver == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), SaveTimeout)
	defer cancel()
	vm.saver.Save(ctx, ids(vm.favoriteParks.Get()))
	vm.log.Debug().Int("favorites", len(vm.favoriteParks.Get())).Msg("Favorites saved")
}

// LoadParks appends parks from a repository fetch and applies the stored
// favorite IDs. Park types are computed from the loaded collection. The
// persist-on-change subscription is attached only after the initial flags
// are applied, so loading never writes favorites back.
//
// IDs already in the collection are skipped.
func (vm *ViewModel) LoadParks(data []service.ParkData, favoriteIDs []string) {
	added := make([]*Park, 0, len(data))
	for _, d := range data {
		if _, dup := vm.byID[d.ID]; dup {
			vm.log.Warn().Str("park", d.ID).Msg("Dropping duplicate park")
			continue
		}
		p := newPark(vm, d)
		vm.byID[d.ID] = p
		p.isFavorite.Subscribe(vm.changed)
		added = append(added, p)
	}

	deps := make([]reactive.Source, len(added))
	for i, p := range added {
		deps[i] = p.isFavorite
	}
	vm.favoriteParks.DependOn(deps...)
	vm.parks.Push(added...)
	vm.parkTypes.Set(collectTypes(vm.parks.Items()))

	favs := make(map[string]bool, len(favoriteIDs))
	for _, id := range favoriteIDs {
		favs[id] = true
	}
	for _, p := range added {
		if favs[p.ID] {
			p.isFavorite.Set(true)
		}
	}

	if !vm.persisting {
		vm.persisting = true
		vm.favoriteParks.Subscribe(vm.persist)
	}
	vm.loaded = true
	vm.changed()
	vm.log.Debug().Int("parks", len(added)).Int("favorites", len(vm.favoriteParks.Get())).Msg("Parks loaded")
}

func collectTypes(parks []*Park) []string {
	types := make([]string, 0, len(parks))
	for _, p := range parks {
		if p.ParkType != "" {
			types = append(types, p.ParkType)
		}
	}
	slices.Sort(types)
	return slices.Compact(types)
}

// AttachMap connects the map adapter. Markers are not created until
// InitMarkers.
func (vm *ViewModel) AttachMap(m ParkMap) {
	vm.parkMap = m
}

// InitMarkers creates one marker per park and pushes the current visible
// subset and selection. It must run once, after both LoadParks and AttachMap.
func (vm *ViewModel) InitMarkers() {
	if vm.parkMap == nil {
		panic("viewmodel: InitMarkers called before AttachMap")
	}
	parks := vm.parks.Items()
	data := make([]service.ParkData, len(parks))
	for i, p := range parks {
		data[i] = p.ParkData
	}
	vm.parkMap.InitMarkers(data)
	vm.markersReady = true
	vm.parkMap.SetVisibleMarkers(vm.VisibleIDs())
	if cur := vm.currentPark.Get(); cur != nil {
		vm.parkMap.InfoOpen(cur.ID)
	}
	if hov := vm.hoveredPark.Get(); hov != nil {
		vm.parkMap.SetHoverState(hov.ID, true)
	}
}

// MarkersReady reports whether InitMarkers has run.
func (vm *ViewModel) MarkersReady() bool {
	return vm.markersReady
}

// SelectPark toggles the selection: selecting the current park clears it.
// The map's info overlay follows. A nil park clears the selection.
func (vm *ViewModel) SelectPark(p *Park) {
	if p == nil || vm.currentPark.Get() == p {
		if vm.currentPark.Get() == nil {
			return
		}
		vm.currentPark.Set(nil)
		if vm.markersReady {
			vm.parkMap.InfoClose()
		}
		return
	}
	vm.currentPark.Set(p)
	if vm.markersReady {
		vm.parkMap.InfoOpen(p.ID)
	}
}

// ToggleHover sets the hovered park when entering and clears it when leaving
// p. The marker style follows.
func (vm *ViewModel) ToggleHover(p *Park, entering bool) {
	if entering {
		vm.hoveredPark.Set(p)
	} else if vm.hoveredPark.Get() == p {
		vm.hoveredPark.Set(nil)
	}
	if vm.markersReady {
		vm.parkMap.SetHoverState(p.ID, entering)
	}
}

// SetParkTypeFilter restricts visible parks to one type; "" removes the filter.
func (vm *ViewModel) SetParkTypeFilter(parkType string) {
	vm.parkTypeFilter.Set(parkType)
}

// SetOnlyShowFavorites restricts visible parks to favorites.
func (vm *ViewModel) SetOnlyShowFavorites(only bool) {
	vm.onlyShowFavorites.Set(only)
}

// ToggleFavorite flips p's favorite flag.
func (vm *ViewModel) ToggleFavorite(p *Park) {
	p.SetFavorite(!p.IsFavorite())
}

// MarkerSelected records a selection made on the map. "" means nothing is
// selected. The map is not called back.
func (vm *ViewModel) MarkerSelected(id string) {
	vm.currentPark.Set(vm.ParkByID(id))
}

// MarkerHovered records a hover change made on the map.
func (vm *ViewModel) MarkerHovered(id string, hovered bool) {
	p := vm.ParkByID(id)
	if hovered {
		vm.hoveredPark.Set(p)
	} else if vm.hoveredPark.Get() == p {
		vm.hoveredPark.Set(nil)
	}
}

// ParkByID returns the park with id, or nil for "". An unknown non-empty id
// panics with *LookupError.
func (vm *ViewModel) ParkByID(id string) *Park {
	if id == "" {
		return nil
	}
	p, ok := vm.byID[id]
	if !ok {
		panic(&LookupError{ID: id})
	}
	return p
}

// LookupPark is the non-panicking form of ParkByID, for IDs supplied by a client.
func (vm *ViewModel) LookupPark(id string) (*Park, bool) {
	p, ok := vm.byID[id]
	return p, ok
}

// Parks returns the collection in insertion order.
func (vm *ViewModel) Parks() []*Park { return vm.parks.Items() }

// ParkTypes returns the sorted distinct park types.
func (vm *ViewModel) ParkTypes() []string { return slices.Clone(vm.parkTypes.Get()) }

// FavoriteParks returns the favorite parks in collection order.
func (vm *ViewModel) FavoriteParks() []*Park { return slices.Clone(vm.favoriteParks.Get()) }

// VisibleParks returns the parks that pass the current filters.
func (vm *ViewModel) VisibleParks() []*Park { return slices.Clone(vm.visibleParks.Get()) }

// VisibleIDs returns the IDs of VisibleParks.
func (vm *ViewModel) VisibleIDs() []string { return ids(vm.visibleParks.Get()) }

// FavoriteIDs returns the IDs of FavoriteParks.
func (vm *ViewModel) FavoriteIDs() []string { return ids(vm.favoriteParks.Get()) }

// CurrentPark returns the selected park or nil.
func (vm *ViewModel) CurrentPark() *Park { return vm.currentPark.Get() }

// HoveredPark returns the hovered park or nil.
func (vm *ViewModel) HoveredPark() *Park { return vm.hoveredPark.Get() }

// ParkTypeFilter returns the active type filter.
func (vm *ViewModel) ParkTypeFilter() string { return vm.parkTypeFilter.Get() }

// OnlyShowFavorites reports whether the favorites filter is on.
func (vm *ViewModel) OnlyShowFavorites() bool { return vm.onlyShowFavorites.Get() }

// Loaded reports whether LoadParks has run.
func (vm *ViewModel) Loaded() bool { return vm.loaded }

// Version increments on every observable change.
func (vm *ViewModel) Version() uint64 { return vm.version.Get() }

// OnChange registers fn to run after any observable change.
func (vm *ViewModel) OnChange(fn func()) (unsubscribe func()) {
	return vm.version.Subscribe(fn)
}

func ids(parks []*Park) []string {
	out := make([]string, len(parks))
	for i, p := range parks {
		out[i] = p.ID
	}
	return out
}

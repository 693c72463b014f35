package viewmodel

import "github.com/joeblew999/plat-parks/internal/service"

// ParkView is a park with its derived flags, frozen for rendering.
type ParkView struct {
	service.ParkData
	IsFavorite bool `json:"isFavorite"`
	IsCurrent  bool `json:"isCurrent"`
	IsHovered  bool `json:"isHovered"`
	Visible    bool `json:"visible"`
}

// Snapshot is an immutable copy of the view model state.
type Snapshot struct {
	Loaded            bool       `json:"loaded"`
	Parks             []ParkView `json:"parks"`
	ParkTypes         []string   `json:"parkTypes"`
	ParkTypeFilter    string     `json:"parkTypeFilter"`
	OnlyShowFavorites bool       `json:"onlyShowFavorites"`
	VisibleIDs        []string   `json:"visibleIds"`
	CurrentID         string     `json:"currentId"`
	HoveredID         string     `json:"hoveredId"`
}

// Current returns the selected park's view, if any.
func (s Snapshot) Current() (ParkView, bool) {
	for _, p := range s.Parks {
		if p.IsCurrent {
			return p, true
		}
	}
	return ParkView{}, false
}

// Visible returns the views of the visible parks in collection order.
func (s Snapshot) Visible() []ParkView {
	out := make([]ParkView, 0, len(s.VisibleIDs))
	for _, p := range s.Parks {
		if p.Visible {
			out = append(out, p)
		}
	}
	return out
}

// Snapshot copies the current state.
func (vm *ViewModel) Snapshot() Snapshot {
	visible := make(map[*Park]bool)
	for _, p := range vm.visibleParks.Get() {
		visible[p] = true
	}
	parks := vm.parks.Items()
	s := Snapshot{
		Loaded:            vm.loaded,
		Parks:             make([]ParkView, len(parks)),
		ParkTypes:         vm.ParkTypes(),
		ParkTypeFilter:    vm.parkTypeFilter.Get(),
		OnlyShowFavorites: vm.onlyShowFavorites.Get(),
		VisibleIDs:        vm.VisibleIDs(),
	}
	for i, p := range parks {
		s.Parks[i] = ParkView{
			ParkData:   p.ParkData,
			IsFavorite: p.IsFavorite(),
			IsCurrent:  p.IsCurrentPark(),
			IsHovered:  p.IsHovered(),
			Visible:    visible[p],
		}
	}
	if cur := vm.currentPark.Get(); cur != nil {
		s.CurrentID = cur.ID
	}
	if hov := vm.hoveredPark.Get(); hov != nil {
		s.HoveredID = hov.ID
	}
	return s
}

package viewmodel

import (
	"fmt"

	"github.com/joeblew999/plat-parks/internal/reactive"
	"github.com/joeblew999/plat-parks/internal/service"
)

// Park is one park in the collection. Its descriptive fields never change;
// only the favorite flag is mutable.
type Park struct {
	service.ParkData

	vm         *ViewModel
	isFavorite *reactive.Value[bool]
}

func newPark(vm *ViewModel, data service.ParkData) *Park {
	return &Park{ParkData: data, vm: vm, isFavorite: reactive.NewValue(false)}
}

// IsFavorite reports whether the park is a favorite.
func (p *Park) IsFavorite() bool {
	return p.isFavorite.Get()
}

// SetFavorite changes the favorite flag. Favorite and visible sets recompute
// before it returns.
func (p *Park) SetFavorite(favorite bool) {
	p.isFavorite.Set(favorite)
}

// IsCurrentPark reports whether p is the selected park.
func (p *Park) IsCurrentPark() bool {
	return p.vm.currentPark.Get() == p
}

// IsHovered reports whether p is the hovered park.
func (p *Park) IsHovered() bool {
	return p.vm.hoveredPark.Get() == p
}

func (p *Park) String() string {
	return fmt.Sprintf("%s (%s)", p.Name, p.ID)
}

// LookupError reports an ID that is not in the collection. It is raised as a
// panic: markers and the collection disagreeing is a programming error.
type LookupError struct {
	ID string
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("viewmodel: no park with id %q", e.ID)
}

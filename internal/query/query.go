// Package query holds per-view pagination, sort and filter state. The
// transitions here are pure: consumers observe changes and refetch.
package query

import (
	"net/url"
	"strconv"

	"foodbridge/internal/donation"
)

// Direction is a sort direction on the wire.
type Direction string

const (
	ASC  Direction = "ASC"
	DESC Direction = "DESC"
)

// Default paging values. Size 9 fills the dashboard's 3x3 card grid.
const (
	DefaultSize   = 9
	DefaultSortBy = "createdAt"
)

// PageSizes are the selectable page sizes, multiples of the grid row.
var PageSizes = []int{9, 18, 27}

// Filter narrows a donation listing. Zero values mean "no constraint".
type Filter struct {
	Status   donation.Status
	FoodType donation.FoodType
	Location string
}

// Active reports whether any user-adjustable constraint is set. Status is
// excluded: tabs pin it and it does not count as a "filter" for empty-state
// messaging.
func (f Filter) Active() bool {
	return f.FoodType != "" || f.Location != ""
}

// State is the full query state of one paginated view.
type State struct {
	Page      int // zero-based
	Size      int
	SortBy    string
	Direction Direction
	Filter    Filter
}

// New returns the default query state: first page, newest first.
func New() State {
	return State{
		Page:      0,
		Size:      DefaultSize,
		SortBy:    DefaultSortBy,
		Direction: DESC,
	}
}

// WithStatus pins a status filter, for tab-scoped views.
func (s State) WithStatus(st donation.Status) State {
	s.Filter.Status = st
	return s
}

// WithSize overrides the page size, for config-driven defaults. Zero or
// negative keeps the current size.
func (s State) WithSize(n int) State {
	if n > 0 {
		s.Size = n
	}
	return s
}

// SetPage moves to page n. Filters and sort are untouched.
func (s *State) SetPage(n int) {
	if n < 0 {
		n = 0
	}
	s.Page = n
}

// SetSize changes the page size and resets to the first page.
func (s *State) SetSize(n int) {
	if n <= 0 {
		n = DefaultSize
	}
	s.Size = n
	s.Page = 0
}

// SetSort selects a sort field. Re-selecting the current field toggles the
// direction; a new field starts ASC. Either way the page resets to zero.
func (s *State) SetSort(field string) {
	if field == s.SortBy {
		if s.Direction == ASC {
			s.Direction = DESC
		} else {
			s.Direction = ASC
		}
	} else {
		s.SortBy = field
		s.Direction = ASC
	}
	s.Page = 0
}

// SetFilter merges non-zero fields of partial into the filter and resets
// the page to zero. An explicit empty-string Location cannot be expressed
// through merge; use ResetFilters to clear.
func (s *State) SetFilter(partial Filter) {
	if partial.Status != "" {
		s.Filter.Status = partial.Status
	}
	if partial.FoodType != "" {
		s.Filter.FoodType = partial.FoodType
	}
	if partial.Location != "" {
		s.Filter.Location = partial.Location
	}
	s.Page = 0
}

// SetFoodType sets or clears the food-type filter and resets the page.
func (s *State) SetFoodType(ft donation.FoodType) {
	s.Filter.FoodType = ft
	s.Page = 0
}

// SetLocation sets or clears the location filter and resets the page.
func (s *State) SetLocation(loc string) {
	s.Filter.Location = loc
	s.Page = 0
}

// ResetFilters clears food type and location and resets the page. The
// pinned status, if any, survives: it belongs to the tab, not the user.
func (s *State) ResetFilters() {
	s.Filter.FoodType = ""
	s.Filter.Location = ""
	s.Page = 0
}

// Params derives the wire query. Empty filter fields are omitted, matching
// the service's expectation that absent means unconstrained.
func (s State) Params() url.Values {
	v := url.Values{}
	v.Set("page", strconv.Itoa(s.Page))
	v.Set("size", strconv.Itoa(s.Size))
	v.Set("sortBy", s.SortBy)
	v.Set("direction", string(s.Direction))
	if s.Filter.Status != "" {
		v.Set("status", string(s.Filter.Status))
	}
	if s.Filter.FoodType != "" {
		v.Set("foodType", string(s.Filter.FoodType))
	}
	if s.Filter.Location != "" {
		v.Set("location", s.Filter.Location)
	}
	return v
}

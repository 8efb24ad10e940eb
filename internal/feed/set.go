package feed

import "github.com/cuartodemilla/fuel-etl/internal/model"

// Set holds merged station records keyed by place_id. Iteration follows the
// order in which identifiers were first seen, places feed first.
type Set struct {
	order []int64
	byID  map[int64]*model.Station
}

// NewSet returns an empty Set.
func NewSet() *Set {
	return &Set{byID: make(map[int64]*model.Station)}
}

// Len returns the number of distinct place ids.
func (s *Set) Len() int {
	return len(s.order)
}

// Get returns the record for id.
func (s *Set) Get(id int64) (*model.Station, bool) {
	st, ok := s.byID[id]
	return st, ok
}

// Stations returns the records in first-seen order.
func (s *Set) Stations() []*model.Station {
	out := make([]*model.Station, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

// record returns the record for id, creating an empty one if needed.
func (s *Set) record(id int64) *model.Station {
	if st, ok := s.byID[id]; ok {
		return st
	}
	st := &model.Station{PlaceID: id}
	s.byID[id] = st
	s.order = append(s.order, id)
	return st
}

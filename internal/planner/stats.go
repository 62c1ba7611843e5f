package planner

import (
	"maps"
	"sync"
	"time"

	"github.com/MyTurnyet/switch-this-sub002/internal/model"
)

// Stats summarizes one planning run.
type Stats struct {
	RouteID   model.ID       `json:"routeId"`
	YardCars  int            `json:"yardCars"`
	Planned   int            `json:"planned"`
	Skipped   map[string]int `json:"skipped"`
	PlannedAt time.Time      `json:"plannedAt"`
}

// StatsStore keeps the latest Stats per route.
type StatsStore struct {
	mu sync.Mutex
	m  map[model.ID]Stats
}

func NewStatsStore() *StatsStore {
	return &StatsStore{m: map[model.ID]Stats{}}
}

func (s *StatsStore) Record(st Stats) {
	st.Skipped = maps.Clone(st.Skipped)
	s.mu.Lock()
	s.m[st.RouteID] = st
	s.mu.Unlock()
}

func (s *StatsStore) Get(routeID model.ID) (Stats, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.m[routeID]
	if ok {
		st.Skipped = maps.Clone(st.Skipped)
	}
	return st, ok
}

// All returns a copy of every recorded run.
func (s *StatsStore) All() map[model.ID]Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[model.ID]Stats, len(s.m))
	for k, v := range s.m {
		v.Skipped = maps.Clone(v.Skipped)
		out[k] = v
	}
	return out
}

package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/MyTurnyet/switch-this-sub002/internal/model"
)

func ids(inds []model.Industry) []model.ID {
	var out []model.ID
	for _, i := range inds {
		out = append(out, i.ID)
	}
	return out
}

func TestIndustriesAtStop(t *testing.T) {
	route, industries, _ := branch()

	assert.Equal(t, []model.ID{"mill"}, ids(IndustriesAtStop(route, 0, industries)))
	assert.Equal(t, []model.ID{"cannery"}, ids(IndustriesAtStop(route, 1, industries)))
	assert.Empty(t, IndustriesAtStop(route, 2, industries))
	assert.Empty(t, IndustriesAtStop(route, -1, industries))
}

func TestYardIndustriesByIndustryOrLocation(t *testing.T) {
	route, industries, _ := branch()
	industries = append(industries, model.Industry{ID: "yard-east", IndustryType: model.IndustryYard, LocationID: "echo"})

	assert.Equal(t, []model.ID{"yard"}, ids(OriginatingYardIndustries(route, industries)))

	route.OriginatingYardID = "echo"
	assert.Equal(t, []model.ID{"yard", "yard-east"}, ids(OriginatingYardIndustries(route, industries)))

	route.OriginatingYardID = "nowhere"
	assert.Empty(t, OriginatingYardIndustries(route, industries))

	assert.Equal(t, []model.ID{"end-yard"}, ids(TerminatingYardIndustries(route, industries)))
}

func TestStopIndex(t *testing.T) {
	route, industries, _ := branch()

	i, ok := StopIndex(route, "bay", industries)
	assert.True(t, ok)
	assert.Equal(t, 1, i)

	i, ok = StopIndex(route, "end", industries)
	assert.True(t, ok)
	assert.Equal(t, len(route.Stations), i)

	_, ok = StopIndex(route, "echo", industries)
	assert.False(t, ok)
}

func TestStatsStore(t *testing.T) {
	s := NewStatsStore()
	st := Stats{RouteID: "r1", YardCars: 3, Planned: 2, Skipped: map[string]int{SkipDestinationFull: 1}}
	s.Record(st)
	st.Skipped[SkipDestinationFull] = 99

	got, ok := s.Get("r1")
	assert.True(t, ok)
	assert.Equal(t, 1, got.Skipped[SkipDestinationFull])
	assert.Len(t, s.All(), 1)

	_, ok = s.Get("r2")
	assert.False(t, ok)
}

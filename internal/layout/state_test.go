package layout

import (
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MyTurnyet/switch-this-sub002/internal/model"
)

func ref(ind, tr string) model.TrackRef {
	return model.TrackRef{IndustryID: model.ID(ind), TrackID: model.ID(tr)}
}

func fixture() ([]model.Industry, []model.RollingStock) {
	industries := []model.Industry{
		{ID: "yard", Name: "Yard", IndustryType: model.IndustryYard, LocationID: "echo", Tracks: []model.Track{
			{ID: "y1", MaxCars: 3, AcceptedCarTypes: []string{"*"}, PlacedCars: []model.ID{"c1", "c2"}},
		}},
		{ID: "mill", Name: "Mill", IndustryType: model.IndustryFreight, LocationID: "sea", Tracks: []model.Track{
			{ID: "m1", MaxCars: 1, AcceptedCarTypes: []string{"XM"}},
			{ID: "m2", MaxCars: 2, AcceptedCarTypes: []string{"T"}, PlacedCars: []model.ID{"c3"}},
		}},
	}
	cars := []model.RollingStock{
		{ID: "c1", RoadName: "ATSF", RoadNumber: "1", AARType: "XM"},
		{ID: "c2", RoadName: "ATSF", RoadNumber: "2", AARType: "T"},
		{ID: "c3", RoadName: "UP", RoadNumber: "3", AARType: "T"},
		{ID: "c4", RoadName: "BN", RoadNumber: "4", AARType: "XM"},
	}
	return industries, cars
}

func TestNewStateDerivesLocations(t *testing.T) {
	s := NewState(fixture())

	c1, ok := s.Car("c1")
	require.True(t, ok)
	require.NotNil(t, c1.CurrentLocation)
	assert.Equal(t, ref("yard", "y1"), *c1.CurrentLocation)

	c4, _ := s.Car("c4")
	assert.Nil(t, c4.CurrentLocation)

	loc, ok := s.LocationOf(ref("mill", "m2"))
	require.True(t, ok)
	assert.Equal(t, model.ID("sea"), loc)
}

func TestCarsAtLocationIsRestartable(t *testing.T) {
	s := NewState(fixture())
	seq := s.CarsAtLocation("echo")

	first := slices.Collect(seq)
	second := slices.Collect(seq)
	assert.Equal(t, []model.ID{"c1", "c2"}, first)
	assert.Equal(t, first, second)
	assert.Empty(t, slices.Collect(s.CarsAtLocation("nowhere")))
}

func TestCarsOnTrackKeepsPlacementOrder(t *testing.T) {
	_, cars := fixture()
	tr := model.Track{PlacedCars: []model.ID{"c3", "missing", "c1"}}
	got := CarsOnTrack(tr, cars)
	require.Len(t, got, 2)
	assert.Equal(t, model.ID("c3"), got[0].ID)
	assert.Equal(t, model.ID("c1"), got[1].ID)
}

func TestPlace(t *testing.T) {
	s := NewState(fixture())

	require.NoError(t, s.Place("c4", ref("mill", "m1")))
	tr, _ := s.Track(ref("mill", "m1"))
	assert.Equal(t, []model.ID{"c4"}, tr.PlacedCars)

	err := s.Place("c1", ref("yard", "y1"))
	assert.ErrorIs(t, err, ErrAlreadyPlaced)

	_, ok := s.Car("nope")
	assert.False(t, ok)
	assert.ErrorIs(t, s.Place("nope", ref("mill", "m1")), ErrUnknownCar)
	assert.ErrorIs(t, s.Place("c4", ref("mill", "zz")), ErrUnknownTrack)
}

func TestPlaceCapacityExceededLeavesStateUnchanged(t *testing.T) {
	inds, cars := fixture()
	inds[1].Tracks[0].PlacedCars = []model.ID{"c1"}
	inds[0].Tracks[0].PlacedCars = []model.ID{"c2"}
	s := NewState(inds, cars)

	err := s.Place("c4", ref("mill", "m1"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCapacityExceeded)
	assert.True(t, IsPlacementError(err))

	tr, _ := s.Track(ref("mill", "m1"))
	assert.Equal(t, []model.ID{"c1"}, tr.PlacedCars)
	c4, _ := s.Car("c4")
	assert.Nil(t, c4.CurrentLocation)
}

func TestTankCarRejectedByBoxcarTrack(t *testing.T) {
	s := NewState(fixture())
	require.NoError(t, s.Remove("c2"))

	err := s.Place("c2", ref("mill", "m1"))

	var pe *PlacementError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, ErrTypeIncompatible, pe.Kind)
	assert.Equal(t, model.ID("c2"), pe.CarID)
	tr, _ := s.Track(ref("mill", "m1"))
	assert.Empty(t, tr.PlacedCars)
}

func TestRemoveTwiceIsNoop(t *testing.T) {
	s := NewState(fixture())

	require.NoError(t, s.Remove("c1"))
	require.NoError(t, s.Remove("c1"))

	tr, _ := s.Track(ref("yard", "y1"))
	assert.Equal(t, []model.ID{"c2"}, tr.PlacedCars)
	c1, _ := s.Car("c1")
	assert.Nil(t, c1.CurrentLocation)
	assert.ErrorIs(t, s.Remove("ghost"), ErrUnknownCar)
}

func TestMove(t *testing.T) {
	s := NewState(fixture())

	require.NoError(t, s.Move("c1", ref("yard", "y1"), ref("mill", "m1")))

	c1, _ := s.Car("c1")
	assert.Equal(t, ref("mill", "m1"), *c1.CurrentLocation)
	y1, _ := s.Track(ref("yard", "y1"))
	assert.Equal(t, []model.ID{"c2"}, y1.PlacedCars)
	m1, _ := s.Track(ref("mill", "m1"))
	assert.Equal(t, []model.ID{"c1"}, m1.PlacedCars)
}

func TestMoveRollsBackToOriginalPosition(t *testing.T) {
	s := NewState(fixture())

	// c1 is first on y1; m2 only takes tank cars.
	err := s.Move("c1", ref("yard", "y1"), ref("mill", "m2"))
	require.ErrorIs(t, err, ErrTypeIncompatible)

	y1, _ := s.Track(ref("yard", "y1"))
	assert.Equal(t, []model.ID{"c1", "c2"}, y1.PlacedCars)
	c1, _ := s.Car("c1")
	assert.Equal(t, ref("yard", "y1"), *c1.CurrentLocation)
}

func TestMoveFromWrongTrack(t *testing.T) {
	s := NewState(fixture())
	err := s.Move("c3", ref("yard", "y1"), ref("mill", "m1"))
	assert.ErrorIs(t, err, ErrNotOnTrack)

	err = s.Move("c4", ref("yard", "y1"), ref("mill", "m1"))
	assert.ErrorIs(t, err, ErrNotOnTrack)
}

func TestCapacityNeverExceededAcrossSequence(t *testing.T) {
	s := NewState(fixture())
	moves := []struct {
		car      model.ID
		from, to model.TrackRef
	}{
		{"c1", ref("yard", "y1"), ref("mill", "m1")},
		{"c2", ref("yard", "y1"), ref("mill", "m2")},
		{"c1", ref("mill", "m1"), ref("yard", "y1")},
		{"c3", ref("mill", "m2"), ref("yard", "y1")},
		{"c2", ref("mill", "m2"), ref("mill", "m1")},
	}
	for _, m := range moves {
		_ = s.Move(m.car, m.from, m.to)
		assertInvariants(t, s)
	}
	for _, id := range []model.ID{"c4", "c3"} {
		_ = s.Remove(id)
		_ = s.Place(id, ref("mill", "m1"))
		assertInvariants(t, s)
	}
}

func assertInvariants(t *testing.T, s *State) {
	t.Helper()
	seen := map[model.ID]bool{}
	for _, ind := range s.Industries() {
		for _, tr := range ind.Tracks {
			assert.LessOrEqual(t, len(tr.PlacedCars), tr.MaxCars, "track %s", tr.ID)
			for _, id := range tr.PlacedCars {
				assert.False(t, seen[id], "car %s placed twice", id)
				seen[id] = true
				car, ok := s.Car(id)
				require.True(t, ok)
				assert.True(t, IsCompatible(tr, car))
				require.NotNil(t, car.CurrentLocation)
				assert.Equal(t, model.TrackRef{IndustryID: ind.ID, TrackID: tr.ID}, *car.CurrentLocation)
			}
		}
	}
	assert.Empty(t, s.Violations())
}

func TestCloneIsIndependent(t *testing.T) {
	s := NewState(fixture())
	c := s.Clone()

	require.NoError(t, c.Move("c1", ref("yard", "y1"), ref("mill", "m1")))

	y1, _ := s.Track(ref("yard", "y1"))
	assert.Equal(t, []model.ID{"c1", "c2"}, y1.PlacedCars)
	c1, _ := s.Car("c1")
	assert.Equal(t, ref("yard", "y1"), *c1.CurrentLocation)
}

func TestViolationsReportsBrokenSnapshot(t *testing.T) {
	inds, cars := fixture()
	inds[1].Tracks[0].PlacedCars = []model.ID{"c1", "c3", "ghost"} // c1 duplicate, c3 tank, over capacity
	cars[3].CurrentLocation = &model.TrackRef{IndustryID: "mill", TrackID: "m1"}

	s := NewState(inds, cars)
	rules := map[string]int{}
	for _, v := range s.Violations() {
		rules[v.Rule]++
	}

	assert.Equal(t, 1, rules[RuleStaleLocation])
	assert.Equal(t, 1, rules[RuleOverCapacity])
	assert.Equal(t, 1, rules[RuleDanglingCar])
	assert.Equal(t, 2, rules[RuleDuplicatePlacement])
	assert.Equal(t, 1, rules[RuleIncompatible])

	// Nothing is dropped from the exported tracks.
	m, _ := s.Industry("mill")
	assert.Equal(t, []model.ID{"c1", "c3", "ghost"}, m.Tracks[0].PlacedCars)
}

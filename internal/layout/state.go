package layout

import (
	"fmt"
	"iter"
	"slices"

	"github.com/MyTurnyet/switch-this-sub002/internal/model"
)

// State is the single source of truth for where every car is. It is an arena
// keyed by id: track slots own their placed-car lists and each car's current
// location is derived from them, so the two can never drift apart.
//
// A State is not safe for concurrent use; a planning run owns its own clone.
type State struct {
	industries []*industryEntry
	byIndustry map[model.ID]*industryEntry
	tracks     map[model.TrackRef]*trackSlot
	cars       map[model.ID]*model.RollingStock
	carOrder   []model.ID
	loadIssues []Violation
}

type industryEntry struct {
	industry model.Industry // Tracks is nil; slots hold the live tracks
	slots    []*trackSlot
}

type trackSlot struct {
	ref      model.TrackRef
	location model.ID
	track    model.Track
}

// NewState indexes a snapshot. Track placement lists win over whatever
// CurrentLocation the car documents carry; inconsistencies are kept and
// reported by Violations rather than dropped.
func NewState(industries []model.Industry, cars []model.RollingStock) *State {
	s := &State{
		byIndustry: make(map[model.ID]*industryEntry, len(industries)),
		tracks:     map[model.TrackRef]*trackSlot{},
		cars:       make(map[model.ID]*model.RollingStock, len(cars)),
	}
	declared := make(map[model.ID]*model.TrackRef, len(cars))
	for _, c := range cars {
		if _, dup := s.cars[c.ID]; dup {
			s.loadIssues = append(s.loadIssues, Violation{Rule: RuleDuplicateCar, CarID: c.ID,
				Message: fmt.Sprintf("car %s listed more than once in rolling stock", c.ID)})
			continue
		}
		cc := c.Clone()
		declared[c.ID] = cc.CurrentLocation
		cc.CurrentLocation = nil
		s.cars[c.ID] = &cc
		s.carOrder = append(s.carOrder, c.ID)
	}
	for _, ind := range industries {
		entry := &industryEntry{industry: ind}
		entry.industry.Tracks = nil
		for _, t := range ind.Tracks {
			slot := &trackSlot{
				ref:      model.TrackRef{IndustryID: ind.ID, TrackID: t.ID},
				location: ind.LocationID,
				track:    t.Clone(),
			}
			entry.slots = append(entry.slots, slot)
			if _, dup := s.tracks[slot.ref]; dup {
				s.loadIssues = append(s.loadIssues, Violation{Rule: RuleDuplicateTrack, Track: slot.ref,
					Message: fmt.Sprintf("track %s appears twice in industry %s", t.ID, ind.ID)})
				continue
			}
			s.tracks[slot.ref] = slot
			for _, carID := range slot.track.PlacedCars {
				car, ok := s.cars[carID]
				if !ok || car.CurrentLocation != nil {
					continue
				}
				ref := slot.ref
				car.CurrentLocation = &ref
			}
		}
		if _, dup := s.byIndustry[ind.ID]; !dup {
			s.byIndustry[ind.ID] = entry
		}
		s.industries = append(s.industries, entry)
	}
	for _, id := range s.carOrder {
		want, got := declared[id], s.cars[id].CurrentLocation
		if want != nil && !sameRef(want, got) {
			s.loadIssues = append(s.loadIssues, Violation{Rule: RuleStaleLocation, CarID: id,
				Message: fmt.Sprintf("car %s records location %s but tracks place it at %s", id, refString(want), refString(got))})
		}
	}
	return s
}

// Clone returns an independent working copy.
func (s *State) Clone() *State {
	c := &State{
		byIndustry: make(map[model.ID]*industryEntry, len(s.byIndustry)),
		tracks:     make(map[model.TrackRef]*trackSlot, len(s.tracks)),
		cars:       make(map[model.ID]*model.RollingStock, len(s.cars)),
		carOrder:   slices.Clone(s.carOrder),
		loadIssues: slices.Clone(s.loadIssues),
	}
	for id, car := range s.cars {
		cc := car.Clone()
		c.cars[id] = &cc
	}
	for _, e := range s.industries {
		ne := &industryEntry{industry: e.industry}
		for _, slot := range e.slots {
			ns := &trackSlot{ref: slot.ref, location: slot.location, track: slot.track.Clone()}
			ne.slots = append(ne.slots, ns)
			if s.tracks[slot.ref] == slot {
				c.tracks[slot.ref] = ns
			}
		}
		if s.byIndustry[e.industry.ID] == e {
			c.byIndustry[e.industry.ID] = ne
		}
		c.industries = append(c.industries, ne)
	}
	return c
}

// CarsAtLocation lazily yields the ids of cars placed on any track of any
// industry at the location, in industry, track and placement order. The
// sequence can be ranged over any number of times.
func (s *State) CarsAtLocation(locationID model.ID) iter.Seq[model.ID] {
	return func(yield func(model.ID) bool) {
		for _, e := range s.industries {
			if e.industry.LocationID != locationID {
				continue
			}
			for _, slot := range e.slots {
				for _, id := range slot.track.PlacedCars {
					car, ok := s.cars[id]
					if !ok || car.CurrentLocation == nil || *car.CurrentLocation != slot.ref {
						continue
					}
					if !yield(id) {
						return
					}
				}
			}
		}
	}
}

// CarsOnTrack returns the members of cars listed on t, in placement order.
func CarsOnTrack(t model.Track, cars []model.RollingStock) []model.RollingStock {
	byID := make(map[model.ID]model.RollingStock, len(cars))
	for _, c := range cars {
		if _, ok := byID[c.ID]; !ok {
			byID[c.ID] = c
		}
	}
	out := make([]model.RollingStock, 0, len(t.PlacedCars))
	for _, id := range t.PlacedCars {
		if c, ok := byID[id]; ok {
			out = append(out, c)
		}
	}
	return out
}

// Place puts an unplaced car at the end of a track.
func (s *State) Place(carID model.ID, to model.TrackRef) error {
	car, slot, err := s.lookup(carID, to)
	if err != nil {
		return err
	}
	if err := checkPlacement(car, slot); err != nil {
		return err
	}
	if car.CurrentLocation != nil {
		return placementErr(ErrAlreadyPlaced, carID, to.TrackID)
	}
	s.place(car, slot, len(slot.track.PlacedCars))
	return nil
}

// Remove takes a car off its track. Removing an unplaced car is a no-op.
func (s *State) Remove(carID model.ID) error {
	car, ok := s.cars[carID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCar, carID)
	}
	s.remove(car)
	return nil
}

// Move relocates a car from one track to another as a single step. On any
// failure the car stays where it was, in its original position.
func (s *State) Move(carID model.ID, from, to model.TrackRef) error {
	car, dst, err := s.lookup(carID, to)
	if err != nil {
		return err
	}
	if _, ok := s.tracks[from]; !ok {
		return fmt.Errorf("%w: %s/%s", ErrUnknownTrack, from.IndustryID, from.TrackID)
	}
	if car.CurrentLocation == nil || *car.CurrentLocation != from {
		return placementErr(ErrNotOnTrack, carID, from.TrackID)
	}
	if from == to {
		return nil
	}
	src := s.tracks[from]
	pos := s.remove(car)
	if err := checkPlacement(car, dst); err != nil {
		s.place(car, src, pos)
		return err
	}
	s.place(car, dst, len(dst.track.PlacedCars))
	return nil
}

func checkPlacement(car *model.RollingStock, slot *trackSlot) error {
	if IsFull(slot.track) {
		return placementErr(ErrCapacityExceeded, car.ID, slot.ref.TrackID)
	}
	if !IsCompatible(slot.track, *car) {
		return placementErr(ErrTypeIncompatible, car.ID, slot.ref.TrackID)
	}
	return nil
}

func (s *State) lookup(carID model.ID, ref model.TrackRef) (*model.RollingStock, *trackSlot, error) {
	car, ok := s.cars[carID]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownCar, carID)
	}
	slot, ok := s.tracks[ref]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s/%s", ErrUnknownTrack, ref.IndustryID, ref.TrackID)
	}
	return car, slot, nil
}

func (s *State) place(car *model.RollingStock, slot *trackSlot, pos int) {
	if pos > len(slot.track.PlacedCars) {
		pos = len(slot.track.PlacedCars)
	}
	slot.track.PlacedCars = slices.Insert(slot.track.PlacedCars, pos, car.ID)
	ref := slot.ref
	car.CurrentLocation = &ref
}

// remove returns the position the car held on its track, or -1.
func (s *State) remove(car *model.RollingStock) int {
	if car.CurrentLocation == nil {
		return -1
	}
	slot := s.tracks[*car.CurrentLocation]
	car.CurrentLocation = nil
	if slot == nil {
		return -1
	}
	pos := slices.Index(slot.track.PlacedCars, car.ID)
	if pos >= 0 {
		slot.track.PlacedCars = slices.Delete(slot.track.PlacedCars, pos, pos+1)
	}
	return pos
}

// Car returns a copy of the car with its derived current location.
func (s *State) Car(id model.ID) (model.RollingStock, bool) {
	c, ok := s.cars[id]
	if !ok {
		return model.RollingStock{}, false
	}
	return c.Clone(), true
}

// Cars returns every car in snapshot order.
func (s *State) Cars() []model.RollingStock {
	out := make([]model.RollingStock, 0, len(s.carOrder))
	for _, id := range s.carOrder {
		out = append(out, s.cars[id].Clone())
	}
	return out
}

// Track returns a copy of the referenced track.
func (s *State) Track(ref model.TrackRef) (model.Track, bool) {
	slot, ok := s.tracks[ref]
	if !ok {
		return model.Track{}, false
	}
	return slot.track.Clone(), true
}

// LocationOf returns the location id holding the referenced track.
func (s *State) LocationOf(ref model.TrackRef) (model.ID, bool) {
	slot, ok := s.tracks[ref]
	if !ok {
		return "", false
	}
	return slot.location, true
}

// Industry returns a copy of the industry with its current tracks.
func (s *State) Industry(id model.ID) (model.Industry, bool) {
	e, ok := s.byIndustry[id]
	if !ok {
		return model.Industry{}, false
	}
	return e.export(), true
}

// Industries returns every industry in snapshot order.
func (s *State) Industries() []model.Industry {
	out := make([]model.Industry, 0, len(s.industries))
	for _, e := range s.industries {
		out = append(out, e.export())
	}
	return out
}

func (e *industryEntry) export() model.Industry {
	ind := e.industry
	ind.Tracks = make([]model.Track, 0, len(e.slots))
	for _, slot := range e.slots {
		ind.Tracks = append(ind.Tracks, slot.track.Clone())
	}
	return ind
}

func sameRef(a, b *model.TrackRef) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func refString(r *model.TrackRef) string {
	if r == nil {
		return "nowhere"
	}
	return string(r.IndustryID) + "/" + string(r.TrackID)
}

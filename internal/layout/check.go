package layout

import (
	"fmt"

	"github.com/MyTurnyet/switch-this-sub002/internal/model"
)

// Rules reported by Violations.
const (
	RuleDuplicatePlacement = "duplicate_placement"
	RuleOverCapacity       = "over_capacity"
	RuleIncompatible       = "incompatible_placement"
	RuleDanglingCar        = "dangling_car"
	RuleDuplicateTrack     = "duplicate_track"
	RuleDuplicateCar       = "duplicate_car"
	RuleStaleLocation      = "stale_location"
)

type Severity string

const (
	SeverityWarn  Severity = "warn"
	SeverityBlock Severity = "block"
)

// Violation describes one broken placement invariant.
type Violation struct {
	Rule     string         `json:"rule"`
	Severity Severity       `json:"severity"`
	Message  string         `json:"message"`
	Track    model.TrackRef `json:"track,omitzero"`
	CarID    model.ID       `json:"carId,omitempty"`
}

// Violations audits the current state. Issues found while loading the
// snapshot are reported first, followed by a walk of every track.
func (s *State) Violations() []Violation {
	out := make([]Violation, 0, len(s.loadIssues))
	for _, v := range s.loadIssues {
		if v.Severity == "" {
			v.Severity = SeverityWarn
		}
		out = append(out, v)
	}

	seen := map[model.ID]model.TrackRef{}
	for _, e := range s.industries {
		for _, slot := range e.slots {
			t := slot.track
			if len(t.PlacedCars) > t.MaxCars {
				out = append(out, Violation{
					Rule:     RuleOverCapacity,
					Severity: SeverityBlock,
					Track:    slot.ref,
					Message:  fmt.Sprintf("track %s holds %d cars, limit %d", slot.ref.TrackID, len(t.PlacedCars), t.MaxCars),
				})
			}
			for _, id := range t.PlacedCars {
				car, ok := s.cars[id]
				if !ok {
					out = append(out, Violation{
						Rule:     RuleDanglingCar,
						Severity: SeverityWarn,
						Track:    slot.ref,
						CarID:    id,
						Message:  fmt.Sprintf("track %s lists unknown car %s", slot.ref.TrackID, id),
					})
					continue
				}
				if prev, dup := seen[id]; dup {
					out = append(out, Violation{
						Rule:     RuleDuplicatePlacement,
						Severity: SeverityBlock,
						Track:    slot.ref,
						CarID:    id,
						Message:  fmt.Sprintf("car %s is on both %s and %s", id, refString(&prev), refString(&slot.ref)),
					})
					continue
				}
				seen[id] = slot.ref
				if !IsCompatible(t, *car) {
					out = append(out, Violation{
						Rule:     RuleIncompatible,
						Severity: SeverityBlock,
						Track:    slot.ref,
						CarID:    id,
						Message:  fmt.Sprintf("track %s does not accept %s car %s", slot.ref.TrackID, car.AARType, id),
					})
				}
			}
		}
	}
	return out
}

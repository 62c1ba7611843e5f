// Package fixture reads layout files: a YAML document holding locations,
// industries with their tracks, rolling stock and train routes.
package fixture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	yaml "gopkg.in/yaml.v3"

	"github.com/MyTurnyet/switch-this-sub002/internal/model"
	"github.com/MyTurnyet/switch-this-sub002/internal/planner"
	"github.com/MyTurnyet/switch-this-sub002/internal/store"
)

// Load reads and validates the layout file at path.
func Load(path string) (model.Layout, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.Layout{}, err
	}
	defer f.Close()
	l, err := Parse(f)
	if err != nil {
		return model.Layout{}, fmt.Errorf("%s: %w", path, err)
	}
	return l, nil
}

// Parse decodes a layout document, normalizes it and checks references.
// Unknown keys are rejected.
func Parse(r io.Reader) (model.Layout, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var l model.Layout
	if err := dec.Decode(&l); err != nil && !errors.Is(err, io.EOF) {
		return model.Layout{}, fmt.Errorf("decode layout: %w", err)
	}
	Normalize(&l)
	if err := Validate(l); err != nil {
		return model.Layout{}, err
	}
	return l, nil
}

func trimID(id model.ID) model.ID { return model.ID(strings.TrimSpace(string(id))) }

func trimRef(r *model.TrackRef) *model.TrackRef {
	if r == nil {
		return nil
	}
	out := model.TrackRef{IndustryID: trimID(r.IndustryID), TrackID: trimID(r.TrackID)}
	if out.IsZero() {
		return nil
	}
	return &out
}

// Normalize trims ids, upper-cases enum values and AAR codes, and fills
// the location and industry types left blank.
func Normalize(l *model.Layout) {
	for i := range l.Locations {
		loc := &l.Locations[i]
		loc.ID = trimID(loc.ID)
		loc.LocationType = model.LocationType(strings.ToUpper(strings.TrimSpace(string(loc.LocationType))))
		if loc.LocationType == "" {
			loc.LocationType = model.LocationOnLayout
		}
	}
	for i := range l.Industries {
		ind := &l.Industries[i]
		ind.ID = trimID(ind.ID)
		ind.LocationID = trimID(ind.LocationID)
		ind.IndustryType = model.IndustryType(strings.ToUpper(strings.TrimSpace(string(ind.IndustryType))))
		if ind.IndustryType == "" {
			ind.IndustryType = model.IndustryFreight
		}
		for j := range ind.Tracks {
			t := &ind.Tracks[j]
			t.ID = trimID(t.ID)
			for k, ct := range t.AcceptedCarTypes {
				t.AcceptedCarTypes[k] = model.CanonicalCarType(ct)
			}
			for k, id := range t.PlacedCars {
				t.PlacedCars[k] = trimID(id)
			}
		}
	}
	for i := range l.RollingStock {
		c := &l.RollingStock[i]
		c.ID = trimID(c.ID)
		c.AARType = model.CanonicalCarType(c.AARType)
		c.HomeYard = trimID(c.HomeYard)
		c.Destination = trimRef(c.Destination)
	}
	for i := range l.TrainRoutes {
		r := &l.TrainRoutes[i]
		r.ID = trimID(r.ID)
		r.OriginatingYardID = trimID(r.OriginatingYardID)
		r.TerminatingYardID = trimID(r.TerminatingYardID)
		for j, s := range r.Stations {
			r.Stations[j] = trimID(s)
		}
	}
}

// Validate checks ids are present and unique per collection and that every
// reference resolves. All problems are reported together. Placement
// invariants are left to layout.State.Violations.
func Validate(l model.Layout) error {
	var errs []error
	bad := func(format string, args ...any) { errs = append(errs, fmt.Errorf(format, args...)) }

	locations := map[model.ID]bool{}
	for i, loc := range l.Locations {
		switch {
		case loc.ID == "":
			bad("locations[%d]: missing id", i)
		case locations[loc.ID]:
			bad("location %s: duplicate id", loc.ID)
		}
		locations[loc.ID] = true
	}

	industries := map[model.ID]model.Industry{}
	for i, ind := range l.Industries {
		switch {
		case ind.ID == "":
			bad("industries[%d]: missing id", i)
		case industries[ind.ID].ID != "":
			bad("industry %s: duplicate id", ind.ID)
		}
		industries[ind.ID] = ind
		if !locations[ind.LocationID] {
			bad("industry %s: unknown location %q", ind.ID, ind.LocationID)
		}
		tracks := map[model.ID]bool{}
		for j, t := range ind.Tracks {
			if t.ID == "" {
				bad("industry %s: tracks[%d]: missing id", ind.ID, j)
			} else if tracks[t.ID] {
				bad("industry %s: duplicate track %s", ind.ID, t.ID)
			}
			tracks[t.ID] = true
			if t.MaxCars < 0 {
				bad("industry %s track %s: maxCars must be >= 0", ind.ID, t.ID)
			}
		}
	}
	hasTrack := func(ref model.TrackRef) bool {
		for _, t := range industries[ref.IndustryID].Tracks {
			if t.ID == ref.TrackID {
				return true
			}
		}
		return false
	}

	cars := map[model.ID]bool{}
	for i, c := range l.RollingStock {
		switch {
		case c.ID == "":
			bad("rollingStock[%d]: missing id", i)
		case cars[c.ID]:
			bad("car %s: duplicate id", c.ID)
		}
		cars[c.ID] = true
		if c.Destination != nil && !hasTrack(*c.Destination) {
			bad("car %s: unknown destination %s/%s", c.ID, c.Destination.IndustryID, c.Destination.TrackID)
		}
		if c.HomeYard != "" && industries[c.HomeYard].ID == "" {
			bad("car %s: unknown home yard %q", c.ID, c.HomeYard)
		}
	}
	for _, ind := range l.Industries {
		for _, t := range ind.Tracks {
			for _, id := range t.PlacedCars {
				if !cars[id] {
					bad("industry %s track %s: unknown car %s", ind.ID, t.ID, id)
				}
			}
		}
	}

	routes := map[model.ID]bool{}
	for i, r := range l.TrainRoutes {
		switch {
		case r.ID == "":
			bad("trainRoutes[%d]: missing id", i)
		case routes[r.ID]:
			bad("train route %s: duplicate id", r.ID)
		}
		routes[r.ID] = true
		if len(planner.OriginatingYardIndustries(r, l.Industries)) == 0 {
			bad("train route %s: originating yard %q has no YARD industry", r.ID, r.OriginatingYardID)
		}
		if len(planner.TerminatingYardIndustries(r, l.Industries)) == 0 {
			bad("train route %s: terminating yard %q has no YARD industry", r.ID, r.TerminatingYardID)
		}
		for _, st := range r.Stations {
			if !locations[st] {
				bad("train route %s: unknown station %q", r.ID, st)
			}
		}
	}
	return errors.Join(errs...)
}

// Import writes every document of l into s: locations and routes first,
// then cars, then industries with their placements.
func Import(ctx context.Context, s store.Store, l model.Layout) error {
	for _, loc := range l.Locations {
		if err := s.SaveLocation(ctx, loc); err != nil {
			return fmt.Errorf("save location %s: %w", loc.ID, err)
		}
	}
	for _, r := range l.TrainRoutes {
		if err := s.SaveTrainRoute(ctx, r); err != nil {
			return fmt.Errorf("save train route %s: %w", r.ID, err)
		}
	}
	for _, c := range l.RollingStock {
		if _, err := s.SaveRollingStock(ctx, c); err != nil {
			return fmt.Errorf("save car %s: %w", c.ID, err)
		}
	}
	for _, ind := range l.Industries {
		if _, err := s.SaveIndustry(ctx, ind); err != nil {
			return fmt.Errorf("save industry %s: %w", ind.ID, err)
		}
	}
	return nil
}

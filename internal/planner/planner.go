// Package planner turns a train route and a layout snapshot into an ordered
// list of car movements out of the originating yard.
package planner

import (
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/MyTurnyet/switch-this-sub002/internal/layout"
	"github.com/MyTurnyet/switch-this-sub002/internal/model"
)

// Skip codes recorded for yard cars that could not be planned.
const (
	SkipNoDestination      = "no_destination"
	SkipUnknownDestination = "unknown_destination"
	SkipNotOnRoute         = "destination_not_on_route"
	SkipAlreadyThere       = "already_at_destination"
	SkipDestinationFull    = "destination_full"
	SkipIncompatible       = "incompatible_car_type"
	SkipNotOnSource        = "not_on_yard_track"
)

var skipReasons = map[string]string{
	SkipNoDestination:      "no destination",
	SkipUnknownDestination: "unknown destination",
	SkipNotOnRoute:         "destination not on route",
	SkipAlreadyThere:       "already at destination",
	SkipDestinationFull:    "destination full",
	SkipIncompatible:       "incompatible car type",
	SkipNotOnSource:        "car not on yard track",
}

// Reason returns the human text for a skip code.
func Reason(code string) string {
	if r, ok := skipReasons[code]; ok {
		return r
	}
	return code
}

// Plan is the result of one planning run. Nothing in it has been applied.
type Plan struct {
	Operations []model.Operation
	Skipped    []model.SkippedCar
	Stats      Stats
}

type Planner struct {
	Resolver DestinationResolver
	Log      *zap.SugaredLogger
}

// New returns a planner using resolver, or the cars' assigned destinations
// when resolver is nil.
func New(resolver DestinationResolver, log *zap.SugaredLogger) *Planner {
	if resolver == nil {
		resolver = AssignedDestination
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Planner{Resolver: resolver, Log: log}
}

// Plan walks the originating yard in industry, track and placement order and
// schedules each car whose destination is on the route and still has room
// in the working copy of the layout. Later cars see the capacity consumed by
// earlier ones. Operations come back stably sorted by stop.
func (p *Planner) Plan(route model.TrainRoute, industries []model.Industry, cars []model.RollingStock) (Plan, error) {
	resolver := p.Resolver
	if resolver == nil {
		resolver = AssignedDestination
	}
	log := p.Log
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	work := layout.NewState(industries, cars)
	out := Plan{Stats: Stats{RouteID: route.ID, Skipped: map[string]int{}}}

	skip := func(car model.RollingStock, code string) {
		out.Skipped = append(out.Skipped, model.SkippedCar{CarID: car.ID, Code: code, Reason: Reason(code)})
		out.Stats.Skipped[code]++
		log.Debugw("car skipped", "route", route.ID, "car", car.ID, "reason", Reason(code))
	}

	for _, yard := range OriginatingYardIndustries(route, industries) {
		for _, track := range yard.Tracks {
			src := model.TrackRef{IndustryID: yard.ID, TrackID: track.ID}
			for _, car := range layout.CarsOnTrack(track, cars) {
				out.Stats.YardCars++
				dst, ok, err := resolver.Resolve(car)
				if err != nil {
					return Plan{}, fmt.Errorf("resolve destination for car %s: %w", car.ID, err)
				}
				if !ok {
					skip(car, SkipNoDestination)
					continue
				}
				if dst == src {
					skip(car, SkipAlreadyThere)
					continue
				}
				loc, known := work.LocationOf(dst)
				if !known {
					skip(car, SkipUnknownDestination)
					continue
				}
				stop, onRoute := StopIndex(route, loc, industries)
				if !onRoute {
					skip(car, SkipNotOnRoute)
					continue
				}
				if err := work.Move(car.ID, src, dst); err != nil {
					code, perr := skipCode(err)
					if perr != nil {
						return Plan{}, perr
					}
					skip(car, code)
					continue
				}
				out.Operations = append(out.Operations, model.Operation{
					CarID:        car.ID,
					Source:       src,
					Destination:  dst,
					StationOrder: stop,
					Status:       model.OperationPending,
				})
			}
		}
	}

	slices.SortStableFunc(out.Operations, func(a, b model.Operation) int {
		return a.StationOrder - b.StationOrder
	})
	out.Stats.Planned = len(out.Operations)
	log.Infow("route planned", "route", route.ID, "yardCars", out.Stats.YardCars,
		"planned", out.Stats.Planned, "skipped", len(out.Skipped))
	return out, nil
}

func skipCode(err error) (string, error) {
	switch {
	case errors.Is(err, layout.ErrCapacityExceeded):
		return SkipDestinationFull, nil
	case errors.Is(err, layout.ErrTypeIncompatible):
		return SkipIncompatible, nil
	case errors.Is(err, layout.ErrNotOnTrack), errors.Is(err, layout.ErrUnknownCar):
		return SkipNotOnSource, nil
	default:
		return "", err
	}
}

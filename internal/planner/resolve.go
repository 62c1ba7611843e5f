package planner

import "github.com/MyTurnyet/switch-this-sub002/internal/model"

// DestinationResolver picks where a yard car should go. ok is false when the
// car has no destination for this run.
type DestinationResolver interface {
	Resolve(car model.RollingStock) (dst model.TrackRef, ok bool, err error)
}

// ResolverFunc adapts a function to DestinationResolver.
type ResolverFunc func(car model.RollingStock) (model.TrackRef, bool, error)

func (f ResolverFunc) Resolve(car model.RollingStock) (model.TrackRef, bool, error) {
	return f(car)
}

// AssignedDestination uses the destination recorded on the car.
var AssignedDestination DestinationResolver = ResolverFunc(func(car model.RollingStock) (model.TrackRef, bool, error) {
	if car.Destination == nil || car.Destination.IsZero() {
		return model.TrackRef{}, false, nil
	}
	return *car.Destination, true, nil
})

// StaticDestinations resolves from a fixed car-to-track assignment table.
func StaticDestinations(m map[model.ID]model.TrackRef) DestinationResolver {
	return ResolverFunc(func(car model.RollingStock) (model.TrackRef, bool, error) {
		dst, ok := m[car.ID]
		return dst, ok && !dst.IsZero(), nil
	})
}

// FirstResolved tries each resolver in turn and returns the first answer.
func FirstResolved(rs ...DestinationResolver) DestinationResolver {
	return ResolverFunc(func(car model.RollingStock) (model.TrackRef, bool, error) {
		for _, r := range rs {
			if r == nil {
				continue
			}
			dst, ok, err := r.Resolve(car)
			if err != nil {
				return model.TrackRef{}, false, err
			}
			if ok {
				return dst, true, nil
			}
		}
		return model.TrackRef{}, false, nil
	})
}

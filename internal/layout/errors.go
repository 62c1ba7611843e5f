package layout

import (
	"errors"
	"fmt"

	"github.com/MyTurnyet/switch-this-sub002/internal/model"
)

// Placement failure kinds. Match with errors.Is against a *PlacementError.
var (
	ErrCapacityExceeded = errors.New("capacity exceeded")
	ErrTypeIncompatible = errors.New("car type incompatible with track")
	ErrAlreadyPlaced    = errors.New("car already placed")
	ErrNotOnTrack       = errors.New("car not on source track")
)

var (
	ErrUnknownCar   = errors.New("unknown car")
	ErrUnknownTrack = errors.New("unknown track")
)

// PlacementError is returned when a mutation would break a placement invariant.
type PlacementError struct {
	Kind    error
	CarID   model.ID
	TrackID model.ID
}

func (e *PlacementError) Error() string {
	return fmt.Sprintf("place car %s on track %s: %v", e.CarID, e.TrackID, e.Kind)
}

func (e *PlacementError) Is(target error) bool { return target == e.Kind }

func (e *PlacementError) Unwrap() error { return e.Kind }

func placementErr(kind error, car, track model.ID) error {
	return &PlacementError{Kind: kind, CarID: car, TrackID: track}
}

// IsPlacementError reports whether err is an invariant violation the caller
// can recover from by choosing another destination.
func IsPlacementError(err error) bool {
	var pe *PlacementError
	return errors.As(err, &pe)
}

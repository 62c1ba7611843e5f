// Package layout holds the capacity model and the live car-to-track index.
package layout

import (
	"github.com/MyTurnyet/switch-this-sub002/internal/model"
)

// RemainingCapacity is the number of free car slots on a track. A track with
// no remaining capacity is full.
func RemainingCapacity(t model.Track) int {
	return t.MaxCars - len(t.PlacedCars)
}

// IsFull reports whether no further car may be placed on t.
func IsFull(t model.Track) bool { return RemainingCapacity(t) <= 0 }

// IsCompatible reports whether t accepts the car's AAR type. Codes are
// compared as stored; an empty accepted set admits nothing.
func IsCompatible(t model.Track, car model.RollingStock) bool {
	for _, ct := range t.AcceptedCarTypes {
		if ct == model.AnyCarType || ct == car.AARType {
			return true
		}
	}
	return false
}

// OccupancyRatio is placed/max as an exact float. Tracks with MaxCars == 0
// report 0 (they are still full by RemainingCapacity).
func OccupancyRatio(t model.Track) float64 {
	if t.MaxCars <= 0 {
		return 0
	}
	return float64(len(t.PlacedCars)) / float64(t.MaxCars)
}

// OccupancyLevel buckets an occupancy ratio for reporting.
type OccupancyLevel string

const (
	LevelNormal   OccupancyLevel = "normal"
	LevelCaution  OccupancyLevel = "caution"
	LevelWarning  OccupancyLevel = "warning"
	LevelCritical OccupancyLevel = "critical"
)

func OccupancyLevelFor(ratio float64) OccupancyLevel {
	switch {
	case ratio >= 1.0:
		return LevelCritical
	case ratio >= 0.75:
		return LevelWarning
	case ratio >= 0.5:
		return LevelCaution
	default:
		return LevelNormal
	}
}

// TrackOccupancy is the reporting view of one track.
type TrackOccupancy struct {
	IndustryID model.ID       `json:"industryId"`
	TrackID    model.ID       `json:"trackId"`
	Name       string         `json:"name"`
	Placed     int            `json:"placed"`
	MaxCars    int            `json:"maxCars"`
	Remaining  int            `json:"remaining"`
	Ratio      float64        `json:"ratio"`
	Level      OccupancyLevel `json:"level"`
}

// Occupancy reports every track of an industry in track order.
func Occupancy(ind model.Industry) []TrackOccupancy {
	out := make([]TrackOccupancy, 0, len(ind.Tracks))
	for _, t := range ind.Tracks {
		ratio := OccupancyRatio(t)
		level := OccupancyLevelFor(ratio)
		if t.MaxCars <= 0 {
			level = LevelCritical
		}
		out = append(out, TrackOccupancy{
			IndustryID: ind.ID,
			TrackID:    t.ID,
			Name:       t.Name,
			Placed:     len(t.PlacedCars),
			MaxCars:    t.MaxCars,
			Remaining:  RemainingCapacity(t),
			Ratio:      ratio,
			Level:      level,
		})
	}
	return out
}

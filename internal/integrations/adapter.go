// Package integrations holds adapters that pull layout data from outside
// sources, such as car rosters exported by other layout tools.
package integrations

import (
	"context"

	"github.com/MyTurnyet/switch-this-sub002/internal/model"
)

// RosterSource supplies rolling stock from an external roster.
type RosterSource interface {
	Name() string
	FetchRoster(ctx context.Context) ([]model.RollingStock, error)
}

// MergeRoster overlays roster cars onto existing ones by id. Roster fields
// that are set win; destinations and versions already held are kept unless
// the roster names a destination.
func MergeRoster(existing, roster []model.RollingStock) []model.RollingStock {
	out := make([]model.RollingStock, 0, len(existing)+len(roster))
	index := make(map[model.ID]int, len(existing))
	for _, c := range existing {
		index[c.ID] = len(out)
		out = append(out, c.Clone())
	}
	for _, r := range roster {
		i, ok := index[r.ID]
		if !ok {
			index[r.ID] = len(out)
			out = append(out, r.Clone())
			continue
		}
		cur := &out[i]
		setIf(&cur.RoadName, r.RoadName)
		setIf(&cur.RoadNumber, r.RoadNumber)
		setIf(&cur.AARType, r.AARType)
		setIf(&cur.Description, r.Description)
		setIf(&cur.Color, r.Color)
		setIf(&cur.Note, r.Note)
		if r.HomeYard != "" {
			cur.HomeYard = r.HomeYard
		}
		if r.Destination != nil {
			d := *r.Destination
			cur.Destination = &d
		}
	}
	return out
}

func setIf(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

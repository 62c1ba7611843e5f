package switchlist

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/MyTurnyet/switch-this-sub002/internal/model"
	"github.com/MyTurnyet/switch-this-sub002/internal/planner"
	"github.com/MyTurnyet/switch-this-sub002/internal/store"
)

// Directory resolves ids to the names a crew reads on a printed list.
type Directory struct {
	all        []model.Industry
	locations  map[model.ID]model.Location
	industries map[model.ID]model.Industry
	cars       map[model.ID]model.RollingStock
}

func NewDirectory(locations []model.Location, industries []model.Industry, cars []model.RollingStock) Directory {
	d := Directory{
		all:        industries,
		locations:  make(map[model.ID]model.Location, len(locations)),
		industries: make(map[model.ID]model.Industry, len(industries)),
		cars:       make(map[model.ID]model.RollingStock, len(cars)),
	}
	for _, l := range locations {
		d.locations[l.ID] = l
	}
	for _, i := range industries {
		d.industries[i.ID] = i
	}
	for _, c := range cars {
		d.cars[c.ID] = c
	}
	return d
}

func (d Directory) station(id model.ID) string {
	if l, ok := d.locations[id]; ok && l.StationName != "" {
		return l.StationName
	}
	return string(id)
}

func (d Directory) track(ref model.TrackRef) string {
	ind, ok := d.industries[ref.IndustryID]
	if !ok {
		return string(ref.IndustryID) + " / " + string(ref.TrackID)
	}
	name := ind.Name
	if name == "" {
		name = string(ind.ID)
	}
	for _, t := range ind.Tracks {
		if t.ID == ref.TrackID && t.Name != "" {
			return name + " / " + t.Name
		}
	}
	return name + " / " + string(ref.TrackID)
}

func (d Directory) car(id model.ID) (marks, aar string) {
	c, ok := d.cars[id]
	if !ok {
		return string(id), "?"
	}
	if m := c.ReportingMarks(); m != "" {
		return m, c.AARType
	}
	return string(id), c.AARType
}

func (d Directory) yard(id model.ID) string {
	if ind, ok := d.industries[id]; ok && ind.Name != "" {
		return ind.Name
	}
	return d.station(id)
}

// Print renders the crew's view of a switchlist: operations grouped by stop
// in route order, then the cars left in the yard and why.
func Print(w io.Writer, sl model.Switchlist, route model.TrainRoute, d Directory) error {
	fmt.Fprintf(w, "SWITCHLIST  %s  [%s]\n", sl.Name, sl.Status)
	fmt.Fprintf(w, "ROUTE       %s  (%s -> %s)\n", route.Name, d.yard(route.OriginatingYardID), d.yard(route.TerminatingYardID))

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	stop := -1
	for i, op := range sl.Operations {
		if op.StationOrder != stop {
			stop = op.StationOrder
			if i > 0 {
				tw.Flush()
			}
			fmt.Fprintf(w, "\n%s\n", stopHeading(route, stop, d))
			fmt.Fprintln(tw, "#\tCAR\tTYPE\tFROM\tTO\tSTATUS")
		}
		marks, aar := d.car(op.CarID)
		status := string(op.Status)
		if op.Status == model.OperationFailed && op.FailureReason != "" {
			status += " (" + op.FailureReason + ")"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", i+1, marks, aar, d.track(op.Source), d.track(op.Destination), status)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if len(sl.Operations) == 0 {
		fmt.Fprintln(w, "\nNo operations.")
	}

	if len(sl.Skipped) > 0 {
		fmt.Fprintln(w, "\nLEFT IN YARD")
		tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		for _, s := range sl.Skipped {
			marks, aar := d.car(s.CarID)
			fmt.Fprintf(tw, "  %s\t%s\t%s\n", marks, aar, s.Reason)
		}
		return tw.Flush()
	}
	return nil
}

func stopHeading(route model.TrainRoute, stop int, d Directory) string {
	if stop < 0 || stop >= len(route.Stations) {
		return "TERMINUS: " + d.yard(route.TerminatingYardID)
	}
	h := fmt.Sprintf("STOP %d: %s", stop+1, d.station(route.Stations[stop]))
	var names []string
	for _, ind := range planner.IndustriesAtStop(route, stop, d.all) {
		names = append(names, cmp.Or(ind.Name, string(ind.ID)))
	}
	if len(names) > 0 {
		h += "  (" + strings.Join(names, ", ") + ")"
	}
	return h
}

// Print loads what the print view needs and renders the switchlist to w.
func (s *Service) Print(ctx context.Context, id model.ID, w io.Writer) error {
	sl, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	route, err := s.store.LoadTrainRoute(ctx, sl.TrainRouteID)
	if errors.Is(err, store.ErrNotFound) {
		// the route may have been removed since; print with ids only
		route = model.TrainRoute{ID: sl.TrainRouteID, Name: string(sl.TrainRouteID)}
	} else if err != nil {
		return s.persistence("load train route", err)
	}
	locations, err := s.store.LoadLocations(ctx)
	if err != nil {
		return s.persistence("load locations", err)
	}
	industries, err := s.store.LoadIndustries(ctx)
	if err != nil {
		return s.persistence("load industries", err)
	}
	cars, err := s.store.LoadRollingStock(ctx)
	if err != nil {
		return s.persistence("load rolling stock", err)
	}
	return Print(w, sl, route, NewDirectory(locations, industries, cars))
}

package planner

import "github.com/MyTurnyet/switch-this-sub002/internal/model"

// Route topology: resolves a route's abstract station list against the
// industries that exist right now. Stops are visited strictly in Stations
// order.

// IndustriesAtStop returns the industries located at the route's stop, in
// snapshot order. An out-of-range stop yields nothing.
func IndustriesAtStop(route model.TrainRoute, stopIndex int, all []model.Industry) []model.Industry {
	if stopIndex < 0 || stopIndex >= len(route.Stations) {
		return nil
	}
	loc := route.Stations[stopIndex]
	var out []model.Industry
	for _, ind := range all {
		if ind.LocationID == loc {
			out = append(out, ind)
		}
	}
	return out
}

// OriginatingYardIndustries returns the YARD industries the route departs
// from. An empty result means there is nothing to plan, not an error.
func OriginatingYardIndustries(route model.TrainRoute, all []model.Industry) []model.Industry {
	return yardIndustries(route.OriginatingYardID, all)
}

// TerminatingYardIndustries returns the YARD industries the route ends at.
func TerminatingYardIndustries(route model.TrainRoute, all []model.Industry) []model.Industry {
	return yardIndustries(route.TerminatingYardID, all)
}

// yardIndustries matches a yard reference against either a yard industry id
// or the location id holding yard industries.
func yardIndustries(yardRef model.ID, all []model.Industry) []model.Industry {
	if yardRef == "" {
		return nil
	}
	for _, ind := range all {
		if ind.ID == yardRef {
			if ind.IsYard() {
				return []model.Industry{ind}
			}
			return nil
		}
	}
	var out []model.Industry
	for _, ind := range all {
		if ind.IsYard() && ind.LocationID == yardRef {
			out = append(out, ind)
		}
	}
	return out
}

// StopIndex returns the first stop at the location. The terminating yard's
// location, when not itself a listed station, is the stop after the last one.
func StopIndex(route model.TrainRoute, locationID model.ID, all []model.Industry) (int, bool) {
	for i, st := range route.Stations {
		if st == locationID {
			return i, true
		}
	}
	for _, ind := range TerminatingYardIndustries(route, all) {
		if ind.LocationID == locationID {
			return len(route.Stations), true
		}
	}
	return 0, false
}

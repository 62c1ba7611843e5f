package api

import (
	"errors"
	"net/http"

	"github.com/MyTurnyet/switch-this-sub002/internal/layout"
	"github.com/MyTurnyet/switch-this-sub002/internal/model"
	"github.com/MyTurnyet/switch-this-sub002/internal/planner"
	"github.com/MyTurnyet/switch-this-sub002/internal/store"
	"github.com/MyTurnyet/switch-this-sub002/internal/switchlist"
)

// lookupErr turns a store miss into the NotFoundError for entity.
func lookupErr(err error, entity string, id model.ID) error {
	if errors.Is(err, store.ErrNotFound) {
		return &switchlist.NotFoundError{Entity: entity, ID: id}
	}
	return &switchlist.PersistenceError{Op: "load " + entity, Err: err}
}

func (s *Server) handleListLocations(w http.ResponseWriter, r *http.Request) {
	locs, err := s.store.LoadLocations(r.Context())
	if err != nil {
		s.writeServiceError(w, r, lookupErr(err, "Location", ""))
		return
	}
	writeJSON(w, http.StatusOK, locs)
}

// snapshot loads the live layout into a State for read-only queries.
func (s *Server) snapshot(r *http.Request) (*layout.State, error) {
	industries, err := s.store.LoadIndustries(r.Context())
	if err != nil {
		return nil, &switchlist.PersistenceError{Op: "load industries", Err: err}
	}
	cars, err := s.store.LoadRollingStock(r.Context())
	if err != nil {
		return nil, &switchlist.PersistenceError{Op: "load rolling stock", Err: err}
	}
	return layout.NewState(industries, cars), nil
}

func (s *Server) handleCarsAtLocation(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	if _, err := s.store.GetLocation(r.Context(), id); err != nil {
		s.writeServiceError(w, r, lookupErr(err, "Location", id))
		return
	}
	state, err := s.snapshot(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	cars := []model.RollingStock{}
	for carID := range state.CarsAtLocation(id) {
		if c, ok := state.Car(carID); ok {
			cars = append(cars, c)
		}
	}
	writeJSON(w, http.StatusOK, cars)
}

func (s *Server) handleListIndustries(w http.ResponseWriter, r *http.Request) {
	inds, err := s.store.LoadIndustries(r.Context())
	if err != nil {
		s.writeServiceError(w, r, lookupErr(err, "Industry", ""))
		return
	}
	writeJSON(w, http.StatusOK, inds)
}

func (s *Server) handleOccupancy(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	ind, err := s.store.GetIndustry(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, lookupErr(err, "Industry", id))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"industryId": ind.ID,
		"name":       ind.Name,
		"tracks":     layout.Occupancy(ind),
	})
}

func (s *Server) handleListRollingStock(w http.ResponseWriter, r *http.Request) {
	cars, err := s.store.LoadRollingStock(r.Context())
	if err != nil {
		s.writeServiceError(w, r, lookupErr(err, "Rolling stock", ""))
		return
	}
	writeJSON(w, http.StatusOK, cars)
}

func (s *Server) handleListTrainRoutes(w http.ResponseWriter, r *http.Request) {
	routes, err := s.store.LoadTrainRoutes(r.Context())
	if err != nil {
		s.writeServiceError(w, r, lookupErr(err, "Train route", ""))
		return
	}
	writeJSON(w, http.StatusOK, routes)
}

func (s *Server) handleGetTrainRoute(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	route, err := s.store.LoadTrainRoute(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, lookupErr(err, "Train route", id))
		return
	}
	writeJSON(w, http.StatusOK, route)
}

type planView struct {
	RouteID    model.ID           `json:"routeId"`
	Operations []model.Operation  `json:"operations"`
	Skipped    []model.SkippedCar `json:"skipped"`
	Stats      planner.Stats      `json:"stats"`
}

// handlePreviewPlan runs the planner against the live layout without
// persisting a switchlist.
func (s *Server) handlePreviewPlan(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	plan, err := s.svc.Preview(r.Context(), id, nil)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	v := planView{RouteID: id, Operations: plan.Operations, Skipped: plan.Skipped, Stats: plan.Stats}
	if v.Operations == nil {
		v.Operations = []model.Operation{}
	}
	if v.Skipped == nil {
		v.Skipped = []model.SkippedCar{}
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleLayoutCheck(w http.ResponseWriter, r *http.Request) {
	state, err := s.snapshot(r)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	violations := state.Violations()
	blocking := 0
	for _, v := range violations {
		if v.Severity == layout.SeverityBlock {
			blocking++
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":         len(violations) == 0,
		"blocking":   blocking,
		"violations": violations,
	})
}

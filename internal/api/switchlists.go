package api

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/MyTurnyet/switch-this-sub002/internal/model"
	"github.com/MyTurnyet/switch-this-sub002/internal/switchlist"
)

func pathID(r *http.Request) model.ID { return model.ID(mux.Vars(r)["id"]) }

func (s *Server) handleListSwitchlists(w http.ResponseWriter, r *http.Request) {
	items, err := s.svc.List(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// handleCreateSwitchlist answers 201 even when some cars were skipped; the
// skipped list is repeated next to the switchlist.
func (s *Server) handleCreateSwitchlist(w http.ResponseWriter, r *http.Request) {
	var body createBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return
	}
	if err := validateBody(&body); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	sl, err := s.svc.CreateSwitchlist(r.Context(), switchlist.CreateRequest{
		Name:         body.Name,
		TrainRouteID: body.TrainRouteID,
		Assignments:  body.Assignments,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if sl.Skipped == nil {
		sl.Skipped = []model.SkippedCar{}
	}
	w.Header().Set("Location", "/switchlists/"+string(sl.ID))
	writeJSON(w, http.StatusCreated, sl)
}

func (s *Server) handleGetSwitchlist(w http.ResponseWriter, r *http.Request) {
	sl, err := s.svc.Get(r.Context(), pathID(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sl)
}

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var body statusBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return
	}
	if err := validateBody(&body); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	sl, err := s.svc.UpdateStatus(r.Context(), pathID(r), body.Status)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sl)
}

type operationsView struct {
	SwitchlistID model.ID               `json:"switchlistId"`
	Status       model.SwitchlistStatus `json:"status"`
	Total        int                    `json:"total"`
	Executed     int                    `json:"executed"`
	Failed       int                    `json:"failed"`
	Operations   []model.Operation      `json:"operations"`
}

func (s *Server) handleListOperations(w http.ResponseWriter, r *http.Request) {
	sl, err := s.svc.Get(r.Context(), pathID(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	v := operationsView{SwitchlistID: sl.ID, Status: sl.Status, Total: len(sl.Operations), Operations: sl.Operations}
	for _, op := range sl.Operations {
		switch op.Status {
		case model.OperationExecuted:
			v.Executed++
		case model.OperationFailed:
			v.Failed++
		}
	}
	if v.Operations == nil {
		v.Operations = []model.Operation{}
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleExecuteOperation(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid operation index")
		return
	}
	sl, err := s.svc.ExecuteOperation(r.Context(), pathID(r), index)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sl)
}

func (s *Server) handlePrint(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.svc.Print(r.Context(), pathID(r), &buf); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

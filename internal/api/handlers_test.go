package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MyTurnyet/switch-this-sub002/internal/config"
	"github.com/MyTurnyet/switch-this-sub002/internal/layout"
	"github.com/MyTurnyet/switch-this-sub002/internal/model"
	"github.com/MyTurnyet/switch-this-sub002/internal/store"
	"github.com/MyTurnyet/switch-this-sub002/internal/switchlist"
)

func dst(ind, tr string) *model.TrackRef {
	return &model.TrackRef{IndustryID: model.ID(ind), TrackID: model.ID(tr)}
}

func seedLayout(t *testing.T, s store.Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.SaveLocation(ctx, model.Location{ID: "echo", StationName: "Echo Lake"}))
	require.NoError(t, s.SaveLocation(ctx, model.Location{ID: "sea", StationName: "Seattle"}))
	require.NoError(t, s.SaveLocation(ctx, model.Location{ID: "bay", StationName: "Bayview"}))
	for _, ind := range []model.Industry{
		{ID: "yard", Name: "Echo Yard", IndustryType: model.IndustryYard, LocationID: "echo", Tracks: []model.Track{
			{ID: "y1", Name: "Lead", MaxCars: 5, AcceptedCarTypes: []string{"*"}, PlacedCars: []model.ID{"c1", "c2", "c3"}},
		}},
		{ID: "mill", Name: "Mill", IndustryType: model.IndustryFreight, LocationID: "sea", Tracks: []model.Track{
			{ID: "m1", Name: "Dock", MaxCars: 2, AcceptedCarTypes: []string{"XM"}},
		}},
		{ID: "cannery", Name: "Cannery", IndustryType: model.IndustryFreight, LocationID: "bay", Tracks: []model.Track{
			{ID: "k1", Name: "Spur", MaxCars: 1, AcceptedCarTypes: []string{"RS"}},
		}},
	} {
		_, err := s.SaveIndustry(ctx, ind)
		require.NoError(t, err)
	}
	for _, c := range []model.RollingStock{
		{ID: "c1", RoadName: "ATSF", RoadNumber: "1", AARType: "RS", Destination: dst("cannery", "k1")},
		{ID: "c2", RoadName: "ATSF", RoadNumber: "2", AARType: "XM", Destination: dst("mill", "m1")},
		{ID: "c3", RoadName: "UP", RoadNumber: "3", AARType: "T"},
		{ID: "c9", RoadName: "BN", RoadNumber: "9", AARType: "XM"},
	} {
		_, err := s.SaveRollingStock(ctx, c)
		require.NoError(t, err)
	}
	require.NoError(t, s.SaveTrainRoute(ctx, model.TrainRoute{
		ID: "r1", Name: "Bay Turn", OriginatingYardID: "yard", TerminatingYardID: "yard",
		Stations: []model.ID{"sea", "bay"},
	}))
}

type testEnv struct {
	mem     *store.Memory
	handler http.Handler
	broker  *Broker
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	mem := store.NewMemory()
	seedLayout(t, mem)
	broker := NewBroker()
	svc := switchlist.NewService(switchlist.Deps{Store: mem, Publisher: broker})
	srv := NewServer(Deps{Store: mem, Service: svc, Broker: broker})
	return &testEnv{mem: mem, handler: srv.Routes(), broker: broker}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func (e *testEnv) create(t *testing.T) model.Switchlist {
	t.Helper()
	rr := e.do(t, http.MethodPost, "/switchlists", `{"name":"Morning","trainRouteId":"r1"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decode[model.Switchlist](t, rr)
}

func TestHealthReady(t *testing.T) {
	e := newTestEnv(t)
	assert.Equal(t, http.StatusOK, e.do(t, http.MethodGet, "/healthz", "").Code)
	assert.Equal(t, http.StatusOK, e.do(t, http.MethodGet, "/readyz", "").Code)
}

func TestCreateSwitchlist(t *testing.T) {
	e := newTestEnv(t)
	rr := e.do(t, http.MethodPost, "/switchlists", `{"name":"Morning","trainRouteId":"r1"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	raw := decode[map[string]any](t, rr)
	assert.NotEmpty(t, raw["id"], "id is at the top level of the body")
	assert.IsType(t, []any{}, raw["skipped"])

	got := decode[model.Switchlist](t, rr)
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, "/switchlists/"+string(got.ID), rr.Header().Get("Location"))
	assert.Equal(t, model.StatusCreated, got.Status)
	require.Len(t, got.Operations, 2)
	require.Len(t, got.Skipped, 1)
	assert.Equal(t, model.ID("c3"), got.Skipped[0].CarID)

	rr = e.do(t, http.MethodGet, "/switchlists", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]model.Switchlist](t, rr), 1)
}

func TestCreateSwitchlistErrors(t *testing.T) {
	e := newTestEnv(t)
	cases := []struct {
		name   string
		body   string
		status int
		msg    string
	}{
		{"unknown route", `{"name":"Morning","trainRouteId":"nope"}`, http.StatusNotFound, "Train route not found"},
		{"missing route", `{"name":"Morning"}`, http.StatusBadRequest, switchlist.MsgMissingFields},
		{"missing name", `{"trainRouteId":"r1"}`, http.StatusBadRequest, switchlist.MsgMissingFields},
		{"blank name", `{"name":"  ","trainRouteId":"r1"}`, http.StatusBadRequest, switchlist.MsgMissingFields},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := e.do(t, http.MethodPost, "/switchlists", tc.body)
			assert.Equal(t, tc.status, rr.Code)
			assert.Equal(t, tc.msg, decode[errorBody](t, rr).Error)
		})
	}

	rr := e.do(t, http.MethodPost, "/switchlists", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = e.do(t, http.MethodPost, "/switchlists", `{"name":"x","trainRouteId":"r1","assignments":{"c3":{"industryId":"mill"}}}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, decode[errorBody](t, rr).Error, "trackId")

	rr = e.do(t, http.MethodGet, "/switchlists", "")
	assert.Empty(t, decode[[]model.Switchlist](t, rr), "nothing persisted on failure")
}

func TestCreateSwitchlistWithAssignments(t *testing.T) {
	e := newTestEnv(t)
	rr := e.do(t, http.MethodPost, "/switchlists",
		`{"name":"Extra","trainRouteId":"r1","assignments":{"c3":{"industryId":"yard","trackId":"y1"}}}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	got := decode[model.Switchlist](t, rr)
	require.Len(t, got.Skipped, 1)
	assert.Equal(t, "already at destination", got.Skipped[0].Reason)
}

func TestGetSwitchlistNotFound(t *testing.T) {
	e := newTestEnv(t)
	rr := e.do(t, http.MethodGet, "/switchlists/nope", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "Switchlist not found", decode[errorBody](t, rr).Error)
}

func TestExecuteAndComplete(t *testing.T) {
	e := newTestEnv(t)
	sl := e.create(t)
	base := "/switchlists/" + string(sl.ID)

	rr := e.do(t, http.MethodPost, base+"/operations/0/execute", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	got := decode[model.Switchlist](t, rr)
	assert.Equal(t, model.OperationExecuted, got.Operations[0].Status)
	assert.Equal(t, model.StatusInProgress, got.Status)

	rr = e.do(t, http.MethodGet, base+"/operations", "")
	require.Equal(t, http.StatusOK, rr.Code)
	ops := decode[operationsView](t, rr)
	assert.Equal(t, 2, ops.Total)
	assert.Equal(t, 1, ops.Executed)

	rr = e.do(t, http.MethodPatch, base, `{"status":"COMPLETED"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code, "cannot complete with pending operations")

	rr = e.do(t, http.MethodPost, base+"/operations/1/execute", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, model.StatusCompleted, decode[model.Switchlist](t, rr).Status)

	rr = e.do(t, http.MethodGet, "/locations/bay/cars", "")
	require.Equal(t, http.StatusOK, rr.Code)
	cars := decode[[]model.RollingStock](t, rr)
	require.Len(t, cars, 1)
	assert.Equal(t, model.ID("c1"), cars[0].ID)
}

func TestExecuteConflict(t *testing.T) {
	e := newTestEnv(t)
	sl := e.create(t)
	ctx := t.Context()

	cannery, err := e.mem.GetIndustry(ctx, "cannery")
	require.NoError(t, err)
	cannery.Tracks[0].PlacedCars = []model.ID{"c9"}
	_, err = e.mem.SaveIndustry(ctx, cannery)
	require.NoError(t, err)

	rr := e.do(t, http.MethodPost, "/switchlists/"+string(sl.ID)+"/operations/1/execute", "")
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Contains(t, decode[errorBody](t, rr).Error, layout.ErrCapacityExceeded.Error())

	rr = e.do(t, http.MethodGet, "/switchlists/"+string(sl.ID), "")
	got := decode[model.Switchlist](t, rr)
	assert.Equal(t, model.OperationFailed, got.Operations[1].Status)
	assert.Equal(t, model.StatusCreated, got.Status)
}

func TestExecuteBadIndex(t *testing.T) {
	e := newTestEnv(t)
	sl := e.create(t)
	rr := e.do(t, http.MethodPost, "/switchlists/"+string(sl.ID)+"/operations/7/execute", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	rr = e.do(t, http.MethodPost, "/switchlists/"+string(sl.ID)+"/operations/x/execute", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestUpdateStatus(t *testing.T) {
	e := newTestEnv(t)
	sl := e.create(t)
	base := "/switchlists/" + string(sl.ID)

	rr := e.do(t, http.MethodPatch, base, `{"status":"IN_PROGRESS"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, model.StatusInProgress, decode[model.Switchlist](t, rr).Status)

	rr = e.do(t, http.MethodPatch, base, `{"status":"CREATED"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = e.do(t, http.MethodPatch, base, `{"status":"PARKED"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, decode[errorBody](t, rr).Error, "status")
}

func TestPrint(t *testing.T) {
	e := newTestEnv(t)
	sl := e.create(t)
	rr := e.do(t, http.MethodGet, "/switchlists/"+string(sl.ID)+"/print", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/plain; charset=utf-8", rr.Header().Get("Content-Type"))
	out := rr.Body.String()
	assert.Contains(t, out, "SWITCHLIST  Morning")
	assert.Contains(t, out, "STOP 1: Seattle")
	assert.Contains(t, out, "LEFT IN YARD")
}

func TestLayoutReads(t *testing.T) {
	e := newTestEnv(t)

	rr := e.do(t, http.MethodGet, "/locations", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]model.Location](t, rr), 3)

	rr = e.do(t, http.MethodGet, "/locations/echo/cars", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]model.RollingStock](t, rr), 3)

	rr = e.do(t, http.MethodGet, "/locations/nope/cars", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "Location not found", decode[errorBody](t, rr).Error)

	rr = e.do(t, http.MethodGet, "/industries", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]model.Industry](t, rr), 3)

	rr = e.do(t, http.MethodGet, "/industries/yard/occupancy", "")
	require.Equal(t, http.StatusOK, rr.Code)
	occ := decode[struct {
		Tracks []layout.TrackOccupancy `json:"tracks"`
	}](t, rr)
	require.Len(t, occ.Tracks, 1)
	assert.Equal(t, 3, occ.Tracks[0].Placed)
	assert.Equal(t, 2, occ.Tracks[0].Remaining)

	rr = e.do(t, http.MethodGet, "/rolling-stock", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]model.RollingStock](t, rr), 4)

	rr = e.do(t, http.MethodGet, "/train-routes", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]model.TrainRoute](t, rr), 1)

	rr = e.do(t, http.MethodGet, "/train-routes/nope", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "Train route not found", decode[errorBody](t, rr).Error)

	rr = e.do(t, http.MethodGet, "/layout/check", "")
	require.Equal(t, http.StatusOK, rr.Code)
	check := decode[struct {
		OK         bool               `json:"ok"`
		Violations []layout.Violation `json:"violations"`
	}](t, rr)
	assert.True(t, check.OK, "%+v", check.Violations)
}

func TestPreviewPlanPersistsNothing(t *testing.T) {
	e := newTestEnv(t)
	rr := e.do(t, http.MethodGet, "/train-routes/r1/plan", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	plan := decode[planView](t, rr)
	assert.Len(t, plan.Operations, 2)
	assert.Len(t, plan.Skipped, 1)
	assert.Equal(t, 2, plan.Stats.Planned)

	rr = e.do(t, http.MethodGet, "/switchlists", "")
	assert.Empty(t, decode[[]model.Switchlist](t, rr))
}

func TestOpsEndpoints(t *testing.T) {
	e := newTestEnv(t)
	e.do(t, http.MethodGet, "/healthz", "")

	rr := e.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `http_requests_total{method="GET",path="/healthz",status="200"} 1`)

	rr = e.do(t, http.MethodGet, "/openapi.json", "")
	require.Equal(t, http.StatusOK, rr.Code)
	doc := decode[map[string]any](t, rr)
	assert.Equal(t, "3.0.3", doc["openapi"])
	assert.Contains(t, doc["paths"], "/switchlists")

	rr = e.do(t, http.MethodGet, "/debug/info", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"databaseType":"memory"`)

	rr = e.do(t, http.MethodGet, "/nowhere", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	rr = e.do(t, http.MethodDelete, "/switchlists", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestRateLimit(t *testing.T) {
	mem := store.NewMemory()
	cfg := config.Default()
	cfg.API.RateRPS = 0.001
	cfg.API.RateBurst = 2
	srv := NewServer(Deps{Store: mem, Service: switchlist.NewService(switchlist.Deps{Store: mem}), Config: cfg})
	h := srv.Routes()

	codes := make([]int, 0, 3)
	for range 3 {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		codes = append(codes, rr.Code)
	}
	assert.Equal(t, []int{200, 200, http.StatusTooManyRequests}, codes)
}

func TestEventsWebSocket(t *testing.T) {
	e := newTestEnv(t)
	sl := e.create(t)
	ts := httptest.NewServer(e.handler)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/switchlists/" + string(sl.ID) + "/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	resp, err := http.Post(ts.URL+"/switchlists/"+string(sl.ID)+"/operations/0/execute", "application/json", bytes.NewReader(nil))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var types []string
	for range 2 {
		var evt switchlist.Event
		require.NoError(t, conn.ReadJSON(&evt))
		assert.Equal(t, sl.ID, evt.SwitchlistID)
		types = append(types, evt.Type)
	}
	assert.Equal(t, []string{switchlist.EventOperationExecuted, switchlist.EventStatusChanged}, types)

	_, _, err = websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/switchlists/nope/events", nil)
	assert.ErrorIs(t, err, websocket.ErrBadHandshake)
}

package switchlist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/MyTurnyet/switch-this-sub002/internal/layout"
	"github.com/MyTurnyet/switch-this-sub002/internal/metrics"
	"github.com/MyTurnyet/switch-this-sub002/internal/model"
	"github.com/MyTurnyet/switch-this-sub002/internal/planner"
	"github.com/MyTurnyet/switch-this-sub002/internal/store"
)

// Event types published for a switchlist.
const (
	EventCreated           = "switchlist.created"
	EventStatusChanged     = "switchlist.status"
	EventOperationExecuted = "operation.executed"
	EventOperationFailed   = "operation.failed"
)

// Event is one change to a switchlist, fanned out to subscribers.
type Event struct {
	Type         string         `json:"type"`
	SwitchlistID model.ID       `json:"switchlistId"`
	Data         map[string]any `json:"data,omitempty"`
}

// Publisher fans events out to subscribers of a switchlist.
type Publisher interface {
	Publish(switchlistID string, evt Event)
}

// Publishers fans one event out to several publishers in order.
type Publishers []Publisher

func (ps Publishers) Publish(switchlistID string, evt Event) {
	for _, p := range ps {
		p.Publish(switchlistID, evt)
	}
}

type Deps struct {
	Store     store.Store
	Resolver  planner.DestinationResolver
	Stats     *planner.StatsStore
	Publisher Publisher
	Metrics   *metrics.Metrics
	Log       *zap.SugaredLogger
	Now       func() time.Time
}

// Service creates switchlists and applies their operations.
type Service struct {
	store    store.Store
	resolver planner.DestinationResolver
	stats    *planner.StatsStore
	pub      Publisher
	metrics  *metrics.Metrics
	log      *zap.SugaredLogger
	now      func() time.Time
}

func NewService(d Deps) *Service {
	s := &Service{
		store:    d.Store,
		resolver: d.Resolver,
		stats:    d.Stats,
		pub:      d.Publisher,
		metrics:  d.Metrics,
		log:      d.Log,
		now:      d.Now,
	}
	if s.resolver == nil {
		s.resolver = planner.AssignedDestination
	}
	if s.stats == nil {
		s.stats = planner.NewStatsStore()
	}
	if s.metrics == nil {
		s.metrics = metrics.New()
	}
	if s.log == nil {
		s.log = zap.NewNop().Sugar()
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	return s
}

// CreateRequest asks for a new switchlist. Assignments override the cars'
// recorded destinations for this plan only.
type CreateRequest struct {
	Name         string                      `json:"name"`
	TrainRouteID model.ID                    `json:"trainRouteId"`
	Assignments  map[model.ID]model.TrackRef `json:"assignments,omitempty"`
}

// Stats returns the latest planning stats recorded for a route.
func (s *Service) Stats(routeID model.ID) (planner.Stats, bool) { return s.stats.Get(routeID) }

// CreateSwitchlist plans the route against the current layout and persists
// the result as a single new document. Cars that could not be planned are
// listed on the switchlist's Skipped.
func (s *Service) CreateSwitchlist(ctx context.Context, req CreateRequest) (model.Switchlist, error) {
	if strings.TrimSpace(string(req.TrainRouteID)) == "" {
		return model.Switchlist{}, &ValidationError{Message: MsgMissingFields}
	}
	route, err := s.loadRoute(ctx, req.TrainRouteID)
	if err != nil {
		return model.Switchlist{}, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return model.Switchlist{}, &ValidationError{Message: MsgMissingFields}
	}

	plan, err := s.plan(ctx, route, req.Assignments, "create")
	if err != nil {
		return model.Switchlist{}, err
	}
	sl, err := s.store.CreateSwitchlist(ctx, New(name, route, plan, s.now()))
	if err != nil {
		return model.Switchlist{}, s.persistence("create switchlist", err)
	}
	s.log.Infow("switchlist created", "id", sl.ID, "route", route.ID,
		"operations", len(sl.Operations), "skipped", len(sl.Skipped))
	s.publish(sl.ID, EventCreated, map[string]any{"status": sl.Status, "operations": len(sl.Operations)})
	return sl, nil
}

// Preview plans the route without persisting anything.
func (s *Service) Preview(ctx context.Context, routeID model.ID, assignments map[model.ID]model.TrackRef) (planner.Plan, error) {
	route, err := s.loadRoute(ctx, routeID)
	if err != nil {
		return planner.Plan{}, err
	}
	return s.plan(ctx, route, assignments, "preview")
}

func (s *Service) plan(ctx context.Context, route model.TrainRoute, assignments map[model.ID]model.TrackRef, mode string) (planner.Plan, error) {
	industries, err := s.store.LoadIndustries(ctx)
	if err != nil {
		return planner.Plan{}, s.persistence("load industries", err)
	}
	cars, err := s.store.LoadRollingStock(ctx)
	if err != nil {
		return planner.Plan{}, s.persistence("load rolling stock", err)
	}
	resolver := s.resolver
	if len(assignments) > 0 {
		resolver = planner.FirstResolved(planner.StaticDestinations(assignments), s.resolver)
	}
	plan, err := planner.New(resolver, s.log).Plan(route, industries, cars)
	if err != nil {
		return planner.Plan{}, s.persistence("plan route", err)
	}
	plan.Stats.PlannedAt = s.now()
	s.stats.Record(plan.Stats)
	s.metrics.ObservePlan(string(route.ID), mode, plan.Stats.Planned, plan.Stats.Skipped)
	return plan, nil
}

func (s *Service) loadRoute(ctx context.Context, id model.ID) (model.TrainRoute, error) {
	route, err := s.store.LoadTrainRoute(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return model.TrainRoute{}, &NotFoundError{Entity: "Train route", ID: id}
	}
	if err != nil {
		return model.TrainRoute{}, s.persistence("load train route", err)
	}
	return route, nil
}

func (s *Service) Get(ctx context.Context, id model.ID) (model.Switchlist, error) {
	sl, err := s.store.GetSwitchlist(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return model.Switchlist{}, &NotFoundError{Entity: "Switchlist", ID: id}
	}
	if err != nil {
		return model.Switchlist{}, s.persistence("get switchlist", err)
	}
	return sl, nil
}

func (s *Service) List(ctx context.Context) ([]model.Switchlist, error) {
	out, err := s.store.ListSwitchlists(ctx)
	if err != nil {
		return nil, s.persistence("list switchlists", err)
	}
	return out, nil
}

// UpdateStatus moves a switchlist forward by hand. Setting the current
// status again is a no-op.
func (s *Service) UpdateStatus(ctx context.Context, id model.ID, status model.SwitchlistStatus) (model.Switchlist, error) {
	if !status.Valid() {
		return model.Switchlist{}, &ValidationError{Message: fmt.Sprintf("unknown status %q", status)}
	}
	cur, err := s.Get(ctx, id)
	if err != nil {
		return model.Switchlist{}, err
	}
	if cur.Status == status {
		return cur, nil
	}

	var sl model.Switchlist
	for range maxUpdateAttempts {
		sl, err = s.store.UpdateSwitchlistStatus(ctx, id, status)
		if !errors.Is(err, store.ErrConflict) {
			break
		}
	}
	switch {
	case errors.Is(err, store.ErrNotFound):
		return model.Switchlist{}, &NotFoundError{Entity: "Switchlist", ID: id}
	case errors.Is(err, store.ErrBadTransition):
		return model.Switchlist{}, &ValidationError{Message: fmt.Sprintf("cannot change status from %s to %s", cur.Status, status)}
	case errors.Is(err, store.ErrIncomplete):
		return model.Switchlist{}, &ValidationError{Message: "cannot complete switchlist with unexecuted operations"}
	case err != nil:
		return model.Switchlist{}, s.persistence("update switchlist status", err)
	}
	s.metrics.StatusTransitions.WithLabelValues(string(sl.Status)).Inc()
	s.publish(sl.ID, EventStatusChanged, map[string]any{"status": sl.Status})
	return sl, nil
}

// ExecuteOperation applies one planned move to the live layout. The layout is
// re-read, the move checked against it and the touched documents written
// with a version check. A placement failure, including a stale write, marks
// the operation FAILED, leaves the switchlist status alone and is returned
// as an *ExecutionError. An already executed operation is a no-op, and so is
// the move of an operation whose car already sits on its destination.
func (s *Service) ExecuteOperation(ctx context.Context, id model.ID, index int) (model.Switchlist, error) {
	sl, err := s.Get(ctx, id)
	if err != nil {
		return model.Switchlist{}, err
	}
	if index < 0 || index >= len(sl.Operations) {
		return model.Switchlist{}, &ValidationError{Message: fmt.Sprintf("operation index %d out of range", index)}
	}
	op := sl.Operations[index]
	if op.Status == model.OperationExecuted {
		return sl, nil
	}

	moveErr, err := s.applyMove(ctx, op)
	if err != nil {
		return model.Switchlist{}, err
	}
	if moveErr != nil {
		return s.fail(ctx, id, index, moveErr)
	}

	var transitions []model.SwitchlistStatus
	sl, err = s.update(ctx, id, func(sl *model.Switchlist) error {
		now := s.now()
		o := &sl.Operations[index]
		o.Status = model.OperationExecuted
		o.FailureReason = ""
		o.ExecutedAt = &now
		transitions = advance(sl, now)
		return nil
	})
	if err != nil {
		return model.Switchlist{}, err
	}
	s.metrics.Executions.WithLabelValues("executed").Inc()
	s.log.Infow("operation executed", "switchlist", id, "index", index, "car", op.CarID,
		"to", op.Destination.IndustryID+"/"+op.Destination.TrackID)
	s.publish(id, EventOperationExecuted, map[string]any{"index": index, "carId": op.CarID})
	for _, st := range transitions {
		s.metrics.StatusTransitions.WithLabelValues(string(st)).Inc()
		s.publish(id, EventStatusChanged, map[string]any{"status": st})
	}
	return sl, nil
}

// applyMove returns a placement failure as moveErr and anything else as err.
func (s *Service) applyMove(ctx context.Context, op model.Operation) (moveErr, err error) {
	industries, err := s.store.LoadIndustries(ctx)
	if err != nil {
		return nil, s.persistence("load industries", err)
	}
	cars, err := s.store.LoadRollingStock(ctx)
	if err != nil {
		return nil, s.persistence("load rolling stock", err)
	}
	state := layout.NewState(industries, cars)
	if car, ok := state.Car(op.CarID); ok && car.CurrentLocation != nil && *car.CurrentLocation == op.Destination {
		// an earlier attempt committed the move but not the operation's progress
		s.log.Infow("car already on destination", "car", op.CarID)
		return nil, nil
	}
	if err := state.Move(op.CarID, op.Source, op.Destination); err != nil {
		if layout.IsPlacementError(err) || errors.Is(err, layout.ErrUnknownCar) || errors.Is(err, layout.ErrUnknownTrack) {
			return err, nil
		}
		return nil, err
	}

	var commit store.MoveCommit
	for _, indID := range []model.ID{op.Source.IndustryID, op.Destination.IndustryID} {
		if len(commit.Industries) > 0 && commit.Industries[0].ID == indID {
			continue
		}
		ind, _ := state.Industry(indID)
		commit.Industries = append(commit.Industries, ind)
	}
	car, _ := state.Car(op.CarID)
	commit.Cars = []model.RollingStock{car}

	if err := s.store.ApplyMove(ctx, commit); err != nil {
		if errors.Is(err, store.ErrConflict) {
			// the layout changed under us; the destination can no longer be trusted
			s.log.Warnw("stale layout write", "car", op.CarID, "err", err)
			return &layout.PlacementError{Kind: layout.ErrCapacityExceeded, CarID: op.CarID, TrackID: op.Destination.TrackID}, nil
		}
		return nil, s.persistence("apply move", err)
	}
	return nil, nil
}

func (s *Service) fail(ctx context.Context, id model.ID, index int, cause error) (model.Switchlist, error) {
	sl, err := s.update(ctx, id, func(sl *model.Switchlist) error {
		o := &sl.Operations[index]
		if o.Status == model.OperationExecuted {
			// a concurrent execution won; keep its result
			return nil
		}
		o.Status = model.OperationFailed
		o.FailureReason = cause.Error()
		sl.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return model.Switchlist{}, err
	}
	s.metrics.Executions.WithLabelValues("failed").Inc()
	s.log.Warnw("operation failed", "switchlist", id, "index", index, "err", cause)
	s.publish(id, EventOperationFailed, map[string]any{"index": index, "reason": cause.Error()})
	return sl, &ExecutionError{Index: index, Switchlist: sl, Err: cause}
}

const maxUpdateAttempts = 3

// update re-reads the switchlist and applies fn until the versioned write
// lands or attempts run out.
func (s *Service) update(ctx context.Context, id model.ID, fn func(*model.Switchlist) error) (model.Switchlist, error) {
	var lastErr error
	for range maxUpdateAttempts {
		sl, err := s.Get(ctx, id)
		if err != nil {
			return model.Switchlist{}, err
		}
		if err := fn(&sl); err != nil {
			return model.Switchlist{}, err
		}
		out, err := s.store.UpdateSwitchlist(ctx, sl)
		if err == nil {
			return out, nil
		}
		if !errors.Is(err, store.ErrConflict) {
			return model.Switchlist{}, s.persistence("update switchlist", err)
		}
		lastErr = err
	}
	return model.Switchlist{}, s.persistence("update switchlist", lastErr)
}

func (s *Service) persistence(op string, err error) error {
	s.log.Errorw("persistence failure", "op", op, "err", err)
	return &PersistenceError{Op: op, Err: err}
}

func (s *Service) publish(id model.ID, typ string, data map[string]any) {
	if s.pub == nil {
		return
	}
	s.pub.Publish(string(id), Event{Type: typ, SwitchlistID: id, Data: data})
}

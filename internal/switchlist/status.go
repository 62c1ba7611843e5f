// Package switchlist anchors a plan to a persisted, status-tracked record and
// is the only path that applies planned moves to the layout.
package switchlist

import (
	"time"

	"github.com/MyTurnyet/switch-this-sub002/internal/model"
	"github.com/MyTurnyet/switch-this-sub002/internal/planner"
)

// CanTransition reports whether from -> to moves strictly forward.
func CanTransition(from, to model.SwitchlistStatus) bool { return from.Precedes(to) }

// advance applies the automatic transitions that follow an executed
// operation: first execution starts the list, the last one completes it.
func advance(sl *model.Switchlist, now time.Time) []model.SwitchlistStatus {
	var changed []model.SwitchlistStatus
	if sl.Status == model.StatusCreated {
		sl.Status = model.StatusInProgress
		changed = append(changed, sl.Status)
	}
	if sl.Status == model.StatusInProgress && sl.Done() {
		sl.Status = model.StatusCompleted
		changed = append(changed, sl.Status)
	}
	sl.UpdatedAt = now
	return changed
}

// New wraps a plan in a fresh switchlist. The id is assigned on insert.
func New(name string, route model.TrainRoute, plan planner.Plan, now time.Time) model.Switchlist {
	ops := make([]model.Operation, len(plan.Operations))
	copy(ops, plan.Operations)
	for i := range ops {
		ops[i].Status = model.OperationPending
	}
	return model.Switchlist{
		TrainRouteID: route.ID,
		Name:         name,
		Status:       model.StatusCreated,
		CreatedAt:    now,
		UpdatedAt:    now,
		Operations:   ops,
		Skipped:      append([]model.SkippedCar(nil), plan.Skipped...),
	}
}

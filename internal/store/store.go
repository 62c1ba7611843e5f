// Package store persists the layout documents and switchlists. Every backend
// treats Location, Industry (with its tracks), RollingStock, TrainRoute and
// Switchlist as versioned documents keyed by id.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MyTurnyet/switch-this-sub002/internal/model"
)

// Store is the persistence interface used by the switchlist service and API.
type Store interface {
	// Layout snapshots
	LoadLocations(ctx context.Context) ([]model.Location, error)
	LoadIndustries(ctx context.Context) ([]model.Industry, error)
	LoadRollingStock(ctx context.Context) ([]model.RollingStock, error)
	LoadTrainRoutes(ctx context.Context) ([]model.TrainRoute, error)
	LoadTrainRoute(ctx context.Context, id model.ID) (model.TrainRoute, error)
	GetLocation(ctx context.Context, id model.ID) (model.Location, error)
	GetIndustry(ctx context.Context, id model.ID) (model.Industry, error)
	GetRollingStock(ctx context.Context, id model.ID) (model.RollingStock, error)

	// Upserts used by import; each bumps the document version.
	SaveLocation(ctx context.Context, l model.Location) error
	SaveIndustry(ctx context.Context, i model.Industry) (model.Industry, error)
	SaveRollingStock(ctx context.Context, c model.RollingStock) (model.RollingStock, error)
	SaveTrainRoute(ctx context.Context, r model.TrainRoute) error

	// Switchlists
	CreateSwitchlist(ctx context.Context, sl model.Switchlist) (model.Switchlist, error)
	GetSwitchlist(ctx context.Context, id model.ID) (model.Switchlist, error)
	ListSwitchlists(ctx context.Context) ([]model.Switchlist, error)
	// UpdateSwitchlistStatus moves a switchlist forward. Setting the current
	// status is a no-op; any other non-forward move fails with
	// ErrBadTransition, and COMPLETED with pending operations with ErrIncomplete.
	UpdateSwitchlistStatus(ctx context.Context, id model.ID, status model.SwitchlistStatus) (model.Switchlist, error)
	// UpdateSwitchlist writes status and per-operation progress when sl.Version
	// is still current. The operation list itself is never rewritten.
	UpdateSwitchlist(ctx context.Context, sl model.Switchlist) (model.Switchlist, error)

	// ApplyMove writes every document of the commit in one step, provided each
	// still carries the version it was read at.
	ApplyMove(ctx context.Context, c MoveCommit) error

	Ping(ctx context.Context) error
	Close() error
}

// MoveCommit is the set of documents touched by executing one operation.
// Version on each document is the version it was read at.
type MoveCommit struct {
	Industries []model.Industry
	Cars       []model.RollingStock
}

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict means a document changed since it was read.
	ErrConflict = errors.New("version conflict")
	// ErrImmutable means an update tried to rewrite a switchlist's operations.
	ErrImmutable = errors.New("switchlist operations are immutable")
	// ErrBadTransition means a status change was not a forward move.
	ErrBadTransition = errors.New("switchlist status may only move forward")
	// ErrIncomplete means COMPLETED was requested with unexecuted operations.
	ErrIncomplete = errors.New("switchlist has unexecuted operations")
)

// advanceStatus applies a manual status change to sl. changed is false when
// sl already has the status.
func advanceStatus(sl model.Switchlist, to model.SwitchlistStatus) (out model.Switchlist, changed bool, err error) {
	if sl.Status == to {
		return sl, false, nil
	}
	if !sl.Status.Precedes(to) {
		return model.Switchlist{}, false, fmt.Errorf("switchlist %s: %s to %s: %w", sl.ID, sl.Status, to, ErrBadTransition)
	}
	if to == model.StatusCompleted && !sl.Done() {
		return model.Switchlist{}, false, fmt.Errorf("switchlist %s: %w", sl.ID, ErrIncomplete)
	}
	sl.Status = to
	sl.UpdatedAt = time.Now().UTC()
	return sl, true, nil
}

// mergeProgress copies status and operation progress from next onto cur.
func mergeProgress(cur, next model.Switchlist) (model.Switchlist, error) {
	if len(cur.Operations) != len(next.Operations) {
		return model.Switchlist{}, ErrImmutable
	}
	out := cur.Clone()
	for i, op := range next.Operations {
		c := out.Operations[i]
		if c.CarID != op.CarID || c.Source != op.Source || c.Destination != op.Destination || c.StationOrder != op.StationOrder {
			return model.Switchlist{}, ErrImmutable
		}
		c.Status = op.Status
		c.FailureReason = op.FailureReason
		c.ExecutedAt = op.ExecutedAt
		out.Operations[i] = c
	}
	out.Status = next.Status
	out.UpdatedAt = next.UpdatedAt
	return out.Clone(), nil
}

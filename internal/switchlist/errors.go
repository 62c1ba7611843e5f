package switchlist

import (
	"fmt"

	"github.com/MyTurnyet/switch-this-sub002/internal/model"
	"github.com/MyTurnyet/switch-this-sub002/internal/store"
)

// MsgMissingFields is returned when a create request lacks a route or name.
const MsgMissingFields = "Missing required fields: trainRouteId and name are required"

// ValidationError is a malformed request; retrying it cannot succeed.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// NotFoundError names the missing entity, e.g. "Train route".
type NotFoundError struct {
	Entity string
	ID     model.ID
}

func (e *NotFoundError) Error() string { return e.Entity + " not found" }

func (e *NotFoundError) Unwrap() error { return store.ErrNotFound }

// PersistenceError means the store failed underneath an operation.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

func (e *PersistenceError) Unwrap() error { return e.Err }

// ExecutionError reports an operation that could not be applied to the
// layout. The operation has been marked FAILED.
type ExecutionError struct {
	Index      int
	Switchlist model.Switchlist
	Err        error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("operation %d failed: %v", e.Index, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

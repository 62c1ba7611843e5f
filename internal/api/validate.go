package api

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/MyTurnyet/switch-this-sub002/internal/model"
	"github.com/MyTurnyet/switch-this-sub002/internal/switchlist"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// createBody is POST /switchlists. Presence of name and trainRouteId is
// checked by the service so the route lookup can answer first.
type createBody struct {
	Name         string                      `json:"name" validate:"max=200"`
	TrainRouteID model.ID                    `json:"trainRouteId" validate:"max=100"`
	Assignments  map[model.ID]model.TrackRef `json:"assignments,omitempty" validate:"omitempty,dive,keys,required,endkeys,required"`
}

type statusBody struct {
	Status model.SwitchlistStatus `json:"status" validate:"required,oneof=CREATED IN_PROGRESS COMPLETED"`
}

// validateBody runs struct tags and converts failures into a ValidationError
// naming the offending JSON fields.
func validateBody(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &switchlist.ValidationError{Message: err.Error()}
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %s", fieldPath(fe), fe.Tag()))
	}
	return &switchlist.ValidationError{Message: "Invalid request: " + strings.Join(msgs, ", ")}
}

// fieldPath drops the struct name from the validator namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		ns = ns[i+1:]
	}
	return ns
}

package shared

import (
	"errors"
	"fmt"
)

// DataError reports malformed or missing catalog, profile or schedule input.
type DataError struct {
	Source string // file name or logical source, e.g. "meals"
	Msg    string
	Err    error
}

func (e *DataError) Error() string {
	msg := fmt.Sprintf("invalid %s data: %s", e.Source, e.Msg)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DataError) Unwrap() error { return e.Err }

// DataErrorf builds a DataError for source with a formatted message.
func DataErrorf(source, format string, args ...any) error {
	return &DataError{Source: source, Msg: fmt.Sprintf(format, args...)}
}

// ModelErrorKind classifies structurally invalid solve requests.
type ModelErrorKind string

const (
	UnknownObjective ModelErrorKind = "UnknownObjective"
	UnknownProfile   ModelErrorKind = "UnknownProfile"
	UnknownNutrient  ModelErrorKind = "UnknownNutrient"
	EmptyCatalog     ModelErrorKind = "EmptyCatalog"
)

// Sentinels matching each ModelErrorKind, usable with errors.Is.
var (
	ErrUnknownObjective = errors.New("unknown objective")
	ErrUnknownProfile   = errors.New("unknown profile")
	ErrUnknownNutrient  = errors.New("unknown nutrient")
	ErrEmptyCatalog     = errors.New("empty catalog")
)

// ModelError reports a request that cannot be turned into a model.
type ModelError struct {
	Kind   ModelErrorKind
	Detail string
}

func (e *ModelError) Error() string {
	if e.Detail == "" {
		return e.sentinel().Error()
	}
	return fmt.Sprintf("%s: %s", e.sentinel().Error(), e.Detail)
}

func (e *ModelError) Unwrap() error { return e.sentinel() }

func (e *ModelError) sentinel() error {
	switch e.Kind {
	case UnknownObjective:
		return ErrUnknownObjective
	case UnknownProfile:
		return ErrUnknownProfile
	case UnknownNutrient:
		return ErrUnknownNutrient
	case EmptyCatalog:
		return ErrEmptyCatalog
	}
	return errors.New(string(e.Kind))
}

// NewModelError returns a ModelError of the given kind.
func NewModelError(kind ModelErrorKind, detail string) error {
	return &ModelError{Kind: kind, Detail: detail}
}

// IsModelError reports whether err is a ModelError of the given kind.
func IsModelError(err error, kind ModelErrorKind) bool {
	var me *ModelError
	return errors.As(err, &me) && me.Kind == kind
}

// SolverError is returned when the backend fails to reach a definitive
// verdict after the permitted retry, or fails outright.
type SolverError struct {
	Attempts int
	Status   string
	Err      error
}

func (e *SolverError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("solver failed after %d attempt(s) (status %s): %v", e.Attempts, e.Status, e.Err)
	}
	return fmt.Sprintf("solver failed after %d attempt(s) (status %s)", e.Attempts, e.Status)
}

func (e *SolverError) Unwrap() error { return e.Err }

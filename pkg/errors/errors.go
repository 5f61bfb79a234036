// Package errors distinguishes the three error kinds a scheduling run can
// fail with: malformed input, an infeasible instance, and an internal
// invariant violation. All three are fatal; soft violations (preferences,
// requests, hour deviation) are never represented as errors.
package errors

import (
	"errors"
	"fmt"
)

// Kind identifies which of the three error kinds an AppError carries.
type Kind string

const (
	KindInput       Kind = "INPUT"
	KindInfeasible  Kind = "INFEASIBLE"
	KindInvariant   Kind = "INVARIANT"
)

// AppError carries one of the three fatal error kinds; the roster loaders,
// the solver and the validator report their failures with it.
type AppError struct {
	Kind    Kind
	Message string
	Cause   error
	Fields  map[string]interface{}
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithField attaches a diagnostic field and returns the receiver for
// chaining.
func (e *AppError) WithField(key string, value interface{}) *AppError {
	if e.Fields == nil {
		e.Fields = make(map[string]interface{})
	}
	e.Fields[key] = value
	return e
}

// Is reports whether err is an AppError of the given kind.
func Is(err error, kind Kind) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind == kind
	}
	return false
}

// Input reports a malformed resident table or shift template row. row is a
// 1-based line reference into the offending file.
func Input(row int, field, reason string) *AppError {
	return &AppError{
		Kind:    KindInput,
		Message: fmt.Sprintf("row %d: field %q invalid: %s", row, field, reason),
		Fields:  map[string]interface{}{"row": row, "field": field},
	}
}

// InputWrap wraps a lower-level parse error (CSV, YAML, date) as an input
// error without a row reference, for failures that occur before a row can
// be identified (e.g. the header itself).
func InputWrap(err error, context string) *AppError {
	return &AppError{Kind: KindInput, Message: context, Cause: err}
}

// CandidateDenial names one resident who was considered for a shift and the
// reason they were rejected, for inclusion in an Infeasible error's
// diagnostic.
type CandidateDenial struct {
	Resident string
	Reason   string
}

// Infeasible reports that Phase A exhausted its backtracking budget without
// finding a legal resident for shiftCode on date. The candidate pool and
// each candidate's denial reason are carried so the operator can see
// exactly why the instance has no feasible completion.
func Infeasible(shiftCode, date string, candidates []CandidateDenial) *AppError {
	err := &AppError{
		Kind:    KindInfeasible,
		Message: fmt.Sprintf("no legal resident for %s on %s", shiftCode, date),
		Fields: map[string]interface{}{
			"shift":      shiftCode,
			"date":       date,
			"candidates": candidates,
		},
	}
	return err
}

// Invariant reports that a move the solver or optimizer accepted produced
// an illegal assignment. This must never happen in a correct build; it is a
// bug check, not a recoverable condition.
func Invariant(detail string) *AppError {
	return &AppError{Kind: KindInvariant, Message: detail}
}

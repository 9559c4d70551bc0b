// Package ops defines the contract between the portal's HTTP layer and the
// core operations: the resolved acting user, the structured result every
// mutating operation returns, and the error taxonomy the engines use
// internally.
package ops

import (
	"errors"
	"fmt"
)

// Actor is the resolved identity of the caller, derived server-side from
// the verified session. Operations never trust a client-supplied uid.
type Actor struct {
	UID  string
	Name string
	Role string
}

// IsStaff reports whether the actor holds an elevated role.
func (a Actor) IsStaff() bool {
	return a.Role == "admin" || a.Role == "manager"
}

// Result is what every mutating operation returns. Message is always safe
// to render to the user; internal error detail goes to the logs, never here.
type Result struct {
	Success bool              `json:"success"`
	Message string            `json:"message,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`

	// ID of the created entity, when the operation creates one.
	ID string `json:"id,omitempty"`

	// Partial is set when the primary mutation succeeded but a follow-up
	// step did not (e.g. registrations left behind after a camp delete,
	// identity revocation failing after profile deletion). Callers must
	// treat a partial result as distinct from full success.
	Partial bool `json:"partial,omitempty"`
}

// OK returns a successful result with a user-facing message.
func OK(msg string) Result {
	return Result{Success: true, Message: msg}
}

// Created returns a successful result carrying the new entity's id.
func Created(id, msg string) Result {
	return Result{Success: true, ID: id, Message: msg}
}

// Fail returns a failed result with a user-facing message.
func Fail(msg string) Result {
	return Result{Success: false, Message: msg}
}

// PartialFailure reports that the primary mutation committed but one or
// more follow-up steps failed. The step errors are keyed by position.
func PartialFailure(msg string, steps []string) Result {
	r := Result{Success: false, Partial: true, Message: msg}
	if len(steps) > 0 {
		r.Errors = make(map[string]string, len(steps))
		for i, s := range steps {
			r.Errors[fmt.Sprintf("step_%d", i+1)] = s
		}
	}
	return r
}

/* ------------------------------ error types ------------------------------ */

// ValidationError carries field-keyed messages. It is detected before any
// mutation is applied.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %d field(s)", len(e.Fields))
}

// Invalid builds a ValidationError for a single field.
func Invalid(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// PermissionError means the role check failed. It short-circuits before any
// read or write.
type PermissionError struct {
	Action string
}

func (e *PermissionError) Error() string {
	return "permission denied: " + e.Action
}

// NotFoundError means a referenced entity is absent.
type NotFoundError struct {
	What string
}

func (e *NotFoundError) Error() string {
	return e.What + " not found"
}

// InvalidStateError means an illegal status transition was attempted.
type InvalidStateError struct {
	From, To string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("illegal transition from %s to %s", e.From, e.To)
}

// UnavailableError means the external store or gateway could not be
// reached. The core never retries; retries belong to the store client.
type UnavailableError struct {
	Err error
}

func (e *UnavailableError) Error() string {
	return "backend unavailable"
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// FromError maps a taxonomy error to a Result with a human-readable
// message. Unknown errors become a generic failure; their detail is for the
// logs, not the caller.
func FromError(err error) Result {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return Result{Success: false, Message: "Please correct the highlighted fields.", Errors: ve.Fields}
	}
	var pe *PermissionError
	if errors.As(err, &pe) {
		return Fail("You do not have permission to " + pe.Action + ".")
	}
	var nfe *NotFoundError
	if errors.As(err, &nfe) {
		return Fail("The requested " + nfe.What + " could not be found.")
	}
	var ise *InvalidStateError
	if errors.As(err, &ise) {
		return Fail("This registration has already been decided.")
	}
	var ue *UnavailableError
	if errors.As(err, &ue) {
		return Fail("The service is temporarily unavailable. Please try again.")
	}
	return Fail("Something went wrong. Please try again.")
}

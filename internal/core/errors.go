package core

import (
	"errors"
	"fmt"
)

// Error codes for domain errors.
const (
	ErrCodeValidation        = "validation"
	ErrCodeUnknownGate       = "unknown_gate"
	ErrCodeUnknownDepartment = "unknown_department"
	ErrCodeUnknownIncident   = "unknown_incident"
	ErrCodeUnknownLot        = "unknown_lot"
	ErrCodeUnknownLocation   = "unknown_location"
	ErrCodeUnknownDomain     = "unknown_domain"
	ErrCodeSubscriber        = "subscriber_callback"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrUnknownGate       = errors.New("unknown gate")
	ErrUnknownDepartment = errors.New("unknown department")
	ErrUnknownIncident   = errors.New("unknown incident")
	ErrUnknownLot        = errors.New("unknown parking lot")
	ErrUnknownLocation   = errors.New("unknown concession location")
	ErrUnknownDomain     = errors.New("unknown domain")
	// ErrSubscriberCallback marks failures raised inside a subscriber callback.
	ErrSubscriberCallback = errors.New("subscriber callback failed")
)

// CoreError wraps a code and human-readable message.
// It unwraps to the sentinel matching its code, so callers can use errors.Is.
type CoreError struct {
	Code    string
	Message string

	kind error
}

func (e *CoreError) Error() string {
	return e.Message
}

// Unwrap returns the sentinel error for the code.
func (e *CoreError) Unwrap() error {
	return e.kind
}

func coreError(code string, kind error, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg, kind: kind}
}

// ValidationError reports malformed input rejected before any mutation.
func ValidationError(field, format string, args ...any) *CoreError {
	return coreError(ErrCodeValidation, ErrValidation, fmt.Sprintf("invalid %s: %s", field, fmt.Sprintf(format, args...)))
}

// UnknownGateError reports a gate that was never registered.
func UnknownGateError(gate string) *CoreError {
	return coreError(ErrCodeUnknownGate, ErrUnknownGate, fmt.Sprintf("unknown gate %q", gate))
}

// UnknownDepartmentError reports a mutation against a department that does not exist.
func UnknownDepartmentError(id string) *CoreError {
	return coreError(ErrCodeUnknownDepartment, ErrUnknownDepartment, fmt.Sprintf("unknown department %q", id))
}

// UnknownIncidentError reports a mutation against an incident that does not exist.
func UnknownIncidentError(id string) *CoreError {
	return coreError(ErrCodeUnknownIncident, ErrUnknownIncident, fmt.Sprintf("unknown incident %q", id))
}

// UnknownLotError reports a parking lot that was never registered.
func UnknownLotError(id string) *CoreError {
	return coreError(ErrCodeUnknownLot, ErrUnknownLot, fmt.Sprintf("unknown parking lot %q", id))
}

// UnknownLocationError reports a concession location that was never registered.
func UnknownLocationError(id string) *CoreError {
	return coreError(ErrCodeUnknownLocation, ErrUnknownLocation, fmt.Sprintf("unknown concession location %q", id))
}

// UnknownDomainError reports a domain name outside the known set.
func UnknownDomainError(d Domain) *CoreError {
	return coreError(ErrCodeUnknownDomain, ErrUnknownDomain, fmt.Sprintf("unknown domain %q", string(d)))
}

// SubscriberCallbackError is raised when a subscriber callback returns an
// error or panics. It is reported, never propagated to the publisher.
type SubscriberCallbackError struct {
	SubscriptionID uint64
	Domain         Domain
	Revision       uint64
	Cause          error
}

func (e *SubscriberCallbackError) Error() string {
	return fmt.Sprintf("subscriber %d on %s (revision %d): %v", e.SubscriptionID, e.Domain, e.Revision, e.Cause)
}

// Unwrap exposes both the subscriber sentinel and the original cause.
func (e *SubscriberCallbackError) Unwrap() []error {
	return []error{ErrSubscriberCallback, e.Cause}
}

// Code returns the error code used in logs.
func (e *SubscriberCallbackError) Code() string {
	return ErrCodeSubscriber
}

package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorKind classifies registry and cache failures so callers can route
// them without string matching.
type ErrorKind string

const (
	ErrConnection            ErrorKind = "connection"
	ErrTimeout               ErrorKind = "timeout"
	ErrRateLimit             ErrorKind = "rate_limit"
	ErrInvalidResponse       ErrorKind = "invalid_response"
	ErrServer                ErrorKind = "server_error"
	ErrMunicipalityNotFound  ErrorKind = "municipality_not_found"
	ErrMunicipalityAmbiguous ErrorKind = "municipality_ambiguous"
	ErrParcelNotFound        ErrorKind = "parcel_not_found"
	ErrLRUnitNotFound        ErrorKind = "lr_unit_not_found"
	ErrGeometryNotFound      ErrorKind = "geometry_not_found"
	ErrCache                 ErrorKind = "cache"
)

// ReasonParcelHasNoLRUnit marks the lr_unit_not_found variant where the
// parcel exists but carries no land registry reference.
const ReasonParcelHasNoLRUnit = "parcel_has_no_lr_unit"

// Error carries a kind plus the identifiers that were involved, so a
// not-found for parcel "103/2" in "334979" stays distinguishable from a
// structural failure.
type Error struct {
	Kind    ErrorKind
	Details map[string]string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%s", k, e.Details[k]))
		}
		b.WriteString(": ")
		b.WriteString(strings.Join(parts, ", "))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match two domain errors by kind alone.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind
}

func NewError(kind ErrorKind, details map[string]string) *Error {
	return &Error{Kind: kind, Details: details}
}

func WrapError(kind ErrorKind, details map[string]string, err error) *Error {
	return &Error{Kind: kind, Details: details, Err: err}
}

// NewInvalidResponse reports an upstream payload that failed validation.
// Always surfaced, never swallowed: it means a contract change or a bug.
func NewInvalidResponse(endpoint, reason string) *Error {
	return &Error{Kind: ErrInvalidResponse, Details: map[string]string{
		"endpoint": endpoint,
		"reason":   reason,
	}}
}

// KindOf returns the kind of a domain error, or "" for foreign errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsNotFound reports whether err is one of the expected absence conditions
// (municipality, parcel, land registry unit or geometry).
func IsNotFound(err error) bool {
	switch KindOf(err) {
	case ErrMunicipalityNotFound, ErrParcelNotFound, ErrLRUnitNotFound, ErrGeometryNotFound:
		return true
	}
	return false
}

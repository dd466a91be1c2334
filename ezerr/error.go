// Package ezerr reports optionally-present error values in a uniform way.
//
// A reporter decides whether an error value is well-formed (present and
// carrying a non-empty domain). Well-formed values are logged as a fixed
// ten-line block and published as an Event to an injected Publisher.
// Absent or malformed values are inert: nothing is logged or published.
package ezerr

import (
	"errors"
	"fmt"
	"reflect"
)

// ErrorValue is an error-like value carrying a domain, a numeric code and a
// human-readable description.
type ErrorValue interface {
	Domain() string
	Code() int
	Description() string
}

// Error is the concrete ErrorValue used throughout the module.
type Error struct {
	ErrDomain      string
	ErrCode        int
	ErrDescription string
	Cause          error
}

// New creates an Error with the given domain, code and description.
func New(domain string, code int, description string) *Error {
	return &Error{ErrDomain: domain, ErrCode: code, ErrDescription: description}
}

// Newf creates an Error with a formatted description.
func Newf(domain string, code int, format string, args ...any) *Error {
	return New(domain, code, fmt.Sprintf(format, args...))
}

// Wrap creates an Error whose description is taken from cause.
func Wrap(domain string, code int, cause error) *Error {
	e := New(domain, code, "")
	if cause != nil {
		e.ErrDescription = cause.Error()
		e.Cause = cause
	}
	return e
}

// Domain returns the error domain. A nil *Error has an empty domain.
func (e *Error) Domain() string {
	if e == nil {
		return ""
	}
	return e.ErrDomain
}

// Code returns the numeric error code.
func (e *Error) Code() int {
	if e == nil {
		return 0
	}
	return e.ErrCode
}

// Description returns the human-readable description.
func (e *Error) Description() string {
	if e == nil {
		return ""
	}
	return e.ErrDescription
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.ErrDescription == "" {
		return fmt.Sprintf("%s error %d", e.ErrDomain, e.ErrCode)
	}
	return fmt.Sprintf("%s error %d: %s", e.ErrDomain, e.ErrCode, e.ErrDescription)
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is matches another *Error with the same domain and code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || e == nil || t == nil {
		return false
	}
	return e.ErrDomain == t.ErrDomain && e.ErrCode == t.ErrCode
}

// FromError returns the first ErrorValue found in err's chain, or nil.
func FromError(err error) ErrorValue {
	if err == nil {
		return nil
	}
	var v ErrorValue
	if errors.As(err, &v) {
		return v
	}
	return nil
}

// Valid reports whether v is well-formed: present and with a non-empty domain.
func Valid(v ErrorValue) bool {
	if isNil(v) {
		return false
	}
	return v.Domain() != ""
}

// isNil also catches typed nil pointers stored in the interface.
func isNil(v ErrorValue) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}

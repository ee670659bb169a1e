package errors

import (
	"errors"
	"fmt"
)

var (
	ErrAuthUnavailable         = errors.New("authentication service unavailable")
	ErrUpstreamRejected        = errors.New("upstream rejected request")
	ErrDecode                  = errors.New("failed to decode upstream response")
	ErrAccountNotFoundInRegion = errors.New("account not found in region")
	ErrAccountNotFound         = errors.New("account not found in any region")
	ErrInvalidInput            = errors.New("invalid input")
	ErrUnknownRegion           = errors.New("unknown region")
	ErrRateLimit               = errors.New("rate limit exceeded")
)

// AuthError describes a failed token refresh for one region.
// Status is zero when the request never produced an HTTP response.
type AuthError struct {
	Region string
	Status int
	Err    error
}

func (e *AuthError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: region %s: status %d: %v", ErrAuthUnavailable, e.Region, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: region %s: %v", ErrAuthUnavailable, e.Region, e.Err)
}

func (e *AuthError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrAuthUnavailable}
	}
	return []error{ErrAuthUnavailable, e.Err}
}

// UpstreamRejectedError carries the status and a truncated body of a non-200
// account response. Status is zero and Err is set when no response arrived.
type UpstreamRejectedError struct {
	Region string
	Status int
	Body   []byte
	Err    error
}

func (e *UpstreamRejectedError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s: region %s: %v", ErrUpstreamRejected, e.Region, e.Err)
	}
	return fmt.Sprintf("%s: region %s: status %d: %q", ErrUpstreamRejected, e.Region, e.Status, e.Body)
}

func (e *UpstreamRejectedError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrUpstreamRejected}
	}
	return []error{ErrUpstreamRejected, e.Err}
}

// DecodeError preserves the underlying protobuf error for diagnostics.
type DecodeError struct {
	Region string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: region %s: %v", ErrDecode, e.Region, e.Err)
}

func (e *DecodeError) Unwrap() []error { return []error{ErrDecode, e.Err} }

// Attempt is the outcome of querying one candidate region.
type Attempt struct {
	Region string
	Err    error
}

// ResolveError is returned when no candidate region produced a record.
// Kind is ErrAccountNotFound or ErrAccountNotFoundInRegion.
type ResolveError struct {
	Kind     error
	Region   string
	Attempts []Attempt
}

func (e *ResolveError) Error() string {
	if errors.Is(e.Kind, ErrAccountNotFoundInRegion) {
		return fmt.Sprintf("account not found in region %s", e.Region)
	}
	return fmt.Sprintf("%s (%d regions tried)", e.Kind, len(e.Attempts))
}

func (e *ResolveError) Unwrap() error { return e.Kind }

// LastCause returns the error of the final attempt, or nil.
func (e *ResolveError) LastCause() error {
	if len(e.Attempts) == 0 {
		return nil
	}
	return e.Attempts[len(e.Attempts)-1].Err
}

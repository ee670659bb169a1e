package errors

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
)

type ErrorClass int

const (
	ClassInternal ErrorClass = iota
	ClassValidation
	ClassNotFound
	ClassRateLimit
	ClassExternal
)

func (c ErrorClass) String() string {
	switch c {
	case ClassValidation:
		return "validation"
	case ClassNotFound:
		return "not_found"
	case ClassRateLimit:
		return "rate_limit"
	case ClassExternal:
		return "external"
	default:
		return "internal"
	}
}

type ClassifiedError struct {
	Class         ErrorClass
	Kind          string
	InternalError error
	ClientMessage string
	OperationName string
	Metadata      map[string]any
}

// HTTPStatus maps the class to the status the route layer returns.
func (ce *ClassifiedError) HTTPStatus() int {
	switch ce.Class {
	case ClassValidation:
		return http.StatusBadRequest
	case ClassNotFound:
		return http.StatusNotFound
	case ClassRateLimit:
		return http.StatusTooManyRequests
	case ClassExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

type ErrorClassifier struct {
	logger *slog.Logger
}

func NewErrorClassifier(logger *slog.Logger) *ErrorClassifier {
	return &ErrorClassifier{logger: logger}
}

// Classify maps err onto a class and a stable kind string. Resolve failures are
// checked first so a not-found result is never reported as the cause of its last attempt.
func (ec *ErrorClassifier) Classify(err error, operation string) *ClassifiedError {
	classified := &ClassifiedError{
		InternalError: err,
		OperationName: operation,
		Metadata:      make(map[string]any, 2),
	}

	var resolveErr *ResolveError
	if errors.As(err, &resolveErr) {
		classified.Metadata["attempts"] = len(resolveErr.Attempts)
		if cause := resolveErr.LastCause(); cause != nil {
			classified.Metadata["cause"] = kindOf(cause)
		}
	}

	switch {
	case errors.Is(err, ErrAccountNotFoundInRegion):
		classified.Class = ClassNotFound
		classified.Kind = "account_not_found_in_region"
		classified.ClientMessage = "Account not found in region " + resolveRegion(resolveErr) + "."
	case errors.Is(err, ErrAccountNotFound):
		classified.Class = ClassNotFound
		classified.Kind = "account_not_found"
		classified.ClientMessage = "Account not found in any region."
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrUnknownRegion):
		classified.Class = ClassValidation
		classified.Kind = kindOf(err)
		classified.ClientMessage = err.Error()
	case errors.Is(err, ErrRateLimit):
		classified.Class = ClassRateLimit
		classified.Kind = "rate_limited"
		classified.ClientMessage = "Rate limit exceeded. Please try again later."
	case errors.Is(err, ErrAuthUnavailable), errors.Is(err, ErrUpstreamRejected), errors.Is(err, ErrDecode):
		classified.Class = ClassExternal
		classified.Kind = kindOf(err)
		classified.ClientMessage = "The game service could not be reached. Please try again later."
	default:
		classified.Class = ClassInternal
		classified.Kind = "internal"
		classified.ClientMessage = "An unexpected internal error occurred."
	}

	return classified
}

// LogAndSanitize logs the full error and returns the classified form for the caller to render.
func (ec *ErrorClassifier) LogAndSanitize(ctx context.Context, classified *ClassifiedError) *ClassifiedError {
	level := slog.LevelError
	if classified.Class == ClassNotFound || classified.Class == ClassValidation {
		level = slog.LevelInfo
	}
	ec.logger.Log(ctx, level, "operation failed",
		"operation", classified.OperationName,
		"error_class", classified.Class.String(),
		"kind", classified.Kind,
		"internal_error", classified.InternalError.Error(),
		"metadata", classified.Metadata,
	)
	return classified
}

func kindOf(err error) string {
	switch {
	case errors.Is(err, ErrAuthUnavailable):
		return "auth_unavailable"
	case errors.Is(err, ErrUpstreamRejected):
		return "upstream_rejected"
	case errors.Is(err, ErrDecode):
		return "decode_error"
	case errors.Is(err, ErrUnknownRegion):
		return "unknown_region"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	default:
		return "internal"
	}
}

func resolveRegion(e *ResolveError) string {
	if e == nil {
		return ""
	}
	return e.Region
}

package errors

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	ec := NewErrorClassifier(slog.New(slog.NewTextHandler(io.Discard, nil)))

	cases := []struct {
		name   string
		err    error
		class  ErrorClass
		kind   string
		status int
	}{
		{"pinned", &ResolveError{Kind: ErrAccountNotFoundInRegion, Region: "PK"}, ClassNotFound, "account_not_found_in_region", http.StatusNotFound},
		{"exhausted", &ResolveError{Kind: ErrAccountNotFound}, ClassNotFound, "account_not_found", http.StatusNotFound},
		{"auth", &AuthError{Region: "PK", Status: 500}, ClassExternal, "auth_unavailable", http.StatusBadGateway},
		{"rejected", &UpstreamRejectedError{Region: "PK", Status: 403}, ClassExternal, "upstream_rejected", http.StatusBadGateway},
		{"decode", &DecodeError{Region: "PK", Err: errors.New("bad")}, ClassExternal, "decode_error", http.StatusBadGateway},
		{"invalid", fmt.Errorf("%w: uid", ErrInvalidInput), ClassValidation, "invalid_input", http.StatusBadRequest},
		{"region", fmt.Errorf("%w: XX", ErrUnknownRegion), ClassValidation, "unknown_region", http.StatusBadRequest},
		{"rate", ErrRateLimit, ClassRateLimit, "rate_limited", http.StatusTooManyRequests},
		{"other", errors.New("boom"), ClassInternal, "internal", http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := ec.Classify(tc.err, "op")
			assert.Equal(t, tc.class, c.Class)
			assert.Equal(t, tc.kind, c.Kind)
			assert.Equal(t, tc.status, c.HTTPStatus())
			assert.Same(t, c, ec.LogAndSanitize(context.Background(), c))
		})
	}
}

func TestClassify_ResolveMetadata(t *testing.T) {
	ec := NewErrorClassifier(slog.New(slog.NewTextHandler(io.Discard, nil)))
	err := &ResolveError{
		Kind:   ErrAccountNotFoundInRegion,
		Region: "PK",
		Attempts: []Attempt{
			{Region: "PK", Err: &AuthError{Region: "PK", Status: 500}},
		},
	}

	c := ec.Classify(err, "get_account")
	assert.Equal(t, "Account not found in region PK.", c.ClientMessage)
	assert.Equal(t, 1, c.Metadata["attempts"])
	assert.Equal(t, "auth_unavailable", c.Metadata["cause"])
}

func TestErrorCarriersUnwrap(t *testing.T) {
	assert.ErrorIs(t, &AuthError{Region: "PK"}, ErrAuthUnavailable)

	inner := errors.New("connection reset")
	rejected := &UpstreamRejectedError{Region: "BR", Err: inner}
	assert.ErrorIs(t, rejected, ErrUpstreamRejected)
	assert.ErrorIs(t, rejected, inner)

	assert.Contains(t, (&UpstreamRejectedError{Region: "BR", Status: 500, Body: []byte("oops")}).Error(), "status 500")
	assert.Nil(t, (&ResolveError{Kind: ErrAccountNotFound}).LastCause())
}

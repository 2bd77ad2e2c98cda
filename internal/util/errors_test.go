package util

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientError(t *testing.T) {
	err := NewBadRequest("malformed payload")
	assert.Equal(t, http.StatusBadRequest, err.Code)
	assert.Contains(t, err.Error(), "malformed payload")

	var ce *ClientError
	assert.True(t, errors.As(fmt.Errorf("wrapped: %w", err), &ce))
	assert.Equal(t, http.StatusBadRequest, ce.Code)
}

func TestClientErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := NewBadRequestWithCause("decode failed", cause)
	assert.True(t, errors.Is(err, cause))
}

func TestStateError(t *testing.T) {
	err := NewStateErrorf("password hash uses too many iterations, max is %d", 10)
	assert.Contains(t, err.Error(), "max is 10")

	var se *StateError
	assert.True(t, errors.As(err, &se))
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"bad request", NewBadRequest("x"), http.StatusBadRequest},
		{"unauthorized", NewUnauthorized("x"), http.StatusUnauthorized},
		{"wrapped client error", fmt.Errorf("ctx: %w", NewUnauthorized("x")), http.StatusUnauthorized},
		{"state error", NewStateError("x"), http.StatusBadRequest},
		{"not found", fmt.Errorf("tenant: %w", ErrNotFound), http.StatusNotFound},
		{"disabled", ErrDisabled, http.StatusForbidden},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusCode(tt.err))
		})
	}
}

func TestIsClientError(t *testing.T) {
	assert.True(t, IsClientError(NewBadRequest("x")))
	assert.True(t, IsClientError(NewUnauthorized("x")))
	assert.False(t, IsClientError(errors.New("boom")))
	assert.False(t, IsClientError(nil))
}

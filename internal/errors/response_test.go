package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructorsCarryKindAndStatus(t *testing.T) {
	tests := []struct {
		err    ErrorResponse
		kind   Kind
		status int
	}{
		{AuthenticationRequired(""), AuthenticationRequiredKind, http.StatusUnauthorized},
		{InvalidCredential(""), InvalidCredentialKind, http.StatusUnauthorized},
		{AccessDenied(""), AccessDeniedKind, http.StatusForbidden},
		{NotFound("List not found"), NotFoundKind, http.StatusNotFound},
		{ValidationFailed(""), ValidationFailedKind, http.StatusBadRequest},
		{InternalServerError(""), InternalKind, http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(string(tc.kind), func(t *testing.T) {
			assert.Equal(t, tc.kind, tc.err.Kind)
			assert.Equal(t, tc.status, tc.err.StatusCode())
			assert.NotEmpty(t, tc.err.Error())
		})
	}
	assert.Equal(t, "List not found", NotFound("List not found").Error())
}

func TestAsUnwrapsAndDefaults(t *testing.T) {
	wrapped := fmt.Errorf("joining: %w", AccessDenied(""))
	assert.Equal(t, AccessDeniedKind, KindOf(wrapped))
	assert.Equal(t, InternalKind, KindOf(stderrors.New("redis: connection refused")))
	assert.Equal(t, http.StatusInternalServerError, As(New("boom")).Status)
}

func TestGenerateValidationErrorResponse(t *testing.T) {
	resp := GenerateValidationErrorResponse([]error{
		New("name:List name is required"),
		New("deadline: time: bad value"),
		New("no param here"),
	})
	assert.Equal(t, ValidationFailedKind, resp.Kind)
	details, ok := resp.Details.(ValidationErrorResponse)
	require.True(t, ok)
	require.Len(t, details.Response, 3)
	assert.Equal(t, "name", details.Response[0].Param)
	assert.Equal(t, "List name is required", details.Response[0].Message)
	assert.Equal(t, "time: bad value", details.Response[1].Message)
	assert.Equal(t, "", details.Response[2].Param)
	assert.Equal(t, "List name is required; time: bad value; no param here", resp.Message)
}

package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/ProtheticGlitch/Enterra/internal/errors"
	"github.com/ProtheticGlitch/Enterra/internal/store"
)

func TestMapKnownError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", domainerrors.NotFound("post not found"), http.StatusNotFound, "NOT_FOUND"},
		{"wrapped forbidden", fmt.Errorf("edit: %w", domainerrors.Forbidden("nope")), http.StatusForbidden, "FORBIDDEN"},
		{"validation", domainerrors.Validation("bad"), http.StatusBadRequest, "VALIDATION"},
		{"policy rejected", domainerrors.PolicyRejected("removed", nil), http.StatusUnprocessableEntity, "POLICY_REJECTED"},
		{"rate limited", domainerrors.RateLimited("slow down"), http.StatusTooManyRequests, "RATE_LIMITED"},
		{"store not found", store.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apiErr := mapKnownError(tt.err)
			require.NotNil(t, apiErr)
			assert.Equal(t, tt.wantStatus, apiErr.GetStatus())
			assert.Equal(t, tt.wantCode, apiErr.Code)
		})
	}

	assert.Nil(t, mapKnownError(errors.New("disk on fire")))
}

func TestMapKnownError_KeepsDetails(t *testing.T) {
	details := map[string]any{"outcome": "removed"}
	apiErr := mapKnownError(domainerrors.PolicyRejected("post removed", details))
	require.NotNil(t, apiErr)
	assert.Equal(t, details, apiErr.Details)
	assert.Equal(t, "post removed", apiErr.Message)
}

func TestStatusToCode(t *testing.T) {
	assert.Equal(t, "VALIDATION", statusToCode(http.StatusUnprocessableEntity))
	assert.Equal(t, "VALIDATION", statusToCode(http.StatusRequestEntityTooLarge))
	assert.Equal(t, "UNAUTHORIZED", statusToCode(http.StatusUnauthorized))
	assert.Equal(t, "CONFLICT", statusToCode(http.StatusConflict))
	assert.Equal(t, "INTERNAL", statusToCode(http.StatusTeapot))
}

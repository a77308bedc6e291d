package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"nanitabeyo/internal/apperr"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodeFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{apperr.NewValidationError("amount_cents", "must be positive"), CodeParamError},
		{fmt.Errorf("get bid: %w", apperr.NewNotFoundError("restaurant_bid", "x")), CodeNotFound},
		{&apperr.TransitionError{Entity: "restaurant_bid"}, CodeInvalidTransition},
		{&apperr.StateError{Entity: "restaurant_bid"}, CodeInvalidTransition},
		{&apperr.ConflictError{Entity: "payout"}, CodeConcurrencyConflict},
		{&apperr.DuplicatePayoutError{}, CodeDuplicatePayout},
		{errors.New("boom"), CodeServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CodeFor(tt.err), tt.err.Error())
	}
}

func TestFromError_HidesInternalErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	FromError(c, errors.New("dial tcp 10.0.0.1:3306: connection refused"))

	require.Equal(t, http.StatusOK, w.Code)
	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, CodeServerError, resp.Code)
	assert.NotContains(t, resp.Message, "10.0.0.1")
}

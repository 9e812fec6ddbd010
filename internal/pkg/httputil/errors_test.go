package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errMissing = errors.New("missing")

func TestHandleError(t *testing.T) {
	mappings := []ErrorMapping{
		{Error: errMissing, Status: http.StatusNotFound, Message: "thing not found"},
	}

	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"mapped wrapped error", fmt.Errorf("get thing: %w", errMissing), http.StatusNotFound, "thing not found"},
		{"deadline", fmt.Errorf("query: %w", context.DeadlineExceeded), http.StatusServiceUnavailable, "request timed out"},
		{"unmapped", errors.New("boom"), http.StatusInternalServerError, "internal error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			HandleError(context.Background(), rec, tt.err, mappings)

			assert.Equal(t, tt.status, rec.Code)
			var body struct {
				Error struct {
					Message string `json:"message"`
				} `json:"error"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.message, body.Error.Message)
		})
	}
}

type fieldErr map[string]string

func (e fieldErr) Error() string                    { return "invalid fields" }
func (e fieldErr) FieldMessages() map[string]string { return e }

func TestValidationError_SortsFieldDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	ValidationError(rec, fieldErr{"team": "Select a team.", "cost": "Enter a valid cost."})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body struct {
		Error struct {
			Message string       `json:"message"`
			Details []FieldError `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "validation error", body.Error.Message)
	assert.Equal(t, []FieldError{
		{Field: "cost", Message: "Enter a valid cost."},
		{Field: "team", Message: "Select a team."},
	}, body.Error.Details)
}

func TestSuccess(t *testing.T) {
	rec := httptest.NewRecorder()
	Success(rec, http.StatusCreated, map[string]int{"id": 7})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"data":{"id":7}}`, rec.Body.String())
}

func TestSuccess_UnencodablePayloadIsInternalError(t *testing.T) {
	rec := httptest.NewRecorder()
	Success(rec, http.StatusOK, map[string]float64{"total": math.Inf(1)})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":{"message":"internal error"}}`, rec.Body.String())
}

func TestValidationError_EmptyDetailsIsArray(t *testing.T) {
	rec := httptest.NewRecorder()
	ValidationError(rec, fieldErr{})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":{"message":"validation error","details":[]}}`, rec.Body.String())
}

package dto

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/cuotas/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{ErrCodeInternal, http.StatusInternalServerError},
		{ErrCodeBadRequest, http.StatusBadRequest},
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeRequestTooLarge, http.StatusRequestEntityTooLarge},
		{shared.CodeInvalidInput, http.StatusBadRequest},
		{shared.CodeNotFound, http.StatusNotFound},
		{shared.CodeDuplicatePlan, http.StatusConflict},
		{shared.CodeAlreadyVerified, http.StatusConflict},
		{shared.CodePlanHasPayments, http.StatusConflict},
		{shared.CodeAmountMismatch, http.StatusUnprocessableEntity},
		{shared.CodeExceedsOutstandingBalance, http.StatusUnprocessableEntity},
		{shared.CodeStorageFailure, http.StatusServiceUnavailable},
		// Unknown code should return 500
		{"UNKNOWN_CODE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.code))
		})
	}
}

func TestNewErrorResponseWithRequestID(t *testing.T) {
	requestID := "req-123-456"
	resp := NewErrorResponseWithRequestID(shared.CodeNotFound, "payment not found", requestID)

	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, shared.CodeNotFound, resp.Error.Code)
	assert.Equal(t, "payment not found", resp.Error.Message)
	assert.Equal(t, requestID, resp.Error.RequestID)
}

func TestNewValidationErrorResponse(t *testing.T) {
	details := []ValidationDetail{
		{Field: "amount", Message: "Must be a decimal number"},
		{Field: "method", Message: "Must be one of: QR TRANSFER CASH CARD"},
	}
	requestID := "req-789"

	resp := NewValidationErrorResponse("Validation failed", requestID, details)

	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeValidation, resp.Error.Code)
	assert.Equal(t, "Validation failed", resp.Error.Message)
	assert.Equal(t, requestID, resp.Error.RequestID)
	assert.Len(t, resp.Error.Details, 2)
	assert.Equal(t, "amount", resp.Error.Details[0].Field)
}

func TestNewSuccessResponseWithMeta(t *testing.T) {
	resp := NewSuccessResponseWithMeta([]string{"a", "b"}, 12, shared.Page{Limit: 2, Offset: 4}, 2)

	assert.True(t, resp.Success)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(12), resp.Meta.Total)
	assert.Equal(t, 2, resp.Meta.Limit)
	assert.Equal(t, 4, resp.Meta.Offset)
	assert.Equal(t, 2, resp.Meta.Returned)
}

func TestListRequest_ToPage(t *testing.T) {
	assert.Equal(t, shared.Page{Limit: shared.DefaultPageSize}, ListRequest{}.ToPage())
	assert.Equal(t, shared.Page{Limit: 10, Offset: 30}, ListRequest{Limit: 10, Offset: 30}.ToPage())
}

func TestErrorResponseJSON(t *testing.T) {
	resp := NewErrorResponseWithRequestID(shared.CodeAlreadyVerified, "Payment is already verified", "req-test-123")

	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, false, raw["success"])
	assert.NotContains(t, raw, "data")

	errObj, ok := raw["error"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "ALREADY_VERIFIED", errObj["code"])
	assert.Equal(t, "Payment is already verified", errObj["message"])
	assert.NotContains(t, errObj, "details")
}

package rest

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/KotFed0t/portfolio_tracker/internal/model"
	"github.com/KotFed0t/portfolio_tracker/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionRequestToModel(t *testing.T) {
	req := transactionRequest{
		AssetID:   42,
		Type:      "BUY",
		Timestamp: "2025-03-01T10:30:00+02:00",
		Quantity:  "1.5",
		Price:     "100.25",
		Note:      "initial lot",
	}

	trx, err := req.toModel()
	require.NoError(t, err)

	assert.Equal(t, int64(42), trx.AssetID)
	assert.Equal(t, model.TransactionBuy, trx.Type)
	assert.Equal(t, time.UTC, trx.Timestamp.Location(), "timestamps normalize to UTC")
	assert.Equal(t, 8, trx.Timestamp.Hour())
	assert.True(t, trx.Quantity.Equal(decimal.RequireFromString("1.5")))
	assert.True(t, trx.Price.Equal(decimal.RequireFromString("100.25")))
	assert.True(t, trx.Fees.IsZero(), "omitted amounts default to zero")
	assert.Nil(t, trx.ManualValue)
	assert.Nil(t, trx.InvestedOverride)
	assert.Equal(t, "initial lot", trx.Note)
}

func TestTransactionRequestToModelManualFields(t *testing.T) {
	req := transactionRequest{
		Type:             "MANUAL_VALUE_UPDATE",
		Timestamp:        "2025-03-01T00:00:00Z",
		ManualValue:      "215000",
		InvestedOverride: "200000",
	}

	trx, err := req.toModel()
	require.NoError(t, err)

	require.NotNil(t, trx.ManualValue)
	assert.True(t, trx.ManualValue.Equal(decimal.RequireFromString("215000")))
	require.NotNil(t, trx.InvestedOverride)
	assert.True(t, trx.InvestedOverride.Equal(decimal.RequireFromString("200000")))
}

func TestTransactionRequestToModelRejectsBadInput(t *testing.T) {
	bad := []transactionRequest{
		{Type: "BUY", Timestamp: "2025-03-01", Quantity: "1"},
		{Type: "BUY", Timestamp: "2025-03-01T00:00:00Z", Quantity: "one"},
		{Type: "BUY", Timestamp: "2025-03-01T00:00:00Z", Quantity: "1", Price: "1,5"},
		{Type: "MANUAL_VALUE_UPDATE", Timestamp: "2025-03-01T00:00:00Z", ManualValue: "abc"},
	}
	for i, req := range bad {
		_, err := req.toModel()
		assert.Error(t, err, "case %d", i)
	}
}

func TestWriteErrorStatusMapping(t *testing.T) {
	ctrl := NewController(nil)

	tests := []struct {
		err        error
		wantStatus int
	}{
		{service.NewValidationError("cannot sell more than currently held quantity"), 422},
		{service.ErrNotFound, 404},
		{service.ErrInvalidCredentials, 401},
		{service.ErrHasTransactions, 409},
		{service.ErrQuoteUnavailable, 503},
		{assert.AnError, 500},
	}

	for _, tc := range tests {
		w := httptest.NewRecorder()
		r := httptest.NewRequest("GET", "/api/dashboard", nil)

		ctrl.writeError(w, r, tc.err)

		assert.Equal(t, tc.wantStatus, w.Code, "err %v", tc.err)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.NotEmpty(t, body["error"])
	}
}

func TestChartRange(t *testing.T) {
	ctrl := NewController(nil)

	r := httptest.NewRequest("GET", "/api/charts/value?from=2025-01-01&to=2025-06-30", nil)
	start, end, err := ctrl.chartRange(r)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC), end)

	r = httptest.NewRequest("GET", "/api/charts/value", nil)
	start, end, err = ctrl.chartRange(r)
	require.NoError(t, err)
	assert.True(t, start.IsZero())
	assert.True(t, end.IsZero())

	r = httptest.NewRequest("GET", "/api/charts/value?from=03-01-2025", nil)
	_, _, err = ctrl.chartRange(r)
	assert.Error(t, err)
}

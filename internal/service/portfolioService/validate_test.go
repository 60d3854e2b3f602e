package portfolioService

import (
	"testing"

	"github.com/KotFed0t/portfolio_tracker/internal/model"
	"github.com/KotFed0t/portfolio_tracker/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateTransactionsAppendsNewRow(t *testing.T) {
	existing := []model.Transaction{
		buy(1, 1, "10", "100", "0"),
	}

	position, err := ValidateTransactions(model.AssetKindMarket, existing, sell(0, 2, "4", "120", "0"))
	require.NoError(t, err)
	assert.True(t, position.Quantity.Equal(d("6")))
}

func TestValidateTransactionsReplacesEditedRow(t *testing.T) {
	existing := []model.Transaction{
		buy(1, 1, "10", "100", "0"),
		sell(2, 2, "8", "120", "0"),
	}

	// Shrinking the early buy makes the later sell an oversell.
	candidate := buy(1, 1, "5", "100", "0")
	_, err := ValidateTransactions(model.AssetKindMarket, existing, candidate)
	require.Error(t, err)
	assert.True(t, service.IsValidationError(err))

	// A compatible edit passes and the edited values are in effect.
	candidate = buy(1, 1, "8", "50", "0")
	position, err := ValidateTransactions(model.AssetKindMarket, existing, candidate)
	require.NoError(t, err)
	assert.True(t, position.Quantity.IsZero())
}

func TestValidateTransactionsEditKeepsTimelineOrder(t *testing.T) {
	existing := []model.Transaction{
		buy(1, 1, "10", "100", "0"),
		sell(2, 3, "10", "110", "0"),
	}

	// Moving the buy after the sell by timestamp must fail the replay.
	candidate := buy(1, 5, "10", "100", "0")
	_, err := ValidateTransactions(model.AssetKindMarket, existing, candidate)
	require.Error(t, err)
	assert.True(t, service.IsValidationError(err))
}

func TestValidateHistoryRejectsManualUpdateOnMarketAsset(t *testing.T) {
	_, err := ValidateHistory(model.AssetKindMarket, []model.Transaction{
		buy(1, 1, "10", "100", "0"),
		manualUpdate(2, 2, "1000", nil),
	})
	require.Error(t, err)
	assert.True(t, service.IsValidationError(err))
}

func TestValidateHistoryForDeletion(t *testing.T) {
	// Deleting the buy leaves a dangling sell; validating the remaining
	// timeline must catch it.
	remaining := []model.Transaction{
		sell(2, 2, "5", "120", "0"),
	}
	_, err := ValidateHistory(model.AssetKindMarket, remaining)
	require.Error(t, err)
	assert.True(t, service.IsValidationError(err))

	position, err := ValidateHistory(model.AssetKindMarket, nil)
	require.NoError(t, err)
	assert.True(t, position.Quantity.IsZero())
}

package portfolioService

import (
	"testing"
	"time"

	"github.com/KotFed0t/portfolio_tracker/internal/model"
	"github.com/KotFed0t/portfolio_tracker/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func dp(s string) *decimal.Decimal {
	v := decimal.RequireFromString(s)
	return &v
}

func ts(day int) time.Time {
	return time.Date(2025, time.January, day, 12, 0, 0, 0, time.UTC)
}

func buy(id int64, day int, qty, price, fees string) model.Transaction {
	return model.Transaction{
		ID:        id,
		Type:      model.TransactionBuy,
		Timestamp: ts(day),
		Quantity:  d(qty),
		Price:     d(price),
		Fees:      d(fees),
	}
}

func sell(id int64, day int, qty, price, fees string) model.Transaction {
	return model.Transaction{
		ID:        id,
		Type:      model.TransactionSell,
		Timestamp: ts(day),
		Quantity:  d(qty),
		Price:     d(price),
		Fees:      d(fees),
	}
}

func manualUpdate(id int64, day int, value string, investedOverride *decimal.Decimal) model.Transaction {
	return model.Transaction{
		ID:               id,
		Type:             model.TransactionManualValueUpdate,
		Timestamp:        ts(day),
		ManualValue:      dp(value),
		InvestedOverride: investedOverride,
	}
}

func TestReplayMarketWeightedAverageCost(t *testing.T) {
	position, err := ReplayPosition(model.AssetKindMarket, []model.Transaction{
		buy(1, 1, "10", "100", "0"),
		buy(2, 2, "10", "200", "0"),
	})
	require.NoError(t, err)

	assert.True(t, position.Quantity.Equal(d("20")), "qty = %s", position.Quantity)
	assert.True(t, position.AvgCost.Equal(d("150")), "avgCost = %s", position.AvgCost)
}

func TestReplayMarketFeesEnterAverageCost(t *testing.T) {
	position, err := ReplayPosition(model.AssetKindMarket, []model.Transaction{
		buy(1, 1, "10", "100", "10"),
	})
	require.NoError(t, err)

	// (10*100 + 10) / 10
	assert.True(t, position.AvgCost.Equal(d("101")), "avgCost = %s", position.AvgCost)
}

func TestReplayMarketSellKeepsAverageCost(t *testing.T) {
	position, err := ReplayPosition(model.AssetKindMarket, []model.Transaction{
		buy(1, 1, "10", "100", "0"),
		buy(2, 2, "10", "200", "0"),
		sell(3, 3, "5", "300", "0"),
	})
	require.NoError(t, err)

	assert.True(t, position.Quantity.Equal(d("15")))
	assert.True(t, position.AvgCost.Equal(d("150")), "sells must not move avg cost, got %s", position.AvgCost)
}

func TestReplayMarketSellToZeroResetsAverageCost(t *testing.T) {
	position, err := ReplayPosition(model.AssetKindMarket, []model.Transaction{
		buy(1, 1, "10", "100", "0"),
		sell(2, 2, "10", "150", "0"),
		buy(3, 3, "5", "40", "0"),
	})
	require.NoError(t, err)

	assert.True(t, position.Quantity.Equal(d("5")))
	assert.True(t, position.AvgCost.Equal(d("40")), "new lot starts from a clean basis, got %s", position.AvgCost)
}

func TestReplayMarketOversellRejected(t *testing.T) {
	_, err := ReplayPosition(model.AssetKindMarket, []model.Transaction{
		buy(1, 1, "10", "100", "0"),
		sell(2, 2, "10.00000001", "100", "0"),
	})
	require.Error(t, err)
	assert.True(t, service.IsValidationError(err))
}

func TestReplayMarketExactSellOutAllowed(t *testing.T) {
	position, err := ReplayPosition(model.AssetKindMarket, []model.Transaction{
		buy(1, 1, "3", "10", "0"),
		sell(2, 2, "3", "12", "0"),
	})
	require.NoError(t, err)

	assert.True(t, position.Quantity.IsZero())
	assert.True(t, position.AvgCost.IsZero())
}

func TestReplayMarketSortsBeforeFolding(t *testing.T) {
	// Passed sell-first; the (timestamp, id) sort must put the buy first.
	position, err := ReplayPosition(model.AssetKindMarket, []model.Transaction{
		sell(2, 5, "4", "110", "0"),
		buy(1, 1, "4", "100", "0"),
	})
	require.NoError(t, err)
	assert.True(t, position.Quantity.IsZero())
}

func TestReplayMarketSameTimestampTieBreaksByID(t *testing.T) {
	a := buy(1, 1, "2", "100", "0")
	b := sell(2, 1, "2", "100", "0")
	b.Timestamp = a.Timestamp

	position, err := ReplayPosition(model.AssetKindMarket, []model.Transaction{b, a})
	require.NoError(t, err)
	assert.True(t, position.Quantity.IsZero())
}

func TestReplayMarketNonPositiveQuantityRejected(t *testing.T) {
	for _, trx := range []model.Transaction{
		buy(1, 1, "0", "100", "0"),
		buy(1, 1, "-1", "100", "0"),
		sell(1, 1, "0", "100", "0"),
	} {
		_, err := ReplayPosition(model.AssetKindMarket, []model.Transaction{trx})
		require.Error(t, err)
		assert.True(t, service.IsValidationError(err))
	}
}

func TestReplayMarketNegativePricePermitted(t *testing.T) {
	// Negative prices exist (2020 oil futures); replay does not police sign.
	position, err := ReplayPosition(model.AssetKindMarket, []model.Transaction{
		buy(1, 1, "10", "-5", "0"),
	})
	require.NoError(t, err)
	assert.True(t, position.AvgCost.Equal(d("-5")))
}

func TestReplayMarketIgnoresManualValueUpdates(t *testing.T) {
	// The validator rejects these up front; replay itself must stay tolerant
	// in case an old row ever slips through.
	position, err := ReplayPosition(model.AssetKindMarket, []model.Transaction{
		buy(1, 1, "10", "100", "0"),
		manualUpdate(2, 2, "9999", nil),
	})
	require.NoError(t, err)
	assert.True(t, position.Quantity.Equal(d("10")))
	assert.True(t, position.AvgCost.Equal(d("100")))
}

func TestReplayManualValueAndInvested(t *testing.T) {
	position, err := ReplayPosition(model.AssetKindManual, []model.Transaction{
		buy(1, 1, "1", "1000", "0"),
		manualUpdate(2, 10, "1250", nil),
	})
	require.NoError(t, err)

	assert.True(t, position.Invested.Equal(d("1000")))
	assert.True(t, position.CurrentValue.Equal(d("1250")))
	require.NotNil(t, position.UnrealizedPnL)
	assert.True(t, position.UnrealizedPnL.Equal(d("250")))
	require.NotNil(t, position.ValueAsOf)
	assert.True(t, position.ValueAsOf.Equal(ts(10)))
}

func TestReplayManualLatestUpdateWins(t *testing.T) {
	position, err := ReplayPosition(model.AssetKindManual, []model.Transaction{
		manualUpdate(1, 1, "100", nil),
		manualUpdate(2, 5, "300", nil),
		manualUpdate(3, 3, "200", nil),
	})
	require.NoError(t, err)

	assert.True(t, position.CurrentValue.Equal(d("300")))
	require.NotNil(t, position.ValueAsOf)
	assert.True(t, position.ValueAsOf.Equal(ts(5)))
}

func TestReplayManualInvestedOverride(t *testing.T) {
	position, err := ReplayPosition(model.AssetKindManual, []model.Transaction{
		buy(1, 1, "2", "500", "0"),
		manualUpdate(2, 10, "1500", dp("1200")),
	})
	require.NoError(t, err)

	assert.True(t, position.Invested.Equal(d("1200")))
	assert.True(t, position.AvgCost.Equal(d("600")), "override re-derives avg cost, got %s", position.AvgCost)
	require.NotNil(t, position.UnrealizedPnL)
	assert.True(t, position.UnrealizedPnL.Equal(d("300")))
}

func TestReplayManualSellDisposesAtAverageCost(t *testing.T) {
	position, err := ReplayPosition(model.AssetKindManual, []model.Transaction{
		buy(1, 1, "10", "100", "0"),
		sell(2, 2, "4", "999", "0"),
	})
	require.NoError(t, err)

	// The sell price is irrelevant here: basis leaves at avg cost.
	assert.True(t, position.Quantity.Equal(d("6")))
	assert.True(t, position.Invested.Equal(d("600")), "invested = %s", position.Invested)
	assert.True(t, position.AvgCost.Equal(d("100")))
}

func TestReplayManualNoPnLWithoutPositiveInvested(t *testing.T) {
	position, err := ReplayPosition(model.AssetKindManual, []model.Transaction{
		manualUpdate(1, 1, "500", nil),
	})
	require.NoError(t, err)

	assert.True(t, position.CurrentValue.Equal(d("500")))
	assert.Nil(t, position.UnrealizedPnL, "pnl is undefined when nothing was invested")
}

func TestReplayManualUpdateRequiresValue(t *testing.T) {
	_, err := ReplayPosition(model.AssetKindManual, []model.Transaction{
		{ID: 1, Type: model.TransactionManualValueUpdate, Timestamp: ts(1)},
	})
	require.Error(t, err)
	assert.True(t, service.IsValidationError(err))
}

func TestReplayEmptyHistory(t *testing.T) {
	for _, kind := range []model.AssetKind{model.AssetKindMarket, model.AssetKindManual} {
		position, err := ReplayPosition(kind, nil)
		require.NoError(t, err)
		assert.True(t, position.Quantity.IsZero())
		assert.True(t, position.AvgCost.IsZero())
	}
}

func TestReplayUnknownKindRejected(t *testing.T) {
	_, err := ReplayPosition(model.AssetKind("bond"), nil)
	require.Error(t, err)
	assert.True(t, service.IsValidationError(err))
}

func TestReplayIsDeterministic(t *testing.T) {
	history := []model.Transaction{
		buy(1, 1, "10", "100", "5"),
		buy(2, 2, "10", "200", "0"),
		sell(3, 3, "7", "250", "1"),
	}

	first, err := ReplayPosition(model.AssetKindMarket, history)
	require.NoError(t, err)
	second, err := ReplayPosition(model.AssetKindMarket, history)
	require.NoError(t, err)

	assert.True(t, first.Quantity.Equal(second.Quantity))
	assert.True(t, first.AvgCost.Equal(second.AvgCost))
}

package portfolioService

import (
	"testing"

	"github.com/KotFed0t/portfolio_tracker/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func marketAsset(id int64, symbol, group string) model.Asset {
	return model.Asset{ID: id, Symbol: symbol, Name: symbol, Kind: model.AssetKindMarket, GroupName: group}
}

func quoteFor(symbol, price string) model.Quote {
	return model.Quote{Symbol: symbol, Price: d(price), FetchedAt: ts(20)}
}

func rowBySymbol(t *testing.T, snapshot model.Snapshot, symbol string) model.SnapshotRow {
	t.Helper()
	for _, row := range snapshot.Rows {
		if row.Symbol == symbol {
			return row
		}
	}
	t.Fatalf("no snapshot row for %s", symbol)
	return model.SnapshotRow{}
}

func TestBuildSnapshotMarketRow(t *testing.T) {
	assets := []model.Asset{marketAsset(1, "AAPL", "Stocks")}
	txByAsset := map[int64][]model.Transaction{
		1: {buy(1, 1, "10", "100", "0")},
	}
	quotes := map[string]model.Quote{"AAPL": quoteFor("AAPL", "120")}

	snapshot, err := BuildSnapshot(assets, txByAsset, nil, quotes)
	require.NoError(t, err)

	row := rowBySymbol(t, snapshot, "AAPL")
	assert.True(t, row.CurrentValue.Equal(d("1200")))
	require.NotNil(t, row.UnrealizedPnL)
	assert.True(t, row.UnrealizedPnL.Equal(d("200")))
	assert.True(t, row.CountsInTotals)
	assert.True(t, row.CountsInAllocation)
	assert.False(t, row.QuoteStale)

	assert.True(t, snapshot.CanonicalTotalValue.Equal(d("1200")))
	assert.True(t, snapshot.CanonicalTotalPnL.Equal(d("200")))
}

func TestBuildSnapshotMissingQuoteRow(t *testing.T) {
	assets := []model.Asset{marketAsset(1, "GONE", "Stocks")}
	txByAsset := map[int64][]model.Transaction{
		1: {buy(1, 1, "10", "100", "0")},
	}

	snapshot, err := BuildSnapshot(assets, txByAsset, nil, map[string]model.Quote{})
	require.NoError(t, err)

	row := rowBySymbol(t, snapshot, "GONE")
	assert.True(t, row.QuoteStale)
	assert.Nil(t, row.CurrentPrice, "no fabricated price")
	assert.True(t, row.CurrentValue.IsZero())
	assert.Nil(t, row.UnrealizedPnL)
	assert.True(t, snapshot.CanonicalTotalValue.IsZero())
}

func TestBuildSnapshotStaleQuotePropagates(t *testing.T) {
	assets := []model.Asset{marketAsset(1, "AAPL", "Stocks")}
	txByAsset := map[int64][]model.Transaction{
		1: {buy(1, 1, "1", "100", "0")},
	}
	stale := quoteFor("AAPL", "110")
	stale.Stale = true

	snapshot, err := BuildSnapshot(assets, txByAsset, nil, map[string]model.Quote{"AAPL": stale})
	require.NoError(t, err)

	row := rowBySymbol(t, snapshot, "AAPL")
	assert.True(t, row.QuoteStale)
	assert.True(t, row.CurrentValue.Equal(d("110")), "stale quotes still value the row")
}

func TestBuildSnapshotManualRow(t *testing.T) {
	assets := []model.Asset{{ID: 1, Symbol: "FLAT", Name: "Apartment", Kind: model.AssetKindManual, GroupName: "Real estate"}}
	txByAsset := map[int64][]model.Transaction{
		1: {
			buy(1, 1, "1", "200000", "0"),
			manualUpdate(2, 10, "215000", nil),
		},
	}

	snapshot, err := BuildSnapshot(assets, txByAsset, nil, nil)
	require.NoError(t, err)

	row := rowBySymbol(t, snapshot, "FLAT")
	require.NotNil(t, row.Quantity)
	assert.True(t, row.Quantity.Equal(decimal.NewFromInt(1)))
	require.NotNil(t, row.AvgCost)
	assert.True(t, row.AvgCost.Equal(d("200000")), "manual rows show invested as basis")
	assert.True(t, row.CurrentValue.Equal(d("215000")))
	require.NotNil(t, row.UnrealizedPnL)
	assert.True(t, row.UnrealizedPnL.Equal(d("15000")))
	require.NotNil(t, row.AsOf)
	assert.True(t, row.AsOf.Equal(ts(10)))
}

func TestBuildSnapshotBasketOverlay(t *testing.T) {
	assets := []model.Asset{
		marketAsset(1, "VWCE", "ETF"),
		marketAsset(2, "AGGH", "ETF"),
		marketAsset(3, "AAPL", "Stocks"),
	}
	txByAsset := map[int64][]model.Transaction{
		1: {buy(1, 1, "10", "100", "0")},
		2: {buy(2, 1, "20", "50", "0")},
		3: {buy(3, 1, "5", "200", "0")},
	}
	quotes := map[string]model.Quote{
		"VWCE": quoteFor("VWCE", "110"),
		"AGGH": quoteFor("AGGH", "49"),
		"AAPL": quoteFor("AAPL", "210"),
	}
	baskets := []model.BasketDetail{{
		Basket:  model.Basket{ID: 7, Name: "All-World 80/20"},
		Members: []model.BasketMember{{AssetID: 1}, {AssetID: 2}},
	}}

	snapshot, err := BuildSnapshot(assets, txByAsset, baskets, quotes)
	require.NoError(t, err)

	basketRow := rowBySymbol(t, snapshot, "BASKET:7")
	assert.Equal(t, model.RowKindBasket, basketRow.RowKind)
	assert.False(t, basketRow.CountsInTotals, "derived rows never feed canonical totals")
	assert.True(t, basketRow.CountsInAllocation)
	assert.True(t, basketRow.CurrentValue.Equal(d("2080")), "1100 + 980, got %s", basketRow.CurrentValue)
	require.NotNil(t, basketRow.UnrealizedPnL)
	assert.True(t, basketRow.UnrealizedPnL.Equal(d("80")), "100 - 20, got %s", basketRow.UnrealizedPnL)

	// Members stay canonical but leave the allocation to the basket row.
	for _, symbol := range []string{"VWCE", "AGGH"} {
		row := rowBySymbol(t, snapshot, symbol)
		assert.True(t, row.CountsInTotals, "%s", symbol)
		assert.False(t, row.CountsInAllocation, "%s", symbol)
	}
	assert.True(t, rowBySymbol(t, snapshot, "AAPL").CountsInAllocation)

	// Canonical totals cover every asset exactly once, basket excluded.
	assert.True(t, snapshot.CanonicalTotalValue.Equal(d("3130")))
	assert.True(t, snapshot.DerivedTotalValue.Equal(d("2080")))

	_, isMember := snapshot.BasketMemberAssetIDs[1]
	assert.True(t, isMember)
	_, isMember = snapshot.BasketMemberAssetIDs[3]
	assert.False(t, isMember)
}

func TestBuildSnapshotBasketPnLUndefinedWhenMemberHasNone(t *testing.T) {
	assets := []model.Asset{
		marketAsset(1, "VWCE", "ETF"),
		marketAsset(2, "GONE", "ETF"),
	}
	txByAsset := map[int64][]model.Transaction{
		1: {buy(1, 1, "10", "100", "0")},
		2: {buy(2, 1, "10", "100", "0")},
	}
	quotes := map[string]model.Quote{"VWCE": quoteFor("VWCE", "110")}
	baskets := []model.BasketDetail{{
		Basket:  model.Basket{ID: 7, Name: "Mixed"},
		Members: []model.BasketMember{{AssetID: 1}, {AssetID: 2}},
	}}

	snapshot, err := BuildSnapshot(assets, txByAsset, baskets, quotes)
	require.NoError(t, err)

	basketRow := rowBySymbol(t, snapshot, "BASKET:7")
	assert.Nil(t, basketRow.UnrealizedPnL)
	assert.True(t, basketRow.CurrentValue.Equal(d("1100")), "missing member contributes zero value")
	assert.True(t, basketRow.QuoteStale, "unpriced member flags the basket row")
}

func TestBuildSnapshotBasketStaleMemberPropagates(t *testing.T) {
	assets := []model.Asset{
		marketAsset(1, "VWCE", "ETF"),
		marketAsset(2, "AGGH", "ETF"),
	}
	txByAsset := map[int64][]model.Transaction{
		1: {buy(1, 1, "10", "100", "0")},
		2: {buy(2, 1, "20", "50", "0")},
	}
	staleQuote := quoteFor("AGGH", "49")
	staleQuote.Stale = true
	quotes := map[string]model.Quote{
		"VWCE": quoteFor("VWCE", "110"),
		"AGGH": staleQuote,
	}
	baskets := []model.BasketDetail{{
		Basket:  model.Basket{ID: 7, Name: "Mixed"},
		Members: []model.BasketMember{{AssetID: 1}, {AssetID: 2}},
	}}

	snapshot, err := BuildSnapshot(assets, txByAsset, baskets, quotes)
	require.NoError(t, err)

	basketRow := rowBySymbol(t, snapshot, "BASKET:7")
	assert.True(t, basketRow.QuoteStale)
	require.NotNil(t, basketRow.UnrealizedPnL, "stale quotes still value and compute pnl")
	assert.True(t, basketRow.CurrentValue.Equal(d("2080")))
}

func TestBuildSnapshotGroupTotalsAndOrdering(t *testing.T) {
	assets := []model.Asset{
		marketAsset(1, "ZZZ", "stocks"),
		marketAsset(2, "AAA", "Stocks"),
		marketAsset(3, "BND", "Bonds"),
	}
	txByAsset := map[int64][]model.Transaction{
		1: {buy(1, 1, "1", "100", "0")},
		2: {buy(2, 1, "1", "100", "0")},
		3: {buy(3, 1, "1", "100", "0")},
	}
	quotes := map[string]model.Quote{
		"ZZZ": quoteFor("ZZZ", "100"),
		"AAA": quoteFor("AAA", "150"),
		"BND": quoteFor("BND", "90"),
	}

	snapshot, err := BuildSnapshot(assets, txByAsset, nil, quotes)
	require.NoError(t, err)

	// Case-insensitive (group, symbol) ordering.
	var symbols []string
	for _, row := range snapshot.Rows {
		symbols = append(symbols, row.Symbol)
	}
	assert.Equal(t, []string{"BND", "AAA", "ZZZ"}, symbols)

	require.Len(t, snapshot.GroupTotals, 3)
	assert.Equal(t, "Bonds", snapshot.GroupTotals[0].Name)
	assert.True(t, snapshot.GroupTotals[0].Value.Equal(d("90")))
	assert.True(t, snapshot.GroupTotals[0].PnL.Equal(d("-10")))
}

func TestAllocationPercentagesSumToHundred(t *testing.T) {
	assets := []model.Asset{
		marketAsset(1, "A", "G"),
		marketAsset(2, "B", "G"),
		marketAsset(3, "C", "G"),
	}
	txByAsset := map[int64][]model.Transaction{
		1: {buy(1, 1, "1", "1", "0")},
		2: {buy(2, 1, "1", "1", "0")},
		3: {buy(3, 1, "1", "1", "0")},
	}
	quotes := map[string]model.Quote{
		"A": quoteFor("A", "1"),
		"B": quoteFor("B", "1"),
		"C": quoteFor("C", "1"),
	}

	snapshot, err := BuildSnapshot(assets, txByAsset, nil, quotes)
	require.NoError(t, err)

	sum := decimal.Zero
	for _, row := range snapshot.Rows {
		sum = sum.Add(row.AllocationPct)
	}
	diff := sum.Sub(hundred).Abs()
	assert.True(t, diff.LessThan(d("0.000001")), "sum = %s", sum)
}

func TestAllocationByAssetUsesBasketName(t *testing.T) {
	assets := []model.Asset{
		marketAsset(1, "VWCE", "ETF"),
		marketAsset(2, "AAPL", "Stocks"),
	}
	txByAsset := map[int64][]model.Transaction{
		1: {buy(1, 1, "10", "100", "0")},
		2: {buy(2, 1, "5", "200", "0")},
	}
	quotes := map[string]model.Quote{
		"VWCE": quoteFor("VWCE", "100"),
		"AAPL": quoteFor("AAPL", "200"),
	}
	baskets := []model.BasketDetail{{
		Basket:  model.Basket{ID: 7, Name: "Core"},
		Members: []model.BasketMember{{AssetID: 1}},
	}}

	snapshot, err := BuildSnapshot(assets, txByAsset, baskets, quotes)
	require.NoError(t, err)

	allocation := AllocationByAsset(snapshot)
	assert.ElementsMatch(t, []string{"AAPL", "Core"}, allocation.Labels)

	byGroup := AllocationByGroup(snapshot)
	assert.ElementsMatch(t, []string{"ETF", "Stocks"}, byGroup.Labels, "basket rows carry no group")
}

func TestAllocationZeroTotal(t *testing.T) {
	allocation := AllocationByGroup(model.Snapshot{GroupTotals: []model.GroupTotal{{Name: "Empty"}}})
	require.Len(t, allocation.Percentages, 1)
	assert.True(t, allocation.Percentages[0].IsZero())
}

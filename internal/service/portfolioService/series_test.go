package portfolioService

import (
	"testing"
	"time"

	"github.com/KotFed0t/portfolio_tracker/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(n int) time.Time {
	return time.Date(2025, time.January, n, 0, 0, 0, 0, time.UTC)
}

func point(n int, close string) model.HistoricalPoint {
	return model.HistoricalPoint{Date: day(n), Close: d(close)}
}

func assertSeries(t *testing.T, got []decimal.Decimal, want ...string) {
	t.Helper()
	require.Len(t, got, len(want))
	for i, w := range want {
		assert.True(t, got[i].Equal(d(w)), "index %d: got %s, want %s", i, got[i], w)
	}
}

func TestPortfolioValueSeriesForwardFill(t *testing.T) {
	assets := []model.Asset{marketAsset(1, "AAPL", "Stocks")}
	txByAsset := map[int64][]model.Transaction{
		1: {buy(1, 1, "10", "100", "0")},
	}
	// Weekend gap on days 3-4: the day-2 close carries forward.
	hist := map[string][]model.HistoricalPoint{
		"AAPL": {point(1, "100"), point(2, "110"), point(5, "120")},
	}

	series := PortfolioValueSeries(assets, txByAsset, hist, day(1), day(5))

	assert.Equal(t, []string{"2025-01-01", "2025-01-02", "2025-01-03", "2025-01-04", "2025-01-05"}, series.Labels)
	assertSeries(t, series.Values, "1000", "1100", "1100", "1100", "1200")
	assert.Empty(t, series.MissingSymbols)
	assert.Empty(t, series.Advisory)
}

func TestPortfolioValueSeriesNeverBackfills(t *testing.T) {
	assets := []model.Asset{marketAsset(1, "AAPL", "Stocks")}
	txByAsset := map[int64][]model.Transaction{
		1: {buy(1, 1, "10", "100", "0")},
	}
	hist := map[string][]model.HistoricalPoint{
		"AAPL": {point(3, "100")},
	}

	series := PortfolioValueSeries(assets, txByAsset, hist, day(1), day(3))

	// Days before the first known close stay at zero.
	assertSeries(t, series.Values, "0", "0", "1000")
}

func TestPortfolioValueSeriesQuantityChangesMidRange(t *testing.T) {
	assets := []model.Asset{marketAsset(1, "AAPL", "Stocks")}
	txByAsset := map[int64][]model.Transaction{
		1: {
			buy(1, 1, "10", "100", "0"),
			sell(2, 3, "10", "105", "0"),
		},
	}
	hist := map[string][]model.HistoricalPoint{
		"AAPL": {point(1, "100"), point(2, "110"), point(3, "105"), point(4, "120")},
	}

	series := PortfolioValueSeries(assets, txByAsset, hist, day(1), day(4))

	// Sold out on day 3: zero position contributes nothing from then on.
	assertSeries(t, series.Values, "1000", "1100", "0", "0")
}

func TestPortfolioValueSeriesManualStep(t *testing.T) {
	assets := []model.Asset{{ID: 1, Symbol: "FLAT", Kind: model.AssetKindManual, GroupName: "Real estate"}}
	txByAsset := map[int64][]model.Transaction{
		1: {
			manualUpdate(1, 2, "200000", nil),
			manualUpdate(2, 4, "210000", nil),
		},
	}

	series := PortfolioValueSeries(assets, txByAsset, nil, day(1), day(5))

	assertSeries(t, series.Values, "0", "200000", "200000", "210000", "210000")
}

func TestPortfolioValueSeriesMissingSymbolExcludedNotFatal(t *testing.T) {
	assets := []model.Asset{
		marketAsset(1, "AAPL", "Stocks"),
		marketAsset(2, "GONE", "Stocks"),
	}
	txByAsset := map[int64][]model.Transaction{
		1: {buy(1, 1, "1", "100", "0")},
		2: {buy(2, 1, "1", "100", "0")},
	}
	hist := map[string][]model.HistoricalPoint{
		"AAPL": {point(1, "100")},
	}

	series := PortfolioValueSeries(assets, txByAsset, hist, day(1), day(2))

	assertSeries(t, series.Values, "100", "100")
	assert.Equal(t, []string{"GONE"}, series.MissingSymbols)
	assert.Equal(t, "Missing historical data for: GONE", series.Advisory)
}

func TestOverlayPnLSeriesMarket(t *testing.T) {
	assets := []model.Asset{marketAsset(1, "AAPL", "Stocks")}
	txByAsset := map[int64][]model.Transaction{
		1: {buy(1, 1, "10", "100", "0")},
	}
	hist := map[string][]model.HistoricalPoint{
		"AAPL": {point(1, "100"), point(2, "110"), point(4, "90")},
	}

	series := OverlayPnLSeries(assets, txByAsset, nil, hist, day(1), day(4))

	aapl, ok := series.SeriesByLabel["AAPL"]
	require.True(t, ok)
	// (close - avgCost) * qty, forward-filled through day 3.
	assertSeries(t, aapl, "0", "100", "100", "-100")
}

func TestOverlayPnLSeriesManualUsesBuyOnlyInvested(t *testing.T) {
	assets := []model.Asset{{ID: 1, Symbol: "FLAT", Kind: model.AssetKindManual}}
	txByAsset := map[int64][]model.Transaction{
		1: {
			buy(1, 1, "1", "1000", "0"),
			manualUpdate(2, 2, "1300", nil),
			sell(3, 3, "0.5", "0", "0"),
		},
	}

	series := OverlayPnLSeries(assets, txByAsset, nil, nil, day(1), day(3))

	flat, ok := series.SeriesByLabel["FLAT"]
	require.True(t, ok)
	// Invested here accumulates BUYs only, so the day-3 partial disposal does
	// not shrink the baseline the way point-in-time replay would.
	assertSeries(t, flat, "0", "300", "300")
}

func TestOverlayPnLSeriesFoldsBasketMembers(t *testing.T) {
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
	hist := map[string][]model.HistoricalPoint{
		"VWCE": {point(1, "100"), point(2, "110")},
		"AGGH": {point(1, "50"), point(2, "49")},
		"AAPL": {point(1, "200"), point(2, "210")},
	}
	baskets := []model.BasketDetail{{
		Basket:  model.Basket{ID: 7, Name: "Core"},
		Members: []model.BasketMember{{AssetID: 1}, {AssetID: 2}},
	}}

	series := OverlayPnLSeries(assets, txByAsset, baskets, hist, day(1), day(2))

	core, ok := series.SeriesByLabel["Core"]
	require.True(t, ok)
	assertSeries(t, core, "0", "80")

	_, ok = series.SeriesByLabel["VWCE"]
	assert.False(t, ok, "member series fold into the basket")
	_, ok = series.SeriesByLabel["AGGH"]
	assert.False(t, ok)
	_, ok = series.SeriesByLabel["AAPL"]
	assert.True(t, ok, "non-members stay selectable")
}

func TestOverlayPnLSeriesBasketWithNoCoveredMembers(t *testing.T) {
	assets := []model.Asset{marketAsset(1, "GONE", "ETF")}
	txByAsset := map[int64][]model.Transaction{
		1: {buy(1, 1, "10", "100", "0")},
	}
	baskets := []model.BasketDetail{{
		Basket:  model.Basket{ID: 7, Name: "Core"},
		Members: []model.BasketMember{{AssetID: 1}},
	}}

	series := OverlayPnLSeries(assets, txByAsset, baskets, nil, day(1), day(2))

	_, ok := series.SeriesByLabel["Core"]
	assert.False(t, ok, "no basket series when no member has data")
	assert.Equal(t, []string{"GONE"}, series.MissingSymbols)
}

func compositeFixture() (model.BasketDetail, map[int64]model.Asset, map[int64][]model.Transaction, map[string][]model.HistoricalPoint) {
	basket := model.BasketDetail{
		Basket: model.Basket{ID: 7, Name: "Core"},
		// Stored weights are legacy and must not influence the composite.
		Members: []model.BasketMember{
			{AssetID: 1, Weight: dp("0.8")},
			{AssetID: 2, Weight: dp("0.2")},
		},
	}
	assetByID := map[int64]model.Asset{
		1: marketAsset(1, "VWCE", "ETF"),
		2: marketAsset(2, "AGGH", "ETF"),
	}
	txByAsset := map[int64][]model.Transaction{
		1: {buy(1, 1, "10", "100", "0")},
		2: {buy(2, 1, "20", "50", "0")},
	}
	hist := map[string][]model.HistoricalPoint{
		"VWCE": {point(1, "100"), point(2, "110"), point(3, "120")},
		"AGGH": {point(1, "50"), point(3, "52")},
	}
	return basket, assetByID, txByAsset, hist
}

func TestBasketCompositeSeriesStrictIntersection(t *testing.T) {
	basket, assetByID, txByAsset, hist := compositeFixture()

	series, err := BasketCompositeSeries(basket, assetByID, txByAsset, hist, day(1), day(3))
	require.NoError(t, err)

	// Day 2 lacks AGGH, so only days 1 and 3 survive.
	assert.Equal(t, []string{"2025-01-01", "2025-01-03"}, series.Labels)

	// Live shares drive the weighting: 10*100+20*50=2000 base,
	// 10*120+20*52=2240 on day 3.
	assertSeries(t, series.Values, "100", "112")
	assert.Empty(t, series.MissingSymbols)
}

func TestBasketCompositeSeriesSkipsZeroQuantityAndArchivedMembers(t *testing.T) {
	basket, assetByID, txByAsset, hist := compositeFixture()

	// Selling out of AGGH leaves VWCE as the only selected member, so the
	// day-2 gap no longer drops the day.
	txByAsset[2] = append(txByAsset[2], sell(3, 2, "20", "50", "0"))

	series, err := BasketCompositeSeries(basket, assetByID, txByAsset, hist, day(1), day(3))
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-01-01", "2025-01-02", "2025-01-03"}, series.Labels)
	assertSeries(t, series.Values, "100", "110", "120")

	// Archiving has the same effect.
	_, _, freshTx, _ := compositeFixture()
	archived := assetByID[2]
	archived.IsArchived = true
	assetByID[2] = archived

	series, err = BasketCompositeSeries(basket, assetByID, freshTx, hist, day(1), day(3))
	require.NoError(t, err)
	assert.Equal(t, []string{"2025-01-01", "2025-01-02", "2025-01-03"}, series.Labels)
}

func TestBasketCompositeSeriesMemberWithoutData(t *testing.T) {
	basket, assetByID, txByAsset, hist := compositeFixture()
	delete(hist, "AGGH")

	series, err := BasketCompositeSeries(basket, assetByID, txByAsset, hist, day(1), day(3))
	require.NoError(t, err)

	// AGGH is still selected, so the intersection with its empty calendar is
	// empty; it is reported rather than silently dropped.
	assert.Empty(t, series.Labels)
	assert.Equal(t, []string{"AGGH"}, series.MissingSymbols)
	assert.Equal(t, "Missing historical data for: AGGH", series.Advisory)
}

func TestBasketCompositeSeriesNoSelectedMembers(t *testing.T) {
	basket := model.BasketDetail{
		Basket:  model.Basket{ID: 7, Name: "Empty"},
		Members: []model.BasketMember{{AssetID: 1}},
	}
	assetByID := map[int64]model.Asset{
		1: {ID: 1, Symbol: "FLAT", Kind: model.AssetKindManual},
	}

	series, err := BasketCompositeSeries(basket, assetByID, nil, nil, day(1), day(3))
	require.NoError(t, err)
	assert.Empty(t, series.Labels)
	assert.Empty(t, series.Values)
}

func TestBasketCompositeSeriesRangeClipsIntersection(t *testing.T) {
	basket, assetByID, txByAsset, hist := compositeFixture()

	series, err := BasketCompositeSeries(basket, assetByID, txByAsset, hist, day(3), day(3))
	require.NoError(t, err)

	// The first surviving date inside the range normalizes to 100.
	assert.Equal(t, []string{"2025-01-03"}, series.Labels)
	assertSeries(t, series.Values, "100")
}

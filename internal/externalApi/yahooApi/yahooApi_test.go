package yahooApi

import (
	"testing"

	"github.com/KotFed0t/portfolio_tracker/internal/externalApi"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRawChart(t *testing.T) {
	api := &YahooApi{}

	t.Run("unknown symbol maps to ErrNotFound", func(t *testing.T) {
		body := []byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`)
		_, err := api.parseRawChart(body)
		assert.ErrorIs(t, err, externalApi.ErrNotFound)
	})

	t.Run("other chart errors pass through", func(t *testing.T) {
		body := []byte(`{"chart":{"result":null,"error":{"code":"Bad Request","description":"Invalid interval"}}}`)
		_, err := api.parseRawChart(body)
		require.Error(t, err)
		assert.NotErrorIs(t, err, externalApi.ErrNotFound)
		assert.Contains(t, err.Error(), "Bad Request")
	})

	t.Run("empty result maps to ErrNotFound", func(t *testing.T) {
		body := []byte(`{"chart":{"result":[],"error":null}}`)
		_, err := api.parseRawChart(body)
		assert.ErrorIs(t, err, externalApi.ErrNotFound)
	})

	t.Run("malformed body fails", func(t *testing.T) {
		_, err := api.parseRawChart([]byte(`<html>rate limited</html>`))
		assert.Error(t, err)
	})
}

func TestLatestPrice(t *testing.T) {
	api := &YahooApi{}

	t.Run("prefers regular market price", func(t *testing.T) {
		body := []byte(`{"chart":{"result":[{"meta":{"symbol":"AAPL","regularMarketPrice":190.5},"timestamp":[1735689600],"indicators":{"quote":[{"close":[180.0]}]}}]}}`)
		raw, err := api.parseRawChart(body)
		require.NoError(t, err)

		price, err := api.latestPrice(raw)
		require.NoError(t, err)
		assert.True(t, price.Equal(decimal.RequireFromString("190.5")))
	})

	t.Run("falls back to last non-null close", func(t *testing.T) {
		body := []byte(`{"chart":{"result":[{"meta":{"symbol":"AAPL"},"timestamp":[1,2,3],"indicators":{"quote":[{"close":[180.0,185.25,null]}]}}]}}`)
		raw, err := api.parseRawChart(body)
		require.NoError(t, err)

		price, err := api.latestPrice(raw)
		require.NoError(t, err)
		assert.True(t, price.Equal(decimal.RequireFromString("185.25")))
	})

	t.Run("no usable price", func(t *testing.T) {
		body := []byte(`{"chart":{"result":[{"meta":{"symbol":"AAPL"},"timestamp":[1],"indicators":{"quote":[{"close":[null]}]}}]}}`)
		raw, err := api.parseRawChart(body)
		require.NoError(t, err)

		_, err = api.latestPrice(raw)
		assert.Error(t, err)
	})
}

func TestHistoricalPoints(t *testing.T) {
	api := &YahooApi{}

	t.Run("skips null closes", func(t *testing.T) {
		// 2025-01-01 and 2025-01-03 midnight UTC, null on the middle day.
		body := []byte(`{"chart":{"result":[{"meta":{"symbol":"AAPL"},"timestamp":[1735689600,1735776000,1735862400],"indicators":{"quote":[{"close":[100.0,null,102.5]}]}}]}}`)
		raw, err := api.parseRawChart(body)
		require.NoError(t, err)

		points, err := api.historicalPoints(raw)
		require.NoError(t, err)
		require.Len(t, points, 2)
		assert.Equal(t, "2025-01-01", points[0].Date.Format("2006-01-02"))
		assert.True(t, points[0].Close.Equal(decimal.RequireFromString("100")))
		assert.Equal(t, "2025-01-03", points[1].Date.Format("2006-01-02"))
	})

	t.Run("length mismatch fails", func(t *testing.T) {
		body := []byte(`{"chart":{"result":[{"meta":{"symbol":"AAPL"},"timestamp":[1,2],"indicators":{"quote":[{"close":[100.0]}]}}]}}`)
		raw, err := api.parseRawChart(body)
		require.NoError(t, err)

		_, err = api.historicalPoints(raw)
		assert.Error(t, err)
	})
}

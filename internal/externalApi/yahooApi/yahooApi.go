package yahooApi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/KotFed0t/portfolio_tracker/config"
	"github.com/KotFed0t/portfolio_tracker/internal/externalApi"
	"github.com/KotFed0t/portfolio_tracker/internal/model"
	"github.com/KotFed0t/portfolio_tracker/internal/model/yahooModel"
	"github.com/KotFed0t/portfolio_tracker/utils"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

type YahooApi struct {
	client *resty.Client
}

func New(cfg *config.Config) *YahooApi {
	client := resty.New().
		SetDebug(cfg.API.Debug).
		SetTimeout(cfg.API.Timeout).
		SetBaseURL(cfg.API.YahooApi.Url).
		SetHeader("User-Agent", "Mozilla/5.0 (portfolio_tracker)")
	return &YahooApi{client: client}
}

func (a *YahooApi) GetLatestQuote(ctx context.Context, symbol string) (model.Quote, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	url := fmt.Sprintf("/v8/finance/chart/%s", symbol)
	params := map[string]string{
		"range":    "5d",
		"interval": "1d",
	}

	slog.Debug("start YahooApi.GetLatestQuote request", slog.String("rqID", rqID), slog.String("symbol", symbol))

	resp, err := a.client.R().
		SetHeader("Accept", "application/json").
		SetQueryParams(params).
		Get(url)

	if err != nil {
		slog.Error("error while dialing YahooApi", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return model.Quote{}, err
	}

	raw, err := a.parseRawChart(resp.Body())
	if err != nil {
		slog.Error("can't parse chart response", slog.String("err", err.Error()), slog.String("rqID", rqID), slog.String("symbol", symbol))
		return model.Quote{}, err
	}

	price, err := a.latestPrice(raw)
	if err != nil {
		slog.Error("no usable price in chart response", slog.String("err", err.Error()), slog.String("rqID", rqID), slog.String("symbol", symbol))
		return model.Quote{}, err
	}

	slog.Debug("YahooApi.GetLatestQuote request complete", slog.String("rqID", rqID), slog.String("symbol", symbol))

	return model.Quote{
		Symbol:    symbol,
		Price:     price,
		FetchedAt: time.Now().UTC(),
	}, nil
}

func (a *YahooApi) GetHistoricalDaily(ctx context.Context, symbol string, start, end time.Time) ([]model.HistoricalPoint, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	url := fmt.Sprintf("/v8/finance/chart/%s", symbol)

	// period2 is exclusive upstream, push it one day past the wanted end.
	params := map[string]string{
		"period1":  strconv.FormatInt(start.UTC().Unix(), 10),
		"period2":  strconv.FormatInt(end.UTC().Add(24*time.Hour).Unix(), 10),
		"interval": "1d",
	}

	slog.Debug("start YahooApi.GetHistoricalDaily request", slog.String("rqID", rqID), slog.String("symbol", symbol))

	resp, err := a.client.R().
		SetHeader("Accept", "application/json").
		SetQueryParams(params).
		Get(url)

	if err != nil {
		slog.Error("error while dialing YahooApi", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return nil, err
	}

	raw, err := a.parseRawChart(resp.Body())
	if err != nil {
		slog.Error("can't parse chart response", slog.String("err", err.Error()), slog.String("rqID", rqID), slog.String("symbol", symbol))
		return nil, err
	}

	points, err := a.historicalPoints(raw)
	if err != nil {
		slog.Error("can't extract daily closes", slog.String("err", err.Error()), slog.String("rqID", rqID), slog.String("symbol", symbol))
		return nil, err
	}

	slog.Debug("YahooApi.GetHistoricalDaily request complete", slog.String("rqID", rqID), slog.String("symbol", symbol), slog.Int("points", len(points)))

	return points, nil
}

func (a *YahooApi) parseRawChart(body []byte) (yahooModel.RawChart, error) {
	raw := yahooModel.RawChart{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return yahooModel.RawChart{}, err
	}

	if raw.Chart.Error != nil {
		if raw.Chart.Error.Code == "Not Found" {
			return yahooModel.RawChart{}, externalApi.ErrNotFound
		}
		return yahooModel.RawChart{}, fmt.Errorf("chart error %s: %s", raw.Chart.Error.Code, raw.Chart.Error.Description)
	}

	if len(raw.Chart.Result) == 0 {
		return yahooModel.RawChart{}, externalApi.ErrNotFound
	}

	return raw, nil
}

func (a *YahooApi) latestPrice(raw yahooModel.RawChart) (decimal.Decimal, error) {
	result := raw.Chart.Result[0]

	if result.Meta.RegularMarketPrice != nil {
		return decimal.NewFromFloat(*result.Meta.RegularMarketPrice), nil
	}

	// fall back to the last non-null close of the range
	if len(result.Indicators.Quote) > 0 {
		closes := result.Indicators.Quote[0].Close
		for i := len(closes) - 1; i >= 0; i-- {
			if closes[i] != nil {
				return decimal.NewFromFloat(*closes[i]), nil
			}
		}
	}

	return decimal.Decimal{}, errors.New("no price in chart result")
}

func (a *YahooApi) historicalPoints(raw yahooModel.RawChart) ([]model.HistoricalPoint, error) {
	result := raw.Chart.Result[0]

	if len(result.Indicators.Quote) == 0 {
		return nil, errors.New("chart result has no quote indicators")
	}

	closes := result.Indicators.Quote[0].Close
	if len(closes) != len(result.Timestamp) {
		return nil, fmt.Errorf("timestamps (%d) and closes (%d) mismatch", len(result.Timestamp), len(closes))
	}

	points := make([]model.HistoricalPoint, 0, len(closes))
	for i, ts := range result.Timestamp {
		if closes[i] == nil {
			continue
		}
		points = append(points, model.HistoricalPoint{
			Date:  time.Unix(ts, 0).UTC().Truncate(24 * time.Hour),
			Close: decimal.NewFromFloat(*closes[i]),
		})
	}
	return points, nil
}

package portfolioService

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/KotFed0t/portfolio_tracker/internal/model"
	"github.com/shopspring/decimal"
)

const dayLayout = "2006-01-02"

// calendarDays expands [start, end] into an inclusive daily calendar in UTC.
// All per-asset price histories are aligned onto this one calendar.
func calendarDays(start, end time.Time) []time.Time {
	startDay := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	endDay := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)

	var days []time.Time
	for day := startDay; !day.After(endDay); day = day.AddDate(0, 0, 1) {
		days = append(days, day)
	}
	return days
}

func dayKey(t time.Time) string {
	return t.UTC().Format(dayLayout)
}

func closesByDay(points []model.HistoricalPoint) map[string]decimal.Decimal {
	closes := make(map[string]decimal.Decimal, len(points))
	for _, point := range points {
		closes[dayKey(point.Date)] = point.Close
	}
	return closes
}

func missingAdvisory(missing []string) string {
	if len(missing) == 0 {
		return ""
	}
	return fmt.Sprintf("Missing historical data for: %s", strings.Join(missing, ", "))
}

// qtyReplayer walks a sorted transaction history day by day, tracking held
// quantity and average cost without re-replaying from scratch per day.
type qtyReplayer struct {
	transactions []model.Transaction
	idx          int
	qty          decimal.Decimal
	avgCost      decimal.Decimal
}

func newQtyReplayer(transactions []model.Transaction) *qtyReplayer {
	return &qtyReplayer{
		transactions: model.SortTransactions(transactions),
		qty:          decimal.Zero,
		avgCost:      decimal.Zero,
	}
}

// advanceTo applies all transactions dated at or before day. Histories are
// validated before they are stored, so oversells cannot occur here; quantity
// is clamped defensively all the same.
func (r *qtyReplayer) advanceTo(day string) (qty, avgCost decimal.Decimal) {
	for r.idx < len(r.transactions) && dayKey(r.transactions[r.idx].Timestamp) <= day {
		tx := r.transactions[r.idx]
		r.idx++

		switch tx.Type {
		case model.TransactionBuy:
			newCostTotal := r.qty.Mul(r.avgCost).Add(tx.Quantity.Mul(tx.Price)).Add(tx.Fees)
			r.qty = r.qty.Add(tx.Quantity)
			if r.qty.IsPositive() {
				r.avgCost = newCostTotal.Div(r.qty)
			}
		case model.TransactionSell:
			r.qty = r.qty.Sub(tx.Quantity)
			if !r.qty.IsPositive() {
				r.qty = decimal.Zero
				r.avgCost = decimal.Zero
			}
		}
	}
	return r.qty, r.avgCost
}

// manualValueStep yields the latest manual value at or before each day as a
// step function, zero before the first update.
type manualValueStep struct {
	updates []model.Transaction
	idx     int
	value   decimal.Decimal
	seen    bool
}

func newManualValueStep(transactions []model.Transaction) *manualValueStep {
	step := &manualValueStep{value: decimal.Zero}
	for _, tx := range model.SortTransactions(transactions) {
		if tx.Type == model.TransactionManualValueUpdate && tx.ManualValue != nil {
			step.updates = append(step.updates, tx)
		}
	}
	return step
}

func (s *manualValueStep) advanceTo(day string) (value decimal.Decimal, known bool) {
	for s.idx < len(s.updates) && dayKey(s.updates[s.idx].Timestamp) <= day {
		s.value = *s.updates[s.idx].ManualValue
		s.seen = true
		s.idx++
	}
	return s.value, s.seen
}

// buyInvestedStep accumulates BUY contributions (qty*price+fees) at or before
// each day. This intentionally ignores SELLs and invested overrides, matching
// the overlay chart's historical behavior; see the companion test for the
// documented mismatch against point-in-time invested totals.
type buyInvestedStep struct {
	buys     []model.Transaction
	idx      int
	invested decimal.Decimal
}

func newBuyInvestedStep(transactions []model.Transaction) *buyInvestedStep {
	step := &buyInvestedStep{invested: decimal.Zero}
	for _, tx := range model.SortTransactions(transactions) {
		if tx.Type == model.TransactionBuy {
			step.buys = append(step.buys, tx)
		}
	}
	return step
}

func (s *buyInvestedStep) advanceTo(day string) decimal.Decimal {
	for s.idx < len(s.buys) && dayKey(s.buys[s.idx].Timestamp) <= day {
		tx := s.buys[s.idx]
		s.invested = s.invested.Add(tx.Quantity.Mul(tx.Price)).Add(tx.Fees)
		s.idx++
	}
	return s.invested
}

// PortfolioValueSeries computes total portfolio value per calendar day.
// Market assets are valued at that day's close, forward-filled from the most
// recent known close (never backward); manual assets are a step function of
// their latest value update. Symbols with no coverage at all are excluded and
// reported rather than failing the series.
func PortfolioValueSeries(
	assets []model.Asset,
	txByAsset map[int64][]model.Transaction,
	histBySymbol map[string][]model.HistoricalPoint,
	start, end time.Time,
) model.ValueSeries {
	days := calendarDays(start, end)

	labels := make([]string, len(days))
	values := make([]decimal.Decimal, len(days))
	for i, day := range days {
		labels[i] = dayKey(day)
		values[i] = decimal.Zero
	}

	var missing []string

	for _, asset := range assets {
		transactions := txByAsset[asset.ID]

		if asset.Kind == model.AssetKindManual {
			step := newManualValueStep(transactions)
			for i := range days {
				value, known := step.advanceTo(labels[i])
				if known {
					values[i] = values[i].Add(value)
				}
			}
			continue
		}

		closes := closesByDay(histBySymbol[asset.Symbol])
		if len(closes) == 0 {
			missing = append(missing, asset.Symbol)
			continue
		}

		replayer := newQtyReplayer(transactions)
		var lastClose *decimal.Decimal

		for i := range days {
			qty, _ := replayer.advanceTo(labels[i])
			if close, ok := closes[labels[i]]; ok {
				lastClose = &close
			}
			if lastClose != nil && qty.IsPositive() {
				values[i] = values[i].Add(qty.Mul(*lastClose))
			}
		}
	}

	sort.Strings(missing)

	return model.ValueSeries{
		Labels:         labels,
		Values:         values,
		MissingSymbols: missing,
		Advisory:       missingAdvisory(missing),
	}
}

// OverlayPnLSeries computes per-asset unrealized PnL series on the shared
// calendar. Basket members are summed into one basket-labeled series and
// dropped from the individually selectable set so the same value cannot be
// charted twice.
func OverlayPnLSeries(
	assets []model.Asset,
	txByAsset map[int64][]model.Transaction,
	baskets []model.BasketDetail,
	histBySymbol map[string][]model.HistoricalPoint,
	start, end time.Time,
) model.PnLSeries {
	days := calendarDays(start, end)

	labels := make([]string, len(days))
	for i, day := range days {
		labels[i] = dayKey(day)
	}

	seriesBySymbol := make(map[string][]decimal.Decimal)
	var missing []string

	assetByID := make(map[int64]model.Asset, len(assets))
	for _, asset := range assets {
		assetByID[asset.ID] = asset
	}

	for _, asset := range assets {
		transactions := txByAsset[asset.ID]
		series := make([]decimal.Decimal, len(days))

		if asset.Kind == model.AssetKindManual {
			valueStep := newManualValueStep(transactions)
			investedStep := newBuyInvestedStep(transactions)
			for i := range days {
				value, known := valueStep.advanceTo(labels[i])
				invested := investedStep.advanceTo(labels[i])
				if known {
					series[i] = value.Sub(invested)
				} else {
					series[i] = decimal.Zero
				}
			}
			seriesBySymbol[asset.Symbol] = series
			continue
		}

		closes := closesByDay(histBySymbol[asset.Symbol])
		if len(closes) == 0 {
			missing = append(missing, asset.Symbol)
			continue
		}

		replayer := newQtyReplayer(transactions)
		var lastClose *decimal.Decimal

		for i := range days {
			qty, avgCost := replayer.advanceTo(labels[i])
			if close, ok := closes[labels[i]]; ok {
				lastClose = &close
			}
			if lastClose != nil && qty.IsPositive() {
				series[i] = lastClose.Sub(avgCost).Mul(qty)
			} else {
				series[i] = decimal.Zero
			}
		}
		seriesBySymbol[asset.Symbol] = series
	}

	// Fold market members into one series per basket.
	for _, basket := range baskets {
		combined := make([]decimal.Decimal, len(days))
		for i := range combined {
			combined[i] = decimal.Zero
		}

		found := false
		for _, member := range basket.Members {
			asset, ok := assetByID[member.AssetID]
			if !ok || asset.Kind != model.AssetKindMarket {
				continue
			}
			memberSeries, ok := seriesBySymbol[asset.Symbol]
			if !ok {
				continue
			}
			for i := range combined {
				combined[i] = combined[i].Add(memberSeries[i])
			}
			delete(seriesBySymbol, asset.Symbol)
			found = true
		}

		if found {
			seriesBySymbol[basket.Name] = combined
		}
	}

	sort.Strings(missing)

	return model.PnLSeries{
		Labels:         labels,
		SeriesByLabel:  seriesBySymbol,
		MissingSymbols: missing,
		Advisory:       missingAdvisory(missing),
	}
}

// BasketCompositeSeries builds the normalized composite performance of a
// basket's active market members with strictly positive held quantity.
// Weights always derive from live held shares; any stored basket weight is
// legacy and ignored. Only dates present for every selected member count
// (strict intersection), and the first such date is normalized to 100.
func BasketCompositeSeries(
	basket model.BasketDetail,
	assetByID map[int64]model.Asset,
	txByAsset map[int64][]model.Transaction,
	histBySymbol map[string][]model.HistoricalPoint,
	start, end time.Time,
) (model.ValueSeries, error) {
	type selectedMember struct {
		symbol string
		qty    decimal.Decimal
		closes map[string]decimal.Decimal
	}

	startKey := dayKey(time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC))
	endKey := dayKey(time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC))

	var selected []selectedMember
	var missing []string

	for _, member := range basket.Members {
		asset, ok := assetByID[member.AssetID]
		if !ok || asset.Kind != model.AssetKindMarket || asset.IsArchived {
			continue
		}

		position, err := ReplayPosition(asset.Kind, txByAsset[asset.ID])
		if err != nil {
			return model.ValueSeries{}, fmt.Errorf("member %s: %w", asset.Symbol, err)
		}
		if !position.Quantity.IsPositive() {
			continue
		}

		closes := closesByDay(histBySymbol[asset.Symbol])
		if len(closes) == 0 {
			missing = append(missing, asset.Symbol)
		}

		selected = append(selected, selectedMember{
			symbol: asset.Symbol,
			qty:    position.Quantity,
			closes: closes,
		})
	}

	sort.Strings(missing)

	if len(selected) == 0 {
		return model.ValueSeries{
			MissingSymbols: missing,
			Advisory:       missingAdvisory(missing),
		}, nil
	}

	// Strict intersection: a day missing for any one member drops the day for
	// the whole composite.
	var intersection []string
	for key := range selected[0].closes {
		if key < startKey || key > endKey {
			continue
		}
		inAll := true
		for _, member := range selected[1:] {
			if _, ok := member.closes[key]; !ok {
				inAll = false
				break
			}
		}
		if inAll {
			intersection = append(intersection, key)
		}
	}
	sort.Strings(intersection)

	labels := make([]string, 0, len(intersection))
	values := make([]decimal.Decimal, 0, len(intersection))

	var base decimal.Decimal
	for i, key := range intersection {
		raw := decimal.Zero
		for _, member := range selected {
			raw = raw.Add(member.qty.Mul(member.closes[key]))
		}
		if i == 0 {
			base = raw
		}

		labels = append(labels, key)
		if base.IsPositive() {
			values = append(values, raw.Div(base).Mul(hundred))
		} else {
			values = append(values, decimal.Zero)
		}
	}

	return model.ValueSeries{
		Labels:         labels,
		Values:         values,
		MissingSymbols: missing,
		Advisory:       missingAdvisory(missing),
	}, nil
}

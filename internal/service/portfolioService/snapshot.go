package portfolioService

import (
	"fmt"
	"sort"
	"strings"

	"github.com/KotFed0t/portfolio_tracker/internal/model"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// BuildSnapshot combines replayed positions with live quotes into the full
// dashboard row set: canonical per-asset rows, derived basket overlay rows,
// group subtotals and grand totals. Assets must be the active (non-archived)
// set; quotes is keyed by asset symbol and a missing entry means the quote is
// unavailable. The builder is pure: it takes an explicit snapshot of state and
// retains nothing.
func BuildSnapshot(
	assets []model.Asset,
	txByAsset map[int64][]model.Transaction,
	baskets []model.BasketDetail,
	quotes map[string]model.Quote,
) (model.Snapshot, error) {
	ordered := make([]model.Asset, len(assets))
	copy(ordered, assets)
	sort.SliceStable(ordered, func(i, j int) bool {
		gi, gj := strings.ToLower(ordered[i].GroupName), strings.ToLower(ordered[j].GroupName)
		if gi != gj {
			return gi < gj
		}
		return strings.ToLower(ordered[i].Symbol) < strings.ToLower(ordered[j].Symbol)
	})

	memberIDs := make(map[int64]struct{})
	for _, basket := range baskets {
		for _, member := range basket.Members {
			memberIDs[member.AssetID] = struct{}{}
		}
	}

	rows := make([]model.SnapshotRow, 0, len(ordered)+len(baskets))
	rowByAssetID := make(map[int64]*model.SnapshotRow, len(ordered))

	for _, asset := range ordered {
		row, err := buildAssetRow(asset, txByAsset[asset.ID], quotes)
		if err != nil {
			return model.Snapshot{}, fmt.Errorf("asset %s: %w", asset.Symbol, err)
		}

		if _, isMember := memberIDs[asset.ID]; isMember {
			// The containing basket row represents this value in the
			// allocation breakdown; keeping both would double count.
			row.CountsInAllocation = false
		}

		rows = append(rows, row)
		rowByAssetID[asset.ID] = &rows[len(rows)-1]
	}

	for _, basket := range baskets {
		rows = append(rows, buildBasketRow(basket, rowByAssetID))
	}

	snapshot := model.Snapshot{
		Rows:                 rows,
		BasketMemberAssetIDs: memberIDs,
	}

	groupIdx := make(map[string]int)
	for _, row := range rows {
		pnl := decimal.Zero
		if row.UnrealizedPnL != nil {
			pnl = *row.UnrealizedPnL
		}

		if !row.CountsInTotals {
			snapshot.DerivedTotalValue = snapshot.DerivedTotalValue.Add(row.CurrentValue)
			snapshot.DerivedTotalPnL = snapshot.DerivedTotalPnL.Add(pnl)
			continue
		}

		snapshot.CanonicalTotalValue = snapshot.CanonicalTotalValue.Add(row.CurrentValue)
		snapshot.CanonicalTotalPnL = snapshot.CanonicalTotalPnL.Add(pnl)

		idx, ok := groupIdx[row.GroupName]
		if !ok {
			idx = len(snapshot.GroupTotals)
			groupIdx[row.GroupName] = idx
			snapshot.GroupTotals = append(snapshot.GroupTotals, model.GroupTotal{Name: row.GroupName})
		}
		snapshot.GroupTotals[idx].Value = snapshot.GroupTotals[idx].Value.Add(row.CurrentValue)
		snapshot.GroupTotals[idx].PnL = snapshot.GroupTotals[idx].PnL.Add(pnl)
	}

	applyAllocationPercentages(snapshot.Rows)

	return snapshot, nil
}

func buildAssetRow(asset model.Asset, transactions []model.Transaction, quotes map[string]model.Quote) (model.SnapshotRow, error) {
	position, err := ReplayPosition(asset.Kind, transactions)
	if err != nil {
		return model.SnapshotRow{}, err
	}

	row := model.SnapshotRow{
		RowKind:            model.RowKindAsset,
		AssetID:            asset.ID,
		Symbol:             asset.Symbol,
		Name:               asset.Name,
		GroupName:          asset.GroupName,
		AssetKind:          asset.Kind,
		CountsInTotals:     true,
		CountsInAllocation: true,
	}

	if asset.Kind == model.AssetKindManual {
		one := decimal.NewFromInt(1)
		row.Quantity = &one
		if position.Invested.IsPositive() {
			invested := position.Invested
			row.AvgCost = &invested
		}
		value := position.CurrentValue
		row.CurrentPrice = &value
		row.CurrentValue = value
		row.UnrealizedPnL = position.UnrealizedPnL
		row.AsOf = position.ValueAsOf
		return row, nil
	}

	qty := position.Quantity
	avgCost := position.AvgCost
	row.Quantity = &qty
	row.AvgCost = &avgCost

	quote, ok := quotes[asset.Symbol]
	if !ok {
		// Quote unavailable: the row renders without a price and is flagged
		// stale, never with a fabricated value.
		row.QuoteStale = true
		row.CurrentValue = decimal.Zero
		return row, nil
	}

	price := quote.Price
	row.CurrentPrice = &price
	row.CurrentValue = qty.Mul(price)
	pnl := price.Sub(avgCost).Mul(qty)
	row.UnrealizedPnL = &pnl
	asOf := quote.FetchedAt
	row.AsOf = &asOf
	row.QuoteStale = quote.Stale

	return row, nil
}

func buildBasketRow(basket model.BasketDetail, rowByAssetID map[int64]*model.SnapshotRow) model.SnapshotRow {
	row := model.SnapshotRow{
		RowKind:            model.RowKindBasket,
		BasketID:           basket.ID,
		Symbol:             fmt.Sprintf("BASKET:%d", basket.ID),
		Name:               basket.Name,
		CountsInTotals:     false,
		CountsInAllocation: true,
	}

	value := decimal.Zero
	pnl := decimal.Zero
	pnlDefined := true

	for _, member := range basket.Members {
		memberRow, ok := rowByAssetID[member.AssetID]
		if !ok { // archived members drop out of the overlay
			continue
		}
		value = value.Add(memberRow.CurrentValue)
		if memberRow.QuoteStale {
			row.QuoteStale = true
		}
		if memberRow.UnrealizedPnL == nil {
			pnlDefined = false
			continue
		}
		pnl = pnl.Add(*memberRow.UnrealizedPnL)
	}

	row.CurrentValue = value
	if pnlDefined {
		row.UnrealizedPnL = &pnl
	}

	return row
}

func applyAllocationPercentages(rows []model.SnapshotRow) {
	total := decimal.Zero
	for _, row := range rows {
		if row.CountsInAllocation {
			total = total.Add(row.CurrentValue)
		}
	}

	if !total.IsPositive() {
		return
	}

	for i := range rows {
		if rows[i].CountsInAllocation {
			rows[i].AllocationPct = rows[i].CurrentValue.Div(total).Mul(hundred)
		}
	}
}

// AllocationByGroup breaks canonical value down by group. Basket overlay rows
// carry no group and never appear here.
func AllocationByGroup(snapshot model.Snapshot) model.Allocation {
	allocation := model.Allocation{}
	for _, total := range snapshot.GroupTotals {
		allocation.Labels = append(allocation.Labels, total.Name)
		allocation.Values = append(allocation.Values, total.Value)
	}
	allocation.Percentages = allocationPercentages(allocation.Values)
	return allocation
}

// AllocationByAsset breaks value down per selectable row: basket rows stand in
// for their members, so member assets are excluded from the breakdown.
func AllocationByAsset(snapshot model.Snapshot) model.Allocation {
	allocation := model.Allocation{}
	for _, row := range snapshot.Rows {
		if !row.CountsInAllocation {
			continue
		}
		label := row.Symbol
		if row.RowKind == model.RowKindBasket {
			label = row.Name
		}
		allocation.Labels = append(allocation.Labels, label)
		allocation.Values = append(allocation.Values, row.CurrentValue)
	}
	allocation.Percentages = allocationPercentages(allocation.Values)
	return allocation
}

func allocationPercentages(values []decimal.Decimal) []decimal.Decimal {
	percentages := make([]decimal.Decimal, len(values))

	total := decimal.Zero
	for _, value := range values {
		total = total.Add(value)
	}

	if !total.IsPositive() {
		return percentages
	}

	for i, value := range values {
		percentages[i] = value.Div(total).Mul(hundred)
	}
	return percentages
}

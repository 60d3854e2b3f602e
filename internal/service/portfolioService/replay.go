package portfolioService

import (
	"github.com/KotFed0t/portfolio_tracker/internal/model"
	"github.com/KotFed0t/portfolio_tracker/internal/service"
	"github.com/shopspring/decimal"
)

// ReplayPosition folds an asset's transaction history into its current
// position. It is a pure function: no I/O, no retained state, and the same
// input always produces the same output. Transactions are re-sorted by the
// canonical (timestamp, id) key before folding, so callers may pass rows in
// any order.
func ReplayPosition(kind model.AssetKind, transactions []model.Transaction) (model.Position, error) {
	switch kind {
	case model.AssetKindMarket:
		return replayMarket(model.SortTransactions(transactions))
	case model.AssetKindManual:
		return replayManual(model.SortTransactions(transactions))
	default:
		return model.Position{}, service.NewValidationError("unknown asset kind: %s", kind)
	}
}

func replayMarket(transactions []model.Transaction) (model.Position, error) {
	qty := decimal.Zero
	avgCost := decimal.Zero

	for _, tx := range transactions {
		switch tx.Type {
		case model.TransactionManualValueUpdate:
			// Invalid for market assets; the validator rejects it up front,
			// replay just skips it.
			continue
		case model.TransactionBuy:
			if !tx.Quantity.IsPositive() {
				return model.Position{}, service.NewValidationError("BUY quantity must be positive")
			}
			newCostTotal := qty.Mul(avgCost).Add(tx.Quantity.Mul(tx.Price)).Add(tx.Fees)
			qty = qty.Add(tx.Quantity)
			if qty.IsPositive() {
				avgCost = newCostTotal.Div(qty)
			} else {
				avgCost = decimal.Zero
			}
		case model.TransactionSell:
			if !tx.Quantity.IsPositive() {
				return model.Position{}, service.NewValidationError("SELL quantity must be positive")
			}
			if tx.Quantity.GreaterThan(qty) {
				return model.Position{}, service.NewValidationError("cannot sell more than currently held quantity")
			}
			// Sells never move the average cost of the remaining lot.
			qty = qty.Sub(tx.Quantity)
			if qty.IsZero() {
				avgCost = decimal.Zero
			}
		default:
			return model.Position{}, service.NewValidationError("unsupported transaction type: %s", tx.Type)
		}
	}

	return model.Position{Quantity: qty, AvgCost: avgCost}, nil
}

func replayManual(transactions []model.Transaction) (model.Position, error) {
	qty := decimal.Zero
	avgCost := decimal.Zero
	invested := decimal.Zero

	var latestValue *decimal.Decimal
	var latestValueAt *model.Transaction

	for i := range transactions {
		tx := transactions[i]
		switch tx.Type {
		case model.TransactionBuy:
			if !tx.Quantity.IsPositive() {
				return model.Position{}, service.NewValidationError("BUY quantity must be positive")
			}
			cost := tx.Quantity.Mul(tx.Price).Add(tx.Fees)
			newCostTotal := qty.Mul(avgCost).Add(cost)
			invested = invested.Add(cost)
			qty = qty.Add(tx.Quantity)
			if qty.IsPositive() {
				avgCost = newCostTotal.Div(qty)
			} else {
				avgCost = decimal.Zero
			}
		case model.TransactionSell:
			if !tx.Quantity.IsPositive() {
				return model.Position{}, service.NewValidationError("SELL quantity must be positive")
			}
			if tx.Quantity.GreaterThan(qty) {
				return model.Position{}, service.NewValidationError("cannot sell more than currently held quantity")
			}
			// Dispose at average cost so the remaining invested basis stays
			// consistent with the remaining quantity.
			invested = invested.Sub(tx.Quantity.Mul(avgCost))
			qty = qty.Sub(tx.Quantity)
			if qty.IsZero() {
				avgCost = decimal.Zero
			}
		case model.TransactionManualValueUpdate:
			if tx.ManualValue == nil {
				return model.Position{}, service.NewValidationError("MANUAL_VALUE_UPDATE requires a value")
			}
			v := *tx.ManualValue
			latestValue = &v
			latestValueAt = &transactions[i]
			if tx.InvestedOverride != nil {
				invested = *tx.InvestedOverride
				if qty.IsPositive() {
					avgCost = invested.Div(qty)
				}
			}
		default:
			return model.Position{}, service.NewValidationError("unsupported transaction type: %s", tx.Type)
		}
	}

	pos := model.Position{
		Quantity: qty,
		AvgCost:  avgCost,
		Invested: invested,
	}

	if latestValue != nil {
		pos.CurrentValue = *latestValue
		asOf := latestValueAt.Timestamp
		pos.ValueAsOf = &asOf
	}

	if invested.IsPositive() {
		pnl := pos.CurrentValue.Sub(invested)
		pos.UnrealizedPnL = &pnl
	}

	return pos, nil
}

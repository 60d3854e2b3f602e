package portfolioService

import (
	"github.com/KotFed0t/portfolio_tracker/internal/model"
	"github.com/KotFed0t/portfolio_tracker/internal/service"
)

// ValidateTransactions replays the full candidate history (existing rows plus
// the proposed addition or edit, merged by id) and returns the resulting
// position, or a ValidationError when the sequence would violate an
// invariant. The whole timeline is always replayed so that editing an early
// transaction that invalidates a later SELL is caught. Nothing is mutated;
// callers must run this before committing.
func ValidateTransactions(kind model.AssetKind, existing []model.Transaction, candidate model.Transaction) (model.Position, error) {
	merged := make([]model.Transaction, 0, len(existing)+1)
	replaced := false
	for _, tx := range existing {
		if candidate.ID != 0 && tx.ID == candidate.ID {
			merged = append(merged, candidate)
			replaced = true
			continue
		}
		merged = append(merged, tx)
	}
	if !replaced {
		merged = append(merged, candidate)
	}

	return ValidateHistory(kind, merged)
}

// ValidateHistory checks a complete transaction timeline, used both for new
// and edited rows and for deletion (validating the remaining history).
func ValidateHistory(kind model.AssetKind, transactions []model.Transaction) (model.Position, error) {
	if kind == model.AssetKindMarket {
		for _, tx := range transactions {
			if tx.Type == model.TransactionManualValueUpdate {
				return model.Position{}, service.NewValidationError("market assets do not support MANUAL_VALUE_UPDATE transactions")
			}
		}
	}

	return ReplayPosition(kind, transactions)
}

package model

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionBuy               TransactionType = "BUY"
	TransactionSell              TransactionType = "SELL"
	TransactionManualValueUpdate TransactionType = "MANUAL_VALUE_UPDATE"
)

type Transaction struct {
	ID               int64
	AssetID          int64
	Type             TransactionType
	Timestamp        time.Time
	Quantity         decimal.Decimal
	Price            decimal.Decimal
	Fees             decimal.Decimal
	ManualValue      *decimal.Decimal
	InvestedOverride *decimal.Decimal
	Note             string
}

// SortTransactions orders transactions by (timestamp, id). The id tie-break
// makes the order total and stable for same-timestamp rows, so replays are
// deterministic.
func SortTransactions(transactions []Transaction) []Transaction {
	sorted := make([]Transaction, len(transactions))
	copy(sorted, transactions)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Timestamp.Equal(sorted[j].Timestamp) {
			return sorted[i].ID < sorted[j].ID
		}
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})
	return sorted
}

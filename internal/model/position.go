package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position is the result of replaying an asset's transaction history. It is
// always recomputed from the log and never persisted.
type Position struct {
	Quantity      decimal.Decimal
	AvgCost       decimal.Decimal
	Invested      decimal.Decimal
	CurrentValue  decimal.Decimal
	ValueAsOf     *time.Time
	UnrealizedPnL *decimal.Decimal
}

package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type RowKind string

const (
	RowKindAsset  RowKind = "asset"
	RowKindBasket RowKind = "basket"
)

// SnapshotRow is one dashboard row. Canonical rows (RowKindAsset) carry
// CountsInTotals=true; derived basket rows are display-only overlays and never
// feed canonical totals.
type SnapshotRow struct {
	RowKind            RowKind
	AssetID            int64
	BasketID           int64
	Symbol             string
	Name               string
	GroupName          string
	AssetKind          AssetKind
	Quantity           *decimal.Decimal
	AvgCost            *decimal.Decimal
	CurrentPrice       *decimal.Decimal
	CurrentValue       decimal.Decimal
	UnrealizedPnL      *decimal.Decimal
	AllocationPct      decimal.Decimal
	AsOf               *time.Time
	QuoteStale         bool
	CountsInTotals     bool
	CountsInAllocation bool
}

type GroupTotal struct {
	Name  string
	Value decimal.Decimal
	PnL   decimal.Decimal
}

type Snapshot struct {
	Rows                 []SnapshotRow
	GroupTotals          []GroupTotal
	CanonicalTotalValue  decimal.Decimal
	CanonicalTotalPnL    decimal.Decimal
	DerivedTotalValue    decimal.Decimal
	DerivedTotalPnL      decimal.Decimal
	BasketMemberAssetIDs map[int64]struct{}
}

type Allocation struct {
	Labels      []string
	Values      []decimal.Decimal
	Percentages []decimal.Decimal
}

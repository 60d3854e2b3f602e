package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Quote struct {
	Symbol    string
	Price     decimal.Decimal
	FetchedAt time.Time
	Stale     bool
	Warning   string
}

type HistoricalPoint struct {
	Date  time.Time
	Close decimal.Decimal
}

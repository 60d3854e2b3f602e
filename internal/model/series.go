package model

import "github.com/shopspring/decimal"

// ValueSeries is a date-indexed series for charting. MissingSymbols lists
// symbols with no historical coverage for the requested range; Advisory is a
// human-readable note about partial data, not an error.
type ValueSeries struct {
	Labels         []string
	Values         []decimal.Decimal
	MissingSymbols []string
	Advisory       string
}

// PnLSeries carries one unrealized-PnL series per selectable label. Basket
// members are folded into their basket's series and removed from the
// individually selectable set.
type PnLSeries struct {
	Labels         []string
	SeriesByLabel  map[string][]decimal.Decimal
	MissingSymbols []string
	Advisory       string
}

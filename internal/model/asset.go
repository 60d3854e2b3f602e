package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type AssetKind string

const (
	AssetKindMarket AssetKind = "market"
	AssetKindManual AssetKind = "manual"
)

type Asset struct {
	ID         int64
	Symbol     string
	Name       string
	Kind       AssetKind
	GroupID    int64
	GroupName  string
	IsArchived bool
	CreatedAt  time.Time
}

type Group struct {
	ID   int64
	Name string
}

type Basket struct {
	ID        int64
	Name      string
	CreatedAt time.Time
}

// BasketMember links a basket to an asset. Weight is a legacy column kept for
// backward compatibility with old stored baskets; valuation never reads it.
type BasketMember struct {
	AssetID int64
	Weight  *decimal.Decimal
}

type BasketDetail struct {
	Basket
	Members []BasketMember
}

type User struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

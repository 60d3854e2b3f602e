package dbModel

import (
	"time"

	"github.com/shopspring/decimal"
)

type Asset struct {
	ID         int64     `db:"asset_id"`
	Symbol     string    `db:"symbol"`
	Name       string    `db:"name"`
	Kind       string    `db:"kind"`
	GroupID    int64     `db:"group_id"`
	GroupName  string    `db:"group_name"`
	IsArchived bool      `db:"is_archived"`
	CreatedAt  time.Time `db:"dt_create"`
}

type Group struct {
	ID   int64  `db:"group_id"`
	Name string `db:"name"`
}

type Transaction struct {
	ID               int64            `db:"transaction_id"`
	AssetID          int64            `db:"asset_id"`
	Type             string           `db:"type"`
	Timestamp        time.Time        `db:"ts"`
	Quantity         *decimal.Decimal `db:"quantity"`
	Price            *decimal.Decimal `db:"price"`
	Fees             decimal.Decimal  `db:"fees"`
	ManualValue      *decimal.Decimal `db:"manual_value"`
	InvestedOverride *decimal.Decimal `db:"invested_override"`
	Note             *string          `db:"note"`
}

type Basket struct {
	ID        int64     `db:"basket_id"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"dt_create"`
}

type BasketMember struct {
	BasketID int64            `db:"basket_id"`
	AssetID  int64            `db:"asset_id"`
	Weight   *decimal.Decimal `db:"weight"`
}

type User struct {
	ID           int64     `db:"user_id"`
	Username     string    `db:"username"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"dt_create"`
}

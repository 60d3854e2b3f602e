package dbConverter

import (
	"github.com/KotFed0t/portfolio_tracker/internal/model"
	"github.com/KotFed0t/portfolio_tracker/internal/model/dbModel"
	"github.com/shopspring/decimal"
)

func ConvertAsset(dbAsset dbModel.Asset) model.Asset {
	return model.Asset{
		ID:         dbAsset.ID,
		Symbol:     dbAsset.Symbol,
		Name:       dbAsset.Name,
		Kind:       model.AssetKind(dbAsset.Kind),
		GroupID:    dbAsset.GroupID,
		GroupName:  dbAsset.GroupName,
		IsArchived: dbAsset.IsArchived,
		CreatedAt:  dbAsset.CreatedAt,
	}
}

func ConvertGroup(dbGroup dbModel.Group) model.Group {
	return model.Group{
		ID:   dbGroup.ID,
		Name: dbGroup.Name,
	}
}

func ConvertTransaction(dbTx dbModel.Transaction) model.Transaction {
	tx := model.Transaction{
		ID:               dbTx.ID,
		AssetID:          dbTx.AssetID,
		Type:             model.TransactionType(dbTx.Type),
		Timestamp:        dbTx.Timestamp.UTC(),
		Fees:             dbTx.Fees,
		ManualValue:      dbTx.ManualValue,
		InvestedOverride: dbTx.InvestedOverride,
	}

	if dbTx.Quantity != nil {
		tx.Quantity = *dbTx.Quantity
	} else {
		tx.Quantity = decimal.Zero
	}

	if dbTx.Price != nil {
		tx.Price = *dbTx.Price
	} else {
		tx.Price = decimal.Zero
	}

	if dbTx.Note != nil {
		tx.Note = *dbTx.Note
	}

	return tx
}

func ConvertBasket(dbBasket dbModel.Basket) model.Basket {
	return model.Basket{
		ID:        dbBasket.ID,
		Name:      dbBasket.Name,
		CreatedAt: dbBasket.CreatedAt,
	}
}

func ConvertBasketMember(dbMember dbModel.BasketMember) model.BasketMember {
	return model.BasketMember{
		AssetID: dbMember.AssetID,
		Weight:  dbMember.Weight,
	}
}

func ConvertUser(dbUser dbModel.User) model.User {
	return model.User{
		ID:           dbUser.ID,
		Username:     dbUser.Username,
		PasswordHash: dbUser.PasswordHash,
		CreatedAt:    dbUser.CreatedAt,
	}
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/KotFed0t/portfolio_tracker/data/repository"
	"github.com/KotFed0t/portfolio_tracker/internal/converter/dbConverter"
	"github.com/KotFed0t/portfolio_tracker/internal/model"
	"github.com/KotFed0t/portfolio_tracker/internal/model/dbModel"
	"github.com/KotFed0t/portfolio_tracker/utils"
)

const transactionColumns = `transaction_id, asset_id, type, ts, quantity, price, fees, manual_value, invested_override, note`

func (r *Postgres) InsertTransaction(ctx context.Context, trx model.Transaction) (transactionID int64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.InsertTransaction"
	query := `
		INSERT INTO transactions(asset_id, type, ts, quantity, price, fees, manual_value, invested_override, note)
		VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING transaction_id
	`

	slog.Debug("InsertTransaction start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query), slog.Int64("assetID", trx.AssetID))
	defer func() {
		if err != nil {
			slog.Error("InsertTransaction failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("InsertTransaction completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	var note *string
	if trx.Note != "" {
		note = &trx.Note
	}

	err = r.txOrDb(ctx).QueryRowContext(
		ctx,
		query,
		trx.AssetID,
		string(trx.Type),
		trx.Timestamp.UTC(),
		trx.Quantity,
		trx.Price,
		trx.Fees,
		trx.ManualValue,
		trx.InvestedOverride,
		note,
	).Scan(&transactionID)
	if err != nil {
		return 0, err
	}

	return transactionID, nil
}

func (r *Postgres) UpdateTransaction(ctx context.Context, trx model.Transaction) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.UpdateTransaction"
	query := `
		UPDATE transactions
		SET type = $1, ts = $2, quantity = $3, price = $4, fees = $5, manual_value = $6, invested_override = $7, note = $8
		WHERE transaction_id = $9 AND asset_id = $10
	`

	slog.Debug("UpdateTransaction start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query), slog.Int64("transactionID", trx.ID))
	defer func() {
		if err != nil {
			slog.Error("UpdateTransaction failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("UpdateTransaction completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	var note *string
	if trx.Note != "" {
		note = &trx.Note
	}

	res, err := r.txOrDb(ctx).ExecContext(
		ctx,
		query,
		string(trx.Type),
		trx.Timestamp.UTC(),
		trx.Quantity,
		trx.Price,
		trx.Fees,
		trx.ManualValue,
		trx.InvestedOverride,
		note,
		trx.ID,
		trx.AssetID,
	)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func (r *Postgres) DeleteTransaction(ctx context.Context, transactionID int64) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.DeleteTransaction"
	query := `DELETE FROM transactions WHERE transaction_id = $1`

	slog.Debug("DeleteTransaction start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("DeleteTransaction failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("DeleteTransaction completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	res, err := r.txOrDb(ctx).ExecContext(ctx, query, transactionID)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func (r *Postgres) GetTransaction(ctx context.Context, transactionID int64) (trx model.Transaction, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetTransaction"
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE transaction_id = $1`

	slog.Debug("GetTransaction start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetTransaction failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetTransaction completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	dbTrx := dbModel.Transaction{}
	err = r.txOrDb(ctx).QueryRowxContext(ctx, query, transactionID).StructScan(&dbTrx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Transaction{}, repository.ErrNotFound
		}
		return model.Transaction{}, err
	}

	return dbConverter.ConvertTransaction(dbTrx), nil
}

func (r *Postgres) getTransactions(ctx context.Context, op, query string, args ...any) (transactions []model.Transaction, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	slog.Debug(op+" start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error(op+" failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug(op+" completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	rows, err := r.txOrDb(ctx).QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	for rows.Next() {
		var dbTrx dbModel.Transaction
		err = rows.StructScan(&dbTrx)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, dbConverter.ConvertTransaction(dbTrx))
	}

	return transactions, nil
}

func (r *Postgres) GetTransactionsByAsset(ctx context.Context, assetID int64) ([]model.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE asset_id = $1 ORDER BY ts, transaction_id`
	return r.getTransactions(ctx, "Postgres.GetTransactionsByAsset", query, assetID)
}

func (r *Postgres) GetAllTransactions(ctx context.Context) ([]model.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions ORDER BY ts, transaction_id`
	return r.getTransactions(ctx, "Postgres.GetAllTransactions", query)
}

func (r *Postgres) CountTransactionsByAsset(ctx context.Context, assetID int64) (count int, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.CountTransactionsByAsset"
	query := `SELECT count(*) FROM transactions WHERE asset_id = $1`

	slog.Debug("CountTransactionsByAsset start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("CountTransactionsByAsset failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("CountTransactionsByAsset completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	err = r.txOrDb(ctx).QueryRowContext(ctx, query, assetID).Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}

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
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

func (r *Postgres) InsertBasket(ctx context.Context, name string) (basketID int64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.InsertBasket"
	query := `INSERT INTO baskets(name) VALUES($1) RETURNING basket_id`

	slog.Debug("InsertBasket start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("InsertBasket failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("InsertBasket completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	err = r.txOrDb(ctx).QueryRowContext(ctx, query, name).Scan(&basketID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return 0, repository.ErrAlreadyExists
		}
		return 0, err
	}

	return basketID, nil
}

func (r *Postgres) GetBasket(ctx context.Context, basketID int64) (basket model.Basket, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetBasket"
	query := `SELECT basket_id, name, dt_create FROM baskets WHERE basket_id = $1`

	slog.Debug("GetBasket start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetBasket failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetBasket completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	dbBasket := dbModel.Basket{}
	err = r.txOrDb(ctx).QueryRowxContext(ctx, query, basketID).StructScan(&dbBasket)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Basket{}, repository.ErrNotFound
		}
		return model.Basket{}, err
	}

	return dbConverter.ConvertBasket(dbBasket), nil
}

func (r *Postgres) GetBaskets(ctx context.Context) (baskets []model.Basket, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetBaskets"
	query := `SELECT basket_id, name, dt_create FROM baskets ORDER BY name`

	slog.Debug("GetBaskets start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetBaskets failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetBaskets completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	rows, err := r.txOrDb(ctx).QueryxContext(ctx, query)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	for rows.Next() {
		var dbBasket dbModel.Basket
		err = rows.StructScan(&dbBasket)
		if err != nil {
			return nil, err
		}
		baskets = append(baskets, dbConverter.ConvertBasket(dbBasket))
	}

	return baskets, nil
}

func (r *Postgres) GetBasketMembers(ctx context.Context, basketID int64) (members []model.BasketMember, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetBasketMembers"
	query := `
		SELECT basket_id, asset_id, weight
		FROM basket_members
		WHERE basket_id = $1
		ORDER BY asset_id
	`

	slog.Debug("GetBasketMembers start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetBasketMembers failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetBasketMembers completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	rows, err := r.txOrDb(ctx).QueryxContext(ctx, query, basketID)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	for rows.Next() {
		var dbMember dbModel.BasketMember
		err = rows.StructScan(&dbMember)
		if err != nil {
			return nil, err
		}
		members = append(members, dbConverter.ConvertBasketMember(dbMember))
	}

	return members, nil
}

// GetBasketDetails loads every basket with its members in two queries.
func (r *Postgres) GetBasketDetails(ctx context.Context) (details []model.BasketDetail, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetBasketDetails"
	query := `
		SELECT basket_id, asset_id, weight
		FROM basket_members
		ORDER BY basket_id, asset_id
	`

	slog.Debug("GetBasketDetails start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		if err != nil {
			slog.Error("GetBasketDetails failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetBasketDetails completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	baskets, err := r.GetBaskets(ctx)
	if err != nil {
		return nil, err
	}

	membersByBasket := make(map[int64][]model.BasketMember)

	rows, err := r.txOrDb(ctx).QueryxContext(ctx, query)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	for rows.Next() {
		var dbMember dbModel.BasketMember
		err = rows.StructScan(&dbMember)
		if err != nil {
			return nil, err
		}
		membersByBasket[dbMember.BasketID] = append(membersByBasket[dbMember.BasketID], dbConverter.ConvertBasketMember(dbMember))
	}

	details = make([]model.BasketDetail, 0, len(baskets))
	for _, basket := range baskets {
		details = append(details, model.BasketDetail{
			Basket:  basket,
			Members: membersByBasket[basket.ID],
		})
	}

	return details, nil
}

func (r *Postgres) RenameBasket(ctx context.Context, basketID int64, name string) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.RenameBasket"
	query := `UPDATE baskets SET name = $1 WHERE basket_id = $2`

	slog.Debug("RenameBasket start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("RenameBasket failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("RenameBasket completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	res, err := r.txOrDb(ctx).ExecContext(ctx, query, name, basketID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return repository.ErrAlreadyExists
		}
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

func (r *Postgres) DeleteBasket(ctx context.Context, basketID int64) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.DeleteBasket"
	query := `DELETE FROM baskets WHERE basket_id = $1`

	slog.Debug("DeleteBasket start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("DeleteBasket failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("DeleteBasket completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	res, err := r.txOrDb(ctx).ExecContext(ctx, query, basketID)
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

func (r *Postgres) AddBasketMember(ctx context.Context, basketID, assetID int64, weight *decimal.Decimal) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.AddBasketMember"
	query := `INSERT INTO basket_members(basket_id, asset_id, weight) VALUES($1, $2, $3)`

	slog.Debug("AddBasketMember start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query), slog.Int64("basketID", basketID), slog.Int64("assetID", assetID))
	defer func() {
		if err != nil {
			slog.Error("AddBasketMember failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("AddBasketMember completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	_, err = r.txOrDb(ctx).ExecContext(ctx, query, basketID, assetID, weight)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return repository.ErrAlreadyExists
		}
		return err
	}

	return nil
}

func (r *Postgres) RemoveBasketMember(ctx context.Context, basketID, assetID int64) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.RemoveBasketMember"
	query := `DELETE FROM basket_members WHERE basket_id = $1 AND asset_id = $2`

	slog.Debug("RemoveBasketMember start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("RemoveBasketMember failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("RemoveBasketMember completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	res, err := r.txOrDb(ctx).ExecContext(ctx, query, basketID, assetID)
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

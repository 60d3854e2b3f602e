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
)

const uniqueViolationCode = "23505"

func (r *Postgres) InsertGroup(ctx context.Context, name string) (groupID int64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.InsertGroup"
	query := `INSERT INTO groups(name) VALUES($1) RETURNING group_id`

	slog.Debug("InsertGroup start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("InsertGroup failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("InsertGroup completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	err = r.txOrDb(ctx).QueryRowContext(ctx, query, name).Scan(&groupID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return 0, repository.ErrAlreadyExists
		}
		return 0, err
	}

	return groupID, nil
}

func (r *Postgres) GetGroups(ctx context.Context) (groups []model.Group, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetGroups"
	query := `SELECT group_id, name FROM groups ORDER BY name`

	slog.Debug("GetGroups start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetGroups failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetGroups completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	rows, err := r.txOrDb(ctx).QueryxContext(ctx, query)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	for rows.Next() {
		var group dbModel.Group
		err = rows.StructScan(&group)
		if err != nil {
			return nil, err
		}
		groups = append(groups, dbConverter.ConvertGroup(group))
	}

	return groups, nil
}

func (r *Postgres) RenameGroup(ctx context.Context, groupID int64, name string) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.RenameGroup"
	query := `UPDATE groups SET name = $1 WHERE group_id = $2`

	slog.Debug("RenameGroup start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("RenameGroup failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("RenameGroup completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	res, err := r.txOrDb(ctx).ExecContext(ctx, query, name, groupID)
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

func (r *Postgres) DeleteGroup(ctx context.Context, groupID int64) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.DeleteGroup"
	query := `DELETE FROM groups WHERE group_id = $1`

	slog.Debug("DeleteGroup start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("DeleteGroup failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("DeleteGroup completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	res, err := r.txOrDb(ctx).ExecContext(ctx, query, groupID)
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

func (r *Postgres) CountAssetsInGroup(ctx context.Context, groupID int64) (count int, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.CountAssetsInGroup"
	query := `SELECT count(*) FROM assets WHERE group_id = $1`

	slog.Debug("CountAssetsInGroup start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("CountAssetsInGroup failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("CountAssetsInGroup completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	err = r.txOrDb(ctx).QueryRowContext(ctx, query, groupID).Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}

func (r *Postgres) InsertAsset(ctx context.Context, asset model.Asset) (assetID int64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.InsertAsset"
	query := `
		INSERT INTO assets(symbol, name, kind, group_id)
		VALUES($1, $2, $3, $4)
		RETURNING asset_id
	`

	slog.Debug("InsertAsset start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query), slog.String("symbol", asset.Symbol))
	defer func() {
		if err != nil {
			slog.Error("InsertAsset failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("InsertAsset completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	err = r.txOrDb(ctx).QueryRowContext(ctx, query, asset.Symbol, asset.Name, string(asset.Kind), asset.GroupID).Scan(&assetID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return 0, repository.ErrAlreadyExists
		}
		return 0, err
	}

	return assetID, nil
}

func (r *Postgres) GetAsset(ctx context.Context, assetID int64) (asset model.Asset, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetAsset"
	query := `
		SELECT a.asset_id, a.symbol, a.name, a.kind, a.group_id, g.name AS group_name, a.is_archived, a.dt_create
		FROM assets a
		JOIN groups g USING(group_id)
		WHERE a.asset_id = $1
	`

	slog.Debug("GetAsset start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetAsset failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetAsset completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	dbAsset := dbModel.Asset{}
	err = r.txOrDb(ctx).QueryRowxContext(ctx, query, assetID).StructScan(&dbAsset)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Asset{}, repository.ErrNotFound
		}
		return model.Asset{}, err
	}

	return dbConverter.ConvertAsset(dbAsset), nil
}

func (r *Postgres) GetAssets(ctx context.Context, includeArchived bool) (assets []model.Asset, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetAssets"
	query := `
		SELECT a.asset_id, a.symbol, a.name, a.kind, a.group_id, g.name AS group_name, a.is_archived, a.dt_create
		FROM assets a
		JOIN groups g USING(group_id)
		WHERE ($1 OR NOT a.is_archived)
		ORDER BY g.name, a.symbol
	`

	slog.Debug("GetAssets start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetAssets failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetAssets completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	rows, err := r.txOrDb(ctx).QueryxContext(ctx, query, includeArchived)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	for rows.Next() {
		var dbAsset dbModel.Asset
		err = rows.StructScan(&dbAsset)
		if err != nil {
			return nil, err
		}
		assets = append(assets, dbConverter.ConvertAsset(dbAsset))
	}

	return assets, nil
}

// UpdateAsset changes name and group only. Symbol and kind are frozen once
// the asset exists, the service layer never passes them here.
func (r *Postgres) UpdateAsset(ctx context.Context, assetID int64, name string, groupID int64) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.UpdateAsset"
	query := `UPDATE assets SET name = $1, group_id = $2 WHERE asset_id = $3`

	slog.Debug("UpdateAsset start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("UpdateAsset failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("UpdateAsset completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	res, err := r.txOrDb(ctx).ExecContext(ctx, query, name, groupID, assetID)
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

func (r *Postgres) SetAssetArchived(ctx context.Context, assetID int64, archived bool) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.SetAssetArchived"
	query := `UPDATE assets SET is_archived = $1 WHERE asset_id = $2`

	slog.Debug("SetAssetArchived start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query), slog.Bool("archived", archived))
	defer func() {
		if err != nil {
			slog.Error("SetAssetArchived failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("SetAssetArchived completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	res, err := r.txOrDb(ctx).ExecContext(ctx, query, archived, assetID)
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

func (r *Postgres) DeleteAsset(ctx context.Context, assetID int64) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.DeleteAsset"
	query := `DELETE FROM assets WHERE asset_id = $1`

	slog.Debug("DeleteAsset start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("DeleteAsset failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("DeleteAsset completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	res, err := r.txOrDb(ctx).ExecContext(ctx, query, assetID)
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

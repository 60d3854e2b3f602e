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

func (r *Postgres) InsertUser(ctx context.Context, username, passwordHash string) (userID int64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.InsertUser"
	query := `INSERT INTO users(username, password_hash) VALUES($1, $2) RETURNING user_id`

	slog.Debug("InsertUser start", slog.String("rqID", rqID), slog.String("op", op), slog.String("username", username))
	defer func() {
		if err != nil {
			slog.Error("InsertUser failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("InsertUser completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	err = r.txOrDb(ctx).QueryRowContext(ctx, query, username, passwordHash).Scan(&userID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return 0, repository.ErrAlreadyExists
		}
		return 0, err
	}

	return userID, nil
}

func (r *Postgres) GetUserByUsername(ctx context.Context, username string) (user model.User, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetUserByUsername"
	query := `SELECT user_id, username, password_hash, dt_create FROM users WHERE username = $1`

	slog.Debug("GetUserByUsername start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		if err != nil {
			slog.Error("GetUserByUsername failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetUserByUsername completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	dbUser := dbModel.User{}
	err = r.txOrDb(ctx).QueryRowxContext(ctx, query, username).StructScan(&dbUser)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, repository.ErrNotFound
		}
		return model.User{}, err
	}

	return dbConverter.ConvertUser(dbUser), nil
}

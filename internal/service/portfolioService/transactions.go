package portfolioService

import (
	"context"
	"errors"
	"log/slog"

	"github.com/KotFed0t/portfolio_tracker/data/repository"
	"github.com/KotFed0t/portfolio_tracker/internal/model"
	"github.com/KotFed0t/portfolio_tracker/internal/service"
	"github.com/KotFed0t/portfolio_tracker/utils"
)

func (s *PortfolioService) ListTransactions(ctx context.Context, assetID int64) ([]model.Transaction, error) {
	return s.repo.GetTransactionsByAsset(ctx, assetID)
}

// AddTransaction validates the full candidate timeline and persists the row
// when replay succeeds. The returned position is the state after the append.
func (s *PortfolioService) AddTransaction(ctx context.Context, trx model.Transaction) (transactionID int64, position model.Position, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.AddTransaction"

	slog.Debug("AddTransaction start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("assetID", trx.AssetID), slog.String("type", string(trx.Type)))
	defer func() {
		slog.Debug("AddTransaction finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	asset, err := s.repo.GetAsset(ctx, trx.AssetID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, model.Position{}, service.ErrNotFound
		}
		slog.Error("got error from repo.GetAsset", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return 0, model.Position{}, err
	}

	trx.ID = 0

	err = s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.repo.GetTransactionsByAsset(ctx, trx.AssetID)
		if err != nil {
			slog.Error("got error from repo.GetTransactionsByAsset", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
			return err
		}

		position, err = ValidateTransactions(asset.Kind, existing, trx)
		if err != nil {
			return err
		}

		transactionID, err = s.repo.InsertTransaction(ctx, trx)
		if err != nil {
			slog.Error("got error from repo.InsertTransaction", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
			return err
		}

		return nil
	})
	if err != nil {
		return 0, model.Position{}, err
	}

	return transactionID, position, nil
}

// UpdateTransaction replaces one row and revalidates the whole timeline,
// so an edit that would make a later SELL an oversell is rejected.
func (s *PortfolioService) UpdateTransaction(ctx context.Context, trx model.Transaction) (position model.Position, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.UpdateTransaction"

	slog.Debug("UpdateTransaction start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("transactionID", trx.ID))
	defer func() {
		slog.Debug("UpdateTransaction finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	if trx.ID == 0 {
		return model.Position{}, service.NewValidationError("transaction id is required for an edit")
	}

	current, err := s.repo.GetTransaction(ctx, trx.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Position{}, service.ErrNotFound
		}
		slog.Error("got error from repo.GetTransaction", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Position{}, err
	}

	if current.AssetID != trx.AssetID {
		return model.Position{}, service.NewValidationError("a transaction cannot move to another asset")
	}

	asset, err := s.repo.GetAsset(ctx, trx.AssetID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Position{}, service.ErrNotFound
		}
		slog.Error("got error from repo.GetAsset", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Position{}, err
	}

	err = s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.repo.GetTransactionsByAsset(ctx, trx.AssetID)
		if err != nil {
			slog.Error("got error from repo.GetTransactionsByAsset", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
			return err
		}

		position, err = ValidateTransactions(asset.Kind, existing, trx)
		if err != nil {
			return err
		}

		err = s.repo.UpdateTransaction(ctx, trx)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return service.ErrNotFound
			}
			slog.Error("got error from repo.UpdateTransaction", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
			return err
		}

		return nil
	})
	if err != nil {
		return model.Position{}, err
	}

	return position, nil
}

// DeleteTransaction removes a row only when the remaining timeline still
// replays cleanly.
func (s *PortfolioService) DeleteTransaction(ctx context.Context, transactionID int64) (position model.Position, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.DeleteTransaction"

	slog.Debug("DeleteTransaction start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("transactionID", transactionID))
	defer func() {
		slog.Debug("DeleteTransaction finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	current, err := s.repo.GetTransaction(ctx, transactionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Position{}, service.ErrNotFound
		}
		slog.Error("got error from repo.GetTransaction", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Position{}, err
	}

	asset, err := s.repo.GetAsset(ctx, current.AssetID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Position{}, service.ErrNotFound
		}
		slog.Error("got error from repo.GetAsset", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Position{}, err
	}

	err = s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.repo.GetTransactionsByAsset(ctx, current.AssetID)
		if err != nil {
			slog.Error("got error from repo.GetTransactionsByAsset", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
			return err
		}

		remaining := make([]model.Transaction, 0, len(existing))
		for _, tx := range existing {
			if tx.ID != transactionID {
				remaining = append(remaining, tx)
			}
		}

		position, err = ValidateHistory(asset.Kind, remaining)
		if err != nil {
			return err
		}

		err = s.repo.DeleteTransaction(ctx, transactionID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return service.ErrNotFound
			}
			slog.Error("got error from repo.DeleteTransaction", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
			return err
		}

		return nil
	})
	if err != nil {
		return model.Position{}, err
	}

	return position, nil
}

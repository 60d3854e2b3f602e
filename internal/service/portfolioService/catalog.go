package portfolioService

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/KotFed0t/portfolio_tracker/data/repository"
	"github.com/KotFed0t/portfolio_tracker/internal/model"
	"github.com/KotFed0t/portfolio_tracker/internal/service"
	"github.com/KotFed0t/portfolio_tracker/utils"
	"github.com/shopspring/decimal"
)

func (s *PortfolioService) CreateGroup(ctx context.Context, name string) (int64, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.CreateGroup"

	name = strings.TrimSpace(name)
	if name == "" {
		return 0, service.NewValidationError("group name must not be empty")
	}

	groupID, err := s.repo.InsertGroup(ctx, name)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return 0, service.NewValidationError("group %q already exists", name)
		}
		slog.Error("got error from repo.InsertGroup", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return 0, err
	}

	return groupID, nil
}

func (s *PortfolioService) ListGroups(ctx context.Context) ([]model.Group, error) {
	return s.repo.GetGroups(ctx)
}

func (s *PortfolioService) RenameGroup(ctx context.Context, groupID int64, name string) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.RenameGroup"

	name = strings.TrimSpace(name)
	if name == "" {
		return service.NewValidationError("group name must not be empty")
	}

	err := s.repo.RenameGroup(ctx, groupID, name)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return service.ErrNotFound
		case errors.Is(err, repository.ErrAlreadyExists):
			return service.NewValidationError("group %q already exists", name)
		}
		slog.Error("got error from repo.RenameGroup", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	return nil
}

// DeleteGroup refuses while any asset still references the group.
func (s *PortfolioService) DeleteGroup(ctx context.Context, groupID int64) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.DeleteGroup"

	return s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		count, err := s.repo.CountAssetsInGroup(ctx, groupID)
		if err != nil {
			slog.Error("got error from repo.CountAssetsInGroup", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
			return err
		}
		if count > 0 {
			return service.NewValidationError("group still contains %d assets", count)
		}

		err = s.repo.DeleteGroup(ctx, groupID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return service.ErrNotFound
			}
			slog.Error("got error from repo.DeleteGroup", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
			return err
		}

		return nil
	})
}

func (s *PortfolioService) CreateAsset(ctx context.Context, symbol, name string, kind model.AssetKind, groupID int64) (int64, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.CreateAsset"

	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	name = strings.TrimSpace(name)

	if symbol == "" {
		return 0, service.NewValidationError("asset symbol must not be empty")
	}
	if kind != model.AssetKindMarket && kind != model.AssetKindManual {
		return 0, service.NewValidationError("unknown asset kind %q", kind)
	}
	if name == "" {
		name = symbol
	}

	// a market symbol must resolve to a price before it can be tracked
	if kind == model.AssetKindMarket {
		if _, err := s.quotes.GetQuote(ctx, symbol); err != nil {
			return 0, service.NewValidationError("symbol %q has no resolvable quote", symbol)
		}
	}

	assetID, err := s.repo.InsertAsset(ctx, model.Asset{
		Symbol:  symbol,
		Name:    name,
		Kind:    kind,
		GroupID: groupID,
	})
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return 0, service.NewValidationError("asset %q already exists", symbol)
		}
		slog.Error("got error from repo.InsertAsset", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return 0, err
	}

	return assetID, nil
}

func (s *PortfolioService) GetAsset(ctx context.Context, assetID int64) (model.Asset, error) {
	asset, err := s.repo.GetAsset(ctx, assetID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Asset{}, service.ErrNotFound
		}
		return model.Asset{}, err
	}
	return asset, nil
}

func (s *PortfolioService) ListAssets(ctx context.Context, includeArchived bool) ([]model.Asset, error) {
	return s.repo.GetAssets(ctx, includeArchived)
}

// UpdateAsset changes display name and group. Symbol and kind are frozen
// for the asset's lifetime, the transaction log depends on them.
func (s *PortfolioService) UpdateAsset(ctx context.Context, assetID int64, name string, groupID int64) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.UpdateAsset"

	name = strings.TrimSpace(name)
	if name == "" {
		return service.NewValidationError("asset name must not be empty")
	}

	err := s.repo.UpdateAsset(ctx, assetID, name, groupID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return service.ErrNotFound
		}
		slog.Error("got error from repo.UpdateAsset", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	return nil
}

func (s *PortfolioService) SetAssetArchived(ctx context.Context, assetID int64, archived bool) error {
	err := s.repo.SetAssetArchived(ctx, assetID, archived)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return service.ErrNotFound
		}
		return err
	}
	return nil
}

// DeleteAsset is only allowed for assets with an empty transaction log.
// Anything with history should be archived to preserve the log.
func (s *PortfolioService) DeleteAsset(ctx context.Context, assetID int64) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.DeleteAsset"

	return s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		count, err := s.repo.CountTransactionsByAsset(ctx, assetID)
		if err != nil {
			slog.Error("got error from repo.CountTransactionsByAsset", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
			return err
		}
		if count > 0 {
			return service.ErrHasTransactions
		}

		err = s.repo.DeleteAsset(ctx, assetID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return service.ErrNotFound
			}
			slog.Error("got error from repo.DeleteAsset", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
			return err
		}

		return nil
	})
}

func (s *PortfolioService) CreateBasket(ctx context.Context, name string) (int64, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.CreateBasket"

	name = strings.TrimSpace(name)
	if name == "" {
		return 0, service.NewValidationError("basket name must not be empty")
	}

	basketID, err := s.repo.InsertBasket(ctx, name)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return 0, service.NewValidationError("basket %q already exists", name)
		}
		slog.Error("got error from repo.InsertBasket", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return 0, err
	}

	return basketID, nil
}

func (s *PortfolioService) ListBaskets(ctx context.Context) ([]model.BasketDetail, error) {
	return s.repo.GetBasketDetails(ctx)
}

func (s *PortfolioService) RenameBasket(ctx context.Context, basketID int64, name string) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.RenameBasket"

	name = strings.TrimSpace(name)
	if name == "" {
		return service.NewValidationError("basket name must not be empty")
	}

	err := s.repo.RenameBasket(ctx, basketID, name)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return service.ErrNotFound
		case errors.Is(err, repository.ErrAlreadyExists):
			return service.NewValidationError("basket %q already exists", name)
		}
		slog.Error("got error from repo.RenameBasket", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	return nil
}

func (s *PortfolioService) DeleteBasket(ctx context.Context, basketID int64) error {
	err := s.repo.DeleteBasket(ctx, basketID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return service.ErrNotFound
		}
		return err
	}
	return nil
}

// AddBasketMember links a market asset into a basket. The optional weight is
// stored for reference only, valuation always derives weights from held
// shares.
func (s *PortfolioService) AddBasketMember(ctx context.Context, basketID, assetID int64, weight *decimal.Decimal) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.AddBasketMember"

	asset, err := s.repo.GetAsset(ctx, assetID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return service.ErrNotFound
		}
		slog.Error("got error from repo.GetAsset", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	if asset.Kind != model.AssetKindMarket {
		return service.NewValidationError("only market assets can join a basket, %q is %s", asset.Symbol, asset.Kind)
	}

	err = s.repo.AddBasketMember(ctx, basketID, assetID, weight)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return service.NewValidationError("asset %q is already in the basket", asset.Symbol)
		}
		slog.Error("got error from repo.AddBasketMember", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	return nil
}

func (s *PortfolioService) RemoveBasketMember(ctx context.Context, basketID, assetID int64) error {
	err := s.repo.RemoveBasketMember(ctx, basketID, assetID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return service.ErrNotFound
		}
		return err
	}
	return nil
}

package portfolioService

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/KotFed0t/portfolio_tracker/config"
	"github.com/KotFed0t/portfolio_tracker/data/repository"
	"github.com/KotFed0t/portfolio_tracker/internal/model"
	"github.com/KotFed0t/portfolio_tracker/internal/service"
	"github.com/KotFed0t/portfolio_tracker/utils"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

type Repository interface {
	WithinTransaction(ctx context.Context, tFunc func(ctx context.Context) error) error

	InsertGroup(ctx context.Context, name string) (groupID int64, err error)
	GetGroups(ctx context.Context) ([]model.Group, error)
	RenameGroup(ctx context.Context, groupID int64, name string) error
	DeleteGroup(ctx context.Context, groupID int64) error
	CountAssetsInGroup(ctx context.Context, groupID int64) (int, error)

	InsertAsset(ctx context.Context, asset model.Asset) (assetID int64, err error)
	GetAsset(ctx context.Context, assetID int64) (model.Asset, error)
	GetAssets(ctx context.Context, includeArchived bool) ([]model.Asset, error)
	UpdateAsset(ctx context.Context, assetID int64, name string, groupID int64) error
	SetAssetArchived(ctx context.Context, assetID int64, archived bool) error
	DeleteAsset(ctx context.Context, assetID int64) error

	InsertTransaction(ctx context.Context, trx model.Transaction) (transactionID int64, err error)
	UpdateTransaction(ctx context.Context, trx model.Transaction) error
	DeleteTransaction(ctx context.Context, transactionID int64) error
	GetTransaction(ctx context.Context, transactionID int64) (model.Transaction, error)
	GetTransactionsByAsset(ctx context.Context, assetID int64) ([]model.Transaction, error)
	GetAllTransactions(ctx context.Context) ([]model.Transaction, error)
	CountTransactionsByAsset(ctx context.Context, assetID int64) (int, error)

	InsertBasket(ctx context.Context, name string) (basketID int64, err error)
	GetBasket(ctx context.Context, basketID int64) (model.Basket, error)
	GetBasketMembers(ctx context.Context, basketID int64) ([]model.BasketMember, error)
	GetBasketDetails(ctx context.Context) ([]model.BasketDetail, error)
	RenameBasket(ctx context.Context, basketID int64, name string) error
	DeleteBasket(ctx context.Context, basketID int64) error
	AddBasketMember(ctx context.Context, basketID, assetID int64, weight *decimal.Decimal) error
	RemoveBasketMember(ctx context.Context, basketID, assetID int64) error

	GetUserByUsername(ctx context.Context, username string) (model.User, error)
}

type Quotes interface {
	GetQuote(ctx context.Context, symbol string) (model.Quote, error)
	GetQuotes(ctx context.Context, symbols []string) map[string]model.Quote
	GetHistoricalDaily(ctx context.Context, symbol string, start, end time.Time) ([]model.HistoricalPoint, error)
}

type Sessions interface {
	Create(ctx context.Context, userID int64) (token string, err error)
	Delete(ctx context.Context, token string) error
}

type ReportGenerator interface {
	Generate(ctx context.Context, snapshot model.Snapshot, transactions []model.Transaction, assetsByID map[int64]model.Asset) (fileBytes []byte, fileExtension string, err error)
}

type CloudStorage interface {
	UploadFile(ctx context.Context, reader io.Reader, filename string) (downloadLink string, err error)
	DeleteOldFiles(ctx context.Context) error
}

type PortfolioService struct {
	cfg          *config.Config
	repo         Repository
	quotes       Quotes
	sessions     Sessions
	reportGen    ReportGenerator
	cloudStorage CloudStorage
}

func New(cfg *config.Config, repo Repository, quotes Quotes, sessions Sessions, reportGen ReportGenerator, cloudStorage CloudStorage) *PortfolioService {
	return &PortfolioService{
		cfg:          cfg,
		repo:         repo,
		quotes:       quotes,
		sessions:     sessions,
		reportGen:    reportGen,
		cloudStorage: cloudStorage,
	}
}

// portfolioState is everything the pure engine needs to derive a view.
type portfolioState struct {
	assets    []model.Asset
	txByAsset map[int64][]model.Transaction
	baskets   []model.BasketDetail
}

func (s *PortfolioService) loadState(ctx context.Context) (portfolioState, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.loadState"

	assets, err := s.repo.GetAssets(ctx, false)
	if err != nil {
		slog.Error("got error from repo.GetAssets", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return portfolioState{}, err
	}

	transactions, err := s.repo.GetAllTransactions(ctx)
	if err != nil {
		slog.Error("got error from repo.GetAllTransactions", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return portfolioState{}, err
	}

	txByAsset := make(map[int64][]model.Transaction)
	for _, trx := range transactions {
		txByAsset[trx.AssetID] = append(txByAsset[trx.AssetID], trx)
	}

	baskets, err := s.repo.GetBasketDetails(ctx)
	if err != nil {
		slog.Error("got error from repo.GetBasketDetails", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return portfolioState{}, err
	}

	return portfolioState{assets: assets, txByAsset: txByAsset, baskets: baskets}, nil
}

func marketSymbols(assets []model.Asset) []string {
	symbols := make([]string, 0, len(assets))
	for _, asset := range assets {
		if asset.Kind == model.AssetKindMarket {
			symbols = append(symbols, asset.Symbol)
		}
	}
	return symbols
}

// Dashboard builds the full snapshot view from the current transaction log
// and the freshest quotes available.
func (s *PortfolioService) Dashboard(ctx context.Context) (model.Snapshot, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.Dashboard"

	slog.Debug("Dashboard start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("Dashboard finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	state, err := s.loadState(ctx)
	if err != nil {
		return model.Snapshot{}, err
	}

	quotes := s.quotes.GetQuotes(ctx, marketSymbols(state.assets))

	snapshot, err := BuildSnapshot(state.assets, state.txByAsset, state.baskets, quotes)
	if err != nil {
		slog.Error("got error from BuildSnapshot", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Snapshot{}, err
	}

	return snapshot, nil
}

// Allocations returns the group and per-asset allocation breakdowns of the
// current snapshot.
func (s *PortfolioService) Allocations(ctx context.Context) (byGroup, byAsset model.Allocation, err error) {
	snapshot, err := s.Dashboard(ctx)
	if err != nil {
		return model.Allocation{}, model.Allocation{}, err
	}
	return AllocationByGroup(snapshot), AllocationByAsset(snapshot), nil
}

func (s *PortfolioService) chartRange(start, end time.Time) (time.Time, time.Time, error) {
	if end.IsZero() {
		end = time.Now().UTC()
	}
	if start.IsZero() {
		start = end.AddDate(0, 0, -s.cfg.ChartDefaultDays)
	}
	if start.After(end) {
		return time.Time{}, time.Time{}, service.NewValidationError("start cannot be after end")
	}
	return start, end, nil
}

func (s *PortfolioService) loadHistory(ctx context.Context, assets []model.Asset, start, end time.Time) map[string][]model.HistoricalPoint {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.loadHistory"

	histBySymbol := make(map[string][]model.HistoricalPoint)
	for _, symbol := range marketSymbols(assets) {
		points, err := s.quotes.GetHistoricalDaily(ctx, symbol, start, end)
		if err != nil {
			// absent from the map means the engine reports it as missing
			slog.Warn("no historical data for symbol", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol), slog.String("err", err.Error()))
			continue
		}
		histBySymbol[symbol] = points
	}
	return histBySymbol
}

// ValueSeries charts total portfolio value per day over [start, end].
func (s *PortfolioService) ValueSeries(ctx context.Context, start, end time.Time) (model.ValueSeries, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.ValueSeries"

	slog.Debug("ValueSeries start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("ValueSeries finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	start, end, err := s.chartRange(start, end)
	if err != nil {
		return model.ValueSeries{}, err
	}

	state, err := s.loadState(ctx)
	if err != nil {
		return model.ValueSeries{}, err
	}

	histBySymbol := s.loadHistory(ctx, state.assets, start, end)

	return PortfolioValueSeries(state.assets, state.txByAsset, histBySymbol, start, end), nil
}

// PnLSeries charts per-asset unrealized PnL overlays, with basket members
// folded into their basket's series.
func (s *PortfolioService) PnLSeries(ctx context.Context, start, end time.Time) (model.PnLSeries, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.PnLSeries"

	slog.Debug("PnLSeries start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("PnLSeries finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	start, end, err := s.chartRange(start, end)
	if err != nil {
		return model.PnLSeries{}, err
	}

	state, err := s.loadState(ctx)
	if err != nil {
		return model.PnLSeries{}, err
	}

	histBySymbol := s.loadHistory(ctx, state.assets, start, end)

	return OverlayPnLSeries(state.assets, state.txByAsset, state.baskets, histBySymbol, start, end), nil
}

// BasketComposite charts the normalized composite of one basket.
func (s *PortfolioService) BasketComposite(ctx context.Context, basketID int64, start, end time.Time) (model.ValueSeries, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.BasketComposite"

	slog.Debug("BasketComposite start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("basketID", basketID))
	defer func() {
		slog.Debug("BasketComposite finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("basketID", basketID))
	}()

	start, end, err := s.chartRange(start, end)
	if err != nil {
		return model.ValueSeries{}, err
	}

	basket, err := s.repo.GetBasket(ctx, basketID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.ValueSeries{}, service.ErrNotFound
		}
		slog.Error("got error from repo.GetBasket", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.ValueSeries{}, err
	}

	members, err := s.repo.GetBasketMembers(ctx, basketID)
	if err != nil {
		slog.Error("got error from repo.GetBasketMembers", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.ValueSeries{}, err
	}

	state, err := s.loadState(ctx)
	if err != nil {
		return model.ValueSeries{}, err
	}

	assetByID := make(map[int64]model.Asset, len(state.assets))
	for _, asset := range state.assets {
		assetByID[asset.ID] = asset
	}

	histBySymbol := s.loadHistory(ctx, state.assets, start, end)

	return BasketCompositeSeries(
		model.BasketDetail{Basket: basket, Members: members},
		assetByID,
		state.txByAsset,
		histBySymbol,
		start, end,
	)
}

// GetPosition replays one asset's full transaction history.
func (s *PortfolioService) GetPosition(ctx context.Context, assetID int64) (model.Position, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.GetPosition"

	asset, err := s.repo.GetAsset(ctx, assetID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Position{}, service.ErrNotFound
		}
		slog.Error("got error from repo.GetAsset", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Position{}, err
	}

	transactions, err := s.repo.GetTransactionsByAsset(ctx, assetID)
	if err != nil {
		slog.Error("got error from repo.GetTransactionsByAsset", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Position{}, err
	}

	return ReplayPosition(asset.Kind, transactions)
}

// PollQuote serves the lightweight dashboard price poll.
func (s *PortfolioService) PollQuote(ctx context.Context, symbol string) (model.Quote, error) {
	return s.quotes.GetQuote(ctx, symbol)
}

// Login checks credentials and opens a session.
func (s *PortfolioService) Login(ctx context.Context, username, password string) (token string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.Login"

	slog.Debug("Login start", slog.String("rqID", rqID), slog.String("op", op), slog.String("username", username))
	defer func() {
		slog.Debug("Login finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	user, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", service.ErrInvalidCredentials
		}
		slog.Error("got error from repo.GetUserByUsername", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", service.ErrInvalidCredentials
	}

	token, err = s.sessions.Create(ctx, user.ID)
	if err != nil {
		slog.Error("got error from sessions.Create", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return "", err
	}

	return token, nil
}

func (s *PortfolioService) Logout(ctx context.Context, token string) error {
	return s.sessions.Delete(ctx, token)
}

// RefreshQuotes warms the quote cache for every active market asset. Run on
// a schedule so the dashboard rarely waits on the provider.
func (s *PortfolioService) RefreshQuotes(ctx context.Context) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.RefreshQuotes"

	slog.Debug("RefreshQuotes start", slog.String("rqID", rqID), slog.String("op", op))

	assets, err := s.repo.GetAssets(ctx, false)
	if err != nil {
		slog.Error("got error from repo.GetAssets", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	symbols := marketSymbols(assets)
	quotes := s.quotes.GetQuotes(ctx, symbols)

	slog.Info("RefreshQuotes finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int("requested", len(symbols)), slog.Int("resolved", len(quotes)))

	return nil
}

// BackupReports renders the current portfolio to xlsx and uploads it to
// cloud storage.
func (s *PortfolioService) BackupReports(ctx context.Context) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.BackupReports"

	slog.Debug("BackupReports start", slog.String("rqID", rqID), slog.String("op", op))

	snapshot, err := s.Dashboard(ctx)
	if err != nil {
		return err
	}

	transactions, err := s.repo.GetAllTransactions(ctx)
	if err != nil {
		slog.Error("got error from repo.GetAllTransactions", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	assets, err := s.repo.GetAssets(ctx, true)
	if err != nil {
		slog.Error("got error from repo.GetAssets", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	assetsByID := make(map[int64]model.Asset, len(assets))
	for _, asset := range assets {
		assetsByID[asset.ID] = asset
	}

	fileBytes, ext, err := s.reportGen.Generate(ctx, snapshot, transactions, assetsByID)
	if err != nil {
		slog.Error("got error from reportGen.Generate", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	filename := fmt.Sprintf("portfolio_%s%s", time.Now().UTC().Format("2006-01-02_150405"), ext)

	link, err := s.cloudStorage.UploadFile(ctx, bytes.NewReader(fileBytes), filename)
	if err != nil {
		slog.Error("got error from cloudStorage.UploadFile", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	slog.Info("BackupReports finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("link", link))

	return nil
}

// CleanupCloudStorage prunes old backups.
func (s *PortfolioService) CleanupCloudStorage(ctx context.Context) error {
	return s.cloudStorage.DeleteOldFiles(ctx)
}

package rest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/KotFed0t/portfolio_tracker/internal/model"
	"github.com/KotFed0t/portfolio_tracker/internal/service"
	"github.com/KotFed0t/portfolio_tracker/internal/transport/rest/middleware"
	"github.com/KotFed0t/portfolio_tracker/utils"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type PortfolioService interface {
	Login(ctx context.Context, username, password string) (token string, err error)
	Logout(ctx context.Context, token string) error

	Dashboard(ctx context.Context) (model.Snapshot, error)
	Allocations(ctx context.Context) (byGroup, byAsset model.Allocation, err error)
	ValueSeries(ctx context.Context, start, end time.Time) (model.ValueSeries, error)
	PnLSeries(ctx context.Context, start, end time.Time) (model.PnLSeries, error)
	BasketComposite(ctx context.Context, basketID int64, start, end time.Time) (model.ValueSeries, error)
	PollQuote(ctx context.Context, symbol string) (model.Quote, error)

	CreateGroup(ctx context.Context, name string) (int64, error)
	ListGroups(ctx context.Context) ([]model.Group, error)
	RenameGroup(ctx context.Context, groupID int64, name string) error
	DeleteGroup(ctx context.Context, groupID int64) error

	CreateAsset(ctx context.Context, symbol, name string, kind model.AssetKind, groupID int64) (int64, error)
	GetAsset(ctx context.Context, assetID int64) (model.Asset, error)
	ListAssets(ctx context.Context, includeArchived bool) ([]model.Asset, error)
	UpdateAsset(ctx context.Context, assetID int64, name string, groupID int64) error
	SetAssetArchived(ctx context.Context, assetID int64, archived bool) error
	DeleteAsset(ctx context.Context, assetID int64) error
	GetPosition(ctx context.Context, assetID int64) (model.Position, error)

	ListTransactions(ctx context.Context, assetID int64) ([]model.Transaction, error)
	AddTransaction(ctx context.Context, trx model.Transaction) (int64, model.Position, error)
	UpdateTransaction(ctx context.Context, trx model.Transaction) (model.Position, error)
	DeleteTransaction(ctx context.Context, transactionID int64) (model.Position, error)

	CreateBasket(ctx context.Context, name string) (int64, error)
	ListBaskets(ctx context.Context) ([]model.BasketDetail, error)
	RenameBasket(ctx context.Context, basketID int64, name string) error
	DeleteBasket(ctx context.Context, basketID int64) error
	AddBasketMember(ctx context.Context, basketID, assetID int64, weight *decimal.Decimal) error
	RemoveBasketMember(ctx context.Context, basketID, assetID int64) error
}

type Controller struct {
	portfolioService PortfolioService
}

func NewController(portfolioService PortfolioService) *Controller {
	return &Controller{portfolioService: portfolioService}
}

func (ctrl *Controller) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response", slog.String("err", err.Error()))
	}
}

func (ctrl *Controller) writeError(w http.ResponseWriter, r *http.Request, err error) {
	rqID := utils.GetRequestIDFromCtx(r.Context())

	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		ctrl.writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": ve.Reason})
	case errors.Is(err, service.ErrNotFound):
		ctrl.writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, service.ErrInvalidCredentials):
		ctrl.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
	case errors.Is(err, service.ErrHasTransactions):
		ctrl.writeJSON(w, http.StatusConflict, map[string]string{"error": "asset has transactions, archive it instead"})
	case errors.Is(err, service.ErrQuoteUnavailable):
		ctrl.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "quote unavailable"})
	default:
		slog.Error("internal error", slog.String("rqID", rqID), slog.String("err", err.Error()))
		ctrl.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func (ctrl *Controller) pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}

// chartRange parses optional from/to query params (YYYY-MM-DD). Zero values
// let the service apply its default window.
func (ctrl *Controller) chartRange(r *http.Request) (start, end time.Time, err error) {
	if raw := r.URL.Query().Get("from"); raw != "" {
		start, err = time.Parse("2006-01-02", raw)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		end, err = time.Parse("2006-01-02", raw)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	return start, end, nil
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (ctrl *Controller) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctrl.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	token, err := ctrl.portfolioService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		ctrl.writeError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "session",
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	ctrl.writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (ctrl *Controller) Logout(w http.ResponseWriter, r *http.Request) {
	token := middleware.TokenFromRequest(r)
	if token != "" {
		if err := ctrl.portfolioService.Logout(r.Context(), token); err != nil {
			ctrl.writeError(w, r, err)
			return
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "session",
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})

	ctrl.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (ctrl *Controller) Dashboard(w http.ResponseWriter, r *http.Request) {
	snapshot, err := ctrl.portfolioService.Dashboard(r.Context())
	if err != nil {
		ctrl.writeError(w, r, err)
		return
	}
	ctrl.writeJSON(w, http.StatusOK, snapshot)
}

func (ctrl *Controller) Allocations(w http.ResponseWriter, r *http.Request) {
	byGroup, byAsset, err := ctrl.portfolioService.Allocations(r.Context())
	if err != nil {
		ctrl.writeError(w, r, err)
		return
	}
	ctrl.writeJSON(w, http.StatusOK, map[string]model.Allocation{
		"byGroup": byGroup,
		"byAsset": byAsset,
	})
}

func (ctrl *Controller) ValueSeries(w http.ResponseWriter, r *http.Request) {
	start, end, err := ctrl.chartRange(r)
	if err != nil {
		ctrl.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid date, expected YYYY-MM-DD"})
		return
	}

	series, err := ctrl.portfolioService.ValueSeries(r.Context(), start, end)
	if err != nil {
		ctrl.writeError(w, r, err)
		return
	}
	ctrl.writeJSON(w, http.StatusOK, series)
}

func (ctrl *Controller) PnLSeries(w http.ResponseWriter, r *http.Request) {
	start, end, err := ctrl.chartRange(r)
	if err != nil {
		ctrl.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid date, expected YYYY-MM-DD"})
		return
	}

	series, err := ctrl.portfolioService.PnLSeries(r.Context(), start, end)
	if err != nil {
		ctrl.writeError(w, r, err)
		return
	}
	ctrl.writeJSON(w, http.StatusOK, series)
}

func (ctrl *Controller) BasketComposite(w http.ResponseWriter, r *http.Request) {
	basketID, err := ctrl.pathID(r, "basketID")
	if err != nil {
		ctrl.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid basket id"})
		return
	}

	start, end, err := ctrl.chartRange(r)
	if err != nil {
		ctrl.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid date, expected YYYY-MM-DD"})
		return
	}

	series, err := ctrl.portfolioService.BasketComposite(r.Context(), basketID, start, end)
	if err != nil {
		ctrl.writeError(w, r, err)
		return
	}
	ctrl.writeJSON(w, http.StatusOK, series)
}

func (ctrl *Controller) PollQuote(w http.ResponseWriter, r *http.Request) {
	symbol := chi.URLParam(r, "symbol")

	quote, err := ctrl.portfolioService.PollQuote(r.Context(), symbol)
	if err != nil {
		ctrl.writeError(w, r, err)
		return
	}
	ctrl.writeJSON(w, http.StatusOK, quote)
}

package rest

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/KotFed0t/portfolio_tracker/internal/model"
	"github.com/shopspring/decimal"
)

type nameRequest struct {
	Name string `json:"name"`
}

func (ctrl *Controller) CreateGroup(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctrl.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	groupID, err := ctrl.portfolioService.CreateGroup(r.Context(), req.Name)
	if err != nil {
		ctrl.writeError(w, r, err)
		return
	}
	ctrl.writeJSON(w, http.StatusCreated, map[string]int64{"groupId": groupID})
}

func (ctrl *Controller) ListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := ctrl.portfolioService.ListGroups(r.Context())
	if err != nil {
		ctrl.writeError(w, r, err)
		return
	}
	ctrl.writeJSON(w, http.StatusOK, groups)
}

func (ctrl *Controller) RenameGroup(w http.ResponseWriter, r *http.Request) {
	groupID, err := ctrl.pathID(r, "groupID")
	if err != nil {
		ctrl.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid group id"})
		return
	}

	var req nameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctrl.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if err := ctrl.portfolioService.RenameGroup(r.Context(), groupID, req.Name); err != nil {
		ctrl.writeError(w, r, err)
		return
	}
	ctrl.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (ctrl *Controller) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	groupID, err := ctrl.pathID(r, "groupID")
	if err != nil {
		ctrl.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid group id"})
		return
	}

	if err := ctrl.portfolioService.DeleteGroup(r.Context(), groupID); err != nil {
		ctrl.writeError(w, r, err)
		return
	}
	ctrl.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type createAssetRequest struct {
	Symbol  string `json:"symbol"`
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	GroupID int64  `json:"groupId"`
}

func (ctrl *Controller) CreateAsset(w http.ResponseWriter, r *http.Request) {
	var req createAssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctrl.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	assetID, err := ctrl.portfolioService.CreateAsset(r.Context(), req.Symbol, req.Name, model.AssetKind(req.Kind), req.GroupID)
	if err != nil {
		ctrl.writeError(w, r, err)
		return
	}
	ctrl.writeJSON(w, http.StatusCreated, map[string]int64{"assetId": assetID})
}

func (ctrl *Controller) ListAssets(w http.ResponseWriter, r *http.Request) {
	includeArchived := r.URL.Query().Get("includeArchived") == "true"

	assets, err := ctrl.portfolioService.ListAssets(r.Context(), includeArchived)
	if err != nil {
		ctrl.writeError(w, r, err)
		return
	}
	ctrl.writeJSON(w, http.StatusOK, assets)
}

func (ctrl *Controller) GetAsset(w http.ResponseWriter, r *http.Request) {
	assetID, err := ctrl.pathID(r, "assetID")
	if err != nil {
		ctrl.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid asset id"})
		return
	}

	asset, err := ctrl.portfolioService.GetAsset(r.Context(), assetID)
	if err != nil {
		ctrl.writeError(w, r, err)
		return
	}

	position, err := ctrl.portfolioService.GetPosition(r.Context(), assetID)
	if err != nil {
		ctrl.writeError(w, r, err)
		return
	}

	ctrl.writeJSON(w, http.StatusOK, map[string]any{
		"asset":    asset,
		"position": position,
	})
}

type updateAssetRequest struct {
	Name    string `json:"name"`
	GroupID int64  `json:"groupId"`
}

func (ctrl *Controller) UpdateAsset(w http.ResponseWriter, r *http.Request) {
	assetID, err := ctrl.pathID(r, "assetID")
	if err != nil {
		ctrl.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid asset id"})
		return
	}

	var req updateAssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctrl.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if err := ctrl.portfolioService.UpdateAsset(r.Context(), assetID, req.Name, req.GroupID); err != nil {
		ctrl.writeError(w, r, err)
		return
	}
	ctrl.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (ctrl *Controller) ArchiveAsset(w http.ResponseWriter, r *http.Request) {
	ctrl.setAssetArchived(w, r, true)
}

func (ctrl *Controller) UnarchiveAsset(w http.ResponseWriter, r *http.Request) {
	ctrl.setAssetArchived(w, r, false)
}

func (ctrl *Controller) setAssetArchived(w http.ResponseWriter, r *http.Request, archived bool) {
	assetID, err := ctrl.pathID(r, "assetID")
	if err != nil {
		ctrl.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid asset id"})
		return
	}

	if err := ctrl.portfolioService.SetAssetArchived(r.Context(), assetID, archived); err != nil {
		ctrl.writeError(w, r, err)
		return
	}
	ctrl.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (ctrl *Controller) DeleteAsset(w http.ResponseWriter, r *http.Request) {
	assetID, err := ctrl.pathID(r, "assetID")
	if err != nil {
		ctrl.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid asset id"})
		return
	}

	if err := ctrl.portfolioService.DeleteAsset(r.Context(), assetID); err != nil {
		ctrl.writeError(w, r, err)
		return
	}
	ctrl.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type transactionRequest struct {
	AssetID          int64  `json:"assetId"`
	Type             string `json:"type"`
	Timestamp        string `json:"timestamp"`
	Quantity         string `json:"quantity"`
	Price            string `json:"price"`
	Fees             string `json:"fees"`
	ManualValue      string `json:"manualValue"`
	InvestedOverride string `json:"investedOverride"`
	Note             string `json:"note"`
}

func (req transactionRequest) toModel() (model.Transaction, error) {
	trx := model.Transaction{
		AssetID: req.AssetID,
		Type:    model.TransactionType(req.Type),
		Note:    req.Note,
	}

	ts, err := time.Parse(time.RFC3339, req.Timestamp)
	if err != nil {
		return model.Transaction{}, err
	}
	trx.Timestamp = ts.UTC()

	parse := func(raw string) (decimal.Decimal, error) {
		if raw == "" {
			return decimal.Zero, nil
		}
		return decimal.NewFromString(raw)
	}

	if trx.Quantity, err = parse(req.Quantity); err != nil {
		return model.Transaction{}, err
	}
	if trx.Price, err = parse(req.Price); err != nil {
		return model.Transaction{}, err
	}
	if trx.Fees, err = parse(req.Fees); err != nil {
		return model.Transaction{}, err
	}

	if req.ManualValue != "" {
		value, err := decimal.NewFromString(req.ManualValue)
		if err != nil {
			return model.Transaction{}, err
		}
		trx.ManualValue = &value
	}

	if req.InvestedOverride != "" {
		value, err := decimal.NewFromString(req.InvestedOverride)
		if err != nil {
			return model.Transaction{}, err
		}
		trx.InvestedOverride = &value
	}

	return trx, nil
}

func (ctrl *Controller) ListTransactions(w http.ResponseWriter, r *http.Request) {
	assetID, err := ctrl.pathID(r, "assetID")
	if err != nil {
		ctrl.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid asset id"})
		return
	}

	transactions, err := ctrl.portfolioService.ListTransactions(r.Context(), assetID)
	if err != nil {
		ctrl.writeError(w, r, err)
		return
	}
	ctrl.writeJSON(w, http.StatusOK, transactions)
}

func (ctrl *Controller) AddTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctrl.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	trx, err := req.toModel()
	if err != nil {
		ctrl.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid transaction fields"})
		return
	}

	transactionID, position, err := ctrl.portfolioService.AddTransaction(r.Context(), trx)
	if err != nil {
		ctrl.writeError(w, r, err)
		return
	}

	ctrl.writeJSON(w, http.StatusCreated, map[string]any{
		"transactionId": transactionID,
		"position":      position,
	})
}

func (ctrl *Controller) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	transactionID, err := ctrl.pathID(r, "transactionID")
	if err != nil {
		ctrl.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid transaction id"})
		return
	}

	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctrl.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	trx, err := req.toModel()
	if err != nil {
		ctrl.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid transaction fields"})
		return
	}
	trx.ID = transactionID

	position, err := ctrl.portfolioService.UpdateTransaction(r.Context(), trx)
	if err != nil {
		ctrl.writeError(w, r, err)
		return
	}

	ctrl.writeJSON(w, http.StatusOK, map[string]any{"position": position})
}

func (ctrl *Controller) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	transactionID, err := ctrl.pathID(r, "transactionID")
	if err != nil {
		ctrl.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid transaction id"})
		return
	}

	position, err := ctrl.portfolioService.DeleteTransaction(r.Context(), transactionID)
	if err != nil {
		ctrl.writeError(w, r, err)
		return
	}

	ctrl.writeJSON(w, http.StatusOK, map[string]any{"position": position})
}

func (ctrl *Controller) CreateBasket(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctrl.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	basketID, err := ctrl.portfolioService.CreateBasket(r.Context(), req.Name)
	if err != nil {
		ctrl.writeError(w, r, err)
		return
	}
	ctrl.writeJSON(w, http.StatusCreated, map[string]int64{"basketId": basketID})
}

func (ctrl *Controller) ListBaskets(w http.ResponseWriter, r *http.Request) {
	baskets, err := ctrl.portfolioService.ListBaskets(r.Context())
	if err != nil {
		ctrl.writeError(w, r, err)
		return
	}
	ctrl.writeJSON(w, http.StatusOK, baskets)
}

func (ctrl *Controller) RenameBasket(w http.ResponseWriter, r *http.Request) {
	basketID, err := ctrl.pathID(r, "basketID")
	if err != nil {
		ctrl.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid basket id"})
		return
	}

	var req nameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctrl.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if err := ctrl.portfolioService.RenameBasket(r.Context(), basketID, req.Name); err != nil {
		ctrl.writeError(w, r, err)
		return
	}
	ctrl.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (ctrl *Controller) DeleteBasket(w http.ResponseWriter, r *http.Request) {
	basketID, err := ctrl.pathID(r, "basketID")
	if err != nil {
		ctrl.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid basket id"})
		return
	}

	if err := ctrl.portfolioService.DeleteBasket(r.Context(), basketID); err != nil {
		ctrl.writeError(w, r, err)
		return
	}
	ctrl.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type basketMemberRequest struct {
	AssetID int64  `json:"assetId"`
	Weight  string `json:"weight"`
}

func (ctrl *Controller) AddBasketMember(w http.ResponseWriter, r *http.Request) {
	basketID, err := ctrl.pathID(r, "basketID")
	if err != nil {
		ctrl.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid basket id"})
		return
	}

	var req basketMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctrl.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	var weight *decimal.Decimal
	if req.Weight != "" {
		value, err := decimal.NewFromString(req.Weight)
		if err != nil {
			ctrl.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid weight"})
			return
		}
		weight = &value
	}

	if err := ctrl.portfolioService.AddBasketMember(r.Context(), basketID, req.AssetID, weight); err != nil {
		ctrl.writeError(w, r, err)
		return
	}
	ctrl.writeJSON(w, http.StatusCreated, map[string]string{"status": "ok"})
}

func (ctrl *Controller) RemoveBasketMember(w http.ResponseWriter, r *http.Request) {
	basketID, err := ctrl.pathID(r, "basketID")
	if err != nil {
		ctrl.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid basket id"})
		return
	}

	assetID, err := ctrl.pathID(r, "assetID")
	if err != nil {
		ctrl.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid asset id"})
		return
	}

	if err := ctrl.portfolioService.RemoveBasketMember(r.Context(), basketID, assetID); err != nil {
		ctrl.writeError(w, r, err)
		return
	}
	ctrl.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

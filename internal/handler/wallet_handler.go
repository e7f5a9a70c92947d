package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"settlement-service/internal/middleware"
	"settlement-service/internal/usecase"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type WalletHandler struct {
	funding *usecase.FundingUsecase
	logger  *zap.Logger
}

func NewWalletHandler(funding *usecase.FundingUsecase, logger *zap.Logger) *WalletHandler {
	return &WalletHandler{funding: funding, logger: logger}
}

func (h *WalletHandler) GetWallet(w http.ResponseWriter, r *http.Request) {
	wallet, err := h.funding.Wallet(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wallet)
}

func (h *WalletHandler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 100 {
		limit = 20
	}

	txs, err := h.funding.History(r.Context(), userID, limit, (page-1)*limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": txs,
		"page":         page,
		"limit":        limit,
	})
}

type fundRequest struct {
	Amount int64 `json:"amount"`
}

func (h *WalletHandler) InitiateFunding(w http.ResponseWriter, r *http.Request) {
	var req fundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMsg(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.funding.InitiateFunding(r.Context(), middleware.UserID(r.Context()), req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *WalletHandler) VerifyFunding(w http.ResponseWriter, r *http.Request) {
	reference := chi.URLParam(r, "reference")

	outcome, err := h.funding.FinalizeFunding(r.Context(), reference)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

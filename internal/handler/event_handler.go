package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"settlement-service/internal/domain"
	"settlement-service/internal/middleware"
	"settlement-service/internal/usecase"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type EventHandler struct {
	tickets *usecase.TicketUsecase
	support *usecase.SupportUsecase
	logger  *zap.Logger
}

func NewEventHandler(tickets *usecase.TicketUsecase, support *usecase.SupportUsecase, logger *zap.Logger) *EventHandler {
	return &EventHandler{tickets: tickets, support: support, logger: logger}
}

type purchaseTicketsRequest struct {
	Items      []domain.OrderItem `json:"items"`
	GuestEmail string             `json:"guest_email,omitempty"`
}

func (h *EventHandler) PurchaseTickets(w http.ResponseWriter, r *http.Request) {
	eventID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeErrorMsg(w, http.StatusBadRequest, "invalid event id")
		return
	}

	var req purchaseTicketsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMsg(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ucReq := usecase.TicketPurchaseRequest{
		EventID: eventID,
		Items:   req.Items,
	}
	if userID := middleware.UserID(r.Context()); userID != "" {
		ucReq.BuyerID = &userID
	} else if req.GuestEmail != "" {
		ucReq.GuestEmail = &req.GuestEmail
	}

	order, tickets, err := h.tickets.Purchase(r.Context(), ucReq)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"order":   order,
		"tickets": tickets,
	})
}

func (h *EventHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	ticket, err := h.tickets.CheckIn(r.Context(), code, middleware.UserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

func (h *EventHandler) CancelTicket(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	ticket, err := h.tickets.Cancel(r.Context(), code, middleware.UserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

func (h *EventHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	eventID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeErrorMsg(w, http.StatusBadRequest, "invalid event id")
		return
	}

	analytics, err := h.tickets.Analytics(r.Context(), eventID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, analytics)
}

type supportRequest struct {
	Amount    int64  `json:"amount"`
	Type      string `json:"type"`
	TierID    *int64 `json:"tier_id,omitempty"`
	Message   string `json:"message,omitempty"`
	Anonymous bool   `json:"anonymous"`
}

func (h *EventHandler) Support(w http.ResponseWriter, r *http.Request) {
	eventID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeErrorMsg(w, http.StatusBadRequest, "invalid event id")
		return
	}

	var req supportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMsg(w, http.StatusBadRequest, "invalid request body")
		return
	}

	support, tx, err := h.support.Support(r.Context(), usecase.SupportRequest{
		SupporterID: middleware.UserID(r.Context()),
		EventID:     eventID,
		Amount:      req.Amount,
		Kind:        domain.SupportKind(req.Type),
		TierID:      req.TierID,
		Message:     req.Message,
		Anonymous:   req.Anonymous,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"support":     support,
		"transaction": tx,
	})
}

package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"settlement-service/internal/domain"
)

type apiResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiResponse{Status: "success", Data: data})
}

func writeErrorMsg(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiResponse{Status: "error", Message: msg})
}

// writeError maps domain sentinels onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrSelfTransfer),
		errors.Is(err, domain.ErrTierMinimum),
		errors.Is(err, domain.ErrBadSignature):
		writeErrorMsg(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeErrorMsg(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrForbidden),
		errors.Is(err, domain.ErrAccessRevoked):
		writeErrorMsg(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrInsufficientFunds),
		errors.Is(err, domain.ErrNotPaid):
		writeErrorMsg(w, http.StatusPaymentRequired, err.Error())
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrTransactionNotFound):
		writeErrorMsg(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrAlreadyOwned),
		errors.Is(err, domain.ErrSoldOut),
		errors.Is(err, domain.ErrAlreadyCheckedIn),
		errors.Is(err, domain.ErrTicketCancelled),
		errors.Is(err, domain.ErrReferenceMismatch):
		writeErrorMsg(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrDownloadLimit):
		writeErrorMsg(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrProductInactive):
		writeErrorMsg(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrGateway),
		errors.Is(err, domain.ErrGatewayTimeout):
		writeErrorMsg(w, http.StatusBadGateway, "payment gateway unavailable, try again")
	default:
		writeErrorMsg(w, http.StatusInternalServerError, "internal server error")
	}
}

package handler

import (
	"errors"
	"io"
	"net/http"

	"settlement-service/internal/domain"
	"settlement-service/internal/usecase"

	"go.uber.org/zap"
)

const signatureHeader = "X-Paystack-Signature"

type WebhookHandler struct {
	webhooks *usecase.WebhookUsecase
	logger   *zap.Logger
}

func NewWebhookHandler(webhooks *usecase.WebhookUsecase, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{webhooks: webhooks, logger: logger}
}

// HandleProviderWebhook receives asynchronous confirmations from the
// payment gateway. The signature is checked over the exact raw bytes; a
// failed check answers the same generic 400 as any other malformed request
// so the response leaks nothing about why it was rejected.
func (h *WebhookHandler) HandleProviderWebhook(w http.ResponseWriter, r *http.Request) {
	rawBody, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Error("failed to read webhook body", zap.Error(err))
		writeErrorMsg(w, http.StatusBadRequest, "invalid request")
		return
	}

	err = h.webhooks.Process(r.Context(), rawBody, r.Header.Get(signatureHeader))
	if err != nil {
		if errors.Is(err, domain.ErrBadSignature) || errors.Is(err, domain.ErrValidation) {
			h.logger.Warn("webhook rejected",
				zap.String("remote_addr", r.RemoteAddr))
			writeErrorMsg(w, http.StatusBadRequest, "invalid request")
			return
		}
		h.logger.Error("webhook processing failed", zap.Error(err))
		writeErrorMsg(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"received": true})
}

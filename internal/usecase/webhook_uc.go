package usecase

import (
	"context"
	"errors"
	"time"

	"settlement-service/internal/domain"
	"settlement-service/internal/provider/paystack"
	"settlement-service/pkg/cache"

	"go.uber.org/zap"
)

// SignatureVerifier authenticates an inbound webhook against the exact raw
// payload bytes.
type SignatureVerifier interface {
	VerifyWebhookSignature(rawBody []byte, signatureHeader string) bool
}

// Finalizer settles one transaction kind by reference; FundingUsecase and
// PurchaseUsecase both satisfy it.
type Finalizer interface {
	FinalizeFunding(ctx context.Context, reference string) (*SettleOutcome, error)
}

type PurchaseFinalizer interface {
	Finalize(ctx context.Context, reference string) (*SettleOutcome, error)
}

const replayGuardTTL = 24 * time.Hour

// ReplayGuard remembers which webhook references already settled so
// redeliveries can be answered without touching the gateway again.
// *cache.Cache satisfies it.
type ReplayGuard interface {
	Get(ctx context.Context, namespace, key string) (string, error)
	SetNX(ctx context.Context, namespace, key string, ttl time.Duration) (bool, error)
}

var _ ReplayGuard = (*cache.Cache)(nil)

// WebhookUsecase reconciles provider-initiated confirmations. It shares the
// finalize paths with the client poll, so the webhook and the poll racing
// each other is handled by the ledger's conditional transition, not here.
type WebhookUsecase struct {
	ledger    Ledger
	verifier  SignatureVerifier
	funding   Finalizer
	purchases PurchaseFinalizer
	cache     ReplayGuard // optional
	logger    *zap.Logger
}

func NewWebhookUsecase(
	ledger Ledger,
	verifier SignatureVerifier,
	funding Finalizer,
	purchases PurchaseFinalizer,
	c ReplayGuard,
	logger *zap.Logger,
) *WebhookUsecase {
	return &WebhookUsecase{
		ledger:    ledger,
		verifier:  verifier,
		funding:   funding,
		purchases: purchases,
		cache:     c,
		logger:    logger,
	}
}

// Process authenticates and settles one webhook delivery. A bad signature
// returns ErrBadSignature with zero state change. An unknown reference is
// not an error to the provider: it is acknowledged and logged.
func (uc *WebhookUsecase) Process(ctx context.Context, rawBody []byte, signatureHeader string) error {
	if !uc.verifier.VerifyWebhookSignature(rawBody, signatureHeader) {
		// No detail beyond the sentinel; the handler answers a generic 400.
		return domain.ErrBadSignature
	}

	event, err := paystack.ParseWebhookEvent(rawBody)
	if err != nil {
		return err
	}

	reference := event.Data.Reference

	// Advisory replay suppression. The key is written only after a delivery
	// settles, so a delivery that failed transiently (gateway timeout, db
	// error) is never suppressed when the provider retries it. The ledger
	// transition is the real idempotency guard; a cache miss or redis outage
	// only costs a no-op finalize call.
	if uc.cache != nil {
		if _, err := uc.cache.Get(ctx, "webhook", reference); err == nil {
			uc.logger.Info("webhook replay suppressed", zap.String("reference", reference))
			return nil
		}
	}

	tx, err := uc.ledger.GetByReference(ctx, reference)
	if err != nil {
		if errors.Is(err, domain.ErrTransactionNotFound) {
			uc.logger.Warn("webhook for unknown reference",
				zap.String("reference", reference),
				zap.String("event", event.Event))
			return nil
		}
		return err
	}

	uc.logger.Info("processing webhook event",
		zap.String("event", event.Event),
		zap.String("reference", reference),
		zap.String("type", string(tx.Type)))

	switch tx.Type {
	case domain.TxTypeFund:
		_, err = uc.funding.FinalizeFunding(ctx, reference)
	case domain.TxTypeDigitalPurchase:
		_, err = uc.purchases.Finalize(ctx, reference)
	default:
		uc.logger.Warn("webhook for non-gateway transaction type",
			zap.String("reference", reference),
			zap.String("type", string(tx.Type)))
		return nil
	}
	if err != nil {
		return err
	}

	// Mark the delivery handled only now that it settled.
	if uc.cache != nil {
		if _, err := uc.cache.SetNX(ctx, "webhook", reference, replayGuardTTL); err != nil {
			uc.logger.Warn("webhook replay guard write failed",
				zap.String("reference", reference), zap.Error(err))
		}
	}
	return nil
}

package usecase

import (
	"context"
	"fmt"

	"settlement-service/internal/domain"
	"settlement-service/internal/notifier"
	"settlement-service/pkg/id"

	"go.uber.org/zap"
)

// FundingResult is returned from InitiateFunding: the caller redirects the
// payer to CheckoutURL and later confirms via verify or webhook.
type FundingResult struct {
	TransactionID int64  `json:"transaction_id"`
	Reference     string `json:"reference"`
	CheckoutURL   string `json:"checkout_url"`
}

// SettleOutcome is the shared result shape of every finalize path.
type SettleOutcome struct {
	Status    string `json:"status"` // paid | failed | pending
	Reference string `json:"reference"`
	// Settled reports whether this call performed the transition (as opposed
	// to observing a transition some earlier call already made).
	Settled bool `json:"-"`
}

type FundingUsecase struct {
	wallets      WalletStore
	ledger       Ledger
	gateway      Gateway
	users        UserDirectory
	notifier     notifier.Notifier
	callbackBase string
	logger       *zap.Logger
}

func NewFundingUsecase(
	wallets WalletStore,
	ledger Ledger,
	gateway Gateway,
	users UserDirectory,
	n notifier.Notifier,
	callbackBase string,
	logger *zap.Logger,
) *FundingUsecase {
	return &FundingUsecase{
		wallets:      wallets,
		ledger:       ledger,
		gateway:      gateway,
		users:        users,
		notifier:     n,
		callbackBase: callbackBase,
		logger:       logger,
	}
}

// InitiateFunding opens a pending fund transaction and a hosted checkout
// session. A gateway failure leaves the transaction pending; the caller may
// retry with a fresh initialization.
func (uc *FundingUsecase) InitiateFunding(ctx context.Context, userID string, amount int64) (*FundingResult, error) {
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	wallet, err := uc.wallets.EnsureWallet(ctx, userID)
	if err != nil {
		return nil, err
	}

	tx := &domain.Transaction{
		Reference: id.Generate("txn"),
		Type:      domain.TxTypeFund,
		ToUser:    &userID,
		Amount:    amount,
		Currency:  wallet.Currency,
		Metadata:  domain.EncodeMetadata(domain.FundingMetadata{WalletID: wallet.ID}),
	}
	if err := uc.ledger.Create(ctx, tx); err != nil {
		return nil, err
	}

	email, err := uc.users.EmailByID(ctx, userID)
	if err != nil {
		uc.logger.Warn("payer email lookup failed, proceeding without",
			zap.String("user_id", userID), zap.Error(err))
	}

	// The checkout redirects back to the verify route, which finalizes the
	// same way the webhook does.
	callbackURL := ""
	if uc.callbackBase != "" {
		callbackURL = uc.callbackBase + "/api/v1/wallet/fund/verify/" + tx.Reference
	}

	init, err := uc.gateway.Initialize(ctx, amount, tx.Reference, email, callbackURL)
	if err != nil {
		uc.logger.Error("gateway initialize failed",
			zap.String("reference", tx.Reference),
			zap.Int64("amount", amount),
			zap.Error(err))
		return nil, err
	}

	if err := uc.ledger.AttachProviderReference(ctx, tx.ID, init.Reference); err != nil {
		return nil, err
	}

	uc.logger.Info("wallet funding initiated",
		zap.String("user_id", userID),
		zap.String("reference", tx.Reference),
		zap.Int64("amount", amount))

	return &FundingResult{
		TransactionID: tx.ID,
		Reference:     tx.Reference,
		CheckoutURL:   init.AuthorizationURL,
	}, nil
}

// FinalizeFunding reconciles a fund transaction against the gateway. It is
// idempotent and safe to call from both the client poll and the webhook:
// only the caller that wins the pending->completed transition credits the
// wallet.
func (uc *FundingUsecase) FinalizeFunding(ctx context.Context, reference string) (*SettleOutcome, error) {
	tx, err := uc.ledger.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if tx.Type != domain.TxTypeFund {
		return nil, fmt.Errorf("%w: reference is not a funding transaction", domain.ErrValidation)
	}

	switch tx.Status {
	case domain.TxStatusCompleted:
		return &SettleOutcome{Status: "paid", Reference: reference}, nil
	case domain.TxStatusFailed:
		return &SettleOutcome{Status: "failed", Reference: reference}, nil
	}

	verified, err := uc.gateway.Verify(ctx, reference)
	if err != nil {
		// Gateway unreachable: the transaction stays pending, retryable.
		return nil, err
	}

	if !verified.Succeeded {
		if _, err := uc.ledger.Fail(ctx, tx.ID); err != nil {
			return nil, err
		}
		uc.logger.Info("funding verification failed",
			zap.String("reference", reference),
			zap.String("provider_status", verified.ProviderStatus))
		return &SettleOutcome{Status: "failed", Reference: reference}, nil
	}

	won, err := uc.ledger.Complete(ctx, tx.ID)
	if err != nil {
		return nil, err
	}
	if !won {
		// Someone else settled it between our read and the transition.
		return &SettleOutcome{Status: "paid", Reference: reference}, nil
	}

	var meta domain.FundingMetadata
	if err := tx.DecodeMetadata(&meta); err != nil {
		return nil, fmt.Errorf("fund transaction %s has no wallet metadata: %w", reference, err)
	}

	balance, err := uc.wallets.Credit(ctx, meta.WalletID, tx.Amount)
	if err != nil {
		return nil, err
	}

	uc.logger.Info("wallet funded",
		zap.String("reference", reference),
		zap.Int64("amount", tx.Amount),
		zap.Int64("balance", balance))

	if tx.ToUser != nil {
		if err := uc.notifier.Notify(ctx, *tx.ToUser, "wallet_funded", map[string]interface{}{
			"reference": reference,
			"amount":    tx.Amount,
			"balance":   balance,
		}); err != nil {
			uc.logger.Warn("funding notification failed", zap.String("reference", reference), zap.Error(err))
		}
	}

	return &SettleOutcome{Status: "paid", Reference: reference, Settled: true}, nil
}

// Wallet returns the caller's wallet, creating it on first reference.
func (uc *FundingUsecase) Wallet(ctx context.Context, userID string) (*domain.Wallet, error) {
	return uc.wallets.EnsureWallet(ctx, userID)
}

// History returns the user's transaction history page.
func (uc *FundingUsecase) History(ctx context.Context, userID string, limit, offset int) ([]*domain.Transaction, error) {
	return uc.ledger.ListByUser(ctx, userID, limit, offset)
}

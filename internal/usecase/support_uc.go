package usecase

import (
	"context"
	"fmt"

	"settlement-service/internal/domain"
	"settlement-service/internal/notifier"
	"settlement-service/internal/repository"
	"settlement-service/pkg/id"

	"go.uber.org/zap"
)

type SupportRequest struct {
	SupporterID string
	EventID     int64
	Amount      int64
	Kind        domain.SupportKind
	TierID      *int64
	Message     string
	Anonymous   bool
}

type SupportUsecase struct {
	wallets  WalletStore
	store    SupportStore
	notifier notifier.Notifier
	logger   *zap.Logger
}

func NewSupportUsecase(wallets WalletStore, store SupportStore, n notifier.Notifier, logger *zap.Logger) *SupportUsecase {
	return &SupportUsecase{wallets: wallets, store: store, notifier: n, logger: logger}
}

// Support moves amount from the supporter's wallet to the event's recipient
// as one atomic unit. All validation happens before any mutation; the store
// applies debit, credit, ledger entry, EventSupport record, and raised-total
// bump inside a single database transaction.
func (uc *SupportUsecase) Support(ctx context.Context, req SupportRequest) (*domain.EventSupport, *domain.Transaction, error) {
	if req.Amount <= 0 {
		return nil, nil, domain.ErrInvalidAmount
	}
	if req.Kind != domain.SupportDonation && req.Kind != domain.SupportSponsorship {
		return nil, nil, fmt.Errorf("%w: unknown support kind %q", domain.ErrValidation, req.Kind)
	}

	event, err := uc.store.GetEvent(ctx, req.EventID)
	if err != nil {
		return nil, nil, err
	}

	recipient := event.Recipient()
	if recipient == req.SupporterID {
		return nil, nil, domain.ErrSelfTransfer
	}

	if req.Kind == domain.SupportSponsorship {
		if req.TierID == nil {
			return nil, nil, fmt.Errorf("%w: sponsorship requires a tier", domain.ErrValidation)
		}
		tier, err := uc.store.GetTier(ctx, *req.TierID, req.EventID)
		if err != nil {
			return nil, nil, err
		}
		if req.Amount < tier.MinAmount {
			return nil, nil, fmt.Errorf("%w: %s requires at least %d", domain.ErrTierMinimum, tier.Name, tier.MinAmount)
		}
	}

	supporterWallet, err := uc.wallets.EnsureWallet(ctx, req.SupporterID)
	if err != nil {
		return nil, nil, err
	}
	// Pre-check before any mutation; the transactional debit re-checks
	// atomically, this just refuses obviously doomed requests early.
	if supporterWallet.Balance < req.Amount {
		return nil, nil, domain.ErrInsufficientFunds
	}

	recipientWallet, err := uc.wallets.EnsureWallet(ctx, recipient)
	if err != nil {
		return nil, nil, err
	}

	tx := &domain.Transaction{
		Reference: id.Generate("txn"),
		Type:      domain.TxTypeEventSupport,
		FromUser:  &req.SupporterID,
		ToUser:    &recipient,
		Amount:    req.Amount,
		Currency:  supporterWallet.Currency,
		Metadata: domain.EncodeMetadata(domain.SupportMetadata{
			EventID: req.EventID,
			Kind:    string(req.Kind),
			TierID:  req.TierID,
		}),
	}

	support := &domain.EventSupport{
		EventID:     req.EventID,
		SupporterID: req.SupporterID,
		RecipientID: recipient,
		Kind:        req.Kind,
		TierID:      req.TierID,
		Amount:      req.Amount,
		Message:     req.Message,
		Anonymous:   req.Anonymous,
	}

	err = uc.store.Transfer(ctx, repository.TransferParams{
		Transaction:  tx,
		Support:      support,
		FromWalletID: supporterWallet.ID,
		ToWalletID:   recipientWallet.ID,
		Amount:       req.Amount,
		EventID:      req.EventID,
	})
	if err != nil {
		return nil, nil, err
	}

	uc.logger.Info("event support settled",
		zap.Int64("event_id", req.EventID),
		zap.String("supporter_id", req.SupporterID),
		zap.String("kind", string(req.Kind)),
		zap.Int64("amount", req.Amount))

	if err := uc.notifier.Notify(ctx, recipient, "event_supported", map[string]interface{}{
		"event_id":  req.EventID,
		"amount":    req.Amount,
		"kind":      string(req.Kind),
		"anonymous": req.Anonymous,
	}); err != nil {
		uc.logger.Warn("support notification failed",
			zap.Int64("event_id", req.EventID), zap.Error(err))
	}

	return support, tx, nil
}

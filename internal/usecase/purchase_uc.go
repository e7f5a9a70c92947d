package usecase

import (
	"context"
	"fmt"

	"settlement-service/internal/domain"
	"settlement-service/internal/notifier"
	"settlement-service/pkg/id"

	"go.uber.org/zap"
)

type CheckoutResult struct {
	Reference   string `json:"reference"`
	CheckoutURL string `json:"checkout_url"`
}

type PurchaseUsecase struct {
	products     ProductStore
	ledger       Ledger
	gateway      Gateway
	users        UserDirectory
	notifier     notifier.Notifier
	callbackBase string
	logger       *zap.Logger
}

func NewPurchaseUsecase(
	products ProductStore,
	ledger Ledger,
	gateway Gateway,
	users UserDirectory,
	n notifier.Notifier,
	callbackBase string,
	logger *zap.Logger,
) *PurchaseUsecase {
	return &PurchaseUsecase{
		products:     products,
		ledger:       ledger,
		gateway:      gateway,
		users:        users,
		notifier:     n,
		callbackBase: callbackBase,
		logger:       logger,
	}
}

// Initiate opens a pending digital_purchase transaction and a checkout
// session for the product's price.
func (uc *PurchaseUsecase) Initiate(ctx context.Context, buyerID string, productID int64) (*CheckoutResult, error) {
	product, err := uc.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.Active {
		return nil, domain.ErrProductInactive
	}
	if product.SellerID == buyerID {
		return nil, fmt.Errorf("%w: cannot buy your own product", domain.ErrValidation)
	}

	owned, err := uc.products.HasActivePurchase(ctx, buyerID, productID)
	if err != nil {
		return nil, err
	}
	if owned {
		return nil, domain.ErrAlreadyOwned
	}

	tx := &domain.Transaction{
		Reference: id.Generate("txn"),
		Type:      domain.TxTypeDigitalPurchase,
		FromUser:  &buyerID,
		ToUser:    &product.SellerID,
		Amount:    product.Price,
		Currency:  product.Currency,
		Metadata: domain.EncodeMetadata(domain.PurchaseMetadata{
			ProductID: product.ID,
			SellerID:  product.SellerID,
		}),
	}
	if err := uc.ledger.Create(ctx, tx); err != nil {
		return nil, err
	}

	email, err := uc.users.EmailByID(ctx, buyerID)
	if err != nil {
		uc.logger.Warn("buyer email lookup failed, proceeding without",
			zap.String("buyer_id", buyerID), zap.Error(err))
	}

	callbackURL := ""
	if uc.callbackBase != "" {
		callbackURL = uc.callbackBase + "/api/v1/products/verify/" + tx.Reference
	}

	init, err := uc.gateway.Initialize(ctx, product.Price, tx.Reference, email, callbackURL)
	if err != nil {
		uc.logger.Error("gateway initialize failed",
			zap.String("reference", tx.Reference),
			zap.Int64("product_id", productID),
			zap.Error(err))
		return nil, err
	}

	if err := uc.ledger.AttachProviderReference(ctx, tx.ID, init.Reference); err != nil {
		return nil, err
	}

	uc.logger.Info("digital purchase initiated",
		zap.String("buyer_id", buyerID),
		zap.Int64("product_id", productID),
		zap.String("reference", tx.Reference))

	return &CheckoutResult{Reference: tx.Reference, CheckoutURL: init.AuthorizationURL}, nil
}

// Finalize settles a digital purchase by reference. Both confirmation paths
// (client poll and provider webhook) call this; whichever wins the ledger
// transition creates the entitlement and bumps the sales counters exactly
// once. Notification and email failures are logged and swallowed.
func (uc *PurchaseUsecase) Finalize(ctx context.Context, reference string) (*SettleOutcome, error) {
	tx, err := uc.ledger.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if tx.Type != domain.TxTypeDigitalPurchase {
		return nil, fmt.Errorf("%w: reference is not a digital purchase", domain.ErrValidation)
	}

	switch tx.Status {
	case domain.TxStatusCompleted:
		// Repair pass: if a crash separated the ledger transition from the
		// entitlement, settle recreates it here. CreatePurchase is keyed on
		// transaction_id, so when the entitlement already exists this is a
		// no-op.
		if err := uc.settle(ctx, tx); err != nil {
			return nil, err
		}
		return &SettleOutcome{Status: "paid", Reference: reference}, nil
	case domain.TxStatusFailed:
		return &SettleOutcome{Status: "failed", Reference: reference}, nil
	}

	verified, err := uc.gateway.Verify(ctx, reference)
	if err != nil {
		return nil, err
	}

	if !verified.Succeeded {
		if _, err := uc.ledger.Fail(ctx, tx.ID); err != nil {
			return nil, err
		}
		return &SettleOutcome{Status: "failed", Reference: reference}, nil
	}

	won, err := uc.ledger.Complete(ctx, tx.ID)
	if err != nil {
		return nil, err
	}
	if !won {
		return &SettleOutcome{Status: "paid", Reference: reference}, nil
	}

	if err := uc.settle(ctx, tx); err != nil {
		// The ledger is already completed; entitlement creation is
		// idempotent, so a retry of Finalize will repair this.
		uc.logger.Error("post-settlement side effects failed",
			zap.String("reference", reference), zap.Error(err))
		return nil, err
	}

	return &SettleOutcome{Status: "paid", Reference: reference, Settled: true}, nil
}

// settle performs the one-time side effects for the transition winner.
func (uc *PurchaseUsecase) settle(ctx context.Context, tx *domain.Transaction) error {
	var meta domain.PurchaseMetadata
	if err := tx.DecodeMetadata(&meta); err != nil {
		return fmt.Errorf("purchase transaction %s has no product metadata: %w", tx.Reference, err)
	}

	product, err := uc.products.GetByID(ctx, meta.ProductID)
	if err != nil {
		return err
	}

	purchase := &domain.DigitalPurchase{
		TransactionID: tx.ID,
		BuyerID:       *tx.FromUser,
		ProductID:     product.ID,
		SellerID:      product.SellerID,
		PricePaid:     tx.Amount,
		MaxDownloads:  product.MaxDownloads,
	}
	created, err := uc.products.CreatePurchase(ctx, purchase)
	if err != nil {
		return err
	}
	if !created {
		// Entitlement already exists for this transaction; counters were
		// bumped by whoever created it.
		uc.logger.Info("entitlement already exists, skipping side effects",
			zap.String("reference", tx.Reference))
		return nil
	}

	if err := uc.products.RecordSale(ctx, product.ID, tx.Amount); err != nil {
		uc.logger.Error("failed to record sale counters",
			zap.Int64("product_id", product.ID), zap.Error(err))
	}

	uc.logger.Info("digital purchase settled",
		zap.String("reference", tx.Reference),
		zap.Int64("product_id", product.ID),
		zap.String("buyer_id", purchase.BuyerID))

	// Best-effort notifications; never fail the settle over these.
	if err := uc.notifier.Notify(ctx, purchase.BuyerID, "purchase_completed", map[string]interface{}{
		"reference": tx.Reference,
		"product":   product.Title,
	}); err != nil {
		uc.logger.Warn("buyer notification failed", zap.String("reference", tx.Reference), zap.Error(err))
	}
	if err := uc.notifier.Notify(ctx, product.SellerID, "product_sold", map[string]interface{}{
		"reference": tx.Reference,
		"product":   product.Title,
		"amount":    tx.Amount,
	}); err != nil {
		uc.logger.Warn("seller notification failed", zap.String("reference", tx.Reference), zap.Error(err))
	}
	if email, err := uc.users.EmailByID(ctx, purchase.BuyerID); err == nil && email != "" {
		if err := uc.notifier.SendEmail(ctx, email, "Your purchase is ready",
			fmt.Sprintf("Your copy of %q is now available for download.", product.Title)); err != nil {
			uc.logger.Warn("buyer email failed", zap.String("reference", tx.Reference), zap.Error(err))
		}
	}

	return nil
}

// DownloadGrant describes an approved download: the caller streams the file
// and the count has already been incremented.
type DownloadGrant struct {
	FilePath string
	FileName string
}

// Download authorizes one download of a purchased file. Any violation
// (wrong requester, unpaid, revoked, over limit) returns without touching
// the download count.
func (uc *PurchaseUsecase) Download(ctx context.Context, purchaseID int64, requesterID string) (*DownloadGrant, error) {
	purchase, err := uc.products.GetPurchase(ctx, purchaseID)
	if err != nil {
		return nil, err
	}
	if purchase.BuyerID != requesterID {
		return nil, domain.ErrForbidden
	}
	if purchase.PaymentStatus != domain.PaymentStatePaid {
		return nil, domain.ErrNotPaid
	}
	if purchase.AccessStatus != domain.AccessActive {
		return nil, domain.ErrAccessRevoked
	}

	// Conditional increment re-checks everything; a concurrent revoke or a
	// parallel download racing past the limit loses here.
	ok, err := uc.products.IncrementDownload(ctx, purchaseID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrDownloadLimit
	}

	product, err := uc.products.GetByID(ctx, purchase.ProductID)
	if err != nil {
		return nil, err
	}

	uc.logger.Info("download granted",
		zap.Int64("purchase_id", purchaseID),
		zap.String("buyer_id", requesterID))

	return &DownloadGrant{FilePath: product.FilePath, FileName: product.FileName}, nil
}

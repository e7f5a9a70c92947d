package usecase

import (
	"context"

	"settlement-service/internal/domain"
	"settlement-service/internal/provider/paystack"
	"settlement-service/internal/repository"
)

// WalletStore holds one balance per user. Debit and Credit are atomic
// conditional updates in the repository implementation.
type WalletStore interface {
	EnsureWallet(ctx context.Context, userID string) (*domain.Wallet, error)
	GetByUserID(ctx context.Context, userID string) (*domain.Wallet, error)
	Credit(ctx context.Context, walletID, amount int64) (int64, error)
	Debit(ctx context.Context, walletID, amount int64) (int64, error)
}

// Ledger is the transaction log. Complete/Fail report whether the caller
// performed the transition, which is the idempotency primitive every
// confirmation path funnels through.
type Ledger interface {
	Create(ctx context.Context, t *domain.Transaction) error
	GetByID(ctx context.Context, id int64) (*domain.Transaction, error)
	GetByReference(ctx context.Context, reference string) (*domain.Transaction, error)
	AttachProviderReference(ctx context.Context, id int64, ref string) error
	Complete(ctx context.Context, id int64) (bool, error)
	Fail(ctx context.Context, id int64) (bool, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.Transaction, error)
}

type ProductStore interface {
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
	RecordSale(ctx context.Context, productID, amount int64) error
	CreatePurchase(ctx context.Context, p *domain.DigitalPurchase) (bool, error)
	GetPurchase(ctx context.Context, id int64) (*domain.DigitalPurchase, error)
	HasActivePurchase(ctx context.Context, buyerID string, productID int64) (bool, error)
	IncrementDownload(ctx context.Context, purchaseID int64) (bool, error)
}

type SupportStore interface {
	GetEvent(ctx context.Context, id int64) (*domain.Event, error)
	GetTier(ctx context.Context, tierID, eventID int64) (*domain.SponsorshipTier, error)
	Transfer(ctx context.Context, p repository.TransferParams) error
}

type TicketStore interface {
	GetEvent(ctx context.Context, eventID int64) (*domain.Event, error)
	Purchase(ctx context.Context, p repository.PurchaseParams) (*domain.Order, []*domain.Ticket, error)
	GetTicketByCode(ctx context.Context, code string) (*domain.Ticket, error)
	CheckIn(ctx context.Context, ticketID int64) (bool, error)
	Cancel(ctx context.Context, ticketID int64) (bool, error)
	Analytics(ctx context.Context, eventID int64) (*domain.EventAnalytics, error)
}

// Gateway is the payment provider contract. The core never assumes
// exactly-once delivery from it.
type Gateway interface {
	Initialize(ctx context.Context, amountMinor int64, reference, email, callbackURL string) (*paystack.InitializeResult, error)
	Verify(ctx context.Context, reference string) (*paystack.VerifyResult, error)
}

// UserDirectory is the identity service seam; lookups must never block or
// roll back a financial mutation.
type UserDirectory interface {
	EmailByID(ctx context.Context, userID string) (string, error)
}

package domain

import (
	"encoding/json"
	"time"
)

type Wallet struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	Balance   int64     `json:"balance"` // minor units
	Currency  string    `json:"currency"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type TransactionType string

const (
	TxTypeFund            TransactionType = "fund"
	TxTypeEscrow          TransactionType = "escrow"
	TxTypeRelease         TransactionType = "release"
	TxTypeRefund          TransactionType = "refund"
	TxTypeWithdraw        TransactionType = "withdraw"
	TxTypeEventSupport    TransactionType = "event_support"
	TxTypeTicketPurchase  TransactionType = "ticket_purchase"
	TxTypeDigitalPurchase TransactionType = "digital_purchase"
)

type TransactionStatus string

const (
	TxStatusPending   TransactionStatus = "pending"
	TxStatusCompleted TransactionStatus = "completed"
	TxStatusFailed    TransactionStatus = "failed"
)

// Transaction is the ledger record for a single money movement. Amount is
// immutable after creation and status only ever moves pending -> completed
// or pending -> failed.
type Transaction struct {
	ID                int64             `json:"id"`
	Reference         string            `json:"reference"`
	ProviderReference *string           `json:"provider_reference,omitempty"`
	Type              TransactionType   `json:"type"`
	FromUser          *string           `json:"from_user,omitempty"`
	ToUser            *string           `json:"to_user,omitempty"`
	Amount            int64             `json:"amount"` // minor units
	Currency          string            `json:"currency"`
	Status            TransactionStatus `json:"status"`
	Metadata          json.RawMessage   `json:"metadata,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	CompletedAt       *time.Time        `json:"completed_at,omitempty"`
}

// Typed metadata payloads, one per transaction type that carries any.
// Stored as JSONB; each workflow only ever decodes its own shape.

type FundingMetadata struct {
	WalletID int64 `json:"wallet_id"`
}

type PurchaseMetadata struct {
	ProductID int64  `json:"product_id"`
	SellerID  string `json:"seller_id"`
}

type SupportMetadata struct {
	EventID int64  `json:"event_id"`
	Kind    string `json:"kind"`
	TierID  *int64 `json:"tier_id,omitempty"`
}

type TicketMetadata struct {
	EventID int64 `json:"event_id"`
	OrderID int64 `json:"order_id"`
}

func EncodeMetadata(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}

func (t *Transaction) DecodeMetadata(v any) error {
	if t.Metadata == nil {
		return ErrValidation
	}
	return json.Unmarshal(t.Metadata, v)
}

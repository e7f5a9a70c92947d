package domain

import "time"

type Product struct {
	ID           int64     `json:"id"`
	SellerID     string    `json:"seller_id"`
	Title        string    `json:"title"`
	Price        int64     `json:"price"` // minor units
	Currency     string    `json:"currency"`
	Active       bool      `json:"active"`
	SalesCount   int       `json:"sales_count"`
	Revenue      int64     `json:"revenue"`
	FilePath     string    `json:"-"`
	FileName     string    `json:"file_name"`
	MaxDownloads int       `json:"max_downloads"`
	CreatedAt    time.Time `json:"created_at"`
}

type PaymentState string

const (
	PaymentStatePaid     PaymentState = "paid"
	PaymentStateRefunded PaymentState = "refunded"
)

type AccessState string

const (
	AccessActive  AccessState = "active"
	AccessRevoked AccessState = "revoked"
	AccessExpired AccessState = "expired"
)

// DigitalPurchase is the entitlement created exactly once per completed
// digital_purchase transaction (unique transaction_id in the schema).
type DigitalPurchase struct {
	ID            int64        `json:"id"`
	TransactionID int64        `json:"transaction_id"`
	BuyerID       string       `json:"buyer_id"`
	ProductID     int64        `json:"product_id"`
	SellerID      string       `json:"seller_id"`
	PaymentStatus PaymentState `json:"payment_status"`
	AccessStatus  AccessState  `json:"access_status"`
	PricePaid     int64        `json:"price_paid"`
	DownloadCount int          `json:"download_count"`
	MaxDownloads  int          `json:"max_downloads"`
	CreatedAt     time.Time    `json:"created_at"`
}

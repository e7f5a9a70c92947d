package repository

import (
	"context"
	"errors"

	"settlement-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ProductRepository struct {
	db *pgxpool.Pool
}

func NewProductRepository(db *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	var p domain.Product
	query := `SELECT id, seller_id, title, price, currency, active, sales_count,
	                 revenue, file_path, file_name, max_downloads, created_at
	          FROM products WHERE id = $1`
	err := r.db.QueryRow(ctx, query, id).
		Scan(&p.ID, &p.SellerID, &p.Title, &p.Price, &p.Currency, &p.Active,
			&p.SalesCount, &p.Revenue, &p.FilePath, &p.FileName, &p.MaxDownloads, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// RecordSale bumps the product's sales counters. Called only by the caller
// that won the ledger transition, so each completed purchase counts once.
func (r *ProductRepository) RecordSale(ctx context.Context, productID, amount int64) error {
	query := `UPDATE products SET sales_count = sales_count + 1, revenue = revenue + $2
	          WHERE id = $1`
	_, err := r.db.Exec(ctx, query, productID, amount)
	return err
}

// --- digital purchases (entitlements) ---

const purchaseColumns = `id, transaction_id, buyer_id, product_id, seller_id,
	payment_status, access_status, price_paid, download_count, max_downloads, created_at`

func scanPurchase(row pgx.Row) (*domain.DigitalPurchase, error) {
	var p domain.DigitalPurchase
	err := row.Scan(&p.ID, &p.TransactionID, &p.BuyerID, &p.ProductID, &p.SellerID,
		&p.PaymentStatus, &p.AccessStatus, &p.PricePaid, &p.DownloadCount,
		&p.MaxDownloads, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// CreatePurchase inserts the entitlement for a completed transaction. The
// unique index on transaction_id plus ON CONFLICT DO NOTHING guarantees at
// most one entitlement per transaction even if two settlers raced here;
// created reports whether this call inserted the row.
func (r *ProductRepository) CreatePurchase(ctx context.Context, p *domain.DigitalPurchase) (created bool, err error) {
	query := `
		INSERT INTO digital_purchases
			(transaction_id, buyer_id, product_id, seller_id, payment_status,
			 access_status, price_paid, download_count, max_downloads, created_at)
		VALUES ($1, $2, $3, $4, 'paid', 'active', $5, 0, $6, NOW())
		ON CONFLICT (transaction_id) DO NOTHING
	`
	tag, err := r.db.Exec(ctx, query,
		p.TransactionID, p.BuyerID, p.ProductID, p.SellerID, p.PricePaid, p.MaxDownloads)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *ProductRepository) GetPurchase(ctx context.Context, id int64) (*domain.DigitalPurchase, error) {
	query := `SELECT ` + purchaseColumns + ` FROM digital_purchases WHERE id = $1`
	return scanPurchase(r.db.QueryRow(ctx, query, id))
}

func (r *ProductRepository) GetPurchaseByTransactionID(ctx context.Context, txID int64) (*domain.DigitalPurchase, error) {
	query := `SELECT ` + purchaseColumns + ` FROM digital_purchases WHERE transaction_id = $1`
	return scanPurchase(r.db.QueryRow(ctx, query, txID))
}

// HasActivePurchase reports whether the buyer already holds a live
// entitlement for the product.
func (r *ProductRepository) HasActivePurchase(ctx context.Context, buyerID string, productID int64) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (
	            SELECT 1 FROM digital_purchases
	            WHERE buyer_id = $1 AND product_id = $2
	              AND payment_status = 'paid' AND access_status = 'active')`
	if err := r.db.QueryRow(ctx, query, buyerID, productID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// IncrementDownload bumps download_count only while the purchase is paid,
// active, and under its limit. Zero rows means some precondition failed and
// the count was not touched.
func (r *ProductRepository) IncrementDownload(ctx context.Context, purchaseID int64) (bool, error) {
	query := `
		UPDATE digital_purchases SET download_count = download_count + 1
		WHERE id = $1 AND payment_status = 'paid' AND access_status = 'active'
		  AND download_count < max_downloads
	`
	tag, err := r.db.Exec(ctx, query, purchaseID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *ProductRepository) RevokeAccess(ctx context.Context, purchaseID int64) error {
	query := `UPDATE digital_purchases SET access_status = 'revoked' WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, purchaseID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

package repository

import (
	"context"
	"errors"

	"settlement-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type WalletRepository struct {
	db *pgxpool.Pool
}

func NewWalletRepository(db *pgxpool.Pool) *WalletRepository {
	return &WalletRepository{db: db}
}

// EnsureWallet gets or lazily creates the wallet for a user. The unique
// index on user_id plus ON CONFLICT DO NOTHING makes this safe to call from
// concurrent requests without ever creating a duplicate.
func (r *WalletRepository) EnsureWallet(ctx context.Context, userID string) (*domain.Wallet, error) {
	query := `
		INSERT INTO wallets (user_id, balance, currency, created_at, updated_at)
		VALUES ($1, 0, 'NGN', NOW(), NOW())
		ON CONFLICT (user_id) DO NOTHING
	`
	if _, err := r.db.Exec(ctx, query, userID); err != nil {
		return nil, err
	}
	return r.GetByUserID(ctx, userID)
}

func (r *WalletRepository) GetByUserID(ctx context.Context, userID string) (*domain.Wallet, error) {
	var w domain.Wallet
	query := `SELECT id, user_id, balance, currency, created_at, updated_at
	          FROM wallets WHERE user_id = $1`
	err := r.db.QueryRow(ctx, query, userID).
		Scan(&w.ID, &w.UserID, &w.Balance, &w.Currency, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &w, nil
}

// Credit increases the balance by amount and returns the new balance.
func (r *WalletRepository) Credit(ctx context.Context, walletID, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, domain.ErrInvalidAmount
	}

	var balance int64
	query := `UPDATE wallets SET balance = balance + $1, updated_at = NOW()
	          WHERE id = $2 RETURNING balance`
	err := r.db.QueryRow(ctx, query, amount, walletID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrNotFound
		}
		return 0, err
	}
	return balance, nil
}

// Debit decreases the balance by amount. The decrement is a single
// conditional update so two concurrent debits can never take the balance
// below zero; losing the condition maps to ErrInsufficientFunds.
func (r *WalletRepository) Debit(ctx context.Context, walletID, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, domain.ErrInvalidAmount
	}

	var balance int64
	query := `UPDATE wallets SET balance = balance - $1, updated_at = NOW()
	          WHERE id = $2 AND balance >= $1 RETURNING balance`
	err := r.db.QueryRow(ctx, query, amount, walletID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrInsufficientFunds
		}
		return 0, err
	}
	return balance, nil
}

package repository

import (
	"context"
	"errors"

	"settlement-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TransactionRepository struct {
	db *pgxpool.Pool
}

func NewTransactionRepository(db *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{db: db}
}

const txColumns = `id, reference, provider_reference, type, from_user, to_user,
	amount, currency, status, metadata, created_at, completed_at`

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var t domain.Transaction
	err := row.Scan(&t.ID, &t.Reference, &t.ProviderReference, &t.Type,
		&t.FromUser, &t.ToUser, &t.Amount, &t.Currency, &t.Status,
		&t.Metadata, &t.CreatedAt, &t.CompletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, err
	}
	return &t, nil
}

// Create opens a pending ledger entry.
func (r *TransactionRepository) Create(ctx context.Context, t *domain.Transaction) error {
	query := `
		INSERT INTO transactions
			(reference, type, from_user, to_user, amount, currency, status, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, 'pending', $7, NOW())
		RETURNING id, status, created_at
	`
	return r.db.QueryRow(ctx, query,
		t.Reference, t.Type, t.FromUser, t.ToUser, t.Amount, t.Currency, t.Metadata).
		Scan(&t.ID, &t.Status, &t.CreatedAt)
}

func (r *TransactionRepository) GetByID(ctx context.Context, id int64) (*domain.Transaction, error) {
	query := `SELECT ` + txColumns + ` FROM transactions WHERE id = $1`
	return scanTransaction(r.db.QueryRow(ctx, query, id))
}

func (r *TransactionRepository) GetByReference(ctx context.Context, reference string) (*domain.Transaction, error) {
	query := `SELECT ` + txColumns + ` FROM transactions WHERE reference = $1`
	return scanTransaction(r.db.QueryRow(ctx, query, reference))
}

// AttachProviderReference records the gateway correlation id. The reference
// is write-once: re-attaching the same value is a no-op, a different value
// is rejected.
func (r *TransactionRepository) AttachProviderReference(ctx context.Context, id int64, ref string) error {
	query := `
		UPDATE transactions SET provider_reference = $2
		WHERE id = $1 AND (provider_reference IS NULL OR provider_reference = $2)
	`
	tag, err := r.db.Exec(ctx, query, id, ref)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrReferenceMismatch
	}
	return nil
}

// Complete transitions pending -> completed. The returned bool reports
// whether THIS call won the transition, which is how the webhook/poll race
// decides who performs one-time side effects.
func (r *TransactionRepository) Complete(ctx context.Context, id int64) (bool, error) {
	return r.transition(ctx, id, domain.TxStatusCompleted)
}

// Fail transitions pending -> failed, same at-most-once contract as Complete.
func (r *TransactionRepository) Fail(ctx context.Context, id int64) (bool, error) {
	return r.transition(ctx, id, domain.TxStatusFailed)
}

func (r *TransactionRepository) transition(ctx context.Context, id int64, status domain.TransactionStatus) (bool, error) {
	query := `
		UPDATE transactions SET status = $2, completed_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`
	tag, err := r.db.Exec(ctx, query, id, status)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ListByUser returns the user's transaction history, newest first.
func (r *TransactionRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*domain.Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	query := `SELECT ` + txColumns + ` FROM transactions
	          WHERE from_user = $1 OR to_user = $1
	          ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

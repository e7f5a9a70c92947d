package repository

import (
	"context"
	"errors"

	"settlement-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type SupportRepository struct {
	db *pgxpool.Pool
}

func NewSupportRepository(db *pgxpool.Pool) *SupportRepository {
	return &SupportRepository{db: db}
}

// TransferParams carries everything the atomic support movement needs.
type TransferParams struct {
	Transaction   *domain.Transaction
	Support       *domain.EventSupport
	FromWalletID  int64
	ToWalletID    int64
	Amount        int64
	EventID       int64
}

// Transfer applies the whole support movement inside one database
// transaction: conditional debit of the supporter, credit of the recipient,
// the completed ledger entry, the EventSupport record, and the event's
// raised total. Either all of it commits or none of it does; a failed debit
// rolls everything back as ErrInsufficientFunds.
func (r *SupportRepository) Transfer(ctx context.Context, p TransferParams) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	// Debit sender, guarded against overdraw.
	debit := `UPDATE wallets SET balance = balance - $1, updated_at = NOW()
	          WHERE id = $2 AND balance >= $1`
	tag, err := tx.Exec(ctx, debit, p.Amount, p.FromWalletID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInsufficientFunds
	}

	// Credit recipient.
	credit := `UPDATE wallets SET balance = balance + $1, updated_at = NOW()
	          WHERE id = $2`
	tag, err = tx.Exec(ctx, credit, p.Amount, p.ToWalletID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}

	// Ledger entry is born completed: the transfer is synchronous and the
	// surrounding transaction is its atomicity boundary.
	t := p.Transaction
	ledger := `
		INSERT INTO transactions
			(reference, type, from_user, to_user, amount, currency, status, metadata, created_at, completed_at)
		VALUES ($1, 'event_support', $2, $3, $4, $5, 'completed', $6, NOW(), NOW())
		RETURNING id, created_at
	`
	if err := tx.QueryRow(ctx, ledger,
		t.Reference, t.FromUser, t.ToUser, t.Amount, t.Currency, t.Metadata).
		Scan(&t.ID, &t.CreatedAt); err != nil {
		return err
	}
	t.Status = domain.TxStatusCompleted

	s := p.Support
	s.TransactionID = t.ID
	supportRow := `
		INSERT INTO event_supports
			(event_id, supporter_id, recipient_id, transaction_id, kind, tier_id,
			 amount, message, anonymous, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 'paid', NOW())
		RETURNING id, created_at
	`
	if err := tx.QueryRow(ctx, supportRow,
		s.EventID, s.SupporterID, s.RecipientID, s.TransactionID, s.Kind,
		s.TierID, s.Amount, s.Message, s.Anonymous).
		Scan(&s.ID, &s.CreatedAt); err != nil {
		return err
	}
	s.Status = domain.SupportPaid

	bump := `UPDATE events SET raised_total = raised_total + $1 WHERE id = $2`
	if _, err := tx.Exec(ctx, bump, p.Amount, p.EventID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *SupportRepository) GetEvent(ctx context.Context, id int64) (*domain.Event, error) {
	var e domain.Event
	query := `SELECT id, organizer_id, organization_id, organization_owner_id,
	                 title, currency, raised_total, created_at
	          FROM events WHERE id = $1`
	err := r.db.QueryRow(ctx, query, id).
		Scan(&e.ID, &e.OrganizerID, &e.OrganizationID, &e.OrganizationOwnerID,
			&e.Title, &e.Currency, &e.RaisedTotal, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

func (r *SupportRepository) GetTier(ctx context.Context, tierID, eventID int64) (*domain.SponsorshipTier, error) {
	var t domain.SponsorshipTier
	query := `SELECT id, event_id, name, min_amount
	          FROM sponsorship_tiers WHERE id = $1 AND event_id = $2`
	err := r.db.QueryRow(ctx, query, tierID, eventID).
		Scan(&t.ID, &t.EventID, &t.Name, &t.MinAmount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

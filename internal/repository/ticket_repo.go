package repository

import (
	"context"
	"errors"
	"fmt"

	"settlement-service/internal/domain"
	"settlement-service/pkg/id"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TicketRepository struct {
	db *pgxpool.Pool
}

func NewTicketRepository(db *pgxpool.Pool) *TicketRepository {
	return &TicketRepository{db: db}
}

func (r *TicketRepository) GetEvent(ctx context.Context, eventID int64) (*domain.Event, error) {
	var e domain.Event
	query := `SELECT id, organizer_id, organization_id, organization_owner_id,
	                 title, currency, raised_total, created_at
	          FROM events WHERE id = $1`
	err := r.db.QueryRow(ctx, query, eventID).
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

func (r *TicketRepository) GetTicketType(ctx context.Context, typeID int64) (*domain.TicketType, error) {
	var t domain.TicketType
	query := `SELECT id, event_id, name, price, quantity, sold
	          FROM ticket_types WHERE id = $1`
	err := r.db.QueryRow(ctx, query, typeID).
		Scan(&t.ID, &t.EventID, &t.Name, &t.Price, &t.Quantity, &t.Sold)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// PurchaseParams is one ticket order ready to be reserved and written.
type PurchaseParams struct {
	EventID    int64
	BuyerID    *string
	GuestEmail *string
	Currency   string
	Items      []domain.OrderItem
	Reference  string // ledger reference for the ticket_purchase transaction
}

// Purchase reserves inventory and creates the order, its tickets, and the
// completed ticket_purchase ledger entry in one database transaction.
// Reservation is a bounded increment per ticket type: sold moves up only if
// it stays within quantity, so two buyers racing for the last seats cannot
// both win. Any line item failing availability rolls back the whole
// order before a single ticket or counter mutation is visible.
func (r *TicketRepository) Purchase(ctx context.Context, p PurchaseParams) (*domain.Order, []*domain.Ticket, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback(ctx)

	var total int64
	type reserved struct {
		typeID   int64
		name     string
		price    int64
		quantity int
	}
	var lines []reserved

	for _, item := range p.Items {
		reserve := `
			UPDATE ticket_types SET sold = sold + $1
			WHERE id = $2 AND event_id = $3 AND sold + $1 <= quantity
			RETURNING name, price
		`
		var name string
		var price int64
		err := tx.QueryRow(ctx, reserve, item.Quantity, item.TicketTypeID, p.EventID).
			Scan(&name, &price)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				// Either the type does not belong to the event or capacity
				// would be exceeded; name the type when we can.
				tt, lookupErr := r.GetTicketType(ctx, item.TicketTypeID)
				if lookupErr == nil && tt.EventID == p.EventID {
					return nil, nil, fmt.Errorf("%w for %s", domain.ErrSoldOut, tt.Name)
				}
				return nil, nil, domain.ErrNotFound
			}
			return nil, nil, err
		}

		total += price * int64(item.Quantity)
		lines = append(lines, reserved{item.TicketTypeID, name, price, item.Quantity})
	}

	order := &domain.Order{
		EventID:    p.EventID,
		BuyerID:    p.BuyerID,
		GuestEmail: p.GuestEmail,
		Total:      total,
		Currency:   p.Currency,
	}
	orderRow := `
		INSERT INTO orders (event_id, buyer_id, guest_email, total, currency, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id, created_at
	`
	if err := tx.QueryRow(ctx, orderRow,
		order.EventID, order.BuyerID, order.GuestEmail, order.Total, order.Currency).
		Scan(&order.ID, &order.CreatedAt); err != nil {
		return nil, nil, err
	}

	var tickets []*domain.Ticket
	ticketRow := `
		INSERT INTO tickets (order_id, event_id, ticket_type_id, code, status, created_at)
		VALUES ($1, $2, $3, $4, 'valid', NOW())
		RETURNING id, created_at
	`
	for _, line := range lines {
		for i := 0; i < line.quantity; i++ {
			t := &domain.Ticket{
				OrderID:      order.ID,
				EventID:      p.EventID,
				TicketTypeID: line.typeID,
				Code:         id.TicketCode(),
				Status:       domain.TicketValid,
			}
			if err := tx.QueryRow(ctx, ticketRow,
				t.OrderID, t.EventID, t.TicketTypeID, t.Code).
				Scan(&t.ID, &t.CreatedAt); err != nil {
				return nil, nil, err
			}
			tickets = append(tickets, t)
		}
	}

	// Ledger trail for the order, completed in the same boundary.
	meta := domain.EncodeMetadata(domain.TicketMetadata{EventID: p.EventID, OrderID: order.ID})
	ledger := `
		INSERT INTO transactions
			(reference, type, from_user, to_user, amount, currency, status, metadata, created_at, completed_at)
		VALUES ($1, 'ticket_purchase', $2, NULL, $3, $4, 'completed', $5, NOW(), NOW())
	`
	if _, err := tx.Exec(ctx, ledger, p.Reference, p.BuyerID, total, p.Currency, meta); err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, err
	}
	return order, tickets, nil
}

func (r *TicketRepository) GetTicketByCode(ctx context.Context, code string) (*domain.Ticket, error) {
	var t domain.Ticket
	query := `SELECT id, order_id, event_id, ticket_type_id, code, status, checked_in_at, created_at
	          FROM tickets WHERE code = $1`
	err := r.db.QueryRow(ctx, query, code).
		Scan(&t.ID, &t.OrderID, &t.EventID, &t.TicketTypeID, &t.Code,
			&t.Status, &t.CheckedInAt, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// CheckIn is the only forward transition out of valid. checked_in and
// cancelled are terminal: the conditional update refuses to touch them.
func (r *TicketRepository) CheckIn(ctx context.Context, ticketID int64) (bool, error) {
	query := `
		UPDATE tickets SET status = 'checked_in', checked_in_at = NOW()
		WHERE id = $1 AND status = 'valid'
	`
	tag, err := r.db.Exec(ctx, query, ticketID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Cancel moves a valid ticket to cancelled, also terminal.
func (r *TicketRepository) Cancel(ctx context.Context, ticketID int64) (bool, error) {
	query := `UPDATE tickets SET status = 'cancelled' WHERE id = $1 AND status = 'valid'`
	tag, err := r.db.Exec(ctx, query, ticketID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *TicketRepository) Analytics(ctx context.Context, eventID int64) (*domain.EventAnalytics, error) {
	a := &domain.EventAnalytics{EventID: eventID}

	query := `
		SELECT
			COUNT(*) FILTER (WHERE t.status <> 'cancelled'),
			COUNT(*) FILTER (WHERE t.status = 'checked_in'),
			COALESCE(SUM(tt.price) FILTER (WHERE t.status <> 'cancelled'), 0)
		FROM tickets t
		JOIN ticket_types tt ON tt.id = t.ticket_type_id
		WHERE t.event_id = $1
	`
	if err := r.db.QueryRow(ctx, query, eventID).
		Scan(&a.TicketsSold, &a.TicketsChecked, &a.TicketRevenue); err != nil {
		return nil, err
	}

	raised := `SELECT raised_total FROM events WHERE id = $1`
	if err := r.db.QueryRow(ctx, raised, eventID).Scan(&a.SupportRaised); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

package domain

import (
	"errors"
	"time"
)

type Event struct {
	ID                  int64     `json:"id"`
	OrganizerID         string    `json:"organizer_id"`
	OrganizationID      *int64    `json:"organization_id,omitempty"`
	OrganizationOwnerID *string   `json:"organization_owner_id,omitempty"`
	Title               string    `json:"title"`
	Currency            string    `json:"currency"`
	RaisedTotal         int64     `json:"raised_total"`
	CreatedAt           time.Time `json:"created_at"`
}

// Recipient resolves who is credited when the event receives support:
// the organization owner when the event belongs to an organization,
// otherwise the organizer.
func (e *Event) Recipient() string {
	if e.OrganizationOwnerID != nil && *e.OrganizationOwnerID != "" {
		return *e.OrganizationOwnerID
	}
	return e.OrganizerID
}

type SponsorshipTier struct {
	ID        int64  `json:"id"`
	EventID   int64  `json:"event_id"`
	Name      string `json:"name"`
	MinAmount int64  `json:"min_amount"`
}

type TicketType struct {
	ID       int64  `json:"id"`
	EventID  int64  `json:"event_id"`
	Name     string `json:"name"`
	Price    int64  `json:"price"` // minor units
	Quantity int    `json:"quantity"`
	Sold     int    `json:"sold"`
}

type Order struct {
	ID         int64     `json:"id"`
	EventID    int64     `json:"event_id"`
	BuyerID    *string   `json:"buyer_id,omitempty"`
	GuestEmail *string   `json:"guest_email,omitempty"`
	Total      int64     `json:"total"`
	Currency   string    `json:"currency"`
	CreatedAt  time.Time `json:"created_at"`
}

type TicketStatus string

const (
	TicketValid     TicketStatus = "valid"
	TicketCheckedIn TicketStatus = "checked_in"
	TicketCancelled TicketStatus = "cancelled"
)

type Ticket struct {
	ID           int64        `json:"id"`
	OrderID      int64        `json:"order_id"`
	EventID      int64        `json:"event_id"`
	TicketTypeID int64        `json:"ticket_type_id"`
	Code         string       `json:"code"`
	Status       TicketStatus `json:"status"`
	CheckedInAt  *time.Time   `json:"checked_in_at,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
}

type OrderItem struct {
	TicketTypeID int64 `json:"ticket_type_id"`
	Quantity     int   `json:"quantity"`
}

func (i OrderItem) Validate() error {
	if i.TicketTypeID <= 0 {
		return errors.New("ticket_type_id is required")
	}
	if i.Quantity <= 0 {
		return errors.New("quantity must be greater than 0")
	}
	return nil
}

type SupportKind string

const (
	SupportDonation    SupportKind = "donation"
	SupportSponsorship SupportKind = "sponsorship"
)

type SupportStatus string

const (
	SupportPending SupportStatus = "pending"
	SupportPaid    SupportStatus = "paid"
	SupportFailed  SupportStatus = "failed"
)

type EventSupport struct {
	ID            int64         `json:"id"`
	EventID       int64         `json:"event_id"`
	SupporterID   string        `json:"supporter_id"`
	RecipientID   string        `json:"recipient_id"`
	TransactionID int64         `json:"transaction_id"`
	Kind          SupportKind   `json:"kind"`
	TierID        *int64        `json:"tier_id,omitempty"`
	Amount        int64         `json:"amount"`
	Message       string        `json:"message,omitempty"`
	Anonymous     bool          `json:"anonymous"`
	Status        SupportStatus `json:"status"`
	CreatedAt     time.Time     `json:"created_at"`
}

// EventAnalytics aggregates the settlement view of one event.
type EventAnalytics struct {
	EventID        int64 `json:"event_id"`
	TicketsSold    int   `json:"tickets_sold"`
	TicketsChecked int   `json:"tickets_checked_in"`
	TicketRevenue  int64 `json:"ticket_revenue"`
	SupportRaised  int64 `json:"support_raised"`
}

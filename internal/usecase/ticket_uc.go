package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"settlement-service/internal/domain"
	"settlement-service/internal/repository"
	"settlement-service/pkg/cache"
	"settlement-service/pkg/id"

	"go.uber.org/zap"
)

type TicketPurchaseRequest struct {
	EventID    int64
	BuyerID    *string // nil for guest checkout
	GuestEmail *string
	Items      []domain.OrderItem
}

const analyticsCacheTTL = 30 * time.Second

type TicketUsecase struct {
	store  TicketStore
	cache  *cache.Cache // optional; nil disables caching
	logger *zap.Logger
}

func NewTicketUsecase(store TicketStore, c *cache.Cache, logger *zap.Logger) *TicketUsecase {
	return &TicketUsecase{store: store, cache: c, logger: logger}
}

// Purchase reserves inventory and issues tickets for every line item, or
// nothing at all. Concurrency safety lives in the store's bounded
// sold-counter increment.
func (uc *TicketUsecase) Purchase(ctx context.Context, req TicketPurchaseRequest) (*domain.Order, []*domain.Ticket, error) {
	if len(req.Items) == 0 {
		return nil, nil, fmt.Errorf("%w: at least one line item is required", domain.ErrValidation)
	}
	for _, item := range req.Items {
		if err := item.Validate(); err != nil {
			return nil, nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
		}
	}
	if req.BuyerID == nil && (req.GuestEmail == nil || *req.GuestEmail == "") {
		return nil, nil, fmt.Errorf("%w: guest purchases require an email", domain.ErrValidation)
	}

	event, err := uc.store.GetEvent(ctx, req.EventID)
	if err != nil {
		return nil, nil, err
	}

	order, tickets, err := uc.store.Purchase(ctx, repository.PurchaseParams{
		EventID:    req.EventID,
		BuyerID:    req.BuyerID,
		GuestEmail: req.GuestEmail,
		Currency:   event.Currency,
		Items:      req.Items,
		Reference:  id.Generate("txn"),
	})
	if err != nil {
		return nil, nil, err
	}

	uc.logger.Info("ticket order settled",
		zap.Int64("event_id", req.EventID),
		zap.Int64("order_id", order.ID),
		zap.Int("tickets", len(tickets)),
		zap.Int64("total", order.Total))

	uc.invalidateAnalytics(ctx, req.EventID)
	return order, tickets, nil
}

// CheckIn admits a valid ticket. Only the event's organizer may check
// tickets in; checked_in and cancelled are terminal.
func (uc *TicketUsecase) CheckIn(ctx context.Context, ticketCode, organizerID string) (*domain.Ticket, error) {
	ticket, err := uc.store.GetTicketByCode(ctx, ticketCode)
	if err != nil {
		return nil, err
	}

	event, err := uc.store.GetEvent(ctx, ticket.EventID)
	if err != nil {
		return nil, err
	}
	if event.OrganizerID != organizerID {
		return nil, domain.ErrForbidden
	}

	switch ticket.Status {
	case domain.TicketCheckedIn:
		return nil, domain.ErrAlreadyCheckedIn
	case domain.TicketCancelled:
		return nil, domain.ErrTicketCancelled
	}

	ok, err := uc.store.CheckIn(ctx, ticket.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Lost a race with another scanner; re-read to report the truth.
		current, err := uc.store.GetTicketByCode(ctx, ticketCode)
		if err != nil {
			return nil, err
		}
		if current.Status == domain.TicketCancelled {
			return nil, domain.ErrTicketCancelled
		}
		return nil, domain.ErrAlreadyCheckedIn
	}

	uc.invalidateAnalytics(ctx, ticket.EventID)
	return uc.store.GetTicketByCode(ctx, ticketCode)
}

// Cancel voids a valid ticket.
func (uc *TicketUsecase) Cancel(ctx context.Context, ticketCode, organizerID string) (*domain.Ticket, error) {
	ticket, err := uc.store.GetTicketByCode(ctx, ticketCode)
	if err != nil {
		return nil, err
	}

	event, err := uc.store.GetEvent(ctx, ticket.EventID)
	if err != nil {
		return nil, err
	}
	if event.OrganizerID != organizerID {
		return nil, domain.ErrForbidden
	}

	switch ticket.Status {
	case domain.TicketCheckedIn:
		return nil, domain.ErrAlreadyCheckedIn
	case domain.TicketCancelled:
		return nil, domain.ErrTicketCancelled
	}

	if _, err := uc.store.Cancel(ctx, ticket.ID); err != nil {
		return nil, err
	}

	uc.invalidateAnalytics(ctx, ticket.EventID)
	return uc.store.GetTicketByCode(ctx, ticketCode)
}

// Analytics returns revenue / sold / checked-in aggregates for an event,
// cache-aside with a short TTL. Cache failures fall through to the database.
func (uc *TicketUsecase) Analytics(ctx context.Context, eventID int64) (*domain.EventAnalytics, error) {
	key := fmt.Sprintf("%d", eventID)

	if uc.cache != nil {
		if cached, err := uc.cache.Get(ctx, "analytics", key); err == nil {
			var a domain.EventAnalytics
			if err := json.Unmarshal([]byte(cached), &a); err == nil {
				return &a, nil
			}
		}
	}

	a, err := uc.store.Analytics(ctx, eventID)
	if err != nil {
		return nil, err
	}

	if uc.cache != nil {
		if b, err := json.Marshal(a); err == nil {
			if err := uc.cache.Set(ctx, "analytics", key, b, analyticsCacheTTL); err != nil {
				uc.logger.Warn("analytics cache write failed",
					zap.Int64("event_id", eventID), zap.Error(err))
			}
		}
	}
	return a, nil
}

func (uc *TicketUsecase) invalidateAnalytics(ctx context.Context, eventID int64) {
	if uc.cache == nil {
		return
	}
	if err := uc.cache.Delete(ctx, "analytics", fmt.Sprintf("%d", eventID)); err != nil {
		uc.logger.Warn("analytics cache invalidation failed",
			zap.Int64("event_id", eventID), zap.Error(err))
	}
}

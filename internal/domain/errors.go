package domain

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Generic
var (
	ErrValidation     = errors.New("invalid request")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
	ErrInternalServer = errors.New("internal server error")
)

// Wallet / ledger
var (
	ErrInsufficientFunds   = errors.New("insufficient wallet balance")
	ErrInvalidAmount       = errors.New("amount must be greater than zero")
	ErrSelfTransfer        = errors.New("cannot transfer to your own wallet")
	ErrReferenceMismatch   = errors.New("provider reference already set to a different value")
	ErrTransactionNotFound = errors.New("transaction not found")
)

// Gateway
var (
	ErrGateway        = errors.New("payment gateway error")
	ErrGatewayTimeout = errors.New("payment gateway timeout")
	ErrBadSignature   = errors.New("invalid webhook signature")
)

// Digital products
var (
	ErrAlreadyOwned    = errors.New("buyer already owns this product")
	ErrProductInactive = errors.New("product is not available for purchase")
	ErrAccessRevoked   = errors.New("access to this purchase has been revoked")
	ErrDownloadLimit   = errors.New("download limit reached")
	ErrNotPaid         = errors.New("purchase has not been paid for")
)

// Tickets
var (
	ErrSoldOut          = errors.New("not enough tickets")
	ErrAlreadyCheckedIn = errors.New("ticket already checked in")
	ErrTicketCancelled  = errors.New("ticket is cancelled")
)

// Event support
var (
	ErrTierMinimum = errors.New("amount below sponsorship tier minimum")
)

const pgUniqueViolation = "23505"

// IsUniqueViolation reports whether err is a Postgres unique_violation,
// used to map duplicate inserts onto ErrConflict.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return false
}

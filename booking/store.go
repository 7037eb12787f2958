/*
store.go - Persistence interfaces for bookings, credits, and history

PURPOSE:
  Defines the interface between the domain logic and the database. Different
  implementations can use SQLite or in-memory storage; the same contracts
  apply to PostgreSQL or MySQL.

KEY INTERFACES:
  Store:   Row-level operations on the three tables
  TxStore: Transactional operations (atomic multi-table writes)

APPEND-ONLY CONTRACT:
  The history ledger is append-only. AppendHistory is the only history write;
  there is no update or delete. Corrections happen by appending a new status
  transition.

CONDITIONAL BIND:
  BindCreditToBooking must be a conditional write: the update only applies
  while the credit is still unbound, and zero affected rows is reported as
  ErrCreditNotFound. This is what makes two concurrent allocations of the
  same credit impossible without in-process locks.

ATOMIC TRANSACTIONS:
  WithTx ensures all-or-nothing semantics. The allocation sequence (booking +
  seed history + credit bind, both directions) either fully commits or leaves
  no trace.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: Production SQLite
  - booking/store/memory.go: In-memory for testing

SEE ALSO:
  - service.go: Allocation built on these interfaces
  - stats.go: Read-only statistics built on these interfaces
*/
package booking

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// STORE - Row-level persistence
// =============================================================================

// Store handles persistence of bookings, credits, and the status history
// ledger. Lookup methods return (nil, nil) for absent rows; "no match" is a
// valid empty result, not an error.
type Store interface {
	// --- Credits ---

	// CreateCredit inserts a credit.
	CreateCredit(ctx context.Context, c Credit) error

	// GetCredit returns a credit by id, or (nil, nil) if absent.
	GetCredit(ctx context.Context, id string) (*Credit, error)

	// FindEligibleCredit returns the earliest-expiring credit with
	// ExpiresAt > now and no bound booking, or (nil, nil) when none exists.
	FindEligibleCredit(ctx context.Context, now time.Time) (*Credit, error)

	// BindCreditToBooking sets the credit's booking link, but only while the
	// credit is still unbound. Returns ErrCreditNotFound when the credit no
	// longer exists or is already bound (zero rows affected).
	BindCreditToBooking(ctx context.Context, creditID, bookingID string) error

	// ListCreditsByPatient returns a patient's credits in creation order.
	ListCreditsByPatient(ctx context.Context, patientID string) ([]Credit, error)

	// SumAvailableCreditValue sums Value over all unbound credits. Returns
	// zero (not an error) when there are none; callers guard division.
	SumAvailableCreditValue(ctx context.Context) (decimal.Decimal, error)

	// --- Bookings ---

	// CreateBooking inserts a booking.
	CreateBooking(ctx context.Context, b Booking) error

	// GetBooking returns a booking by id, or (nil, nil) if absent.
	GetBooking(ctx context.Context, id string) (*Booking, error)

	// SetBookingCredit sets the booking's credit back-link.
	// Returns ErrBookingNotFound if the booking is absent.
	SetBookingCredit(ctx context.Context, bookingID, creditID string) error

	// UpdateBookingStatus mutates the status and bumps UpdatedAt.
	// Returns ErrBookingNotFound if the booking is absent.
	// Callers must pair this with AppendHistory inside one transaction;
	// Service.SetStatus is the single entry point that does.
	UpdateBookingStatus(ctx context.Context, bookingID string, status Status, at time.Time) error

	// ListBookingsByUser returns all bookings where the user is the patient
	// or the provider, in creation order.
	ListBookingsByUser(ctx context.Context, userID string) ([]Booking, error)

	// CountBookingsByProviderAndStatus returns an exact lifetime count.
	CountBookingsByProviderAndStatus(ctx context.Context, providerID string, status Status) (int, error)

	// --- Status history (append-only) ---

	// AppendHistory inserts a history entry. Never fails except on storage
	// error. This is the ONLY history write.
	AppendHistory(ctx context.Context, e HistoryEntry) error

	// ListHistory returns a booking's history ascending by timestamp.
	// Empty slice (not an error) when the booking has no history or does not
	// exist; that distinction belongs to the caller.
	ListHistory(ctx context.Context, bookingID string) ([]HistoryEntry, error)

	// --- Aggregates ---

	// MonthlyConfirmedCreditUsage sums bound credit Value over the patient's
	// confirmed bookings, grouped by calendar (year, month) of Booking.Time,
	// ascending. The group key is the booking time, not credit consumption.
	MonthlyConfirmedCreditUsage(ctx context.Context, patientID string) ([]MonthlyUsageRow, error)
}

// =============================================================================
// TRANSACTIONAL STORE - For atomic operations across multiple writes
// =============================================================================

// TxStore wraps Store with transaction support. Use this for the allocation
// sequence and status transitions, which span multiple tables.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction.
	// If fn returns error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}

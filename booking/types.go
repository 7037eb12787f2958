/*
Package booking provides the core booking and credit-allocation engine.

PURPOSE:
  This package contains the domain types and services for a prepaid-credit
  booking system. A booking can only be created when an unused, unexpired
  credit exists; the booking and the credit are bound to each other
  atomically; and every status a booking has ever held is recorded in an
  append-only history ledger.

KEY CONCEPTS IN THIS FILE (types.go):
  - Booking:      A scheduled appointment with a mutable status
  - Credit:       A prepaid allowance, consumable by at most one booking
  - HistoryEntry: Immutable record of a status a booking held, and when
  - Status:       The booking status enumeration

DESIGN PRINCIPLES:
  1. Immutability: History entries are never modified, only appended
  2. Precision: Uses decimal.Decimal for credit values and percentages
  3. Paired links: Booking.CreditID and Credit.BookingID are set together,
     inside the same transaction
  4. Anonymous bookings: PatientID may be empty

SEE ALSO:
  - store.go: Persistence interfaces
  - service.go: Allocation and status transitions
  - stats.go: Provider and patient statistics
*/
package booking

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// STATUS - Booking status enumeration
// =============================================================================

type Status string

const (
	StatusPending     Status = "pending" // initial status, seeded at creation
	StatusConfirmed   Status = "confirmed"
	StatusCanceled    Status = "canceled"
	StatusRescheduled Status = "rescheduled"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCanceled, StatusRescheduled:
		return true
	}
	return false
}

// =============================================================================
// BOOKING - A scheduled appointment
// =============================================================================

// Booking is a scheduled appointment between an (optionally anonymous)
// patient and a provider. Status is only ever mutated through
// Service.SetStatus, which also appends a HistoryEntry.
type Booking struct {
	ID        string
	Time      time.Time
	PatientID string // empty = anonymous booking
	Provider  string
	Status    Status
	CreditID  string // back-link to the consumed credit
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Anonymous reports whether the booking has no associated patient.
func (b Booking) Anonymous() bool { return b.PatientID == "" }

// NewBooking is the input for creating a booking.
type NewBooking struct {
	Time      time.Time
	PatientID string // optional
	Provider  string
}

// =============================================================================
// CREDIT - A prepaid allowance unit
// =============================================================================

// Credit is a prepaid allowance consumable by at most one booking. Once
// BookingID is set the credit is permanently bound; no unbind operation
// exists. Kind is a categorical label; Value is the numeric quantity summed
// by the statistics service.
type Credit struct {
	ID        string
	Kind      string
	Value     decimal.Decimal
	ExpiresAt time.Time
	BookingID string // empty = unused/available
	PatientID string // optional owner
	CreatedAt time.Time
}

// Available reports whether the credit is unbound and unexpired as of now.
func (c Credit) Available(now time.Time) bool {
	return c.BookingID == "" && c.ExpiresAt.After(now)
}

// =============================================================================
// HISTORY ENTRY - Append-only status ledger
// =============================================================================

// HistoryEntry records one status a booking held. Entries are immutable and
// totally ordered by Timestamp within a booking.
type HistoryEntry struct {
	ID        string
	BookingID string
	Status    Status
	Timestamp time.Time
}

// =============================================================================
// STATISTICS RESULTS
// =============================================================================

// ProviderStatusStats holds lifetime cancellation/reschedule counts for one
// provider.
type ProviderStatusStats struct {
	CanceledCount    int
	RescheduledCount int
}

// MonthlyCreditUsage is one (year, month) bucket of a patient's confirmed
// credit consumption. PercentageUsed is relative to the ledger-wide sum of
// currently available credit value at query time.
type MonthlyCreditUsage struct {
	Year           int
	Month          time.Month
	TotalUsed      decimal.Decimal
	PercentageUsed decimal.Decimal
}

// MonthlyUsageRow is the raw aggregation row produced by a Store, before
// percentages are applied.
type MonthlyUsageRow struct {
	Year      int
	Month     time.Month
	TotalUsed decimal.Decimal
}

/*
service.go - Booking allocation and status transitions

PURPOSE:
  The write paths of the engine. CreateBookingWithCredit is the atomic
  allocation: find an eligible credit, create the booking, seed its history,
  and bind the credit in both directions - all or nothing. SetStatus is the
  single entry point for status mutation and always appends history.

ALLOCATION SEQUENCE:
  1. Find an eligible credit (unexpired, unbound). None -> ErrNoEligibleCredit,
     no writes performed.
  2. Create the booking with status "pending".
  3. Append the seed history entry.
  4. Bind the chosen credit to the booking (conditional write), then set the
     booking's back-link.
  Steps 2-4 run inside one store transaction. The bind re-validates
  eligibility at write time: if the credit was consumed by a concurrent
  allocation between steps 1 and 4, the conditional update affects zero rows,
  the transaction rolls back, and the caller gets ErrConcurrentAllocation.
  No orphan booking or history row survives a failed allocation.

STATUS TRANSITIONS:
  Every status a booking has ever held, including its current one, has
  exactly one history row. SetStatus preserves that invariant by pairing the
  status update and the history append in one transaction, stamped with the
  same timestamp. Credit binding is permanent and status-independent:
  rescheduling or canceling a booking does not return its credit.

SEE ALSO:
  - store.go: The TxStore contract this service relies on
  - stats.go: Read-only statistics
*/
package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// SERVICE
// =============================================================================

// Service owns the write paths: credit allocation and status transitions.
// Construct one per process with NewService and share it across requests;
// all coordination happens through the store's transactional guarantees.
type Service struct {
	store TxStore

	// Injectable for tests.
	now   func() time.Time
	newID func() string
}

// NewService creates a service on top of a transactional store.
func NewService(store TxStore) *Service {
	return &Service{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
}

// =============================================================================
// ALLOCATION
// =============================================================================

// CreateBookingWithCredit creates a booking backed by an eligible credit.
// Returns ErrNoEligibleCredit when no credit qualifies, a *ValidationError
// for bad input, and ErrConcurrentAllocation when the chosen credit raced
// away; in every failure case the store is left unchanged.
func (s *Service) CreateBookingWithCredit(ctx context.Context, req NewBooking) (*Booking, error) {
	if req.Time.IsZero() {
		return nil, &ValidationError{Field: "time", Reason: "must be a valid instant"}
	}
	if req.Provider == "" {
		return nil, &ValidationError{Field: "provider", Reason: "is required"}
	}

	now := s.now()

	credit, err := s.store.FindEligibleCredit(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("finding eligible credit: %w", err)
	}
	if credit == nil {
		return nil, ErrNoEligibleCredit
	}

	b := Booking{
		ID:        s.newID(),
		Time:      req.Time,
		PatientID: req.PatientID,
		Provider:  req.Provider,
		Status:    StatusPending,
		CreditID:  credit.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	seed := HistoryEntry{
		ID:        s.newID(),
		BookingID: b.ID,
		Status:    StatusPending,
		Timestamp: now,
	}

	err = s.store.WithTx(ctx, func(tx Store) error {
		if err := tx.CreateBooking(ctx, b); err != nil {
			return fmt.Errorf("creating booking: %w", err)
		}
		if err := tx.AppendHistory(ctx, seed); err != nil {
			return fmt.Errorf("seeding history: %w", err)
		}
		if err := tx.BindCreditToBooking(ctx, credit.ID, b.ID); err != nil {
			// Eligibility was confirmed above, so a failed conditional bind
			// means another allocation consumed the credit in between.
			if errors.Is(err, ErrCreditNotFound) {
				return ErrConcurrentAllocation
			}
			return fmt.Errorf("binding credit: %w", err)
		}
		return tx.SetBookingCredit(ctx, b.ID, credit.ID)
	})
	if err != nil {
		return nil, err
	}

	return &b, nil
}

// =============================================================================
// STATUS TRANSITIONS
// =============================================================================

// SetStatus mutates a booking's status and appends the matching history
// entry, atomically. This is the only status mutation path.
func (s *Service) SetStatus(ctx context.Context, bookingID string, status Status) (*Booking, error) {
	if !status.Valid() {
		return nil, &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", status)}
	}

	now := s.now()
	entry := HistoryEntry{
		ID:        s.newID(),
		BookingID: bookingID,
		Status:    status,
		Timestamp: now,
	}

	err := s.store.WithTx(ctx, func(tx Store) error {
		if err := tx.UpdateBookingStatus(ctx, bookingID, status, now); err != nil {
			return err
		}
		return tx.AppendHistory(ctx, entry)
	})
	if err != nil {
		return nil, err
	}

	return s.Booking(ctx, bookingID)
}

// =============================================================================
// READS
// =============================================================================

// Booking returns a booking by id. Returns ErrBookingNotFound if absent.
func (s *Service) Booking(ctx context.Context, id string) (*Booking, error) {
	b, err := s.store.GetBooking(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading booking: %w", err)
	}
	if b == nil {
		return nil, ErrBookingNotFound
	}
	return b, nil
}

// BookingsForUser returns all bookings where the user is the patient or the
// provider, in creation order.
func (s *Service) BookingsForUser(ctx context.Context, userID string) ([]Booking, error) {
	return s.store.ListBookingsByUser(ctx, userID)
}

// History returns a booking's status history ascending by timestamp. An
// unknown booking yields an empty slice, not an error.
func (s *Service) History(ctx context.Context, bookingID string) ([]HistoryEntry, error) {
	return s.store.ListHistory(ctx, bookingID)
}

/*
errors.go - Centralized error types for the booking engine

PURPOSE:
  All domain error types in one place. The API boundary maps each kind to an
  HTTP status exactly once; everything below raises typed failures.

ERROR CATEGORIES:
  1. Eligibility errors - no credit can satisfy an allocation
  2. Not-found errors   - referenced booking/credit absent
  3. Conflict errors    - a credit raced away mid-allocation
  4. Validation errors  - malformed or missing input

USAGE:
  if errors.Is(err, booking.ErrNoEligibleCredit) { ... }

  var verr *booking.ValidationError
  if errors.As(err, &verr) { ... }

SEE ALSO:
  - service.go: Raises these errors
  - api/handlers.go: Maps them to HTTP statuses
*/
package booking

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNoEligibleCredit is returned when no unused, unexpired credit exists
	// to back a new booking. An empty ledger is not a storage failure.
	ErrNoEligibleCredit = errors.New("no unused, non-expired credit available")

	// ErrBookingNotFound is returned when a referenced booking doesn't exist.
	ErrBookingNotFound = errors.New("booking not found")

	// ErrCreditNotFound is returned when a referenced credit doesn't exist or
	// is no longer bindable (already consumed by another booking).
	ErrCreditNotFound = errors.New("credit not found or already bound")

	// ErrConcurrentAllocation is returned when the chosen credit was consumed
	// by a concurrent allocation between selection and bind. The whole
	// allocation rolls back; the caller may retry.
	ErrConcurrentAllocation = errors.New("credit was allocated concurrently")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError reports a malformed or missing input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing resource,
// including a failed eligible-credit lookup.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrBookingNotFound) ||
		errors.Is(err, ErrCreditNotFound) ||
		errors.Is(err, ErrNoEligibleCredit)
}

// IsConflict returns true if the error might succeed on retry.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConcurrentAllocation)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}

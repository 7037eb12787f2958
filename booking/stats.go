/*
stats.go - Aggregate statistics for providers and patients

PURPOSE:
  Read-only statistics computed over the booking store and credit ledger:
  - Lifetime cancellation/reschedule counts per provider
  - Monthly credit-usage percentages per patient

PERCENTAGE SEMANTICS:
  For each (year, month) bucket with at least one confirmed booking, the
  used amount is the sum of the bound credits' Value. The percentage divides
  by the ledger-wide sum of currently available (unbound) credit value at
  query time, times 100. When that sum is zero the divisor falls back to 1
  so the endpoint stays total instead of crashing on division by zero; the
  result is not a true percentage in that degenerate case. A month with zero
  usage is exactly 0 regardless of the denominator.

  All arithmetic is decimal.Decimal; float64 appears only at the API
  boundary.

SEE ALSO:
  - store.go: CountBookingsByProviderAndStatus, MonthlyConfirmedCreditUsage,
    SumAvailableCreditValue
*/
package booking

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Stats computes aggregate statistics. Read-only; safe to share.
type Stats struct {
	store Store
}

// NewStats creates a statistics service over a store.
func NewStats(store Store) *Stats {
	return &Stats{store: store}
}

// ProviderStatusStats returns lifetime counts of a provider's canceled and
// rescheduled bookings. No time windowing.
func (s *Stats) ProviderStatusStats(ctx context.Context, providerID string) (ProviderStatusStats, error) {
	canceled, err := s.store.CountBookingsByProviderAndStatus(ctx, providerID, StatusCanceled)
	if err != nil {
		return ProviderStatusStats{}, fmt.Errorf("counting canceled bookings: %w", err)
	}
	rescheduled, err := s.store.CountBookingsByProviderAndStatus(ctx, providerID, StatusRescheduled)
	if err != nil {
		return ProviderStatusStats{}, fmt.Errorf("counting rescheduled bookings: %w", err)
	}
	return ProviderStatusStats{
		CanceledCount:    canceled,
		RescheduledCount: rescheduled,
	}, nil
}

// PatientMonthlyCreditUsage returns the patient's confirmed credit usage per
// calendar month, ascending, each bucket carrying its percentage of the
// currently available credit value.
func (s *Stats) PatientMonthlyCreditUsage(ctx context.Context, patientID string) ([]MonthlyCreditUsage, error) {
	rows, err := s.store.MonthlyConfirmedCreditUsage(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("aggregating monthly usage: %w", err)
	}

	available, err := s.store.SumAvailableCreditValue(ctx)
	if err != nil {
		return nil, fmt.Errorf("summing available credit value: %w", err)
	}
	if available.IsZero() {
		// Deliberate fallback: keep the division defined when no credit is
		// available. The resulting figure is not a true percentage.
		available = decimal.NewFromInt(1)
	}

	usage := make([]MonthlyCreditUsage, len(rows))
	for i, row := range rows {
		pct := decimal.Zero
		if !row.TotalUsed.IsZero() {
			pct = row.TotalUsed.Div(available).Mul(hundred)
		}
		usage[i] = MonthlyCreditUsage{
			Year:           row.Year,
			Month:          row.Month,
			TotalUsed:      row.TotalUsed,
			PercentageUsed: pct,
		}
	}
	return usage, nil
}

package booking_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carebook/booking-engine/booking"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// confirmedBooking allocates a booking at the given time and confirms it.
// Seed the intended credit immediately before calling so it is the one
// consumed.
func confirmedBooking(t *testing.T, svc *booking.Service, patientID, provider string, at time.Time) *booking.Booking {
	t.Helper()
	ctx := context.Background()

	b, err := svc.CreateBookingWithCredit(ctx, booking.NewBooking{
		Time:      at,
		PatientID: patientID,
		Provider:  provider,
	})
	require.NoError(t, err)

	b, err = svc.SetStatus(ctx, b.ID, booking.StatusConfirmed)
	require.NoError(t, err)
	return b
}

// =============================================================================
// PROVIDER STATISTICS TESTS
// =============================================================================

func TestProviderStatusStats_CountsCanceledAndRescheduled(t *testing.T) {
	// GIVEN: A provider with 2 canceled, 1 rescheduled, and 1 confirmed booking
	// WHEN: Computing provider stats
	// THEN: Counts are {canceled: 2, rescheduled: 1}

	svc, mem := newTestService(t)
	stats := booking.NewStats(mem)
	ctx := context.Background()

	at := time.Date(2026, time.March, 3, 9, 0, 0, 0, time.UTC)
	final := []booking.Status{
		booking.StatusCanceled,
		booking.StatusCanceled,
		booking.StatusRescheduled,
		booking.StatusConfirmed,
	}
	for _, status := range final {
		seedCredit(t, mem, 10, time.Now().Add(24*time.Hour), "pat-1")
		b, err := svc.CreateBookingWithCredit(ctx, booking.NewBooking{
			Time: at, PatientID: "pat-1", Provider: "dr-lane",
		})
		require.NoError(t, err)
		_, err = svc.SetStatus(ctx, b.ID, status)
		require.NoError(t, err)
	}

	got, err := stats.ProviderStatusStats(ctx, "dr-lane")
	require.NoError(t, err)
	assert.Equal(t, 2, got.CanceledCount)
	assert.Equal(t, 1, got.RescheduledCount)
}

func TestProviderStatusStats_UnknownProvider_Zero(t *testing.T) {
	_, mem := newTestService(t)
	stats := booking.NewStats(mem)

	got, err := stats.ProviderStatusStats(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Zero(t, got.CanceledCount)
	assert.Zero(t, got.RescheduledCount)
}

// =============================================================================
// MONTHLY CREDIT USAGE TESTS
// =============================================================================

func TestPatientMonthlyCreditUsage_PercentOfAvailableValue(t *testing.T) {
	// GIVEN: Confirmed bookings in January (credit value 30) and February
	//        (credit value 20), plus one unbound credit of value 50
	// WHEN: Computing monthly usage
	// THEN: January is 60% and February 40% of the available value

	svc, mem := newTestService(t)
	stats := booking.NewStats(mem)
	ctx := context.Background()

	seedCredit(t, mem, 30, time.Now().Add(24*time.Hour), "pat-1")
	confirmedBooking(t, svc, "pat-1", "dr-lane",
		time.Date(2026, time.January, 10, 10, 0, 0, 0, time.UTC))

	seedCredit(t, mem, 20, time.Now().Add(24*time.Hour), "pat-1")
	confirmedBooking(t, svc, "pat-1", "dr-lane",
		time.Date(2026, time.February, 5, 10, 0, 0, 0, time.UTC))

	// Unbound credit: the denominator
	seedCredit(t, mem, 50, time.Now().Add(240*time.Hour), "pat-1")

	usage, err := stats.PatientMonthlyCreditUsage(ctx, "pat-1")
	require.NoError(t, err)
	require.Len(t, usage, 2)

	assert.Equal(t, 2026, usage[0].Year)
	assert.Equal(t, time.January, usage[0].Month)
	assert.True(t, usage[0].TotalUsed.Equal(decimal.NewFromInt(30)), "got %s", usage[0].TotalUsed)
	assert.True(t, usage[0].PercentageUsed.Equal(decimal.NewFromInt(60)), "got %s", usage[0].PercentageUsed)

	assert.Equal(t, time.February, usage[1].Month)
	assert.True(t, usage[1].TotalUsed.Equal(decimal.NewFromInt(20)), "got %s", usage[1].TotalUsed)
	assert.True(t, usage[1].PercentageUsed.Equal(decimal.NewFromInt(40)), "got %s", usage[1].PercentageUsed)
}

func TestPatientMonthlyCreditUsage_SameMonthAccumulates(t *testing.T) {
	// GIVEN: Two confirmed bookings in the same calendar month
	// WHEN: Computing monthly usage
	// THEN: One bucket with the summed value

	svc, mem := newTestService(t)
	stats := booking.NewStats(mem)

	seedCredit(t, mem, 10, time.Now().Add(24*time.Hour), "pat-1")
	confirmedBooking(t, svc, "pat-1", "dr-lane",
		time.Date(2026, time.April, 2, 9, 0, 0, 0, time.UTC))

	seedCredit(t, mem, 15, time.Now().Add(24*time.Hour), "pat-1")
	confirmedBooking(t, svc, "pat-1", "dr-lane",
		time.Date(2026, time.April, 20, 9, 0, 0, 0, time.UTC))

	usage, err := stats.PatientMonthlyCreditUsage(context.Background(), "pat-1")
	require.NoError(t, err)
	require.Len(t, usage, 1)
	assert.True(t, usage[0].TotalUsed.Equal(decimal.NewFromInt(25)), "got %s", usage[0].TotalUsed)
}

func TestPatientMonthlyCreditUsage_IgnoresUnconfirmedBookings(t *testing.T) {
	// GIVEN: A pending booking and a canceled booking
	// WHEN: Computing monthly usage
	// THEN: No usage buckets

	svc, mem := newTestService(t)
	stats := booking.NewStats(mem)
	ctx := context.Background()

	seedCredit(t, mem, 10, time.Now().Add(24*time.Hour), "pat-1")
	_, err := svc.CreateBookingWithCredit(ctx, booking.NewBooking{
		Time:      time.Date(2026, time.May, 1, 9, 0, 0, 0, time.UTC),
		PatientID: "pat-1",
		Provider:  "dr-lane",
	})
	require.NoError(t, err)

	seedCredit(t, mem, 10, time.Now().Add(24*time.Hour), "pat-1")
	b, err := svc.CreateBookingWithCredit(ctx, booking.NewBooking{
		Time:      time.Date(2026, time.May, 2, 9, 0, 0, 0, time.UTC),
		PatientID: "pat-1",
		Provider:  "dr-lane",
	})
	require.NoError(t, err)
	_, err = svc.SetStatus(ctx, b.ID, booking.StatusCanceled)
	require.NoError(t, err)

	usage, err := stats.PatientMonthlyCreditUsage(ctx, "pat-1")
	require.NoError(t, err)
	assert.Empty(t, usage)
}

func TestPatientMonthlyCreditUsage_ZeroAvailable_DivisorFallsBackToOne(t *testing.T) {
	// GIVEN: Every credit is bound, so the available sum is zero
	// WHEN: Computing monthly usage
	// THEN: The divisor falls back to 1; the figure is value*100

	svc, mem := newTestService(t)
	stats := booking.NewStats(mem)

	seedCredit(t, mem, 30, time.Now().Add(24*time.Hour), "pat-1")
	confirmedBooking(t, svc, "pat-1", "dr-lane",
		time.Date(2026, time.June, 15, 9, 0, 0, 0, time.UTC))

	usage, err := stats.PatientMonthlyCreditUsage(context.Background(), "pat-1")
	require.NoError(t, err)
	require.Len(t, usage, 1)
	assert.True(t, usage[0].PercentageUsed.Equal(decimal.NewFromInt(3000)), "got %s", usage[0].PercentageUsed)
}

func TestPatientMonthlyCreditUsage_NoUsage_Empty(t *testing.T) {
	_, mem := newTestService(t)
	stats := booking.NewStats(mem)

	// One available credit, no bookings at all
	seedCredit(t, mem, 10, time.Now().Add(24*time.Hour), "pat-1")

	usage, err := stats.PatientMonthlyCreditUsage(context.Background(), "pat-1")
	require.NoError(t, err)
	assert.Empty(t, usage)
}

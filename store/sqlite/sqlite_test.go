package sqlite_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carebook/booking-engine/booking"
	"github.com/carebook/booking-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testCredit(id string, value int64, expiresAt time.Time) booking.Credit {
	return booking.Credit{
		ID:        id,
		Kind:      "session",
		Value:     decimal.NewFromInt(value),
		ExpiresAt: expiresAt,
		PatientID: "pat-1",
		CreatedAt: time.Now().UTC(),
	}
}

func testBooking(id, patientID, provider string, at time.Time) booking.Booking {
	now := time.Now().UTC()
	return booking.Booking{
		ID:        id,
		Time:      at,
		PatientID: patientID,
		Provider:  provider,
		Status:    booking.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// =============================================================================
// CREDIT TESTS
// =============================================================================

func TestSQLite_CreditRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	expires := time.Date(2027, time.January, 15, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.CreateCredit(ctx, testCredit("c-1", 25, expires)))

	got, err := store.GetCredit(ctx, "c-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "session", got.Kind)
	assert.True(t, got.Value.Equal(decimal.NewFromInt(25)))
	assert.True(t, got.ExpiresAt.Equal(expires))
	assert.Empty(t, got.BookingID)

	missing, err := store.GetCredit(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSQLite_FindEligibleCredit_SkipsBoundAndExpired(t *testing.T) {
	// GIVEN: An expired credit, a bound credit, and two live ones
	// WHEN: Finding an eligible credit
	// THEN: The earliest-expiring live, unbound credit is returned

	store := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, time.August, 28, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.CreateCredit(ctx, testCredit("expired", 10, now.Add(-time.Hour))))

	bound := testCredit("bound", 10, now.Add(time.Hour))
	bound.BookingID = "b-0"
	require.NoError(t, store.CreateCredit(ctx, bound))

	require.NoError(t, store.CreateCredit(ctx, testCredit("later", 10, now.Add(48*time.Hour))))
	require.NoError(t, store.CreateCredit(ctx, testCredit("sooner", 10, now.Add(2*time.Hour))))

	got, err := store.FindEligibleCredit(ctx, now)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "sooner", got.ID)
}

func TestSQLite_FindEligibleCredit_NoneLeft(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	got, err := store.FindEligibleCredit(ctx, now)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLite_BindCreditToBooking_SecondBindLosesRace(t *testing.T) {
	// GIVEN: An unbound credit
	// WHEN: Binding it twice
	// THEN: The first bind wins; the second gets ErrCreditNotFound and the
	//       original binding is untouched

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateCredit(ctx, testCredit("c-1", 10, time.Now().Add(time.Hour))))

	require.NoError(t, store.BindCreditToBooking(ctx, "c-1", "b-1"))

	err := store.BindCreditToBooking(ctx, "c-1", "b-2")
	assert.ErrorIs(t, err, booking.ErrCreditNotFound)

	got, err := store.GetCredit(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, "b-1", got.BookingID)
}

func TestSQLite_SumAvailableCreditValue(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sum, err := store.SumAvailableCreditValue(ctx)
	require.NoError(t, err)
	assert.True(t, sum.IsZero())

	require.NoError(t, store.CreateCredit(ctx, testCredit("c-1", 10, time.Now().Add(time.Hour))))
	require.NoError(t, store.CreateCredit(ctx, testCredit("c-2", 15, time.Now().Add(time.Hour))))

	bound := testCredit("c-3", 100, time.Now().Add(time.Hour))
	bound.BookingID = "b-1"
	require.NoError(t, store.CreateCredit(ctx, bound))

	sum, err = store.SumAvailableCreditValue(ctx)
	require.NoError(t, err)
	assert.True(t, sum.Equal(decimal.NewFromInt(25)), "got %s", sum)
}

// =============================================================================
// BOOKING TESTS
// =============================================================================

func TestSQLite_BookingRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	at := time.Date(2026, time.September, 14, 10, 30, 0, 0, time.UTC)
	require.NoError(t, store.CreateBooking(ctx, testBooking("b-1", "pat-1", "dr-lane", at)))

	got, err := store.GetBooking(ctx, "b-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, booking.StatusPending, got.Status)
	assert.True(t, got.Time.Equal(at))
	assert.Equal(t, "dr-lane", got.Provider)
}

func TestSQLite_AnonymousBooking_NullPatient(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateBooking(ctx,
		testBooking("b-1", "", "dr-lane", time.Now().UTC())))

	got, err := store.GetBooking(ctx, "b-1")
	require.NoError(t, err)
	assert.True(t, got.Anonymous())

	// NULL patient_id must not match userID lookups
	bookings, err := store.ListBookingsByUser(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, bookings)
}

func TestSQLite_UpdateBookingStatus(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateBooking(ctx,
		testBooking("b-1", "pat-1", "dr-lane", time.Now().UTC())))

	at := time.Date(2026, time.September, 15, 8, 0, 0, 0, time.UTC)
	require.NoError(t, store.UpdateBookingStatus(ctx, "b-1", booking.StatusConfirmed, at))

	got, err := store.GetBooking(ctx, "b-1")
	require.NoError(t, err)
	assert.Equal(t, booking.StatusConfirmed, got.Status)
	assert.True(t, got.UpdatedAt.Equal(at))

	err = store.UpdateBookingStatus(ctx, "ghost", booking.StatusConfirmed, at)
	assert.ErrorIs(t, err, booking.ErrBookingNotFound)
}

func TestSQLite_ListBookingsByUser_PatientOrProvider(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	at := time.Now().UTC()

	require.NoError(t, store.CreateBooking(ctx, testBooking("b-1", "alex", "dr-lane", at)))
	require.NoError(t, store.CreateBooking(ctx, testBooking("b-2", "blake", "alex", at)))
	require.NoError(t, store.CreateBooking(ctx, testBooking("b-3", "blake", "dr-lane", at)))

	got, err := store.ListBookingsByUser(ctx, "alex")
	require.NoError(t, err)
	require.Len(t, got, 2, "patient match and provider match")
	assert.Equal(t, "b-1", got[0].ID)
	assert.Equal(t, "b-2", got[1].ID)
}

func TestSQLite_CountBookingsByProviderAndStatus(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	at := time.Now().UTC()

	for i, status := range []booking.Status{
		booking.StatusCanceled, booking.StatusCanceled, booking.StatusRescheduled,
	} {
		b := testBooking(fmt.Sprintf("b-%d", i+1), "pat-1", "dr-lane", at)
		b.Status = status
		require.NoError(t, store.CreateBooking(ctx, b))
	}

	canceled, err := store.CountBookingsByProviderAndStatus(ctx, "dr-lane", booking.StatusCanceled)
	require.NoError(t, err)
	assert.Equal(t, 2, canceled)

	rescheduled, err := store.CountBookingsByProviderAndStatus(ctx, "dr-lane", booking.StatusRescheduled)
	require.NoError(t, err)
	assert.Equal(t, 1, rescheduled)
}

// =============================================================================
// HISTORY TESTS
// =============================================================================

func TestSQLite_History_AscendingByTimestamp(t *testing.T) {
	// GIVEN: History entries inserted out of order
	// WHEN: Listing the booking's history
	// THEN: Entries come back ascending by timestamp

	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, time.September, 1, 9, 0, 0, 0, time.UTC)
	entries := []booking.HistoryEntry{
		{ID: "h-2", BookingID: "b-1", Status: booking.StatusConfirmed, Timestamp: base.Add(time.Hour)},
		{ID: "h-1", BookingID: "b-1", Status: booking.StatusPending, Timestamp: base},
		{ID: "h-3", BookingID: "b-1", Status: booking.StatusCanceled, Timestamp: base.Add(2 * time.Hour)},
	}
	for _, e := range entries {
		require.NoError(t, store.AppendHistory(ctx, e))
	}

	got, err := store.ListHistory(ctx, "b-1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "h-1", got[0].ID)
	assert.Equal(t, "h-2", got[1].ID)
	assert.Equal(t, "h-3", got[2].ID)

	empty, err := store.ListHistory(ctx, "ghost")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSQLite_History_SubSecondOrdering(t *testing.T) {
	// GIVEN: Two entries in the same second, one on the whole-second boundary
	//        (zero nanoseconds) and one half a second later
	// WHEN: Listing the booking's history
	// THEN: The whole-second entry sorts first; stored text order matches
	//       time order even when fractional digits differ in width

	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, time.September, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, store.AppendHistory(ctx, booking.HistoryEntry{
		ID: "h-late", BookingID: "b-1", Status: booking.StatusConfirmed,
		Timestamp: base.Add(500 * time.Millisecond),
	}))
	require.NoError(t, store.AppendHistory(ctx, booking.HistoryEntry{
		ID: "h-early", BookingID: "b-1", Status: booking.StatusPending,
		Timestamp: base,
	}))

	got, err := store.ListHistory(ctx, "b-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "h-early", got[0].ID)
	assert.Equal(t, "h-late", got[1].ID)
}

func TestSQLite_FindEligibleCredit_SubSecondExpiry(t *testing.T) {
	// GIVEN: A credit expiring half a second after a whole-second "now"
	// WHEN: Finding an eligible credit at that instant
	// THEN: The credit qualifies (expires_at > now holds across the
	//       fractional-second boundary)

	store := newTestStore(t)
	ctx := context.Background()

	now := time.Date(2026, time.August, 28, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.CreateCredit(ctx,
		testCredit("c-1", 10, now.Add(500*time.Millisecond))))

	got, err := store.FindEligibleCredit(ctx, now)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "c-1", got.ID)
}

// =============================================================================
// TRANSACTION TESTS
// =============================================================================

func TestSQLite_WithTx_RollbackLeavesNoTrace(t *testing.T) {
	// GIVEN: A transaction that writes a booking, history, and a bind
	// WHEN: The transaction function returns an error
	// THEN: None of the writes survive

	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateCredit(ctx, testCredit("c-1", 10, time.Now().Add(time.Hour))))

	boom := errors.New("boom")
	err := store.WithTx(ctx, func(tx booking.Store) error {
		if err := tx.CreateBooking(ctx, testBooking("b-1", "pat-1", "dr-lane", time.Now().UTC())); err != nil {
			return err
		}
		if err := tx.AppendHistory(ctx, booking.HistoryEntry{
			ID: "h-1", BookingID: "b-1", Status: booking.StatusPending, Timestamp: time.Now().UTC(),
		}); err != nil {
			return err
		}
		if err := tx.BindCreditToBooking(ctx, "c-1", "b-1"); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	b, err := store.GetBooking(ctx, "b-1")
	require.NoError(t, err)
	assert.Nil(t, b, "booking must be rolled back")

	history, err := store.ListHistory(ctx, "b-1")
	require.NoError(t, err)
	assert.Empty(t, history, "history must be rolled back")

	c, err := store.GetCredit(ctx, "c-1")
	require.NoError(t, err)
	assert.Empty(t, c.BookingID, "bind must be rolled back")
}

func TestSQLite_WithTx_CommitPersists(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateCredit(ctx, testCredit("c-1", 10, time.Now().Add(time.Hour))))

	err := store.WithTx(ctx, func(tx booking.Store) error {
		if err := tx.CreateBooking(ctx, testBooking("b-1", "pat-1", "dr-lane", time.Now().UTC())); err != nil {
			return err
		}
		if err := tx.BindCreditToBooking(ctx, "c-1", "b-1"); err != nil {
			return err
		}
		return tx.SetBookingCredit(ctx, "b-1", "c-1")
	})
	require.NoError(t, err)

	b, err := store.GetBooking(ctx, "b-1")
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, "c-1", b.CreditID)

	c, err := store.GetCredit(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, "b-1", c.BookingID)
}

// =============================================================================
// AGGREGATE TESTS
// =============================================================================

func TestSQLite_MonthlyConfirmedCreditUsage_GroupsByCalendarMonth(t *testing.T) {
	// GIVEN: Confirmed bookings in January (30) and February (20), plus a
	//        pending booking and another patient's confirmed booking
	// WHEN: Aggregating monthly usage for pat-1
	// THEN: Two buckets, ascending, with only pat-1's confirmed values

	store := newTestStore(t)
	ctx := context.Background()

	seed := func(bookingID, patientID string, at time.Time, status booking.Status, value int64) {
		b := testBooking(bookingID, patientID, "dr-lane", at)
		b.Status = status
		require.NoError(t, store.CreateBooking(ctx, b))

		c := testCredit("credit-"+bookingID, value, at.Add(time.Hour))
		c.BookingID = bookingID
		require.NoError(t, store.CreateCredit(ctx, c))
	}

	jan := time.Date(2026, time.January, 10, 10, 0, 0, 0, time.UTC)
	feb := time.Date(2026, time.February, 5, 10, 0, 0, 0, time.UTC)

	seed("b-1", "pat-1", jan, booking.StatusConfirmed, 30)
	seed("b-2", "pat-1", feb, booking.StatusConfirmed, 20)
	seed("b-3", "pat-1", feb, booking.StatusPending, 99)
	seed("b-4", "pat-2", jan, booking.StatusConfirmed, 77)

	rows, err := store.MonthlyConfirmedCreditUsage(ctx, "pat-1")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, 2026, rows[0].Year)
	assert.Equal(t, time.January, rows[0].Month)
	assert.True(t, rows[0].TotalUsed.Equal(decimal.NewFromInt(30)), "got %s", rows[0].TotalUsed)

	assert.Equal(t, time.February, rows[1].Month)
	assert.True(t, rows[1].TotalUsed.Equal(decimal.NewFromInt(20)), "got %s", rows[1].TotalUsed)
}

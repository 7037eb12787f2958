// Package store provides an in-memory booking.Store implementation
// (for testing/dev).
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/carebook/booking-engine/booking"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu           sync.RWMutex
	bookings     map[string]booking.Booking
	bookingOrder []string
	credits      map[string]booking.Credit
	creditOrder  []string
	history      map[string][]booking.HistoryEntry // per booking, ascending by timestamp
}

func NewMemory() *Memory {
	return &Memory{
		bookings: make(map[string]booking.Booking),
		credits:  make(map[string]booking.Credit),
		history:  make(map[string][]booking.HistoryEntry),
	}
}

// =============================================================================
// CREDITS
// =============================================================================

func (m *Memory) CreateCredit(_ context.Context, c booking.Credit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createCreditLocked(c)
}

func (m *Memory) createCreditLocked(c booking.Credit) error {
	if _, ok := m.credits[c.ID]; !ok {
		m.creditOrder = append(m.creditOrder, c.ID)
	}
	m.credits[c.ID] = c
	return nil
}

func (m *Memory) GetCredit(_ context.Context, id string) (*booking.Credit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.credits[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (m *Memory) FindEligibleCredit(_ context.Context, now time.Time) (*booking.Credit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.findEligibleCreditLocked(now)
}

func (m *Memory) findEligibleCreditLocked(now time.Time) (*booking.Credit, error) {
	// Earliest-expiring first, matching the SQLite implementation.
	var best *booking.Credit
	for _, id := range m.creditOrder {
		c := m.credits[id]
		if !c.Available(now) {
			continue
		}
		if best == nil || c.ExpiresAt.Before(best.ExpiresAt) {
			cc := c
			best = &cc
		}
	}
	return best, nil
}

func (m *Memory) BindCreditToBooking(_ context.Context, creditID, bookingID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bindCreditLocked(creditID, bookingID)
}

func (m *Memory) bindCreditLocked(creditID, bookingID string) error {
	c, ok := m.credits[creditID]
	if !ok || c.BookingID != "" {
		// Conditional write failed: gone or already bound.
		return booking.ErrCreditNotFound
	}
	c.BookingID = bookingID
	m.credits[creditID] = c
	return nil
}

func (m *Memory) ListCreditsByPatient(_ context.Context, patientID string) ([]booking.Credit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []booking.Credit
	for _, id := range m.creditOrder {
		if c := m.credits[id]; c.PatientID == patientID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *Memory) SumAvailableCreditValue(_ context.Context) (decimal.Decimal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sumAvailableLocked(), nil
}

func (m *Memory) sumAvailableLocked() decimal.Decimal {
	sum := decimal.Zero
	for _, c := range m.credits {
		if c.BookingID == "" {
			sum = sum.Add(c.Value)
		}
	}
	return sum
}

// =============================================================================
// BOOKINGS
// =============================================================================

func (m *Memory) CreateBooking(_ context.Context, b booking.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createBookingLocked(b)
}

func (m *Memory) createBookingLocked(b booking.Booking) error {
	if _, ok := m.bookings[b.ID]; !ok {
		m.bookingOrder = append(m.bookingOrder, b.ID)
	}
	m.bookings[b.ID] = b
	return nil
}

func (m *Memory) GetBooking(_ context.Context, id string) (*booking.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (m *Memory) SetBookingCredit(_ context.Context, bookingID, creditID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setBookingCreditLocked(bookingID, creditID)
}

func (m *Memory) setBookingCreditLocked(bookingID, creditID string) error {
	b, ok := m.bookings[bookingID]
	if !ok {
		return booking.ErrBookingNotFound
	}
	b.CreditID = creditID
	m.bookings[bookingID] = b
	return nil
}

func (m *Memory) UpdateBookingStatus(_ context.Context, bookingID string, status booking.Status, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateStatusLocked(bookingID, status, at)
}

func (m *Memory) updateStatusLocked(bookingID string, status booking.Status, at time.Time) error {
	b, ok := m.bookings[bookingID]
	if !ok {
		return booking.ErrBookingNotFound
	}
	b.Status = status
	b.UpdatedAt = at
	m.bookings[bookingID] = b
	return nil
}

func (m *Memory) ListBookingsByUser(_ context.Context, userID string) ([]booking.Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []booking.Booking
	for _, id := range m.bookingOrder {
		b := m.bookings[id]
		if b.PatientID == userID || b.Provider == userID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *Memory) CountBookingsByProviderAndStatus(_ context.Context, providerID string, status booking.Status) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, b := range m.bookings {
		if b.Provider == providerID && b.Status == status {
			count++
		}
	}
	return count, nil
}

// =============================================================================
// HISTORY
// =============================================================================

func (m *Memory) AppendHistory(_ context.Context, e booking.HistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendHistoryLocked(e)
}

func (m *Memory) appendHistoryLocked(e booking.HistoryEntry) error {
	entries := m.history[e.BookingID]

	// Insert in timestamp order so ListHistory is a plain copy.
	i := sort.Search(len(entries), func(i int) bool {
		return entries[i].Timestamp.After(e.Timestamp)
	})
	entries = append(entries, booking.HistoryEntry{})
	copy(entries[i+1:], entries[i:])
	entries[i] = e
	m.history[e.BookingID] = entries
	return nil
}

func (m *Memory) ListHistory(_ context.Context, bookingID string) ([]booking.HistoryEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]booking.HistoryEntry, len(m.history[bookingID]))
	copy(result, m.history[bookingID])
	return result, nil
}

// =============================================================================
// AGGREGATES
// =============================================================================

func (m *Memory) MonthlyConfirmedCreditUsage(_ context.Context, patientID string) ([]booking.MonthlyUsageRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.monthlyUsageLocked(patientID), nil
}

func (m *Memory) monthlyUsageLocked(patientID string) []booking.MonthlyUsageRow {
	type bucket struct {
		year  int
		month time.Month
	}
	sums := make(map[bucket]decimal.Decimal)
	for _, b := range m.bookings {
		if b.PatientID != patientID || b.Status != booking.StatusConfirmed || b.CreditID == "" {
			continue
		}
		c, ok := m.credits[b.CreditID]
		if !ok {
			continue
		}
		k := bucket{year: b.Time.Year(), month: b.Time.Month()}
		sums[k] = sums[k].Add(c.Value)
	}

	rows := make([]booking.MonthlyUsageRow, 0, len(sums))
	for k, total := range sums {
		rows = append(rows, booking.MonthlyUsageRow{Year: k.year, Month: k.month, TotalUsed: total})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Year != rows[j].Year {
			return rows[i].Year < rows[j].Year
		}
		return rows[i].Month < rows[j].Month
	})
	return rows
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with transaction support.
type TxMemory struct {
	*Memory
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

// WithTx executes fn within a transaction.
// For the memory store this is simulated with a snapshot + rollback on error.
func (tm *TxMemory) WithTx(_ context.Context, fn func(booking.Store) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	snapshot := tm.snapshot()

	txStore := &txMemoryView{parent: tm}
	if err := fn(txStore); err != nil {
		tm.restore(snapshot)
		return err
	}
	return nil
}

type memorySnapshot struct {
	bookings     map[string]booking.Booking
	bookingOrder []string
	credits      map[string]booking.Credit
	creditOrder  []string
	history      map[string][]booking.HistoryEntry
}

func (tm *TxMemory) snapshot() memorySnapshot {
	s := memorySnapshot{
		bookings:     make(map[string]booking.Booking, len(tm.bookings)),
		bookingOrder: append([]string{}, tm.bookingOrder...),
		credits:      make(map[string]booking.Credit, len(tm.credits)),
		creditOrder:  append([]string{}, tm.creditOrder...),
		history:      make(map[string][]booking.HistoryEntry, len(tm.history)),
	}
	for k, v := range tm.bookings {
		s.bookings[k] = v
	}
	for k, v := range tm.credits {
		s.credits[k] = v
	}
	for k, v := range tm.history {
		s.history[k] = append([]booking.HistoryEntry{}, v...)
	}
	return s
}

func (tm *TxMemory) restore(s memorySnapshot) {
	tm.bookings = s.bookings
	tm.bookingOrder = s.bookingOrder
	tm.credits = s.credits
	tm.creditOrder = s.creditOrder
	tm.history = s.history
}

// txMemoryView runs against the parent's state while the parent's lock is
// already held by WithTx, so it calls the *Locked variants directly.
type txMemoryView struct {
	parent *TxMemory
}

func (tv *txMemoryView) CreateCredit(_ context.Context, c booking.Credit) error {
	return tv.parent.createCreditLocked(c)
}

func (tv *txMemoryView) GetCredit(_ context.Context, id string) (*booking.Credit, error) {
	c, ok := tv.parent.credits[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (tv *txMemoryView) FindEligibleCredit(_ context.Context, now time.Time) (*booking.Credit, error) {
	return tv.parent.findEligibleCreditLocked(now)
}

func (tv *txMemoryView) BindCreditToBooking(_ context.Context, creditID, bookingID string) error {
	return tv.parent.bindCreditLocked(creditID, bookingID)
}

func (tv *txMemoryView) ListCreditsByPatient(_ context.Context, patientID string) ([]booking.Credit, error) {
	var out []booking.Credit
	for _, id := range tv.parent.creditOrder {
		if c := tv.parent.credits[id]; c.PatientID == patientID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (tv *txMemoryView) SumAvailableCreditValue(_ context.Context) (decimal.Decimal, error) {
	return tv.parent.sumAvailableLocked(), nil
}

func (tv *txMemoryView) CreateBooking(_ context.Context, b booking.Booking) error {
	return tv.parent.createBookingLocked(b)
}

func (tv *txMemoryView) GetBooking(_ context.Context, id string) (*booking.Booking, error) {
	b, ok := tv.parent.bookings[id]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (tv *txMemoryView) SetBookingCredit(_ context.Context, bookingID, creditID string) error {
	return tv.parent.setBookingCreditLocked(bookingID, creditID)
}

func (tv *txMemoryView) UpdateBookingStatus(_ context.Context, bookingID string, status booking.Status, at time.Time) error {
	return tv.parent.updateStatusLocked(bookingID, status, at)
}

func (tv *txMemoryView) ListBookingsByUser(_ context.Context, userID string) ([]booking.Booking, error) {
	var out []booking.Booking
	for _, id := range tv.parent.bookingOrder {
		b := tv.parent.bookings[id]
		if b.PatientID == userID || b.Provider == userID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (tv *txMemoryView) CountBookingsByProviderAndStatus(_ context.Context, providerID string, status booking.Status) (int, error) {
	count := 0
	for _, b := range tv.parent.bookings {
		if b.Provider == providerID && b.Status == status {
			count++
		}
	}
	return count, nil
}

func (tv *txMemoryView) AppendHistory(_ context.Context, e booking.HistoryEntry) error {
	return tv.parent.appendHistoryLocked(e)
}

func (tv *txMemoryView) ListHistory(_ context.Context, bookingID string) ([]booking.HistoryEntry, error) {
	entries := tv.parent.history[bookingID]
	result := make([]booking.HistoryEntry, len(entries))
	copy(result, entries)
	return result, nil
}

func (tv *txMemoryView) MonthlyConfirmedCreditUsage(_ context.Context, patientID string) ([]booking.MonthlyUsageRow, error) {
	return tv.parent.monthlyUsageLocked(patientID), nil
}

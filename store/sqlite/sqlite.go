/*
Package sqlite provides a SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements booking.Store and booking.TxStore using SQLite. In production
  the same patterns apply to PostgreSQL or MySQL - only minor SQL dialect
  differences.

KEY TABLES:
  bookings:                 Appointments with mutable status
  credits:                  Prepaid credits, each consumable by one booking
  booking_status_histories: Immutable ledger of status transitions

APPEND-ONLY ENFORCEMENT:
  booking_status_histories has no UPDATE or DELETE path. Every status a
  booking has ever held stays on record.

CONDITIONAL BIND:
  BindCreditToBooking runs
    UPDATE credits SET booking_id = ? WHERE id = ? AND booking_id IS NULL
  and checks the affected-row count. Zero rows means the credit is gone or
  was consumed by a concurrent allocation; the caller's transaction rolls
  back. This guard is what prevents double-binding without in-process locks.

INDEXES:
  - idx_credits_available: eligible-credit lookup (hot path)
  - idx_histories_booking_time: history retrieval in timestamp order
  - idx_bookings_provider_status: provider statistics counts
  - idx_bookings_patient: per-user booking listing

CONCURRENCY:
  Uses sync.RWMutex plus a single pooled connection. SQLite allows one
  writer at a time; with a server database, database-level concurrency
  control handles this instead. WAL mode keeps readers unblocked.

USAGE:
  store, err := sqlite.New("./data/bookings.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := booking.NewService(store)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper migration
  tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - booking/store.go: Interface definitions
  - booking/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/carebook/booking-engine/booking"
)

// Store implements booking.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// timeFormat is RFC 3339 with fixed-width fractional seconds. RFC3339Nano
// trims trailing zeros, which breaks lexicographic ordering within a second
// ("...00.5Z" sorts before "...00Z"); padding to nine digits keeps string
// comparison in ORDER BY and expires_at > ? aligned with time order.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// dbtx is satisfied by both *sql.DB and *sql.Tx, so every query helper can
// run standalone or inside WithTx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps ":memory:" databases coherent and matches
	// SQLite's single-writer model.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Bookings
	CREATE TABLE IF NOT EXISTS bookings (
		id TEXT PRIMARY KEY,
		time TEXT NOT NULL,
		patient_id TEXT,
		provider TEXT NOT NULL,
		status TEXT NOT NULL,
		credit_id TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_bookings_patient
		ON bookings(patient_id) WHERE patient_id IS NOT NULL;
	CREATE INDEX IF NOT EXISTS idx_bookings_provider_status
		ON bookings(provider, status);

	-- Credits
	CREATE TABLE IF NOT EXISTS credits (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		value TEXT NOT NULL,
		expires_at TEXT NOT NULL,
		booking_id TEXT,
		patient_id TEXT,
		created_at TEXT NOT NULL
	);

	-- Eligible-credit lookup (hot path): unbound credits by expiry
	CREATE INDEX IF NOT EXISTS idx_credits_available
		ON credits(expires_at) WHERE booking_id IS NULL;
	CREATE INDEX IF NOT EXISTS idx_credits_patient
		ON credits(patient_id) WHERE patient_id IS NOT NULL;

	-- Status history (append-only ledger)
	CREATE TABLE IF NOT EXISTS booking_status_histories (
		id TEXT PRIMARY KEY,
		booking_id TEXT NOT NULL,
		status TEXT NOT NULL,
		timestamp TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_histories_booking_time
		ON booking_status_histories(booking_id, timestamp);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// CREDITS
// =============================================================================

// CreateCredit inserts a credit.
func (s *Store) CreateCredit(ctx context.Context, c booking.Credit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return createCredit(ctx, s.db, c)
}

func createCredit(ctx context.Context, db dbtx, c booking.Credit) error {
	query := `
		INSERT INTO credits (id, kind, value, expires_at, booking_id, patient_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := db.ExecContext(ctx, query,
		c.ID,
		c.Kind,
		c.Value.String(),
		c.ExpiresAt.UTC().Format(timeFormat),
		nullString(c.BookingID),
		nullString(c.PatientID),
		c.CreatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("failed to insert credit: %w", err)
	}
	return nil
}

// GetCredit retrieves a credit by ID, or nil if absent.
func (s *Store) GetCredit(ctx context.Context, id string) (*booking.Credit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getCredit(ctx, s.db, id)
}

func getCredit(ctx context.Context, db dbtx, id string) (*booking.Credit, error) {
	row := db.QueryRowContext(ctx,
		`SELECT id, kind, value, expires_at, booking_id, patient_id, created_at
		 FROM credits WHERE id = ?`, id)
	return scanCredit(row)
}

// FindEligibleCredit returns the earliest-expiring credit with
// expires_at > now and no bound booking, or nil when none exists.
func (s *Store) FindEligibleCredit(ctx context.Context, now time.Time) (*booking.Credit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findEligibleCredit(ctx, s.db, now)
}

func findEligibleCredit(ctx context.Context, db dbtx, now time.Time) (*booking.Credit, error) {
	row := db.QueryRowContext(ctx,
		`SELECT id, kind, value, expires_at, booking_id, patient_id, created_at
		 FROM credits
		 WHERE booking_id IS NULL AND expires_at > ?
		 ORDER BY expires_at ASC
		 LIMIT 1`,
		now.UTC().Format(timeFormat))
	return scanCredit(row)
}

// BindCreditToBooking sets the credit's booking link via a conditional
// update. Returns booking.ErrCreditNotFound when no row was affected (credit
// missing or already bound) so concurrent allocations cannot double-bind.
func (s *Store) BindCreditToBooking(ctx context.Context, creditID, bookingID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return bindCreditToBooking(ctx, s.db, creditID, bookingID)
}

func bindCreditToBooking(ctx context.Context, db dbtx, creditID, bookingID string) error {
	res, err := db.ExecContext(ctx,
		`UPDATE credits SET booking_id = ? WHERE id = ? AND booking_id IS NULL`,
		bookingID, creditID)
	if err != nil {
		return fmt.Errorf("failed to bind credit: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check bind result: %w", err)
	}
	if affected == 0 {
		return booking.ErrCreditNotFound
	}
	return nil
}

// ListCreditsByPatient returns a patient's credits in creation order.
func (s *Store) ListCreditsByPatient(ctx context.Context, patientID string) ([]booking.Credit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queryCredits(ctx, s.db,
		`SELECT id, kind, value, expires_at, booking_id, patient_id, created_at
		 FROM credits
		 WHERE patient_id = ?
		 ORDER BY created_at ASC, rowid ASC`,
		patientID)
}

// SumAvailableCreditValue sums the value of all unbound credits. The values
// are summed as decimals in Go to avoid floating-point drift.
func (s *Store) SumAvailableCreditValue(ctx context.Context) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sumAvailableCreditValue(ctx, s.db)
}

func sumAvailableCreditValue(ctx context.Context, db dbtx) (decimal.Decimal, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT value FROM credits WHERE booking_id IS NULL`)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to query available credits: %w", err)
	}
	defer rows.Close()

	sum := decimal.Zero
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return decimal.Zero, fmt.Errorf("failed to scan credit value: %w", err)
		}
		sum = sum.Add(mustParseDecimal(value))
	}
	return sum, rows.Err()
}

// =============================================================================
// BOOKINGS
// =============================================================================

// CreateBooking inserts a booking.
func (s *Store) CreateBooking(ctx context.Context, b booking.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return createBooking(ctx, s.db, b)
}

func createBooking(ctx context.Context, db dbtx, b booking.Booking) error {
	query := `
		INSERT INTO bookings (id, time, patient_id, provider, status, credit_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := db.ExecContext(ctx, query,
		b.ID,
		b.Time.UTC().Format(timeFormat),
		nullString(b.PatientID),
		b.Provider,
		string(b.Status),
		nullString(b.CreditID),
		b.CreatedAt.UTC().Format(timeFormat),
		b.UpdatedAt.UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("failed to insert booking: %w", err)
	}
	return nil
}

// GetBooking retrieves a booking by ID, or nil if absent.
func (s *Store) GetBooking(ctx context.Context, id string) (*booking.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getBooking(ctx, s.db, id)
}

func getBooking(ctx context.Context, db dbtx, id string) (*booking.Booking, error) {
	row := db.QueryRowContext(ctx,
		`SELECT id, time, patient_id, provider, status, credit_id, created_at, updated_at
		 FROM bookings WHERE id = ?`, id)
	return scanBooking(row)
}

// SetBookingCredit sets the booking's credit back-link.
func (s *Store) SetBookingCredit(ctx context.Context, bookingID, creditID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return setBookingCredit(ctx, s.db, bookingID, creditID)
}

func setBookingCredit(ctx context.Context, db dbtx, bookingID, creditID string) error {
	res, err := db.ExecContext(ctx,
		`UPDATE bookings SET credit_id = ? WHERE id = ?`, creditID, bookingID)
	if err != nil {
		return fmt.Errorf("failed to set booking credit: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return booking.ErrBookingNotFound
	}
	return nil
}

// UpdateBookingStatus mutates a booking's status and bumps updated_at.
func (s *Store) UpdateBookingStatus(ctx context.Context, bookingID string, status booking.Status, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateBookingStatus(ctx, s.db, bookingID, status, at)
}

func updateBookingStatus(ctx context.Context, db dbtx, bookingID string, status booking.Status, at time.Time) error {
	res, err := db.ExecContext(ctx,
		`UPDATE bookings SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), at.UTC().Format(timeFormat), bookingID)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return booking.ErrBookingNotFound
	}
	return nil
}

// ListBookingsByUser returns all bookings where the user is the patient or
// the provider, in creation order.
func (s *Store) ListBookingsByUser(ctx context.Context, userID string) ([]booking.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queryBookings(ctx, s.db,
		`SELECT id, time, patient_id, provider, status, credit_id, created_at, updated_at
		 FROM bookings
		 WHERE patient_id = ? OR provider = ?
		 ORDER BY created_at ASC, rowid ASC`,
		userID, userID)
}

// CountBookingsByProviderAndStatus returns an exact lifetime count.
func (s *Store) CountBookingsByProviderAndStatus(ctx context.Context, providerID string, status booking.Status) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bookings WHERE provider = ? AND status = ?`,
		providerID, string(status),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count bookings: %w", err)
	}
	return count, nil
}

// =============================================================================
// STATUS HISTORY (append-only)
// =============================================================================

// AppendHistory inserts a history entry. This is the only history write;
// there is no update or delete.
func (s *Store) AppendHistory(ctx context.Context, e booking.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendHistory(ctx, s.db, e)
}

func appendHistory(ctx context.Context, db dbtx, e booking.HistoryEntry) error {
	query := `
		INSERT INTO booking_status_histories (id, booking_id, status, timestamp)
		VALUES (?, ?, ?, ?)
	`
	_, err := db.ExecContext(ctx, query,
		e.ID,
		e.BookingID,
		string(e.Status),
		e.Timestamp.UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("failed to append history: %w", err)
	}
	return nil
}

// ListHistory returns a booking's history ascending by timestamp. An unknown
// booking yields an empty result, not an error.
func (s *Store) ListHistory(ctx context.Context, bookingID string) ([]booking.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listHistory(ctx, s.db, bookingID)
}

func listHistory(ctx context.Context, db dbtx, bookingID string) ([]booking.HistoryEntry, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, booking_id, status, timestamp
		 FROM booking_status_histories
		 WHERE booking_id = ?
		 ORDER BY timestamp ASC, rowid ASC`,
		bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []booking.HistoryEntry
	for rows.Next() {
		var (
			e         booking.HistoryEntry
			status    string
			timestamp string
		)
		if err := rows.Scan(&e.ID, &e.BookingID, &status, &timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		e.Status = booking.Status(status)
		e.Timestamp = parseTime(timestamp)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// =============================================================================
// AGGREGATES
// =============================================================================

// MonthlyConfirmedCreditUsage sums bound credit value over the patient's
// confirmed bookings, grouped by calendar (year, month) of the booking time.
// The join is parameterized and the decimal sums happen in Go, keeping the
// aggregation exact and free of interpolated SQL fragments.
func (s *Store) MonthlyConfirmedCreditUsage(ctx context.Context, patientID string) ([]booking.MonthlyUsageRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return monthlyConfirmedCreditUsage(ctx, s.db, patientID)
}

func monthlyConfirmedCreditUsage(ctx context.Context, db dbtx, patientID string) ([]booking.MonthlyUsageRow, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT b.time, c.value
		 FROM bookings b
		 JOIN credits c ON c.booking_id = b.id
		 WHERE b.patient_id = ? AND b.status = ?
		 ORDER BY b.time ASC`,
		patientID, string(booking.StatusConfirmed))
	if err != nil {
		return nil, fmt.Errorf("failed to query confirmed credit usage: %w", err)
	}
	defer rows.Close()

	var result []booking.MonthlyUsageRow
	for rows.Next() {
		var bookingTime, value string
		if err := rows.Scan(&bookingTime, &value); err != nil {
			return nil, fmt.Errorf("failed to scan usage row: %w", err)
		}

		t := parseTime(bookingTime)
		year, month := t.Year(), t.Month()

		// Rows arrive ordered by booking time, so each (year, month) bucket
		// is contiguous.
		if n := len(result); n > 0 && result[n-1].Year == year && result[n-1].Month == month {
			result[n-1].TotalUsed = result[n-1].TotalUsed.Add(mustParseDecimal(value))
			continue
		}
		result = append(result, booking.MonthlyUsageRow{
			Year:      year,
			Month:     month,
			TotalUsed: mustParseDecimal(value),
		})
	}
	return result, rows.Err()
}

// =============================================================================
// TRANSACTIONAL STORE (booking.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store booking.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

// txStore runs every operation against the open transaction. The store's
// lock is already held by WithTx, so it calls the unlocked helpers directly.
type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) CreateCredit(ctx context.Context, c booking.Credit) error {
	return createCredit(ctx, ts.tx, c)
}

func (ts *txStore) GetCredit(ctx context.Context, id string) (*booking.Credit, error) {
	return getCredit(ctx, ts.tx, id)
}

func (ts *txStore) FindEligibleCredit(ctx context.Context, now time.Time) (*booking.Credit, error) {
	return findEligibleCredit(ctx, ts.tx, now)
}

func (ts *txStore) BindCreditToBooking(ctx context.Context, creditID, bookingID string) error {
	return bindCreditToBooking(ctx, ts.tx, creditID, bookingID)
}

func (ts *txStore) ListCreditsByPatient(ctx context.Context, patientID string) ([]booking.Credit, error) {
	return queryCredits(ctx, ts.tx,
		`SELECT id, kind, value, expires_at, booking_id, patient_id, created_at
		 FROM credits
		 WHERE patient_id = ?
		 ORDER BY created_at ASC, rowid ASC`,
		patientID)
}

func (ts *txStore) SumAvailableCreditValue(ctx context.Context) (decimal.Decimal, error) {
	return sumAvailableCreditValue(ctx, ts.tx)
}

func (ts *txStore) CreateBooking(ctx context.Context, b booking.Booking) error {
	return createBooking(ctx, ts.tx, b)
}

func (ts *txStore) GetBooking(ctx context.Context, id string) (*booking.Booking, error) {
	return getBooking(ctx, ts.tx, id)
}

func (ts *txStore) SetBookingCredit(ctx context.Context, bookingID, creditID string) error {
	return setBookingCredit(ctx, ts.tx, bookingID, creditID)
}

func (ts *txStore) UpdateBookingStatus(ctx context.Context, bookingID string, status booking.Status, at time.Time) error {
	return updateBookingStatus(ctx, ts.tx, bookingID, status, at)
}

func (ts *txStore) ListBookingsByUser(ctx context.Context, userID string) ([]booking.Booking, error) {
	return queryBookings(ctx, ts.tx,
		`SELECT id, time, patient_id, provider, status, credit_id, created_at, updated_at
		 FROM bookings
		 WHERE patient_id = ? OR provider = ?
		 ORDER BY created_at ASC, rowid ASC`,
		userID, userID)
}

func (ts *txStore) CountBookingsByProviderAndStatus(ctx context.Context, providerID string, status booking.Status) (int, error) {
	var count int
	err := ts.tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM bookings WHERE provider = ? AND status = ?`,
		providerID, string(status),
	).Scan(&count)
	return count, err
}

func (ts *txStore) AppendHistory(ctx context.Context, e booking.HistoryEntry) error {
	return appendHistory(ctx, ts.tx, e)
}

func (ts *txStore) ListHistory(ctx context.Context, bookingID string) ([]booking.HistoryEntry, error) {
	return listHistory(ctx, ts.tx, bookingID)
}

func (ts *txStore) MonthlyConfirmedCreditUsage(ctx context.Context, patientID string) ([]booking.MonthlyUsageRow, error) {
	return monthlyConfirmedCreditUsage(ctx, ts.tx, patientID)
}

// =============================================================================
// ROW SCANNING
// =============================================================================

func queryCredits(ctx context.Context, db dbtx, query string, args ...any) ([]booking.Credit, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query credits: %w", err)
	}
	defer rows.Close()

	var credits []booking.Credit
	for rows.Next() {
		c, err := scanCreditRow(rows)
		if err != nil {
			return nil, err
		}
		credits = append(credits, c)
	}
	return credits, rows.Err()
}

func queryBookings(ctx context.Context, db dbtx, query string, args ...any) ([]booking.Booking, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer rows.Close()

	var bookings []booking.Booking
	for rows.Next() {
		b, err := scanBookingRow(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

func scanCredit(row *sql.Row) (*booking.Credit, error) {
	var (
		c         booking.Credit
		value     string
		expiresAt string
		bookingID sql.NullString
		patientID sql.NullString
		createdAt string
	)
	err := row.Scan(&c.ID, &c.Kind, &value, &expiresAt, &bookingID, &patientID, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan credit: %w", err)
	}

	c.Value = mustParseDecimal(value)
	c.ExpiresAt = parseTime(expiresAt)
	c.BookingID = bookingID.String
	c.PatientID = patientID.String
	c.CreatedAt = parseTime(createdAt)
	return &c, nil
}

func scanCreditRow(rows *sql.Rows) (booking.Credit, error) {
	var (
		c         booking.Credit
		value     string
		expiresAt string
		bookingID sql.NullString
		patientID sql.NullString
		createdAt string
	)
	err := rows.Scan(&c.ID, &c.Kind, &value, &expiresAt, &bookingID, &patientID, &createdAt)
	if err != nil {
		return c, fmt.Errorf("failed to scan credit: %w", err)
	}

	c.Value = mustParseDecimal(value)
	c.ExpiresAt = parseTime(expiresAt)
	c.BookingID = bookingID.String
	c.PatientID = patientID.String
	c.CreatedAt = parseTime(createdAt)
	return c, nil
}

func scanBooking(row *sql.Row) (*booking.Booking, error) {
	var (
		b         booking.Booking
		bookedAt  string
		patientID sql.NullString
		status    string
		creditID  sql.NullString
		createdAt string
		updatedAt string
	)
	err := row.Scan(&b.ID, &bookedAt, &patientID, &b.Provider, &status, &creditID, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan booking: %w", err)
	}

	b.Time = parseTime(bookedAt)
	b.PatientID = patientID.String
	b.Status = booking.Status(status)
	b.CreditID = creditID.String
	b.CreatedAt = parseTime(createdAt)
	b.UpdatedAt = parseTime(updatedAt)
	return &b, nil
}

func scanBookingRow(rows *sql.Rows) (booking.Booking, error) {
	var (
		b         booking.Booking
		bookedAt  string
		patientID sql.NullString
		status    string
		creditID  sql.NullString
		createdAt string
		updatedAt string
	)
	err := rows.Scan(&b.ID, &bookedAt, &patientID, &b.Provider, &status, &creditID, &createdAt, &updatedAt)
	if err != nil {
		return b, fmt.Errorf("failed to scan booking: %w", err)
	}

	b.Time = parseTime(bookedAt)
	b.PatientID = patientID.String
	b.Status = booking.Status(status)
	b.CreditID = creditID.String
	b.CreatedAt = parseTime(createdAt)
	b.UpdatedAt = parseTime(updatedAt)
	return b, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339, strings.TrimSpace(s))
	}
	return t
}

func mustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

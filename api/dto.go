/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Bookings:
    BookingDTO, CreateBookingRequest, CreateBookingResponse,
    SetStatusRequest, UserBookingsDTO

  Credits:
    CreditDTO, CreateCreditRequest, PatientCreditsDTO

  History:
    HistoryEntryDTO, BookingHistoryDTO

  Statistics:
    ProviderStatsDTO, MonthlyUsageDTO

NUMERIC FIELDS:
  Credit values and usage sums are decimal internally; they surface as JSON
  numbers here. float64 appears only in these DTOs, never in domain math.

VALIDATION:
  Validation is done in handlers and the domain service, not in DTOs.
  DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - booking/types.go: Domain model
*/
package api

import (
	"time"

	"github.com/carebook/booking-engine/booking"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// BookingDTO represents a booking in API responses.
type BookingDTO struct {
	ID        string `json:"id"`
	Time      string `json:"time"`
	PatientID string `json:"patient_id,omitempty"`
	Provider  string `json:"provider"`
	Status    string `json:"status"`
	CreditID  string `json:"credit_id,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// CreateBookingRequest is the request to create a booking.
// patient_id may be omitted for anonymous bookings.
type CreateBookingRequest struct {
	Time      string `json:"time"`
	PatientID string `json:"patient_id,omitempty"`
	Provider  string `json:"provider"`
}

// CreateBookingResponse wraps a freshly created booking with a confirmation
// message.
type CreateBookingResponse struct {
	Message string     `json:"message"`
	Booking BookingDTO `json:"booking"`
}

// SetStatusRequest is the request to transition a booking's status.
type SetStatusRequest struct {
	Status string `json:"status"`
}

// UserBookingsDTO is the response for a user's booking listing. Stats is
// present only when the user appears as a provider in the returned set.
type UserBookingsDTO struct {
	Bookings []BookingDTO      `json:"bookings"`
	Stats    *ProviderStatsDTO `json:"stats,omitempty"`
}

// ProviderStatsDTO carries lifetime status counts for a provider.
type ProviderStatsDTO struct {
	CanceledCount    int `json:"canceled_count"`
	RescheduledCount int `json:"rescheduled_count"`
}

// CreditDTO represents a credit in API responses.
type CreditDTO struct {
	ID        string  `json:"id"`
	Kind      string  `json:"kind"`
	Value     float64 `json:"value"`
	ExpiresAt string  `json:"expires_at"`
	BookingID string  `json:"booking_id,omitempty"`
	PatientID string  `json:"patient_id,omitempty"`
	CreatedAt string  `json:"created_at,omitempty"`
}

// CreateCreditRequest is the request to issue a credit.
type CreateCreditRequest struct {
	Kind      string  `json:"kind"`
	Value     float64 `json:"value"`
	ExpiresAt string  `json:"expires_at"`
	PatientID string  `json:"patient_id,omitempty"`
}

// PatientCreditsDTO is the response for a patient's credit listing,
// including their monthly usage breakdown.
type PatientCreditsDTO struct {
	Credits []CreditDTO       `json:"credits"`
	Stats   []MonthlyUsageDTO `json:"stats"`
}

// MonthlyUsageDTO is one calendar month of confirmed credit usage.
type MonthlyUsageDTO struct {
	Year           int     `json:"year"`
	Month          int     `json:"month"`
	TotalUsed      float64 `json:"total_used"`
	PercentageUsed float64 `json:"percentage_used"`
}

// HistoryEntryDTO represents one status transition in a booking's ledger.
type HistoryEntryDTO struct {
	ID        string `json:"id"`
	BookingID string `json:"booking_id"`
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// BookingHistoryDTO wraps a booking's status ledger.
type BookingHistoryDTO struct {
	History []HistoryEntryDTO `json:"history"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toBookingDTO(b booking.Booking) BookingDTO {
	return BookingDTO{
		ID:        b.ID,
		Time:      b.Time.Format(time.RFC3339),
		PatientID: b.PatientID,
		Provider:  b.Provider,
		Status:    string(b.Status),
		CreditID:  b.CreditID,
		CreatedAt: b.CreatedAt.Format(time.RFC3339),
		UpdatedAt: b.UpdatedAt.Format(time.RFC3339),
	}
}

func toBookingDTOs(bookings []booking.Booking) []BookingDTO {
	dtos := make([]BookingDTO, len(bookings))
	for i, b := range bookings {
		dtos[i] = toBookingDTO(b)
	}
	return dtos
}

func toCreditDTO(c booking.Credit) CreditDTO {
	value, _ := c.Value.Float64()
	return CreditDTO{
		ID:        c.ID,
		Kind:      c.Kind,
		Value:     value,
		ExpiresAt: c.ExpiresAt.Format(time.RFC3339),
		BookingID: c.BookingID,
		PatientID: c.PatientID,
		CreatedAt: c.CreatedAt.Format(time.RFC3339),
	}
}

func toCreditDTOs(credits []booking.Credit) []CreditDTO {
	dtos := make([]CreditDTO, len(credits))
	for i, c := range credits {
		dtos[i] = toCreditDTO(c)
	}
	return dtos
}

func toHistoryDTOs(entries []booking.HistoryEntry) []HistoryEntryDTO {
	dtos := make([]HistoryEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = HistoryEntryDTO{
			ID:        e.ID,
			BookingID: e.BookingID,
			Status:    string(e.Status),
			Timestamp: e.Timestamp.Format(time.RFC3339),
		}
	}
	return dtos
}

func toMonthlyUsageDTOs(usage []booking.MonthlyCreditUsage) []MonthlyUsageDTO {
	dtos := make([]MonthlyUsageDTO, len(usage))
	for i, u := range usage {
		total, _ := u.TotalUsed.Float64()
		pct, _ := u.PercentageUsed.Float64()
		dtos[i] = MonthlyUsageDTO{
			Year:           u.Year,
			Month:          int(u.Month),
			TotalUsed:      total,
			PercentageUsed: pct,
		}
	}
	return dtos
}

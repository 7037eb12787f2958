/*
handlers.go - HTTP API handlers for the booking engine

PURPOSE:
  Exposes the booking engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Bookings:
    POST   /api/bookings                        Create booking (consumes a credit)
    GET    /api/bookings?userId={id}            List a user's bookings (+provider stats)
    GET    /api/bookings/{bookingID}            Get booking details
    POST   /api/bookings/{bookingID}/status     Transition booking status
    GET    /api/bookings/{bookingID}/history    Status history ledger

  Credits:
    POST   /api/credits                         Issue a credit
    GET    /api/credits/{patientID}             Patient credits + monthly usage

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Call domain logic (service, stats)
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Domain errors map to HTTP status in exactly one place, writeDomainError:
  - 400: Validation errors, invalid input
  - 404: No eligible credit, unknown booking or credit
  - 409: Concurrent allocation lost the race
  - 500: Internal errors (detail logged, not leaked)

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - booking/service.go: Allocation and status transitions
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/carebook/booking-engine/booking"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service *booking.Service
	Stats   *booking.Stats
	Store   booking.Store
	Log     zerolog.Logger
}

// NewHandler creates a new handler over the domain services.
func NewHandler(svc *booking.Service, stats *booking.Stats, store booking.Store, log zerolog.Logger) *Handler {
	return &Handler{
		Service: svc,
		Stats:   stats,
		Store:   store,
		Log:     log,
	}
}

// =============================================================================
// BOOKING HANDLERS
// =============================================================================

// CreateBooking creates a booking backed by an eligible credit.
// POST /api/bookings
func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req CreateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	bookedAt, err := time.Parse(time.RFC3339, req.Time)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid time format (use RFC 3339)", err)
		return
	}

	b, err := h.Service.CreateBookingWithCredit(r.Context(), booking.NewBooking{
		Time:      bookedAt,
		PatientID: req.PatientID,
		Provider:  req.Provider,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	h.Log.Info().
		Str("booking_id", b.ID).
		Str("credit_id", b.CreditID).
		Str("provider", b.Provider).
		Msg("booking created")

	h.writeJSON(w, http.StatusCreated, CreateBookingResponse{
		Message: "Booking created successfully",
		Booking: toBookingDTO(*b),
	})
}

// ListUserBookings returns all bookings where the user is the patient or the
// provider. When the user appears as a provider in the result, the response
// includes their lifetime canceled/rescheduled counts.
// GET /api/bookings?userId={id}
func (h *Handler) ListUserBookings(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		h.writeError(w, http.StatusBadRequest, "Missing userId query parameter", nil)
		return
	}

	bookings, err := h.Service.BookingsForUser(r.Context(), userID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	resp := UserBookingsDTO{Bookings: toBookingDTOs(bookings)}

	// Stats only apply when the user acts as a provider somewhere in the set.
	for _, b := range bookings {
		if b.Provider != userID {
			continue
		}
		stats, err := h.Stats.ProviderStatusStats(r.Context(), userID)
		if err != nil {
			h.writeDomainError(w, r, err)
			return
		}
		resp.Stats = &ProviderStatsDTO{
			CanceledCount:    stats.CanceledCount,
			RescheduledCount: stats.RescheduledCount,
		}
		break
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// GetBooking returns a single booking.
// GET /api/bookings/{bookingID}
func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "bookingID")

	b, err := h.Service.Booking(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, toBookingDTO(*b))
}

// SetBookingStatus transitions a booking's status and appends the matching
// history entry.
// POST /api/bookings/{bookingID}/status
func (h *Handler) SetBookingStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "bookingID")

	var req SetStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	b, err := h.Service.SetStatus(r.Context(), id, booking.Status(req.Status))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	h.Log.Info().
		Str("booking_id", b.ID).
		Str("status", string(b.Status)).
		Msg("booking status changed")

	h.writeJSON(w, http.StatusOK, toBookingDTO(*b))
}

// GetBookingHistory returns a booking's status history, ascending by
// timestamp. An unknown booking yields an empty list.
// GET /api/bookings/{bookingID}/history
func (h *Handler) GetBookingHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "bookingID")

	entries, err := h.Service.History(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, BookingHistoryDTO{History: toHistoryDTOs(entries)})
}

// =============================================================================
// CREDIT HANDLERS
// =============================================================================

// CreateCredit issues a new credit.
// POST /api/credits
func (h *Handler) CreateCredit(w http.ResponseWriter, r *http.Request) {
	var req CreateCreditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if req.Kind == "" {
		h.writeError(w, http.StatusBadRequest, "Missing kind", nil)
		return
	}
	expiresAt, err := time.Parse(time.RFC3339, req.ExpiresAt)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid expires_at format (use RFC 3339)", err)
		return
	}

	c := booking.Credit{
		ID:        uuid.NewString(),
		Kind:      req.Kind,
		Value:     decimal.NewFromFloat(req.Value),
		ExpiresAt: expiresAt,
		PatientID: req.PatientID,
		CreatedAt: time.Now().UTC(),
	}

	if err := h.Store.CreateCredit(r.Context(), c); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	h.Log.Info().
		Str("credit_id", c.ID).
		Str("kind", c.Kind).
		Msg("credit issued")

	h.writeJSON(w, http.StatusCreated, toCreditDTO(c))
}

// ListPatientCredits returns a patient's credits together with their monthly
// confirmed usage breakdown.
// GET /api/credits/{patientID}
func (h *Handler) ListPatientCredits(w http.ResponseWriter, r *http.Request) {
	patientID := chi.URLParam(r, "patientID")

	credits, err := h.Store.ListCreditsByPatient(r.Context(), patientID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	usage, err := h.Stats.PatientMonthlyCreditUsage(r.Context(), patientID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, PatientCreditsDTO{
		Credits: toCreditDTOs(credits),
		Stats:   toMonthlyUsageDTOs(usage),
	})
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	h.writeJSON(w, status, resp)
}

// writeDomainError is the single mapping point between domain errors and
// HTTP status codes.
func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *booking.ValidationError
	switch {
	case errors.As(err, &verr):
		h.writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: verr.Error(),
			Code:  "validation",
		})
	case errors.Is(err, booking.ErrNoEligibleCredit):
		h.writeJSON(w, http.StatusNotFound, ErrorResponse{
			Error: err.Error(),
			Code:  "no_eligible_credit",
		})
	case errors.Is(err, booking.ErrBookingNotFound):
		h.writeJSON(w, http.StatusNotFound, ErrorResponse{
			Error: err.Error(),
			Code:  "booking_not_found",
		})
	case errors.Is(err, booking.ErrCreditNotFound):
		h.writeJSON(w, http.StatusNotFound, ErrorResponse{
			Error: err.Error(),
			Code:  "credit_not_found",
		})
	case errors.Is(err, booking.ErrConcurrentAllocation):
		h.writeJSON(w, http.StatusConflict, ErrorResponse{
			Error: err.Error(),
			Code:  "concurrent_allocation",
		})
	default:
		// Internal detail stays in the log, not the response.
		h.Log.Error().Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("request failed")
		h.writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error: "Internal server error",
			Code:  "internal",
		})
	}
}

/**
 * @description
 * This file contains the HTTP handlers for the voting-service's public API
 * endpoints. Handlers are responsible for parsing incoming requests, calling the
 * appropriate methods on the application service, and writing the HTTP response.
 * They act as the bridge between the web layer and the business logic layer.
 *
 * @dependencies
 * - encoding/json, log, net/http: Standard Go libraries.
 * - github.com/go-chi/chi/v5: URL parameter extraction.
 * - internal/app, internal/domain, internal/store: For service logic, models, and custom errors.
 */

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/votely/voting-service/internal/app"
	"github.com/votely/voting-service/internal/domain"
	"github.com/votely/voting-service/internal/store"
)

// VotingHandlers holds the application service that handlers will use.
type VotingHandlers struct {
	service *app.Service
}

// NewVotingHandlers creates a new instance of VotingHandlers.
func NewVotingHandlers(service *app.Service) *VotingHandlers {
	return &VotingHandlers{service: service}
}

// castVoteResponse mirrors the structure the voting frontend expects after a
// successful cast: the committed vote record plus a confirmation message.
type castVoteResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Vote    *domain.Vote `json:"vote"`
}

// CastVoteHandler handles requests to cast votes against a verified payment.
func (h *VotingHandlers) CastVoteHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.CastVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("level=warn component=api endpoint=cast_vote outcome=reject reason=invalid_json err=%v", err)
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	voterIP := clientIP(r)
	log.Printf("level=info component=api endpoint=cast_vote outcome=accepted candidate_ref=%s event_id=%s category_id=%s payment_reference=%s voter_ip=%s",
		req.CandidateReferenceCode, req.EventID, req.CategoryID, req.PaymentReferenceCode, voterIP)

	vote, err := h.service.CastVote(r.Context(), req, voterIP)
	if err != nil {
		h.writeVoteError(w, "cast_vote", err)
		return
	}

	h.writeJSON(w, http.StatusCreated, castVoteResponse{
		Success: true,
		Message: fmt.Sprintf("Recorded %d votes for candidate %s", vote.NumberOfVotes, req.CandidateReferenceCode),
		Vote:    vote,
	})
}

// ManualReconcileHandler handles admin requests to redeem a payment whose cast
// request never completed. The bundle selection is read from the payment's
// metadata.
func (h *VotingHandlers) ManualReconcileHandler(w http.ResponseWriter, r *http.Request) {
	operator, ok := GetAdminSubject(r.Context())
	if !ok {
		http.Error(w, "Could not get admin subject from context", http.StatusInternalServerError)
		return
	}

	var req domain.ManualReconcileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("level=warn component=api endpoint=manual_reconcile outcome=reject reason=invalid_json err=%v", err)
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	log.Printf("level=info component=api endpoint=manual_reconcile outcome=accepted payment_reference=%s operator=%s",
		req.PaymentReferenceCode, operator)

	vote, err := h.service.ReconcileManualPayment(r.Context(), req, operator)
	if err != nil {
		h.writeVoteError(w, "manual_reconcile", err)
		return
	}

	h.writeJSON(w, http.StatusCreated, castVoteResponse{
		Success: true,
		Message: fmt.Sprintf("Payment %s reconciled into %d votes", req.PaymentReferenceCode, vote.NumberOfVotes),
		Vote:    vote,
	})
}

// GetResultsHandler serves the weighted vote tallies for one event/category pair.
func (h *VotingHandlers) GetResultsHandler(w http.ResponseWriter, r *http.Request) {
	eventID, err := uuid.Parse(chi.URLParam(r, "eventID"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid event ID format")
		return
	}
	categoryID, err := uuid.Parse(chi.URLParam(r, "categoryID"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid category ID format")
		return
	}

	tallies, err := h.service.GetResults(r.Context(), eventID, categoryID)
	if err != nil {
		log.Printf("level=error component=api endpoint=results msg=\"tally query failed\" event_id=%s category_id=%s err=%v", eventID, categoryID, err)
		h.writeError(w, http.StatusInternalServerError, "Unable to load results")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"event_id":    eventID,
		"category_id": categoryID,
		"results":     tallies,
	})
}

// writeVoteError maps reconciliation workflow errors onto HTTP statuses. All
// business rejections are client errors; only unclassified failures become 500s.
func (h *VotingHandlers) writeVoteError(w http.ResponseWriter, endpoint string, err error) {
	var rateLimited *app.RateLimitedError
	if errors.As(err, &rateLimited) {
		w.Header().Set("Retry-After", strconv.Itoa(rateLimited.RetryAfterSeconds))
		h.writeError(w, http.StatusTooManyRequests, err.Error())
		return
	}

	var amountMismatch *app.AmountMismatchError
	if errors.As(err, &amountMismatch) {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	switch {
	case errors.Is(err, store.ErrCandidateNotFound),
		errors.Is(err, store.ErrEventNotFound),
		errors.Is(err, store.ErrCategoryNotFound),
		errors.Is(err, store.ErrVoteBundleNotFound),
		errors.Is(err, store.ErrPaymentNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrPaymentAlreadyRedeemed):
		h.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, store.ErrPromoUsageLimitExceeded),
		errors.Is(err, app.ErrPromoExhausted):
		h.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, app.ErrInvalidBundleSelection),
		errors.Is(err, app.ErrCandidateNotInEvent),
		errors.Is(err, app.ErrCandidateNotInCategory),
		errors.Is(err, app.ErrCategoryNotInEvent),
		errors.Is(err, app.ErrBundleNotInEvent),
		errors.Is(err, app.ErrBundleNotInCategory),
		errors.Is(err, app.ErrBundleInactive),
		errors.Is(err, app.ErrPaymentNotVerified),
		errors.Is(err, app.ErrVoteMetadataMismatch),
		errors.Is(err, app.ErrPromoNotFound),
		errors.Is(err, app.ErrPromoNotApplicable),
		errors.Is(err, app.ErrPromoExpired):
		h.writeError(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("level=error component=api endpoint=%s msg=\"unclassified reconciliation failure\" err=%v", endpoint, err)
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// clientIP extracts the caller's IP, preferring proxy headers set by the load
// balancer over the raw socket address.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		// X-Forwarded-For can contain multiple IPs, take the first one
		if idx := strings.IndexByte(xff, ','); idx > 0 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	ip := r.RemoteAddr
	if idx := strings.LastIndexByte(ip, ':'); idx > 0 {
		return ip[:idx]
	}
	return ip
}

// writeJSON is a helper for writing JSON responses.
func (h *VotingHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError is a helper for writing JSON error responses.
func (h *VotingHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]interface{}{"success": false, "error": message})
}
